// Package taskwarrior is the local-side adapter. It drives the `task`
// binary through its JSON export/import surface; no direct file access to
// the Taskwarrior data directory.
package taskwarrior

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harrisonrobin/taskbridge/pkg/adapter"
)

// Client shells out to Taskwarrior. The zero command defaults to "task" on
// PATH; tests point it at a stub.
type Client struct {
	Command string
}

func NewClient() *Client {
	return &Client{Command: "task"}
}

var _ adapter.Adapter = (*Client)(nil)

func (c *Client) System() adapter.System { return adapter.SystemLocal }

// List exports tasks as adapter records. A non-nil since narrows the export
// to tasks Taskwarrior reports as modified after that instant.
func (c *Client) List(ctx context.Context, since *time.Time) ([]adapter.Record, error) {
	var filter []string
	if since != nil {
		filter = append(filter, "modified.after:"+since.UTC().Format(taskwarriorTimeLayout))
	}
	tasks, err := c.export(ctx, filter)
	if err != nil {
		return nil, err
	}
	records := make([]adapter.Record, 0, len(tasks))
	for _, t := range tasks {
		records = append(records, toRecord(t))
	}
	return records, nil
}

// Get resolves one task by UUID. Returns nil, nil when the UUID no longer
// resolves, which the engine reads as a deletion.
func (c *Client) Get(ctx context.Context, id string) (*adapter.Record, error) {
	tasks, err := c.export(ctx, []string{"uuid:" + id})
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, nil
	}
	rec := toRecord(tasks[0])
	return &rec, nil
}

// Create imports a new task. The UUID is generated client-side so the id is
// known without re-exporting.
func (c *Client) Create(ctx context.Context, rec adapter.Record) (string, error) {
	task := fromRecord(rec)
	task.UUID = uuid.NewString()
	now := CustomTime{time.Now().UTC()}
	task.Entry = &now
	if err := c.importTask(ctx, task); err != nil {
		return "", err
	}
	return task.UUID, nil
}

// Update re-imports the task under its existing UUID; `task import`
// overwrites the fields present in the payload.
func (c *Client) Update(ctx context.Context, id string, rec adapter.Record) error {
	task := fromRecord(rec)
	task.UUID = id
	return c.importTask(ctx, task)
}

func (c *Client) Delete(ctx context.Context, id string) error {
	cmd := exec.CommandContext(ctx, c.Command, "rc.confirmation=off", "rc.hooks=0", "uuid:"+id, "delete")
	if output, err := cmd.CombinedOutput(); err != nil {
		return c.classify(ctx, fmt.Sprintf("task delete %s", id), err, output)
	}
	return nil
}

func (c *Client) export(ctx context.Context, filter []string) ([]Task, error) {
	args := append(filter, "export", "rc.hooks=0", "rc.json.array=1")
	cmd := exec.CommandContext(ctx, c.Command, args...)

	output, err := cmd.Output()
	if err != nil {
		return nil, c.classify(ctx, "task export", err, nil)
	}

	var tasks []Task
	if err := json.Unmarshal(output, &tasks); err != nil {
		return nil, adapter.Permanent("task export", fmt.Errorf("failed to unmarshal taskwarrior output: %w", err))
	}
	return tasks, nil
}

func (c *Client) importTask(ctx context.Context, task Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return adapter.Permanent("task import", err)
	}

	cmd := exec.CommandContext(ctx, c.Command, "rc.hooks=0", "import", "-")
	cmd.Stdin = bytes.NewReader(payload)
	if output, err := cmd.CombinedOutput(); err != nil {
		return c.classify(ctx, "task import", err, output)
	}
	return nil
}

// classify sorts exec failures into the adapter taxonomy. A cancelled or
// timed-out context and a missing/busy binary are transient; a non-zero
// exit from a command that ran means Taskwarrior rejected the input.
func (c *Client) classify(ctx context.Context, op string, err error, output []byte) error {
	if ctx.Err() != nil {
		return adapter.Transient(op, ctx.Err())
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		detail := strings.TrimSpace(string(exitErr.Stderr))
		if detail == "" {
			detail = strings.TrimSpace(string(output))
		}
		return adapter.Permanent(op, fmt.Errorf("taskwarrior command failed: exit code %d: %s", exitErr.ExitCode(), detail))
	}
	return adapter.Transient(op, err)
}

func toRecord(t Task) adapter.Record {
	fields := map[string]any{
		"description": t.Description,
		"status":      t.Status,
	}
	if t.Priority != "" {
		fields["priority"] = t.Priority
	}
	if t.Due != nil && !t.Due.IsZero() {
		fields["due"] = t.Due.Time
	}
	if len(t.Tags) > 0 {
		fields["tags"] = append([]string(nil), t.Tags...)
	}
	if len(t.Annotations) > 0 {
		lines := make([]string, 0, len(t.Annotations))
		for _, a := range t.Annotations {
			lines = append(lines, a.Description)
		}
		fields["annotations"] = strings.Join(lines, "\n")
	}

	var updated, created time.Time
	if t.Entry != nil && !t.Entry.IsZero() {
		created = t.Entry.Time
	}
	if t.Modified != nil && !t.Modified.IsZero() {
		updated = t.Modified.Time
	} else {
		updated = created
	}

	return adapter.Record{
		ID:        t.UUID,
		Fields:    fields,
		UpdatedAt: updated,
		CreatedAt: created,
		Deleted:   t.Status == DELETED,
	}
}

func fromRecord(rec adapter.Record) Task {
	task := Task{Status: PENDING}
	if s, ok := rec.Fields["description"].(string); ok {
		task.Description = s
	}
	if s, ok := rec.Fields["status"].(string); ok {
		task.Status = s
	}
	if s, ok := rec.Fields["priority"].(string); ok {
		task.Priority = s
	}
	if due, ok := rec.Fields["due"].(time.Time); ok {
		task.Due = &CustomTime{due}
	}
	if tags, ok := rec.Fields["tags"].([]string); ok {
		task.Tags = tags
	}
	if notes, ok := rec.Fields["annotations"].(string); ok && notes != "" {
		now := CustomTime{time.Now().UTC()}
		for _, line := range strings.Split(notes, "\n") {
			task.Annotations = append(task.Annotations, Annotation{Entry: &now, Description: line})
		}
	}
	if task.Status == COMPLETED {
		now := CustomTime{time.Now().UTC()}
		task.End = &now
	}
	return task
}
