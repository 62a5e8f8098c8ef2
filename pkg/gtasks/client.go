// Package gtasks is the web-side adapter, backed by the Google Tasks API.
package gtasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"github.com/harrisonrobin/taskbridge/pkg/adapter"
	"github.com/harrisonrobin/taskbridge/pkg/auth"
	"github.com/harrisonrobin/taskbridge/pkg/mapper"
)

// Client wraps one Google Tasks task list as an adapter.
type Client struct {
	srv    *tasks.Service
	listID string
}

var _ adapter.Adapter = (*Client)(nil)

// NewClient builds an authenticated client bound to the task list with the
// given title. The list is resolved by title the same way the user sees it
// in the Google Tasks UI.
func NewClient(ctx context.Context, listTitle string) (*Client, error) {
	httpClient, err := auth.GetClient(ctx, []string{tasks.TasksScope})
	if err != nil {
		return nil, err
	}

	srv, err := tasks.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create Tasks client: %w", err)
	}

	lists, err := srv.Tasklists.List().Context(ctx).Do()
	if err != nil {
		return nil, classify("list task lists", err)
	}

	for _, item := range lists.Items {
		if item.Title == listTitle {
			return &Client{srv: srv, listID: item.Id}, nil
		}
	}
	return nil, adapter.Permanent("resolve task list", fmt.Errorf("task list %q not found", listTitle))
}

// NewClientWithService wires an existing service and list id, for tests.
func NewClientWithService(srv *tasks.Service, listID string) *Client {
	return &Client{srv: srv, listID: listID}
}

func (c *Client) System() adapter.System { return adapter.SystemWeb }

// List enumerates every task in the list, including completed, hidden and
// tombstoned ones so deletions are observable. A non-nil since becomes an
// updatedMin delta query.
func (c *Client) List(ctx context.Context, since *time.Time) ([]adapter.Record, error) {
	call := c.srv.Tasks.List(c.listID).
		ShowCompleted(true).
		ShowHidden(true).
		ShowDeleted(true).
		MaxResults(100)
	if since != nil {
		call = call.UpdatedMin(since.UTC().Format(time.RFC3339))
	}

	var records []adapter.Record
	pageToken := ""
	for {
		page, err := call.PageToken(pageToken).Context(ctx).Do()
		if err != nil {
			return nil, classify("list tasks", err)
		}
		for _, t := range page.Items {
			rec, err := toRecord(t)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
		if page.NextPageToken == "" {
			return records, nil
		}
		pageToken = page.NextPageToken
	}
}

func (c *Client) Get(ctx context.Context, id string) (*adapter.Record, error) {
	t, err := c.srv.Tasks.Get(c.listID, id).Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, classify("get task", err)
	}
	rec, err := toRecord(t)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *Client) Create(ctx context.Context, rec adapter.Record) (string, error) {
	created, err := c.srv.Tasks.Insert(c.listID, fromRecord(rec)).Context(ctx).Do()
	if err != nil {
		return "", classify("insert task", err)
	}
	return created.Id, nil
}

func (c *Client) Update(ctx context.Context, id string, rec adapter.Record) error {
	t := fromRecord(rec)
	t.Id = id
	if _, err := c.srv.Tasks.Update(c.listID, id, t).Context(ctx).Do(); err != nil {
		return classify("update task", err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.srv.Tasks.Delete(c.listID, id).Context(ctx).Do(); err != nil {
		if isNotFound(err) {
			return nil
		}
		return classify("delete task", err)
	}
	return nil
}

func toRecord(t *tasks.Task) (adapter.Record, error) {
	notes, overflow := parseNotes(t.Notes)

	fields := map[string]any{
		"title":  t.Title,
		"status": t.Status,
	}
	if notes != "" {
		fields["notes"] = notes
	}
	if t.Due != "" {
		due, err := time.Parse(time.RFC3339, t.Due)
		if err != nil {
			return adapter.Record{}, adapter.Permanent("parse task", fmt.Errorf("bad due %q on task %s: %w", t.Due, t.Id, err))
		}
		fields["due"] = due.UTC()
	}
	if overflow != nil {
		fields[mapper.OverflowField] = overflow
	}

	var updated time.Time
	if t.Updated != "" {
		if parsed, err := time.Parse(time.RFC3339, t.Updated); err == nil {
			updated = parsed
		}
	}

	return adapter.Record{
		ID:        t.Id,
		Fields:    fields,
		UpdatedAt: updated,
		Deleted:   t.Deleted,
	}, nil
}

func fromRecord(rec adapter.Record) *tasks.Task {
	t := &tasks.Task{Status: "needsAction"}
	if s, ok := rec.Fields["title"].(string); ok {
		t.Title = s
	}
	if s, ok := rec.Fields["status"].(string); ok {
		t.Status = s
	}
	if due, ok := rec.Fields["due"].(time.Time); ok {
		t.Due = due.UTC().Format(time.RFC3339)
	}
	notes, _ := rec.Fields["notes"].(string)
	overflow, _ := rec.Fields[mapper.OverflowField].(map[string]string)
	if encoded := formatNotes(notes, overflow); encoded != "" {
		t.Notes = encoded
	}
	// The generated client omits zero-valued fields from the request body,
	// which the API reads as "leave unchanged". Cleared fields must travel
	// explicitly: empty strings through ForceSendFields, the absent due
	// date through NullFields, or a stale trailer survives on the web side.
	t.ForceSendFields = []string{"Status"}
	if t.Notes == "" {
		t.ForceSendFields = append(t.ForceSendFields, "Notes")
	}
	if t.Due == "" {
		t.NullFields = append(t.NullFields, "Due")
	}
	return t
}

// classify sorts API failures into the adapter taxonomy: rate limits,
// timeouts and server errors are retryable; everything else the API
// rejected deliberately.
func classify(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusTooManyRequests,
			gerr.Code == http.StatusRequestTimeout,
			gerr.Code >= 500:
			return adapter.Transient(op, err)
		default:
			return adapter.Permanent(op, err)
		}
	}
	// No structured API error means the request never completed, which is
	// a network-level failure.
	return adapter.Transient(op, err)
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}
