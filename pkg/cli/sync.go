package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/taskbridge/pkg/config"
	"github.com/harrisonrobin/taskbridge/pkg/engine"
	"github.com/harrisonrobin/taskbridge/pkg/gtasks"
	"github.com/harrisonrobin/taskbridge/pkg/mapper"
	"github.com/harrisonrobin/taskbridge/pkg/store"
	"github.com/harrisonrobin/taskbridge/pkg/taskwarrior"
)

// SyncOptions holds flags for sync run.
type SyncOptions struct {
	*RootOptions
	DryRun bool
	Full   bool
}

// NewSyncCommand creates the sync command group.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run and inspect reconciliation cycles",
	}
	cmd.AddCommand(newSyncRunCommand(rootOpts))
	cmd.AddCommand(newSyncStatusCommand(rootOpts))
	return cmd
}

func newSyncRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one reconciliation cycle",
		Long: `Run one reconciliation cycle between the configured Google Tasks list
and the local Taskwarrior database.

Cycles are incremental by default, asking both sides only for records
changed since the last cycle. Use --full to force a complete enumeration,
for example after editing the mapping file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "plan the cycle without writing anything")
	cmd.Flags().BoolVar(&opts.Full, "full", false, "enumerate everything instead of changes since the last cycle")
	return cmd
}

func runSync(ctx context.Context, opts *SyncOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	policy, err := buildPolicy(cfg)
	if err != nil {
		return err
	}

	lockPath, err := config.LockPath()
	if err != nil {
		return err
	}
	release, err := engine.AcquireLock(lockPath)
	if err != nil {
		if errors.Is(err, engine.ErrLockHeld) {
			// A hook-triggered run and a manual run racing is normal;
			// the loser just lets the winner finish.
			slog.Info("sync already in progress, skipping")
			return nil
		}
		return err
	}
	defer release()

	table, err := loadTable(cfg)
	if err != nil {
		return err
	}

	statePath, err := config.StatePath()
	if err != nil {
		return err
	}
	st, err := store.Open(statePath)
	if err != nil {
		return fmt.Errorf("open sync state: %w", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("closing sync state", "error", closeErr)
		}
	}()

	if cfg.CycleTimeout.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.CycleTimeout.Duration)
		defer cancel()
	}

	web, err := gtasks.NewClient(ctx, cfg.TaskList)
	if err != nil {
		return fmt.Errorf("connect to Google Tasks: %w", err)
	}
	local := taskwarrior.NewClient()

	eng := engine.New(web, local, st, table, policy)
	eng.MatchWindow = cfg.MatchWindow.Duration
	eng.MaxAttempts = cfg.MaxAttempts

	result, err := eng.Run(ctx, engine.Options{Full: opts.Full, DryRun: opts.DryRun})
	if err != nil {
		return err
	}

	fmt.Println(result.String())
	for _, c := range result.Conflicts {
		fmt.Printf("  conflict %s: web=%q local=%q (link %s)\n", c.Field, c.WebValue, c.LocalValue, c.LinkID)
	}
	for _, f := range result.Failures {
		fmt.Printf("  failed %s\n", f.String())
	}

	if result.Failed > 0 {
		return fmt.Errorf("%d item(s) failed to sync", result.Failed)
	}
	if cfg.FailOnConflict && result.Conflicted > 0 {
		return fmt.Errorf("%d item(s) have unresolved conflicts", result.Conflicted)
	}
	return nil
}

func newSyncStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show last cycle time and pending conflicts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context())
		},
	}
	return cmd
}

func runStatus(ctx context.Context) error {
	statePath, err := config.StatePath()
	if err != nil {
		return err
	}
	st, err := store.Open(statePath)
	if err != nil {
		return fmt.Errorf("open sync state: %w", err)
	}
	defer st.Close()

	last, err := st.LastCycle(ctx)
	if err != nil {
		return err
	}
	if last.IsZero() {
		fmt.Println("last cycle: never")
	} else {
		fmt.Printf("last cycle: %s (%s ago)\n", last.Format(time.RFC3339), time.Since(last).Round(time.Second))
	}

	links, err := st.All(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("linked tasks: %d\n", len(links))

	conflicts, err := st.PendingConflicts(ctx)
	if err != nil {
		return err
	}
	if len(conflicts) == 0 {
		fmt.Println("pending conflicts: none")
		return nil
	}
	fmt.Printf("pending conflicts: %d\n", len(conflicts))
	for _, c := range conflicts {
		fmt.Printf("  %s %s: web=%q local=%q (since %s)\n",
			c.LinkID, c.Field, c.WebValue, c.LocalValue, c.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func buildPolicy(cfg *config.Config) (engine.Policy, error) {
	kind, err := engine.ParsePolicyKind(cfg.Policy)
	if err != nil {
		return engine.Policy{}, err
	}
	deletion, err := engine.ParseDeletionPolicy(cfg.DeletionPolicy)
	if err != nil {
		return engine.Policy{}, err
	}
	allow := true
	if cfg.AllowReopen != nil {
		allow = *cfg.AllowReopen
	}
	return engine.Policy{Kind: kind, Deletion: deletion, AllowReopen: allow}, nil
}

func loadTable(cfg *config.Config) (*mapper.Table, error) {
	if cfg.MappingFile == "" {
		return mapper.DefaultTable(), nil
	}
	table, err := mapper.LoadTable(cfg.MappingFile)
	if err != nil {
		return nil, fmt.Errorf("load mapping file %s: %w", cfg.MappingFile, err)
	}
	return table, nil
}
