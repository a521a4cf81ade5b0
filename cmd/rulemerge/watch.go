package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/supervisor"
	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/spf13/cobra"

	"github.com/aretw0/rulemerge"
	"github.com/aretw0/rulemerge/pkg/adapters/fs"
	"github.com/aretw0/rulemerge/pkg/adapters/lifecycle"
	"github.com/aretw0/rulemerge/pkg/core"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [rule...]",
	Short: "Rebuild affected rules when sources or the manifest change",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		manifestFile, err := resolveManifest(cmd)
		if err != nil {
			return err
		}

		s := &watchSession{
			manifest: manifestFile,
			rules:    args,
			out:      cmd.OutOrStdout(),
			errOut:   cmd.ErrOrStderr(),
			logger:   slog.Default(),
		}
		return s.run(ctx)
	},
}

// watchSession owns the engine of a running watch. The engine is replaced
// whenever the manifest changes.
type watchSession struct {
	manifest string
	rules    []string
	out      io.Writer
	errOut   io.Writer
	logger   *slog.Logger

	engine      *rulemerge.Engine
	manifestRel string
	ignore      *fs.IgnoreList
}

func (s *watchSession) open() (*rulemerge.Engine, error) {
	return rulemerge.New(s.manifest,
		rulemerge.WithLogger(s.logger),
		rulemerge.WithConcurrency(concurrency),
		rulemerge.WithWatcherErrorHandler(func(err error) {
			fmt.Fprintf(s.errOut, "watch: %v\n", err)
		}),
	)
}

func (s *watchSession) run(ctx context.Context) error {
	e, err := s.open()
	if err != nil {
		return err
	}
	s.engine = e

	repo, ok := e.Repository().(*fs.Repository)
	if !ok {
		return errors.New("watch requires the filesystem repository")
	}

	abs, err := filepath.Abs(s.manifest)
	if err != nil {
		return err
	}
	if s.manifestRel, err = repo.Rel(abs); err != nil {
		return err
	}

	s.build(ctx, s.rules...)

	events := make(chan core.Event, 64)
	s.ignore = fs.NewIgnoreList(outputPatterns(e.Manifest())...)
	opts := fs.WatchOptions{Ignore: s.ignore, Debounce: watchDebounce}

	sup := supervisor.New("rulemerge-watch", supervisor.StrategyOneForOne, supervisor.Spec{
		Name: "fs-watcher",
		Type: string(worker.TypeGoroutine),
		Factory: func() (worker.Worker, error) {
			return fs.NewWatchWorker(repo, events, opts), nil
		},
		Backoff: supervisor.Backoff{
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      2,
			ResetDuration:   time.Minute,
			MaxRestarts:     5,
			MaxDuration:     5 * time.Minute,
		},
		RestartPolicy: supervisor.RestartOnFailure,
	})
	if err := sup.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sup.Stop(stopCtx); err != nil {
			s.logger.Error("failed to stop watcher", "error", err)
		}
	}()

	src := lifecycle.NewSource(events)
	if err := src.Start(ctx); err != nil {
		return err
	}

	fmt.Fprintf(s.out, "watching %s (ctrl-c to stop)\n", repo.Root)
	for ev := range src.Events() {
		if e, ok := lifecycle.Event(ev); ok {
			s.handle(ctx, e)
		}
	}
	return nil
}

// handle rebuilds what an event may have changed.
func (s *watchSession) handle(ctx context.Context, ev core.Event) {
	s.logger.Debug("change detected", "event", ev.String())

	switch {
	case ev.Type == core.EventReconcile:
		s.build(ctx, s.rules...)

	case ev.Path == s.manifestRel:
		if ev.Type == core.EventDelete {
			s.logger.Warn("manifest removed, keeping last rules", "path", s.manifest)
			return
		}
		e, err := s.open()
		if err != nil {
			fmt.Fprintf(s.errOut, "FAIL manifest: %s: %v\n", core.ErrorKind(err), err)
			return
		}
		s.engine = e
		if s.ignore != nil {
			s.ignore.Set(outputPatterns(e.Manifest())...)
		}
		s.build(ctx, s.rules...)

	default:
		affected := s.filter(s.engine.Affected(ev.Path))
		if len(affected) == 0 {
			return
		}
		s.build(ctx, affected...)
	}
}

// filter keeps the rules selected on the command line.
func (s *watchSession) filter(names []string) []string {
	if len(s.rules) == 0 {
		return names
	}
	selected := make(map[string]bool, len(s.rules))
	for _, n := range s.rules {
		selected[n] = true
	}
	var out []string
	for _, n := range names {
		if selected[n] {
			out = append(out, n)
		}
	}
	return out
}

func (s *watchSession) build(ctx context.Context, names ...string) {
	report, err := s.engine.Build(ctx, names...)
	if report == nil {
		fmt.Fprintf(s.errOut, "FAIL build: %s: %v\n", core.ErrorKind(err), err)
		return
	}
	printFailures(s.errOut, report)
	printSummary(s.out, report)
}

// outputPatterns lists the rule outputs relative to the manifest root, so
// writes of the engine itself do not trigger rebuilds.
func outputPatterns(m core.Manifest) []string {
	patterns := make([]string, 0, len(m.Rules))
	for _, r := range m.Rules {
		out := r.Output
		if m.Root != "" {
			rel, err := filepath.Rel(m.Root, m.Resolve(r.Output))
			if err != nil {
				continue
			}
			out = rel
		}
		patterns = append(patterns, path.Clean(filepath.ToSlash(out)))
	}
	return patterns
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", fs.DefaultDebounce, "Coalescing window for file events")
	rootCmd.AddCommand(watchCmd)
}
