// Package engine executes the merge rules of a manifest against a content
// store. Rules are independent: they run in parallel up to a bound, and a
// failing rule never stops its peers.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/rulemerge/pkg/core"
	"github.com/aretw0/rulemerge/pkg/merge"
)

// Config wires an Engine.
type Config struct {
	Manifest   core.Manifest
	Repository core.Repository
	// Classifier assigns include files without a declared category.
	// Nil means a lookup built from the manifest's settings.categories.
	Classifier core.Classifier
	// Comments overrides the comment syntax stripped when preserve_comments
	// is false.
	Comments merge.CommentSyntax
	// Concurrency bounds parallel rules. Zero means runtime.NumCPU().
	Concurrency int
	Logger      *slog.Logger
}

// Engine builds, checks and renders the rules of one manifest.
type Engine struct {
	manifest    core.Manifest
	repo        core.Repository
	classifier  core.Classifier
	opts        merge.Options
	concurrency int
	logger      *slog.Logger

	mu        sync.RWMutex
	builds    int
	lastBuild *core.Report
}

// New validates cfg and returns an Engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Repository == nil {
		return nil, errors.New("engine: repository is required")
	}
	if cfg.Classifier == nil {
		cfg.Classifier = merge.NewLookup(cfg.Manifest.Settings.Categories)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	opts := merge.OptionsFrom(cfg.Manifest.Settings)
	opts.Comments = cfg.Comments

	return &Engine{
		manifest:    cfg.Manifest,
		repo:        cfg.Repository,
		classifier:  cfg.Classifier,
		opts:        opts,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger,
	}, nil
}

// Manifest returns the manifest the engine was built from.
func (e *Engine) Manifest() core.Manifest {
	return e.manifest
}

// Repository returns the content store and output sink.
func (e *Engine) Repository() core.Repository {
	return e.repo
}

// Plan resolves and loads the named rule without assembling it.
func (e *Engine) Plan(ctx context.Context, name string) (*merge.Plan, error) {
	rule, ok := e.manifest.Rule(name)
	if !ok {
		return nil, &core.ManifestError{Source: e.manifest.Source, Rule: name, Err: core.ErrUnknownRule}
	}
	return e.plan(ctx, rule)
}

func (e *Engine) plan(ctx context.Context, rule core.Rule) (*merge.Plan, error) {
	plan, err := merge.Resolve(ctx, rule, e.manifest.Settings, e.repo, e.classifier)
	if err != nil {
		return nil, err
	}
	if err := plan.Load(ctx, e.repo); err != nil {
		return nil, err
	}
	return plan, nil
}

// Render returns the assembled text of the named rule. Nothing is written.
func (e *Engine) Render(ctx context.Context, name string) (string, error) {
	plan, err := e.Plan(ctx, name)
	if err != nil {
		return "", err
	}
	return merge.Assemble(plan.Groups, e.opts), nil
}

// Build assembles and writes the selected rules, or every rule when names
// is empty. The report always holds one result per selected rule; the
// returned error joins the per-rule failures. An unknown rule name is a
// ManifestError and nothing runs.
func (e *Engine) Build(ctx context.Context, names ...string) (*core.Report, error) {
	report, err := e.run(ctx, names, e.buildRule)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.builds++
	e.lastBuild = report
	e.mu.Unlock()

	return report, report.Err()
}

// Check assembles the selected rules in memory and compares them with the
// outputs on disk. Stale outputs carry an error wrapping core.ErrStale.
func (e *Engine) Check(ctx context.Context, names ...string) (*core.Report, error) {
	report, err := e.run(ctx, names, e.checkRule)
	if err != nil {
		return nil, err
	}
	return report, report.Err()
}

type ruleFunc func(ctx context.Context, rule core.Rule) core.RuleResult

func (e *Engine) run(ctx context.Context, names []string, fn ruleFunc) (*core.Report, error) {
	rules, err := e.manifest.Select(names...)
	if err != nil {
		return nil, err
	}

	report := &core.Report{
		Started: time.Now(),
		Results: make([]core.RuleResult, len(rules)),
	}

	g := new(errgroup.Group)
	g.SetLimit(e.concurrency)

	for i, rule := range rules {
		if err := ctx.Err(); err != nil {
			report.Results[i] = core.RuleResult{
				Rule:   rule.Name,
				Output: rule.Output,
				Status: core.StatusSkipped,
				Err:    fmt.Errorf("rule %q not started: %w", rule.Name, err),
			}
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				report.Results[i] = core.RuleResult{
					Rule:   rule.Name,
					Output: rule.Output,
					Status: core.StatusSkipped,
					Err:    fmt.Errorf("rule %q not started: %w", rule.Name, err),
				}
				return nil
			}

			start := time.Now()
			res := fn(ctx, rule)
			res.Duration = time.Since(start)
			report.Results[i] = res

			if res.Err != nil {
				e.logger.Error("rule failed",
					"rule", rule.Name,
					"output", rule.Output,
					"kind", core.ErrorKind(res.Err),
					"error", res.Err)
			} else {
				e.logger.Debug("rule finished",
					"rule", rule.Name,
					"output", rule.Output,
					"status", res.Status,
					"duration", res.Duration)
			}
			return nil
		})
	}

	_ = g.Wait()
	report.Duration = time.Since(report.Started)
	return report, nil
}

func (e *Engine) assemble(ctx context.Context, rule core.Rule) (string, int, error) {
	e.logger.Debug("rule started", "rule", rule.Name, "output", rule.Output)

	plan, err := e.plan(ctx, rule)
	if err != nil {
		return "", 0, err
	}
	return merge.Assemble(plan.Groups, e.opts), len(plan.Sources()), nil
}

func (e *Engine) buildRule(ctx context.Context, rule core.Rule) core.RuleResult {
	res := core.RuleResult{Rule: rule.Name, Output: rule.Output}

	text, n, err := e.assemble(ctx, rule)
	if err != nil {
		res.Status, res.Err = core.StatusFailed, err
		return res
	}

	if err := e.repo.Write(ctx, rule.Output, []byte(text)); err != nil {
		res.Status, res.Err = core.StatusFailed, &core.WriteError{Rule: rule.Name, Path: rule.Output, Err: err}
		return res
	}

	res.Status, res.Documents, res.Bytes = core.StatusOK, n, len(text)
	return res
}

func (e *Engine) checkRule(ctx context.Context, rule core.Rule) core.RuleResult {
	res := core.RuleResult{Rule: rule.Name, Output: rule.Output}

	text, n, err := e.assemble(ctx, rule)
	if err != nil {
		res.Status, res.Err = core.StatusFailed, err
		return res
	}
	res.Documents, res.Bytes = n, len(text)

	current, err := e.repo.Read(ctx, rule.Output)
	switch {
	case errors.Is(err, core.ErrNotFound):
		res.Status = core.StatusStale
		res.Err = fmt.Errorf("%w: %s has not been built", core.ErrStale, rule.Output)
	case err != nil:
		res.Status, res.Err = core.StatusFailed, err
	case current.Content != text:
		res.Status = core.StatusStale
		res.Err = fmt.Errorf("%w: %s differs from its sources", core.ErrStale, rule.Output)
	default:
		res.Status = core.StatusUpToDate
	}
	return res
}

// Affected returns the names of rules whose base or include references
// cover p, in manifest order. p is relative to the manifest root.
func (e *Engine) Affected(p string) []string {
	target := filepath.ToSlash(filepath.Clean(p))

	var names []string
	for _, rule := range e.manifest.Rules {
		if references(rule, target) {
			names = append(names, rule.Name)
		}
	}
	return names
}

func references(rule core.Rule, target string) bool {
	refs := append([]string(nil), rule.BaseFiles...)
	for _, inc := range rule.IncludeFiles {
		refs = append(refs, inc.Path)
	}

	for _, ref := range refs {
		ref = filepath.ToSlash(filepath.Clean(ref))
		if merge.IsPattern(ref) {
			if ok, _ := doublestar.Match(ref, target); ok {
				return true
			}
			continue
		}
		if ref == target {
			return true
		}
	}
	return false
}
