// Package executor walks a flattened dependency list and applies its rules
// in order, or removes their targets in clean mode.
package executor

import (
	"context"
	"os"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"

	"github.com/remake-build/remake/pkg/errors"
	"github.com/remake-build/remake/pkg/graph"
	"github.com/remake-build/remake/pkg/logging"
	"github.com/remake-build/remake/pkg/paths"
	"github.com/remake-build/remake/pkg/rules"
	"github.com/remake-build/remake/pkg/style"
)

// Options configure an executor run.
type Options struct {
	// DryRun announces actions without executing them.
	DryRun bool
	// Clean removes rule-produced targets instead of building.
	Clean bool
	// Rebuild cleans and then builds.
	Rebuild bool
	// Quiet suppresses the progress bar, for non-interactive runs.
	Quiet bool
}

// Executor applies build steps.
type Executor struct {
	opts   Options
	logger zerolog.Logger
}

// New creates an executor.
func New(opts Options) *Executor {
	return &Executor{
		opts:   opts,
		logger: logging.GetLogger("executor"),
	}
}

// Build walks the ordered entries and applies each rule whose targets are
// out of date. Returns the entries whose rules actually ran.
func (e *Executor) Build(ctx context.Context, entries []graph.Entry) ([]graph.Entry, error) {
	progress := e.startProgress(len(entries), "Building")
	defer stopProgress(progress)

	var applied []graph.Entry
	total := len(entries)

	for i, entry := range entries {
		if entry.Rule == nil {
			if err := e.buildGround(entry, i+1, total); err != nil {
				return applied, err
			}
			advance(progress)
			continue
		}

		ran, err := e.buildEntry(ctx, entry, i+1, total)
		if err != nil {
			pterm.Println(style.RenderStatus(style.StatusError, "%s", err))
			return applied, err
		}
		if ran {
			applied = append(applied, entry)
		}
		advance(progress)
	}

	return applied, nil
}

// buildGround handles a leaf of the graph: a dependency no rule produces.
func (e *Executor) buildGround(entry graph.Entry, step, total int) error {
	for _, target := range entry.Targets {
		switch {
		case e.opts.DryRun:
			pterm.Println(style.RenderStep(step, total, style.StatusDryRun, "dependency %s", target))
		case target.Virtual():
			pterm.Println(style.RenderStep(step, total, style.StatusSkip, "virtual dependency %s", target))
		case paths.File(target.String()).Exists():
			pterm.Println(style.RenderStep(step, total, style.StatusSkip, "dependency %s already exists", target))
		default:
			pterm.Println(style.RenderStatus(style.StatusError, "unable to find build path for %s", target))
			return errors.Newf(errors.ErrDepMissing, "ground dependency %s does not exist", target)
		}
	}
	return nil
}

// buildEntry applies the entry's rule. Pattern rules are expanded into a
// concrete rule per target.
func (e *Executor) buildEntry(ctx context.Context, entry graph.Entry, step, total int) (bool, error) {
	concrete, err := e.concreteRules(entry)
	if err != nil {
		return false, err
	}

	ran := false
	for _, rule := range concrete {
		if e.opts.DryRun {
			pterm.Println(style.RenderStep(step, total, style.StatusDryRun, "%s", rule.ActionName()))
			ran = true
			continue
		}

		applied, err := rule.Apply(ctx)
		if err != nil {
			return ran, err
		}
		if applied {
			pterm.Println(style.RenderStep(step, total, style.StatusBuild, "%s", rule.ActionName()))
			ran = true
		} else {
			pterm.Println(style.RenderStep(step, total, style.StatusSkip, "%s up to date", targetList(rule.Targets())))
		}
	}
	return ran, nil
}

// Clean removes the targets of every entry that has a rule. Ground
// dependencies and virtual targets are left alone.
func (e *Executor) Clean(ctx context.Context, entries []graph.Entry) error {
	progress := e.startProgress(len(entries), "Cleaning")
	defer stopProgress(progress)

	total := len(entries)
	for i, entry := range entries {
		if entry.Rule == nil {
			advance(progress)
			continue
		}
		for _, target := range entry.Targets {
			if target.Virtual() {
				continue
			}
			if err := e.cleanTarget(target, i+1, total); err != nil {
				return err
			}
		}
		advance(progress)
	}
	return nil
}

func (e *Executor) cleanTarget(target paths.Node, step, total int) error {
	path := target.String()
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}

	if e.opts.DryRun {
		pterm.Println(style.RenderStep(step, total, style.StatusDryRun, "would clean %s", path))
		return nil
	}

	pterm.Println(style.RenderStep(step, total, style.StatusClean, "cleaning %s", path))
	if info.IsDir() {
		return os.RemoveAll(path)
	}
	return os.Remove(path)
}

// concreteRules returns the rules to apply for an entry: the named rule
// itself, or one expanded rule per target for pattern rules.
func (e *Executor) concreteRules(entry graph.Entry) ([]*rules.Rule, error) {
	switch r := entry.Rule.(type) {
	case *rules.Rule:
		return []*rules.Rule{r}, nil
	case *rules.PatternRule:
		out := make([]*rules.Rule, 0, len(entry.Targets))
		for _, target := range entry.Targets {
			if target.Virtual() {
				return nil, errors.Newf(errors.ErrInternal,
					"pattern rule matched virtual target %s", target)
			}
			expanded, err := r.Expand(paths.File(target.String()))
			if err != nil {
				return nil, err
			}
			out = append(out, expanded)
		}
		return out, nil
	default:
		return nil, errors.Newf(errors.ErrInternal, "unknown rule type %T", entry.Rule)
	}
}

func (e *Executor) startProgress(total int, title string) *pterm.ProgressbarPrinter {
	if e.opts.Quiet || total == 0 {
		return nil
	}
	progress, err := pterm.DefaultProgressbar.WithTotal(total).WithTitle(title).Start()
	if err != nil {
		e.logger.Debug().Err(err).Msg("Progress bar unavailable")
		return nil
	}
	return progress
}

func advance(progress *pterm.ProgressbarPrinter) {
	if progress != nil {
		progress.Increment()
	}
}

func stopProgress(progress *pterm.ProgressbarPrinter) {
	if progress != nil {
		_, _ = progress.Stop()
	}
}

func targetList(targets []paths.Node) string {
	out := ""
	for i, t := range targets {
		if i > 0 {
			out += ", "
		}
		out += t.String()
	}
	return out
}
