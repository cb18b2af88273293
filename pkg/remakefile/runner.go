package remakefile

import (
	gocontext "context"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/remake-build/remake/pkg/builders"
	"github.com/remake-build/remake/pkg/context"
	"github.com/remake-build/remake/pkg/errors"
	"github.com/remake-build/remake/pkg/executor"
	"github.com/remake-build/remake/pkg/graph"
	"github.com/remake-build/remake/pkg/logging"
	"github.com/remake-build/remake/pkg/paths"
	"github.com/remake-build/remake/pkg/rules"
)

// Result reports what a run did for one directory.
type Result struct {
	// Context holds the declarations that were registered.
	Context *context.Context
	// Entries is the resolved build order.
	Entries []graph.Entry
	// Applied are the entries whose rules actually ran.
	Applied []graph.Entry
	// Subdirs holds the results of nested remakefile runs.
	Subdirs []*Result
}

// Runner loads remakefiles and drives the resolve/build cycle. A runner
// owns its context stack, so concurrent runners are independent.
type Runner struct {
	stack      *context.Stack
	opts       executor.Options
	configName string
	loading    map[string]bool
	logger     zerolog.Logger
}

// NewRunner creates a runner. configName overrides the default remakefile
// names when non-empty.
func NewRunner(opts executor.Options, configName string) *Runner {
	return &Runner{
		stack:      context.NewStack(),
		opts:       opts,
		configName: configName,
		loading:    make(map[string]bool),
		logger:     logging.GetLogger("remakefile"),
	}
}

// ExecuteFromDirectory loads the remakefile in dir, registers its
// declarations in a new context, recurses into subdirs, and builds (or
// cleans) the goals. goals overrides the file's registered targets when
// non-empty.
func (r *Runner) ExecuteFromDirectory(ctx gocontext.Context, dir string, goals []string) (*Result, error) {
	return r.execute(ctx, dir, goals, r.configName)
}

func (r *Runner) execute(ctx gocontext.Context, dir string, goals []string, configName string) (*Result, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "cannot resolve directory %s", dir)
	}

	c, subResults, err := r.load(ctx, absDir, configName, true)
	if err != nil {
		return nil, err
	}
	defer r.stack.Pop()

	goalNodes := c.Targets()
	if len(goals) > 0 {
		goalNodes = parseNodes(absDir, goals)
	}

	result := &Result{Context: c, Subdirs: subResults}
	if len(goalNodes) == 0 {
		r.logger.Info().Str("dir", absDir).Msg("No targets registered, nothing to do")
		return result, nil
	}

	entries, err := graph.Resolve(r.stack, goalNodes, graph.Options{
		DryRun: r.opts.DryRun,
		Clean:  r.opts.Clean || r.opts.Rebuild,
	})
	if err != nil {
		return nil, err
	}
	result.Entries = entries

	exec := executor.New(r.opts)
	switch {
	case r.opts.Rebuild:
		if err := exec.Clean(ctx, entries); err != nil {
			return result, err
		}
		result.Applied, err = exec.Build(ctx, entries)
	case r.opts.Clean:
		err = exec.Clean(ctx, entries)
	default:
		result.Applied, err = exec.Build(ctx, entries)
	}
	return result, err
}

// ResolveFromDirectory loads the remakefile in dir and returns the
// dependency tree of every goal without executing anything.
func (r *Runner) ResolveFromDirectory(ctx gocontext.Context, dir string, goals []string) ([]*graph.Tree, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "cannot resolve directory %s", dir)
	}

	c, _, err := r.load(ctx, absDir, r.configName, false)
	if err != nil {
		return nil, err
	}
	defer r.stack.Pop()

	goalNodes := c.Targets()
	if len(goals) > 0 {
		goalNodes = parseNodes(absDir, goals)
	}

	trees := make([]*graph.Tree, 0, len(goalNodes))
	for _, goal := range goalNodes {
		tree, err := graph.FindBuildPath(r.stack, goal, graph.Options{DryRun: true})
		if err != nil {
			return nil, err
		}
		trees = append(trees, tree)
	}
	return trees, nil
}

// load parses the remakefile of absDir, pushes a context and registers its
// declarations. When runSubdirs is set, subdir remakefiles are executed
// while the new context is on the stack, so they see this directory's
// rules.
func (r *Runner) load(ctx gocontext.Context, absDir, configName string, runSubdirs bool) (*context.Context, []*Result, error) {
	if r.loading[absDir] {
		return nil, nil, errors.Newf(errors.ErrCycle, "remakefile in %s includes itself through subdirs", absDir)
	}
	r.loading[absDir] = true
	defer delete(r.loading, absDir)

	path, err := Find(absDir, configName)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, nil, err
	}

	r.logger.Info().Str("remakefile", path).Msg("Loaded remakefile")

	c := context.New(absDir)
	r.stack.Push(c)
	if err := r.register(c, cfg, absDir); err != nil {
		r.stack.Pop()
		return nil, nil, err
	}

	var subResults []*Result
	if runSubdirs {
		for _, sub := range cfg.Subdirs {
			subResult, err := r.execute(ctx, filepath.Join(absDir, sub), nil, "")
			if err != nil {
				r.stack.Pop()
				return nil, nil, err
			}
			subResults = append(subResults, subResult)
		}
	}

	return c, subResults, nil
}

// register turns the config declarations into context registrations.
func (r *Runner) register(c *context.Context, cfg *Config, dir string) error {
	for name, bc := range cfg.Builders {
		opts := []builders.Option{builders.WithName(name)}
		if bc.Shell {
			opts = append(opts, builders.WithShell())
		}
		if bc.Destructive {
			opts = append(opts, builders.Destructive())
		}
		c.AddBuilder(name, builders.New(bc.Action, opts...))
	}

	for i, rc := range cfg.Rules {
		builder, err := r.lookupBuilder(rc.Builder)
		if err != nil {
			return errors.Wrapf(err, errors.ErrBuilderNotFound, "rule %d", i)
		}
		rule, err := rules.New(builder, parseNodes(dir, rc.Targets), parseNodes(dir, rc.Deps))
		if err != nil {
			return err
		}
		c.AddRule(rule)
	}

	for i, pc := range cfg.Patterns {
		builder, err := r.lookupBuilder(pc.Builder)
		if err != nil {
			return errors.Wrapf(err, errors.ErrBuilderNotFound, "pattern %d", i)
		}

		target := absolutePattern(dir, pc.Target)
		deps := make([]string, len(pc.Deps))
		for j, dep := range pc.Deps {
			deps[j] = absolutePattern(dir, dep)
		}
		exclude := make([]string, len(pc.Exclude))
		for j, e := range pc.Exclude {
			exclude[j] = string(paths.Abs(dir, e))
		}

		pattern, err := rules.NewPattern(builder, target, deps, exclude...)
		if err != nil {
			return err
		}
		c.AddPatternRule(pattern)

		if pc.AllTargets {
			all, err := pattern.AllTargets(dir)
			if err != nil {
				return errors.Wrapf(err, errors.ErrInternal, "pattern %d: glob failed", i)
			}
			for _, t := range all {
				c.AddTargets(t)
			}
		}
	}

	c.AddTargets(parseNodes(dir, cfg.Targets)...)
	return nil
}

// lookupBuilder resolves a builder name against file declarations from the
// innermost context outward, then the built-ins.
func (r *Runner) lookupBuilder(name string) (*builders.Builder, error) {
	contexts := r.stack.All()
	for i := len(contexts) - 1; i >= 0; i-- {
		if b, ok := contexts[i].Builder(name); ok {
			return b, nil
		}
	}
	return builders.Defaults.Get(name)
}

// parseNodes turns config path strings into graph nodes. Names starting
// with @ are virtual, everything else is resolved against dir.
func parseNodes(dir string, names []string) []paths.Node {
	nodes := make([]paths.Node, 0, len(names))
	for _, name := range names {
		if strings.HasPrefix(name, "@") {
			nodes = append(nodes, paths.Virtual(strings.TrimPrefix(name, "@")))
			continue
		}
		nodes = append(nodes, paths.Abs(dir, name))
	}
	return nodes
}

// absolutePattern anchors a relative pattern to dir so it only matches
// files under that directory.
func absolutePattern(dir, pattern string) string {
	if filepath.IsAbs(pattern) {
		return pattern
	}
	return filepath.Join(dir, pattern)
}
