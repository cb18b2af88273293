// Package rules implements build rules: the binding of dependencies to
// targets through a builder. Named rules map concrete paths; pattern rules
// are templates with a % wildcard that are instantiated lazily when the
// dependency graph is resolved.
package rules

import (
	"context"

	"github.com/remake-build/remake/pkg/builders"
	"github.com/remake-build/remake/pkg/errors"
	"github.com/remake-build/remake/pkg/logging"
	"github.com/remake-build/remake/pkg/paths"
)

// Producer is anything the dependency graph can attach to a target: a
// named Rule or a PatternRule.
type Producer interface {
	Builder() *builders.Builder
}

// Rule binds concrete dependencies to concrete targets through a builder.
type Rule struct {
	targets []paths.Node
	deps    []paths.Node
	builder *builders.Builder
}

// New creates a rule. At least one target and a builder are required.
func New(builder *builders.Builder, targets, deps []paths.Node) (*Rule, error) {
	if builder == nil {
		return nil, errors.New(errors.ErrRuleInvalid, "rule has no builder")
	}
	if len(targets) == 0 {
		return nil, errors.New(errors.ErrRuleInvalid, "rule has no targets")
	}
	return &Rule{
		targets: targets,
		deps:    deps,
		builder: builder,
	}, nil
}

// Targets returns the targets produced by this rule.
func (r *Rule) Targets() []paths.Node { return r.targets }

// Deps returns the dependencies of this rule.
func (r *Rule) Deps() []paths.Node { return r.deps }

// Builder returns the builder executing this rule's action.
func (r *Rule) Builder() *builders.Builder { return r.builder }

// Match reports whether the rule produces the given node.
func (r *Rule) Match(node paths.Node) bool {
	for _, target := range r.targets {
		if target.String() == node.String() {
			return true
		}
	}
	return false
}

// ActionName returns a human-readable description of the rule's action.
func (r *Rule) ActionName() string {
	return r.builder.ActionName(nodeStrings(r.deps), nodeStrings(r.targets))
}

// Apply runs the rule's action if any target is out of date. It verifies
// that dependencies exist beforehand, and that targets were created (or,
// for destructive builders, destroyed) afterwards. Returns true when the
// action actually ran.
func (r *Rule) Apply(ctx context.Context) (bool, error) {
	stale := false
	for _, target := range r.targets {
		if paths.ShouldRebuild(target, r.deps) {
			stale = true
			break
		}
	}
	if !stale {
		return false, nil
	}

	for _, dep := range r.deps {
		if dep.Virtual() {
			continue
		}
		if !paths.File(dep.String()).Exists() {
			return false, errors.Newf(errors.ErrDepMissing,
				"dependency %s does not exist to make %s", dep, r.targets)
		}
	}

	logger := logging.GetLogger("rules")
	logger.Debug().Str("action", r.ActionName()).Msg("Applying rule")

	if err := r.builder.Execute(ctx, nodeStrings(r.deps), nodeStrings(r.targets)); err != nil {
		return false, err
	}

	for _, target := range r.targets {
		if target.Virtual() {
			continue
		}
		exists := paths.File(target.String()).Exists()
		if r.builder.IsDestructive() && exists {
			return false, errors.Newf(errors.ErrTargetNotDestroyed,
				"target %s not destroyed by rule %q", target, r.ActionName())
		}
		if !r.builder.IsDestructive() && !exists {
			return false, errors.Newf(errors.ErrTargetNotCreated,
				"target %s not created by rule %q", target, r.ActionName())
		}
	}

	return true, nil
}

func nodeStrings(nodes []paths.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.String()
	}
	return out
}
