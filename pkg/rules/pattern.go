package rules

import (
	"github.com/remake-build/remake/pkg/builders"
	"github.com/remake-build/remake/pkg/errors"
	"github.com/remake-build/remake/pkg/paths"
)

// PatternRule is a rule template: target and dependency patterns each
// containing one % wildcard (for example %.c to %.o). It is instantiated
// into a concrete Rule when a matching target is requested.
type PatternRule struct {
	target  paths.Pattern
	deps    []paths.Pattern
	builder *builders.Builder
	exclude map[string]struct{}
}

// NewPattern creates a pattern rule. Every pattern must contain exactly
// one % wildcard. Paths listed in exclude never match the rule, whether
// they appear as a target or as an instantiated dependency.
func NewPattern(builder *builders.Builder, target string, deps []string, exclude ...string) (*PatternRule, error) {
	if builder == nil {
		return nil, errors.New(errors.ErrRuleInvalid, "pattern rule has no builder")
	}

	targetPat, err := paths.NewPattern(target)
	if err != nil {
		return nil, err
	}

	depPats := make([]paths.Pattern, 0, len(deps))
	for _, dep := range deps {
		pat, err := paths.NewPattern(dep)
		if err != nil {
			return nil, err
		}
		depPats = append(depPats, pat)
	}

	excluded := make(map[string]struct{}, len(exclude))
	for _, e := range exclude {
		excluded[e] = struct{}{}
	}

	return &PatternRule{
		target:  targetPat,
		deps:    depPats,
		builder: builder,
		exclude: excluded,
	}, nil
}

// TargetPattern returns the target pattern of this rule.
func (p *PatternRule) TargetPattern() paths.Pattern { return p.target }

// Builder returns the builder executing this rule's action.
func (p *PatternRule) Builder() *builders.Builder { return p.builder }

// Match reports whether path matches the target pattern and is not
// excluded, returning the instantiated concrete dependencies.
func (p *PatternRule) Match(path string) ([]paths.File, bool) {
	if _, excluded := p.exclude[path]; excluded {
		return nil, false
	}
	stem, ok := p.target.Match(path)
	if !ok {
		return nil, false
	}

	deps := make([]paths.File, 0, len(p.deps))
	for _, dep := range p.deps {
		instantiated := dep.Instantiate(stem)
		if _, excluded := p.exclude[instantiated]; excluded {
			return nil, false
		}
		deps = append(deps, paths.File(instantiated))
	}
	return deps, true
}

// Expand instantiates the pattern rule into a concrete Rule for the given
// target. The target must match the rule's target pattern.
func (p *PatternRule) Expand(target paths.File) (*Rule, error) {
	deps, ok := p.Match(string(target))
	if !ok {
		return nil, errors.Newf(errors.ErrRuleInvalid,
			"target %s does not match pattern %s", target, p.target)
	}

	depNodes := make([]paths.Node, len(deps))
	for i, dep := range deps {
		depNodes[i] = dep
	}
	return New(p.builder, []paths.Node{target}, depNodes)
}

// AllTargets globs the tree rooted at root for files matching the
// dependency patterns and returns the corresponding targets. This is how a
// remakefile registers "every target this pattern can produce" as goals.
func (p *PatternRule) AllTargets(root string) ([]paths.File, error) {
	var targets []paths.File
	seen := make(map[paths.File]struct{})

	for _, dep := range p.deps {
		files, err := dep.Glob(root)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if _, excluded := p.exclude[string(f)]; excluded {
				continue
			}
			stem, ok := dep.Match(string(f))
			if !ok {
				continue
			}
			target := paths.File(p.target.Instantiate(stem))
			if _, dup := seen[target]; dup {
				continue
			}
			seen[target] = struct{}{}
			targets = append(targets, target)
		}
	}
	return targets, nil
}
