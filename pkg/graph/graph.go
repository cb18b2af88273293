// Package graph resolves build goals into a dependency graph and flattens
// it into an ordered, de-duplicated list of build steps.
package graph

import (
	"os"

	"github.com/remake-build/remake/pkg/context"
	"github.com/remake-build/remake/pkg/errors"
	"github.com/remake-build/remake/pkg/logging"
	"github.com/remake-build/remake/pkg/paths"
	"github.com/remake-build/remake/pkg/rules"
)

// Tree is the dependency graph of a single target. A nil Rule marks a
// ground dependency: an existing file, or a virtual node, that no rule
// produces.
type Tree struct {
	Target paths.Node
	Rule   rules.Producer
	Deps   []*Tree
}

// Entry is one step of the flattened build order. Targets sharing the same
// named rule are merged into a single entry.
type Entry struct {
	Targets []paths.Node
	Rule    rules.Producer
}

// Options control how unresolvable targets are treated.
type Options struct {
	// DryRun tolerates missing ground dependencies.
	DryRun bool
	// Clean refuses to resolve a missing ground dependency: cleaning a
	// file nobody can rebuild would lose it forever.
	Clean bool
}

type resolver struct {
	stack    *context.Stack
	opts     Options
	visiting map[string]bool
}

// FindBuildPath recursively constructs the dependency graph for a target.
// Named rules are searched from the innermost context outward, then pattern
// rules; anything left is a ground dependency or an error.
func FindBuildPath(stack *context.Stack, target paths.Node, opts Options) (*Tree, error) {
	r := &resolver{
		stack:    stack,
		opts:     opts,
		visiting: make(map[string]bool),
	}
	return r.find(target)
}

func (r *resolver) find(target paths.Node) (*Tree, error) {
	key := target.String()
	if r.visiting[key] {
		return nil, errors.Newf(errors.ErrCycle,
			"target %s depends on itself", target)
	}
	r.visiting[key] = true
	defer delete(r.visiting, key)

	contexts := r.stack.All()
	for i := len(contexts) - 1; i >= 0; i-- {
		named, patterns := contexts[i].Rules()

		for _, rule := range named {
			if !rule.Match(target) {
				continue
			}
			deps, err := r.findAll(rule.Deps())
			if err != nil {
				return nil, err
			}
			return &Tree{Target: target, Rule: rule, Deps: deps}, nil
		}

		if target.Virtual() {
			continue
		}
		for _, pattern := range patterns {
			depFiles, ok := pattern.Match(target.String())
			if !ok || len(depFiles) == 0 {
				continue
			}
			depNodes := make([]paths.Node, len(depFiles))
			for j, dep := range depFiles {
				depNodes[j] = dep
			}
			deps, err := r.findAll(depNodes)
			if err != nil {
				return nil, err
			}
			return &Tree{Target: target, Rule: pattern, Deps: deps}, nil
		}
	}

	// No rule produces the target: it is a ground dependency.
	if target.Virtual() {
		return &Tree{Target: target}, nil
	}
	if _, err := os.Stat(target.String()); err == nil {
		return &Tree{Target: target}, nil
	}
	if r.opts.Clean {
		return nil, errors.Newf(errors.ErrCleanGround,
			"refusing to clean ground dependency %s which does not exist", target)
	}
	if r.opts.DryRun {
		return &Tree{Target: target}, nil
	}

	logger := logging.GetLogger("graph")
	logger.Error().Str("target", key).Msg("No rule to make target")
	return nil, errors.Newf(errors.ErrNoRule, "no rule to make %s", target)
}

func (r *resolver) findAll(targets []paths.Node) ([]*Tree, error) {
	trees := make([]*Tree, 0, len(targets))
	for _, target := range targets {
		tree, err := r.find(target)
		if err != nil {
			return nil, err
		}
		trees = append(trees, tree)
	}
	return trees, nil
}

// Resolve builds the dependency graph for every goal, flattens it into
// build order and optimizes the resulting list.
func Resolve(stack *context.Stack, goals []paths.Node, opts Options) ([]Entry, error) {
	trees := make([]*Tree, 0, len(goals))
	for _, goal := range goals {
		tree, err := FindBuildPath(stack, goal, opts)
		if err != nil {
			return nil, err
		}
		trees = append(trees, tree)
	}
	return Optimize(Sort(trees)), nil
}

// Sort flattens dependency trees into build order using a reverse level
// order traversal: leaves come first, goals last.
func Sort(trees []*Tree) []Entry {
	var out []Entry

	for i := len(trees) - 1; i >= 0; i-- {
		queue := []*Tree{trees[i]}
		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]
			out = append(out, Entry{Targets: []paths.Node{node.Target}, Rule: node.Rule})
			queue = append(queue, node.Deps...)
		}
	}

	// The traversal visited targets before their dependencies; reverse to
	// obtain build order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Optimize removes duplicate entries and merges targets built by the same
// named rule into a single entry. Pattern rules are never merged since
// they are expanded per target.
func Optimize(entries []Entry) []Entry {
	entries = dropDuplicates(entries)
	return mergeSameRule(entries)
}

// dropDuplicates keeps only the first occurrence of identical entries.
func dropDuplicates(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		dup := false
		for _, kept := range out {
			if sameEntry(kept, e) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, e)
		}
	}
	return out
}

// mergeSameRule merges entries sharing a named rule, placing the merged
// entry at the position of the last occurrence so every dependency is
// still built first.
func mergeSameRule(entries []Entry) []Entry {
	var out []Entry
	merged := make([]bool, len(entries))

	for i := len(entries) - 1; i >= 0; i-- {
		if merged[i] {
			continue
		}
		e := entries[i]

		rule, isNamed := e.Rule.(*rules.Rule)
		if !isNamed || rule == nil {
			out = append(out, e)
			continue
		}

		var targets []paths.Node
		for j := 0; j < i; j++ {
			if merged[j] {
				continue
			}
			if other, ok := entries[j].Rule.(*rules.Rule); ok && other == rule {
				targets = append(targets, entries[j].Targets...)
				merged[j] = true
			}
		}
		targets = append(targets, e.Targets...)
		out = append(out, Entry{Targets: dedupeNodes(targets), Rule: rule})
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func sameEntry(a, b Entry) bool {
	if a.Rule != b.Rule || len(a.Targets) != len(b.Targets) {
		return false
	}
	for i := range a.Targets {
		if a.Targets[i].String() != b.Targets[i].String() {
			return false
		}
	}
	return true
}

func dedupeNodes(nodes []paths.Node) []paths.Node {
	seen := make(map[string]struct{}, len(nodes))
	out := make([]paths.Node, 0, len(nodes))
	for _, n := range nodes {
		if _, dup := seen[n.String()]; dup {
			continue
		}
		seen[n.String()] = struct{}{}
		out = append(out, n)
	}
	return out
}
