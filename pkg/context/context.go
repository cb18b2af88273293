// Package context tracks the declarations of a remakefile scope: the rules,
// pattern rules and goal targets registered while a directory's remakefile
// is being processed. Scopes nest through a stack, so a sub-remakefile sees
// the rules of its parents.
package context

import (
	"github.com/remake-build/remake/pkg/builders"
	"github.com/remake-build/remake/pkg/paths"
	"github.com/remake-build/remake/pkg/rules"
)

// Context holds everything declared by one remakefile.
type Context struct {
	dir          string
	builders     map[string]*builders.Builder
	namedRules   []*rules.Rule
	patternRules []*rules.PatternRule
	targets      []paths.Node
}

// New creates a context for the given directory.
func New(dir string) *Context {
	return &Context{
		dir:      dir,
		builders: make(map[string]*builders.Builder),
	}
}

// Dir returns the directory this context was created for.
func (c *Context) Dir() string { return c.dir }

// AddRule registers a named rule.
func (c *Context) AddRule(r *rules.Rule) {
	c.namedRules = append(c.namedRules, r)
}

// AddPatternRule registers a pattern rule.
func (c *Context) AddPatternRule(p *rules.PatternRule) {
	c.patternRules = append(c.patternRules, p)
}

// Rules returns the named rules and pattern rules of this context.
func (c *Context) Rules() ([]*rules.Rule, []*rules.PatternRule) {
	return c.namedRules, c.patternRules
}

// ClearRules removes all registered rules.
func (c *Context) ClearRules() {
	c.namedRules = nil
	c.patternRules = nil
}

// AddTargets registers build goals, skipping duplicates.
func (c *Context) AddTargets(nodes ...paths.Node) {
	for _, node := range nodes {
		dup := false
		for _, existing := range c.targets {
			if existing.String() == node.String() {
				dup = true
				break
			}
		}
		if !dup {
			c.targets = append(c.targets, node)
		}
	}
}

// Targets returns the registered build goals.
func (c *Context) Targets() []paths.Node { return c.targets }

// ClearTargets removes all registered goals.
func (c *Context) ClearTargets() { c.targets = nil }

// AddBuilder registers a builder declared by this context's remakefile.
func (c *Context) AddBuilder(name string, b *builders.Builder) {
	c.builders[name] = b
}

// Builder resolves a builder name against this context's declarations.
func (c *Context) Builder(name string) (*builders.Builder, bool) {
	b, ok := c.builders[name]
	return b, ok
}

// Stack is a stack of contexts. The bottom context is always present and
// represents the root scope.
type Stack struct {
	contexts []*Context
}

// NewStack creates a stack seeded with a root context.
func NewStack() *Stack {
	return &Stack{contexts: []*Context{New("")}}
}

// Push adds a context on top of the stack.
func (s *Stack) Push(c *Context) {
	s.contexts = append(s.contexts, c)
}

// Pop removes and returns the top context. The root context is never
// popped.
func (s *Stack) Pop() *Context {
	if len(s.contexts) <= 1 {
		return nil
	}
	top := s.contexts[len(s.contexts)-1]
	s.contexts = s.contexts[:len(s.contexts)-1]
	return top
}

// Current returns the top context.
func (s *Stack) Current() *Context {
	return s.contexts[len(s.contexts)-1]
}

// All returns the contexts from oldest (root) to newest (current).
func (s *Stack) All() []*Context {
	return s.contexts
}
