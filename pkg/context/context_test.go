package context

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remake-build/remake/pkg/builders"
	"github.com/remake-build/remake/pkg/paths"
	"github.com/remake-build/remake/pkg/rules"
)

func TestContextTargets(t *testing.T) {
	c := New("/tmp")

	c.AddTargets(paths.File("/tmp/a"), paths.File("/tmp/b"))
	c.AddTargets(paths.File("/tmp/a"), paths.Virtual("all"))

	targets := c.Targets()
	require.Len(t, targets, 3)
	assert.Equal(t, "/tmp/a", targets[0].String())
	assert.Equal(t, "/tmp/b", targets[1].String())
	assert.Equal(t, "all", targets[2].String())

	c.ClearTargets()
	assert.Empty(t, c.Targets())
}

func TestContextRules(t *testing.T) {
	c := New("/tmp")
	b := builders.New("touch $@")

	r, err := rules.New(b, []paths.Node{paths.File("/tmp/a")}, nil)
	require.NoError(t, err)
	p, err := rules.NewPattern(b, "%.o", []string{"%.c"})
	require.NoError(t, err)

	c.AddRule(r)
	c.AddPatternRule(p)

	named, patterns := c.Rules()
	assert.Len(t, named, 1)
	assert.Len(t, patterns, 1)

	c.ClearRules()
	named, patterns = c.Rules()
	assert.Empty(t, named)
	assert.Empty(t, patterns)
}

func TestContextBuilders(t *testing.T) {
	c := New("/tmp")
	b := builders.New("touch $@", builders.WithName("mk"))

	c.AddBuilder("mk", b)
	got, ok := c.Builder("mk")
	assert.True(t, ok)
	assert.Equal(t, b, got)

	_, ok = c.Builder("other")
	assert.False(t, ok)
}

func TestStack(t *testing.T) {
	s := NewStack()
	root := s.Current()
	require.NotNil(t, root)

	child := New("/tmp/sub")
	s.Push(child)
	assert.Equal(t, child, s.Current())
	assert.Len(t, s.All(), 2)

	assert.Equal(t, child, s.Pop())
	assert.Equal(t, root, s.Current())

	// The root context is never popped.
	assert.Nil(t, s.Pop())
	assert.Equal(t, root, s.Current())
}
