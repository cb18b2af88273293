package executor

import (
	"bytes"
	gocontext "context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remake-build/remake/pkg/builders"
	"github.com/remake-build/remake/pkg/context"
	"github.com/remake-build/remake/pkg/errors"
	"github.com/remake-build/remake/pkg/graph"
	"github.com/remake-build/remake/pkg/paths"
	"github.com/remake-build/remake/pkg/rules"
)

func resolve(t *testing.T, stack *context.Stack, goal string, opts graph.Options) []graph.Entry {
	t.Helper()
	entries, err := graph.Resolve(stack, []paths.Node{paths.File(goal)}, opts)
	require.NoError(t, err)
	return entries
}

func TestBuildChain(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	mid := filepath.Join(dir, "mid")
	out := filepath.Join(dir, "out")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0644))

	stack := context.NewStack()
	copyBuilder := builders.New("cp $< $@")
	r1, err := rules.New(copyBuilder, []paths.Node{paths.File(mid)}, []paths.Node{paths.File(src)})
	require.NoError(t, err)
	r2, err := rules.New(copyBuilder, []paths.Node{paths.File(out)}, []paths.Node{paths.File(mid)})
	require.NoError(t, err)
	stack.Current().AddRule(r1)
	stack.Current().AddRule(r2)

	entries := resolve(t, stack, out, graph.Options{})
	exec := New(Options{Quiet: true})

	applied, err := exec.Build(gocontext.Background(), entries)
	require.NoError(t, err)
	assert.Len(t, applied, 2)
	assert.FileExists(t, out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	// Everything is up to date now; nothing is applied again.
	applied, err = exec.Build(gocontext.Background(), entries)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestBuildPatternRule(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.src"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.src"), []byte("b"), 0644))

	stack := context.NewStack()
	pattern, err := rules.NewPattern(builders.New("cp $< $@"),
		filepath.Join(dir, "%.dst"), []string{filepath.Join(dir, "%.src")})
	require.NoError(t, err)
	stack.Current().AddPatternRule(pattern)

	goals := []paths.Node{
		paths.File(filepath.Join(dir, "a.dst")),
		paths.File(filepath.Join(dir, "b.dst")),
	}
	entries, err := graph.Resolve(stack, goals, graph.Options{})
	require.NoError(t, err)

	exec := New(Options{Quiet: true})
	_, err = exec.Build(gocontext.Background(), entries)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "a.dst"))
	assert.FileExists(t, filepath.Join(dir, "b.dst"))
}

func TestBuildDryRun(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	out := filepath.Join(dir, "out")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0644))

	stack := context.NewStack()
	r, err := rules.New(builders.New("cp $< $@"), []paths.Node{paths.File(out)}, []paths.Node{paths.File(src)})
	require.NoError(t, err)
	stack.Current().AddRule(r)

	entries := resolve(t, stack, out, graph.Options{DryRun: true})
	exec := New(Options{DryRun: true, Quiet: true})

	applied, err := exec.Build(gocontext.Background(), entries)
	require.NoError(t, err)
	assert.Len(t, applied, 1)
	assert.NoFileExists(t, out)
}

func TestBuildGroundExistsPrintsSkip(t *testing.T) {
	dir := t.TempDir()
	dep := filepath.Join(dir, "dep")
	require.NoError(t, os.WriteFile(dep, []byte("x"), 0644))

	var buf bytes.Buffer
	pterm.DisableColor()
	pterm.SetDefaultOutput(&buf)
	defer func() {
		pterm.SetDefaultOutput(os.Stdout)
		pterm.EnableColor()
	}()

	entries := []graph.Entry{{Targets: []paths.Node{paths.File(dep)}}}
	exec := New(Options{Quiet: true})
	_, err := exec.Build(gocontext.Background(), entries)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "[1/1] [SKIP] dependency "+dep+" already exists")
}

func TestBuildMissingGround(t *testing.T) {
	dir := t.TempDir()
	entries := []graph.Entry{
		{Targets: []paths.Node{paths.File(filepath.Join(dir, "missing"))}},
	}

	exec := New(Options{Quiet: true})
	_, err := exec.Build(gocontext.Background(), entries)
	assert.True(t, errors.IsErrorCode(err, errors.ErrDepMissing))
}

func TestClean(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	out := filepath.Join(dir, "out")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(out, []byte("x"), 0644))

	stack := context.NewStack()
	r, err := rules.New(builders.New("cp $< $@"), []paths.Node{paths.File(out)}, []paths.Node{paths.File(src)})
	require.NoError(t, err)
	stack.Current().AddRule(r)

	entries := resolve(t, stack, out, graph.Options{Clean: true})
	exec := New(Options{Clean: true, Quiet: true})

	require.NoError(t, exec.Clean(gocontext.Background(), entries))
	assert.NoFileExists(t, out)
	// Ground dependencies are never cleaned.
	assert.FileExists(t, src)
}

func TestCleanDryRun(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	require.NoError(t, os.WriteFile(out, []byte("x"), 0644))

	r, err := rules.New(builders.New("touch $@"), []paths.Node{paths.File(out)}, nil)
	require.NoError(t, err)
	entries := []graph.Entry{{Targets: []paths.Node{paths.File(out)}, Rule: r}}

	exec := New(Options{Clean: true, DryRun: true, Quiet: true})
	require.NoError(t, exec.Clean(gocontext.Background(), entries))
	assert.FileExists(t, out)
}
