package rules

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remake-build/remake/pkg/builders"
	"github.com/remake-build/remake/pkg/errors"
	"github.com/remake-build/remake/pkg/paths"
)

func TestNew(t *testing.T) {
	b := builders.New("touch $@")

	t.Run("valid", func(t *testing.T) {
		r, err := New(b, []paths.Node{paths.File("/tmp/a")}, []paths.Node{paths.File("/tmp/b")})
		require.NoError(t, err)
		assert.Len(t, r.Targets(), 1)
		assert.Len(t, r.Deps(), 1)
	})

	t.Run("no builder", func(t *testing.T) {
		_, err := New(nil, []paths.Node{paths.File("/tmp/a")}, nil)
		assert.True(t, errors.IsErrorCode(err, errors.ErrRuleInvalid))
	})

	t.Run("no targets", func(t *testing.T) {
		_, err := New(b, nil, nil)
		assert.True(t, errors.IsErrorCode(err, errors.ErrRuleInvalid))
	})
}

func TestRuleMatch(t *testing.T) {
	b := builders.New("touch $@")
	r, err := New(b, []paths.Node{paths.File("/tmp/a"), paths.Virtual("all")}, nil)
	require.NoError(t, err)

	assert.True(t, r.Match(paths.File("/tmp/a")))
	assert.True(t, r.Match(paths.Virtual("all")))
	assert.False(t, r.Match(paths.File("/tmp/b")))
}

func TestRuleApply(t *testing.T) {
	dir := t.TempDir()
	dep := filepath.Join(dir, "dep")
	target := filepath.Join(dir, "target")
	require.NoError(t, os.WriteFile(dep, []byte("x"), 0644))

	r, err := New(builders.New("cp $< $@"),
		[]paths.Node{paths.File(target)},
		[]paths.Node{paths.File(dep)})
	require.NoError(t, err)

	applied, err := r.Apply(context.Background())
	require.NoError(t, err)
	assert.True(t, applied)
	assert.FileExists(t, target)

	// Second application is a no-op: the target is newer than the dep.
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(dep, old, old))
	applied, err = r.Apply(context.Background())
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestRuleApplyMissingDep(t *testing.T) {
	dir := t.TempDir()
	r, err := New(builders.New("cp $< $@"),
		[]paths.Node{paths.File(filepath.Join(dir, "target"))},
		[]paths.Node{paths.File(filepath.Join(dir, "missing"))})
	require.NoError(t, err)

	_, err = r.Apply(context.Background())
	assert.True(t, errors.IsErrorCode(err, errors.ErrDepMissing))
}

func TestRuleApplyTargetNotCreated(t *testing.T) {
	dir := t.TempDir()
	r, err := New(builders.New("true"),
		[]paths.Node{paths.File(filepath.Join(dir, "never"))},
		nil)
	require.NoError(t, err)

	_, err = r.Apply(context.Background())
	assert.True(t, errors.IsErrorCode(err, errors.ErrTargetNotCreated))
}

func TestRuleApplyDestructive(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "junk")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0644))

	remove, err := builders.Defaults.Get("remove")
	require.NoError(t, err)
	r, err := New(remove, []paths.Node{paths.File(target)}, nil)
	require.NoError(t, err)

	applied, err := r.Apply(context.Background())
	require.NoError(t, err)
	assert.True(t, applied)
	assert.NoFileExists(t, target)
}

func TestRuleApplyVirtualTarget(t *testing.T) {
	ran := false
	b := builders.NewFunc(func(context.Context, []string, []string) error {
		ran = true
		return nil
	})
	r, err := New(b, []paths.Node{paths.Virtual("all")}, nil)
	require.NoError(t, err)

	// Virtual targets are always stale.
	applied, err := r.Apply(context.Background())
	require.NoError(t, err)
	assert.True(t, applied)
	assert.True(t, ran)
}
