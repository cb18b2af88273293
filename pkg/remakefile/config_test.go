package remakefile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remake-build/remake/pkg/errors"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "ReMakeFile.toml", `
targets = ["main", "@docs"]
subdirs = ["lib"]

[builders.compile]
action = "cc -c $^ -o $@"

[builders.bundle]
action = "tar cf $@ $^"
shell = true

[[rules]]
targets = ["main"]
deps = ["main.c"]
builder = "compile"

[[patterns]]
target = "%.o"
deps = ["%.c"]
builder = "compile"
exclude = ["skip.c"]
all_targets = false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"main", "@docs"}, cfg.Targets)
	assert.Equal(t, []string{"lib"}, cfg.Subdirs)
	assert.Len(t, cfg.Builders, 2)
	assert.Equal(t, "cc -c $^ -o $@", cfg.Builders["compile"].Action)
	assert.True(t, cfg.Builders["bundle"].Shell)
	require.Len(t, cfg.Rules, 1)
	assert.Equal(t, "compile", cfg.Rules[0].Builder)
	require.Len(t, cfg.Patterns, 1)
	assert.Equal(t, "%.o", cfg.Patterns[0].Target)
	assert.Equal(t, []string{"skip.c"}, cfg.Patterns[0].Exclude)
	assert.False(t, cfg.Patterns[0].AllTargets)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "ReMakeFile.yaml", `
targets: [site]
builders:
  render:
    action: "pandoc $< -o $@"
patterns:
  - target: "%.html"
    deps: ["%.md"]
    builder: render
    all_targets: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"site"}, cfg.Targets)
	require.Len(t, cfg.Patterns, 1)
	assert.True(t, cfg.Patterns[0].AllTargets)
	assert.Equal(t, "pandoc $< -o $@", cfg.Builders["render"].Action)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "ReMakeFile.toml", `
targets = ["main"]
`)
	t.Setenv("REMAKE_TARGETS", "alpha beta")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, cfg.Targets)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "builder without action",
			content: `
[builders.empty]
shell = true
`,
		},
		{
			name: "rule without targets",
			content: `
[[rules]]
deps = ["a"]
builder = "copy"
`,
		},
		{
			name: "rule without builder",
			content: `
[[rules]]
targets = ["a"]
`,
		},
		{
			name: "pattern without deps",
			content: `
[[patterns]]
target = "%.o"
builder = "copy"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), "ReMakeFile.toml", tt.content)
			_, err := Load(path)
			assert.True(t, errors.IsErrorCode(err, errors.ErrRemakefileValid))
		})
	}
}

func TestLoadParseError(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "ReMakeFile.toml", "targets = [unterminated")
	_, err := Load(path)
	assert.True(t, errors.IsErrorCode(err, errors.ErrRemakefileParse))
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "ReMakeFile.json", "{}")
	_, err := Load(path)
	assert.True(t, errors.IsErrorCode(err, errors.ErrRemakefileLoad))
}

func TestFind(t *testing.T) {
	t.Run("probes default names in order", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "ReMakeFile.yaml", "targets: []")
		writeConfig(t, dir, "ReMakeFile.toml", "targets = []")

		path, err := Find(dir, "")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "ReMakeFile.toml"), path)
	})

	t.Run("explicit name", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "build.toml", "targets = []")

		path, err := Find(dir, "build.toml")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "build.toml"), path)
	})

	t.Run("explicit name missing", func(t *testing.T) {
		_, err := Find(t.TempDir(), "nope.toml")
		assert.True(t, errors.IsErrorCode(err, errors.ErrRemakefileLoad))
	})

	t.Run("no remakefile", func(t *testing.T) {
		_, err := Find(t.TempDir(), "")
		assert.True(t, errors.IsErrorCode(err, errors.ErrRemakefileLoad))
	})
}
