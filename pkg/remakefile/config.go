// Package remakefile loads declarative ReMakeFile configuration and turns
// it into registered builders, rules and goal targets, then drives the
// resolve/build cycle for a directory tree.
package remakefile

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/remake-build/remake/pkg/errors"
)

// DefaultNames are the file names probed, in order, when no config file is
// given explicitly.
var DefaultNames = []string{"ReMakeFile.toml", "ReMakeFile.yaml", "ReMakeFile.yml", "ReMakeFile"}

// envPrefix scopes environment variable overrides, e.g. REMAKE_TARGETS.
const envPrefix = "REMAKE_"

// Config is the schema of a ReMakeFile.
type Config struct {
	// Builders declares action templates addressable by name, in addition
	// to the built-in ones.
	Builders map[string]BuilderConfig `koanf:"builders"`
	// Rules are explicit dependency-to-target bindings.
	Rules []RuleConfig `koanf:"rules"`
	// Patterns are %-wildcard rule templates.
	Patterns []PatternConfig `koanf:"patterns"`
	// Targets registers build goals. Names starting with @ are virtual.
	Targets []string `koanf:"targets"`
	// Subdirs lists child directories whose remakefiles are executed
	// before this one's targets are resolved.
	Subdirs []string `koanf:"subdirs"`
}

// BuilderConfig declares a builder.
type BuilderConfig struct {
	// Action is the command template; $@, $< and $^ are expanded.
	Action string `koanf:"action"`
	// Shell runs the action through "sh -c".
	Shell bool `koanf:"shell"`
	// Destructive marks a builder that removes its targets.
	Destructive bool `koanf:"destructive"`
}

// RuleConfig declares an explicit rule.
type RuleConfig struct {
	Targets []string `koanf:"targets"`
	Deps    []string `koanf:"deps"`
	Builder string   `koanf:"builder"`
}

// PatternConfig declares a pattern rule.
type PatternConfig struct {
	Target  string   `koanf:"target"`
	Deps    []string `koanf:"deps"`
	Builder string   `koanf:"builder"`
	Exclude []string `koanf:"exclude"`
	// AllTargets registers every target the pattern can currently produce
	// as a build goal.
	AllTargets bool `koanf:"all_targets"`
}

// Load reads a remakefile, applying REMAKE_* environment overrides on top.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	parser, err := parserFor(path)
	if err != nil {
		return nil, err
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, errors.Wrapf(err, errors.ErrRemakefileParse, "failed to parse %s", path)
	}

	// REMAKE_TARGETS="a b" overrides the targets list, and so on.
	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
		if strings.Contains(value, " ") {
			return key, strings.Split(value, " ")
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrRemakefileLoad, "failed to load environment overrides")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrapf(err, errors.ErrRemakefileParse, "invalid remakefile %s", path)
	}

	if err := validate(&cfg, path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Find locates the remakefile in dir. name is used as-is when non-empty;
// otherwise the default names are probed.
func Find(dir, name string) (string, error) {
	if name != "" {
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, name)
		}
		if _, err := os.Stat(path); err != nil {
			return "", errors.Wrapf(err, errors.ErrRemakefileLoad, "remakefile %s not found", path)
		}
		return path, nil
	}

	for _, candidate := range DefaultNames {
		path := filepath.Join(dir, candidate)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", errors.Newf(errors.ErrRemakefileLoad, "no remakefile found in %s", dir)
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", "":
		return toml.Parser(), nil
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	default:
		return nil, errors.Newf(errors.ErrRemakefileLoad, "unsupported remakefile format %q", filepath.Ext(path))
	}
}

func validate(cfg *Config, path string) error {
	for name, b := range cfg.Builders {
		if b.Action == "" {
			return errors.Newf(errors.ErrRemakefileValid,
				"%s: builder %q has no action", path, name)
		}
	}
	for i, r := range cfg.Rules {
		if len(r.Targets) == 0 {
			return errors.Newf(errors.ErrRemakefileValid, "%s: rule %d has no targets", path, i)
		}
		if r.Builder == "" {
			return errors.Newf(errors.ErrRemakefileValid, "%s: rule %d has no builder", path, i)
		}
	}
	for i, p := range cfg.Patterns {
		if p.Target == "" {
			return errors.Newf(errors.ErrRemakefileValid, "%s: pattern %d has no target", path, i)
		}
		if len(p.Deps) == 0 {
			return errors.Newf(errors.ErrRemakefileValid, "%s: pattern %d has no deps", path, i)
		}
		if p.Builder == "" {
			return errors.Newf(errors.ErrRemakefileValid, "%s: pattern %d has no builder", path, i)
		}
	}
	return nil
}
