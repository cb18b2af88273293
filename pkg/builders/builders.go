// Package builders defines the Builder type referenced by rules: an action
// template (shell-style command with automatic variables) or a Go function.
// It also ships a registry of built-in builders addressable by name from
// remakefiles.
package builders

import (
	"context"
	"os"
	"os/exec"
	"strings"

	shellwords "github.com/mattn/go-shellwords"

	"github.com/remake-build/remake/pkg/errors"
	"github.com/remake-build/remake/pkg/logging"
)

// ActionFunc is a native build action. deps and targets are concrete path
// or virtual-name strings, in declaration order.
type ActionFunc func(ctx context.Context, deps, targets []string) error

// Builder executes the action of a rule. A builder holds either a command
// template or an ActionFunc, never both.
type Builder struct {
	name        string
	action      string
	fn          ActionFunc
	shell       bool
	destructive bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithName sets the name under which the builder reports itself.
func WithName(name string) Option {
	return func(b *Builder) { b.name = name }
}

// WithShell makes command actions run through "sh -c" instead of being
// split into argv and executed directly. Needed for actions using pipes,
// redirections or globbing.
func WithShell() Option {
	return func(b *Builder) { b.shell = true }
}

// Destructive marks the builder as removing its targets instead of
// creating them. Rules verify target absence, not presence, after running.
func Destructive() Option {
	return func(b *Builder) { b.destructive = true }
}

// New creates a builder from a command template. The template may use the
// automatic variables $@ (all targets), $< (first dependency) and
// $^ (all dependencies).
func New(action string, opts ...Option) *Builder {
	b := &Builder{action: action}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewFunc creates a builder from a native Go action.
func NewFunc(fn ActionFunc, opts ...Option) *Builder {
	b := &Builder{fn: fn}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the registered name of the builder, or "" for anonymous ones.
func (b *Builder) Name() string { return b.name }

// IsDestructive reports whether the builder removes its targets.
func (b *Builder) IsDestructive() bool { return b.destructive }

// IsFunc reports whether the builder runs a native Go action.
func (b *Builder) IsFunc() bool { return b.fn != nil }

// ExpandAction substitutes the automatic variables into the command
// template. Returns "" for native builders.
func (b *Builder) ExpandAction(deps, targets []string) string {
	if b.fn != nil {
		return ""
	}
	action := b.action
	action = strings.ReplaceAll(action, "$@", strings.Join(targets, " "))
	action = strings.ReplaceAll(action, "$^", strings.Join(deps, " "))
	if len(deps) > 0 {
		action = strings.ReplaceAll(action, "$<", deps[0])
	} else {
		action = strings.ReplaceAll(action, "$<", "")
	}
	return action
}

// ActionName returns a human-readable description of the action for the
// given deps and targets.
func (b *Builder) ActionName(deps, targets []string) string {
	if b.fn != nil {
		name := b.name
		if name == "" {
			name = "func"
		}
		return name + "([" + strings.Join(deps, ", ") + "], [" + strings.Join(targets, ", ") + "])"
	}
	return b.ExpandAction(deps, targets)
}

// Execute runs the builder's action with the given concrete deps and
// targets.
func (b *Builder) Execute(ctx context.Context, deps, targets []string) error {
	if b.fn != nil {
		return b.fn(ctx, deps, targets)
	}

	command := b.ExpandAction(deps, targets)
	logger := logging.GetLogger("builders")
	logger.Debug().Str("command", command).Msg("Executing action")

	var cmd *exec.Cmd
	if b.shell {
		cmd = exec.CommandContext(ctx, "sh", "-c", command)
	} else {
		argv, err := shellwords.Parse(command)
		if err != nil {
			return errors.Wrapf(err, errors.ErrBuilderInvalid, "cannot parse action %q", command)
		}
		if len(argv) == 0 {
			return errors.Newf(errors.ErrBuilderInvalid, "action %q expands to an empty command", b.action)
		}
		cmd = exec.CommandContext(ctx, argv[0], argv[1:]...)
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, errors.ErrBuilderExecute, "action %q failed", command)
	}
	return nil
}
