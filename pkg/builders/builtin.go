package builders

import (
	"context"
	"os"
	"path/filepath"

	"github.com/remake-build/remake/pkg/registry"
)

// Defaults holds the built-in builders addressable by name from
// remakefiles.
var Defaults = registry.New[*Builder]()

func init() {
	builtins := map[string]*Builder{
		// Compilation toolchains.
		"cc":    New("cc -c $^ -o $@", WithName("cc")),
		"gcc":   New("gcc -c $^ -o $@", WithName("gcc")),
		"clang": New("clang -c $^ -o $@", WithName("clang")),
		"link":  New("cc $^ -o $@", WithName("link")),
		"ar":    New("ar rcs $@ $^", WithName("ar")),

		// Document pipelines.
		"md2html":  New("pandoc $^ -o $@", WithName("md2html")),
		"html2pdf": New("google-chrome-stable --headless --disable-gpu --print-to-pdf=$@ $<", WithName("html2pdf")),
		"pdfcrop":  New("pdftk $< cat 1 output $@", WithName("pdfcrop")),

		// File manipulation.
		"copy":  New("cp $^ $@", WithName("copy")),
		"touch": New("touch $@", WithName("touch")),
		"tar":   New("tar -czf $@ $^", WithName("tar")),
		"mkdir": NewFunc(mkdirAction, WithName("mkdir")),
		"remove": NewFunc(removeAction, WithName("remove"),
			Destructive()),
	}
	for name, b := range builtins {
		if err := Defaults.Register(name, b); err != nil {
			panic(err)
		}
	}
}

// mkdirAction creates every target as a directory.
func mkdirAction(_ context.Context, _, targets []string) error {
	for _, target := range targets {
		if err := os.MkdirAll(target, 0755); err != nil {
			return err
		}
	}
	return nil
}

// removeAction deletes every target, files and directories alike.
func removeAction(_ context.Context, _, targets []string) error {
	for _, target := range targets {
		if filepath.Clean(target) == string(filepath.Separator) {
			continue
		}
		if err := os.RemoveAll(target); err != nil {
			return err
		}
	}
	return nil
}
