package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"prism/internal/compiler"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDiscoverWalksUp(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
[lower]
passes = ["flip-derivatives", "validate-ast"]
rotation = "uniforms"
pre_rotation = true
jobs = 3
output = "out"

[cache]
enabled = true
dir = ".cache"
`)
	nested := filepath.Join(root, "shaders", "ui")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	f, ok, err := Discover(nested)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if !ok {
		t.Fatal("prism.toml not found")
	}
	if f.Root != root {
		t.Fatalf("root = %q, want %q", f.Root, root)
	}
	opts, err := f.Config.Options()
	if err != nil {
		t.Fatal(err)
	}
	want := compiler.OptFlipDerivatives | compiler.OptValidateAST | compiler.OptRotationUniforms | compiler.OptPreRotation
	if opts != want {
		t.Fatalf("options = %s, want %s", opts, want)
	}
	if f.Config.Lower.Jobs != 3 {
		t.Fatalf("jobs = %d", f.Config.Lower.Jobs)
	}
	if f.Config.Lower.Output != filepath.Join(root, "out") {
		t.Fatalf("output = %q", f.Config.Lower.Output)
	}
	if f.Config.Cache.Dir != filepath.Join(root, ".cache") || !f.Config.Cache.Enabled {
		t.Fatalf("cache = %+v", f.Config.Cache)
	}
	if f.Config.Lower.MaxDiagnostics != 100 {
		t.Fatalf("unset keys keep their defaults, got max_diagnostics=%d", f.Config.Lower.MaxDiagnostics)
	}
}

func TestDiscoverWithoutFile(t *testing.T) {
	f, ok, err := Discover(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Skip("a prism.toml exists above the temp directory")
	}
	opts, err := f.Config.Options()
	if err != nil {
		t.Fatal(err)
	}
	if opts != compiler.OptPixelLocalStorage|compiler.OptFlipDerivatives {
		t.Fatalf("default options = %s", opts)
	}
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]struct {
		body string
		want string
	}{
		"syntax":        {"[lower", "failed to parse TOML"},
		"missing":       {"[lower]\njobs = 2\n", "missing [lower].passes"},
		"unknown key":   {"[lower]\npasses = []\nspeed = 11\n", "unknown keys: lower.speed"},
		"unknown pass":  {"[lower]\npasses = [\"inline\"]\n", "[lower].passes"},
		"rotation":      {"[lower]\npasses = []\nrotation = \"matrix\"\n", "[lower].rotation"},
		"negative jobs": {"[lower]\npasses = []\njobs = -1\n", "[lower].jobs"},
		"empty cache":   {"[cache]\ndir = \"  \"\n", "[cache].dir is empty"},
		"trace level":   {"[trace]\nlevel = \"loud\"\n", "[trace].level"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tc.body)
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}
