package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chainopt/chainopt/pkg/errors"
	"github.com/chainopt/chainopt/pkg/lp/glpk"
)

func example(name string) string {
	return filepath.Join("..", "..", "examples", name)
}

// run executes the CLI with args and returns what it printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv(redisEnv, "")

	var out bytes.Buffer
	c := New(io.Discard, LogInfo)
	c.SetOutput(&out)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, ".cache", appName); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestCacheDirXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if want := filepath.Join("/tmp/xdg", appName); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		format, output string
		want           string
		wantErr        bool
	}{
		{"", "", formatDOT, false},
		{"", "net.svg", formatSVG, false},
		{"", "net.gv", formatDOT, false},
		{"", "net.PDF", formatPDF, false},
		{"svg", "", formatSVG, false},
		{"png", "", "", true},
		{"png", "net.png", formatPNG, false},
		{"jpeg", "net.jpeg", "", true},
	}
	for _, tt := range tests {
		got, err := resolveFormat(tt.format, tt.output)
		if (err != nil) != tt.wantErr {
			t.Errorf("resolveFormat(%q, %q) error = %v, wantErr %v", tt.format, tt.output, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("resolveFormat(%q, %q) = %q, want %q", tt.format, tt.output, got, tt.want)
		}
	}
}

func TestSolveCommand(t *testing.T) {
	out, err := run(t, "solve", "--no-cache", example("steelco.toml"), example("rch.toml"))
	if err != nil {
		t.Fatalf("solve: %v\n%s", err, out)
	}
	for _, want := range []string{"SteelCo", "4569920", "RCH Industries", "30220", "optimal"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "SteelCo") > strings.Index(out, "RCH Industries") {
		t.Error("results should be printed in argument order")
	}
}

func TestSolveCommandArcs(t *testing.T) {
	out, err := run(t, "solve", "--used-arcs", example("steelco.toml"))
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if !strings.Contains(out, "plant1->site3") || !strings.Contains(out, "85200") {
		t.Errorf("arc table missing used arc:\n%s", out)
	}
	if strings.Contains(out, "plant1->site1 ") {
		t.Errorf("idle arc should be hidden with --used-arcs:\n%s", out)
	}
}

func TestSolveCommandOpenLocations(t *testing.T) {
	out, err := run(t, "solve", "--no-cache", example("warehouses.yaml"))
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if !strings.Contains(out, "open [0 1]") {
		t.Errorf("open locations not printed:\n%s", out)
	}
}

func TestSolveCommandMetrics(t *testing.T) {
	metrics := filepath.Join(t.TempDir(), "chainopt.prom")
	if _, err := run(t, "solve", "--metrics-out", metrics, example("steelco.toml")); err != nil {
		t.Fatalf("solve: %v", err)
	}
	data, err := os.ReadFile(metrics)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	for _, want := range []string{"chainopt_solves_total", "chainopt_cache_requests_total"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("metrics missing %s:\n%s", want, data)
		}
	}
}

func TestSolveCommandErrors(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(bad, []byte("name = \"x\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "solve", "--no-cache", bad, example("steelco.toml"))
	if err == nil {
		t.Fatal("expected an error for the invalid scenario")
	}
	if !strings.Contains(out, "4569920") {
		t.Errorf("valid scenarios should still be solved:\n%s", out)
	}

	if _, err := run(t, "solve", "--solver", "cplex", example("steelco.toml")); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("unknown solver error = %v", err)
	}
}

func TestSolveCommandGLPKMissing(t *testing.T) {
	if _, err := exec.LookPath(glpk.DefaultBinary); err == nil {
		t.Skip("glpsol installed")
	}
	_, err := run(t, "solve", "--solver", "glpk", example("steelco.toml"))
	if !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("error = %v, want UNSUPPORTED", err)
	}
}

func TestExportCommand(t *testing.T) {
	out, err := run(t, "export", example("steelco.toml"))
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	for _, want := range []string{"NAME", "ROWS", "COLUMNS", "RHS", "ENDATA"} {
		if !strings.Contains(out, want) {
			t.Errorf("MPS missing %s section:\n%s", want, out)
		}
	}

	path := filepath.Join(t.TempDir(), "model.mps")
	if _, err := run(t, "export", "-o", path, example("rch.toml")); err != nil {
		t.Fatalf("export: %v", err)
	}
	if data, err := os.ReadFile(path); err != nil || !bytes.Contains(data, []byte("ENDATA")) {
		t.Errorf("exported file incomplete: %v", err)
	}
}

func TestRenderCommand(t *testing.T) {
	out, err := run(t, "render", example("rch.toml"))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(out, `digraph "RCH Industries"`) {
		t.Errorf("expected DOT output, got:\n%s", out)
	}

	out, err = run(t, "render", "--solve", "--no-cache", example("steelco.toml"))
	if err != nil {
		t.Fatalf("render --solve: %v", err)
	}
	if !strings.Contains(out, `label="85200 @ 11"`) {
		t.Errorf("solved flows missing from DOT:\n%s", out)
	}
}

func TestCacheClearCommand(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", xdg)

	var out bytes.Buffer
	c := New(io.Discard, LogInfo)
	c.SetOutput(&out)

	for _, args := range [][]string{
		{"solve", example("steelco.toml")},
		{"cache", "clear"},
	} {
		root := c.RootCommand()
		root.SetArgs(args)
		root.SetErr(io.Discard)
		if err := root.ExecuteContext(context.Background()); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
	}
	if !strings.Contains(out.String(), "Cleared 1 cached solutions") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}
