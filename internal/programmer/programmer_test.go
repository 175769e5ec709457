package programmer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"github.com/hwtools/bitload/internal/config"
	"github.com/hwtools/bitload/internal/runner"
)

// writeStub creates a fake toolchain executable that echoes the given
// lines and exits 0.
func writeStub(t *testing.T, lines ...string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	for _, l := range lines {
		fmt.Fprintf(&b, "echo \"%s\"\n", l)
	}
	path := filepath.Join(t.TempDir(), "vivado")
	if err := os.WriteFile(path, []byte(b.String()), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func newProgrammer(t *testing.T, vivado string) *Programmer {
	t.Helper()
	return &Programmer{
		Config: &config.Config{
			TmpDir:    t.TempDir(),
			Vivado:    vivado,
			RawScript: "open_hw_manager\nprogram_hw_devices -file %file%\n",
		},
		Runner: &runner.Runner{},
	}
}

func TestLoad_Success(t *testing.T) {
	stubLines := []string{
		"****** Vivado v2023.2 (64-bit)",
		"source load_bitstream.tcl",
		"program_hw_devices: done",
	}
	p := newProgrammer(t, writeStub(t, stubLines...))

	if err := p.Load(context.Background(), "/tmp/demo.bit"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	// The generated script carries the substituted bitstream path.
	tcl, err := os.ReadFile(filepath.Join(p.Config.TmpDir, ScriptFile))
	if err != nil {
		t.Fatalf("reading script artifact: %v", err)
	}
	if !strings.Contains(string(tcl), "program_hw_devices -file /tmp/demo.bit") {
		t.Errorf("script artifact missing substituted path:\n%s", tcl)
	}

	// The result artifact carries the toolchain output verbatim.
	result, err := os.ReadFile(filepath.Join(p.Config.TmpDir, ResultFile))
	if err != nil {
		t.Fatalf("reading result artifact: %v", err)
	}
	want := strings.Join(stubLines, "\n") + "\n"
	if string(result) != want {
		t.Errorf("result artifact = %q, want %q", result, want)
	}
}

func TestLoad_ToolchainError(t *testing.T) {
	p := newProgrammer(t, writeStub(t,
		"****** Vivado v2023.2 (64-bit)",
		"source load_bitstream.tcl",
		"ERROR: [Labtools 27-3165] End of startup status: LOW",
		"program_hw_devices: failed",
	))

	err := p.Load(context.Background(), "/tmp/demo.bit")
	var te ToolchainError
	if !errors.As(err, &te) {
		t.Fatalf("Load = %v, want ToolchainError", err)
	}
	if te.Line != "ERROR: [Labtools 27-3165] End of startup status: LOW" {
		t.Errorf("Line = %q", te.Line)
	}
}

func TestLoad_MarkerMustBeFirstToken(t *testing.T) {
	p := newProgrammer(t, writeStub(t,
		"****** Vivado v2023.2 (64-bit)",
		"WARNING: ERROR: seen in log",
		"  ERROR: indented, not a marker",
		"program_hw_devices: done",
	))

	if err := p.Load(context.Background(), "/tmp/demo.bit"); err != nil {
		t.Fatalf("Load = %v, want success", err)
	}
}

func TestLoad_LaunchError_MissingBinary(t *testing.T) {
	p := newProgrammer(t, "/nonexistent/path/to/vivado")

	err := p.Load(context.Background(), "/tmp/demo.bit")
	var le LaunchError
	if !errors.As(err, &le) {
		t.Fatalf("Load = %v, want LaunchError", err)
	}
	if le.Tool != "/nonexistent/path/to/vivado" {
		t.Errorf("Tool = %q", le.Tool)
	}
}

func TestLoad_ShortOutputIsLaunchError(t *testing.T) {
	// Even an ERROR: line cannot be a toolchain failure when the output
	// is too short to have come from a started toolchain.
	p := newProgrammer(t, writeStub(t, "ERROR: something"))

	err := p.Load(context.Background(), "/tmp/demo.bit")
	var le LaunchError
	if !errors.As(err, &le) {
		t.Fatalf("Load = %v, want LaunchError", err)
	}
	var te ToolchainError
	if errors.As(err, &te) {
		t.Fatal("short output must never be classified as ToolchainError")
	}
}

func TestLoad_WriteError(t *testing.T) {
	p := newProgrammer(t, writeStub(t, "a", "b", "c"))
	// A directory squatting on the script path makes the write fail.
	if err := os.Mkdir(filepath.Join(p.Config.TmpDir, ScriptFile), 0o755); err != nil {
		t.Fatal(err)
	}

	err := p.Load(context.Background(), "/tmp/demo.bit")
	var we WriteError
	if !errors.As(err, &we) {
		t.Fatalf("Load = %v, want WriteError", err)
	}
}

func TestLoad_Busy(t *testing.T) {
	p := newProgrammer(t, writeStub(t, "a", "b", "c"))

	other := flock.New(filepath.Join(p.Config.TmpDir, LockFile))
	held, err := other.TryLock()
	if err != nil || !held {
		t.Fatalf("acquiring competing lock: held=%v err=%v", held, err)
	}
	defer other.Unlock()

	loadErr := p.Load(context.Background(), "/tmp/demo.bit")
	var be BusyError
	if !errors.As(loadErr, &be) {
		t.Fatalf("Load = %v, want BusyError", loadErr)
	}
}

func TestLoad_BusyPrecedesScriptValidation(t *testing.T) {
	// The lock is step one: a competing run wins over every later
	// failure, even an empty script.
	p := newProgrammer(t, writeStub(t, "a", "b", "c"))
	p.Config.RawScript = ""

	other := flock.New(filepath.Join(p.Config.TmpDir, LockFile))
	held, err := other.TryLock()
	if err != nil || !held {
		t.Fatalf("acquiring competing lock: held=%v err=%v", held, err)
	}
	defer other.Unlock()

	loadErr := p.Load(context.Background(), "/tmp/demo.bit")
	var be BusyError
	if !errors.As(loadErr, &be) {
		t.Fatalf("Load = %v, want BusyError", loadErr)
	}
}

func TestLoad_EmptyScript(t *testing.T) {
	p := newProgrammer(t, writeStub(t, "a", "b", "c"))
	p.Config.RawScript = ""

	if err := p.Load(context.Background(), "/tmp/demo.bit"); err == nil {
		t.Fatal("expected error for empty programming script")
	}
}

func TestFirstToken(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"ERROR: timing failed", "ERROR:"},
		{"ERROR:", "ERROR:"},
		{"WARNING: ERROR: nested", "WARNING:"},
		{" ERROR: leading space", ""},
		{"\tERROR: leading tab", ""},
		{"", ""},
		{"single", "single"},
	}
	for _, tt := range tests {
		if got := firstToken(tt.line); got != tt.want {
			t.Errorf("firstToken(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}
