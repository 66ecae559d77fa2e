package install

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/misty-step/foxglove/internal/gateway"
	"github.com/misty-step/foxglove/internal/lib"
	"github.com/misty-step/foxglove/internal/state"
	"github.com/misty-step/foxglove/internal/tool"
)

type fakeRunner struct {
	calls  []lib.RunRequest
	onRun  func(lib.RunRequest)
	errFor string
}

func (f *fakeRunner) Run(_ context.Context, req lib.RunRequest) (lib.RunResult, error) {
	f.calls = append(f.calls, req)
	if f.onRun != nil {
		f.onRun(req)
	}
	if f.errFor != "" && req.Cmd == f.errFor {
		return lib.RunResult{}, fmt.Errorf("%s: exit status 1", req.Cmd)
	}
	return lib.RunResult{Stdout: "1.2.3\n"}, nil
}

type fakeAdapter struct {
	kind      tool.Kind
	installed bool
}

func (f *fakeAdapter) Kind() tool.Kind    { return f.kind }
func (f *fakeAdapter) BinaryName() string { return string(f.kind) }
func (f *fakeAdapter) Detect(tool.Paths) tool.Detection {
	return tool.Detection{Kind: f.kind, Installed: f.installed, Binary: "/usr/local/bin/" + string(f.kind)}
}
func (f *fakeAdapter) Configure(tool.Paths, tool.Plan) ([]state.Change, error) { return nil, nil }
func (f *fakeAdapter) Remove(tool.Paths, []state.Change) error                { return nil }
func (f *fakeAdapter) Routed(tool.Paths, gateway.Gateway, bool) bool          { return false }

func TestInstallRunsVendorScript(t *testing.T) {
	adapter := &fakeAdapter{kind: tool.KindOpenCode}
	runner := &fakeRunner{}
	runner.onRun = func(req lib.RunRequest) {
		if req.Cmd == "bash" {
			adapter.installed = true
		}
	}
	installer := &Installer{Runner: runner, GOOS: "linux"}

	result, err := installer.Install(context.Background(), adapter, tool.Paths{})
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if result.AlreadyInstalled {
		t.Fatal("AlreadyInstalled should be false")
	}
	if result.Version != "1.2.3" {
		t.Fatalf("Version = %q", result.Version)
	}

	if len(runner.calls) != 2 {
		t.Fatalf("calls = %d, want install + version probe", len(runner.calls))
	}
	first := runner.calls[0]
	if first.Cmd != "bash" || !first.Mutating {
		t.Fatalf("install call = %+v", first)
	}
	if !strings.Contains(first.Args[1], "opencode.ai/install") {
		t.Fatalf("install script = %q", first.Args[1])
	}
}

func TestInstallSkipsWhenAlreadyInstalled(t *testing.T) {
	adapter := &fakeAdapter{kind: tool.KindClaude, installed: true}
	runner := &fakeRunner{}
	installer := &Installer{Runner: runner, GOOS: "linux"}

	result, err := installer.Install(context.Background(), adapter, tool.Paths{})
	if err != nil {
		t.Fatal(err)
	}
	if !result.AlreadyInstalled {
		t.Fatal("AlreadyInstalled = false, want true")
	}
	for _, call := range runner.calls {
		if call.Mutating {
			t.Fatalf("unexpected mutating call %+v", call)
		}
	}
}

func TestInstallWindowsUsesPowerShell(t *testing.T) {
	adapter := &fakeAdapter{kind: tool.KindClaude}
	runner := &fakeRunner{}
	runner.onRun = func(req lib.RunRequest) {
		if req.Cmd == "powershell" {
			adapter.installed = true
		}
	}
	installer := &Installer{Runner: runner, GOOS: "windows"}

	if _, err := installer.Install(context.Background(), adapter, tool.Paths{}); err != nil {
		t.Fatal(err)
	}
	first := runner.calls[0]
	if first.Cmd != "powershell" || !strings.Contains(first.Args[2], "install.ps1") {
		t.Fatalf("install call = %+v", first)
	}
}

func TestInstallCodexHasNoScript(t *testing.T) {
	adapter := &fakeAdapter{kind: tool.KindCodex}
	installer := &Installer{Runner: &fakeRunner{}, GOOS: "linux"}

	_, err := installer.Install(context.Background(), adapter, tool.Paths{})
	if err == nil || !strings.Contains(err.Error(), "package manager") {
		t.Fatalf("err = %v, want manual-install hint", err)
	}
}

func TestInstallFailsWhenBinaryStillMissing(t *testing.T) {
	adapter := &fakeAdapter{kind: tool.KindOpenCode}
	installer := &Installer{Runner: &fakeRunner{}, GOOS: "linux"}

	_, err := installer.Install(context.Background(), adapter, tool.Paths{})
	if err == nil || !strings.Contains(err.Error(), "not on PATH") {
		t.Fatalf("err = %v", err)
	}
}

func TestInstallScriptFailure(t *testing.T) {
	adapter := &fakeAdapter{kind: tool.KindOpenCode}
	installer := &Installer{Runner: &fakeRunner{errFor: "bash"}, GOOS: "linux"}

	_, err := installer.Install(context.Background(), adapter, tool.Paths{})
	if err == nil || !strings.Contains(err.Error(), "install opencode") {
		t.Fatalf("err = %v", err)
	}
}
