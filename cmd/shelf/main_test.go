package main

import (
	"bufio"
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// shelfBin is the binary built once by TestMain.
var shelfBin string

func TestMain(m *testing.M) {
	tmpDir, err := os.MkdirTemp("", "shelf-test-*")
	if err != nil {
		os.Exit(1)
	}
	shelfBin = filepath.Join(tmpDir, "shelf")

	build := exec.Command("go", "build", "-o", shelfBin, ".")
	if output, err := build.CombinedOutput(); err != nil {
		os.Stderr.Write(output)
		os.RemoveAll(tmpDir)
		os.Exit(1)
	}

	code := m.Run()
	os.RemoveAll(tmpDir)
	os.Exit(code)
}

// testEnv is an isolated config and data directory shared by several
// shelf processes.
type testEnv struct {
	t       *testing.T
	config  string
	dataDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		t:       t,
		config:  filepath.Join(dir, "config"),
		dataDir: filepath.Join(dir, "data"),
	}
	if err := os.MkdirAll(env.config, 0o755); err != nil {
		t.Fatalf("create config dir: %v", err)
	}
	content := "store: sqlite\ndata_dir: " + env.dataDir + "\npoll_interval: 50ms\n"
	if err := os.WriteFile(filepath.Join(env.config, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

type cmdResult struct {
	stdout   string
	stderr   string
	exitCode int
}

func (e *testEnv) command(args ...string) *exec.Cmd {
	all := append([]string{"--config-dir", e.config, "--data-dir", e.dataDir}, args...)
	return exec.Command(shelfBin, all...)
}

func (e *testEnv) run(args ...string) cmdResult {
	e.t.Helper()
	cmd := e.command(args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	code := 0
	if err := cmd.Run(); err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			e.t.Fatalf("run shelf %v: %v", args, err)
		}
		code = exitErr.ExitCode()
	}
	return cmdResult{stdout: stdout.String(), stderr: stderr.String(), exitCode: code}
}

func (e *testEnv) mustRun(args ...string) cmdResult {
	e.t.Helper()
	r := e.run(args...)
	if r.exitCode != 0 {
		e.t.Fatalf("shelf %v exited %d:\nstdout: %s\nstderr: %s", args, r.exitCode, r.stdout, r.stderr)
	}
	return r
}

func TestPersistentValueSharedAcrossProcesses(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("init")
	env.mustRun("set", "theme", "dark")
	env.mustRun("set", "count", "42")

	if got := strings.TrimSpace(env.mustRun("get", "theme").stdout); got != "dark" {
		t.Errorf("get theme = %q, want dark", got)
	}
	out := env.mustRun("--json", "get", "count").stdout
	if !strings.Contains(out, `"kind": "number"`) || !strings.Contains(out, `"value": 42`) {
		t.Errorf("get --json count = %s", out)
	}
}

func TestSessionValueDoesNotOutliveProcess(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("set", "--backend", "session", "draft", "x")

	r := env.run("get", "--backend", "session", "draft")
	if r.exitCode != 1 {
		t.Fatalf("exit code = %d, want 1 (stdout %q)", r.exitCode, r.stdout)
	}
	if !strings.Contains(r.stderr, "not found") {
		t.Errorf("stderr = %q, want not found", r.stderr)
	}
}

func TestUnknownBackendIsUserError(t *testing.T) {
	env := newTestEnv(t)
	if r := env.run("get", "--backend", "indexeddb", "k"); r.exitCode != 1 {
		t.Errorf("exit code = %d, want 1", r.exitCode)
	}
}

func TestWatchSeesWriteFromAnotherProcess(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("init")

	watcher := env.command("watch", "status", "-n", "1", "--interval", "50ms")
	stdout, err := watcher.StdoutPipe()
	if err != nil {
		t.Fatalf("stdout pipe: %v", err)
	}
	if err := watcher.Start(); err != nil {
		t.Fatalf("start watch: %v", err)
	}
	t.Cleanup(func() { _ = watcher.Process.Kill() })

	lines := make(chan string, 4)
	go func() {
		sc := bufio.NewScanner(stdout)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	next := func() string {
		t.Helper()
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatal("watch exited early")
			}
			return line
		case <-time.After(10 * time.Second):
			t.Fatal("timed out waiting for watch output")
		}
		return ""
	}

	if got := next(); got != "<absent>" {
		t.Fatalf("initial line = %q, want <absent>", got)
	}
	env.mustRun("set", "status", "ready")
	if got := next(); got != "ready" {
		t.Fatalf("change line = %q, want ready", got)
	}
	if err := watcher.Wait(); err != nil {
		t.Errorf("watch exit: %v", err)
	}
}
