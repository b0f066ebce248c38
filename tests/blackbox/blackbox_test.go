package blackbox

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"gradio/internal/fakeapp"
)

// findFreePort picks an available TCP port on localhost.
func findFreePort(t *testing.T) (int, func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	cleanup := func(){ _ = ln.Close() }
	var port int
	fmt.Sscanf(portStr, "%d", &port)
	return port, cleanup
}

func projectRootFromThisFile(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	// this file: <root>/tests/blackbox/blackbox_test.go
	bbDir := filepath.Dir(thisFile)
	root := filepath.Dir(filepath.Dir(bbDir))
	return root
}

func buildBinary(t *testing.T) string {
	t.Helper()
	root := projectRootFromThisFile(t)
	outDir := t.TempDir()
	binPath := filepath.Join(outDir, "gr")
	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/gr")
	cmd.Dir = root
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("go build failed: %v\n%s", err, string(out))
	}
	return binPath
}

func startApp(t *testing.T, opts fakeapp.Options) *fakeapp.Server {
	t.Helper()
	s := fakeapp.Start(opts)
	t.Cleanup(s.Close)
	return s
}

// command prepares the binary with a clean client environment.
func command(bin string, args ...string) (*exec.Cmd, *bytes.Buffer, *bytes.Buffer) {
	cmd := exec.Command(bin, args...)
	cmd.Env = append(os.Environ(), "HF_TOKEN=", "GR_CONFIG=", "GR_LOG_LEVEL=", "NO_COLOR=1")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	return cmd, &stdout, &stderr
}

func exitCode(err error) int {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	if err != nil {
		return -1
	}
	return 0
}

func TestBlackbox_RunAndList(t *testing.T) {
	bin := buildBinary(t)
	s := startApp(t, fakeapp.Demo())

	cmd, out, errOut := command(bin, "run", s.URL(), "predict", "World")
	if err := cmd.Run(); err != nil {
		t.Fatalf("run: %v stderr=%s", err, errOut.String())
	}
	if got := out.String(); got != "greeting: \"Hello World!!\"\n" {
		t.Fatalf("run stdout=%q", got)
	}

	cmd, out, errOut = command(bin, "ls", s.URL())
	if err := cmd.Run(); err != nil {
		t.Fatalf("ls: %v stderr=%s", err, errOut.String())
	}
	for _, want := range []string{"API Spec for " + s.URL(), "\t/predict\n", "\t/add\n", "Returns:"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("ls stdout missing %q:\n%s", want, out.String())
		}
	}
}

func TestBlackbox_SavesFiles(t *testing.T) {
	bin := buildBinary(t)
	s := startApp(t, fakeapp.Demo())
	dir := t.TempDir()
	src := filepath.Join(dir, "in.txt")
	if err := os.WriteFile(src, []byte("hello file"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	outDir := filepath.Join(dir, "out")

	cmd, out, errOut := command(bin, "-o", outDir, "run", s.URL(), "file_info", src)
	if err := cmd.Run(); err != nil {
		t.Fatalf("run: %v stderr=%s", err, errOut.String())
	}
	want := filepath.Join(outDir, "copy.txt")
	if !strings.Contains(out.String(), "copy: "+want) {
		t.Fatalf("stdout=%q", out.String())
	}
	b, err := os.ReadFile(want)
	if err != nil || string(b) != "hello file" {
		t.Fatalf("saved=%q err=%v", b, err)
	}
}

func TestBlackbox_FailuresExitNonZero(t *testing.T) {
	bin := buildBinary(t)
	s := startApp(t, fakeapp.Demo())

	cases := [][]string{
		{"run", s.URL(), "missing"},
		{"run", s.URL(), "fail"},
		{"run", s.URL(), "add"},
		{"run"},
	}
	for _, args := range cases {
		cmd, _, errOut := command(bin, args...)
		err := cmd.Run()
		if code := exitCode(err); code != 1 {
			t.Fatalf("%v: exit=%d err=%v", args, code, err)
		}
		if !strings.Contains(errOut.String(), "Error:") {
			t.Fatalf("%v: stderr=%q", args, errOut.String())
		}
	}
}

func TestBlackbox_MetricsWhileRunning(t *testing.T) {
	bin := buildBinary(t)
	opts := fakeapp.Demo()
	opts.Handlers[0] = func(j fakeapp.Job) []fakeapp.Frame {
		done := fakeapp.Completed("slow")
		done.Delay = 1500 * time.Millisecond
		return []fakeapp.Frame{fakeapp.Starts(), done}
	}
	s := startApp(t, opts)
	port, release := findFreePort(t)
	release()
	metricsURL := fmt.Sprintf("http://127.0.0.1:%d/metrics", port)

	cmd, out, errOut := command(bin, "--metrics-addr", fmt.Sprintf("127.0.0.1:%d", port), "run", s.URL(), "predict", "x")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func(){ _ = cmd.Process.Kill() })

	deadline := time.Now().Add(5 * time.Second)
	var body []byte
	for {
		resp, err := http.Get(metricsURL)
		if err == nil {
			body, _ = io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK && bytes.Contains(body, []byte(`gradio_client_requests_total{endpoint="queue/join"`)) {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("metrics never served; last body=%q", body)
		}
		time.Sleep(25 * time.Millisecond)
	}

	if err := cmd.Wait(); err != nil {
		t.Fatalf("wait: %v stderr=%s", err, errOut.String())
	}
	if out.String() != "greeting: \"slow\"\n" {
		t.Fatalf("stdout=%q", out.String())
	}
}
