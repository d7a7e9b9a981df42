package notifier

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	ps "github.com/mitchellh/go-ps"

	"github.com/julianstephens/daylog/internal/constants"
)

type mockProcess struct {
	pid        int
	executable string
}

func (m *mockProcess) Pid() int           { return m.pid }
func (m *mockProcess) PPid() int          { return 0 }
func (m *mockProcess) Executable() string { return m.executable }

func testNotifier(t *testing.T, executable string) (*Notifier, string) {
	t.Helper()
	configDir := t.TempDir()
	n := New()
	n.userConfigDir = func() (string, error) { return configDir, nil }
	n.findProcess = func(pid int) (ps.Process, error) {
		if executable == "" {
			return nil, nil
		}
		return &mockProcess{pid: pid, executable: executable}, nil
	}
	n.retryDelay = time.Millisecond
	return n, filepath.Join(configDir, constants.TrayAppIdentifier)
}

func writeLockfile(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, constants.NotifierLockfileName), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestTrayConfigDir(t *testing.T) {
	n, dir := testNotifier(t, "daylog-tray")

	got, err := n.trayConfigDir()
	if err != nil {
		t.Fatal(err)
	}
	if got != dir {
		t.Errorf("trayConfigDir() = %s, want %s", got, dir)
	}

	custom := filepath.Join(t.TempDir(), "locks")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	settings, _ := json.Marshal(map[string]any{"settings": map[string]string{"lockfile_dir": custom}})
	if err := os.WriteFile(filepath.Join(dir, "settings.json"), settings, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = n.trayConfigDir()
	if err != nil {
		t.Fatal(err)
	}
	if got != custom {
		t.Errorf("trayConfigDir() = %s, want %s", got, custom)
	}
}

func TestReadLockfile(t *testing.T) {
	tests := []struct {
		name       string
		content    string // empty means no lockfile
		executable string
		wantErr    string
		wantPort   int
	}{
		{"missing", "", "daylog-tray", "not running", 0},
		{"two parts", "8080|12345", "daylog-tray", "malformed", 0},
		{"empty secret", "8080|12345|", "daylog-tray", "secret", 0},
		{"empty port", "|12345|s3cret", "daylog-tray", "port", 0},
		{"port out of range", "99999|12345|s3cret", "daylog-tray", "range", 0},
		{"bad pid", "8080|abc|s3cret", "daylog-tray", "process ID", 0},
		{"process gone", "8080|12345|s3cret", "", "not running", 0},
		{"wrong executable", "8080|12345|s3cret", "other-app", "is not daylog-tray", 0},
		{"ok", "8080|12345|s3cret\n", "daylog-tray", "", 8080},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, dir := testNotifier(t, tt.executable)
			if tt.content != "" {
				writeLockfile(t, dir, tt.content)
			}
			ep, err := n.readLockfile(filepath.Join(dir, constants.NotifierLockfileName))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("readLockfile() error = %v, want it to mention %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("readLockfile() error = %v", err)
			}
			if ep.port != tt.wantPort || ep.secret != "s3cret" {
				t.Errorf("readLockfile() = %+v", ep)
			}
		})
	}
}

func serverPort(t *testing.T, srv *httptest.Server) int {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatal(err)
	}
	return port
}

func TestNotify(t *testing.T) {
	var calls atomic.Int32
	var failures atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("X-Daylog-Secret") != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var p WebhookPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if failures.Load() > 0 {
			failures.Add(-1)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	port := strconv.Itoa(serverPort(t, srv))

	t.Run("delivers", func(t *testing.T) {
		n, dir := testNotifier(t, "daylog-tray")
		writeLockfile(t, dir, port+"|1|s3cret")
		calls.Store(0)
		if err := n.BreakEnded(time.Now()); err != nil {
			t.Fatalf("BreakEnded() error = %v", err)
		}
		if calls.Load() != 1 {
			t.Errorf("calls = %d, want 1", calls.Load())
		}
	})

	t.Run("retries server errors", func(t *testing.T) {
		n, dir := testNotifier(t, "daylog-tray")
		writeLockfile(t, dir, port+"|1|s3cret")
		calls.Store(0)
		failures.Store(constants.NotifyMaxRetries - 1)
		if err := n.Notify("back to work"); err != nil {
			t.Fatalf("Notify() error = %v", err)
		}
		if got := calls.Load(); got != constants.NotifyMaxRetries {
			t.Errorf("calls = %d, want %d", got, constants.NotifyMaxRetries)
		}
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		n, dir := testNotifier(t, "daylog-tray")
		writeLockfile(t, dir, port+"|1|wrong")
		calls.Store(0)
		if err := n.Notify("back to work"); err == nil {
			t.Error("Notify() expected error for wrong secret")
		}
		if calls.Load() != 1 {
			t.Errorf("calls = %d, want 1", calls.Load())
		}
	})

	t.Run("tray not running", func(t *testing.T) {
		n, _ := testNotifier(t, "daylog-tray")
		if err := n.Notify("x"); !errors.Is(err, ErrTrayNotRunning) {
			t.Errorf("Notify() error = %v, want %v", err, ErrTrayNotRunning)
		}
	})
}
