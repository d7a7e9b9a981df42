// Package notifier tells the daylog tray app that a scheduled break is over.
package notifier

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	ps "github.com/mitchellh/go-ps"

	"github.com/julianstephens/daylog/internal/constants"
	"github.com/julianstephens/daylog/internal/logger"
)

const trayExecutable = "daylog-tray"

// ErrTrayNotRunning means there is nobody to notify. Callers treat it as a
// normal outcome.
var ErrTrayNotRunning = errors.New("daylog-tray is not running")

type Notifier struct {
	userConfigDir func() (string, error)
	findProcess   func(int) (ps.Process, error)
	client        *http.Client
	retryDelay    time.Duration
}

type WebhookPayload struct {
	Text       string `json:"text"`
	DurationMs uint32 `json:"duration_ms"`
}

// trayEndpoint is what the tray app publishes in its lockfile
type trayEndpoint struct {
	port   int
	secret string
}

func New() *Notifier {
	return &Notifier{
		userConfigDir: os.UserConfigDir,
		findProcess:   ps.FindProcess,
		client:        &http.Client{Timeout: 2 * time.Second},
		retryDelay:    constants.NotifyRetryDelay,
	}
}

// BreakEnded announces the automatic resume of a session at endedAt.
func (n *Notifier) BreakEnded(endedAt time.Time) error {
	text := fmt.Sprintf("Break over at %s, tracking resumed", endedAt.Local().Format(constants.TimeFormat))
	return n.Notify(text)
}

// Notify sends text to the tray app. Server errors are retried a few times;
// a missing or stale tray app is reported as ErrTrayNotRunning.
func (n *Notifier) Notify(text string) error {
	dir, err := n.trayConfigDir()
	if err != nil {
		return err
	}
	ep, err := n.readLockfile(filepath.Join(dir, constants.NotifierLockfileName))
	if err != nil {
		return err
	}

	payload := WebhookPayload{Text: text, DurationMs: constants.NotificationDurationMs}
	for attempt := 1; ; attempt++ {
		err = n.send(ep, payload)
		if err == nil || attempt >= constants.NotifyMaxRetries || !retryable(err) {
			return err
		}
		logger.Debug("Retrying tray notification", "attempt", attempt, "error", err)
		time.Sleep(n.retryDelay)
	}
}

// trayConfigDir returns the tray app's config directory, honouring a
// lockfile_dir override in its settings.json.
func (n *Notifier) trayConfigDir() (string, error) {
	configDir, err := n.userConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config dir: %w", err)
	}
	dir := filepath.Join(configDir, constants.TrayAppIdentifier)

	data, err := os.ReadFile(filepath.Join(dir, "settings.json"))
	if err != nil {
		return dir, nil
	}
	var store struct {
		Settings struct {
			LockfileDir string `json:"lockfile_dir"`
		} `json:"settings"`
	}
	if err := json.Unmarshal(data, &store); err != nil {
		logger.Warn("Ignoring unreadable tray settings", "error", err)
		return dir, nil
	}
	if store.Settings.LockfileDir != "" {
		return store.Settings.LockfileDir, nil
	}
	return dir, nil
}

// readLockfile parses "port|pid|secret" and checks the pid still belongs to
// the tray app.
func (n *Notifier) readLockfile(path string) (trayEndpoint, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return trayEndpoint{}, ErrTrayNotRunning
	}

	parts := strings.Split(strings.TrimSpace(string(content)), "|")
	if len(parts) != 3 {
		return trayEndpoint{}, errors.New("lockfile is malformed")
	}
	port, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return trayEndpoint{}, errors.New("invalid port number in lockfile")
	}
	if port < 1 || port > 65535 {
		return trayEndpoint{}, fmt.Errorf("port number %d is outside valid range (1-65535)", port)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return trayEndpoint{}, errors.New("invalid process ID in lockfile")
	}
	secret := strings.TrimSpace(parts[2])
	if secret == "" {
		return trayEndpoint{}, errors.New("secret in lockfile is empty")
	}

	proc, err := n.findProcess(pid)
	if err != nil || proc == nil {
		return trayEndpoint{}, ErrTrayNotRunning
	}
	if !strings.HasPrefix(proc.Executable(), trayExecutable) {
		return trayEndpoint{}, fmt.Errorf("process with PID %d is not %s (is %s)", pid, trayExecutable, proc.Executable())
	}
	return trayEndpoint{port: port, secret: secret}, nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("notification failed with status %d: %s", e.code, e.body)
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500
	}
	return true
}

func (n *Notifier) send(ep trayEndpoint, payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("http://127.0.0.1:%d", ep.port), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Daylog-Secret", ep.secret)

	res, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return &statusError{code: res.StatusCode, body: string(msg)}
}
