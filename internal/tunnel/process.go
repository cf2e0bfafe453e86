package tunnel

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"gallery/internal/models"
)

var (
	cloudflareURL = regexp.MustCompile(`https://[a-zA-Z0-9-]+\.trycloudflare\.com`)
	pinggyURL     = regexp.MustCompile(`https://[a-zA-Z0-9.-]+\.pinggy\.(?:link|online)`)
)

func cloudflareArgs(port int) []string {
	return []string{"tunnel", "--url", "http://localhost:" + strconv.Itoa(port)}
}

func pinggyArgs(port int, token string) []string {
	return []string{
		"-p", "443",
		fmt.Sprintf("-R0:localhost:%d", port),
		"-o", "StrictHostKeyChecking=no",
		"-o", "ServerAliveInterval=30",
		strings.TrimSpace(token) + "@a.pinggy.io",
	}
}

// FindCloudflared looks for cloudflared on PATH, then in common install
// locations and next to the server executable.
func FindCloudflared() string {
	name := "cloudflared"
	if runtime.GOOS == "windows" {
		name = "cloudflared.exe"
	}
	if p, err := exec.LookPath(name); err == nil {
		return p
	}
	var candidates []string
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), name))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".cloudflared", name))
	}
	switch runtime.GOOS {
	case "windows":
		candidates = append(candidates,
			filepath.Join(os.Getenv("ProgramFiles"), "cloudflared", name),
			filepath.Join(os.Getenv("ProgramFiles(x86)"), "cloudflared", name))
	case "darwin":
		candidates = append(candidates, "/opt/homebrew/bin/"+name, "/usr/local/bin/"+name)
	default:
		candidates = append(candidates, "/usr/local/bin/"+name, "/usr/bin/"+name)
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

func findSSH() (string, error) {
	return exec.LookPath("ssh")
}

// processTunnel is a tunnel backed by a child process.
type processTunnel struct {
	provider string
	port     int
	cmd      *exec.Cmd
	started  time.Time
	pattern  *regexp.Regexp
	onURL    func()

	mu      sync.Mutex
	url     string
	lastOut string
	done    chan struct{}
	exitErr error
	urlSeen chan struct{}
}

func (m *Manager) startProcess(provider string, port int, exe string, args []string, pattern *regexp.Regexp) (active, error) {
	cmd := exec.Command(exe, args...)
	models.SetProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	m.logf("Starting %s tunnel: %s %s", provider, exe, redact(provider, args))
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", filepath.Base(exe), err)
	}

	t := &processTunnel{
		provider: provider,
		port:     port,
		cmd:      cmd,
		started:  time.Now().UTC(),
		pattern:  pattern,
		done:     make(chan struct{}),
		urlSeen:  make(chan struct{}),
	}
	t.onURL = func() { m.publish(t.status()) }

	capture := m.openCapture()
	var readers sync.WaitGroup
	readers.Add(2)
	go t.scan(stdout, capture, &readers)
	go t.scan(stderr, capture, &readers)

	go func() {
		readers.Wait()
		err := cmd.Wait()
		if capture != nil {
			_ = capture.Close()
		}
		t.mu.Lock()
		t.exitErr = err
		t.mu.Unlock()
		close(t.done)
		if err != nil {
			m.logf("Tunnel %s process exited: %v", provider, err)
		} else {
			m.logf("Tunnel %s process exited", provider)
		}
		m.clearIf(t)
	}()

	grace := time.NewTimer(m.StartGrace)
	defer grace.Stop()
	select {
	case <-t.done:
		return nil, t.exitError()
	case <-t.urlSeen:
	case <-grace.C:
	}
	return t, nil
}

// clearIf drops t as the active tunnel after its process ended on its own.
func (m *Manager) clearIf(t active) {
	m.mu.Lock()
	cleared := m.current == t
	if cleared {
		m.current = nil
	}
	m.mu.Unlock()
	if cleared {
		st := t.status()
		m.publish(models.TunnelStatus{Status: models.TunnelStatusStopped, Provider: st.Provider, Message: "Tunnel process exited."})
	}
}

// openCapture opens the tunnel output log; nil when unavailable.
func (m *Manager) openCapture() *syncWriter {
	if m.logPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(m.logPath), 0o755); err != nil {
		return nil
	}
	f, err := os.OpenFile(m.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		m.logf("Unable to open tunnel log %s: %v", m.logPath, err)
		return nil
	}
	return &syncWriter{f: f}
}

type syncWriter struct {
	mu sync.Mutex
	f  *os.File
}

func (w *syncWriter) writeLine(line string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, _ = w.f.WriteString(time.Now().Format("2006-01-02 15:04:05") + ": " + line + "\n")
}

func (w *syncWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

func (t *processTunnel) scan(r io.Reader, capture *syncWriter, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if capture != nil {
			capture.writeLine(line)
		}
		found := ""
		if t.pattern != nil {
			found = t.pattern.FindString(line)
		}
		t.mu.Lock()
		if strings.TrimSpace(line) != "" {
			t.lastOut = strings.TrimSpace(line)
		}
		first := found != "" && t.url == ""
		if first {
			t.url = found
		}
		t.mu.Unlock()
		if first {
			close(t.urlSeen)
			if t.onURL != nil {
				t.onURL()
			}
		}
	}
}

func (t *processTunnel) exitError() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	msg := fmt.Sprintf("%s exited before the tunnel was established", filepath.Base(t.cmd.Path))
	if t.lastOut != "" {
		msg += ": " + t.lastOut
	} else if t.exitErr != nil {
		msg += ": " + t.exitErr.Error()
	}
	return errors.New(msg)
}

func (t *processTunnel) pid() int {
	if t.cmd == nil || t.cmd.Process == nil {
		return 0
	}
	return t.cmd.Process.Pid
}

func (t *processTunnel) status() models.TunnelStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	started := t.started
	st := models.TunnelStatus{
		Status:    models.TunnelStatusRunning,
		Provider:  t.provider,
		URL:       t.url,
		LocalPort: t.port,
		StartedAt: &started,
	}
	if t.url == "" {
		st.Message = "Waiting for public URL."
	}
	return st
}

// alive reports whether the process is still running. The exit watcher is
// authoritative; the PID check catches processes reaped outside of Wait.
func (t *processTunnel) alive() bool {
	select {
	case <-t.done:
		return false
	default:
	}
	pid := t.pid()
	if pid <= 0 {
		return false
	}
	exists, err := process.PidExists(int32(pid))
	if err != nil {
		return true
	}
	return exists
}

func (t *processTunnel) stop(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	default:
	}
	if err := models.TerminateProcessGroup(t.pid()); err != nil && t.cmd.Process != nil {
		_ = t.cmd.Process.Kill()
	}
	wait := time.NewTimer(5 * time.Second)
	defer wait.Stop()
	select {
	case <-t.done:
		return nil
	case <-wait.C:
	case <-ctx.Done():
	}
	if t.cmd.Process != nil {
		if err := t.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return err
		}
	}
	<-t.done
	return nil
}

// redact hides the Pinggy token in logged command lines.
func redact(provider string, args []string) string {
	out := make([]string, len(args))
	copy(out, args)
	if provider == models.TunnelProviderPinggy && len(out) > 0 {
		last := out[len(out)-1]
		if at := strings.Index(last, "@"); at > 0 {
			out[len(out)-1] = "****" + last[at:]
		}
	}
	return strings.Join(out, " ")
}
