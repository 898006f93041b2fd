package scheduler

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/sandeepkv93/studyd/internal/model"
)

const appName = "studyd"

// DesktopNotifier shows notifications through notify-send on Linux and
// osascript on macOS. Permission means the tool is installed.
type DesktopNotifier struct {
	goos     string
	lookPath func(string) (string, error)
	run      func(name string, args ...string) error

	granted atomic.Bool
	seq     atomic.Uint64
}

func NewDesktopNotifier() *DesktopNotifier {
	return &DesktopNotifier{
		goos:     runtime.GOOS,
		lookPath: exec.LookPath,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

func (d *DesktopNotifier) tool() string {
	switch d.goos {
	case "linux":
		return "notify-send"
	case "darwin":
		return "osascript"
	default:
		return ""
	}
}

func (d *DesktopNotifier) Supported() bool {
	return d.tool() != ""
}

func (d *DesktopNotifier) Permitted() bool {
	return d.granted.Load()
}

func (d *DesktopNotifier) RequestPermission() (Permission, error) {
	tool := d.tool()
	if tool == "" {
		return PermissionUnsupported, &model.PermissionError{Permission: string(PermissionUnsupported)}
	}
	if _, err := d.lookPath(tool); err != nil {
		d.granted.Store(false)
		return PermissionDenied, &model.PermissionError{Permission: string(PermissionDenied)}
	}
	d.granted.Store(true)
	return PermissionGranted, nil
}

func (d *DesktopNotifier) Deliver(n Notification) (string, error) {
	if !d.Permitted() {
		return "", &model.PermissionError{Permission: string(PermissionDenied)}
	}
	var err error
	switch d.goos {
	case "linux":
		err = d.run("notify-send", "--app-name="+appName, n.Title, n.Body)
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(n.Body), escapeAppleScript(n.Title))
		err = d.run("osascript", "-e", script)
	default:
		return "", &model.PermissionError{Permission: string(PermissionUnsupported)}
	}
	if err != nil {
		return "", fmt.Errorf("scheduler: desktop notification: %w", err)
	}
	return fmt.Sprintf("%s#%d", n.Tag, d.seq.Add(1)), nil
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// NoopNotifier never has permission, so every notification goes to the
// in-app fallback.
type NoopNotifier struct{}

func (NoopNotifier) Permitted() bool { return false }

func (NoopNotifier) RequestPermission() (Permission, error) {
	return PermissionUnsupported, &model.PermissionError{Permission: string(PermissionUnsupported)}
}

func (NoopNotifier) Deliver(Notification) (string, error) {
	return "", &model.PermissionError{Permission: string(PermissionUnsupported)}
}
