package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"gallery/internal/config"
	"gallery/internal/utils"

	"github.com/gin-gonic/gin"
)

// ErrNoFolderDialog reports that no graphical folder picker can be shown.
var ErrNoFolderDialog = errors.New("Server environment does not support graphical folder browser.")

// FolderPicker opens a native directory chooser. An empty path with a nil
// error means the user cancelled.
type FolderPicker func(ctx context.Context) (string, error)

// BrowseHandlers serves the folder pickers used when adding categories.
type BrowseHandlers struct {
	config *config.Store
	log    *utils.Logger

	// Pick opens the native dialog; replaced in tests.
	Pick FolderPicker
	// InDocker reports whether the server runs in a container.
	InDocker func() bool
}

func NewBrowseHandlers(cfg *config.Store, logger *utils.Logger) *BrowseHandlers {
	return &BrowseHandlers{config: cfg, log: logger, Pick: NativeFolderPicker, InDocker: RunningInDocker}
}

func (h *BrowseHandlers) logf(format string, args ...interface{}) {
	if h.log != nil {
		h.log.Write(fmt.Sprintf(format, args...))
	}
}

// RunningInDocker checks the usual container markers.
func RunningInDocker() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return strings.EqualFold(os.Getenv("DOCKER_ENV"), "true")
}

// BrowseFolders opens the native folder dialog on the server machine.
func (h *BrowseHandlers) BrowseFolders(c *gin.Context) {
	if h.InDocker != nil && h.InDocker() {
		c.JSON(http.StatusNotImplemented, gin.H{
			"error":   "Folder browser not available in Docker environment",
			"message": "To add media directories in Docker, mount volumes in docker-compose.yml",
			"docker":  true,
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Minute)
	defer cancel()
	path, err := h.Pick(ctx)
	if err != nil {
		if errors.Is(err, ErrNoFolderDialog) {
			c.JSON(http.StatusNotImplemented, gin.H{"error": ErrNoFolderDialog.Error()})
			return
		}
		h.logf("Folder browser failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open folder browser: " + err.Error()})
		return
	}
	if path == "" {
		c.JSON(http.StatusOK, gin.H{"path": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path})
}

type dialogCommand struct {
	name string
	args []string
}

func dialogCommands() []dialogCommand {
	switch runtime.GOOS {
	case "windows":
		script := "Add-Type -AssemblyName System.Windows.Forms;" +
			"$d = New-Object System.Windows.Forms.FolderBrowserDialog;" +
			"$d.Description = 'Select Media Folder';" +
			"if ($d.ShowDialog() -eq 'OK') { Write-Output $d.SelectedPath }"
		return []dialogCommand{{name: "powershell", args: []string{"-NoProfile", "-STA", "-Command", script}}}
	case "darwin":
		return []dialogCommand{{name: "osascript", args: []string{"-e", `POSIX path of (choose folder with prompt "Select Media Folder")`}}}
	default:
		if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
			return nil
		}
		return []dialogCommand{
			{name: "zenity", args: []string{"--file-selection", "--directory", "--title=Select Media Folder"}},
			{name: "kdialog", args: []string{"--getexistingdirectory", ".", "--title", "Select Media Folder"}},
		}
	}
}

// NativeFolderPicker runs the first available platform dialog helper.
func NativeFolderPicker(ctx context.Context) (string, error) {
	for _, dc := range dialogCommands() {
		exe, err := exec.LookPath(dc.name)
		if err != nil {
			continue
		}
		out, err := exec.CommandContext(ctx, exe, dc.args...).Output()
		if err != nil {
			var exitErr *exec.ExitError
			// zenity, kdialog and osascript exit non-zero on cancel.
			if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
				return "", nil
			}
			return "", err
		}
		selected := strings.TrimSpace(string(out))
		if trimmed := strings.TrimRight(selected, "/\\"); trimmed != "" {
			selected = trimmed
		}
		return selected, nil
	}
	return "", ErrNoFolderDialog
}
