package craftreport

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

// Viewer opens a written report for the user
type Viewer interface {
	Open(ctx context.Context, path string) error
}

// ViewerFunc adapts a function to the Viewer interface
type ViewerFunc func(ctx context.Context, path string) error

func (f ViewerFunc) Open(ctx context.Context, path string) error {
	return f(ctx, path)
}

// SystemViewer launches the platform's default handler for the document
type SystemViewer struct {
	GOOS string
}

// NewSystemViewer returns a viewer for the running platform
func NewSystemViewer() *SystemViewer {
	return &SystemViewer{GOOS: runtime.GOOS}
}

// Open starts the viewer without waiting for it to exit
func (v *SystemViewer) Open(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, args := viewerCommand(v.GOOS, path)
	// the viewer outlives the run, so it is not bound to ctx
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch %s: %w", name, err)
	}
	return cmd.Process.Release()
}

func viewerCommand(goos, path string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{path}
	case "windows":
		// the empty argument is the window title consumed by start
		return "cmd", []string{"/c", "start", "", path}
	default:
		return "xdg-open", []string{path}
	}
}
