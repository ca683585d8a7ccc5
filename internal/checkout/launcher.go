package checkout

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

// Launcher opens the hand-off URL outside the process.
type Launcher interface {
	Open(ctx context.Context, url string) error
}

type LauncherFunc func(ctx context.Context, url string) error

func (f LauncherFunc) Open(ctx context.Context, url string) error {
	return f(ctx, url)
}

// SystemLauncher opens URLs with the desktop's default handler.
type SystemLauncher struct {
	GOOS string
}

func (l SystemLauncher) command(url string) (string, []string) {
	goos := l.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	default:
		return "xdg-open", []string{url}
	}
}

func (l SystemLauncher) Open(ctx context.Context, url string) error {
	name, args := l.command(url)
	if err := exec.CommandContext(ctx, name, args...).Start(); err != nil {
		return fmt.Errorf("launch %s: %w", name, err)
	}
	return nil
}
