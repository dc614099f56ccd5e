package browser

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

// Opener opens a URL in a browser tab.
type Opener interface {
	Open(ctx context.Context, url string) error
}

// ExecOpener launches the platform's default browser.
type ExecOpener struct{}

// NewExecOpener creates an ExecOpener.
func NewExecOpener() *ExecOpener {
	return &ExecOpener{}
}

// Open launches the default browser at the given URL. The browser process is
// not tracked; tab lifecycle is handled by the close-signal protocol.
func (o *ExecOpener) Open(ctx context.Context, url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", url)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.CommandContext(ctx, "xdg-open", url)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	// Release the process; the browser outlives the command.
	go func() { _ = cmd.Wait() }()
	return nil
}

// FakeOpener records opened URLs for tests. The optional Err is returned
// from every Open call.
type FakeOpener struct {
	URLs []string
	Err  error
}

// Open records the URL.
func (o *FakeOpener) Open(_ context.Context, url string) error {
	if o.Err != nil {
		return o.Err
	}
	o.URLs = append(o.URLs, url)
	return nil
}
