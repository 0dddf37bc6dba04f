package eval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/creack/pty"
)

// drainTimeout bounds how long output is read after the command exits; a
// background child holding the tty would otherwise keep the copy open.
const drainTimeout = 200 * time.Millisecond

// RunShell runs command under a pty, streams its output to out and returns
// the exit code.
func RunShell(ctx context.Context, shell, command string, out io.Writer) (int, error) {
	if strings.TrimSpace(command) == "" {
		return -1, fmt.Errorf("empty command")
	}
	cmd := exec.CommandContext(ctx, shell, "-c", command)
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return -1, fmt.Errorf("failed to start pty: %w", err)
	}
	defer ptmx.Close()

	done := make(chan struct{})
	go func() {
		_, _ = io.Copy(out, ptmx)
		close(done)
	}()

	err = cmd.Wait()
	select {
	case <-done:
	case <-time.After(drainTimeout):
	}
	ptmx.Close()
	<-done

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("command failed: %w", err)
	}
	return 0, nil
}
