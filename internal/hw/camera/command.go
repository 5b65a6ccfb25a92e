package camera

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/logic/frame"
)

// CommandSource grabs stills by running an external capture command that
// writes one encoded image (JPEG/PNG) to stdout, for example:
//
//	libcamera-still -n -t 1 -e jpg -o -
//	ffmpeg -loglevel error -f v4l2 -i /dev/video0 -frames:v 1 -f image2pipe -vcodec mjpeg -
type CommandSource struct {
	name     string
	args     []string
	timeout  time.Duration // 0 = wait forever
	lookPath func(string) (string, error)
}

// NewCommandSource creates a source running name with args for every
// still. timeout bounds a single grab; zero disables it.
func NewCommandSource(name string, args []string, timeout time.Duration) *CommandSource {
	return &CommandSource{
		name:     name,
		args:     append([]string(nil), args...),
		timeout:  timeout,
		lookPath: exec.LookPath,
	}
}

// Ready reports whether the capture binary can be found.
func (c *CommandSource) Ready() bool {
	_, err := c.lookPath(c.name)
	return err == nil
}

// StillFrame runs the capture command once and decodes its stdout.
func (c *CommandSource) StillFrame(ctx context.Context) (*frame.Frame, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := newSafeCommand(ctx, c.name, c.args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if debug.IsEnabled(debug.LevelTrace) {
		debug.Trace("Camera: running %s %s", c.name, strings.Join(c.args, " "))
	}
	start := time.Now()
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(cmd.Stderr.String()); msg != "" {
			return nil, fmt.Errorf("capture command %s: %w: %s", c.name, err, msg)
		}
		return nil, fmt.Errorf("capture command %s: %w", c.name, err)
	}
	debug.Trace("Camera: %d bytes in %v", stdout.Len(), time.Since(start))

	if stdout.Len() == 0 {
		return nil, ErrNoFrame
	}
	return frame.Decode(&stdout)
}

// safeCommand wraps exec.Cmd with a buffer catching stderr, so the
// capture tool's own error message is not lost when it fails.
type safeCommand struct {
	*exec.Cmd
	Stderr *bytes.Buffer
}

func newSafeCommand(ctx context.Context, name string, args ...string) *safeCommand {
	cmd := exec.CommandContext(ctx, name, args...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	return &safeCommand{Cmd: cmd, Stderr: stderr}
}
