package video

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"

	"vidfilter/config"
	"vidfilter/filter"
)

// Encoder writes RGB24 frames into an ffmpeg rawvideo stdin pipe that
// produces the intermediate video file. The intermediate is mpeg4 in an
// AVI container; the final H.264 artifact is produced by the mux step.
type Encoder struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
}

// NewEncoder starts the encode pipe writing to path. Any failure here
// wraps ErrSinkCreation.
func NewEncoder(ctx context.Context, cfg *config.Config, path string, meta Meta) (*Encoder, error) {
	cmd := exec.CommandContext(ctx, cfg.FFBin,
		"-v", "error",
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-s", fmt.Sprintf("%dx%d", meta.Width, meta.Height),
		"-r", strconv.FormatFloat(meta.FPS, 'f', -1, 64),
		"-i", "pipe:0",
		"-c:v", "mpeg4",
		"-q:v", "5",
		path,
	)
	e := &Encoder{cmd: cmd}
	cmd.Stderr = &e.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSinkCreation, err)
	}
	e.stdin = stdin

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSinkCreation, err)
	}
	return e, nil
}

// WriteFrame appends one frame to the encoded stream.
func (e *Encoder) WriteFrame(f *filter.Frame) error {
	if _, err := e.stdin.Write(f.Pix); err != nil {
		return fmt.Errorf("%w: writing frame: %v: %s", ErrSinkCreation, err, e.stderr.String())
	}
	return nil
}

// Close finalizes the encoded stream and waits for ffmpeg to exit.
func (e *Encoder) Close() error {
	e.stdin.Close()
	if err := e.cmd.Wait(); err != nil {
		return fmt.Errorf("%w: finalizing stream: %v: %s", ErrSinkCreation, err, e.stderr.String())
	}
	return nil
}
