package video

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"

	"vidfilter/config"
	"vidfilter/filter"
)

// Decoder streams decoded frames from a source in strict presentation
// order, as packed RGB24 read off an ffmpeg rawvideo pipe.
type Decoder struct {
	meta   Meta
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer
	buf    []byte
}

// OpenDecoder probes the source and starts the decode pipe. Any failure
// here wraps ErrSourceUnavailable.
func OpenDecoder(ctx context.Context, cfg *config.Config, source string) (*Decoder, error) {
	meta, err := Probe(ctx, cfg, source)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, cfg.FFBin,
		"-v", "error",
		"-i", source,
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"pipe:1",
	)
	d := &Decoder{
		meta: meta,
		cmd:  cmd,
		buf:  make([]byte, meta.Width*meta.Height*3),
	}
	cmd.Stderr = &d.stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	d.stdout = stdout

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return d, nil
}

// Meta returns the probed stream metadata.
func (d *Decoder) Meta() Meta {
	return d.meta
}

// ReadFrame returns the next frame, or io.EOF when the stream ends.
func (d *Decoder) ReadFrame() (*filter.Frame, error) {
	_, err := io.ReadFull(d.stdout, d.buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("reading frame: %w", err)
	}

	f := filter.NewFrame(d.meta.Width, d.meta.Height)
	copy(f.Pix, d.buf)
	return f, nil
}

// Close tears the decode pipe down. Safe to call after a partial read.
func (d *Decoder) Close() error {
	d.stdout.Close()
	if err := d.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg decode: %v: %s", err, d.stderr.String())
	}
	return nil
}
