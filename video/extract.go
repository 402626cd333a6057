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

// ExtractFrame decodes the single frame at the given index from a
// source. Used by the mask preview endpoint.
func ExtractFrame(ctx context.Context, cfg *config.Config, source string, index int) (*filter.Frame, error) {
	meta, err := Probe(ctx, cfg, source)
	if err != nil {
		return nil, err
	}
	if index < 0 {
		index = 0
	}

	cmd := exec.CommandContext(ctx, cfg.FFBin,
		"-v", "error",
		"-i", source,
		"-vf", fmt.Sprintf("select=eq(n\\,%d)", index),
		"-vframes", "1",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"pipe:1",
	)
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("extracting frame %d: %v: %s", index, err, errBuf.String())
	}

	f := filter.NewFrame(meta.Width, meta.Height)
	if _, err := io.ReadFull(&out, f.Pix); err != nil {
		return nil, fmt.Errorf("could not read frame %d from source", index)
	}
	return f, nil
}
