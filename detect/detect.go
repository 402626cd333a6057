// Package detect provides implementations of the external subject
// detector collaborator. Detection accuracy is not this system's
// concern: a detector is anything that maps a frame to a list of tagged
// bounding boxes.
package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"os/exec"

	"vidfilter/filter"
)

// Command runs an external classifier binary per frame: the frame goes
// in as PNG on stdin, the detections come back as a JSON array of
// {x, y, width, height, kind} objects on stdout.
type Command struct {
	Bin string
}

// NewCommand validates that the classifier binary is resolvable.
func NewCommand(bin string) (*Command, error) {
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("detector binary not found or not in PATH: %s", bin)
	}
	return &Command{Bin: bin}, nil
}

func (c *Command) Detect(ctx context.Context, f *filter.Frame) ([]filter.Region, error) {
	var in bytes.Buffer
	if err := png.Encode(&in, f.ToImage()); err != nil {
		return nil, fmt.Errorf("encoding frame for detector: %w", err)
	}

	cmd := exec.CommandContext(ctx, c.Bin)
	cmd.Stdin = &in
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("detector: %v: %s", err, errBuf.String())
	}

	var regions []filter.Region
	if err := json.Unmarshal(out.Bytes(), &regions); err != nil {
		return nil, fmt.Errorf("unreadable detector output: %w", err)
	}
	return regions, nil
}

// None is the zero-detection detector: every frame reads as all
// background. Used when no classifier is configured.
type None struct{}

func (None) Detect(ctx context.Context, f *filter.Frame) ([]filter.Region, error) {
	return nil, nil
}
