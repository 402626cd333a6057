// Package video wraps the external ffmpeg/ffprobe collaborators: stream
// probing, rawvideo decode and encode pipes, and the final audio mux.
package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"vidfilter/config"
)

var (
	// ErrSourceUnavailable means the source could not be opened for
	// decoding. Terminal for the job that hit it.
	ErrSourceUnavailable = errors.New("could not open video source")

	// ErrSinkCreation means the encode target could not be allocated.
	// Terminal for the job that hit it.
	ErrSinkCreation = errors.New("could not create output video")
)

// Meta describes a probed video stream. FrameCount may be 0 when the
// container does not carry a reliable frame count; callers must not
// divide by it unguarded.
type Meta struct {
	Width      int
	Height     int
	FPS        float64
	FrameCount int
}

// Check verifies the configured ffmpeg and ffprobe binaries are on PATH.
func Check(cfg *config.Config) error {
	if _, err := exec.LookPath(cfg.FFBin); err != nil {
		return fmt.Errorf("ffmpeg binary not found or not in PATH: %s", cfg.FFBin)
	}
	if _, err := exec.LookPath(cfg.FFProbeBin); err != nil {
		return fmt.Errorf("ffprobe binary not found or not in PATH: %s", cfg.FFProbeBin)
	}
	return nil
}

type probeStream struct {
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	AvgFrameRate string `json:"avg_frame_rate"`
	NBFrames     string `json:"nb_frames"`
}

type probeResult struct {
	Streams []probeStream `json:"streams"`
}

// Probe reads the video stream metadata of a source. Sources are opaque
// locators handed straight to ffprobe: local paths and remote URLs both
// work as long as ffprobe can open them.
func Probe(ctx context.Context, cfg *config.Config, source string) (Meta, error) {
	cmd := exec.CommandContext(ctx, cfg.FFProbeBin,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,avg_frame_rate,nb_frames",
		"-of", "json",
		source,
	)
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		return Meta{}, fmt.Errorf("%w: ffprobe: %v: %s", ErrSourceUnavailable, err, strings.TrimSpace(errBuf.String()))
	}

	var res probeResult
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		return Meta{}, fmt.Errorf("%w: unreadable ffprobe output: %v", ErrSourceUnavailable, err)
	}
	if len(res.Streams) == 0 {
		return Meta{}, fmt.Errorf("%w: no video stream in %s", ErrSourceUnavailable, source)
	}

	s := res.Streams[0]
	if s.Width <= 0 || s.Height <= 0 {
		return Meta{}, fmt.Errorf("%w: invalid dimensions %dx%d", ErrSourceUnavailable, s.Width, s.Height)
	}

	// nb_frames is frequently absent or "N/A"; that just degrades
	// progress reporting to a plain frame counter.
	frames, _ := strconv.Atoi(s.NBFrames)

	return Meta{
		Width:      s.Width,
		Height:     s.Height,
		FPS:        parseRate(s.AvgFrameRate),
		FrameCount: frames,
	}, nil
}

// parseRate turns ffprobe's "30000/1001" rational into a float, with a
// sane fallback when the source reports nothing usable.
func parseRate(rate string) float64 {
	const fallbackFPS = 25.0
	num, den, found := strings.Cut(rate, "/")
	if !found {
		if v, err := strconv.ParseFloat(rate, 64); err == nil && v > 0 {
			return v
		}
		return fallbackFPS
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || n <= 0 || d <= 0 {
		return fallbackFPS
	}
	return n / d
}
