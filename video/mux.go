package video

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/google/shlex"

	"vidfilter/config"
)

// MuxAudio produces the final H.264 artifact at finalPath by combining
// the processed (silent) video with the audio track of the original
// source. The audio is extracted to a temporary AAC file first, then
// muxed in; the temporary file is removed on every path.
//
// Callers treat any error from this step as recoverable: audio
// preservation is best-effort and a failed mux falls back to the silent
// intermediate.
func MuxAudio(ctx context.Context, cfg *config.Config, processedPath, source, finalPath string) error {
	audioPath := strings.TrimSuffix(finalPath, ".mp4") + "_audio.aac"
	defer os.Remove(audioPath)

	if err := runFF(ctx, cfg.FFBin,
		"-y",
		"-i", source,
		"-vn",
		"-acodec", "aac",
		audioPath,
	); err != nil {
		return fmt.Errorf("extracting audio: %w", err)
	}

	extra, err := shlex.Split(cfg.EncodeArgs)
	if err != nil {
		return fmt.Errorf("invalid ENCODE_ARGS: %w", err)
	}

	args := []string{
		"-y",
		"-i", processedPath,
		"-i", audioPath,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-preset", "fast",
		"-crf", "23",
	}
	args = append(args, extra...)
	args = append(args, "-shortest", finalPath)

	if err := runFF(ctx, cfg.FFBin, args...); err != nil {
		return fmt.Errorf("combining audio and video: %w", err)
	}
	return nil
}

// runFF runs one ffmpeg invocation to completion, folding its combined
// output into the returned error.
func runFF(ctx context.Context, bin string, args ...string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %v: %s", bin, err, tail(out.String(), 400))
	}
	return nil
}

// tail keeps error messages readable when ffmpeg is verbose.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
