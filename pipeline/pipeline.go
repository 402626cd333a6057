// Package pipeline drives one full source-to-artifact conversion:
// decode, per-frame mask and blend, re-encode, best-effort audio mux.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"vidfilter/config"
	"vidfilter/filter"
	"vidfilter/video"
)

// Detector is the external subject-detector collaborator, consumed as a
// capability: frame in, tagged bounding boxes out.
type Detector interface {
	Detect(ctx context.Context, f *filter.Frame) ([]filter.Region, error)
}

// frameSource yields decoded frames in presentation order.
type frameSource interface {
	Meta() video.Meta
	ReadFrame() (*filter.Frame, error)
	Close() error
}

// frameSink consumes processed frames into the intermediate file.
type frameSink interface {
	WriteFrame(f *filter.Frame) error
	Close() error
}

// Runner converts sources into styled artifacts under cfg.OutputDir.
//
// The decode, encode and mux collaborators are held as function fields
// so tests can substitute them, matching how Processor takes its
// Pipeline and Runner takes its Detector.
type Runner struct {
	cfg      *config.Config
	detector Detector

	openSource func(ctx context.Context, cfg *config.Config, source string) (frameSource, error)
	openSink   func(ctx context.Context, cfg *config.Config, path string, meta video.Meta) (frameSink, error)
	mux        func(ctx context.Context, cfg *config.Config, processedPath, source, finalPath string) error
}

func NewRunner(cfg *config.Config, detector Detector) *Runner {
	return &Runner{
		cfg:      cfg,
		detector: detector,
		openSource: func(ctx context.Context, cfg *config.Config, source string) (frameSource, error) {
			return video.OpenDecoder(ctx, cfg, source)
		},
		openSink: func(ctx context.Context, cfg *config.Config, path string, meta video.Meta) (frameSink, error) {
			return video.NewEncoder(ctx, cfg, path, meta)
		},
		mux: video.MuxAudio,
	}
}

// Run processes source with the given style and returns the artifact
// filename (relative to the output directory).
//
// Frames are processed in strict decode order. After each frame the
// progress callback receives (processed, total); total may be 0 when
// the container reports no frame count. A small configurable delay
// follows each frame write to cap pipeline throughput.
//
// Only two failures are terminal: the source cannot be opened
// (video.ErrSourceUnavailable) and the encode sink cannot be written
// (video.ErrSinkCreation). A failed audio mux degrades to delivering
// the silent processed stream and the run still succeeds.
func (r *Runner) Run(ctx context.Context, source string, style filter.Style, progress func(done, total int)) (string, error) {
	dec, err := r.openSource(ctx, r.cfg, source)
	if err != nil {
		return "", err
	}
	defer dec.Close()

	meta := dec.Meta()
	progress(0, meta.FrameCount)

	filename := artifactName(style)
	finalPath := filepath.Join(r.cfg.OutputDir, filename)
	tempPath := strings.TrimSuffix(finalPath, ".mp4") + "_temp.avi"

	enc, err := r.openSink(ctx, r.cfg, tempPath, meta)
	if err != nil {
		return "", err
	}

	processed := 0
	for {
		frame, err := dec.ReadFrame()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A decode error mid-stream ends the input, like the
			// original's read loop; everything decoded so far is kept.
			log.Printf("Decode ended early after %d frames: %v", processed, err)
			break
		}

		regions, err := r.detector.Detect(ctx, frame)
		if err != nil {
			// Detector trouble on one frame degrades to an all-background
			// mask rather than failing the job.
			log.Printf("Detector error on frame %d: %v", processed, err)
			regions = nil
		}

		mask := filter.BuildMask(frame.Width, frame.Height, regions)
		out := filter.Blend(frame, style, mask)

		if err := enc.WriteFrame(out); err != nil {
			enc.Close()
			os.Remove(tempPath)
			return "", err
		}

		processed++
		progress(processed, meta.FrameCount)

		if err := r.throttle(ctx); err != nil {
			enc.Close()
			os.Remove(tempPath)
			return "", err
		}
	}

	if err := enc.Close(); err != nil {
		// The intermediate may still be playable up to the last fully
		// written frame; the mux step (or its fallback) decides.
		log.Printf("Finalizing encoded stream: %v", err)
	}

	if err := r.mux(ctx, r.cfg, tempPath, source, finalPath); err != nil {
		// Best-effort policy: deliver the silent processed stream
		// instead of failing the job.
		log.Printf("Audio mux failed, delivering silent video: %v", err)
		if err := os.Rename(tempPath, finalPath); err != nil {
			return "", fmt.Errorf("%w: %v", video.ErrSinkCreation, err)
		}
		return filename, nil
	}

	os.Remove(tempPath)
	return filename, nil
}

// throttle inserts the fixed per-frame delay, bailing out early if the
// run's context ends.
func (r *Runner) throttle(ctx context.Context) error {
	if r.cfg.FrameDelay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(r.cfg.FrameDelay):
		return nil
	}
}

// artifactName builds a collision-resistant output filename: style plus
// timestamp plus a random suffix, so concurrent jobs never clash.
func artifactName(style filter.Style) string {
	return fmt.Sprintf("processed_%s_%s_%s.mp4",
		style,
		time.Now().Format("20060102_150405"),
		strings.Split(uuid.NewString(), "-")[0],
	)
}
