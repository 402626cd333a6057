// Package process is the orchestration engine: it checks the cache,
// runs the frame pipeline on background workers, tracks job state and
// registers finished artifacts.
package process

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"vidfilter/cache"
	"vidfilter/config"
	"vidfilter/filter"
)

// Pipeline is the frame-pipeline collaborator, defined here at the
// consumer so tests can substitute it.
type Pipeline interface {
	Run(ctx context.Context, source string, style filter.Style, progress func(done, total int)) (string, error)
}

type request struct {
	jobID  string
	source string
	style  filter.Style
}

// Processor is the processing facade constructed once at startup and
// handed to the transport layer. Submitted jobs run on a bounded worker
// pool; once submitted a job cannot be canceled, it runs to completion
// or terminal error.
type Processor struct {
	cfg      *config.Config
	index    *cache.Index
	pipeline Pipeline
	registry *registry
	queue    chan request
	sem      chan struct{}

	pregen *pregenQueue
}

func New(cfg *config.Config, index *cache.Index, pipeline Pipeline) *Processor {
	p := &Processor{
		cfg:      cfg,
		index:    index,
		pipeline: pipeline,
		registry: newRegistry(),
		queue:    make(chan request, cfg.QueueSize),
		sem:      make(chan struct{}, cfg.MaxConcurrency),
	}
	p.pregen = newPregenQueue(p)
	return p
}

// Start launches the worker and pre-generation loops. They exit when
// ctx is canceled.
func (p *Processor) Start(ctx context.Context) {
	log.Println("Processor started. Concurrency limit:", p.cfg.MaxConcurrency)
	go p.workerLoop(ctx)
	go p.pregen.loop(ctx)
}

func (p *Processor) workerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Println("Worker loop shutting down.")
			return
		case req := <-p.queue:
			// Wait for a free processing slot
			p.sem <- struct{}{}
			go func(req request) {
				defer func() { <-p.sem }() // Release slot
				p.runJob(ctx, req)
			}(req)
		}
	}
}

// runJob drives one pipeline run and owns all writes to its job record.
// Failures never propagate anywhere: Submit has already returned, so
// errors are visible only through polling.
func (p *Processor) runJob(ctx context.Context, req request) {
	log.Printf("Processing job %s (%s)", req.jobID, req.style)
	warnLowResources(p.cfg)

	filename, err := p.pipeline.Run(ctx, req.source, req.style, func(done, total int) {
		p.registry.setProgress(req.jobID, done, total)
	})
	if err != nil {
		log.Printf("Job %s failed: %v", req.jobID, err)
		p.registry.fail(req.jobID, err.Error())
		return
	}

	// Register the artifact before flipping the job to completed so a
	// poller that sees "completed" can always resolve the cache entry.
	p.index.Insert(p.index.Key(req.source, string(req.style)), filename)
	p.registry.complete(req.jobID, filename)
	log.Printf("Job %s completed: %s", req.jobID, filename)
}

// Submit starts processing source with the named style and returns a
// job id immediately.
//
// A cache hit returns a job already in completed state and spawns no
// work. On a miss the job is enqueued for the worker pool; two
// concurrent misses for the same (source, style) pair both run and the
// later insert wins, which wastes work but stays correct.
func (p *Processor) Submit(source, rawStyle string) (string, error) {
	style := filter.ParseStyle(rawStyle)
	key := p.index.Key(source, string(style))

	if filename, ok := p.index.Lookup(key); ok {
		j := &Job{
			ID:       newJobID(),
			Status:   StatusCompleted,
			Progress: 100,
			Filename: &filename,
			Cached:   true,
		}
		p.registry.add(j)
		log.Printf("Job %s served from cache: %s", j.ID, filename)
		return j.ID, nil
	}

	j := &Job{ID: newJobID(), Status: StatusProcessing}
	p.registry.add(j)

	select {
	case p.queue <- request{jobID: j.ID, source: source, style: style}:
		log.Printf("Job %s submitted to queue.", j.ID)
		return j.ID, nil
	default:
		p.registry.fail(j.ID, "processing queue is full")
		return "", fmt.Errorf("processing queue is full")
	}
}

// Status looks a job up by id. Pure read, no side effects.
func (p *Processor) Status(jobID string) (Job, bool) {
	return p.registry.get(jobID)
}

// VideoInfo describes one artifact on disk for the listing endpoint.
type VideoInfo struct {
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"downloadUrl"`
	Cached      bool   `json:"cached"`
}

// ListVideos scans the output directory for artifacts, cross-referenced
// against the cache index so orphaned files are distinguishable from
// cache members.
func (p *Processor) ListVideos() ([]VideoInfo, error) {
	entries, err := os.ReadDir(p.cfg.OutputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []VideoInfo{}, nil
		}
		return nil, fmt.Errorf("scanning output directory: %w", err)
	}

	cached := p.index.Filenames()
	videos := []VideoInfo{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".mp4") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		videos = append(videos, VideoInfo{
			Filename:    entry.Name(),
			Size:        info.Size(),
			DownloadURL: "/processed-video/download/" + entry.Name(),
			Cached:      cached[entry.Name()],
		})
	}
	sort.Slice(videos, func(i, j int) bool { return videos[i].Filename < videos[j].Filename })
	return videos, nil
}

// ArtifactPath resolves a client-supplied filename to a path inside the
// output directory, rejecting traversal attempts.
func (p *Processor) ArtifactPath(filename string) (string, error) {
	clean := filepath.Base(filename)
	if clean != filename {
		return "", fmt.Errorf("invalid filename")
	}
	path := filepath.Join(p.cfg.OutputDir, clean)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("file not found")
	}
	return path, nil
}

// CacheStats mirrors the original cache-info payload.
type CacheStats struct {
	TotalCachedVideos int     `json:"total_cached_videos"`
	TotalCacheBytes   int64   `json:"total_cache_size_bytes"`
	TotalCacheMB      float64 `json:"total_cache_size_mb"`
}

func (p *Processor) CacheStats() CacheStats {
	entries, totalBytes := p.index.Stats()
	mb := float64(totalBytes) / (1024 * 1024)
	return CacheStats{
		TotalCachedVideos: entries,
		TotalCacheBytes:   totalBytes,
		TotalCacheMB:      float64(int(mb*100+0.5)) / 100,
	}
}

// ClearCache removes every cached artifact and resets the index.
// Partial deletion failures are reported but do not stop the clear.
func (p *Processor) ClearCache() error {
	return p.index.Clear()
}
