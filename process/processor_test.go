package process

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidfilter/cache"
	"vidfilter/config"
	"vidfilter/filter"
)

// mockPipeline is a mock implementation of the Pipeline interface for
// testing. By default it writes a real artifact file so cache lookups
// behave as they would in production.
type mockPipeline struct {
	mu      sync.Mutex
	runs    int
	runFunc func(ctx context.Context, source string, style filter.Style, progress func(done, total int)) (string, error)
	outDir  string
}

func (m *mockPipeline) Run(ctx context.Context, source string, style filter.Style, progress func(done, total int)) (string, error) {
	m.mu.Lock()
	m.runs++
	m.mu.Unlock()

	if m.runFunc != nil {
		return m.runFunc(ctx, source, style, progress)
	}
	filename := "processed_" + string(style) + "_test.mp4"
	if err := os.WriteFile(filepath.Join(m.outDir, filename), []byte("video"), 0o644); err != nil {
		return "", err
	}
	return filename, nil
}

func (m *mockPipeline) runCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		OutputDir:      t.TempDir(),
		MaxConcurrency: 1,
		QueueSize:      10,
		CacheHashWidth: 8,
	}
}

func newTestProcessor(t *testing.T, pl *mockPipeline) *Processor {
	cfg := testConfig(t)
	pl.outDir = cfg.OutputDir
	idx := cache.Load(cfg.OutputDir, cfg.CacheHashWidth)
	return New(cfg, idx, pl)
}

// waitForTerminal polls until the job leaves processing state.
func waitForTerminal(t *testing.T, p *Processor, jobID string) Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		j, ok := p.Status(jobID)
		require.True(t, ok)
		if j.Status != StatusProcessing {
			return j
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal state")
	return Job{}
}

func TestProcessor_SubmitCompletes(t *testing.T) {
	pl := &mockPipeline{}
	p := newTestProcessor(t, pl)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	jobID, err := p.Submit("video.mp4", "grayscale")
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	j := waitForTerminal(t, p, jobID)
	assert.Equal(t, StatusCompleted, j.Status)
	assert.Equal(t, float64(100), j.Progress)
	assert.False(t, j.Cached)
	require.NotNil(t, j.Filename)
	assert.Equal(t, "processed_grayscale_test.mp4", *j.Filename)
	assert.Nil(t, j.Error)
}

func TestProcessor_SecondSubmitServedFromCache(t *testing.T) {
	pl := &mockPipeline{}
	p := newTestProcessor(t, pl)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	first, err := p.Submit("video.mp4", "sepia")
	require.NoError(t, err)
	firstJob := waitForTerminal(t, p, first)
	require.Equal(t, StatusCompleted, firstJob.Status)

	second, err := p.Submit("video.mp4", "sepia")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	// Cache hits complete synchronously: no waiting, no new run.
	j, ok := p.Status(second)
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, j.Status)
	assert.True(t, j.Cached)
	require.NotNil(t, j.Filename)
	assert.Equal(t, *firstJob.Filename, *j.Filename)
	assert.Equal(t, 1, pl.runCount())
}

func TestProcessor_DifferentStyleMissesCache(t *testing.T) {
	pl := &mockPipeline{}
	p := newTestProcessor(t, pl)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	first, _ := p.Submit("video.mp4", "sepia")
	waitForTerminal(t, p, first)

	second, _ := p.Submit("video.mp4", "blur")
	j := waitForTerminal(t, p, second)
	assert.False(t, j.Cached)
	assert.Equal(t, 2, pl.runCount())
}

func TestProcessor_PipelineErrorFailsJob(t *testing.T) {
	pl := &mockPipeline{
		runFunc: func(ctx context.Context, source string, style filter.Style, progress func(done, total int)) (string, error) {
			return "", errors.New("could not open video source")
		},
	}
	p := newTestProcessor(t, pl)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	jobID, err := p.Submit("missing.mp4", "grayscale")
	require.NoError(t, err)

	j := waitForTerminal(t, p, jobID)
	assert.Equal(t, StatusError, j.Status)
	require.NotNil(t, j.Error)
	assert.Contains(t, *j.Error, "could not open video source")
	assert.Nil(t, j.Filename)

	// Failed runs must not poison the cache.
	again, err := p.Submit("missing.mp4", "grayscale")
	require.NoError(t, err)
	j, ok := p.Status(again)
	require.True(t, ok)
	assert.False(t, j.Cached)
}

func TestProcessor_ProgressIsMonotonic(t *testing.T) {
	release := make(chan struct{})
	pl := &mockPipeline{
		runFunc: func(ctx context.Context, source string, style filter.Style, progress func(done, total int)) (string, error) {
			progress(0, 30)
			for i := 1; i <= 30; i++ {
				progress(i, 30)
			}
			<-release
			return "out.mp4", nil
		},
	}
	p := newTestProcessor(t, pl)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	jobID, err := p.Submit("video.mp4", "grayscale")
	require.NoError(t, err)

	// All frames reported but the run hasn't returned: progress must
	// sit just under 100.
	require.Eventually(t, func() bool {
		j, ok := p.Status(jobID)
		return ok && j.ProcessedFrames == 30
	}, 2*time.Second, 5*time.Millisecond)

	j, _ := p.Status(jobID)
	assert.Equal(t, StatusProcessing, j.Status)
	assert.Equal(t, 30, j.TotalFrames)
	assert.Equal(t, 99.9, j.Progress)

	close(release)
	j = waitForTerminal(t, p, jobID)
	assert.Equal(t, StatusCompleted, j.Status)
	assert.Equal(t, float64(100), j.Progress)
	assert.Equal(t, 30, j.ProcessedFrames)
}

func TestProcessor_UnknownStyleAccepted(t *testing.T) {
	pl := &mockPipeline{}
	p := newTestProcessor(t, pl)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	jobID, err := p.Submit("video.mp4", "neon")
	require.NoError(t, err)
	j := waitForTerminal(t, p, jobID)
	assert.Equal(t, StatusCompleted, j.Status)

	// Unknown styles collapse to identity, including for cache keys.
	again, err := p.Submit("video.mp4", "identity")
	require.NoError(t, err)
	j, ok := p.Status(again)
	require.True(t, ok)
	assert.True(t, j.Cached)
}

func TestProcessor_QueueFull(t *testing.T) {
	blocked := make(chan struct{})
	pl := &mockPipeline{
		runFunc: func(ctx context.Context, source string, style filter.Style, progress func(done, total int)) (string, error) {
			<-blocked
			return "out.mp4", nil
		},
	}
	cfg := testConfig(t)
	cfg.QueueSize = 1
	pl.outDir = cfg.OutputDir
	idx := cache.Load(cfg.OutputDir, cfg.CacheHashWidth)
	p := New(cfg, idx, pl)
	// Not started: nothing drains the queue.

	_, err := p.Submit("a.mp4", "blur")
	require.NoError(t, err)

	_, err = p.Submit("b.mp4", "blur")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue is full")
	close(blocked)
}

func TestProcessor_StatusUnknownJob(t *testing.T) {
	p := newTestProcessor(t, &mockPipeline{})
	_, ok := p.Status("nope")
	assert.False(t, ok)
}

func TestProcessor_ListVideos(t *testing.T) {
	pl := &mockPipeline{}
	p := newTestProcessor(t, pl)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	jobID, _ := p.Submit("video.mp4", "grayscale")
	waitForTerminal(t, p, jobID)

	// An orphaned artifact that no cache entry references.
	require.NoError(t, os.WriteFile(filepath.Join(p.cfg.OutputDir, "orphan.mp4"), []byte("x"), 0o644))

	videos, err := p.ListVideos()
	require.NoError(t, err)
	require.Len(t, videos, 2)

	byName := map[string]VideoInfo{}
	for _, v := range videos {
		byName[v.Filename] = v
	}
	assert.True(t, byName["processed_grayscale_test.mp4"].Cached)
	assert.False(t, byName["orphan.mp4"].Cached)
	assert.Equal(t, "/processed-video/download/orphan.mp4", byName["orphan.mp4"].DownloadURL)
}

func TestProcessor_CacheStatsAndClear(t *testing.T) {
	pl := &mockPipeline{}
	p := newTestProcessor(t, pl)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	jobID, _ := p.Submit("video.mp4", "sepia")
	waitForTerminal(t, p, jobID)

	stats := p.CacheStats()
	assert.Equal(t, 1, stats.TotalCachedVideos)
	assert.Positive(t, stats.TotalCacheBytes)

	require.NoError(t, p.ClearCache())
	stats = p.CacheStats()
	assert.Zero(t, stats.TotalCachedVideos)
	assert.Zero(t, stats.TotalCacheBytes)
}

func TestProcessor_Pregen(t *testing.T) {
	pl := &mockPipeline{}
	cfg := testConfig(t)
	cfg.SampleVideos = []string{"sample.mp4"}
	pl.outDir = cfg.OutputDir
	idx := cache.Load(cfg.OutputDir, cfg.CacheHashWidth)
	p := New(cfg, idx, pl)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	count := p.PregenSamples()
	assert.Equal(t, 3, count)

	require.Eventually(t, func() bool {
		length, running := p.PregenStatus()
		return length == 0 && !running
	}, 5*time.Second, 20*time.Millisecond)

	// All three styles are now cached.
	for _, s := range filter.Styles() {
		_, ok := idx.Lookup(idx.Key("sample.mp4", s.ID))
		assert.True(t, ok, "style %s not cached", s.ID)
	}
}
