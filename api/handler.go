package api

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/jpeg"
	"io"
	"net/http"
	"strconv"
	"time"

	"vidfilter/config"
	"vidfilter/filter"
	"vidfilter/pipeline"
	"vidfilter/process"
	"vidfilter/video"

	"github.com/gin-gonic/gin"
)

// proxyClient bounds how long a single relay may hold a connection to
// the upstream, including the body copy.
var proxyClient = &http.Client{Timeout: 5 * time.Minute}

type Handler struct {
	processor *process.Processor
	detector  pipeline.Detector
	cfg       *config.Config
}

func NewHandler(p *process.Processor, detector pipeline.Detector, cfg *config.Config) *Handler {
	return &Handler{
		processor: p,
		detector:  detector,
		cfg:       cfg,
	}
}

// handleFilters lists the selectable background styles.
func (h *Handler) handleFilters(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"filters": filter.Styles()})
}

type ProcessRequest struct {
	VideoURL   string `json:"videoUrl"`
	FilterType string `json:"filterType"`
}

// handleProcessVideo starts an asynchronous background-filter job.
func (h *Handler) handleProcessVideo(c *gin.Context) {
	var req ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.VideoURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No video URL provided"})
		return
	}
	if req.FilterType == "" {
		req.FilterType = "grayscale"
	}

	jobID, err := h.processor.Submit(req.VideoURL, req.FilterType)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Video processing started",
		"jobId":      jobID,
		"filterType": req.FilterType,
	})
}

// handleProcessingStatus reports the state of one job.
func (h *Handler) handleProcessingStatus(c *gin.Context) {
	job, found := h.processor.Status(c.Param("jobId"))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

// handleListVideos lists all artifacts in the output directory.
func (h *Handler) handleListVideos(c *gin.Context) {
	videos, err := h.processor.ListVideos()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"videos": videos})
}

// handleDownload serves an artifact as an attachment.
func (h *Handler) handleDownload(c *gin.Context) {
	filename := c.Param("filename")
	path, err := h.processor.ArtifactPath(filename)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.FileAttachment(path, filename)
}

// handleStream serves an artifact for in-browser playback.
func (h *Handler) handleStream(c *gin.Context) {
	path, err := h.processor.ArtifactPath(c.Param("filename"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Type", "video/mp4")
	c.File(path)
}

func (h *Handler) handleCacheInfo(c *gin.Context) {
	c.JSON(http.StatusOK, h.processor.CacheStats())
}

func (h *Handler) handleCacheClear(c *gin.Context) {
	if err := h.processor.ClearCache(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cache", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cache cleared successfully"})
}

type MaskPreviewRequest struct {
	VideoURL    string `json:"videoUrl"`
	FrameNumber int    `json:"frameNumber"`
}

// handleMaskPreview renders the detection overlay for a single frame so
// clients can inspect what the subject detector sees.
func (h *Handler) handleMaskPreview(c *gin.Context) {
	var req MaskPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.VideoURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No video URL provided"})
		return
	}

	frame, err := video.ExtractFrame(c.Request.Context(), h.cfg, req.VideoURL, req.FrameNumber)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	regions, err := h.detector.Detect(c.Request.Context(), frame)
	if err != nil {
		// Preview still renders, just without detections.
		regions = nil
	}
	mask := filter.BuildMask(frame.Width, frame.Height, regions)
	preview := filter.MaskPreview(frame, mask)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, preview.ToImage(), nil); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"preview":     "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		"frameNumber": req.FrameNumber,
	})
}

// handleVideoProxy fetches a remote video and re-serves it, so browser
// clients can play sources their CORS policy would otherwise block.
func (h *Handler) handleVideoProxy(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No video URL provided"})
		return
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, url, nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp, err := proxyClient.Do(req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to fetch video: %d", resp.StatusCode)})
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}
	c.Header("Content-Type", contentType)
	c.Header("Accept-Ranges", "bytes")

	// Forward the upstream length only when the whole body fits under the
	// relay cap; a truncated body must not carry the full declared length
	// or clients wait for bytes that never come.
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil && n <= h.cfg.MaxInputSize {
			c.Header("Content-Length", cl)
		}
	}

	// Cap how much we relay so one request cannot stream unbounded data
	// through the proxy.
	limited := &io.LimitedReader{R: resp.Body, N: h.cfg.MaxInputSize}
	io.Copy(c.Writer, limited)
}

// handleVideoURLs lists the configured sample sources.
func (h *Handler) handleVideoURLs(c *gin.Context) {
	type videoURL struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		URL  string `json:"url"`
	}
	urls := []videoURL{}
	for i, u := range h.cfg.SampleVideos {
		urls = append(urls, videoURL{
			ID:   fmt.Sprintf("sample-%d", i+1),
			Name: fmt.Sprintf("Sample Video %d", i+1),
			URL:  u,
		})
	}
	c.JSON(http.StatusOK, gin.H{"videoUrls": urls})
}

func (h *Handler) handlePregenSamples(c *gin.Context) {
	count := h.processor.PregenSamples()
	c.JSON(http.StatusOK, gin.H{
		"message": "Sample videos added to pre-generation queue",
		"count":   count,
	})
}

type PregenRequest struct {
	VideoURL   string `json:"videoUrl"`
	FilterType string `json:"filterType"`
}

func (h *Handler) handlePregenAdd(c *gin.Context) {
	var req PregenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.VideoURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No video URL provided"})
		return
	}
	if req.FilterType == "" {
		req.FilterType = "grayscale"
	}

	h.processor.PregenAdd(req.VideoURL, req.FilterType)
	c.JSON(http.StatusOK, gin.H{"message": "Video added to pre-generation queue"})
}

func (h *Handler) handlePregenStatus(c *gin.Context) {
	length, running := h.processor.PregenStatus()
	c.JSON(http.StatusOK, gin.H{
		"queue_length": length,
		"is_running":   running,
	})
}

func (h *Handler) handleSystem(c *gin.Context) {
	c.JSON(http.StatusOK, h.processor.System())
}
