package api

import (
	"vidfilter/config"
	"vidfilter/pipeline"
	"vidfilter/process"

	"github.com/gin-gonic/gin"
)

func SetupRouter(p *process.Processor, detector pipeline.Detector, cfg *config.Config) *gin.Engine {
	r := gin.Default()
	r.Use(CORSMiddleware())
	h := NewHandler(p, detector, cfg)

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy", "message": "Video Background Filter API is running"})
	})

	grp := r.Group("", AuthMiddleware(cfg))
	{
		grp.GET("/filters", h.handleFilters)

		// Async processing job endpoints
		grp.POST("/process-video", h.handleProcessVideo)
		grp.GET("/processing-status/:jobId", h.handleProcessingStatus)

		// Artifact listing and delivery
		grp.GET("/processed-videos", h.handleListVideos)
		grp.GET("/processed-video/download/:filename", h.handleDownload)
		grp.GET("/processed-video/stream/:filename", h.handleStream)

		// Cache management
		grp.GET("/cache/info", h.handleCacheInfo)
		grp.POST("/cache/clear", h.handleCacheClear)

		// Detection preview and source helpers
		grp.POST("/mask-preview", h.handleMaskPreview)
		grp.GET("/video-proxy", h.handleVideoProxy)
		grp.GET("/video-urls", h.handleVideoURLs)

		// Pre-generation queue
		grp.POST("/pre-generate/samples", h.handlePregenSamples)
		grp.POST("/pre-generate/add", h.handlePregenAdd)
		grp.GET("/pre-generate/status", h.handlePregenStatus)

		// Host resource snapshot
		grp.GET("/system", h.handleSystem)
	}
	return r
}
