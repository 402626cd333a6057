// vidfilter/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vidfilter/api"
	"vidfilter/cache"
	"vidfilter/config"
	"vidfilter/detect"
	"vidfilter/pipeline"
	"vidfilter/process"
	"vidfilter/video"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Verify external collaborators and prepare the artifact store
	if err := video.Check(cfg); err != nil {
		log.Fatalf("Failed to initialize video tooling: %v", err)
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	var detector pipeline.Detector = detect.None{}
	if cfg.DetectorBin != "" {
		cmd, err := detect.NewCommand(cfg.DetectorBin)
		if err != nil {
			log.Fatalf("Failed to initialize detector: %v", err)
		}
		detector = cmd
	} else {
		log.Println("No detector configured; frames will be treated as all background.")
	}

	// 3. Wire the cache, pipeline and processor
	index := cache.Load(cfg.OutputDir, cfg.CacheHashWidth)
	runner := pipeline.NewRunner(cfg, detector)
	processor := process.New(cfg, index, runner)

	// 4. Set up router and server
	router := api.SetupRouter(processor, detector, cfg)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// 5. Start background workers and the HTTP server
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	processor.Start(ctx)

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 6. Wait for interrupt signal for graceful shutdown
	<-ctx.Done()

	stop()
	log.Println("Shutting down gracefully, press Ctrl+C again to force")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	log.Println("Server exiting")
}
