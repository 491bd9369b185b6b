// FileDock is a per-tenant file-storage facade over an S3-compatible object
// store: upload, list, search, star, delete, share (signed URLs), thumbnail
// previews, and storage-usage accounting.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/koustreak/FileDock/internal/blobstore/minio"
	"github.com/koustreak/FileDock/internal/config"
	"github.com/koustreak/FileDock/internal/drive"
	"github.com/koustreak/FileDock/internal/logger"
	"github.com/koustreak/FileDock/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.New(nil).Fatal("failed to load configuration: " + err.Error())
	}

	log := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})

	startCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	store, err := minio.New(startCtx, cfg.BlobstoreConfig())
	if err != nil {
		log.Fatal("failed to connect to object store: " + err.Error())
	}
	defer store.Close()

	if err := store.EnsureBucket(startCtx, cfg.Storage.Bucket); err != nil {
		log.Fatal("failed to ensure bucket: " + err.Error())
	}

	svc := drive.NewService(store, cfg.Storage.Bucket, log)
	srv := server.New(cfg.Server.Addr, svc, log)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil {
			log.Fatal("http server failed: " + err.Error())
		}
	case sig := <-stop:
		log.Infof("received %s, shutting down", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed: " + err.Error())
		}
	}
}
