package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lukeborglin-coder/jaice-dashboard-sub005/internal/app"
	"github.com/lukeborglin-coder/jaice-dashboard-sub005/internal/blob"
	"github.com/lukeborglin-coder/jaice-dashboard-sub005/internal/config"
	"github.com/lukeborglin-coder/jaice-dashboard-sub005/internal/lock"
	"github.com/lukeborglin-coder/jaice-dashboard-sub005/internal/respno"
	"github.com/lukeborglin-coder/jaice-dashboard-sub005/internal/search"
	"github.com/lukeborglin-coder/jaice-dashboard-sub005/internal/snapshot"
	"github.com/lukeborglin-coder/jaice-dashboard-sub005/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	var blobs store.Blobs
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		defer db.Close()

		postgres := store.NewPostgres(db)
		if err := postgres.EnsureSchema(ctx); err != nil {
			log.Fatalf("schema setup failed: %v", err)
		}
		blobs = postgres
		log.Printf("Using PostgreSQL document store")
	} else {
		files, err := store.NewFiles(cfg.DataDir)
		if err != nil {
			log.Fatalf("data dir setup failed: %v", err)
		}
		blobs = files
		log.Printf("Using flat-file document store at %s", cfg.DataDir)
	}
	collections := store.NewCollections(blobs)

	var locker respno.Locker
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisLocker, err := lock.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisLocker.Close()
		locker = redisLocker
		log.Printf("Using Redis for reconciliation locks")
	} else {
		locker = lock.NewMemory()
	}

	engine := respno.NewEngine(collections, locker, nil)

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, search.NewScan(collections))
	reindexSearch(ctx, collections, searchService)

	var uploads *blob.Uploads
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		var err error
		uploads, err = blob.NewUploads(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("object store connection failed: %v", err)
		}
		log.Printf("Storing transcript files in bucket %s", cfg.MinioBucket)
	}

	if err := os.MkdirAll(cfg.SnapshotDir, 0o755); err != nil {
		log.Fatalf("failed to create snapshots dir: %v", err)
	}
	snapshots := snapshot.New(cfg.SnapshotDir)

	var service *app.Service
	if uploads != nil {
		service = app.NewService(collections, engine, searchService, uploads, snapshots)
	} else {
		service = app.NewService(collections, engine, searchService, nil, snapshots)
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Jaice API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// reindexSearch pushes the current collection contents to Meilisearch so
// the index survives a wiped search volume. A failure here degrades to the
// scan fallback rather than blocking startup.
func reindexSearch(ctx context.Context, collections *store.Collections, searchService *search.Service) {
	byProject, err := collections.LoadTranscripts(ctx)
	if err != nil {
		log.Printf("WARNING: reindex skipped, transcripts unavailable: %v", err)
		return
	}
	analyses, err := collections.LoadAnalyses(ctx)
	if err != nil {
		log.Printf("WARNING: reindex skipped, analyses unavailable: %v", err)
		return
	}

	transcriptRecords := []search.TranscriptRecord{}
	for projectID, transcripts := range byProject {
		for _, t := range transcripts {
			transcriptRecords = append(transcriptRecords, search.TranscriptRecord{
				ID:            t.ID,
				ProjectID:     projectID,
				RespNo:        t.RespNo,
				OriginalName:  t.OriginalName,
				InterviewDate: t.InterviewDate,
			})
		}
	}
	analysisRecords := make([]search.AnalysisRecord, 0, len(analyses))
	for _, a := range analyses {
		analysisRecords = append(analysisRecords, search.AnalysisRecord{
			ID:        a.ID,
			ProjectID: a.ProjectID,
			Name:      a.Name,
		})
	}
	searchService.ReindexAll(transcriptRecords, analysisRecords)
}
