/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the telemetry engine server. Handles configuration,
  dependency wiring, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Initialize SQLite store
  3. Wire cache, archive maintainer, pipeline, collaborator clients
  4. Configure HTTP router
  5. Start server with graceful shutdown

CONFIGURATION:
  Flags, each overridable by the environment variable in parens:
  -port        HTTP server port (PORT, default 8080)
  -db          SQLite database path (DB_PATH, default telemetry.db;
               ":memory:" for in-memory)
  -archive-dir Archive output directory (ARCHIVE_DIR, default ./archives)
  -threshold   Row count triggering archive-and-truncate (ARCHIVE_THRESHOLD,
               default 1000)
  -cache-ttl   Expiry for half-complete cache entries (CACHE_TTL, default 0
               = never expire)
  -face-url    Base URL of the face-matching service (FACE_SERVICE_URL)
  -chat-url    Base URL of the chat-relay service (CHAT_SERVICE_URL)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, drain for 30s, close the
  database, exit.

SEE ALSO:
  - api/server.go: Router configuration
  - ingest/pipeline.go: The ingestion chain
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/homelink/telemetry-engine/api"
	"github.com/homelink/telemetry-engine/archive"
	"github.com/homelink/telemetry-engine/collab"
	"github.com/homelink/telemetry-engine/ingest"
	"github.com/homelink/telemetry-engine/store/sqlite"
	"github.com/homelink/telemetry-engine/telemetry"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// .env is optional; flags and real environment win.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("failed to load .env")
	}

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DB_PATH", "telemetry.db"), "SQLite database path")
	archiveDir := flag.String("archive-dir", envStr("ARCHIVE_DIR", "./archives"), "archive output directory")
	threshold := flag.Int("threshold", envInt("ARCHIVE_THRESHOLD", 1000), "row count triggering archive-and-truncate")
	cacheTTL := flag.Duration("cache-ttl", envDuration("CACHE_TTL", 0), "expiry for half-complete cache entries (0 = never)")
	faceURL := flag.String("face-url", os.Getenv("FACE_SERVICE_URL"), "face-matching service base URL")
	chatURL := flag.String("chat-url", os.Getenv("CHAT_SERVICE_URL"), "chat-relay service base URL")
	flag.Parse()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	cache := telemetry.NewCache(telemetry.WithExpiry(*cacheTTL))
	maintainer := archive.New(store, *archiveDir, *threshold, log,
		archive.WithRunRecorder(func(ctx context.Context, id, filename string, rowCount int) error {
			return store.SaveArchiveRun(ctx, sqlite.ArchiveRun{
				ID:        id,
				Filename:  filename,
				RowCount:  rowCount,
				CreatedAt: time.Now().UTC(),
			})
		}))
	pipeline := ingest.New(cache, store, maintainer, log)

	var faces collab.FaceMatcher
	if *faceURL != "" {
		faces = &collab.HTTPFaceMatcher{BaseURL: *faceURL}
	}
	var chat collab.ChatRelay
	if *chatURL != "" {
		chat = &collab.HTTPChatRelay{BaseURL: *chatURL, APIKey: os.Getenv("CHAT_API_KEY")}
	}

	handler := api.NewHandler(pipeline, store, faces, chat, log)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"port":      *port,
			"db":        *dbPath,
			"threshold": *threshold,
		}).Info("telemetry engine starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("forced shutdown")
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
