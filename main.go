package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"screenscout/api"
	"screenscout/config"
	"screenscout/handlers"
	"screenscout/services/catalog"
	"screenscout/utils"
)

func main() {
	portOverride := flag.Int("port", 0, "override server port from config")
	flag.Parse()

	fmt.Println("screenscout backend starting...")

	// Determine config path (env or default)
	configPath := os.Getenv("SCREENSCOUT_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("cache", "settings.json")
	}

	// Init config manager and load settings (creates defaults if missing)
	cfgManager := config.NewManager(configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	// Set up file logging with rotation
	if settings.Log.File != "" {
		logDir := filepath.Dir(settings.Log.File)
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			log.Printf("warning: could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   settings.Log.File,
				MaxSize:    settings.Log.MaxSize,
				MaxBackups: settings.Log.MaxBackups,
				MaxAge:     settings.Log.MaxAge,
				Compress:   settings.Log.Compress,
			}
			// Standard log goes to both console and file
			log.SetOutput(io.MultiWriter(os.Stdout, fileWriter))
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			log.Printf("logging to file: %s", settings.Log.File)
		}
	}

	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	if settings.APIs.TMDBAPIKey == "" {
		log.Printf("warning: TMDB API key not configured; search and title endpoints will fail until SCREENSCOUT_TMDB_API_KEY is set")
	}
	if settings.APIs.OMDbAPIKey == "" {
		log.Printf("warning: OMDb API key not configured; ratings will be omitted")
	}
	if settings.APIs.WatchmodeAPIKey == "" {
		log.Printf("warning: Watchmode API key not configured; availability will lack prices and deep links")
	}
	if settings.APIs.OpenAIAPIKey == "" {
		log.Printf("warning: OpenAI API key not configured; AI overviews will be unavailable")
	}

	// Construct router and register routes
	r := utils.NewRouter()
	catalogService := catalog.NewService(settings.APIs, settings.Providers, settings.Cache)
	titlesHandler := handlers.NewTitlesHandler(catalogService)
	api.Register(r, titlesHandler)

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
