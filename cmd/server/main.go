package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/floorplan-editor/backend/internal/api"
	"github.com/floorplan-editor/backend/internal/config"
	"github.com/floorplan-editor/backend/internal/render"
	"github.com/floorplan-editor/backend/internal/session"
	"github.com/floorplan-editor/backend/internal/shape"
	"github.com/floorplan-editor/backend/internal/storage"
	"github.com/floorplan-editor/backend/internal/web"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	exeDir := filepath.Dir(exePath)

	// Load XML configuration
	configPath := filepath.Join(exeDir, "FloorPlanEditor.exe.config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}

	embeddedMode := web.HasEmbeddedFiles()
	api.ExposeErrorDetails = strings.EqualFold(cfg.Advanced.LogLevel, "debug")

	// Shape catalog
	catalog := shape.BuiltinCatalog()
	if cfg.Editor.CatalogFile != "" {
		custom, err := shape.ParseCatalog(cfg.Editor.CatalogFile)
		if err != nil {
			fmt.Printf("Warning: failed to load shape catalog: %v\n", err)
		} else {
			catalog.Merge(custom)
			fmt.Printf("Shape catalog loaded from %s\n", cfg.Editor.CatalogFile)
		}
	}
	registry := shape.NewRegistry(catalog)

	// Initialize storage
	store, err := storage.Open(storage.Options{
		Backend:      cfg.Storage.Backend,
		Directory:    cfg.Storage.StoreDirectory,
		DatabaseFile: cfg.Storage.DatabaseFile,
		Duck: storage.DuckOptions{
			Threads:     cfg.Advanced.DuckDBThreads,
			MemoryLimit: cfg.Advanced.DuckDBMemoryLimit,
		},
	})
	if err != nil {
		fmt.Printf("Failed to initialize storage: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	// Initialize session manager
	sessionMgr := session.NewManager(
		storage.NewRepository(store),
		storage.NewArchive(store),
		registry,
		sessionOptions(cfg),
		session.Security{
			RequireAuth:     cfg.Security.RequireAuth,
			EditAuthorities: cfg.GetEditAuthorities(),
		},
	)

	renderer, err := render.NewRenderer()
	if err != nil {
		fmt.Printf("Warning: previews disabled: %v\n", err)
	} else {
		sessionMgr.SetRenderer(renderer)
	}

	// Start background session cleanup and autosave
	go runMaintenance(sessionMgr, cfg)

	e := echo.New()
	e.HideBanner = true

	// Configure middleware
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Skip logging if disabled in config
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return strings.HasSuffix(path, "/keepalive") ||
				strings.HasPrefix(path, "/api/ws/") ||
				path == "/api/health"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize:         1024 * 4,
		DisablePrintStack: false,
		LogLevel:          0,
	}))

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, "/api/ws/")
		},
		ErrorMessage: "Request timeout - operation took too long",
	}))

	// Compression middleware
	if cfg.Processing.EnableCompression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level: cfg.Processing.CompressionLevel,
			Skipper: func(c echo.Context) bool {
				path := c.Request().URL.Path
				return strings.HasPrefix(path, "/api/ws/") || strings.HasSuffix(path, ".png")
			},
		}))
	}

	// Body limit middleware
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// CORS configuration
	if cfg.Server.EnableCORS {
		allowHeaders := []string{
			echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization,
			api.HeaderUserID, api.HeaderUserName, api.HeaderUserAuthorities,
		}
		if embeddedMode {
			e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
				AllowOrigins: allowedOrigins(cfg.Server.AllowOrigins),
				AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
				AllowHeaders: allowHeaders,
			}))
		} else {
			// Development mode - only allow localhost
			e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
				AllowOrigins: []string{
					"http://localhost:5173", "http://127.0.0.1:5173",
					"http://localhost:3000", "http://127.0.0.1:3000",
				},
				AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
				AllowHeaders: allowHeaders,
			}))
		}
	}

	// API Routes
	handlers := api.NewHandlers(&api.Dependencies{
		SessionMgr:            sessionMgr,
		Version:               Version,
		WebSocketMaxMessageKB: cfg.Advanced.WebSocketMaxMessageSize,
	})
	api.SetupMiddleware(e)
	api.RegisterRoutes(e, handlers)
	api.RegisterWebSocketRoutes(e, handlers)

	// Register embedded frontend if available
	if embeddedMode {
		if err := web.RegisterStaticRoutes(e); err != nil {
			fmt.Printf("Warning: failed to register static routes: %v\n", err)
		} else {
			fmt.Println("Serving embedded frontend from binary")
		}
	}

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Print startup banner
	mode := "Development"
	if embeddedMode {
		mode = "Embedded Frontend"
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Floor Plan Editor Server                        ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Mode:       %-45s║\n", mode)
	fmt.Printf("║  Storage:    %-45s║\n", cfg.Storage.Backend)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Data Dir:  %-46s║\n", cfg.GetDataDir())
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	if embeddedMode {
		fmt.Printf("Open http://localhost:%d in your browser\n\n", cfg.Server.Port)
	}

	e.Logger.Fatal(e.StartServer(s))
}

// sessionOptions maps the editor config section onto session defaults.
func sessionOptions(cfg *config.AppConfig) session.Options {
	opts := session.DefaultOptions()
	ed := cfg.Editor
	if ed.MaxSelection > 0 {
		opts.MaxSelection = ed.MaxSelection
	}
	if ed.HistoryLimit > 0 {
		opts.HistoryLimit = ed.HistoryLimit
	}
	if ed.OptimizeAbove > 0 {
		opts.OptimizeAbove = ed.OptimizeAbove
	}
	if ed.NumberingMinScale > 0 {
		opts.Env.NumberingMinScale = ed.NumberingMinScale
	}
	if ed.FreeTextMinScale > 0 {
		opts.Env.FreeTextMinScale = ed.FreeTextMinScale
	}
	if ed.DefaultLatticeSize > 0 {
		opts.LayoutPrefs.LatticeSize = ed.DefaultLatticeSize
	}
	if ed.DefaultStageWidth > 0 {
		opts.LayoutPrefs.StageWidth = ed.DefaultStageWidth
	}
	if ed.DefaultStageHeight > 0 {
		opts.LayoutPrefs.StageHeight = ed.DefaultStageHeight
	}
	if ed.DefaultFontSize > 0 {
		opts.MapPrefs.DefaultFontSize = ed.DefaultFontSize
	}
	opts.EditorVersion = Version
	if opts.EditorVersion == "dev" {
		opts.EditorVersion = session.DefaultOptions().EditorVersion
	}
	return opts
}

// runMaintenance evicts idle sessions and autosaves dirty ones.
func runMaintenance(mgr *session.Manager, cfg *config.AppConfig) {
	cleanupEvery := time.Duration(cfg.Processing.CleanupIntervalMinutes) * time.Minute
	if cleanupEvery <= 0 {
		cleanupEvery = 5 * time.Minute
	}
	autosaveEvery := time.Duration(cfg.Processing.AutosaveSeconds) * time.Second
	if autosaveEvery <= 0 {
		autosaveEvery = 10 * time.Second
	}
	maxAge := time.Duration(cfg.Processing.SessionTimeoutMinutes) * time.Minute

	cleanup := time.NewTicker(cleanupEvery)
	defer cleanup.Stop()
	autosave := time.NewTicker(autosaveEvery)
	defer autosave.Stop()

	for {
		select {
		case <-cleanup.C:
			if n := mgr.CleanupOldSessions(context.Background(), maxAge); n > 0 {
				fmt.Printf("[Maintenance] Removed %d idle sessions\n", n)
			}
		case <-autosave.C:
			if n := mgr.AutosaveAll(context.Background()); n > 0 {
				fmt.Printf("[Maintenance] Autosaved %d sessions\n", n)
			}
		}
	}
}

func allowedOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return origins
}
