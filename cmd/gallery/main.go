package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"gallery/internal/admin"
	"gallery/internal/categories"
	"gallery/internal/config"
	"gallery/internal/handlers"
	"gallery/internal/integrations/discord"
	"gallery/internal/media"
	"gallery/internal/middleware"
	"gallery/internal/models"
	"gallery/internal/progress"
	"gallery/internal/syncmode"
	"gallery/internal/tunnel"
	"gallery/internal/utils"
	"gallery/internal/version"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type App struct {
	config      *config.Store
	paths       *utils.Paths
	logger      *utils.Logger
	categories  *categories.Store
	indexer     *media.Indexer
	media       *media.Service
	progress    *progress.Store
	tunnels     *tunnel.Manager
	adminLock   *admin.Lock
	sync        *syncmode.State
	authService *middleware.AuthService
	wsHub       *middleware.Hub
	rateLimiter *middleware.RateLimiter
	pwLimiter   *middleware.RateLimiter
	secret      []byte
	cancel      context.CancelFunc
}

var app *App

const (
	envConfig        = "GALLERY_CONFIG"
	envPort          = "GALLERY_PORT"
	envDataDir       = "GALLERY_DATA_DIR"
	envSessionSecret = "GALLERY_SESSION_SECRET"
)

func main() {
	configPath := flag.String("config", "", "path to the configuration file (default "+config.DefaultFile+")")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	path := *configPath
	if path == "" {
		path = os.Getenv(envConfig)
	}

	var err error
	app, err = newApp(path)
	if err != nil {
		log.Fatalf("Gallery failed to initialize: %v", err)
	}

	go app.wsHub.Run()

	port := app.config.Settings().Port
	if v, err := strconv.Atoi(os.Getenv(envPort)); err == nil && v > 0 && v < 65536 {
		port = v
	}

	r := setupRouter()
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		log.Printf("Starting gallery %s on port %d", version.String(), port)
		app.logger.Write(fmt.Sprintf("Gallery %s listening on port %d", version.String(), port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	app.shutdown(ctx)
	log.Println("Server exited")
}

// newApp loads configuration and wires every service.
func newApp(configPath string) (*App, error) {
	cfgStore, cfgErr := config.NewStore(configPath)
	settings := cfgStore.Settings()

	dataDir := settings.DataDir
	if v := strings.TrimSpace(os.Getenv(envDataDir)); v != "" {
		dataDir = v
	}
	if !filepath.IsAbs(dataDir) {
		base := filepath.Dir(cfgStore.Path())
		dataDir = filepath.Join(base, dataDir)
	}
	paths := utils.NewPaths(dataDir)
	logger := utils.NewLogger(paths.LogFile())
	if cfgErr != nil {
		logger.Write(fmt.Sprintf("Configuration problem, serving defaults: %v", cfgErr))
	}
	if err := paths.Deploy(logger); err != nil {
		return nil, err
	}

	catStore := categories.NewStore(paths.CategoriesFile())
	if err := catStore.Load(); err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	prog, err := progress.Open(paths.ProgressDir())
	if err != nil {
		return nil, err
	}

	secret, err := sessionSecret()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	hub := middleware.NewHub(logger)

	indexer := media.NewIndexer(ctx, paths, logger)
	indexer.OnProgress(func(p models.IndexingProgress) {
		hub.Publish("indexing_progress", p)
	})

	announcer := discord.NewTunnelAnnouncer(
		func() string { return cfgStore.Settings().DiscordWebhookURL },
		logger.Writef,
	)
	tunnels := tunnel.NewManager(logger, paths.TunnelLogFile())
	tunnels.OnStatus(func(st models.TunnelStatus) {
		hub.Publish("tunnel_status", st)
		announcer.Handle(st)
	})

	a := &App{
		config:      cfgStore,
		paths:       paths,
		logger:      logger,
		categories:  catStore,
		indexer:     indexer,
		media:       media.NewService(catStore, cfgStore, indexer, paths, logger),
		progress:    prog,
		tunnels:     tunnels,
		adminLock:   admin.NewLock(),
		authService: middleware.NewAuthService(secret),
		wsHub:       hub,
		rateLimiter: middleware.NewRateLimiter(rate.Every(time.Second/20), 60),
		pwLimiter:   middleware.NewRateLimiter(rate.Every(2*time.Second), 5),
		secret:      secret,
		cancel:      cancel,
	}
	a.sync = syncmode.New(func(on bool) {
		logger.Write(fmt.Sprintf("Sync mode enabled: %t", on))
		hub.Publish("sync_mode", gin.H{"enabled": on})
	})
	return a, nil
}

// sessionSecret returns the configured cookie signing key or a random one.
// Without GALLERY_SESSION_SECRET sessions do not survive a restart.
func sessionSecret() ([]byte, error) {
	if v := os.Getenv(envSessionSecret); len(v) >= 32 {
		return []byte(v), nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate session secret: %w", err)
	}
	return buf, nil
}

func (a *App) shutdown(ctx context.Context) {
	a.tunnels.Shutdown(ctx)
	a.cancel()
	a.wsHub.Close()
	a.rateLimiter.Stop()
	a.pwLimiter.Stop()
	if err := a.progress.Close(); err != nil {
		a.logger.Write(fmt.Sprintf("Closing progress store: %v", err))
	}
	a.logger.Write("Gallery stopped")
	a.logger.Close()
}

func setupRouter() *gin.Engine {
	r := gin.New()

	r.Use(handlers.Recovery(app.logger))
	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))

	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	r.Use(middleware.Metrics())
	r.Use(middleware.Sessions(app.secret))
	r.Use(middleware.EnsureSessionID())

	r.GET("/healthz", handlers.Healthz)
	r.GET("/metrics", middleware.MetricsHandler())
	r.GET("/ws", app.wsHub.HandleWebSocket())
	r.NoRoute(handlers.NotFound)

	configHandlers := handlers.NewConfigHandlers(app.config, app.authService, app.logger)
	categoryHandlers := handlers.NewCategoryHandlers(app.categories, app.media, app.progress, app.logger)
	mediaHandlers := handlers.NewMediaHandlers(app.media, app.config, app.sync, app.progress, app.logger)
	browseHandlers := handlers.NewBrowseHandlers(app.config, app.logger)
	tunnelHandlers := handlers.NewTunnelHandlers(app.tunnels, app.config, app.logger)
	adminHandlers := handlers.NewAdminHandlers(app.adminLock, app.logger)
	progressHandlers := handlers.NewProgressHandlers(app.progress, app.config, app.media, app.logger)
	syncHandlers := handlers.NewSyncHandlers(app.sync)

	requireAdmin := func(action string) gin.HandlerFunc {
		return middleware.RequireAdmin(app.adminLock, "Administrator privileges required to "+action+".")
	}
	password := func() string { return app.config.Settings().SessionPassword }

	r.GET("/media/:id/*filepath", app.authService.RequireViewerPass(password), mediaHandlers.ServeMedia)

	api := r.Group("/api")
	api.Use(app.rateLimiter.Middleware())
	{
		api.GET("/version", handlers.Version)

		api.GET("/config", configHandlers.GetConfig)
		api.POST("/config", configHandlers.SaveConfig)
		api.POST("/validate_session_password", app.pwLimiter.Middleware(), configHandlers.ValidateSessionPassword)

		api.GET("/categories", categoryHandlers.ListCategories)
		api.POST("/categories", requireAdmin("add categories"), categoryHandlers.AddCategory)
		api.DELETE("/categories/:id", requireAdmin("delete categories"), categoryHandlers.DeleteCategory)
		api.GET("/categories/:id/thumbnail", categoryHandlers.CategoryThumbnail)
		api.GET("/categories/:id/media", mediaHandlers.ListMedia)

		api.GET("/browse-folders", browseHandlers.BrowseFolders)
		api.GET("/browse-folders/list", requireAdmin("browse server folders"), browseHandlers.ListFolders)

		api.POST("/tunnel/start", tunnelHandlers.StartTunnel)
		api.POST("/tunnel/stop", tunnelHandlers.StopTunnel)
		api.GET("/tunnel/status", tunnelHandlers.TunnelStatus)

		api.POST("/admin/claim", adminHandlers.ClaimAdmin)
		api.GET("/admin/status", adminHandlers.AdminStatus)
		api.POST("/admin/release", adminHandlers.ReleaseAdmin)

		api.POST("/progress/delete_all", progressHandlers.DeleteAll)
		api.POST("/progress/:id", progressHandlers.SaveProgress)
		api.GET("/progress/:id", progressHandlers.GetProgress)

		api.GET("/sync/status", syncHandlers.Status)
		api.POST("/sync/enable", requireAdmin("change sync mode"), syncHandlers.Enable)
		api.POST("/sync/disable", requireAdmin("change sync mode"), syncHandlers.Disable)
	}

	return r
}
