package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BaoTrinh25/Job-BE/api/ws"
	"github.com/BaoTrinh25/Job-BE/config"
	"github.com/BaoTrinh25/Job-BE/internal/fanout"
	"github.com/BaoTrinh25/Job-BE/internal/identity"
	"github.com/BaoTrinh25/Job-BE/internal/redis"
	"github.com/BaoTrinh25/Job-BE/internal/store"
	"github.com/BaoTrinh25/Job-BE/pkg/logger"
	"github.com/BaoTrinh25/Job-BE/service"
)

// App represents the main application structure holding all dependencies
type App struct {
	cfg         config.Config
	logger      logger.Logger
	natsFanout  *fanout.NATSFanout
	redisClient *redis.RedisClient
	db          *gorm.DB
	chatService service.ChatService
	httpServer  *http.Server
	rootCtx     context.Context
	cancel      context.CancelFunc
}

// NewApp initializes and connects all application dependencies
func NewApp(cfg config.Config) (*App, error) {
	baseLogger := logger.NewLogger(cfg.LogLevel, cfg.LogFile)
	rootCtx := logger.NewContext(context.Background(), baseLogger)
	rootCtx, rootCancel := context.WithCancel(rootCtx)

	log := logger.FromContext(rootCtx).WithModule("app")
	log.Infof("Initializing application components...")

	natsFanout, err := fanout.NewNATS(rootCtx, cfg.NATSURL)
	if err != nil {
		rootCancel()
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	redisClient, err := redis.NewRedisClient(rootCtx, cfg.RedisURL)
	if err != nil {
		rootCancel()
		natsFanout.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(cfg.SQLitePath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		rootCancel()
		natsFanout.Close()
		redisClient.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	chatStore := store.New(db)
	if err := chatStore.Migrate(); err != nil {
		rootCancel()
		natsFanout.Close()
		redisClient.Close()
		return nil, err
	}

	directory := identity.NewDirectory(rootCtx, db, redisClient)
	chatService := service.NewChatService(rootCtx, chatStore, natsFanout, directory)

	httpServer := createHTTPServer(rootCtx, cfg.Port, chatService)

	app := &App{
		cfg:         cfg,
		logger:      log,
		natsFanout:  natsFanout,
		redisClient: redisClient,
		db:          db,
		chatService: chatService,
		httpServer:  httpServer,
		rootCtx:     rootCtx,
		cancel:      rootCancel,
	}

	log.Infof("Application initialized successfully")
	return app, nil
}

func createHTTPServer(ctx context.Context, port int, chatService service.ChatService) *http.Server {
	wsConfig := ws.WSConfig{
		ChatService: chatService,
		RootCtx:     ctx,
	}

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: ws.SetupWebSocketRoutes(wsConfig),
	}
}

// Start runs the application and handles graceful shutdown on signal
func (a *App) Start() error {
	log := a.logger.WithFields(map[string]interface{}{
		"port": a.cfg.Port,
	})

	log.Infof("Starting application server")

	go func() {
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithFields(map[string]interface{}{
				"error": err.Error(),
			}).Fatalf("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.WithFields(map[string]interface{}{
		"signal": sig.String(),
	}).Warnf("Received shutdown signal")

	return a.Stop()
}

// Stop gracefully shuts down the server and closes all connections
func (a *App) Stop() error {
	log := a.logger.WithFields(map[string]interface{}{
		"shutdown_timeout": "5s",
	})

	log.Infof("Initiating graceful shutdown")

	a.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Errorf("HTTP server shutdown error")
	}

	log.Infof("Closing NATS connection")
	a.natsFanout.Close()

	log.Infof("Closing Redis connection")
	a.redisClient.Close()

	if sqlDB, err := a.db.DB(); err == nil {
		log.Infof("Closing database connection")
		sqlDB.Close()
	}

	log.Infof("Shutdown completed successfully")
	return nil
}
