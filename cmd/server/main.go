package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/habittracker/internal/auth"
	"github.com/habittracker/internal/config"
	"github.com/habittracker/internal/db"
	"github.com/habittracker/internal/handler"
	"github.com/habittracker/internal/logger"
	"github.com/habittracker/internal/router"
	"github.com/habittracker/internal/service"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "habittracker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	l, closer, err := logger.New(logger.Config{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer closer.Close()

	if cfg.UsesDefaultSecret() {
		l.Warn("SECRET_KEY not set, using development secret")
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	// 初始化数据库
	gdb, err := db.Open(db.Options{
		Driver: cfg.DatabaseDriver,
		Path:   cfg.DatabasePath,
		URL:    cfg.DatabaseURL,
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			l.Error("close database", "err", err)
		}
	}()

	if cfg.SuperRootUserName != "" && cfg.SuperRootPassword != "" {
		users := service.NewUserService(gdb, cfg.BcryptCost)
		if err := users.EnsureAdmin(cfg.SuperRootUserName, cfg.SuperRootEmail, cfg.SuperRootPassword); err != nil {
			return fmt.Errorf("ensure admin: %w", err)
		}
		l.Info("admin account ready", "username", db.NormalizeUsername(cfg.SuperRootUserName))
	}

	tokens, err := auth.NewTokenIssuer([]byte(cfg.SecretKey), cfg.TokenTTL)
	if err != nil {
		return err
	}

	gin.SetMode(cfg.GinMode)
	api := handler.NewAPI(handler.Options{
		DB:         gdb,
		Tokens:     tokens,
		Clock:      service.SystemClock(loc),
		BcryptCost: cfg.BcryptCost,
		Logger:     l,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router.SetupRouter(api),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, srv, cfg.ShutdownTimeout, l)
}

// serve 运行 HTTP 服务直到收到退出信号
func serve(ctx context.Context, srv *http.Server, timeout time.Duration, l *log.Logger) error {
	serveErr := make(chan error, 1)
	l.Info("listening", "addr", srv.Addr)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		l.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}
