package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dxbfab/site/internal/config"
	"github.com/dxbfab/site/internal/db"
	"github.com/dxbfab/site/internal/handler"
	"github.com/dxbfab/site/internal/logging"
	"github.com/dxbfab/site/internal/mail"
	"github.com/dxbfab/site/internal/media"
	"github.com/dxbfab/site/internal/ratelimit"
	"github.com/dxbfab/site/internal/router"
	"github.com/dxbfab/site/internal/seo"
	"github.com/dxbfab/site/internal/storage"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("failed to load .env: %v", err)
	}
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	logger, err := logging.New(cfg.LogLevel, cfg.GinMode)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg config.AppConfig, logger *zap.Logger) error {
	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		return err
	}

	if cfg.SuperRootUserName != "" && cfg.SuperRootPassword != "" {
		created, err := db.EnsureUser(db.DB, cfg.SuperRootUserName, cfg.SuperRootPassword)
		if err != nil {
			return err
		}
		if created {
			logger.Info("bootstrap admin created", zap.String("username", cfg.SuperRootUserName))
		}
	}

	store, err := storage.New(storage.Config{
		Driver:    cfg.Storage.Driver,
		LocalDir:  cfg.Storage.LocalDir,
		PublicURL: cfg.Storage.PublicURL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
	})
	if err != nil {
		return err
	}

	sender, err := mail.New(mail.Config{
		Provider:     cfg.Mail.Provider,
		SMTPHost:     cfg.Mail.SMTPHost,
		SMTPPort:     cfg.Mail.SMTPPort,
		SMTPUsername: cfg.Mail.SMTPUsername,
		SMTPPassword: cfg.Mail.SMTPPassword,
		ResendAPIKey: cfg.Mail.ResendAPIKey,
		ResendURL:    cfg.Mail.ResendURL,
	}, logger.Named("mail"))
	if err != nil {
		return err
	}

	var posts []seo.BlogPost
	if cfg.BlogManifestPath != "" {
		posts, err = seo.LoadBlogManifest(cfg.BlogManifestPath)
		if err != nil {
			return err
		}
	}

	api := handler.NewAPI(db.DB, handler.Options{
		Storage:  store,
		Mailer:   sender,
		MailFrom: cfg.Mail.From,
		NotifyTo: cfg.Mail.NotifyTo,
		UploadLimits: media.Limits{
			MaxBytes:     cfg.Upload.MaxBytes,
			MinDimension: cfg.Upload.MinDimension,
			MaxDimension: cfg.Upload.MaxDimension,
		},
		Compressor:     media.NewCompressor(cfg.Upload.OutputMaxDim, cfg.Upload.JPEGQuality),
		ContactLimiter: ratelimit.NewFixedWindow(cfg.Contact.RateLimit, cfg.Contact.RateWindow, nil),
		RetryAfter:     cfg.Contact.RateWindow,
		SiteBaseURL:    cfg.SiteBaseURL,
		BlogPosts:      posts,
		Logger:         logger,
	})

	deps := router.Deps{
		API:            api,
		Logger:         logger,
		SessionSecret:  cfg.SessionSecret,
		SecureCookies:  cfg.SecureCookies,
		TrustedProxies: cfg.TrustedProxies,
	}
	if local, ok := store.(*storage.LocalStorage); ok {
		deps.UploadDir = local.BaseDir()
		deps.UploadURL = local.PublicPrefix()
	}

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router.WithCORS(router.SetupRouter(deps), cfg.AllowedOrigins),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.ListenAddr), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
