package handler

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dxbfab/site/internal/logging"
	"github.com/dxbfab/site/internal/mail"
	"github.com/dxbfab/site/internal/media"
	"github.com/dxbfab/site/internal/ratelimit"
	"github.com/dxbfab/site/internal/seo"
	"github.com/dxbfab/site/internal/service"
	"github.com/dxbfab/site/internal/storage"
	"github.com/dxbfab/site/internal/validation"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db          *gorm.DB
	galleries   *service.GalleryService
	uploads     *service.UploadService
	contacts    *service.ContactService
	system      *service.SystemSettingService
	sitemap     *seo.Sitemap
	og          *seo.OGRenderer
	limiter     ratelimit.Limiter
	retryAfter  time.Duration
	siteBaseURL string
	logger      *zap.Logger
}

// Options carries the collaborators NewAPI cannot derive from the database.
type Options struct {
	Storage      storage.Storage
	Mailer       mail.Sender
	MailFrom     string
	NotifyTo     []string
	UploadLimits media.Limits
	Compressor   *media.Compressor
	// ContactLimiter defaults to 5 requests per minute per client IP.
	ContactLimiter ratelimit.Limiter
	RetryAfter     time.Duration
	SiteBaseURL    string
	BlogPosts      []seo.BlogPost
	Logger         *zap.Logger
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, opts Options) *API {
	logger := logging.OrNop(opts.Logger)
	validator := validation.New()

	limiter := opts.ContactLimiter
	if limiter == nil {
		limiter = ratelimit.NewFixedWindow(5, time.Minute, nil)
	}
	retryAfter := opts.RetryAfter
	if retryAfter <= 0 {
		retryAfter = time.Minute
	}
	limits := opts.UploadLimits
	if limits == (media.Limits{}) {
		limits = media.DefaultLimits
	}

	systemService := service.NewSystemSettingService(gdb, validator)
	galleries := service.NewGalleryService(gdb, opts.Storage, logger)

	api := &API{
		db:        gdb,
		galleries: galleries,
		contacts: service.NewContactService(gdb, opts.Mailer, systemService, validator, service.ContactNotifyConfig{
			From:     opts.MailFrom,
			NotifyTo: opts.NotifyTo,
		}, logger),
		system:      systemService,
		sitemap:     seo.NewSitemap(opts.SiteBaseURL, opts.BlogPosts),
		og:          seo.NewOGRenderer(service.DefaultSiteName, opts.SiteBaseURL),
		limiter:     limiter,
		retryAfter:  retryAfter,
		siteBaseURL: opts.SiteBaseURL,
		logger:      logger,
	}
	if opts.Storage != nil {
		api.uploads = service.NewUploadService(galleries, opts.Storage, limits, opts.Compressor, logger)
	}
	return api
}

// DB exposes the underlying gorm instance.
func (a *API) DB() *gorm.DB {
	return a.db
}

// Galleries exposes the gallery service to the operator CLI.
func (a *API) Galleries() *service.GalleryService {
	return a.galleries
}

// SitemapBuilder exposes the sitemap builder to the operator CLI.
func (a *API) SitemapBuilder() *seo.Sitemap {
	return a.sitemap
}
