package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dxbfab/site/internal/logging"
	"github.com/dxbfab/site/internal/seo"
	"github.com/dxbfab/site/internal/service"
)

// Sitemap serves sitemap.xml.
func (a *API) Sitemap(c *gin.Context) {
	body, err := a.sitemap.XML()
	if err != nil {
		a.respondInternal(c, "render sitemap failed", err)
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "application/xml; charset=utf-8", body)
}

// Robots serves robots.txt.
func (a *API) Robots(c *gin.Context) {
	c.String(http.StatusOK, seo.Robots(a.siteBaseURL))
}

// OGImage renders the 1200x630 SVG share card.
func (a *API) OGImage(c *gin.Context) {
	brand := service.DefaultSiteName
	if settings, err := a.system.GetSettings(); err != nil {
		logging.FromContext(c, a.logger).Warn("load site name for og image failed", zap.Error(err))
	} else if settings.SiteName != "" {
		brand = settings.SiteName
	}

	body, err := a.og.Render(seo.OGParams{
		Page:     c.Query("page"),
		Title:    c.Query("title"),
		Subtitle: c.Query("subtitle"),
		Division: c.Query("division"),
		Brand:    brand,
	})
	if err != nil {
		a.respondInternal(c, "render og image failed", err)
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/svg+xml", body)
}
