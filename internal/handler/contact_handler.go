package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dxbfab/site/internal/logging"
	"github.com/dxbfab/site/internal/service"
	"github.com/dxbfab/site/internal/validation"
)

// contactBodyLimit bounds the public form body; the message itself is capped
// at 5000 characters.
const contactBodyLimit = 64 << 10

// SubmitContact handles the public contact form. The per-IP limit is checked
// before the body is read; a filled honeypot answers like a success.
func (a *API) SubmitContact(c *gin.Context) {
	if !a.limiter.Allow(c.ClientIP()) {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(a.retryAfter.Seconds()))))
		respondError(c, http.StatusTooManyRequests, "too many requests, please try again later")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, contactBodyLimit)
	var input service.ContactInput
	if err := c.ShouldBindJSON(&input); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := a.contacts.Submit(c.Request.Context(), input, service.ContactMeta{
		ClientIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": verr.Fields})
			return
		}
		a.respondInternal(c, "contact submission failed", err)
		return
	}

	if result.Absorbed {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	logging.FromContext(c, a.logger).Info("contact submission stored",
		zap.String("reference", result.Submission.Reference),
		zap.String("division", result.Submission.Division),
		zap.Bool("notified", result.Notified),
	)
	c.JSON(http.StatusOK, gin.H{"success": true, "reference": result.Submission.Reference})
}

// ListContacts returns stored submissions for the admin inbox.
func (a *API) ListContacts(c *gin.Context) {
	result, err := a.contacts.List(service.ContactFilter{
		Division: c.Query("division"),
		Search:   c.Query("q"),
		Page:     parsePositiveInt(c.Query("page"), 1),
		PerPage:  parsePositiveInt(c.Query("per_page"), 20),
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidDivision) {
			respondError(c, http.StatusBadRequest, "unknown division")
			return
		}
		a.respondInternal(c, "list contacts failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":       result.Items,
		"total":       result.Total,
		"page":        result.Page,
		"per_page":    result.PerPage,
		"total_pages": result.TotalPages,
	})
}
