package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dxbfab/site/internal/service"
)

// UploadGalleryImages 处理后台批量上传：multipart 字段 files（或 files[]）与 division
func (a *API) UploadGalleryImages(c *gin.Context) {
	if a.uploads == nil {
		respondError(c, http.StatusServiceUnavailable, "uploads are not configured")
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		respondError(c, http.StatusBadRequest, "expected a multipart form")
		return
	}

	headers := append(form.File["files"], form.File["files[]"]...)
	if len(headers) == 0 {
		respondError(c, http.StatusBadRequest, "no files uploaded")
		return
	}

	files := make([]service.UploadFile, 0, len(headers))
	for _, fh := range headers {
		fh := fh
		files = append(files, service.UploadFile{
			Name: fh.Filename,
			Size: fh.Size,
			Open: func() (io.ReadCloser, error) { return fh.Open() },
		})
	}

	result, err := a.uploads.UploadBatch(c.Request.Context(), c.PostForm("division"), files, service.UploadMetadata{
		Project: c.PostForm("project"),
		Caption: c.PostForm("caption"),
		AltText: c.PostForm("alt_text"),
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidDivision) {
			respondError(c, http.StatusBadRequest, "unknown division")
			return
		}
		a.respondInternal(c, "gallery upload failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"summary":   result.Summary(),
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
		"items":     result.Items,
		"failures":  result.Failures,
	})
}
