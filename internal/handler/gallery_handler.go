package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dxbfab/site/internal/db"
	"github.com/dxbfab/site/internal/division"
	"github.com/dxbfab/site/internal/service"
)

type galleryMetadataPayload struct {
	AltText        *string   `json:"alt_text"`
	Caption        *string   `json:"caption"`
	Project        *string   `json:"project"`
	Title          *string   `json:"title"`
	SEODescription *string   `json:"seo_description"`
	Keywords       *[]string `json:"keywords"`
	Division       *string   `json:"division"`
}

func (p galleryMetadataPayload) toMetadata() service.GalleryMetadata {
	return service.GalleryMetadata{
		AltText:        p.AltText,
		Caption:        p.Caption,
		Project:        p.Project,
		Title:          p.Title,
		SEODescription: p.SEODescription,
		Keywords:       p.Keywords,
		Division:       p.Division,
	}
}

type reorderRequest struct {
	Division string `json:"division"`
	From     *int   `json:"from"`
	To       *int   `json:"to"`
}

type featuredRequest struct {
	Featured bool `json:"featured"`
}

type capabilitySlotRequest struct {
	Slot *int `json:"slot"`
}

type capabilityCard struct {
	Slot  int              `json:"slot"`
	Image *db.GalleryImage `json:"image"`
}

// ListDivisions returns the fixed division list.
func (a *API) ListDivisions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": division.All()})
}

// ListGallery returns one division's images in display order.
func (a *API) ListGallery(c *gin.Context) {
	div, ok := requireDivision(c, c.Query("division"))
	if !ok {
		return
	}

	items, err := a.galleries.ListByDivision(c.Request.Context(), div)
	if err != nil {
		a.respondInternal(c, "list gallery failed", err)
		return
	}

	info, _ := division.Lookup(div)
	c.JSON(http.StatusOK, gin.H{"division": info, "items": items})
}

// ListFeaturedGallery returns featured images across divisions.
func (a *API) ListFeaturedGallery(c *gin.Context) {
	items, err := a.galleries.ListFeatured(parsePositiveInt(c.Query("limit"), 12))
	if err != nil {
		a.respondInternal(c, "list featured gallery failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// ListCapabilityCards returns the four capability card slots of a division;
// empty slots carry a null image.
func (a *API) ListCapabilityCards(c *gin.Context) {
	div, ok := requireDivision(c, c.Query("division"))
	if !ok {
		return
	}

	items, err := a.galleries.CapabilityCards(div)
	if err != nil {
		a.respondInternal(c, "list capability cards failed", err)
		return
	}

	cards := make([]capabilityCard, db.CapabilitySlotCount)
	for i := range cards {
		cards[i].Slot = i
	}
	for i := range items {
		slot := items[i].CapabilitySlot
		if slot != nil && *slot >= 0 && *slot < db.CapabilitySlotCount {
			cards[*slot].Image = &items[i]
		}
	}
	c.JSON(http.StatusOK, gin.H{"division": div, "cards": cards})
}

// AdminListGallery returns gallery images for the admin grid.
func (a *API) AdminListGallery(c *gin.Context) {
	result, err := a.galleries.List(service.GalleryFilter{
		Division: c.Query("division"),
		Search:   c.Query("q"),
		Featured: parseOptionalBool(c.Query("featured")),
		Page:     parsePositiveInt(c.Query("page"), 1),
		PerPage:  parsePositiveInt(c.Query("per_page"), 24),
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidDivision) {
			respondError(c, http.StatusBadRequest, "unknown division")
			return
		}
		a.respondInternal(c, "admin list gallery failed", err)
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

// UpdateGalleryImage updates an image's metadata.
func (a *API) UpdateGalleryImage(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid image id")
		return
	}

	var payload galleryMetadataPayload
	if !bindJSON(c, &payload, "invalid request body") {
		return
	}

	item, err := a.galleries.Update(id, payload.toMetadata())
	if err != nil {
		a.respondGalleryError(c, "update gallery image failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "image updated", "item": item})
}

// DeleteGalleryImage removes the image and its stored blob.
func (a *API) DeleteGalleryImage(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid image id")
		return
	}

	if err := a.galleries.Delete(c.Request.Context(), id); err != nil {
		a.respondGalleryError(c, "delete gallery image failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "image deleted"})
}

// ReorderGallery moves one image within its division and persists every
// position. A partial failure answers 500 with how far it got.
func (a *API) ReorderGallery(c *gin.Context) {
	var payload reorderRequest
	if !bindJSON(c, &payload, "invalid request body") {
		return
	}
	if payload.From == nil || payload.To == nil {
		respondError(c, http.StatusBadRequest, "from and to are required")
		return
	}
	div, ok := requireDivision(c, payload.Division)
	if !ok {
		return
	}

	items, err := a.galleries.Reorder(c.Request.Context(), div, *payload.From, *payload.To)
	if err != nil {
		var reorderErr *service.ReorderError
		if errors.As(err, &reorderErr) {
			a.respondInternal(c, "reorder partially applied", err)
			return
		}
		a.respondGalleryError(c, "reorder gallery failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "order saved", "items": items})
}

// SetGalleryFeatured toggles the featured flag.
func (a *API) SetGalleryFeatured(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid image id")
		return
	}

	var payload featuredRequest
	if !bindJSON(c, &payload, "invalid request body") {
		return
	}

	item, err := a.galleries.SetFeatured(id, payload.Featured)
	if err != nil {
		a.respondGalleryError(c, "set featured failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

// AssignCapabilitySlot gives an image a capability card slot, or clears it
// when slot is null.
func (a *API) AssignCapabilitySlot(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid image id")
		return
	}

	var payload capabilitySlotRequest
	if !bindJSON(c, &payload, "invalid request body") {
		return
	}

	item, err := a.galleries.AssignCapabilitySlot(id, payload.Slot)
	if err != nil {
		a.respondGalleryError(c, "assign capability slot failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

func (a *API) respondGalleryError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrGalleryNotFound):
		respondError(c, http.StatusNotFound, "image not found")
	case errors.Is(err, service.ErrInvalidDivision):
		respondError(c, http.StatusBadRequest, "unknown division")
	case errors.Is(err, service.ErrGalleryAltMissing):
		respondError(c, http.StatusBadRequest, "alt text is required")
	case errors.Is(err, service.ErrReorderIndex):
		respondError(c, http.StatusBadRequest, "reorder index out of range")
	case errors.Is(err, service.ErrCapabilitySlotInvalid):
		respondError(c, http.StatusBadRequest, "capability slot must be between 0 and 3")
	default:
		a.respondInternal(c, msg, err)
	}
}

func requireDivision(c *gin.Context, raw string) (division.Division, bool) {
	if strings.TrimSpace(raw) == "" {
		respondError(c, http.StatusBadRequest, "division is required")
		return "", false
	}
	div, err := division.Parse(raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, "unknown division")
		return "", false
	}
	return div, true
}
