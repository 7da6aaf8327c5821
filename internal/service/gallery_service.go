package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dxbfab/site/internal/db"
	"github.com/dxbfab/site/internal/division"
	"github.com/dxbfab/site/internal/logging"
	"github.com/dxbfab/site/internal/storage"
)

var (
	ErrGalleryNotFound       = errors.New("gallery image not found")
	ErrGalleryImageMissing   = errors.New("gallery image is required")
	ErrGalleryAltMissing     = errors.New("gallery alt text is required")
	ErrInvalidDivision       = errors.New("division is invalid")
	ErrReorderIndex          = errors.New("reorder index out of range")
	ErrCapabilitySlotInvalid = errors.New("capability slot is invalid")
)

// ReorderError reports a reorder that stopped part way. Rows before Written
// already carry their new display order; the rest still carry the old one.
type ReorderError struct {
	Written int
	Total   int
	Err     error
}

func (e *ReorderError) Error() string {
	return fmt.Sprintf("reorder stopped after %d of %d writes: %v", e.Written, e.Total, e.Err)
}

func (e *ReorderError) Unwrap() error { return e.Err }

// GalleryService handles gallery CRUD.
type GalleryService struct {
	db     *gorm.DB
	store  storage.Storage
	logger *zap.Logger
}

// GalleryFilter describes filters for listing gallery images.
type GalleryFilter struct {
	Division string
	Search   string
	Featured *bool
	Page     int
	PerPage  int
}

// GalleryListResult aggregates paginated gallery results.
type GalleryListResult struct {
	Items      []db.GalleryImage
	Total      int64
	TotalPages int
	Page       int
	PerPage    int
}

// GalleryInput represents fields accepted when creating a gallery image.
type GalleryInput struct {
	ImageURL       string
	StorageKey     string
	AltText        string
	Caption        string
	Project        string
	Title          string
	SEODescription string
	Keywords       []string
	Division       string
	DisplayOrder   *int
	Featured       bool
	Width          int
	Height         int
	Bytes          int64
}

// GalleryMetadata is the editable part of an image. Nil fields are left as they are.
type GalleryMetadata struct {
	AltText        *string
	Caption        *string
	Project        *string
	Title          *string
	SEODescription *string
	Keywords       *[]string
	Division       *string
}

// NewGalleryService creates a GalleryService instance. store may be nil when
// rows carry external URLs only.
func NewGalleryService(gdb *gorm.DB, store storage.Storage, logger *zap.Logger) *GalleryService {
	return &GalleryService{db: gdb, store: store, logger: logging.OrNop(logger)}
}

// ListByDivision returns a division's images in display order.
func (s *GalleryService) ListByDivision(ctx context.Context, div division.Division) ([]db.GalleryImage, error) {
	if !div.Valid() {
		return nil, ErrInvalidDivision
	}
	var items []db.GalleryImage
	if err := s.db.WithContext(ctx).
		Where("division = ?", string(div)).
		Order("display_order asc").
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// List returns gallery images matching the filter.
func (s *GalleryService) List(filter GalleryFilter) (GalleryListResult, error) {
	result := GalleryListResult{
		Page:    normalizePage(filter.Page),
		PerPage: normalizePerPage(filter.PerPage, 24),
	}

	query := s.db.Model(&db.GalleryImage{})
	if raw := strings.TrimSpace(filter.Division); raw != "" {
		div, err := division.Parse(raw)
		if err != nil {
			return result, ErrInvalidDivision
		}
		query = query.Where("division = ?", string(div))
	}
	if filter.Featured != nil {
		query = query.Where("featured = ?", *filter.Featured)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		query = query.Where("title LIKE ? OR alt_text LIKE ? OR project LIKE ? OR caption LIKE ?", like, like, like, like)
	}

	if err := query.Count(&result.Total).Error; err != nil {
		return result, err
	}

	result.TotalPages = calculateTotalPages(result.Total, result.PerPage)
	offset := (result.Page - 1) * result.PerPage

	if err := query.Order("division asc").Order("display_order asc").Order("id asc").
		Limit(result.PerPage).
		Offset(offset).
		Find(&result.Items).Error; err != nil {
		return result, err
	}

	return result, nil
}

// ListFeatured returns featured images across divisions, newest first.
func (s *GalleryService) ListFeatured(limit int) ([]db.GalleryImage, error) {
	if limit <= 0 || limit > 48 {
		limit = 12
	}
	var items []db.GalleryImage
	if err := s.db.Where("featured = ?", true).
		Order("created_at desc").
		Order("id desc").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// CapabilityCards returns the images holding a capability slot in div,
// ordered by slot.
func (s *GalleryService) CapabilityCards(div division.Division) ([]db.GalleryImage, error) {
	if !div.Valid() {
		return nil, ErrInvalidDivision
	}
	var items []db.GalleryImage
	if err := s.db.Where("division = ? AND capability_slot IS NOT NULL", string(div)).
		Order("capability_slot asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Get fetches a gallery image by id.
func (s *GalleryService) Get(id uint) (*db.GalleryImage, error) {
	var item db.GalleryImage
	if err := s.db.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGalleryNotFound
		}
		return nil, err
	}
	return &item, nil
}

// Create inserts a new gallery image. Without an explicit display order the
// image is appended to the end of its division.
func (s *GalleryService) Create(input GalleryInput) (*db.GalleryImage, error) {
	if strings.TrimSpace(input.ImageURL) == "" {
		return nil, ErrGalleryImageMissing
	}
	if strings.TrimSpace(input.AltText) == "" {
		return nil, ErrGalleryAltMissing
	}
	div, err := division.Parse(input.Division)
	if err != nil {
		return nil, ErrInvalidDivision
	}

	order := 0
	if input.DisplayOrder != nil {
		order = *input.DisplayOrder
	} else {
		next, err := s.nextDisplayOrder(div)
		if err != nil {
			return nil, err
		}
		order = next
	}

	item := db.GalleryImage{
		ImageURL:       strings.TrimSpace(input.ImageURL),
		StorageKey:     strings.TrimSpace(input.StorageKey),
		AltText:        strings.TrimSpace(input.AltText),
		Caption:        strings.TrimSpace(input.Caption),
		Project:        strings.TrimSpace(input.Project),
		Title:          strings.TrimSpace(input.Title),
		SEODescription: strings.TrimSpace(input.SEODescription),
		Keywords:       cleanKeywords(input.Keywords),
		Division:       string(div),
		DisplayOrder:   order,
		Featured:       input.Featured,
		Width:          input.Width,
		Height:         input.Height,
		Bytes:          input.Bytes,
	}

	if err := s.db.Create(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// Update modifies an image's metadata. Moving an image to another division
// appends it there and drops its capability slot.
func (s *GalleryService) Update(id uint, meta GalleryMetadata) (*db.GalleryImage, error) {
	item, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if meta.AltText != nil {
		alt := strings.TrimSpace(*meta.AltText)
		if alt == "" {
			return nil, ErrGalleryAltMissing
		}
		item.AltText = alt
	}
	if meta.Caption != nil {
		item.Caption = strings.TrimSpace(*meta.Caption)
	}
	if meta.Project != nil {
		item.Project = strings.TrimSpace(*meta.Project)
	}
	if meta.Title != nil {
		item.Title = strings.TrimSpace(*meta.Title)
	}
	if meta.SEODescription != nil {
		item.SEODescription = strings.TrimSpace(*meta.SEODescription)
	}
	if meta.Keywords != nil {
		item.Keywords = cleanKeywords(*meta.Keywords)
	}
	if meta.Division != nil {
		div, err := division.Parse(*meta.Division)
		if err != nil {
			return nil, ErrInvalidDivision
		}
		if string(div) != item.Division {
			next, err := s.nextDisplayOrder(div)
			if err != nil {
				return nil, err
			}
			item.Division = string(div)
			item.DisplayOrder = next
			item.CapabilitySlot = nil
		}
	}

	if err := s.db.Save(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// Delete removes the stored blob and then the row. When the blob cannot be
// removed the row is kept so the delete can be retried.
func (s *GalleryService) Delete(ctx context.Context, id uint) error {
	item, err := s.Get(id)
	if err != nil {
		return err
	}

	if key := strings.TrimSpace(item.StorageKey); key != "" && s.store != nil {
		if err := s.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete blob %s: %w", key, err)
		}
	}

	if err := s.db.WithContext(ctx).Unscoped().Delete(&db.GalleryImage{}, item.ID).Error; err != nil {
		s.logger.Error("gallery row delete failed after blob removal",
			zap.Uint("id", item.ID),
			zap.String("storage_key", item.StorageKey),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Reorder moves the image at index from to index to within the division's
// ordered list, then writes every image's array position back as its display
// order, one row at a time. The writes are not wrapped in a transaction; a
// failure part way returns *ReorderError and leaves earlier rows updated.
func (s *GalleryService) Reorder(ctx context.Context, div division.Division, from, to int) ([]db.GalleryImage, error) {
	items, err := s.ListByDivision(ctx, div)
	if err != nil {
		return nil, err
	}
	if from < 0 || from >= len(items) || to < 0 || to >= len(items) {
		return nil, ErrReorderIndex
	}

	moved := MoveItem(items, from, to)
	for i := range moved {
		if err := ctx.Err(); err != nil {
			return moved, &ReorderError{Written: i, Total: len(moved), Err: err}
		}
		if err := s.db.WithContext(ctx).
			Model(&db.GalleryImage{}).
			Where("id = ?", moved[i].ID).
			Update("display_order", i).Error; err != nil {
			s.logger.Warn("reorder write failed",
				zap.String("division", string(div)),
				zap.Uint("id", moved[i].ID),
				zap.Int("written", i),
				zap.Int("total", len(moved)),
				zap.Error(err),
			)
			return moved, &ReorderError{Written: i, Total: len(moved), Err: err}
		}
		moved[i].DisplayOrder = i
	}
	return moved, nil
}

// MoveItem returns a copy of items with the element at from moved to to.
func MoveItem[T any](items []T, from, to int) []T {
	out := make([]T, 0, len(items))
	out = append(out, items[:from]...)
	out = append(out, items[from+1:]...)

	moved := items[from]
	out = append(out, moved)
	copy(out[to+1:], out[to:len(out)-1])
	out[to] = moved
	return out
}

// SetFeatured toggles the featured flag.
func (s *GalleryService) SetFeatured(id uint, featured bool) (*db.GalleryImage, error) {
	item, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(item).Update("featured", featured).Error; err != nil {
		return nil, err
	}
	item.Featured = featured
	return item, nil
}

// AssignCapabilitySlot gives the image the slot, first clearing that slot from
// every other image in the same division. A nil slot clears the image's slot.
func (s *GalleryService) AssignCapabilitySlot(id uint, slot *int) (*db.GalleryImage, error) {
	if slot != nil && (*slot < 0 || *slot >= db.CapabilitySlotCount) {
		return nil, ErrCapabilitySlotInvalid
	}

	item, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if slot == nil {
		if err := s.db.Model(item).Update("capability_slot", nil).Error; err != nil {
			return nil, err
		}
		item.CapabilitySlot = nil
		return item, nil
	}

	if err := s.db.Model(&db.GalleryImage{}).
		Where("division = ? AND capability_slot = ? AND id <> ?", item.Division, *slot, item.ID).
		Update("capability_slot", nil).Error; err != nil {
		return nil, fmt.Errorf("clear capability slot %d: %w", *slot, err)
	}

	value := *slot
	if err := s.db.Model(item).Update("capability_slot", value).Error; err != nil {
		return nil, fmt.Errorf("assign capability slot %d: %w", value, err)
	}
	item.CapabilitySlot = &value
	return item, nil
}

// Normalize renumbers a division to 0..n-1 in its current order and returns
// how many rows changed.
func (s *GalleryService) Normalize(ctx context.Context, div division.Division) (int, error) {
	items, err := s.ListByDivision(ctx, div)
	if err != nil {
		return 0, err
	}

	changed := 0
	for i, item := range items {
		if item.DisplayOrder == i {
			continue
		}
		if err := s.db.WithContext(ctx).
			Model(&db.GalleryImage{}).
			Where("id = ?", item.ID).
			Update("display_order", i).Error; err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}

func (s *GalleryService) nextDisplayOrder(div division.Division) (int, error) {
	var next int
	if err := s.db.Model(&db.GalleryImage{}).
		Where("division = ?", string(div)).
		Select("COALESCE(MAX(display_order), -1) + 1").
		Scan(&next).Error; err != nil {
		return 0, err
	}
	return next, nil
}

func cleanKeywords(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, keyword := range raw {
		trimmed := strings.TrimSpace(keyword)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func normalizePerPage(perPage, fallback int) int {
	if perPage <= 0 {
		return fallback
	}
	if perPage > 100 {
		return 100
	}
	return perPage
}

func calculateTotalPages(total int64, perPage int) int {
	if perPage <= 0 {
		return 1
	}
	if total == 0 {
		return 1
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}
