package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dxbfab/site/internal/db"
	"github.com/dxbfab/site/internal/division"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:service-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := db.Open(dsn, logger.Silent)
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

type memoryStorage struct {
	mu        sync.Mutex
	objects   map[string][]byte
	failSave  error
	failDel   error
	deletions []string
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: make(map[string][]byte)}
}

func (m *memoryStorage) Save(_ context.Context, key string, r io.Reader, _ string) error {
	if m.failSave != nil {
		return m.failSave
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryStorage) Delete(_ context.Context, key string) error {
	if m.failDel != nil {
		return m.failDel
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.deletions = append(m.deletions, key)
	return nil
}

func (m *memoryStorage) URL(key string) string {
	return "https://cdn.example.ae/" + key
}

func seedGallery(t *testing.T, svc *GalleryService, div division.Division, n int) []db.GalleryImage {
	t.Helper()
	items := make([]db.GalleryImage, 0, n)
	for i := 0; i < n; i++ {
		item, err := svc.Create(GalleryInput{
			ImageURL:   fmt.Sprintf("https://cdn.example.ae/%s/%d.jpg", div, i),
			StorageKey: fmt.Sprintf("gallery/%s/%d.jpg", div, i),
			AltText:    fmt.Sprintf("%s project %d", div, i),
			Division:   string(div),
		})
		if err != nil {
			t.Fatalf("failed to seed gallery image: %v", err)
		}
		items = append(items, *item)
	}
	return items
}

func TestGalleryCreateAppendsWithinDivision(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewGalleryService(gdb, nil, nil)

	if _, err := svc.Create(GalleryInput{}); !errors.Is(err, ErrGalleryImageMissing) {
		t.Fatalf("expected ErrGalleryImageMissing, got %v", err)
	}
	if _, err := svc.Create(GalleryInput{ImageURL: "https://x/y.jpg", AltText: "stand", Division: "catering"}); !errors.Is(err, ErrInvalidDivision) {
		t.Fatalf("expected ErrInvalidDivision, got %v", err)
	}

	seedGallery(t, svc, division.Retail, 2)
	events := seedGallery(t, svc, division.Events, 3)
	if events[0].DisplayOrder != 0 || events[2].DisplayOrder != 2 {
		t.Fatalf("expected events to be numbered from 0, got %d and %d", events[0].DisplayOrder, events[2].DisplayOrder)
	}

	list, err := svc.ListByDivision(context.Background(), division.Retail)
	if err != nil {
		t.Fatalf("failed to list division: %v", err)
	}
	if len(list) != 2 || list[1].DisplayOrder != 1 {
		t.Fatalf("expected two retail images in order, got %+v", list)
	}
}

func TestGalleryReorderPersistsArrayPositions(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewGalleryService(gdb, nil, nil)
	seeded := seedGallery(t, svc, division.Exhibitions, 5)

	moved, err := svc.Reorder(context.Background(), division.Exhibitions, 4, 1)
	if err != nil {
		t.Fatalf("reorder failed: %v", err)
	}

	wantIDs := []uint{seeded[0].ID, seeded[4].ID, seeded[1].ID, seeded[2].ID, seeded[3].ID}
	for i, item := range moved {
		if item.ID != wantIDs[i] {
			t.Fatalf("position %d: expected id %d, got %d", i, wantIDs[i], item.ID)
		}
	}

	persisted, err := svc.ListByDivision(context.Background(), division.Exhibitions)
	if err != nil {
		t.Fatalf("failed to reload division: %v", err)
	}
	for i, item := range persisted {
		if item.DisplayOrder != i {
			t.Fatalf("expected persisted order %d at position %d, got %d", i, i, item.DisplayOrder)
		}
		if item.ID != wantIDs[i] {
			t.Fatalf("persisted position %d: expected id %d, got %d", i, wantIDs[i], item.ID)
		}
	}
}

func TestGalleryReorderRejectsBadIndex(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewGalleryService(gdb, nil, nil)
	seedGallery(t, svc, division.Interiors, 2)

	for _, tc := range [][2]int{{-1, 0}, {0, 2}, {5, 0}} {
		if _, err := svc.Reorder(context.Background(), division.Interiors, tc[0], tc[1]); !errors.Is(err, ErrReorderIndex) {
			t.Fatalf("expected ErrReorderIndex for %v, got %v", tc, err)
		}
	}
}

func TestGalleryReorderStopsOnCancelledContext(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewGalleryService(gdb, nil, nil)
	seedGallery(t, svc, division.Retail, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Reorder(ctx, division.Retail, 0, 2)
	var reorderErr *ReorderError
	if !errors.As(err, &reorderErr) {
		if errors.Is(err, context.Canceled) {
			// the initial load already observed the cancellation
			return
		}
		t.Fatalf("expected ReorderError, got %v", err)
	}
	if reorderErr.Written != 0 || reorderErr.Total != 3 {
		t.Fatalf("unexpected progress %d/%d", reorderErr.Written, reorderErr.Total)
	}
}

func TestMoveItem(t *testing.T) {
	cases := []struct {
		from, to int
		want     string
	}{
		{0, 2, "bcad"},
		{3, 0, "dabc"},
		{1, 1, "abcd"},
		{0, 3, "bcda"},
	}
	for _, tc := range cases {
		got := MoveItem([]rune("abcd"), tc.from, tc.to)
		if string(got) != tc.want {
			t.Fatalf("move %d->%d: expected %s, got %s", tc.from, tc.to, tc.want, string(got))
		}
	}
}

func TestGalleryCapabilitySlotIsExclusivePerDivision(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewGalleryService(gdb, nil, nil)
	events := seedGallery(t, svc, division.Events, 2)
	retail := seedGallery(t, svc, division.Retail, 1)

	slot := 2
	for _, id := range []uint{events[0].ID, retail[0].ID, events[1].ID} {
		if _, err := svc.AssignCapabilitySlot(id, &slot); err != nil {
			t.Fatalf("assign slot failed: %v", err)
		}
	}

	cards, err := svc.CapabilityCards(division.Events)
	if err != nil {
		t.Fatalf("failed to load cards: %v", err)
	}
	if len(cards) != 1 || cards[0].ID != events[1].ID {
		t.Fatalf("expected only the last events image to hold the slot, got %+v", cards)
	}

	retailCards, err := svc.CapabilityCards(division.Retail)
	if err != nil {
		t.Fatalf("failed to load retail cards: %v", err)
	}
	if len(retailCards) != 1 {
		t.Fatalf("expected retail slot to be untouched, got %d cards", len(retailCards))
	}

	if _, err := svc.AssignCapabilitySlot(events[1].ID, nil); err != nil {
		t.Fatalf("clear slot failed: %v", err)
	}
	cards, _ = svc.CapabilityCards(division.Events)
	if len(cards) != 0 {
		t.Fatalf("expected slot to be cleared, got %d cards", len(cards))
	}

	bad := db.CapabilitySlotCount
	if _, err := svc.AssignCapabilitySlot(events[0].ID, &bad); !errors.Is(err, ErrCapabilitySlotInvalid) {
		t.Fatalf("expected ErrCapabilitySlotInvalid, got %v", err)
	}
}

func TestGalleryDeleteRemovesBlobAndRow(t *testing.T) {
	gdb := setupServiceTestDB(t)
	store := newMemoryStorage()
	svc := NewGalleryService(gdb, store, nil)
	items := seedGallery(t, svc, division.Interiors, 1)

	if err := svc.Delete(context.Background(), items[0].ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if len(store.deletions) != 1 || store.deletions[0] != items[0].StorageKey {
		t.Fatalf("expected blob %s to be deleted, got %v", items[0].StorageKey, store.deletions)
	}
	if _, err := svc.Get(items[0].ID); !errors.Is(err, ErrGalleryNotFound) {
		t.Fatalf("expected row to be gone, got %v", err)
	}

	var count int64
	gdb.Unscoped().Model(&db.GalleryImage{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected hard delete, found %d rows", count)
	}
}

func TestGalleryDeleteKeepsRowWhenBlobFails(t *testing.T) {
	gdb := setupServiceTestDB(t)
	store := newMemoryStorage()
	store.failDel = errors.New("bucket unavailable")
	svc := NewGalleryService(gdb, store, nil)
	items := seedGallery(t, svc, division.Events, 1)

	if err := svc.Delete(context.Background(), items[0].ID); err == nil {
		t.Fatalf("expected delete to fail")
	}
	if _, err := svc.Get(items[0].ID); err != nil {
		t.Fatalf("expected row to survive, got %v", err)
	}
}

func TestGalleryUpdateMovesDivision(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewGalleryService(gdb, nil, nil)
	seedGallery(t, svc, division.Retail, 2)
	events := seedGallery(t, svc, division.Events, 1)

	slot := 0
	if _, err := svc.AssignCapabilitySlot(events[0].ID, &slot); err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	target := "Retail"
	caption := "  Mall kiosk  "
	keywords := []string{"kiosk", " Kiosk ", "", "mall"}
	updated, err := svc.Update(events[0].ID, GalleryMetadata{Division: &target, Caption: &caption, Keywords: &keywords})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Division != "retail" || updated.DisplayOrder != 2 {
		t.Fatalf("expected image appended to retail, got %s/%d", updated.Division, updated.DisplayOrder)
	}
	if updated.CapabilitySlot != nil {
		t.Fatalf("expected capability slot to be dropped on division change")
	}
	if updated.Caption != "Mall kiosk" {
		t.Fatalf("expected trimmed caption, got %q", updated.Caption)
	}
	if len(updated.Keywords) != 2 {
		t.Fatalf("expected deduplicated keywords, got %v", updated.Keywords)
	}

	empty := " "
	if _, err := svc.Update(events[0].ID, GalleryMetadata{AltText: &empty}); !errors.Is(err, ErrGalleryAltMissing) {
		t.Fatalf("expected ErrGalleryAltMissing, got %v", err)
	}
}

func TestGalleryFeaturedAndNormalize(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewGalleryService(gdb, nil, nil)
	items := seedGallery(t, svc, division.Exhibitions, 3)

	if _, err := svc.SetFeatured(items[1].ID, true); err != nil {
		t.Fatalf("set featured failed: %v", err)
	}
	featured, err := svc.ListFeatured(0)
	if err != nil {
		t.Fatalf("list featured failed: %v", err)
	}
	if len(featured) != 1 || featured[0].ID != items[1].ID {
		t.Fatalf("expected one featured image, got %+v", featured)
	}

	onlyFeatured := true
	result, err := svc.List(GalleryFilter{Division: "exhibitions", Featured: &onlyFeatured})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("expected 1 featured exhibitions image, got %d", result.Total)
	}

	gdb.Model(&db.GalleryImage{}).Where("id = ?", items[0].ID).Update("display_order", 10)
	gdb.Model(&db.GalleryImage{}).Where("id = ?", items[2].ID).Update("display_order", 7)

	changed, err := svc.Normalize(context.Background(), division.Exhibitions)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if changed != 3 {
		t.Fatalf("expected 3 rows renumbered, got %d", changed)
	}
	list, _ := svc.ListByDivision(context.Background(), division.Exhibitions)
	if list[0].ID != items[1].ID || list[1].ID != items[2].ID || list[2].ID != items[0].ID {
		t.Fatalf("unexpected normalized order: %+v", list)
	}
}
