package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/facette/natsort"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dxbfab/site/internal/db"
	"github.com/dxbfab/site/internal/division"
	"github.com/dxbfab/site/internal/logging"
	"github.com/dxbfab/site/internal/media"
	"github.com/dxbfab/site/internal/storage"
)

// Per-file failure reasons that are not image rejections.
const (
	UploadReasonStorage   = "storage error"
	UploadReasonDatabase  = "database error"
	UploadReasonCancelled = "cancelled"
	UploadReasonRead      = "could not read file"
)

// UploadFile is one file of a batch.
type UploadFile struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// UploadMetadata is applied to every image of a batch.
type UploadMetadata struct {
	Project string
	Caption string
	AltText string
}

// UploadFailure names a file that did not make it and why.
type UploadFailure struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// BatchResult counts the outcome of a batch. Failed files are never retried.
type BatchResult struct {
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Items     []db.GalleryImage `json:"items"`
	Failures  []UploadFailure   `json:"failures"`
}

// Summary renders the "N succeeded, M failed" line shown to the operator.
func (r BatchResult) Summary() string {
	return fmt.Sprintf("%d succeeded, %d failed", r.Succeeded, r.Failed)
}

// UploadService validates, compresses and stores gallery uploads.
type UploadService struct {
	gallery    *GalleryService
	store      storage.Storage
	limits     media.Limits
	compressor *media.Compressor
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string
}

// NewUploadService wires the pipeline.
func NewUploadService(gallery *GalleryService, store storage.Storage, limits media.Limits, compressor *media.Compressor, logger *zap.Logger) *UploadService {
	if compressor == nil {
		compressor = media.NewCompressor(0, 0)
	}
	return &UploadService{
		gallery:    gallery,
		store:      store,
		limits:     limits,
		compressor: compressor,
		logger:     logging.OrNop(logger),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// UploadBatch processes files one by one in natural filename order. Each file
// is validated, compressed, stored and appended to the division; a failure is
// recorded and the batch moves on.
func (s *UploadService) UploadBatch(ctx context.Context, rawDivision string, files []UploadFile, meta UploadMetadata) (BatchResult, error) {
	div, err := division.Parse(rawDivision)
	if err != nil {
		return BatchResult{}, ErrInvalidDivision
	}

	ordered := make([]UploadFile, len(files))
	copy(ordered, files)
	sort.SliceStable(ordered, func(i, j int) bool {
		return natsort.Compare(ordered[i].Name, ordered[j].Name)
	})

	result := BatchResult{
		Items:    make([]db.GalleryImage, 0, len(ordered)),
		Failures: make([]UploadFailure, 0),
	}
	for _, file := range ordered {
		if ctx.Err() != nil {
			result.fail(file.Name, UploadReasonCancelled)
			continue
		}

		item, reason, err := s.uploadOne(ctx, div, file, meta)
		if err != nil {
			s.logger.Warn("gallery upload failed",
				zap.String("file", file.Name),
				zap.String("division", string(div)),
				zap.String("reason", reason),
				zap.Error(err),
			)
			result.fail(file.Name, reason)
			continue
		}
		result.Succeeded++
		result.Items = append(result.Items, *item)
	}

	s.logger.Info("gallery upload batch finished",
		zap.String("division", string(div)),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (r *BatchResult) fail(name, reason string) {
	r.Failed++
	r.Failures = append(r.Failures, UploadFailure{Name: name, Reason: reason})
}

func (s *UploadService) uploadOne(ctx context.Context, div division.Division, file UploadFile, meta UploadMetadata) (*db.GalleryImage, string, error) {
	if s.limits.MaxBytes > 0 && file.Size > s.limits.MaxBytes {
		return nil, media.ReasonFileTooLarge, &media.RejectionError{Reason: media.ReasonFileTooLarge}
	}

	data, err := s.read(file)
	if err != nil {
		var rejection *media.RejectionError
		if errors.As(err, &rejection) {
			return nil, rejection.Reason, err
		}
		return nil, UploadReasonRead, err
	}

	if _, err := s.limits.Validate(int64(len(data)), bytes.NewReader(data)); err != nil {
		var rejection *media.RejectionError
		if errors.As(err, &rejection) {
			return nil, rejection.Reason, err
		}
		return nil, media.ReasonUnsupported, err
	}

	compressed, err := s.compressor.Compress(bytes.NewReader(data))
	if err != nil {
		return nil, media.ReasonUnsupported, err
	}

	key := fmt.Sprintf("gallery/%s/%s-%s%s", div, s.now().UTC().Format("20060102"), s.newID(), media.OutputExtension)
	if err := s.store.Save(ctx, key, bytes.NewReader(compressed.Data), media.OutputContentType); err != nil {
		return nil, UploadReasonStorage, err
	}

	alt := strings.TrimSpace(meta.AltText)
	if alt == "" {
		alt = altFromFilename(file.Name, div)
	}

	item, err := s.gallery.Create(GalleryInput{
		ImageURL:   s.store.URL(key),
		StorageKey: key,
		AltText:    alt,
		Caption:    meta.Caption,
		Project:    meta.Project,
		Division:   string(div),
		Width:      compressed.Width,
		Height:     compressed.Height,
		Bytes:      int64(len(compressed.Data)),
	})
	if err != nil {
		if delErr := s.store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.logger.Error("orphaned gallery blob",
				zap.String("storage_key", key),
				zap.Error(delErr),
			)
		}
		return nil, UploadReasonDatabase, err
	}
	return item, "", nil
}

// read loads the file, stopping one byte past the limit so a lying Size
// cannot force an unbounded read.
func (s *UploadService) read(file UploadFile) ([]byte, error) {
	if file.Open == nil {
		return nil, errors.New("upload file has no content")
	}
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if s.limits.MaxBytes > 0 {
		r = io.LimitReader(rc, s.limits.MaxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if s.limits.MaxBytes > 0 && int64(len(data)) > s.limits.MaxBytes {
		return nil, &media.RejectionError{Reason: media.ReasonFileTooLarge}
	}
	return data, nil
}

// altFromFilename turns "dubai-expo_stand 03.png" into "Dubai expo stand 03".
func altFromFilename(name string, div division.Division) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	words := strings.FieldsFunc(base, func(r rune) bool {
		return r == '-' || r == '_' || unicode.IsSpace(r)
	})
	if len(words) == 0 || base == "." {
		if info, ok := division.Lookup(div); ok {
			return info.Label + " project"
		}
		return "Project image"
	}
	alt := strings.Join(words, " ")
	runes := []rune(alt)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
