// Package photo keeps product photo blobs in step with product rows.
//
// Blobs are written before the row that references them and removed only
// after the row no longer does, so a row never points at a missing blob.
// Best-effort removals are logged and counted, never surfaced.
package photo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/xinodeprinz/edstock-server/internal/metrics"
	"github.com/xinodeprinz/edstock-server/internal/storage"
)

const (
	// MaxUploadSize is the largest accepted photo in bytes
	MaxUploadSize = 5 << 20

	// URLPrefix is where the blob store is served
	URLPrefix = "/uploads/"
	keyPrefix = "products/"

	sniffLen = 3072
)

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

// Upload is a received file not yet written to the store
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Manager writes, replaces and removes product photos
type Manager struct {
	store   storage.Store
	logger  *zap.Logger
	metrics *metrics.Metrics

	now    func() time.Time
	digits func() int64
}

// NewManager creates a photo manager over store
func NewManager(store storage.Store, logger *zap.Logger, m *metrics.Metrics) *Manager {
	return &Manager{
		store:   store,
		logger:  logger,
		metrics: m,
		now:     time.Now,
		digits:  func() int64 { return rand.Int64N(1_000_000_000) },
	}
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

// Admit checks the declared type and size of an upload. A nil upload is
// always admitted.
func Admit(up *Upload) error {
	if up == nil {
		return nil
	}
	if !allowedTypes[mediaType(up.ContentType)] {
		return &ValidationError{Field: "photo", Err: ErrUnsupportedType}
	}
	if up.Size > MaxUploadSize {
		return &ValidationError{Field: "photo", Err: ErrTooLarge}
	}
	return nil
}

// AttachOnCreate writes up and hands its public path to persist. When persist
// fails the fresh blob is discarded and persist's error is returned unchanged.
// A nil upload calls persist with a nil path.
func (m *Manager) AttachOnCreate(ctx context.Context, up *Upload, persist func(photo *string) error) error {
	if up == nil {
		return persist(nil)
	}

	written, err := m.write(ctx, up)
	if err != nil {
		return err
	}

	if err := persist(&written); err != nil {
		m.Discard(ctx, written)
		return err
	}
	return nil
}

// ReplaceOnUpdate writes up, hands its path to persist and, once persist has
// succeeded, removes the previous blob. A nil upload calls persist with
// existing unchanged.
func (m *Manager) ReplaceOnUpdate(ctx context.Context, existing *string, up *Upload, persist func(photo *string) error) error {
	if up == nil {
		return persist(existing)
	}

	written, err := m.write(ctx, up)
	if err != nil {
		return err
	}

	if err := persist(&written); err != nil {
		m.Discard(ctx, written)
		return err
	}

	if existing != nil && *existing != "" && *existing != written {
		m.remove(ctx, *existing, metrics.CleanupReplace)
	}
	return nil
}

// RemoveOnDelete removes the photo of a product whose row is already gone
func (m *Manager) RemoveOnDelete(ctx context.Context, existing *string) {
	if existing == nil || *existing == "" {
		return
	}
	m.remove(ctx, *existing, metrics.CleanupDelete)
}

// Discard removes a blob that was written but never referenced
func (m *Manager) Discard(ctx context.Context, photoPath string) {
	m.remove(ctx, photoPath, metrics.CleanupDiscard)
}

func (m *Manager) remove(ctx context.Context, photoPath, op string) {
	key, ok := KeyFromPath(photoPath)
	if !ok {
		m.logger.Warn("Photo path outside the upload store, not removed",
			zap.String("photo", photoPath),
			zap.String("op", op),
		)
		return
	}

	if err := m.store.Delete(ctx, key); err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			m.logger.Warn("Photo already missing", zap.String("photo", photoPath), zap.String("op", op))
			return
		}
		m.metrics.PhotoCleanupFailed(op)
		m.logger.Warn("Failed to remove photo",
			zap.String("photo", photoPath),
			zap.String("op", op),
			zap.Error(err),
		)
	}
}

func (m *Manager) write(ctx context.Context, up *Upload) (string, error) {
	if err := Admit(up); err != nil {
		return "", err
	}

	ext, body := m.extension(up)
	key := keyPrefix + m.fileName(ext)

	err := m.store.Put(ctx, key, &capReader{r: body})
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			return "", &ValidationError{Field: "photo", Err: ErrTooLarge}
		}
		return "", &StorageError{Op: "write", Key: key, Err: err}
	}

	m.logger.Debug("Photo stored", zap.String("key", key), zap.String("content_type", up.ContentType))
	return URLPrefix + key, nil
}

func (m *Manager) fileName(ext string) string {
	return fmt.Sprintf("%d-%09d%s", m.now().UnixMilli(), m.digits(), ext)
}

// extension keeps the original file extension; without one it is derived from
// the declared content type, then from the leading bytes of the body.
func (m *Manager) extension(up *Upload) (string, io.Reader) {
	if ext := path.Ext(path.Base(up.Filename)); ext != "" && ext != "." {
		return ext, up.Body
	}

	declared := mediaType(up.ContentType)
	if declared == "image/jpg" {
		declared = "image/jpeg"
	}
	if mt := mimetype.Lookup(declared); mt != nil && mt.Extension() != "" {
		return mt.Extension(), up.Body
	}

	header := make([]byte, sniffLen)
	n, _ := io.ReadFull(up.Body, header)
	header = header[:n]
	body := io.MultiReader(bytes.NewReader(header), up.Body)

	return mimetype.Detect(header).Extension(), body
}

// KeyFromPath maps a public photo path back to its blob key
func KeyFromPath(photoPath string) (string, bool) {
	key, ok := strings.CutPrefix(photoPath, URLPrefix)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// capReader fails once more than MaxUploadSize bytes have been read, catching
// uploads whose declared size understates the body.
type capReader struct {
	r io.Reader
	n int64
}

func (c *capReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if c.n > MaxUploadSize {
		return n, ErrTooLarge
	}
	return n, err
}
