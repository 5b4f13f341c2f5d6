package overlay

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/listing-customizer/internal/types"
)

type recordKey struct {
	userID    string
	productID string
}

// Memory is an in-process Store.
type Memory struct {
	mu      sync.Mutex
	records map[recordKey]*types.OverlayRecord
}

// NewMemory creates an empty in-memory overlay store.
func NewMemory() *Memory {
	return &Memory{records: make(map[recordKey]*types.OverlayRecord)}
}

func (m *Memory) Get(_ context.Context, userID, productID string) (*types.OverlayRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[recordKey{userID, productID}]
	if !ok {
		return nil, nil
	}
	return cloneRecord(rec), nil
}

func (m *Memory) Apply(_ context.Context, userID, productID string, patch types.OverlayPatch) (*types.OverlayRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.recordLocked(userID, productID)
	if patch.CustomTitle != nil {
		rec.CustomTitle = *patch.CustomTitle
	}
	if patch.SKU != nil {
		rec.SKU = *patch.SKU
	}
	if patch.Notes != nil {
		rec.Notes = *patch.Notes
	}
	if patch.CustomDescription != nil {
		rec.CustomDescription = *patch.CustomDescription
	}
	rec.UpdatedAt = time.Now().UTC()
	return cloneRecord(rec), nil
}

func (m *Memory) AddImage(_ context.Context, userID, productID, path string) (*types.OverlayImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.recordLocked(userID, productID)
	img := types.OverlayImage{ID: uuid.NewString(), Path: path, UploadedAt: time.Now().UTC()}
	rec.ExtraImages = append(rec.ExtraImages, img)
	rec.UpdatedAt = img.UploadedAt
	return &img, nil
}

func (m *Memory) RemoveImage(_ context.Context, userID, productID, imageID string) (*types.OverlayImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[recordKey{userID, productID}]
	if !ok {
		return nil, ErrImageNotFound
	}
	for i, img := range rec.ExtraImages {
		if img.ID == imageID {
			rec.ExtraImages = append(rec.ExtraImages[:i:i], rec.ExtraImages[i+1:]...)
			rec.UpdatedAt = time.Now().UTC()
			return &img, nil
		}
	}
	return nil, ErrImageNotFound
}

func (m *Memory) Delete(_ context.Context, userID, productID string) ([]types.OverlayImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := recordKey{userID, productID}
	rec, ok := m.records[key]
	if !ok {
		return nil, nil
	}
	delete(m.records, key)
	return rec.ExtraImages, nil
}

func (m *Memory) recordLocked(userID, productID string) *types.OverlayRecord {
	key := recordKey{userID, productID}
	rec, ok := m.records[key]
	if !ok {
		rec = &types.OverlayRecord{UserID: userID, ProductID: productID, ExtraImages: []types.OverlayImage{}}
		m.records[key] = rec
	}
	return rec
}

func cloneRecord(rec *types.OverlayRecord) *types.OverlayRecord {
	cp := *rec
	cp.ExtraImages = append([]types.OverlayImage{}, rec.ExtraImages...)
	return &cp
}
