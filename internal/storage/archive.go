package storage

import (
	"context"
	"fmt"

	"github.com/floorplan-editor/backend/internal/models"
)

// MapBundle is a map record together with all of its floors.
type MapBundle struct {
	Map     models.SaveData     `json:"map"`
	Layouts []models.LayoutData `json:"layouts"`
}

// MapSource is where published maps are fetched from and saved to.
type MapSource interface {
	// Fetch returns ErrNotFound for an unknown map.
	Fetch(ctx context.Context, s Scope) (*MapBundle, error)
	Publish(ctx context.Context, s Scope, b *MapBundle) error
}

// Archive is a MapSource kept in a KVStore, one record per map version.
type Archive struct {
	store KVStore
}

// NewArchive wraps a KVStore.
func NewArchive(store KVStore) *Archive {
	return &Archive{store: store}
}

func (a *Archive) Fetch(ctx context.Context, s Scope) (*MapBundle, error) {
	data, ok, err := a.store.Get(ctx, ArchiveKey(s))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("archive %s/%s: %w", s.MapID, s.Version, ErrNotFound)
	}
	var b MapBundle
	if err := Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decoding archive: %w", err)
	}
	return &b, nil
}

func (a *Archive) Publish(ctx context.Context, s Scope, b *MapBundle) error {
	data, err := Marshal(b)
	if err != nil {
		return fmt.Errorf("encoding archive: %w", err)
	}
	return a.store.Set(ctx, ArchiveKey(s), data)
}
