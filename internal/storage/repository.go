package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/floorplan-editor/backend/internal/models"
)

// Repository reads and writes typed editor records.
type Repository struct {
	store KVStore
}

// NewRepository wraps a KVStore.
func NewRepository(store KVStore) *Repository {
	return &Repository{store: store}
}

// Store returns the underlying store.
func (r *Repository) Store() KVStore {
	return r.store
}

func (r *Repository) get(ctx context.Context, key string, v interface{}) (bool, error) {
	data, ok, err := r.store.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

func (r *Repository) put(ctx context.Context, key string, v interface{}) error {
	data, err := Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return r.store.Set(ctx, key, data)
}

// LoadMap reads the map record. It returns ErrNotFound when absent.
func (r *Repository) LoadMap(ctx context.Context, s Scope) (*models.SaveData, error) {
	var data models.SaveData
	ok, err := r.get(ctx, MapKey(s), &data)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("map %s/%s: %w", s.MapID, s.Version, ErrNotFound)
	}
	return &data, nil
}

// SaveMap writes the map record.
func (r *Repository) SaveMap(ctx context.Context, s Scope, data *models.SaveData) error {
	return r.put(ctx, MapKey(s), data)
}

// LoadLayout reads one floor. A missing record loads as an empty floor.
func (r *Repository) LoadLayout(ctx context.Context, s Scope, layoutID string) (*models.LayoutData, error) {
	var data models.LayoutData
	ok, err := r.get(ctx, LayoutKey(s, layoutID), &data)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &models.LayoutData{LayoutID: layoutID}, nil
	}
	return &data, nil
}

// SaveLayout writes one floor under its own key.
func (r *Repository) SaveLayout(ctx context.Context, s Scope, data *models.LayoutData) error {
	return r.put(ctx, LayoutKey(s, data.LayoutID), data)
}

// DeleteLayout removes one floor.
func (r *Repository) DeleteLayout(ctx context.Context, s Scope, layoutID string) error {
	return r.store.Delete(ctx, LayoutKey(s, layoutID))
}

// LayoutIDs lists the floors named by the stored map record of s. Floor keys
// are not scanned by prefix: version "1" would also match version "1.2".
func (r *Repository) LayoutIDs(ctx context.Context, s Scope) ([]string, error) {
	m, err := r.LoadMap(ctx, s)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(m.Layouts))
	for _, l := range m.Layouts {
		ids = append(ids, l.LayoutID)
	}
	return ids, nil
}

// SetUnsaved records whether s holds edits not yet published.
func (r *Repository) SetUnsaved(ctx context.Context, s Scope, unsaved bool) error {
	if !unsaved {
		return r.store.Delete(ctx, UnsavedKey(s))
	}
	return r.put(ctx, UnsavedKey(s), true)
}

// IsUnsaved reports the unsaved flag.
func (r *Repository) IsUnsaved(ctx context.Context, s Scope) (bool, error) {
	var flag bool
	ok, err := r.get(ctx, UnsavedKey(s), &flag)
	if err != nil {
		return false, err
	}
	return ok && flag, nil
}

// LoadBundle reads the map and every floor it lists, in tab order.
func (r *Repository) LoadBundle(ctx context.Context, s Scope) (*MapBundle, error) {
	m, err := r.LoadMap(ctx, s)
	if err != nil {
		return nil, err
	}
	bundle := &MapBundle{Map: *m}
	for _, l := range m.Layouts {
		data, err := r.LoadLayout(ctx, s, l.LayoutID)
		if err != nil {
			return nil, err
		}
		bundle.Layouts = append(bundle.Layouts, *data)
	}
	return bundle, nil
}

// SaveBundle writes the map and every floor, and drops floors the previous
// map record listed that the new one no longer does.
func (r *Repository) SaveBundle(ctx context.Context, s Scope, b *MapBundle) error {
	previous, err := r.LayoutIDs(ctx, s)
	if err != nil {
		return err
	}
	keep := make(map[string]bool, len(b.Layouts))
	for i := range b.Layouts {
		if err := r.SaveLayout(ctx, s, &b.Layouts[i]); err != nil {
			return err
		}
		keep[b.Layouts[i].LayoutID] = true
	}
	if err := r.SaveMap(ctx, s, &b.Map); err != nil {
		return err
	}
	for _, id := range previous {
		if !keep[id] {
			if err := r.DeleteLayout(ctx, s, id); err != nil {
				return err
			}
		}
	}
	return nil
}
