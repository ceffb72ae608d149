package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/floorplan-editor/backend/internal/models"
	"github.com/floorplan-editor/backend/internal/storage"
	"github.com/google/uuid"
)

// open fetches the published map and loads its first floor. Writable
// sessions seed the working copy from it unless unsaved work is waiting,
// in which case the session stays on the published data until the user
// restores or discards.
func (s *EditorSession) open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	base, err := s.source.Fetch(ctx, s.Scope)
	if errors.Is(err, storage.ErrNotFound) {
		base = s.newBundle()
		s.logf("No published map %s/%s, starting empty", s.Scope.MapID, s.Scope.Version)
	} else if err != nil {
		return fmt.Errorf("fetching map: %w", err)
	}
	if len(base.Map.Layouts) == 0 {
		l := s.newLayout("Floor 1")
		base.Map.Layouts = append(base.Map.Layouts, models.Layout{LayoutID: l.LayoutID, LayoutName: l.LayoutName})
		base.Layouts = append(base.Layouts, *l)
	}
	s.base = base

	if !s.readOnly {
		unsaved, err := s.repo.IsUnsaved(ctx, s.Scope)
		if err != nil {
			return fmt.Errorf("reading unsaved flag: %w", err)
		}
		s.unsaved = unsaved
		s.pendingRecovery = unsaved
	}
	if s.writable() {
		if err := s.repo.SaveBundle(ctx, s.Scope, base); err != nil {
			return fmt.Errorf("seeding working copy: %w", err)
		}
	}

	m := cloneSaveData(&base.Map)
	s.saveData = &m
	first, err := s.readLayout(ctx, s.saveData.Layouts[0].LayoutID)
	if err != nil {
		return err
	}
	s.loadActive(first)
	s.logf("Opened %s/%s (%d layouts, readOnly=%v, recovery=%v)",
		s.Scope.MapID, s.Scope.Version, len(s.saveData.Layouts), s.readOnly, s.pendingRecovery)
	return nil
}

func (s *EditorSession) newBundle() *storage.MapBundle {
	return &storage.MapBundle{
		Map: models.SaveData{
			MapID:         s.Scope.MapID,
			Version:       s.Scope.Version,
			Layouts:       make([]models.Layout, 0),
			Preferences:   s.opts.MapPrefs,
			EditorVersion: s.opts.EditorVersion,
		},
	}
}

func (s *EditorSession) newLayout(name string) *models.LayoutData {
	return models.NewLayoutData(uuid.NewString(), name, s.opts.LayoutPrefs)
}

// readLayout returns a private copy of a floor listed in the map record.
func (s *EditorSession) readLayout(ctx context.Context, layoutID string) (*models.LayoutData, error) {
	idx := s.saveData.LayoutIndex(layoutID)
	if idx < 0 {
		return nil, fmt.Errorf("layout %s: %w", layoutID, ErrLayoutNotFound)
	}
	var layout *models.LayoutData
	if s.writable() {
		l, err := s.repo.LoadLayout(ctx, s.Scope, layoutID)
		if err != nil {
			return nil, fmt.Errorf("loading layout %s: %w", layoutID, err)
		}
		layout = l
	} else {
		for i := range s.base.Layouts {
			if s.base.Layouts[i].LayoutID == layoutID {
				l := cloneLayout(&s.base.Layouts[i])
				layout = &l
				break
			}
		}
		if layout == nil {
			layout = &models.LayoutData{LayoutID: layoutID}
		}
	}
	layout.LayoutName = s.saveData.Layouts[idx].LayoutName
	if layout.Maps == nil {
		layout.Maps = make([]models.ShapeEntry, 0)
	}
	if layout.Areas == nil {
		layout.Areas = make([]models.ShapeEntry, 0)
	}
	if layout.Preferences == (models.LayoutPreferences{}) {
		layout.Preferences = s.opts.LayoutPrefs
	}
	return layout, nil
}

func (s *EditorSession) markDirty() {
	s.dirty = true
}

// flushLocked writes the live floor and the map record to the working copy.
func (s *EditorSession) flushLocked(ctx context.Context) error {
	s.captureActive()
	if !s.writable() {
		return nil
	}
	if s.active != nil {
		if err := s.repo.SaveLayout(ctx, s.Scope, s.active); err != nil {
			return fmt.Errorf("saving layout %s: %w", s.active.LayoutID, err)
		}
	}
	if err := s.repo.SaveMap(ctx, s.Scope, s.saveData); err != nil {
		return fmt.Errorf("saving map: %w", err)
	}
	if s.dirty {
		if err := s.repo.SetUnsaved(ctx, s.Scope, true); err != nil {
			return fmt.Errorf("setting unsaved flag: %w", err)
		}
		s.unsaved = true
		s.dirty = false
	}
	return nil
}

// Autosave flushes pending edits. It reports whether anything was written.
func (s *EditorSession) Autosave(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty || !s.writable() {
		return false, nil
	}
	if err := s.flushLocked(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// HasUnsavedData reports whether the working copy differs from the
// published map.
func (s *EditorSession) HasUnsavedData() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsaved || s.dirty
}

// Save publishes the working copy and clears the unsaved flag.
func (s *EditorSession) Save(ctx context.Context) error {
	defer s.events.flush()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkMutable(); err != nil {
		return err
	}
	s.saveData.EditorVersion = s.opts.EditorVersion
	if err := s.flushLocked(ctx); err != nil {
		return err
	}
	bundle, err := s.repo.LoadBundle(ctx, s.Scope)
	if err != nil {
		return fmt.Errorf("reading working copy: %w", err)
	}
	if err := s.source.Publish(ctx, s.Scope, bundle); err != nil {
		return fmt.Errorf("publishing map: %w", err)
	}
	if err := s.repo.SetUnsaved(ctx, s.Scope, false); err != nil {
		return fmt.Errorf("clearing unsaved flag: %w", err)
	}
	s.base = bundle
	s.unsaved = false
	s.dirty = false
	s.events.queue(Event{Type: EventSaved, SessionID: s.ID})
	s.logf("Saved %s/%s (%d layouts)", s.Scope.MapID, s.Scope.Version, len(bundle.Layouts))
	return nil
}

// RestoreUnsaved switches a session waiting on recovery to the unsaved
// working copy.
func (s *EditorSession) RestoreUnsaved(ctx context.Context) error {
	defer s.events.flush()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readOnly {
		return ErrReadOnly
	}
	if !s.pendingRecovery {
		return ErrNothingToRestore
	}
	bundle, err := s.repo.LoadBundle(ctx, s.Scope)
	if err != nil {
		return fmt.Errorf("reading unsaved data: %w", err)
	}
	if len(bundle.Map.Layouts) == 0 {
		return fmt.Errorf("unsaved map has no layouts: %w", ErrNothingToRestore)
	}
	if err := s.clearLayers(); err != nil {
		return err
	}
	s.pendingRecovery = false
	m := cloneSaveData(&bundle.Map)
	s.saveData = &m
	first, err := s.readLayout(ctx, s.saveData.Layouts[0].LayoutID)
	if err != nil {
		return err
	}
	s.loadActive(first)
	s.history.Reset()
	s.events.queue(Event{Type: EventLayout, SessionID: s.ID, LayoutID: first.LayoutID})
	s.logf("Restored unsaved data (%d layouts)", len(s.saveData.Layouts))
	return nil
}

// DiscardUnsaved drops the unsaved working copy and keeps the published
// map that is already loaded.
func (s *EditorSession) DiscardUnsaved(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readOnly {
		return ErrReadOnly
	}
	if !s.pendingRecovery {
		return ErrNothingToRestore
	}
	if err := s.repo.SaveBundle(ctx, s.Scope, s.base); err != nil {
		return fmt.Errorf("resetting working copy: %w", err)
	}
	if err := s.repo.SetUnsaved(ctx, s.Scope, false); err != nil {
		return fmt.Errorf("clearing unsaved flag: %w", err)
	}
	s.pendingRecovery = false
	s.unsaved = false
	s.history.Reset()
	s.logf("Discarded unsaved data")
	return nil
}

func cloneSaveData(d *models.SaveData) models.SaveData {
	out := *d
	out.Layouts = append([]models.Layout(nil), d.Layouts...)
	out.Preferences.CustomFormat = append([]models.CustomPick(nil), d.Preferences.CustomFormat...)
	return out
}

func cloneLayout(l *models.LayoutData) models.LayoutData {
	out := *l
	out.Maps = models.CloneEntries(l.Maps)
	out.Areas = models.CloneEntries(l.Areas)
	out.LatestWallBranchNums = cloneCounters(l.LatestWallBranchNums)
	out.LatestIslandBranchNums = cloneCounters(l.LatestIslandBranchNums)
	if l.Preferences.CaptureRange != nil {
		r := *l.Preferences.CaptureRange
		out.Preferences.CaptureRange = &r
	}
	return out
}

func cloneCounters(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
