package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/floorplan-editor/backend/internal/models"
	"github.com/floorplan-editor/backend/internal/numbering"
	"github.com/google/uuid"
)

// SwitchLayout makes layoutID the active floor. The current floor is
// flushed first, then every layer is cleared, then the target is loaded.
// History does not cross floors.
func (s *EditorSession) SwitchLayout(ctx context.Context, layoutID string) error {
	defer s.events.flush()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingRecovery {
		return ErrRecoveryPending
	}
	if s.saveData.LayoutIndex(layoutID) < 0 {
		return fmt.Errorf("layout %s: %w", layoutID, ErrLayoutNotFound)
	}
	if s.active != nil && s.active.LayoutID == layoutID {
		return nil
	}
	if err := s.flushLocked(ctx); err != nil {
		return err
	}
	if err := s.clearLayers(); err != nil {
		return err
	}
	next, err := s.readLayout(ctx, layoutID)
	if err != nil {
		return err
	}
	s.loadActive(next)
	s.history.Reset()
	s.events.queue(Event{Type: EventLayout, SessionID: s.ID, LayoutID: layoutID})
	s.logf("Switched to layout %s (%d maps, %d areas)", layoutID, len(next.Maps), len(next.Areas))
	return nil
}

// AddLayout appends an empty floor to the tab order.
func (s *EditorSession) AddLayout(ctx context.Context, name string) (models.Layout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkMutable(); err != nil {
		return models.Layout{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("Floor %d", len(s.saveData.Layouts)+1)
	}
	l := s.newLayout(name)
	if err := s.repo.SaveLayout(ctx, s.Scope, l); err != nil {
		return models.Layout{}, fmt.Errorf("saving layout: %w", err)
	}
	meta := models.Layout{LayoutID: l.LayoutID, LayoutName: l.LayoutName}
	s.saveData.Layouts = append(s.saveData.Layouts, meta)
	s.markDirty()
	return meta, s.flushLocked(ctx)
}

// DuplicateLayout copies a floor with fresh uuids for the floor and every
// shape, and places the copy right after the source.
func (s *EditorSession) DuplicateLayout(ctx context.Context, layoutID, name string) (models.Layout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkMutable(); err != nil {
		return models.Layout{}, err
	}
	idx := s.saveData.LayoutIndex(layoutID)
	if idx < 0 {
		return models.Layout{}, fmt.Errorf("layout %s: %w", layoutID, ErrLayoutNotFound)
	}
	if err := s.flushLocked(ctx); err != nil {
		return models.Layout{}, err
	}
	src, err := s.readLayout(ctx, layoutID)
	if err != nil {
		return models.Layout{}, err
	}

	dup := cloneLayout(src)
	dup.LayoutID = uuid.NewString()
	dup.LayoutName = strings.TrimSpace(name)
	if dup.LayoutName == "" {
		dup.LayoutName = src.LayoutName + " (copy)"
	}
	renumber(dup.Maps)
	renumber(dup.Areas)
	if err := s.repo.SaveLayout(ctx, s.Scope, &dup); err != nil {
		return models.Layout{}, fmt.Errorf("saving layout: %w", err)
	}

	meta := models.Layout{LayoutID: dup.LayoutID, LayoutName: dup.LayoutName}
	layouts := make([]models.Layout, 0, len(s.saveData.Layouts)+1)
	layouts = append(layouts, s.saveData.Layouts[:idx+1]...)
	layouts = append(layouts, meta)
	layouts = append(layouts, s.saveData.Layouts[idx+1:]...)
	s.saveData.Layouts = layouts
	s.markDirty()
	s.logf("Duplicated layout %s as %s", layoutID, dup.LayoutID)
	return meta, s.flushLocked(ctx)
}

func renumber(entries []models.ShapeEntry) {
	for i := range entries {
		id := uuid.NewString()
		entries[i].ID = id
		entries[i].Config.UUID = id
	}
}

// DeleteLayout removes a floor. A floor holding shapes is only removed
// with confirm. Deleting the active floor activates its neighbour.
func (s *EditorSession) DeleteLayout(ctx context.Context, layoutID string, confirm bool) error {
	defer s.events.flush()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkMutable(); err != nil {
		return err
	}
	idx := s.saveData.LayoutIndex(layoutID)
	if idx < 0 {
		return fmt.Errorf("layout %s: %w", layoutID, ErrLayoutNotFound)
	}
	if len(s.saveData.Layouts) == 1 {
		return ErrLastLayout
	}

	isActive := s.active != nil && s.active.LayoutID == layoutID
	var target *models.LayoutData
	if isActive {
		s.captureActive()
		target = s.active
	} else {
		l, err := s.readLayout(ctx, layoutID)
		if err != nil {
			return err
		}
		target = l
	}
	if !target.IsEmpty() && !confirm {
		return ErrConfirmationRequired
	}

	s.saveData.Layouts = append(s.saveData.Layouts[:idx:idx], s.saveData.Layouts[idx+1:]...)
	if err := s.repo.DeleteLayout(ctx, s.Scope, layoutID); err != nil {
		return fmt.Errorf("deleting layout: %w", err)
	}
	if isActive {
		if err := s.clearLayers(); err != nil {
			return err
		}
		s.active = nil
		if idx >= len(s.saveData.Layouts) {
			idx = len(s.saveData.Layouts) - 1
		}
		next, err := s.readLayout(ctx, s.saveData.Layouts[idx].LayoutID)
		if err != nil {
			return err
		}
		s.loadActive(next)
		s.history.Reset()
		s.events.queue(Event{Type: EventLayout, SessionID: s.ID, LayoutID: next.LayoutID})
	}
	s.markDirty()
	s.logf("Deleted layout %s", layoutID)
	return s.flushLocked(ctx)
}

// RenameLayout changes a floor's name.
func (s *EditorSession) RenameLayout(ctx context.Context, layoutID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkMutable(); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: layout name is empty", ErrInvalidOperation)
	}
	idx := s.saveData.LayoutIndex(layoutID)
	if idx < 0 {
		return fmt.Errorf("layout %s: %w", layoutID, ErrLayoutNotFound)
	}
	s.saveData.Layouts[idx].LayoutName = name
	if s.active != nil && s.active.LayoutID == layoutID {
		s.active.LayoutName = name
	} else {
		l, err := s.readLayout(ctx, layoutID)
		if err != nil {
			return err
		}
		if err := s.repo.SaveLayout(ctx, s.Scope, l); err != nil {
			return fmt.Errorf("saving layout: %w", err)
		}
	}
	s.markDirty()
	return s.flushLocked(ctx)
}

// ReorderLayouts sets the tab order. ids must list every floor once.
func (s *EditorSession) ReorderLayouts(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkMutable(); err != nil {
		return err
	}
	if len(ids) != len(s.saveData.Layouts) {
		return ErrInvalidLayoutOrder
	}
	seen := make(map[string]bool, len(ids))
	next := make([]models.Layout, 0, len(ids))
	for _, id := range ids {
		idx := s.saveData.LayoutIndex(id)
		if idx < 0 || seen[id] {
			return ErrInvalidLayoutOrder
		}
		seen[id] = true
		next = append(next, s.saveData.Layouts[idx])
	}
	s.saveData.Layouts = next
	s.markDirty()
	return s.flushLocked(ctx)
}

// UpdatePreferences replaces the map preferences and re-derives location
// numbers on every floor. It returns the number of shapes that changed.
func (s *EditorSession) UpdatePreferences(ctx context.Context, prefs models.MapPreferences) (int, error) {
	defer s.events.flush()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkMutable(); err != nil {
		return 0, err
	}
	if prefs.TableIDLength <= 0 || prefs.BranchNumLength <= 0 {
		return 0, fmt.Errorf("%w: segment lengths must be positive", ErrInvalidOperation)
	}
	if prefs.NumberFormat == "" {
		prefs.NumberFormat = models.NumberFormatStandard
	}
	if prefs.NumberFormat != models.NumberFormatStandard && prefs.NumberFormat != models.NumberFormatCustom {
		return 0, fmt.Errorf("%w: unknown number format %q", ErrInvalidOperation, prefs.NumberFormat)
	}
	if len(prefs.CustomFormat) > numbering.MaxCustomLength {
		return 0, fmt.Errorf("%w: custom format exceeds %d picks", ErrInvalidOperation, numbering.MaxCustomLength)
	}
	if prefs.DefaultFontSize <= 0 {
		prefs.DefaultFontSize = s.saveData.Preferences.DefaultFontSize
	}
	s.saveData.Preferences = prefs

	changed := 0
	for _, meta := range s.saveData.Layouts {
		if s.active != nil && meta.LayoutID == s.active.LayoutID {
			continue
		}
		l, err := s.readLayout(ctx, meta.LayoutID)
		if err != nil {
			return changed, err
		}
		if n := numbering.RederiveLayout(l, prefs); n > 0 {
			changed += n
			if err := s.repo.SaveLayout(ctx, s.Scope, l); err != nil {
				return changed, fmt.Errorf("saving layout %s: %w", l.LayoutID, err)
			}
		}
	}

	if s.active != nil {
		s.captureActive()
		if n := numbering.RederiveLayout(s.active, prefs); n > 0 {
			changed += n
			if err := s.clearLayers(); err != nil {
				return changed, err
			}
			s.loadActive(s.active)
			s.events.queue(Event{Type: EventLayout, SessionID: s.ID, LayoutID: s.active.LayoutID})
		}
	}
	s.history.Reset()
	s.markDirty()
	s.logf("Preferences updated, %d shapes re-derived", changed)
	return changed, s.flushLocked(ctx)
}

// Location is a freshly allocated location number.
type Location struct {
	TableID            string `json:"tableId"`
	BranchNum          string `json:"branchNum"`
	LocationNum        string `json:"locationNum"`
	DisplayLocationNum string `json:"displayLocationNum"`
}

// NextLocation allocates the next branch of tableID on the active floor,
// or of a new table when tableID is empty.
func (s *EditorSession) NextLocation(placement models.Placement, tableID string) (Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkMutable(); err != nil {
		return Location{}, err
	}
	if s.active == nil {
		return Location{}, ErrLayoutNotFound
	}
	if placement == "" {
		placement = models.PlacementWall
	}
	prefs := s.saveData.Preferences
	l := numbering.LengthsOf(prefs)
	if tableID == "" {
		tableID = numbering.NextTableID(s.active, l)
	} else {
		tableID = numbering.PadLeft(tableID, l.TableID)
	}
	branch := numbering.NextBranchNum(s.active, placement, tableID, l)
	loc := numbering.ComposeLocationNum(tableID, branch, l)
	s.markDirty()
	return Location{
		TableID:            tableID,
		BranchNum:          branch,
		LocationNum:        loc,
		DisplayLocationNum: numbering.DeriveDisplayNumber(loc, prefs.NumberFormat, prefs.CustomFormat, l),
	}, nil
}

// NextAreaID allocates the next area id of the active floor.
func (s *EditorSession) NextAreaID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkMutable(); err != nil {
		return "", err
	}
	if s.active == nil {
		return "", ErrLayoutNotFound
	}
	s.markDirty()
	return numbering.NextAreaID(s.active), nil
}
