// Package session holds live editor sessions: one open map version per
// session, with its layers, selection, history and persistence.
package session

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/floorplan-editor/backend/internal/history"
	"github.com/floorplan-editor/backend/internal/models"
	"github.com/floorplan-editor/backend/internal/reconciler"
	"github.com/floorplan-editor/backend/internal/render"
	"github.com/floorplan-editor/backend/internal/scene"
	"github.com/floorplan-editor/backend/internal/selection"
	"github.com/floorplan-editor/backend/internal/shape"
	"github.com/floorplan-editor/backend/internal/storage"
)

// Options configure every session opened by a Manager.
type Options struct {
	MaxSelection  int
	HistoryLimit  int
	Env           shape.Env
	OptimizeAbove int
	LayoutPrefs   models.LayoutPreferences
	MapPrefs      models.MapPreferences
	EditorVersion string
}

// DefaultOptions mirrors the defaults of the editor config section.
func DefaultOptions() Options {
	return Options{
		MaxSelection:  selection.DefaultMax,
		HistoryLimit:  history.Unbounded,
		Env:           shape.DefaultEnv(),
		OptimizeAbove: 2000,
		LayoutPrefs: models.LayoutPreferences{
			StageWidth:  2000,
			StageHeight: 1400,
			LatticeSize: 10,
		},
		MapPrefs: models.MapPreferences{
			TableIDLength:   2,
			BranchNumLength: 2,
			NumberFormat:    models.NumberFormatStandard,
			DefaultFontSize: 12,
		},
		EditorVersion: "1.0.0",
	}
}

// EditorSession is one user editing one map version.
type EditorSession struct {
	mu sync.Mutex

	ID       string
	User     models.User
	Scope    storage.Scope
	readOnly bool
	opts     Options

	repo     *storage.Repository
	source   storage.MapSource
	registry *shape.Registry
	renderer *render.Renderer

	saveData *models.SaveData
	active   *models.LayoutData
	// base is the published bundle. Sessions that never write keep their
	// floors here instead of in the repository.
	base *storage.MapBundle

	mapLayer     *reconciler.Reconciler
	areaLayer    *reconciler.Reconciler
	previewLayer *reconciler.Reconciler
	edit         *scene.Container
	selection    *selection.Selection
	history      *history.History
	env          shape.Env

	dirty           bool
	unsaved         bool
	pendingRecovery bool

	events       broadcaster
	lastAccessed time.Time
}

func newEditorSession(id string, user models.User, scope storage.Scope, readOnly bool, opts Options,
	repo *storage.Repository, source storage.MapSource, registry *shape.Registry, renderer *render.Renderer) *EditorSession {
	s := &EditorSession{
		ID:           id,
		User:         user,
		Scope:        scope,
		readOnly:     readOnly,
		opts:         opts,
		repo:         repo,
		source:       source,
		registry:     registry,
		renderer:     renderer,
		mapLayer:     reconciler.New("map", reconciler.MapShapes, registry),
		areaLayer:    reconciler.New("area", reconciler.AreaShapes, registry),
		previewLayer: reconciler.New("preview", reconciler.AllShapes, registry),
		edit:         scene.NewContainer("edit"),
		history:      history.New(opts.HistoryLimit),
		env:          opts.Env,
		lastAccessed: time.Now(),
	}
	s.selection = selection.New(s.edit, opts.MaxSelection, selection.NotifierFunc(func(requested, limit int) {
		s.events.queue(Event{
			Type:      EventDialog,
			SessionID: s.ID,
			Dialog:    &Dialog{Code: DialogSelectionLimit, Requested: requested, Limit: limit},
		})
	}))
	s.setEnvLocked(opts.Env)
	return s
}

func (s *EditorSession) logf(format string, args ...interface{}) {
	fmt.Printf("[Session %s] %s\n", shortID(s.ID), fmt.Sprintf(format, args...))
}

// Subscribe registers l for every event of the session. The returned
// function removes it.
func (s *EditorSession) Subscribe(l Listener) func() {
	return s.events.subscribe(l)
}

// ReadOnly reports whether the session may mutate the map.
func (s *EditorSession) ReadOnly() bool {
	return s.readOnly
}

// LastAccessed returns the time of the last touch.
func (s *EditorSession) LastAccessed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessed
}

func (s *EditorSession) touch() {
	s.mu.Lock()
	s.lastAccessed = time.Now()
	s.mu.Unlock()
}

// writable reports whether changes may be persisted to the repository.
func (s *EditorSession) writable() bool {
	return !s.readOnly && !s.pendingRecovery
}

func (s *EditorSession) checkMutable() error {
	if s.readOnly {
		return ErrReadOnly
	}
	if s.pendingRecovery {
		return ErrRecoveryPending
	}
	return nil
}

func (s *EditorSession) setEnvLocked(env shape.Env) {
	s.env = env
	s.mapLayer.SetEnv(env)
	s.areaLayer.SetEnv(env)
	s.previewLayer.SetEnv(env)
}

// node finds a live node on either layer.
func (s *EditorSession) node(id string) (*shape.Node, *reconciler.Reconciler, bool) {
	if n, ok := s.mapLayer.Node(id); ok {
		return n, s.mapLayer, true
	}
	if n, ok := s.areaLayer.Node(id); ok {
		return n, s.areaLayer, true
	}
	return nil, nil, false
}

// liveEntry returns the current config and index of id.
func (s *EditorSession) liveEntry(id string) (models.ShapeEntry, bool) {
	n, layer, ok := s.node(id)
	if !ok {
		return models.ShapeEntry{}, false
	}
	return models.ShapeEntry{
		ID:     id,
		Config: n.Config(),
		Index:  models.IntPtr(layer.IndexOf(id)),
	}, true
}

// rank orders selection by z-order, areas below maps.
func (s *EditorSession) resolve(id string) (*shape.Node, int, bool) {
	if n, ok := s.areaLayer.Node(id); ok {
		return n, s.areaLayer.IndexOf(id), true
	}
	if n, ok := s.mapLayer.Node(id); ok {
		return n, s.areaLayer.Len() + s.mapLayer.IndexOf(id), true
	}
	return nil, 0, false
}

func (s *EditorSession) pruneSelection() {
	s.selection.Prune(func(id string, n *shape.Node) bool {
		live, _, ok := s.node(id)
		return ok && live == n
	})
}

// loadActive fills the layers from a floor.
func (s *EditorSession) loadActive(layout *models.LayoutData) {
	s.active = layout
	optimize := s.opts.OptimizeAbove > 0 && len(layout.Maps)+len(layout.Areas) > s.opts.OptimizeAbove
	s.mapLayer.SetOptimize(optimize)
	s.areaLayer.SetOptimize(optimize)

	env := s.env
	if layout.Preferences.LatticeSize > 0 {
		env.LatticeSize = layout.Preferences.LatticeSize
	}
	s.setEnvLocked(env)

	s.areaLayer.Load(configsOf(layout.Areas))
	s.mapLayer.Load(configsOf(layout.Maps))
}

// captureActive writes the live layers back into the active floor.
func (s *EditorSession) captureActive() {
	if s.active == nil {
		return
	}
	s.active.Maps = stripIndex(s.mapLayer.Snapshot())
	s.active.Areas = stripIndex(s.areaLayer.Snapshot())
}

func (s *EditorSession) clearLayers() error {
	err := s.selection.Clear()
	s.previewLayer.Clear()
	s.mapLayer.Clear()
	s.areaLayer.Clear()
	return err
}

func configsOf(entries []models.ShapeEntry) []models.ShapeConfig {
	out := make([]models.ShapeConfig, 0, len(entries))
	for _, e := range entries {
		cfg := e.Config.Clone()
		if cfg.UUID == "" {
			cfg.UUID = e.ID
		}
		out = append(out, cfg)
	}
	return out
}

func stripIndex(entries []models.ShapeEntry) []models.ShapeEntry {
	for i := range entries {
		entries[i].Index = nil
	}
	return entries
}

// Snapshot returns the live shapes of the active floor.
func (s *EditorSession) Snapshot() models.LayerSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := models.LayerSnapshot{
		Maps:  s.mapLayer.Snapshot(),
		Areas: s.areaLayer.Snapshot(),
	}
	if s.active != nil {
		snap.LayoutID = s.active.LayoutID
	}
	return snap
}

// Info returns the externally visible session state.
func (s *EditorSession) Info() models.EditorSessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := models.EditorSessionInfo{
		ID:              s.ID,
		UserID:          s.User.UserID,
		MapID:           s.Scope.MapID,
		Version:         s.Scope.Version,
		Layouts:         append([]models.Layout(nil), s.saveData.Layouts...),
		SelectedNodeIDs: s.selection.IDs(),
		CanUndo:         s.history.CanUndo(),
		CanRedo:         s.history.CanRedo(),
		HasUnsavedData:  s.unsaved,
		RecoveryPending: s.pendingRecovery,
		ReadOnly:        s.readOnly,
		StageScale:      s.env.StageScale,
		LatticeSize:     s.env.LatticeSize,
		ShowRemarksIcon: s.env.ShowRemarksIcon,
		Preferences:     s.saveData.Preferences,
		Note:            s.saveData.Note,
		LastAccessed:    s.lastAccessed,
	}
	if s.active != nil {
		info.ActiveLayoutID = s.active.LayoutID
	}
	return info
}

// View is a partial update of the display settings.
type View struct {
	StageScale      *float64 `json:"stageScale,omitempty"`
	LatticeSize     *float64 `json:"latticeSize,omitempty"`
	ShowRemarksIcon *bool    `json:"showRemarksIcon,omitempty"`
}

// SetView changes zoom, lattice or remarks icon and re-derives every node.
// Allowed on read-only sessions.
func (s *EditorSession) SetView(v View) models.EditorSessionInfo {
	defer s.events.flush()
	s.mu.Lock()
	env := s.env
	if v.StageScale != nil && *v.StageScale > 0 {
		env.StageScale = *v.StageScale
	}
	if v.LatticeSize != nil && *v.LatticeSize > 0 {
		env.LatticeSize = *v.LatticeSize
	}
	if v.ShowRemarksIcon != nil {
		env.ShowRemarksIcon = *v.ShowRemarksIcon
	}
	s.setEnvLocked(env)
	s.events.queue(Event{Type: EventView, SessionID: s.ID})
	s.mu.Unlock()
	return s.Info()
}

// Preview shows op.Present on the preview layer without committing it.
func (s *EditorSession) Preview(entries []models.ShapeEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previewLayer.Clear()
	s.previewLayer.Apply(models.ShapeOperation{
		Operation: models.OperationAdd,
		Present:   models.CloneEntries(entries),
	}, reconciler.Forward)
}

// ClearPreview empties the preview layer.
func (s *EditorSession) ClearPreview() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previewLayer.Clear()
}

// PreviewLen returns the number of shapes on the preview layer.
func (s *EditorSession) PreviewLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previewLayer.Len()
}

// Select replaces the selection. It reports whether the request was cut
// at the selection limit.
func (s *EditorSession) Select(ids []string) ([]string, bool, error) {
	defer s.events.flush()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readOnly {
		return nil, false, ErrReadOnly
	}
	truncated, err := s.selection.Set(ids, s.resolve)
	if err != nil {
		return s.selection.IDs(), truncated, fmt.Errorf("select: %w", err)
	}
	selected := s.selection.IDs()
	s.events.queue(Event{Type: EventSelection, SessionID: s.ID, SelectedIDs: selected})
	return selected, truncated, nil
}

// ClearSelection moves every selected shape home.
func (s *EditorSession) ClearSelection() error {
	defer s.events.flush()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.selection.Clear(); err != nil {
		return fmt.Errorf("clear selection: %w", err)
	}
	s.events.queue(Event{Type: EventSelection, SessionID: s.ID, SelectedIDs: []string{}})
	return nil
}

// SelectedIDs returns the selection in rank order.
func (s *EditorSession) SelectedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.IDs()
}

// Render paints a floor to PNG. The active floor is drawn from the live
// layers; other floors are built on the fly.
func (s *EditorSession) Render(ctx context.Context, w io.Writer, layoutID string, scale float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.renderer == nil {
		return fmt.Errorf("render: no renderer configured")
	}
	if scale <= 0 {
		scale = 1
	}

	var items []render.Item
	var prefs models.LayoutPreferences
	if s.active != nil && (layoutID == "" || layoutID == s.active.LayoutID) {
		prefs = s.active.Preferences
		items = append(items, layerItems(s.areaLayer)...)
		items = append(items, layerItems(s.mapLayer)...)
		for _, id := range s.selection.IDs() {
			if n, _, ok := s.node(id); ok && !n.InHome() {
				items = append(items, render.Item{Matrix: n.Absolute(), Payload: n.Payload()})
			}
		}
		items = append(items, layerItems(s.previewLayer)...)
	} else {
		layout, err := s.readLayout(ctx, layoutID)
		if err != nil {
			return err
		}
		prefs = layout.Preferences
		areas := reconciler.New("render-area", reconciler.AreaShapes, s.registry)
		maps := reconciler.New("render-map", reconciler.MapShapes, s.registry)
		areas.SetEnv(s.env)
		maps.SetEnv(s.env)
		areas.Load(configsOf(layout.Areas))
		maps.Load(configsOf(layout.Maps))
		items = append(layerItems(areas), layerItems(maps)...)
	}

	width, height := prefs.StageWidth, prefs.StageHeight
	if width <= 0 {
		width = s.opts.LayoutPrefs.StageWidth
	}
	if height <= 0 {
		height = s.opts.LayoutPrefs.StageHeight
	}
	return s.renderer.PNG(w, render.Request{
		Width:  int(width * scale),
		Height: int(height * scale),
		Scale:  scale,
		Items:  items,
	})
}

// layerItems lists the payloads still owned by the layer's home container.
func layerItems(r *reconciler.Reconciler) []render.Item {
	var items []render.Item
	for _, n := range r.Nodes() {
		if !n.InHome() {
			continue
		}
		items = append(items, render.Item{Matrix: n.Absolute(), Payload: n.Payload()})
	}
	return items
}
