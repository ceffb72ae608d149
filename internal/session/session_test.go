package session

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/floorplan-editor/backend/internal/models"
	"github.com/floorplan-editor/backend/internal/numbering"
	"github.com/floorplan-editor/backend/internal/render"
	"github.com/floorplan-editor/backend/internal/scene"
	"github.com/floorplan-editor/backend/internal/storage"
	"github.com/floorplan-editor/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var editor = models.User{UserID: "u1", Name: "Editor", Authorities: []string{"ROLE_MAP_EDIT"}}

type harness struct {
	store   *testutil.MemoryStore
	repo    *storage.Repository
	archive *storage.Archive
	manager *Manager
}

func newHarness(t *testing.T, opts Options, sec Security) *harness {
	t.Helper()
	store := testutil.NewMemoryStore()
	h := &harness{
		store:   store,
		repo:    storage.NewRepository(store),
		archive: storage.NewArchive(testutil.NewMemoryStore()),
	}
	h.manager = NewManager(h.repo, h.archive, nil, opts, sec)
	return h
}

func (h *harness) open(t *testing.T, user models.User) *EditorSession {
	t.Helper()
	s, err := h.manager.Open(context.Background(), user, "m1", "v1")
	require.NoError(t, err)
	return s
}

func rect(id string, x float64) models.ShapeEntry {
	return models.ShapeEntry{ID: id, Config: models.ShapeConfig{UUID: id, Shape: models.ShapeRect, X: x, Y: 10, Width: 40, Height: 20}}
}

func area(id string) models.ShapeEntry {
	return models.ShapeEntry{ID: id, Config: models.ShapeConfig{UUID: id, Shape: models.ShapeArea, Width: 300, Height: 200, AreaName: "Produce"}}
}

func add(t *testing.T, s *EditorSession, entries ...models.ShapeEntry) {
	t.Helper()
	_, err := s.Dispatch(models.ShapeOperation{Operation: models.OperationAdd, Present: entries})
	require.NoError(t, err)
}

func ids(entries []models.ShapeEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestOpen_EmptyMap(t *testing.T) {
	h := newHarness(t, DefaultOptions(), Security{})
	s := h.open(t, editor)

	info := s.Info()
	require.Len(t, info.Layouts, 1)
	assert.Equal(t, info.Layouts[0].LayoutID, info.ActiveLayoutID)
	assert.False(t, info.ReadOnly)
	assert.False(t, info.RecoveryPending)
	assert.Equal(t, "m1", info.MapID)

	scope := storage.Scope{UserID: "u1", MapID: "m1", Version: "v1"}
	assert.True(t, h.store.Has(storage.MapKey(scope)))
	assert.Equal(t, 1, h.manager.Count())
}

func TestOpen_RequiresMapAndVersion(t *testing.T) {
	h := newHarness(t, DefaultOptions(), Security{})
	_, err := h.manager.Open(context.Background(), editor, "", "v1")
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

func TestDispatch_UndoRedoRoundTrip(t *testing.T) {
	h := newHarness(t, DefaultOptions(), Security{})
	s := h.open(t, editor)
	add(t, s, rect("a", 0), rect("b", 50), rect("c", 100), area("z"))

	moved := rect("b", 75)
	moved.Config.Rotation = 30
	ops := []models.ShapeOperation{
		{Operation: models.OperationChange, Present: []models.ShapeEntry{moved}},
		{Operation: models.OperationRemove, Present: []models.ShapeEntry{{ID: "a"}}},
		{Operation: models.OperationChangeIndex, Present: []models.ShapeEntry{{ID: "c"}}, Order: models.OrderBottom},
		{Operation: models.OperationAdd, Present: []models.ShapeEntry{rect("d", 200)}},
		{Operation: models.OperationRemove, Present: []models.ShapeEntry{{ID: "z"}}},
	}
	for _, op := range ops {
		before := s.Snapshot()
		_, err := s.Dispatch(op)
		require.NoError(t, err, op.Operation)
		after := s.Snapshot()

		_, ok, err := s.Undo()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, before, s.Snapshot(), "undo of %s", op.Operation)

		_, ok, err = s.Redo()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, after, s.Snapshot(), "redo of %s", op.Operation)
	}

	snap := s.Snapshot()
	assert.Equal(t, []string{"c", "b", "d"}, ids(snap.Maps))
	assert.Empty(t, snap.Areas)
}

func TestDispatch_BackfillsPast(t *testing.T) {
	h := newHarness(t, DefaultOptions(), Security{})
	s := h.open(t, editor)
	add(t, s, rect("a", 0))

	op, err := s.Dispatch(models.ShapeOperation{
		Operation: models.OperationChange,
		Present:   []models.ShapeEntry{rect("a", 90)},
	})
	require.NoError(t, err)
	require.Len(t, op.Past, 1)
	assert.Equal(t, 0.0, op.Past[0].Config.X)
	assert.Equal(t, 90.0, op.Present[0].Config.X)
}

func TestDispatch_PartialChange(t *testing.T) {
	h := newHarness(t, DefaultOptions(), Security{})
	s := h.open(t, editor)
	add(t, s, rect("a", 0))

	op, err := s.Dispatch(models.ShapeOperation{
		Operation: models.OperationChange,
		Present:   []models.ShapeEntry{{ID: "a", Config: models.ShapeConfig{X: 55}}},
	})
	require.NoError(t, err)
	assert.Equal(t, 55.0, op.Present[0].Config.X)
	assert.Equal(t, 40.0, op.Present[0].Config.Width)

	n, _, ok := s.node("a")
	require.True(t, ok)
	cfg := n.Config()
	assert.Equal(t, 55.0, cfg.X)
	assert.Equal(t, 10.0, cfg.Y)
	assert.Equal(t, 40.0, cfg.Width)
	assert.Equal(t, 20.0, cfg.Height)
	assert.Equal(t, models.ShapeRect, cfg.Shape)

	_, ok, err = s.Undo()
	require.NoError(t, err)
	require.True(t, ok)
	cfg = n.Config()
	assert.Equal(t, 0.0, cfg.X)
	assert.Equal(t, 40.0, cfg.Width)
}

func TestDispatch_Validation(t *testing.T) {
	h := newHarness(t, DefaultOptions(), Security{})
	s := h.open(t, editor)
	add(t, s, rect("a", 0))

	_, err := s.Dispatch(models.ShapeOperation{Operation: models.OperationAdd, Present: []models.ShapeEntry{rect("a", 5)}})
	assert.ErrorIs(t, err, ErrInvalidOperation)

	_, err = s.Dispatch(models.ShapeOperation{Operation: "MOVE", Present: []models.ShapeEntry{rect("a", 5)}})
	assert.ErrorIs(t, err, ErrInvalidOperation)

	_, err = s.Dispatch(models.ShapeOperation{Operation: models.OperationChangeIndex, Present: []models.ShapeEntry{{ID: "a"}}, Order: "SIDEWAYS"})
	assert.ErrorIs(t, err, ErrInvalidOperation)

	assert.False(t, s.Info().CanRedo)
}

func TestDispatch_AssignsIDToNewShapes(t *testing.T) {
	h := newHarness(t, DefaultOptions(), Security{})
	s := h.open(t, editor)

	op, err := s.Dispatch(models.ShapeOperation{
		Operation: models.OperationAdd,
		Present:   []models.ShapeEntry{{Config: models.ShapeConfig{Shape: models.ShapeEllipse}}},
	})
	require.NoError(t, err)
	id := op.Present[0].ID
	assert.NotEmpty(t, id)
	assert.Equal(t, id, op.Present[0].Config.UUID)
	assert.Equal(t, []string{id}, ids(s.Snapshot().Maps))
}

func TestDispatch_AreaIsolation(t *testing.T) {
	h := newHarness(t, DefaultOptions(), Security{})
	s := h.open(t, editor)
	add(t, s, rect("r", 0), area("z"))

	snap := s.Snapshot()
	assert.Equal(t, []string{"r"}, ids(snap.Maps))
	assert.Equal(t, []string{"z"}, ids(snap.Areas))

	_, err := s.Dispatch(models.ShapeOperation{Operation: models.OperationRemove, Present: []models.ShapeEntry{{ID: "z"}}})
	require.NoError(t, err)
	snap = s.Snapshot()
	assert.Equal(t, []string{"r"}, ids(snap.Maps))
	assert.Empty(t, snap.Areas)
}

func TestChangeIndex_NothingMoves(t *testing.T) {
	h := newHarness(t, DefaultOptions(), Security{})
	s := h.open(t, editor)
	add(t, s, rect("a", 0), rect("b", 10))

	_, moved, err := s.ChangeIndex([]string{"b"}, models.OrderTop)
	require.NoError(t, err)
	assert.False(t, moved)

	_, moved, err = s.ChangeIndex([]string{"b"}, models.OrderBottom)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, []string{"b", "a"}, ids(s.Snapshot().Maps))
}

func TestSelect_CapNotifiesOnce(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxSelection = 3
	h := newHarness(t, opts, Security{})
	s := h.open(t, editor)

	var dialogs []Dialog
	unsubscribe := s.Subscribe(func(ev Event) {
		if ev.Type == EventDialog {
			dialogs = append(dialogs, *ev.Dialog)
		}
	})
	defer unsubscribe()

	var all []string
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("s%d", i)
		add(t, s, rect(id, float64(i*10)))
		all = append(all, id)
	}
	selected, truncated, err := s.Select(all)
	require.NoError(t, err)
	assert.True(t, truncated)
	assert.Equal(t, []string{"s0", "s1", "s2"}, selected)
	require.Len(t, dialogs, 1)
	assert.Equal(t, Dialog{Code: DialogSelectionLimit, Requested: 5, Limit: 3}, dialogs[0])
}

func TestSelect_AreasRankBeforeMaps(t *testing.T) {
	h := newHarness(t, DefaultOptions(), Security{})
	s := h.open(t, editor)
	add(t, s, rect("r", 0), area("z"))

	selected, _, err := s.Select([]string{"r", "z"})
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "r"}, selected)
}

func TestSelect_PreservesAbsoluteTransform(t *testing.T) {
	h := newHarness(t, DefaultOptions(), Security{})
	s := h.open(t, editor)
	s.edit.SetOrigin(scene.Transform{X: -120, Y: 45, Rotation: 20, ScaleX: 1.5, ScaleY: 1.5})

	r := rect("a", 33)
	r.Config.Rotation = 12
	add(t, s, r)
	n, _, ok := s.node("a")
	require.True(t, ok)
	before := n.Absolute().Decompose()

	_, _, err := s.Select([]string{"a"})
	require.NoError(t, err)
	assert.False(t, n.InHome())
	during := n.Absolute().Decompose()

	require.NoError(t, s.ClearSelection())
	assert.True(t, n.InHome())
	after := n.Absolute().Decompose()

	for _, got := range []scene.Transform{during, after} {
		assert.InDelta(t, before.X, got.X, 1e-6)
		assert.InDelta(t, before.Y, got.Y, 1e-6)
		assert.InDelta(t, before.Rotation, got.Rotation, 1e-6)
	}
}

func TestSelect_ChangeWhileSelected(t *testing.T) {
	h := newHarness(t, DefaultOptions(), Security{})
	s := h.open(t, editor)
	s.edit.SetOrigin(scene.Transform{X: 10, Y: 10})
	add(t, s, rect("a", 0))

	_, _, err := s.Select([]string{"a"})
	require.NoError(t, err)
	_, err = s.Dispatch(models.ShapeOperation{Operation: models.OperationChange, Present: []models.ShapeEntry{rect("a", 80)}})
	require.NoError(t, err)

	n, _, _ := s.node("a")
	assert.False(t, n.InHome())
	abs := n.Absolute().Decompose()
	assert.InDelta(t, 80, abs.X, 1e-6)
	assert.InDelta(t, 10, abs.Y, 1e-6)
}

func TestSelect_RemovedShapeLeavesSelection(t *testing.T) {
	h := newHarness(t, DefaultOptions(), Security{})
	s := h.open(t, editor)
	add(t, s, rect("a", 0), rect("b", 10))

	_, _, err := s.Select([]string{"a", "b"})
	require.NoError(t, err)
	_, err = s.Dispatch(models.ShapeOperation{Operation: models.OperationRemove, Present: []models.ShapeEntry{{ID: "a"}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, s.SelectedIDs())
	assert.Equal(t, 1, s.edit.Len())
}

func TestReadOnlySession(t *testing.T) {
	h := newHarness(t, DefaultOptions(), Security{RequireAuth: true})
	ctx := context.Background()
	scope := storage.Scope{UserID: "viewer", MapID: "m1", Version: "v1"}
	first := models.NewLayoutData("l1", "Ground", models.LayoutPreferences{StageWidth: 100, StageHeight: 100})
	first.Maps = []models.ShapeEntry{rect("a", 0)}
	second := models.NewLayoutData("l2", "Upper", models.LayoutPreferences{StageWidth: 100, StageHeight: 100})
	require.NoError(t, h.archive.Publish(ctx, scope, &storage.MapBundle{
		Map: models.SaveData{
			MapID:   "m1",
			Version: "v1",
			Layouts: []models.Layout{{LayoutID: "l1", LayoutName: "Ground"}, {LayoutID: "l2", LayoutName: "Upper"}},
		},
		Layouts: []models.LayoutData{*first, *second},
	}))

	s := h.open(t, models.User{UserID: "viewer"})
	assert.True(t, s.ReadOnly())
	assert.Equal(t, []string{"a"}, ids(s.Snapshot().Maps))

	_, err := s.Dispatch(models.ShapeOperation{Operation: models.OperationAdd, Present: []models.ShapeEntry{rect("b", 0)}})
	assert.ErrorIs(t, err, ErrReadOnly)
	_, _, err = s.Select([]string{"a"})
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.ErrorIs(t, s.Save(ctx), ErrReadOnly)

	scale := 2.0
	info := s.SetView(View{StageScale: &scale})
	assert.Equal(t, 2.0, info.StageScale)

	require.NoError(t, s.SwitchLayout(ctx, "l2"))
	assert.Equal(t, "l2", s.Info().ActiveLayoutID)
	assert.Empty(t, h.store.Keys())
}

func TestSave_VisibleToOtherUsers(t *testing.T) {
	h := newHarness(t, DefaultOptions(), Security{RequireAuth: true, EditAuthorities: []string{"ROLE_MAP_EDIT"}})
	ctx := context.Background()

	s := h.open(t, editor)
	add(t, s, rect("a", 0), rect("b", 40))
	require.NoError(t, s.Save(ctx))

	viewer := h.open(t, models.User{UserID: "viewer"})
	assert.True(t, viewer.ReadOnly())
	assert.Equal(t, []string{"a", "b"}, ids(viewer.Snapshot().Maps))

	other := models.User{UserID: "u2", Authorities: []string{"ROLE_MAP_EDIT"}}
	second := h.open(t, other)
	assert.False(t, second.ReadOnly())
	assert.Equal(t, []string{"a", "b"}, ids(second.Snapshot().Maps))
}

func TestOpen_SessionLimitUnderConcurrency(t *testing.T) {
	h := newHarness(t, DefaultOptions(), Security{})
	ctx := context.Background()

	const attempts = MaxSessions + 10
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := models.User{UserID: fmt.Sprintf("u%d", i)}
			_, err := h.manager.Open(ctx, user, "m1", "v1")
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	rejected := 0
	for err := range errs {
		if err != nil {
			require.ErrorIs(t, err, ErrTooManySessions)
			rejected++
		}
	}
	assert.Equal(t, MaxSessions, h.manager.Count())
	assert.Equal(t, 10, rejected)
}

func TestSwitchLayout_FlushesAndResetsHistory(t *testing.T) {
	h := newHarness(t, DefaultOptions(), Security{})
	ctx := context.Background()
	s := h.open(t, editor)
	home := s.Info().ActiveLayoutID
	add(t, s, rect("a", 0))

	upper, err := s.AddLayout(ctx, "Upper")
	require.NoError(t, err)
	require.NoError(t, s.SwitchLayout(ctx, upper.LayoutID))
	assert.Empty(t, s.Snapshot().Maps)
	assert.False(t, s.Info().CanUndo)

	require.NoError(t, s.SwitchLayout(ctx, home))
	assert.Equal(t, []string{"a"}, ids(s.Snapshot().Maps))

	err = s.SwitchLayout(ctx, "missing")
	assert.ErrorIs(t, err, ErrLayoutNotFound)
}

func TestDeleteLayout(t *testing.T) {
	h := newHarness(t, DefaultOptions(), Security{})
	ctx := context.Background()
	s := h.open(t, editor)
	home := s.Info().ActiveLayoutID

	assert.ErrorIs(t, s.DeleteLayout(ctx, home, true), ErrLastLayout)

	upper, err := s.AddLayout(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "Floor 2", upper.LayoutName)

	add(t, s, rect("a", 0))
	assert.ErrorIs(t, s.DeleteLayout(ctx, home, false), ErrConfirmationRequired)

	require.NoError(t, s.DeleteLayout(ctx, home, true))
	info := s.Info()
	require.Len(t, info.Layouts, 1)
	assert.Equal(t, upper.LayoutID, info.ActiveLayoutID)
	assert.Empty(t, s.Snapshot().Maps)

	scope := storage.Scope{UserID: "u1", MapID: "m1", Version: "v1"}
	assert.False(t, h.store.Has(storage.LayoutKey(scope, home)))
}

func TestDuplicateLayout_FreshIDs(t *testing.T) {
	h := newHarness(t, DefaultOptions(), Security{})
	ctx := context.Background()
	s := h.open(t, editor)
	home := s.Info().ActiveLayoutID
	add(t, s, rect("a", 0), area("z"))

	dup, err := s.DuplicateLayout(ctx, home, "")
	require.NoError(t, err)
	assert.NotEqual(t, home, dup.LayoutID)

	layouts := s.Info().Layouts
	require.Len(t, layouts, 2)
	assert.Equal(t, dup.LayoutID, layouts[1].LayoutID)
	assert.Contains(t, layouts[1].LayoutName, "(copy)")

	require.NoError(t, s.SwitchLayout(ctx, dup.LayoutID))
	snap := s.Snapshot()
	require.Len(t, snap.Maps, 1)
	require.Len(t, snap.Areas, 1)
	assert.NotEqual(t, "a", snap.Maps[0].ID)
	assert.NotEqual(t, "z", snap.Areas[0].ID)
	assert.Equal(t, snap.Maps[0].ID, snap.Maps[0].Config.UUID)
	assert.Equal(t, 0.0, snap.Maps[0].Config.X)
}

func TestRenameAndReorderLayouts(t *testing.T) {
	h := newHarness(t, DefaultOptions(), Security{})
	ctx := context.Background()
	s := h.open(t, editor)
	home := s.Info().ActiveLayoutID
	upper, err := s.AddLayout(ctx, "Upper")
	require.NoError(t, err)

	require.NoError(t, s.RenameLayout(ctx, home, "Ground"))
	assert.ErrorIs(t, s.RenameLayout(ctx, home, "  "), ErrInvalidOperation)

	assert.ErrorIs(t, s.ReorderLayouts(ctx, []string{upper.LayoutID}), ErrInvalidLayoutOrder)
	assert.ErrorIs(t, s.ReorderLayouts(ctx, []string{upper.LayoutID, upper.LayoutID}), ErrInvalidLayoutOrder)
	require.NoError(t, s.ReorderLayouts(ctx, []string{upper.LayoutID, home}))

	assert.Equal(t, []models.Layout{
		{LayoutID: upper.LayoutID, LayoutName: "Upper"},
		{LayoutID: home, LayoutName: "Ground"},
	}, s.Info().Layouts)
}

func TestUpdatePreferences_RederivesEveryLayout(t *testing.T) {
	h := newHarness(t, DefaultOptions(), Security{})
	ctx := context.Background()
	s := h.open(t, editor)
	home := s.Info().ActiveLayoutID

	g := models.ShapeEntry{ID: "g", Config: models.ShapeConfig{UUID: "g", Shape: models.ShapeGondola, TableID: "1", BranchNum: "2"}}
	add(t, s, g)
	upper, err := s.AddLayout(ctx, "Upper")
	require.NoError(t, err)
	require.NoError(t, s.SwitchLayout(ctx, upper.LayoutID))
	add(t, s, models.ShapeEntry{ID: "h", Config: models.ShapeConfig{UUID: "h", Shape: models.ShapeGondola, TableID: "3", BranchNum: "4"}})

	prefs := models.MapPreferences{TableIDLength: 3, BranchNumLength: 2, NumberFormat: models.NumberFormatStandard}
	changed, err := s.UpdatePreferences(ctx, prefs)
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	l := numbering.LengthsOf(prefs)
	assert.Equal(t, numbering.ComposeLocationNum("3", "4", l), s.Snapshot().Maps[0].Config.LocationNum)

	scope := storage.Scope{UserID: "u1", MapID: "m1", Version: "v1"}
	persisted, err := h.repo.LoadLayout(ctx, scope, home)
	require.NoError(t, err)
	require.Len(t, persisted.Maps, 1)
	assert.Equal(t, "00102", persisted.Maps[0].Config.LocationNum)
	assert.Equal(t, "00102", persisted.Maps[0].Config.DisplayLocationNum)

	_, err = s.UpdatePreferences(ctx, models.MapPreferences{TableIDLength: 0, BranchNumLength: 2})
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

func TestNextLocation(t *testing.T) {
	h := newHarness(t, DefaultOptions(), Security{})
	s := h.open(t, editor)

	first, err := s.NextLocation(models.PlacementWall, "")
	require.NoError(t, err)
	assert.Equal(t, Location{TableID: "01", BranchNum: "01", LocationNum: "0101", DisplayLocationNum: "0101"}, first)

	second, err := s.NextLocation(models.PlacementWall, "01")
	require.NoError(t, err)
	assert.Equal(t, "0102", second.LocationNum)

	island, err := s.NextLocation(models.PlacementIsland, "01")
	require.NoError(t, err)
	assert.Equal(t, "0101", island.LocationNum)

	areaID, err := s.NextAreaID()
	require.NoError(t, err)
	assert.Equal(t, "1", areaID)
}

func TestSave_PublishesAndClearsFlag(t *testing.T) {
	h := newHarness(t, DefaultOptions(), Security{})
	ctx := context.Background()
	s := h.open(t, editor)
	add(t, s, rect("a", 0))
	assert.True(t, s.HasUnsavedData())

	wrote, err := s.Autosave(ctx)
	require.NoError(t, err)
	assert.True(t, wrote)
	scope := storage.Scope{UserID: "u1", MapID: "m1", Version: "v1"}
	unsaved, err := h.repo.IsUnsaved(ctx, scope)
	require.NoError(t, err)
	assert.True(t, unsaved)

	require.NoError(t, s.Save(ctx))
	assert.False(t, s.HasUnsavedData())
	unsaved, err = h.repo.IsUnsaved(ctx, scope)
	require.NoError(t, err)
	assert.False(t, unsaved)

	published, err := h.archive.Fetch(ctx, scope)
	require.NoError(t, err)
	require.Len(t, published.Layouts, 1)
	assert.Equal(t, []string{"a"}, ids(published.Layouts[0].Maps))
	assert.Equal(t, DefaultOptions().EditorVersion, published.Map.EditorVersion)
}

func TestRecovery(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*harness, *EditorSession) {
		h := newHarness(t, DefaultOptions(), Security{})
		s := h.open(t, editor)
		add(t, s, rect("draft", 0))
		require.NoError(t, h.manager.Close(ctx, s.ID))

		again := h.open(t, editor)
		info := again.Info()
		require.True(t, info.RecoveryPending)
		assert.Empty(t, again.Snapshot().Maps)
		return h, again
	}

	t.Run("restore", func(t *testing.T) {
		_, s := setup(t)
		_, err := s.Dispatch(models.ShapeOperation{Operation: models.OperationAdd, Present: []models.ShapeEntry{rect("x", 0)}})
		assert.ErrorIs(t, err, ErrRecoveryPending)

		require.NoError(t, s.RestoreUnsaved(ctx))
		assert.Equal(t, []string{"draft"}, ids(s.Snapshot().Maps))
		assert.True(t, s.HasUnsavedData())
		assert.ErrorIs(t, s.RestoreUnsaved(ctx), ErrNothingToRestore)
	})

	t.Run("discard", func(t *testing.T) {
		h, s := setup(t)
		require.NoError(t, s.DiscardUnsaved(ctx))
		assert.False(t, s.HasUnsavedData())
		assert.Empty(t, s.Snapshot().Maps)

		scope := storage.Scope{UserID: "u1", MapID: "m1", Version: "v1"}
		layout, err := h.repo.LoadLayout(ctx, scope, s.Info().ActiveLayoutID)
		require.NoError(t, err)
		assert.Empty(t, layout.Maps)
	})
}

func TestPreview(t *testing.T) {
	h := newHarness(t, DefaultOptions(), Security{})
	s := h.open(t, editor)

	s.Preview([]models.ShapeEntry{rect("p", 0), area("q")})
	assert.Equal(t, 2, s.PreviewLen())
	assert.Empty(t, s.Snapshot().Maps)

	s.ClearPreview()
	assert.Equal(t, 0, s.PreviewLen())
}

func TestRender_ProducesPNG(t *testing.T) {
	h := newHarness(t, DefaultOptions(), Security{})
	r, err := render.NewRenderer()
	require.NoError(t, err)
	h.manager.SetRenderer(r)
	s := h.open(t, editor)
	add(t, s, rect("a", 10), area("z"))

	var buf bytes.Buffer
	require.NoError(t, s.Render(context.Background(), &buf, "", 0.1))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestEvents_OperationBroadcast(t *testing.T) {
	h := newHarness(t, DefaultOptions(), Security{})
	s := h.open(t, editor)

	var got []EventType
	unsubscribe := s.Subscribe(func(ev Event) { got = append(got, ev.Type) })
	add(t, s, rect("a", 0))
	_, _, err := s.Undo()
	require.NoError(t, err)
	unsubscribe()
	_, _, err = s.Redo()
	require.NoError(t, err)

	assert.Equal(t, []EventType{EventOperation, EventUndo}, got)
}

func TestManager_GetAndClose(t *testing.T) {
	h := newHarness(t, DefaultOptions(), Security{})
	s := h.open(t, editor)

	got, ok := h.manager.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.True(t, h.manager.TouchSession(s.ID))
	assert.Len(t, h.manager.List(), 1)

	require.NoError(t, h.manager.Close(context.Background(), s.ID))
	_, ok = h.manager.Get(s.ID)
	assert.False(t, ok)
	assert.ErrorIs(t, h.manager.Close(context.Background(), s.ID), ErrSessionNotFound)
}

func TestManager_CleanupOldSessions(t *testing.T) {
	h := newHarness(t, DefaultOptions(), Security{})
	ctx := context.Background()
	stale := h.open(t, editor)
	fresh := h.open(t, editor)
	add(t, stale, rect("a", 0))

	stale.mu.Lock()
	stale.lastAccessed = time.Now().Add(-time.Hour)
	stale.mu.Unlock()

	assert.Equal(t, 1, h.manager.CleanupOldSessions(ctx, SessionMaxAge))
	_, ok := h.manager.Get(stale.ID)
	assert.False(t, ok)
	_, ok = h.manager.Get(fresh.ID)
	assert.True(t, ok)

	scope := storage.Scope{UserID: "u1", MapID: "m1", Version: "v1"}
	unsaved, err := h.repo.IsUnsaved(ctx, scope)
	require.NoError(t, err)
	assert.True(t, unsaved)
}

func TestManager_AutosaveAll(t *testing.T) {
	h := newHarness(t, DefaultOptions(), Security{})
	s := h.open(t, editor)
	assert.Equal(t, 0, h.manager.AutosaveAll(context.Background()))
	add(t, s, rect("a", 0))
	assert.Equal(t, 1, h.manager.AutosaveAll(context.Background()))
	assert.Equal(t, 0, h.manager.AutosaveAll(context.Background()))
}

func TestStorageFailureSurfaces(t *testing.T) {
	h := newHarness(t, DefaultOptions(), Security{})
	s := h.open(t, editor)
	add(t, s, rect("a", 0))

	h.store.FailWrites = true
	_, err := s.Autosave(context.Background())
	assert.ErrorIs(t, err, testutil.ErrWriteFailed)
	assert.True(t, s.HasUnsavedData())
}
