package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/floorplan-editor/backend/internal/models"
	"github.com/floorplan-editor/backend/internal/render"
	"github.com/floorplan-editor/backend/internal/session"
	"github.com/floorplan-editor/backend/internal/storage"
	"github.com/floorplan-editor/backend/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, sec session.Security) (*echo.Echo, *session.Manager) {
	t.Helper()
	mgr := session.NewManager(
		storage.NewRepository(testutil.NewMemoryStore()),
		storage.NewArchive(testutil.NewMemoryStore()),
		nil,
		session.DefaultOptions(),
		sec,
	)
	renderer, err := render.NewRenderer()
	require.NoError(t, err)
	mgr.SetRenderer(renderer)

	e := echo.New()
	handlers := NewHandlers(&Dependencies{SessionMgr: mgr, Version: "test"})
	SetupMiddleware(e)
	RegisterRoutes(e, handlers)
	RegisterWebSocketRoutes(e, handlers)
	return e, mgr
}

func do(e *echo.Echo, method, path, user string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if user != "" {
		req.Header.Set(HeaderUserID, user)
		req.Header.Set(HeaderUserAuthorities, "ROLE_MAP_EDIT")
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func openSession(t *testing.T, e *echo.Echo, user string) models.EditorSessionInfo {
	t.Helper()
	rec := do(e, http.MethodPost, "/api/editor/sessions", user, map[string]string{"mapId": "m1", "version": "v1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var info models.EditorSessionInfo
	decode(t, rec, &info)
	return info
}

func rectEntry(id string, x float64) models.ShapeEntry {
	return models.ShapeEntry{ID: id, Config: models.ShapeConfig{UUID: id, Shape: models.ShapeRect, X: x, Y: 10, Width: 40, Height: 20}}
}

func addOp(entries ...models.ShapeEntry) models.ShapeOperation {
	return models.ShapeOperation{Operation: models.OperationAdd, Present: entries}
}

func sessionPath(id, suffix string) string {
	return fmt.Sprintf("/api/editor/sessions/%s%s", id, suffix)
}

func TestHealth(t *testing.T) {
	e, _ := newTestServer(t, session.Security{})
	rec := do(e, http.MethodGet, "/api/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	decode(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.EqualValues(t, 0, body["sessions"])
}

func TestOpenSession_RequiresMapAndVersion(t *testing.T) {
	e, _ := newTestServer(t, session.Security{})

	rec := do(e, http.MethodPost, "/api/editor/sessions", "u1", map[string]string{"version": "v1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")

	rec = do(e, http.MethodPost, "/api/editor/sessions", "u1", map[string]string{"mapId": "m1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOpenSession_DirectContext(t *testing.T) {
	mgr := session.NewManager(
		storage.NewRepository(testutil.NewMemoryStore()),
		storage.NewArchive(testutil.NewMemoryStore()),
		nil, session.DefaultOptions(), session.Security{},
	)
	h := NewEditorHandler(mgr)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/api/editor/sessions", bytes.NewBufferString(`{"mapId":"m1","version":"v1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(HeaderUserID, "u1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if assert.NoError(t, h.HandleOpenSession(c)) {
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), `"mapId":"m1"`)
	}
	assert.Equal(t, 1, mgr.Count())

	// Unknown session through the handler returns an APIError
	req = httptest.NewRequest(http.MethodGet, "/api/editor/sessions/missing", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("sessionId")
	c.SetParamValues("missing")
	err := h.HandleGetSession(c)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestEditorFlow_DispatchUndoRedo(t *testing.T) {
	e, _ := newTestServer(t, session.Security{})
	info := openSession(t, e, "u1")
	require.Len(t, info.Layouts, 1)

	rec := do(e, http.MethodPost, sessionPath(info.ID, "/operations"), "u1", addOp(rectEntry("r1", 10), rectEntry("r2", 80)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(e, http.MethodGet, sessionPath(info.ID, "/shapes"), "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap models.LayerSnapshot
	decode(t, rec, &snap)
	require.Len(t, snap.Maps, 2)
	assert.Equal(t, "r1", snap.Maps[0].ID)

	rec = do(e, http.MethodPost, sessionPath(info.ID, "/undo"), "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var undo historyResponse
	decode(t, rec, &undo)
	assert.True(t, undo.Applied)
	assert.False(t, undo.CanUndo)
	assert.True(t, undo.CanRedo)

	rec = do(e, http.MethodGet, sessionPath(info.ID, "/shapes"), "u1", nil)
	decode(t, rec, &snap)
	assert.Empty(t, snap.Maps)

	rec = do(e, http.MethodPost, sessionPath(info.ID, "/redo"), "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var redo historyResponse
	decode(t, rec, &redo)
	assert.True(t, redo.Applied)
	assert.True(t, redo.CanUndo)

	// Nothing more to redo
	rec = do(e, http.MethodPost, sessionPath(info.ID, "/redo"), "u1", nil)
	decode(t, rec, &redo)
	assert.False(t, redo.Applied)
	assert.Nil(t, redo.Operation)
}

func TestDispatch_InvalidOperation(t *testing.T) {
	e, _ := newTestServer(t, session.Security{})
	info := openSession(t, e, "u1")

	rec := do(e, http.MethodPost, sessionPath(info.ID, "/operations"), "u1", models.ShapeOperation{Operation: "SPIN"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDispatch_ChangeSendsOnlyEditedKeys(t *testing.T) {
	e, _ := newTestServer(t, session.Security{})
	info := openSession(t, e, "u1")
	rec := do(e, http.MethodPost, sessionPath(info.ID, "/operations"), "u1", addOp(rectEntry("r1", 10)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	change := json.RawMessage(`{"operation":"CHANGE","present":[{"id":"r1","config":{"x":55}}]}`)
	rec = do(e, http.MethodPost, sessionPath(info.ID, "/operations"), "u1", change)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var snap models.LayerSnapshot
	decode(t, do(e, http.MethodGet, sessionPath(info.ID, "/shapes"), "u1", nil), &snap)
	require.Len(t, snap.Maps, 1)
	cfg := snap.Maps[0].Config
	assert.Equal(t, 55.0, cfg.X)
	assert.Equal(t, 10.0, cfg.Y)
	assert.Equal(t, 40.0, cfg.Width)
	assert.Equal(t, 20.0, cfg.Height)
	assert.Equal(t, models.ShapeRect, cfg.Shape)

	// An explicit zero is applied
	change = json.RawMessage(`{"operation":"CHANGE","present":[{"id":"r1","config":{"y":0}}]}`)
	rec = do(e, http.MethodPost, sessionPath(info.ID, "/operations"), "u1", change)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	decode(t, do(e, http.MethodGet, sessionPath(info.ID, "/shapes"), "u1", nil), &snap)
	assert.Equal(t, 0.0, snap.Maps[0].Config.Y)
	assert.Equal(t, 55.0, snap.Maps[0].Config.X)
	assert.Equal(t, 40.0, snap.Maps[0].Config.Width)
}

func TestSessionOwnership(t *testing.T) {
	e, _ := newTestServer(t, session.Security{})
	info := openSession(t, e, "u1")

	rec := do(e, http.MethodGet, sessionPath(info.ID, ""), "u2", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(e, http.MethodGet, sessionPath("nope", ""), "u1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodGet, "/api/editor/sessions", "u2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.EditorSessionInfo
	decode(t, rec, &list)
	assert.Empty(t, list)

	rec = do(e, http.MethodGet, "/api/editor/sessions", "u1", nil)
	decode(t, rec, &list)
	assert.Len(t, list, 1)
}

func TestReadOnlySession_RejectsEdits(t *testing.T) {
	e, _ := newTestServer(t, session.Security{RequireAuth: true, EditAuthorities: []string{"ROLE_MAP_EDIT"}})

	req := httptest.NewRequest(http.MethodPost, "/api/editor/sessions", bytes.NewBufferString(`{"mapId":"m1","version":"v1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(HeaderUserID, "viewer")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	var info models.EditorSessionInfo
	decode(t, rec, &info)
	assert.True(t, info.ReadOnly)

	viewer := func(method, path string, body interface{}) *httptest.ResponseRecorder {
		data, _ := json.Marshal(body)
		req := httptest.NewRequest(method, path, bytes.NewReader(data))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set(HeaderUserID, "viewer")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	rec = viewer(http.MethodPost, sessionPath(info.ID, "/operations"), addOp(rectEntry("r1", 0)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = viewer(http.MethodPut, sessionPath(info.ID, "/selection"), selectRequest{IDs: []string{"r1"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = viewer(http.MethodPut, sessionPath(info.ID, "/view"), map[string]float64{"stageScale": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &info)
	assert.Equal(t, 2.0, info.StageScale)
}

func TestSelectionAndOrder(t *testing.T) {
	e, _ := newTestServer(t, session.Security{})
	info := openSession(t, e, "u1")
	rec := do(e, http.MethodPost, sessionPath(info.ID, "/operations"), "u1", addOp(rectEntry("r1", 10), rectEntry("r2", 80)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodPut, sessionPath(info.ID, "/selection"), "u1", selectRequest{IDs: []string{"r2", "r1"}})
	require.Equal(t, http.StatusOK, rec.Code)
	var sel struct {
		SelectedIDs []string `json:"selectedIds"`
		Truncated   bool     `json:"truncated"`
	}
	decode(t, rec, &sel)
	assert.Equal(t, []string{"r1", "r2"}, sel.SelectedIDs)
	assert.False(t, sel.Truncated)

	rec = do(e, http.MethodDelete, sessionPath(info.ID, "/selection"), "u1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(e, http.MethodPost, sessionPath(info.ID, "/order"), "u1", changeIndexRequest{IDs: []string{"r1"}, Order: models.OrderTop})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"moved":true`)

	rec = do(e, http.MethodGet, sessionPath(info.ID, "/shapes"), "u1", nil)
	var snap models.LayerSnapshot
	decode(t, rec, &snap)
	require.Len(t, snap.Maps, 2)
	assert.Equal(t, "r2", snap.Maps[0].ID)
	assert.Equal(t, "r1", snap.Maps[1].ID)

	rec = do(e, http.MethodPost, sessionPath(info.ID, "/order"), "u1", changeIndexRequest{IDs: []string{"r1"}, Order: "SIDEWAYS"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShapesMsgpack(t *testing.T) {
	e, _ := newTestServer(t, session.Security{})
	info := openSession(t, e, "u1")
	do(e, http.MethodPost, sessionPath(info.ID, "/operations"), "u1", addOp(rectEntry("r1", 10)))

	rec := do(e, http.MethodGet, sessionPath(info.ID, "/shapes/msgpack"), "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/msgpack", rec.Header().Get(echo.HeaderContentType))

	var snap models.LayerSnapshot
	require.NoError(t, storage.Unmarshal(rec.Body.Bytes(), &snap))
	require.Len(t, snap.Maps, 1)
	assert.Equal(t, "r1", snap.Maps[0].ID)
	assert.Equal(t, 40.0, snap.Maps[0].Config.Width)
}

func TestLayoutRoutes(t *testing.T) {
	e, _ := newTestServer(t, session.Security{})
	info := openSession(t, e, "u1")
	first := info.Layouts[0].LayoutID

	// Deleting the only floor is refused
	rec := do(e, http.MethodDelete, sessionPath(info.ID, "/layouts/"+first), "u1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(e, http.MethodPost, sessionPath(info.ID, "/layouts"), "u1", layoutNameRequest{Name: "Mezzanine"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var added models.Layout
	decode(t, rec, &added)
	assert.Equal(t, "Mezzanine", added.LayoutName)

	rec = do(e, http.MethodPut, sessionPath(info.ID, "/layouts/"+added.LayoutID), "u1", layoutNameRequest{Name: "Upper"})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &info)
	assert.Equal(t, "Upper", info.Layouts[1].LayoutName)

	rec = do(e, http.MethodPut, sessionPath(info.ID, "/layouts/active"), "u1", switchLayoutRequest{LayoutID: added.LayoutID})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &info)
	assert.Equal(t, added.LayoutID, info.ActiveLayoutID)

	rec = do(e, http.MethodPut, sessionPath(info.ID, "/layouts/order"), "u1", layoutOrderRequest{LayoutIDs: []string{added.LayoutID, first}})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &info)
	assert.Equal(t, added.LayoutID, info.Layouts[0].LayoutID)

	rec = do(e, http.MethodPut, sessionPath(info.ID, "/layouts/order"), "u1", layoutOrderRequest{LayoutIDs: []string{first}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// A floor with shapes needs confirmation
	do(e, http.MethodPost, sessionPath(info.ID, "/operations"), "u1", addOp(rectEntry("r1", 10)))
	rec = do(e, http.MethodDelete, sessionPath(info.ID, "/layouts/"+added.LayoutID), "u1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "CONFIRMATION_REQUIRED")

	rec = do(e, http.MethodDelete, sessionPath(info.ID, "/layouts/"+added.LayoutID+"?confirm=true"), "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &info)
	require.Len(t, info.Layouts, 1)
	assert.Equal(t, first, info.ActiveLayoutID)

	rec = do(e, http.MethodPut, sessionPath(info.ID, "/layouts/active"), "u1", switchLayoutRequest{LayoutID: "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "LAYOUT_NOT_FOUND")
}

func TestLayoutPreview(t *testing.T) {
	e, _ := newTestServer(t, session.Security{})
	info := openSession(t, e, "u1")
	do(e, http.MethodPost, sessionPath(info.ID, "/operations"), "u1", addOp(rectEntry("r1", 10)))

	rec := do(e, http.MethodGet, sessionPath(info.ID, "/layouts/"+info.ActiveLayoutID+"/preview.png?scale=0.25"), "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = do(e, http.MethodGet, sessionPath(info.ID, "/layouts/"+info.ActiveLayoutID+"/preview.png?scale=9"), "u1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNumberingRoutes(t *testing.T) {
	e, _ := newTestServer(t, session.Security{})
	info := openSession(t, e, "u1")

	rec := do(e, http.MethodPost, sessionPath(info.ID, "/locations/next"), "u1", nextLocationRequest{Placement: models.PlacementWall, TableID: "01"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var loc session.Location
	decode(t, rec, &loc)
	assert.Equal(t, "01", loc.TableID)

	rec = do(e, http.MethodPost, sessionPath(info.ID, "/locations/next"), "u1", nextLocationRequest{Placement: "ROOF"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, sessionPath(info.ID, "/areas/next"), "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"areaId":"1"`)

	prefs := info.Preferences
	prefs.TableIDLength = 0
	rec = do(e, http.MethodPut, sessionPath(info.ID, "/preferences"), "u1", prefs)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSaveAndClose(t *testing.T) {
	e, mgr := newTestServer(t, session.Security{})
	info := openSession(t, e, "u1")
	do(e, http.MethodPost, sessionPath(info.ID, "/operations"), "u1", addOp(rectEntry("r1", 10)))

	rec := do(e, http.MethodPost, sessionPath(info.ID, "/save"), "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &info)
	assert.False(t, info.HasUnsavedData)

	rec = do(e, http.MethodPost, sessionPath(info.ID, "/restore"), "u1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(e, http.MethodPost, sessionPath(info.ID, "/keepalive"), "u1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodDelete, sessionPath(info.ID, ""), "u1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, mgr.Count())
}

func TestPreviewRoutes(t *testing.T) {
	e, _ := newTestServer(t, session.Security{})
	info := openSession(t, e, "u1")

	rec := do(e, http.MethodPut, sessionPath(info.ID, "/preview"), "u1", previewRequest{Entries: []models.ShapeEntry{rectEntry("p1", 0), rectEntry("p2", 50)}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":2}`, rec.Body.String())

	rec = do(e, http.MethodDelete, sessionPath(info.ID, "/preview"), "u1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestFromSessionError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{session.ErrSessionNotFound, http.StatusNotFound, "NOT_FOUND"},
		{fmt.Errorf("layout x: %w", session.ErrLayoutNotFound), http.StatusNotFound, "LAYOUT_NOT_FOUND"},
		{session.ErrReadOnly, http.StatusForbidden, "FORBIDDEN"},
		{session.ErrConfirmationRequired, http.StatusConflict, "CONFIRMATION_REQUIRED"},
		{session.ErrRecoveryPending, http.StatusConflict, "RECOVERY_PENDING"},
		{session.ErrLastLayout, http.StatusConflict, "CONFLICT"},
		{fmt.Errorf("bad: %w", session.ErrInvalidOperation), http.StatusBadRequest, "BAD_REQUEST"},
		{session.ErrTooManySessions, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			apiErr := fromSessionError(tt.err, "s1")
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.code, apiErr.Code)
		})
	}
}
