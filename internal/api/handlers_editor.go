// handlers_editor.go - Editor session handlers
package api

import (
	"net/http"
	"strings"

	"github.com/floorplan-editor/backend/internal/models"
	"github.com/floorplan-editor/backend/internal/security"
	"github.com/floorplan-editor/backend/internal/session"
	"github.com/floorplan-editor/backend/internal/storage"
	"github.com/labstack/echo/v4"
)

// Identity headers set by the authenticating proxy.
const (
	HeaderUserID          = "X-User-Id"
	HeaderUserName        = "X-User-Name"
	HeaderUserAuthorities = "X-User-Authorities"
)

// EditorHandlerImpl implements EditorHandler and LayoutHandler
type EditorHandlerImpl struct {
	sessions SessionManager
}

// NewEditorHandler creates a new editor handler
func NewEditorHandler(sessions SessionManager) *EditorHandlerImpl {
	return &EditorHandlerImpl{sessions: sessions}
}

// userFrom reads the caller identity from request headers.
func userFrom(c echo.Context) models.User {
	h := c.Request().Header
	id := strings.TrimSpace(h.Get(HeaderUserID))
	if id == "" {
		id = "anonymous"
	}
	return models.User{
		UserID:      id,
		Name:        h.Get(HeaderUserName),
		Authorities: security.ParseAuthorities(h.Get(HeaderUserAuthorities)),
	}
}

// lookup resolves :sessionId and checks that the caller owns it.
func (h *EditorHandlerImpl) lookup(c echo.Context) (*session.EditorSession, error) {
	id := c.Param("sessionId")
	if id == "" {
		return nil, NewValidationError("sessionId")
	}
	s, ok := h.sessions.Get(id)
	if !ok {
		return nil, NewNotFoundError("session", id)
	}
	if s.User.UserID != userFrom(c).UserID {
		return nil, NewForbiddenError("session belongs to another user")
	}
	return s, nil
}

type openSessionRequest struct {
	MapID   string `json:"mapId"`
	Version string `json:"version"`
}

// HandleOpenSession opens a map version for the caller.
func (h *EditorHandlerImpl) HandleOpenSession(c echo.Context) error {
	var req openSessionRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.MapID == "" {
		return NewValidationError("mapId")
	}
	if req.Version == "" {
		return NewValidationError("version")
	}
	s, err := h.sessions.Open(c.Request().Context(), userFrom(c), req.MapID, req.Version)
	if err != nil {
		return fromSessionError(err, "")
	}
	return c.JSON(http.StatusCreated, s.Info())
}

// HandleListSessions lists the caller's open sessions.
func (h *EditorHandlerImpl) HandleListSessions(c echo.Context) error {
	user := userFrom(c)
	out := make([]models.EditorSessionInfo, 0)
	for _, info := range h.sessions.List() {
		if info.UserID == user.UserID {
			out = append(out, info)
		}
	}
	return c.JSON(http.StatusOK, out)
}

// HandleGetSession returns the session state.
func (h *EditorHandlerImpl) HandleGetSession(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.Info())
}

// HandleCloseSession flushes and closes a session.
func (h *EditorHandlerImpl) HandleCloseSession(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	if err := h.sessions.Close(c.Request().Context(), s.ID); err != nil {
		return fromSessionError(err, s.ID)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleKeepAlive refreshes the session's idle timer.
func (h *EditorHandlerImpl) HandleKeepAlive(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"lastAccessed": s.LastAccessed(),
	})
}

// HandleDispatch applies one ShapeOperation.
func (h *EditorHandlerImpl) HandleDispatch(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	var op models.ShapeOperation
	if err := c.Bind(&op); err != nil {
		return NewBadRequestError("invalid operation body", err)
	}
	applied, err := s.Dispatch(op)
	if err != nil {
		return fromSessionError(err, s.ID)
	}
	return c.JSON(http.StatusOK, applied)
}

type historyResponse struct {
	Applied   bool                   `json:"applied"`
	Operation *models.ShapeOperation `json:"operation,omitempty"`
	CanUndo   bool                   `json:"canUndo"`
	CanRedo   bool                   `json:"canRedo"`
}

func historyResult(s *session.EditorSession, op models.ShapeOperation, ok bool) historyResponse {
	info := s.Info()
	resp := historyResponse{Applied: ok, CanUndo: info.CanUndo, CanRedo: info.CanRedo}
	if ok {
		resp.Operation = &op
	}
	return resp
}

// HandleUndo reverts the newest operation.
func (h *EditorHandlerImpl) HandleUndo(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	op, ok, err := s.Undo()
	if err != nil {
		return fromSessionError(err, s.ID)
	}
	return c.JSON(http.StatusOK, historyResult(s, op, ok))
}

// HandleRedo re-applies the newest undone operation.
func (h *EditorHandlerImpl) HandleRedo(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	op, ok, err := s.Redo()
	if err != nil {
		return fromSessionError(err, s.ID)
	}
	return c.JSON(http.StatusOK, historyResult(s, op, ok))
}

type selectRequest struct {
	IDs []string `json:"ids"`
}

// HandleSelect replaces the selection.
func (h *EditorHandlerImpl) HandleSelect(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	var req selectRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid selection body", err)
	}
	selected, truncated, err := s.Select(req.IDs)
	if err != nil {
		return fromSessionError(err, s.ID)
	}
	if selected == nil {
		selected = []string{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"selectedIds": selected,
		"truncated":   truncated,
	})
}

// HandleClearSelection empties the selection.
func (h *EditorHandlerImpl) HandleClearSelection(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	if err := s.ClearSelection(); err != nil {
		return fromSessionError(err, s.ID)
	}
	return c.NoContent(http.StatusNoContent)
}

type changeIndexRequest struct {
	IDs   []string          `json:"ids"`
	Order models.IndexOrder `json:"order"`
}

// HandleChangeIndex moves shapes in z-order.
func (h *EditorHandlerImpl) HandleChangeIndex(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	var req changeIndexRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid order body", err)
	}
	if len(req.IDs) == 0 {
		return NewValidationError("ids")
	}
	if !req.Order.Valid() {
		return NewValidationError("order")
	}
	op, moved, err := s.ChangeIndex(req.IDs, req.Order)
	if err != nil {
		return fromSessionError(err, s.ID)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"moved":     moved,
		"operation": op,
	})
}

// HandleSetView changes zoom, lattice or remarks icon.
func (h *EditorHandlerImpl) HandleSetView(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	var v session.View
	if err := c.Bind(&v); err != nil {
		return NewBadRequestError("invalid view body", err)
	}
	return c.JSON(http.StatusOK, s.SetView(v))
}

type previewRequest struct {
	Entries []models.ShapeEntry `json:"entries"`
}

// HandlePreview shows uncommitted shapes on the preview layer.
func (h *EditorHandlerImpl) HandlePreview(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	var req previewRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid preview body", err)
	}
	s.Preview(req.Entries)
	return c.JSON(http.StatusOK, map[string]int{"count": s.PreviewLen()})
}

// HandleClearPreview empties the preview layer.
func (h *EditorHandlerImpl) HandleClearPreview(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	s.ClearPreview()
	return c.NoContent(http.StatusNoContent)
}

// HandleGetShapes returns the live shapes of the active floor.
func (h *EditorHandlerImpl) HandleGetShapes(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.Snapshot())
}

// HandleGetShapesMsgpack returns the live shapes in MessagePack format.
func (h *EditorHandlerImpl) HandleGetShapesMsgpack(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	data, err := storage.Marshal(s.Snapshot())
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

type nextLocationRequest struct {
	Placement models.Placement `json:"placement"`
	TableID   string           `json:"tableId"`
}

// HandleNextLocation allocates a location number on the active floor.
func (h *EditorHandlerImpl) HandleNextLocation(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	var req nextLocationRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid location body", err)
	}
	if req.Placement != "" && req.Placement != models.PlacementWall && req.Placement != models.PlacementIsland {
		return NewValidationError("placement")
	}
	loc, err := s.NextLocation(req.Placement, req.TableID)
	if err != nil {
		return fromSessionError(err, s.ID)
	}
	return c.JSON(http.StatusOK, loc)
}

// HandleNextAreaID allocates an area id on the active floor.
func (h *EditorHandlerImpl) HandleNextAreaID(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	id, err := s.NextAreaID()
	if err != nil {
		return fromSessionError(err, s.ID)
	}
	return c.JSON(http.StatusOK, map[string]string{"areaId": id})
}

// HandleUpdatePreferences replaces the map preferences.
func (h *EditorHandlerImpl) HandleUpdatePreferences(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	var prefs models.MapPreferences
	if err := c.Bind(&prefs); err != nil {
		return NewBadRequestError("invalid preferences body", err)
	}
	changed, err := s.UpdatePreferences(c.Request().Context(), prefs)
	if err != nil {
		return fromSessionError(err, s.ID)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"changed":     changed,
		"preferences": s.Info().Preferences,
	})
}

// HandleSave publishes the working copy.
func (h *EditorHandlerImpl) HandleSave(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	if err := s.Save(c.Request().Context()); err != nil {
		return fromSessionError(err, s.ID)
	}
	return c.JSON(http.StatusOK, s.Info())
}

// HandleRestoreUnsaved loads the unsaved working copy.
func (h *EditorHandlerImpl) HandleRestoreUnsaved(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	if err := s.RestoreUnsaved(c.Request().Context()); err != nil {
		return fromSessionError(err, s.ID)
	}
	return c.JSON(http.StatusOK, s.Info())
}

// HandleDiscardUnsaved drops the unsaved working copy.
func (h *EditorHandlerImpl) HandleDiscardUnsaved(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	if err := s.DiscardUnsaved(c.Request().Context()); err != nil {
		return fromSessionError(err, s.ID)
	}
	return c.JSON(http.StatusOK, s.Info())
}
