// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/floorplan-editor/backend/internal/models"
	"github.com/floorplan-editor/backend/internal/session"
	"github.com/labstack/echo/v4"
)

// EditorHandler handles editor session and shape operations
type EditorHandler interface {
	HandleOpenSession(c echo.Context) error
	HandleListSessions(c echo.Context) error
	HandleGetSession(c echo.Context) error
	HandleCloseSession(c echo.Context) error
	HandleKeepAlive(c echo.Context) error
	HandleDispatch(c echo.Context) error
	HandleUndo(c echo.Context) error
	HandleRedo(c echo.Context) error
	HandleSelect(c echo.Context) error
	HandleClearSelection(c echo.Context) error
	HandleChangeIndex(c echo.Context) error
	HandleSetView(c echo.Context) error
	HandlePreview(c echo.Context) error
	HandleClearPreview(c echo.Context) error
	HandleGetShapes(c echo.Context) error
	HandleGetShapesMsgpack(c echo.Context) error
	HandleNextLocation(c echo.Context) error
	HandleNextAreaID(c echo.Context) error
	HandleUpdatePreferences(c echo.Context) error
	HandleSave(c echo.Context) error
	HandleRestoreUnsaved(c echo.Context) error
	HandleDiscardUnsaved(c echo.Context) error
}

// LayoutHandler handles floor management within a session
type LayoutHandler interface {
	HandleAddLayout(c echo.Context) error
	HandleDuplicateLayout(c echo.Context) error
	HandleDeleteLayout(c echo.Context) error
	HandleRenameLayout(c echo.Context) error
	HandleReorderLayouts(c echo.Context) error
	HandleSwitchLayout(c echo.Context) error
	HandleLayoutPreview(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// OperationStreamHandler handles the websocket operation stream
type OperationStreamHandler interface {
	HandleOperationStream(c echo.Context) error
}

// SessionManager defines the interface for session management
// This allows mocking in tests
type SessionManager interface {
	Open(ctx context.Context, user models.User, mapID, version string) (*session.EditorSession, error)
	Get(id string) (*session.EditorSession, bool)
	Close(ctx context.Context, id string) error
	List() []models.EditorSessionInfo
	Count() int
}

var _ SessionManager = (*session.Manager)(nil)
