// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"github.com/labstack/echo/v4"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	SessionMgr SessionManager
	Version    string
	// WebSocketMaxMessageKB limits inbound websocket frames
	WebSocketMaxMessageKB int
}

// Handlers holds all handler instances
type Handlers struct {
	Health HealthHandler
	Editor EditorHandler
	Layout LayoutHandler
	Stream OperationStreamHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	editor := NewEditorHandler(deps.SessionMgr)
	return &Handlers{
		Health: NewHealthHandler(deps.Version, deps.SessionMgr),
		Editor: editor,
		Layout: editor,
		Stream: NewWebSocketHandler(deps.SessionMgr, deps.WebSocketMaxMessageKB),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	// Health check
	e.GET("/api/health", handlers.Health.HandleHealth)

	// Editor session routes
	sessions := e.Group("/api/editor/sessions")
	sessions.POST("", handlers.Editor.HandleOpenSession)
	sessions.GET("", handlers.Editor.HandleListSessions)
	sessions.GET("/:sessionId", handlers.Editor.HandleGetSession)
	sessions.DELETE("/:sessionId", handlers.Editor.HandleCloseSession)
	sessions.POST("/:sessionId/keepalive", handlers.Editor.HandleKeepAlive)

	// Shape operations
	sessions.POST("/:sessionId/operations", handlers.Editor.HandleDispatch)
	sessions.POST("/:sessionId/undo", handlers.Editor.HandleUndo)
	sessions.POST("/:sessionId/redo", handlers.Editor.HandleRedo)
	sessions.PUT("/:sessionId/selection", handlers.Editor.HandleSelect)
	sessions.DELETE("/:sessionId/selection", handlers.Editor.HandleClearSelection)
	sessions.POST("/:sessionId/order", handlers.Editor.HandleChangeIndex)
	sessions.PUT("/:sessionId/view", handlers.Editor.HandleSetView)
	sessions.PUT("/:sessionId/preview", handlers.Editor.HandlePreview)
	sessions.DELETE("/:sessionId/preview", handlers.Editor.HandleClearPreview)
	sessions.GET("/:sessionId/shapes", handlers.Editor.HandleGetShapes)
	sessions.GET("/:sessionId/shapes/msgpack", handlers.Editor.HandleGetShapesMsgpack)

	// Numbering and preferences
	sessions.POST("/:sessionId/locations/next", handlers.Editor.HandleNextLocation)
	sessions.POST("/:sessionId/areas/next", handlers.Editor.HandleNextAreaID)
	sessions.PUT("/:sessionId/preferences", handlers.Editor.HandleUpdatePreferences)

	// Persistence
	sessions.POST("/:sessionId/save", handlers.Editor.HandleSave)
	sessions.POST("/:sessionId/restore", handlers.Editor.HandleRestoreUnsaved)
	sessions.POST("/:sessionId/discard", handlers.Editor.HandleDiscardUnsaved)

	// Floors
	layouts := sessions.Group("/:sessionId/layouts")
	layouts.POST("", handlers.Layout.HandleAddLayout)
	layouts.PUT("/order", handlers.Layout.HandleReorderLayouts)
	layouts.PUT("/active", handlers.Layout.HandleSwitchLayout)
	layouts.POST("/:layoutId/duplicate", handlers.Layout.HandleDuplicateLayout)
	layouts.DELETE("/:layoutId", handlers.Layout.HandleDeleteLayout)
	layouts.PUT("/:layoutId", handlers.Layout.HandleRenameLayout)
	layouts.GET("/:layoutId/preview.png", handlers.Layout.HandleLayoutPreview)
}

// RegisterWebSocketRoutes registers WebSocket routes
func RegisterWebSocketRoutes(e *echo.Echo, handlers *Handlers) {
	e.GET("/api/ws/operations/:sessionId", handlers.Stream.HandleOperationStream)
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo) {
	e.HTTPErrorHandler = ErrorHandler
}
