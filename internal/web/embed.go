// Package web serves the editor frontend bundled into the binary.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// dist holds the built frontend. An empty folder means the frontend is
// served by its own dev server.
//
//go:embed dist/*
var staticFiles embed.FS

// GetFileSystem returns the embedded filesystem with the dist folder as root.
func GetFileSystem() (fs.FS, error) {
	return fs.Sub(staticFiles, "dist")
}

// HasEmbeddedFiles reports whether a built frontend was embedded.
func HasEmbeddedFiles() bool {
	return hasIndex(staticFiles, "dist")
}

func hasIndex(fsys fs.FS, dir string) bool {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry.Name() == "index.html" && !entry.IsDir() {
			return true
		}
	}
	return false
}

// RegisterStaticRoutes serves the frontend for every path the API does not
// claim. Unknown paths fall back to index.html so client routes such as
// /maps/:id/edit resolve.
func RegisterStaticRoutes(e *echo.Echo) error {
	staticFS, err := GetFileSystem()
	if err != nil {
		return err
	}
	e.Use(StaticMiddleware(staticFS))
	return nil
}

// StaticMiddleware serves fsys as a single page application. Requests under
// /api are passed through.
func StaticMiddleware(fsys fs.FS) echo.MiddlewareFunc {
	return middleware.StaticWithConfig(middleware.StaticConfig{
		Root:       ".",
		Index:      "index.html",
		HTML5:      true,
		Filesystem: http.FS(fsys),
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, "/api")
		},
	})
}
