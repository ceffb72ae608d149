// handlers_layouts.go - Floor management handlers
package api

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type layoutNameRequest struct {
	Name string `json:"name"`
}

// HandleAddLayout appends an empty floor.
func (h *EditorHandlerImpl) HandleAddLayout(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	var req layoutNameRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid layout body", err)
	}
	layout, err := s.AddLayout(c.Request().Context(), req.Name)
	if err != nil {
		return fromSessionError(err, s.ID)
	}
	return c.JSON(http.StatusCreated, layout)
}

// HandleDuplicateLayout copies a floor.
func (h *EditorHandlerImpl) HandleDuplicateLayout(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	var req layoutNameRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid layout body", err)
	}
	layout, err := s.DuplicateLayout(c.Request().Context(), c.Param("layoutId"), req.Name)
	if err != nil {
		return fromSessionError(err, s.ID)
	}
	return c.JSON(http.StatusCreated, layout)
}

// HandleDeleteLayout removes a floor. Non-empty floors need ?confirm=true.
func (h *EditorHandlerImpl) HandleDeleteLayout(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	confirm, _ := strconv.ParseBool(c.QueryParam("confirm"))
	if err := s.DeleteLayout(c.Request().Context(), c.Param("layoutId"), confirm); err != nil {
		return fromSessionError(err, s.ID)
	}
	return c.JSON(http.StatusOK, s.Info())
}

// HandleRenameLayout changes a floor's name.
func (h *EditorHandlerImpl) HandleRenameLayout(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	var req layoutNameRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid layout body", err)
	}
	if req.Name == "" {
		return NewValidationError("name")
	}
	if err := s.RenameLayout(c.Request().Context(), c.Param("layoutId"), req.Name); err != nil {
		return fromSessionError(err, s.ID)
	}
	return c.JSON(http.StatusOK, s.Info())
}

type layoutOrderRequest struct {
	LayoutIDs []string `json:"layoutIds"`
}

// HandleReorderLayouts sets the tab order.
func (h *EditorHandlerImpl) HandleReorderLayouts(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	var req layoutOrderRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid order body", err)
	}
	if err := s.ReorderLayouts(c.Request().Context(), req.LayoutIDs); err != nil {
		return fromSessionError(err, s.ID)
	}
	return c.JSON(http.StatusOK, s.Info())
}

type switchLayoutRequest struct {
	LayoutID string `json:"layoutId"`
}

// HandleSwitchLayout changes the active floor.
func (h *EditorHandlerImpl) HandleSwitchLayout(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	var req switchLayoutRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid layout body", err)
	}
	if req.LayoutID == "" {
		return NewValidationError("layoutId")
	}
	if err := s.SwitchLayout(c.Request().Context(), req.LayoutID); err != nil {
		return fromSessionError(err, s.ID)
	}
	return c.JSON(http.StatusOK, s.Info())
}

// HandleLayoutPreview renders a floor to PNG. ?scale defaults to 0.5.
func (h *EditorHandlerImpl) HandleLayoutPreview(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	scale := 0.5
	if v := c.QueryParam("scale"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 || parsed > 4 {
			return NewValidationError("scale")
		}
		scale = parsed
	}
	var buf bytes.Buffer
	if err := s.Render(c.Request().Context(), &buf, c.Param("layoutId"), scale); err != nil {
		return fromSessionError(err, s.ID)
	}
	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}
