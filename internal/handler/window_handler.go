package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-crs-api/internal/service"
	appErrors "github.com/noah-isme/uni-crs-api/pkg/errors"
	"github.com/noah-isme/uni-crs-api/pkg/response"
)

// WindowHandler exposes registration window endpoints.
type WindowHandler struct {
	windows *service.WindowService
}

// NewWindowHandler constructs WindowHandler.
func NewWindowHandler(windows *service.WindowService) *WindowHandler {
	return &WindowHandler{windows: windows}
}

// Active godoc
// @Summary Get the active registration window
// @Tags Windows
// @Produce json
// @Param semesterId query string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /windows/active [get]
func (h *WindowHandler) Active(c *gin.Context) {
	semesterID := c.Query("semesterId")
	if semesterID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "semesterId is required"))
		return
	}
	window, err := h.windows.Active(c.Request.Context(), semesterID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, window, nil)
}

// Get godoc
// @Summary Get a registration window
// @Tags Windows
// @Produce json
// @Param id path string true "Window ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /windows/{id} [get]
func (h *WindowHandler) Get(c *gin.Context) {
	window, err := h.windows.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, window, nil)
}
