package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-crs-api/internal/service"
	appErrors "github.com/noah-isme/uni-crs-api/pkg/errors"
	"github.com/noah-isme/uni-crs-api/pkg/response"
)

// AdminRegistrationHandler exposes registrar override endpoints.
type AdminRegistrationHandler struct {
	registrations *service.RegistrationService
}

// NewAdminRegistrationHandler constructs AdminRegistrationHandler.
func NewAdminRegistrationHandler(registrations *service.RegistrationService) *AdminRegistrationHandler {
	return &AdminRegistrationHandler{registrations: registrations}
}

// ForceAdd godoc
// @Summary Force-add a student into a section
// @Description Enroll a student bypassing window, eligibility, and capacity checks
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body service.EnrollRequest true "Force-add payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/registrations [post]
func (h *AdminRegistrationHandler) ForceAdd(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid force-add payload"))
		return
	}
	if req.ForceReason == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "force_reason is required"))
		return
	}
	req.ForcedBy = claims.UserID

	result, err := h.registrations.ForceAdd(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ForceRemove godoc
// @Summary Force-remove a registration
// @Description Drop any active registration regardless of ownership or deadline
// @Tags Admin
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/registrations/{id} [delete]
func (h *AdminRegistrationHandler) ForceRemove(c *gin.Context) {
	if err := h.registrations.ForceRemove(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
