package handler

import (
	"settlement-gateway/internal/adapter/http/dto"
	"settlement-gateway/internal/core/ports"
	"settlement-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// AdminHandler handles contract administration endpoints.
type AdminHandler struct {
	adminSvc ports.AdminService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(adminSvc ports.AdminService) *AdminHandler {
	return &AdminHandler{adminSvc: adminSvc}
}

// Initialize handles POST /api/v1/admin/initialize.
func (h *AdminHandler) Initialize(c *gin.Context) {
	var req dto.InitializeRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	owner, err := parseAddress(req.Owner)
	if err != nil {
		response.Error(c, err)
		return
	}

	state, err := h.adminSvc.Initialize(c.Request.Context(), owner, *req.DefaultFeeBps)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, state)
}

// State handles GET /api/v1/admin.
func (h *AdminHandler) State(c *gin.Context) {
	state, err := h.adminSvc.State(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, state)
}
