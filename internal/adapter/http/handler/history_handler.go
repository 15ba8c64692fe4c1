package handler

import (
	"settlement-gateway/internal/core/ports"
	"settlement-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// HistoryHandler serves per-payer settlement history.
type HistoryHandler struct {
	historySvc ports.HistoryService
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(historySvc ports.HistoryService) *HistoryHandler {
	return &HistoryHandler{historySvc: historySvc}
}

// Get handles GET /api/v1/history/:address.
func (h *HistoryHandler) Get(c *gin.Context) {
	payer, err := parseAddress(c.Param("address"))
	if err != nil {
		response.Error(c, err)
		return
	}
	history, err := h.historySvc.Get(c.Request.Context(), payer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, history)
}
