package handler

import (
	"settlement-gateway/internal/adapter/http/dto"
	"settlement-gateway/internal/adapter/http/middleware"
	"settlement-gateway/internal/core/ports"
	"settlement-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// BusinessHandler handles business registry endpoints.
type BusinessHandler struct {
	businessSvc ports.BusinessService
}

// NewBusinessHandler creates a new BusinessHandler.
func NewBusinessHandler(businessSvc ports.BusinessService) *BusinessHandler {
	return &BusinessHandler{businessSvc: businessSvc}
}

// Register handles POST /api/v1/businesses.
func (h *BusinessHandler) Register(c *gin.Context) {
	var req dto.RegisterBusinessRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	owner, err := parseAddress(req.Owner)
	if err != nil {
		response.Error(c, err)
		return
	}
	recipient, err := parseAddress(req.FeeRecipient)
	if err != nil {
		response.Error(c, err)
		return
	}

	biz, err := h.businessSvc.Register(c.Request.Context(), ports.RegisterBusinessRequest{
		Name:         req.Name,
		Owner:        owner,
		FeeRecipient: recipient,
		FeeBps:       *req.FeeBps,
		MinAmount:    req.MinAmount,
		MaxAmount:    req.MaxAmount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Set(middleware.CtxResourceID, biz.Name)
	response.Created(c, biz)
}

// Get handles GET /api/v1/businesses/:name.
func (h *BusinessHandler) Get(c *gin.Context) {
	biz, err := h.businessSvc.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, biz)
}

// UpdateStatus handles PUT /api/v1/businesses/:name/status.
func (h *BusinessHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateBusinessStatusRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		response.Error(c, err)
		return
	}

	biz, err := h.businessSvc.UpdateStatus(c.Request.Context(), c.Param("name"), *req.IsActive, caller)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, biz)
}

// UpdateFee handles PUT /api/v1/businesses/:name/fee.
func (h *BusinessHandler) UpdateFee(c *gin.Context) {
	var req dto.UpdateBusinessFeeRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		response.Error(c, err)
		return
	}

	biz, err := h.businessSvc.UpdateFee(c.Request.Context(), c.Param("name"), *req.FeeBps, caller)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, biz)
}
