package handler

import (
	"math"
	"strconv"

	"settlement-gateway/internal/adapter/http/dto"
	"settlement-gateway/internal/adapter/http/middleware"
	"settlement-gateway/internal/core/domain"
	"settlement-gateway/internal/core/ports"
	"settlement-gateway/pkg/apperror"
	"settlement-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey scopes create retries to one request.
const HeaderIdempotencyKey = "Idempotency-Key"

const defaultPageSize = 20

// PaymentHandler handles payment request endpoints.
type PaymentHandler struct {
	paymentSvc ports.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentSvc ports.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentSvc: paymentSvc}
}

// Create handles POST /api/v1/payments.
func (h *PaymentHandler) Create(c *gin.Context) {
	key := c.GetHeader(HeaderIdempotencyKey)
	if key != "" && !dto.ValidIdempotencyKey(key) {
		response.Error(c, apperror.Validation("invalid Idempotency-Key header"))
		return
	}

	var req dto.CreatePaymentRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	requester, err := parseAddress(req.Requester)
	if err != nil {
		response.Error(c, err)
		return
	}

	p, err := h.paymentSvc.Create(c.Request.Context(), ports.CreatePaymentRequest{
		Amount:              req.Amount,
		BusinessName:        req.BusinessName,
		Description:         req.Description,
		Denomination:        req.Denomination,
		AuthorizedAddresses: req.AuthorizedAddresses,
		Requester:           requester,
		CustomFeeBps:        req.CustomFeeBps,
		IdempotencyKey:      key,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Set(middleware.CtxResourceID, strconv.FormatUint(p.ID, 10))
	response.Created(c, p)
}

// Get handles GET /api/v1/payments/:id.
func (h *PaymentHandler) Get(c *gin.Context) {
	id, err := paymentID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	p, err := h.paymentSvc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}

// Counter handles GET /api/v1/payments/counter.
func (h *PaymentHandler) Counter(c *gin.Context) {
	n, err := h.paymentSvc.Counter(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.PaymentCounterResponse{Counter: n})
}

// List handles GET /api/v1/payments.
func (h *PaymentHandler) List(c *gin.Context) {
	var q dto.ListPaymentsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&q)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = defaultPageSize
	}

	filter := domain.PaymentFilter{
		BusinessName: q.Business,
		Status:       domain.PaymentStatus(q.Status),
		Limit:        q.PageSize,
		Offset:       (q.Page - 1) * q.PageSize,
	}
	if q.Requester != "" {
		filter.Requester, _ = domain.ParseAddress(q.Requester)
	}

	items, total, err := h.paymentSvc.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.PaymentListResponse{
		Items:      items,
		Total:      total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(q.PageSize))),
	})
}

// Execute handles POST /api/v1/payments/:id/execute.
func (h *PaymentHandler) Execute(c *gin.Context) {
	id, err := paymentID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ExecutePaymentRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	payer, err := parseAddress(req.Payer)
	if err != nil {
		response.Error(c, err)
		return
	}

	p, err := h.paymentSvc.Execute(c.Request.Context(), ports.ExecutePaymentRequest{
		PaymentID: id,
		Payer:     payer,
		Asset:     req.Asset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}

// Cancel handles POST /api/v1/payments/:id/cancel.
func (h *PaymentHandler) Cancel(c *gin.Context) {
	id, err := paymentID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CancelPaymentRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		response.Error(c, err)
		return
	}

	p, err := h.paymentSvc.Cancel(c.Request.Context(), id, caller)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}
