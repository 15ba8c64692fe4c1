package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"settlement-gateway/internal/core/domain"
	"settlement-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CtxResourceID lets a handler name the resource it created.
const CtxResourceID = "resource_id"

type auditRoute struct {
	action       domain.AuditAction
	resourceType string
	param        string
}

var auditRoutes = map[string]auditRoute{
	http.MethodPost + " /api/v1/admin/initialize":       {domain.AuditActionInitialize, "contract", ""},
	http.MethodPost + " /api/v1/businesses":             {domain.AuditActionRegister, "business", ""},
	http.MethodPut + " /api/v1/businesses/:name/status": {domain.AuditActionBusinessStatus, "business", "name"},
	http.MethodPut + " /api/v1/businesses/:name/fee":    {domain.AuditActionBusinessFee, "business", "name"},
	http.MethodPost + " /api/v1/payments":               {domain.AuditActionCreatePayment, "payment_request", ""},
	http.MethodPost + " /api/v1/payments/:id/execute":   {domain.AuditActionExecute, "payment_request", "id"},
	http.MethodPost + " /api/v1/payments/:id/cancel":    {domain.AuditActionCancel, "payment_request", "id"},
}

// AuditLog records every mapped write call after it completes, successful or
// not, with the proven signer as actor.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route, ok := auditRoutes[c.Request.Method+" "+c.FullPath()]
		if !ok {
			return
		}

		entry := &domain.AuditLog{
			ID:           uuid.New(),
			Action:       route.action,
			ResourceType: route.resourceType,
			IPAddress:    c.ClientIP(),
			StatusCode:   c.Writer.Status(),
			CreatedAt:    time.Now().UTC(),
		}
		if signer, ok := SignerOf(c); ok {
			entry.Actor = signer
		}
		if route.param != "" {
			entry.ResourceID = c.Param(route.param)
		} else if id := c.GetString(CtxResourceID); id != "" {
			entry.ResourceID = id
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		})
		entry.Details = string(details)

		auditSvc.Log(c.Request.Context(), entry)
	}
}
