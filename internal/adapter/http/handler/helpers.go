package handler

import (
	"strconv"

	"settlement-gateway/internal/adapter/http/dto"
	"settlement-gateway/internal/core/domain"
	"settlement-gateway/pkg/apperror"

	"github.com/gin-gonic/gin"
)

// bindJSON decodes the body into req and trims its tagged fields.
func bindJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return apperror.Validation(err.Error())
	}
	dto.SanitizeStruct(req)
	return nil
}

func parseAddress(raw string) (domain.Address, error) {
	addr, err := domain.ParseAddress(raw)
	if err != nil {
		return "", apperror.ErrInvalidAddress()
	}
	return addr, nil
}

func paymentID(c *gin.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperror.Validation("invalid payment request id")
	}
	return id, nil
}
