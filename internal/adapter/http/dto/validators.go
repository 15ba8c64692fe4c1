package dto

import (
	"reflect"
	"regexp"
	"strings"

	"settlement-gateway/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var safeStringRe = regexp.MustCompile(`^[a-zA-Z0-9_\-\.]+$`)

// maxIdempotencyKeyLen bounds the Idempotency-Key header.
const maxIdempotencyKeyLen = 128

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("safe_id", validateSafeID)
		_ = v.RegisterValidation("address", validateAddress)
	}
}

// validateSafeID allows alphanumeric, underscore, dash, and dot.
func validateSafeID(fl validator.FieldLevel) bool {
	return safeStringRe.MatchString(fl.Field().String())
}

// validateAddress accepts 64-char hex Ed25519 public keys.
func validateAddress(fl validator.FieldLevel) bool {
	_, err := domain.ParseAddress(fl.Field().String())
	return err == nil
}

// ValidIdempotencyKey reports whether key may be used as an Idempotency-Key.
func ValidIdempotencyKey(key string) bool {
	return len(key) <= maxIdempotencyKeyLen && safeStringRe.MatchString(key)
}

// SanitizeStruct trims whitespace from every exported string field (including
// *string and []string) tagged `sanitize:"trim"` on a struct pointer.
func SanitizeStruct(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	sanitizeFields(rv.Elem())
}

func sanitizeFields(rv reflect.Value) {
	rt := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() || rt.Field(i).Tag.Get("sanitize") != "trim" {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(strings.TrimSpace(f.String()))
		case reflect.Ptr:
			if !f.IsNil() && f.Elem().Kind() == reflect.String {
				f.Elem().SetString(strings.TrimSpace(f.Elem().String()))
			}
		case reflect.Slice:
			if f.Type().Elem().Kind() != reflect.String {
				continue
			}
			for j := 0; j < f.Len(); j++ {
				f.Index(j).SetString(strings.TrimSpace(f.Index(j).String()))
			}
		}
	}
}
