package middleware

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"settlement-gateway/internal/core/domain"
	"settlement-gateway/internal/core/ports"
	"settlement-gateway/pkg/apperror"
	"settlement-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	// HeaderConsentToken carries the EdDSA consent JWT.
	HeaderConsentToken = "X-Consent-Token"
	// HeaderRequestID carries the request correlation id in both directions.
	HeaderRequestID = "X-Request-ID"

	// CtxSigner holds the domain.Address proven by the consent token.
	CtxSigner = "signer"

	maxRequestIDLen = 64
)

// ConsentAuth verifies the consent token of a write call.
// Pipeline: read body -> verify token against method, path and body -> burn nonce.
// The verified signer is stored on the gin context and on the request context.
func ConsentAuth(verifier ports.ConsentVerifier, nonces ports.NonceStore, nonceTTL time.Duration, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(HeaderConsentToken)
		if token == "" {
			response.Error(c, apperror.ErrConsentRequired())
			c.Abort()
			return
		}

		var body []byte
		if c.Request.Body != nil {
			var err error
			body, err = io.ReadAll(c.Request.Body)
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					response.Error(c, apperror.New("VAL_001", "Request body too large", http.StatusRequestEntityTooLarge))
				} else {
					response.Error(c, apperror.Validation("cannot read request body"))
				}
				c.Abort()
				return
			}
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		claims, err := verifier.Verify(token, ports.ConsentRequest{
			Method: c.Request.Method,
			Path:   c.Request.URL.Path,
			Body:   body,
		})
		if err != nil {
			log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("consent token rejected")
			response.Error(c, apperror.ErrConsentRequired())
			c.Abort()
			return
		}

		isNew, err := nonces.CheckAndSet(c.Request.Context(), string(claims.Signer), claims.Nonce, nonceTTL)
		if err != nil {
			log.Error().Err(err).Str("signer", string(claims.Signer)).Msg("nonce store unavailable, rejecting request")
			response.Error(c, apperror.InternalError(fmt.Errorf("nonce store: %w", err)))
			c.Abort()
			return
		}
		if !isNew {
			response.Error(c, apperror.ErrConsentReplayed())
			c.Abort()
			return
		}

		c.Set(CtxSigner, claims.Signer)
		c.Request = c.Request.WithContext(ports.ContextWithSigner(c.Request.Context(), claims.Signer))
		c.Next()
	}
}

// SignerOf returns the signer stored by ConsentAuth.
func SignerOf(c *gin.Context) (domain.Address, bool) {
	v, ok := c.Get(CtxSigner)
	if !ok {
		return "", false
	}
	s, ok := v.(domain.Address)
	return s, ok
}

// RequestID propagates a safe inbound X-Request-ID or generates a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.GetHeader(HeaderRequestID); id != "" && len(id) <= maxRequestIDLen && safeHeaderRe.MatchString(id) {
			c.Set(response.CtxRequestID, id)
		}
		c.Header(HeaderRequestID, response.RequestID(c))
		c.Next()
	}
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		if signer, ok := SignerOf(c); ok {
			event = event.Str("signer", string(signer))
		}

		event.
			Str("request_id", response.RequestID(c)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				response.Error(c, apperror.InternalError(fmt.Errorf("panic: %v", r)))
				c.Abort()
			}
		}()
		c.Next()
	}
}

// RequestObserver receives one observation per served request.
type RequestObserver interface {
	ObserveRequest(route, method string, status int, elapsed time.Duration)
}

// Metrics reports every request to obs, labelled by route template.
func Metrics(obs RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		obs.ObserveRequest(c.FullPath(), c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}
