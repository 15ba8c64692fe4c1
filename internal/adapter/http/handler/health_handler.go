package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"settlement-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
)

const healthTimeout = 2 * time.Second

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthCheck pings every dependency concurrently and answers 503 when any
// of them fails.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		var (
			mu   sync.Mutex
			wg   sync.WaitGroup
			deps = make(map[string]dependencyStatus, len(checkers))
		)
		for _, checker := range checkers {
			wg.Add(1)
			go func(checker ports.HealthChecker) {
				defer wg.Done()
				st := dependencyStatus{Status: "healthy"}
				if err := checker.Ping(ctx); err != nil {
					st = dependencyStatus{Status: "unhealthy", Error: err.Error()}
				}
				mu.Lock()
				deps[checker.Name()] = st
				mu.Unlock()
			}(checker)
		}
		wg.Wait()

		status, code := "healthy", http.StatusOK
		for _, st := range deps {
			if st.Status != "healthy" {
				status, code = "degraded", http.StatusServiceUnavailable
				break
			}
		}

		c.JSON(code, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}
