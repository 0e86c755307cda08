package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthResponse is returned by GET /health: store connectivity plus
// scheduler-lease liveness checks.
type HealthResponse struct {
	Status string `json:"status"`
	Checks map[string]HealthCheck `json:"checks"`
}

// HealthCheck is the status of one health check component.
type HealthCheck struct {
	Status string `json:"status"`
	Message string `json:"message,omitempty"`
}

// healthHandler handles GET /health, checking store connectivity and
// that every named recurring scheduler job has a lease that isn't stuck
// in the past relative to its own cadence.
func (s *Server) healthHandler(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]HealthCheck{}
	status := "healthy"

	if s.pool == nil {
		checks["store"] = HealthCheck{Status: "unknown", Message: "no pool wired"}
	} else if err := s.pool.Ping(reqCtx); err != nil {
		checks["store"] = HealthCheck{Status: "unhealthy", Message: err.Error()}
		status = "unhealthy"
	} else {
		checks["store"] = HealthCheck{Status: "healthy"}
	}

	for _, name := range s.healthJobNames {
		spec, err := s.scheduler.JobStatus(reqCtx, name)
		switch {
		case err != nil:
			checks["scheduler:"+name] = HealthCheck{Status: "unhealthy", Message: err.Error()}
			status = degrade(status)
		case spec == nil:
			checks["scheduler:"+name] = HealthCheck{Status: "unhealthy", Message: "job not registered"}
			status = degrade(status)
		case spec.LeaseUntil.After(time.Now()) && time.Until(spec.NextRunAt) < -2*time.Hour:
			// A lease that's live but a next-run time stuck far in the
			// past means the handler is wedged mid-run well past any
			// sane job cadence.
			checks["scheduler:"+name] = HealthCheck{Status: "degraded", Message: "next run overdue"}
			status = degrade(status)
		default:
			checks["scheduler:"+name] = HealthCheck{Status: "healthy"}
		}
	}

	code := http.StatusOK
	if status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, &HealthResponse{Status: status, Checks: checks})
}

// degrade downgrades status without letting a later healthy check
// upgrade it back — "unhealthy" always wins over "degraded".
func degrade(status string) string {
	if status == "unhealthy" {
		return status
	}
	return "degraded"
}
