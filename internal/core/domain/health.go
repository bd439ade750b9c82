package domain

import "net/http"

// HealthStatus is the overall state of the answer service.
type HealthStatus string

// Health states.
const (
	// HealthHealthy means every backend responded.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded means the store works but a model backend does not.
	// Questions cannot be answered, but indexed data is intact.
	HealthDegraded HealthStatus = "degraded"

	// HealthUnhealthy means the chunk store cannot be reached.
	HealthUnhealthy HealthStatus = "unhealthy"
)

// HTTPStatus maps the health state to a transport status code.
// Only a fully healthy service reports 200.
func (s HealthStatus) HTTPStatus() int {
	switch s {
	case HealthHealthy:
		return http.StatusOK
	case HealthDegraded, HealthUnhealthy:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ComponentHealth is the probe result of one backend.
type ComponentHealth struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

// HealthReport aggregates component probes.
type HealthReport struct {
	Status     HealthStatus      `json:"status"`
	Profile    Profile           `json:"profile"`
	Components []ComponentHealth `json:"components"`
}
