// Package health provides system health monitoring and status reporting.
package health

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// ComponentHealth contains the health state of one dependency.
type ComponentHealth struct {
	Name     string       `json:"name"`
	Status   SystemStatus `json:"status"`
	Error    string       `json:"error,omitempty"`
	Critical bool         `json:"critical"`
}

// Report contains the full system health report.
type Report struct {
	SystemStatus SystemStatus               `json:"system_status"`
	Components   map[string]ComponentHealth `json:"components"`
}

// Overall aggregates component statuses, worst case wins: a failed
// critical component makes the system critical, a failed non-critical
// one only degrades it.
func (r Report) Overall() SystemStatus {
	status := StatusHealthy
	for _, c := range r.Components {
		if c.Status == StatusCritical {
			return StatusCritical
		}
		if c.Status == StatusDegraded {
			status = StatusDegraded
		}
	}
	return status
}
