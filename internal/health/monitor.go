package health

import (
	"context"
	"time"
)

// Checker probes a single dependency.
type Checker func(ctx context.Context) error

// Component couples a named dependency with its probe. Critical
// components take the whole system to critical when they fail;
// non-critical ones only degrade it.
type Component struct {
	Name     string
	Critical bool
	Check    Checker
}

// Monitor evaluates the health of all registered components.
type Monitor struct {
	components []Component
	timeout    time.Duration
}

// NewMonitor creates a monitor over the given components.
func NewMonitor(components ...Component) *Monitor {
	return &Monitor{
		components: components,
		timeout:    3 * time.Second,
	}
}

// Register adds a component after construction.
func (m *Monitor) Register(c Component) {
	m.components = append(m.components, c)
}

// CheckHealth probes every component and aggregates the report.
func (m *Monitor) CheckHealth(ctx context.Context) Report {
	report := Report{Components: make(map[string]ComponentHealth)}

	for _, c := range m.components {
		ch := ComponentHealth{
			Name:     c.Name,
			Status:   StatusHealthy,
			Critical: c.Critical,
		}

		checkCtx, cancel := context.WithTimeout(ctx, m.timeout)
		err := c.Check(checkCtx)
		cancel()

		if err != nil {
			ch.Error = err.Error()
			if c.Critical {
				ch.Status = StatusCritical
			} else {
				ch.Status = StatusDegraded
			}
		}

		report.Components[c.Name] = ch
	}

	report.SystemStatus = report.Overall()
	return report
}
