package health

import (
	"context"
	"errors"
	"testing"
)

func TestMonitor_CheckHealth(t *testing.T) {
	ok := func(ctx context.Context) error { return nil }
	bad := func(ctx context.Context) error { return errors.New("down") }

	tests := []struct {
		name       string
		components []Component
		want       SystemStatus
	}{
		{
			name: "all healthy",
			components: []Component{
				{Name: "database", Critical: true, Check: ok},
				{Name: "redis", Check: ok},
			},
			want: StatusHealthy,
		},
		{
			name: "non-critical failure degrades",
			components: []Component{
				{Name: "database", Critical: true, Check: ok},
				{Name: "redis", Check: bad},
			},
			want: StatusDegraded,
		},
		{
			name: "critical failure wins over degraded",
			components: []Component{
				{Name: "database", Critical: true, Check: bad},
				{Name: "redis", Check: bad},
			},
			want: StatusCritical,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(tt.components...)
			report := m.CheckHealth(context.Background())
			if report.SystemStatus != tt.want {
				t.Errorf("expected %s, got %s", tt.want, report.SystemStatus)
			}
		})
	}
}

func TestMonitor_ComponentErrors(t *testing.T) {
	m := NewMonitor(Component{
		Name:     "database",
		Critical: true,
		Check:    func(ctx context.Context) error { return errors.New("connection refused") },
	})

	report := m.CheckHealth(context.Background())
	c := report.Components["database"]
	if c.Status != StatusCritical {
		t.Errorf("expected critical, got %s", c.Status)
	}
	if c.Error != "connection refused" {
		t.Errorf("expected error message, got %q", c.Error)
	}
}
