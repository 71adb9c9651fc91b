package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewRegistry_AllMetricsRegisterWithoutCollision(t *testing.T) {
	r := NewRegistry()
	reg := prometheus.NewRegistry()
	r.MustRegister(reg)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("unexpected error gathering metrics: %v", err)
	}
	if len(families) == 0 {
		t.Error("expected at least one registered metric family")
	}
}

func TestNewRegistry_DoubleRegistrationPanics(t *testing.T) {
	r := NewRegistry()
	reg := prometheus.NewRegistry()
	r.MustRegister(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected MustRegister to panic on a duplicate registration")
		}
	}()
	r.MustRegister(reg)
}
