package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

type stubLagSource struct {
	lag map[int]int64
	err error
}

func (s *stubLagSource) CursorLag(ctx context.Context) (map[int]int64, error) {
	return s.lag, s.err
}

func gaugeValue(t *testing.T, partition string) float64 {
	t.Helper()

	var m dto.Metric
	if err := CursorLag.WithLabelValues(partition).Write(&m); err != nil {
		t.Fatalf("failed to read gauge: %v", err)
	}

	return m.GetGauge().GetValue()
}

// TestCollectorCollect tests that a collection pass exports per-partition lag
func TestCollectorCollect(t *testing.T) {
	CursorLag.Reset()

	source := &stubLagSource{lag: map[int]int64{0: 5, 3: 0}}
	collector := NewCollector(source, time.Minute)

	collector.collect()

	if got := gaugeValue(t, "0"); got != 5 {
		t.Errorf("partition 0 lag = %v, want 5", got)
	}

	if got := gaugeValue(t, "3"); got != 0 {
		t.Errorf("partition 3 lag = %v, want 0", got)
	}
}

// TestCollectorCollectError tests that a failing source leaves gauges untouched
func TestCollectorCollectError(t *testing.T) {
	CursorLag.Reset()

	source := &stubLagSource{lag: map[int]int64{1: 7}}
	collector := NewCollector(source, time.Minute)
	collector.collect()

	source.err = errors.New("database unavailable")
	source.lag = map[int]int64{1: 99}
	collector.collect()

	if got := gaugeValue(t, "1"); got != 7 {
		t.Errorf("partition 1 lag = %v, want stale value 7 after source error", got)
	}
}

// TestCollectorStartStop tests the background sampling loop
func TestCollectorStartStop(t *testing.T) {
	CursorLag.Reset()

	source := &stubLagSource{lag: map[int]int64{2: 11}}
	collector := NewCollector(source, 5*time.Millisecond)

	collector.Start()
	defer collector.Stop()

	deadline := time.After(time.Second)
	for gaugeValue(t, "2") != 11 {
		select {
		case <-deadline:
			t.Fatal("collector never exported lag for partition 2")
		case <-time.After(time.Millisecond):
		}
	}
}
