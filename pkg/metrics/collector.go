package metrics

import (
	"context"
	"strconv"
	"time"
)

// LagSource reports how far each partition's cursor trails the log head
type LagSource interface {
	CursorLag(ctx context.Context) (map[int]int64, error)
}

// Collector periodically samples consumer lag into gauges
type Collector struct {
	source   LagSource
	interval time.Duration
	stopCh   chan struct{}
}

// NewCollector creates a new lag collector
func NewCollector(source LagSource, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Collector{
		source:   source,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		// Collect immediately on start
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lags, err := c.source.CursorLag(ctx)
	if err != nil {
		return
	}

	for p, lag := range lags {
		CursorLag.WithLabelValues(strconv.Itoa(p)).Set(float64(lag))
	}
}
