package telemetry

import (
	"sync"
	"time"
)

// CacheSizer reports the number of entries held by a cache
type CacheSizer interface {
	Len() int
}

// MetricsCollector periodically samples cache sizes into telemetry gauges
type MetricsCollector struct {
	cache    func() CacheSizer
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewMetricsCollector creates a new metrics collector. cache is called on
// each tick so a replaced cache is picked up.
func NewMetricsCollector(cache func() CacheSizer, interval time.Duration) *MetricsCollector {
	return &MetricsCollector{
		cache:    cache,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic collection
func (mc *MetricsCollector) Start() {
	mc.wg.Add(1)
	go mc.collectLoop()
}

// Stop stops the collector
func (mc *MetricsCollector) Stop() {
	close(mc.stopCh)
	mc.wg.Wait()
}

func (mc *MetricsCollector) collectLoop() {
	defer mc.wg.Done()

	ticker := time.NewTicker(mc.interval)
	defer ticker.Stop()

	mc.collect()

	for {
		select {
		case <-ticker.C:
			mc.collect()
		case <-mc.stopCh:
			return
		}
	}
}

func (mc *MetricsCollector) collect() {
	if mc.cache == nil {
		return
	}
	c := mc.cache()
	if c == nil {
		return
	}
	CharsetCacheEntries.Set(float64(c.Len()))
}
