package metrics

import (
	"sync/atomic"
	"time"
)

type Counter struct {
	value uint64
}

func (c *Counter) Inc() {
	atomic.AddUint64(&c.value, 1)
}

func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.value)
}

// OrderMetrics counts order outcomes for the process lifetime.
type OrderMetrics struct {
	Created    Counter
	Failed     Counter
	RolledBack Counter
	Reads      Counter

	createNanos uint64
}

// ObserveCreate records how long a successful creation took.
func (m *OrderMetrics) ObserveCreate(d time.Duration) {
	atomic.AddUint64(&m.createNanos, uint64(d))
}

type Snapshot struct {
	Created        uint64        `json:"created"`
	Failed         uint64        `json:"failed"`
	RolledBack     uint64        `json:"rolled_back"`
	Reads          uint64        `json:"reads"`
	AvgCreateTime  time.Duration `json:"-"`
	AvgCreateMilli float64       `json:"avg_create_ms"`
}

func (m *OrderMetrics) Snapshot() Snapshot {
	s := Snapshot{
		Created:    m.Created.Load(),
		Failed:     m.Failed.Load(),
		RolledBack: m.RolledBack.Load(),
		Reads:      m.Reads.Load(),
	}
	if s.Created > 0 {
		s.AvgCreateTime = time.Duration(atomic.LoadUint64(&m.createNanos) / s.Created)
		s.AvgCreateMilli = float64(s.AvgCreateTime) / float64(time.Millisecond)
	}
	return s
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
