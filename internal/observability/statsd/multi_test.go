package statsd

import (
	"testing"
	"time"
)

type recordingSink struct {
	counts  map[string]int64
	gauges  map[string]float64
	timings map[string]time.Duration
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		counts:  map[string]int64{},
		gauges:  map[string]float64{},
		timings: map[string]time.Duration{},
	}
}

func (r *recordingSink) Count(name string, value int64, _ map[string]string) { r.counts[name] += value }
func (r *recordingSink) Gauge(name string, value float64, _ map[string]string) {
	r.gauges[name] = value
}
func (r *recordingSink) Timing(name string, value time.Duration, _ map[string]string) {
	r.timings[name] = value
}

func TestNewMulti(t *testing.T) {
	t.Parallel()

	var nilClient *Client
	if got := NewMulti(nil, nilClient); got != nil {
		t.Fatalf("NewMulti with only nil sinks = %v, want nil", got)
	}

	single := newRecordingSink()
	if got := NewMulti(nil, single); got != Sink(single) {
		t.Fatal("NewMulti with one sink should return it unwrapped")
	}

	a, b := newRecordingSink(), newRecordingSink()
	m := NewMulti(a, nilClient, b)
	m.Count("job.transition", 2, nil)
	m.Gauge("workers.active", 4, nil)
	m.Timing("job.duration", time.Second, nil)

	for _, s := range []*recordingSink{a, b} {
		if s.counts["job.transition"] != 2 || s.gauges["workers.active"] != 4 || s.timings["job.duration"] != time.Second {
			t.Fatalf("sink did not receive all metrics: %+v", s)
		}
	}
}
