// Package metrics is a small Prometheus-text-format registry built on the
// standard library. It covers the counters, gauges, and histograms the
// pipeline services expose and serves them over HTTP in the text exposition
// format, without pulling in the full Prometheus client.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultBuckets cover the latency range of embedding calls and vector
// searches, in seconds.
var DefaultBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Counter only goes up.
type Counter struct{ v atomic.Int64 }

func (c *Counter) Inc()         { c.v.Add(1) }
func (c *Counter) Add(n int64)  { c.v.Add(n) }
func (c *Counter) Value() int64 { return c.v.Load() }

// Gauge goes both ways.
type Gauge struct{ v atomic.Int64 }

func (g *Gauge) Set(n int64)  { g.v.Store(n) }
func (g *Gauge) Inc()         { g.v.Add(1) }
func (g *Gauge) Dec()         { g.v.Add(-1) }
func (g *Gauge) Value() int64 { return g.v.Load() }

// Histogram records a distribution over a fixed bucket vector.
type Histogram struct {
	mu      sync.Mutex
	bounds  []float64
	counts  []uint64
	sum     float64
	samples uint64
}

func newHistogram(bounds []float64) *Histogram {
	b := append([]float64(nil), bounds...)
	sort.Float64s(b)
	return &Histogram{bounds: b, counts: make([]uint64, len(b))}
}

// Observe records one value.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	h.sum += v
	h.samples++
	for i, bound := range h.bounds {
		if v <= bound {
			h.counts[i]++
			break
		}
	}
	h.mu.Unlock()
}

// Since observes the seconds elapsed since start.
func (h *Histogram) Since(start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

func (h *Histogram) snapshot() (bounds []float64, counts []uint64, sum float64, samples uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bounds, append([]uint64(nil), h.counts...), h.sum, h.samples
}

// family groups the series that share a base name, so Render can emit a
// single HELP/TYPE header per metric regardless of label combinations.
type family struct {
	typ    string
	help   string
	series []string
}

// Registry holds named metrics. Series are keyed by their full name
// including labels; label combinations of one metric form one family.
type Registry struct {
	mu       sync.RWMutex
	series   map[string]any
	families map[string]*family
	order    []string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		series:   make(map[string]any),
		families: make(map[string]*family),
	}
}

// Counter returns the counter registered under name, creating it on first
// use. Pass label pairs through WithLabels to get per-label series.
func (r *Registry) Counter(name, help string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.series[name].(*Counter); ok {
		return c
	}
	c := &Counter{}
	r.register(name, "counter", help, c)
	return c
}

// Gauge returns the gauge registered under name, creating it on first use.
func (r *Registry) Gauge(name, help string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.series[name].(*Gauge); ok {
		return g
	}
	g := &Gauge{}
	r.register(name, "gauge", help, g)
	return g
}

// Histogram returns the histogram registered under name, creating it with
// the given buckets on first use. Nil buckets means DefaultBuckets.
func (r *Registry) Histogram(name, help string, buckets []float64) *Histogram {
	if buckets == nil {
		buckets = DefaultBuckets
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.series[name].(*Histogram); ok {
		return h
	}
	h := newHistogram(buckets)
	r.register(name, "histogram", help, h)
	return h
}

func (r *Registry) register(name, typ, help string, m any) {
	if _, taken := r.series[name]; taken {
		// Same name registered with a different type. The first
		// registration wins; the caller gets a detached metric.
		return
	}
	r.series[name] = m
	base := baseName(name)
	fam, ok := r.families[base]
	if !ok {
		fam = &family{typ: typ}
		r.families[base] = fam
		r.order = append(r.order, base)
	}
	if fam.help == "" {
		fam.help = help
	}
	fam.series = append(fam.series, name)
}

// WithLabels appends label pairs to a metric name:
// WithLabels("hits_total", "kind", "law") => `hits_total{kind="law"}`.
func WithLabels(name string, kvs ...string) string {
	if len(kvs) == 0 || len(kvs)%2 != 0 {
		return name
	}
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i := 0; i < len(kvs); i += 2 {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=%q", kvs[i], kvs[i+1])
	}
	b.WriteByte('}')
	return b.String()
}

func baseName(series string) string {
	if i := strings.IndexByte(series, '{'); i >= 0 {
		return series[:i]
	}
	return series
}

// labelSuffix returns the label body of a series name prefixed with a comma,
// ready to splice after an le label, or "" for an unlabeled series.
func labelSuffix(series string) string {
	i := strings.IndexByte(series, '{')
	if i < 0 || len(series)-i <= 2 {
		return ""
	}
	return "," + series[i+1:len(series)-1]
}

// Render writes every registered family in the Prometheus text exposition
// format, families in registration order, series sorted within a family.
func (r *Registry) Render() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var b strings.Builder
	for _, base := range r.order {
		fam := r.families[base]
		if fam.help != "" {
			fmt.Fprintf(&b, "# HELP %s %s\n", base, fam.help)
		}
		fmt.Fprintf(&b, "# TYPE %s %s\n", base, fam.typ)

		names := append([]string(nil), fam.series...)
		sort.Strings(names)
		for _, name := range names {
			switch m := r.series[name].(type) {
			case *Counter:
				fmt.Fprintf(&b, "%s %d\n", name, m.Value())
			case *Gauge:
				fmt.Fprintf(&b, "%s %d\n", name, m.Value())
			case *Histogram:
				r.renderHistogram(&b, base, name, m)
			}
		}
	}
	return b.String()
}

func (r *Registry) renderHistogram(b *strings.Builder, base, name string, h *Histogram) {
	bounds, counts, sum, samples := h.snapshot()
	labels := labelSuffix(name)
	var cumulative uint64
	for i, bound := range bounds {
		cumulative += counts[i]
		fmt.Fprintf(b, "%s_bucket{le=\"%g\"%s} %d\n", base, bound, labels, cumulative)
	}
	fmt.Fprintf(b, "%s_bucket{le=\"+Inf\"%s} %d\n", base, labels, samples)
	wrapped := ""
	if labels != "" {
		wrapped = "{" + labels[1:] + "}"
	}
	fmt.Fprintf(b, "%s_sum%s %g\n", base, wrapped, sum)
	fmt.Fprintf(b, "%s_count%s %d\n", base, wrapped, samples)
}

// CollectRuntime samples goroutine and heap stats into gauges every interval
// until ctx is cancelled. It returns immediately; sampling runs in the
// background.
func (r *Registry) CollectRuntime(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	goroutines := r.Gauge("go_goroutines", "Number of live goroutines.")
	heap := r.Gauge("go_heap_alloc_bytes", "Heap bytes allocated and in use.")
	gcRuns := r.Gauge("go_gc_runs", "Completed GC cycles.")

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		var m runtime.MemStats
		for {
			runtime.ReadMemStats(&m)
			goroutines.Set(int64(runtime.NumGoroutine()))
			heap.Set(int64(m.HeapAlloc))
			gcRuns.Set(int64(m.NumGC))
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
		}
	}()
}

// Handler serves the registry at the endpoint it is mounted on.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.Write([]byte(r.Render()))
	})
}

// Serve blocks serving /metrics on the given port.
func (r *Registry) Serve(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok\n"))
	})
	return http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
}

// ServeAsync starts the metrics server in a goroutine and logs a failure
// instead of returning it.
func (r *Registry) ServeAsync(port int) {
	go func() {
		if err := r.Serve(port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "port", port, "error", err)
		}
	}()
}
