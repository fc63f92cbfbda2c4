// Package observability provides run metrics for ghrelease.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relicta-tech/ghrelease/internal/domain/release"
	"github.com/relicta-tech/ghrelease/internal/fileutil"
)

// Metrics collects counters for remote calls, release actions and asset
// outcomes, and renders them in the Prometheus text exposition format.
type Metrics struct {
	mu sync.RWMutex

	runsTotal      atomic.Int64
	runsSuccessful atomic.Int64
	runsFailed     atomic.Int64
	runsExcluded   atomic.Int64

	calls       map[string]*callStats
	releases    map[release.ReconcileAction]*atomic.Int64
	assets      map[release.AssetAction]*atomic.Int64
	runDuration atomic.Int64

	version   string
	startTime time.Time
}

type callStats struct {
	total      atomic.Int64
	errors     atomic.Int64
	latencySum atomic.Int64
}

// knownOps are pre-initialized so every series is present in the output,
// even at zero.
var knownOps = []string{
	"list_releases", "create_release", "delete_release",
	"list_assets", "upload_asset", "delete_asset",
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(version string) *Metrics {
	m := &Metrics{
		calls:     make(map[string]*callStats, len(knownOps)),
		releases:  make(map[release.ReconcileAction]*atomic.Int64),
		assets:    make(map[release.AssetAction]*atomic.Int64),
		version:   version,
		startTime: time.Now(),
	}
	for _, op := range knownOps {
		m.calls[op] = &callStats{}
	}
	for _, a := range []release.ReconcileAction{release.ActionCreated, release.ActionReused, release.ActionReplaced} {
		m.releases[a] = &atomic.Int64{}
	}
	for _, a := range []release.AssetAction{release.AssetUploaded, release.AssetReplaced, release.AssetSkipped} {
		m.assets[a] = &atomic.Int64{}
	}
	return m
}

// RecordCall records one remote call.
func (m *Metrics) RecordCall(op string, err error, duration time.Duration) {
	m.mu.RLock()
	s := m.calls[op]
	m.mu.RUnlock()

	if s == nil {
		m.mu.Lock()
		if m.calls[op] == nil {
			m.calls[op] = &callStats{}
		}
		s = m.calls[op]
		m.mu.Unlock()
	}

	s.total.Add(1)
	if err != nil {
		s.errors.Add(1)
	}
	s.latencySum.Add(duration.Milliseconds())
}

// RecordRun records the end of a publish run.
func (m *Metrics) RecordRun(excluded bool, err error, duration time.Duration) {
	m.runsTotal.Add(1)
	switch {
	case err != nil:
		m.runsFailed.Add(1)
	case excluded:
		m.runsExcluded.Add(1)
	default:
		m.runsSuccessful.Add(1)
	}
	m.runDuration.Add(duration.Milliseconds())
}

// RecordReleaseAction records the reconciliation outcome.
func (m *Metrics) RecordReleaseAction(a release.ReconcileAction) {
	if c, ok := m.releases[a]; ok {
		c.Add(1)
	}
}

// RecordAssets records per-file synchronization outcomes.
func (m *Metrics) RecordAssets(res release.SyncResult) {
	for _, o := range res.Outcomes {
		if c, ok := m.assets[o.Action]; ok {
			c.Add(1)
		}
	}
}

// CallCount returns the number of recorded calls and errors for op.
func (m *Metrics) CallCount(op string) (total, errors int64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s := m.calls[op]; s != nil {
		return s.total.Load(), s.errors.Load()
	}
	return 0, 0
}

// WriteTo writes the metrics in Prometheus text format.
func (m *Metrics) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, m.render())
	return int64(n), err
}

// WriteFile atomically writes the metrics to path.
func (m *Metrics) WriteFile(path string) error {
	return fileutil.AtomicWriteFile(path, []byte(m.render()), 0o644)
}

func (m *Metrics) render() string {
	var sb strings.Builder

	writeHeader(&sb, "ghrelease_info", "Build information", "gauge")
	fmt.Fprintf(&sb, "ghrelease_info{version=%q} 1\n\n", m.version)

	writeHeader(&sb, "ghrelease_uptime_seconds", "Process uptime in seconds", "gauge")
	fmt.Fprintf(&sb, "ghrelease_uptime_seconds %.2f\n\n", time.Since(m.startTime).Seconds())

	writeHeader(&sb, "ghrelease_runs_total", "Publish runs by result", "counter")
	fmt.Fprintf(&sb, "ghrelease_runs_total{result=\"success\"} %d\n", m.runsSuccessful.Load())
	fmt.Fprintf(&sb, "ghrelease_runs_total{result=\"failed\"} %d\n", m.runsFailed.Load())
	fmt.Fprintf(&sb, "ghrelease_runs_total{result=\"excluded\"} %d\n\n", m.runsExcluded.Load())

	writeHeader(&sb, "ghrelease_run_duration_milliseconds", "Publish run duration", "summary")
	fmt.Fprintf(&sb, "ghrelease_run_duration_milliseconds_count %d\n", m.runsTotal.Load())
	fmt.Fprintf(&sb, "ghrelease_run_duration_milliseconds_sum %d\n\n", m.runDuration.Load())

	writeHeader(&sb, "ghrelease_releases_total", "Reconciled releases by action", "counter")
	for _, a := range sortedKeys(m.releases) {
		fmt.Fprintf(&sb, "ghrelease_releases_total{action=%q} %d\n", a, m.releases[a].Load())
	}
	sb.WriteString("\n")

	writeHeader(&sb, "ghrelease_assets_total", "Asset outcomes by action", "counter")
	for _, a := range sortedKeys(m.assets) {
		fmt.Fprintf(&sb, "ghrelease_assets_total{action=%q} %d\n", a, m.assets[a].Load())
	}
	sb.WriteString("\n")

	m.mu.RLock()
	ops := make([]string, 0, len(m.calls))
	for op := range m.calls {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	writeHeader(&sb, "ghrelease_remote_calls_total", "GitHub API calls by operation", "counter")
	for _, op := range ops {
		fmt.Fprintf(&sb, "ghrelease_remote_calls_total{op=%q} %d\n", op, m.calls[op].total.Load())
	}
	sb.WriteString("\n")

	writeHeader(&sb, "ghrelease_remote_call_errors_total", "Failed GitHub API calls by operation", "counter")
	for _, op := range ops {
		fmt.Fprintf(&sb, "ghrelease_remote_call_errors_total{op=%q} %d\n", op, m.calls[op].errors.Load())
	}
	sb.WriteString("\n")

	writeHeader(&sb, "ghrelease_remote_call_duration_milliseconds", "GitHub API call duration", "summary")
	for _, op := range ops {
		s := m.calls[op]
		fmt.Fprintf(&sb, "ghrelease_remote_call_duration_milliseconds_count{op=%q} %d\n", op, s.total.Load())
		fmt.Fprintf(&sb, "ghrelease_remote_call_duration_milliseconds_sum{op=%q} %d\n", op, s.latencySum.Load())
	}
	m.mu.RUnlock()

	return sb.String()
}

func writeHeader(sb *strings.Builder, name, help, typ string) {
	fmt.Fprintf(sb, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, typ)
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// WriteFileIfSet writes m to path when path is non-empty.
func WriteFileIfSet(m *Metrics, path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := m.WriteFile(path); err != nil {
		return fmt.Errorf("write metrics file: %w", err)
	}
	return nil
}
