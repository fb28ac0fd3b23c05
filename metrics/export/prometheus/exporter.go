package prometheus

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strings"

	goMiniAuth "github.com/MrEthical07/goMiniAuth"
	"github.com/MrEthical07/goMiniAuth/metrics/export/internaldefs"
)

// MetricsSource is implemented by *goMiniAuth.Engine.
type MetricsSource interface {
	MetricsSnapshot() goMiniAuth.MetricsSnapshot
	AuditDropped() uint64
}

// PrometheusExporter turns engine snapshots into miniauth_* series. Each
// scrape takes a fresh snapshot; nothing is cached between scrapes.
type PrometheusExporter struct {
	source MetricsSource
}

// NewPrometheusExporter reads from engine.
func NewPrometheusExporter(engine *goMiniAuth.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

// NewPrometheusExporterFromSource reads from any [MetricsSource].
func NewPrometheusExporterFromSource(source MetricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler streams the exposition straight to the scrape response. The
// miniauth-server binary mounts it at GET /metrics.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = p.WriteTo(w)
	})
}

// Render returns the exposition as a string. An engine built with metrics
// disabled renders "".
func (p *PrometheusExporter) Render() string {
	var b strings.Builder
	if _, err := p.WriteTo(&b); err != nil {
		return ""
	}
	return b.String()
}

// WriteTo writes every auth and session cache counter, the per-operation
// latency histograms and the audit drop counter to w.
func (p *PrometheusExporter) WriteTo(w io.Writer) (int64, error) {
	if p == nil || p.source == nil {
		return 0, nil
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return 0, nil
	}

	out := &exposition{w: bufio.NewWriterSize(w, 8192)}
	for _, def := range internaldefs.CounterDefs {
		out.family(def.Name, def.Help, "counter")
		out.sample(def.Name, "", snapshot.Counters[def.ID])
	}
	for _, def := range internaldefs.HistogramDefs {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID]))
		out.family(def.Name, def.Help, "histogram")
		for i, le := range internaldefs.HistogramBounds {
			out.sample(def.Name+"_bucket", `le="`+le+`"`, cumulative[i])
		}
		out.sample(def.Name+"_count", "", cumulative[len(cumulative)-1])
		// The engine keeps bucket counts only, so the sum is always zero.
		out.sample(def.Name+"_sum", "", 0)
	}
	out.family(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, "counter")
	out.sample(internaldefs.AuditDroppedName, "", dropped)

	return out.flush()
}

var helpEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`)

// exposition writes text format lines and keeps the first error.
type exposition struct {
	w   *bufio.Writer
	n   int64
	err error
}

func (e *exposition) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	n, err := fmt.Fprintf(e.w, format, args...)
	e.n += int64(n)
	e.err = err
}

func (e *exposition) family(name, help, kind string) {
	e.printf("# HELP %s %s\n# TYPE %s %s\n", name, helpEscaper.Replace(help), name, kind)
}

func (e *exposition) sample(name, labels string, value uint64) {
	if labels == "" {
		e.printf("%s %d\n", name, value)
		return
	}
	e.printf("%s{%s} %d\n", name, labels, value)
}

func (e *exposition) flush() (int64, error) {
	if e.err != nil {
		return e.n, e.err
	}
	return e.n, e.w.Flush()
}
