package prometheus

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goMiniAuth "github.com/MrEthical07/goMiniAuth"
)

type fakeSource struct {
	snapshot goMiniAuth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goMiniAuth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                        { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goMiniAuth.MetricsSnapshot{
			Counters:   map[goMiniAuth.MetricID]uint64{},
			Histograms: map[goMiniAuth.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCountersAndHistograms(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goMiniAuth.MetricsSnapshot{
			Counters: map[goMiniAuth.MetricID]uint64{
				goMiniAuth.MetricLoginSuccess:    7,
				goMiniAuth.MetricSessionCacheHit: 3,
			},
			Histograms: map[goMiniAuth.MetricID][]uint64{
				goMiniAuth.MetricGetSessionLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"miniauth_login_success_total 7",
		"miniauth_session_cache_hit_total 3",
		"miniauth_refresh_failure_total 0",
		"miniauth_get_session_latency_seconds_bucket{le=\"0.005\"} 1",
		"miniauth_get_session_latency_seconds_bucket{le=\"+Inf\"} 36",
		"miniauth_get_session_latency_seconds_count 36",
		"miniauth_login_latency_seconds_bucket{le=\"+Inf\"} 0",
		"miniauth_audit_dropped_total 2",
		"# TYPE miniauth_logout_total counter",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestRenderNilSafe(t *testing.T) {
	var exp *PrometheusExporter
	if got := exp.Render(); got != "" {
		t.Fatalf("nil exporter must render nothing, got %q", got)
	}
	if got := NewPrometheusExporterFromSource(nil).Render(); got != "" {
		t.Fatalf("nil source must render nothing, got %q", got)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goMiniAuth.MetricsSnapshot{
			Counters:   map[goMiniAuth.MetricID]uint64{goMiniAuth.MetricLoginSuccess: 1},
			Histograms: map[goMiniAuth.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != exp.Render() || !strings.Contains(body, "miniauth_login_success_total 1\n") {
		t.Fatalf("handler body differs from Render:\n%s", body)
	}
}

func TestRenderEscapesHelpText(t *testing.T) {
	var b strings.Builder
	out := &exposition{w: bufio.NewWriter(&b)}
	out.family("miniauth_x_total", "line one\nback\\slash", "counter")
	if _, err := out.flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if want := "# HELP miniauth_x_total line one\\nback\\\\slash\n"; !strings.HasPrefix(b.String(), want) {
		t.Fatalf("expected %q prefix, got %q", want, b.String())
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goMiniAuth.MetricsSnapshot{
			Counters: map[goMiniAuth.MetricID]uint64{
				goMiniAuth.MetricLoginSuccess:     1000,
				goMiniAuth.MetricLoginFailure:     40,
				goMiniAuth.MetricRefreshSuccess:   800,
				goMiniAuth.MetricRefreshFailure:   10,
				goMiniAuth.MetricSessionCacheHit:  5000,
				goMiniAuth.MetricSessionCacheMiss: 120,
			},
			Histograms: map[goMiniAuth.MetricID][]uint64{
				goMiniAuth.MetricValidateLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
