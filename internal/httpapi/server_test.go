package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sovereign-xds/sovereign/internal/auth"
	"github.com/sovereign-xds/sovereign/internal/config"
	"github.com/sovereign-xds/sovereign/internal/contextprovider"
	"github.com/sovereign-xds/sovereign/internal/discovery"
	"github.com/sovereign-xds/sovereign/internal/sourcing"
	"github.com/sovereign-xds/sovereign/internal/xdstemplate"
)

type fakeAggregator struct {
	byCluster map[string][]sourcing.Instance
}

func (f fakeAggregator) Match(nodeCluster string) []sourcing.Instance {
	return f.byCluster[nodeCluster]
}

const clusterTemplateSource = `resources:
{{- range .instances }}
  - name: "{{ .Name }}"
    type: STRICT_DNS
{{- end }}
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, authenticator *auth.Authenticator, agg fakeAggregator, noChangesCode int) *Server {
	t.Helper()
	tmpl, err := xdstemplate.NewTextTemplate("clusters", clusterTemplateSource, nil)
	if err != nil {
		t.Fatalf("NewTextTemplate: %v", err)
	}
	templates, err := xdstemplate.NewRegistry(map[string]map[string]xdstemplate.Template{
		"default": {"clusters": tmpl},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	contexts := contextprovider.NewRegistry(testLogger(), nil)
	orch := discovery.NewOrchestrator(agg, templates, contexts, config.CacheStrategyNone, "cluster")

	if authenticator == nil {
		authenticator = auth.New(false, "auth_token", nil, nil)
	}

	return NewServer(testLogger(), Options{
		Orchestrator:          orch,
		Authenticator:         authenticator,
		Templates:             templates,
		Warmed:                func() bool { return true },
		NoChangesResponseCode: noChangesCode,
		VersionedAPIVersions:  []int{3},
	})
}

func discoveryRequestBody(versionInfo, cluster string, resources []string) *bytes.Buffer {
	body, _ := json.Marshal(map[string]any{
		"version_info": versionInfo,
		"node":         map[string]any{"cluster": cluster},
		"resources":    resources,
	})
	return bytes.NewBuffer(body)
}

func TestServeHTTP_UnknownXdsTypeIs404BeforeAuthConsulted(t *testing.T) {
	kr, _ := auth.NewKeyRing([][]byte{bytes.Repeat([]byte{0x01}, 32)})
	authenticator := auth.New(true, "auth_token", kr, nil)
	srv := newTestServer(t, authenticator, fakeAggregator{}, 304)

	req := httptest.NewRequest(http.MethodPost, "/v2/discovery:secrets", discoveryRequestBody("0", "x", nil))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", rec.Code)
	}
}

func TestServeHTTP_SuccessfulDiscoveryReturns200WithHeaders(t *testing.T) {
	agg := fakeAggregator{byCluster: map[string][]sourcing.Instance{
		"httpbin-proxy": {{Name: "t1"}},
	}}
	srv := newTestServer(t, nil, agg, 304)

	req := httptest.NewRequest(http.MethodPost, "/v2/discovery:clusters",
		discoveryRequestBody("0", "httpbin-proxy", nil))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Sovereign-Requested-Type") != "clusters" {
		t.Fatalf("got %q", rec.Header().Get("X-Sovereign-Requested-Type"))
	}
	if rec.Header().Get("X-Sovereign-Requested-Resources") != "all" {
		t.Fatalf("got %q", rec.Header().Get("X-Sovereign-Requested-Resources"))
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected a request id header on every response")
	}

	var body discoveryResponseBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(body.Resources) != 1 {
		t.Fatalf("got %d resources, want 1", len(body.Resources))
	}
}

func TestServeHTTP_NoMatchReturnsConfiguredNotFoundBehavior(t *testing.T) {
	srv := newTestServer(t, nil, fakeAggregator{}, 304)

	req := httptest.NewRequest(http.MethodPost, "/v2/discovery:clusters",
		discoveryRequestBody("0", "nobody-home", nil))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404 for an unmatched cluster", rec.Code)
	}
}

func TestServeHTTP_UnchangedVersionReturnsConfiguredNoChangesCode(t *testing.T) {
	agg := fakeAggregator{byCluster: map[string][]sourcing.Instance{
		"httpbin-proxy": {{Name: "t1"}},
	}}
	srv := newTestServer(t, nil, agg, 304)

	first := httptest.NewRequest(http.MethodPost, "/v2/discovery:clusters",
		discoveryRequestBody("0", "httpbin-proxy", nil))
	firstRec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(firstRec, first)

	var body discoveryResponseBody
	if err := json.Unmarshal(firstRec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}

	second := httptest.NewRequest(http.MethodPost, "/v2/discovery:clusters",
		discoveryRequestBody(body.VersionInfo, "httpbin-proxy", nil))
	secondRec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(secondRec, second)

	if secondRec.Code != 304 {
		t.Fatalf("got status %d, want the configured 304 no-changes code", secondRec.Code)
	}
}

func TestServeHTTP_AuthFailureReturns401(t *testing.T) {
	kr, _ := auth.NewKeyRing([][]byte{bytes.Repeat([]byte{0x01}, 32)})
	authenticator := auth.New(true, "auth_token", kr, nil)
	srv := newTestServer(t, authenticator, fakeAggregator{}, 304)

	req := httptest.NewRequest(http.MethodPost, "/v2/discovery:clusters",
		discoveryRequestBody("0", "httpbin-proxy", nil))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401 when auth_token metadata is absent", rec.Code)
	}
}

func TestServeHTTP_VersionedRouteIsAlsoRegistered(t *testing.T) {
	agg := fakeAggregator{byCluster: map[string][]sourcing.Instance{
		"httpbin-proxy": {{Name: "t1"}},
	}}
	srv := newTestServer(t, nil, agg, 304)

	req := httptest.NewRequest(http.MethodPost, "/v3/discovery:clusters",
		discoveryRequestBody("0", "httpbin-proxy", nil))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want the versioned route to work like v2", rec.Code)
	}
}

func TestHealthcheck_AlwaysOK(t *testing.T) {
	srv := newTestServer(t, nil, fakeAggregator{}, 304)

	req := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
}

func TestReadiness_ReflectsWarmedState(t *testing.T) {
	tmpl, err := xdstemplate.NewTextTemplate("clusters", clusterTemplateSource, nil)
	if err != nil {
		t.Fatalf("NewTextTemplate: %v", err)
	}
	templates, err := xdstemplate.NewRegistry(map[string]map[string]xdstemplate.Template{
		"default": {"clusters": tmpl},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	contexts := contextprovider.NewRegistry(testLogger(), nil)
	orch := discovery.NewOrchestrator(fakeAggregator{}, templates, contexts, config.CacheStrategyNone, "cluster")

	srv := NewServer(testLogger(), Options{
		Orchestrator:  orch,
		Authenticator: auth.New(false, "auth_token", nil, nil),
		Templates:     templates,
		Warmed:        func() bool { return false },
	})

	req := httptest.NewRequest(http.MethodGet, "/healthcheck/ready", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("got status %d, want 503 when not warmed", rec.Code)
	}
}

func TestServeHTTP_MalformedBodyReturns400(t *testing.T) {
	srv := newTestServer(t, nil, fakeAggregator{}, 304)

	req := httptest.NewRequest(http.MethodPost, "/v2/discovery:clusters", bytes.NewBufferString("not json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400 for a malformed body", rec.Code)
	}
}
