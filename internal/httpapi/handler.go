package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/sovereign-xds/sovereign/internal/apperror"
	"github.com/sovereign-xds/sovereign/internal/auth"
	"github.com/sovereign-xds/sovereign/internal/discovery"
	"github.com/sovereign-xds/sovereign/internal/logctx"
)

// discoveryHandler serves spec.md §6's `POST /v{N}/discovery:{xds_type}`
// endpoints. apiVersion is "v2" or the versioned form's "v{version}",
// fixed at route-registration time (see server.go); xds_type is taken from
// the request path at request time.
type discoveryHandler struct {
	apiVersion            string
	orchestrator          *discovery.Orchestrator
	authenticator         *auth.Authenticator
	isKnownType           func(xdsType string) bool
	noChangesResponseCode int
}

func (h *discoveryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := logctx.From(r.Context())

	xdsType := r.PathValue("xds_type")
	fields.XDSType = xdsType

	// spec.md §4.2: "the server must not reveal auth behavior for invalid
	// types" — the closed-type check runs before authentication, so an
	// unknown type always 404s regardless of auth material.
	if !h.isKnownType(xdsType) {
		writeError(w, r, 404, string(apperror.KindUnknownXdsType), "")
		return
	}

	var req discovery.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, 400, "InvalidRequest", "Request body is not a valid DiscoveryRequest.")
		return
	}
	req.DesiredControlPlane = r.Host

	fields.XDSClientVersion = req.VersionInfo
	fields.XDSEnvoyVersion = req.EnvoyVersion()
	fields.XDSResourceNames = req.Resources

	if _, err := h.authenticator.Authenticate(req.Node.Metadata); err != nil {
		fields.Error = "AuthFailure"
		writeError(w, r, 401, string(apperror.KindAuthFailure), "")
		return
	}

	result, err := h.orchestrator.Discover(r.Context(), req, h.apiVersion, xdsType)
	if err != nil {
		status, kind, description := classify(err)
		fields.Error = kind
		fields.ErrorDetail = err.Error()
		writeError(w, r, status, kind, description)
		return
	}

	setCommonHeaders(w, req, xdsType)

	switch res := result.(type) {
	case discovery.NotModified:
		fields.XDSServerVersion = res.VersionInfo
		w.Header().Set("X-Sovereign-Response-Version", res.VersionInfo)
		w.WriteHeader(h.noChangesResponseCode)
	case discovery.Empty:
		fields.XDSServerVersion = res.VersionInfo
		w.Header().Set("X-Sovereign-Response-Version", res.VersionInfo)
		w.WriteHeader(404)
	case discovery.Document:
		fields.XDSServerVersion = res.VersionInfo
		w.Header().Set("X-Sovereign-Response-Version", res.VersionInfo)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(200)
		writeDocument(w, res)
	}
}

// setCommonHeaders sets the headers spec.md §6 requires on every response,
// matched or not, success or not: "Headers out (always)."
func setCommonHeaders(w http.ResponseWriter, req discovery.Request, xdsType string) {
	w.Header().Set("X-Sovereign-Client-Build", req.Node.BuildVersion)
	w.Header().Set("X-Sovereign-Client-Version", req.VersionInfo)
	w.Header().Set("X-Sovereign-Requested-Type", xdsType)
	if len(req.Resources) == 0 {
		w.Header().Set("X-Sovereign-Requested-Resources", "all")
	} else {
		w.Header().Set("X-Sovereign-Requested-Resources", strings.Join(req.Resources, ","))
	}
}

// discoveryResponseBody is the wire shape of a 200 response: version_info
// plus the ordered resource documents, each re-emitted as raw JSON to avoid
// a re-serialization round trip (spec.md §3's DiscoveryResponse).
type discoveryResponseBody struct {
	VersionInfo string            `json:"version_info"`
	Resources   []json.RawMessage `json:"resources"`
}

func writeDocument(w http.ResponseWriter, doc discovery.Document) {
	body := discoveryResponseBody{
		VersionInfo: doc.VersionInfo,
		Resources:   make([]json.RawMessage, len(doc.Resources)),
	}
	for i, r := range doc.Resources {
		body.Resources[i] = r.Raw
	}
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, kind, description string) {
	fields := logctx.From(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error:       kind,
		RequestID:   fields.RequestID,
		Description: description,
	})
}

// healthcheckHandler answers GET /healthcheck unconditionally once the
// process is serving — liveness only, not source-warmth readiness (see
// server.go's separate /healthcheck/ready wiring).
func healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// readinessHandler reports whether the source aggregator has completed at
// least one successful refresh, per spec.md §3's "warmed synchronously at
// startup" — useful for orchestrators that hold traffic until sources are
// populated.
func readinessHandler(warmed func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !warmed() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not warmed"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// versionPathSegment renders the configured versioned-route prefix, e.g.
// "v3", used by server.go when registering the "/v{version}/discovery:..."
// route alongside the fixed "/v2/discovery:..." route.
func versionPathSegment(n int) string {
	return "v" + strconv.Itoa(n)
}
