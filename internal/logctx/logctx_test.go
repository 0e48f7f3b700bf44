package logctx

import (
	"context"
	"testing"
)

func TestNewAndFrom_RoundTrip(t *testing.T) {
	ctx, fields := New(context.Background())
	fields.RequestID = "req-1"

	got := From(ctx)
	if got.RequestID != "req-1" {
		t.Fatalf("got %+v", got)
	}
	if got != fields {
		t.Fatal("expected From to return the same Fields pointer New attached")
	}
}

func TestFrom_MissingContextReturnsZeroValue(t *testing.T) {
	got := From(context.Background())
	if got.RequestID != "" {
		t.Fatalf("got %+v, want a fresh zero-value Fields", got)
	}
}

func TestArgs_OmitsUnsetOptionalFields(t *testing.T) {
	f := &Fields{RequestID: "req-1"}
	args := f.Args()
	if len(args) != 2 || args[0] != "request_id" || args[1] != "req-1" {
		t.Fatalf("got %v, want only request_id when nothing else is set", args)
	}
}

func TestArgs_IncludesPopulatedFields(t *testing.T) {
	f := &Fields{
		RequestID:        "req-1",
		XDSType:          "clusters",
		XDSEnvoyVersion:  "1.18.3",
		XDSClientVersion: "0",
		XDSServerVersion: "abc123",
		XDSResourceNames: []string{"svc-a"},
		ClientIP:         "10.0.0.1",
		Error:            "AuthFailure",
		ErrorDetail:      "missing auth_token",
	}
	args := f.Args()

	seen := make(map[string]any, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, _ := args[i].(string)
		seen[key] = args[i+1]
	}
	for _, key := range []string{"request_id", "xds_type", "envoy_version", "version", "resources", "client_ip", "error", "detail"} {
		if _, ok := seen[key]; !ok {
			t.Fatalf("missing key %q in %v", key, args)
		}
	}
	if seen["version"] != "0 -> abc123" {
		t.Fatalf("got version %v", seen["version"])
	}
}
