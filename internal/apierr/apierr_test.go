package apierr

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestRender_UsesKindStatusCodeAndMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	Render(rec, zerolog.Nop(), MiddlewareReject("blocked by ip filter"))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("want 403, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["error"] != "middleware_reject" || body["message"] != "blocked by ip filter" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestRender_NonAPIErrorFallsBackToInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	Render(rec, zerolog.Nop(), errors.New("boom"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("want 500, got %d", rec.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["error"] != "internal_error" || body["message"] != "internal error" {
		t.Fatalf("want the raw cause masked behind a generic message, got %+v", body)
	}
}

func TestRender_CircuitOpenUses503(t *testing.T) {
	rec := httptest.NewRecorder()
	Render(rec, zerolog.Nop(), CircuitOpen("checkout"))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("want 503, got %d", rec.Code)
	}
}

func TestRender_EscapesQuotesAndBackslashesInMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	Render(rec, zerolog.Nop(), MiddlewareReject(`say "hi" \ bye`))

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response body must stay valid JSON: %v", err)
	}
	if body["message"] != `say "hi" \ bye` {
		t.Fatalf("unexpected message: %q", body["message"])
	}
}

func TestError_UnwrapReturnsCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Upstream(cause)
	if !errors.Is(err, cause) {
		t.Fatal("want errors.Is to see through Unwrap to the cause")
	}
	if err.Error() != "upstream request failed" {
		t.Fatalf("want the client-safe message from Error(), got %q", err.Error())
	}
}

func TestKind_StringCoversEveryVariant(t *testing.T) {
	cases := map[Kind]string{
		KindConfig:           "config_error",
		KindListener:         "listener_error",
		KindUpstream:         "upstream_error",
		KindProtocol:         "protocol_error",
		KindMiddlewareReject: "middleware_reject",
		KindCircuitOpen:      "circuit_open",
		KindInternal:         "internal_error",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}
