package tests

import (
	"fmt"
	"net/http"
	"testing"
	"time"
)

// TestBenchmarkConfig_E2E exercises a basic HTTP router/service end to end,
// the baseline every heavier routing scenario builds on. Connection-pool
// tuning (max idle conns, dial timeouts) lives in internal/forward's
// options rather than a config surface in this repo, so this test only
// covers request routing, not pool tuning.
func TestBenchmarkConfig_E2E(t *testing.T) {
	upstreamMux := http.NewServeMux()
	upstreamMux.HandleFunc("/bench", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte("ok"))
	})
	upstreamSrv := &http.Server{Addr: "127.0.0.1:19299", Handler: upstreamMux}
	go func() { _ = upstreamSrv.ListenAndServe() }()
	defer func() { _ = upstreamSrv.Close() }()
	waitForPort(t, "127.0.0.1:19299")

	entryAddr := "127.0.0.1:18290"
	config := fmt.Sprintf(`
entryPoints:
  web:
    address: %q
http:
  routers:
    r1:
      entryPoints: ["web"]
      rule: "PathPrefix(`+"`/`"+`)"
      service: u1
  services:
    u1:
      loadBalancer:
        servers:
          - url: "http://127.0.0.1:19299"
`, entryAddr)

	startTrafficCop(t, config)
	waitForPort(t, entryAddr)

	client := &http.Client{Timeout: 5 * time.Second}
	req, _ := http.NewRequest("GET", "http://"+entryAddr+"/bench", nil)
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != 200 {
		t.Errorf("status: want 200, got %d", res.StatusCode)
	}
}
