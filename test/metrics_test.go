package tests

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestMetrics_Endpoint(t *testing.T) {
	upstreamMux := http.NewServeMux()
	upstreamMux.HandleFunc("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte("pong"))
	})
	upstreamSrv := &http.Server{Addr: "127.0.0.1:19099", Handler: upstreamMux}
	go func() { _ = upstreamSrv.ListenAndServe() }()
	defer func() { _ = upstreamSrv.Close() }()
	waitForPort(t, "127.0.0.1:19099")

	entryAddr := "127.0.0.1:18090"
	metricsAddr := "127.0.0.1:19090"
	config := fmt.Sprintf(`
entryPoints:
  web:
    address: %q
metrics:
  prometheus:
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
          - url: "http://127.0.0.1:19099"
`, entryAddr, metricsAddr)

	startTrafficCop(t, config)
	waitForPort(t, entryAddr)
	waitForPort(t, metricsAddr)

	client := &http.Client{Timeout: 5 * time.Second}
	req, _ := http.NewRequest("GET", "http://"+entryAddr+"/api/ping", nil)
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	_ = res.Body.Close()

	metricsURL := "http://" + metricsAddr + "/metrics"
	res, err = client.Get(metricsURL)
	if err != nil {
		t.Fatalf("fetch metrics: %v", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != 200 {
		t.Fatalf("metrics status: want 200, got %d", res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read metrics body: %v", err)
	}
	out := string(body)

	if !strings.Contains(out, `trafficcop_requests_total{method="GET",router="r1",service="u1",status="200"}`) {
		t.Errorf("metrics missing requests_total for u1:\n%s", out)
	}
	if !strings.Contains(out, `trafficcop_request_duration_seconds_count{router="r1",service="u1"}`) {
		t.Errorf("metrics missing duration count for u1:\n%s", out)
	}
}
