package tests

import (
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestPassiveHealth_SkipUnhealthy(t *testing.T) {
	mux1 := http.NewServeMux()
	mux1.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte("ok"))
	})
	srv1 := &http.Server{Addr: "127.0.0.1:19011", Handler: mux1}
	go func() { _ = srv1.ListenAndServe() }()
	defer func() { _ = srv1.Close() }()
	waitForPort(t, "127.0.0.1:19011")

	mux2 := http.NewServeMux()
	mux2.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	})
	srv2 := &http.Server{Addr: "127.0.0.1:19012", Handler: mux2}
	go func() { _ = srv2.ListenAndServe() }()
	defer func() { _ = srv2.Close() }()
	waitForPort(t, "127.0.0.1:19012")

	entryAddr := "127.0.0.1:18083"
	config := fmt.Sprintf(`
entryPoints:
  web:
    address: %q
http:
  routers:
    r1:
      entryPoints: ["web"]
      rule: "PathPrefix(`+"`/`"+`)"
      service: mixed-svc
  services:
    mixed-svc:
      loadBalancer:
        servers:
          - url: "http://127.0.0.1:19011"
            weight: 1
          - url: "http://127.0.0.1:19012"
            weight: 1
`, entryAddr)

	startTrafficCop(t, config)
	waitForPort(t, entryAddr)

	client := &http.Client{Timeout: 2 * time.Second}

	failures := 0
	successes := 0
	for i := 0; i < 20; i++ {
		res, err := client.Get("http://" + entryAddr + "/")
		if err != nil {
			t.Logf("req %d error: %v", i, err)
			failures++
			continue
		}
		_ = res.Body.Close()
		switch res.StatusCode {
		case 500:
			failures++
		case 200:
			successes++
		}
	}

	t.Logf("Initial phase: successes=%d, failures=%d", successes, failures)

	consecutiveSuccesses := 0
	for i := 0; i < 10; i++ {
		res, err := client.Get("http://" + entryAddr + "/")
		if err != nil {
			t.Fatalf("unexpected error in stable phase: %v", err)
		}
		_ = res.Body.Close()
		if res.StatusCode != 200 {
			t.Errorf("unexpected status in stable phase: %d", res.StatusCode)
		} else {
			consecutiveSuccesses++
		}
	}

	if consecutiveSuccesses != 10 {
		t.Errorf("expected 10 consecutive successes, got %d", consecutiveSuccesses)
	}
}
