package tests

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

// TestTLS_E2E spins up a trafficcop instance with TLS enabled on its entry
// point and verifies SNI routing and certificate serving.
func TestTLS_E2E(t *testing.T) {
	upstreamMux := http.NewServeMux()
	upstreamMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte("ok"))
	})
	upstreamSrv := &http.Server{Addr: "127.0.0.1:19001", Handler: upstreamMux}
	go func() { _ = upstreamSrv.ListenAndServe() }()
	defer func() { _ = upstreamSrv.Close() }()
	waitForPort(t, "127.0.0.1:19001")

	tmpDir := t.TempDir()
	certFile := filepath.Join(tmpDir, "server.crt")
	keyFile := filepath.Join(tmpDir, "server.key")
	cmd := exec.Command("openssl", "req", "-x509", "-newkey", "rsa:2048",
		"-keyout", keyFile, "-out", certFile, "-days", "1", "-nodes",
		"-subj", "/CN=example.com")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("openssl failed: %v\n%s", err, out)
	}

	entryAddr := "127.0.0.1:18443"
	config := fmt.Sprintf(`
entryPoints:
  https:
    address: %q
    http:
      tls: default
tls:
  certificates:
    - certFile: %q
      keyFile: %q
      sni: ["example.com"]
http:
  routers:
    r1:
      entryPoints: ["https"]
      rule: "PathPrefix(`+"`/`"+`)"
      service: s1
  services:
    s1:
      loadBalancer:
        servers:
          - url: "http://127.0.0.1:19001"
`, entryAddr, certFile, keyFile)

	startTrafficCop(t, config)
	waitForPort(t, entryAddr)

	tr := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true,
			ServerName:         "example.com",
		},
	}
	client := &http.Client{Transport: tr, Timeout: 5 * time.Second}

	req, err := http.NewRequest("GET", "https://"+entryAddr+"/api/ping", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Host = "example.com"

	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("https request failed: %v", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != 200 {
		t.Errorf("status: want 200, got %d", res.StatusCode)
	}

	if res.TLS == nil || len(res.TLS.PeerCertificates) == 0 {
		t.Fatal("no TLS state in response")
	}
	cert := res.TLS.PeerCertificates[0]
	if cert.Subject.CommonName != "example.com" {
		t.Errorf("cert CN: want example.com, got %q", cert.Subject.CommonName)
	}
}
