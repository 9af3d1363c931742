package tests

import (
	"bufio"
	"fmt"
	"net"
	"testing"
)

func TestTCPProxy_Echo(t *testing.T) {
	upstreamAddr := "127.0.0.1:19009"
	ln, err := net.Listen("tcp", upstreamAddr)
	if err != nil {
		t.Fatalf("listen upstream: %v", err)
	}
	defer func() { _ = ln.Close() }()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer func() { _ = c.Close() }()
				buf := make([]byte, 1024)
				for {
					n, err := c.Read(buf)
					if n > 0 {
						_, _ = c.Write(buf[:n])
					}
					if err != nil {
						return
					}
				}
			}(conn)
		}
	}()

	entryAddr := "127.0.0.1:18089"
	config := fmt.Sprintf(`
entryPoints:
  tcp-echo:
    address: %q
tcp:
  routers:
    echo:
      entryPoints: ["tcp-echo"]
      rule: "HostSNI(`+"`*`"+`)"
      service: echo-service
  services:
    echo-service:
      loadBalancer:
        servers:
          - url: "tcp://%s"
`, entryAddr, upstreamAddr)

	startTrafficCop(t, config)
	waitForPort(t, entryAddr)

	conn, err := net.Dial("tcp", entryAddr)
	if err != nil {
		t.Fatalf("dial entry point: %v", err)
	}
	defer func() { _ = conn.Close() }()

	msg := "hello tcp proxy\n"
	if _, err := conn.Write([]byte(msg)); err != nil {
		t.Fatalf("write: %v", err)
	}

	reader := bufio.NewReader(conn)
	got, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if got != msg {
		t.Errorf("want %q, got %q", msg, got)
	}
}
