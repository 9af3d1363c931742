package proxy

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// isUpgradeRequest reports whether r is asking to switch protocols, so its
// Connection/Upgrade headers must survive dropHopByHop's usual stripping
// and be forwarded to the backend verbatim.
func isUpgradeRequest(r *http.Request) bool {
	for _, f := range r.Header.Values("Connection") {
		for _, tok := range strings.Split(f, ",") {
			if strings.EqualFold(strings.TrimSpace(tok), "Upgrade") {
				return true
			}
		}
	}
	return false
}

// spliceUpgrade handles a 101 Switching Protocols response (WebSocket, or
// any other upgraded protocol a backend negotiates): it hijacks the client
// connection, writes the upstream's status line and headers verbatim, then
// pipes bytes in both directions until either side closes. http.Transport
// exposes the raw upgraded connection as resp.Body (an io.ReadWriteCloser)
// since Go 1.12, so no separate dial is needed here.
func spliceUpgrade(w http.ResponseWriter, resp *http.Response) error {
	hj, ok := w.(http.Hijacker)
	if !ok {
		return fmt.Errorf("proxy: response writer does not support hijacking")
	}
	upstream, ok := resp.Body.(io.ReadWriteCloser)
	if !ok {
		return fmt.Errorf("proxy: upgraded response body is not bidirectional")
	}

	clientConn, clientBuf, err := hj.Hijack()
	if err != nil {
		return fmt.Errorf("proxy: hijack client connection: %w", err)
	}
	defer clientConn.Close()
	defer upstream.Close()

	if err := resp.Write(clientConn); err != nil {
		return fmt.Errorf("proxy: write upgrade response: %w", err)
	}
	if n := clientBuf.Reader.Buffered(); n > 0 {
		buffered, _ := clientBuf.Reader.Peek(n)
		if _, err := upstream.Write(buffered); err != nil {
			return err
		}
	}

	done := make(chan struct{}, 2)
	go func() {
		_, _ = io.Copy(upstream, clientConn)
		done <- struct{}{}
	}()
	go func() {
		_, _ = io.Copy(clientConn, upstream)
		done <- struct{}{}
	}()
	<-done
	return nil
}
