package l4udp

import "errors"

var (
	errNoRevision       = errors.New("l4udp: no revision published yet")
	errNoRoute          = errors.New("l4udp: no matching router/service")
	errNoEligibleServer = errors.New("l4udp: no eligible server")
)
