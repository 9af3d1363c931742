package rule

import "net"

// clientIPMatches reports whether ip falls within any of the given CIDRs
// (or equals them exactly when no prefix length is present).
func clientIPMatches(ip string, cidrs []string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, c := range cidrs {
		if _, network, err := net.ParseCIDR(c); err == nil {
			if network.Contains(parsed) {
				return true
			}
			continue
		}
		if want := net.ParseIP(c); want != nil && want.Equal(parsed) {
			return true
		}
	}
	return false
}
