package smb

import "net"

// resolveIPv4 turns a textual hostname or dotted-quad into a 4-byte IPv4
// address (spec §1: "the hostname resolver ... produces a 32-bit IPv4
// address from a textual host"). It is consulted once, at Create time, so
// a malformed or unresolvable host is reported as ErrorParameterInvalid
// before a socket is ever opened; Connect still dials by hostname (letting
// the transport's own resolver run again) rather than by this cached
// address, since DNS answers can legitimately change between Create and
// Connect.
func resolveIPv4(host string) (net.IP, error) {
	ips, err := net.LookupIP(host)
	if err != nil {
		return nil, err
	}
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			return v4, nil
		}
	}
	return nil, &net.AddrError{Err: "no IPv4 address found", Addr: host}
}
