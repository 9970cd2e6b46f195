// Package net provides network plumbing shared by the daemon
// and the wallet agent.
package net

import "net"

// IsLoopback reports whether addr is a loopback listen address,
// such as "localhost:7001" or "127.0.0.1:7001".
func IsLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
