package main

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"asciisfu/internal/wire"
)

var defaultServerPort = strconv.Itoa(wire.DefaultControlPort)

// normalizeServerAddr turns the --server-address flag value into a
// canonical host:port for transport dialing. The flag only needs to
// accept a bare host or a host:port, with the default control port
// acceptable when none is given — there is no URL scheme in this
// protocol, so that is all this handles.
func normalizeServerAddr(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("server address is required")
	}

	host, port, err := net.SplitHostPort(s)
	if err != nil {
		// No port component, including a bare or bracketed IPv6 host
		// with no port: treat the whole thing as the host and fall
		// back to the default control port.
		host = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
		port = defaultServerPort
	}
	if host == "" {
		return "", fmt.Errorf("invalid server address: missing host")
	}

	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return "", fmt.Errorf("invalid server port: %q", port)
	}

	return net.JoinHostPort(host, strconv.Itoa(n)), nil
}

// normalizeMediaAddr derives the media (UDP) address from an already
// normalized control address, substituting the default media port for
// whatever control port was in use.
func normalizeMediaAddr(controlAddr string) (string, error) {
	host, _, err := net.SplitHostPort(controlAddr)
	if err != nil {
		return "", fmt.Errorf("invalid control address: %w", err)
	}
	return net.JoinHostPort(host, strconv.Itoa(wire.DefaultMediaPort)), nil
}
