package connectivity

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// DefaultProbeTargets are dialed when no prober is configured.
var DefaultProbeTargets = []string{"github.com:443", "api.github.com:443"}

// DialProber succeeds if any of its targets accepts a TCP connection.
type DialProber struct {
	targets []string
	dialer  *net.Dialer
}

func NewDialProber(targets ...string) *DialProber {
	return &DialProber{targets: targets, dialer: &net.Dialer{}}
}

func (p *DialProber) Probe(ctx context.Context) error {
	if len(p.targets) == 0 {
		return fmt.Errorf("no probe targets configured")
	}
	var failures []string
	for _, target := range p.targets {
		conn, err := p.dialer.DialContext(ctx, "tcp", target)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		failures = append(failures, err.Error())
	}
	return fmt.Errorf("all probe targets unreachable: %s", strings.Join(failures, "; "))
}

var defaultPorts = map[string]string{"https": "443", "http": "80", "ssh": "22", "git": "9418"}

// TargetForURL derives a host:port probe target from a repository URL,
// so self-hosted mirrors are probed instead of github.com.
func TargetForURL(raw string) (string, bool) {
	host, port := "", ""
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false
		}
		host, port = u.Hostname(), u.Port()
		if port == "" {
			port = defaultPorts[strings.ToLower(u.Scheme)]
		}
	} else if at := strings.Index(raw, "@"); at >= 0 {
		// scp-like syntax: user@host:path
		rest := raw[at+1:]
		colon := strings.Index(rest, ":")
		if colon < 0 {
			return "", false
		}
		host, port = rest[:colon], "22"
	}
	if host == "" || port == "" {
		return "", false
	}
	return net.JoinHostPort(host, port), true
}
