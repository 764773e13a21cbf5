package browser

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
)

// staticResolver answers lookups from a fixed table; unknown hosts fail.
type staticResolver map[string][]string

func (r staticResolver) LookupIPAddr(_ context.Context, host string) ([]net.IPAddr, error) {
	ips, ok := r[strings.ToLower(host)]
	if !ok {
		return nil, errors.New("no such host")
	}
	out := make([]net.IPAddr, 0, len(ips))
	for _, s := range ips {
		out = append(out, net.IPAddr{IP: net.ParseIP(s)})
	}
	return out, nil
}

var testResolver = staticResolver{
	"google.com":       {"142.250.72.14"},
	"example.com":      {"93.184.215.14"},
	"localhost":        {"127.0.0.1", "::1"},
	"127.1":            {"127.0.0.1"},
	"localtest.me":     {"127.0.0.1"},
	"intranet.corp":    {"10.1.2.3"},
	"dual.example.org": {"93.184.215.14", "192.168.0.10"},
}

func TestValidateURLSafety(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
		errMsg  string // substring to look for in error
	}{
		// Valid URLs
		{"valid https", "https://google.com", false, ""},
		{"valid http", "http://example.com", false, ""},
		{"valid with port", "https://example.com:8080/path", false, ""},
		{"valid with path", "https://example.com/path/to/page", false, ""},
		{"unresolvable host left to browser", "https://does-not-exist.invalid", false, ""},
		{"public literal ip", "http://8.8.8.8/", false, ""},

		// Blocked schemes
		{"file scheme", "file:///etc/passwd", true, "scheme"},
		{"ftp scheme", "ftp://example.com", true, "scheme"},
		{"javascript scheme", "javascript:alert(1)", true, "scheme"},
		{"data scheme", "data:text/html,<h1>hi</h1>", true, "scheme"},

		// Localhost variants
		{"localhost", "http://localhost", true, "loopback"},
		{"localhost with port", "http://localhost:8080", true, "loopback"},
		{"127.0.0.1", "http://127.0.0.1", true, "loopback"},
		{"127.0.0.1 with port", "http://127.0.0.1:3000", true, "loopback"},
		{"127.1 short form", "http://127.1", true, "loopback"},
		{"name pointing at loopback", "http://localtest.me", true, "loopback"},
		{"127.x.x.x range", "http://127.255.255.255", true, "loopback"},

		// IPv6 loopback
		{"ipv6 loopback", "http://[::1]", true, "loopback"},
		{"ipv6 loopback full", "http://[0000::1]", true, "loopback"},

		// Private networks
		{"10.x.x.x", "http://10.0.0.1", true, "private"},
		{"172.16.x.x", "http://172.16.0.1", true, "private"},
		{"192.168.x.x", "http://192.168.1.1", true, "private"},
		{"name pointing at private", "http://intranet.corp/", true, "private"},
		{"any resolved ip private", "http://dual.example.org/", true, "private"},

		// Link-local (includes cloud metadata)
		{"link-local", "http://169.254.1.1", true, "link-local"},
		{"aws metadata with path", "http://169.254.169.254/latest/meta-data/", true, "link-local"},

		// Cloud metadata hostnames
		{"gcp metadata", "http://metadata.google.internal", true, "cloud metadata hostname"},

		// Unspecified
		{"0.0.0.0", "http://0.0.0.0", true, "unspecified"},

		// Edge cases
		{"empty", "", true, "empty URL"},
		{"empty host", "http:///path", true, "empty hostname"},
		{"no scheme", "example.com", true, "scheme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURLSafety(context.Background(), testResolver, tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURLSafety(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
				return
			}
			if tt.wantErr && tt.errMsg != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("ValidateURLSafety(%q) error = %v, want error containing %q", tt.url, err, tt.errMsg)
				}
			}
			var use *URLSafetyError
			if tt.wantErr && !errors.As(err, &use) {
				t.Errorf("ValidateURLSafety(%q) error type = %T, want *URLSafetyError", tt.url, err)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"https://example.com", false},
		{"  https://example.com/a?b=c  ", false},
		{"HTTP://EXAMPLE.COM", false},
		{"http://localhost:8080", false}, // syntax only
		{"not a url", true},
		{"/relative/path", true},
		{"mailto:someone@example.com", true},
		{"https://", true},
		{"", true},
	}
	for _, tt := range tests {
		_, err := ValidateURL(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
	}
}

func TestIsBlockedIP(t *testing.T) {
	tests := []struct {
		name    string
		ip      string
		blocked bool
	}{
		// Public IPs - should be allowed
		{"google dns", "8.8.8.8", false},
		{"cloudflare dns", "1.1.1.1", false},

		// Loopback
		{"loopback", "127.0.0.1", true},
		{"loopback range", "127.255.255.255", true},
		{"ipv4-mapped loopback", "::ffff:127.0.0.1", true},

		// Private
		{"private 10.x", "10.0.0.1", true},
		{"private 172.16.x", "172.16.0.1", true},
		{"private 192.168.x", "192.168.0.1", true},
		{"unique local v6", "fd00::1", true},

		// Link-local
		{"link-local", "169.254.1.1", true},
		{"metadata", "169.254.169.254", true},
		{"link-local v6", "fe80::1", true},

		{"multicast", "224.0.0.1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ip := net.ParseIP(tt.ip)
			if ip == nil {
				t.Fatalf("failed to parse IP: %s", tt.ip)
			}
			reason := isBlockedIP(ip)
			blocked := reason != ""
			if blocked != tt.blocked {
				t.Errorf("isBlockedIP(%s) = %q (blocked=%v), want blocked=%v", tt.ip, reason, blocked, tt.blocked)
			}
		})
	}
}
