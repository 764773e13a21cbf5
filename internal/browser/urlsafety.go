package browser

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"

	. "github.com/roelfdiedericks/scrapemcp/internal/logging"
)

// URLSafetyError represents a URL that was blocked for safety reasons
type URLSafetyError struct {
	URL    string
	Reason string
}

func (e *URLSafetyError) Error() string {
	return fmt.Sprintf("URL blocked: %s", e.Reason)
}

// IPResolver resolves a hostname to addresses.
type IPResolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// ValidateURL checks that rawURL is an absolute http/https URL with a host.
// It does no network I/O.
func ValidateURL(rawURL string) (*url.URL, error) {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return nil, &URLSafetyError{URL: rawURL, Reason: "empty URL"}
	}
	parsed, err := url.Parse(s)
	if err != nil {
		return nil, &URLSafetyError{URL: rawURL, Reason: fmt.Sprintf("invalid URL: %v", err)}
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, &URLSafetyError{URL: rawURL, Reason: fmt.Sprintf("scheme '%s' not allowed, only http/https", parsed.Scheme)}
	}
	if parsed.Hostname() == "" {
		return nil, &URLSafetyError{URL: rawURL, Reason: "empty hostname"}
	}
	return parsed, nil
}

// ValidateURLSafety checks if a URL is safe to navigate to.
// This protects against SSRF attacks by:
// - Allowing only http/https schemes
// - Resolving hostname to IP to catch encoding tricks
// - Blocking loopback, private, link-local, and cloud metadata IPs
//
// Hosts that do not resolve pass; the browser reports them as a navigation
// failure.
func ValidateURLSafety(ctx context.Context, resolver IPResolver, urlStr string) error {
	parsed, err := ValidateURL(urlStr)
	if err != nil {
		return err
	}
	host := parsed.Hostname()

	if isCloudMetadataHost(host) {
		return &URLSafetyError{URL: urlStr, Reason: fmt.Sprintf("cloud metadata hostname blocked: %s", host)}
	}

	// Literal IPs need no DNS.
	if ip := net.ParseIP(host); ip != nil {
		if reason := isBlockedIP(ip); reason != "" {
			return &URLSafetyError{URL: urlStr, Reason: fmt.Sprintf("%s (%s)", reason, host)}
		}
		return nil
	}

	if resolver == nil {
		resolver = net.DefaultResolver
	}

	// Resolving catches decimal/hex/octal encodings, short forms like 127.1
	// and names that point at internal addresses.
	addrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		L_debug("urlsafety: lookup failed, leaving to browser", "host", host, "error", err)
		return nil
	}

	for _, addr := range addrs {
		if reason := isBlockedIP(addr.IP); reason != "" {
			L_debug("urlsafety: blocked IP", "url", urlStr, "host", host, "ip", addr.IP.String(), "reason", reason)
			return &URLSafetyError{URL: urlStr, Reason: fmt.Sprintf("%s (%s resolves to %s)", reason, host, addr.IP.String())}
		}
	}

	L_trace("urlsafety: URL passed validation", "url", urlStr, "host", host, "ips", fmt.Sprintf("%v", addrs))
	return nil
}

// isBlockedIP returns a reason string if the IP should be blocked, empty string if OK
func isBlockedIP(ip net.IP) string {
	if ip.IsLoopback() {
		return "loopback address blocked"
	}

	if ip.IsPrivate() {
		return "private network address blocked"
	}

	// Link-local (169.254.x.x, fe80::) covers the 169.254.169.254 metadata IP
	if ip.IsLinkLocalUnicast() {
		return "link-local address blocked"
	}

	if ip.IsLinkLocalMulticast() || ip.IsInterfaceLocalMulticast() || ip.IsMulticast() {
		return "multicast address blocked"
	}

	if ip.IsUnspecified() {
		return "unspecified address blocked"
	}

	return ""
}

// isCloudMetadataHost checks for known cloud metadata hostnames
func isCloudMetadataHost(host string) bool {
	host = strings.ToLower(host)

	metadataHosts := []string{
		"metadata.google.internal", // GCP
		"metadata.goog",            // GCP alternate
		"kubernetes.default.svc",   // Kubernetes
		"kubernetes.default",       // Kubernetes
		"metadata",                 // Generic
	}

	for _, mh := range metadataHosts {
		if host == mh || strings.HasSuffix(host, "."+mh) {
			return true
		}
	}

	return false
}
