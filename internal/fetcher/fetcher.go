package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"image-analyzer/internal/config"

	"github.com/wb-go/wbf/zlog"
)

var (
	ErrUnsafeURL       = errors.New("unsafe url")
	ErrRedirectBlocked = errors.New("redirect responses are not followed")
	ErrFetchFailed     = errors.New("fetch failed")
)

// Hostnames rejected before any DNS lookup happens.
var blockedHostnames = map[string]struct{}{
	"localhost":                {},
	"0.0.0.0":                  {},
	"metadata.google.internal": {},
	"169.254.169.254":          {},
}

type resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// SafeFetcher downloads a caller-supplied URL after checking that it cannot
// reach internal or cloud-metadata addresses. Stateless across invocations.
type SafeFetcher struct {
	client   *http.Client
	resolver resolver
	maxBytes int64
	logger   *zlog.Zerolog
}

func New(cfg config.FetchConfig, maxBytes int64, logger *zlog.Zerolog) *SafeFetcher {
	return &SafeFetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			// A 3xx is surfaced to the caller instead of being followed;
			// following it would bypass the hostname checks below.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		resolver: net.DefaultResolver,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// Fetch validates rawURL against the SSRF policy, then issues a single GET
// with a bounded timeout. The body is capped at maxBytes+1 so that an
// oversized download still reaches the validator as a size violation.
func (f *SafeFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed url: %v", ErrUnsafeURL, err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: only http and https urls are allowed", ErrUnsafeURL)
	}

	hostname := strings.ToLower(parsed.Hostname())
	if hostname == "" {
		return nil, fmt.Errorf("%w: no hostname found", ErrUnsafeURL)
	}

	if _, blocked := blockedHostnames[hostname]; blocked {
		return nil, fmt.Errorf("%w: access to localhost and private networks is not allowed", ErrUnsafeURL)
	}

	if err := f.checkResolvedAddrs(ctx, hostname); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		f.logger.Warn().Str("url", rawURL).Int("status", resp.StatusCode).Msg("Blocked redirect response")
		return nil, fmt.Errorf("%w: got %d to %q", ErrRedirectBlocked, resp.StatusCode, resp.Header.Get("Location"))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrFetchFailed, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrFetchFailed, err)
	}

	return data, nil
}

// checkResolvedAddrs resolves the hostname and rejects private, loopback,
// link-local and cloud-metadata addresses even when the hostname itself
// looked benign (defeats DNS-based SSRF).
func (f *SafeFetcher) checkResolvedAddrs(ctx context.Context, hostname string) error {
	addrs, err := f.resolver.LookupIPAddr(ctx, hostname)
	if err != nil {
		return fmt.Errorf("%w: could not resolve hostname %q: %v", ErrUnsafeURL, hostname, err)
	}
	if len(addrs) == 0 {
		return fmt.Errorf("%w: hostname %q resolved to no addresses", ErrUnsafeURL, hostname)
	}

	for _, addr := range addrs {
		if !isPublicAddr(addr.IP) {
			return fmt.Errorf("%w: access to private/metadata address (%s) is not allowed", ErrUnsafeURL, addr.IP)
		}
	}

	return nil
}

func isPublicAddr(ip net.IP) bool {
	if ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
		return false
	}
	// AWS/GCP/Azure metadata endpoint; link-local already covers it for IPv4
	// but keep the explicit check for mapped representations.
	if ip.Equal(net.IPv4(169, 254, 169, 254)) {
		return false
	}
	return true
}
