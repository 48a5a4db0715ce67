package issuer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lumen/internal/credentials"
	"github.com/desertthunder/lumen/internal/shared"
)

// ScrapedTTL is how long a scraped client identifier is trusted.
const ScrapedTTL = time.Hour

var (
	assetPattern    = regexp.MustCompile(`https://[^"]+/assets/[^"]+\.js`)
	clientIDPattern = regexp.MustCompile(`client_id:"([^"]+)"`)
)

// ScrapeIssuer extracts the public client identifier from the web player's script assets.
type ScrapeIssuer struct {
	homeURL   string
	client    *http.Client
	headers   *shared.BrowserHeaders
	userAgent string
	logger    *log.Logger
}

// NewScrapeIssuer creates a [ScrapeIssuer] for homeURL. headers may be nil.
func NewScrapeIssuer(homeURL string, client *http.Client, headers *shared.BrowserHeaders, logger *log.Logger) *ScrapeIssuer {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ScrapeIssuer{
		homeURL:   homeURL,
		client:    client,
		headers:   headers,
		userAgent: shared.DefaultUserAgent,
		logger:    shared.WithLogger(logger, "issuer", "scrape"),
	}
}

func (s *ScrapeIssuer) Name() string { return "scrape" }

// Issue fetches the home page, then each asset script in page order, and returns the
// first client_id found. Assets that fail to download are skipped.
func (s *ScrapeIssuer) Issue(ctx context.Context) (credentials.Grant, error) {
	page, err := s.get(ctx, s.homeURL)
	if err != nil {
		return credentials.Grant{}, fmt.Errorf("failed to fetch home page: %w", err)
	}

	assets := ExtractAssetURLs(page)
	s.logger.Debug("found script assets", "count", len(assets))

	for _, asset := range assets {
		body, err := s.get(ctx, asset)
		if err != nil {
			if ctx.Err() != nil {
				return credentials.Grant{}, ctx.Err()
			}
			s.logger.Warn("skipping asset", "url", asset, "error", err)
			continue
		}

		if id := ExtractClientID(body); id != "" {
			s.logger.Info("found client id", "asset", asset)
			return credentials.Grant{Value: id, TTL: ScrapedTTL}, nil
		}
	}

	return credentials.Grant{}, fmt.Errorf("%w: searched %d assets", shared.ErrIdentifierNotFound, len(assets))
}

func (s *ScrapeIssuer) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	s.headers.Apply(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s returned %d", shared.ErrUnexpectedStatus, url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	return string(body), nil
}

// ExtractAssetURLs returns the distinct script asset URLs in page, in order of appearance.
func ExtractAssetURLs(page string) []string {
	matches := assetPattern.FindAllString(page, -1)
	seen := make(map[string]bool, len(matches))
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			urls = append(urls, m)
		}
	}
	return urls
}

// ExtractClientID returns the first client_id:"..." value in script, or "".
func ExtractClientID(script string) string {
	if m := clientIDPattern.FindStringSubmatch(script); m != nil {
		return m[1]
	}
	return ""
}
