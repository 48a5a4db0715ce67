// Utilities for importing browser headers from a copied cURL command.
package shared

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"
)

var (
	headerFlag = regexp.MustCompile(`-H\s+'([^']+)'|-H\s+"([^"]+)"`)
	cookieFlag = regexp.MustCompile(`-b\s+'([^']+)'|-b\s+"([^"]+)"`)
)

// BrowserHeaders are request headers captured from a real browser session.
// The scrape issuer replays them so the home page serves the same assets a browser gets.
type BrowserHeaders struct {
	Headers map[string]string `json:"headers"`
	Cookie  string            `json:"cookie,omitempty"`
}

// ParseCurlFile reads a .sh file containing a cURL command and extracts headers.
func ParseCurlFile(filepath string) (*BrowserHeaders, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}
	return ParseCurlCommand(content)
}

// ParseCurlCommand parses a cURL command ("Copy as cURL") and extracts headers and cookies.
//
// A -b flag wins over a Cookie header.
func ParseCurlCommand(data []byte) (*BrowserHeaders, error) {
	cmd := strings.ReplaceAll(string(data), "\\\n", " ")
	cmd = strings.ReplaceAll(cmd, "\\", "")

	h := &BrowserHeaders{Headers: make(map[string]string)}
	var headerCookie string
	for _, m := range headerFlag.FindAllStringSubmatch(cmd, -1) {
		key, value, ok := strings.Cut(quoted(m), ":")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if strings.EqualFold(key, "cookie") {
			if headerCookie == "" {
				headerCookie = value
			}
			continue
		}
		h.Headers[key] = value
	}

	if m := cookieFlag.FindStringSubmatch(cmd); m != nil {
		h.Cookie = quoted(m)
	} else {
		h.Cookie = headerCookie
	}

	if len(h.Headers) == 0 && h.Cookie == "" {
		return nil, fmt.Errorf("%w: no headers found in curl command", ErrInvalidInput)
	}
	return h, nil
}

// quoted returns whichever of the single or double quoted groups matched.
func quoted(m []string) string {
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}

// Apply sets the captured headers on req. Existing values are replaced.
func (h *BrowserHeaders) Apply(req *http.Request) {
	if h == nil {
		return
	}
	for k, v := range h.Headers {
		req.Header.Set(k, v)
	}
	if h.Cookie != "" {
		req.Header.Set("Cookie", h.Cookie)
	}
}

// SaveHeaders writes h as indented JSON to path.
func SaveHeaders(path string, h *BrowserHeaders) error {
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode headers: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write headers file: %w", err)
	}
	return nil
}

// LoadHeaders reads headers saved by [SaveHeaders].
func LoadHeaders(path string) (*BrowserHeaders, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read headers file: %w", err)
	}

	var h BrowserHeaders
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("%w: headers file: %v", ErrInvalidInput, err)
	}
	return &h, nil
}
