package shared

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
)

func TestParseCurlCommand(t *testing.T) {
	tt := []struct {
		name        string
		curlCmd     string
		wantHeaders map[string]string
		wantCookie  string
		wantErr     bool
	}{
		{
			name:        "Single Quoted Header",
			curlCmd:     `curl -H 'User-Agent: Mozilla/5.0' https://soundcloud.com`,
			wantHeaders: map[string]string{"User-Agent": "Mozilla/5.0"},
		},
		{
			name:        "Double Quoted Header",
			curlCmd:     `curl -H "Accept-Language: en-US" https://soundcloud.com`,
			wantHeaders: map[string]string{"Accept-Language": "en-US"},
		},
		{
			name:        "Cookie Header Is Split Out",
			curlCmd:     `curl -H 'cookie: sc_anonymous_id=abc' -H 'accept: */*' https://soundcloud.com`,
			wantHeaders: map[string]string{"accept": "*/*"},
			wantCookie:  "sc_anonymous_id=abc",
		},
		{
			name:        "Cookie Flag Wins",
			curlCmd:     `curl -H 'Cookie: old=value' -b 'new=value' https://soundcloud.com`,
			wantHeaders: map[string]string{},
			wantCookie:  "new=value",
		},
		{
			name: "Multiline Copy As cURL",
			curlCmd: `curl 'https://soundcloud.com/' \
  -H 'accept: text/html' \
  -H 'accept-language: en-US,en;q=0.9' \
  -H 'user-agent: Mozilla/5.0 (X11; Linux x86_64)'`,
			wantHeaders: map[string]string{
				"accept":          "text/html",
				"accept-language": "en-US,en;q=0.9",
				"user-agent":      "Mozilla/5.0 (X11; Linux x86_64)",
			},
		},
		{
			name:        "Spaces Around Colon",
			curlCmd:     `curl -H 'Referer : https://soundcloud.com/' https://soundcloud.com`,
			wantHeaders: map[string]string{"Referer": "https://soundcloud.com/"},
		},
		{name: "No Headers", curlCmd: `curl https://soundcloud.com`, wantErr: true},
		{name: "Empty", curlCmd: "", wantErr: true},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseCurlCommand([]byte(tc.curlCmd))
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseCurlCommand() error = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.wantErr {
				return
			}

			if len(got.Headers) != len(tc.wantHeaders) {
				t.Errorf("headers count = %d, want %d (%v)", len(got.Headers), len(tc.wantHeaders), got.Headers)
			}
			for k, want := range tc.wantHeaders {
				if got.Headers[k] != want {
					t.Errorf("header[%s] = %q, want %q", k, got.Headers[k], want)
				}
			}
			if got.Cookie != tc.wantCookie {
				t.Errorf("cookie = %q, want %q", got.Cookie, tc.wantCookie)
			}
		})
	}
}

func TestParseCurlFile(t *testing.T) {
	t.Run("Reads File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "curl.sh")
		if err := os.WriteFile(path, []byte(`curl -H 'accept: text/html' https://soundcloud.com`), 0644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}

		got, err := ParseCurlFile(path)
		if err != nil {
			t.Fatalf("ParseCurlFile() error = %v", err)
		}
		if got.Headers["accept"] != "text/html" {
			t.Errorf("accept = %q", got.Headers["accept"])
		}
	})

	t.Run("Missing File", func(t *testing.T) {
		if _, err := ParseCurlFile("/nonexistent/curl.sh"); err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestBrowserHeaders(t *testing.T) {
	t.Run("Save And Load", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "headers.json")
		want := &BrowserHeaders{Headers: map[string]string{"User-Agent": "test"}, Cookie: "a=b"}

		if err := SaveHeaders(path, want); err != nil {
			t.Fatalf("SaveHeaders() error = %v", err)
		}
		got, err := LoadHeaders(path)
		if err != nil {
			t.Fatalf("LoadHeaders() error = %v", err)
		}
		if got.Headers["User-Agent"] != "test" || got.Cookie != "a=b" {
			t.Errorf("LoadHeaders() = %+v", got)
		}
	})

	t.Run("Load Corrupt File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "headers.json")
		if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
		if _, err := LoadHeaders(path); err == nil {
			t.Error("expected error for corrupt headers file")
		}
	})

	t.Run("Apply", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "https://soundcloud.com", nil)
		req.Header.Set("User-Agent", "default")

		h := &BrowserHeaders{Headers: map[string]string{"User-Agent": "browser"}, Cookie: "a=b"}
		h.Apply(req)

		if got := req.Header.Get("User-Agent"); got != "browser" {
			t.Errorf("User-Agent = %q, want browser", got)
		}
		if got := req.Header.Get("Cookie"); got != "a=b" {
			t.Errorf("Cookie = %q, want a=b", got)
		}
	})

	t.Run("Apply Nil", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "https://soundcloud.com", nil)
		var h *BrowserHeaders
		h.Apply(req)
		if len(req.Header) != 0 {
			t.Errorf("expected no headers, got %v", req.Header)
		}
	})
}
