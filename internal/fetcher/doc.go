// Package fetcher performs authenticated JSON GETs against the media API.
//
// A [Fetcher] attaches the current credential, re-issues it once when the upstream answers
// 401 or 403, backs off on 429, and treats every other non-200 status as terminal.
//
// Outgoing requests are paced with a token bucket and bounded by a per-request timeout.
package fetcher
