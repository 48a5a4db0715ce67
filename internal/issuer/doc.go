// Package issuer implements [credentials.Issuer] strategies for obtaining a media API credential.
//
//   - [TokenIssuer] exchanges a client id and secret for an OAuth access token.
//   - [ScrapeIssuer] reads the public client identifier embedded in the web player's assets.
//   - [ProxyIssuer] asks a running `lumen serve` for the identifier it scraped.
//
// Issuers are not safe to call concurrently for the same credential; [credentials.Session]
// serializes them.
package issuer
