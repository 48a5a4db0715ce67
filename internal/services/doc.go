// Package services defines the [Service] interface for media providers and implements it for SoundCloud.
//
// # SoundCloud
//
// [SoundCloudService] resolves a playlist permalink through the API's /resolve endpoint and
// normalizes both response shapes the API returns: full playlists with a tracks array, and
// compact playlists carrying only duration and track_count.
//
// Requests go through a [JSONFetcher], which owns credential attachment and retries.
//
// # Local proxy
//
// [APIService] issues raw requests against a running `lumen serve`, for the `api` command and
// for the proxy credential issuer.
package services
