// Package tasks loads playlist galleries with bounded concurrency and real-time progress reporting.
//
// # Loader
//
// [Loader] splits the source URLs into batches of [DefaultChunkSize]. Items within a batch
// resolve concurrently; batches run strictly one after another with a [DefaultPace] pause
// between them (never after the last). Each item reports exactly once to the [Renderer],
// success or failure, and [Renderer.AllResolved] fires once per cycle when the last item
// settles. Renderers implementing [LivenessChecker] can have stale results dropped.
//
// # Gallery Engine
//
// [GalleryEngine] primes the API credential before the first batch, so a missing credential
// surfaces as one page-level error instead of a failure per playlist. It then resolves each
// URL through a [services.Service] and optionally caches results via [PlaylistCacher].
//
// # Progress Reporting
//
// Operations send [ProgressUpdate] values on a caller-supplied channel. Sends never block;
// updates are dropped when the channel is full.
package tasks
