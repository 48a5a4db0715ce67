// Package models defines domain entities and persistence interfaces for the lumen playlist gallery.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs describing remote data
//   - [Playlist] : Normalized playlist metadata ready for rendering
//
// 2. Persistent Entities: Database-backed models
//   - [CachedPlaylist] : The last resolution of a source URL, kept for offline display
//
// Persistent entities implement the [Model] interface and are stored through a [Repository].
package models
