// Package repositories implements SQLite persistence for the gallery.
//
// Key Implementations:
//   - [SlotRepository] : durable key-value slots, used as a credential store backend
//   - [PlaylistRepository] : the last resolved version of each playlist, keyed by source URL
//
// Both expect a database migrated with [shared.RunMigrations].
package repositories
