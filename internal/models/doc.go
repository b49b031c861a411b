// Package models defines domain entities and persistence interfaces for the jukebox service.
//
// The package contains two categories of types:
//
// 1. Values: immutable data flowing through the playback core
//   - [Locator] : A raw request classified once as a direct locator or a search phrase
//   - [PlaylistItem] : A resolved, queueable unit of playback
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [PlayRecord] : One playback attempt for a session, with its outcome
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
