// Package store persists per-label pipeline artifacts (transcripts,
// summaries, intermediate media) on the filesystem. The artifact folders
// are the durable source of truth for what work has been done.
package store
