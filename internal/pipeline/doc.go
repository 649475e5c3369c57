// Package pipeline orchestrates media tasks through the
// download -> extract -> transcribe -> persist stages on a single
// sequential worker, reconciling in-memory state with the artifact store
// on startup.
package pipeline
