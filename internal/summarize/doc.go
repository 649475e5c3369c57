// Package summarize runs best-effort batch summarization of completed
// transcripts through a bounded worker pool.
package summarize
