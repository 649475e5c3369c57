// Package model contains the core data structures for pipeline tasks,
// their state machine and transcript segments.
package model
