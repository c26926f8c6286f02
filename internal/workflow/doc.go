// Package workflow holds the Temporal workflows of the scoring service.
//
// Workflows only coordinate. Every scoring decision happens inside the
// ScoreResponse activity, so workflow code stays deterministic and replays
// cleanly: no clocks, randomness or I/O outside workflow-safe APIs.
package workflow
