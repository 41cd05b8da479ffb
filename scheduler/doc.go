// Package scheduler runs the periodic reconciliation sweep that retries
// due pending notifications and expires pending notifications past their
// deadline.
package scheduler
