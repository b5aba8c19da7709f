// Package output assembles and formats audit reports.
//
// Two formats are supported:
//   - text — human-readable terminal output
//   - json — full structured report for downstream consumption (default)
//
// Use [GetWriter] to obtain a [Writer] for a format string, or
// [WriteReport] to handle destination selection as well.
package output
