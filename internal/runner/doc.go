// Package runner drives the review agent binary as a subprocess. The
// prompt goes in on stdin; the agent prints a JSON envelope whose result
// field carries the findings payload as text.
package runner
