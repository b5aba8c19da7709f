// Clearsift audits automated code-review findings to suppress false
// positives before they reach a human.
//
// It reviews a pull request with an external agent, then filters the
// findings through deterministic exclusion rules and an optional model
// adjudication pass, emitting a structured report with deterministic exit
// codes suitable for CI gating.
//
// Usage:
//
//	clearsift audit --repo owner/repo --pr 42   # review and filter a PR
//	clearsift filter findings.json              # filter an existing findings list
//	clearsift version
package main
