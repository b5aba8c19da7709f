// Package github fetches pull request metadata, changed files, and diffs
// from the GitHub REST API for the audit flow. Excluded paths are stripped
// at fetch time so generated and vendored files never reach the reviewer.
package github
