// Package pathfilter decides which file paths are out of review scope:
// dependency directories, lock files, generated code, and binary assets.
// It backs both the diff pre-filter (excluded files never reach the
// reviewer) and the final path-exclusion stage of the findings filter.
package pathfilter
