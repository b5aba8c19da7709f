// Package pipeline sequences the filter stages over a findings list.
//
// The rule stage and the path stage are pure and synchronous. The
// adjudication stage fans out over a bounded worker pool; each finding is
// judged independently and a failure for one never affects another. The
// report always accounts for every input finding: kept or excluded with a
// reason, never dropped.
package pipeline
