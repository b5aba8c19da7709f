// Package finding defines the data model shared across the audit pipeline:
// the Finding record produced by the external reviewer, the ExclusionRecord
// and FilterReport shapes produced by the filter, and the AdjudicationResult
// schema decoded from adjudication replies.
//
// Findings are normalized once at the ingestion boundary (severity upper
// case, category lower case, review_type tag) and are read-only afterwards.
package finding
