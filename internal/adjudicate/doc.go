// Package adjudicate calls the external model to judge individual findings.
//
// Client speaks the Anthropic messages API directly. Adjudicator wraps a
// Completer with the retry Policy and decodes replies through the resilient
// extractor, so malformed model output is retried on the same budget as
// transport errors.
package adjudicate
