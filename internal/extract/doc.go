// Package extract recovers structured JSON values from free-form LLM output.
//
// Models do not reliably honor formatting instructions: replies arrive as
// bare JSON, JSON wrapped in markdown fences, or JSON buried in surrounding
// prose. Extract tries each recovery strategy in a fixed order and either
// returns a decoded value or a bounded diagnostic, never a partial decode.
//
// All "guess the JSON inside this text" logic in the codebase lives here; no
// other package scrapes model output ad hoc.
package extract
