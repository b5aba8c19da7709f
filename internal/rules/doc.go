// Package rules implements the hard-exclusion stage of the findings filter:
// a pure, synchronous pattern matcher that discards finding categories known
// to be noise (documentation files, DOS phrasing, rate-limit and open-redirect
// recommendations) without consulting any external model.
//
// The rules deliberately err toward keeping: a finding with concrete
// vulnerability text that matches no exclusion phrase always survives this
// stage, since a later stage still gets a chance to judge it.
package rules
