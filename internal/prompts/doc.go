// Package prompts holds all prompt text: the unified quality + security
// review prompt sent to the external reviewer agent, and the system and
// per-finding user prompts for false-positive adjudication.
package prompts
