// Package config loads and merges clearsift settings.
//
// Precedence, lowest to highest: built-in defaults, the .clearsift.yaml
// file in the working directory, environment variables, CLI flag
// overrides. Credentials and instruction text are environment-only and are
// never written to or read from the YAML file.
package config
