package pathfilter

import (
	"path/filepath"
	"regexp"
	"strings"
)

// builtinPatterns are file globs that are never worth reviewing: lock files,
// generated artifacts, and binaries.
var builtinPatterns = []string{
	// Package manager lock files
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"Gemfile.lock",
	"Pipfile.lock",
	"poetry.lock",
	"composer.lock",
	"Cargo.lock",
	"go.sum",
	"pubspec.lock",
	"Podfile.lock",
	"packages.lock.json",
	// Generated/compiled files
	"*.min.js",
	"*.min.css",
	"*.bundle.js",
	"*.chunk.js",
	"*.map",
	"*.pb.go",
	"*.pb.swift",
	"*.generated.*",
	"*.g.dart",
	"*.freezed.dart",
	// Binary files
	"*.png",
	"*.jpg",
	"*.jpeg",
	"*.gif",
	"*.ico",
	"*.webp",
	"*.svg",
	"*.woff",
	"*.woff2",
	"*.ttf",
	"*.eot",
	"*.pdf",
	"*.zip",
	"*.tar.gz",
	"*.jar",
	"*.pyc",
	"*.so",
	"*.dylib",
	"*.dll",
	"*.exe",
}

// builtinDirs are directories that are always excluded.
var builtinDirs = []string{
	"node_modules",
	"vendor",
	"dist",
	"build",
	".next",
	"__pycache__",
	".gradle",
	"Pods",
	"DerivedData",
}

// generatedMarkers inside a diff section identify tool-generated files.
var generatedMarkers = []string{
	"@generated",
	"Code generated by OpenAPI Generator",
	"Code generated by protoc-gen-go",
}

var diffHeaderRe = regexp.MustCompile(`^diff --git a/(.*?) b/`)

// Checker is the path-exclusion collaborator: a pure membership test against
// built-in and caller-configured directory and pattern lists.
type Checker struct {
	dirs     []string
	patterns []string
}

// New builds a Checker combining the built-in exclusions with user-supplied
// directories (duplicates collapse).
func New(userDirs []string) *Checker {
	seen := make(map[string]bool, len(builtinDirs)+len(userDirs))
	var dirs []string
	for _, d := range append(append([]string{}, builtinDirs...), userDirs...) {
		d = strings.TrimSpace(d)
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		dirs = append(dirs, d)
	}
	return &Checker{dirs: dirs, patterns: builtinPatterns}
}

// IsExcluded reports whether a path falls under an excluded directory or
// matches an excluded file pattern.
func (c *Checker) IsExcluded(path string) bool {
	for _, dir := range c.dirs {
		normalized := strings.TrimPrefix(dir, "./")
		if strings.HasPrefix(path, dir+"/") ||
			strings.HasPrefix(path, normalized+"/") ||
			strings.Contains(path, "/"+normalized+"/") {
			return true
		}
	}

	base := path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		base = path[i+1:]
	}
	for _, pattern := range c.patterns {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
		// Patterns like *.generated.* may need to see the full path.
		if ok, _ := filepath.Match(pattern, path); ok {
			return true
		}
	}
	return false
}

// FilterDiff removes sections for excluded and generated files from a
// unified diff.
func (c *Checker) FilterDiff(diff string) string {
	var kept []string
	for _, section := range splitDiffSections(diff) {
		if strings.TrimSpace(section) == "" {
			continue
		}
		if hasGeneratedMarker(section) {
			continue
		}
		if m := diffHeaderRe.FindStringSubmatch(section); m != nil && c.IsExcluded(m[1]) {
			continue
		}
		kept = append(kept, section)
	}
	return strings.Join(kept, "")
}

// splitDiffSections cuts a unified diff at each "diff --git" header, keeping
// the header with its section.
func splitDiffSections(diff string) []string {
	lines := strings.SplitAfter(diff, "\n")
	var sections []string
	var current strings.Builder
	for _, line := range lines {
		if strings.HasPrefix(line, "diff --git") && current.Len() > 0 {
			sections = append(sections, current.String())
			current.Reset()
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		sections = append(sections, current.String())
	}
	return sections
}

func hasGeneratedMarker(section string) bool {
	for _, marker := range generatedMarkers {
		if strings.Contains(section, marker) {
			return true
		}
	}
	return false
}
