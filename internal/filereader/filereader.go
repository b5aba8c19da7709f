// Package filereader reads local source files for embedding into
// adjudication prompts. Relative paths resolve against the repository root,
// and files that are not valid UTF-8 fall back to a latin-1 interpretation
// before the read is declared failed.
package filereader

import (
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"
)

// Reader resolves and reads files beneath a repository root.
type Reader struct {
	root string
}

// New creates a Reader. An empty root leaves relative paths relative to the
// process working directory.
func New(root string) *Reader {
	return &Reader{root: root}
}

// Read returns the file's content as text. Errors distinguish missing paths
// from non-files; undecodable content is recovered via latin-1 rather than
// failing the adjudication that needs it.
func (r *Reader) Read(path string) (string, error) {
	p := path
	if !filepath.IsAbs(p) && r.root != "" {
		p = filepath.Join(r.root, p)
	}

	info, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", p)
		}
		return "", fmt.Errorf("reading file %s: %w", p, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("path is not a file: %s", p)
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return "", fmt.Errorf("reading file %s: %w", p, err)
	}

	if utf8.Valid(data) {
		return string(data), nil
	}
	return decodeLatin1(data), nil
}

// decodeLatin1 widens each byte to its equivalent rune. Every byte sequence
// is valid latin-1, so this cannot fail.
func decodeLatin1(data []byte) string {
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}
