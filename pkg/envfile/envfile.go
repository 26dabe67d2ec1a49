package envfile

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// File is an in-memory representation of a line-oriented KEY=VALUE file
// with #-prefixed comments. Lines that are not rewritten through Set or
// Apply round-trip byte-for-byte: comments, blank lines, unrelated
// variables, and ordering are all preserved.
type File struct {
	path  string
	lines []line
	index map[string]int // key -> line position
	mode  os.FileMode
}

type line struct {
	raw string
	key string // "" for comments, blanks, and unparseable lines
}

// Load reads and parses the file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	f := Parse(data)
	f.path = path
	f.mode = mode
	return f, nil
}

// Parse builds a File from raw bytes.
func Parse(data []byte) *File {
	f := &File{index: make(map[string]int)}

	content := strings.TrimSuffix(string(data), "\n")
	if content == "" && len(data) <= 1 {
		return f
	}
	for _, raw := range strings.Split(content, "\n") {
		f.lines = append(f.lines, parseLine(raw))
	}
	for i, ln := range f.lines {
		if ln.key != "" {
			// Last occurrence wins, matching shell sourcing semantics.
			f.index[ln.key] = i
		}
	}
	return f
}

func parseLine(raw string) line {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return line{raw: raw}
	}
	eq := strings.Index(trimmed, "=")
	if eq <= 0 {
		return line{raw: raw}
	}
	key := strings.TrimSpace(trimmed[:eq])
	return line{raw: raw, key: key}
}

// Get returns the value for key. Implements the config.Source contract:
// the second return is false when the key is absent.
func (f *File) Get(key string) (string, bool) {
	i, ok := f.index[key]
	if !ok {
		return "", false
	}
	raw := strings.TrimSpace(f.lines[i].raw)
	eq := strings.Index(raw, "=")
	return strings.TrimSpace(raw[eq+1:]), true
}

// Keys returns every key present, in file order. When a key appears more
// than once, only its effective (last) occurrence is reported.
func (f *File) Keys() []string {
	keys := make([]string, 0, len(f.index))
	for i, ln := range f.lines {
		if ln.key != "" && f.index[ln.key] == i {
			keys = append(keys, ln.key)
		}
	}
	return keys
}

// Set updates the line holding key in place, or appends a new KEY=VALUE
// line when the key is absent. Only the touched line changes.
func (f *File) Set(key, value string) {
	rendered := fmt.Sprintf("%s=%s", key, value)
	if i, ok := f.index[key]; ok {
		f.lines[i] = line{raw: rendered, key: key}
		return
	}
	f.lines = append(f.lines, line{raw: rendered, key: key})
	f.index[key] = len(f.lines) - 1
}

// Apply sets every key in updates. Existing keys are rewritten in place;
// absent keys are appended in sorted order, so the rewritten file differs
// from the original only in touched and appended lines.
func (f *File) Apply(updates map[string]string) {
	var missing []string
	for key, v := range updates {
		if _, ok := f.index[key]; ok {
			f.Set(key, v)
		} else {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	for _, key := range missing {
		f.Set(key, updates[key])
	}
}

// Bytes renders the file, terminated by a trailing newline when non-empty.
func (f *File) Bytes() []byte {
	if len(f.lines) == 0 {
		return nil
	}
	raws := make([]string, len(f.lines))
	for i, ln := range f.lines {
		raws[i] = ln.raw
	}
	return []byte(strings.Join(raws, "\n") + "\n")
}

// Save writes the rendered file back to its load path, preserving the
// original permissions.
func (f *File) Save() error {
	if f.path == "" {
		return fmt.Errorf("env file has no backing path")
	}
	return f.SaveTo(f.path)
}

// SaveTo writes the rendered file to path.
func (f *File) SaveTo(path string) error {
	mode := f.mode
	if mode == 0 {
		mode = 0644
	}
	if err := os.WriteFile(path, f.Bytes(), mode); err != nil {
		return fmt.Errorf("failed to write env file: %w", err)
	}
	return nil
}
