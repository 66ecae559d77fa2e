// Package tomlfile edits TOML configuration files (Codex config.toml, the
// foxglove state ledger) by deep-merging patch tables into the existing
// document. Unrelated keys survive the cycle and the file is replaced
// atomically.
package tomlfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/renameio/v2"
)

// Load decodes a TOML file into a generic table. A missing file yields an
// empty table.
func Load(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc := map[string]any{}
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

// Save encodes the table to path, creating parent directories and replacing
// the file atomically. BurntSushi's encoder emits map keys in sorted order,
// so repeated saves of the same table are byte-identical.
func Save(path string, doc map[string]any, perm os.FileMode) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	if err := renameio.WriteFile(path, buf.Bytes(), perm); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Merge deep-merges patch into the document at path and saves the result.
// Nested tables are merged key-wise; scalars and arrays are replaced.
func Merge(path string, patch map[string]any, perm os.FileMode) error {
	doc, err := Load(path)
	if err != nil {
		return err
	}
	mergeTables(doc, patch)
	return Save(path, doc, perm)
}

// DeleteKeys removes dotted keys from the document at path and prunes tables
// the deletions leave empty. Absent keys and an absent file are no-ops.
func DeleteKeys(path string, keys []string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	doc, err := Load(path)
	if err != nil {
		return err
	}
	for _, key := range keys {
		deleteKey(doc, strings.Split(key, "."))
	}

	info, err := os.Stat(path)
	perm := os.FileMode(0o644)
	if err == nil {
		perm = info.Mode().Perm()
	}
	return Save(path, doc, perm)
}

// Get resolves a dotted key in the document at path.
func Get(path, key string) (any, bool) {
	doc, err := Load(path)
	if err != nil {
		return nil, false
	}
	current := any(doc)
	for _, seg := range strings.Split(key, ".") {
		table, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = table[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func mergeTables(dst, patch map[string]any) {
	for key, value := range patch {
		if patchTable, ok := value.(map[string]any); ok {
			if dstTable, ok := dst[key].(map[string]any); ok {
				mergeTables(dstTable, patchTable)
				continue
			}
			fresh := map[string]any{}
			mergeTables(fresh, patchTable)
			dst[key] = fresh
			continue
		}
		dst[key] = value
	}
}

func deleteKey(doc map[string]any, segments []string) {
	if len(segments) == 0 {
		return
	}
	if len(segments) == 1 {
		delete(doc, segments[0])
		return
	}
	child, ok := doc[segments[0]].(map[string]any)
	if !ok {
		return
	}
	deleteKey(child, segments[1:])
	if len(child) == 0 {
		delete(doc, segments[0])
	}
}
