// Package jsonfile edits JSON settings files in place without disturbing
// keys it does not own. Edits go through gjson/sjson paths so unrelated
// structure survives a read-merge-write cycle, and the final payload is
// replaced atomically.
package jsonfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Path joins key segments into a gjson/sjson path, escaping characters that
// would otherwise act as wildcards or separators. Model identifiers like
// "moonshotai/kimi-k2.5" contain dots, so raw concatenation is not safe.
func Path(segments ...string) string {
	escaped := make([]string, 0, len(segments))
	for _, seg := range segments {
		escaped = append(escaped, escapeSegment(seg))
	}
	return strings.Join(escaped, ".")
}

func escapeSegment(seg string) string {
	var b strings.Builder
	for _, r := range seg {
		switch r {
		case '.', '*', '?', '\\', '|', '#', '@':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Get reads one value from a JSON file. Missing files and missing keys both
// return a non-existent result.
func Get(path, key string) gjson.Result {
	raw, err := os.ReadFile(path)
	if err != nil {
		return gjson.Result{}
	}
	return gjson.GetBytes(raw, key)
}

// SetKeys merges the given key/value pairs into the JSON document at path.
// A missing file starts as an empty object. Keys are applied in sorted order
// so repeated runs produce identical output. Returns the sorted list of keys
// written.
func SetKeys(path string, keys map[string]any, perm os.FileMode) ([]string, error) {
	raw, err := readOrEmpty(path)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)

	doc := string(raw)
	for _, k := range names {
		doc, err = sjson.Set(doc, k, keys[k])
		if err != nil {
			return nil, fmt.Errorf("set %q in %s: %w", k, path, err)
		}
	}

	if err := writeFormatted(path, doc, perm); err != nil {
		return nil, err
	}
	return names, nil
}

// DeleteKeys removes the given keys from the JSON document at path, then
// prunes any parent objects the removal left empty so reverting injected
// keys does not strand husks like {"env": {}}. A document emptied entirely
// is deleted from disk. Absent keys and an absent file are both no-ops.
func DeleteKeys(path string, keys []string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if !gjson.ValidBytes(raw) {
		return fmt.Errorf("parse %s: not valid JSON", path)
	}

	doc := string(raw)
	for _, k := range keys {
		doc, err = sjson.Delete(doc, k)
		if err != nil {
			return fmt.Errorf("delete %q in %s: %w", k, path, err)
		}
		doc = pruneEmptyParents(doc, k)
	}

	root := gjson.Parse(doc)
	if doc != string(raw) && root.IsObject() && len(root.Map()) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", path, err)
		}
		return nil
	}

	info, err := os.Stat(path)
	perm := os.FileMode(0o644)
	if err == nil {
		perm = info.Mode().Perm()
	}
	return writeFormatted(path, doc, perm)
}

// pruneEmptyParents walks the deleted key's ancestors from the deepest up,
// dropping each object that is now empty. Stops at the first non-empty (or
// non-object) ancestor.
func pruneEmptyParents(doc, key string) string {
	segments := splitPath(key)
	for i := len(segments) - 1; i > 0; i-- {
		parent := strings.Join(segments[:i], ".")
		v := gjson.Get(doc, parent)
		if !v.Exists() || !v.IsObject() || len(v.Map()) > 0 {
			break
		}
		pruned, err := sjson.Delete(doc, parent)
		if err != nil {
			break
		}
		doc = pruned
	}
	return doc
}

// splitPath splits a gjson path on unescaped dots. Escapes stay in place so
// rejoined prefixes remain valid paths.
func splitPath(path string) []string {
	var segments []string
	var b strings.Builder
	escaped := false
	for _, r := range path {
		switch {
		case escaped:
			b.WriteByte('\\')
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '.':
			segments = append(segments, b.String())
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}
	return append(segments, b.String())
}

func readOrEmpty(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []byte("{}"), nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return []byte("{}"), nil
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("parse %s: not valid JSON", path)
	}
	return raw, nil
}

func writeFormatted(path, doc string, perm os.FileMode) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace([]byte(doc)), "", "  "); err != nil {
		return fmt.Errorf("format %s: %w", path, err)
	}
	buf.WriteByte('\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	if err := renameio.WriteFile(path, buf.Bytes(), perm); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
