package catalog

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// DefaultExtensions are the file types picked up when no list is configured.
var DefaultExtensions = []string{".txt", ".pdf"}

// File is a candidate catalog entry found on disk.
type File struct {
	Path string
	Size int64
}

// NormalizeExtensions lower-cases exts and ensures each starts with a dot.
// Empty entries are dropped; an empty result falls back to DefaultExtensions.
func NormalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	if len(out) == 0 {
		return append([]string(nil), DefaultExtensions...)
	}
	return out
}

// Scan walks root and returns every regular file whose extension is in exts,
// in lexical path order.
func Scan(root string, exts []string) ([]File, error) {
	allowed := make(map[string]struct{})
	for _, e := range NormalizeExtensions(exts) {
		allowed[e] = struct{}{}
	}

	var files []File
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if _, ok := allowed[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, File{Path: path, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: scan %s: %w", root, err)
	}
	return files, nil
}
