package commands

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/livefir/hits"
)

// collectPaths expands patterns into component files. A pattern is a
// component file, a directory (its direct components) or <dir>/... for
// every component below dir. Results are absolute, unique and sorted.
func collectPaths(cwd string, patterns []string) ([]string, error) {
	seen := map[string]bool{}
	var out []string

	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	abs := func(p string) string {
		if !filepath.IsAbs(p) {
			p = filepath.Join(cwd, p)
		}
		return filepath.Clean(p)
	}

	for _, raw := range patterns {
		pat := strings.TrimSpace(raw)
		if pat == "" {
			continue
		}

		// Recursive pattern: <dir>/...
		if pat == "..." || strings.HasSuffix(pat, "/...") {
			base := strings.TrimSuffix(strings.TrimSuffix(pat, "..."), "/")
			if base == "" {
				base = "."
			}
			err := walkComponents(abs(base), func(p string) { add(p) })
			if err != nil {
				return nil, err
			}
			continue
		}

		target := abs(pat)
		st, err := os.Stat(target)
		if err != nil {
			return nil, err
		}
		if st.IsDir() {
			entries, err := os.ReadDir(target)
			if err != nil {
				return nil, err
			}
			for _, e := range entries {
				if !e.IsDir() && filepath.Ext(e.Name()) == hits.Extension {
					add(filepath.Join(target, e.Name()))
				}
			}
			continue
		}
		if filepath.Ext(target) != hits.Extension {
			return nil, fmt.Errorf("not a %s file: %s", hits.Extension, target)
		}
		add(target)
	}

	sort.Strings(out)
	return out, nil
}

func walkComponents(root string, fn func(string)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (name == "node_modules" || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == hits.Extension {
			fn(path)
		}
		return nil
	})
}
