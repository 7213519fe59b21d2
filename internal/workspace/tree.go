package workspace

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"contexter/internal/snapshot"
)

const (
	treeIndent = "│   "
	treeEntry  = "├── "
)

// RenderTree draws the directory structure under root: the root as "name/",
// then each directory's files followed by its subdirectories, depth first.
func RenderTree(root string, ig *Ignore) (snapshot.TreeSummary, error) {
	if ig == nil {
		ig = NewIgnore()
	}
	name := filepath.Base(filepath.Clean(root))

	var lines []string
	var walk func(dir, rel string, level int) error
	walk = func(dir, rel string, level int) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		var files, dirs []string
		for _, e := range entries {
			childRel := e.Name()
			if rel != "" {
				childRel = rel + "/" + e.Name()
			}
			if ig.MatchName(e.Name()) || ig.Match(childRel) {
				continue
			}
			if e.IsDir() {
				dirs = append(dirs, e.Name())
			} else {
				files = append(files, e.Name())
			}
		}
		sort.Strings(files)
		sort.Strings(dirs)

		for _, f := range files {
			lines = append(lines, strings.Repeat(treeIndent, level)+treeEntry+f)
		}
		for _, d := range dirs {
			lines = append(lines, strings.Repeat(treeIndent, level)+treeEntry+d+"/")
			childRel := d
			if rel != "" {
				childRel = rel + "/" + d
			}
			if err := walk(filepath.Join(dir, d), childRel, level+1); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(root, "", 0); err != nil {
		return snapshot.TreeSummary{}, err
	}

	body := name + "/"
	if len(lines) > 0 {
		body += "\n" + strings.Join(lines, "\n")
	}
	return snapshot.TreeSummary{Name: name, Body: body}, nil
}
