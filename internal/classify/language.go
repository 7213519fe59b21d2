package classify

import (
	"path"
	"strings"
)

var languages = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".java": "java",
	".c":    "c",
	".cpp":  "cpp",
	".cs":   "csharp",
	".go":   "go",
	".rs":   "rust",
	".rb":   "ruby",
	".php":  "php",
	".html": "html",
	".css":  "css",
	".scss": "scss",
	".md":   "markdown",
	".json": "json",
	".xml":  "xml",
	".yaml": "yaml",
	".toml": "toml",
	".sh":   "bash",
	".ps1":  "powershell",
	".sql":  "sql",
}

// Language returns the fence tag for a path. Unmapped extensions fall back to
// the bare extension and files without one to "text".
func Language(p string) string {
	name := strings.ToLower(path.Base(strings.ReplaceAll(p, "\\", "/")))
	switch name {
	case "dockerfile":
		return "dockerfile"
	case "makefile":
		return "makefile"
	}

	ext := path.Ext(name)
	if ext == "" || ext == name {
		return "text"
	}
	if lang, ok := languages[ext]; ok {
		return lang
	}
	return strings.TrimPrefix(ext, ".")
}
