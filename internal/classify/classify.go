// internal/classify/classify.go
package classify

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"contexter/internal/snapshot"
)

// SniffSize is how many leading bytes are inspected for a NUL byte
const SniffSize = 1024

// mimeTypes is a fixed extension table so classification never depends on
// the host's mime database.
var mimeTypes = map[string]string{
	// text
	".txt":  "text/plain",
	".md":   "text/markdown",
	".rst":  "text/x-rst",
	".csv":  "text/csv",
	".tsv":  "text/tab-separated-values",
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".scss": "text/x-scss",
	".py":   "text/x-python",
	".c":    "text/x-c",
	".h":    "text/x-c",
	".cpp":  "text/x-c++",
	".hpp":  "text/x-c++",
	".java": "text/x-java",
	".go":   "text/x-go",
	".rs":   "text/x-rust",
	".ts":   "text/x-typescript",
	".cs":   "text/x-csharp",
	".ini":  "text/plain",
	".cfg":  "text/plain",

	// textual families carried by application/* types
	".js":   "text/javascript",
	".mjs":  "text/javascript",
	".json": "application/json",
	".xml":  "application/xml",
	".svg":  "image/svg+xml",
	".sql":  "application/sql",
	".toml": "application/toml",
	".yaml": "application/yaml",
	".yml":  "application/yaml",
	".sh":   "application/x-sh",
	".csh":  "application/x-csh",
	".pl":   "application/x-perl",
	".rb":   "application/x-ruby",
	".php":  "application/x-httpd-php",

	// binary
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".bmp":   "image/bmp",
	".webp":  "image/webp",
	".ico":   "image/vnd.microsoft.icon",
	".tif":   "image/tiff",
	".tiff":  "image/tiff",
	".pdf":   "application/pdf",
	".zip":   "application/zip",
	".gz":    "application/gzip",
	".tgz":   "application/gzip",
	".bz2":   "application/x-bzip2",
	".xz":    "application/x-xz",
	".zst":   "application/zstd",
	".7z":    "application/x-7z-compressed",
	".tar":   "application/x-tar",
	".jar":   "application/java-archive",
	".class": "application/java-vm",
	".exe":   "application/octet-stream",
	".dll":   "application/octet-stream",
	".so":    "application/octet-stream",
	".bin":   "application/octet-stream",
	".wasm":  "application/wasm",
	".mp3":   "audio/mpeg",
	".wav":   "audio/x-wav",
	".ogg":   "audio/ogg",
	".mp4":   "video/mp4",
	".mov":   "video/quicktime",
	".avi":   "video/x-msvideo",
	".mkv":   "video/x-matroska",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".otf":   "font/otf",
	".doc":   "application/msword",
	".docx":  "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx":  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// textualFamilies override a non-text MIME type
var textualFamilies = []string{
	"javascript", "ecmascript", "json", "xml", "sql", "toml", "yaml",
	"x-sh", "x-csh", "x-python", "x-perl", "x-ruby", "php",
}

// MIMEType returns the table entry for the extension of path, or ""
func MIMEType(path string) string {
	return mimeTypes[strings.ToLower(filepath.Ext(path))]
}

// ByExtension classifies from the extension alone. ok is false when the
// content has to be sniffed.
func ByExtension(path string) (kind snapshot.Kind, ok bool) {
	mime := MIMEType(path)
	if mime == "" {
		return snapshot.KindText, false
	}
	for _, family := range textualFamilies {
		if strings.Contains(mime, family) {
			return snapshot.KindText, true
		}
	}
	if !strings.HasPrefix(mime, "text/") {
		return snapshot.KindBinary, true
	}
	return snapshot.KindText, false
}

// Sniff reports Binary iff a NUL byte occurs within the first SniffSize bytes
func Sniff(prefix []byte) snapshot.Kind {
	if len(prefix) > SniffSize {
		prefix = prefix[:SniffSize]
	}
	if bytes.IndexByte(prefix, 0) >= 0 {
		return snapshot.KindBinary
	}
	return snapshot.KindText
}

// Classify is the pure decision: extension table first, then the NUL sniff
func Classify(path string, prefix []byte) snapshot.Kind {
	if kind, ok := ByExtension(path); ok {
		return kind
	}
	return Sniff(prefix)
}

// File classifies a file on disk. Any read failure classifies as Binary.
func File(path string) snapshot.Kind {
	if kind, ok := ByExtension(path); ok {
		return kind
	}

	f, err := os.Open(path)
	if err != nil {
		return snapshot.KindBinary
	}
	defer f.Close()

	buf := make([]byte, SniffSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return snapshot.KindBinary
	}
	return Sniff(buf[:n])
}
