package constants

import "strings"

// AllowedExtensions holds the file extensions the pipeline will pick up from
// a country's document directory.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsPDF reports whether the extension names a document the pipeline accepts.
func IsPDF(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}
