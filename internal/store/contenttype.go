package store

import (
	"path"
	"strings"
)

// srcSuffix marks a request for the literal text of a file: the suffix
// is stripped to locate the bytes and the response is labeled plain text.
const srcSuffix = ".src"

const (
	typeText   = "text/plain"
	typeHTML   = "text/html"
	typeBinary = "application/octet-stream"
)

// contentTypes is the fixed extension→label table. Anything not listed
// is served as plain text.
var contentTypes = map[string]string{
	".htm": typeHTML,
	".css": "text/css",
	".js":  "application/javascript",
	".png": "image/png",
	".gif": "image/gif",
	".jpg": "image/jpeg",
	".ico": "image/x-icon",
	".xml": "text/xml",
	".pdf": "application/pdf",
	".zip": "application/zip",
}

func typeForName(name string) string {
	if ctype, ok := contentTypes[strings.ToLower(path.Ext(name))]; ok {
		return ctype
	}
	return typeText
}
