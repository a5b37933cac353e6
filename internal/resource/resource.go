// Package resource loads publication resources and converts each supported
// format into a reading-ready HTML document tree.
package resource

import (
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/net/html"
)

// Document is one loaded resource: the parsed tree the reading session
// operates on, plus identity metadata.
type Document struct {
	Href        string
	MediaType   string
	Fingerprint string // blake3 of the raw bytes; changes when content changes
	Root        *html.Node
}

// Loader converts raw resource bytes into a Document.
type Loader interface {
	Load(r io.Reader, href string) (*Document, error)
}

// SupportedExtensions lists file extensions the engine can load.
var SupportedExtensions = map[string]bool{
	".html":  true,
	".htm":   true,
	".xhtml": true,
	".md":    true,
	".txt":   true,
	".pdf":   true,
	".docx":  true,
}

// ForFile returns the appropriate loader for a resource href.
func ForFile(href string) (Loader, error) {
	ext := strings.ToLower(filepath.Ext(href))
	switch ext {
	case ".html", ".htm", ".xhtml":
		return &HTMLLoader{}, nil
	case ".md", ".markdown":
		return &MarkdownLoader{}, nil
	case ".txt":
		return &TextLoader{}, nil
	case ".pdf":
		return &PDFLoader{}, nil
	case ".docx":
		return &DOCXLoader{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a resource href is loadable.
func IsSupportedExtension(href string) bool {
	ext := strings.ToLower(filepath.Ext(href))
	return SupportedExtensions[ext]
}

// Fingerprint hashes raw resource bytes. Sessions compare fingerprints to
// detect that a resource changed underneath saved annotations.
func Fingerprint(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// parseHTML parses serialized HTML into a document tree.
func parseHTML(src string) (*html.Node, error) {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return root, nil
}
