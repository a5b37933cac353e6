package resource

import (
	"bytes"
	"fmt"
	"io"

	"github.com/yuin/goldmark"
)

// MarkdownLoader handles Markdown resources using goldmark, rendering to
// HTML and parsing the result.
type MarkdownLoader struct{}

func (l *MarkdownLoader) Load(r io.Reader, href string) (*Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read resource: %w", err)
	}

	var buf bytes.Buffer
	if err := goldmark.Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("convert markdown: %w", err)
	}
	root, err := parseHTML(buf.String())
	if err != nil {
		return nil, err
	}
	return &Document{
		Href:        href,
		MediaType:   "text/markdown",
		Fingerprint: Fingerprint(src),
		Root:        root,
	}, nil
}
