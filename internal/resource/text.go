package resource

import (
	"fmt"
	stdhtml "html"
	"io"
	"strings"
)

// TextLoader handles plain text resources: blank-line separated blocks
// become paragraphs.
type TextLoader struct{}

func (l *TextLoader) Load(r io.Reader, href string) (*Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read resource: %w", err)
	}

	var sb strings.Builder
	for _, block := range splitBlocks(string(src)) {
		sb.WriteString("<p>")
		sb.WriteString(stdhtml.EscapeString(block))
		sb.WriteString("</p>\n")
	}
	root, err := parseHTML(sb.String())
	if err != nil {
		return nil, err
	}
	return &Document{
		Href:        href,
		MediaType:   "text/plain",
		Fingerprint: Fingerprint(src),
		Root:        root,
	}, nil
}

// splitBlocks splits text on blank lines, dropping empty blocks.
func splitBlocks(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	var blocks []string
	for _, block := range strings.Split(normalized, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			blocks = append(blocks, block)
		}
	}
	return blocks
}
