package resource

import (
	"bytes"
	"fmt"
	stdhtml "html"
	"io"
	"strings"

	"github.com/fumiama/go-docx"
)

// DOCXLoader handles .docx resources: heading-styled paragraphs become
// h1..h6, everything else becomes p.
type DOCXLoader struct{}

func (l *DOCXLoader) Load(r io.Reader, href string) (*Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read resource: %w", err)
	}

	doc, err := docx.Parse(bytes.NewReader(src), int64(len(src)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	var sb strings.Builder
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := paragraphText(para)
		if text == "" {
			continue
		}
		if level := headingLevel(para); level > 0 {
			fmt.Fprintf(&sb, "<h%d>%s</h%d>\n", level, stdhtml.EscapeString(text), level)
		} else {
			fmt.Fprintf(&sb, "<p>%s</p>\n", stdhtml.EscapeString(text))
		}
	}

	root, err := parseHTML(sb.String())
	if err != nil {
		return nil, err
	}
	return &Document{
		Href:        href,
		MediaType:   "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		Fingerprint: Fingerprint(src),
		Root:        root,
	}, nil
}

func headingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	for level := 1; level <= 6; level++ {
		if style == fmt.Sprintf("heading%d", level) {
			return level
		}
	}
	return 0
}

func paragraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
