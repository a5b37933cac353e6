package resource

import (
	"fmt"
	stdhtml "html"
	"io"
	"os"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// PDFLoader handles PDF resources. Each page becomes a section div with
// paragraph blocks, so page break markers and per-page navigation work.
type PDFLoader struct{}

func (l *PDFLoader) Load(r io.Reader, href string) (*Document, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so write to a temp file.
	tmp, err := os.CreateTemp("", "lectern-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	src, err := io.ReadAll(r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("read resource: %w", err)
	}
	if _, err := tmp.Write(src); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	pages, err := extractPDFPages(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	var sb strings.Builder
	for i, page := range pages {
		page = strings.TrimSpace(page)
		if page == "" {
			continue
		}
		fmt.Fprintf(&sb, `<div class="pdf-page" data-page="%d">`, i+1)
		sb.WriteString("\n")
		for _, block := range splitBlocks(page) {
			sb.WriteString("<p>")
			sb.WriteString(stdhtml.EscapeString(block))
			sb.WriteString("</p>\n")
		}
		sb.WriteString("</div>\n")
	}

	root, err := parseHTML(sb.String())
	if err != nil {
		return nil, err
	}
	return &Document{
		Href:        href,
		MediaType:   "application/pdf",
		Fingerprint: Fingerprint(src),
		Root:        root,
	}, nil
}

func extractPDFPages(path string) ([]string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pages []string
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}
