package resource

import (
	"fmt"
	"io"
)

// HTMLLoader handles .html/.htm/.xhtml resources: the native format, parsed
// as-is.
type HTMLLoader struct{}

func (l *HTMLLoader) Load(r io.Reader, href string) (*Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read resource: %w", err)
	}
	root, err := parseHTML(string(src))
	if err != nil {
		return nil, err
	}
	return &Document{
		Href:        href,
		MediaType:   "text/html",
		Fingerprint: Fingerprint(src),
		Root:        root,
	}, nil
}
