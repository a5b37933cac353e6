package resource

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lecternhq/lectern/internal/dom"
	"github.com/lecternhq/lectern/internal/selector"
)

func TestForFileDispatch(t *testing.T) {
	tests := []struct {
		href string
		want string
	}{
		{"ch1.xhtml", "*resource.HTMLLoader"},
		{"notes.md", "*resource.MarkdownLoader"},
		{"plain.txt", "*resource.TextLoader"},
		{"scan.pdf", "*resource.PDFLoader"},
		{"report.docx", "*resource.DOCXLoader"},
	}
	for _, tc := range tests {
		l, err := ForFile(tc.href)
		if err != nil {
			t.Errorf("%s: %v", tc.href, err)
			continue
		}
		if got := fmt.Sprintf("%T", l); got != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.href, tc.want, got)
		}
	}

	if _, err := ForFile("archive.zip"); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestHTMLLoader(t *testing.T) {
	src := `<html><body><p id="p1">Hello world</p></body></html>`
	doc, err := (&HTMLLoader{}).Load(strings.NewReader(src), "ch1.xhtml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Href != "ch1.xhtml" || doc.MediaType != "text/html" {
		t.Errorf("metadata: %+v", doc)
	}
	p := selector.Query(doc.Root, "#p1")
	if p == nil || dom.TextContent(p) != "Hello world" {
		t.Error("parsed tree does not contain the paragraph")
	}
	if len(doc.Fingerprint) != 64 {
		t.Errorf("fingerprint length: %d", len(doc.Fingerprint))
	}
}

func TestMarkdownLoader(t *testing.T) {
	src := "# Title\n\nFirst paragraph.\n\nSecond *emphasized* paragraph.\n"
	doc, err := (&MarkdownLoader{}).Load(strings.NewReader(src), "notes.md")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if h := selector.Query(doc.Root, "h1"); h == nil || dom.TextContent(h) != "Title" {
		t.Error("heading missing from rendered tree")
	}
	paras := selector.QueryAll(doc.Root, "p")
	if len(paras) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(paras))
	}
	if dom.TextContent(paras[1]) != "Second emphasized paragraph." {
		t.Errorf("second paragraph: %q", dom.TextContent(paras[1]))
	}
}

func TestTextLoader(t *testing.T) {
	src := "First block.\n\nSecond block\nwith a <tag> in it.\n\n\n"
	doc, err := (&TextLoader{}).Load(strings.NewReader(src), "plain.txt")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	paras := selector.QueryAll(doc.Root, "p")
	if len(paras) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(paras))
	}
	// Markup in the source is content, not structure.
	if got := dom.TextContent(paras[1]); got != "Second block\nwith a <tag> in it." {
		t.Errorf("second paragraph: %q", got)
	}
}

func TestFingerprintTracksContent(t *testing.T) {
	a := Fingerprint([]byte("alpha"))
	b := Fingerprint([]byte("alpha"))
	c := Fingerprint([]byte("beta"))
	if a != b {
		t.Error("fingerprint must be deterministic")
	}
	if a == c {
		t.Error("different content must fingerprint differently")
	}
}

func TestFetchDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/book/ch1.html" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`<p id="p1">fetched</p>`))
	}))
	defer srv.Close()

	f := NewFetcher()
	doc, err := f.FetchDocument(context.Background(), srv.URL+"/book/ch1.html")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if p := selector.Query(doc.Root, "#p1"); p == nil || dom.TextContent(p) != "fetched" {
		t.Error("fetched document not parsed")
	}

	if _, err := f.FetchDocument(context.Background(), srv.URL+"/missing.html"); err == nil {
		t.Error("expected error for 404")
	}
}
