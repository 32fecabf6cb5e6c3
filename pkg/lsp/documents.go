package lsp

import (
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// normalizeURI gives every spelling of a file URI the same store key.
func normalizeURI(u protocol.DocumentURI) string {
	s := string(u)
	s = strings.TrimPrefix(s, "file://")
	s = strings.TrimPrefix(s, "file:")
	if unescaped, err := url.PathUnescape(s); err == nil {
		s = unescaped
	}
	return s
}

// Document is the editor's view of one open text document.
type Document struct {
	URI        protocol.DocumentURI
	LanguageID protocol.LanguageIdentifier
	Version    int32
	Content    string
}

// Path is the file system path of the document, or the raw URI for
// documents that do not live on disk.
func (d *Document) Path() string {
	if parsed, err := url.Parse(string(d.URI)); err == nil && parsed.Scheme == uri.FileScheme && parsed.Path != "" {
		return filepath.FromSlash(parsed.Path)
	}
	return filepath.ToSlash(string(d.URI))
}

// DocumentManager stores the open documents by normalized URI.
type DocumentManager struct {
	store *sync.Map // map[string]*Document
}

func NewDocumentManager() *DocumentManager {
	return &DocumentManager{
		store: &sync.Map{},
	}
}

func (m *DocumentManager) Get(u protocol.DocumentURI) (*Document, bool) {
	content, ok := m.store.Load(normalizeURI(u))
	if !ok {
		return nil, false
	}
	doc, ok := content.(*Document)
	return doc, ok
}

func (m *DocumentManager) Store(u protocol.DocumentURI, doc *Document) {
	m.store.Store(normalizeURI(u), doc)
}

func (m *DocumentManager) Delete(u protocol.DocumentURI) {
	m.store.Delete(normalizeURI(u))
}

func (m *DocumentManager) Len() int {
	n := 0
	m.store.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
