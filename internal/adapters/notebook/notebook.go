// Package notebook serves a directory of markdown notes as the host document
// store. Note ids come from front matter when present and are otherwise
// derived from the note's path.
package notebook

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-excalidraw/internal/identity"
	"github.com/goliatone/go-excalidraw/internal/logging"
	"github.com/goliatone/go-excalidraw/internal/markdown"
	"github.com/goliatone/go-excalidraw/pkg/interfaces"
)

// DefaultPattern selects note files.
const DefaultPattern = "*.md"

// Config configures a Notebook.
type Config struct {
	// Root is the directory holding the notes.
	Root string
	// Pattern limits discovered files (defaults to "*.md").
	Pattern string
	// Recursive controls whether sub-directories are traversed.
	Recursive bool
}

// Entry is a discovered note.
type Entry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Path  string `json:"path"`
}

// Notebook implements DocumentStore, DocumentReader and Workspace over a
// directory. The current document is the one last selected.
type Notebook struct {
	root      string
	pattern   string
	recursive bool
	logger    interfaces.Logger

	mu      sync.Mutex
	current string
	index   map[string]string // id -> relative path
}

var (
	_ interfaces.DocumentStore  = (*Notebook)(nil)
	_ interfaces.DocumentReader = (*Notebook)(nil)
	_ interfaces.Workspace      = (*Notebook)(nil)
)

// Option configures a Notebook.
type Option func(*Notebook)

// WithLogger sets the notebook logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(n *Notebook) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// New opens a notebook rooted at cfg.Root.
func New(cfg Config, opts ...Option) (*Notebook, error) {
	root := filepath.Clean(cfg.Root)
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("notebook: open %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("notebook: %s is not a directory", root)
	}
	pattern := cfg.Pattern
	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultPattern
	}
	n := &Notebook{
		root:      root,
		pattern:   pattern,
		recursive: cfg.Recursive,
		logger:    logging.NoOp(),
		index:     map[string]string{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}
	return n, nil
}

// List discovers notes and refreshes the id index.
func (n *Notebook) List(ctx context.Context) ([]Entry, error) {
	fsys := os.DirFS(n.root)
	var entries []Entry

	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != "." && !n.recursive {
				return fs.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if ok, _ := filepath.Match(n.pattern, filepath.Base(path)); !ok {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("notebook: read %s: %w", path, err)
		}
		src, err := markdown.ParseFrontMatter(data)
		if err != nil {
			n.logger.Warn("notebook.frontmatter.invalid", "path", path, "error", err)
			src = markdown.Source{Body: data}
		}
		entries = append(entries, Entry{
			ID:    noteID(path, src.Meta),
			Title: noteTitle(path, src.Meta),
			Path:  path,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	n.mu.Lock()
	n.index = make(map[string]string, len(entries))
	for _, e := range entries {
		n.index[e.ID] = e.Path
	}
	n.mu.Unlock()
	return entries, nil
}

// Select makes id the current document.
func (n *Notebook) Select(ctx context.Context, id string) error {
	if _, err := n.resolve(ctx, id); err != nil {
		return err
	}
	n.mu.Lock()
	n.current = id
	n.mu.Unlock()
	return nil
}

// Document loads a note by id.
func (n *Notebook) Document(ctx context.Context, id string) (*interfaces.Document, error) {
	rel, err := n.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	src, _, err := n.read(rel)
	if err != nil {
		return nil, err
	}
	return &interfaces.Document{ID: id, Title: noteTitle(rel, src.Meta), Body: string(src.Body)}, nil
}

// Source returns the raw file of a note, front matter included.
func (n *Notebook) Source(ctx context.Context, id string) ([]byte, error) {
	rel, err := n.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	_, raw, err := n.read(rel)
	return raw, err
}

// CurrentDocument returns the selected note.
func (n *Notebook) CurrentDocument(ctx context.Context) (*interfaces.Document, error) {
	n.mu.Lock()
	id := n.current
	n.mu.Unlock()
	if id == "" {
		return nil, fmt.Errorf("%w: no note selected", interfaces.ErrDocumentNotFound)
	}
	return n.Document(ctx, id)
}

// ReplaceDocumentBody rewrites a note body, keeping its front matter.
func (n *Notebook) ReplaceDocumentBody(ctx context.Context, id, body string) error {
	rel, err := n.resolve(ctx, id)
	if err != nil {
		return err
	}
	src, _, err := n.read(rel)
	if err != nil {
		return err
	}
	if err := n.write(rel, src.Compose([]byte(body))); err != nil {
		return err
	}
	n.logger.Debug("notebook.document.replaced", "document_id", id, "path", rel)
	return nil
}

// InsertText appends text to the current note on its own line. Files have
// no cursor, so the end of the note stands in for it.
func (n *Notebook) InsertText(ctx context.Context, text string) error {
	doc, err := n.CurrentDocument(ctx)
	if err != nil {
		return err
	}
	body := doc.Body
	if body != "" && !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	return n.ReplaceDocumentBody(ctx, doc.ID, body+text+"\n")
}

func (n *Notebook) resolve(ctx context.Context, id string) (string, error) {
	n.mu.Lock()
	rel, ok := n.index[id]
	n.mu.Unlock()
	if ok {
		return rel, nil
	}
	if _, err := n.List(ctx); err != nil {
		return "", err
	}
	n.mu.Lock()
	rel, ok = n.index[id]
	n.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", interfaces.ErrDocumentNotFound, id)
	}
	return rel, nil
}

func (n *Notebook) read(rel string) (markdown.Source, []byte, error) {
	raw, err := os.ReadFile(filepath.Join(n.root, filepath.FromSlash(rel)))
	if err != nil {
		return markdown.Source{}, nil, fmt.Errorf("notebook: read %s: %w", rel, err)
	}
	src, err := markdown.ParseFrontMatter(raw)
	if err != nil {
		return markdown.Source{Body: raw}, raw, nil
	}
	return src, raw, nil
}

func (n *Notebook) write(rel string, data []byte) error {
	path := filepath.Join(n.root, filepath.FromSlash(rel))
	tmp, err := os.CreateTemp(filepath.Dir(path), ".note-*")
	if err != nil {
		return fmt.Errorf("notebook: write %s: %w", rel, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("notebook: write %s: %w", rel, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("notebook: write %s: %w", rel, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("notebook: write %s: %w", rel, err)
	}
	return nil
}

func noteID(rel string, meta markdown.FrontMatter) string {
	if id := strings.TrimSpace(meta.ID); identity.IsResourceID(id) {
		return id
	}
	return identity.DocumentID(rel)
}

func noteTitle(rel string, meta markdown.FrontMatter) string {
	if meta.Title != "" {
		return meta.Title
	}
	return strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
}
