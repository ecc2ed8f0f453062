// Package render turns a views tree into named HTML pages.
//
// A views tree holds layout.html, which must define a "layout" template,
// optional shared templates under partials/, and one file per page. Each
// page is executed through "layout", so pages only define the blocks the
// layout leaves open.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
)

const (
	layoutFile  = "layout.html"
	layoutName  = "layout"
	partialsDir = "partials"
	pageExt     = ".html"
)

var ErrTemplateNotFound = errors.New("template not found")

// Context is the set of named values handed to a template.
type Context map[string]any

type Templates struct {
	pages map[string]*template.Template
}

// New parses every page in fsys. Parsing happens once, so a syntax error in
// any view fails here instead of at request time.
func New(fsys fs.FS) (*Templates, error) {
	partials, err := fs.Glob(fsys, path.Join(partialsDir, "*"+pageExt))
	if err != nil {
		return nil, fmt.Errorf("failed to list partials: %w", err)
	}
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to list views: %w", err)
	}

	t := &Templates{pages: make(map[string]*template.Template)}
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == layoutFile || path.Ext(entry.Name()) != pageExt {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), pageExt)
		page, err := parsePage(fsys, name, entry.Name(), partials)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		t.pages[name] = page
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return t, nil
}

func parsePage(fsys fs.FS, name, file string, partials []string) (*template.Template, error) {
	// Order matters: blocks in the layout hold defaults that the page must
	// be allowed to redefine.
	tmpl, err := template.New(name).ParseFS(fsys, layoutFile)
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout for %s: %w", name, err)
	}
	if len(partials) != 0 {
		tmpl, err = tmpl.ParseFS(fsys, partials...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse partials for %s: %w", name, err)
		}
	}
	tmpl, err = tmpl.ParseFS(fsys, file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", file, err)
	}
	if tmpl.Lookup(layoutName) == nil {
		return nil, fmt.Errorf("%s does not define %q", layoutFile, layoutName)
	}
	return tmpl, nil
}

// Render executes the named page with ctx and writes the result to w.
// Nothing is written if execution fails.
func (t *Templates) Render(w io.Writer, name string, ctx Context) error {
	page, ok := t.pages[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	var buf bytes.Buffer
	err := page.ExecuteTemplate(&buf, layoutName, ctx)
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	_, err = buf.WriteTo(w)
	return err
}

// Names lists the pages that can be rendered.
func (t *Templates) Names() []string {
	names := make([]string, 0, len(t.pages))
	for name := range t.pages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
