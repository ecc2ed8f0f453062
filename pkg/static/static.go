// Package static serves a tree of files verbatim.
//
// The whole tree is read into memory when it is loaded, so requests never
// touch the filesystem and a missing file is a map miss.
package static

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/meln5674/minimux"
)

// PathVar is the minimux path variable holding the requested asset path.
const PathVar = "path"

type asset struct {
	minimux.StaticBytes
	modTime time.Time
}

type Assets struct {
	files map[string]asset
	size  int64
}

// Load reads every regular file in fsys.
func Load(fsys fs.FS) (*Assets, error) {
	a := &Assets{files: make(map[string]asset)}
	err := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return err
		}
		var modTime time.Time
		if info, err := d.Info(); err == nil {
			modTime = info.ModTime()
		}
		a.files[name] = asset{
			StaticBytes: minimux.StaticBytes{
				Data:        data,
				ContentType: contentType(name, data),
			},
			modTime: modTime,
		}
		a.size += int64(len(data))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load static assets: %w", err)
	}
	return a, nil
}

func contentType(name string, data []byte) string {
	if typ := mime.TypeByExtension(path.Ext(name)); typ != "" {
		return typ
	}
	return mimetype.Detect(data).String()
}

// Lookup finds an asset by its slash-separated path, with or without a
// leading slash.
func (a *Assets) Lookup(name string) (minimux.StaticBytes, bool) {
	f, ok := a.lookup(name)
	return f.StaticBytes, ok
}

func (a *Assets) lookup(name string) (asset, bool) {
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	f, ok := a.files[name]
	return f, ok
}

// Len is the number of files loaded.
func (a *Assets) Len() int {
	return len(a.files)
}

// Size is the total number of bytes loaded.
func (a *Assets) Size() int64 {
	return a.size
}

// ServeAsset is a minimux handler. It expects the asset path in PathVar.
func (a *Assets) ServeAsset(ctx context.Context, w http.ResponseWriter, req *http.Request, pathVars map[string]string, _ error) error {
	name := pathVars[PathVar]
	f, ok := a.lookup(name)
	if !ok {
		http.NotFound(w, req)
		return nil
	}
	w.Header().Set("Content-Type", f.ContentType)
	http.ServeContent(w, req, name, f.modTime, bytes.NewReader(f.Data))
	return nil
}
