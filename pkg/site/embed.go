package site

import (
	"embed"
	"io/fs"
)

var (
	//go:embed views
	views embed.FS

	//go:embed public
	public embed.FS
)

// Views returns the embedded template tree, rooted at views/.
func Views() fs.FS {
	return mustSub(views, "views")
}

// Public returns the embedded static asset tree, rooted at public/.
func Public() fs.FS {
	return mustSub(public, "public")
}

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic("embedded " + dir + " tree is missing: " + err.Error())
	}
	return sub
}
