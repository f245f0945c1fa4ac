package server

import (
	"embed"
	"io/fs"
)

// rawStaticFS holds the embedded assets named by spec §4.9's "GET
// /favicon.ico, GET /static/* — embedded static assets". No pack library
// offers embedded HTTP asset serving; stdlib embed+http.FileServer is the
// idiomatic Go way regardless of corpus, so this stays on the standard
// library by design.
//
//go:embed static/favicon.svg static/style.css
var rawStaticFS embed.FS

// staticFS is rawStaticFS rooted at its "static" subdirectory, so URLs like
// /static/style.css map directly onto the embedded file names.
var staticFS = mustSub(rawStaticFS, "static")

func mustSub(f embed.FS, dir string) fs.FS {
	sub, err := fs.Sub(f, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
