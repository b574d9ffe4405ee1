// Package web embeds the browser front end so the binary serves it without
// any files next to it.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var content embed.FS

// Assets maps a public URL path onto a file inside the embedded tree.
var Assets = map[string]string{
	"/css/style.css": "css/style.css",
	"/js/main.js":    "js/main.js",
}

// FS returns the embedded static tree rooted at its top directory.
func FS() fs.FS {
	sub, err := fs.Sub(content, "static")
	if err != nil {
		// The embed directive guarantees the directory exists.
		panic(err)
	}
	return sub
}

// Index returns the HTML shell page.
func Index() []byte {
	b, err := fs.ReadFile(content, "static/index.html")
	if err != nil {
		panic(err)
	}
	return b
}
