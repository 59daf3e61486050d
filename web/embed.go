// Package web holds the browser test console served by the relay.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var static embed.FS

// StaticFS returns the console assets rooted at the static directory.
func StaticFS() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		// "static" is embedded above; Sub only fails on an invalid path.
		panic(err)
	}
	return sub
}
