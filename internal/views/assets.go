package views

import (
	"embed"
	"io/fs"
)

//go:embed assets/*
var assetFiles embed.FS

// Assets exposes the stylesheet and browser script served under /assets/.
func Assets() fs.FS {
	sub, err := fs.Sub(assetFiles, "assets")
	if err != nil {
		panic(err)
	}
	return sub
}
