package static

import (
	"embed"
	"fmt"
	"io/fs"
)

// AssetsPath is the public URL prefix of the embedded assets.
const AssetsPath = "/assets"

//go:embed static/*
var StaticFS embed.FS

// Assets returns the embedded asset files rooted at the static directory.
func Assets() (fs.FS, error) {
	sub, err := fs.Sub(StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded assets: %w", err)
	}
	return sub, nil
}
