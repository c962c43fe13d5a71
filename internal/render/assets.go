package render

import (
	"embed"
	"encoding/base64"
	"io/fs"
	"sync"
)

//go:embed assets/controller.js assets/excalidraw.css assets/logo.png
var assetFS embed.FS

// Assets exposes controller.js, excalidraw.css and logo.png.
func Assets() fs.FS {
	sub, err := fs.Sub(assetFS, "assets")
	if err != nil {
		panic(err)
	}
	return sub
}

var logoOnce = sync.OnceValue(func() string {
	data, err := assetFS.ReadFile("assets/logo.png")
	if err != nil {
		panic(err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
})

// LogoDataURI is the placeholder image shown for v1 diagrams.
func LogoDataURI() string {
	return logoOnce()
}
