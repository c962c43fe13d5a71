package resources

import (
	"fmt"
	"strings"
)

const (
	jsonExt = ".json"
	svgExt  = ".svg"
)

// JSONTitle returns the title of the JSON attachment of a pair.
func JSONTitle(prefix, jsonID string) string {
	return prefix + jsonID + jsonExt
}

// SVGTitle returns the title of the SVG attachment of a pair. It embeds the
// JSON id, which is the only link from the SVG back to its sibling.
func SVGTitle(prefix, jsonID string) string {
	return prefix + jsonID + svgExt
}

// ParseSceneID extracts the JSON id from an SVG attachment title. The
// extension is cut at the last dot, then the prefix is removed. A title
// without the prefix or without an extension is a broken link.
func ParseSceneID(prefix, title string) (string, error) {
	dot := strings.LastIndex(title, ".")
	if dot <= 0 || dot == len(title)-1 {
		return "", fmt.Errorf("%w: title %q has no extension", ErrBrokenLink, title)
	}
	base := title[:dot]
	if !strings.HasPrefix(base, prefix) {
		return "", fmt.Errorf("%w: title %q lacks prefix %q", ErrBrokenLink, title, prefix)
	}
	id := base[len(prefix):]
	if id == "" {
		return "", fmt.Errorf("%w: title %q names no resource", ErrBrokenLink, title)
	}
	return id, nil
}
