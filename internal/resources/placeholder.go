package resources

import _ "embed"

// PlaceholderSVG is stored as the preview of diagrams migrated from the v1
// format. It asks the user to open and save the diagram once so a real
// preview gets exported.
//
//go:embed assets/placeholder.svg
var PlaceholderSVG string
