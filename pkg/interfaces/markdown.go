package interfaces

// ImageToken is the markdown image being rendered.
type ImageToken struct {
	Alt   string
	Src   string
	Title string
	Attrs map[string]string
}

// ImageRenderHook intercepts the HTML produced for an image token. Returning
// defaultHTML unchanged leaves the token untouched.
type ImageRenderHook interface {
	RewriteImage(token ImageToken, defaultHTML string) string
}
