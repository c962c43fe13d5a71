package interfaces

import "context"

// DialogButton is rendered in the dialog footer.
type DialogButton struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// DialogRequest describes a modal dialog to be shown by the host.
type DialogRequest struct {
	ID      string         `json:"id"`
	HTML    string         `json:"html"`
	Buttons []DialogButton `json:"buttons"`
}

// DialogResult reports the button the user chose and the values of every
// form in the dialog, keyed by form name then field name.
type DialogResult struct {
	ButtonID string                       `json:"id"`
	Forms    map[string]map[string]string `json:"form_data,omitempty"`
}

// Field returns a single form value, or "" when absent.
func (r DialogResult) Field(form, name string) string {
	if r.Forms == nil {
		return ""
	}
	return r.Forms[form][name]
}

// DialogHost opens modal dialogs. Open blocks until the dialog is closed.
type DialogHost interface {
	Open(ctx context.Context, req DialogRequest) (DialogResult, error)
}
