// Package wsbridge carries bridge messages and editor dialogs over a
// websocket, for views served by the HTTP host.
package wsbridge

import (
	"github.com/goliatone/go-excalidraw/pkg/interfaces"
)

// Frame types.
const (
	FrameMessage         = "message"
	FrameReply           = "reply"
	FrameDialog          = "dialog"
	FrameDialogResult    = "dialog_result"
	FrameResourceChanged = "resource_changed"
	FrameDocumentChanged = "document_changed"
)

// Frame is the single JSON envelope exchanged in both directions.
type Frame struct {
	Type       string                    `json:"type"`
	ID         string                    `json:"id,omitempty"`
	Channel    string                    `json:"channel,omitempty"`
	Message    string                    `json:"message,omitempty"`
	Reply      *string                   `json:"reply,omitempty"`
	Error      string                    `json:"error,omitempty"`
	ResourceID string                    `json:"resource_id,omitempty"`
	DocumentID string                    `json:"document_id,omitempty"`
	Dialog     *interfaces.DialogRequest `json:"dialog,omitempty"`
	Result     *interfaces.DialogResult  `json:"result,omitempty"`
}

func replyFrame(id, reply string, err error) Frame {
	f := Frame{Type: FrameReply, ID: id}
	if err != nil {
		f.Error = err.Error()
		return f
	}
	if reply != "" {
		f.Reply = &reply
	}
	return f
}
