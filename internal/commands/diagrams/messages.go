package diagramscmd

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	convertV1MessageType = "excalidraw.diagrams.convert_v1"
	editMessageType      = "excalidraw.diagrams.edit"
	insertMessageType    = "excalidraw.diagrams.insert"
)

var resourceIDPattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// ConvertV1Command migrates a v1 diagram and rewrites its references in the
// current document.
type ConvertV1Command struct {
	// JSONID is the v1 scene attachment id.
	JSONID string `json:"json_id"`
	// OnComplete receives the new svg id.
	OnComplete func(svgID string) `json:"-"`
}

// Type implements command.Message.
func (ConvertV1Command) Type() string { return convertV1MessageType }

// Validate ensures the id has the attachment id shape.
func (cmd ConvertV1Command) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.JSONID,
			validation.Required.ErrorObject(validation.NewError("excalidraw.diagrams.convert_v1.json_id_required", "json id is required")),
			validation.Match(resourceIDPattern).ErrorObject(validation.NewError("excalidraw.diagrams.convert_v1.json_id_invalid", "json id must be alphanumeric")),
		),
	)
}

// EditDiagramCommand opens the editor for an existing diagram.
type EditDiagramCommand struct {
	SVGID      string              `json:"svg_id"`
	OnComplete func(svgID string) `json:"-"`
}

// Type implements command.Message.
func (EditDiagramCommand) Type() string { return editMessageType }

// Validate ensures the id has the attachment id shape.
func (cmd EditDiagramCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.SVGID,
			validation.Required.ErrorObject(validation.NewError("excalidraw.diagrams.edit.svg_id_required", "svg id is required")),
			validation.Match(resourceIDPattern).ErrorObject(validation.NewError("excalidraw.diagrams.edit.svg_id_invalid", "svg id must be alphanumeric")),
		),
	)
}

// InsertDiagramCommand creates a diagram and inserts its reference at the
// workspace cursor.
type InsertDiagramCommand struct {
	OnComplete func(svgID string) `json:"-"`
}

// Type implements command.Message.
func (InsertDiagramCommand) Type() string { return insertMessageType }

// Validate implements command.Message.
func (InsertDiagramCommand) Validate() error { return nil }
