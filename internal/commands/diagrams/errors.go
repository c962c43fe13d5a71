package diagramscmd

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-excalidraw/internal/bridge"
	"github.com/goliatone/go-excalidraw/internal/editor"
	"github.com/goliatone/go-excalidraw/internal/resources"
)

// ErrMigrationDisabled is returned when conversions are switched off.
var ErrMigrationDisabled = bridge.ErrMigrationDisabled

const (
	codeNotFound          = "EXCALIDRAW_NOT_FOUND"
	codeBrokenLink        = "EXCALIDRAW_BROKEN_LINK"
	codeStagingIO         = "EXCALIDRAW_STAGING_IO"
	codeAttachmentWrite   = "EXCALIDRAW_ATTACHMENT_WRITE"
	codeBridgeUnavailable = "EXCALIDRAW_BRIDGE_UNAVAILABLE"
	codeMalformedMessage  = "EXCALIDRAW_MALFORMED_MESSAGE"
	codeDialogClosed      = "EXCALIDRAW_DIALOG_CLOSED"
	codeMigrationDisabled = "EXCALIDRAW_MIGRATION_DISABLED"
)

var errorTable = []struct {
	target   error
	category goerrors.Category
	message  string
	code     string
}{
	{resources.ErrBrokenLink, goerrors.CategoryNotFound, "diagram link broken", codeBrokenLink},
	{resources.ErrNotFound, goerrors.CategoryNotFound, "diagram attachment not found", codeNotFound},
	{resources.ErrStagingIO, goerrors.CategoryExternal, "diagram staging failed", codeStagingIO},
	{resources.ErrAttachmentWrite, goerrors.CategoryExternal, "diagram attachment write failed", codeAttachmentWrite},
	{bridge.ErrBridgeUnavailable, goerrors.CategoryExternal, "bridge unavailable", codeBridgeUnavailable},
	{bridge.ErrMalformedMessage, goerrors.CategoryValidation, "bridge message malformed", codeMalformedMessage},
	{editor.ErrDialogClosed, goerrors.CategoryCommand, "editor closed without saving", codeDialogClosed},
	{ErrMigrationDisabled, goerrors.CategoryCommand, "migration disabled", codeMigrationDisabled},
}

// mapError attaches a category and text code to known domain errors. Unknown
// errors are left for the shared handler to wrap.
func mapError(err error) error {
	if err == nil || goerrors.IsWrapped(err) {
		return err
	}
	for _, entry := range errorTable {
		if errors.Is(err, entry.target) {
			return goerrors.Wrap(err, entry.category, entry.message).WithTextCode(entry.code)
		}
	}
	return err
}
