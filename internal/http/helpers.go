package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-excalidraw/internal/bridge"
	"github.com/goliatone/go-excalidraw/internal/editor"
	"github.com/goliatone/go-excalidraw/internal/resources"
	"github.com/goliatone/go-excalidraw/pkg/interfaces"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func joinPath(base, suffix string) string {
	trimmedBase := strings.TrimSpace(base)
	trimmedSuffix := strings.TrimSpace(suffix)
	if trimmedBase == "" || trimmedBase == "/" {
		if trimmedSuffix == "" {
			return "/"
		}
		return "/" + strings.Trim(trimmedSuffix, "/")
	}
	baseClean := "/" + strings.Trim(trimmedBase, "/")
	if trimmedSuffix == "" {
		return baseClean
	}
	return baseClean + "/" + strings.Trim(trimmedSuffix, "/")
}

func decodeJSON(r *http.Request, target any) error {
	if r == nil || r.Body == nil {
		return io.EOF
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	status, payload := mapError(err)
	writeJSON(w, status, payload)
}

type errorMapping struct {
	status int
	code   string
	match  func(error) bool
}

func is(targets ...error) func(error) bool {
	return func(err error) bool {
		for _, target := range targets {
			if errors.Is(err, target) {
				return true
			}
		}
		return false
	}
}

func category(cat goerrors.Category) func(error) bool {
	return func(err error) bool { return goerrors.IsCategory(err, cat) }
}

// errorMappings is checked in order. Sentinels come first so command errors
// wrapped by go-errors fall through to their category.
var errorMappings = []errorMapping{
	{http.StatusNotFound, "not_found", is(interfaces.ErrDocumentNotFound, interfaces.ErrAttachmentNotFound, resources.ErrNotFound, resources.ErrBrokenLink)},
	{http.StatusBadRequest, "bad_request", is(bridge.ErrMalformedMessage)},
	{http.StatusServiceUnavailable, "unavailable", is(bridge.ErrBridgeUnavailable)},
	{http.StatusConflict, "dialog_closed", is(editor.ErrDialogClosed)},
	{http.StatusConflict, "migration_disabled", is(bridge.ErrMigrationDisabled)},
	{http.StatusNotFound, "not_found", category(goerrors.CategoryNotFound)},
	{http.StatusBadRequest, "bad_request", category(goerrors.CategoryValidation)},
	{http.StatusBadGateway, "upstream_error", category(goerrors.CategoryExternal)},
	{http.StatusConflict, "rejected", category(goerrors.CategoryCommand)},
}

func mapError(err error) (int, errorResponse) {
	if err == nil {
		return http.StatusInternalServerError, errorResponse{Error: "unknown_error"}
	}
	for _, m := range errorMappings {
		if m.match(err) {
			return m.status, errorResponse{Error: m.code, Message: err.Error()}
		}
	}
	return http.StatusInternalServerError, errorResponse{Error: "internal_error", Message: err.Error()}
}
