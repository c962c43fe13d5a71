package validation

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	ErrSceneDecode     = errors.New("scene payload is not valid json")
	ErrSceneValidation = errors.New("scene validation failed")
)

const sceneSchemaURL = "excalidraw-scene.json"

//go:embed schemas/scene.json
var sceneSchema []byte

// ValidationIssue is one schema violation at a JSON pointer into the scene.
type ValidationIssue struct {
	Location string
	Message  string
}

func (i ValidationIssue) String() string {
	loc := "#" + strings.TrimPrefix(strings.TrimSpace(i.Location), "#")
	if i.Message == "" {
		return loc
	}
	return loc + ": " + i.Message
}

// maxReportedIssues caps the message length for scenes with many bad elements.
const maxReportedIssues = 3

// SceneValidationError lists the violations found in one scene.
type SceneValidationError struct {
	Issues []ValidationIssue
	Cause  error
}

func (e *SceneValidationError) Error() string {
	switch {
	case len(e.Issues) > 0:
	case e.Cause != nil:
		return e.Cause.Error()
	default:
		return ErrSceneValidation.Error()
	}
	shown := e.Issues[:min(len(e.Issues), maxReportedIssues)]
	parts := make([]string, 0, len(shown)+1)
	for _, issue := range shown {
		parts = append(parts, issue.String())
	}
	if extra := len(e.Issues) - len(shown); extra > 0 {
		parts = append(parts, fmt.Sprintf("and %d more", extra))
	}
	return strings.Join(parts, "; ")
}

func (e *SceneValidationError) Unwrap() error {
	return ErrSceneValidation
}

// Issues extracts violations from err. Errors that carry none yield a single
// issue holding the error text.
func Issues(err error) []ValidationIssue {
	if err == nil {
		return nil
	}
	var sceneErr *SceneValidationError
	if errors.As(err, &sceneErr) {
		return sceneErr.Issues
	}
	var schemaErr *jsonschema.ValidationError
	if errors.As(err, &schemaErr) {
		return leafIssues(schemaErr)
	}
	return []ValidationIssue{{Message: err.Error()}}
}

// SceneValidator checks serialized scenes against the embedded scene schema.
// The schema is permissive: an empty object is a valid, blank scene.
type SceneValidator struct {
	schema *jsonschema.Schema
}

// NewSceneValidator compiles the embedded scene schema.
func NewSceneValidator() (*SceneValidator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(sceneSchemaURL, bytes.NewReader(sceneSchema)); err != nil {
		return nil, fmt.Errorf("validation: add scene schema: %w", err)
	}
	schema, err := compiler.Compile(sceneSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("validation: compile scene schema: %w", err)
	}
	return &SceneValidator{schema: schema}, nil
}

// Validate decodes raw and validates it.
func (v *SceneValidator) Validate(raw []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var payload any
	if err := decoder.Decode(&payload); err != nil {
		return fmt.Errorf("%w: %v", ErrSceneDecode, err)
	}
	if err := v.schema.Validate(payload); err != nil {
		return &SceneValidationError{Issues: Issues(err), Cause: err}
	}
	return nil
}

// leafIssues flattens the cause tree; only leaves name a concrete violation.
func leafIssues(err *jsonschema.ValidationError) []ValidationIssue {
	if err == nil {
		return nil
	}
	if len(err.Causes) == 0 {
		return []ValidationIssue{{
			Location: strings.TrimSpace(err.InstanceLocation),
			Message:  strings.TrimSpace(err.Message),
		}}
	}
	var out []ValidationIssue
	for _, cause := range err.Causes {
		out = append(out, leafIssues(cause)...)
	}
	return out
}
