// Package editor runs the modal diagram editor: it seeds the dialog with the
// stored scene, waits for the user, and persists the result through the codec.
package editor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-excalidraw/internal/logging"
	"github.com/goliatone/go-excalidraw/pkg/interfaces"
)

// ErrDialogClosed is returned when the dialog is dismissed without saving.
var ErrDialogClosed = errors.New("editor: dialog closed")

// DefaultAssetsURL is the editor frame location.
const DefaultAssetsURL = "/assets/local-excalidraw/index.html"

// Codec is the subset of the resource codec the editor needs.
type Codec interface {
	ReadScene(ctx context.Context, svgID string) (string, error)
	UpdatePair(ctx context.Context, svgID, sceneJSON, svgMarkup string) error
	NewDiagram(ctx context.Context, sceneJSON, svgMarkup string) (string, error)
}

// Service opens diagrams for editing.
type Service interface {
	// Open edits an existing diagram and returns its svg id. A dismissed
	// dialog yields the same id together with ErrDialogClosed.
	Open(ctx context.Context, svgID string) (string, error)
	// Insert creates a diagram and inserts its reference into the workspace.
	Insert(ctx context.Context) (string, error)
}

// ServiceOption configures the editor.
type ServiceOption func(*service)

// WithAssetsURL overrides DefaultAssetsURL.
func WithAssetsURL(url string) ServiceOption {
	return func(s *service) {
		if url != "" {
			s.assetsURL = url
		}
	}
}

// WithLogger sets the editor logger.
func WithLogger(logger interfaces.Logger) ServiceOption {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTimeout bounds how long a dialog may stay open. Zero waits forever.
func WithTimeout(timeout time.Duration) ServiceOption {
	return func(s *service) {
		s.timeout = timeout
	}
}

// WithReference overrides how an inserted diagram is referenced.
func WithReference(fn func(svgID string) string) ServiceOption {
	return func(s *service) {
		if fn != nil {
			s.reference = fn
		}
	}
}

// WithDialogIDs overrides the dialog id generator.
func WithDialogIDs(fn func() string) ServiceOption {
	return func(s *service) {
		if fn != nil {
			s.dialogID = fn
		}
	}
}

type service struct {
	codec     Codec
	dialogs   interfaces.DialogHost
	workspace interfaces.Workspace
	assetsURL string
	timeout   time.Duration
	logger    interfaces.Logger
	reference func(string) string
	dialogID  func() string
}

// NewService wires the editor. workspace may be nil when Insert is unused.
func NewService(codec Codec, dialogs interfaces.DialogHost, workspace interfaces.Workspace, opts ...ServiceOption) Service {
	s := &service{
		codec:     codec,
		dialogs:   dialogs,
		workspace: workspace,
		assetsURL: DefaultAssetsURL,
		logger:    logging.NoOp(),
		reference: func(id string) string { return "![excalidraw.svg](:/" + id + ")" },
		dialogID:  func() string { return DialogIDPrefix + uuid.NewString() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *service) Open(ctx context.Context, svgID string) (string, error) {
	logger := logging.WithResourceContext(s.logger, svgID, "", "edit")

	scene, err := s.codec.ReadScene(ctx, svgID)
	if err != nil {
		logger.Error("editor.scene.read_failed", "error", err)
		return "", err
	}

	result, err := s.run(ctx, scene)
	if err != nil {
		if errors.Is(err, ErrDialogClosed) {
			logger.Debug("editor.dialog.closed")
			return svgID, err
		}
		logger.Error("editor.dialog.failed", "error", err)
		return "", err
	}

	if err := s.codec.UpdatePair(ctx, svgID, result.scene, result.svg); err != nil {
		return "", err
	}
	logger.Info("editor.diagram.saved")
	return svgID, nil
}

func (s *service) Insert(ctx context.Context) (string, error) {
	if s.workspace == nil {
		return "", errors.New("editor: no workspace to insert into")
	}

	result, err := s.run(ctx, EmptyScene)
	if err != nil {
		return "", err
	}

	svgID, err := s.codec.NewDiagram(ctx, result.scene, result.svg)
	if err != nil {
		return "", err
	}
	if err := s.workspace.InsertText(ctx, s.reference(svgID)); err != nil {
		s.logger.Error("editor.insert.failed", "resource_id", svgID, "error", err)
		return svgID, fmt.Errorf("editor: insert reference: %w", err)
	}
	s.logger.Info("editor.diagram.inserted", "resource_id", svgID)
	return svgID, nil
}

type saved struct {
	scene string
	svg   string
}

func (s *service) run(ctx context.Context, scene string) (saved, error) {
	req, err := BuildDialog(s.dialogID(), scene, s.assetsURL)
	if err != nil {
		return saved{}, fmt.Errorf("editor: build dialog: %w", err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err := s.dialogs.Open(ctx, req)
	if err != nil {
		return saved{}, fmt.Errorf("editor: open dialog: %w", err)
	}
	if result.ButtonID != ButtonSave {
		return saved{}, ErrDialogClosed
	}

	out := saved{
		scene: result.Field(FormName, FieldScene),
		svg:   result.Field(FormName, FieldSVG),
	}
	// the frame fills the preview on export; without it there is nothing to store
	if out.svg == "" {
		return saved{}, ErrDialogClosed
	}
	if out.scene == "" {
		out.scene = scene
	}
	return out, nil
}
