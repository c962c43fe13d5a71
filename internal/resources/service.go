package resources

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-excalidraw/internal/identity"
	"github.com/goliatone/go-excalidraw/internal/logging"
	"github.com/goliatone/go-excalidraw/pkg/interfaces"
)

// DefaultTitlePrefix is the prefix of every diagram attachment title.
const DefaultTitlePrefix = "excalidraw-"

// Stager writes payloads to files the attachment store can ingest.
type Stager interface {
	Write(name string, data []byte) (string, error)
	Remove(path string) error
}

// SceneChecker validates a serialized scene.
type SceneChecker interface {
	Validate(raw []byte) error
}

// Service maps logical diagrams onto their JSON and SVG attachments.
type Service interface {
	// CreatePair persists a new pair. The JSON attachment takes seedID, the
	// SVG attachment gets a fresh id which is returned.
	CreatePair(ctx context.Context, seedID, sceneJSON, svgMarkup string) (string, error)
	// NewDiagram is CreatePair with a freshly minted seed id.
	NewDiagram(ctx context.Context, sceneJSON, svgMarkup string) (string, error)
	// ReadScene returns the scene JSON of the diagram identified by its SVG id.
	ReadScene(ctx context.Context, svgID string) (string, error)
	// UpdatePair overwrites both attachments in place, keeping ids and titles.
	UpdatePair(ctx context.Context, svgID, sceneJSON, svgMarkup string) error
	// MigrateV1ToV2 copies a single JSON attachment into a new pair with a
	// placeholder preview. The v1 attachment is never modified.
	MigrateV1ToV2(ctx context.Context, v1JSONID string) (string, error)
	// SceneID resolves the JSON sibling id of an SVG attachment.
	SceneID(ctx context.Context, svgID string) (string, error)
}

// ServiceOption customises the codec.
type ServiceOption func(*service)

// WithTitlePrefix overrides DefaultTitlePrefix.
func WithTitlePrefix(prefix string) ServiceOption {
	return func(s *service) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithLogger injects the codec logger.
func WithLogger(logger interfaces.Logger) ServiceOption {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithIDGenerator replaces identity.NewResourceID, mostly for tests.
func WithIDGenerator(fn func() string) ServiceOption {
	return func(s *service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithSceneChecker validates v1 payloads during migration. Failures are
// logged as warnings; the bytes are copied regardless.
func WithSceneChecker(checker SceneChecker) ServiceOption {
	return func(s *service) {
		s.checker = checker
	}
}

type service struct {
	store   interfaces.AttachmentStore
	stager  Stager
	prefix  string
	logger  interfaces.Logger
	newID   func() string
	checker SceneChecker
}

// NewService constructs the codec over an attachment store and a stager.
func NewService(store interfaces.AttachmentStore, stager Stager, opts ...ServiceOption) Service {
	s := &service{
		store:  store,
		stager: stager,
		prefix: DefaultTitlePrefix,
		logger: logging.NoOp(),
		newID:  identity.NewResourceID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

type stagedFile struct {
	title string
	path  string
}

func (s *service) CreatePair(ctx context.Context, seedID, sceneJSON, svgMarkup string) (string, error) {
	logger := logging.WithResourceContext(s.logger, seedID, "", "create_pair")

	// Both payloads are staged before the first attachment call so a scratch
	// failure never leaves a half-written pair behind.
	files, err := s.stagePair(seedID, sceneJSON, svgMarkup)
	if err != nil {
		logger.Error("resources.stage.failed", "error", err)
		return "", err
	}
	defer s.unstage(logger, files...)
	jsonFile, svgFile := files[0], files[1]

	jsonID, err := s.store.Create(ctx, seedID, jsonFile.title, jsonFile.path)
	if err != nil {
		logger.Error("resources.json.create_failed", "error", err)
		return "", fmt.Errorf("%w: create %s: %w", ErrAttachmentWrite, jsonFile.title, err)
	}

	svgID, err := s.store.Create(ctx, s.newID(), svgFile.title, svgFile.path)
	if err != nil {
		writeErr := fmt.Errorf("%w: create %s: %w", ErrAttachmentWrite, svgFile.title, err)
		pairErr := &PairWriteError{JSONID: jsonID, Err: writeErr}
		if deleter, ok := s.store.(interfaces.AttachmentDeleter); ok {
			if delErr := deleter.Delete(ctx, jsonID); delErr == nil {
				pairErr.Cleaned = true
			} else {
				logger.Warn("resources.json.cleanup_failed", "json_id", jsonID, "error", delErr)
			}
		}
		logger.Error("resources.svg.create_failed", "json_id", jsonID, "cleaned", pairErr.Cleaned, "error", err)
		return "", pairErr
	}

	logger.Info("resources.pair.created", "json_id", jsonID, "svg_id", svgID)
	return svgID, nil
}

func (s *service) NewDiagram(ctx context.Context, sceneJSON, svgMarkup string) (string, error) {
	return s.CreatePair(ctx, s.newID(), sceneJSON, svgMarkup)
}

func (s *service) ReadScene(ctx context.Context, svgID string) (string, error) {
	jsonID, err := s.SceneID(ctx, svgID)
	if err != nil {
		return "", err
	}
	data, err := s.store.Bytes(ctx, jsonID)
	if err != nil {
		return "", s.lookupError(jsonID, err)
	}
	return string(data), nil
}

func (s *service) UpdatePair(ctx context.Context, svgID, sceneJSON, svgMarkup string) error {
	logger := logging.WithResourceContext(s.logger, svgID, "", "update_pair")

	jsonID, err := s.SceneID(ctx, svgID)
	if err != nil {
		logger.Error("resources.resolve.failed", "error", err)
		return err
	}

	files, err := s.stagePair(jsonID, sceneJSON, svgMarkup)
	if err != nil {
		logger.Error("resources.stage.failed", "error", err)
		return err
	}
	defer s.unstage(logger, files...)

	if err := s.store.Update(ctx, jsonID, files[0].title, files[0].path); err != nil {
		logger.Error("resources.json.update_failed", "json_id", jsonID, "error", err)
		return fmt.Errorf("%w: update %s: %w", ErrAttachmentWrite, jsonID, err)
	}
	if err := s.store.Update(ctx, svgID, files[1].title, files[1].path); err != nil {
		// the JSON attachment already holds the new scene; the preview is stale
		logger.Error("resources.svg.update_failed", "json_id", jsonID, "error", err)
		return fmt.Errorf("%w: update %s: %w", ErrAttachmentWrite, svgID, err)
	}

	logger.Debug("resources.pair.updated", "json_id", jsonID)
	return nil
}

func (s *service) MigrateV1ToV2(ctx context.Context, v1JSONID string) (string, error) {
	logger := logging.WithResourceContext(s.logger, v1JSONID, "", "migrate_v1")

	data, err := s.store.Bytes(ctx, v1JSONID)
	if err != nil {
		err = s.lookupError(v1JSONID, err)
		logger.Error("resources.v1.read_failed", "error", err)
		return "", err
	}
	if s.checker != nil {
		if verr := s.checker.Validate(data); verr != nil {
			logger.Warn("resources.v1.scene_invalid", "error", verr)
		}
	}

	svgID, err := s.CreatePair(ctx, s.newID(), string(data), PlaceholderSVG)
	if err != nil {
		return "", err
	}
	logger.Info("resources.v1.migrated", "svg_id", svgID)
	return svgID, nil
}

func (s *service) SceneID(ctx context.Context, svgID string) (string, error) {
	meta, err := s.store.Metadata(ctx, svgID, "id", "title")
	if err != nil {
		return "", s.lookupError(svgID, err)
	}
	if meta == nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, svgID)
	}
	return ParseSceneID(s.prefix, meta.Title)
}

func (s *service) stagePair(jsonID, sceneJSON, svgMarkup string) ([]stagedFile, error) {
	payloads := []struct {
		title string
		data  string
	}{
		{JSONTitle(s.prefix, jsonID), sceneJSON},
		{SVGTitle(s.prefix, jsonID), svgMarkup},
	}
	files := make([]stagedFile, 0, len(payloads))
	for _, p := range payloads {
		path, err := s.stager.Write(p.title, []byte(p.data))
		if err != nil {
			s.unstage(s.logger, files...)
			return nil, fmt.Errorf("%w: %w", ErrStagingIO, err)
		}
		files = append(files, stagedFile{title: p.title, path: path})
	}
	return files, nil
}

func (s *service) unstage(logger interfaces.Logger, files ...stagedFile) {
	for _, f := range files {
		if err := s.stager.Remove(f.path); err != nil {
			logger.Warn("resources.unstage.failed", "path", f.path, "error", err)
		}
	}
}

func (s *service) lookupError(id string, err error) error {
	if errors.Is(err, interfaces.ErrAttachmentNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return fmt.Errorf("resources: fetch %s: %w", id, err)
}
