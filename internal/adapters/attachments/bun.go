package attachments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-excalidraw/pkg/interfaces"
)

// ErrDriverUnsupported is returned by OpenBunDB for unknown drivers.
var ErrDriverUnsupported = errors.New("attachments: unsupported sql driver")

var errNoDatabase = errors.New("attachments: bun store requires a database")

// OpenBunDB opens a database for the Bun store. Supported drivers are
// sqlite3 and postgres.
func OpenBunDB(driver, dsn string) (*bun.DB, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite3", "sqlite":
		sqldb, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("attachments: open sqlite: %w", err)
		}
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	case "postgres", "pg":
		sqldb, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("attachments: open postgres: %w", err)
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrDriverUnsupported, driver)
	}
}

// BunStore persists attachments in a `resources` table.
type BunStore struct {
	db          *bun.DB
	now         func() time.Time
	broadcaster *changeBroadcaster
}

var _ Store = (*BunStore)(nil)

// NewBunStore constructs a Bun-backed store.
func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{
		db:          db,
		now:         time.Now,
		broadcaster: newChangeBroadcaster(),
	}
}

// EnsureSchema creates the resources table when missing.
func (s *BunStore) EnsureSchema(ctx context.Context) error {
	if s.db == nil {
		return errNoDatabase
	}
	_, err := s.db.NewCreateTable().Model((*resourceModel)(nil)).IfNotExists().Exec(ctx)
	return err
}

func (s *BunStore) Create(ctx context.Context, id, title, filePath string) (string, error) {
	if s.db == nil {
		return "", errNoDatabase
	}
	up, err := readUpload(id, title, filePath)
	if err != nil {
		return "", err
	}
	id = newAttachmentID(up.id)

	exists, err := s.db.NewSelect().Model((*resourceModel)(nil)).Where("id = ?", id).Exists(ctx)
	if err != nil {
		return "", err
	}
	if exists {
		return "", ErrAlreadyExists
	}

	now := s.now().UTC()
	model := resourceModel{
		ID:        id,
		Title:     up.title,
		MimeType:  up.mimeType,
		Size:      int64(len(up.data)),
		Data:      up.data,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.db.NewInsert().Model(&model).Exec(ctx); err != nil {
		return "", err
	}
	s.broadcaster.Broadcast(ChangeEvent{Type: ChangeCreated, ID: id, Title: up.title, UpdatedAt: now})
	return id, nil
}

func (s *BunStore) Update(ctx context.Context, id, title, filePath string) error {
	if s.db == nil {
		return errNoDatabase
	}
	up, err := readUpload(id, title, filePath)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	model := resourceModel{
		ID:        id,
		Title:     up.title,
		MimeType:  up.mimeType,
		Size:      int64(len(up.data)),
		Data:      up.data,
		UpdatedAt: now,
	}
	res, err := s.db.NewUpdate().
		Model(&model).
		Column("title", "mime", "size", "data", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return notFound(id)
	}
	s.broadcaster.Broadcast(ChangeEvent{Type: ChangeUpdated, ID: id, Title: up.title, UpdatedAt: now})
	return nil
}

func (s *BunStore) Metadata(ctx context.Context, id string, _ ...string) (*interfaces.AttachmentMetadata, error) {
	if s.db == nil {
		return nil, errNoDatabase
	}
	var model resourceModel
	err := s.db.NewSelect().
		Model(&model).
		Column("id", "title", "mime", "size", "updated_at").
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, err
	}
	return &interfaces.AttachmentMetadata{
		ID:        model.ID,
		Title:     model.Title,
		MimeType:  model.MimeType,
		Size:      model.Size,
		UpdatedAt: model.UpdatedAt,
	}, nil
}

func (s *BunStore) Bytes(ctx context.Context, id string) ([]byte, error) {
	if s.db == nil {
		return nil, errNoDatabase
	}
	var model resourceModel
	err := s.db.NewSelect().Model(&model).Column("id", "data").Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, err
	}
	return model.Data, nil
}

func (s *BunStore) Delete(ctx context.Context, id string) error {
	if s.db == nil {
		return errNoDatabase
	}
	res, err := s.db.NewDelete().Model((*resourceModel)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return notFound(id)
	}
	s.broadcaster.Broadcast(ChangeEvent{Type: ChangeDeleted, ID: id, UpdatedAt: s.now().UTC()})
	return nil
}

// Subscribe delivers change events until the context is cancelled.
func (s *BunStore) Subscribe(ctx context.Context) (<-chan ChangeEvent, error) {
	return s.broadcaster.Subscribe(ctx)
}

type resourceModel struct {
	bun.BaseModel `bun:"table:resources"`

	ID        string    `bun:"id,pk"`
	Title     string    `bun:"title,notnull"`
	MimeType  string    `bun:"mime"`
	Size      int64     `bun:"size"`
	Data      []byte    `bun:"data"`
	CreatedAt time.Time `bun:"created_at"`
	UpdatedAt time.Time `bun:"updated_at"`
}
