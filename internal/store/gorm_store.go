package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Document is one row of the documents table backing GORMStore.
type Document struct {
	Path      string `gorm:"primaryKey;type:varchar(512)"`
	Parent    string `gorm:"index;type:varchar(512)"`
	Data      string `gorm:"type:text"`
	UpdatedAt time.Time
}

// TableName pins the table name.
func (Document) TableName() string { return "documents" }

// GORMStore is a Store persisted in a single documents table, usable with any GORM dialect.
type GORMStore struct {
	db  *gorm.DB
	hub Broadcaster
}

// NewGORMStore migrates the documents table and returns a store over db.
// A nil hub means an in-process LocalHub.
func NewGORMStore(db *gorm.DB, hub Broadcaster) (*GORMStore, error) {
	if err := db.AutoMigrate(&Document{}); err != nil {
		return nil, fmt.Errorf("failed to migrate documents table: %w", err)
	}
	if hub == nil {
		hub = NewLocalHub()
	}
	return &GORMStore{db: db, hub: hub}, nil
}

// Get returns the document at path.
func (s *GORMStore) Get(ctx context.Context, path string) (json.RawMessage, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	var doc Document
	if err := s.db.WithContext(ctx).First(&doc, "path = ?", path).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get %s: %w", path, err)
	}
	return json.RawMessage(doc.Data), nil
}

// Set replaces the document at path. A value that encodes to null removes it.
func (s *GORMStore) Set(ctx context.Context, path string, value any) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	raw, err := encode(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if string(raw) == "null" {
		return s.Remove(ctx, path)
	}
	if err := upsert(s.db.WithContext(ctx), path, raw); err != nil {
		return err
	}
	return publishChanges(ctx, s.hub, path)
}

// Update merges fields into the document at path.
func (s *GORMStore) Update(ctx context.Context, path string, fields map[string]any) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing json.RawMessage
		var doc Document
		err := tx.First(&doc, "path = ?", path).Error
		switch {
		case err == nil:
			existing = json.RawMessage(doc.Data)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		merged, err := mergeFields(existing, fields)
		if err != nil {
			return fmt.Errorf("failed to merge %s: %w", path, err)
		}
		return upsert(tx, path, merged)
	})
	if err != nil {
		return err
	}
	return publishChanges(ctx, s.hub, path)
}

// Remove deletes path and its subtree.
func (s *GORMStore) Remove(ctx context.Context, path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	pattern := escapeLike(path) + "/%"

	var removed []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scope := tx.Model(&Document{}).Where(`path = ? OR path LIKE ? ESCAPE '\'`, path, pattern)
		if err := scope.Pluck("path", &removed).Error; err != nil {
			return fmt.Errorf("failed to list %s: %w", path, err)
		}
		if err := tx.Where(`path = ? OR path LIKE ? ESCAPE '\'`, path, pattern).Delete(&Document{}).Error; err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return publishChanges(ctx, s.hub, append(removed, path)...)
}

// Children lists the documents directly under path.
func (s *GORMStore) Children(ctx context.Context, path string) ([]Child, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	var docs []Document
	if err := s.db.WithContext(ctx).Where("parent = ?", path).Order("path asc").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", path, err)
	}
	children := make([]Child, 0, len(docs))
	for _, d := range docs {
		children = append(children, Child{Key: Key(d.Path), Value: json.RawMessage(d.Data)})
	}
	return children, nil
}

// Subscribe streams snapshots of the children of path.
func (s *GORMStore) Subscribe(ctx context.Context, path string) (*Subscription, error) {
	return newSubscription(ctx, s.hub, path, func(ctx context.Context) ([]Child, error) {
		return s.Children(ctx, path)
	})
}

func upsert(db *gorm.DB, path string, raw json.RawMessage) error {
	doc := Document{Path: path, Parent: Parent(path), Data: string(raw), UpdatedAt: time.Now()}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "path"}},
		DoUpdates: clause.AssignmentColumns([]string{"parent", "data", "updated_at"}),
	}).Create(&doc).Error
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
