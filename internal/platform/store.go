package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"matchday/internal/cache"
	"matchday/internal/collection"
	"matchday/internal/models"
	"matchday/internal/realtime"

	"gorm.io/gorm"
)

// filterableColumns is the per-collection allowlist of columns that may
// appear in an equality filter. Parent-id and owner lookups are the only
// query shapes the platform serves.
var filterableColumns = map[string]map[string]struct{}{
	models.CollectionSchedules:    {"user_id": {}},
	models.CollectionComments:     {"schedule_id": {}, "user_id": {}},
	models.CollectionCommentLikes: {"comment_id": {}, "user_id": {}},
	models.CollectionReactions:    {"schedule_id": {}, "user_id": {}},
	models.CollectionMessages:     {"user_id": {}},
	models.CollectionProfiles:     {"user_id": {}, "username": {}},
}

// Store serves reads and writes for the named collections and publishes a
// change event for every committed write.
type Store struct {
	db       *gorm.DB
	notifier *Notifier
}

// NewStore creates a Store bound to the given database and notifier.
func NewStore(db *gorm.DB, notifier *Notifier) *Store {
	return &Store{db: db, notifier: notifier}
}

// KnownCollection reports whether name is a served collection.
func KnownCollection(name string) bool {
	_, ok := filterableColumns[name]
	return ok
}

func (s *Store) query(ctx context.Context, name string, f collection.Filter, order collection.Order) (*gorm.DB, error) {
	q := s.db.WithContext(ctx)
	if !f.IsZero() {
		cols, ok := filterableColumns[name]
		if !ok {
			return nil, models.NewNotFoundError("collection", name)
		}
		if _, ok := cols[f.Column]; !ok {
			return nil, models.NewValidationError(fmt.Sprintf("column %q is not filterable on %s", f.Column, name))
		}
		q = q.Where(fmt.Sprintf("%s = ?", f.Column), f.Value)
	}
	switch order {
	case collection.Descending:
		q = q.Order("created_at desc")
	default:
		q = q.Order("created_at asc")
	}
	return q, nil
}

// List returns every record in the collection matching the filter, ordered
// by creation timestamp.
func (s *Store) List(ctx context.Context, name string, f collection.Filter, order collection.Order) (any, error) {
	q, err := s.query(ctx, name, f, order)
	if err != nil {
		return nil, err
	}

	switch name {
	case models.CollectionSchedules:
		var out []models.Schedule
		return out, q.Find(&out).Error
	case models.CollectionComments:
		var out []models.Comment
		return out, q.Find(&out).Error
	case models.CollectionCommentLikes:
		var out []models.CommentLike
		return out, q.Find(&out).Error
	case models.CollectionReactions:
		var out []models.Reaction
		return out, q.Find(&out).Error
	case models.CollectionMessages:
		var out []models.Message
		return out, q.Find(&out).Error
	case models.CollectionProfiles:
		var out []models.Profile
		return out, q.Find(&out).Error
	}
	return nil, models.NewNotFoundError("collection", name)
}

func (s *Store) instance(name string) (any, error) {
	switch name {
	case models.CollectionSchedules:
		return &models.Schedule{}, nil
	case models.CollectionComments:
		return &models.Comment{}, nil
	case models.CollectionCommentLikes:
		return &models.CommentLike{}, nil
	case models.CollectionReactions:
		return &models.Reaction{}, nil
	case models.CollectionMessages:
		return &models.Message{}, nil
	case models.CollectionProfiles:
		return &models.Profile{}, nil
	}
	return nil, models.NewNotFoundError("collection", name)
}

// Insert decodes payload into the collection's record type and persists it.
// Returns the stored record including generated fields.
func (s *Store) Insert(ctx context.Context, name string, payload []byte) (any, error) {
	record, err := s.instance(name)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, record); err != nil {
		return nil, models.NewValidationError("invalid record body")
	}

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}

	s.afterWrite(ctx, name, realtime.EventInsert, record)
	return record, nil
}

// Get loads a single record by primary key.
func (s *Store) Get(ctx context.Context, name, id string) (any, error) {
	record, err := s.instance(name)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).First(record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// Update applies a patch to the record with the given id and returns the
// updated record.
func (s *Store) Update(ctx context.Context, name, id string, patch map[string]any) (any, error) {
	record, err := s.Get(ctx, name, id)
	if err != nil {
		return nil, err
	}

	// Identity and provenance columns are immutable.
	delete(patch, "id")
	delete(patch, "user_id")
	delete(patch, "created_at")

	if err := s.db.WithContext(ctx).Model(record).Updates(patch).Error; err != nil {
		return nil, err
	}
	record, err = s.Get(ctx, name, id)
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, name, realtime.EventUpdate, record)
	return record, nil
}

// Delete removes the record with the given id and returns the deleted record.
func (s *Store) Delete(ctx context.Context, name, id string) (any, error) {
	record, err := s.Get(ctx, name, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Delete(record).Error; err != nil {
		return nil, err
	}

	s.afterWrite(ctx, name, realtime.EventDelete, record)
	return record, nil
}

// OwnerOf extracts the owning user id from a record, or "" when the record
// type carries none.
func OwnerOf(record any) string {
	switch r := record.(type) {
	case *models.Schedule:
		return r.UserID
	case *models.Comment:
		return r.UserID
	case *models.CommentLike:
		return r.UserID
	case *models.Reaction:
		return r.UserID
	case *models.Message:
		return r.UserID
	case *models.Profile:
		return r.UserID
	}
	return ""
}

// afterWrite publishes the change event and drops stale cache entries.
// Fan-out is best effort; a publish failure never fails the write.
func (s *Store) afterWrite(ctx context.Context, name, event string, record any) {
	switch name {
	case models.CollectionMessages:
		cache.InvalidateMessageHistory(ctx)
	case models.CollectionSchedules:
		cache.InvalidateScheduleFeed(ctx)
	case models.CollectionProfiles:
		if p, ok := record.(*models.Profile); ok {
			cache.InvalidateProfile(ctx, p.UserID)
		}
	}

	if s.notifier == nil {
		return
	}
	payload, err := json.Marshal(record)
	if err != nil {
		log.Printf("store: marshal change record for %s: %v", name, err)
		return
	}
	ev := realtime.ChangeEvent{Collection: name, Event: event, Record: payload}
	if err := s.notifier.PublishChange(ctx, ev); err != nil {
		log.Printf("store: publish change for %s: %v", name, err)
	}
}
