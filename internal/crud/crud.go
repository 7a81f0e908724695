// Package crud implements list/get/insert/update/delete once for every
// resource. A resource plugs in its filter, eager-load plan, mappers and hooks
// through a Resource value.
package crud

import (
	"context"
	"errors"
	"fmt"

	"github.com/manifest-festivals/manifest/internal/logging"
	"github.com/manifest-festivals/manifest/internal/metrics"
	"github.com/manifest-festivals/manifest/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Searcher is satisfied by every search object through its embedded
// models.BaseSearch.
type Searcher interface {
	Paging() models.BaseSearch
}

type PagedResult[T any] struct {
	Items      []T  `json:"items"`
	TotalCount *int `json:"totalCount,omitempty"`
}

// Resource describes one entity type. E is the gorm entity, R the response,
// S the search object, I and U the insert and update requests.
type Resource[E any, R any, S Searcher, I any, U any] struct {
	Name string

	// Filter applies search predicates. It may impose an order; otherwise
	// results are ordered by primary key.
	Filter func(q *gorm.DB, search S) *gorm.DB
	// Preload declares the relations both List and GetByID load.
	Preload func(q *gorm.DB, search *S) *gorm.DB

	ToResponse func(e *E) R
	MapInsert  func(req I, e *E)
	MapUpdate  func(req U, e *E)

	// BeforeInsert runs after MapInsert and before the row is written.
	BeforeInsert func(ctx context.Context, tx *gorm.DB, e *E, req I) error
	// BeforeUpdate sees the stored state; MapUpdate runs after it.
	BeforeUpdate func(ctx context.Context, tx *gorm.DB, e *E, req U) error

	// After hooks run once the write is committed. They cannot fail the request.
	AfterInsert func(ctx context.Context, e *E)
	AfterUpdate func(ctx context.Context, e *E)
	AfterDelete func(ctx context.Context, id uint)
}

type Service[E any, R any, S Searcher, I any, U any] struct {
	db  *gorm.DB
	res Resource[E, R, S, I, U]
}

func NewService[E any, R any, S Searcher, I any, U any](db *gorm.DB, res Resource[E, R, S, I, U]) *Service[E, R, S, I, U] {
	return &Service[E, R, S, I, U]{db: db, res: res}
}

func (s *Service[E, R, S, I, U]) Name() string {
	return s.res.Name
}

func (s *Service[E, R, S, I, U]) List(ctx context.Context, search S) (result PagedResult[R], err error) {
	defer s.observe("list", &err)

	q := s.db.WithContext(ctx).Model(new(E))
	if s.res.Filter != nil {
		q = s.res.Filter(q, search)
	}
	_, ordered := q.Statement.Clauses["ORDER BY"]
	q = q.Session(&gorm.Session{})

	paging := search.Paging()
	if paging.IncludeTotalCount {
		var total int64
		if err := q.Count(&total).Error; err != nil {
			return result, fmt.Errorf("failed to count %s: %w", s.res.Name, err)
		}
		count := int(total)
		result.TotalCount = &count
	}

	if !ordered {
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Table: clause.CurrentTable, Name: clause.PrimaryKey}})
	}
	if !paging.RetrieveAll && paging.PageSize != nil {
		q = q.Limit(*paging.PageSize)
		if paging.Page != nil {
			q = q.Offset(*paging.Page * *paging.PageSize)
		}
	}
	if s.res.Preload != nil {
		q = s.res.Preload(q, &search)
	}

	var entities []E
	if err := q.Find(&entities).Error; err != nil {
		return result, fmt.Errorf("failed to list %s: %w", s.res.Name, err)
	}

	result.Items = make([]R, 0, len(entities))
	for i := range entities {
		result.Items = append(result.Items, s.res.ToResponse(&entities[i]))
	}
	return result, nil
}

func (s *Service[E, R, S, I, U]) GetByID(ctx context.Context, id uint) (resp R, err error) {
	defer s.observe("get", &err)

	e, err := s.load(ctx, s.db, id)
	if err != nil {
		return resp, err
	}
	return s.res.ToResponse(e), nil
}

func (s *Service[E, R, S, I, U]) Insert(ctx context.Context, req I) (resp R, err error) {
	defer s.observe("insert", &err)

	var e E
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s.res.MapInsert(req, &e)
		if s.res.BeforeInsert != nil {
			if err := s.res.BeforeInsert(ctx, tx, &e, req); err != nil {
				return err
			}
		}
		return translate(s.res.Name, tx.Omit(clause.Associations).Create(&e).Error)
	})
	if err != nil {
		return resp, s.wrap("insert", err)
	}

	loaded, err := s.reload(ctx, &e)
	if err != nil {
		return resp, err
	}
	if s.res.AfterInsert != nil {
		s.res.AfterInsert(ctx, loaded)
	}
	return s.res.ToResponse(loaded), nil
}

func (s *Service[E, R, S, I, U]) Update(ctx context.Context, id uint, req U) (resp R, err error) {
	defer s.observe("update", &err)

	var e E
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&e, id).Error; err != nil {
			return translate(s.res.Name, err)
		}
		if s.res.BeforeUpdate != nil {
			if err := s.res.BeforeUpdate(ctx, tx, &e, req); err != nil {
				return err
			}
		}
		s.res.MapUpdate(req, &e)
		return translate(s.res.Name, tx.Omit(clause.Associations).Save(&e).Error)
	})
	if err != nil {
		return resp, s.wrap("update", err)
	}

	loaded, err := s.reload(ctx, &e)
	if err != nil {
		return resp, err
	}
	if s.res.AfterUpdate != nil {
		s.res.AfterUpdate(ctx, loaded)
	}
	return s.res.ToResponse(loaded), nil
}

// Delete removes a row. Owned children go with it through ON DELETE CASCADE;
// rows still referenced elsewhere are rejected by the store.
func (s *Service[E, R, S, I, U]) Delete(ctx context.Context, id uint) (err error) {
	defer s.observe("delete", &err)

	result := s.db.WithContext(ctx).Delete(new(E), id)
	if result.Error != nil {
		return s.wrap("delete", translate(s.res.Name, result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	if s.res.AfterDelete != nil {
		s.res.AfterDelete(ctx, id)
	}
	return nil
}

func (s *Service[E, R, S, I, U]) load(ctx context.Context, db *gorm.DB, id uint) (*E, error) {
	var e E
	q := db.WithContext(ctx)
	if s.res.Preload != nil {
		q = s.res.Preload(q, nil)
	}
	if err := q.First(&e, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch %s %d: %w", s.res.Name, id, err)
	}
	return &e, nil
}

// reload refreshes a freshly written entity with its relations, using the
// primary key already set on it.
func (s *Service[E, R, S, I, U]) reload(ctx context.Context, e *E) (*E, error) {
	q := s.db.WithContext(ctx)
	if s.res.Preload != nil {
		q = s.res.Preload(q, nil)
	}
	if err := q.First(e).Error; err != nil {
		return nil, fmt.Errorf("failed to reload %s: %w", s.res.Name, err)
	}
	return e, nil
}

func (s *Service[E, R, S, I, U]) wrap(op string, err error) error {
	if errors.Is(err, ErrNotFound) || IsValidation(err) {
		return err
	}
	return fmt.Errorf("failed to %s %s: %w", op, s.res.Name, err)
}

func (s *Service[E, R, S, I, U]) observe(op string, errp *error) {
	outcome := Outcome(*errp)
	metrics.CRUDOperations.WithLabelValues(s.res.Name, op, outcome).Inc()
	if outcome == metrics.OutcomeError {
		logging.Error().Err(*errp).Str("resource", s.res.Name).Str("operation", op).Msg("crud operation failed")
	}
}

// Outcome classifies an error for metrics labels.
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ErrNotFound):
		return metrics.OutcomeNotFound
	case IsValidation(err):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}
