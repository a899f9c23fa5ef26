package repository

import (
	"context"
	"errors"
	"slices"
	"strings"

	"gorm.io/gorm"

	"github.com/kendall-kelly/home-services-api/utils"
)

// LookupStrategy is one way of resolving an externally supplied id to a row.
// Strategies are tried in order and the first hit wins.
type LookupStrategy struct {
	Name string
	// Applies reports whether the strategy should run for id. Nil means always.
	Applies func(id string) bool
	Scope   func(db *gorm.DB, id string) *gorm.DB
}

// ByPrimaryID matches the primary key exactly as given.
var ByPrimaryID = LookupStrategy{
	Name: "primary_id",
	Scope: func(db *gorm.DB, id string) *gorm.DB {
		return db.Where("id = ?", id)
	},
}

// ByObjectID matches the canonical form of an ObjectID-shaped id. It only runs
// when that form differs from the raw input, since otherwise ByPrimaryID has
// already covered it.
var ByObjectID = LookupStrategy{
	Name: "object_id",
	Applies: func(id string) bool {
		canonical, ok := utils.CanonicalObjectID(strings.TrimSpace(id))
		return ok && canonical != id
	},
	Scope: func(db *gorm.DB, id string) *gorm.DB {
		canonical, _ := utils.CanonicalObjectID(strings.TrimSpace(id))
		return db.Where("id = ?", canonical)
	},
}

// ByConsultationID matches the legacy id carried over from the predecessor system.
var ByConsultationID = LookupStrategy{
	Name: "consultation_id",
	Scope: func(db *gorm.DB, id string) *gorm.DB {
		return db.Where("consultation_id = ?", id)
	},
}

// DefaultLookup is used for reviews, providers, job cards and users.
var DefaultLookup = []LookupStrategy{ByPrimaryID, ByObjectID}

// ServiceRequestLookup adds the legacy id fallback.
var ServiceRequestLookup = []LookupStrategy{ByPrimaryID, ByObjectID, ByConsultationID}

// FindFirst evaluates strategies in order and returns the first match along with
// the name of the strategy that found it. gorm.ErrRecordNotFound is returned when
// nothing matches; any other store error stops the search.
func FindFirst[T any](ctx context.Context, db *gorm.DB, id string, strategies []LookupStrategy) (*T, string, error) {
	if strings.TrimSpace(id) == "" {
		return nil, "", gorm.ErrRecordNotFound
	}
	for _, s := range strategies {
		if s.Applies != nil && !s.Applies(id) {
			continue
		}
		var out T
		err := s.Scope(db.WithContext(ctx), id).Take(&out).Error
		if err == nil {
			return &out, s.Name, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, s.Name, err
		}
	}
	return nil, "", gorm.ErrRecordNotFound
}

// Page bounds a list query.
type Page struct {
	Limit  int
	Offset int
}

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

func (p Page) apply(db *gorm.DB) *gorm.DB {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	return db.Limit(limit).Offset(offset)
}

// touched returns columns plus updated_at in a new slice, leaving the
// caller's variadic backing array alone.
func touched(columns []string, extra ...string) []string {
	return slices.Concat(columns, extra, []string{"updated_at"})
}
