package store

import (
	"time"

	"github.com/docuflow/extraction-tracker/internal/store/model"
	"gorm.io/gorm"
)

// DocumentQueryFilter narrows a document listing. Fields are kept declarative so every backend can render them.
type DocumentQueryFilter struct {
	OwnerID        string
	State          *model.DocumentState
	Category       *string
	SubmittedSince *time.Time
}

func NewDocumentQueryFilter() *DocumentQueryFilter {
	return &DocumentQueryFilter{}
}

func (f *DocumentQueryFilter) ByOwnerID(ownerID string) *DocumentQueryFilter {
	f.OwnerID = ownerID
	return f
}

func (f *DocumentQueryFilter) ByState(state model.DocumentState) *DocumentQueryFilter {
	f.State = &state
	return f
}

// ByCategory matches documents without a category when category is model.UnknownCategory.
func (f *DocumentQueryFilter) ByCategory(category string) *DocumentQueryFilter {
	f.Category = &category
	return f
}

func (f *DocumentQueryFilter) SubmittedAfter(t time.Time) *DocumentQueryFilter {
	t = t.UTC()
	f.SubmittedSince = &t
	return f
}

func (f *DocumentQueryFilter) queryFn() []func(tx *gorm.DB) *gorm.DB {
	fns := make([]func(tx *gorm.DB) *gorm.DB, 0, 4)
	if f == nil {
		return fns
	}
	if f.OwnerID != "" {
		fns = append(fns, func(tx *gorm.DB) *gorm.DB {
			return tx.Where("owner_id = ?", f.OwnerID)
		})
	}
	if f.State != nil {
		fns = append(fns, func(tx *gorm.DB) *gorm.DB {
			return tx.Where("state = ?", *f.State)
		})
	}
	if f.Category != nil {
		fns = append(fns, func(tx *gorm.DB) *gorm.DB {
			if *f.Category == model.UnknownCategory {
				return tx.Where("(category IS NULL OR category = '' OR category = ?)", model.UnknownCategory)
			}
			return tx.Where("category = ?", *f.Category)
		})
	}
	if f.SubmittedSince != nil {
		fns = append(fns, func(tx *gorm.DB) *gorm.DB {
			return tx.Where("submitted_at >= ?", *f.SubmittedSince)
		})
	}
	return fns
}

type SortOrder int

const (
	SortBySubmittedDesc SortOrder = iota
	SortBySubmittedAsc
)

type DocumentQueryOptions struct {
	Limit  int
	Offset int
	Sort   SortOrder
}

func NewDocumentQueryOptions() *DocumentQueryOptions {
	return &DocumentQueryOptions{}
}

func (o *DocumentQueryOptions) WithLimit(limit int) *DocumentQueryOptions {
	o.Limit = limit
	return o
}

func (o *DocumentQueryOptions) WithOffset(offset int) *DocumentQueryOptions {
	o.Offset = offset
	return o
}

func (o *DocumentQueryOptions) WithSortOrder(sort SortOrder) *DocumentQueryOptions {
	o.Sort = sort
	return o
}

func (o *DocumentQueryOptions) queryFn() []func(tx *gorm.DB) *gorm.DB {
	if o == nil {
		o = NewDocumentQueryOptions()
	}
	fns := []func(tx *gorm.DB) *gorm.DB{
		func(tx *gorm.DB) *gorm.DB {
			switch o.Sort {
			case SortBySubmittedAsc:
				return tx.Order("submitted_at ASC").Order("id")
			default:
				return tx.Order("submitted_at DESC").Order("id")
			}
		},
	}
	if o.Limit > 0 {
		fns = append(fns, func(tx *gorm.DB) *gorm.DB {
			return tx.Limit(o.Limit)
		})
	}
	if o.Offset > 0 {
		fns = append(fns, func(tx *gorm.DB) *gorm.DB {
			return tx.Offset(o.Offset)
		})
	}
	return fns
}
