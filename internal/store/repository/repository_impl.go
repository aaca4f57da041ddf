package repository

import (
	"context"

	"github.com/smallbiznis/trashforcoin/internal/access"
	"github.com/smallbiznis/trashforcoin/internal/store/domain"
	"github.com/smallbiznis/trashforcoin/pkg/db/option"
	"github.com/smallbiznis/trashforcoin/pkg/repository"
	"gorm.io/gorm"
)

var sortableColumns = map[string]bool{"store_name": true}

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func stores(db *gorm.DB) repository.Repository[domain.Store] {
	return repository.ProvideStore[domain.Store](db)
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, store *domain.Store) error {
	return stores(db).Create(ctx, store)
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Store, error) {
	return stores(db).FindByID(ctx, id)
}

func (r *repo) List(ctx context.Context, db *gorm.DB, scope access.Scope, name string) ([]domain.Store, error) {
	items, err := stores(db).Find(ctx, &domain.Store{},
		option.QueryOptionFunc(func(stmt *gorm.DB) *gorm.DB {
			return scope.Apply(stmt, "store_id", "")
		}),
		option.WithSearch(name, "store_name"),
		option.WithSortBy(option.WithQuerySortBy("store_name", "asc", sortableColumns)),
	)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Store, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out, nil
}

func (r *repo) CountSlug(ctx context.Context, db *gorm.DB, slug string) (int64, error) {
	return stores(db).Count(ctx, &domain.Store{Slug: slug})
}

func (r *repo) Rename(ctx context.Context, db *gorm.DB, store *domain.Store) error {
	return stores(db).Update(ctx, store.ID, map[string]any{
		"store_name": store.Name,
		"updated_at": store.UpdatedAt,
	})
}
