package users

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// Sites is the site configuration registry: it resolves the domain used
// when confirmation links are rendered.
type Sites interface {
	Get(ctx context.Context, id int64) (*Site, error)
	Upsert(ctx context.Context, site *Site) (*Site, error)
	List(ctx context.Context) ([]*Site, error)
}

type sitesRepo struct {
	db *bun.DB
}

var _ Sites = (*sitesRepo)(nil)

// NewSitesRepository builds the site registry over bun. Sites keep the
// integer ids hosts reference from configuration, so this repository
// queries bun directly instead of going through the uuid keyed generic
// repository.
func NewSitesRepository(db *bun.DB) Sites {
	return &sitesRepo{db: db}
}

func (s *sitesRepo) Get(ctx context.Context, id int64) (*Site, error) {
	record := &Site{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) || err == sql.ErrNoRows {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"site_id": id})
		}
		return nil, err
	}
	return record, nil
}

func (s *sitesRepo) Upsert(ctx context.Context, site *Site) (*Site, error) {
	if site.ID == 0 {
		if _, err := s.db.NewInsert().Model(site).Exec(ctx); err != nil {
			return nil, err
		}
		return site, nil
	}

	_, err := s.db.NewInsert().
		Model(site).
		On("CONFLICT (id) DO UPDATE").
		Set("domain = EXCLUDED.domain").
		Set("name = EXCLUDED.name").
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	return site, nil
}

func (s *sitesRepo) List(ctx context.Context) ([]*Site, error) {
	records := []*Site{}
	err := s.db.NewSelect().
		Model(&records).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}
