package users

import (
	"context"
	"testing"

	"github.com/goliatone/go-repository-bun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSitesUpsertAndGet(t *testing.T) {
	ctx := context.Background()
	sites := NewSitesRepository(newTestDB(t))

	created, err := sites.Upsert(ctx, &Site{Name: "Example", Domain: "example.com"})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	got, err := sites.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "example.com", got.Domain)

	// same id, new domain
	created.Domain = "example.org"
	_, err = sites.Upsert(ctx, created)
	require.NoError(t, err)

	got, err = sites.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "example.org", got.Domain)
}

func TestSitesGetMissing(t *testing.T) {
	sites := NewSitesRepository(newTestDB(t))

	_, err := sites.Get(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestSitesList(t *testing.T) {
	ctx := context.Background()
	sites := NewSitesRepository(newTestDB(t))

	_, err := sites.Upsert(ctx, &Site{Name: "First", Domain: "a.example.com"})
	require.NoError(t, err)
	_, err = sites.Upsert(ctx, &Site{Name: "Second", Domain: "b.example.com"})
	require.NoError(t, err)

	records, err := sites.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a.example.com", records[0].Domain)
}
