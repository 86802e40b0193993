package search

import (
	"context"
	"testing"

	"github.com/shishobooks/kino/pkg/models"
	"github.com/shishobooks/kino/pkg/slugs"
	"github.com/shishobooks/kino/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func insertShow(t *testing.T, db bun.IDB, name string, aliases ...string) *models.Show {
	t.Helper()
	show := &models.Show{
		Kind:     models.ShowKindSerie,
		Slug:     slugs.FromTitle(name),
		Name:     name,
		SortName: name,
		Status:   models.ShowStatusUnknown,
		Aliases:  aliases,
	}
	_, err := db.NewInsert().Model(show).Returning("*").Exec(context.Background())
	require.NoError(t, err)
	return show
}

func TestShowIndex(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := context.Background()
	svc := NewService(db)

	frieren := insertShow(t, db, "Frieren: Beyond Journey's End", "Sousou no Frieren")
	bebop := insertShow(t, db, "Cowboy Bebop")
	require.NoError(t, svc.IndexShow(ctx, frieren))
	require.NoError(t, svc.IndexShow(ctx, bebop))

	ids, err := svc.ShowIDs(ctx, "sousou", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{frieren.ID}, ids)

	ids, err = svc.ShowIDs(ctx, "cowboy beb", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{bebop.ID}, ids)

	// Operators are matched literally.
	ids, err = svc.ShowIDs(ctx, `NOT "cowboy`, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = svc.ShowIDs(ctx, "   ", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, ids)

	// Reindexing replaces the row.
	bebop.Name = "Space Cowboys"
	require.NoError(t, svc.IndexShow(ctx, bebop))
	ids, err = svc.ShowIDs(ctx, "bebop", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, svc.DeleteFromShowIndex(ctx, frieren.ID))
	ids, err = svc.ShowIDs(ctx, "frieren", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRebuildShowIndex(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := context.Background()
	svc := NewService(db)

	show := insertShow(t, db, "Made in Abyss", "Meido in Abisu")

	require.NoError(t, svc.RebuildShowIndex(ctx))
	ids, err := svc.ShowIDs(ctx, "abisu", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{show.ID}, ids)

	// Rebuilding twice does not duplicate rows.
	require.NoError(t, svc.RebuildShowIndex(ctx))
	ids, err = svc.ShowIDs(ctx, "made", 10, 0)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestGlobalSearch(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := context.Background()
	svc := NewService(db)

	show := insertShow(t, db, "Ghost in the Shell")
	require.NoError(t, svc.IndexShow(ctx, show))
	_, err := db.NewInsert().Model(&models.Studio{Slug: "production-ig", Name: "Production I.G"}).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewInsert().Model(&models.Collection{Slug: "ghost-in-the-shell", Name: "Ghost in the Shell Collection"}).Exec(ctx)
	require.NoError(t, err)

	resp, err := svc.GlobalSearch(ctx, "ghost")
	require.NoError(t, err)
	require.Len(t, resp.Shows, 1)
	assert.Equal(t, show.ID, resp.Shows[0].ID)
	assert.Len(t, resp.Collections, 1)
	assert.Empty(t, resp.Studios)
	assert.Empty(t, resp.People)

	resp, err = svc.GlobalSearch(ctx, "production")
	require.NoError(t, err)
	assert.Empty(t, resp.Shows)
	assert.Len(t, resp.Studios, 1)
}
