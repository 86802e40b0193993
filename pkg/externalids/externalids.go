// Package externalids loads and saves the ids a resource has on external metadata
// providers. Every resource kind stores them in the same metadata_ids table, keyed
// by resource type.
package externalids

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shishobooks/kino/pkg/models"
	"github.com/shishobooks/kino/pkg/providers"
	"github.com/uptrace/bun"
)

// Load returns the external ids of the given resources, keyed by resource id and then
// by provider slug. Resources without any id are absent from the result.
func Load(ctx context.Context, db bun.IDB, resourceType string, ids []int) (map[int]map[string]models.ExternalID, error) {
	result := map[int]map[string]models.ExternalID{}
	if len(ids) == 0 {
		return result, nil
	}

	rows := []*models.MetadataID{}
	err := db.
		NewSelect().
		Model(&rows).
		Relation("Provider").
		Where("mi.resource_type = ?", resourceType).
		Where("mi.resource_id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	for _, row := range rows {
		if row.Provider == nil {
			continue
		}
		byProvider, ok := result[row.ResourceID]
		if !ok {
			byProvider = map[string]models.ExternalID{}
			result[row.ResourceID] = byProvider
		}
		byProvider[row.Provider.Slug] = models.ExternalID{
			DataID: row.DataID,
			Link:   row.Link,
		}
	}

	return result, nil
}

// LoadOne returns the external ids of a single resource. The map is never nil.
func LoadOne(ctx context.Context, db bun.IDB, resourceType string, id int) (map[string]models.ExternalID, error) {
	all, err := Load(ctx, db, resourceType, []int{id})
	if err != nil {
		return nil, err
	}
	if ids, ok := all[id]; ok {
		return ids, nil
	}
	return map[string]models.ExternalID{}, nil
}

// Save stores the given ids for a resource. Saving is additive: the id of a provider
// present in ids replaces the stored one, and ids of other providers are kept.
func Save(ctx context.Context, db bun.IDB, resourceType string, resourceID int, ids map[string]models.ExternalID) error {
	if len(ids) == 0 {
		return nil
	}

	providerService := providers.NewService(db)
	now := time.Now()

	for providerSlug, id := range ids {
		if providerSlug == "" || id.DataID == "" {
			continue
		}
		provider, err := providerService.FindOrCreateProvider(ctx, providerSlug, "")
		if err != nil {
			return err
		}

		row := &models.MetadataID{
			CreatedAt:    now,
			UpdatedAt:    now,
			ResourceType: resourceType,
			ResourceID:   resourceID,
			ProviderID:   provider.ID,
			DataID:       id.DataID,
			Link:         id.Link,
		}
		_, err = db.
			NewInsert().
			Model(row).
			On("CONFLICT (resource_type, resource_id, provider_id) DO UPDATE").
			Set("data_id = EXCLUDED.data_id").
			Set("link = EXCLUDED.link").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
	}

	return nil
}

// Delete removes every external id of the given resources.
func Delete(ctx context.Context, db bun.IDB, resourceType string, ids []int) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := db.
		NewDelete().
		Model((*models.MetadataID)(nil)).
		Where("resource_type = ?", resourceType).
		Where("resource_id IN (?)", bun.In(ids)).
		Exec(ctx)
	return errors.WithStack(err)
}

// FindSubset returns the ids of the resources whose external ids include every
// provider/data id pair of want. An empty want matches nothing.
func FindSubset(ctx context.Context, db bun.IDB, resourceType string, want map[string]string) ([]int, error) {
	ids := []int{}
	if len(want) == 0 {
		return ids, nil
	}

	q := db.
		NewSelect().
		Model((*models.MetadataID)(nil)).
		Column("mi.resource_id").
		Join("JOIN providers AS pr ON pr.id = mi.provider_id").
		Where("mi.resource_type = ?", resourceType).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			for providerSlug, dataID := range want {
				q = q.WhereOr("(pr.slug = ? AND mi.data_id = ?)", providerSlug, dataID)
			}
			return q
		}).
		Group("mi.resource_id").
		Having("COUNT(DISTINCT pr.slug) = ?", len(want)).
		Order("mi.resource_id ASC")

	err := q.Scan(ctx, &ids)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return ids, nil
}
