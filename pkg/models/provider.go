package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Resource types that can carry external ids.
const (
	ResourceShow       = "show"
	ResourceSeason     = "season"
	ResourceEntry      = "entry"
	ResourceCollection = "collection"
	ResourceStudio     = "studio"
	ResourcePerson     = "person"
)

type Provider struct {
	bun.BaseModel `bun:"table:providers,alias:pr"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Slug      string    `bun:",nullzero" json:"slug"`
	Name      string    `bun:",nullzero" json:"name"`
	Logo      *string   `json:"logo,omitempty"`
}

// MetadataID is the stored row linking a resource to its id on one provider.
type MetadataID struct {
	bun.BaseModel `bun:"table:metadata_ids,alias:mi"`

	ID           int       `bun:",pk,nullzero" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	ResourceType string    `bun:",nullzero" json:"resource_type"`
	ResourceID   int       `bun:",nullzero" json:"resource_id"`
	ProviderID   int       `bun:",nullzero" json:"provider_id"`
	Provider     *Provider `bun:"rel:belongs-to" json:"provider,omitempty"`
	DataID       string    `bun:",nullzero" json:"data_id"`
	Link         *string   `json:"link,omitempty"`
}

// ExternalID is the value side of a resource's external id map, keyed by
// provider slug.
type ExternalID struct {
	DataID string  `json:"data_id"`
	Link   *string `json:"link,omitempty"`
}

// MergeExternalIDs adds every id of src that dst does not already have.
// Existing keys in dst are never replaced.
func MergeExternalIDs(dst, src map[string]ExternalID) map[string]ExternalID {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]ExternalID, len(src))
	}
	for k, v := range src {
		if _, ok := dst[k]; !ok {
			dst[k] = v
		}
	}
	return dst
}
