package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slugsOf(providers []Provider) []string {
	out := []string{}
	for _, p := range providers {
		out = append(out, p.Slug())
	}
	return out
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry(nil)

	require.NoError(t, r.Register(&fakeProvider{slug: "tmdb"}))
	assert.Error(t, r.Register(&fakeProvider{slug: "tmdb"}))
	assert.Error(t, r.Register(&fakeProvider{slug: ""}))

	p, ok := r.Get("tmdb")
	require.True(t, ok)
	assert.Equal(t, "tmdb", p.Slug())

	_, ok = r.Get("tvdb")
	assert.False(t, ok)
}

func TestRegistry_Ordered(t *testing.T) {
	r := NewRegistry([]string{"tvdb", "missing"})
	for _, slug := range []string{"tmdb", "anidb", "tvdb"} {
		require.NoError(t, r.Register(&fakeProvider{slug: slug}))
	}

	tests := []struct {
		name     string
		selected []string
		want     []string
	}{
		{"default order first then registration order", nil, []string{"tvdb", "tmdb", "anidb"}},
		{"library selection is used as is", []string{"anidb", "tmdb"}, []string{"anidb", "tmdb"}},
		{"unknown slugs are ignored", []string{"nope", "tmdb"}, []string{"tmdb"}},
		{"repeated slugs are ignored", []string{"tmdb", "tmdb", "tvdb"}, []string{"tmdb", "tvdb"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, slugsOf(r.Ordered(tt.selected)))
		})
	}

	assert.Equal(t, []string{"tvdb", "tmdb", "anidb"}, r.Slugs())
}
