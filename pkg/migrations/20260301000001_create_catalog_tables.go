package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			CREATE TABLE studios (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				slug TEXT NOT NULL,
				name TEXT NOT NULL
			)
		`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_studios_slug ON studios (slug)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE collections (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				slug TEXT NOT NULL,
				name TEXT NOT NULL,
				overview TEXT
			)
		`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_collections_slug ON collections (slug)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE shows (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				library_id INTEGER REFERENCES libraries (id) ON DELETE SET NULL,
				kind TEXT NOT NULL,
				slug TEXT NOT NULL,
				name TEXT NOT NULL,
				sort_name TEXT NOT NULL,
				aliases TEXT,
				overview TEXT,
				genres TEXT,
				status TEXT NOT NULL DEFAULT 'unknown',
				start_air TIMESTAMPTZ,
				end_air TIMESTAMPTZ,
				studio_id INTEGER REFERENCES studios (id) ON DELETE SET NULL,
				collection_id INTEGER REFERENCES collections (id) ON DELETE SET NULL,
				available_count INTEGER NOT NULL DEFAULT 0
			)
		`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_shows_slug ON shows (slug)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_shows_collection_id ON shows (collection_id)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE seasons (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				show_id INTEGER NOT NULL REFERENCES shows (id) ON DELETE CASCADE,
				season_number INTEGER NOT NULL,
				slug TEXT NOT NULL,
				name TEXT,
				overview TEXT,
				start_air TIMESTAMPTZ,
				end_air TIMESTAMPTZ,
				available_count INTEGER NOT NULL DEFAULT 0
			)
		`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_seasons_slug ON seasons (slug)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_seasons_show_id_season_number ON seasons (show_id, season_number)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE entries (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				kind TEXT NOT NULL,
				show_id INTEGER REFERENCES shows (id) ON DELETE CASCADE,
				slug TEXT NOT NULL,
				name TEXT,
				overview TEXT,
				season_number INTEGER,
				episode_number INTEGER,
				absolute_number INTEGER,
				episode_order REAL,
				extra_kind TEXT,
				air_date TIMESTAMPTZ,
				runtime INTEGER,
				available_since TIMESTAMPTZ
			)
		`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_entries_slug ON entries (slug)`)
		if err != nil {
			return errors.WithStack(err)
		}
		// NULL numbers are folded so that a movie or an unnumbered special is unique per show.
		_, err = db.Exec(`
			CREATE UNIQUE INDEX ux_entries_numbering ON entries (
				show_id,
				COALESCE(season_number, -1),
				COALESCE(episode_number, -1),
				COALESCE(absolute_number, -1)
			) WHERE kind IN ('episode', 'special', 'movie')
		`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_entries_show_id ON entries (show_id)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE people (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				slug TEXT NOT NULL,
				name TEXT NOT NULL
			)
		`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_people_slug ON people (slug)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE show_people (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				show_id INTEGER NOT NULL REFERENCES shows (id) ON DELETE CASCADE,
				person_id INTEGER NOT NULL REFERENCES people (id) ON DELETE CASCADE,
				type TEXT NOT NULL,
				role TEXT
			)
		`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_show_people ON show_people (show_id, person_id, type)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE metadata_ids (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				resource_type TEXT NOT NULL,
				resource_id INTEGER NOT NULL,
				provider_id INTEGER NOT NULL REFERENCES providers (id) ON DELETE CASCADE,
				data_id TEXT NOT NULL,
				link TEXT
			)
		`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_metadata_ids_resource_provider ON metadata_ids (resource_type, resource_id, provider_id)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_metadata_ids_data_id ON metadata_ids (resource_type, provider_id, data_id)`)
		return errors.WithStack(err)
	}

	down := func(_ context.Context, db *bun.DB) error {
		for _, table := range []string{"metadata_ids", "show_people", "people", "entries", "seasons", "shows", "collections", "studios"} {
			_, err := db.Exec("DROP TABLE IF EXISTS " + table)
			if err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	}

	Migrations.MustRegister(up, down)
}
