package people

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shishobooks/kino/pkg/database"
	"github.com/shishobooks/kino/pkg/errcodes"
	"github.com/shishobooks/kino/pkg/externalids"
	"github.com/shishobooks/kino/pkg/models"
	"github.com/shishobooks/kino/pkg/slugs"
	"github.com/uptrace/bun"
)

type RetrievePersonOptions struct {
	ID   *int
	Slug *string
	Name *string
}

type ListPeopleOptions struct {
	Limit  *int
	Offset *int
	Search *string

	includeTotal bool
}

type UpdatePersonOptions struct {
	Columns []string
}

type Service struct {
	db bun.IDB
}

func NewService(db bun.IDB) *Service {
	return &Service{db}
}

// CreatePerson inserts a person. An empty slug is derived from the name.
func (svc *Service) CreatePerson(ctx context.Context, person *models.Person) error {
	now := time.Now()
	if person.CreatedAt.IsZero() {
		person.CreatedAt = now
	}
	person.UpdatedAt = person.CreatedAt

	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		slug, err := database.WriteSlug(ctx, tx, "Person", "people.slug", person.Slug, slugs.Base(person.Name), nil, func(ctx context.Context, tx bun.IDB, slug string) error {
			person.Slug = slug
			_, err := tx.NewInsert().Model(person).Returning("*").Exec(ctx)
			return errors.WithStack(err)
		})
		if err != nil {
			return err
		}
		person.Slug = slug

		return externalids.Save(ctx, tx, models.ResourcePerson, person.ID, person.ExternalID)
	})
}

func (svc *Service) RetrievePerson(ctx context.Context, opts RetrievePersonOptions) (*models.Person, error) {
	person := &models.Person{}

	q := svc.db.
		NewSelect().
		Model(person)

	if opts.ID != nil {
		q = q.Where("p.id = ?", *opts.ID)
	}
	if opts.Slug != nil {
		q = q.Where("p.slug = ?", *opts.Slug)
	}
	if opts.Name != nil {
		q = q.Where("LOWER(p.name) = LOWER(?)", *opts.Name)
	}

	err := q.Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Person")
		}
		return nil, errors.WithStack(err)
	}

	person.ExternalID, err = externalids.LoadOne(ctx, svc.db, models.ResourcePerson, person.ID)
	if err != nil {
		return nil, err
	}

	return person, nil
}

// FindOrCreatePerson returns the person matching one of the given external ids, or
// else the person with the given name (case-insensitive), creating one when neither
// exists. External ids are added to an existing person.
func (svc *Service) FindOrCreatePerson(ctx context.Context, name string, ids map[string]models.ExternalID) (*models.Person, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("person name cannot be empty")
	}

	person, err := svc.findByExternalID(ctx, ids)
	if err != nil {
		return nil, err
	}
	if person == nil {
		person, err = svc.RetrievePerson(ctx, RetrievePersonOptions{Name: &name})
		if err != nil && !errors.Is(err, errcodes.NotFound("Person")) {
			return nil, err
		}
	}
	if person != nil {
		if err := externalids.Save(ctx, svc.db, models.ResourcePerson, person.ID, ids); err != nil {
			return nil, err
		}
		person.ExternalID = models.MergeExternalIDs(person.ExternalID, ids)
		return person, nil
	}

	person = &models.Person{Name: name, ExternalID: ids}
	err = svc.CreatePerson(ctx, person)
	if err != nil {
		return nil, err
	}
	return person, nil
}

func (svc *Service) findByExternalID(ctx context.Context, ids map[string]models.ExternalID) (*models.Person, error) {
	for providerSlug, id := range ids {
		matches, err := externalids.FindSubset(ctx, svc.db, models.ResourcePerson, map[string]string{providerSlug: id.DataID})
		if err != nil {
			return nil, err
		}
		if len(matches) > 0 {
			return svc.RetrievePerson(ctx, RetrievePersonOptions{ID: &matches[0]})
		}
	}
	return nil, nil
}

func (svc *Service) ListPeople(ctx context.Context, opts ListPeopleOptions) ([]*models.Person, error) {
	s, _, err := svc.listPeopleWithTotal(ctx, opts)
	return s, errors.WithStack(err)
}

func (svc *Service) ListPeopleWithTotal(ctx context.Context, opts ListPeopleOptions) ([]*models.Person, int, error) {
	opts.includeTotal = true
	return svc.listPeopleWithTotal(ctx, opts)
}

func (svc *Service) listPeopleWithTotal(ctx context.Context, opts ListPeopleOptions) ([]*models.Person, int, error) {
	people := []*models.Person{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&people).
		Order("p.name ASC")

	if opts.Search != nil && *opts.Search != "" {
		q = q.Where("LOWER(p.name) LIKE LOWER(?)", "%"+*opts.Search+"%")
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return people, total, nil
}

// UpdatePerson writes the listed columns. "external_id" adds the person's external
// ids instead of writing a column.
func (svc *Service) UpdatePerson(ctx context.Context, person *models.Person, opts UpdatePersonOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	columns, saveIDs := splitExternalID(opts.Columns)
	person.UpdatedAt = time.Now()
	columns = append(columns, "updated_at")

	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.
			NewUpdate().
			Model(person).
			Column(columns...).
			WherePK().
			Exec(ctx)
		if err != nil {
			if database.IsUniqueViolation(err, "people.slug") {
				return errcodes.DuplicateSlug("Person", person.Slug)
			}
			return errors.WithStack(err)
		}
		if saveIDs {
			return externalids.Save(ctx, tx, models.ResourcePerson, person.ID, person.ExternalID)
		}
		return nil
	})
}

func (svc *Service) DeletePerson(ctx context.Context, personID int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*models.Person)(nil)).
			Where("id = ?", personID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		return externalids.Delete(ctx, tx, models.ResourcePerson, []int{personID})
	})
}

// SetShowCast replaces the cast of a show. Each credit's person is found or created
// from credit.Person.
func (svc *Service) SetShowCast(ctx context.Context, showID int, cast []*models.ShowPerson) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*models.ShowPerson)(nil)).
			Where("show_id = ?", showID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		txService := NewService(tx)
		for _, credit := range cast {
			if credit.Person == nil {
				continue
			}
			person, err := txService.FindOrCreatePerson(ctx, credit.Person.Name, credit.Person.ExternalID)
			if err != nil {
				return err
			}
			credit.ShowID = showID
			credit.PersonID = person.ID
			credit.Person = person
			if credit.Type == "" {
				credit.Type = models.PersonTypeOther
			}
			_, err = tx.NewInsert().
				Model(credit).
				On("CONFLICT (show_id, person_id, type) DO NOTHING").
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	})
}

// ListShowCast returns the credits of a show in the order they were stored.
func (svc *Service) ListShowCast(ctx context.Context, showID int) ([]*models.ShowPerson, error) {
	cast := []*models.ShowPerson{}

	err := svc.db.NewSelect().
		Model(&cast).
		Relation("Person").
		Where("sp.show_id = ?", showID).
		Order("sp.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return cast, nil
}

// ListPersonShows returns the shows a person is credited in.
func (svc *Service) ListPersonShows(ctx context.Context, personID int) ([]*models.Show, error) {
	shows := []*models.Show{}

	err := svc.db.NewSelect().
		Model(&shows).
		Distinct().
		Join("INNER JOIN show_people sp ON sp.show_id = sh.id").
		Where("sp.person_id = ?", personID).
		Order("sh.sort_name ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return shows, nil
}

func splitExternalID(columns []string) ([]string, bool) {
	out := make([]string, 0, len(columns))
	found := false
	for _, c := range columns {
		if c == "external_id" {
			found = true
			continue
		}
		out = append(out, c)
	}
	return out, found
}
