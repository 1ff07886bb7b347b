package entries

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"

	"bestsellers/internal/types"
)

const table = "bestseller"

//go:embed schema.sql
var schema string

// EnsureSchema creates the bestseller table when it does not exist yet.
func EnsureSchema(ctx context.Context, pg *pgxpool.Pool) error {
	_, err := pg.Exec(ctx, schema)
	return err
}

func NewPGXRepository(pg *pgxpool.Pool, l *slog.Logger) Repository {
	return &pgxRepo{pg: pg, g: goqu.Dialect("postgres"), l: l}
}

type pgxRepo struct {
	pg *pgxpool.Pool
	g  goqu.DialectWrapper
	l  *slog.Logger
}

type pgxEntry struct {
	Id            int64     `db:"id"`
	Title         string    `db:"title"`
	Author        string    `db:"author"`
	Publisher     string    `db:"publisher"`
	Rank          int       `db:"rank"`
	PublishedDate time.Time `db:"published_date"`
}

func (e *pgxEntry) intoCommon() types.Entry {
	return types.Entry{
		Id:            e.Id,
		Title:         e.Title,
		Author:        e.Author,
		Publisher:     e.Publisher,
		Rank:          e.Rank,
		PublishedDate: types.DateOf(e.PublishedDate),
	}
}

func (p *pgxRepo) GetAll(ctx context.Context) ([]types.Entry, error) {
	sql, params, err := p.g.From(table).
		Select("id", "title", "author", "publisher", "rank", "published_date").
		Order(goqu.C("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var rows []pgxEntry

	err = pgxscan.Select(ctx, p.pg, &rows, sql, params...)
	if err != nil {
		return nil, err
	}

	ret := make([]types.Entry, 0, len(rows))
	for _, row := range rows {
		if row.Rank < 1 {
			p.l.WarnContext(ctx, "Skipping entry with non-positive rank stored in DB", slog.Int64("id", row.Id))
			continue
		}

		ret = append(ret, row.intoCommon())
	}

	return ret, nil
}

func (p *pgxRepo) Save(ctx context.Context, entries ...types.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	rows := make([]any, 0, len(entries))
	for _, e := range entries {
		if e.Id < 1 {
			return fmt.Errorf("entry %q of %s has no id", e.Title, e.PublishedDate)
		}

		rows = append(rows, pgxEntry{
			Id:            e.Id,
			Title:         e.Title,
			Author:        e.Author,
			Publisher:     e.Publisher,
			Rank:          e.Rank,
			PublishedDate: e.PublishedDate.Time(),
		})
	}

	sql, params, err := p.g.Insert(table).
		Rows(rows...).
		OnConflict(goqu.DoUpdate("id", map[string]any{
			"title":          goqu.L("excluded.title"),
			"author":         goqu.L("excluded.author"),
			"publisher":      goqu.L("excluded.publisher"),
			"rank":           goqu.L("excluded.rank"),
			"published_date": goqu.L("excluded.published_date"),
		})).
		ToSQL()
	if err != nil {
		return err
	}

	_, err = p.pg.Exec(ctx, sql, params...)
	return err
}

func (p *pgxRepo) Prune(ctx context.Context, lastId int64) (int64, error) {
	sql, params, err := p.g.Delete(table).
		Where(goqu.C("id").Gt(lastId)).
		ToSQL()
	if err != nil {
		return 0, err
	}

	tag, err := p.pg.Exec(ctx, sql, params...)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

func (p *pgxRepo) Count(ctx context.Context) (int64, error) {
	sql, params, err := p.g.From(table).
		Select(goqu.COUNT("*")).
		ToSQL()
	if err != nil {
		return 0, err
	}

	var n int64
	err = p.pg.QueryRow(ctx, sql, params...).Scan(&n)
	return n, err
}
