// Package directory_repo reads the employee records system's PostgreSQL
// tables: entity abbreviations, existing employee numbers.
// The tables are owned by that system; this package never writes to them.
package directory_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"staffnum/internal/core/pattern"
	"staffnum/internal/domain/employeeid"
	"staffnum/internal/infrastructure/storage/postgres"
)

// entityTable maps an entity kind to its table and abbreviation column.
type entityTable struct {
	table      string
	abbrColumn string
}

var entityTables = map[pattern.Entity]entityTable{
	pattern.EntityCompany:        {table: "companies", abbrColumn: "abbr"},
	pattern.EntityDepartment:     {table: "departments", abbrColumn: "custom_abbr"},
	pattern.EntityBranch:         {table: "branches", abbrColumn: "custom_abbr"},
	pattern.EntityEmploymentType: {table: "employment_types", abbrColumn: "custom_abbr"},
}

const (
	employeesTable = "employees"
	numberColumn   = "employee_number"
)

// QuerierSource returns the querier for ctx. *postgres.TxManager satisfies it.
type QuerierSource interface {
	GetQuerier(ctx context.Context) postgres.Querier
}

// DirectoryRepo implements employeeid.Directory over PostgreSQL.
type DirectoryRepo struct {
	source QuerierSource
}

// Ensure compile-time interface compliance.
var _ employeeid.Directory = (*DirectoryRepo)(nil)

// NewDirectoryRepo creates a new directory repository.
func NewDirectoryRepo(source QuerierSource) *DirectoryRepo {
	return &DirectoryRepo{source: source}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *DirectoryRepo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func tableFor(kind pattern.Entity) (entityTable, error) {
	t, ok := entityTables[kind]
	if !ok {
		return entityTable{}, fmt.Errorf("unknown entity kind %q", kind)
	}
	return t, nil
}

// Abbreviation implements employeeid.AbbreviationSource.
func (r *DirectoryRepo) Abbreviation(ctx context.Context, kind pattern.Entity, name string) (string, error) {
	t, err := tableFor(kind)
	if err != nil {
		return "", err
	}

	sql, args, err := r.Builder().
		Select(fmt.Sprintf("COALESCE(%s, '')", t.abbrColumn)).
		From(t.table).
		Where(squirrel.Eq{"name": name}).
		Limit(1).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build select: %w", err)
	}

	var abbr string
	err = r.source.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&abbr)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("select %s abbreviation: %w", t.table, err)
	}
	return abbr, nil
}

// Exists implements employeeid.UniquenessChecker.
func (r *DirectoryRepo) Exists(ctx context.Context, number string, ignoreCase bool) (bool, error) {
	var cond squirrel.Sqlizer = squirrel.Eq{numberColumn: number}
	if ignoreCase {
		cond = squirrel.Expr("lower("+numberColumn+") = lower(?)", number)
	}

	sub, args, err := r.Builder().
		Select("1").
		From(employeesTable).
		Where(cond).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build select: %w", err)
	}

	var exists bool
	err = r.source.GetQuerier(ctx).QueryRow(ctx, "SELECT EXISTS ("+sub+")", args...).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check employee number: %w", err)
	}
	return exists, nil
}

// Entities implements employeeid.EntityLister.
func (r *DirectoryRepo) Entities(ctx context.Context, kind pattern.Entity) ([]employeeid.DirectoryEntry, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	sql, args, err := r.Builder().
		Select("name", fmt.Sprintf("COALESCE(%s, '') AS abbreviation", t.abbrColumn)).
		From(t.table).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var entries []employeeid.DirectoryEntry
	if err := pgxscan.Select(ctx, r.source.GetQuerier(ctx), &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", t.table, err)
	}
	return entries, nil
}

// Numbers implements employeeid.NumberLister.
func (r *DirectoryRepo) Numbers(ctx context.Context) ([]string, error) {
	sql, args, err := r.Builder().
		Select(numberColumn).
		From(employeesTable).
		Where(squirrel.And{
			squirrel.NotEq{numberColumn: nil},
			squirrel.NotEq{numberColumn: ""},
		}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var numbers []string
	if err := pgxscan.Select(ctx, r.source.GetQuerier(ctx), &numbers, sql, args...); err != nil {
		return nil, fmt.Errorf("select employee numbers: %w", err)
	}
	return numbers, nil
}
