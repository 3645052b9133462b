package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-admin-api/internal/lifecycle"
	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/pkg/database"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// page normalises paging input into limit and offset.
func page(pageNum, size int) (limit, offset int) {
	if pageNum < 1 {
		pageNum = 1
	}
	if size <= 0 || size > maxPageSize {
		size = defaultPageSize
	}
	return size, (pageNum - 1) * size
}

func sortClause(sortBy, order, fallback string, allowed map[string]bool) string {
	if sortBy == "" || !allowed[sortBy] {
		sortBy = fallback
	}
	order = strings.ToUpper(order)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	return sortBy + " " + order
}

// listNames returns the names of every row of table sharing a parent.
func listNames(ctx context.Context, db sqlx.QueryerContext, table, nameColumn, parentColumn, parentID string) ([]lifecycle.Named, error) {
	query := fmt.Sprintf("SELECT id, %s AS name FROM %s WHERE %s = $1", nameColumn, table, parentColumn)
	var names []lifecycle.Named
	if err := sqlx.SelectContext(ctx, db, &names, query, parentID); err != nil {
		return nil, fmt.Errorf("list %s names: %w", table, err)
	}
	return names, nil
}

// countWhere counts rows of table where column equals value.
func countWhere(ctx context.Context, db sqlx.QueryerContext, table, column, value string) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = $1", table, column)
	var count int
	if err := sqlx.GetContext(ctx, db, &count, query, value); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return count, nil
}

// exists runs a SELECT 1 query and maps sql.ErrNoRows to false.
func exists(ctx context.Context, db sqlx.QueryerContext, query string, args ...interface{}) (bool, error) {
	var one int
	if err := sqlx.GetContext(ctx, db, &one, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// deleteByID removes a single row and reports sql.ErrNoRows when nothing matched.
func deleteByID(ctx context.Context, db sqlx.ExecerContext, table, id string) error {
	res, err := db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// deleteGuard describes the checks a hierarchy row must pass before removal.
type deleteGuard struct {
	table string
	// hasStatus marks tables whose Active rows may not be deleted.
	hasStatus bool
	// children counts the rows that reference id; $1 is the only placeholder.
	children string
}

// guardedDelete locks the row, recounts its children and deletes it in one
// transaction. A child insert needs a key share lock on the parent row, so no
// child can appear between the count and the delete. Returns sql.ErrNoRows,
// lifecycle.ErrActiveRecord or lifecycle.ErrHasChildren unwrapped.
func guardedDelete(ctx context.Context, db *sqlx.DB, g deleteGuard, id string) error {
	return database.WithTx(ctx, db, func(tx *sqlx.Tx) error {
		column := "id"
		if g.hasStatus {
			column = "status"
		}
		var locked string
		lock := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1 FOR UPDATE", column, g.table)
		if err := tx.GetContext(ctx, &locked, lock, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sql.ErrNoRows
			}
			return fmt.Errorf("lock %s: %w", g.table, err)
		}

		var status models.PeriodStatus
		if g.hasStatus {
			status = models.PeriodStatus(locked)
		}
		var children int
		if g.children != "" {
			if err := tx.GetContext(ctx, &children, g.children, id); err != nil {
				return fmt.Errorf("count %s children: %w", g.table, err)
			}
		}
		if err := lifecycle.CheckDeletable(status, children); err != nil {
			return err
		}

		query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", g.table)
		args := []interface{}{id}
		if g.hasStatus {
			query += " AND status <> $2"
			args = append(args, string(models.StatusActive))
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("delete %s: %w", g.table, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}
