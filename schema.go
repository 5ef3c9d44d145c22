package users

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// CreateTables creates the users and sites tables. The unique
// constraints on email and username come from the model tags, so the
// storage layer backs the application level uniqueness checks.
func CreateTables(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*User)(nil),
		(*Site)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create table")
		}
	}

	return nil
}

// DropTables removes the package tables. Test helper, mirrors CreateTables.
func DropTables(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*User)(nil),
		(*Site)(nil),
	}

	for _, model := range models {
		if _, err := db.NewDropTable().
			Model(model).
			IfExists().
			Exec(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to drop table")
		}
	}

	return nil
}
