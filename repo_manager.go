package users

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Users() Users
	Sites() Sites
}

type mngr struct {
	db    *bun.DB
	users Users
	sites Sites
}

// NewRepositoryManager wires the Users and Sites repositories over a
// shared bun handle. Options are forwarded to the users repository so
// hosts can attach the confirmation dispatcher.
func NewRepositoryManager(db *bun.DB, config Config, opts ...UsersOption) RepositoryManager {
	return &mngr{
		db:    db,
		users: NewUsersRepository(db, config, opts...),
		sites: NewSitesRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.sites == nil {
		return errors.New("repository sites should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Sites() Sites {
	return m.sites
}
