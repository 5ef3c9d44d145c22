package users

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountConfirmer dispatches the confirmation email for a user. It is
// satisfied by *Confirmer; tests plug in stubs.
type AccountConfirmer interface {
	ConfirmAccount(ctx context.Context, user *User, opts ...ConfirmOption) error
}

// Users is the account repository. Save carries the create/update
// lifecycle: defaults, uniqueness enforcement and confirmation dispatch.
type Users interface {
	Save(ctx context.Context, user *User, opts ...SaveOption) (*User, error)
	SaveTx(ctx context.Context, tx bun.IDB, user *User, opts ...SaveOption) (*User, error)

	GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error)
	GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*User, error)

	EmailTaken(ctx context.Context, email string, exclude uuid.UUID) (bool, error)
	List(ctx context.Context) ([]*User, error)
	SetActive(ctx context.Context, ids []uuid.UUID, active bool) (int64, error)

	Delete(ctx context.Context, id uuid.UUID) error
	DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
	DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error)
}

type saveOptions struct {
	password         string
	sendConfirmation bool
	id               uuid.UUID
}

// SaveOption tweaks a single Save call.
type SaveOption func(*saveOptions)

// WithPassword sets the cleartext password to hash on create. Without it
// new accounts get an unusable password until the confirmation link is used.
func WithPassword(password string) SaveOption {
	return func(o *saveOptions) {
		o.password = password
	}
}

// WithoutConfirmation suppresses the confirmation email on create.
func WithoutConfirmation() SaveOption {
	return func(o *saveOptions) {
		o.sendConfirmation = false
	}
}

// WithID assigns a caller provided id on create, e.g. a deterministic
// hashid derived from the email.
func WithID(id uuid.UUID) SaveOption {
	return func(o *saveOptions) {
		o.id = id
	}
}

type usersRepo struct {
	repository.Repository[*User]
	db        *bun.DB
	config    Config
	confirmer AccountConfirmer
	logger    Logger
}

var _ Users = (*usersRepo)(nil)

// UsersOption configures the users repository.
type UsersOption func(*usersRepo)

// WithUsersConfirmer wires the confirmation email dispatcher used on create.
func WithUsersConfirmer(c AccountConfirmer) UsersOption {
	return func(u *usersRepo) {
		u.confirmer = c
	}
}

// WithUsersLogger sets the repository logger.
func WithUsersLogger(l Logger) UsersOption {
	return func(u *usersRepo) {
		if l != nil {
			u.logger = l
		}
	}
}

// NewUsersRepository builds the Users repository over bun.
func NewUsersRepository(db *bun.DB, config Config, opts ...UsersOption) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	repoUsers := &usersRepo{
		Repository: repo,
		db:         db,
		config:     config,
		logger:     defaultLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoUsers)
		}
	}

	return repoUsers
}

func (a *usersRepo) Save(ctx context.Context, user *User, opts ...SaveOption) (*User, error) {
	return a.SaveTx(ctx, a.db, user, opts...)
}

// SaveTx persists the user. On create it hashes the supplied password or
// assigns an unusable one, stamps the configured staff default, fills a
// blank username with a 30 character hex token and, once the row is in,
// dispatches the confirmation email when the account is active and the
// caller did not suppress it. Every save lowercases the username and
// re-validates that no other row holds the same email.
func (a *usersRepo) SaveTx(ctx context.Context, tx bun.IDB, user *User, opts ...SaveOption) (*User, error) {
	options := saveOptions{sendConfirmation: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	creating := user.ID == uuid.Nil

	if creating {
		if options.password == "" {
			user.PasswordHash = UnusablePassword()
		} else {
			hash, err := HashPassword(options.password)
			if err != nil {
				return nil, err
			}
			user.PasswordHash = hash
		}

		user.IsStaff = a.config.GetStaffDefault()

		if user.Username == "" {
			user.Username = randomUsername()
		}
		if user.Role == "" {
			user.Role = RoleMember
		}
	}

	user.Username = strings.ToLower(user.Username)

	taken, err := a.emailTakenTx(ctx, tx, user.Email, user.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, NewDuplicateEmailError(user.Email)
	}

	var saved *User
	if creating {
		if options.id != uuid.Nil {
			user.ID = options.id
		} else {
			user.ID = uuid.New()
		}
		saved, err = a.Repository.CreateTx(ctx, tx, user)
	} else {
		saved, err = a.Repository.UpdateTx(ctx, tx, user, repository.UpdateByID(user.ID.String()))
	}
	if err != nil {
		return nil, err
	}

	if creating && saved.IsActive && options.sendConfirmation && a.confirmer != nil {
		// mail failures propagate unmodified, the row stays saved
		if err := a.confirmer.ConfirmAccount(ctx, saved); err != nil {
			return saved, err
		}
	}

	return saved, nil
}

func (a *usersRepo) EmailTaken(ctx context.Context, email string, exclude uuid.UUID) (bool, error) {
	return a.emailTakenTx(ctx, a.db, email, exclude)
}

func (a *usersRepo) emailTakenTx(ctx context.Context, tx bun.IDB, email string, exclude uuid.UUID) (bool, error) {
	q := tx.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.email = ?", email)

	if exclude != uuid.Nil {
		q = q.Where("?TableAlias.id != ?", exclude)
	}

	count, err := q.Count(ctx)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (a *usersRepo) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier, criteria...)
}

func (a *usersRepo) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	options := resolveUserIdentifier(identifier)
	if len(options) == 0 {
		options = []identifierOption{
			{
				column: "id",
				value:  strings.TrimSpace(identifier),
			},
		}
	}

	for _, opt := range options {
		record := &User{}
		q := tx.NewSelect().Model(record)

		for _, c := range criteria {
			q.Apply(c)
		}

		err := q.
			Where(fmt.Sprintf("?TableAlias.%s = ?", opt.column), opt.value).
			Limit(1).
			Scan(ctx)

		if err != nil {
			if repository.IsRecordNotFound(err) {
				continue
			}
			return nil, err
		}

		return record, nil
	}

	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			"identifier": identifier,
		})
}

func (a *usersRepo) List(ctx context.Context) ([]*User, error) {
	records := []*User{}
	err := a.db.NewSelect().
		Model(&records).
		Order("username ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (a *usersRepo) SetActive(ctx context.Context, ids []uuid.UUID, active bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	res, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("is_active = ?", active).
		Where("?TableAlias.id IN (?)", bun.In(ids)).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (a *usersRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return a.DeleteTx(ctx, a.db, id)
}

func (a *usersRepo) DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*User)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	return err
}

func (a *usersRepo) DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	res, err := a.db.NewDelete().
		Model((*User)(nil)).
		Where("?TableAlias.id IN (?)", bun.In(ids)).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// randomUsername returns a 30 character lowercase hex token, assigned
// when an account is created without an explicit username.
func randomUsername() string {
	id := uuid.New()
	return strings.ReplaceAll(id.String(), "-", "")[:30]
}

type identifierOption struct {
	column string
	value  string
}

func resolveUserIdentifier(identifier string) []identifierOption {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil
	}

	options := make([]identifierOption, 0, 3)

	if isUUID(trimmed) {
		options = append(options, identifierOption{
			column: "id",
			value:  trimmed,
		})
	}

	if isEmail(trimmed) {
		options = append(options, identifierOption{
			column: "email",
			value:  trimmed,
		})
	}

	options = append(options, identifierOption{
		column: "username",
		value:  trimmed,
	})

	return options
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func isUUID(identifier string) bool {
	_, err := uuid.Parse(identifier)
	return err == nil
}
