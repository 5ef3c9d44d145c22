package users

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// CreateUserMessage carries the payload for a transactional account
// creation, including the Save flags for password and confirmation.
type CreateUserMessage struct {
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Username         string `json:"username"`
	Email            string `json:"email"`
	Role             string `json:"role"`
	Password         string `json:"password"`
	IsActive         bool   `json:"is_active"`
	SkipConfirmation bool   `json:"skip_confirmation"`
	UseHashid        bool
	OnResponse       func(user *User)
}

func (e CreateUserMessage) Type() string { return "user.create" }

// CreateUserHandler creates accounts through Users.Save inside a
// transaction.
type CreateUserHandler struct {
	repo RepositoryManager
}

func (h *CreateUserHandler) Execute(ctx context.Context, event CreateUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user creation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *CreateUserHandler) execute(ctx context.Context, event CreateUserMessage) error {
	user := &User{
		FirstName: event.FirstName,
		LastName:  event.LastName,
		Username:  event.Username,
		Email:     event.Email,
		Role:      event.Role,
		IsActive:  event.IsActive,
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	opts := []SaveOption{}
	if event.UseHashid {
		if id, err := hashid.NewUUID(event.Email); err == nil {
			opts = append(opts, WithID(id))
		}
	}
	if event.Password != "" {
		opts = append(opts, WithPassword(event.Password))
	}
	if event.SkipConfirmation {
		opts = append(opts, WithoutConfirmation())
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		saved, err := h.repo.Users().SaveTx(ctx, tx, user, opts...)
		if err != nil {
			if IsDuplicateEmail(err) {
				return err
			}
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}
		user = saved
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "user creation transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}
