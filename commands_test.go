package users

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, confirmer AccountConfirmer) RepositoryManager {
	t.Helper()
	db := newTestDB(t)
	repo := NewRepositoryManager(db, testSettings(), WithUsersConfirmer(confirmer))
	repo.MustValidate()
	return repo
}

func TestCreateUserHandler(t *testing.T) {
	ctx := context.Background()
	confirmer := &stubConfirmer{}
	repo := newTestManager(t, confirmer)

	var created *User
	handler := CreateUserHandler{repo: repo}
	err := handler.Execute(ctx, CreateUserMessage{
		FirstName: "Pepe",
		LastName:  "Rone",
		Email:     "pepe.rone@example.com",
		Password:  "super-secret-pw",
		IsActive:  true,
		OnResponse: func(user *User) {
			created = user
		},
	})
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "pepe.rone@example.com", created.Email)
	assert.Len(t, confirmer.calls, 1)
}

func TestCreateUserHandlerDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := newTestManager(t, &stubConfirmer{})

	handler := CreateUserHandler{repo: repo}
	msg := CreateUserMessage{Email: "a@x.com", SkipConfirmation: true}

	require.NoError(t, handler.Execute(ctx, msg))

	err := handler.Execute(ctx, msg)
	require.Error(t, err)
	assert.True(t, IsDuplicateEmail(err))

	records, listErr := repo.Users().List(ctx)
	require.NoError(t, listErr)
	assert.Len(t, records, 1)
}

func TestCreateUserHandlerHashid(t *testing.T) {
	ctx := context.Background()
	repo := newTestManager(t, &stubConfirmer{})

	var created *User
	handler := CreateUserHandler{repo: repo}
	err := handler.Execute(ctx, CreateUserMessage{
		Email:            "a@x.com",
		SkipConfirmation: true,
		UseHashid:        true,
		OnResponse: func(user *User) {
			created = user
		},
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.NotEqual(t, uuid.Nil, created.ID)
}

func TestCreateUserHandlerCancelledContext(t *testing.T) {
	repo := newTestManager(t, &stubConfirmer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	handler := CreateUserHandler{repo: repo}
	err := handler.Execute(ctx, CreateUserMessage{Email: "a@x.com"})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, goerrors.CategoryOperation, richErr.Category)
}

func TestSendConfirmationHandler(t *testing.T) {
	ctx := context.Background()
	confirmer := &stubConfirmer{}
	repo := newTestManager(t, confirmer)

	first, err := repo.Users().Save(ctx, &User{Email: "a@x.com"}, WithoutConfirmation())
	require.NoError(t, err)
	second, err := repo.Users().Save(ctx, &User{Email: "b@x.com"}, WithoutConfirmation())
	require.NoError(t, err)

	var resp *SendConfirmationResponse
	handler := SendConfirmationHandler{repo: repo, confirmer: confirmer}
	err = handler.Execute(ctx, SendConfirmationMessage{
		UserIDs: []uuid.UUID{first.ID, second.ID},
		OnResponse: func(r *SendConfirmationResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 2, resp.Sent)
	assert.Equal(t, []uuid.UUID{first.ID, second.ID}, confirmer.calls)
}

func TestSendConfirmationHandlerAbortsOnFailure(t *testing.T) {
	ctx := context.Background()
	repo := newTestManager(t, &stubConfirmer{})

	saved, err := repo.Users().Save(ctx, &User{Email: "a@x.com"}, WithoutConfirmation())
	require.NoError(t, err)

	failing := &stubConfirmer{err: goerrors.New("relay down", goerrors.CategoryExternal)}
	handler := SendConfirmationHandler{repo: repo, confirmer: failing}

	responded := false
	err = handler.Execute(ctx, SendConfirmationMessage{
		UserIDs: []uuid.UUID{saved.ID},
		OnResponse: func(*SendConfirmationResponse) {
			responded = true
		},
	})
	require.Error(t, err)
	assert.False(t, responded, "the loop aborts without reporting a count")
}

func TestSendConfirmationHandlerUnknownUser(t *testing.T) {
	ctx := context.Background()
	repo := newTestManager(t, &stubConfirmer{})

	handler := SendConfirmationHandler{repo: repo, confirmer: &stubConfirmer{}}
	err := handler.Execute(ctx, SendConfirmationMessage{
		UserIDs: []uuid.UUID{uuid.New()},
	})
	require.Error(t, err)
}
