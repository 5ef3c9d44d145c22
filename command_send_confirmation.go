package users

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// SendConfirmationMessage requests confirmation email for a set of
// accounts, typically an admin changelist selection.
type SendConfirmationMessage struct {
	UserIDs    []uuid.UUID `json:"user_ids"`
	OnResponse func(resp *SendConfirmationResponse)
}

func (e SendConfirmationMessage) Type() string { return "user.send_confirmation" }

// SendConfirmationResponse reports how many messages went out before the
// loop finished or aborted.
type SendConfirmationResponse struct {
	Sent int `json:"sent"`
}

// SendConfirmationHandler resolves each account and dispatches its
// confirmation email. A mail failure aborts the loop; accounts already
// processed keep their sent message, there is no partial completion
// bookkeeping beyond the count.
type SendConfirmationHandler struct {
	repo      RepositoryManager
	confirmer AccountConfirmer
}

func (h *SendConfirmationHandler) Execute(ctx context.Context, event SendConfirmationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during confirmation dispatch",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SendConfirmationHandler) execute(ctx context.Context, event SendConfirmationMessage) error {
	resp := &SendConfirmationResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*30)
	defer cancel()

	for _, id := range event.UserIDs {
		user, err := h.repo.Users().GetByIdentifier(ctx, id.String())
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve user for confirmation").
				WithMetadata(map[string]any{"user_id": id.String()})
		}

		if err := h.confirmer.ConfirmAccount(ctx, user); err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return richErr
			}
			return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to send account confirmation").
				WithMetadata(map[string]any{"user_id": id.String()})
		}

		resp.Sent++
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
