package users

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
	"github.com/google/uuid"
)

// Admin bulk action identifiers, matching the changelist action select.
const (
	ActionSendConfirmation = "send_account_confirmation"
	ActionSetActive        = "set_active"
	ActionSetInactive      = "set_inactive"
	ActionDeleteSelected   = "delete_selected"
)

// Fieldset groups change form fields under a label.
type Fieldset struct {
	Label  string
	Fields []string
}

// UserAdminFieldsets is the change form layout: profile data first,
// credentials second.
func UserAdminFieldsets() []Fieldset {
	return []Fieldset{
		{Label: "User data", Fields: []string{"first_name", "last_name"}},
		{Label: "Credentials", Fields: []string{"username", "email", "is_active", "role"}},
	}
}

// UserAdminListColumns are the changelist columns.
var UserAdminListColumns = []string{"username", "created_at", "is_active"}

// CurrentUserKey is the router local the default CurrentUser resolver
// reads the acting user id from. Hosts normally set it from their auth
// middleware.
var CurrentUserKey = "current_user_id"

// AdminControllerRoutes are the staff admin paths.
type AdminControllerRoutes struct {
	Changelist string
	Add        string
	Change     string
	Delete     string
	Action     string
}

// AdminControllerViews are the template names rendered by the admin.
type AdminControllerViews struct {
	Changelist    string
	Change        string
	Add           string
	DeleteConfirm string
}

// AdminController is the staff facing management surface: changelist,
// change/add forms and bulk actions. Every delete entry point refuses to
// remove the acting user.
type AdminController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Confirmer    AccountConfirmer
	Routes       *AdminControllerRoutes
	Views        *AdminControllerViews
	ErrorHandler router.ErrorHandler
	CurrentUser  func(router.Context) (uuid.UUID, error)
}

// AdminControllerOption configures the controller.
type AdminControllerOption func(*AdminController) *AdminController

// WithAdminRepo sets the repository manager.
func WithAdminRepo(repo RepositoryManager) AdminControllerOption {
	return func(c *AdminController) *AdminController {
		c.Repo = repo
		return c
	}
}

// WithAdminConfirmer sets the confirmation dispatcher for bulk sends.
func WithAdminConfirmer(confirmer AccountConfirmer) AdminControllerOption {
	return func(c *AdminController) *AdminController {
		c.Confirmer = confirmer
		return c
	}
}

// WithAdminLogger sets the logger.
func WithAdminLogger(l Logger) AdminControllerOption {
	return func(c *AdminController) *AdminController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

// WithAdminCurrentUser overrides how the acting user id is resolved.
func WithAdminCurrentUser(fn func(router.Context) (uuid.UUID, error)) AdminControllerOption {
	return func(c *AdminController) *AdminController {
		if fn != nil {
			c.CurrentUser = fn
		}
		return c
	}
}

// NewAdminController creates the staff admin controller.
func NewAdminController(opts ...AdminControllerOption) *AdminController {
	c := &AdminController{
		Logger:       defaultLogger(),
		ErrorHandler: defaultErrHandler,
		CurrentUser:  currentUserFromLocals,
		Routes: &AdminControllerRoutes{
			Changelist: "/admin/users",
			Add:        "/admin/users/new",
			Change:     "/admin/users/:id",
			Delete:     "/admin/users/:id/delete",
			Action:     "/admin/users/actions",
		},
		Views: &AdminControllerViews{
			Changelist:    "admin/users/changelist",
			Change:        "admin/users/change",
			Add:           "admin/users/add",
			DeleteConfirm: "admin/users/delete_confirm",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in users admin controller...")
	}

	if c.Confirmer == nil {
		panic("Missing AccountConfirmer in users admin controller...")
	}

	return c
}

// RegisterAdminRoutes mounts the staff admin on the host router.
func RegisterAdminRoutes[T any](app router.Router[T], opts ...AdminControllerOption) {
	controller := NewAdminController(opts...)

	app.Get(controller.Routes.Changelist, controller.Changelist).
		SetName("users.admin.changelist")

	app.Get(controller.Routes.Add, controller.AddShow).
		SetName("users.admin.add.get")
	app.Post(controller.Routes.Add, controller.AddPost).
		SetName("users.admin.add.post")

	app.Get(controller.Routes.Change, controller.ChangeShow).
		SetName("users.admin.change.get")
	app.Post(controller.Routes.Change, controller.ChangePost).
		SetName("users.admin.change.post")

	app.Get(controller.Routes.Delete, controller.DeleteView).
		SetName("users.admin.delete.get")
	app.Post(controller.Routes.Delete, controller.DeletePost).
		SetName("users.admin.delete.post")

	app.Post(controller.Routes.Action, controller.Action).
		SetName("users.admin.actions")
}

func (a *AdminController) Changelist(ctx router.Context) error {
	records, err := a.Repo.Users().List(ctx.Context())
	if err != nil {
		a.Logger.Error("admin changelist query: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.Render(a.Views.Changelist, router.ViewContext{
		"users":   records,
		"columns": UserAdminListColumns,
		"actions": []string{
			ActionSendConfirmation,
			ActionSetActive,
			ActionSetInactive,
			ActionDeleteSelected,
		},
	})
}

func (a *AdminController) AddShow(ctx router.Context) error {
	return ctx.Render(a.Views.Add, router.ViewContext{
		"record":    NewUserForm(nil),
		"fieldsets": UserAdminFieldsets(),
		"errors":    map[string]string{},
	})
}

func (a *AdminController) AddPost(ctx router.Context) error {
	payload := new(UserForm)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("admin add parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Add, router.ViewContext{
			"record":    payload,
			"fieldsets": UserAdminFieldsets(),
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("admin add validate payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Add, router.ViewContext{
			"record":     payload,
			"fieldsets":  UserAdminFieldsets(),
			"validation": formatValidationErrors(err),
		})
	}

	if a.Debug {
		fmt.Println("======= ADMIN ADD USER ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=============================")
	}

	var created *User
	req := CreateUserMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Username:  payload.Username,
		Email:     payload.Email,
		Role:      payload.Role,
		Password:  payload.Password,
		IsActive:  payload.IsActive,
		OnResponse: func(user *User) {
			created = user
		},
	}

	createUser := CreateUserHandler{repo: a.Repo}
	if err := createUser.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("admin add execute: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error creating user",
		}).Render(a.Views.Add, router.ViewContext{
			"record":    payload,
			"fieldsets": UserAdminFieldsets(),
			"errors":    []string{err.Error()},
		})
	}

	// the confirmation email itself went out in Users.Save
	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": fmt.Sprintf("We just sent out a confirmation email to %s", created.Email),
	}).Redirect(a.Routes.Changelist, fiber.StatusSeeOther)
}

func (a *AdminController) ChangeShow(ctx router.Context) error {
	record, err := a.Repo.Users().GetByIdentifier(ctx.Context(), ctx.Param("id", ""))
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.Render(a.Views.Change, router.ViewContext{
		"record":    NewUserForm(record),
		"user":      record,
		"fieldsets": UserAdminFieldsets(),
		"errors":    map[string]string{},
	})
}

func (a *AdminController) ChangePost(ctx router.Context) error {
	record, err := a.Repo.Users().GetByIdentifier(ctx.Context(), ctx.Param("id", ""))
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(UserForm)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("admin change parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Change, router.ViewContext{
			"record":    payload,
			"user":      record,
			"fieldsets": UserAdminFieldsets(),
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("admin change validate payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Change, router.ViewContext{
			"record":     payload,
			"user":       record,
			"fieldsets":  UserAdminFieldsets(),
			"validation": formatValidationErrors(err),
		})
	}

	payload.Apply(record)

	if _, err := a.Repo.Users().Save(ctx.Context(), record); err != nil {
		a.Logger.Error("admin change save: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error saving user",
		}).Render(a.Views.Change, router.ViewContext{
			"record":    payload,
			"user":      record,
			"fieldsets": UserAdminFieldsets(),
			"errors":    []string{err.Error()},
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": fmt.Sprintf("Saved user %s", record.Username),
	}).Redirect(a.Routes.Changelist, fiber.StatusSeeOther)
}

// DeleteModel removes target unless it is the acting user. The guard
// compares canonical ids; there is no permission based shortcut around it.
func (a *AdminController) DeleteModel(ctx context.Context, acting uuid.UUID, target *User) error {
	if target == nil {
		return goerrors.New("missing delete target", goerrors.CategoryBadInput)
	}

	if acting == target.ID {
		return ErrSelfDelete
	}

	return a.Repo.Users().Delete(ctx, target.ID)
}

// DeleteView is the single object delete confirmation page. A user
// landing here for their own record is turned away before anything
// renders.
func (a *AdminController) DeleteView(ctx router.Context) error {
	me, err := a.CurrentUser(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	record, err := a.Repo.Users().GetByIdentifier(ctx.Context(), ctx.Param("id", ""))
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if record.ID == me {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": "You cannot delete yourself!",
		}).Redirect(a.Routes.Changelist, fiber.StatusSeeOther)
	}

	return ctx.Render(a.Views.DeleteConfirm, router.ViewContext{
		"user": record,
	})
}

func (a *AdminController) DeletePost(ctx router.Context) error {
	me, err := a.CurrentUser(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	record, err := a.Repo.Users().GetByIdentifier(ctx.Context(), ctx.Param("id", ""))
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := a.DeleteModel(ctx.Context(), me, record); err != nil {
		if goerrors.Is(err, ErrSelfDelete) {
			return flash.WithError(ctx, router.ViewContext{
				"error_message": "You cannot delete yourself!",
			}).Redirect(a.Routes.Changelist, fiber.StatusSeeOther)
		}
		return a.ErrorHandler(ctx, err)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": fmt.Sprintf("Deleted user %s", record.Username),
	}).Redirect(a.Routes.Changelist, fiber.StatusSeeOther)
}

// AdminActionPayload is the changelist bulk action form.
type AdminActionPayload struct {
	Action   string   `form:"action" json:"action"`
	Selected []string `form:"selected" json:"selected"`
}

// Validate will run validation rules
func (p AdminActionPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(
			&p.Action,
			validation.Required,
			validation.In(
				ActionSendConfirmation,
				ActionSetActive,
				ActionSetInactive,
				ActionDeleteSelected,
			),
		),
		validation.Field(&p.Selected, validation.Required),
	)
}

func (a *AdminController) Action(ctx router.Context) error {
	payload := new(AdminActionPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("admin action parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Redirect(a.Routes.Changelist, fiber.StatusSeeOther)
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("admin action validate payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message": err.Error(),
		}).Redirect(a.Routes.Changelist, fiber.StatusSeeOther)
	}

	ids, err := parseSelection(payload.Selected)
	if err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": err.Error(),
		}).Redirect(a.Routes.Changelist, fiber.StatusSeeOther)
	}

	switch payload.Action {
	case ActionSendConfirmation:
		return a.sendConfirmations(ctx, ids)
	case ActionSetActive:
		return a.setActive(ctx, ids, true)
	case ActionSetInactive:
		return a.setActive(ctx, ids, false)
	case ActionDeleteSelected:
		return a.deleteSelected(ctx, ids)
	}

	return flash.WithError(ctx, router.ViewContext{
		"error_message": "Unknown action",
	}).Redirect(a.Routes.Changelist, fiber.StatusSeeOther)
}

func (a *AdminController) sendConfirmations(ctx router.Context, ids []uuid.UUID) error {
	var resp *SendConfirmationResponse

	req := SendConfirmationMessage{
		UserIDs: ids,
		OnResponse: func(r *SendConfirmationResponse) {
			resp = r
		},
	}

	sendConfirmation := SendConfirmationHandler{repo: a.Repo, confirmer: a.Confirmer}
	if err := sendConfirmation.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("admin send confirmation: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error sending confirmation email",
		}).Redirect(a.Routes.Changelist, fiber.StatusSeeOther)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": fmt.Sprintf("Account confirmation email sent out for %d user(s)", resp.Sent),
	}).Redirect(a.Routes.Changelist, fiber.StatusSeeOther)
}

func (a *AdminController) setActive(ctx router.Context, ids []uuid.UUID, active bool) error {
	count, err := a.Repo.Users().SetActive(ctx.Context(), ids, active)
	if err != nil {
		a.Logger.Error("admin set active: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message": err.Error(),
		}).Redirect(a.Routes.Changelist, fiber.StatusSeeOther)
	}

	state := "active"
	if !active {
		state = "inactive"
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": fmt.Sprintf("Marked %d user(s) as %s", count, state),
	}).Redirect(a.Routes.Changelist, fiber.StatusSeeOther)
}

// deleteSelected strips the acting user from the selection before
// delegating to the bulk delete. Selecting only yourself deletes
// nothing; selecting yourself among others deletes the others and says
// so.
func (a *AdminController) deleteSelected(ctx router.Context, ids []uuid.UUID) error {
	me, err := a.CurrentUser(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	remainder, removedSelf := excludeActingUser(ids, me)

	if len(remainder) == 0 {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": "You cannot delete yourself!",
		}).Redirect(a.Routes.Changelist, fiber.StatusSeeOther)
	}

	count, err := a.Repo.Users().DeleteMany(ctx.Context(), remainder)
	if err != nil {
		a.Logger.Error("admin delete selected: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message": err.Error(),
		}).Redirect(a.Routes.Changelist, fiber.StatusSeeOther)
	}

	if removedSelf {
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  "You cannot delete yourself! Removed you from selection.",
			"system_message": fmt.Sprintf("Deleted %d user(s)", count),
		}).Redirect(a.Routes.Changelist, fiber.StatusSeeOther)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": fmt.Sprintf("Deleted %d user(s)", count),
	}).Redirect(a.Routes.Changelist, fiber.StatusSeeOther)
}

// excludeActingUser filters me out of a selection, reporting whether it
// was present.
func excludeActingUser(ids []uuid.UUID, me uuid.UUID) ([]uuid.UUID, bool) {
	rest := make([]uuid.UUID, 0, len(ids))
	found := false
	for _, id := range ids {
		if id == me {
			found = true
			continue
		}
		rest = append(rest, id)
	}
	return rest, found
}

func parseSelection(selected []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(selected))
	for _, raw := range selected {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "malformed selection id").
				WithMetadata(map[string]any{"id": raw})
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func currentUserFromLocals(ctx router.Context) (uuid.UUID, error) {
	switch v := ctx.Locals(CurrentUserKey).(type) {
	case uuid.UUID:
		return v, nil
	case string:
		return uuid.Parse(v)
	case *User:
		return v.ID, nil
	}
	return uuid.Nil, goerrors.New("unable to resolve acting user", goerrors.CategoryAuth)
}

func formatValidationErrors(err error) map[string]string {
	out := map[string]string{}
	var fieldErrs validation.Errors
	if goerrors.As(err, &fieldErrs) {
		for field, fieldErr := range fieldErrs {
			out[field] = fieldErr.Error()
		}
		return out
	}
	out["form"] = err.Error()
	return out
}

func defaultErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
