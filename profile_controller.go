package users

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
	"github.com/google/uuid"
)

// ProfileTitle is the page title rendered on the self service view.
const ProfileTitle = "My Profile"

// ProfileControllerRoutes are the self service paths. Changelist and Add
// exist only to redirect: the profile surface exposes exactly one
// document, the acting user's own record.
type ProfileControllerRoutes struct {
	Changelist string
	Add        string
	Change     string
}

// ProfileControllerViews are the template names rendered by the profile.
type ProfileControllerViews struct {
	Change string
}

// ProfileController is the self service surface: a user can see and edit
// their own name and email, nothing else and nobody else.
type ProfileController struct {
	Logger       Logger
	Repo         RepositoryManager
	Routes       *ProfileControllerRoutes
	Views        *ProfileControllerViews
	ErrorHandler router.ErrorHandler
	CurrentUser  func(router.Context) (uuid.UUID, error)
}

// ProfileControllerOption configures the controller.
type ProfileControllerOption func(*ProfileController) *ProfileController

// WithProfileRepo sets the repository manager.
func WithProfileRepo(repo RepositoryManager) ProfileControllerOption {
	return func(c *ProfileController) *ProfileController {
		c.Repo = repo
		return c
	}
}

// WithProfileLogger sets the logger.
func WithProfileLogger(l Logger) ProfileControllerOption {
	return func(c *ProfileController) *ProfileController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

// WithProfileCurrentUser overrides how the acting user id is resolved.
func WithProfileCurrentUser(fn func(router.Context) (uuid.UUID, error)) ProfileControllerOption {
	return func(c *ProfileController) *ProfileController {
		if fn != nil {
			c.CurrentUser = fn
		}
		return c
	}
}

// NewProfileController creates the self service controller.
func NewProfileController(opts ...ProfileControllerOption) *ProfileController {
	c := &ProfileController{
		Logger:       defaultLogger(),
		ErrorHandler: defaultErrHandler,
		CurrentUser:  currentUserFromLocals,
		Routes: &ProfileControllerRoutes{
			Changelist: "/admin/profile",
			Add:        "/admin/profile/new",
			Change:     "/admin/profile/:id",
		},
		Views: &ProfileControllerViews{
			Change: "admin/profile/change",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in users profile controller...")
	}

	return c
}

// RegisterProfileRoutes mounts the self service profile on the host router.
func RegisterProfileRoutes[T any](app router.Router[T], opts ...ProfileControllerOption) {
	controller := NewProfileController(opts...)

	app.Get(controller.Routes.Changelist, controller.Changelist).
		SetName("users.profile.changelist")
	app.Get(controller.Routes.Add, controller.AddView).
		SetName("users.profile.add")
	app.Get(controller.Routes.Change, controller.ChangeShow).
		SetName("users.profile.change.get")
	app.Post(controller.Routes.Change, controller.ChangePost).
		SetName("users.profile.change.post")
}

// Changelist never lists anything: it redirects to the acting user's own
// change view.
func (p *ProfileController) Changelist(ctx router.Context) error {
	return p.redirectToOwnChange(ctx)
}

// AddView never renders a creation form: it redirects to the acting
// user's own change view.
func (p *ProfileController) AddView(ctx router.Context) error {
	return p.redirectToOwnChange(ctx)
}

func (p *ProfileController) redirectToOwnChange(ctx router.Context) error {
	me, err := p.CurrentUser(ctx)
	if err != nil {
		return p.ErrorHandler(ctx, err)
	}

	return ctx.Redirect(p.changePath(me), fiber.StatusSeeOther)
}

// ChangeShow renders the acting user's own record regardless of the id
// in the path.
func (p *ProfileController) ChangeShow(ctx router.Context) error {
	me, err := p.CurrentUser(ctx)
	if err != nil {
		return p.ErrorHandler(ctx, err)
	}

	record, err := p.Repo.Users().GetByIdentifier(ctx.Context(), me.String())
	if err != nil {
		return p.ErrorHandler(ctx, err)
	}

	return ctx.Render(p.Views.Change, router.ViewContext{
		"title":  ProfileTitle,
		"record": NewProfileForm(record),
		"user":   record,
		"fields": []string{"first_name", "last_name", "email"},
		"errors": map[string]string{},
	})
}

func (p *ProfileController) ChangePost(ctx router.Context) error {
	me, err := p.CurrentUser(ctx)
	if err != nil {
		return p.ErrorHandler(ctx, err)
	}

	record, err := p.Repo.Users().GetByIdentifier(ctx.Context(), me.String())
	if err != nil {
		return p.ErrorHandler(ctx, err)
	}

	payload := new(ProfileForm)
	if err := ctx.Bind(payload); err != nil {
		p.Logger.Error("profile change parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(p.Views.Change, router.ViewContext{
			"title":  ProfileTitle,
			"record": payload,
			"user":   record,
		})
	}

	if err := payload.Validate(); err != nil {
		p.Logger.Error("profile change validate payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(p.Views.Change, router.ViewContext{
			"title":      ProfileTitle,
			"record":     payload,
			"user":       record,
			"validation": formatValidationErrors(err),
		})
	}

	payload.Apply(record)

	if _, err := p.Repo.Users().Save(ctx.Context(), record); err != nil {
		p.Logger.Error("profile change save: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error saving profile",
		}).Render(p.Views.Change, router.ViewContext{
			"title":  ProfileTitle,
			"record": payload,
			"user":   record,
			"errors": []string{err.Error()},
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Profile saved",
	}).Redirect(p.changePath(me), fiber.StatusSeeOther)
}

func (p *ProfileController) changePath(id uuid.UUID) string {
	return strings.Replace(p.Routes.Change, ":id", id.String(), 1)
}
