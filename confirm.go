package users

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"

	"github.com/gofiber/template/django/v3"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// DefaultConfirmTemplate is the template rendered into the confirmation
// email body, resolved inside the configured templates directory.
const DefaultConfirmTemplate = "account_confirmation"

// ConfirmRoutes names the host routes that confirmation links point at.
// Paths use :uidb64 and :token placeholders.
type ConfirmRoutes struct {
	AccountConfirm       string
	PasswordResetConfirm string
}

func defaultConfirmRoutes() *ConfirmRoutes {
	return &ConfirmRoutes{
		AccountConfirm:       "/accounts/confirm/:uidb64/:token",
		PasswordResetConfirm: "/accounts/password-reset/:uidb64/:token",
	}
}

type confirmOptions struct {
	template string
	subject  string
	extra    map[string]any
}

// ConfirmOption tweaks a single ConfirmAccount call.
type ConfirmOption func(*confirmOptions)

// WithTemplate overrides the email template name.
func WithTemplate(name string) ConfirmOption {
	return func(o *confirmOptions) {
		o.template = name
	}
}

// WithSubject overrides the configured email subject.
func WithSubject(subject string) ConfirmOption {
	return func(o *confirmOptions) {
		o.subject = subject
	}
}

// WithExtraContext merges additional values into the template context.
func WithExtraContext(extra map[string]any) ConfirmOption {
	return func(o *confirmOptions) {
		o.extra = extra
	}
}

// Confirmer builds and sends account confirmation email. The same
// message serves onboarding and password reset: it carries a signed,
// state bound link for each flow plus the login URL.
type Confirmer struct {
	sites  Sites
	tokens *TokenGenerator
	mailer Mailer
	config Config
	engine *django.Engine
	routes *ConfirmRoutes
	logger Logger
}

var _ AccountConfirmer = (*Confirmer)(nil)

// ConfirmerOption configures a Confirmer.
type ConfirmerOption func(*Confirmer)

// WithConfirmRoutes overrides the default link routes.
func WithConfirmRoutes(routes *ConfirmRoutes) ConfirmerOption {
	return func(c *Confirmer) {
		if routes != nil {
			c.routes = routes
		}
	}
}

// WithConfirmerLogger sets the logger.
func WithConfirmerLogger(l Logger) ConfirmerOption {
	return func(c *Confirmer) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewConfirmer creates a Confirmer. templatesDir holds the Django syntax
// email templates (".html" extension).
func NewConfirmer(sites Sites, tokens *TokenGenerator, mailer Mailer, config Config, templatesDir string, opts ...ConfirmerOption) (*Confirmer, error) {
	engine := django.New(templatesDir, ".html")
	if err := engine.Load(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load email templates")
	}

	c := &Confirmer{
		sites:  sites,
		tokens: tokens,
		mailer: mailer,
		config: config,
		engine: engine,
		routes: defaultConfirmRoutes(),
		logger: defaultLogger(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c, nil
}

// ConfirmAccount sends the confirmation email for user. When the
// IgnoreUserEmail setting is on, delivery is redirected entirely to the
// configured override list and no blind copy is applied; otherwise the
// user receives the message with the override list blind copied.
func (c *Confirmer) ConfirmAccount(ctx context.Context, user *User, opts ...ConfirmOption) error {
	options := confirmOptions{
		template: DefaultConfirmTemplate,
		subject:  c.config.GetConfirmEmailSubject(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	var to, bcc []string
	if c.config.GetIgnoreUserEmail() {
		to = c.config.GetAdditionallySendTo()
	} else {
		to = []string{user.Email}
		bcc = c.config.GetAdditionallySendTo()
	}

	token, err := c.tokens.Make(user)
	if err != nil {
		return err
	}

	domain, err := c.domain(ctx)
	if err != nil {
		return err
	}

	data := map[string]any{
		"user":                       user,
		"account_confirm_url":        domain + reverseRoute(c.routes.AccountConfirm, user.ID, token),
		"password_reset_confirm_url": domain + reverseRoute(c.routes.PasswordResetConfirm, user.ID, token),
		"login_url":                  domain + c.config.GetLoginURL(),
	}
	for k, v := range options.extra {
		data[k] = v
	}

	var body bytes.Buffer
	if err := c.engine.Render(&body, options.template, data); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render confirmation email").
			WithMetadata(map[string]any{"template": options.template})
	}

	return c.mailer.Send(ctx, &Message{
		From:    c.config.GetFromEmail(),
		To:      to,
		Bcc:     bcc,
		Subject: options.subject,
		HTML:    body.String(),
	})
}

// ConfirmLink builds the absolute URL for one of the confirmation
// routes: site domain plus the reversed path.
func (c *Confirmer) ConfirmLink(ctx context.Context, user *User, route string, token string) (string, error) {
	domain, err := c.domain(ctx)
	if err != nil {
		return "", err
	}
	return domain + reverseRoute(route, user.ID, token), nil
}

func (c *Confirmer) domain(ctx context.Context) (string, error) {
	site, err := c.sites.Get(ctx, c.config.GetSiteID())
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve site domain").
			WithMetadata(map[string]any{"site_id": c.config.GetSiteID()})
	}
	return normalizeDomain(site.Domain), nil
}

// normalizeDomain prepends an http scheme when the stored domain lacks one.
func normalizeDomain(domain string) string {
	if !strings.HasPrefix(domain, "http") {
		return "http://" + domain
	}
	return domain
}

// reverseRoute interpolates the :uidb64 and :token placeholders of a
// named route pattern.
func reverseRoute(pattern string, id uuid.UUID, token string) string {
	return strings.NewReplacer(
		":uidb64", EncodeUID(id),
		":token", token,
	).Replace(pattern)
}

// EncodeUID encodes a user id for link embedding, the counterpart of
// DecodeUID in the host's confirmation handlers.
func EncodeUID(id uuid.UUID) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id.String()))
}

// DecodeUID decodes the :uidb64 link segment back into a user id.
func DecodeUID(encoded string) (uuid.UUID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return uuid.Nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "malformed uid segment")
	}
	id, err := uuid.Parse(string(raw))
	if err != nil {
		return uuid.Nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "malformed uid segment")
	}
	return id, nil
}
