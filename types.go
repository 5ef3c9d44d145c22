package users

import "fmt"

// Logger is the minimal logging surface this package needs. Hosts plug
// in their own implementation; the default writes to stdout.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Config exposes the per deployment settings consumed by the account
// lifecycle: defaults applied on create, confirmation email settings and
// the site used when building absolute links.
type Config interface {
	// GetStaffDefault is the is_staff value stamped on newly created users.
	GetStaffDefault() bool
	// GetConfirmEmailSubject is the default confirmation email subject.
	GetConfirmEmailSubject() string
	// GetFromEmail is the confirmation email sender address.
	GetFromEmail() string
	// GetAdditionallySendTo is the blind copy list applied to outgoing
	// confirmation mail.
	GetAdditionallySendTo() []string
	// GetIgnoreUserEmail redirects all mail to the GetAdditionallySendTo
	// list instead of the user's own address.
	GetIgnoreUserEmail() bool
	// GetSiteID selects the Site row whose domain anchors absolute links.
	GetSiteID() int64
	// GetLoginURL is the login path appended to the site domain.
	GetLoginURL() string
	// GetSigningKey signs confirmation tokens.
	GetSigningKey() string
	// GetTokenExpiration is the confirmation token TTL in hours.
	GetTokenExpiration() int
}

// Settings is a literal Config implementation for hosts that configure
// the package from code or their own config loader.
type Settings struct {
	StaffDefault        bool
	ConfirmEmailSubject string
	FromEmail           string
	AdditionallySendTo  []string
	IgnoreUserEmail     bool
	SiteID              int64
	LoginURL            string
	SigningKey          string
	TokenExpiration     int
}

func (s Settings) GetStaffDefault() bool           { return s.StaffDefault }
func (s Settings) GetConfirmEmailSubject() string  { return s.ConfirmEmailSubject }
func (s Settings) GetFromEmail() string            { return s.FromEmail }
func (s Settings) GetAdditionallySendTo() []string { return s.AdditionallySendTo }
func (s Settings) GetIgnoreUserEmail() bool        { return s.IgnoreUserEmail }
func (s Settings) GetSiteID() int64                { return s.SiteID }
func (s Settings) GetLoginURL() string             { return s.LoginURL }
func (s Settings) GetSigningKey() string           { return s.SigningKey }

func (s Settings) GetTokenExpiration() int {
	if s.TokenExpiration == 0 {
		return 72
	}
	return s.TokenExpiration
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] USERS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] USERS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] USERS "+newline(format), args...)
}

func defaultLogger() Logger {
	return defLogger{}
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
