package users

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
	})

	require.NoError(t, CreateTables(context.Background(), db))

	return db
}

func testSettings() Settings {
	return Settings{
		StaffDefault:        true,
		ConfirmEmailSubject: "Welcome aboard",
		FromEmail:           "noreply@example.com",
		AdditionallySendTo:  []string{"audit@example.com"},
		SiteID:              1,
		LoginURL:            "/login",
		SigningKey:          "test-signing-key",
		TokenExpiration:     24,
	}
}

type stubConfirmer struct {
	calls []uuid.UUID
	err   error
}

func (s *stubConfirmer) ConfirmAccount(_ context.Context, user *User, _ ...ConfirmOption) error {
	if s.err != nil {
		return s.err
	}
	s.calls = append(s.calls, user.ID)
	return nil
}

type stubSites struct {
	domain string
	err    error
}

func (s *stubSites) Get(context.Context, int64) (*Site, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &Site{ID: 1, Domain: s.domain}, nil
}

func (s *stubSites) Upsert(_ context.Context, site *Site) (*Site, error) {
	return site, nil
}

func (s *stubSites) List(context.Context) ([]*Site, error) {
	return []*Site{{ID: 1, Domain: s.domain}}, nil
}

type recordingMailer struct {
	sent []*Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg *Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}
