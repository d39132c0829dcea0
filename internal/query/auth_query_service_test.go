package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eaglebank/ge-api/internal/cqrs"
	"github.com/eaglebank/ge-api/internal/models"
	"github.com/eaglebank/ge-api/internal/repository"
	"github.com/eaglebank/ge-api/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcs struct {
	args   []any
	result models.StoredProcedureResult
	err    error
}

func (f *fakeProcs) Call(_ context.Context, _ string, args ...any) (models.StoredProcedureResult, error) {
	f.args = args
	return f.result, f.err
}

type fixture struct {
	hasher *security.Hasher
	tokens *security.TokenIssuer
	digest string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	hasher := security.NewHasher(security.MinCost, 2)
	tokens, err := security.NewTokenIssuer(security.TokenConfig{
		AccessSecret:  "access",
		RefreshSecret: "refresh",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
	require.NoError(t, err)
	digest, err := hasher.Hash(context.Background(), "Abcdef12")
	require.NoError(t, err)
	return fixture{hasher: hasher, tokens: tokens, digest: digest}
}

func (f fixture) userResult() models.StoredProcedureResult {
	return models.StoredProcedureResult{Sets: []models.ResultSet{
		{{"status_code": int64(0)}},
		{{"usr_id_usuario": int64(42), "usr_email": "ana@x.com", "usr_contrasena_hash": f.digest}},
	}}
}

func TestLoginSuccess(t *testing.T) {
	f := newFixture(t)
	procs := &fakeProcs{result: f.userResult()}
	svc := NewAuthQueryService(procs, f.hasher, f.tokens)

	view, err := svc.Login(context.Background(), cqrs.LoginCommand{Email: "ana@x.com", Password: "Abcdef12"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), view.UserID)
	assert.Equal(t, []any{"B", nil, nil, nil, nil, "ana@x.com", nil, nil}, procs.args)

	p, err := f.tokens.Verify(view.AccessToken, security.AccessKey)
	require.NoError(t, err)
	assert.Equal(t, models.Principal{ID: 42, Email: "ana@x.com"}, p)
}

func TestLoginFailures(t *testing.T) {
	f := newFixture(t)
	dbErr := &repository.GatewayError{Procedure: repository.ProcUsuarioCRUD, Err: errors.New("down")}
	tests := []struct {
		name     string
		result   models.StoredProcedureResult
		err      error
		password string
		check    func(t *testing.T, err error)
	}{
		{
			name:     "wrong password",
			result:   f.userResult(),
			password: "Wrong123",
			check:    func(t *testing.T, err error) { assert.ErrorIs(t, err, models.ErrInvalidCredentials) },
		},
		{
			name:     "user not found keeps metadata",
			result:   models.StoredProcedureResult{Sets: []models.ResultSet{{{"status_code": int64(1), "mensaje": "no existe"}}}},
			password: "Abcdef12",
			check: func(t *testing.T, err error) {
				var de *models.DomainError
				require.ErrorAs(t, err, &de)
				assert.Equal(t, models.Row{"status_code": int64(1), "mensaje": "no existe"}, de.Body())
			},
		},
		{
			name:     "no metadata",
			password: "Abcdef12",
			check: func(t *testing.T, err error) {
				var de *models.DomainError
				require.ErrorAs(t, err, &de)
				assert.Equal(t, map[string]string{"error": "user_not_found"}, de.Body())
			},
		},
		{
			name:     "success status without payload",
			result:   models.StoredProcedureResult{Sets: []models.ResultSet{{{"status_code": int64(0)}}}},
			password: "Abcdef12",
			check:    func(t *testing.T, err error) { assert.ErrorIs(t, err, models.ErrInvalidCredentials) },
		},
		{
			name:     "gateway failure",
			err:      dbErr,
			password: "Abcdef12",
			check:    func(t *testing.T, err error) { assert.ErrorIs(t, err, dbErr) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewAuthQueryService(&fakeProcs{result: tt.result, err: tt.err}, f.hasher, f.tokens)
			view, err := svc.Login(context.Background(), cqrs.LoginCommand{Email: "ana@x.com", Password: tt.password})
			require.Error(t, err)
			assert.Empty(t, view.AccessToken)
			tt.check(t, err)
		})
	}
}

func TestRefreshToken(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthQueryService(&fakeProcs{}, f.hasher, f.tokens)
	original, err := f.tokens.IssuePair(models.Principal{ID: 42, Email: "ana@x.com"})
	require.NoError(t, err)

	seen := map[string]bool{original.AccessToken: true, original.RefreshToken: true}
	for i := 0; i < 3; i++ {
		pair, err := svc.RefreshToken(context.Background(), cqrs.RefreshTokenCommand{Token: original.RefreshToken})
		require.NoError(t, err)
		assert.False(t, seen[pair.AccessToken])
		assert.False(t, seen[pair.RefreshToken])
		seen[pair.AccessToken] = true
		seen[pair.RefreshToken] = true

		p, err := f.tokens.Verify(pair.AccessToken, security.AccessKey)
		require.NoError(t, err)
		assert.Equal(t, int64(42), p.ID)
		_, err = f.tokens.Verify(pair.RefreshToken, security.RefreshKey)
		require.NoError(t, err)
	}

	_, err = svc.RefreshToken(context.Background(), cqrs.RefreshTokenCommand{Token: original.AccessToken})
	assert.ErrorIs(t, err, models.ErrInvalidRefreshToken)
	_, err = svc.RefreshToken(context.Background(), cqrs.RefreshTokenCommand{Token: "not-a-token-at-all-xxxxxxxx"})
	assert.ErrorIs(t, err, models.ErrInvalidRefreshToken)
}
