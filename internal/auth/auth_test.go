package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestIssueAndParseRoundTrip(t *testing.T) {
	a := NewAuthenticator(testSecret)

	raw, err := IssueToken(testSecret, Identity{UserID: 42, Role: RoleClinicStaff}, time.Hour)
	require.NoError(t, err)

	id, err := a.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: 42, Role: RoleClinicStaff}, id)
}

func TestParseRejectsBadTokens(t *testing.T) {
	a := NewAuthenticator(testSecret)

	wrongKey, _ := IssueToken("other-secret", Identity{UserID: 1, Role: RolePatient}, time.Hour)
	expired, _ := IssueToken(testSecret, Identity{UserID: 1, Role: RolePatient}, -time.Minute)
	badRole, _ := IssueToken(testSecret, Identity{UserID: 1, Role: "admin"}, time.Hour)

	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Role: RolePatient}).SignedString([]byte(testSecret))

	for name, raw := range map[string]string{
		"wrong key":  wrongKey,
		"expired":    expired,
		"bad role":   badRole,
		"no subject": noSubject,
		"garbage":    "not-a-jwt",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := a.Parse(raw)
			assert.True(t, errors.Is(err, ErrUnauthenticated), "got %v", err)
		})
	}
}

func TestParseWithoutSecret(t *testing.T) {
	_, err := NewAuthenticator("").Parse("anything")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestMiddleware(t *testing.T) {
	a := NewAuthenticator(testSecret)

	var seen Identity
	handler := a.Middleware(func(w http.ResponseWriter, err error) {
		w.WriteHeader(http.StatusUnauthorized)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	raw, err := IssueToken(testSecret, Identity{UserID: 7, Role: RolePatient}, time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, Identity{UserID: 7, Role: RolePatient}, seen)
}

func TestIdentityPermissions(t *testing.T) {
	staff := Identity{UserID: 1, Role: RoleClinicStaff}
	patient := Identity{UserID: 2, Role: RolePatient}

	assert.NoError(t, staff.RequireStaff())
	assert.ErrorIs(t, patient.RequireStaff(), ErrForbidden)
	assert.ErrorIs(t, Identity{}.RequireStaff(), ErrUnauthenticated)

	assert.True(t, staff.CanActFor(99))
	assert.True(t, patient.CanActFor(2))
	assert.False(t, patient.CanActFor(3))
}
