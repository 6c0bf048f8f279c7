package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-0123456789abcdef0123456789"

func TestTokenMaker_RoundTrip(t *testing.T) {
	tm := NewTokenMaker(testSecret)

	tok, err := tm.New("admin")
	require.NoError(t, err)

	c, err := tm.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "admin", c.Username)
	assert.NotEmpty(t, c.ID, "jti")
	require.NotNil(t, c.ExpiresAt)
	require.NotNil(t, c.IssuedAt)
	assert.Equal(t, TokenTTL, c.ExpiresAt.Sub(c.IssuedAt.Time))
}

func TestTokenMaker_ClaimKeyIsID(t *testing.T) {
	tm := NewTokenMaker(testSecret)
	tok, err := tm.New("admin")
	require.NoError(t, err)

	raw := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(tok, raw)
	require.NoError(t, err)
	assert.Equal(t, "admin", raw["id"])
	assert.Contains(t, raw, "exp")
}

func TestTokenMaker_ValidWithinTheHour(t *testing.T) {
	issuedAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tm := NewTokenMaker(testSecret)
	tm.now = func() time.Time { return issuedAt }

	tok, err := tm.New("admin")
	require.NoError(t, err)

	tm.now = func() time.Time { return issuedAt.Add(59 * time.Minute) }
	_, err = tm.Parse(tok)
	require.NoError(t, err)

	tm.now = func() time.Time { return issuedAt.Add(61 * time.Minute) }
	_, err = tm.Parse(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenMaker_RejectsOtherSecret(t *testing.T) {
	tok, err := NewTokenMaker("another-secret").New("admin")
	require.NoError(t, err)

	_, err = NewTokenMaker(testSecret).Parse(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenMaker_RejectsGarbage(t *testing.T) {
	tm := NewTokenMaker(testSecret)
	for _, tok := range []string{"", "fake.token.123", "not-a-jwt", "a.b"} {
		_, err := tm.Parse(tok)
		assert.ErrorIs(t, err, ErrInvalidToken, tok)
	}
}

func TestTokenMaker_RejectsNoneAlg(t *testing.T) {
	claims := Claims{
		Username: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenMaker(testSecret).Parse(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenMaker_RequiresExpiry(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Username: "admin"}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = NewTokenMaker(testSecret).Parse(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenMaker_RequiresIDClaim(t *testing.T) {
	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = NewTokenMaker(testSecret).Parse(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenMaker_IgnoresIssuerAndAudience(t *testing.T) {
	claims := Claims{
		Username: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Audience:  jwt.ClaimStrings{"any-audience"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	c, err := NewTokenMaker(testSecret).Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "admin", c.Username)
}

func TestIssuer_Issue(t *testing.T) {
	tm := NewTokenMaker(testSecret)
	iss := NewIssuer(DefaultCredential, tm)

	tok, err := iss.Issue("admin", "password123")
	require.NoError(t, err)
	c, err := tm.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "admin", c.Username)

	for _, tc := range []struct{ user, pass string }{
		{"admin", "wrong"},
		{"notadmin", "password123"},
		{"Admin", "password123"},
		{"admin", "PASSWORD123"},
		{"admin", ""},
		{"", ""},
	} {
		_, err := iss.Issue(tc.user, tc.pass)
		assert.True(t, errors.Is(err, ErrInvalidCredentials), "%s/%s", tc.user, tc.pass)
	}
}

func TestCredential_EmptyNeverMatches(t *testing.T) {
	assert.False(t, Credential{}.Match("", ""))
}
