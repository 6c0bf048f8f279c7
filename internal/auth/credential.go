package auth

import (
	"crypto/subtle"
	"errors"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Credential is the single username/password pair allowed to log in.
type Credential struct {
	Username string
	Password string
}

var DefaultCredential = Credential{Username: "admin", Password: "password123"}

// Match compares both fields exactly and case-sensitively.
func (c Credential) Match(username, password string) bool {
	if c.Username == "" {
		return false
	}

	u := subtle.ConstantTimeCompare([]byte(username), []byte(c.Username))
	p := subtle.ConstantTimeCompare([]byte(password), []byte(c.Password))
	return u&p == 1
}

type Issuer struct {
	Credential Credential
	Tokens     *TokenMaker
}

func NewIssuer(cred Credential, tokens *TokenMaker) *Issuer {
	return &Issuer{Credential: cred, Tokens: tokens}
}

// Issue mints a token for username when the pair matches the credential.
func (i *Issuer) Issue(username, password string) (string, error) {
	if !i.Credential.Match(username, password) {
		return "", ErrInvalidCredentials
	}
	return i.Tokens.New(username)
}
