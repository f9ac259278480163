// Package token mints and verifies the credential tokens that stand in for
// mailbox passwords at the API boundary.  A token carries the full connection
// profile; the account secret rides inside it AES-encrypted, so possession of
// the signing key alone is not enough to recover it.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mailbridge/mailbridge/pkg/config"
	"github.com/mailbridge/mailbridge/pkg/profile"
)

// Grant names accepted in the grant claim.
const (
	GrantAccess  = "access"
	GrantRefresh = "refresh"
)

var (
	// ErrTokenExpired indicates a well-formed token past its expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates a token that failed any other check.
	ErrTokenInvalid = errors.New("token invalid")
)

// claims is the JWT payload for both access and refresh tokens.
type claims struct {
	jwt.RegisteredClaims
	Grant    string `json:"grant"`
	Creds    string `json:"creds"`
	IMAPHost string `json:"imap_host"`
	IMAPPort int    `json:"imap_port"`
	SMTPHost string `json:"smtp_host"`
	SMTPPort int    `json:"smtp_port"`
}

// Pair bundles a freshly minted access and refresh token.
type Pair struct {
	Access         string
	AccessExpires  time.Time
	Refresh        string
	RefreshExpires time.Time
}

// Codec mints, verifies and refreshes credential tokens.
type Codec struct {
	signingKey []byte
	credKey    []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewCodec creates a Codec from the token configuration.
func NewCodec(conf config.Token) *Codec {
	return &Codec{
		signingKey: []byte(conf.SigningKey),
		credKey:    []byte(conf.CredentialKey),
		accessTTL:  conf.AccessTTL,
		refreshTTL: conf.RefreshTTL,
	}
}

// Mint issues an access/refresh token pair for the given profile.
func (c *Codec) Mint(p profile.Profile) (Pair, error) {
	now := time.Now()
	access, accessExp, err := c.sign(p, GrantAccess, now, c.accessTTL)
	if err != nil {
		return Pair{}, err
	}
	refresh, refreshExp, err := c.sign(p, GrantRefresh, now, c.refreshTTL)
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		Access:         access,
		AccessExpires:  accessExp,
		Refresh:        refresh,
		RefreshExpires: refreshExp,
	}, nil
}

// Verify parses an access token and recovers the connection profile.  It
// fails closed: callers see ErrTokenExpired or ErrTokenInvalid, nothing else.
func (c *Codec) Verify(tokenString string) (*profile.Profile, error) {
	return c.parse(tokenString, GrantAccess)
}

// Refresh accepts a refresh token and mints a new token pair from the profile
// embedded in it.  The signature alone is trusted; the mailbox credentials
// are not revalidated here, so a password changed upstream surfaces as an
// auth failure on the next mailbox operation rather than at refresh time.
func (c *Codec) Refresh(tokenString string) (Pair, error) {
	p, err := c.parse(tokenString, GrantRefresh)
	if err != nil {
		return Pair{}, err
	}
	return c.Mint(*p)
}

func (c *Codec) sign(
	p profile.Profile, grant string, now time.Time, ttl time.Duration,
) (string, time.Time, error) {
	creds, err := encryptSecret(c.credKey, p.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("encrypting credentials: %w", err)
	}
	expires := now.Add(ttl)
	cl := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Address,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Grant:    grant,
		Creds:    creds,
		IMAPHost: p.IMAPHost,
		IMAPPort: p.IMAPPort,
		SMTPHost: p.SMTPHost,
		SMTPPort: p.SMTPPort,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(c.signingKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

func (c *Codec) parse(tokenString string, wantGrant string) (*profile.Profile, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	cl, ok := parsed.Claims.(*claims)
	if !parsed.Valid || !ok {
		return nil, ErrTokenInvalid
	}
	if cl.Grant != wantGrant {
		return nil, ErrTokenInvalid
	}
	secret, err := decryptSecret(c.credKey, cl.Creds)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	return &profile.Profile{
		Address:  cl.Subject,
		Secret:   secret,
		IMAPHost: cl.IMAPHost,
		IMAPPort: cl.IMAPPort,
		SMTPHost: cl.SMTPHost,
		SMTPPort: cl.SMTPPort,
	}, nil
}
