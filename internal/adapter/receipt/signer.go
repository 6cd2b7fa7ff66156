// Package receipt issues short-lived signed links to stored proof-of-payment files.
package receipt

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"lendledger/internal/domain/receipt"

	"github.com/golang-jwt/jwt/v5"
)

var _ receipt.Store = (*Signer)(nil)

type claims struct {
	Locator string `json:"loc"`
	jwt.RegisteredClaims
}

// Signer builds <base>/<locator>?token=<jwt>. The file server checks the
// token with Verify before streaming the object.
type Signer struct {
	base *url.URL
	key  []byte
	ttl  time.Duration
	now  func() time.Time
}

func NewSigner(baseURL string, key []byte, ttl time.Duration) (*Signer, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("receipt base url %q: must be absolute", baseURL)
	}
	if len(key) == 0 {
		return nil, errors.New("receipt signing key is empty")
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Signer{base: u, key: key, ttl: ttl, now: time.Now}, nil
}

func (s *Signer) Resolve(_ context.Context, locator string) (string, error) {
	now := s.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Locator: locator,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	signed, err := tok.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign receipt link: %w", err)
	}

	segs := strings.Split(locator, "/")
	for i, p := range segs {
		segs[i] = url.PathEscape(p)
	}
	u := *s.base
	u.Path = u.Path + "/" + strings.Join(segs, "/")
	u.RawPath = ""
	u.RawQuery = url.Values{"token": {signed}}.Encode()
	return u.String(), nil
}

// Verify returns the locator a token grants access to.
func (s *Signer) Verify(token string) (string, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return s.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("receipt token: %w", err)
	}
	if c.Locator == "" {
		return "", errors.New("receipt token: no locator")
	}
	return c.Locator, nil
}
