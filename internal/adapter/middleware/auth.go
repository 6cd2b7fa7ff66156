package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"lendledger/internal/domain/identity"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Claims is the bearer token body: sub is the user id.
type Claims struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

var knownRoles = map[string]identity.Role{
	string(identity.RoleBorrower): identity.RoleBorrower,
	string(identity.RoleLender):   identity.RoleLender,
	string(identity.RoleAdmin):    identity.RoleAdmin,
}

// Authenticate verifies an HS256 bearer token and attaches the identity it names.
func Authenticate(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			id, err := ParseToken(secret, raw)
			if err != nil {
				c.Logger().Debugf("auth: %v", err)
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid bearer token")
			}
			req := c.Request()
			c.SetRequest(req.WithContext(identity.WithIdentity(req.Context(), id)))
			return next(c)
		}
	}
}

func bearer(h string) (string, bool) {
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

func ParseToken(secret []byte, raw string) (identity.Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return identity.Identity{}, err
	}
	if claims.Subject == "" {
		return identity.Identity{}, errors.New("token has no subject")
	}
	id := identity.Identity{ID: claims.Subject, Email: identity.NormalizeEmail(claims.Email)}
	for _, r := range claims.Roles {
		if role, ok := knownRoles[strings.ToLower(r)]; ok {
			id.Roles = append(id.Roles, role)
		}
	}
	return id, nil
}

// IssueToken signs a token for id, valid for ttl.
func IssueToken(secret []byte, id identity.Identity, ttl time.Duration) (string, error) {
	roles := make([]string, len(id.Roles))
	for i, r := range id.Roles {
		roles[i] = string(r)
	}
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: id.Email,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return tok.SignedString(secret)
}
