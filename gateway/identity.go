package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/example/cartshop/pkg/shop"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ctxUserID       = "user_id"
	ctxUserEmail    = "user_email"
	ctxSessionToken = "session_token"
	ctxIdentityKind = "identity_kind"
)

// identityMiddleware reads the caller's identity. A valid bearer token makes
// the caller a user; otherwise the session cookie (or header) names an
// anonymous session, which may be empty until a cart is first touched.
func (g *Gateway) identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := g.sessionToken(c); token != "" {
			c.Set(ctxSessionToken, token)
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			c.Set(ctxIdentityKind, shop.IdentitySession.String())
			c.Next()
			return
		}

		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "authorization header must be a bearer token")
			return
		}
		userID, email, err := g.parseToken(raw)
		if err != nil {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}

		c.Set(ctxUserID, userID)
		if email != "" {
			c.Set(ctxUserEmail, email)
		}
		c.Set(ctxIdentityKind, shop.IdentityUser.String())
		c.Next()
	}
}

func (g *Gateway) parseToken(raw string) (string, string, error) {
	if g.config.Auth.JWTSecret == "" {
		return "", "", errors.New("jwt secret not configured")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if g.config.Auth.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(g.config.Auth.Issuer))
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(g.config.Auth.JWTSecret), nil
	}, opts...)
	if err != nil {
		return "", "", err
	}

	userID := claimString(claims, "user_id")
	if userID == "" {
		userID, _ = claims.GetSubject()
	}
	if userID == "" {
		return "", "", fmt.Errorf("token has no subject")
	}
	return userID, claimString(claims, "email"), nil
}

func claimString(claims jwt.MapClaims, key string) string {
	switch v := claims[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}

func (g *Gateway) sessionToken(c *gin.Context) string {
	if token := c.GetHeader(g.config.Session.Header); token != "" {
		return token
	}
	if cookie, err := c.Cookie(g.config.Session.CookieName); err == nil {
		return cookie
	}
	return ""
}

func (g *Gateway) identity(c *gin.Context) shop.Identity {
	if userID := c.GetString(ctxUserID); userID != "" {
		return shop.UserIdentity(userID)
	}
	return shop.SessionIdentity(c.GetString(ctxSessionToken))
}

func (g *Gateway) setSession(c *gin.Context, token string) {
	maxAge := int(g.config.Session.TTL.Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(g.config.Session.CookieName, token, maxAge, "/", "", g.config.Session.Secure, true)
	c.Header(g.config.Session.Header, token)
}

func (g *Gateway) clearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(g.config.Session.CookieName, "", -1, "/", "", g.config.Session.Secure, true)
}

// resolveCart loads (or creates) the caller's cart and issues a new session
// cookie when one had to be minted.
func (g *Gateway) resolveCart(c *gin.Context) (*shop.CartHandle, bool) {
	handle, err := g.svc.Carts.Resolve(c.Request.Context(), g.identity(c))
	if err != nil {
		g.fail(c, err)
		return nil, false
	}
	if handle.Minted {
		g.setSession(c, handle.Identity.Value)
	}
	return handle, true
}
