package destino

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ErrNotAdmin is returned for a valid token whose subject lacks the admin role.
var ErrNotAdmin = errors.New("token does not carry the admin role")

// AdminClaims are the claims read from an access token issued by the hosted
// auth service. The role may sit at the top level or inside app_metadata.
type AdminClaims struct {
	Role        string `json:"role"`
	Email       string `json:"email"`
	AppMetadata struct {
		Role string `json:"role"`
	} `json:"app_metadata"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the claims grant admin access.
func (c *AdminClaims) IsAdmin() bool {
	return c.Role == "admin" || c.AppMetadata.Role == "admin"
}

// VerifyAdminToken checks an HS256 access token against secret and returns its
// claims when it is valid and carries the admin role.
func VerifyAdminToken(secret []byte, tokenString string) (*AdminClaims, error) {
	if len(secret) == 0 {
		return nil, errors.New("token login is not configured")
	}
	token, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(*AdminClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if !claims.IsAdmin() {
		return claims, ErrNotAdmin
	}
	return claims, nil
}

func bearerToken(c echo.Context) string {
	if t := strings.TrimSpace(c.FormValue("access_token")); t != "" {
		return t
	}
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// handleAdminToken exchanges an access token from the hosted auth service
// for an admin session.
func (a *App) handleAdminToken(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	tok := bearerToken(c)
	if tok == "" {
		return c.String(http.StatusUnauthorized, "Missing access token")
	}
	claims, err := VerifyAdminToken([]byte(a.Config.JWTSecret), tok)
	if errors.Is(err, ErrNotAdmin) {
		a.logger.Warn("token login without admin role", zap.String("ip", ip), zap.String("sub", claims.Subject))
		return c.String(http.StatusForbidden, "Forbidden")
	}
	if err != nil {
		a.loginLimiter.Record(ip)
		a.logger.Warn("token login failed", zap.String("ip", ip), zap.Error(err))
		return c.String(http.StatusUnauthorized, "Invalid access token")
	}
	if err := setAdminSession(c); err != nil {
		return err
	}
	a.logger.Info("admin login", zap.String("ip", ip), zap.String("method", "token"), zap.String("sub", claims.Subject))
	return c.Redirect(http.StatusSeeOther, "/admin/")
}
