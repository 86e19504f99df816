package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"cocoaguard/internal/pkg/jwtutil"
	"cocoaguard/internal/transport/http/response"
)

const (
	ContextFarmerIDKey   = "farmer_id"
	ContextFarmerNameKey = "farmer_name"

	FlashCookieName = "flash"
)

// RequireSession protects page routes. Unauthenticated browsers are sent
// to the login page with a warning flash.
func RequireSession(secret, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := sessionClaims(c, secret, cookieName)
		if !ok {
			SetFlash(c, "warning", "You must log in first.")
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Set(ContextFarmerIDKey, claims.FarmerID)
		c.Set(ContextFarmerNameKey, claims.Name)
		c.Next()
	}
}

// RequireSessionAPI protects JSON routes with a 401 envelope instead of
// a redirect.
func RequireSessionAPI(secret, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := sessionClaims(c, secret, cookieName)
		if !ok {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "not authenticated")
			c.Abort()
			return
		}
		c.Set(ContextFarmerIDKey, claims.FarmerID)
		c.Set(ContextFarmerNameKey, claims.Name)
		c.Next()
	}
}

// OptionalSession attaches the farmer identity when a valid session
// cookie is present and lets the request through either way.
func OptionalSession(secret, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := sessionClaims(c, secret, cookieName); ok {
			c.Set(ContextFarmerIDKey, claims.FarmerID)
			c.Set(ContextFarmerNameKey, claims.Name)
		}
		c.Next()
	}
}

func sessionClaims(c *gin.Context, secret, cookieName string) (*jwtutil.Claims, bool) {
	token, err := c.Cookie(cookieName)
	if err != nil || token == "" {
		return nil, false
	}
	claims, err := jwtutil.ParseToken(secret, token)
	if err != nil {
		return nil, false
	}
	return claims, true
}

// Flash is a one-shot user-facing message carried in a cookie across a
// redirect.
type Flash struct {
	Level   string
	Message string
}

func SetFlash(c *gin.Context, level, message string) {
	c.SetCookie(FlashCookieName, level+"|"+message, 60, "/", "", false, true)
}

// PopFlash reads and clears the flash cookie.
func PopFlash(c *gin.Context) *Flash {
	raw, err := c.Cookie(FlashCookieName)
	if err != nil || raw == "" {
		return nil
	}
	c.SetCookie(FlashCookieName, "", -1, "/", "", false, true)

	level, message := "info", raw
	if i := strings.IndexByte(raw, '|'); i >= 0 {
		level, message = raw[:i], raw[i+1:]
	}
	return &Flash{Level: level, Message: message}
}
