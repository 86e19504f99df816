package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"cocoaguard/internal/app"
	"cocoaguard/internal/transport/http/middleware"
)

type AuthHandler struct {
	authService  *app.AuthService
	cookieName   string
	cookieMaxAge int
}

type registerForm struct {
	Name     string `form:"name"`
	Email    string `form:"email"`
	Password string `form:"password"`
}

type loginForm struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

func NewAuthHandler(authService *app.AuthService, cookieName string, cookieMaxAgeSeconds int) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		cookieName:   cookieName,
		cookieMaxAge: cookieMaxAgeSeconds,
	}
}

func (h *AuthHandler) RegisterPage(c *gin.Context) {
	c.HTML(http.StatusOK, "register.html", gin.H{
		"Flash": middleware.PopFlash(c),
	})
}

func (h *AuthHandler) Register(c *gin.Context) {
	var form registerForm
	_ = c.ShouldBind(&form)

	_, err := h.authService.Register(app.RegisterInput{
		Name:     form.Name,
		Email:    form.Email,
		Password: form.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			middleware.SetFlash(c, "warning", "All fields are required.")
		case errors.Is(err, app.ErrEmailExists):
			middleware.SetFlash(c, "danger", "Email already exists.")
		default:
			log.Printf("register failed: %v", err)
			middleware.SetFlash(c, "danger", "Registration failed. Please try again.")
		}
		c.Redirect(http.StatusFound, "/register")
		return
	}

	middleware.SetFlash(c, "success", "Registration successful! Please log in.")
	c.Redirect(http.StatusFound, "/login")
}

func (h *AuthHandler) LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{
		"Flash": middleware.PopFlash(c),
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var form loginForm
	_ = c.ShouldBind(&form)

	result, err := h.authService.Login(app.LoginInput{
		Email:    form.Email,
		Password: form.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			middleware.SetFlash(c, "warning", "Email and password are required.")
		case errors.Is(err, app.ErrInvalidCredential):
			middleware.SetFlash(c, "danger", "Invalid email or password. Please try again.")
		default:
			log.Printf("login failed: %v", err)
			middleware.SetFlash(c, "danger", "Login failed. Please try again.")
		}
		c.Redirect(http.StatusFound, "/login")
		return
	}

	c.SetCookie(h.cookieName, result.Token, h.cookieMaxAge, "/", "", false, true)
	middleware.SetFlash(c, "success", "Login successful!")
	c.Redirect(http.StatusFound, "/dashboard")
}

// Logout clears the session cookie unconditionally.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie(h.cookieName, "", -1, "/", "", false, true)
	middleware.SetFlash(c, "info", "You have been logged out.")
	c.Redirect(http.StatusFound, "/login")
}
