package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ecomstore/storefront/internal/apiclient"
	"github.com/ecomstore/storefront/internal/session"
)

// LoginForm represents a login form submission
type LoginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// RegisterForm represents a registration form submission
type RegisterForm struct {
	Username  string `form:"username"`
	Email     string `form:"email"`
	FirstName string `form:"first_name"`
	LastName  string `form:"last_name"`
	Password  string `form:"password"`
	Password2 string `form:"password2"`
}

func (s *Server) loginPage(c *gin.Context) {
	if s.session.Snapshot().LoggedIn() {
		c.Redirect(http.StatusFound, "/")
		return
	}

	data := gin.H{}
	if c.Query("registered") != "" {
		data["Notice"] = "Account created. Please sign in."
	}
	s.render(c, http.StatusOK, "login.html", "Sign in", data)
}

func (s *Server) login(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBind(&form); err != nil {
		s.render(c, http.StatusBadRequest, "login.html", "Sign in", gin.H{
			"Error":    "Username and password are required",
			"Username": form.Username,
		})
		return
	}

	if _, err := s.session.Login(c.Request.Context(), form.Username, form.Password); err != nil {
		status := http.StatusUnauthorized
		message := "Credentials not recognized."
		switch {
		case errors.Is(err, session.ErrSuperseded):
			status = http.StatusConflict
			message = "Your session changed while signing in. Please try again."
		case !errors.Is(err, apiclient.ErrUnauthorized):
			s.logger.Warn().Err(err).Str("username", form.Username).Msg("Login failed")
			status = http.StatusBadGateway
			message = "Could not reach the store. Please try again."
		}
		s.render(c, status, "login.html", "Sign in", gin.H{"Error": message, "Username": form.Username})
		return
	}

	c.Redirect(http.StatusFound, "/")
}

func (s *Server) registerPage(c *gin.Context) {
	s.render(c, http.StatusOK, "register.html", "Register", gin.H{"Form": RegisterForm{}})
}

func (s *Server) register(c *gin.Context) {
	var form RegisterForm
	if err := c.ShouldBind(&form); err != nil {
		s.render(c, http.StatusBadRequest, "register.html", "Register", gin.H{"Form": form, "Error": "Invalid form"})
		return
	}

	_, err := s.session.Register(c.Request.Context(), session.RegisterRequest{
		Username:  form.Username,
		Email:     form.Email,
		Password:  form.Password,
		Password2: form.Password2,
		FirstName: form.FirstName,
		LastName:  form.LastName,
	})
	if err != nil {
		data := gin.H{"Form": form}
		var apiErr *apiclient.APIError
		switch {
		case errors.Is(err, session.ErrPasswordMismatch):
			data["Error"] = "Passwords do not match"
		case errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest:
			data["Error"] = apiErr.Detail()
			data["FieldErrors"] = apiErr.FieldErrors()
		case errors.As(err, &apiErr):
			data["Error"] = "Registration failed"
		default:
			data["Error"] = err.Error()
		}
		s.render(c, http.StatusBadRequest, "register.html", "Register", data)
		return
	}

	c.Redirect(http.StatusFound, "/login?registered=1")
}

func (s *Server) logout(c *gin.Context) {
	if err := s.session.Logout(); err != nil {
		s.logger.Warn().Err(err).Msg("Logout left tokens behind")
	}
	c.Redirect(http.StatusFound, "/")
}
