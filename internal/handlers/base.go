package handlers

import (
	"errors"
	"net/http"
	"strings"

	"inkblog/internal/config"
	"inkblog/internal/middleware"
	"inkblog/internal/models"
	"inkblog/internal/services"
	"inkblog/internal/views"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Site holds what every page handler needs to render the layout.
type Site struct {
	Blog    *services.BlogService
	Ranking *services.RankingService
	Authz   services.Authorizer
	Views   *views.Templates
	Config  config.SiteConfig
	Log     zerolog.Logger
}

// Render helper to inject common variables like 'current user'
func (s *Site) Render(c *gin.Context, code int, name string, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}

	user := middleware.CurrentUser(c)
	if user != nil {
		obj["CurrentUser"] = user
	}
	obj["IsAdmin"] = s.Authz.IsAdmin(user)
	obj["IsModerator"] = s.Authz.IsModerator(user)
	obj["CurrentPath"] = c.Request.URL.Path
	obj["SiteName"] = s.Config.Name

	ctx := c.Request.Context()
	if cats, err := s.Blog.ActiveCategories(ctx); err == nil {
		obj["NavCategories"] = cats
	} else {
		s.Log.Error().Err(err).Msg("Failed to load navbar categories")
	}
	if sb, err := s.Ranking.Sidebar(ctx); err == nil {
		obj["Sidebar"] = sb
	} else {
		s.Log.Error().Err(err).Msg("Failed to load sidebar rankings")
	}

	// flash 消息只显示一次
	session := sessions.Default(c)
	if flashes := session.Flashes(); len(flashes) > 0 {
		obj["Flash"] = flashes[0]
		if err := session.Save(); err != nil {
			s.Log.Warn().Err(err).Msg("Failed to save session")
		}
	}

	c.HTML(code, name, obj)
}

// RenderError renders the error page, or a JSON body for script requests.
func (s *Site) RenderError(c *gin.Context, code int, message string) {
	if middleware.IsAjax(c) {
		c.JSON(code, gin.H{"error": message})
		return
	}
	s.Render(c, code, "error.html", gin.H{"Code": code, "Error": message, "Title": http.StatusText(code)})
}

// Fail maps a service error onto an HTTP status and renders it.
func (s *Site) Fail(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.Log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		s.RenderError(c, code, "Something went wrong, please try again later.")
		return
	}
	s.Log.Debug().Err(err).Int("status", code).Msg("Request rejected")
	s.RenderError(c, code, msg(err))
}

// Flash stores a one-time message shown on the next rendered page.
func (s *Site) Flash(c *gin.Context, message string) {
	session := sessions.Default(c)
	session.AddFlash(message)
	if err := session.Save(); err != nil {
		s.Log.Warn().Err(err).Msg("Failed to save flash message")
	}
}

// requireModerator 检查当前用户是否为版主或管理员
func (s *Site) requireModerator(c *gin.Context) *models.User {
	user := middleware.CurrentUser(c)
	if user == nil {
		s.Fail(c, services.ErrUnauthorized)
		return nil
	}
	if !s.Authz.IsModerator(user) {
		s.Fail(c, services.ErrPermissionDenied)
		return nil
	}
	return user
}

// checkAdmin 检查当前用户是否为管理员
func (s *Site) checkAdmin(c *gin.Context) *models.User {
	user := middleware.CurrentUser(c)
	if user == nil {
		s.Fail(c, services.ErrUnauthorized)
		return nil
	}
	if !s.Authz.IsAdmin(user) {
		s.Fail(c, services.ErrPermissionDenied)
		return nil
	}
	return user
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrBadRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// msg keeps the most specific part of a wrapped error for display.
func msg(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, services.ErrNotFound):
		return "Page not found."
	case errors.Is(err, services.ErrPermissionDenied):
		return "You do not have permission to do that."
	case errors.Is(err, services.ErrUnauthorized):
		return "login required"
	}
	text := err.Error()
	if i := strings.LastIndex(text, ": "); i >= 0 {
		text = text[i+2:]
	}
	return text
}
