package handlers

import (
	"errors"
	"net/http"
	"strings"

	"inkblog/internal/middleware"
	"inkblog/internal/services"
	"inkblog/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const captchaSessionKey = "captcha_answer"

type AuthHandler struct {
	site    *Site
	users   *services.UserService
	captcha services.Challenger // nil 时注册不需要验证码
}

func NewAuthHandler(site *Site, users *services.UserService, captcha services.Challenger) *AuthHandler {
	return &AuthHandler{site: site, users: users, captcha: captcha}
}

// safeNext 只允许站内跳转
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

func (h *AuthHandler) login(c *gin.Context, userID uint) error {
	session := sessions.Default(c)
	session.Clear()
	session.Set(middleware.SessionUserKey, userID)
	return session.Save()
}

// renderRegister 渲染注册页，每次都生成新的验证码
func (h *AuthHandler) renderRegister(c *gin.Context, code int, obj gin.H) {
	obj["Title"] = "Sign up"
	if h.captcha != nil {
		question, answer := h.captcha.NewChallenge()
		session := sessions.Default(c)
		session.Set(captchaSessionKey, answer)
		if err := session.Save(); err != nil {
			h.site.Fail(c, err)
			return
		}
		obj["Captcha"] = question
	}
	h.site.Render(c, code, "auth/register.html", obj)
}

// checkCaptcha 校验并清除 session 中的答案
func (h *AuthHandler) checkCaptcha(c *gin.Context, input string) bool {
	if h.captcha == nil {
		return true
	}
	session := sessions.Default(c)
	expected, ok := session.Get(captchaSessionKey).(int)
	session.Delete(captchaSessionKey)
	session.Save()
	return ok && utils.StringToInt(strings.TrimSpace(input)) == expected
}

func (h *AuthHandler) ShowRegister(c *gin.Context) {
	h.renderRegister(c, http.StatusOK, gin.H{})
}

func (h *AuthHandler) Register(c *gin.Context) {
	var form registerForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderRegister(c, http.StatusBadRequest, gin.H{
			"Error": bindMessage(err), "Username": form.Username, "Email": form.Email,
		})
		return
	}

	if !h.checkCaptcha(c, form.Captcha) {
		h.renderRegister(c, http.StatusBadRequest, gin.H{
			"Error": "Wrong answer to the math question.", "Username": form.Username, "Email": form.Email,
		})
		return
	}

	user, err := h.users.Register(c.Request.Context(), strings.TrimSpace(form.Username), strings.TrimSpace(form.Email), form.Password)
	if err != nil {
		code := statusFor(err)
		message := msg(err)
		if errors.Is(err, services.ErrUsernameTaken) {
			code, message = http.StatusConflict, "That username is already taken."
		} else if code == http.StatusInternalServerError {
			h.site.Fail(c, err)
			return
		}
		h.renderRegister(c, code, gin.H{
			"Error": message, "Username": form.Username, "Email": form.Email,
		})
		return
	}

	if err := h.login(c, user.ID); err != nil {
		h.site.Fail(c, err)
		return
	}
	h.site.Log.Info().Uint("user_id", user.ID).Str("username", user.Username).Msg("User registered")
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) ShowLogin(c *gin.Context) {
	h.site.Render(c, http.StatusOK, "auth/login.html", gin.H{"Title": "Log in", "Next": c.Query("next")})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		h.site.Render(c, http.StatusBadRequest, "auth/login.html", gin.H{
			"Title": "Log in", "Error": bindMessage(err), "Username": form.Username, "Next": form.Next,
		})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		if !errors.Is(err, services.ErrUnauthorized) {
			h.site.Fail(c, err)
			return
		}
		h.site.Render(c, http.StatusUnauthorized, "auth/login.html", gin.H{
			"Title": "Log in", "Error": "Invalid username or password.", "Username": form.Username, "Next": form.Next,
		})
		return
	}

	if err := h.login(c, user.ID); err != nil {
		h.site.Fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, safeNext(form.Next))
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	c.Redirect(http.StatusFound, "/")
}
