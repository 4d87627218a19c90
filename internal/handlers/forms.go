package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

type loginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
	Next     string `form:"next"`
}

type registerForm struct {
	Username string `form:"username" binding:"required,max=150"`
	Email    string `form:"email" binding:"omitempty,email,max=254"`
	Password string `form:"password" binding:"required,min=6"`
	Captcha  string `form:"captcha"`
}

type commentForm struct {
	App      string `form:"app_name" binding:"required"`
	Model    string `form:"model_name" binding:"required"`
	ObjectID uint   `form:"model_id" binding:"required"`
	ParentID *uint  `form:"parent_id"`
	Content  string `form:"content"`
}

type flagForm struct {
	Reason int    `form:"reason" binding:"required"`
	Info   string `form:"info" binding:"max=1000"`
}

type resolveForm struct {
	State int `form:"state" binding:"required,oneof=3 4"`
}

type statusForm struct {
	IDs    []string `form:"ids"`
	Status string   `form:"status" binding:"required,oneof=p d"`
}

// bindMessage turns a binding error into a short message for the user.
func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid form data"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", field))
		case "min":
			parts = append(parts, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		case "max":
			parts = append(parts, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		case "email":
			parts = append(parts, "email address is invalid")
		default:
			parts = append(parts, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(parts, "; ")
}
