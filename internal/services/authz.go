package services

import (
	"inkblog/internal/models"
)

// Authorizer answers capability questions about a user.
type Authorizer interface {
	IsAdmin(u *models.User) bool
	IsModerator(u *models.User) bool
}

// RoleAuthorizer reads capabilities from User.Role. Admins are moderators too.
type RoleAuthorizer struct{}

func (RoleAuthorizer) IsAdmin(u *models.User) bool {
	return u != nil && u.Role == models.RoleAdmin
}

func (a RoleAuthorizer) IsModerator(u *models.User) bool {
	return u != nil && (u.Role == models.RoleModerator || a.IsAdmin(u))
}
