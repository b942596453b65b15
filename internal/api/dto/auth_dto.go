package dto

import (
	"github.com/cuongbtq/gigmarket/internal/auth"
	"github.com/cuongbtq/gigmarket/internal/domain"
)

type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name" binding:"required,notblank,max=120"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UserDTO struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

type SessionResponse struct {
	User  UserDTO     `json:"user"`
	Token *auth.Token `json:"token"`
}

// NewUserDTO strips credentials from a user
func NewUserDTO(u *domain.User) UserDTO {
	return UserDTO{ID: u.ID, Email: u.Email, FullName: u.FullName}
}
