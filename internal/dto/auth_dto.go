package dto

import (
	"github.com/google/uuid"
)

// --- Auth DTOs ---

type RegisterRequest struct {
	FullName  string `json:"full_name" validate:"required,min=3"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	OabNumber string `json:"oab_number" validate:"omitempty,min=4"`
}

type RegisterResponse struct {
	Id      uuid.UUID `json:"id"`
	Email   string    `json:"email"`
	Credits int       `json:"credits"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string  `json:"access_token"`
	User        UserDTO `json:"user"`
}

type UserDTO struct {
	Id        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	Plan      string    `json:"plan"`
	Credits   int       `json:"credits"`
	OabNumber *string   `json:"oab_number,omitempty"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

type UpdateProfileRequest struct {
	FullName  string `json:"full_name" validate:"omitempty,min=3"`
	OabNumber string `json:"oab_number" validate:"omitempty,min=4"`
}
