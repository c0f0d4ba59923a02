package handler

import "github.com/hirelane/portal/internal/core/domain"

type loginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type registerRequest struct {
	Username string `json:"username"  form:"username"  validate:"required,min=3"`
	Email    string `json:"email"     form:"email"     validate:"required,email"`
	Password string `json:"password"  form:"password"  validate:"required,min=8"`
	FullName string `json:"full_name" form:"full_name"`
	Role     string `json:"role"      form:"role"      validate:"omitempty,oneof=candidate hr admin"`
}

type resetRequest struct {
	Email string `json:"email" form:"email" validate:"required,email"`
}

type resetConfirmRequest struct {
	Token       string `json:"token"        form:"token"        validate:"required"`
	NewPassword string `json:"new_password" form:"new_password" validate:"required,min=8"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" form:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword"     form:"newPassword"     validate:"required,min=8,nefield=CurrentPassword"`
}

// viewResponse names the view a page should render and carries its data.
type viewResponse struct {
	View string       `json:"view"`
	User *domain.User `json:"user,omitempty"`
	Data any          `json:"data,omitempty"`
}

type loginViewData struct {
	Error string `json:"error"`
}

type loginResponse struct {
	User     *domain.User `json:"user"`
	Redirect string       `json:"redirect"`
}
