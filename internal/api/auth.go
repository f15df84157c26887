package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-client/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/types"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest creates an account. ShopName is required for sellers.
type RegisterRequest struct {
	Name     string     `json:"name" validate:"required"`
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required"`
	Role     enums.Role `json:"role" validate:"required,oneof=buyer seller"`
	ShopName string     `json:"shopName,omitempty" validate:"required_if=Role seller"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	NewPassword string `json:"newPassword" validate:"required"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (Credential, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := Validate(req); err != nil {
		return Credential{}, err
	}
	var cred Credential
	if err := c.do(ctx, request{
		operation: "auth.login",
		method:    http.MethodPost,
		path:      "/auth/login",
		body:      req,
	}, &cred); err != nil {
		return Credential{}, err
	}
	if cred.Token == "" {
		return Credential{}, pkgerrors.New(pkgerrors.CodeDependency, "login response missing token")
	}
	if !cred.Role.IsValid() {
		return Credential{}, pkgerrors.New(pkgerrors.CodeDependency, "login response has unknown role "+cred.Role.String())
	}
	return cred, nil
}

// Register creates a buyer or seller account. It does not sign in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (string, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Role != enums.RoleSeller {
		req.ShopName = ""
	}
	if err := Validate(req); err != nil {
		return "", err
	}
	var resp types.MessageBody
	err := c.do(ctx, request{
		operation: "auth.register",
		method:    http.MethodPost,
		path:      "/auth/register",
		body:      req,
	}, &resp)
	return resp.Message, err
}

// ChangePassword updates the signed-in user's password.
func (c *Client) ChangePassword(ctx context.Context, req ChangePasswordRequest) (string, error) {
	if err := Validate(req); err != nil {
		return "", err
	}
	var resp types.MessageBody
	err := c.do(ctx, request{
		operation: "auth.change_password",
		method:    http.MethodPost,
		path:      "/auth/change-password",
		body:      req,
		auth:      true,
	}, &resp)
	return resp.Message, err
}

// ForgotPassword asks the backend to email a reset link.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	req := forgotPasswordRequest{Email: strings.TrimSpace(email)}
	if err := Validate(req); err != nil {
		return "", err
	}
	var resp types.MessageBody
	err := c.do(ctx, request{
		operation: "auth.forgot_password",
		method:    http.MethodPost,
		path:      "/auth/forgot-password",
		body:      req,
	}, &resp)
	return resp.Message, err
}

// ResetPassword sets a new password using the emailed reset token.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "reset token is required")
	}
	req := resetPasswordRequest{NewPassword: newPassword}
	if err := Validate(req); err != nil {
		return "", err
	}
	var resp types.MessageBody
	err := c.do(ctx, request{
		operation: "auth.reset_password",
		method:    http.MethodPost,
		path:      "/auth/reset-password/" + pathEscape(token),
		body:      req,
	}, &resp)
	return resp.Message, err
}

// GetProfile fetches the profile of the signed-in user for role.
func (c *Client) GetProfile(ctx context.Context, role enums.Role) (Profile, error) {
	if !role.IsValid() {
		return Profile{}, pkgerrors.New(pkgerrors.CodeValidation, "role is required")
	}
	var resp struct {
		Profile Profile `json:"profile"`
	}
	err := c.do(ctx, request{
		operation: "auth.profile_get",
		method:    http.MethodGet,
		path:      "/auth/" + role.String() + "/profile",
		auth:      true,
	}, &resp)
	return resp.Profile, err
}

// UpdateProfile saves the profile. Shop fields are dropped for buyers.
func (c *Client) UpdateProfile(ctx context.Context, role enums.Role, profile Profile) (Profile, error) {
	if !role.IsValid() {
		return Profile{}, pkgerrors.New(pkgerrors.CodeValidation, "role is required")
	}
	if role != enums.RoleSeller {
		profile.ShopName = ""
		profile.ShopDescription = ""
	}
	var resp struct {
		Profile *Profile `json:"profile"`
	}
	if err := c.do(ctx, request{
		operation: "auth.profile_update",
		method:    http.MethodPut,
		path:      "/auth/" + role.String() + "/profile",
		body:      profile,
		auth:      true,
	}, &resp); err != nil {
		return Profile{}, err
	}
	if resp.Profile != nil {
		return *resp.Profile, nil
	}
	return profile, nil
}
