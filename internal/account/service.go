package account

import (
	"context"
	"strings"

	"github.com/angelmondragon/storefront-client/internal/api"
	"github.com/angelmondragon/storefront-client/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/logger"
)

// Backend is the slice of the REST client account flows use.
type Backend interface {
	GetProfile(ctx context.Context, role enums.Role) (api.Profile, error)
	UpdateProfile(ctx context.Context, role enums.Role, profile api.Profile) (api.Profile, error)
	ChangePassword(ctx context.Context, req api.ChangePasswordRequest) (string, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) (string, error)
}

type ServiceParams struct {
	Backend Backend
	Logger  *logger.Logger
	Role    enums.Role
}

// Service exposes profile and password operations. Profile and
// change-password calls need a signed-in role; forgot and reset do not.
type Service struct {
	backend Backend
	logg    *logger.Logger
	role    enums.Role
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Backend == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account backend is required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &Service{backend: params.Backend, logg: params.Logger, role: params.Role}, nil
}

func (s *Service) Profile(ctx context.Context) (api.Profile, error) {
	if err := s.requireRole(); err != nil {
		return api.Profile{}, err
	}
	profile, err := s.backend.GetProfile(ctx, s.role)
	if err != nil {
		s.logg.WarnErr(s.logg.WithOperation(ctx, "account.profile"), "load profile failed", err)
		return api.Profile{}, err
	}
	return profile, nil
}

func (s *Service) UpdateProfile(ctx context.Context, profile api.Profile) (api.Profile, error) {
	if err := s.requireRole(); err != nil {
		return api.Profile{}, err
	}
	profile.Name = strings.TrimSpace(profile.Name)
	if profile.Name == "" {
		return api.Profile{}, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	saved, err := s.backend.UpdateProfile(ctx, s.role, profile)
	if err != nil {
		s.logg.WarnErr(s.logg.WithOperation(ctx, "account.update_profile"), "update profile failed", err)
		return api.Profile{}, err
	}
	return saved, nil
}

// ChangePassword returns the backend's confirmation message.
func (s *Service) ChangePassword(ctx context.Context, current, next string) (string, error) {
	if err := s.requireRole(); err != nil {
		return "", err
	}
	if current == next && current != "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "New password must differ from the current one")
	}
	msg, err := s.backend.ChangePassword(ctx, api.ChangePasswordRequest{CurrentPassword: current, NewPassword: next})
	if err != nil {
		s.logg.WarnErr(s.logg.WithOperation(ctx, "account.change_password"), "change password failed", err)
		return "", err
	}
	return msg, nil
}

func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	msg, err := s.backend.ForgotPassword(ctx, email)
	if err != nil {
		s.logg.WarnErr(s.logg.WithOperation(ctx, "account.forgot_password"), "forgot password failed", err)
		return "", err
	}
	return msg, nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	msg, err := s.backend.ResetPassword(ctx, token, newPassword)
	if err != nil {
		s.logg.WarnErr(s.logg.WithOperation(ctx, "account.reset_password"), "reset password failed", err)
		return "", err
	}
	return msg, nil
}

func (s *Service) requireRole() error {
	if !s.role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "please sign in to continue")
	}
	return nil
}
