package session

import (
	"context"
	"time"

	"github.com/angelmondragon/storefront-client/internal/api"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	"go.uber.org/multierr"
)

type AuthParams struct {
	Client  *api.Client
	Store   Store
	Logger  *logger.Logger
	Options Options
	Now     func() time.Time
}

// Authenticator signs users in and out and hands out their sessions.
type Authenticator struct {
	client *api.Client
	store  Store
	logg   *logger.Logger
	opts   Options
	now    func() time.Time
}

func NewAuthenticator(params AuthParams) (*Authenticator, error) {
	if params.Client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "api client is required")
	}
	if params.Store == nil {
		params.Store = NewMemoryStore()
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &Authenticator{
		client: params.Client,
		store:  params.Store,
		logg:   params.Logger,
		opts:   params.Options,
		now:    params.Now,
	}, nil
}

// Login signs in and persists the credential as the current session.
func (a *Authenticator) Login(ctx context.Context, email, password string) (*Session, error) {
	cred, err := a.client.Login(ctx, api.LoginRequest{Email: email, Password: password})
	if err != nil {
		a.logg.WarnErr(a.logg.WithOperation(ctx, "session.login"), "login failed", err)
		return nil, err
	}
	record := Record{Credential: cred}
	if exp, ok := TokenExpiry(cred.Token); ok {
		record.ExpiresAt = exp
	}
	if record.Expired(a.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login returned an expired token")
	}
	if err := a.store.SaveCurrent(ctx, record); err != nil {
		return nil, err
	}

	s, err := newSession(a.client, a.store, record, a.opts, a.logg)
	if err != nil {
		return nil, err
	}
	a.logg.Info(s.LogContext(a.logg.WithOperation(ctx, "session.login")), "signed in")
	return s, nil
}

// Register creates an account and returns the backend's message. The new
// user still has to log in.
func (a *Authenticator) Register(ctx context.Context, req api.RegisterRequest) (string, error) {
	msg, err := a.client.Register(ctx, req)
	if err != nil {
		a.logg.WarnErr(a.logg.WithOperation(ctx, "session.register"), "register failed", err)
		return "", err
	}
	return msg, nil
}

// Resume restores the persisted session. Without one it returns a guest
// session; an expired one is cleared and reported as UNAUTHORIZED.
func (a *Authenticator) Resume(ctx context.Context) (*Session, error) {
	record, ok, err := a.store.Current(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return a.Guest()
	}
	if record.Expired(a.now()) {
		if err := a.store.ClearCurrent(ctx); err != nil {
			a.logg.WarnErr(a.logg.WithOperation(ctx, "session.resume"), "clear expired session failed", err)
		}
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "Your session has expired, please log in again")
	}
	return newSession(a.client, a.store, record, a.opts, a.logg)
}

// Guest returns a session with no credential. It can browse the catalog.
func (a *Authenticator) Guest() (*Session, error) {
	return newSession(a.client, a.store, Record{}, a.opts, a.logg)
}

// Logout closes s and forgets the persisted credential.
func (a *Authenticator) Logout(ctx context.Context, s *Session) error {
	var err error
	if s != nil {
		err = multierr.Append(err, s.Close())
	}
	err = multierr.Append(err, a.store.ClearCurrent(ctx))
	if err != nil {
		a.logg.WarnErr(a.logg.WithOperation(ctx, "session.logout"), "logout incomplete", err)
		return err
	}
	a.logg.Info(a.logg.WithOperation(ctx, "session.logout"), "signed out")
	return nil
}
