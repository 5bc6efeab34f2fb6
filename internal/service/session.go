package service

import (
	"context"

	"github.com/cli2468/Vision-sub000/internal/cloudsync"
	"github.com/cli2468/Vision-sub000/internal/domain"
)

// SessionState is what the account menu shows.
type SessionState struct {
	User          *domain.User `json:"user"`
	CloudEnabled  bool         `json:"cloudEnabled"`
	SignInEnabled bool         `json:"signInEnabled"`
}

func (s *Service) Session() SessionState {
	return SessionState{
		User:          s.session.CurrentUser(),
		CloudEnabled:  s.bridge != nil,
		SignInEnabled: s.accounts != nil,
	}
}

// Login checks credentials and signs this device in. The first sign-in of
// a session replaces the local ledger with the cloud copy.
func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	if s.accounts == nil {
		return domain.LoginResponse{}, ErrAuthDisabled
	}
	resp, err := s.accounts.Login(ctx, req)
	if err != nil {
		s.logger.Warn().Str("email", req.Email).Err(err).Msg("sign-in rejected")
		return domain.LoginResponse{}, err
	}
	s.session.SignIn(resp.User)
	s.logger.Info().Str("user", resp.User.ID).Msg("signed in")
	return resp, nil
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (domain.LoginResponse, error) {
	if s.accounts == nil {
		return domain.LoginResponse{}, ErrAuthDisabled
	}
	resp, err := s.accounts.Register(ctx, req)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	s.session.SignIn(resp.User)
	s.logger.Info().Str("user", resp.User.ID).Msg("account registered")
	return resp, nil
}

// Resume signs in with a previously issued token.
func (s *Service) Resume(token string) (domain.User, error) {
	if s.accounts == nil {
		return domain.User{}, ErrAuthDisabled
	}
	user, err := s.accounts.ParseToken(token)
	if err != nil {
		return domain.User{}, err
	}
	s.session.SignIn(user)
	return user, nil
}

func (s *Service) Logout() {
	s.session.SignOut()
}

// UploadLocalData copies every local lot to the signed-in account.
func (s *Service) UploadLocalData(ctx context.Context) (int, error) {
	if s.bridge == nil {
		return 0, ErrCloudDisabled
	}
	if s.session.CurrentUser() == nil {
		return 0, cloudsync.ErrSignedOut
	}
	return s.bridge.UploadLocalData(ctx)
}
