package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/photoshare/internal/apperror"
	"github.com/sakif/photoshare/internal/auth"
	"github.com/sakif/photoshare/internal/model"
	"github.com/sakif/photoshare/internal/repository"
	"github.com/sakif/photoshare/internal/validation"
)

// gitHubLoginPrefix namespaces login names of GitHub-linked accounts so they
// never collide with names chosen at registration.
const gitHubLoginPrefix = "github:"

// AuthService handles the authentication business logic.
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT)
//
// It never touches cookies or requests; the handler does that with the
// token it gets back.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user record and the issued JWT so the handler can
// set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// LoginInput is the body of POST /admin/login.
type LoginInput struct {
	LoginName string `json:"login_name" validate:"required,notblank"`
	Password  string `json:"password"   validate:"required"`
}

// Login checks a login name and password.
//
// An unknown login name and a wrong password produce the same error, so the
// response does not reveal which accounts exist.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.LoginName = strings.TrimSpace(in.LoginName)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	badCredentials := apperror.ValidationFailed("login_name", "invalid login name or password")

	user, err := s.users.GetUserByLoginName(ctx, in.LoginName)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, badCredentials
		}
		return nil, fmt.Errorf("service/auth: looking up %q: %w", in.LoginName, err)
	}
	if user.PasswordHash == "" {
		return nil, badCredentials
	}
	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		s.logger.Info("failed login attempt", slog.String("login", in.LoginName))
		return nil, badCredentials
	}

	return s.issue(user, "password")
}

// LoginGitHub links the GitHub identity to an account, creating it on first
// login, and issues a token for it.
func (s *AuthService) LoginGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	first, last := ghUser.Names()
	ghID := ghUser.ID
	user := &model.User{
		LoginName: gitHubLoginPrefix + ghUser.Login,
		GitHubID:  &ghID,
		FirstName: first,
		LastName:  last,
	}

	// After the call user.ID is populated by the repository.
	if err := s.users.UpsertGitHub(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", ghUser.ID, err)
	}

	return s.issue(user, "github")
}

func (s *AuthService) issue(user *model.User, method string) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user authenticated",
		slog.String("userID", user.ID),
		slog.String("login", user.LoginName),
		slog.String("method", method),
	)
	return &AuthResult{User: user, Token: token}, nil
}

// CurrentUser returns the account behind an authenticated request. A token
// whose user has since been deleted counts as not logged in.
func (s *AuthService) CurrentUser(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.Unauthenticated()
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated()
		}
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

// ValidateToken validates a JWT string and returns the userID it encodes.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	userID, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return userID, nil
}

// TokenTTL is how long issued tokens, and so the session cookie, live.
func (s *AuthService) TokenTTL() int {
	return int(s.tokens.TTL().Seconds())
}
