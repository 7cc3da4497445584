package account

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/meddx/meddx/internal/platform/auth"
)

const (
	minPasswordLen = 8
	// bcrypt ignores input past 72 bytes.
	maxPasswordLen = 72
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{2,63}$`)

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Account   *Account  `json:"account"`
}

type Service struct {
	repo   Repository
	tokens *auth.TokenIssuer
	logger zerolog.Logger
	cost   int
	now    func() time.Time

	// dummyHash keeps unknown-username logins as slow as wrong-password ones.
	dummyHash []byte
}

func NewService(repo Repository, tokens *auth.TokenIssuer, logger zerolog.Logger) *Service {
	s := &Service{
		repo:   repo,
		tokens: tokens,
		logger: logger,
		now:    time.Now,
	}
	if err := s.SetHashCost(bcrypt.DefaultCost); err != nil {
		panic(err) // DefaultCost is always in range
	}
	return s
}

// SetHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost. An out of
// range cost is rejected and the current cost and dummy hash are kept.
func (s *Service) SetHashCost(cost int) error {
	h, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	if err != nil {
		return fmt.Errorf("bcrypt cost %d: %w", cost, err)
	}
	s.cost, s.dummyHash = cost, h
	return nil
}

// Register creates an account with the user role. Concurrent registrations
// of the same username yield exactly one success; the rest get
// ErrDuplicateUsername.
func (s *Service) Register(ctx context.Context, username, password, displayName string) (*Account, error) {
	return s.create(ctx, username, password, displayName, []string{auth.RoleUser})
}

func (s *Service) create(ctx context.Context, username, password, displayName string, roles []string) (*Account, error) {
	username = NormalizeUsername(username)
	if !usernamePattern.MatchString(username) {
		return nil, fmt.Errorf("%w: username must be 3-64 characters of letters, digits, '.', '_' or '-'", ErrInvalidInput)
	}
	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		return nil, fmt.Errorf("%w: password must be %d to %d bytes", ErrInvalidInput, minPasswordLen, maxPasswordLen)
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = username
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	a := &Account{
		ID:           uuid.New(),
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: hash,
		Roles:        roles,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Info().Str("username", username).Strs("roles", roles).Msg("account registered")
	return a, nil
}

// Authenticate checks a username/password pair. Unknown usernames and wrong
// passwords both return ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*Account, error) {
	username = NormalizeUsername(username)
	a, err := s.repo.GetByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return a, nil
}

// Login authenticates and issues a session token.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	a, err := s.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.logger.Warn().Str("username", NormalizeUsername(username)).Msg("login failed")
		}
		return nil, err
	}
	token, exp, err := s.tokens.Issue(a.Session())
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: exp, Account: a}, nil
}

// Logout revokes the token behind sess.
func (s *Service) Logout(sess *auth.Session) error {
	if err := s.tokens.Revoke(sess); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	s.logger.Info().Str("username", sess.Username).Msg("logged out")
	return nil
}

// EnsureAdmin creates the bootstrap admin account if it does not exist yet.
// It reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	_, err := s.create(ctx, username, password, "Administrator", []string{auth.RoleAdmin})
	if errors.Is(err, ErrDuplicateUsername) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("bootstrap admin: %w", err)
	}
	return true, nil
}

// CreateWithRoles is used by the CLI to provision accounts directly.
func (s *Service) CreateWithRoles(ctx context.Context, username, password, displayName string, roles []string) (*Account, error) {
	if len(roles) == 0 {
		roles = []string{auth.RoleUser}
	}
	return s.create(ctx, username, password, displayName, roles)
}

func (s *Service) List(ctx context.Context) ([]*Account, error) {
	return s.repo.List(ctx)
}
