package account

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meddx/meddx/internal/platform/auth"
)

var (
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNotFound           = errors.New("account not found")
	ErrInvalidInput       = errors.New("invalid account input")
)

// Account is a registered user. PasswordHash is a bcrypt hash and never
// leaves the service.
type Account struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	PasswordHash []byte    `json:"-"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
}

// clone returns a deep copy so stored records never alias caller memory.
func (a *Account) clone() *Account {
	cp := *a
	cp.PasswordHash = append([]byte(nil), a.PasswordHash...)
	cp.Roles = append([]string(nil), a.Roles...)
	return &cp
}

// Session converts the account into the request-scoped auth context.
func (a *Account) Session() *auth.Session {
	return &auth.Session{
		AccountID:   a.ID.String(),
		Username:    a.Username,
		DisplayName: a.DisplayName,
		Roles:       append([]string(nil), a.Roles...),
	}
}

// NormalizeUsername folds case and trims whitespace; usernames are unique
// after normalization.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func joinRoles(roles []string) string {
	return strings.Join(roles, ",")
}

func splitRoles(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
