package account

import (
	"context"
	"sort"
	"sync"
)

// Repository persists accounts keyed by normalized username. Create must be
// atomic with respect to the uniqueness check: of two concurrent creates for
// the same username exactly one succeeds and the other gets
// ErrDuplicateUsername.
type Repository interface {
	Create(ctx context.Context, a *Account) error
	GetByUsername(ctx context.Context, username string) (*Account, error)
	List(ctx context.Context) ([]*Account, error)
}

type memoryRepo struct {
	mu       sync.Mutex
	accounts map[string]*Account
}

// NewMemoryRepo returns a process-local repository.
func NewMemoryRepo() Repository {
	return &memoryRepo{accounts: make(map[string]*Account)}
}

func (r *memoryRepo) Create(_ context.Context, a *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[a.Username]; ok {
		return ErrDuplicateUsername
	}
	r.accounts[a.Username] = a.clone()
	return nil
}

func (r *memoryRepo) GetByUsername(_ context.Context, username string) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[username]
	if !ok {
		return nil, ErrNotFound
	}
	return a.clone(), nil
}

func (r *memoryRepo) List(_ context.Context) ([]*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, a.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}
