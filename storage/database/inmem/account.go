package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
	"github.com/ThumulaGamage/EduPlatform-backend/core/account"
)

type accountRepository struct {
	db *table[account.Account]
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *DB) account.Repository {
	return &accountRepository{db: db.accounts}
}

func cloneAccount(acc *account.Account) account.Account {
	c := *acc
	c.PasswordHash = append([]byte(nil), acc.PasswordHash...)
	return c
}

// emailTaken reports whether another account uses email. The caller must hold the lock.
func (repo *accountRepository) emailTaken(email, excludedID string) bool {
	for _, acc := range repo.db.rows {
		if acc.Email == email && acc.ID != excludedID {
			return true
		}
	}
	return false
}

func (repo *accountRepository) Create(_ context.Context, acc account.Account) (account.Account, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if acc.ID == "" {
		acc.ID = core.NewID()
	}
	if _, ok := repo.db.rows[acc.ID]; ok || repo.emailTaken(acc.Email, acc.ID) {
		return account.Account{}, core.ErrAlreadyExists
	}
	stored := cloneAccount(&acc)
	repo.db.rows[acc.ID] = &stored
	return acc, nil
}

func (repo *accountRepository) GetByID(_ context.Context, id string) (account.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if acc, ok := repo.db.rows[id]; ok {
		return cloneAccount(acc), nil
	}
	return account.Account{}, core.ErrNotFound
}

func (repo *accountRepository) GetByEmail(_ context.Context, email string) (account.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, acc := range repo.db.rows {
		if acc.Email == email {
			return cloneAccount(acc), nil
		}
	}
	return account.Account{}, core.ErrNotFound
}

func (repo *accountRepository) Query(_ context.Context, filter account.QueryFilter) ([]account.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	search := strings.ToLower(filter.Search)
	rows := repo.db.all(func(acc *account.Account) bool {
		if filter.Role != "" && acc.Role != filter.Role {
			return false
		}
		return search == "" ||
			strings.Contains(strings.ToLower(acc.Name), search) ||
			strings.Contains(acc.Email, search)
	})
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].ID > rows[j].ID
		}
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})

	accounts := make([]account.Account, 0, len(rows))
	for _, acc := range rows {
		accounts = append(accounts, cloneAccount(acc))
	}
	return accounts, nil
}

func (repo *accountRepository) Update(_ context.Context, acc account.Account) (account.Account, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.rows[acc.ID]
	if !ok {
		return account.Account{}, core.ErrNotFound
	}
	if repo.emailTaken(acc.Email, acc.ID) {
		return account.Account{}, core.ErrAlreadyExists
	}
	acc.Role = orig.Role // immutable
	acc.CreatedAt = orig.CreatedAt
	stored := cloneAccount(&acc)
	repo.db.rows[acc.ID] = &stored
	return acc, nil
}

func (repo *accountRepository) Delete(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[id]; !ok {
		return core.ErrNotFound
	}
	delete(repo.db.rows, id)
	return nil
}
