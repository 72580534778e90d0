package inmem

import (
	"fmt"
	"sync"

	openbo "github.com/NewYaroslav/open-bo-api"
)

// AccountRepository is an in-memory account store used by tests and
// dry runs. Stored accounts are deep copies on both sides of the API.
type AccountRepository struct {
	accountsMutex sync.RWMutex
	accounts      map[uint64]*openbo.Account
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		accounts: make(map[uint64]*openbo.Account),
	}
}

func (ar *AccountRepository) CreateAccount(account *openbo.Account) error {
	ar.accountsMutex.Lock()
	defer ar.accountsMutex.Unlock()

	if _, exists := ar.accounts[account.ID]; exists {
		return fmt.Errorf("account [%v] already exists", account.ID)
	}

	ar.accounts[account.ID] = account.Clone()

	return nil
}

func (ar *AccountRepository) UpdateAccount(account *openbo.Account) error {
	ar.accountsMutex.Lock()
	defer ar.accountsMutex.Unlock()

	if _, exists := ar.accounts[account.ID]; !exists {
		return fmt.Errorf("unknown account: [%v]", account.ID)
	}

	ar.accounts[account.ID] = account.Clone()

	return nil
}

func (ar *AccountRepository) DeleteAccount(accountID uint64) error {
	ar.accountsMutex.Lock()
	defer ar.accountsMutex.Unlock()

	if _, exists := ar.accounts[accountID]; !exists {
		return fmt.Errorf("unknown account: [%v]", accountID)
	}

	delete(ar.accounts, accountID)

	return nil
}

func (ar *AccountRepository) Accounts() ([]*openbo.Account, error) {
	ar.accountsMutex.RLock()
	defer ar.accountsMutex.RUnlock()

	accounts := make([]*openbo.Account, 0, len(ar.accounts))
	for _, account := range ar.accounts {
		accounts = append(accounts, account.Clone())
	}

	return accounts, nil
}
