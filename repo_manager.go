package authkit

import (
	"context"
	"database/sql"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// TransactionManager runs f inside a database transaction
type TransactionManager interface {
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
}

// txManager does not open transactions for contexts that are already done
type txManager struct {
	db bun.IDB
}

func (m txManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.db.RunInTx(ctx, opts, f)
}

// RepositoryManager exposes all repositories. Their multi statement
// operations share its transaction boundary.
type RepositoryManager interface {
	TransactionManager
	Validate() error
	MustValidate()
	LoginRoles() LoginRoles
	UserLogins() UserLogins
}

type manager struct {
	txManager
	loginRoles LoginRoles
	userLogins UserLogins
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	m := &manager{txManager: txManager{db: db}}
	m.loginRoles = newLoginRoles(db, m)
	m.userLogins = newUserLogins(db, m)
	return m
}

// Validate reports repositories that were not wired
func (m *manager) Validate() error {
	var missing []string
	if m.loginRoles == nil {
		missing = append(missing, "login_roles")
	}
	if m.userLogins == nil {
		missing = append(missing, "user_logins")
	}

	if len(missing) == 0 {
		return nil
	}

	return goerrors.New("repository manager is not fully wired", goerrors.CategoryInternal).
		WithCode(goerrors.CodeInternal).
		WithMetadata(map[string]any{
			"missing": missing,
		})
}

func (m *manager) MustValidate() {
	if err := m.Validate(); err != nil {
		panic(err)
	}
}

func (m *manager) LoginRoles() LoginRoles {
	return m.loginRoles
}

func (m *manager) UserLogins() UserLogins {
	return m.userLogins
}
