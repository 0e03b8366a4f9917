package authkit

import (
	"context"
	"strings"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// LoginRoles is the LoginRole repository
type LoginRoles interface {
	CrudRepository[*LoginRole, uuid.UUID]
	FindByName(ctx context.Context, name string) (*LoginRole, bool, error)
	WithTx(tx bun.IDB) LoginRoles
}

type loginRoles struct {
	CrudRepository[*LoginRole, uuid.UUID]
	base repository.Repository[*LoginRole]
	tx   bun.IDB
}

var _ LoginRoles = (*loginRoles)(nil)

func loginRoleHandlers() repository.ModelHandlers[*LoginRole] {
	return repository.ModelHandlers[*LoginRole]{
		NewRecord: func() *LoginRole { return &LoginRole{} },
		GetID: func(r *LoginRole) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *LoginRole, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
		GetIdentifier: func() string {
			return "name"
		},
	}
}

// NewLoginRolesRepository creates the LoginRole repository
func NewLoginRolesRepository(db *bun.DB) LoginRoles {
	return newLoginRoles(db, nil)
}

func newLoginRoles(db *bun.DB, txm TransactionManager) LoginRoles {
	base := repository.NewRepository[*LoginRole](db, loginRoleHandlers())
	return &loginRoles{
		CrudRepository: NewCrudRepository(base, db, txm, auditColumns...),
		base:           base,
		tx:             db,
	}
}

// WithTx returns a copy of the repository bound to tx
func (r *loginRoles) WithTx(tx bun.IDB) LoginRoles {
	return &loginRoles{
		CrudRepository: NewCrudRepository(r.base, tx, nil, auditColumns...),
		base:           r.base,
		tx:             tx,
	}
}

// FindByName returns the role with the given name. A missing role is
// reported as found == false.
func (r *loginRoles) FindByName(ctx context.Context, name string) (*LoginRole, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, nil
	}

	record, err := r.base.GetByIdentifierTx(ctx, r.tx, name)
	if err != nil {
		if isNoRows(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return record, true, nil
}
