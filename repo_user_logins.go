package authkit

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-authkit/metrics"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserLogins is the UserLogin repository
type UserLogins interface {
	CrudRepository[*UserLogin, uuid.UUID]

	FindByUsername(ctx context.Context, username string) (*UserLogin, bool, error)
	FindByActiveUsername(ctx context.Context, username string) (*UserLogin, bool, error)
	FindDetailsByUsername(ctx context.Context, username string) (*UserLoginInfo, bool, error)
	CountByUsername(ctx context.Context, username string) (int, error)

	Lock(ctx context.Context, username string) (*UserLogin, error)
	Unlock(ctx context.Context, username string) (*UserLogin, error)
	UpdateAvatar(ctx context.Context, id uuid.UUID, data []byte, contentType string) (*UserLogin, error)
	TrackSuccessfulLogin(ctx context.Context, user *UserLogin) error

	WithTx(tx bun.IDB) UserLogins
}

type userLogins struct {
	CrudRepository[*UserLogin, uuid.UUID]
	base repository.Repository[*UserLogin]
	tx   bun.IDB
	txm  TransactionManager
	now  func() time.Time
}

var _ UserLogins = (*userLogins)(nil)

func userLoginHandlers() repository.ModelHandlers[*UserLogin] {
	return repository.ModelHandlers[*UserLogin]{
		NewRecord: func() *UserLogin { return &UserLogin{} },
		GetID: func(u *UserLogin) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *UserLogin, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "username"
		},
	}
}

// NewUserLoginsRepository creates the UserLogin repository
func NewUserLoginsRepository(db *bun.DB) UserLogins {
	return newUserLogins(db, nil)
}

func newUserLogins(db *bun.DB, txm TransactionManager) UserLogins {
	if txm == nil {
		txm = txManager{db: db}
	}

	base := repository.NewRepository[*UserLogin](db, userLoginHandlers())
	return &userLogins{
		CrudRepository: NewCrudRepository(base, db, txm, auditColumns...),
		base:           base,
		tx:             db,
		txm:            txm,
		now:            time.Now,
	}
}

// WithTx returns a copy of the repository bound to tx
func (r *userLogins) WithTx(tx bun.IDB) UserLogins {
	return &userLogins{
		CrudRepository: NewCrudRepository(r.base, tx, nil, auditColumns...),
		base:           r.base,
		tx:             tx,
		txm:            txManager{db: tx},
		now:            r.now,
	}
}

func (r *userLogins) FindByUsername(ctx context.Context, username string) (*UserLogin, bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, false, nil
	}

	record, err := r.base.GetByIdentifierTx(ctx, r.tx, username)
	if err != nil {
		if isNoRows(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return record, true, nil
}

func (r *userLogins) FindByActiveUsername(ctx context.Context, username string) (*UserLogin, bool, error) {
	record, err := r.base.GetTx(ctx, r.tx,
		repository.SelectBy("username", "=", strings.TrimSpace(username)),
		activeOnly(),
	)
	return scanOne[*UserLogin](nil, record, err)
}

func (r *userLogins) FindDetailsByUsername(ctx context.Context, username string) (*UserLoginInfo, bool, error) {
	record, err := r.base.GetTx(ctx, r.tx,
		repository.Relation("Role"),
		repository.SelectBy("username", "=", strings.TrimSpace(username)),
	)

	user, found, err := scanOne[*UserLogin](nil, record, err)
	if err != nil || !found {
		return nil, found, err
	}

	return NewUserLoginInfo(user), true, nil
}

func (r *userLogins) CountByUsername(ctx context.Context, username string) (int, error) {
	return r.tx.NewSelect().
		Model((*UserLogin)(nil)).
		Where("?TableAlias.username = ?", strings.TrimSpace(username)).
		Count(ctx)
}

// Lock marks the user as locked and records the current auditor. Locking a
// locked user returns it unchanged. Unknown usernames yield a not found error.
func (r *userLogins) Lock(ctx context.Context, username string) (*UserLogin, error) {
	return r.setLocked(ctx, username, true)
}

// Unlock clears the lock state
func (r *userLogins) Unlock(ctx context.Context, username string) (*UserLogin, error) {
	return r.setLocked(ctx, username, false)
}

func (r *userLogins) setLocked(ctx context.Context, username string, locked bool) (*UserLogin, error) {
	var (
		out     *UserLogin
		changed bool
	)

	err := r.txm.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, found, err := r.WithTx(tx).FindByUsername(ctx, username)
		if err != nil {
			return err
		}

		if !found {
			return NewNotFound("user login not found").
				WithMetadata(map[string]any{
					"username": username,
				})
		}

		auditor, _ := CurrentAuditor(ctx)
		changed = record.setLocked(locked, r.now().UTC(), auditor)
		if !changed {
			out = record
			return nil
		}

		_, err = tx.NewUpdate().
			Model(record).
			Column("locked", "locked_at", "locked_by", "updated_at", "updated_by").
			WherePK().
			Exec(ctx)
		if err != nil {
			return err
		}

		out = record
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !changed {
		return out, nil
	}

	state := "unlocked"
	if locked {
		state = "locked"
	}
	metrics.UserLockTransitions.WithLabelValues(state).Inc()

	return out, nil
}

func (r *userLogins) UpdateAvatar(ctx context.Context, id uuid.UUID, data []byte, contentType string) (*UserLogin, error) {
	record := &UserLogin{
		ID:         id,
		Avatar:     data,
		AvatarType: contentType,
	}

	columns := []string{"avatar", "avatar_type", "updated_at"}
	if _, ok := CurrentAuditor(ctx); ok {
		columns = append(columns, "updated_by")
	}

	res, err := r.tx.NewUpdate().
		Model(record).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, NewNotFound("user login not found").
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	updated, _, err := r.FindOne(ctx, id)
	return updated, err
}

func (r *userLogins) TrackSuccessfulLogin(ctx context.Context, user *UserLogin) error {
	if user == nil {
		return nil
	}

	now := r.now().UTC()
	user.LastLoginAt = &now

	_, err := r.tx.NewUpdate().
		Model(user).
		Column("last_login_at").
		WherePK().
		Exec(ctx)

	return err
}

func activeOnly() repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.active = ?", true)
	}
}
