package authkit

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CrudRepository is the persistence contract shared by every entity.
// Missing ids are not failures: Delete is a no-op and FindOne reports
// found == false. Database failures are returned unchanged.
type CrudRepository[T any, ID comparable] interface {
	Save(ctx context.Context, record T) (T, error)
	SaveAll(ctx context.Context, records []T) ([]T, error)
	Delete(ctx context.Context, id ID) error
	DeleteAll(ctx context.Context, ids []ID) error
	FindAll(ctx context.Context) ([]T, error)
	FindAllByID(ctx context.Context, ids []ID) ([]T, error)
	FindOne(ctx context.Context, id ID) (T, bool, error)
}

// crudRepository adapts a repository.Repository to CrudRepository. Every
// call runs against db, which is either the root database or a transaction.
type crudRepository[T any] struct {
	base            repository.Repository[T]
	db              bun.IDB
	txm             TransactionManager
	excludeOnUpdate []string
}

var _ CrudRepository[*LoginRole, uuid.UUID] = (*crudRepository[*LoginRole])(nil)

// NewCrudRepository returns a CrudRepository for uuid keyed models. Columns in
// excludeOnUpdate are never overwritten when Save updates an existing row.
func NewCrudRepository[T any](base repository.Repository[T], db bun.IDB, txm TransactionManager, excludeOnUpdate ...string) CrudRepository[T, uuid.UUID] {
	if txm == nil {
		txm = txManager{db: db}
	}
	return &crudRepository[T]{
		base:            base,
		db:              db,
		txm:             txm,
		excludeOnUpdate: excludeOnUpdate,
	}
}

func (r *crudRepository[T]) withDB(db bun.IDB) *crudRepository[T] {
	return &crudRepository[T]{
		base:            r.base,
		db:              db,
		txm:             txManager{db: db},
		excludeOnUpdate: r.excludeOnUpdate,
	}
}

// Save inserts records without id and updates the rest. An id that does not
// match any row is inserted as given.
func (r *crudRepository[T]) Save(ctx context.Context, record T) (T, error) {
	var zero T

	if r.base.Handlers().GetID(record) == uuid.Nil {
		return r.create(ctx, record)
	}

	// UpdateTx omits zero values, clearing a field must reach the row
	res, err := r.db.NewUpdate().
		Model(record).
		ExcludeColumn(r.excludeOnUpdate...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return zero, err
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return record, nil
	}

	return r.create(ctx, record)
}

func (r *crudRepository[T]) create(ctx context.Context, record T) (T, error) {
	created, err := r.base.CreateTx(ctx, r.db, record)
	if err != nil {
		var zero T
		return zero, err
	}
	return created, nil
}

func (r *crudRepository[T]) SaveAll(ctx context.Context, records []T) ([]T, error) {
	if len(records) == 0 {
		return []T{}, nil
	}

	saved := make([]T, 0, len(records))
	err := r.txm.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		repo := r.withDB(tx)
		for _, record := range records {
			out, err := repo.Save(ctx, record)
			if err != nil {
				return err
			}
			saved = append(saved, out)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return saved, nil
}

func (r *crudRepository[T]) Delete(ctx context.Context, id uuid.UUID) error {
	record := r.base.Handlers().NewRecord()
	r.base.Handlers().SetID(record, id)
	return r.base.DeleteTx(ctx, r.db, record)
}

func (r *crudRepository[T]) DeleteAll(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.base.DeleteWhereTx(ctx, r.db, deleteIDs(ids))
}

func (r *crudRepository[T]) FindAll(ctx context.Context) ([]T, error) {
	records, _, err := r.base.ListTx(ctx, r.db, unpaginated())
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *crudRepository[T]) FindAllByID(ctx context.Context, ids []uuid.UUID) ([]T, error) {
	if len(ids) == 0 {
		return []T{}, nil
	}

	records, _, err := r.base.ListTx(ctx, r.db, unpaginated(), selectIDs(ids))
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *crudRepository[T]) FindOne(ctx context.Context, id uuid.UUID) (T, bool, error) {
	var zero T
	record, err := r.base.GetByIDTx(ctx, r.db, id.String())
	return scanOne(zero, record, err)
}

// unpaginated lifts the default page size ListTx applies
func unpaginated() repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Limit(0).Offset(0)
	}
}

func selectIDs(ids []uuid.UUID) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.id IN (?)", bun.In(ids))
	}
}

func deleteIDs(ids []uuid.UUID) repository.DeleteCriteria {
	return func(q *bun.DeleteQuery) *bun.DeleteQuery {
		return q.Where("?TableAlias.id IN (?)", bun.In(ids))
	}
}

// scanOne turns sql.ErrNoRows into absence
func scanOne[T any](zero, record T, err error) (T, bool, error) {
	if err != nil {
		if isNoRows(err) {
			return zero, false, nil
		}
		return zero, false, err
	}
	return record, true, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err)
}
