package linkdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// Impl implements Repository.
type Impl struct{}

var _ Repository = (*Impl)(nil)

// NewRepository creates a new link repository.
func NewRepository() *Impl {
	return &Impl{}
}

func (r *Impl) Get(ctx context.Context, db bun.IDB, tag string) (*LinkedAccount, error) {
	account := new(LinkedAccount)
	err := db.NewSelect().
		Model(account).
		Where("tag = ?", tag).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("linkdb.Get: %w", err)
	}
	return account, nil
}

func (r *Impl) Save(ctx context.Context, db bun.IDB, account *LinkedAccount) error {
	account.UpdatedAt = time.Now().UTC()
	_, err := db.NewInsert().
		Model(account).
		On("CONFLICT (tag) DO UPDATE").
		Set("user_id = EXCLUDED.user_id").
		Set("name = EXCLUDED.name").
		Set("verified = EXCLUDED.verified").
		Set("link_order = EXCLUDED.link_order").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("linkdb.Save: %w", err)
	}
	return nil
}

func (r *Impl) Delete(ctx context.Context, db bun.IDB, userID, tag string) error {
	res, err := db.NewDelete().
		Model((*LinkedAccount)(nil)).
		Where("user_id = ?", userID).
		Where("tag = ?", tag).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("linkdb.Delete: %w", err)
	}
	return requireAffected(res)
}

func (r *Impl) SetVerified(ctx context.Context, db bun.IDB, tag string, verified bool) error {
	res, err := db.NewUpdate().
		Model((*LinkedAccount)(nil)).
		Set("verified = ?", verified).
		Set("updated_at = ?", time.Now().UTC()).
		Where("tag = ?", tag).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("linkdb.SetVerified: %w", err)
	}
	return requireAffected(res)
}

func (r *Impl) SetOrder(ctx context.Context, db bun.IDB, userID, tag string, order int) error {
	res, err := db.NewUpdate().
		Model((*LinkedAccount)(nil)).
		Set("link_order = ?", order).
		Set("updated_at = ?", time.Now().UTC()).
		Where("user_id = ?", userID).
		Where("tag = ?", tag).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("linkdb.SetOrder: %w", err)
	}
	return requireAffected(res)
}

func (r *Impl) NextOrder(ctx context.Context, db bun.IDB, userID string) (int, error) {
	var next int
	err := db.NewSelect().
		Model((*LinkedAccount)(nil)).
		ColumnExpr("COALESCE(MAX(link_order) + 1, 0)").
		Where("user_id = ?", userID).
		Scan(ctx, &next)
	if err != nil {
		return 0, fmt.Errorf("linkdb.NextOrder: %w", err)
	}
	return next, nil
}

func (r *Impl) ListByUser(ctx context.Context, db bun.IDB, userID string) ([]LinkedAccount, error) {
	var accounts []LinkedAccount
	err := db.NewSelect().
		Model(&accounts).
		Where("user_id = ?", userID).
		Order("link_order ASC", "created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("linkdb.ListByUser: %w", err)
	}
	return accounts, nil
}

func (r *Impl) FindByUserIDs(ctx context.Context, db bun.IDB, userIDs []string) ([]LinkedAccount, error) {
	if len(userIDs) == 0 {
		return []LinkedAccount{}, nil
	}
	var accounts []LinkedAccount
	err := db.NewSelect().
		Model(&accounts).
		Where("user_id IN (?)", bun.In(userIDs)).
		Order("user_id ASC", "link_order ASC", "created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("linkdb.FindByUserIDs: %w", err)
	}
	return accounts, nil
}

func (r *Impl) FindByGameTags(ctx context.Context, db bun.IDB, tags []string) ([]LinkedAccount, error) {
	if len(tags) == 0 {
		return []LinkedAccount{}, nil
	}
	owners := db.NewSelect().
		Model((*LinkedAccount)(nil)).
		Column("user_id").
		Where("tag IN (?)", bun.In(tags))

	var accounts []LinkedAccount
	err := db.NewSelect().
		Model(&accounts).
		Where("user_id IN (?)", owners).
		Order("user_id ASC", "link_order ASC", "created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("linkdb.FindByGameTags: %w", err)
	}
	return accounts, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNoRowsAffected
	}
	return nil
}
