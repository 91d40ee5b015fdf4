package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hitoshi/shareit/internal/model"
	"github.com/lib/pq"
)

// itemColumns はitemsテーブルから取得する列。scanItemの順序と一致させる。
const itemColumns = `id, owner_id, name, description, available, request_id`

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresItemRepo はPostgreSQLを使用した物品リポジトリ。
type PostgresItemRepo struct {
	db *sql.DB
}

// NewPostgresItemRepo はPostgresItemRepoを生成する。
func NewPostgresItemRepo(db *sql.DB) *PostgresItemRepo {
	return &PostgresItemRepo{db: db}
}

// FindByID は指定IDの物品を取得する。見つからない場合はnilを返す。
func (r *PostgresItemRepo) FindByID(ctx context.Context, id int64) (*model.Item, error) {
	item, err := scanItem(r.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("物品の取得に失敗しました: %w", err)
	}
	return item, nil
}

// ListByOwner は所有者の物品一覧をID昇順で返す。
func (r *PostgresItemRepo) ListByOwner(ctx context.Context, ownerID int64) ([]model.Item, error) {
	return r.queryItems(ctx, "所有者の物品一覧",
		`SELECT `+itemColumns+` FROM items WHERE owner_id = $1 ORDER BY id`,
		ownerID,
	)
}

// ListByRequestIDs は指定リクエストのいずれかに応えた物品一覧を返す。
func (r *PostgresItemRepo) ListByRequestIDs(ctx context.Context, requestIDs []int64) ([]model.Item, error) {
	if len(requestIDs) == 0 {
		return []model.Item{}, nil
	}
	return r.queryItems(ctx, "リクエストに応えた物品一覧",
		`SELECT `+itemColumns+` FROM items WHERE request_id = ANY($1) ORDER BY id`,
		pq.Array(requestIDs),
	)
}

// Search は名前または説明に部分一致する予約可能な物品を返す。
// ILIKEで大文字小文字を区別せず、入力中のワイルドカード文字はエスケープする。
func (r *PostgresItemRepo) Search(ctx context.Context, text string) ([]model.Item, error) {
	pattern := "%" + escapeLike(text) + "%"
	return r.queryItems(ctx, "物品の検索",
		`SELECT `+itemColumns+` FROM items
		 WHERE available = true
		   AND (name ILIKE $1 OR description ILIKE $1)
		 ORDER BY id`,
		pattern,
	)
}

// Create は物品を作成し、採番されたIDをitem.IDに設定する。
func (r *PostgresItemRepo) Create(ctx context.Context, item *model.Item) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO items (owner_id, name, description, available, request_id)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		item.OwnerID, item.Name, item.Description, item.Available, nullInt64(item.RequestID),
	).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("物品の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は物品の名前・説明・予約可否を上書き更新する。
func (r *PostgresItemRepo) Update(ctx context.Context, item *model.Item) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE items SET name = $2, description = $3, available = $4 WHERE id = $1`,
		item.ID, item.Name, item.Description, item.Available,
	)
	if err != nil {
		return fmt.Errorf("物品の更新に失敗しました: %w", err)
	}
	return nil
}

// DeleteByID は指定IDの物品を削除する。予約とコメントはCASCADE削除される。
func (r *PostgresItemRepo) DeleteByID(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id); err != nil {
		return fmt.Errorf("物品の削除に失敗しました: %w", err)
	}
	return nil
}

// queryItems は物品一覧を返すクエリを実行し、結果を読み取る。
func (r *PostgresItemRepo) queryItems(ctx context.Context, what, query string, args ...any) ([]model.Item, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%sの取得に失敗しました: %w", what, err)
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("%sの行読み取りに失敗しました: %w", what, err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%sの走査に失敗しました: %w", what, err)
	}
	return items, nil
}

// scanItem はitemColumnsの順に1行を読み取る。
func scanItem(row rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var requestID sql.NullInt64
	if err := row.Scan(
		&item.ID, &item.OwnerID, &item.Name, &item.Description, &item.Available, &requestID,
	); err != nil {
		return nil, err
	}
	item.RequestID = nullInt64Value(requestID)
	return item, nil
}

// escapeLike はLIKEパターンのメタ文字（\ % _）をエスケープする。
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// compile-time interface check
var _ ItemRepository = (*PostgresItemRepo)(nil)
