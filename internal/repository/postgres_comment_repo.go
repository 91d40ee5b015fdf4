package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/shareit/internal/model"
	"github.com/lib/pq"
)

// PostgresCommentRepo はPostgreSQLを使用したコメントリポジトリ。
type PostgresCommentRepo struct {
	db *sql.DB
}

// NewPostgresCommentRepo はPostgresCommentRepoを生成する。
func NewPostgresCommentRepo(db *sql.DB) *PostgresCommentRepo {
	return &PostgresCommentRepo{db: db}
}

// Create はコメントを作成し、採番されたIDをcomment.IDに設定する。
func (r *PostgresCommentRepo) Create(ctx context.Context, comment *model.Comment) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO comments (text, item_id, author_id, created)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		comment.Text, comment.ItemID, comment.AuthorID, comment.Created,
	).Scan(&comment.ID)
	if err != nil {
		return fmt.Errorf("コメントの作成に失敗しました: %w", err)
	}
	return nil
}

// ListByItemIDs は指定物品のコメント一覧を投稿者名付きでcreated昇順に返す。
func (r *PostgresCommentRepo) ListByItemIDs(ctx context.Context, itemIDs []int64) ([]model.Comment, error) {
	if len(itemIDs) == 0 {
		return []model.Comment{}, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.text, c.item_id, c.author_id, u.name, c.created
		 FROM comments c
		 JOIN users u ON u.id = c.author_id
		 WHERE c.item_id = ANY($1)
		 ORDER BY c.created, c.id`,
		pq.Array(itemIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("コメント一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.Text, &c.ItemID, &c.AuthorID, &c.AuthorName, &c.Created); err != nil {
			return nil, fmt.Errorf("コメント行の読み取りに失敗しました: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("コメント一覧の走査に失敗しました: %w", err)
	}
	return comments, nil
}

// compile-time interface check
var _ CommentRepository = (*PostgresCommentRepo)(nil)
