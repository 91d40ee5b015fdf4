package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/shareit/internal/model"
)

// PostgresRequestRepo はPostgreSQLを使用した物品リクエストリポジトリ。
type PostgresRequestRepo struct {
	db *sql.DB
}

// NewPostgresRequestRepo はPostgresRequestRepoを生成する。
func NewPostgresRequestRepo(db *sql.DB) *PostgresRequestRepo {
	return &PostgresRequestRepo{db: db}
}

// FindByID は指定IDのリクエストを取得する。見つからない場合はnilを返す。
func (r *PostgresRequestRepo) FindByID(ctx context.Context, id int64) (*model.ItemRequest, error) {
	req := &model.ItemRequest{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, description, requester_id, created FROM requests WHERE id = $1`,
		id,
	).Scan(&req.ID, &req.Description, &req.RequesterID, &req.Created)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("リクエストの取得に失敗しました: %w", err)
	}
	return req, nil
}

// Create はリクエストを作成し、採番されたIDをrequest.IDに設定する。
func (r *PostgresRequestRepo) Create(ctx context.Context, request *model.ItemRequest) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO requests (description, requester_id, created)
		 VALUES ($1, $2, $3) RETURNING id`,
		request.Description, request.RequesterID, request.Created,
	).Scan(&request.ID)
	if err != nil {
		return fmt.Errorf("リクエストの作成に失敗しました: %w", err)
	}
	return nil
}

// ListByRequester は指定ユーザーのリクエスト一覧をcreated降順で返す。
func (r *PostgresRequestRepo) ListByRequester(ctx context.Context, requesterID int64) ([]model.ItemRequest, error) {
	return r.queryRequests(ctx,
		`SELECT id, description, requester_id, created FROM requests
		 WHERE requester_id = $1 ORDER BY created DESC, id DESC`,
		requesterID,
	)
}

// ListExcludingRequester は指定ユーザー以外のリクエスト一覧をcreated降順で返す。
func (r *PostgresRequestRepo) ListExcludingRequester(ctx context.Context, requesterID int64) ([]model.ItemRequest, error) {
	return r.queryRequests(ctx,
		`SELECT id, description, requester_id, created FROM requests
		 WHERE requester_id <> $1 ORDER BY created DESC, id DESC`,
		requesterID,
	)
}

func (r *PostgresRequestRepo) queryRequests(ctx context.Context, query string, args ...any) ([]model.ItemRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("リクエスト一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	requests := []model.ItemRequest{}
	for rows.Next() {
		var req model.ItemRequest
		if err := rows.Scan(&req.ID, &req.Description, &req.RequesterID, &req.Created); err != nil {
			return nil, fmt.Errorf("リクエスト行の読み取りに失敗しました: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("リクエスト一覧の走査に失敗しました: %w", err)
	}
	return requests, nil
}

// compile-time interface check
var _ RequestRepository = (*PostgresRequestRepo)(nil)
