package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"

	"github.com/hitoshi/shareit/internal/model"
)

const dialectPostgres = "postgres"

// 予約一覧の絞り込み対象列
const (
	scopeBooker = "b.booker_id"
	scopeOwner  = "i.owner_id"
)

// pg はプレースホルダ付きSQLを生成するgoquビルダー。
var pg = goqu.Dialect(dialectPostgres)

// bookingRow はbookingsテーブルの1行。
type bookingRow struct {
	ID       int64     `db:"id"`
	Start    time.Time `db:"start_date"`
	End      time.Time `db:"end_date"`
	ItemID   int64     `db:"item_id"`
	BookerID int64     `db:"booker_id"`
	Status   string    `db:"status"`
}

func (r bookingRow) toModel() model.Booking {
	return model.Booking{
		ID:       r.ID,
		Start:    r.Start,
		End:      r.End,
		ItemID:   r.ItemID,
		BookerID: r.BookerID,
		Status:   model.BookingStatus(r.Status),
	}
}

// bookingDetailRow は物品名・所有者・予約者名を結合した予約行。
type bookingDetailRow struct {
	bookingRow
	ItemName    string `db:"item_name"`
	ItemOwnerID int64  `db:"item_owner_id"`
	BookerName  string `db:"booker_name"`
}

func (r bookingDetailRow) toModel() model.BookingDetail {
	return model.BookingDetail{
		Booking:     r.bookingRow.toModel(),
		ItemName:    r.ItemName,
		ItemOwnerID: r.ItemOwnerID,
		BookerName:  r.BookerName,
	}
}

// PostgresBookingRepo はPostgreSQLを使用した予約リポジトリ。
// 絞り込み条件が動的に変わるクエリはgoquで組み立て、sqlxで構造体に読み込む。
type PostgresBookingRepo struct {
	db *sqlx.DB
}

// NewPostgresBookingRepo はPostgresBookingRepoを生成する。
func NewPostgresBookingRepo(db *sql.DB) *PostgresBookingRepo {
	return &PostgresBookingRepo{db: sqlx.NewDb(db, dialectPostgres)}
}

// bookingDetailSelect は予約・物品・予約者を結合したSELECT文のベース。
func bookingDetailSelect() *goqu.SelectDataset {
	return pg.From(goqu.T("bookings").As("b")).
		Prepared(true).
		Join(goqu.T("items").As("i"), goqu.On(goqu.I("i.id").Eq(goqu.I("b.item_id")))).
		Join(goqu.T("users").As("u"), goqu.On(goqu.I("u.id").Eq(goqu.I("b.booker_id")))).
		Select(
			goqu.I("b.id"),
			goqu.I("b.start_date"),
			goqu.I("b.end_date"),
			goqu.I("b.item_id"),
			goqu.I("b.booker_id"),
			goqu.I("b.status"),
			goqu.I("i.name").As("item_name"),
			goqu.I("i.owner_id").As("item_owner_id"),
			goqu.I("u.name").As("booker_name"),
		)
}

// statePredicate は絞り込み条件に対応するWHERE句の式を返す。ALLの場合はnilを返す。
func statePredicate(state model.BookingState, now time.Time) (exp.Expression, error) {
	switch state {
	case model.BookingStateAll:
		return nil, nil
	case model.BookingStateCurrent:
		return goqu.And(
			goqu.I("b.start_date").Lte(now),
			goqu.I("b.end_date").Gte(now),
		), nil
	case model.BookingStatePast:
		return goqu.I("b.end_date").Lt(now), nil
	case model.BookingStateFuture:
		return goqu.I("b.start_date").Gt(now), nil
	case model.BookingStateWaiting:
		return goqu.I("b.status").Eq(string(model.BookingStatusWaiting)), nil
	case model.BookingStateRejected:
		return goqu.I("b.status").Eq(string(model.BookingStatusRejected)), nil
	default:
		return nil, model.NewInvalidStateError(string(state))
	}
}

// buildBookingListQuery は予約者または所有者で絞り込んだ予約一覧のSQLを組み立てる。
func buildBookingListQuery(scope string, userID int64, state model.BookingState, now time.Time) (string, []any, error) {
	pred, err := statePredicate(state, now)
	if err != nil {
		return "", nil, err
	}

	ds := bookingDetailSelect().Where(goqu.I(scope).Eq(userID))
	if pred != nil {
		ds = ds.Where(pred)
	}
	ds = ds.Order(goqu.I("b.start_date").Desc(), goqu.I("b.id").Desc())

	return ds.ToSQL()
}

// buildApprovedEdgeQuery は物品ごとに1件の承認済み予約を選ぶSQLを組み立てる。
// last=trueの場合は終了済みのうち最も新しいもの、falseの場合は未開始のうち最も近いものを選ぶ。
func buildApprovedEdgeQuery(itemIDs []int64, now time.Time, last bool) (string, []any, error) {
	ds := pg.From("bookings").
		Prepared(true).
		Select("id", "start_date", "end_date", "item_id", "booker_id", "status").
		Distinct("item_id").
		Where(
			goqu.C("item_id").In(itemIDs),
			goqu.C("status").Eq(string(model.BookingStatusApproved)),
		)

	if last {
		ds = ds.Where(goqu.C("end_date").Lt(now)).
			Order(goqu.C("item_id").Asc(), goqu.C("end_date").Desc())
	} else {
		ds = ds.Where(goqu.C("start_date").Gt(now)).
			Order(goqu.C("item_id").Asc(), goqu.C("start_date").Asc())
	}

	return ds.ToSQL()
}

// FindByID は指定IDの予約を物品・予約者情報付きで取得する。見つからない場合はnilを返す。
func (r *PostgresBookingRepo) FindByID(ctx context.Context, id int64) (*model.BookingDetail, error) {
	query, args, err := bookingDetailSelect().Where(goqu.I("b.id").Eq(id)).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("予約取得クエリの生成に失敗しました: %w", err)
	}

	var row bookingDetailRow
	err = r.db.GetContext(ctx, &row, query, args...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("予約の取得に失敗しました: %w", err)
	}

	detail := row.toModel()
	return &detail, nil
}

// Create は予約を作成し、採番されたIDをbooking.IDに設定する。
func (r *PostgresBookingRepo) Create(ctx context.Context, booking *model.Booking) error {
	query, args, err := pg.Insert("bookings").
		Prepared(true).
		Rows(goqu.Record{
			"start_date": booking.Start,
			"end_date":   booking.End,
			"item_id":    booking.ItemID,
			"booker_id":  booking.BookerID,
			"status":     string(booking.Status),
		}).
		Returning("id").
		ToSQL()
	if err != nil {
		return fmt.Errorf("予約作成クエリの生成に失敗しました: %w", err)
	}

	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&booking.ID); err != nil {
		return fmt.Errorf("予約の作成に失敗しました: %w", err)
	}
	return nil
}

// UpdateStatus は予約の承認状態を更新する。
func (r *PostgresBookingRepo) UpdateStatus(ctx context.Context, id int64, status model.BookingStatus) error {
	query, args, err := pg.Update("bookings").
		Prepared(true).
		Set(goqu.Record{"status": string(status)}).
		Where(goqu.C("id").Eq(id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("予約更新クエリの生成に失敗しました: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("予約の更新に失敗しました: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("予約更新結果の確認に失敗しました: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("更新対象の予約が見つかりません: %d", id)
	}
	return nil
}

// ListByBooker は予約者の予約一覧を絞り込み条件付きでstart降順に返す。
func (r *PostgresBookingRepo) ListByBooker(ctx context.Context, bookerID int64, state model.BookingState, now time.Time) ([]model.BookingDetail, error) {
	return r.listDetails(ctx, scopeBooker, bookerID, state, now)
}

// ListByOwner は物品所有者が受けた予約一覧を絞り込み条件付きでstart降順に返す。
func (r *PostgresBookingRepo) ListByOwner(ctx context.Context, ownerID int64, state model.BookingState, now time.Time) ([]model.BookingDetail, error) {
	return r.listDetails(ctx, scopeOwner, ownerID, state, now)
}

func (r *PostgresBookingRepo) listDetails(ctx context.Context, scope string, userID int64, state model.BookingState, now time.Time) ([]model.BookingDetail, error) {
	query, args, err := buildBookingListQuery(scope, userID, state, now)
	if err != nil {
		return nil, err
	}

	var rows []bookingDetailRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("予約一覧の取得に失敗しました: %w", err)
	}

	details := make([]model.BookingDetail, 0, len(rows))
	for _, row := range rows {
		details = append(details, row.toModel())
	}
	return details, nil
}

// ListLastApproved は各物品について end < now の承認済み予約のうち最も新しいものを返す。
func (r *PostgresBookingRepo) ListLastApproved(ctx context.Context, itemIDs []int64, now time.Time) ([]model.Booking, error) {
	return r.listApprovedEdge(ctx, itemIDs, now, true)
}

// ListNextApproved は各物品について start > now の承認済み予約のうち最も近いものを返す。
func (r *PostgresBookingRepo) ListNextApproved(ctx context.Context, itemIDs []int64, now time.Time) ([]model.Booking, error) {
	return r.listApprovedEdge(ctx, itemIDs, now, false)
}

func (r *PostgresBookingRepo) listApprovedEdge(ctx context.Context, itemIDs []int64, now time.Time, last bool) ([]model.Booking, error) {
	if len(itemIDs) == 0 {
		return []model.Booking{}, nil
	}

	query, args, err := buildApprovedEdgeQuery(itemIDs, now, last)
	if err != nil {
		return nil, fmt.Errorf("予約照会クエリの生成に失敗しました: %w", err)
	}

	var rows []bookingRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("承認済み予約の取得に失敗しました: %w", err)
	}

	bookings := make([]model.Booking, 0, len(rows))
	for _, row := range rows {
		bookings = append(bookings, row.toModel())
	}
	return bookings, nil
}

// buildCompletedBookingQuery は予約者が物品を承認済みで借り終えた予約を1件だけ探すSQLを組み立てる。
func buildCompletedBookingQuery(itemID, bookerID int64, now time.Time) (string, []any, error) {
	return pg.From("bookings").
		Prepared(true).
		Select(goqu.L("1")).
		Where(
			goqu.C("item_id").Eq(itemID),
			goqu.C("booker_id").Eq(bookerID),
			goqu.C("status").Eq(string(model.BookingStatusApproved)),
			goqu.C("end_date").Lt(now),
		).
		Limit(1).
		ToSQL()
}

// ExistsCompleted は予約者が物品を承認済みで借り、end < now となった予約が存在するかを返す。
func (r *PostgresBookingRepo) ExistsCompleted(ctx context.Context, itemID, bookerID int64, now time.Time) (bool, error) {
	query, args, err := buildCompletedBookingQuery(itemID, bookerID, now)
	if err != nil {
		return false, fmt.Errorf("完了済み予約クエリの生成に失敗しました: %w", err)
	}

	var one int
	err = r.db.GetContext(ctx, &one, query, args...)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("完了済み予約の確認に失敗しました: %w", err)
	}
	return true, nil
}

// compile-time interface check
var _ BookingRepository = (*PostgresBookingRepo)(nil)
