package item

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/shareit/internal/model"
	"github.com/hitoshi/shareit/internal/security"
)

// --- テスト用フェイク ---

type fakeUsers struct {
	users map[int64]*model.User
}

func (f *fakeUsers) FindByID(_ context.Context, id int64) (*model.User, error) {
	return f.users[id], nil
}
func (f *fakeUsers) FindByEmail(context.Context, string) (*model.User, error) { return nil, nil }
func (f *fakeUsers) List(context.Context) ([]model.User, error)               { return nil, nil }
func (f *fakeUsers) Create(context.Context, *model.User) error                { return nil }
func (f *fakeUsers) Update(context.Context, *model.User) error                { return nil }
func (f *fakeUsers) DeleteByID(context.Context, int64) error                  { return nil }

type fakeItems struct {
	items       map[int64]*model.Item
	nextID      int64
	searchCalls int
	deleted     []int64
}

func (f *fakeItems) FindByID(_ context.Context, id int64) (*model.Item, error) {
	it, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	cp := *it
	return &cp, nil
}

func (f *fakeItems) ListByOwner(_ context.Context, ownerID int64) ([]model.Item, error) {
	var out []model.Item
	for id := int64(1); id <= f.nextID; id++ {
		if it, ok := f.items[id]; ok && it.OwnerID == ownerID {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (f *fakeItems) ListByRequestIDs(context.Context, []int64) ([]model.Item, error) {
	return nil, nil
}

func (f *fakeItems) Search(_ context.Context, text string) ([]model.Item, error) {
	f.searchCalls++
	var out []model.Item
	needle := strings.ToLower(text)
	for id := int64(1); id <= f.nextID; id++ {
		it, ok := f.items[id]
		if !ok || !it.Available {
			continue
		}
		if strings.Contains(strings.ToLower(it.Name), needle) || strings.Contains(strings.ToLower(it.Description), needle) {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (f *fakeItems) Create(_ context.Context, it *model.Item) error {
	f.nextID++
	it.ID = f.nextID
	cp := *it
	f.items[it.ID] = &cp
	return nil
}

func (f *fakeItems) Update(_ context.Context, it *model.Item) error {
	cp := *it
	f.items[it.ID] = &cp
	return nil
}

func (f *fakeItems) DeleteByID(_ context.Context, id int64) error {
	delete(f.items, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeRequests struct {
	requests map[int64]*model.ItemRequest
}

func (f *fakeRequests) FindByID(_ context.Context, id int64) (*model.ItemRequest, error) {
	return f.requests[id], nil
}
func (f *fakeRequests) Create(context.Context, *model.ItemRequest) error { return nil }
func (f *fakeRequests) ListByRequester(context.Context, int64) ([]model.ItemRequest, error) {
	return nil, nil
}
func (f *fakeRequests) ListExcludingRequester(context.Context, int64) ([]model.ItemRequest, error) {
	return nil, nil
}

// fakeDates は承認済み予約をメモリ上に保持し、直近・次回・完了済みの判定を行う。
type fakeDates struct {
	bookings []model.Booking
}

func (f *fakeDates) ListLastApproved(_ context.Context, ids []int64, now time.Time) ([]model.Booking, error) {
	var out []model.Booking
	for _, id := range ids {
		var best *model.Booking
		for i, b := range f.bookings {
			if b.ItemID == id && b.Status == model.BookingStatusApproved && b.End.Before(now) {
				if best == nil || b.End.After(best.End) {
					best = &f.bookings[i]
				}
			}
		}
		if best != nil {
			out = append(out, *best)
		}
	}
	return out, nil
}

func (f *fakeDates) ListNextApproved(_ context.Context, ids []int64, now time.Time) ([]model.Booking, error) {
	var out []model.Booking
	for _, id := range ids {
		var best *model.Booking
		for i, b := range f.bookings {
			if b.ItemID == id && b.Status == model.BookingStatusApproved && b.Start.After(now) {
				if best == nil || b.Start.Before(best.Start) {
					best = &f.bookings[i]
				}
			}
		}
		if best != nil {
			out = append(out, *best)
		}
	}
	return out, nil
}

func (f *fakeDates) ExistsCompleted(_ context.Context, itemID, bookerID int64, now time.Time) (bool, error) {
	for _, b := range f.bookings {
		if b.ItemID == itemID && b.BookerID == bookerID && b.Status == model.BookingStatusApproved && b.End.Before(now) {
			return true, nil
		}
	}
	return false, nil
}

type fakeComments struct {
	comments []model.Comment
}

func (f *fakeComments) Create(_ context.Context, c *model.Comment) error {
	c.ID = int64(len(f.comments) + 1)
	f.comments = append(f.comments, *c)
	return nil
}

func (f *fakeComments) ListByItemIDs(_ context.Context, ids []int64) ([]model.Comment, error) {
	var out []model.Comment
	for _, c := range f.comments {
		for _, id := range ids {
			if c.ItemID == id {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

// upperSanitizer はサニタイザーが適用されたことを確認するためのスタブ。
type upperSanitizer struct{}

func (upperSanitizer) Sanitize(raw string) string { return strings.ToUpper(raw) }

const (
	ownerID  int64 = 1
	renterID int64 = 2
)

var fixedNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	items    *fakeItems
	requests *fakeRequests
	dates    *fakeDates
	comments *fakeComments
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := &fakeUsers{users: map[int64]*model.User{
		ownerID:  {ID: ownerID, Name: "Owner"},
		renterID: {ID: renterID, Name: "Renter"},
	}}
	f := &fixture{
		items:    &fakeItems{items: map[int64]*model.Item{}},
		requests: &fakeRequests{requests: map[int64]*model.ItemRequest{7: {ID: 7, Description: "need a drill", RequesterID: renterID}}},
		dates:    &fakeDates{},
		comments: &fakeComments{},
	}
	f.svc = NewService(f.items, users, f.requests, f.dates, f.comments, upperSanitizer{},
		WithClock(func() time.Time { return fixedNow }),
	)
	return f
}

func (f *fixture) addItem(t *testing.T, name string, available bool) int64 {
	t.Helper()
	it := &model.Item{OwnerID: ownerID, Name: name, Description: name + " for rent", Available: available}
	require.NoError(t, f.items.Create(context.Background(), it))
	return it.ID
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, code, apiErr.Code)
}

// --- Create ---

func TestCreate_LinksRequest(t *testing.T) {
	f := newFixture(t)
	reqID := int64(7)

	got, err := f.svc.Create(context.Background(), ownerID, model.NewItem{Name: "Drill", Description: "cordless", Available: true, RequestID: &reqID})
	require.NoError(t, err)
	assert.NotZero(t, got.ID)
	assert.Equal(t, ownerID, got.OwnerID)
	require.NotNil(t, got.RequestID)
	assert.Equal(t, int64(7), *got.RequestID)
}

func TestCreate_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), 99, model.NewItem{Name: "x", Description: "y"})
	assertCode(t, err, model.ErrCodeUserNotFound)

	missing := int64(404)
	_, err = f.svc.Create(context.Background(), ownerID, model.NewItem{Name: "x", Description: "y", RequestID: &missing})
	assertCode(t, err, model.ErrCodeRequestNotFound)
	assert.Empty(t, f.items.items)
}

// --- Update / Delete ---

func TestUpdate_PartialPatch(t *testing.T) {
	f := newFixture(t)
	id := f.addItem(t, "Drill", true)
	off := false

	got, err := f.svc.Update(context.Background(), ownerID, id, model.ItemPatch{Available: &off})
	require.NoError(t, err)
	assert.Equal(t, "Drill", got.Name)
	assert.Equal(t, "Drill for rent", got.Description)
	assert.False(t, got.Available)
	assert.False(t, f.items.items[id].Available)
}

func TestUpdate_Checks(t *testing.T) {
	f := newFixture(t)
	id := f.addItem(t, "Drill", true)
	name := "Hammer"
	patch := model.ItemPatch{Name: &name}

	tests := []struct {
		name     string
		userID   int64
		itemID   int64
		code     string
		category string
	}{
		{"ユーザーID未指定", 0, id, model.ErrCodeMissingID, model.CategoryValidation},
		{"物品ID未指定", ownerID, 0, model.ErrCodeMissingID, model.CategoryValidation},
		{"物品が存在しない", ownerID, 999, model.ErrCodeItemNotFound, model.CategoryNotFound},
		{"ユーザーが存在しない", 999, id, model.ErrCodeUserNotFound, model.CategoryNotFound},
		{"所有者ではない", renterID, id, model.ErrCodeNotItemOwner, model.CategoryValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Update(context.Background(), tt.userID, tt.itemID, patch)
			assertCode(t, err, tt.code)
			assert.True(t, model.HasCategory(err, tt.category))
		})
	}
	assert.Equal(t, "Drill", f.items.items[id].Name)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	id := f.addItem(t, "Drill", true)

	err := f.svc.Delete(context.Background(), renterID, id)
	assertCode(t, err, model.ErrCodeNotItemOwner)
	assert.Empty(t, f.items.deleted)

	require.NoError(t, f.svc.Delete(context.Background(), ownerID, id))
	assert.Equal(t, []int64{id}, f.items.deleted)
}

// --- Search ---

func TestSearch_BlankTextSkipsStorage(t *testing.T) {
	f := newFixture(t)
	f.addItem(t, "Drill", true)

	for _, text := range []string{"", "   "} {
		got, err := f.svc.Search(context.Background(), text)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
	assert.Zero(t, f.items.searchCalls)
}

func TestSearch_AvailableOnly(t *testing.T) {
	f := newFixture(t)
	f.addItem(t, "Drill", true)
	f.addItem(t, "Old drill", false)

	got, err := f.svc.Search(context.Background(), "dRiLl")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Drill", got[0].Name)
}

// --- ListByOwner / Get ---

func TestListByOwner_AttachesLastNextAndComments(t *testing.T) {
	f := newFixture(t)
	drill := f.addItem(t, "Drill", true)
	saw := f.addItem(t, "Saw", true)

	f.dates.bookings = []model.Booking{
		{ID: 1, ItemID: drill, BookerID: renterID, Status: model.BookingStatusApproved, Start: fixedNow.Add(-72 * time.Hour), End: fixedNow.Add(-48 * time.Hour)},
		{ID: 2, ItemID: drill, BookerID: renterID, Status: model.BookingStatusApproved, Start: fixedNow.Add(-36 * time.Hour), End: fixedNow.Add(-24 * time.Hour)},
		{ID: 3, ItemID: drill, BookerID: renterID, Status: model.BookingStatusApproved, Start: fixedNow.Add(48 * time.Hour), End: fixedNow.Add(72 * time.Hour)},
		{ID: 4, ItemID: drill, BookerID: renterID, Status: model.BookingStatusApproved, Start: fixedNow.Add(24 * time.Hour), End: fixedNow.Add(30 * time.Hour)},
		{ID: 5, ItemID: drill, BookerID: renterID, Status: model.BookingStatusWaiting, Start: fixedNow.Add(time.Hour), End: fixedNow.Add(2 * time.Hour)},
	}
	f.comments.comments = []model.Comment{{ID: 1, ItemID: drill, Text: "great", AuthorName: "Renter"}}

	got, err := f.svc.ListByOwner(context.Background(), ownerID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, drill, got[0].ID)
	require.NotNil(t, got[0].LastBooking)
	assert.Equal(t, int64(2), got[0].LastBooking.ID)
	require.NotNil(t, got[0].NextBooking)
	assert.Equal(t, int64(4), got[0].NextBooking.ID)
	assert.Len(t, got[0].Comments, 1)

	assert.Equal(t, saw, got[1].ID)
	assert.Nil(t, got[1].LastBooking)
	assert.Nil(t, got[1].NextBooking)
	assert.NotNil(t, got[1].Comments)
	assert.Empty(t, got[1].Comments)
}

func TestListByOwner_UserNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ListByOwner(context.Background(), 99)
	assertCode(t, err, model.ErrCodeUserNotFound)
}

func TestGet_CommentsOnly(t *testing.T) {
	f := newFixture(t)
	id := f.addItem(t, "Drill", true)
	f.dates.bookings = []model.Booking{
		{ID: 1, ItemID: id, Status: model.BookingStatusApproved, Start: fixedNow.Add(-48 * time.Hour), End: fixedNow.Add(-24 * time.Hour)},
	}

	got, err := f.svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, got.LastBooking)
	assert.Nil(t, got.NextBooking)
	assert.NotNil(t, got.Comments)

	_, err = f.svc.Get(context.Background(), 999)
	assertCode(t, err, model.ErrCodeItemNotFound)
}

// --- CreateComment ---

func TestCreateComment_RequiresCompletedApprovedBooking(t *testing.T) {
	f := newFixture(t)
	id := f.addItem(t, "Drill", true)

	tests := []struct {
		name    string
		booking model.Booking
	}{
		{"承認待ちの予約", model.Booking{ItemID: id, BookerID: renterID, Status: model.BookingStatusWaiting, End: fixedNow.Add(-time.Hour)}},
		{"終了前の承認済み予約", model.Booking{ItemID: id, BookerID: renterID, Status: model.BookingStatusApproved, End: fixedNow.Add(time.Hour)}},
		{"他人の承認済み予約", model.Booking{ItemID: id, BookerID: ownerID, Status: model.BookingStatusApproved, End: fixedNow.Add(-time.Hour)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.dates.bookings = []model.Booking{tt.booking}
			_, err := f.svc.CreateComment(context.Background(), renterID, id, "nice")
			assertCode(t, err, model.ErrCodeNoCompletedBooking)
			assert.True(t, model.HasCategory(err, model.CategoryNoCompletedBooking))
		})
	}
	assert.Empty(t, f.comments.comments)
}

func TestCreateComment_Success(t *testing.T) {
	f := newFixture(t)
	id := f.addItem(t, "Drill", true)
	f.dates.bookings = []model.Booking{
		{ItemID: id, BookerID: renterID, Status: model.BookingStatusApproved, Start: fixedNow.Add(-48 * time.Hour), End: fixedNow.Add(-time.Hour)},
	}

	got, err := f.svc.CreateComment(context.Background(), renterID, id, "works great")
	require.NoError(t, err)
	assert.NotZero(t, got.ID)
	assert.Equal(t, "WORKS GREAT", got.Text)
	assert.Equal(t, "Renter", got.AuthorName)
	assert.Equal(t, fixedNow, got.Created)
}

func TestCreateComment_NotFound(t *testing.T) {
	f := newFixture(t)
	id := f.addItem(t, "Drill", true)

	_, err := f.svc.CreateComment(context.Background(), 99, id, "x")
	assertCode(t, err, model.ErrCodeUserNotFound)

	_, err = f.svc.CreateComment(context.Background(), renterID, 999, "x")
	assertCode(t, err, model.ErrCodeItemNotFound)
}

// タグだけのコメントはサニタイズ後に空となるため入力エラーとなり保存されないことを検証
func TestCreateComment_MarkupOnlyTextRejected(t *testing.T) {
	f := newFixture(t)
	f.svc.sanitizer = security.NewTextSanitizer()
	id := f.addItem(t, "Drill", true)
	f.dates.bookings = []model.Booking{
		{ItemID: id, BookerID: renterID, Status: model.BookingStatusApproved, End: fixedNow.Add(-time.Hour)},
	}

	for _, text := range []string{"<b></b>", `<img src=x>`, "  <p> </p> "} {
		_, err := f.svc.CreateComment(context.Background(), renterID, id, text)
		assertCode(t, err, model.ErrCodeValidation)
	}
	assert.Empty(t, f.comments.comments)

	got, err := f.svc.CreateComment(context.Background(), renterID, id, "&lt;script&gt;alert(1)&lt;/script&gt;ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", got.Text)
}
