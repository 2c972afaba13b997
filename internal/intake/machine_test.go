package intake

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuznetsov-tulips/tulip-bot/internal/catalog"
	"github.com/kuznetsov-tulips/tulip-bot/internal/conversation"
	"github.com/kuznetsov-tulips/tulip-bot/internal/models"
)

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[int64]models.Profile
	upserts  int
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{profiles: map[int64]models.Profile{}}
}

func (f *fakeProfiles) GetProfile(_ context.Context, userID int64) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeProfiles) UpsertProfile(_ context.Context, userID int64, patch models.ProfilePatch) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	p := f.profiles[userID]
	p.UserID = userID
	p = p.Merge(patch)
	f.profiles[userID] = p
	return &p, nil
}

type fakeStock map[int]bool

func (f fakeStock) IsAvailable(_ context.Context, variantID int) (bool, error) {
	off, ok := f[variantID]
	return !ok || !off, nil
}

type fakeOrders struct {
	mu      sync.Mutex
	byDraft map[string]*models.Order
	seq     int
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{byDraft: map[string]*models.Order{}}
}

func (f *fakeOrders) CreateOrder(_ context.Context, order *models.Order) (*models.Order, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.byDraft[order.DraftID]; ok {
		return existing, false, nil
	}
	if err := order.Validate(); err != nil {
		return nil, false, err
	}
	f.seq++
	stored := *order
	stored.Number = fmt.Sprintf("%03d", f.seq)
	stored.Status = models.StatusPendingPayment
	f.byDraft[order.DraftID] = &stored
	return &stored, true, nil
}

type fixture struct {
	machine  *Machine
	profiles *fakeProfiles
	orders   *fakeOrders
	stock    fakeStock
	loc      *time.Location
	now      time.Time
}

const adminID = 900

var ivan = Customer{UserID: 42, Username: "ivan", FirstName: "Ваня", LastName: ""}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Saratov")
	require.NoError(t, err)

	f := &fixture{
		profiles: newFakeProfiles(),
		orders:   newFakeOrders(),
		stock:    fakeStock{},
		loc:      loc,
		now:      time.Date(2026, 3, 5, 6, 0, 0, 0, loc),
	}
	ids := 0
	f.machine = NewMachine(Deps{
		Catalog:  catalog.Default(),
		Pricing:  catalog.Pricing{Small: decimal.NewFromInt(1800), Large: decimal.NewFromInt(3000)},
		Schedule: catalog.Scheduler{Days: 7, StartHour: 8, EndHour: 19, SundayEndHour: 15, Location: loc},
		Profiles: f.profiles,
		Stock:    f.stock,
		Orders:   f.orders,
		IsAdmin:  func(id int64) bool { return id == adminID },
		Now:      func() time.Time { return f.now },
		NewID: func() string {
			ids++
			return fmt.Sprintf("draft-%d", ids)
		},
	})
	return f
}

func stepper(t *testing.T) func(conversation.State, error) conversation.State {
	return func(s conversation.State, err error) conversation.State {
		t.Helper()
		require.NoError(t, err)
		return s
	}
}

func TestEndToEndIntake(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	next := stepper(t)
	m := f.machine

	s := next(m.Start(ctx, ivan))
	require.IsType(t, conversation.AwaitingConsent{}, s)
	s = next(m.Consent(ctx, ivan, s, true))
	s = next(m.SelectVariant(ctx, s, 2))
	s = next(m.SelectQuantity(s, 15))

	more := s.(conversation.ConfirmingMoreItems)
	assert.Equal(t, models.LineItems{{Variant: 2, Quantity: 15, Count: 1}}, more.Draft.Items)

	s = next(m.Proceed(s))
	s = next(m.SelectDate(s, "2026-03-07"))
	s = next(m.SelectTime(s, 10))
	s = next(m.EnterName(ctx, ivan, s, "Иван Иванов"))
	s = next(m.EnterPhone(ctx, ivan, s, "89991234567"))

	confirming := s.(conversation.ConfirmingOrder)
	assert.True(t, time.Date(2026, 3, 7, 10, 0, 0, 0, f.loc).Equal(confirming.PickupAt))

	after, order, err := m.Confirm(ctx, ivan, s)
	require.NoError(t, err)
	assert.Equal(t, conversation.AwaitingPayment{OrderNumber: order.Number}, after)

	assert.Equal(t, models.LineItems{{Variant: 2, Quantity: 15, Count: 1}}, order.Items)
	assert.True(t, order.Total.Equal(decimal.NewFromInt(1800)), order.Total.String())
	assert.Equal(t, "+79991234567", order.Phone)
	assert.Equal(t, models.StatusPendingPayment, order.Status)
	assert.Equal(t, models.PersonName{First: "Иван", Last: "Иванов"}, order.Recipient)

	profile := f.profiles.profiles[ivan.UserID]
	assert.True(t, profile.ConsentGiven)
	assert.Equal(t, "+79991234567", profile.Phone)
	assert.Equal(t, "Иванов", profile.Name.Last)
}

func TestConfirmTwiceCreatesOneOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := readyToConfirm(t, f)

	_, first, err := f.machine.Confirm(ctx, ivan, s)
	require.NoError(t, err)
	_, second, err := f.machine.Confirm(ctx, ivan, s)
	require.NoError(t, err)

	assert.Equal(t, first.Number, second.Number)
	assert.Len(t, f.orders.byDraft, 1)
}

func TestConsent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	next := stepper(t)

	s, err := f.machine.Consent(ctx, ivan, conversation.AwaitingConsent{}, false)
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.Zero(t, f.profiles.upserts)

	_, err = f.machine.Consent(ctx, ivan, conversation.SelectingVariant{}, true)
	assert.ErrorIs(t, err, ErrWrongState)

	_, err = f.machine.Consent(ctx, ivan, conversation.AwaitingConsent{}, true)
	require.NoError(t, err)
	s = next(f.machine.Start(ctx, ivan))
	assert.IsType(t, conversation.SelectingVariant{}, s)
}

func TestAdminsSkipConsent(t *testing.T) {
	f := newFixture(t)
	next := stepper(t)
	s := next(f.machine.Start(context.Background(), Customer{UserID: adminID}))
	assert.IsType(t, conversation.SelectingVariant{}, s)
}

func TestOutOfStockVariantIsRefused(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	next := stepper(t)
	f.stock[3] = true

	start := conversation.SelectingVariant{Draft: conversation.Draft{ID: "d"}}
	s, err := f.machine.SelectVariant(ctx, start, 3)
	assert.ErrorIs(t, err, ErrVariantUnavailable)
	assert.Equal(t, start, s)

	_, err = f.machine.SelectVariant(ctx, start, 9)
	assert.ErrorIs(t, err, ErrUnknownVariant)

	s = next(f.machine.SelectVariant(ctx, start, 4))
	assert.Equal(t, conversation.SelectingQuantity{Draft: start.Draft, Variant: 4}, s)
}

func TestEditLoopKeepsTotalsConsistent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	next := stepper(t)
	m := f.machine
	pricing := catalog.Pricing{Small: decimal.NewFromInt(1800), Large: decimal.NewFromInt(3000)}

	s := next(m.Start(ctx, Customer{UserID: adminID}))
	s = next(m.SelectVariant(ctx, s, 1))
	s = next(m.SelectQuantity(s, 25))
	s = next(m.AddMore(s))
	s = next(m.SelectVariant(ctx, s, 1))
	s = next(m.SelectQuantity(s, 25))
	s = next(m.AddMore(s))
	s = next(m.SelectVariant(ctx, s, 5))
	s = next(m.SelectQuantity(s, 15))

	items := s.(conversation.ConfirmingMoreItems).Draft.Items
	require.Len(t, items, 2)
	assert.Equal(t, 2, items[0].Count)

	s = next(m.AdjustItem(s, 1, 25, -1))
	s = next(m.AdjustItem(s, 5, 15, 1))
	items = s.(conversation.ConfirmingMoreItems).Draft.Items
	total, err := items.Total(pricing)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(3000+2*1800).Equal(total), total.String())

	_, err = m.AdjustItem(s, 1, 25, 2)
	assert.ErrorIs(t, err, ErrInvalidAdjustment)
	_, err = m.AdjustItem(s, 5, 25, 1)
	assert.ErrorIs(t, err, ErrInvalidAdjustment)
}

func TestRepeatedMinusTapDoesNotHitNeighbour(t *testing.T) {
	f := newFixture(t)
	next := stepper(t)
	s := conversation.ConfirmingMoreItems{Draft: conversation.Draft{
		ID: "d",
		Items: models.LineItems{
			{Variant: 1, Quantity: 15, Count: 1},
			{Variant: 2, Quantity: 25, Count: 2},
		},
	}}

	after := next(f.machine.AdjustItem(s, 1, 15, -1))
	again, err := f.machine.AdjustItem(after, 1, 15, -1)
	assert.ErrorIs(t, err, ErrInvalidAdjustment)
	assert.Equal(t, after, again)
	assert.Equal(t, models.LineItems{{Variant: 2, Quantity: 25, Count: 2}},
		again.(conversation.ConfirmingMoreItems).Draft.Items)
}

func TestRemovingLastItemReturnsToVariants(t *testing.T) {
	f := newFixture(t)
	next := stepper(t)
	s := conversation.ConfirmingMoreItems{Draft: conversation.Draft{
		ID:    "d",
		Items: models.LineItems{{Variant: 2, Quantity: 15, Count: 1}},
	}}

	emptied := next(f.machine.AdjustItem(s, 2, 15, -1))
	require.IsType(t, conversation.SelectingVariant{}, emptied)
	assert.Empty(t, emptied.(conversation.SelectingVariant).Draft.Items)

	_, err := f.machine.Proceed(conversation.ConfirmingMoreItems{Draft: conversation.Draft{ID: "d"}})
	assert.ErrorIs(t, err, ErrNoItems)
}

func TestPickupValidation(t *testing.T) {
	f := newFixture(t)
	next := stepper(t)
	draft := conversation.Draft{ID: "d", Items: models.LineItems{{Variant: 2, Quantity: 15, Count: 1}}}

	_, err := f.machine.SelectDate(conversation.SelectingPickupDate{Draft: draft}, "2026-03-20")
	assert.ErrorIs(t, err, ErrDateUnavailable)

	sunday := conversation.SelectingPickupTime{Draft: draft, Date: "2026-03-08"}
	_, err = f.machine.SelectTime(sunday, 16)
	assert.ErrorIs(t, err, ErrTimeOutOfRange)
	_, err = f.machine.SelectTime(sunday, 7)
	assert.ErrorIs(t, err, ErrTimeOutOfRange)

	s := next(f.machine.SelectTime(sunday, 15))
	assert.IsType(t, conversation.EnteringName{}, s)
}

func TestNameAndPhoneRejectionsKeepState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	naming := conversation.EnteringName{Draft: conversation.Draft{ID: "d"}}

	s, err := f.machine.EnterName(ctx, ivan, naming, "Иван")
	assert.ErrorIs(t, err, ErrInvalidName)
	assert.Equal(t, naming, s)

	phoning := conversation.EnteringPhone{Draft: conversation.Draft{ID: "d"}, Name: models.PersonName{First: "Иван", Last: "Иванов"}}
	s, err = f.machine.EnterPhone(ctx, ivan, phoning, "12345")
	assert.ErrorIs(t, err, ErrInvalidPhone)
	assert.Equal(t, phoning, s)
}

func TestProfileContactIsNotOverwritten(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	next := stepper(t)
	f.profiles.profiles[ivan.UserID] = models.Profile{
		UserID:       ivan.UserID,
		Name:         models.PersonName{First: "Пётр", Last: "Петров"},
		Phone:        "+79990000000",
		ConsentGiven: true,
	}

	s := next(f.machine.EnterName(ctx, ivan, conversation.EnteringName{Draft: conversation.Draft{ID: "d"}}, "Иван Иванов"))
	s = next(f.machine.EnterPhone(ctx, ivan, s, "+79991234567"))

	profile := f.profiles.profiles[ivan.UserID]
	assert.Equal(t, "Петров", profile.Name.Last)
	assert.Equal(t, "+79990000000", profile.Phone)
	assert.Zero(t, f.profiles.upserts)

	confirming := s.(conversation.ConfirmingOrder)
	assert.Equal(t, "+79991234567", confirming.Phone)
	assert.Equal(t, "Иванов", confirming.Name.Last)
}

func TestSuggestions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	next := stepper(t)

	_, ok := f.machine.SuggestedName(ctx, ivan)
	assert.False(t, ok, "one-word telegram name cannot be suggested")

	withTelegramName := Customer{UserID: 7, FirstName: "Анна", LastName: "Петрова"}
	name, ok := f.machine.SuggestedName(ctx, withTelegramName)
	require.True(t, ok)
	assert.Equal(t, "Анна Петрова", name.String())

	f.profiles.profiles[7] = models.Profile{UserID: 7, Name: models.PersonName{First: "Анна", Last: "Иванова"}, Phone: "+79995550000"}
	name, _ = f.machine.SuggestedName(ctx, withTelegramName)
	assert.Equal(t, "Иванова", name.Last)

	s := next(f.machine.UseSuggestedName(ctx, withTelegramName, conversation.EnteringName{Draft: conversation.Draft{ID: "d"}}))
	s = next(f.machine.UseSuggestedPhone(ctx, withTelegramName, s))
	assert.Equal(t, "+79995550000", s.(conversation.ConfirmingOrder).Phone)

	_, err := f.machine.UseSuggestedPhone(ctx, ivan, conversation.EnteringPhone{})
	assert.ErrorIs(t, err, ErrInvalidPhone)
}

func TestReviseKeepsPickupAndContact(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	next := stepper(t)
	m := f.machine
	s := readyToConfirm(t, f)
	original := s.(conversation.ConfirmingOrder)

	s = next(m.Revise(s))
	s = next(m.AdjustItem(s, 2, 15, 1))
	s = next(m.Proceed(s))

	back, ok := s.(conversation.ConfirmingOrder)
	require.True(t, ok, "expected confirmation, got %T", s)
	assert.True(t, original.PickupAt.Equal(back.PickupAt))
	assert.Equal(t, original.Name, back.Name)
	assert.Equal(t, original.Phone, back.Phone)
	assert.Equal(t, 2, back.Draft.Items[0].Count)

	_, order, err := m.Confirm(ctx, ivan, back)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(3600).Equal(order.Total))
}

func TestChangePickupReturnsToConfirmation(t *testing.T) {
	f := newFixture(t)
	next := stepper(t)
	m := f.machine
	s := readyToConfirm(t, f)

	s = next(m.ChangePickup(s))
	require.IsType(t, conversation.SelectingPickupDate{}, s)
	s = next(m.SelectDate(s, "2026-03-09"))
	s = next(m.SelectTime(s, 18))

	confirming, ok := s.(conversation.ConfirmingOrder)
	require.True(t, ok)
	assert.True(t, time.Date(2026, 3, 9, 18, 0, 0, 0, f.loc).Equal(confirming.PickupAt))
	assert.Equal(t, "+79991234567", confirming.Phone)
}

func TestConfirmRefusesExpiredSlot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := readyToConfirm(t, f)

	f.now = f.now.Add(5 * 24 * time.Hour)
	_, _, err := f.machine.Confirm(ctx, ivan, s)
	assert.ErrorIs(t, err, ErrPickupExpired)
	assert.Empty(t, f.orders.byDraft)
}

func TestWrongStateIsRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.machine.SelectQuantity(conversation.SelectingVariant{}, 15)
	assert.ErrorIs(t, err, ErrWrongState)
	_, err = f.machine.Proceed(conversation.AwaitingPayment{})
	assert.ErrorIs(t, err, ErrWrongState)
	_, _, err = f.machine.Confirm(context.Background(), ivan, conversation.AwaitingPayment{OrderNumber: "001"})
	assert.ErrorIs(t, err, ErrWrongState)
}

func readyToConfirm(t *testing.T, f *fixture) conversation.State {
	t.Helper()
	next := stepper(t)
	ctx := context.Background()
	m := f.machine
	s := next(m.Start(ctx, Customer{UserID: adminID}))
	s = next(m.SelectVariant(ctx, s, 2))
	s = next(m.SelectQuantity(s, 15))
	s = next(m.Proceed(s))
	s = next(m.SelectDate(s, "2026-03-07"))
	s = next(m.SelectTime(s, 10))
	s = next(m.EnterName(ctx, ivan, s, "Иван Иванов"))
	return next(m.EnterPhone(ctx, ivan, s, "89991234567"))
}
