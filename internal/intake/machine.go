package intake

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kuznetsov-tulips/tulip-bot/internal/catalog"
	"github.com/kuznetsov-tulips/tulip-bot/internal/conversation"
	"github.com/kuznetsov-tulips/tulip-bot/internal/logger"
	"github.com/kuznetsov-tulips/tulip-bot/internal/models"
)

type ProfileStore interface {
	GetProfile(ctx context.Context, userID int64) (*models.Profile, error)
	UpsertProfile(ctx context.Context, userID int64, patch models.ProfilePatch) (*models.Profile, error)
}

type StockChecker interface {
	IsAvailable(ctx context.Context, variantID int) (bool, error)
}

type OrderCreator interface {
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, bool, error)
}

type ScheduleSource interface {
	Published(now time.Time) catalog.Schedule
}

// Customer identifies who is talking to the bot.
type Customer struct {
	UserID    int64
	Username  string
	FirstName string
	LastName  string
}

type Deps struct {
	Catalog  *catalog.Catalog
	Pricing  models.Pricer
	Schedule ScheduleSource
	Profiles ProfileStore
	Stock    StockChecker
	Orders   OrderCreator
	IsAdmin  func(userID int64) bool
	Logger   *logger.Logger
	Now      func() time.Time
	NewID    func() string
}

// Machine drives a customer from consent to a persisted order. It holds no
// per-customer data: every method takes the current state and returns the
// next one, leaving storage of that state to the caller.
type Machine struct {
	catalog  *catalog.Catalog
	pricing  models.Pricer
	schedule ScheduleSource
	profiles ProfileStore
	stock    StockChecker
	orders   OrderCreator
	isAdmin  func(int64) bool
	log      *logger.Logger
	now      func() time.Time
	newID    func() string
}

func NewMachine(d Deps) *Machine {
	m := &Machine{
		catalog:  d.Catalog,
		pricing:  d.Pricing,
		schedule: d.Schedule,
		profiles: d.Profiles,
		stock:    d.Stock,
		orders:   d.Orders,
		isAdmin:  d.IsAdmin,
		log:      d.Logger,
		now:      d.Now,
		newID:    d.NewID,
	}
	if m.catalog == nil {
		m.catalog = catalog.Default()
	}
	if m.isAdmin == nil {
		m.isAdmin = func(int64) bool { return false }
	}
	if m.log == nil {
		m.log = logger.Nop()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.newID == nil {
		m.newID = uuid.NewString
	}
	return m
}

// Schedule is the pickup schedule as published right now.
func (m *Machine) Schedule() catalog.Schedule {
	return m.schedule.Published(m.now())
}

// Start opens a new order. Customers who have not consented yet are asked
// first; admins never are.
func (m *Machine) Start(ctx context.Context, c Customer) (conversation.State, error) {
	if m.isAdmin(c.UserID) {
		return m.newDraft(), nil
	}
	profile, err := m.profiles.GetProfile(ctx, c.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	if profile == nil || !profile.ConsentGiven {
		return conversation.AwaitingConsent{}, nil
	}
	return m.newDraft(), nil
}

// Consent records the answer. A refusal ends the conversation: the returned
// state is nil and the customer may come back with /start.
func (m *Machine) Consent(ctx context.Context, c Customer, s conversation.State, agreed bool) (conversation.State, error) {
	if _, ok := s.(conversation.AwaitingConsent); !ok {
		return s, ErrWrongState
	}
	if !agreed {
		return nil, nil
	}
	if _, err := m.profiles.UpsertProfile(ctx, c.UserID, models.ProfilePatch{Username: c.Username, Consent: true}); err != nil {
		return s, fmt.Errorf("saving consent: %w", err)
	}
	return m.newDraft(), nil
}

func (m *Machine) SelectVariant(ctx context.Context, s conversation.State, variantID int) (conversation.State, error) {
	st, ok := s.(conversation.SelectingVariant)
	if !ok {
		return s, ErrWrongState
	}
	if _, ok := m.catalog.Get(variantID); !ok {
		return s, ErrUnknownVariant
	}
	available, err := m.stock.IsAvailable(ctx, variantID)
	if err != nil {
		return s, fmt.Errorf("checking stock: %w", err)
	}
	if !available {
		return s, ErrVariantUnavailable
	}
	return conversation.SelectingQuantity{Draft: st.Draft, Variant: variantID}, nil
}

func (m *Machine) SelectQuantity(s conversation.State, quantity int) (conversation.State, error) {
	st, ok := s.(conversation.SelectingQuantity)
	if !ok {
		return s, ErrWrongState
	}
	if !models.ValidQuantity(quantity) {
		return s, ErrInvalidQuantity
	}
	draft := st.Draft
	draft.Items = draft.Items.Add(st.Variant, quantity)
	return conversation.ConfirmingMoreItems{Draft: draft}, nil
}

func (m *Machine) AddMore(s conversation.State) (conversation.State, error) {
	st, ok := s.(conversation.ConfirmingMoreItems)
	if !ok {
		return s, ErrWrongState
	}
	return conversation.SelectingVariant{Draft: st.Draft}, nil
}

// AdjustItem changes the (variant, quantity) line item by +1 or -1 bouquet.
// Removing the last bouquet of the order sends the customer back to variant
// selection.
func (m *Machine) AdjustItem(s conversation.State, variant, quantity, delta int) (conversation.State, error) {
	st, ok := s.(conversation.ConfirmingMoreItems)
	if !ok {
		return s, ErrWrongState
	}
	if delta != 1 && delta != -1 {
		return s, ErrInvalidAdjustment
	}
	items, err := st.Draft.Items.Adjust(variant, quantity, delta)
	if err != nil {
		return s, ErrInvalidAdjustment
	}
	draft := st.Draft
	draft.Items = items
	if len(items) == 0 {
		return conversation.SelectingVariant{Draft: draft}, nil
	}
	return conversation.ConfirmingMoreItems{Draft: draft}, nil
}

// Proceed leaves item editing. When the customer came back from the
// confirmation step and the saved slot is still offered, it returns straight
// to confirmation.
func (m *Machine) Proceed(s conversation.State) (conversation.State, error) {
	st, ok := s.(conversation.ConfirmingMoreItems)
	if !ok {
		return s, ErrWrongState
	}
	if len(st.Draft.Items) == 0 {
		return s, ErrNoItems
	}
	if saved := st.Draft.Saved; saved != nil && m.Schedule().Offers(saved.PickupAt) {
		return conversation.ConfirmingOrder{
			Draft:    st.Draft,
			PickupAt: saved.PickupAt,
			Name:     saved.Name,
			Phone:    saved.Phone,
		}, nil
	}
	return conversation.SelectingPickupDate{Draft: st.Draft}, nil
}

func (m *Machine) SelectDate(s conversation.State, dateKey string) (conversation.State, error) {
	st, ok := s.(conversation.SelectingPickupDate)
	if !ok {
		return s, ErrWrongState
	}
	if _, ok := m.Schedule().Day(dateKey); !ok {
		return s, ErrDateUnavailable
	}
	return conversation.SelectingPickupTime{Draft: st.Draft, Date: dateKey}, nil
}

func (m *Machine) SelectTime(s conversation.State, hour int) (conversation.State, error) {
	st, ok := s.(conversation.SelectingPickupTime)
	if !ok {
		return s, ErrWrongState
	}
	day, ok := m.Schedule().Day(st.Date)
	if !ok {
		return conversation.SelectingPickupDate{Draft: st.Draft}, ErrDateUnavailable
	}
	if !day.Contains(hour) {
		return s, ErrTimeOutOfRange
	}
	pickupAt := day.At(hour).UTC()
	if saved := st.Draft.Saved; saved != nil {
		draft := st.Draft
		draft.Saved = &conversation.SavedDetails{PickupAt: pickupAt, Name: saved.Name, Phone: saved.Phone}
		return conversation.ConfirmingOrder{
			Draft:    draft,
			PickupAt: pickupAt,
			Name:     saved.Name,
			Phone:    saved.Phone,
		}, nil
	}
	return conversation.EnteringName{Draft: st.Draft, PickupAt: pickupAt}, nil
}

// SuggestedName prefers the saved profile name over the Telegram one.
func (m *Machine) SuggestedName(ctx context.Context, c Customer) (models.PersonName, bool) {
	profile, err := m.profiles.GetProfile(ctx, c.UserID)
	if err != nil {
		m.log.Warn(m.log.WithUserID(ctx, c.UserID), "profile lookup for name suggestion failed: "+err.Error())
	}
	if profile != nil && profile.Name.IsComplete() {
		return profile.Name, true
	}
	name, err := ParseName(c.FirstName + " " + c.LastName)
	if err != nil {
		return models.PersonName{}, false
	}
	return name, true
}

func (m *Machine) SuggestedPhone(ctx context.Context, c Customer) (string, bool) {
	profile, err := m.profiles.GetProfile(ctx, c.UserID)
	if err != nil || profile == nil || profile.Phone == "" {
		return "", false
	}
	return profile.Phone, true
}

func (m *Machine) UseSuggestedName(ctx context.Context, c Customer, s conversation.State) (conversation.State, error) {
	if _, ok := s.(conversation.EnteringName); !ok {
		return s, ErrWrongState
	}
	name, ok := m.SuggestedName(ctx, c)
	if !ok {
		return s, ErrInvalidName
	}
	return m.EnterName(ctx, c, s, name.String())
}

func (m *Machine) EnterName(ctx context.Context, c Customer, s conversation.State, text string) (conversation.State, error) {
	st, ok := s.(conversation.EnteringName)
	if !ok {
		return s, ErrWrongState
	}
	name, err := ParseName(text)
	if err != nil {
		return s, err
	}
	m.rememberContact(ctx, c, func(p *models.Profile) bool { return p.Name.IsComplete() }, models.ProfilePatch{Name: name})
	return conversation.EnteringPhone{Draft: st.Draft, PickupAt: st.PickupAt, Name: name}, nil
}

func (m *Machine) UseSuggestedPhone(ctx context.Context, c Customer, s conversation.State) (conversation.State, error) {
	if _, ok := s.(conversation.EnteringPhone); !ok {
		return s, ErrWrongState
	}
	phone, ok := m.SuggestedPhone(ctx, c)
	if !ok {
		return s, ErrInvalidPhone
	}
	return m.EnterPhone(ctx, c, s, phone)
}

func (m *Machine) EnterPhone(ctx context.Context, c Customer, s conversation.State, text string) (conversation.State, error) {
	st, ok := s.(conversation.EnteringPhone)
	if !ok {
		return s, ErrWrongState
	}
	phone, err := NormalizePhone(text)
	if err != nil {
		return s, err
	}
	m.rememberContact(ctx, c, func(p *models.Profile) bool { return p.Phone != "" }, models.ProfilePatch{Phone: phone})
	return conversation.ConfirmingOrder{Draft: st.Draft, PickupAt: st.PickupAt, Name: st.Name, Phone: phone}, nil
}

// Confirm persists the order and hands the customer over to payment. The
// draft ID makes a repeated confirmation return the same order.
func (m *Machine) Confirm(ctx context.Context, c Customer, s conversation.State) (conversation.State, *models.Order, error) {
	st, ok := s.(conversation.ConfirmingOrder)
	if !ok {
		return s, nil, ErrWrongState
	}
	if len(st.Draft.Items) == 0 {
		return s, nil, ErrNoItems
	}
	if !m.Schedule().Offers(st.PickupAt) {
		return s, nil, ErrPickupExpired
	}
	total, err := st.Draft.Items.Total(m.pricing)
	if err != nil {
		return s, nil, err
	}

	order, created, err := m.orders.CreateOrder(ctx, &models.Order{
		DraftID:   st.Draft.ID,
		UserID:    c.UserID,
		Username:  c.Username,
		Items:     st.Draft.Items,
		PickupAt:  st.PickupAt,
		Recipient: st.Name,
		Phone:     st.Phone,
		Total:     total,
	})
	if err != nil {
		return s, nil, fmt.Errorf("saving order: %w", err)
	}
	if created {
		m.log.Info(m.log.WithOrder(m.log.WithUserID(ctx, c.UserID), order.Number), "order created")
	}
	return conversation.AwaitingPayment{OrderNumber: order.Number}, order, nil
}

// Revise goes back to item editing, keeping pickup and contact details.
func (m *Machine) Revise(s conversation.State) (conversation.State, error) {
	st, ok := s.(conversation.ConfirmingOrder)
	if !ok {
		return s, ErrWrongState
	}
	return conversation.ConfirmingMoreItems{Draft: saveDetails(st)}, nil
}

// ChangePickup re-asks only the pickup slot.
func (m *Machine) ChangePickup(s conversation.State) (conversation.State, error) {
	st, ok := s.(conversation.ConfirmingOrder)
	if !ok {
		return s, ErrWrongState
	}
	return conversation.SelectingPickupDate{Draft: saveDetails(st)}, nil
}

func (m *Machine) newDraft() conversation.State {
	return conversation.SelectingVariant{Draft: conversation.Draft{ID: m.newID()}}
}

func saveDetails(st conversation.ConfirmingOrder) conversation.Draft {
	draft := st.Draft
	draft.Saved = &conversation.SavedDetails{PickupAt: st.PickupAt, Name: st.Name, Phone: st.Phone}
	return draft
}

// rememberContact caches a name or phone on the profile unless the profile
// already has one. Failures are logged; they never block the order.
func (m *Machine) rememberContact(ctx context.Context, c Customer, has func(*models.Profile) bool, patch models.ProfilePatch) {
	ctx = m.log.WithUserID(ctx, c.UserID)
	profile, err := m.profiles.GetProfile(ctx, c.UserID)
	if err != nil {
		m.log.Error(ctx, "loading profile", err)
		return
	}
	if profile != nil && has(profile) {
		return
	}
	patch.Username = c.Username
	if _, err := m.profiles.UpsertProfile(ctx, c.UserID, patch); err != nil {
		m.log.Error(ctx, "saving profile contact", err)
	}
}
