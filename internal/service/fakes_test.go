package service

import (
	"context"
	"sync"
	"time"

	"github.com/studiodans/dance-booking/internal/models"
	"gorm.io/gorm"
)

// In-memory repository fakes. Conditional writes behave like their SQL
// counterparts (compare-and-set under a lock); the store-wide mutex in
// fakeTx stands in for transaction isolation.

type fakeStore struct {
	mu sync.Mutex

	templates    map[uint]models.ClassTemplate
	instances    map[uint]models.ClassInstance
	passes       map[uint]models.Pass
	entitlements map[uint]models.Entitlement
	bookings     map[uint]models.Booking

	nextID uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		templates:    map[uint]models.ClassTemplate{},
		instances:    map[uint]models.ClassInstance{},
		passes:       map[uint]models.Pass{},
		entitlements: map[uint]models.Entitlement{},
		bookings:     map[uint]models.Booking{},
	}
}

func (s *fakeStore) id() uint {
	s.nextID++
	return s.nextID
}

// fakeTx serializes whole transactions on the store mutex. Rollback is not
// simulated; tests arrange for conditional failures to happen on the first
// write of a transaction.
type fakeTx struct{ store *fakeStore }

func (f *fakeTx) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return fn(nil)
}

// --- templates ---

type fakeTemplateRepo struct{ store *fakeStore }

func (r *fakeTemplateRepo) Create(ctx context.Context, tpl *models.ClassTemplate) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	tpl.ID = r.store.id()
	r.store.templates[tpl.ID] = *tpl
	return nil
}

func (r *fakeTemplateRepo) FindByID(ctx context.Context, id uint) (*models.ClassTemplate, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	tpl, ok := r.store.templates[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &tpl, nil
}

func (r *fakeTemplateRepo) FindAll(ctx context.Context) ([]models.ClassTemplate, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]models.ClassTemplate, 0, len(r.store.templates))
	for _, tpl := range r.store.templates {
		out = append(out, tpl)
	}
	return out, nil
}

// --- instances ---

type fakeInstanceRepo struct{ store *fakeStore }

func (r *fakeInstanceRepo) CreateIfAbsent(ctx context.Context, inst *models.ClassInstance) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.instances {
		if existing.TemplateID == inst.TemplateID && existing.StartsAt.Equal(inst.StartsAt) {
			return false, nil
		}
	}
	inst.ID = r.store.id()
	r.store.instances[inst.ID] = *inst
	return true, nil
}

func (r *fakeInstanceRepo) FindByID(ctx context.Context, id uint) (*models.ClassInstance, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	inst, ok := r.store.instances[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &inst, nil
}

func (r *fakeInstanceRepo) FindByTemplateFrom(ctx context.Context, templateID uint, from time.Time) ([]models.ClassInstance, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []models.ClassInstance
	for _, inst := range r.store.instances {
		if inst.TemplateID == templateID && !inst.StartsAt.Before(from) && !inst.Cancelled {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (r *fakeInstanceRepo) AdjustCapacity(ctx context.Context, tx *gorm.DB, id uint, expected, delta int) (bool, error) {
	// Caller holds the store mutex via fakeTx.
	inst, ok := r.store.instances[id]
	if !ok || inst.Cancelled || inst.RemainingCapacity != expected {
		return false, nil
	}
	next := expected + delta
	if next < 0 || next > inst.Capacity {
		return false, nil
	}
	inst.RemainingCapacity = next
	r.store.instances[id] = inst
	return true, nil
}

func (r *fakeInstanceRepo) MarkCancelled(ctx context.Context, tx *gorm.DB, id uint, reason string) error {
	inst, ok := r.store.instances[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	inst.Cancelled = true
	inst.CancellationReason = reason
	r.store.instances[id] = inst
	return nil
}

// --- passes ---

type fakePassRepo struct{ store *fakeStore }

func (r *fakePassRepo) Create(ctx context.Context, pass *models.Pass) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	pass.ID = r.store.id()
	r.store.passes[pass.ID] = *pass
	return nil
}

func (r *fakePassRepo) FindByID(ctx context.Context, id uint) (*models.Pass, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	pass, ok := r.store.passes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &pass, nil
}

func (r *fakePassRepo) FindAll(ctx context.Context) ([]models.Pass, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]models.Pass, 0, len(r.store.passes))
	for _, pass := range r.store.passes {
		out = append(out, pass)
	}
	return out, nil
}

// --- entitlements ---

type fakeEntitlementRepo struct{ store *fakeStore }

func (r *fakeEntitlementRepo) CreateIfAbsent(ctx context.Context, e *models.Entitlement) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.entitlements {
		if existing.PurchaseRef == e.PurchaseRef {
			return false, nil
		}
	}
	e.ID = r.store.id()
	r.store.entitlements[e.ID] = *e
	return true, nil
}

func (r *fakeEntitlementRepo) FindByID(ctx context.Context, id uint) (*models.Entitlement, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	e, ok := r.store.entitlements[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &e, nil
}

func (r *fakeEntitlementRepo) FindByPurchaseRef(ctx context.Context, ref string) (*models.Entitlement, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, e := range r.store.entitlements {
		if e.PurchaseRef == ref {
			return &e, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeEntitlementRepo) FindByUser(ctx context.Context, userID string) ([]models.Entitlement, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []models.Entitlement
	for _, e := range r.store.entitlements {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeEntitlementRepo) SetClips(ctx context.Context, tx *gorm.DB, id uint, expected, next int, status models.EntitlementStatus) (bool, error) {
	// Caller holds the store mutex via fakeTx.
	e, ok := r.store.entitlements[id]
	if !ok || e.RemainingClips == nil || *e.RemainingClips != expected {
		return false, nil
	}
	clips := next
	e.RemainingClips = &clips
	e.Status = status
	r.store.entitlements[id] = e
	return true, nil
}

func (r *fakeEntitlementRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, status models.EntitlementStatus) error {
	e, ok := r.store.entitlements[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	e.Status = status
	r.store.entitlements[id] = e
	return nil
}

// --- bookings ---

type fakeBookingRepo struct{ store *fakeStore }

func (r *fakeBookingRepo) Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	// Caller holds the store mutex via fakeTx.
	for _, existing := range r.store.bookings {
		if existing.UserID == booking.UserID && existing.InstanceID == booking.InstanceID &&
			existing.Status != models.StatusCancelled {
			return gorm.ErrDuplicatedKey
		}
	}
	booking.ID = r.store.id()
	booking.CreatedAt = time.Now()
	r.store.bookings[booking.ID] = *booking
	return nil
}

func (r *fakeBookingRepo) FindByID(ctx context.Context, id uint) (*models.Booking, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	b, ok := r.store.bookings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &b, nil
}

func (r *fakeBookingRepo) FindActiveByUserAndInstance(ctx context.Context, userID string, instanceID uint) (*models.Booking, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, b := range r.store.bookings {
		if b.UserID == userID && b.InstanceID == instanceID && b.Status != models.StatusCancelled {
			return &b, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeBookingRepo) FindActiveByInstance(ctx context.Context, instanceID uint) ([]models.Booking, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []models.Booking
	for _, b := range r.store.bookings {
		if b.InstanceID == instanceID && b.Status != models.StatusCancelled {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) CountActiveByInstance(ctx context.Context, instanceID uint) (int64, error) {
	bookings, _ := r.FindActiveByInstance(ctx, instanceID)
	return int64(len(bookings)), nil
}

func (r *fakeBookingRepo) MarkCancelled(ctx context.Context, tx *gorm.DB, id uint) error {
	b, ok := r.store.bookings[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	b.Status = models.StatusCancelled
	r.store.bookings[id] = b
	return nil
}

// env wires every fake around one store, mirroring the production graph in
// main.go.
type env struct {
	store        *fakeStore
	txm          *fakeTx
	templates    *fakeTemplateRepo
	instances    *fakeInstanceRepo
	passes       *fakePassRepo
	entitlements *fakeEntitlementRepo
	bookings     *fakeBookingRepo

	ledger   EntitlementService
	schedule ScheduleService
	booking  BookingService
	cancel   CancellationService
}

func newEnv() *env {
	store := newFakeStore()
	e := &env{
		store:        store,
		txm:          &fakeTx{store: store},
		templates:    &fakeTemplateRepo{store: store},
		instances:    &fakeInstanceRepo{store: store},
		passes:       &fakePassRepo{store: store},
		entitlements: &fakeEntitlementRepo{store: store},
		bookings:     &fakeBookingRepo{store: store},
	}
	e.ledger = NewEntitlementService(e.passes, e.entitlements, e.txm)
	e.schedule = NewScheduleService(e.templates, e.instances)
	e.booking = NewBookingService(e.txm, e.instances, e.entitlements, e.bookings, e.ledger, nil)
	e.cancel = NewCancellationService(e.txm, e.instances, e.entitlements, e.bookings, e.ledger, nil)
	return e
}

func intPtr(v int) *int { return &v }

// Seed helpers.

func (e *env) addInstance(capacity int) *models.ClassInstance {
	inst := &models.ClassInstance{
		TemplateID:        1,
		StartsAt:          time.Now().Add(24 * time.Hour),
		EndsAt:            time.Now().Add(25 * time.Hour),
		Capacity:          capacity,
		RemainingCapacity: capacity,
	}
	e.store.mu.Lock()
	inst.ID = e.store.id()
	e.store.instances[inst.ID] = *inst
	e.store.mu.Unlock()
	return inst
}

func (e *env) addEntitlement(userID string, kind models.PassKind, clips *int, validUntil time.Time) *models.Entitlement {
	ent := &models.Entitlement{
		UserID:         userID,
		PassID:         1,
		Kind:           kind,
		RemainingClips: clips,
		ValidFrom:      time.Now().Add(-time.Hour),
		ValidUntil:     validUntil,
		PurchasePrice:  100,
		Status:         models.EntitlementActive,
	}
	e.store.mu.Lock()
	ent.ID = e.store.id()
	ent.PurchaseRef = "seed-" + time.Now().Format("150405.000000000") + "-" + userID
	e.store.entitlements[ent.ID] = *ent
	e.store.mu.Unlock()
	return ent
}
