package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/studiodans/dance-booking/internal/models"
	"github.com/studiodans/dance-booking/internal/service"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

// fakeLedger records purchases keyed on Ref, mirroring the idempotency the
// real ledger gets from the purchase_ref unique index.
type fakeLedger struct {
	mu        sync.Mutex
	byRef     map[string]*models.Entitlement
	nextID    uint
	purchases int
	fail      error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{byRef: make(map[string]*models.Entitlement)}
}

func (f *fakeLedger) Purchase(ctx context.Context, in service.PurchaseInput) (*models.Entitlement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	if e, ok := f.byRef[in.Ref]; ok {
		return e, nil
	}
	f.nextID++
	f.purchases++
	e := &models.Entitlement{
		ID:                  f.nextID,
		UserID:              in.UserID,
		PassID:              in.PassID,
		PurchaseRef:         in.Ref,
		SourceEntitlementID: in.SourceEntitlementID,
		Status:              models.EntitlementActive,
	}
	f.byRef[in.Ref] = e
	return e, nil
}

func (f *fakeLedger) Upgrade(ctx context.Context, entitlementID, targetPassID uint) (*service.UpgradeResult, error) {
	panic("unexpected Upgrade call")
}
func (f *fakeLedger) ListByUser(ctx context.Context, userID string) ([]models.Entitlement, error) {
	panic("unexpected ListByUser call")
}
func (f *fakeLedger) GetEntitlement(ctx context.Context, id uint) (*models.Entitlement, error) {
	panic("unexpected GetEntitlement call")
}
func (f *fakeLedger) Consume(ctx context.Context, tx *gorm.DB, e *models.Entitlement) (bool, error) {
	panic("unexpected Consume call")
}
func (f *fakeLedger) Refund(ctx context.Context, tx *gorm.DB, e *models.Entitlement) (bool, error) {
	panic("unexpected Refund call")
}

// fakeAcker satisfies amqp.Acknowledger so Delivery.Ack/Nack work off-broker.
type fakeAcker struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *fakeAcker) Ack(tag uint64, multiple bool) error {
	a.acked = true
	return nil
}

func (a *fakeAcker) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked = true
	a.requeue = requeue
	return nil
}

func (a *fakeAcker) Reject(tag uint64, requeue bool) error {
	a.nacked = true
	a.requeue = requeue
	return nil
}

func delivery(body string) (amqp.Delivery, *fakeAcker) {
	acker := &fakeAcker{}
	return amqp.Delivery{Acknowledger: acker, Body: []byte(body)}, acker
}

func TestHandleMessage_CreatesEntitlement(t *testing.T) {
	ledger := newFakeLedger()
	pc := NewPaymentConsumer(ledger)

	msg, acker := delivery(`{"transaction_id":"tx-1","user_id":"user-1","pass_id":3,"price":250}`)
	pc.handleMessage(msg)

	assert.True(t, acker.acked)
	assert.False(t, acker.nacked)
	assert.Equal(t, 1, ledger.purchases)
	assert.Equal(t, "user-1", ledger.byRef["tx-1"].UserID)
}

func TestHandleMessage_RedeliveryIsIdempotent(t *testing.T) {
	ledger := newFakeLedger()
	pc := NewPaymentConsumer(ledger)

	body := `{"transaction_id":"tx-1","user_id":"user-1","pass_id":3,"price":250}`
	first, firstAcker := delivery(body)
	second, secondAcker := delivery(body)

	pc.handleMessage(first)
	pc.handleMessage(second)

	assert.True(t, firstAcker.acked)
	assert.True(t, secondAcker.acked)
	assert.Equal(t, 1, ledger.purchases)
}

func TestHandleMessage_MalformedBodyDropped(t *testing.T) {
	ledger := newFakeLedger()
	pc := NewPaymentConsumer(ledger)

	msg, acker := delivery(`{not json`)
	pc.handleMessage(msg)

	assert.True(t, acker.nacked)
	assert.False(t, acker.requeue)
	assert.Equal(t, 0, ledger.purchases)
}

func TestHandleMessage_IncompletePaymentDropped(t *testing.T) {
	ledger := newFakeLedger()
	pc := NewPaymentConsumer(ledger)

	msg, acker := delivery(`{"transaction_id":"tx-1","user_id":"","pass_id":3}`)
	pc.handleMessage(msg)

	assert.True(t, acker.nacked)
	assert.False(t, acker.requeue)
	assert.Equal(t, 0, ledger.purchases)
}

// A payment naming a pass the catalog does not know can never succeed, so it
// is dropped rather than redelivered forever.
func TestHandleMessage_UnknownPassDropped(t *testing.T) {
	ledger := newFakeLedger()
	ledger.fail = service.ErrPassNotFound
	pc := NewPaymentConsumer(ledger)

	msg, acker := delivery(`{"transaction_id":"tx-1","user_id":"user-1","pass_id":999,"price":250}`)
	pc.handleMessage(msg)

	assert.True(t, acker.nacked)
	assert.False(t, acker.requeue)
	assert.Equal(t, 0, ledger.purchases)
}

func TestHandleMessage_StoreErrorRequeued(t *testing.T) {
	ledger := newFakeLedger()
	ledger.fail = errors.New("db down")
	pc := NewPaymentConsumer(ledger)

	msg, acker := delivery(`{"transaction_id":"tx-1","user_id":"user-1","pass_id":3,"price":250}`)
	pc.handleMessage(msg)

	assert.True(t, acker.nacked)
	assert.True(t, acker.requeue)
}

func TestHandleMessage_UpgradeSettlementCarriesSource(t *testing.T) {
	ledger := newFakeLedger()
	pc := NewPaymentConsumer(ledger)

	msg, acker := delivery(`{"transaction_id":"tx-9","user_id":"user-1","pass_id":5,"price":150,"source_entitlement_id":4}`)
	pc.handleMessage(msg)

	assert.True(t, acker.acked)
	assert.Equal(t, 1, ledger.purchases)
	if assert.NotNil(t, ledger.byRef["tx-9"].SourceEntitlementID) {
		assert.Equal(t, uint(4), *ledger.byRef["tx-9"].SourceEntitlementID)
	}
}
