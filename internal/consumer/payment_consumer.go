package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/studiodans/dance-booking/internal/service"
)

// PaymentMessage is the payment collaborator's confirmation of a completed
// transaction. TransactionID doubles as the idempotency key; webhook
// redelivery of the same transaction must not mint a second entitlement.
type PaymentMessage struct {
	TransactionID       string  `json:"transaction_id"`
	UserID              string  `json:"user_id"`
	PassID              uint    `json:"pass_id"`
	Price               float64 `json:"price"`
	SourceEntitlementID *uint   `json:"source_entitlement_id,omitempty"`
}

// PaymentConsumer turns confirmed payment messages into ledger purchases.
type PaymentConsumer struct {
	ledger service.EntitlementService
}

func NewPaymentConsumer(ledger service.EntitlementService) *PaymentConsumer {
	return &PaymentConsumer{ledger: ledger}
}

func (pc *PaymentConsumer) Start(msgs <-chan amqp.Delivery) {
	go func() {
		for msg := range msgs {
			pc.handleMessage(msg)
		}
		log.Println("[PaymentConsumer] channel closed, stopping consumer")
	}()
}

func (pc *PaymentConsumer) handleMessage(msg amqp.Delivery) {
	var payment PaymentMessage
	if err := json.Unmarshal(msg.Body, &payment); err != nil {
		log.Printf("[PaymentConsumer] failed to unmarshal: %v", err)
		msg.Nack(false, false)
		return
	}
	if payment.TransactionID == "" || payment.UserID == "" || payment.PassID == 0 {
		log.Printf("[PaymentConsumer] dropping incomplete payment message: %s", msg.Body)
		msg.Nack(false, false)
		return
	}

	e, err := pc.ledger.Purchase(context.Background(), service.PurchaseInput{
		UserID:              payment.UserID,
		PassID:              payment.PassID,
		Price:               payment.Price,
		Ref:                 payment.TransactionID,
		SourceEntitlementID: payment.SourceEntitlementID,
	})
	if err != nil {
		// An unknown pass never becomes known on redelivery; requeueing it
		// would poison the queue. Only transient store errors come back.
		if errors.Is(err, service.ErrPassNotFound) {
			log.Printf("[PaymentConsumer] dropping payment %s for unknown pass %d", payment.TransactionID, payment.PassID)
			msg.Nack(false, false)
			return
		}
		log.Printf("[PaymentConsumer] failed to record purchase %s: %v", payment.TransactionID, err)
		msg.Nack(false, true) // requeue
		return
	}

	log.Printf("[PaymentConsumer] recorded purchase %s: entitlement %d for user %s",
		payment.TransactionID, e.ID, e.UserID)
	msg.Ack(false)
}
