package payment

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// DefaultCurrency is the store's operating currency.
const DefaultCurrency = "mxn"

// BrokerConfig configures a Broker.
type BrokerConfig struct {
	Currency string
	// BreakerFailures is the number of consecutive processor failures after
	// which calls fail fast for BreakerCooldown.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// Broker creates card-only payment intents for the store currency and
// retrieves them for verification. Creation is one-shot: every call uses a
// fresh idempotency key and nothing is retried.
type Broker struct {
	processor Processor
	currency  string
	breaker   *gobreaker.CircuitBreaker[*Intent]
	newKey    func() string
}

// NewBroker creates a Broker over processor. lg receives breaker state changes;
// request-path failures are logged with the logger carried by ctx.
func NewBroker(processor Processor, cfg BrokerConfig, lg *zap.Logger) *Broker {
	if lg == nil {
		lg = zap.NewNop()
	}
	currency := strings.ToLower(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	b := &Broker{
		processor: processor,
		currency:  currency,
		newKey:    uuid.NewString,
	}
	b.breaker = gobreaker.NewCircuitBreaker[*Intent](gobreaker.Settings{
		Name:    "payment-processor",
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			// A missing intent is a caller problem, not a processor outage.
			return err == nil || errors.Is(err, ErrIntentNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			lg.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		},
	})
	return b
}

// Currency returns the store's operating currency.
func (b *Broker) Currency() string {
	return b.currency
}

// CreateIntent sizes amount in minor units and creates an intent for it. The
// returned client secret is the only value meant for the client.
func (b *Broker) CreateIntent(ctx context.Context, amount decimal.Decimal) (string, error) {
	minor, err := ToMinorUnits(amount)
	if err != nil {
		return "", err
	}

	params := CreateParams{
		Amount:             minor,
		Currency:           b.currency,
		PaymentMethodTypes: []string{"card"},
		IdempotencyKey:     b.newKey(),
	}
	intent, err := b.breaker.Execute(func() (*Intent, error) {
		return b.processor.CreateIntent(ctx, params)
	})
	if err != nil {
		zctx.From(ctx).Error("Create payment intent",
			zap.Int64("amount_minor", minor),
			zap.String("currency", b.currency),
			zap.Error(err),
		)
		return "", ErrProcessorUnavailable
	}
	return intent.ClientSecret, nil
}

// Verify retrieves the current state of an intent from the processor.
func (b *Broker) Verify(ctx context.Context, intentID string) (*Intent, error) {
	if intentID == "" {
		return nil, ErrIntentNotFound
	}
	intent, err := b.breaker.Execute(func() (*Intent, error) {
		return b.processor.GetIntent(ctx, intentID)
	})
	if err != nil {
		if errors.Is(err, ErrIntentNotFound) {
			return nil, ErrIntentNotFound
		}
		zctx.From(ctx).Error("Retrieve payment intent",
			zap.String("payment_intent_id", intentID),
			zap.Error(err),
		)
		return nil, ErrProcessorUnavailable
	}
	return intent, nil
}
