package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/gildedlane/marketplace-backend/internal/cart"
	"github.com/gildedlane/marketplace-backend/pkg/db/models"
	"github.com/gildedlane/marketplace-backend/pkg/enums"
	"github.com/gildedlane/marketplace-backend/pkg/logger"
	"github.com/gildedlane/marketplace-backend/pkg/outbox"
	"github.com/gildedlane/marketplace-backend/pkg/outbox/payloads"
)

const (
	defaultGuestCartTTL  = 30 * 24 * time.Hour
	guestCartSweepBatch  = 200
	guestCartSweepRounds = 50
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartEventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// GuestCartExpiryJobParams configure the guest cart sweep.
type GuestCartExpiryJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Carts     *cart.Repository
	Outbox    cartEventEmitter
	TTL       time.Duration
	BatchSize int
}

// NewGuestCartExpiryJob reaps guest carts whose last activity is older than
// the TTL. User carts are never touched.
func NewGuestCartExpiryJob(params GuestCartExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultGuestCartTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = guestCartSweepBatch
	}
	return &guestCartExpiryJob{
		logg:   params.Logger,
		db:     params.DB,
		carts:  params.Carts,
		outbox: params.Outbox,
		ttl:    ttl,
		batch:  batch,
		now:    time.Now,
	}, nil
}

type guestCartExpiryJob struct {
	logg   *logger.Logger
	db     txRunner
	carts  *cart.Repository
	outbox cartEventEmitter
	ttl    time.Duration
	batch  int
	now    func() time.Time
}

func (j *guestCartExpiryJob) Name() string { return "guest-cart-expiry" }

func (j *guestCartExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	reaped := 0
	var reapErrs error

	// Bounded rounds so one run cannot loop forever on a huge backlog.
	for round := 0; round < guestCartSweepRounds; round++ {
		carts, err := j.carts.ListExpiredGuestCarts(ctx, cutoff, j.batch)
		if err != nil {
			return fmt.Errorf("list expired guest carts: %w", err)
		}
		if len(carts) == 0 {
			break
		}

		// One stuck cart must not block the rest of the sweep.
		for _, expired := range carts {
			if err := j.reapCart(ctx, expired); err != nil {
				reapErrs = multierr.Append(reapErrs, fmt.Errorf("reap cart %s: %w", expired.ID, err))
				continue
			}
			reaped++
		}
		if len(carts) < j.batch {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"carts_reaped": reaped,
	})
	j.logg.Info(logCtx, "guest cart expiry sweep complete")
	return reapErrs
}

func (j *guestCartExpiryJob) reapCart(ctx context.Context, expired models.Cart) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := j.carts.WithTx(tx).DeleteCart(ctx, expired.ID); err != nil {
			return err
		}
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCartExpired,
			AggregateType: enums.AggregateCart,
			AggregateID:   expired.ID,
			Data: payloads.CartExpiredEvent{
				CartID:    expired.ID,
				ExpiredAt: j.now().UTC(),
				ItemCount: len(expired.Items),
			},
			OccurredAt: j.now().UTC(),
		})
	})
}
