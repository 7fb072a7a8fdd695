package worker

import (
	"context"
	"time"

	"rewear/internal/broker"
	"rewear/internal/service"
	"rewear/internal/store"
	"rewear/internal/util"

	"go.uber.org/zap"
)

// SettlementWorker replays captured/failed payment events against the
// settlement service. Settlement is idempotent, so redelivery is safe.
type SettlementWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewSettlementWorker creates a new settlement worker
func NewSettlementWorker(consumer *broker.Consumer, settlement *service.SettlementService) *SettlementWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnPaymentCaptured(settlement.HandlePaymentCaptured)
	eventHandler.OnPaymentFailed(settlement.HandlePaymentFailed)

	return &SettlementWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the worker
func (w *SettlementWorker) Start(ctx context.Context) error {
	util.GetLogger().Info("Starting settlement worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *SettlementWorker) Stop() error {
	util.GetLogger().Info("Stopping settlement worker")
	return w.consumer.Close()
}

// ReservationSweeper periodically returns lapsed checkout holds to the
// marketplace so an abandoned checkout never parks an item forever.
type ReservationSweeper struct {
	store    *store.Store
	interval time.Duration
	logger   *zap.Logger
}

// NewReservationSweeper creates a new reservation sweeper
func NewReservationSweeper(st *store.Store, interval time.Duration) *ReservationSweeper {
	return &ReservationSweeper{
		store:    st,
		interval: interval,
		logger:   util.GetLogger(),
	}
}

// Start runs the sweep loop until the context is cancelled
func (rs *ReservationSweeper) Start(ctx context.Context) {
	rs.logger.Info("Starting reservation sweeper",
		zap.Duration("interval", rs.interval))

	ticker := time.NewTicker(rs.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			rs.logger.Info("Reservation sweeper stopped")
			return
		case <-ticker.C:
			released, err := rs.store.ReleaseExpiredReservations(ctx)
			if err != nil {
				rs.logger.Error("Reservation sweep failed", zap.Error(err))
				continue
			}
			if released > 0 {
				util.ReservationsExpired.Add(float64(released))
				rs.logger.Info("Released expired reservations",
					zap.Int64("count", released))
			}
		}
	}
}
