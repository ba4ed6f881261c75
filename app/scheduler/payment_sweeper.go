// Package scheduler runs background maintenance over open payments.
package scheduler

import (
	"context"
	"log"
	"time"

	businessflow "github.com/velmart/velmart-backend/business_flow"
	"github.com/velmart/velmart-backend/models"
	"github.com/velmart/velmart-backend/repository"
	"github.com/velmart/velmart-backend/utils"
)

// PaymentSweeper periodically walks open invoices: overdue ones are marked
// expired, the rest are reconciled against the provider so payments whose
// webhook delivery was lost still materialize.
type PaymentSweeper struct {
	paymentRepo repository.PaymentRepository
	paymentFlow businessflow.PaymentFlow
	interval    time.Duration
	batchSize   int
}

func NewPaymentSweeper(paymentRepo repository.PaymentRepository, paymentFlow businessflow.PaymentFlow, interval time.Duration) *PaymentSweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &PaymentSweeper{
		paymentRepo: paymentRepo,
		paymentFlow: paymentFlow,
		interval:    interval,
		batchSize:   200,
	}
}

// Start launches the sweep loop in a background goroutine and returns a stop function
func (s *PaymentSweeper) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return cancel
}

func (s *PaymentSweeper) runOnce(ctx context.Context) {
	status := models.PaymentStatusActive
	filter := models.PaymentFilter{Status: &status}
	now := utils.UTCNow()

	offset := 0
	for {
		payments, err := s.paymentRepo.ListByFilter(ctx, filter, s.batchSize, offset)
		if err != nil {
			log.Printf("sweeper: list active payments failed: %v", err)
			return
		}
		if len(payments) == 0 {
			return
		}

		for _, payment := range payments {
			select {
			case <-ctx.Done():
				return
			default:
			}

			if payment.ExpiresAt != nil && payment.ExpiresAt.Before(now) {
				payment.Status = models.PaymentStatusExpired
				if err := s.paymentRepo.Update(ctx, payment); err != nil {
					log.Printf("sweeper: expire payment %d failed: %v", payment.ID, err)
				}
				continue
			}

			// GetPayment pulls the provider state and materializes the
			// purchase when the invoice turned out paid.
			if _, err := s.paymentFlow.GetPayment(ctx, payment.ID, nil); err != nil {
				log.Printf("sweeper: reconcile payment %d failed: %v", payment.ID, err)
			}
		}

		if len(payments) < s.batchSize {
			return
		}
		offset += s.batchSize
	}
}
