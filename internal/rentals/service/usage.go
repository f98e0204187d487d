package service

import (
	"context"

	billingservice "keiteki/internal/billing/service"
	"keiteki/internal/rentals/repository"
	"keiteki/pkg/config"
	"keiteki/pkg/daysplit"
	apperrors "keiteki/pkg/errors"
	"keiteki/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

// UsageAccumulator folds one rental segment into the resident's daily
// counter. Crossing the daily threshold charges the overage fee
// exactly once per (resident, date): the latch flips in the same
// transaction that writes the ledger line, so a retried return can
// never double-charge.
type UsageAccumulator interface {
	// Accumulate returns the overage amount charged by this segment,
	// zero when the threshold was not crossed or was crossed earlier.
	Accumulate(ctx context.Context, residentKey string, seg daysplit.Segment) (int, error)

	// History returns the resident's most recent daily counters,
	// newest first.
	History(ctx context.Context, residentKey string) ([]*model.DailyUsage, error)
}

// historyDays bounds a usage query to roughly a month of counters.
const historyDays = 31

type usageAccumulator struct {
	usage  repository.DailyUsageRepository
	ledger billingservice.BillingLedger
	cfg    *config.Config
}

func NewUsageAccumulator(
	usage repository.DailyUsageRepository,
	ledger billingservice.BillingLedger,
	cfg *config.Config,
) UsageAccumulator {
	return &usageAccumulator{
		usage:  usage,
		ledger: ledger,
		cfg:    cfg,
	}
}

func (a *usageAccumulator) Accumulate(ctx context.Context, residentKey string, seg daysplit.Segment) (int, error) {
	if seg.Minutes <= 0 {
		return 0, nil
	}

	date := seg.Date.String()
	charged := 0

	err := a.usage.ExecuteWithRetry(ctx, func(sessCtx mongo.SessionContext) error {
		// The transaction may rerun; recompute from scratch each time.
		charged = 0

		usage, err := a.usage.Get(sessCtx, residentKey, date)
		if err != nil {
			return apperrors.Internal("Failed to load daily usage", err)
		}
		if usage == nil {
			usage = &model.DailyUsage{
				ID:          model.DailyUsageID(residentKey, date),
				ResidentKey: residentKey,
				Date:        date,
			}
		}

		newTotal := usage.TotalDurationMinutes + seg.Minutes
		if newTotal > a.cfg.OverageThresholdMinutes && !usage.OverageCharged {
			usage.OverageCharged = true
			charged = a.cfg.OverageFeeAmount
			if err := a.ledger.AddOverage(sessCtx, seg.Date.YearMonth(), residentKey, charged); err != nil {
				return err
			}
		}
		usage.TotalDurationMinutes = newTotal

		if err := a.usage.Put(sessCtx, usage); err != nil {
			return apperrors.Internal("Failed to store daily usage", err)
		}
		return nil
	})
	if err != nil {
		a.cfg.Log.Error("Failed to accumulate usage",
			"resident_key", residentKey,
			"date", date,
			"minutes", seg.Minutes,
			"error", err,
		)
		return 0, err
	}

	if charged > 0 {
		a.cfg.Log.Info("Daily threshold crossed",
			"resident_key", residentKey,
			"date", date,
			"charge_amount", charged,
		)
	}
	return charged, nil
}

func (a *usageAccumulator) History(ctx context.Context, residentKey string) ([]*model.DailyUsage, error) {
	usages, err := a.usage.FindByResident(ctx, residentKey, historyDays)
	if err != nil {
		a.cfg.Log.Error("Failed to load usage history", "resident_key", residentKey, "error", err)
		return nil, apperrors.Internal("Failed to retrieve usage history", err)
	}
	return usages, nil
}
