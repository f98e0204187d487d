package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"regexp"
	"strconv"

	billingerrors "keiteki/internal/billing/errors"
	"keiteki/internal/billing/repository"
	"keiteki/pkg/config"
	"keiteki/pkg/daysplit"
	apperrors "keiteki/pkg/errors"
	"keiteki/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

var yearMonthRegex = regexp.MustCompile(`^\d{6}$`)

// BillingLedger maintains the monthly per-resident ledger. Overage
// charges arrive from the usage accumulator inside its transaction;
// base fees are set once per half-month when a rental ends.
type BillingLedger interface {
	// AddOverage credits an overage charge against the month's ledger
	// entry. The context may be a session context: the accumulator
	// calls this inside the same transaction that latched the charge,
	// so the latch and the ledger line commit or roll back together.
	AddOverage(ctx context.Context, yearMonth, residentKey string, amount int) error

	// SetBaseFee sets the half-month base fee if it has not been set
	// yet. Repeat calls within the same half are no-ops.
	SetBaseFee(ctx context.Context, yearMonth, residentKey string, half daysplit.Half) error

	Statement(ctx context.Context, yearMonth string) ([]*model.BillingRecord, error)
	StatementCSV(ctx context.Context, yearMonth string) ([]byte, error)
}

type billingLedger struct {
	repo repository.BillingRepository
	cfg  *config.Config
}

func NewBillingLedger(repo repository.BillingRepository, cfg *config.Config) BillingLedger {
	return &billingLedger{
		repo: repo,
		cfg:  cfg,
	}
}

func (s *billingLedger) loadOrCreate(ctx context.Context, yearMonth, residentKey string) (*model.BillingRecord, error) {
	record, err := s.repo.Get(ctx, yearMonth, residentKey)
	if err != nil {
		return nil, err
	}
	if record == nil {
		record = &model.BillingRecord{
			ID:          model.BillingRecordID(yearMonth, residentKey),
			YearMonth:   yearMonth,
			ResidentKey: residentKey,
		}
	}
	return record, nil
}

func (s *billingLedger) AddOverage(ctx context.Context, yearMonth, residentKey string, amount int) error {
	if amount <= 0 {
		return nil
	}

	record, err := s.loadOrCreate(ctx, yearMonth, residentKey)
	if err != nil {
		return apperrors.Internal("Failed to load billing record", err)
	}

	record.OverageTotal += amount
	record.RecomputeTotal()

	if err := s.repo.Put(ctx, record); err != nil {
		return apperrors.Internal("Failed to store billing record", err)
	}

	s.cfg.Log.Info("Overage charged",
		"year_month", yearMonth,
		"resident_key", residentKey,
		"amount", amount,
		"overage_total", record.OverageTotal,
	)
	return nil
}

func (s *billingLedger) SetBaseFee(ctx context.Context, yearMonth, residentKey string, half daysplit.Half) error {
	err := s.repo.ExecuteWithRetry(ctx, func(sessCtx mongo.SessionContext) error {
		record, err := s.loadOrCreate(sessCtx, yearMonth, residentKey)
		if err != nil {
			return apperrors.Internal("Failed to load billing record", err)
		}

		switch half {
		case daysplit.FirstHalf:
			if record.BaseFirstHalf != 0 {
				return nil
			}
			record.BaseFirstHalf = s.cfg.BaseFeeAmount
		case daysplit.SecondHalf:
			if record.BaseSecondHalf != 0 {
				return nil
			}
			record.BaseSecondHalf = s.cfg.BaseFeeAmount
		default:
			return apperrors.Internal(fmt.Sprintf("Unknown half-month %q", half), nil)
		}
		record.RecomputeTotal()

		if err := s.repo.Put(sessCtx, record); err != nil {
			return apperrors.Internal("Failed to store billing record", err)
		}

		s.cfg.Log.Info("Base fee set",
			"year_month", yearMonth,
			"resident_key", residentKey,
			"half", half,
			"amount", s.cfg.BaseFeeAmount,
		)
		return nil
	})
	return err
}

func (s *billingLedger) Statement(ctx context.Context, yearMonth string) ([]*model.BillingRecord, error) {
	if !yearMonthRegex.MatchString(yearMonth) {
		return nil, apperrors.InvalidInput(billingerrors.ErrInvalidYearMonth.Error())
	}

	records, err := s.repo.ListByMonth(ctx, yearMonth)
	if err != nil {
		s.cfg.Log.Error("Failed to list billing records", "year_month", yearMonth, "error", err)
		return nil, apperrors.Internal("Failed to retrieve billing records", err)
	}

	return records, nil
}

// CSV column headers, kept in Japanese for the building manager's
// spreadsheet workflow.
var csvHeader = []string{"利用者キー", "基本料（前半）", "基本料（後半）", "超過料金合計", "合計金額"}

// utf8BOM makes Excel detect the encoding when the file is opened
// directly.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func (s *billingLedger) StatementCSV(ctx context.Context, yearMonth string) ([]byte, error) {
	records, err := s.Statement(ctx, yearMonth)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, apperrors.Internal("Failed to encode CSV", err)
	}
	for _, record := range records {
		row := []string{
			record.ResidentKey,
			strconv.Itoa(record.BaseFirstHalf),
			strconv.Itoa(record.BaseSecondHalf),
			strconv.Itoa(record.OverageTotal),
			strconv.Itoa(record.Total),
		}
		if err := w.Write(row); err != nil {
			return nil, apperrors.Internal("Failed to encode CSV", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, apperrors.Internal("Failed to encode CSV", err)
	}

	return buf.Bytes(), nil
}
