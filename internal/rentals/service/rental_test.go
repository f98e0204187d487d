package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	bikeserrors "keiteki/internal/bikes/errors"
	billingservice "keiteki/internal/billing/service"
	rentalserrors "keiteki/internal/rentals/errors"
	"keiteki/internal/rentals/validator"
	"keiteki/pkg/daysplit"
	mongotx "keiteki/pkg/db/mongo"
	apperrors "keiteki/pkg/errors"
	"keiteki/pkg/model"
)

type mockRentalRepository struct {
	rentals            map[string]*model.Rental
	createFunc         func(ctx context.Context, rental *model.Rental) error
	findOpenByBikeFunc func(ctx context.Context, bikeID string) (*model.Rental, error)
	closeFunc          func(ctx context.Context, id string, endAt time.Time) error
	nextID             int
}

func newMockRentalRepository() *mockRentalRepository {
	return &mockRentalRepository{rentals: make(map[string]*model.Rental)}
}

func (m *mockRentalRepository) Create(ctx context.Context, rental *model.Rental) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, rental)
	}
	for _, existing := range m.rentals {
		if existing.BikeID == rental.BikeID && existing.Open() {
			return rentalserrors.ErrBikeInUse
		}
	}
	m.nextID++
	rental.ID = "rental-" + strconv.Itoa(m.nextID)
	rental.CreatedAt = time.Now().UTC()
	copied := *rental
	m.rentals[rental.ID] = &copied
	return nil
}

func (m *mockRentalRepository) FindOpenByBike(ctx context.Context, bikeID string) (*model.Rental, error) {
	if m.findOpenByBikeFunc != nil {
		return m.findOpenByBikeFunc(ctx, bikeID)
	}
	for _, rental := range m.rentals {
		if rental.BikeID == bikeID && rental.Open() {
			copied := *rental
			return &copied, nil
		}
	}
	return nil, rentalserrors.ErrNoOpenRental
}

func (m *mockRentalRepository) FindOpen(ctx context.Context) ([]*model.Rental, error) {
	var open []*model.Rental
	for _, rental := range m.rentals {
		if rental.Open() {
			copied := *rental
			open = append(open, &copied)
		}
	}
	return open, nil
}

func (m *mockRentalRepository) Close(ctx context.Context, id string, endAt time.Time) error {
	if m.closeFunc != nil {
		return m.closeFunc(ctx, id, endAt)
	}
	rental, ok := m.rentals[id]
	if !ok || !rental.Open() {
		return rentalserrors.ErrAlreadyClosed
	}
	closed := endAt
	rental.EndAt = &closed
	return nil
}

func (m *mockRentalRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

func (m *mockRentalRepository) ExecuteWithRetry(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

type mockBikeRepository struct {
	bikes map[string]*model.Bike
}

func newMockBikeRepository(ids ...string) *mockBikeRepository {
	bikes := make(map[string]*model.Bike)
	for _, id := range ids {
		bikes[id] = &model.Bike{ID: id, Name: id}
	}
	return &mockBikeRepository{bikes: bikes}
}

func (m *mockBikeRepository) FindByID(ctx context.Context, id string) (*model.Bike, error) {
	bike, ok := m.bikes[id]
	if !ok {
		return nil, bikeserrors.ErrNotFound
	}
	return bike, nil
}

func (m *mockBikeRepository) FindAll(ctx context.Context) ([]*model.Bike, error) {
	var bikes []*model.Bike
	for _, bike := range m.bikes {
		bikes = append(bikes, bike)
	}
	return bikes, nil
}

// In-memory billing store for tests that need the real ledger behind
// the service instead of call recording.
type mockBillingRepository struct {
	records map[string]*model.BillingRecord
}

func newMockBillingRepository() *mockBillingRepository {
	return &mockBillingRepository{records: make(map[string]*model.BillingRecord)}
}

func (m *mockBillingRepository) Get(ctx context.Context, yearMonth, residentKey string) (*model.BillingRecord, error) {
	record, ok := m.records[model.BillingRecordID(yearMonth, residentKey)]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (m *mockBillingRepository) Put(ctx context.Context, record *model.BillingRecord) error {
	copied := *record
	m.records[record.ID] = &copied
	return nil
}

func (m *mockBillingRepository) ListByMonth(ctx context.Context, yearMonth string) ([]*model.BillingRecord, error) {
	var records []*model.BillingRecord
	for _, record := range m.records {
		if record.YearMonth == yearMonth {
			copied := *record
			records = append(records, &copied)
		}
	}
	return records, nil
}

func (m *mockBillingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

func (m *mockBillingRepository) ExecuteWithRetry(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

// jst builds the UTC instant for a local wall-clock time at +9:00.
func jst(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC).Add(-daysplit.Offset)
}

type rentalFixture struct {
	service     *rentalService
	rentalRepo  *mockRentalRepository
	usageRepo   *mockDailyUsageRepository
	ledger      *mockBillingLedger
	accumulator UsageAccumulator
}

func newRentalFixture(t *testing.T, now time.Time, bikeIDs ...string) *rentalFixture {
	t.Helper()
	cfg := testConfig()
	rentalRepo := newMockRentalRepository()
	usageRepo := newMockDailyUsageRepository()
	ledger := &mockBillingLedger{}
	accumulator := NewUsageAccumulator(usageRepo, ledger, cfg)

	svc := NewRentalService(
		rentalRepo,
		newMockBikeRepository(bikeIDs...),
		accumulator,
		ledger,
		validator.NewRentalValidator(cfg.Log),
		nil,
		cfg,
	).(*rentalService)
	svc.now = func() time.Time { return now }

	return &rentalFixture{
		service:     svc,
		rentalRepo:  rentalRepo,
		usageRepo:   usageRepo,
		ledger:      ledger,
		accumulator: accumulator,
	}
}

func TestStart_Success(t *testing.T) {
	now := jst(2024, time.January, 10, 9, 0)
	f := newRentalFixture(t, now, "bike-1")

	rental, err := f.service.Start(context.Background(), &model.RentalRequest{
		Action:      model.ActionStart,
		BikeID:      " bike-1 ",
		ResidentKey: "A-3-E-山田 太郎",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rental.ID == "" {
		t.Error("expected rental ID to be assigned")
	}
	if rental.BikeID != "bike-1" {
		t.Errorf("expected bike ID to be trimmed, got %q", rental.BikeID)
	}
	if !rental.StartAt.Equal(now) {
		t.Errorf("expected start at %s, got %s", now, rental.StartAt)
	}
	if !rental.Open() {
		t.Error("new rental must be open")
	}
}

func TestStart_UnknownBike(t *testing.T) {
	f := newRentalFixture(t, jst(2024, time.January, 10, 9, 0), "bike-1")

	_, err := f.service.Start(context.Background(), &model.RentalRequest{
		Action:      model.ActionStart,
		BikeID:      "bike-9",
		ResidentKey: "A-3-E-山田",
	})
	if err == nil {
		t.Fatal("expected error for unknown bike")
	}
	if code := apperrors.AsAppError(err).Code; code != apperrors.CodeNotFound {
		t.Errorf("expected %s, got %s", apperrors.CodeNotFound, code)
	}
}

func TestStart_BikeAlreadyRented(t *testing.T) {
	f := newRentalFixture(t, jst(2024, time.January, 10, 9, 0), "bike-1")

	req := &model.RentalRequest{Action: model.ActionStart, BikeID: "bike-1", ResidentKey: "A-3-E-山田"}
	if _, err := f.service.Start(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := f.service.Start(context.Background(), &model.RentalRequest{
		Action:      model.ActionStart,
		BikeID:      "bike-1",
		ResidentKey: "B-5-W-佐藤",
	})
	if err == nil {
		t.Fatal("expected conflict for second checkout of same bike")
	}
	if code := apperrors.AsAppError(err).Code; code != apperrors.CodeConflict {
		t.Errorf("expected %s, got %s", apperrors.CodeConflict, code)
	}
}

func TestStart_MissingResidentKey(t *testing.T) {
	f := newRentalFixture(t, jst(2024, time.January, 10, 9, 0), "bike-1")

	_, err := f.service.Start(context.Background(), &model.RentalRequest{
		Action: model.ActionStart,
		BikeID: "bike-1",
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if code := apperrors.AsAppError(err).Code; code != apperrors.CodeValidation {
		t.Errorf("expected %s, got %s", apperrors.CodeValidation, code)
	}
}

func TestEnd_NoOpenRental(t *testing.T) {
	f := newRentalFixture(t, jst(2024, time.January, 10, 9, 0), "bike-1")

	_, err := f.service.End(context.Background(), &model.RentalRequest{
		Action: model.ActionEnd,
		BikeID: "bike-1",
	})
	if err == nil {
		t.Fatal("expected error when no rental is open")
	}
	if code := apperrors.AsAppError(err).Code; code != apperrors.CodeNotFound {
		t.Errorf("expected %s, got %s", apperrors.CodeNotFound, code)
	}
}

func TestEnd_SimpleReturn(t *testing.T) {
	start := jst(2024, time.January, 10, 9, 0)
	end := jst(2024, time.January, 10, 10, 30)
	f := newRentalFixture(t, start, "bike-1")

	if _, err := f.service.Start(context.Background(), &model.RentalRequest{
		Action: model.ActionStart, BikeID: "bike-1", ResidentKey: "A-3-E-山田",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f.service.now = func() time.Time { return end }
	result, err := f.service.End(context.Background(), &model.RentalRequest{
		Action: model.ActionEnd, BikeID: "bike-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.TotalMinutes != 90 {
		t.Errorf("expected 90 minutes, got %d", result.TotalMinutes)
	}
	if result.OverageCharged != 0 {
		t.Errorf("expected no overage, got %d", result.OverageCharged)
	}
	if result.Rental.EndAt == nil || !result.Rental.EndAt.Equal(end) {
		t.Errorf("expected rental closed at %s, got %v", end, result.Rental.EndAt)
	}

	if len(f.ledger.baseFees) != 1 {
		t.Fatalf("expected one base fee call, got %d", len(f.ledger.baseFees))
	}
	fee := f.ledger.baseFees[0]
	if fee.yearMonth != "202401" || fee.half != daysplit.FirstHalf {
		t.Errorf("unexpected base fee call: %+v", fee)
	}
}

func TestEnd_MidnightCrossingChargesOverage(t *testing.T) {
	start := jst(2024, time.January, 10, 23, 0)
	end := jst(2024, time.January, 11, 1, 30)
	f := newRentalFixture(t, start, "bike-1")

	if _, err := f.service.Start(context.Background(), &model.RentalRequest{
		Action: model.ActionStart, BikeID: "bike-1", ResidentKey: "A-3-E-山田",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The resident has already ridden 450 minutes on the 10th; the
	// 60-minute slice before midnight crosses the 480 threshold.
	f.usageRepo.usages["A-3-E-山田:2024-01-10"] = &model.DailyUsage{
		ID:                   "A-3-E-山田:2024-01-10",
		ResidentKey:          "A-3-E-山田",
		Date:                 "2024-01-10",
		TotalDurationMinutes: 450,
	}

	f.service.now = func() time.Time { return end }
	result, err := f.service.End(context.Background(), &model.RentalRequest{
		Action: model.ActionEnd, BikeID: "bike-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.TotalMinutes != 150 {
		t.Errorf("expected 150 minutes, got %d", result.TotalMinutes)
	}
	if result.OverageCharged != 200 {
		t.Errorf("expected 200 overage, got %d", result.OverageCharged)
	}

	day1 := f.usageRepo.usages["A-3-E-山田:2024-01-10"]
	if day1.TotalDurationMinutes != 510 || !day1.OverageCharged {
		t.Errorf("unexpected day-1 usage: %+v", day1)
	}
	day2 := f.usageRepo.usages["A-3-E-山田:2024-01-11"]
	if day2 == nil || day2.TotalDurationMinutes != 90 || day2.OverageCharged {
		t.Errorf("unexpected day-2 usage: %+v", day2)
	}

	if len(f.ledger.overages) != 1 {
		t.Fatalf("expected one overage ledger call, got %d", len(f.ledger.overages))
	}
	if call := f.ledger.overages[0]; call.yearMonth != "202401" || call.amount != 200 {
		t.Errorf("unexpected overage call: %+v", call)
	}

	// Base fee follows the half-month of the return date (the 11th).
	if len(f.ledger.baseFees) != 1 || f.ledger.baseFees[0].half != daysplit.FirstHalf {
		t.Errorf("unexpected base fee calls: %+v", f.ledger.baseFees)
	}
}

func TestEnd_SecondHalfBaseFee(t *testing.T) {
	start := jst(2024, time.January, 20, 9, 0)
	end := jst(2024, time.January, 20, 9, 30)
	f := newRentalFixture(t, start, "bike-1")

	if _, err := f.service.Start(context.Background(), &model.RentalRequest{
		Action: model.ActionStart, BikeID: "bike-1", ResidentKey: "A-3-E-山田",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f.service.now = func() time.Time { return end }
	if _, err := f.service.End(context.Background(), &model.RentalRequest{
		Action: model.ActionEnd, BikeID: "bike-1",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.ledger.baseFees) != 1 || f.ledger.baseFees[0].half != daysplit.SecondHalf {
		t.Errorf("expected second-half base fee, got %+v", f.ledger.baseFees)
	}
}

func TestEnd_AlreadyClosedConflict(t *testing.T) {
	start := jst(2024, time.January, 10, 9, 0)
	f := newRentalFixture(t, start, "bike-1")

	if _, err := f.service.Start(context.Background(), &model.RentalRequest{
		Action: model.ActionStart, BikeID: "bike-1", ResidentKey: "A-3-E-山田",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A concurrent return wins between FindOpenByBike and Close.
	f.rentalRepo.closeFunc = func(ctx context.Context, id string, endAt time.Time) error {
		return rentalserrors.ErrAlreadyClosed
	}

	f.service.now = func() time.Time { return start.Add(30 * time.Minute) }
	_, err := f.service.End(context.Background(), &model.RentalRequest{
		Action: model.ActionEnd, BikeID: "bike-1",
	})
	if err == nil {
		t.Fatal("expected conflict")
	}
	if code := apperrors.AsAppError(err).Code; code != apperrors.CodeConflict {
		t.Errorf("expected %s, got %s", apperrors.CodeConflict, code)
	}
}

// A return that fails after its billing writes but before the close
// leaves the rental open; running the whole return again must settle
// cleanly without charging anything twice.
func TestEnd_RetryAfterCloseFailureSettlesOnce(t *testing.T) {
	start := jst(2024, time.January, 10, 9, 0)
	end := jst(2024, time.January, 10, 18, 0) // 540 minutes, over the daily threshold

	cfg := testConfig()
	rentalRepo := newMockRentalRepository()
	usageRepo := newMockDailyUsageRepository()
	billingRepo := newMockBillingRepository()
	ledger := billingservice.NewBillingLedger(billingRepo, cfg)
	accumulator := NewUsageAccumulator(usageRepo, ledger, cfg)

	svc := NewRentalService(
		rentalRepo,
		newMockBikeRepository("bike-1"),
		accumulator,
		ledger,
		validator.NewRentalValidator(cfg.Log),
		nil,
		cfg,
	).(*rentalService)
	svc.now = func() time.Time { return start }

	if _, err := svc.Start(context.Background(), &model.RentalRequest{
		Action: model.ActionStart, BikeID: "bike-1", ResidentKey: "A-3-E-山田",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	closeAttempts := 0
	rentalRepo.closeFunc = func(ctx context.Context, id string, endAt time.Time) error {
		closeAttempts++
		if closeAttempts == 1 {
			return errors.New("connection reset by peer")
		}
		closed := endAt
		rentalRepo.rentals[id].EndAt = &closed
		return nil
	}

	svc.now = func() time.Time { return end }
	endReq := &model.RentalRequest{Action: model.ActionEnd, BikeID: "bike-1"}

	if _, err := svc.End(context.Background(), endReq); err == nil {
		t.Fatal("expected first return attempt to fail at close")
	}
	open, err := rentalRepo.FindOpenByBike(context.Background(), "bike-1")
	if err != nil || open == nil {
		t.Fatalf("rental must stay open after failed close: %v", err)
	}

	result, err := svc.End(context.Background(), endReq)
	if err != nil {
		t.Fatalf("retried return must succeed: %v", err)
	}
	if result.Rental.EndAt == nil || !result.Rental.EndAt.Equal(end) {
		t.Errorf("expected rental closed at %s, got %v", end, result.Rental.EndAt)
	}
	if result.OverageCharged != 0 {
		t.Errorf("latched day must not charge on replay, got %d", result.OverageCharged)
	}

	record, err := billingRepo.Get(context.Background(), "202401", "A-3-E-山田")
	if err != nil || record == nil {
		t.Fatalf("expected a billing record: %v", err)
	}
	if record.OverageTotal != 200 {
		t.Errorf("expected a single 200 overage across both attempts, got %d", record.OverageTotal)
	}
	if record.BaseFirstHalf != 250 || record.BaseSecondHalf != 0 {
		t.Errorf("expected one first-half base fee, got %d/%d", record.BaseFirstHalf, record.BaseSecondHalf)
	}
	if record.Total != 450 {
		t.Errorf("expected total 450, got %d", record.Total)
	}

	// The raw minute counter double-counts the replayed segment; the
	// charges do not.
	usage := usageRepo.usages["A-3-E-山田:2024-01-10"]
	if usage == nil || usage.TotalDurationMinutes != 1080 {
		t.Errorf("unexpected usage counter: %+v", usage)
	}
	if usage != nil && !usage.OverageCharged {
		t.Error("expected overage latch to stay set")
	}
}

func TestEnd_EndBeforeStartIsValidationError(t *testing.T) {
	start := jst(2024, time.January, 10, 9, 0)
	f := newRentalFixture(t, start, "bike-1")

	if _, err := f.service.Start(context.Background(), &model.RentalRequest{
		Action: model.ActionStart, BikeID: "bike-1", ResidentKey: "A-3-E-山田",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A skewed clock hands End an instant before the rental started.
	f.service.now = func() time.Time { return start.Add(-time.Hour) }
	_, err := f.service.End(context.Background(), &model.RentalRequest{
		Action: model.ActionEnd, BikeID: "bike-1",
	})
	if err == nil {
		t.Fatal("expected error for inverted interval")
	}
	if code := apperrors.AsAppError(err).Code; code != apperrors.CodeValidation {
		t.Errorf("expected %s, got %s", apperrors.CodeValidation, code)
	}
}

func TestUsage_ReturnsDailyCounters(t *testing.T) {
	start := jst(2024, time.January, 10, 9, 0)
	end := jst(2024, time.January, 10, 10, 30)
	f := newRentalFixture(t, start, "bike-1")

	if _, err := f.service.Start(context.Background(), &model.RentalRequest{
		Action: model.ActionStart, BikeID: "bike-1", ResidentKey: "A-3-E-山田",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.service.now = func() time.Time { return end }
	if _, err := f.service.End(context.Background(), &model.RentalRequest{
		Action: model.ActionEnd, BikeID: "bike-1",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	usages, err := f.service.Usage(context.Background(), " A-3-E-山田 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(usages) != 1 {
		t.Fatalf("expected 1 usage day, got %d", len(usages))
	}
	if usages[0].TotalDurationMinutes != 90 {
		t.Errorf("expected 90 minutes, got %d", usages[0].TotalDurationMinutes)
	}
}

func TestUsage_RequiresResidentKey(t *testing.T) {
	f := newRentalFixture(t, jst(2024, time.January, 10, 9, 0), "bike-1")

	_, err := f.service.Usage(context.Background(), "   ")
	if err == nil {
		t.Fatal("expected error for blank resident key")
	}
	if code := apperrors.AsAppError(err).Code; code != apperrors.CodeInvalidInput {
		t.Errorf("expected %s, got %s", apperrors.CodeInvalidInput, code)
	}
}

func TestCurrent_ListsOpenRentals(t *testing.T) {
	f := newRentalFixture(t, jst(2024, time.January, 10, 9, 0), "bike-1", "bike-2")

	for _, req := range []*model.RentalRequest{
		{Action: model.ActionStart, BikeID: "bike-1", ResidentKey: "A-3-E-山田"},
		{Action: model.ActionStart, BikeID: "bike-2", ResidentKey: "B-5-W-佐藤"},
	} {
		if _, err := f.service.Start(context.Background(), req); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	rentals, err := f.service.Current(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rentals) != 2 {
		t.Errorf("expected 2 open rentals, got %d", len(rentals))
	}
}
