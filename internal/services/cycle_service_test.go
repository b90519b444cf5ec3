package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/terraincognita07/flowcast/internal/events"
	"github.com/terraincognita07/flowcast/internal/models"
)

type stubCycleStore struct {
	mu      sync.Mutex
	records []models.CycleRecord
	nextID  int
	// inChain detects overlapping chain transactions for one store.
	inChain bool
	overlap bool
}

func (store *stubCycleStore) sorted(userID string) []models.CycleRecord {
	result := make([]models.CycleRecord, 0, len(store.records))
	for _, record := range store.records {
		if record.UserID == userID {
			result = append(result, record)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].PeriodStartDate.After(result[j].PeriodStartDate)
	})
	return result
}

func (store *stubCycleStore) ListRecentWithCycleLength(_ context.Context, userID string, limit int) ([]models.CycleRecord, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	result := make([]models.CycleRecord, 0)
	for _, record := range store.sorted(userID) {
		if record.CycleLength != nil && len(result) < limit {
			result = append(result, record)
		}
	}
	return result, nil
}

func (store *stubCycleStore) ListRecent(_ context.Context, userID string, limit int) ([]models.CycleRecord, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	records := store.sorted(userID)
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (store *stubCycleStore) ListOverlapping(_ context.Context, userID string, from time.Time, to time.Time) ([]models.CycleRecord, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	result := make([]models.CycleRecord, 0)
	for _, record := range store.sorted(userID) {
		if !record.PeriodStartDate.After(to) && !PeriodEndOrDefault(record).Before(from) {
			result = append(result, record)
		}
	}
	return result, nil
}

func (store *stubCycleStore) FindLatest(_ context.Context, userID string) (models.CycleRecord, bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	records := store.sorted(userID)
	if len(records) == 0 {
		return models.CycleRecord{}, false, nil
	}
	return records[0], true, nil
}

func (store *stubCycleStore) FindByIDForUser(_ context.Context, userID string, recordID string) (models.CycleRecord, bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.findByID(userID, recordID)
}

func (store *stubCycleStore) findByID(userID string, recordID string) (models.CycleRecord, bool, error) {
	for _, record := range store.records {
		if record.ID == recordID && record.UserID == userID {
			return record, true, nil
		}
	}
	return models.CycleRecord{}, false, nil
}

func (store *stubCycleStore) CountByUser(_ context.Context, userID string) (int64, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	return int64(len(store.sorted(userID))), nil
}

func (store *stubCycleStore) UpdateDetails(_ context.Context, userID string, recordID string, updates map[string]any) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	for index := range store.records {
		record := &store.records[index]
		if record.ID != recordID || record.UserID != userID {
			continue
		}
		if value, ok := updates["period_end_date"]; ok {
			endDate := value.(time.Time)
			record.PeriodEndDate = &endDate
		}
		if value, ok := updates["flow_intensity"]; ok {
			if value == nil {
				record.FlowIntensity = nil
			} else {
				flow := value.(string)
				record.FlowIntensity = &flow
			}
		}
		if value, ok := updates["notes"]; ok {
			record.Notes = value.(string)
		}
	}
	return nil
}

func (store *stubCycleStore) WithinChain(_ context.Context, userID string, fn func(chain CycleChain) error) error {
	store.mu.Lock()
	if store.inChain {
		store.overlap = true
	}
	store.inChain = true
	snapshot := append([]models.CycleRecord(nil), store.records...)
	store.mu.Unlock()

	// Yield so overlapping callers would be observed.
	time.Sleep(time.Millisecond)

	err := fn(&stubChain{store: store, userID: userID})

	store.mu.Lock()
	defer store.mu.Unlock()
	store.inChain = false
	if err != nil {
		store.records = snapshot
	}
	return err
}

type stubChain struct {
	store  *stubCycleStore
	userID string
}

func (chain *stubChain) FindByID(recordID string) (models.CycleRecord, bool, error) {
	chain.store.mu.Lock()
	defer chain.store.mu.Unlock()
	return chain.store.findByID(chain.userID, recordID)
}

func (chain *stubChain) ExistsWithStart(start time.Time) (bool, error) {
	chain.store.mu.Lock()
	defer chain.store.mu.Unlock()
	for _, record := range chain.store.sorted(chain.userID) {
		if record.PeriodStartDate.Equal(start) {
			return true, nil
		}
	}
	return false, nil
}

func (chain *stubChain) FindPreceding(start time.Time) (models.CycleRecord, bool, error) {
	chain.store.mu.Lock()
	defer chain.store.mu.Unlock()
	for _, record := range chain.store.sorted(chain.userID) {
		if record.PeriodStartDate.Before(start) {
			return record, true, nil
		}
	}
	return models.CycleRecord{}, false, nil
}

func (chain *stubChain) FindFollowing(start time.Time) (models.CycleRecord, bool, error) {
	chain.store.mu.Lock()
	defer chain.store.mu.Unlock()
	records := chain.store.sorted(chain.userID)
	for index := len(records) - 1; index >= 0; index-- {
		if records[index].PeriodStartDate.After(start) {
			return records[index], true, nil
		}
	}
	return models.CycleRecord{}, false, nil
}

func (chain *stubChain) SetCycleLength(recordID string, length *int) error {
	chain.store.mu.Lock()
	defer chain.store.mu.Unlock()
	for index := range chain.store.records {
		if chain.store.records[index].ID == recordID {
			chain.store.records[index].CycleLength = length
			return nil
		}
	}
	return fmt.Errorf("record %s missing", recordID)
}

func (chain *stubChain) Create(record *models.CycleRecord) error {
	chain.store.mu.Lock()
	defer chain.store.mu.Unlock()
	chain.store.nextID++
	record.ID = fmt.Sprintf("rec-%d", chain.store.nextID)
	chain.store.records = append(chain.store.records, *record)
	return nil
}

func (chain *stubChain) Delete(recordID string) error {
	chain.store.mu.Lock()
	defer chain.store.mu.Unlock()
	for index, record := range chain.store.records {
		if record.ID == recordID {
			chain.store.records = append(chain.store.records[:index], chain.store.records[index+1:]...)
			return nil
		}
	}
	return fmt.Errorf("record %s missing", recordID)
}

type stubCycleUsers struct {
	users map[string]models.User
}

func (stub *stubCycleUsers) FindByID(_ context.Context, userID string) (models.User, error) {
	user, ok := stub.users[userID]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return user, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (publisher *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	publisher.events = append(publisher.events, event)
	return publisher.err
}

func (publisher *recordingPublisher) Close() error { return nil }

func (publisher *recordingPublisher) types() []string {
	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	types := make([]string, 0, len(publisher.events))
	for _, event := range publisher.events {
		types = append(types, event.Type)
	}
	return types
}

func newTestCycleService(t *testing.T, avgCycleLength int) (*CycleService, *stubCycleStore, *recordingPublisher) {
	t.Helper()
	store := &stubCycleStore{}
	users := &stubCycleUsers{users: map[string]models.User{
		"user-1": {ID: "user-1", AvgCycleLength: avgCycleLength, OnboardingCompleted: true},
		"user-2": {ID: "user-2", AvgCycleLength: avgCycleLength, OnboardingCompleted: true},
	}}
	publisher := &recordingPublisher{}
	return NewCycleService(store, users, publisher, nil), store, publisher
}

func logPeriods(t *testing.T, service *CycleService, userID string, starts ...string) []LoggedPeriod {
	t.Helper()
	today := mustParseDay(t, "2026-01-01")
	results := make([]LoggedPeriod, 0, len(starts))
	for _, start := range starts {
		logged, err := service.LogPeriod(context.Background(), userID, PeriodInput{StartDate: mustParseDay(t, start)}, today)
		if err != nil {
			t.Fatalf("log period %s: %v", start, err)
		}
		results = append(results, logged)
	}
	return results
}

func cycleLengthsByStart(t *testing.T, store *stubCycleStore, userID string) map[string]*int {
	t.Helper()
	store.mu.Lock()
	defer store.mu.Unlock()
	result := make(map[string]*int)
	for _, record := range store.sorted(userID) {
		result[FormatCalendarDate(record.PeriodStartDate)] = record.CycleLength
	}
	return result
}

func assertCycleLength(t *testing.T, lengths map[string]*int, start string, want *int) {
	t.Helper()
	got, ok := lengths[start]
	if !ok {
		t.Fatalf("record %s missing", start)
	}
	if want == nil {
		if got != nil {
			t.Fatalf("record %s: expected open cycle, got %d", start, *got)
		}
		return
	}
	if got == nil || *got != *want {
		t.Fatalf("record %s: expected cycle length %d, got %v", start, *want, got)
	}
}

func TestLogPeriodFirstRecordFallsBackToUserDefault(t *testing.T) {
	t.Parallel()

	service, _, publisher := newTestCycleService(t, 30)
	logged := logPeriods(t, service, "user-1", "2025-01-01")[0]

	if logged.Record.CycleLength != nil {
		t.Fatalf("expected newest record to stay open, got %d", *logged.Record.CycleLength)
	}
	if logged.Forecast.Prediction.AvgCycleLength != 30 || logged.Forecast.Prediction.Confidence != ConfidenceLow {
		t.Fatalf("expected fallback prediction 30/low, got %+v", logged.Forecast.Prediction)
	}
	if got := FormatCalendarDate(logged.Forecast.Forward.NextPeriodDate); got != "2025-01-31" {
		t.Fatalf("expected next period 2025-01-31, got %s", got)
	}
	if types := publisher.types(); len(types) != 1 || types[0] != events.TypePeriodLogged {
		t.Fatalf("expected one period.logged event, got %v", types)
	}
}

func TestLogPeriodBackfillsPreviousRecord(t *testing.T) {
	t.Parallel()

	service, store, _ := newTestCycleService(t, 28)
	logged := logPeriods(t, service, "user-1", "2025-01-01", "2025-01-29")

	lengths := cycleLengthsByStart(t, store, "user-1")
	assertCycleLength(t, lengths, "2025-01-01", intPtr(28))
	assertCycleLength(t, lengths, "2025-01-29", nil)

	forecast := logged[1].Forecast
	if forecast.Prediction.AvgCycleLength != 28 || forecast.Prediction.Confidence != ConfidenceLow {
		t.Fatalf("expected 28/low with a single cycle, got %+v", forecast.Prediction)
	}
	if got := FormatCalendarDate(forecast.Forward.NextPeriodDate); got != "2025-02-26" {
		t.Fatalf("expected next period 2025-02-26, got %s", got)
	}
}

func TestLogPeriodRegularHistoryIsHighConfidence(t *testing.T) {
	t.Parallel()

	service, _, _ := newTestCycleService(t, 30)
	logged := logPeriods(t, service, "user-1", "2025-01-01", "2025-01-28", "2025-02-26", "2025-03-26")

	prediction := logged[3].Forecast.Prediction
	if prediction.AvgCycleLength != 28 || prediction.Confidence != ConfidenceHigh {
		t.Fatalf("expected 28/high, got %+v", prediction)
	}
}

func TestLogPeriodBetweenExistingRecordsKeepsChainConsistent(t *testing.T) {
	t.Parallel()

	service, store, _ := newTestCycleService(t, 28)
	logPeriods(t, service, "user-1", "2025-01-01", "2025-03-01", "2025-01-30")

	lengths := cycleLengthsByStart(t, store, "user-1")
	assertCycleLength(t, lengths, "2025-01-01", intPtr(29))
	assertCycleLength(t, lengths, "2025-01-30", intPtr(30))
	assertCycleLength(t, lengths, "2025-03-01", nil)
}

func TestLogPeriodRejectsDuplicateStart(t *testing.T) {
	t.Parallel()

	service, store, _ := newTestCycleService(t, 28)
	logPeriods(t, service, "user-1", "2025-01-01")

	_, err := service.LogPeriod(context.Background(), "user-1", PeriodInput{StartDate: mustParseDay(t, "2025-01-01")}, mustParseDay(t, "2025-02-01"))
	if !errors.Is(err, ErrPeriodAlreadyLogged) {
		t.Fatalf("expected ErrPeriodAlreadyLogged, got %v", err)
	}
	if count, _ := store.CountByUser(context.Background(), "user-1"); count != 1 {
		t.Fatalf("expected one record, got %d", count)
	}

	// Same date for another user is fine.
	logPeriods(t, service, "user-2", "2025-01-01")
}

func TestLogPeriodRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	service, store, _ := newTestCycleService(t, 28)
	_, err := service.LogPeriod(context.Background(), "user-1", PeriodInput{StartDate: mustParseDay(t, "2025-05-02")}, mustParseDay(t, "2025-05-01"))

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) || validationErr.Field != "period_start_date" {
		t.Fatalf("expected period_start_date validation error, got %v", err)
	}
	if count, _ := store.CountByUser(context.Background(), "user-1"); count != 0 {
		t.Fatalf("expected nothing stored, got %d", count)
	}
}

func TestLogPeriodConcurrentInsertsAreSerialized(t *testing.T) {
	t.Parallel()

	service, store, _ := newTestCycleService(t, 28)
	starts := []string{"2025-01-01", "2025-01-29", "2025-02-26", "2025-03-26", "2025-04-23", "2025-05-21"}

	var wg sync.WaitGroup
	for _, start := range starts {
		wg.Add(1)
		go func(start string) {
			defer wg.Done()
			_, err := service.LogPeriod(context.Background(), "user-1", PeriodInput{StartDate: mustParseDay(t, start)}, mustParseDay(t, "2026-01-01"))
			if err != nil {
				t.Errorf("log period %s: %v", start, err)
			}
		}(start)
	}
	wg.Wait()

	if store.overlap {
		t.Fatal("expected chain mutations of one user to never overlap")
	}
	lengths := cycleLengthsByStart(t, store, "user-1")
	for _, start := range starts[:len(starts)-1] {
		assertCycleLength(t, lengths, start, intPtr(28))
	}
	assertCycleLength(t, lengths, starts[len(starts)-1], nil)
}

func TestLogPeriodReportsBusyChain(t *testing.T) {
	t.Parallel()

	service, _, _ := newTestCycleService(t, 28)
	service.lockWait = 10 * time.Millisecond

	release, err := service.locks.acquire(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	_, err = service.LogPeriod(context.Background(), "user-1", PeriodInput{StartDate: mustParseDay(t, "2025-01-01")}, mustParseDay(t, "2025-02-01"))
	if !errors.Is(err, ErrCycleChainBusy) {
		t.Fatalf("expected ErrCycleChainBusy, got %v", err)
	}
}

func TestLogPeriodCancelledWaitIsRetryable(t *testing.T) {
	t.Parallel()

	service, _, _ := newTestCycleService(t, 28)
	release, err := service.locks.acquire(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = service.LogPeriod(ctx, "user-1", PeriodInput{StartDate: mustParseDay(t, "2025-01-01")}, mustParseDay(t, "2025-02-01"))
	if !errors.Is(err, ErrCycleChainBusy) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected busy chain wrapping context.Canceled, got %v", err)
	}
}

func TestLogPeriodSurvivesPublisherFailure(t *testing.T) {
	t.Parallel()

	service, _, publisher := newTestCycleService(t, 28)
	publisher.err = errors.New("broker down")

	logPeriods(t, service, "user-1", "2025-01-01")
}

func TestDeletePeriodRelinksNeighbours(t *testing.T) {
	t.Parallel()

	service, store, publisher := newTestCycleService(t, 28)
	logged := logPeriods(t, service, "user-1", "2025-01-01", "2025-01-29", "2025-02-26")

	if err := service.DeletePeriod(context.Background(), "user-1", logged[1].Record.ID); err != nil {
		t.Fatalf("delete middle record: %v", err)
	}
	lengths := cycleLengthsByStart(t, store, "user-1")
	assertCycleLength(t, lengths, "2025-01-01", intPtr(56))

	if err := service.DeletePeriod(context.Background(), "user-1", logged[2].Record.ID); err != nil {
		t.Fatalf("delete newest record: %v", err)
	}
	lengths = cycleLengthsByStart(t, store, "user-1")
	assertCycleLength(t, lengths, "2025-01-01", nil)

	types := publisher.types()
	if types[len(types)-1] != events.TypePeriodDeleted {
		t.Fatalf("expected period.deleted event last, got %v", types)
	}
}

func TestDeletePeriodRejectsForeignRecord(t *testing.T) {
	t.Parallel()

	service, _, _ := newTestCycleService(t, 28)
	logged := logPeriods(t, service, "user-1", "2025-01-01")

	err := service.DeletePeriod(context.Background(), "user-2", logged[0].Record.ID)
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestUpdatePeriod(t *testing.T) {
	t.Parallel()

	service, _, _ := newTestCycleService(t, 28)
	logged := logPeriods(t, service, "user-1", "2025-01-01")
	recordID := logged[0].Record.ID
	today := mustParseDay(t, "2025-01-10")

	if _, err := service.UpdatePeriod(context.Background(), "user-1", recordID, PeriodUpdate{}, today); !errors.Is(err, ErrNoUpdates) {
		t.Fatalf("expected ErrNoUpdates, got %v", err)
	}
	if _, err := service.UpdatePeriod(context.Background(), "user-2", recordID, PeriodUpdate{Notes: stringPtr("x")}, today); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}

	before := mustParseDay(t, "2024-12-31")
	var validationErr *ValidationError
	if _, err := service.UpdatePeriod(context.Background(), "user-1", recordID, PeriodUpdate{EndDate: &before}, today); !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error for end before start, got %v", err)
	}

	end := mustParseDay(t, "2025-01-05")
	updated, err := service.UpdatePeriod(context.Background(), "user-1", recordID, PeriodUpdate{
		EndDate:       &end,
		FlowIntensity: stringPtr("medium"),
		Notes:         stringPtr("  lighter than usual "),
	}, today)
	if err != nil {
		t.Fatalf("update period: %v", err)
	}
	if updated.PeriodEndDate == nil || FormatCalendarDate(*updated.PeriodEndDate) != "2025-01-05" {
		t.Fatalf("expected end date 2025-01-05, got %v", updated.PeriodEndDate)
	}
	if updated.FlowIntensity == nil || *updated.FlowIntensity != models.FlowMedium {
		t.Fatalf("expected medium flow, got %v", updated.FlowIntensity)
	}
	if updated.Notes != "lighter than usual" {
		t.Fatalf("expected trimmed notes, got %q", updated.Notes)
	}
}

func TestOverview(t *testing.T) {
	t.Parallel()

	service, _, _ := newTestCycleService(t, 28)
	overview, err := service.Overview(context.Background(), "user-1", mustParseDay(t, "2025-03-05"))
	if err != nil {
		t.Fatalf("overview without data: %v", err)
	}
	if overview.HasData {
		t.Fatal("expected no data before any period is logged")
	}

	logPeriods(t, service, "user-1", "2025-01-01", "2025-01-29", "2025-02-26")
	overview, err = service.Overview(context.Background(), "user-1", mustParseDay(t, "2025-03-05"))
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if !overview.HasData || overview.Current.Day != 8 || overview.Current.Phase != PhaseFollicular {
		t.Fatalf("expected day 8 follicular, got %+v", overview.Current)
	}
	if got := FormatCalendarDate(overview.Forecast.Forward.NextPeriodDate); got != "2025-03-26" {
		t.Fatalf("expected next period 2025-03-26, got %s", got)
	}
	if got := FormatCalendarDate(overview.Forecast.Forward.OvulationDate); got != "2025-03-12" {
		t.Fatalf("expected ovulation 2025-03-12, got %s", got)
	}
}

func TestClampHistoryLimit(t *testing.T) {
	t.Parallel()

	cases := map[int]int{0: 12, -3: 12, 5: 5, 100: 100, 500: 100}
	for input, want := range cases {
		if got := ClampHistoryLimit(input); got != want {
			t.Fatalf("ClampHistoryLimit(%d) = %d, want %d", input, got, want)
		}
	}
}

func stringPtr(value string) *string {
	return &value
}
