package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"summa/internal/amqp"
	"summa/internal/core"
)

type fakeStore struct {
	mu       sync.Mutex
	nextID   int64
	expenses map[int64]core.Expense
	// failDates holds occurrence dates whose insert should fail.
	failDates map[string]bool
	listErr   error
	// missingCategory makes every category lookup fail.
	missingCategory bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		expenses:  make(map[int64]core.Expense),
		failDates: make(map[string]bool),
	}
}

func (f *fakeStore) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDates[e.CreatedAt.String()] {
		return 0, errors.New("disk I/O error")
	}
	f.nextID++
	e.ID = f.nextID
	f.expenses[e.ID] = e
	return e.ID, nil
}

func (f *fakeStore) DeleteExpense(ctx context.Context, id int64, owner string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.expenses[id]
	if !ok || e.CreatedBy != owner {
		return errors.New("not found")
	}
	delete(f.expenses, id)
	return nil
}

func (f *fakeStore) ListExpensesByCategory(ctx context.Context, categoryID int64, owner string) ([]core.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var result []core.Expense
	for _, e := range f.expenses {
		if e.CategoryID == categoryID && e.CreatedBy == owner {
			result = append(result, e)
		}
	}
	return result, nil
}

func (f *fakeStore) GetCategory(ctx context.Context, id int64, owner string) (core.Category, error) {
	if f.missingCategory {
		return core.Category{}, errors.New("not found")
	}
	return core.Category{ID: id, Name: "Fitness", CreatedBy: owner}, nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.expenses)
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []*amqp.Message
	err      error
}

func (f *fakePublisher) Publish(ctx context.Context, msg *amqp.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func validInput(pattern core.RecurrencePattern) CreateExpensesInput {
	return CreateExpensesInput{
		Name:       "Gym membership",
		Amount:     decimal.NewFromInt(40),
		CategoryID: 1,
		StartDate:  core.NewDate(2025, 3, 1),
		Pattern:    pattern,
		Owner:      "user@example.com",
	}
}

func TestCreateExpensesSingle(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	var refreshed int
	svc := NewExpenseService(store, pub, func() { refreshed++ })

	result, err := svc.CreateExpenses(context.Background(), validInput(core.RecurrenceNone))
	if err != nil {
		t.Fatalf("CreateExpenses() error = %v", err)
	}
	if result.RequestedCount != 1 || result.CreatedCount != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Message != "Created expense" {
		t.Errorf("Message = %q", result.Message)
	}
	if store.count() != 1 {
		t.Errorf("store rows = %d, want 1", store.count())
	}
	if pub.count() != 1 {
		t.Errorf("published messages = %d, want 1", pub.count())
	}
	if refreshed != 1 {
		t.Errorf("refresh calls = %d, want 1", refreshed)
	}
}

func TestCreateExpensesRecurringCounts(t *testing.T) {
	tests := []struct {
		pattern core.RecurrencePattern
		want    int
	}{
		{core.RecurrenceWeekly, 104},
		{core.RecurrenceBiweekly, 52},
		{core.RecurrenceMonthly, 24},
		{core.RecurrenceYearly, 2},
	}

	for _, tt := range tests {
		t.Run(string(tt.pattern), func(t *testing.T) {
			store := newFakeStore()
			svc := NewExpenseService(store, &fakePublisher{}, nil)

			result, err := svc.CreateExpenses(context.Background(), validInput(tt.pattern))
			if err != nil {
				t.Fatalf("CreateExpenses() error = %v", err)
			}
			if result.CreatedCount != tt.want {
				t.Errorf("CreatedCount = %d, want %d", result.CreatedCount, tt.want)
			}
			if store.count() != tt.want {
				t.Errorf("store rows = %d, want %d", store.count(), tt.want)
			}
			if !strings.Contains(result.Message, "expenses over the next 2 years") {
				t.Errorf("Message = %q", result.Message)
			}
			if !strings.Contains(result.Message, string(tt.pattern)) {
				t.Errorf("Message %q should mention the pattern", result.Message)
			}
		})
	}
}

func TestCreateExpensesPartialFailureKeepsSuccesses(t *testing.T) {
	store := newFakeStore()
	// Biweekly requests 52; make exactly one occurrence fail.
	store.failDates["03-15-2025"] = true
	var refreshed int
	svc := NewExpenseService(store, &fakePublisher{}, func() { refreshed++ })

	result, err := svc.CreateExpenses(context.Background(), validInput(core.RecurrenceBiweekly))
	if err == nil {
		t.Fatal("expected an aggregate error for the failed occurrence")
	}
	if !strings.Contains(err.Error(), "disk I/O error") {
		t.Errorf("error should carry the insert failure, got %v", err)
	}
	if result.RequestedCount != 52 || result.CreatedCount != 51 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if store.count() != 51 {
		t.Errorf("store rows = %d, want 51 (no rollback)", store.count())
	}
	if result.Message != "" {
		t.Errorf("Message should be empty on partial failure, got %q", result.Message)
	}
	if refreshed != 1 {
		t.Errorf("refresh must still run after partial failure, calls = %d", refreshed)
	}
}

func TestCreateExpensesValidation(t *testing.T) {
	svc := NewExpenseService(newFakeStore(), &fakePublisher{}, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*CreateExpensesInput)
		wantErr error
	}{
		{"empty name", func(in *CreateExpensesInput) { in.Name = "  " }, core.ErrEmptyName},
		{"zero amount", func(in *CreateExpensesInput) { in.Amount = decimal.Zero }, core.ErrInvalidAmount},
		{"negative amount", func(in *CreateExpensesInput) { in.Amount = decimal.NewFromInt(-5) }, core.ErrInvalidAmount},
		{"no category", func(in *CreateExpensesInput) { in.CategoryID = 0 }, core.ErrMissingCategory},
		{"no date", func(in *CreateExpensesInput) { in.StartDate = core.Date{} }, core.ErrMissingDate},
		{"no owner", func(in *CreateExpensesInput) { in.Owner = "" }, core.ErrMissingOwner},
		{"bad pattern", func(in *CreateExpensesInput) { in.Pattern = "quarterly" }, core.ErrInvalidPattern},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput(core.RecurrenceWeekly)
			tt.mutate(&in)
			_, err := svc.CreateExpenses(ctx, in)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateExpenses() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateExpensesUnknownCategory(t *testing.T) {
	store := newFakeStore()
	store.missingCategory = true
	svc := NewExpenseService(store, &fakePublisher{}, nil)

	_, err := svc.CreateExpenses(context.Background(), validInput(core.RecurrenceWeekly))
	if !errors.Is(err, core.ErrMissingCategory) {
		t.Fatalf("expected ErrMissingCategory, got %v", err)
	}
	if store.count() != 0 {
		t.Errorf("no rows may be inserted for an unknown category, got %d", store.count())
	}
}

func TestCreateExpensesPublisherFailureDoesNotFailRequest(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewExpenseService(store, pub, nil)

	result, err := svc.CreateExpenses(context.Background(), validInput(core.RecurrenceNone))
	if err != nil {
		t.Fatalf("CreateExpenses() error = %v, rows are saved locally", err)
	}
	if result.CreatedCount != 1 {
		t.Errorf("CreatedCount = %d, want 1", result.CreatedCount)
	}
}

func TestListCategoryExpensesPartitions(t *testing.T) {
	store := newFakeStore()
	svc := NewExpenseService(store, &fakePublisher{}, nil)
	ctx := context.Background()

	in := validInput(core.RecurrenceMonthly)
	if _, err := svc.CreateExpenses(ctx, in); err != nil {
		t.Fatalf("seed: %v", err)
	}

	parts, err := svc.ListCategoryExpenses(ctx, in.CategoryID, in.Owner)
	if err != nil {
		t.Fatalf("ListCategoryExpenses() error = %v", err)
	}
	if got := len(parts.Latest) + len(parts.Future) + len(parts.Malformed); got != 24 {
		t.Fatalf("partitions cover %d rows, want 24", got)
	}

	today := core.Today()
	for _, e := range parts.Latest {
		if !e.CreatedAt.OnOrBefore(today) {
			t.Errorf("latest contains future date %s", e.CreatedAt)
		}
	}
	for _, e := range parts.Future {
		if !e.CreatedAt.After(today) {
			t.Errorf("future contains past date %s", e.CreatedAt)
		}
	}
}

func TestDeleteExpensePublishesAndRefreshes(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	var refreshed int
	svc := NewExpenseService(store, pub, func() { refreshed++ })
	ctx := context.Background()

	in := validInput(core.RecurrenceNone)
	if _, err := svc.CreateExpenses(ctx, in); err != nil {
		t.Fatalf("seed: %v", err)
	}
	refreshed = 0
	pub.messages = nil

	if err := svc.DeleteExpense(ctx, 1, in.Owner); err != nil {
		t.Fatalf("DeleteExpense() error = %v", err)
	}
	if store.count() != 0 {
		t.Errorf("store rows = %d, want 0", store.count())
	}
	if pub.count() != 1 || pub.messages[0].Type != amqp.TypeExpenseDelete {
		t.Errorf("expected one delete message, got %+v", pub.messages)
	}
	if refreshed != 1 {
		t.Errorf("refresh calls = %d, want 1", refreshed)
	}
}
