package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"spesewa/internal/core"
	"spesewa/internal/ledger/memory"
	"spesewa/internal/messaging"
	"spesewa/internal/messaging/logsender"
)

type countingStore struct {
	*memory.Store
	mu        sync.Mutex
	reads     int
	appendErr error
}

func (c *countingStore) Append(ctx context.Context, e core.Expense) (string, error) {
	if c.appendErr != nil {
		return "", c.appendErr
	}
	return c.Store.Append(ctx, e)
}

func (c *countingStore) ReadAll(ctx context.Context, userID string) ([]core.Expense, error) {
	c.mu.Lock()
	c.reads++
	c.mu.Unlock()
	return c.Store.ReadAll(ctx, userID)
}

type fakePublisher struct {
	ids []string
	err error
}

func (p *fakePublisher) PublishExpenseSync(_ context.Context, id, _ string) error {
	p.ids = append(p.ids, id)
	return p.err
}

var fixedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestService(store *countingStore, pub SyncPublisher) (*ExpenseService, *logsender.Sender) {
	sender := logsender.New(nil)
	svc := NewExpenseService(store, sender, pub, nil)
	svc.now = func() time.Time { return fixedNow }
	return svc, sender
}

func TestHandleInbound(t *testing.T) {
	tests := []struct {
		name       string
		in         messaging.Inbound
		want       Outcome
		wantReply  string
		wantStored int
	}{
		{
			name:       "recorded",
			in:         messaging.Inbound{From: "+391", Body: "Expense: 25.50 Food & Dining Lunch at cafe"},
			want:       OutcomeRecorded,
			wantReply:  "✅ Expense recorded successfully!\nAmount: 25.50\nCategory: Food & Dining\nNote: Lunch at cafe",
			wantStored: 1,
		},
		{
			name:      "unparsed sends help",
			in:        messaging.Inbound{From: "+391", Body: "Expense: 12.00 Health"},
			want:      OutcomeUnparsed,
			wantReply: messaging.HelpText,
		},
		{
			name:      "note too long is rejected",
			in:        messaging.Inbound{From: "+391", Body: "Expense: 12 Shopping " + strings.Repeat("a", 501)},
			want:      OutcomeRejected,
			wantReply: messaging.RejectedText(core.ErrNoteTooLong),
		},
		{
			name: "status acknowledged",
			in:   messaging.Inbound{From: "+391", Status: "delivered"},
			want: OutcomeAcknowledged,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &countingStore{Store: memory.New()}
			svc, sender := newTestService(store, nil)

			got, err := svc.HandleInbound(context.Background(), tt.in)
			if err != nil {
				t.Fatalf("HandleInbound: %v", err)
			}
			if got != tt.want {
				t.Fatalf("outcome = %v, want %v", got, tt.want)
			}

			sent := sender.Sent()
			if tt.wantReply == "" {
				if len(sent) != 0 {
					t.Fatalf("unexpected reply %+v", sent)
				}
			} else if len(sent) != 1 || sent[0].Text != tt.wantReply || sent[0].To != "+391" {
				t.Fatalf("sent = %+v", sent)
			}
			if store.Len() != tt.wantStored {
				t.Fatalf("stored = %d, want %d", store.Len(), tt.wantStored)
			}
		})
	}
}

func TestHandleInboundStoresExpense(t *testing.T) {
	store := &countingStore{Store: memory.New()}
	pub := &fakePublisher{}
	svc, _ := newTestService(store, pub)

	if _, err := svc.HandleInbound(context.Background(), messaging.Inbound{From: "+391", Body: "Expense: 10 Transportation Bus fare"}); err != nil {
		t.Fatal(err)
	}
	items, _ := store.Store.ReadAll(context.Background(), "+391")
	if len(items) != 1 {
		t.Fatalf("items = %d", len(items))
	}
	e := items[0]
	if e.Amount.Cents != 1000 || e.Category != core.CategoryTransport || e.Note != "Bus fare" || !e.Date.Equal(fixedNow) || e.ID == "" {
		t.Errorf("stored expense = %+v", e)
	}
	if len(pub.ids) != 1 || pub.ids[0] != e.ID {
		t.Errorf("published = %v", pub.ids)
	}
}

func TestHandleInboundStorageFailure(t *testing.T) {
	store := &countingStore{Store: memory.New(), appendErr: errors.New("disk full")}
	svc, sender := newTestService(store, nil)

	got, err := svc.HandleInbound(context.Background(), messaging.Inbound{From: "+391", Body: "Expense: 5 Other coffee"})
	if err == nil || got != OutcomeFailed {
		t.Fatalf("outcome %v err %v", got, err)
	}
	if sent := sender.Sent(); len(sent) != 1 || sent[0].Text != messaging.FailureText {
		t.Fatalf("sent = %+v", sent)
	}
}

func TestPublishFailureIsNotFatal(t *testing.T) {
	store := &countingStore{Store: memory.New()}
	svc, _ := newTestService(store, &fakePublisher{err: errors.New("circuit open")})

	if _, err := svc.CreateExpense(context.Background(), "+391", "3.20", "health", "pharmacy", time.Time{}); err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	if store.Len() != 1 {
		t.Fatal("expense not stored")
	}
}

func TestCreateExpense(t *testing.T) {
	store := &countingStore{Store: memory.New()}
	svc, _ := newTestService(store, nil)
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	e, err := svc.CreateExpense(context.Background(), "+391", "12.5", "bills & utilities", "power", date)
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	if e.Category != core.CategoryBills || e.Amount.Cents != 1250 || !e.Date.Equal(date) {
		t.Errorf("expense = %+v", e)
	}

	invalid := []struct{ user, amount, category string }{
		{"+391", "abc", "Other"},
		{"+391", "0", "Other"},
		{"", "1", "Other"},
		{"+391", "1", "  "},
	}
	for _, in := range invalid {
		if _, err := svc.CreateExpense(context.Background(), in.user, in.amount, in.category, "", date); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("CreateExpense(%q, %q, %q) err = %v, want ErrInvalidInput", in.user, in.amount, in.category, err)
		}
	}
	if _, err := svc.CreateExpense(context.Background(), "+391", "1", "Other", strings.Repeat("x", 501), date); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("long note err = %v", err)
	}
}

func TestListExpensesUsesCache(t *testing.T) {
	store := &countingStore{Store: memory.New()}
	svc, _ := newTestService(store, nil)
	ctx := context.Background()

	for _, d := range []int{1, 10, 20} {
		date := time.Date(2024, 3, d, 9, 0, 0, 0, time.UTC)
		if _, err := svc.CreateExpense(ctx, "+391", "10", "Shopping", "x", date); err != nil {
			t.Fatal(err)
		}
	}

	items, err := svc.ListExpenses(ctx, "+391", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("filtered = %d, want 1", len(items))
	}

	sum, err := svc.Summary(ctx, "+391", time.Time{}, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Total.Cents != 3000 || sum.Count != 3 {
		t.Errorf("summary = %+v", sum)
	}
	if store.reads != 1 {
		t.Errorf("store reads = %d, want 1 (cached)", store.reads)
	}

	// A new expense invalidates the user's cached reads.
	if _, err := svc.CreateExpense(ctx, "+391", "1", "Other", "x", time.Time{}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ListExpenses(ctx, "+391", time.Time{}, time.Time{}); err != nil {
		t.Fatal(err)
	}
	if store.reads != 2 {
		t.Errorf("store reads = %d, want 2 after invalidation", store.reads)
	}

	if _, err := svc.ListExpenses(ctx, " ", time.Time{}, time.Time{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty user err = %v", err)
	}
}
