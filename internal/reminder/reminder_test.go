package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"spesewa/internal/messaging"
	"spesewa/internal/messaging/logsender"
)

type fakeUsers struct {
	users []string
	err   error
}

func (f fakeUsers) ListUsers(context.Context) ([]string, error) { return f.users, f.err }

func TestSendAll(t *testing.T) {
	sender := logsender.New(nil)
	sender.FailFor("+3")
	r := New(sender, []string{"+1", "+3"}, fakeUsers{users: []string{"+2", "+1"}}, nil)

	res := r.SendAll(context.Background())
	if res.Sent != 2 || res.Failed != 1 {
		t.Fatalf("result = %+v, want 2 sent 1 failed", res)
	}

	sent := sender.Sent()
	if len(sent) != 2 || sent[0].To != "+1" || sent[1].To != "+2" {
		t.Fatalf("sent = %+v", sent)
	}
	if sent[0].Text != messaging.ReminderText() {
		t.Errorf("unexpected text %q", sent[0].Text)
	}
}

func TestSendAllListUsersError(t *testing.T) {
	sender := logsender.New(nil)
	r := New(sender, []string{"+1"}, fakeUsers{err: errors.New("sheets down")}, nil)

	if res := r.SendAll(context.Background()); res.Sent != 1 {
		t.Fatalf("result = %+v", res)
	}
}

func TestSchedulerNext(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Skip("tzdata not available")
	}
	s, err := NewScheduler("0 21 * * *", rome, New(logsender.New(nil), nil, nil, nil), nil)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	from := time.Date(2024, 6, 1, 10, 0, 0, 0, rome)
	want := time.Date(2024, 6, 1, 21, 0, 0, 0, rome)
	if got := s.Next(from); !got.Equal(want) {
		t.Errorf("Next = %v, want %v", got, want)
	}
}

func TestNewSchedulerInvalid(t *testing.T) {
	if _, err := NewScheduler("not a cron", time.UTC, New(logsender.New(nil), nil, nil, nil), nil); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestSchedulerRunStops(t *testing.T) {
	s, err := NewScheduler("0 21 * * *", time.UTC, New(logsender.New(nil), nil, nil, nil), nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
