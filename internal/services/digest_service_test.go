package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-growth-backend/internal/domain"
)

func newDigestFixture(t *testing.T) (*DigestService, *gorm.DB) {
	t.Helper()
	db := newServiceDB(t)
	s := NewDigestService(db)
	s.Now = func() time.Time { return testNow }
	return s, db
}

func ids(rs []domain.Reminder) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}

func TestPendingChannelFilterAndOrder(t *testing.T) {
	s, db := newDigestFixture(t)
	ctx := context.Background()

	later := seedSvcReminder(t, db, func(r *domain.Reminder) {
		r.Title = "later"
		r.ScheduledAt = timePtr(testNow.Add(4 * time.Hour))
	})
	sooner := seedSvcReminder(t, db, func(r *domain.Reminder) {
		r.Title = "sooner"
		r.ScheduledAt = timePtr(testNow.Add(time.Hour))
	})
	unscheduled := seedSvcReminder(t, db, func(r *domain.Reminder) { r.Title = "unscheduled" })
	push := seedSvcReminder(t, db, func(r *domain.Reminder) { r.Channel = domain.ChannelPush })
	seedSvcReminder(t, db, func(r *domain.Reminder) { r.Status = domain.StatusDismissed })
	seedSvcReminder(t, db, func(r *domain.Reminder) { r.UserID = "u2" })

	all, err := s.Pending(ctx, "u1", nil)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("pending count = %d, want 4", len(all))
	}
	// Unscheduled records sort first, then by scheduled_at.
	if all[len(all)-2].ID != sooner.ID || all[len(all)-1].ID != later.ID {
		t.Fatalf("unexpected order: %v", ids(all))
	}
	if all[0].ID != unscheduled.ID && all[1].ID != unscheduled.ID {
		t.Fatalf("unscheduled not first: %v", ids(all))
	}

	ch := domain.ChannelPush
	got, err := s.Pending(ctx, "u1", &ch)
	if err != nil {
		t.Fatalf("Pending filtered: %v", err)
	}
	if len(got) != 1 || got[0].ID != push.ID {
		t.Fatalf("channel filter: %v", ids(got))
	}

	bad := domain.Channel("carrier_pigeon")
	if _, err := s.Pending(ctx, "u1", &bad); !errors.Is(err, ErrInvalidChannel) {
		t.Fatalf("invalid channel: %v", err)
	}
}

func TestPendingSnoozeVisibility(t *testing.T) {
	s, db := newDigestFixture(t)
	ctx := context.Background()

	sleeping := seedSvcReminder(t, db, func(r *domain.Reminder) {
		r.Status = domain.StatusSnoozed
		r.SnoozedUntil = timePtr(testNow.Add(time.Hour))
	})
	awake := seedSvcReminder(t, db, func(r *domain.Reminder) {
		r.Status = domain.StatusSnoozed
		r.SnoozedUntil = timePtr(testNow.Add(-time.Minute))
	})

	got, err := s.Pending(ctx, "u1", nil)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(got) != 1 || got[0].ID != awake.ID {
		t.Fatalf("snooze visibility: %v", ids(got))
	}

	// Once the wake time passes the record surfaces again, still snoozed.
	s.Now = func() time.Time { return testNow.Add(2 * time.Hour) }
	got, err = s.Pending(ctx, "u1", nil)
	if err != nil {
		t.Fatalf("Pending after wake: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected both after wake, got %v", ids(got))
	}
	for _, r := range got {
		if r.ID == sleeping.ID && r.Status != domain.StatusSnoozed {
			t.Fatalf("waking must not rewrite status: %q", r.Status)
		}
	}
}

func TestDigestSurfaces(t *testing.T) {
	s, db := newDigestFixture(t)
	ctx := context.Background()

	first := seedSvcReminder(t, db, func(r *domain.Reminder) {
		r.Title = "first"
		r.CreatedAt = testNow.Add(-2 * time.Hour)
	})
	second := seedSvcReminder(t, db, func(r *domain.Reminder) {
		r.Title = "second"
		r.CreatedAt = testNow.Add(-time.Hour)
	})
	evening := seedSvcReminder(t, db, func(r *domain.Reminder) { r.Channel = domain.ChannelEveningDigest })
	seedSvcReminder(t, db, func(r *domain.Reminder) { r.Channel = domain.ChannelPush })
	seedSvcReminder(t, db, func(r *domain.Reminder) {
		// Scheduled for later today; the digest holds it back.
		r.ScheduledAt = timePtr(testNow.Add(3 * time.Hour))
	})

	got, err := s.MorningDigest(ctx, "u1")
	if err != nil {
		t.Fatalf("MorningDigest: %v", err)
	}
	if len(got) != 2 || got[0].ID != first.ID || got[1].ID != second.ID {
		t.Fatalf("morning digest: %v", ids(got))
	}

	got, err = s.EveningDigest(ctx, "u1")
	if err != nil {
		t.Fatalf("EveningDigest: %v", err)
	}
	if len(got) != 1 || got[0].ID != evening.ID {
		t.Fatalf("evening digest: %v", ids(got))
	}
}

func TestDigestIncludesRipeScheduled(t *testing.T) {
	s, db := newDigestFixture(t)

	ripe := seedSvcReminder(t, db, func(r *domain.Reminder) {
		r.ScheduledAt = timePtr(testNow.Add(-time.Hour))
	})
	got, err := s.MorningDigest(context.Background(), "u1")
	if err != nil {
		t.Fatalf("MorningDigest: %v", err)
	}
	if len(got) != 1 || got[0].ID != ripe.ID {
		t.Fatalf("ripe scheduled: %v", ids(got))
	}
}
