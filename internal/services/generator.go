// Package services – GeneratorService
//
// This file implements the daily reminder generation run. Seven independent
// rules scan the source-of-truth stores (tasks, meetings, people, change
// plans, projects, recurring trackers, exports) and emit deduplicated
// reminder records for "today" in the owner's local calendar.
//
// Each rule runs inside its own error boundary: a failing domain contributes
// a wrapped error to the aggregate result but never suppresses the remaining
// rules. Creation within a rule is sequential so the dedup check for item
// N+1 observes the insert of item N; the run as a whole is idempotent and a
// partial run is safe to repeat.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/go-growth-backend/internal/domain"
	"github.com/tbourn/go-growth-backend/internal/repo"
	"github.com/tbourn/go-growth-backend/internal/schedule"
)

// Generation run counters, labeled by reminder kind / source domain.
var (
	remindersGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reminders_generated_total",
		Help: "Reminders created by generation runs, by kind.",
	}, []string{"kind"})

	ruleFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reminder_rule_failures_total",
		Help: "Generation rule failures, by source domain.",
	}, []string{"domain"})
)

// TaskSource is the read view of the task store.
type TaskSource interface {
	// ListTasks returns the user's top-level tasks, including completed and
	// archived ones; the rules filter.
	ListTasks(ctx context.Context, userID string) ([]domain.Task, error)
}

// MeetingSource is the read view of the meeting-schedule store.
type MeetingSource interface {
	ListSchedules(ctx context.Context, userID string) ([]domain.MeetingSchedule, error)
}

// PeopleSource is the read view of the people store.
type PeopleSource interface {
	ListPeople(ctx context.Context, userID string) ([]domain.Person, error)
	// DisplayNames resolves person ids to display names in one batch.
	DisplayNames(ctx context.Context, userID string, ids []string) (map[string]string, error)
}

// PlanSource is the read view of the change-plan store.
type PlanSource interface {
	ListActivePlans(ctx context.Context, userID string) ([]domain.ChangePlan, error)
}

// ProjectSource is the read view of the project/milestone store.
type ProjectSource interface {
	ListActiveProjects(ctx context.Context, userID string) ([]domain.Project, error)
}

// GeneratorService runs the seven domain rules against the current settings
// record. It is invoked once per app session by the consuming application;
// idempotence comes from the dedup check, not from any scheduler state.
type GeneratorService struct {
	DB *gorm.DB

	Tasks    TaskSource
	Meetings MeetingSource
	People   PeopleSource
	Plans    PlanSource
	Projects ProjectSource

	// Now is a clock seam for tests; defaults to time.Now.
	Now func() time.Time

	// OverdueCap bounds task-overdue reminders per run.
	OverdueCap int
	// MilestoneWindowDays is the approaching-milestone look-ahead.
	MilestoneWindowDays int
	// MilestoneOverdueMax is the lifetime reminder ceiling per overdue milestone.
	MilestoneOverdueMax int
}

// NewGeneratorService constructs a GeneratorService with the documented
// defaults (10 overdue reminders per run, 3-day milestone window, 2 lifetime
// overdue nudges per milestone).
func NewGeneratorService(db *gorm.DB, tasks TaskSource, meetings MeetingSource, people PeopleSource, plans PlanSource, projects ProjectSource) *GeneratorService {
	return &GeneratorService{
		DB:                  db,
		Tasks:               tasks,
		Meetings:            meetings,
		People:              people,
		Plans:               plans,
		Projects:            projects,
		Now:                 time.Now,
		OverdueCap:          10,
		MilestoneWindowDays: 3,
		MilestoneOverdueMax: 2,
	}
}

func (g *GeneratorService) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

// runCtx carries the per-run calendar context shared by all rules.
type runCtx struct {
	userID   string
	st       domain.ReminderSettings
	loc      *time.Location
	now      time.Time
	today    time.Time
	tomorrow time.Time
}

// Generate runs all rules once for the user and returns the number of
// reminders created. Rule failures are aggregated with errors.Join; a
// non-nil error may still accompany a positive count (partial run).
func (g *GeneratorService) Generate(ctx context.Context, userID string, st domain.ReminderSettings) (int, error) {
	st = st.Normalize()
	loc := st.Location()
	now := g.now().In(loc)
	rc := runCtx{
		userID:   userID,
		st:       st,
		loc:      loc,
		now:      now,
		today:    schedule.DayOf(now, loc),
		tomorrow: schedule.NextDay(schedule.DayOf(now, loc)),
	}

	rules := []struct {
		domain string
		run    func(context.Context, runCtx) (int, error)
	}{
		{"tasks", g.taskDueRule},
		{"tasks", g.taskOverdueRule},
		{"meetings", g.meetingRule},
		{"people", g.importantDateRule},
		{"plans", g.planCheckinRule},
		{"projects", g.milestoneRule},
		{"trackers", g.streakRule},
		{"exports", g.monthlyExportRule},
	}

	created := 0
	var errs []error
	for _, rule := range rules {
		n, err := rule.run(ctx, rc)
		created += n
		if err != nil {
			ruleFailures.WithLabelValues(rule.domain).Inc()
			log.Warn().Err(err).Str("user_id", userID).Str("domain", rule.domain).Msg("reminder rule failed")
			errs = append(errs, fmt.Errorf("%s: %w", rule.domain, err))
		}
	}
	return created, errors.Join(errs...)
}

// create performs the dedup-check + insert pair for one reminder. It returns
// true when a row was inserted, false when an active reminder already covers
// the tuple. Reminders without a related entity are always created.
func (g *GeneratorService) create(ctx context.Context, r *domain.Reminder) (bool, error) {
	if r.HasRelatedEntity() {
		exists, err := repo.ActiveExists(ctx, g.DB, r.UserID, r.Kind, *r.RelatedKind, *r.RelatedID)
		if err != nil {
			return false, err
		}
		if exists {
			return false, nil
		}
	}
	if err := repo.CreateReminder(ctx, g.DB, r); err != nil {
		return false, err
	}
	remindersGenerated.WithLabelValues(string(r.Kind)).Inc()
	return true, nil
}

// taskDueRule emits one reminder per top-level open task due today.
func (g *GeneratorService) taskDueRule(ctx context.Context, rc runCtx) (int, error) {
	if rc.st.Tasks == domain.PrefOff {
		return 0, nil
	}
	tasks, err := g.Tasks.ListTasks(ctx, rc.userID)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, t := range tasks {
		if t.Completed || t.Archived || t.ParentID != nil || t.DueDate == nil {
			continue
		}
		if !schedule.SameDay(*t.DueDate, rc.today, rc.loc) {
			continue
		}
		ok, err := g.create(ctx, &domain.Reminder{
			UserID:       rc.userID,
			Kind:         domain.KindTaskDue,
			Title:        fmt.Sprintf("Due today: %s", t.Title),
			Channel:      rc.st.Tasks.Channel(domain.ChannelMorningDigest, true),
			RelatedKind:  ptr("task"),
			RelatedID:    ptr(t.ID),
			SourceDomain: "tasks",
			Metadata:     map[string]string{"task_title": t.Title},
		})
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// taskOverdueRule emits digest-only reminders for tasks past their due date,
// capped per run. Push is never used for overdue floods; cross-run repeats
// are prevented by dedup, not by any marker on the task.
func (g *GeneratorService) taskOverdueRule(ctx context.Context, rc runCtx) (int, error) {
	if rc.st.Tasks == domain.PrefOff {
		return 0, nil
	}
	tasks, err := g.Tasks.ListTasks(ctx, rc.userID)
	if err != nil {
		return 0, err
	}

	channel := digestChannel(rc.st.Tasks, domain.ChannelMorningDigest)
	created := 0
	for _, t := range tasks {
		if created >= g.OverdueCap {
			break
		}
		if t.Completed || t.Archived || t.ParentID != nil || t.DueDate == nil {
			continue
		}
		days := schedule.DaysBetween(*t.DueDate, rc.today, rc.loc)
		if days <= 0 {
			continue
		}
		body := fmt.Sprintf("Due %d day%s ago", days, plural(days))
		ok, err := g.create(ctx, &domain.Reminder{
			UserID:       rc.userID,
			Kind:         domain.KindTaskOverdue,
			Title:        fmt.Sprintf("Overdue: %s", t.Title),
			Body:         &body,
			Channel:      channel,
			RelatedKind:  ptr("task"),
			RelatedID:    ptr(t.ID),
			SourceDomain: "tasks",
			Metadata:     map[string]string{"task_title": t.Title, "days_overdue": fmt.Sprintf("%d", days)},
		})
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// meetingRule emits due-today and day-before reminders for recurring meeting
// schedules, resolving person display names in one batch lookup first.
func (g *GeneratorService) meetingRule(ctx context.Context, rc runCtx) (int, error) {
	if rc.st.Meetings == domain.PrefOff {
		return 0, nil
	}
	schedules, err := g.Meetings.ListSchedules(ctx, rc.userID)
	if err != nil {
		return 0, err
	}

	var due, dayBefore []domain.MeetingSchedule
	personIDs := make([]string, 0, len(schedules))
	for _, m := range schedules {
		if m.NextDueDate == nil {
			continue
		}
		switch {
		case schedule.SameDay(*m.NextDueDate, rc.today, rc.loc):
			due = append(due, m)
			personIDs = append(personIDs, m.PersonID)
		case schedule.SameDay(*m.NextDueDate, rc.tomorrow, rc.loc):
			dayBefore = append(dayBefore, m)
			personIDs = append(personIDs, m.PersonID)
		}
	}
	if len(personIDs) == 0 {
		return 0, nil
	}

	names, err := g.People.DisplayNames(ctx, rc.userID, personIDs)
	if err != nil {
		return 0, err
	}
	caser := cases.Title(language.English)
	name := func(id string) string {
		if n, ok := names[id]; ok && n != "" {
			return n
		}
		return "someone"
	}

	created := 0
	for _, m := range due {
		ok, err := g.create(ctx, &domain.Reminder{
			UserID:       rc.userID,
			Kind:         domain.KindMeetingDue,
			Title:        fmt.Sprintf("%s with %s today", caser.String(m.Category), name(m.PersonID)),
			Channel:      rc.st.Meetings.Channel(domain.ChannelMorningDigest, true),
			RelatedKind:  ptr("meeting"),
			RelatedID:    ptr(m.ID),
			SourceDomain: "meetings",
			Metadata:     map[string]string{"person_name": name(m.PersonID), "category": m.Category},
		})
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	for _, m := range dayBefore {
		ok, err := g.create(ctx, &domain.Reminder{
			UserID:       rc.userID,
			Kind:         domain.KindMeetingDayBefore,
			Title:        fmt.Sprintf("Tomorrow: %s with %s", caser.String(m.Category), name(m.PersonID)),
			Channel:      digestChannel(rc.st.Meetings, domain.ChannelMorningDigest),
			RelatedKind:  ptr("meeting"),
			RelatedID:    ptr(m.ID),
			SourceDomain: "meetings",
			Metadata:     map[string]string{"person_name": name(m.PersonID), "category": m.Category},
		})
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// importantDateRule walks each tracked person's dated events. Recurring
// dates are re-anchored to the current year before the distance is computed;
// a reminder fires when the event is between 0 and the configured
// advance-notice window days away (inclusive). Push is only used on the day
// itself.
func (g *GeneratorService) importantDateRule(ctx context.Context, rc runCtx) (int, error) {
	if rc.st.ImportantDates == domain.PrefOff {
		return 0, nil
	}
	people, err := g.People.ListPeople(ctx, rc.userID)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, p := range people {
		for _, ev := range p.Dates {
			year := ev.Date.Year()
			if ev.Recurring {
				year = rc.today.Year()
			}
			// Dated events are calendar dates; rebuild them in the owner's
			// zone instead of converting an instant across zones.
			anchored := time.Date(year, ev.Date.Month(), ev.Date.Day(), 0, 0, 0, 0, rc.loc)
			days := schedule.DaysBetween(rc.today, anchored, rc.loc)
			if days < 0 || days > rc.st.AdvanceNoticeDays {
				continue
			}

			var title string
			var channel domain.Channel
			if days == 0 {
				title = fmt.Sprintf("Today: %s (%s)", ev.Label, p.DisplayName)
				channel = rc.st.ImportantDates.Channel(domain.ChannelMorningDigest, true)
			} else {
				title = fmt.Sprintf("In %d day%s: %s (%s)", days, plural(days), ev.Label, p.DisplayName)
				channel = digestChannel(rc.st.ImportantDates, domain.ChannelMorningDigest)
			}

			ok, err := g.create(ctx, &domain.Reminder{
				UserID:       rc.userID,
				Kind:         domain.KindImportantDate,
				Title:        title,
				Channel:      channel,
				RelatedKind:  ptr("person_date"),
				RelatedID:    ptr(p.ID + ":" + ev.Label),
				SourceDomain: "people",
				Metadata: map[string]string{
					"person_name": p.DisplayName,
					"label":       ev.Label,
					"date":        anchored.Format("2006-01-02"),
				},
			})
			if err != nil {
				return created, err
			}
			if ok {
				created++
			}
		}
	}
	return created, nil
}

// planCheckinRule emits a reminder for each active change plan whose next
// scheduled check-in has arrived.
func (g *GeneratorService) planCheckinRule(ctx context.Context, rc runCtx) (int, error) {
	if rc.st.Plans == domain.PrefOff {
		return 0, nil
	}
	plans, err := g.Plans.ListActivePlans(ctx, rc.userID)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, p := range plans {
		if !p.Active || p.NextCheckin == nil {
			continue
		}
		if schedule.DayOf(*p.NextCheckin, rc.loc).After(rc.today) {
			continue
		}
		ok, err := g.create(ctx, &domain.Reminder{
			UserID:       rc.userID,
			Kind:         domain.KindPlanCheckin,
			Title:        fmt.Sprintf("Check in: %s", p.Title),
			Channel:      rc.st.Plans.Channel(domain.ChannelMorningDigest, true),
			RelatedKind:  ptr("plan"),
			RelatedID:    ptr(p.ID),
			SourceDomain: "plans",
			Metadata:     map[string]string{"plan_title": p.Title},
		})
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// milestoneRule nudges on approaching and overdue milestones for projects
// that opted in. Approaching milestones rely on dedup alone; overdue ones
// additionally carry a lifetime ceiling per milestone, enforced by counting
// previously created reminders of that kind.
func (g *GeneratorService) milestoneRule(ctx context.Context, rc runCtx) (int, error) {
	if rc.st.Milestones == domain.PrefOff {
		return 0, nil
	}
	projects, err := g.Projects.ListActiveProjects(ctx, rc.userID)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, p := range projects {
		if !p.Active || !p.NudgesEnabled {
			continue
		}
		for _, m := range p.Milestones {
			if m.Status == domain.MilestoneDone || m.TargetDate == nil {
				continue
			}
			days := schedule.DaysBetween(rc.today, *m.TargetDate, rc.loc)

			switch {
			case days >= 0 && days <= g.MilestoneWindowDays:
				body := fmt.Sprintf("Target %s (%s)", schedule.DayOf(*m.TargetDate, rc.loc).Format("Jan 2"), p.Title)
				ok, err := g.create(ctx, &domain.Reminder{
					UserID:       rc.userID,
					Kind:         domain.KindMilestoneApproaching,
					Title:        fmt.Sprintf("Milestone due soon: %s", m.Title),
					Body:         &body,
					Channel:      rc.st.Milestones.Channel(domain.ChannelMorningDigest, days == 0),
					RelatedKind:  ptr("milestone"),
					RelatedID:    ptr(m.ID),
					SourceDomain: "projects",
					Metadata:     map[string]string{"project_title": p.Title, "milestone_title": m.Title},
				})
				if err != nil {
					return created, err
				}
				if ok {
					created++
				}

			case days < 0:
				n, err := repo.CountByRelated(ctx, g.DB, rc.userID, domain.KindMilestoneOverdue, "milestone", m.ID)
				if err != nil {
					return created, err
				}
				if n >= int64(g.MilestoneOverdueMax) {
					continue
				}
				body := fmt.Sprintf("Target was %s (%s)", schedule.DayOf(*m.TargetDate, rc.loc).Format("Jan 2"), p.Title)
				ok, err := g.create(ctx, &domain.Reminder{
					UserID:       rc.userID,
					Kind:         domain.KindMilestoneOverdue,
					Title:        fmt.Sprintf("Milestone overdue: %s", m.Title),
					Body:         &body,
					Channel:      rc.st.Milestones.Channel(domain.ChannelMorningDigest, true),
					RelatedKind:  ptr("milestone"),
					RelatedID:    ptr(m.ID),
					SourceDomain: "projects",
					Metadata:     map[string]string{"project_title": p.Title, "milestone_title": m.Title},
				})
				if err != nil {
					return created, err
				}
				if ok {
					created++
				}
			}
		}
	}
	return created, nil
}

// streakRule warns about recurring tasks due today on the evening digest
// only; a streak break is an end-of-day concern, never a push.
func (g *GeneratorService) streakRule(ctx context.Context, rc runCtx) (int, error) {
	if rc.st.Streaks == domain.PrefOff {
		return 0, nil
	}
	tasks, err := g.Tasks.ListTasks(ctx, rc.userID)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, t := range tasks {
		if !t.Recurring || t.Completed || t.Archived || t.DueDate == nil {
			continue
		}
		if !schedule.SameDay(*t.DueDate, rc.today, rc.loc) {
			continue
		}
		ok, err := g.create(ctx, &domain.Reminder{
			UserID:       rc.userID,
			Kind:         domain.KindStreakAtRisk,
			Title:        fmt.Sprintf("Streak at risk: %s", t.Title),
			Channel:      domain.ChannelEveningDigest,
			RelatedKind:  ptr("task"),
			RelatedID:    ptr(t.ID),
			SourceDomain: "trackers",
			Metadata:     map[string]string{"task_title": t.Title},
		})
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// monthlyExportRule fires once on the first calendar day of the month for
// opted-in users. The related entity is the month itself, so dedup holds for
// repeated runs within the same day.
func (g *GeneratorService) monthlyExportRule(ctx context.Context, rc runCtx) (int, error) {
	if !rc.st.MonthlyExport || rc.today.Day() != 1 {
		return 0, nil
	}
	period := rc.today.Format("2006-01")
	ok, err := g.create(ctx, &domain.Reminder{
		UserID:       rc.userID,
		Kind:         domain.KindMonthlyExport,
		Title:        fmt.Sprintf("Your %s export is ready to run", rc.today.Format("January")),
		Channel:      domain.ChannelMorningDigest,
		RelatedKind:  ptr("export_period"),
		RelatedID:    ptr(period),
		SourceDomain: "exports",
		Metadata:     map[string]string{"period": period},
	})
	if err != nil {
		return 0, err
	}
	if ok {
		return 1, nil
	}
	return 0, nil
}

// digestChannel resolves a preference to its digest channel, mapping push
// and both to the fallback digest. Used where push delivery is disallowed
// (overdue floods, advance notices, day-before reminders).
func digestChannel(p domain.DeliveryPref, fallback domain.Channel) domain.Channel {
	switch p {
	case domain.PrefMorningDigest:
		return domain.ChannelMorningDigest
	case domain.PrefEveningDigest:
		return domain.ChannelEveningDigest
	}
	return fallback
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func ptr(s string) *string { return &s }
