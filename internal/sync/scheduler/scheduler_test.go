package scheduler

import (
	"sync"
	"testing"
	"time"

	syncdomain "schoolsync-backend/internal/sync/domain"
	syncrepo "schoolsync-backend/internal/sync/repository"
)

type fakeTrigger struct {
	mu      sync.Mutex
	running map[string]bool
	starts  []string
}

func newFakeTrigger() *fakeTrigger {
	return &fakeTrigger{running: make(map[string]bool)}
}

func (f *fakeTrigger) StartSync(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running[userID] {
		return false
	}
	f.starts = append(f.starts, userID)
	return true
}

func (f *fakeTrigger) IsRunning(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running[userID]
}

func (f *fakeTrigger) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.starts)
}

type memStateRepo struct {
	mu     sync.Mutex
	states map[string]*syncdomain.SchedulerState
}

func newMemStateRepo(states ...*syncdomain.SchedulerState) *memStateRepo {
	r := &memStateRepo{states: make(map[string]*syncdomain.SchedulerState)}
	for _, st := range states {
		r.states[st.UserID] = st
	}
	return r
}

func (r *memStateRepo) GetByUserID(userID string) (*syncdomain.SchedulerState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[userID], nil
}

func (r *memStateRepo) ListEnabled() ([]*syncdomain.SchedulerState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*syncdomain.SchedulerState
	for _, st := range r.states {
		if st.Enabled {
			out = append(out, st)
		}
	}
	return out, nil
}

func (r *memStateRepo) Save(state *syncdomain.SchedulerState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[state.UserID] = state
	return nil
}

func (r *memStateRepo) MarkTriggered(userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.states[userID]
	triggered := at
	st.LastTriggeredAt = &triggered
	st.LastTriggeredDay = at.Format(syncrepo.DayLayout)
	return nil
}

func schedulerAt(repo *memStateRepo, trigger SyncTrigger, now time.Time) *Scheduler {
	s := NewScheduler(repo, trigger, 30*time.Second)
	s.now = func() time.Time { return now }
	return s
}

func intervalState(userID string, hours int, last *time.Time) *syncdomain.SchedulerState {
	return &syncdomain.SchedulerState{
		UserID:          userID,
		Enabled:         true,
		Mode:            syncdomain.ModeInterval,
		IntervalHours:   hours,
		LastTriggeredAt: last,
	}
}

func TestIntervalTriggersWhenElapsed(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	last := now.Add(-90 * time.Minute)

	// Restart scenario: the last trigger is persisted 90 minutes old, the
	// interval is 1h, so the very first poll after boot must fire.
	repo := newMemStateRepo(intervalState("u1", 1, &last))
	trigger := newFakeTrigger()
	s := schedulerAt(repo, trigger, now)

	s.checkAll()
	if got := trigger.startCount(); got != 1 {
		t.Fatalf("starts = %d, want 1", got)
	}

	st, _ := repo.GetByUserID("u1")
	if st.LastTriggeredAt == nil || !st.LastTriggeredAt.Equal(now) {
		t.Errorf("LastTriggeredAt = %v, want %v", st.LastTriggeredAt, now)
	}

	// Immediately after triggering, nothing is due.
	s.checkAll()
	if got := trigger.startCount(); got != 1 {
		t.Errorf("starts after second poll = %d, want still 1", got)
	}
}

func TestIntervalNotDueBeforeElapsed(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	last := now.Add(-30 * time.Minute)

	repo := newMemStateRepo(intervalState("u1", 1, &last))
	trigger := newFakeTrigger()
	s := schedulerAt(repo, trigger, now)

	s.checkAll()
	if got := trigger.startCount(); got != 0 {
		t.Errorf("starts = %d, want 0 before interval elapsed", got)
	}
}

func TestIntervalFiresOnFirstEverPoll(t *testing.T) {
	repo := newMemStateRepo(intervalState("u1", 6, nil))
	trigger := newFakeTrigger()
	s := schedulerAt(repo, trigger, time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC))

	s.checkAll()
	if got := trigger.startCount(); got != 1 {
		t.Errorf("starts = %d, want 1 when never triggered before", got)
	}
}

func TestDailyFiresOncePerDay(t *testing.T) {
	state := &syncdomain.SchedulerState{
		UserID:    "u1",
		Enabled:   true,
		Mode:      syncdomain.ModeDaily,
		DailyTime: "07:30",
	}
	repo := newMemStateRepo(state)
	trigger := newFakeTrigger()

	day := time.Date(2026, 3, 10, 7, 30, 15, 0, time.UTC)
	s := schedulerAt(repo, trigger, day)

	s.checkAll()
	if got := trigger.startCount(); got != 1 {
		t.Fatalf("starts = %d, want 1 inside the daily window", got)
	}

	// Polls later the same day, still inside the window, must not re-fire.
	s.now = func() time.Time { return day.Add(45 * time.Second) }
	s.checkAll()
	if got := trigger.startCount(); got != 1 {
		t.Errorf("starts = %d, want still 1 on the same day", got)
	}

	// Next day at the same clock time it fires again.
	s.now = func() time.Time { return day.Add(24 * time.Hour) }
	s.checkAll()
	if got := trigger.startCount(); got != 2 {
		t.Errorf("starts = %d, want 2 on the next day", got)
	}
}

func TestDailyOutsideWindowDoesNotFire(t *testing.T) {
	state := &syncdomain.SchedulerState{
		UserID:    "u1",
		Enabled:   true,
		Mode:      syncdomain.ModeDaily,
		DailyTime: "07:30",
	}
	repo := newMemStateRepo(state)
	trigger := newFakeTrigger()

	for _, at := range []time.Time{
		time.Date(2026, 3, 10, 7, 29, 59, 0, time.UTC), // just before
		time.Date(2026, 3, 10, 7, 33, 0, 0, time.UTC),  // past the window
		time.Date(2026, 3, 10, 19, 30, 0, 0, time.UTC), // wrong half of day
	} {
		s := schedulerAt(repo, trigger, at)
		s.checkAll()
	}

	if got := trigger.startCount(); got != 0 {
		t.Errorf("starts = %d, want 0 outside the daily window", got)
	}
}

func TestRunningSyncSuppressesTrigger(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	repo := newMemStateRepo(intervalState("u1", 1, nil))
	trigger := newFakeTrigger()
	trigger.running["u1"] = true

	s := schedulerAt(repo, trigger, now)
	s.checkAll()

	if got := trigger.startCount(); got != 0 {
		t.Errorf("starts = %d, want 0 while a sync is running", got)
	}
	st, _ := repo.GetByUserID("u1")
	if st.LastTriggeredAt != nil {
		t.Error("trigger recorded even though no sync was started")
	}
}

func TestDisabledScheduleIgnored(t *testing.T) {
	state := intervalState("u1", 1, nil)
	state.Enabled = false
	repo := newMemStateRepo(state)
	trigger := newFakeTrigger()

	s := schedulerAt(repo, trigger, time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC))
	s.checkAll()

	if got := trigger.startCount(); got != 0 {
		t.Errorf("starts = %d, want 0 for disabled schedule", got)
	}
}
