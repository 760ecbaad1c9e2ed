package scheduler

import (
	"log"
	"time"

	syncdomain "schoolsync-backend/internal/sync/domain"
	syncrepo "schoolsync-backend/internal/sync/repository"
)

// dailyWindow is how far past the configured daily time a poll may land
// and still fire. It must stay wider than the poll interval or a tick
// could straddle the window and the trigger would be lost for the day.
const dailyWindow = 2 * time.Minute

// SyncTrigger is the part of the sync engine the scheduler drives
type SyncTrigger interface {
	StartSync(userID string) bool
	IsRunning(userID string) bool
}

// Scheduler polls the persisted per-user schedules and fires syncs when
// they come due. All bookkeeping is written through the state repository,
// so restarts neither double-fire nor forget elapsed time.
type Scheduler struct {
	stateRepo syncrepo.SchedulerStateRepository
	trigger   SyncTrigger
	interval  time.Duration
	now       func() time.Time
	stopChan  chan struct{}
}

func NewScheduler(stateRepo syncrepo.SchedulerStateRepository, trigger SyncTrigger, pollInterval time.Duration) *Scheduler {
	return &Scheduler{
		stateRepo: stateRepo,
		trigger:   trigger,
		interval:  pollInterval,
		now:       time.Now,
		stopChan:  make(chan struct{}),
	}
}

// Start runs the polling loop until Stop is called
func (s *Scheduler) Start() {
	log.Printf("[Scheduler] Starting with poll interval %v", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Check immediately on startup
	s.checkAll()

	for {
		select {
		case <-ticker.C:
			s.checkAll()
		case <-s.stopChan:
			log.Println("[Scheduler] Stopped")
			return
		}
	}
}

// Stop signals the scheduler to stop
func (s *Scheduler) Stop() {
	close(s.stopChan)
}

// checkAll evaluates every enabled schedule once
func (s *Scheduler) checkAll() {
	states, err := s.stateRepo.ListEnabled()
	if err != nil {
		log.Printf("[Scheduler] [ERROR] Failed to list schedules: %v", err)
		return
	}

	now := s.now()
	for _, state := range states {
		if s.due(state, now) {
			s.fire(state.UserID, now)
		}
	}
}

// due decides whether the user's schedule should fire at the given time
func (s *Scheduler) due(state *syncdomain.SchedulerState, now time.Time) bool {
	switch state.Mode {
	case syncdomain.ModeInterval:
		if state.LastTriggeredAt == nil {
			return true
		}
		elapsed := now.Sub(*state.LastTriggeredAt)
		return elapsed >= time.Duration(state.IntervalHours)*time.Hour

	case syncdomain.ModeDaily:
		target, err := time.Parse("15:04", state.DailyTime)
		if err != nil {
			log.Printf("[Scheduler] [WARN] Invalid daily time %q for user %s", state.DailyTime, state.UserID)
			return false
		}
		if state.LastTriggeredDay == now.Format(syncrepo.DayLayout) {
			return false
		}
		at := time.Date(now.Year(), now.Month(), now.Day(), target.Hour(), target.Minute(), 0, 0, now.Location())
		return !now.Before(at) && now.Sub(at) < dailyWindow

	default:
		return false
	}
}

// fire starts a sync and records the trigger. The bookkeeping is written
// only when StartSync accepted, so a tick that loses the race to a manual
// sync does not consume the slot.
func (s *Scheduler) fire(userID string, now time.Time) {
	if s.trigger.IsRunning(userID) {
		log.Printf("[Scheduler] Sync already running for user %s, skipping trigger", userID)
		return
	}
	if !s.trigger.StartSync(userID) {
		return
	}
	log.Printf("[Scheduler] Triggered sync for user %s", userID)
	if err := s.stateRepo.MarkTriggered(userID, now); err != nil {
		log.Printf("[Scheduler] [ERROR] Failed to record trigger for user %s: %v", userID, err)
	}
}
