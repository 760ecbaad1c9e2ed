package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	authrepo "schoolsync-backend/internal/auth/repository"
	childdomain "schoolsync-backend/internal/child/domain"
	childrepo "schoolsync-backend/internal/child/repository"
	emaildomain "schoolsync-backend/internal/email/domain"
	emailrepo "schoolsync-backend/internal/email/repository"
	syncdomain "schoolsync-backend/internal/sync/domain"
	syncrepo "schoolsync-backend/internal/sync/repository"
	"schoolsync-backend/pkg/ai"
	"schoolsync-backend/pkg/config"

	"golang.org/x/oauth2"
)

const historyCap = 20

// EventService defines interface for pushing projection updates to the UI
type EventService interface {
	SendToUser(userID string, eventType string, payload interface{})
}

// IMAPSource searches an IMAP mailbox; the counterpart of
// emaildomain.MailSource for users on the "imap" provider.
type IMAPSource interface {
	Search(ctx context.Context, host, username, password string, terms []string, lookbackMonths int) ([]*emaildomain.InboxMessage, error)
}

// syncRun is the mutable state of one in-flight pass
type syncRun struct {
	ctx       context.Context
	cancel    context.CancelFunc
	status    SyncStatus
	startedAt time.Time
	processed int
	skipped   int
	failed    int
	lastMsg   string
	done      chan struct{}
}

// userSyncState survives between runs: bounded history plus the last
// completion time shown on the dashboard.
type userSyncState struct {
	run             *syncRun // nil when idle
	history         []RunSummary
	lastCompletedAt *time.Time
}

// syncUsecase implements SyncUsecase
type syncUsecase struct {
	childRepo  childrepo.ChildRepository
	emailRepo  emailrepo.EmailRepository
	eventRepo  emailrepo.EventRepository
	actionRepo emailrepo.ActionRepository
	userRepo   authrepo.UserRepository
	stateRepo  syncrepo.SchedulerStateRepository

	gmailSource emaildomain.MailSource
	imapSource  IMAPSource
	analyzer    ai.AnalyzerService
	events      EventService
	cfg         *config.Config
	now         func() time.Time

	mu    sync.Mutex
	users map[string]*userSyncState
}

// NewSyncUsecase creates a new instance of syncUsecase
func NewSyncUsecase(
	childRepo childrepo.ChildRepository,
	emailRepo emailrepo.EmailRepository,
	eventRepo emailrepo.EventRepository,
	actionRepo emailrepo.ActionRepository,
	userRepo authrepo.UserRepository,
	stateRepo syncrepo.SchedulerStateRepository,
	gmailSource emaildomain.MailSource,
	imapSource IMAPSource,
	analyzer ai.AnalyzerService,
	events EventService,
	cfg *config.Config,
) SyncUsecase {
	return &syncUsecase{
		childRepo:   childRepo,
		emailRepo:   emailRepo,
		eventRepo:   eventRepo,
		actionRepo:  actionRepo,
		userRepo:    userRepo,
		stateRepo:   stateRepo,
		gmailSource: gmailSource,
		imapSource:  imapSource,
		analyzer:    analyzer,
		events:      events,
		cfg:         cfg,
		now:         time.Now,
		users:       make(map[string]*userSyncState),
	}
}

func (u *syncUsecase) stateFor(userID string) *userSyncState {
	st, ok := u.users[userID]
	if !ok {
		st = &userSyncState{}
		u.users[userID] = st
	}
	return st
}

// StartSync begins a pass for the user unless one is already in flight.
// The duplicate-start case is an expected race (scheduler tick vs manual
// trigger) and is silently ignored.
func (u *syncUsecase) StartSync(userID string) bool {
	run, ok := u.beginRun(userID)
	if !ok {
		log.Printf("[Sync] Sync already running for user %s, ignoring trigger", userID)
		return false
	}
	go u.execute(run, userID)
	return true
}

func (u *syncUsecase) beginRun(userID string) (*syncRun, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()

	st := u.stateFor(userID)
	if st.run != nil {
		return nil, false
	}

	ctx, cancel := context.WithCancel(context.Background())
	run := &syncRun{
		ctx:       ctx,
		cancel:    cancel,
		status:    StatusRunning,
		startedAt: u.now(),
		lastMsg:   "Starting sync...",
		done:      make(chan struct{}),
	}
	st.run = run
	return run, true
}

// CancelSync requests cooperative cancellation of the user's active run.
// The run stops between messages; already-persisted messages are kept.
func (u *syncUsecase) CancelSync(userID string) {
	u.mu.Lock()
	defer u.mu.Unlock()

	st := u.stateFor(userID)
	if st.run == nil {
		return
	}
	st.run.status = StatusCancelling
	st.run.lastMsg = "Cancelling..."
	st.run.cancel()
}

func (u *syncUsecase) IsRunning(userID string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.stateFor(userID).run != nil
}

func (u *syncUsecase) Status(userID string) RunStatus {
	u.mu.Lock()
	defer u.mu.Unlock()

	st := u.stateFor(userID)
	status := RunStatus{
		Status:          StatusIdle,
		LastCompletedAt: st.lastCompletedAt,
	}
	if len(st.history) > 0 {
		status.LastMessage = st.history[0].Message
	}
	if st.run != nil {
		startedAt := st.run.startedAt
		status.Status = st.run.status
		status.ProcessedCount = st.run.processed
		status.LastMessage = st.run.lastMsg
		status.StartedAt = &startedAt
	}
	return status
}

func (u *syncUsecase) History(userID string) []RunSummary {
	u.mu.Lock()
	defer u.mu.Unlock()

	st := u.stateFor(userID)
	out := make([]RunSummary, len(st.history))
	copy(out, st.history)
	return out
}

// execute runs one full sync pass and always returns the user to idle
func (u *syncUsecase) execute(run *syncRun, userID string) {
	defer close(run.done)

	u.sendEvent(userID, "sync_started", nil)

	outcome, message := u.runPass(run, userID)

	finishedAt := u.now()
	summary := RunSummary{
		FinishedAt:     finishedAt,
		Outcome:        outcome,
		ProcessedCount: run.processed,
		SkippedCount:   run.skipped,
		ErrorCount:     run.failed,
		Message:        message,
	}

	u.mu.Lock()
	st := u.stateFor(userID)
	st.run = nil
	st.lastCompletedAt = &finishedAt
	st.history = append([]RunSummary{summary}, st.history...)
	if len(st.history) > historyCap {
		st.history = st.history[:historyCap]
	}
	u.mu.Unlock()

	u.sendEvent(userID, "sync_"+outcome, summary)
	log.Printf("[Sync] Run for user %s finished: %s (%s)", userID, outcome, message)
}

// runPass is the sync state machine body. It returns the outcome
// ("completed", "cancelled" or "failed") and a human-readable message.
// Only configuration and fetch errors fail the whole pass; per-message
// errors are logged, counted and skipped.
func (u *syncUsecase) runPass(run *syncRun, userID string) (string, string) {
	// Children and rules are re-read every pass; profile edits since the
	// last run must take effect.
	children, err := u.childRepo.ListByUser(userID)
	if err != nil {
		log.Printf("[Sync] Failed to load children for user %s: %v", userID, err)
		return "failed", "Sync failed"
	}

	terms := collectRules(children)
	if len(terms) == 0 {
		return "completed", "No sender rules configured"
	}

	u.progress(userID, run, "Searching mailbox...")

	messages, err := u.fetchMessages(run.ctx, userID, terms)
	if err != nil {
		log.Printf("[Sync] Mail fetch failed for user %s: %v", userID, err)
		return "failed", "Sync failed"
	}

	log.Printf("[Sync] Fetched %d candidate messages for user %s", len(messages), userID)

	for i, msg := range messages {
		// Cancellation has message-level granularity: checked here,
		// never mid-persist.
		if run.ctx.Err() != nil {
			return "cancelled", fmt.Sprintf("Cancelled after %d of %d emails", run.processed, len(messages))
		}

		err := u.processMessage(run.ctx, userID, msg, children)
		if err != nil && err != errDuplicate {
			log.Printf("[Sync] Skipping message %q: %v", msg.Subject, err)
		}

		u.mu.Lock()
		switch {
		case err == nil:
			run.processed++
		case err == errDuplicate:
			run.skipped++
		default:
			run.failed++
		}
		u.mu.Unlock()

		u.progress(userID, run, fmt.Sprintf("Processed %d of %d emails", i+1, len(messages)))
	}

	msg := fmt.Sprintf("Imported %d new emails (%d already known)", run.processed, run.skipped)
	if run.failed > 0 {
		msg = fmt.Sprintf("%s, %d failed", msg, run.failed)
	}
	return "completed", msg
}

// errDuplicate marks a message already persisted by an earlier pass
var errDuplicate = fmt.Errorf("duplicate message")

// processMessage handles dedup, attribution and persistence for one message
func (u *syncUsecase) processMessage(ctx context.Context, userID string, msg *emaildomain.InboxMessage, children []*childdomain.Child) error {
	exists, err := u.emailRepo.ExistsBySubjectAndReceivedAt(userID, msg.Subject, msg.ReceivedAt)
	if err != nil {
		return fmt.Errorf("dedup check: %w", err)
	}
	if exists {
		return errDuplicate
	}

	decision, err := u.resolveAttribution(ctx, msg, children)
	if err != nil {
		return fmt.Errorf("attribution: %w", err)
	}

	email := &emaildomain.Email{
		UserID:            userID,
		Subject:           msg.Subject,
		Sender:            msg.Sender,
		Preview:           msg.Preview,
		Body:              msg.Body,
		ReceivedAt:        msg.ReceivedAt,
		ChildID:           decision.Child.ID,
		AttributionSource: string(decision.Source),
	}

	if decision.Analysis != nil {
		email.IsProcessed = true
		email.Category = emaildomain.ParseCategory(decision.Analysis.Category)
		email.Summary = decision.Analysis.Summary
	}

	if err := u.emailRepo.Create(email); err != nil {
		return fmt.Errorf("persist email: %w", err)
	}
	u.sendEvent(userID, "email_processed", email)

	if decision.Analysis == nil {
		return nil
	}

	urgency := emaildomain.ParseUrgency(decision.Analysis.Urgency)

	// Attendance is the default event category unless the classifier
	// flagged the whole email as a parent-attendance one.
	eventCategory := emaildomain.CategoryEventAttendance
	if email.Category == emaildomain.CategoryEventParent {
		eventCategory = emaildomain.CategoryEventParent
	}

	for _, ev := range decision.Analysis.Events {
		event := &emaildomain.SchoolEvent{
			UserID:   userID,
			ChildID:  decision.Child.ID,
			EmailID:  email.ID,
			Title:    ev.Title,
			Date:     ev.Date,
			Time:     ev.Time,
			Location: ev.Location,
			Category: eventCategory,
		}
		if err := u.eventRepo.Create(event); err != nil {
			log.Printf("[Sync] Failed to persist event %q: %v", ev.Title, err)
			continue
		}
		u.sendEvent(userID, "event_created", event)
	}

	for _, act := range decision.Analysis.Actions {
		action := &emaildomain.ActionItem{
			UserID:         userID,
			ChildID:        decision.Child.ID,
			RelatedEmailID: email.ID,
			Title:          act.Title,
			Deadline:       act.Deadline,
			Urgency:        urgency,
		}
		if err := u.actionRepo.Create(action); err != nil {
			log.Printf("[Sync] Failed to persist action %q: %v", act.Title, err)
			continue
		}
		u.sendEvent(userID, "action_created", action)
	}

	return nil
}

// fetchMessages looks up the user's mail provider and runs the search
func (u *syncUsecase) fetchMessages(ctx context.Context, userID string, terms []string) ([]*emaildomain.InboxMessage, error) {
	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %s not found", userID)
	}

	switch user.Provider {
	case "google":
		if user.AccessToken == "" {
			return nil, fmt.Errorf("no Gmail access token for user %s", userID)
		}
		onRefresh := u.makeTokenUpdateCallback(userID)
		return u.gmailSource.Search(ctx, user.AccessToken, user.RefreshToken, terms, u.cfg.SyncLookbackMonths, onRefresh)

	case "imap":
		if u.imapSource == nil {
			return nil, fmt.Errorf("imap source not configured")
		}
		return u.imapSource.Search(ctx, user.IMAPHost, user.IMAPUsername, user.IMAPPassword, terms, u.cfg.SyncLookbackMonths)

	default:
		return nil, fmt.Errorf("user %s has no mail provider connected", userID)
	}
}

// makeTokenUpdateCallback persists refreshed Gmail tokens back to the user
func (u *syncUsecase) makeTokenUpdateCallback(userID string) emaildomain.TokenUpdateFunc {
	return func(token *oauth2.Token) error {
		user, err := u.userRepo.FindByID(userID)
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("user %s not found", userID)
		}
		user.AccessToken = token.AccessToken
		if token.RefreshToken != "" {
			user.RefreshToken = token.RefreshToken
		}
		return u.userRepo.Update(user)
	}
}

func (u *syncUsecase) progress(userID string, run *syncRun, msg string) {
	u.mu.Lock()
	run.lastMsg = msg
	processed := run.processed
	u.mu.Unlock()

	u.sendEvent(userID, "sync_progress", map[string]interface{}{
		"message":         msg,
		"processed_count": processed,
	})
}

func (u *syncUsecase) sendEvent(userID, eventType string, payload interface{}) {
	if u.events != nil {
		u.events.SendToUser(userID, eventType, payload)
	}
}

// collectRules gathers the deduplicated union of all children's rules; it
// becomes the OR-combined sender filter of the mail search.
func collectRules(children []*childdomain.Child) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, c := range children {
		for _, r := range c.MatchRules {
			trimmed := strings.TrimSpace(r)
			if trimmed == "" {
				continue
			}
			key := strings.ToLower(trimmed)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			terms = append(terms, trimmed)
		}
	}
	return terms
}

// GetSchedule returns the user's auto-sync configuration
func (u *syncUsecase) GetSchedule(userID string) (*syncdomain.SchedulerState, error) {
	return u.stateRepo.GetByUserID(userID)
}

// UpdateSchedule applies a settings change. Enabling the scheduler or
// switching modes clears the "already triggered today" bookkeeping so the
// change cannot suppress that day's trigger.
func (u *syncUsecase) UpdateSchedule(userID string, update ScheduleUpdate) (*syncdomain.SchedulerState, error) {
	if _, err := time.Parse("15:04", update.DailyTime); err != nil {
		return nil, fmt.Errorf("invalid daily_time %q, want HH:MM", update.DailyTime)
	}

	state, err := u.stateRepo.GetByUserID(userID)
	if err != nil {
		return nil, err
	}

	newMode := syncdomain.ScheduleMode(update.Mode)
	if (update.Enabled && !state.Enabled) || newMode != state.Mode {
		state.LastTriggeredDay = ""
	}

	state.Enabled = update.Enabled
	state.Mode = newMode
	state.IntervalHours = update.IntervalHours
	state.DailyTime = update.DailyTime

	if err := u.stateRepo.Save(state); err != nil {
		return nil, err
	}
	return state, nil
}
