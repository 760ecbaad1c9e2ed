package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	authdomain "schoolsync-backend/internal/auth/domain"
	childdomain "schoolsync-backend/internal/child/domain"
	emaildomain "schoolsync-backend/internal/email/domain"
	syncdomain "schoolsync-backend/internal/sync/domain"
	"schoolsync-backend/pkg/ai"
	"schoolsync-backend/pkg/config"
)

const testUserID = "user-1"

// --- fakes -----------------------------------------------------------------

type fakeChildRepo struct {
	children []*childdomain.Child
}

func (f *fakeChildRepo) Create(child *childdomain.Child) error { return nil }
func (f *fakeChildRepo) FindByID(userID, id string) (*childdomain.Child, error) {
	for _, c := range f.children {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}
func (f *fakeChildRepo) ListByUser(userID string) ([]*childdomain.Child, error) {
	return f.children, nil
}
func (f *fakeChildRepo) Update(child *childdomain.Child) error { return nil }
func (f *fakeChildRepo) Delete(userID, id string) error        { return nil }

type fakeEmailRepo struct {
	mu      sync.Mutex
	emails  []*emaildomain.Email
	failFor map[string]bool       // subjects whose Create fails
	onSaved func(savedCount int)  // called after each successful Create
}

func (f *fakeEmailRepo) Create(email *emaildomain.Email) error {
	f.mu.Lock()
	if f.failFor[email.Subject] {
		f.mu.Unlock()
		return errors.New("insert failed")
	}
	email.ID = fmt.Sprintf("email-%d", len(f.emails)+1)
	f.emails = append(f.emails, email)
	saved := len(f.emails)
	hook := f.onSaved
	f.mu.Unlock()

	if hook != nil {
		hook(saved)
	}
	return nil
}

func (f *fakeEmailRepo) FindByID(userID, id string) (*emaildomain.Email, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.emails {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, nil
}

func (f *fakeEmailRepo) ListByUser(userID string, limit, offset int) ([]*emaildomain.Email, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.emails, int64(len(f.emails)), nil
}

func (f *fakeEmailRepo) ExistsBySubjectAndReceivedAt(userID, subject string, receivedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.emails {
		if e.UserID == userID && e.Subject == subject && e.ReceivedAt.Equal(receivedAt) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeEmailRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.emails)
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events []*emaildomain.SchoolEvent
}

func (f *fakeEventRepo) Create(event *emaildomain.SchoolEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEventRepo) ListByUser(userID string) ([]*emaildomain.SchoolEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events, nil
}

type fakeActionRepo struct {
	mu      sync.Mutex
	actions []*emaildomain.ActionItem
}

func (f *fakeActionRepo) Create(action *emaildomain.ActionItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
	return nil
}

func (f *fakeActionRepo) FindByID(userID, id string) (*emaildomain.ActionItem, error) {
	return nil, nil
}

func (f *fakeActionRepo) ListByUser(userID string) ([]*emaildomain.ActionItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.actions, nil
}

func (f *fakeActionRepo) SetCompleted(userID, id string, completed bool) error { return nil }

type fakeUserRepo struct {
	user *authdomain.User
}

func (f *fakeUserRepo) Create(user *authdomain.User) error            { return nil }
func (f *fakeUserRepo) FindByEmail(email string) (*authdomain.User, error) { return f.user, nil }
func (f *fakeUserRepo) FindByID(id string) (*authdomain.User, error)  { return f.user, nil }
func (f *fakeUserRepo) Update(user *authdomain.User) error            { f.user = user; return nil }
func (f *fakeUserRepo) SaveRefreshToken(token *authdomain.RefreshToken) error { return nil }
func (f *fakeUserRepo) FindRefreshToken(token string) (*authdomain.RefreshToken, error) {
	return nil, nil
}
func (f *fakeUserRepo) DeleteRefreshToken(token string) error { return nil }

type fakeStateRepo struct {
	mu     sync.Mutex
	states map[string]*syncdomain.SchedulerState
}

func newFakeStateRepo() *fakeStateRepo {
	return &fakeStateRepo{states: make(map[string]*syncdomain.SchedulerState)}
}

func (f *fakeStateRepo) GetByUserID(userID string) (*syncdomain.SchedulerState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.states[userID]
	if !ok {
		st = &syncdomain.SchedulerState{
			ID:            "state-" + userID,
			UserID:        userID,
			Mode:          syncdomain.ModeInterval,
			IntervalHours: 1,
			DailyTime:     "09:00",
		}
		f.states[userID] = st
	}
	return st, nil
}

func (f *fakeStateRepo) ListEnabled() ([]*syncdomain.SchedulerState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*syncdomain.SchedulerState
	for _, st := range f.states {
		if st.Enabled {
			out = append(out, st)
		}
	}
	return out, nil
}

func (f *fakeStateRepo) Save(state *syncdomain.SchedulerState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[state.UserID] = state
	return nil
}

func (f *fakeStateRepo) MarkTriggered(userID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.states[userID]
	if !ok {
		return errors.New("no state")
	}
	triggered := at
	st.LastTriggeredAt = &triggered
	st.LastTriggeredDay = at.Format("2006-01-02")
	return nil
}

type fakeMailSource struct {
	mu       sync.Mutex
	messages []*emaildomain.InboxMessage
	err      error
	calls    int
	terms    []string
}

func (f *fakeMailSource) Search(ctx context.Context, accessToken, refreshToken string, terms []string, lookbackMonths int, onTokenRefresh emaildomain.TokenUpdateFunc) ([]*emaildomain.InboxMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.terms = terms
	return f.messages, f.err
}

func (f *fakeMailSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingEvents struct {
	mu    sync.Mutex
	types []string
}

func (r *recordingEvents) SendToUser(userID string, eventType string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, eventType)
}

func (r *recordingEvents) has(eventType string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.types {
		if t == eventType {
			return true
		}
	}
	return false
}

// blockingAnalyzer parks AnalyzeEmail until released, so a run can be held
// open while the test pokes at concurrent state.
type blockingAnalyzer struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingAnalyzer() *blockingAnalyzer {
	return &blockingAnalyzer{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (b *blockingAnalyzer) AnalyzeEmail(ctx context.Context, emailText string, candidateNames []string, preferredName string) (*ai.EmailAnalysis, error) {
	b.once.Do(func() { close(b.started) })
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return &ai.EmailAnalysis{Category: "Information Only", Urgency: "Low"}, nil
}

func (b *blockingAnalyzer) GenerateDraftReply(ctx context.Context, subject, sender, summary string) (string, error) {
	return "", errors.New("not implemented")
}

// --- harness ---------------------------------------------------------------

type syncFixture struct {
	u         *syncUsecase
	childRepo *fakeChildRepo
	emailRepo *fakeEmailRepo
	eventRepo *fakeEventRepo
	actRepo   *fakeActionRepo
	source    *fakeMailSource
	events    *recordingEvents
}

func newSyncFixture(children []*childdomain.Child, messages []*emaildomain.InboxMessage, analyzer ai.AnalyzerService) *syncFixture {
	f := &syncFixture{
		childRepo: &fakeChildRepo{children: children},
		emailRepo: &fakeEmailRepo{},
		eventRepo: &fakeEventRepo{},
		actRepo:   &fakeActionRepo{},
		source:    &fakeMailSource{messages: messages},
		events:    &recordingEvents{},
	}
	userRepo := &fakeUserRepo{user: &authdomain.User{
		ID:          testUserID,
		Provider:    "google",
		AccessToken: "token",
	}}
	cfg := &config.Config{SyncLookbackMonths: 2, SyncMaxResults: 50}

	f.u = NewSyncUsecase(
		f.childRepo, f.emailRepo, f.eventRepo, f.actRepo,
		userRepo, newFakeStateRepo(),
		f.source, nil, analyzer, f.events, cfg,
	).(*syncUsecase)
	return f
}

// runOnce drives a full pass synchronously and returns its summary
func runOnce(t *testing.T, f *syncFixture) RunSummary {
	t.Helper()
	run, ok := f.u.beginRun(testUserID)
	if !ok {
		t.Fatal("beginRun refused while idle")
	}
	f.u.execute(run, testUserID)

	history := f.u.History(testUserID)
	if len(history) == 0 {
		t.Fatal("no run summary recorded")
	}
	return history[0]
}

func inboxMessages(n int) []*emaildomain.InboxMessage {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	msgs := make([]*emaildomain.InboxMessage, n)
	for i := range msgs {
		msgs[i] = &emaildomain.InboxMessage{
			RawID:      fmt.Sprintf("raw-%d", i),
			Sender:     "office@oakwood.edu",
			Subject:    fmt.Sprintf("Newsletter %d", i),
			Body:       "Weekly update",
			ReceivedAt: base.Add(time.Duration(i) * time.Hour),
		}
	}
	return msgs
}

// --- tests -----------------------------------------------------------------

func TestSyncRerunSkipsAlreadyImportedEmails(t *testing.T) {
	children := []*childdomain.Child{child("c1", "Sam", "oakwood.edu")}
	analyzer := &fakeAnalyzer{analysis: &ai.EmailAnalysis{ChildName: "Sam", Category: "Information Only"}}
	f := newSyncFixture(children, inboxMessages(3), analyzer)

	first := runOnce(t, f)
	if first.Outcome != "completed" || first.ProcessedCount != 3 {
		t.Fatalf("first run = %+v, want completed with 3 processed", first)
	}

	second := runOnce(t, f)
	if second.Outcome != "completed" {
		t.Errorf("second run outcome = %q, want completed", second.Outcome)
	}
	if second.ProcessedCount != 0 || second.SkippedCount != 3 {
		t.Errorf("second run processed=%d skipped=%d, want 0/3", second.ProcessedCount, second.SkippedCount)
	}
	if got := f.emailRepo.count(); got != 3 {
		t.Errorf("persisted emails = %d, want 3", got)
	}
}

func TestSyncCancellationKeepsCompletedWork(t *testing.T) {
	children := []*childdomain.Child{child("c1", "Sam", "oakwood.edu")}
	analyzer := &fakeAnalyzer{analysis: &ai.EmailAnalysis{ChildName: "Sam", Category: "Information Only"}}
	f := newSyncFixture(children, inboxMessages(5), analyzer)

	// Cancel mid-run, right after the third email lands.
	f.emailRepo.onSaved = func(saved int) {
		if saved == 3 {
			f.u.CancelSync(testUserID)
		}
	}

	summary := runOnce(t, f)
	if summary.Outcome != "cancelled" {
		t.Fatalf("outcome = %q, want cancelled", summary.Outcome)
	}
	if summary.ProcessedCount != 3 {
		t.Errorf("processed = %d, want 3", summary.ProcessedCount)
	}
	if got := f.emailRepo.count(); got != 3 {
		t.Errorf("persisted emails = %d, want 3 kept after cancel", got)
	}
	if !f.events.has("sync_cancelled") {
		t.Error("sync_cancelled event not emitted")
	}
	if f.u.IsRunning(testUserID) {
		t.Error("engine not back to idle after cancel")
	}
}

func TestSyncAtMostOneRunPerUser(t *testing.T) {
	children := []*childdomain.Child{child("c1", "Sam", "oakwood.edu")}
	analyzer := newBlockingAnalyzer()
	f := newSyncFixture(children, inboxMessages(1), analyzer)

	if !f.u.StartSync(testUserID) {
		t.Fatal("first StartSync refused")
	}

	select {
	case <-analyzer.started:
	case <-time.After(2 * time.Second):
		t.Fatal("run never reached the classifier")
	}

	if f.u.StartSync(testUserID) {
		t.Error("second StartSync accepted while a run is active")
	}
	if got := f.source.callCount(); got != 1 {
		t.Errorf("mail source called %d times, want 1", got)
	}

	f.u.mu.Lock()
	done := f.u.users[testUserID].run.done
	f.u.mu.Unlock()

	close(analyzer.release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not finish after release")
	}

	if f.u.IsRunning(testUserID) {
		t.Error("still running after completion")
	}
	if !f.u.StartSync(testUserID) {
		t.Error("StartSync refused after previous run finished")
	}
}

func TestSyncDedupRequiresExactTimestamp(t *testing.T) {
	children := []*childdomain.Child{child("c1", "Sam", "oakwood.edu")}
	analyzer := &fakeAnalyzer{analysis: &ai.EmailAnalysis{ChildName: "Sam", Category: "Information Only"}}

	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	messages := []*emaildomain.InboxMessage{
		{RawID: "a", Sender: "office@oakwood.edu", Subject: "Reminder", Body: "x", ReceivedAt: at},
		{RawID: "b", Sender: "office@oakwood.edu", Subject: "Reminder", Body: "x", ReceivedAt: at.Add(time.Second)},
	}
	f := newSyncFixture(children, messages, analyzer)

	summary := runOnce(t, f)
	if summary.ProcessedCount != 2 {
		t.Errorf("processed = %d, want 2 (same subject, different timestamps)", summary.ProcessedCount)
	}
}

func TestSyncNoRulesFinishesCleanly(t *testing.T) {
	children := []*childdomain.Child{{ID: "c1", Name: "Sam"}} // no rules
	f := newSyncFixture(children, inboxMessages(3), &fakeAnalyzer{})

	summary := runOnce(t, f)
	if summary.Outcome != "completed" {
		t.Errorf("outcome = %q, want completed", summary.Outcome)
	}
	if got := f.source.callCount(); got != 0 {
		t.Errorf("mail source called %d times, want 0 with no rules", got)
	}
	if f.u.IsRunning(testUserID) {
		t.Error("engine not idle after no-rules run")
	}
}

func TestSyncFetchFailureEndsRun(t *testing.T) {
	children := []*childdomain.Child{child("c1", "Sam", "oakwood.edu")}
	f := newSyncFixture(children, nil, &fakeAnalyzer{})
	f.source.err = errors.New("gmail: 503")

	summary := runOnce(t, f)
	if summary.Outcome != "failed" {
		t.Errorf("outcome = %q, want failed", summary.Outcome)
	}
	if !f.events.has("sync_failed") {
		t.Error("sync_failed event not emitted")
	}
	if f.u.IsRunning(testUserID) {
		t.Error("engine not idle after failed run")
	}
}

func TestSyncPerMessageErrorsAreIsolated(t *testing.T) {
	children := []*childdomain.Child{child("c1", "Sam", "oakwood.edu")}
	analyzer := &fakeAnalyzer{analysis: &ai.EmailAnalysis{ChildName: "Sam", Category: "Information Only"}}
	f := newSyncFixture(children, inboxMessages(4), analyzer)
	f.emailRepo.failFor = map[string]bool{"Newsletter 1": true}

	summary := runOnce(t, f)
	if summary.Outcome != "completed" {
		t.Errorf("outcome = %q, want completed despite one bad message", summary.Outcome)
	}
	if summary.ProcessedCount != 3 || summary.ErrorCount != 1 {
		t.Errorf("processed=%d errors=%d, want 3/1", summary.ProcessedCount, summary.ErrorCount)
	}
}

func TestSyncExtractsEventsAndActions(t *testing.T) {
	children := []*childdomain.Child{child("c1", "Sam", "oakwood.edu")}
	analyzer := &fakeAnalyzer{analysis: &ai.EmailAnalysis{
		ChildName: "Sam",
		Category:  "Event - Parent Attendance",
		Urgency:   "High",
		Summary:   "Parents evening on Thursday",
		Events:    []ai.ExtractedEvent{{Title: "Parents Evening", Date: "2026-03-12", Time: "18:00"}},
		Actions:   []ai.ExtractedAction{{Title: "Book a slot", Deadline: "2026-03-11"}},
	}}
	f := newSyncFixture(children, inboxMessages(1), analyzer)

	runOnce(t, f)

	events, _ := f.eventRepo.ListByUser(testUserID)
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].Category != emaildomain.CategoryEventParent {
		t.Errorf("event category = %q, want parent attendance", events[0].Category)
	}
	if events[0].ChildID != "c1" {
		t.Errorf("event child = %q, want c1", events[0].ChildID)
	}

	actions, _ := f.actRepo.ListByUser(testUserID)
	if len(actions) != 1 {
		t.Fatalf("actions = %d, want 1", len(actions))
	}
	if actions[0].Urgency != emaildomain.UrgencyHigh {
		t.Errorf("action urgency = %q, want High", actions[0].Urgency)
	}
	if !f.events.has("event_created") || !f.events.has("action_created") {
		t.Error("projection events not emitted")
	}
}

func TestSyncClassifierFailureStoresUnprocessedEmail(t *testing.T) {
	children := []*childdomain.Child{child("c1", "Sam", "oakwood.edu")}
	analyzer := &fakeAnalyzer{err: errors.New("quota exceeded")}
	f := newSyncFixture(children, inboxMessages(1), analyzer)

	summary := runOnce(t, f)
	if summary.ProcessedCount != 1 {
		t.Fatalf("processed = %d, want 1", summary.ProcessedCount)
	}

	f.emailRepo.mu.Lock()
	stored := f.emailRepo.emails[0]
	f.emailRepo.mu.Unlock()

	if stored.IsProcessed {
		t.Error("email marked processed despite classifier failure")
	}
	if stored.ChildID != "c1" {
		t.Errorf("email child = %q, want rule-matched child kept", stored.ChildID)
	}
	if stored.AttributionSource != string(SourceRuleExact) {
		t.Errorf("attribution source = %q, want %q", stored.AttributionSource, SourceRuleExact)
	}
}

func TestSyncHistoryIsBounded(t *testing.T) {
	children := []*childdomain.Child{{ID: "c1", Name: "Sam"}} // no rules, instant runs
	f := newSyncFixture(children, nil, &fakeAnalyzer{})

	for i := 0; i < historyCap+5; i++ {
		runOnce(t, f)
	}

	history := f.u.History(testUserID)
	if len(history) != historyCap {
		t.Errorf("history length = %d, want %d", len(history), historyCap)
	}
	for i := 1; i < len(history); i++ {
		if history[i].FinishedAt.After(history[i-1].FinishedAt) {
			t.Fatal("history not ordered most recent first")
		}
	}
}

func TestUpdateScheduleClearsDayBookkeeping(t *testing.T) {
	f := newSyncFixture(nil, nil, &fakeAnalyzer{})

	state, err := f.u.UpdateSchedule(testUserID, ScheduleUpdate{
		Enabled: true, Mode: "daily", IntervalHours: 1, DailyTime: "07:30",
	})
	if err != nil {
		t.Fatalf("UpdateSchedule: %v", err)
	}
	if !state.Enabled || state.Mode != syncdomain.ModeDaily || state.DailyTime != "07:30" {
		t.Fatalf("state = %+v, want enabled daily at 07:30", state)
	}

	// Simulate a trigger earlier today, then switch modes: the day marker
	// must be cleared so the new mode can fire today.
	state.LastTriggeredDay = "2026-03-10"

	state, err = f.u.UpdateSchedule(testUserID, ScheduleUpdate{
		Enabled: true, Mode: "interval", IntervalHours: 2, DailyTime: "07:30",
	})
	if err != nil {
		t.Fatalf("UpdateSchedule: %v", err)
	}
	if state.LastTriggeredDay != "" {
		t.Errorf("LastTriggeredDay = %q, want cleared on mode switch", state.LastTriggeredDay)
	}

	_, err = f.u.UpdateSchedule(testUserID, ScheduleUpdate{
		Enabled: true, Mode: "daily", IntervalHours: 1, DailyTime: "25:99",
	})
	if err == nil {
		t.Error("UpdateSchedule accepted malformed daily time")
	}
}
