// Package worker contains the background loops that keep surveys moving:
// the reminder engine and the roster refresher.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/pulse-bot/internal/domain"
	"github.com/ignite/pulse-bot/internal/pkg/distlock"
	"github.com/ignite/pulse-bot/internal/pkg/logger"
	"github.com/ignite/pulse-bot/internal/service/ledger"
	"github.com/ignite/pulse-bot/internal/service/survey"
)

const (
	// DefaultCheckInterval is how often the engine scans for due surveys.
	DefaultCheckInterval = 15 * time.Minute

	// tickTimeout bounds one full pass over all due surveys.
	tickTimeout = 5 * time.Minute
)

// SurveyStore is the slice of the survey service the engine needs.
type SurveyStore interface {
	Get(ctx context.Context, id int64) (*domain.Survey, error)
	ListDue(ctx context.Context, now time.Time) ([]domain.Survey, error)
	AdvanceReminderStatus(ctx context.Context, id int64, at time.Time) error
}

// AudienceResolver resolves a survey's moderation lists into a recipient set.
type AudienceResolver interface {
	Resolve(ctx context.Context, sv *domain.Survey) (map[string]struct{}, error)
}

// DeliveryLedger records and reports per-recipient delivery state.
type DeliveryLedger interface {
	RecordSent(ctx context.Context, surveyID int64, receiverSlackID, messageTS string) error
	GetSent(ctx context.Context, surveyID int64) (map[string]string, error)
	GetResponded(ctx context.Context, surveyID int64) (map[string]struct{}, error)
}

// UserDirectory supplies display names for greetings.
type UserDirectory interface {
	GreetingName(ctx context.Context, slackID string) string
}

// Sender delivers survey prompts and threaded reminders.
type Sender interface {
	SendSurvey(ctx context.Context, recipientSlackID, greetingName string, sv *domain.Survey) (string, error)
	SendReminder(ctx context.Context, recipientSlackID, threadTS string, sv *domain.Survey, ordinal int) error
}

// ReminderEngine periodically scans active surveys, delivers the prompt to
// recipients who have never received it, and nudges recipients who received
// it but have not answered. One engine instance runs the scan at a time;
// the distributed lock keeps extra replicas idle.
type ReminderEngine struct {
	surveys  SurveyStore
	audience AudienceResolver
	ledger   DeliveryLedger
	users    UserDirectory
	sender   Sender

	lock          distlock.DistLock // optional; nil means single instance
	workerID      string
	checkInterval time.Duration
	now           func() time.Time

	// Stats
	surveysProcessed int64
	messagesSent     int64
	sendErrors       int64

	// Control
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// NewReminderEngine creates a reminder engine with the default 15 minute
// check interval.
func NewReminderEngine(surveys SurveyStore, audience AudienceResolver, dl DeliveryLedger, users UserDirectory, sender Sender) *ReminderEngine {
	return &ReminderEngine{
		surveys:       surveys,
		audience:      audience,
		ledger:        dl,
		users:         users,
		sender:        sender,
		workerID:      fmt.Sprintf("reminder-%s", uuid.NewString()[:8]),
		checkInterval: DefaultCheckInterval,
		now:           time.Now,
	}
}

// SetLock installs a distributed lock so only one replica runs the scan.
func (e *ReminderEngine) SetLock(lock distlock.DistLock) { e.lock = lock }

// SetCheckInterval overrides the scan interval.
func (e *ReminderEngine) SetCheckInterval(d time.Duration) {
	if d > 0 {
		e.checkInterval = d
	}
}

// Start begins the periodic scan loop.
func (e *ReminderEngine) Start() error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("reminder engine already running")
	}
	e.running = true
	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.mu.Unlock()

	logger.Info("reminder engine starting",
		"worker_id", e.workerID,
		"check_interval", e.checkInterval.String())

	e.wg.Add(1)
	go e.loop()
	return nil
}

// Stop gracefully stops the engine and waits for an in-flight scan.
func (e *ReminderEngine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.mu.Unlock()

	e.cancel()
	e.wg.Wait()
	logger.Info("reminder engine stopped",
		"worker_id", e.workerID,
		"surveys_processed", atomic.LoadInt64(&e.surveysProcessed),
		"messages_sent", atomic.LoadInt64(&e.messagesSent),
		"send_errors", atomic.LoadInt64(&e.sendErrors))
}

func (e *ReminderEngine) loop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.runTick()
		}
	}
}

// runTick executes one scan pass under the distributed lock.
func (e *ReminderEngine) runTick() {
	ctx, cancel := context.WithTimeout(e.ctx, tickTimeout)
	defer cancel()

	if e.lock != nil {
		ok, err := e.lock.Acquire(ctx)
		if err != nil {
			logger.Error("reminder lock acquire failed", "error", err.Error())
			return
		}
		if !ok {
			logger.Debug("reminder tick skipped, another instance holds the lock")
			return
		}
		defer func() {
			if err := e.lock.Release(ctx); err != nil {
				logger.Warn("reminder lock release failed", "error", err.Error())
			}
		}()
	}

	e.Tick(ctx)
}

// Tick scans all due surveys once. Each survey is processed independently:
// a failure in one survey is logged and never blocks the others.
func (e *ReminderEngine) Tick(ctx context.Context) {
	now := e.now()
	due, err := e.surveys.ListDue(ctx, now)
	if err != nil {
		logger.Error("list due surveys failed", "error", err.Error())
		return
	}
	if len(due) == 0 {
		return
	}

	logger.Info("reminder tick", "due_surveys", len(due))
	for i := range due {
		sv := &due[i]
		sent, err := e.ProcessSurvey(ctx, sv, now)
		if err != nil {
			logger.Error("survey processing failed",
				"survey_id", sv.ID,
				"survey_name", sv.Name,
				"error", err.Error())
			continue
		}
		atomic.AddInt64(&e.surveysProcessed, 1)
		if sent > 0 {
			logger.Info("survey processed",
				"survey_id", sv.ID,
				"survey_name", sv.Name,
				"messages_sent", sent)
		}
	}
}

// ProcessSurvey runs one delivery pass for a single survey:
//
//  1. re-read the survey and bail out if it is no longer active
//  2. resolve the current target audience from the moderation lists
//  3. send the initial prompt to targets with no sent record yet
//  4. send a threaded reminder to targets who received the prompt but
//     have not answered
//  5. advance the survey's reminder bookkeeping, but only when at least
//     one message actually went out
//
// Recipients who were sent the prompt earlier but have since left the
// target audience get nothing: both passes intersect with the current
// target set. Returns the number of messages sent.
func (e *ReminderEngine) ProcessSurvey(ctx context.Context, sv *domain.Survey, now time.Time) (int, error) {
	// The tick works off the ListDue snapshot, and a pass over many due
	// surveys can take minutes. Re-read right before sending so a survey
	// closed in the meantime stays silent.
	cur, err := e.surveys.Get(ctx, sv.ID)
	if err != nil {
		return 0, fmt.Errorf("refresh survey: %w", err)
	}
	if !cur.IsActive {
		logger.Info("survey closed since scan, skipping delivery",
			"survey_id", sv.ID, "survey_name", sv.Name)
		return 0, nil
	}
	sv = cur

	target, err := e.audience.Resolve(ctx, sv)
	if err != nil {
		return 0, fmt.Errorf("resolve audience: %w", err)
	}

	sentMap, err := e.ledger.GetSent(ctx, sv.ID)
	if err != nil {
		return 0, fmt.Errorf("load sent records: %w", err)
	}

	sent := 0
	sent += e.sendInitial(ctx, sv, target, sentMap)

	responded, err := e.ledger.GetResponded(ctx, sv.ID)
	if err != nil {
		return sent, fmt.Errorf("load responses: %w", err)
	}
	sent += e.sendReminders(ctx, sv, target, sentMap, responded)

	// A pass where every target already answered (or the audience is
	// empty) leaves the due timestamp alone so the next change in the
	// audience is picked up immediately.
	if sent > 0 {
		if err := e.surveys.AdvanceReminderStatus(ctx, sv.ID, now); err != nil {
			return sent, fmt.Errorf("advance reminder status: %w", err)
		}
	}
	return sent, nil
}

// sendInitial delivers the prompt to targets with no sent record. It does
// not mutate sentMap: recipients prompted in this pass must not also get a
// threaded reminder in the same pass. Failures are per-recipient: one bad
// DM never blocks the rest of the audience.
func (e *ReminderEngine) sendInitial(ctx context.Context, sv *domain.Survey, target map[string]struct{}, sentMap map[string]string) int {
	var fresh []string
	for uid := range target {
		if _, ok := sentMap[uid]; !ok {
			fresh = append(fresh, uid)
		}
	}
	sort.Strings(fresh)

	sent := 0
	for _, uid := range fresh {
		name := e.users.GreetingName(ctx, uid)
		ts, err := e.sender.SendSurvey(ctx, uid, name, sv)
		if err != nil {
			atomic.AddInt64(&e.sendErrors, 1)
			logger.Error("initial send failed",
				"survey_id", sv.ID, "receiver", uid, "error", err.Error())
			continue
		}
		if err := e.ledger.RecordSent(ctx, sv.ID, uid, ts); err != nil {
			// A concurrent pass already recorded this recipient. The
			// message went out either way, so count it and move on.
			if errors.Is(err, ledger.ErrDuplicateSend) {
				logger.Warn("sent record already exists",
					"survey_id", sv.ID, "receiver", uid)
			} else {
				atomic.AddInt64(&e.sendErrors, 1)
				logger.Error("record sent failed",
					"survey_id", sv.ID, "receiver", uid, "error", err.Error())
			}
		}
		sent++
		atomic.AddInt64(&e.messagesSent, 1)
	}
	return sent
}

// sendReminders nudges everyone who received the prompt, has not answered,
// and is still in the target audience. Reminders thread under the original
// prompt so a user's DM does not fill up with repeats.
func (e *ReminderEngine) sendReminders(ctx context.Context, sv *domain.Survey, target map[string]struct{}, sentMap map[string]string, responded map[string]struct{}) int {
	var unanswered []string
	for uid := range sentMap {
		if _, ok := responded[uid]; ok {
			continue
		}
		if _, ok := target[uid]; !ok {
			continue
		}
		unanswered = append(unanswered, uid)
	}
	sort.Strings(unanswered)

	ordinal := sv.RemindersSent + 1
	sent := 0
	for _, uid := range unanswered {
		if err := e.sender.SendReminder(ctx, uid, sentMap[uid], sv, ordinal); err != nil {
			atomic.AddInt64(&e.sendErrors, 1)
			logger.Error("reminder send failed",
				"survey_id", sv.ID, "receiver", uid, "error", err.Error())
			continue
		}
		sent++
		atomic.AddInt64(&e.messagesSent, 1)
	}
	return sent
}

// SendImmediate runs a delivery pass for one survey right now, skipping the
// due check. Command handlers use it for the "remind now" action. The
// survey must still be active.
func (e *ReminderEngine) SendImmediate(ctx context.Context, surveyID int64) (int, error) {
	sv, err := e.surveys.Get(ctx, surveyID)
	if err != nil {
		return 0, err
	}
	if !sv.IsActive {
		return 0, survey.ErrSurveyClosed
	}
	return e.ProcessSurvey(ctx, sv, e.now())
}
