package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/slack-go/slack"

	"github.com/ignite/pulse-bot/internal/domain"
	"github.com/ignite/pulse-bot/internal/pkg/logger"
	"github.com/ignite/pulse-bot/internal/service/audience"
)

// DefaultRosterInterval is how often the workspace roster is refreshed in
// the background. Admins can force a refresh at any time with the
// users update command.
const DefaultRosterInterval = 6 * time.Hour

// SlackDirectory is the slice of the Slack client the roster sync needs.
type SlackDirectory interface {
	GetUsersContext(ctx context.Context, options ...slack.GetUsersOption) ([]slack.User, error)
}

// UserStore persists workspace users.
type UserStore interface {
	Upsert(ctx context.Context, u *domain.User) error
}

// AudienceStore is the slice of the audience service the roster sync needs
// to maintain the built-in "all" list.
type AudienceStore interface {
	GetByName(ctx context.Context, name string) (*domain.AudienceList, error)
	Create(ctx context.Context, name, description string) (*domain.AudienceList, error)
	ReplaceMembers(ctx context.Context, listID int64, members []domain.ListMember) error
}

// RosterSync mirrors the Slack workspace roster into the local user table
// and rebuilds the "all" audience list. Bots and the Slackbot pseudo-user
// never enter the roster.
type RosterSync struct {
	slack    SlackDirectory
	users    UserStore
	audience AudienceStore
	interval time.Duration

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// NewRosterSync creates a roster sync with the default refresh interval.
func NewRosterSync(sd SlackDirectory, users UserStore, aud AudienceStore) *RosterSync {
	return &RosterSync{slack: sd, users: users, audience: aud, interval: DefaultRosterInterval}
}

// SetInterval overrides the background refresh interval.
func (r *RosterSync) SetInterval(d time.Duration) {
	if d > 0 {
		r.interval = d
	}
}

// Start begins the periodic refresh loop. The first refresh runs
// immediately so a fresh deployment has a roster before the first survey.
func (r *RosterSync) Start() error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("roster sync already running")
	}
	r.running = true
	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.mu.Unlock()

	logger.Info("roster sync starting", "interval", r.interval.String())

	r.wg.Add(1)
	go r.loop()
	return nil
}

// Stop gracefully stops the refresh loop.
func (r *RosterSync) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
	logger.Info("roster sync stopped")
}

func (r *RosterSync) loop() {
	defer r.wg.Done()

	if _, err := r.Sync(r.ctx); err != nil {
		logger.Error("initial roster sync failed", "error", err.Error())
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Sync(r.ctx); err != nil {
				logger.Error("roster sync failed", "error", err.Error())
			}
		}
	}
}

// Sync fetches the full workspace roster, upserts every human user, and
// replaces the membership of the "all" list with the active humans.
// Returns the number of active users in the rebuilt list.
func (r *RosterSync) Sync(ctx context.Context) (int, error) {
	all, err := r.slack.GetUsersContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch workspace users: %w", err)
	}

	var members []domain.ListMember
	for _, su := range all {
		if su.IsBot || su.ID == "USLACKBOT" {
			continue
		}
		u := &domain.User{
			SlackID:   su.ID,
			Username:  su.Name,
			RealName:  su.Profile.RealName,
			IsDeleted: su.Deleted,
		}
		if err := r.users.Upsert(ctx, u); err != nil {
			return 0, fmt.Errorf("upsert user %s: %w", su.ID, err)
		}
		if su.Deleted {
			continue
		}
		name := su.Profile.RealName
		if name == "" {
			name = su.Name
		}
		members = append(members, domain.ListMember{SlackID: su.ID, UserName: name})
	}

	list, err := r.audience.GetByName(ctx, domain.AllListName)
	if errors.Is(err, audience.ErrNotFound) {
		list, err = r.audience.Create(ctx, domain.AllListName, "Every active member of the workspace")
	}
	if err != nil {
		return 0, fmt.Errorf("ensure %q list: %w", domain.AllListName, err)
	}

	if err := r.audience.ReplaceMembers(ctx, list.ID, members); err != nil {
		return 0, fmt.Errorf("rebuild %q list: %w", domain.AllListName, err)
	}

	logger.Info("roster synced", "active_users", len(members))
	return len(members), nil
}
