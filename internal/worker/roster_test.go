package worker

import (
	"context"
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/pulse-bot/internal/domain"
	"github.com/ignite/pulse-bot/internal/service/audience"
)

type fakeSlackDirectory struct{ users []slack.User }

func (f *fakeSlackDirectory) GetUsersContext(_ context.Context, _ ...slack.GetUsersOption) ([]slack.User, error) {
	return f.users, nil
}

type fakeUserStore struct{ upserted []domain.User }

func (f *fakeUserStore) Upsert(_ context.Context, u *domain.User) error {
	f.upserted = append(f.upserted, *u)
	return nil
}

type fakeAudienceStore struct {
	lists    map[string]*domain.AudienceList
	replaced map[int64][]domain.ListMember
	nextID   int64
}

func (f *fakeAudienceStore) GetByName(_ context.Context, name string) (*domain.AudienceList, error) {
	if l, ok := f.lists[name]; ok {
		return l, nil
	}
	return nil, audience.ErrNotFound
}

func (f *fakeAudienceStore) Create(_ context.Context, name, description string) (*domain.AudienceList, error) {
	f.nextID++
	l := &domain.AudienceList{ID: f.nextID, Name: name, Description: description}
	f.lists[name] = l
	return l, nil
}

func (f *fakeAudienceStore) ReplaceMembers(_ context.Context, listID int64, members []domain.ListMember) error {
	f.replaced[listID] = members
	return nil
}

func slackUser(id, name, realName string, bot, deleted bool) slack.User {
	u := slack.User{ID: id, Name: name, IsBot: bot, Deleted: deleted}
	u.Profile.RealName = realName
	return u
}

func TestSyncSkipsBotsAndSlackbot(t *testing.T) {
	sd := &fakeSlackDirectory{users: []slack.User{
		slackUser("U1", "riley", "Riley R", false, false),
		slackUser("B1", "deploybot", "Deploy Bot", true, false),
		slackUser("USLACKBOT", "slackbot", "Slackbot", false, false),
	}}
	users := &fakeUserStore{}
	aud := &fakeAudienceStore{lists: map[string]*domain.AudienceList{}, replaced: map[int64][]domain.ListMember{}}

	n, err := NewRosterSync(sd, users, aud).Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, users.upserted, 1)
	assert.Equal(t, "U1", users.upserted[0].SlackID)
}

func TestSyncCreatesAllListWhenMissing(t *testing.T) {
	sd := &fakeSlackDirectory{users: []slack.User{
		slackUser("U1", "riley", "Riley R", false, false),
		slackUser("U2", "casey", "", false, false),
	}}
	users := &fakeUserStore{}
	aud := &fakeAudienceStore{lists: map[string]*domain.AudienceList{}, replaced: map[int64][]domain.ListMember{}}

	_, err := NewRosterSync(sd, users, aud).Sync(context.Background())
	require.NoError(t, err)

	list, ok := aud.lists[domain.AllListName]
	require.True(t, ok, "the all list must be created on first sync")
	members := aud.replaced[list.ID]
	require.Len(t, members, 2)
	assert.Equal(t, "Riley R", members[0].UserName)
	assert.Equal(t, "casey", members[1].UserName, "username is the fallback when real name is empty")
}

func TestSyncDropsDeactivatedUsersFromAllList(t *testing.T) {
	sd := &fakeSlackDirectory{users: []slack.User{
		slackUser("U1", "riley", "Riley R", false, false),
		slackUser("U2", "gone", "Gone G", false, true),
	}}
	users := &fakeUserStore{}
	aud := &fakeAudienceStore{
		lists:    map[string]*domain.AudienceList{domain.AllListName: {ID: 9, Name: domain.AllListName}},
		replaced: map[int64][]domain.ListMember{},
	}

	n, err := NewRosterSync(sd, users, aud).Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// The deactivated user is still upserted so their flag flips locally.
	require.Len(t, users.upserted, 2)
	assert.True(t, users.upserted[1].IsDeleted)

	members := aud.replaced[9]
	require.Len(t, members, 1)
	assert.Equal(t, "U1", members[0].SlackID)
}
