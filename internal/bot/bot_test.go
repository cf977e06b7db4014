package bot

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/pulse-bot/internal/domain"
	"github.com/ignite/pulse-bot/internal/messenger"
	"github.com/ignite/pulse-bot/internal/service/audience"
	"github.com/ignite/pulse-bot/internal/service/survey"
)

// fakeGateway records outbound Slack traffic.
type fakeGateway struct {
	ephemerals []string
	dms        []string
	modals     []slack.ModalViewRequest
	threadTS   string
}

func (f *fakeGateway) PostEphemeralContext(_ context.Context, channelID, userID string, options ...slack.MsgOption) (string, error) {
	_, values, _ := slack.UnsafeApplyMsgOptions("tok", channelID, "https://slack.test/api/", options...)
	f.ephemerals = append(f.ephemerals, values.Get("text"))
	return "ts", nil
}

func (f *fakeGateway) PostMessageContext(_ context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	_, values, _ := slack.UnsafeApplyMsgOptions("tok", channelID, "https://slack.test/api/", options...)
	f.dms = append(f.dms, values.Get("text"))
	f.threadTS = values.Get("thread_ts")
	return channelID, "ts", nil
}

func (f *fakeGateway) OpenViewContext(_ context.Context, _ string, view slack.ModalViewRequest) (*slack.ViewResponse, error) {
	f.modals = append(f.modals, view)
	return &slack.ViewResponse{}, nil
}

type fakeSurveySvc struct {
	created    []survey.CreateInput
	surveys    map[int64]*domain.Survey
	submitted  []string
	submitErr  error
	duplicate  bool
	listCalls  [][]int64
	closedIDs  []int64
}

func (f *fakeSurveySvc) Create(_ context.Context, in survey.CreateInput) (*domain.Survey, error) {
	f.created = append(f.created, in)
	return &domain.Survey{ID: 1, Name: in.Name, Question: in.Question, IsActive: true}, nil
}

func (f *fakeSurveySvc) Get(_ context.Context, id int64) (*domain.Survey, error) {
	sv, ok := f.surveys[id]
	if !ok {
		return nil, survey.ErrNotFound
	}
	return sv, nil
}

func (f *fakeSurveySvc) List(_ context.Context) ([]domain.Survey, error) {
	var out []domain.Survey
	for _, sv := range f.surveys {
		out = append(out, *sv)
	}
	return out, nil
}

func (f *fakeSurveySvc) Close(_ context.Context, id int64) (*domain.Survey, error) {
	sv, ok := f.surveys[id]
	if !ok {
		return nil, survey.ErrNotFound
	}
	if !sv.IsActive {
		return nil, survey.ErrSurveyClosed
	}
	sv.IsActive = false
	f.closedIDs = append(f.closedIDs, id)
	return sv, nil
}

func (f *fakeSurveySvc) UpdateModerationLists(_ context.Context, id int64, include, exclude []int64) (*domain.Survey, error) {
	f.listCalls = append(f.listCalls, include, exclude)
	return &domain.Survey{ID: id, Name: "Check-in", IsActive: true, IncludeListIDs: include, ExcludeListIDs: exclude}, nil
}

func (f *fakeSurveySvc) Submit(_ context.Context, surveyID int64, responder, _, answer string) (*survey.SubmitResult, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submitted = append(f.submitted, responder+":"+answer)
	return &survey.SubmitResult{
		Response: &domain.Response{SurveyID: surveyID, ResponderSlackID: responder, Answer: answer},
		Created:  !f.duplicate,
	}, nil
}

type fakeAudienceSvc struct {
	lists     map[string]*domain.AudienceList
	members   map[int64][]domain.ListMember
	deleteErr error
	addErr    error
}

func (f *fakeAudienceSvc) List(_ context.Context) ([]domain.AudienceList, error) {
	var out []domain.AudienceList
	for _, l := range f.lists {
		out = append(out, *l)
	}
	return out, nil
}

func (f *fakeAudienceSvc) GetByName(_ context.Context, name string) (*domain.AudienceList, error) {
	if l, ok := f.lists[name]; ok {
		return l, nil
	}
	return nil, audience.ErrNotFound
}

func (f *fakeAudienceSvc) Create(_ context.Context, name, description string) (*domain.AudienceList, error) {
	if _, ok := f.lists[name]; ok {
		return nil, audience.ErrDuplicateName
	}
	l := &domain.AudienceList{ID: int64(len(f.lists) + 1), Name: name, Description: description}
	f.lists[name] = l
	return l, nil
}

func (f *fakeAudienceSvc) Delete(_ context.Context, id int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for name, l := range f.lists {
		if l.ID == id {
			delete(f.lists, name)
			return nil
		}
	}
	return audience.ErrNotFound
}

func (f *fakeAudienceSvc) Members(_ context.Context, listID int64) ([]domain.ListMember, error) {
	return f.members[listID], nil
}

func (f *fakeAudienceSvc) AddMember(_ context.Context, listID int64, slackID, userName string) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.members[listID] = append(f.members[listID], domain.ListMember{ListID: listID, SlackID: slackID, UserName: userName})
	return nil
}

func (f *fakeAudienceSvc) RemoveMember(_ context.Context, listID int64, slackID string) error {
	for i, m := range f.members[listID] {
		if m.SlackID == slackID {
			f.members[listID] = append(f.members[listID][:i], f.members[listID][i+1:]...)
			return nil
		}
	}
	return audience.ErrNotFound
}

type fakeUserSvc struct{ admins map[string]bool }

func (f *fakeUserSvc) IsAdmin(_ context.Context, slackID string) (bool, error) {
	return f.admins[slackID], nil
}

func (f *fakeUserSvc) GreetingName(_ context.Context, slackID string) string {
	return "name-" + slackID
}

type fakeLedgerSvc struct{ unanswered map[int64]map[string]string }

func (f *fakeLedgerSvc) Unanswered(_ context.Context, id int64) (map[string]string, error) {
	return f.unanswered[id], nil
}

type fakeDelivery struct {
	sent int
	err  error
	ids  []int64
}

func (f *fakeDelivery) SendImmediate(_ context.Context, id int64) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.ids = append(f.ids, id)
	return f.sent, nil
}

type fakeRoster struct{ n int }

func (f *fakeRoster) Sync(_ context.Context) (int, error) { return f.n, nil }

type harness struct {
	deps     *Deps
	gateway  *fakeGateway
	surveys  *fakeSurveySvc
	audience *fakeAudienceSvc
	delivery *fakeDelivery
}

func newHarness() *harness {
	gw := &fakeGateway{}
	surveys := &fakeSurveySvc{surveys: map[int64]*domain.Survey{}}
	aud := &fakeAudienceSvc{lists: map[string]*domain.AudienceList{}, members: map[int64][]domain.ListMember{}}
	delivery := &fakeDelivery{}
	return &harness{
		deps: &Deps{
			Client:   gw,
			Surveys:  surveys,
			Audience: aud,
			Users:    &fakeUserSvc{admins: map[string]bool{"U_ADMIN": true}},
			Ledger:   &fakeLedgerSvc{unanswered: map[int64]map[string]string{}},
			Engine:   delivery,
			Roster:   &fakeRoster{n: 7},
		},
		gateway:  gw,
		surveys:  surveys,
		audience: aud,
		delivery: delivery,
	}
}

func slashFrom(user, command, text string) slack.SlashCommand {
	return slack.SlashCommand{Command: command, Text: text, UserID: user, ChannelID: "C1", TriggerID: "trig"}
}

func TestRequireAdminRejectsNonAdmin(t *testing.T) {
	h := newHarness()
	err := handleSurveyCreateCommand(context.Background(), h.deps, slashFrom("U_PLEB", cmdSurveyCreate, ""))
	require.NoError(t, err)
	assert.Empty(t, h.gateway.modals, "modal must not open for non-admins")
	require.Len(t, h.gateway.ephemerals, 1)
	assert.Contains(t, h.gateway.ephemerals[0], "admins only")
}

func TestSurveyCreateCommandOpensModal(t *testing.T) {
	h := newHarness()
	h.audience.lists["all"] = &domain.AudienceList{ID: 1, Name: "all"}

	err := handleSurveyCreateCommand(context.Background(), h.deps, slashFrom("U_ADMIN", cmdSurveyCreate, ""))
	require.NoError(t, err)
	require.Len(t, h.gateway.modals, 1)
	assert.Equal(t, viewSurveyCreate, h.gateway.modals[0].CallbackID)
}

func viewState(values map[string]map[string]slack.BlockAction) *slack.ViewState {
	return &slack.ViewState{Values: values}
}

func TestSurveyCreateSubmit(t *testing.T) {
	h := newHarness()
	cb := &slack.InteractionCallback{
		User: slack.User{ID: "U_ADMIN", Name: "admin"},
		View: slack.View{
			CallbackID: viewSurveyCreate,
			State: viewState(map[string]map[string]slack.BlockAction{
				blockName:     {inputName: {Value: "Office check-in"}},
				blockQuestion: {inputQuestion: {Value: "Where are you?"}},
				blockInterval: {inputInterval: {SelectedOption: slack.OptionBlockObject{Value: "3600"}}},
				blockInclude: {inputInclude: {SelectedOptions: []slack.OptionBlockObject{
					{Value: "1"}, {Value: "2"},
				}}},
				blockExclude: {inputExclude: {SelectedOptions: []slack.OptionBlockObject{
					{Value: "3"},
				}}},
			}),
		},
	}

	require.NoError(t, handleSurveyCreateSubmit(context.Background(), h.deps, cb))
	require.Len(t, h.surveys.created, 1)
	assert.Equal(t, "Office check-in", h.surveys.created[0].Name)
	assert.Equal(t, time.Hour, h.surveys.created[0].ReminderInterval)
	require.Len(t, h.surveys.listCalls, 2)
	assert.Equal(t, []int64{1, 2}, h.surveys.listCalls[0])
	assert.Equal(t, []int64{3}, h.surveys.listCalls[1])
	require.Len(t, h.gateway.dms, 1)
	assert.Contains(t, h.gateway.dms[0], "is live")
}

func TestSurveyCreateSubmitRejectsBadInterval(t *testing.T) {
	h := newHarness()
	cb := &slack.InteractionCallback{
		User: slack.User{ID: "U_ADMIN", Name: "admin"},
		View: slack.View{
			CallbackID: viewSurveyCreate,
			State: viewState(map[string]map[string]slack.BlockAction{
				blockName:     {inputName: {Value: "Office check-in"}},
				blockQuestion: {inputQuestion: {Value: "Where are you?"}},
				blockInterval: {inputInterval: {SelectedOption: slack.OptionBlockObject{Value: "daily"}}},
			}),
		},
	}

	err := handleSurveyCreateSubmit(context.Background(), h.deps, cb)
	require.Error(t, err)
	assert.Empty(t, h.surveys.created, "no survey may be created from an unreadable cadence")
	require.Len(t, h.gateway.dms, 1)
	assert.Contains(t, h.gateway.dms[0], "failed")
}

func blockActionCallback(user, channel, value string) (*slack.InteractionCallback, *slack.BlockAction) {
	cb := &slack.InteractionCallback{
		User:    slack.User{ID: user, Name: "someone"},
		Channel: slack.Channel{},
	}
	cb.Channel.ID = channel
	return cb, &slack.BlockAction{Value: value}
}

func TestSurveyCloseIsIrreversibleFromUI(t *testing.T) {
	h := newHarness()
	h.surveys.surveys[5] = &domain.Survey{ID: 5, Name: "Check-in", IsActive: true}

	cb, action := blockActionCallback("U_ADMIN", "C1", "5")
	require.NoError(t, handleSurveyClose(context.Background(), h.deps, cb, action))
	assert.Equal(t, []int64{5}, h.surveys.closedIDs)

	// Second close reports the state instead of failing.
	require.NoError(t, handleSurveyClose(context.Background(), h.deps, cb, action))
	require.Len(t, h.gateway.ephemerals, 2)
	assert.Contains(t, h.gateway.ephemerals[1], "already closed")
}

func TestRemindNowReportsCount(t *testing.T) {
	h := newHarness()
	h.delivery.sent = 3

	cb, action := blockActionCallback("U_ADMIN", "C1", "5")
	require.NoError(t, handleSurveyRemindNow(context.Background(), h.deps, cb, action))
	assert.Equal(t, []int64{5}, h.delivery.ids)
	require.Len(t, h.gateway.ephemerals, 1)
	assert.Contains(t, h.gateway.ephemerals[0], "Sent 3")
}

func TestRemindNowOnClosedSurvey(t *testing.T) {
	h := newHarness()
	h.delivery.err = survey.ErrSurveyClosed

	cb, action := blockActionCallback("U_ADMIN", "C1", "5")
	require.NoError(t, handleSurveyRemindNow(context.Background(), h.deps, cb, action))
	require.Len(t, h.gateway.ephemerals, 1)
	assert.Contains(t, h.gateway.ephemerals[0], "closed")
}

func answerCallback(user, channel, surveyID, answer string) (*slack.InteractionCallback, *slack.BlockAction) {
	cb, action := blockActionCallback(user, channel, surveyID)
	cb.BlockActionState = &slack.BlockActionStates{
		Values: map[string]map[string]slack.BlockAction{
			messenger.AnswerBlockID: {messenger.AnswerInputActionID: {Value: answer}},
		},
	}
	cb.Message.Timestamp = "1700000000.000100"
	return cb, action
}

func TestAnswerSubmitRecordsAndConfirmsInThread(t *testing.T) {
	h := newHarness()
	cb, action := answerCallback("U2", "D2", "7", "working from home")

	require.NoError(t, handleAnswerSubmit(context.Background(), h.deps, cb, action))
	assert.Equal(t, []string{"U2:working from home"}, h.surveys.submitted)
	require.Len(t, h.gateway.dms, 1)
	assert.Contains(t, h.gateway.dms[0], "recorded")
	assert.Equal(t, "1700000000.000100", h.gateway.threadTS)
}

func TestAnswerSubmitDuplicateKeepsOriginal(t *testing.T) {
	h := newHarness()
	h.surveys.duplicate = true
	cb, action := answerCallback("U2", "D2", "7", "second answer")

	require.NoError(t, handleAnswerSubmit(context.Background(), h.deps, cb, action))
	require.Len(t, h.gateway.ephemerals, 1)
	assert.Contains(t, h.gateway.ephemerals[0], "already answered")
	assert.Empty(t, h.gateway.dms, "no new confirmation for a duplicate")
}

func TestAnswerSubmitEmptyAnswer(t *testing.T) {
	h := newHarness()
	h.surveys.submitErr = survey.ErrEmptyAnswer
	cb, action := answerCallback("U2", "D2", "7", "")

	require.NoError(t, handleAnswerSubmit(context.Background(), h.deps, cb, action))
	require.Len(t, h.gateway.ephemerals, 1)
	assert.Contains(t, h.gateway.ephemerals[0], "type an answer")
}

func TestUsersUpdate(t *testing.T) {
	h := newHarness()
	require.NoError(t, handleUsersUpdate(context.Background(), h.deps, slashFrom("U_ADMIN", cmdUsersUpdate, "")))
	require.Len(t, h.gateway.ephemerals, 1)
	assert.Contains(t, h.gateway.ephemerals[0], "7 active users")
}

func TestUsersListsCreateAndDuplicate(t *testing.T) {
	h := newHarness()

	require.NoError(t, handleUsersLists(context.Background(), h.deps,
		slashFrom("U_ADMIN", cmdUsersLists, "create engineering All engineers")))
	require.Contains(t, h.audience.lists, "engineering")
	assert.Equal(t, "All engineers", h.audience.lists["engineering"].Description)

	require.NoError(t, handleUsersLists(context.Background(), h.deps,
		slashFrom("U_ADMIN", cmdUsersLists, "create engineering")))
	assert.Contains(t, h.gateway.ephemerals[1], "already exists")
}

func TestUsersListsDeleteReferencedList(t *testing.T) {
	h := newHarness()
	h.audience.lists["engineering"] = &domain.AudienceList{ID: 4, Name: "engineering"}
	h.audience.deleteErr = audience.ErrListInUse

	require.NoError(t, handleUsersLists(context.Background(), h.deps,
		slashFrom("U_ADMIN", cmdUsersLists, "delete engineering")))
	require.Len(t, h.gateway.ephemerals, 1)
	assert.Contains(t, h.gateway.ephemerals[0], "cannot be deleted")
	assert.Contains(t, h.audience.lists, "engineering")
}

func TestUsersListsAddMemberByMention(t *testing.T) {
	h := newHarness()
	h.audience.lists["engineering"] = &domain.AudienceList{ID: 4, Name: "engineering"}

	require.NoError(t, handleUsersLists(context.Background(), h.deps,
		slashFrom("U_ADMIN", cmdUsersLists, "add engineering <@U42|riley>")))
	members := h.audience.members[4]
	require.Len(t, members, 1)
	assert.Equal(t, "U42", members[0].SlackID)
}

func TestParseUserMention(t *testing.T) {
	cases := map[string]string{
		"<@U123|riley>": "U123",
		"<@U123>":       "U123",
		"U123":          "U123",
		"W999":          "W999",
		"@riley":        "",
		"":              "",
	}
	for in, want := range cases {
		assert.Equal(t, want, parseUserMention(in), "input %q", in)
	}
}

func TestSelectedListIDsSkipsMalformed(t *testing.T) {
	values := map[string]map[string]slack.BlockAction{
		blockInclude: {inputInclude: {SelectedOptions: []slack.OptionBlockObject{
			{Value: "1"}, {Value: "junk"}, {Value: strconv.FormatInt(9, 10)},
		}}},
	}
	assert.Equal(t, []int64{1, 9}, selectedListIDs(values, blockInclude, inputInclude))
}
