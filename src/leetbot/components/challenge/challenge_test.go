package challenge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codetrack/leetcode-bot/src/leetbot/components/leetcode"
	"github.com/codetrack/leetcode-bot/src/shared/cmderr"
	"github.com/codetrack/leetcode-bot/src/shared/leet"
)

var testNow = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

type fakeStore struct {
	configs     map[string]*leet.GuildConfig
	members     map[string]*leet.Member
	questions   map[int]*leet.Question
	submissions map[int64]*leet.Submission
	completed   map[string][]string
	uncompleted map[string][]string

	configsErr     error
	deletedConfigs []string
	nextMemberID   uint64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		configs:     make(map[string]*leet.GuildConfig),
		members:     make(map[string]*leet.Member),
		questions:   make(map[int]*leet.Question),
		submissions: make(map[int64]*leet.Submission),
		completed:   make(map[string][]string),
		uncompleted: make(map[string][]string),
	}
}

func (s *fakeStore) addConfig(cfg leet.GuildConfig) *leet.GuildConfig {
	s.configs[cfg.GuildID] = &cfg
	return &cfg
}

func (s *fakeStore) addMember(guildID, userID string) *leet.Member {
	s.nextMemberID++
	m := &leet.Member{ID: s.nextMemberID, GuildID: guildID, UserID: userID}
	s.members[guildID+"|"+userID] = m
	return m
}

func (s *fakeStore) GuildConfig(guildID string) (*leet.GuildConfig, error) {
	cfg, ok := s.configs[guildID]
	if !ok {
		return nil, nil
	}
	copied := *cfg
	return &copied, nil
}

func (s *fakeStore) GuildConfigsWithChallengeOn() ([]leet.GuildConfig, error) {
	if s.configsErr != nil {
		return nil, s.configsErr
	}
	var out []leet.GuildConfig
	for _, cfg := range s.configs {
		if cfg.DailyChallengeOn {
			out = append(out, *cfg)
		}
	}
	return out, nil
}

func (s *fakeStore) SaveGuildConfig(cfg *leet.GuildConfig) error {
	copied := *cfg
	s.configs[cfg.GuildID] = &copied
	return nil
}

func (s *fakeStore) DeleteGuildConfig(guildID string) error {
	delete(s.configs, guildID)
	s.deletedConfigs = append(s.deletedConfigs, guildID)
	return nil
}

func (s *fakeStore) Member(guildID, userID string) (*leet.Member, error) {
	return s.members[guildID+"|"+userID], nil
}

func (s *fakeStore) MemberByID(id uint64) (*leet.Member, error) {
	for _, m := range s.members {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) CompletedUserIDs(guildID string, day time.Time) ([]string, error) {
	return s.completed[guildID], nil
}

func (s *fakeStore) UncompletedUserIDs(guildID string, day time.Time) ([]string, error) {
	return s.uncompleted[guildID], nil
}

func (s *fakeStore) Question(id int) (*leet.Question, error) {
	return s.questions[id], nil
}

func (s *fakeStore) SubmissionByID(id int64) (*leet.Submission, error) {
	return s.submissions[id], nil
}

func (s *fakeStore) RecordSubmission(q *leet.Question, sub *leet.Submission) error {
	if q != nil {
		s.questions[q.ID] = q
	}
	s.submissions[sub.SubmissionID] = sub
	return nil
}

type fakeAPI struct {
	daily      *leetcode.DailyChallenge
	dailyErr   error
	dailyCalls int

	details      map[int64]*leetcode.SubmissionDetail
	complexities map[int64]*leetcode.SubmissionComplexity
	detailErr    error
}

func (a *fakeAPI) DailyChallenge(ctx context.Context) (*leetcode.DailyChallenge, error) {
	a.dailyCalls++
	if a.dailyErr != nil {
		return nil, a.dailyErr
	}
	return a.daily, nil
}

func (a *fakeAPI) SubmissionDetail(ctx context.Context, guildID string, submissionID int64) (*leetcode.SubmissionDetail, *leetcode.SubmissionComplexity, error) {
	if a.detailErr != nil {
		return nil, nil, a.detailErr
	}
	return a.details[submissionID], a.complexities[submissionID], nil
}

type sentMessage struct {
	channelID string
	content   string
	embed     *discordgo.MessageEmbed
}

type fakeGateway struct {
	guildGone       bool
	missingRoles    map[string]bool
	missingChannels map[string]bool
	denySend        map[string]bool
	names           map[string]string

	sent []sentMessage
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		missingRoles:    make(map[string]bool),
		missingChannels: make(map[string]bool),
		denySend:        make(map[string]bool),
		names:           make(map[string]string),
	}
}

func (g *fakeGateway) GuildExists(guildID string) bool { return !g.guildGone }

func (g *fakeGateway) RoleExists(guildID, roleID string) bool { return !g.missingRoles[roleID] }

func (g *fakeGateway) ChannelExists(channelID string) bool { return !g.missingChannels[channelID] }

func (g *fakeGateway) CanSend(channelID string) bool { return !g.denySend[channelID] }

func (g *fakeGateway) SendMessage(channelID, content string) error {
	g.sent = append(g.sent, sentMessage{channelID: channelID, content: content})
	return nil
}

func (g *fakeGateway) SendEmbed(channelID string, embed *discordgo.MessageEmbed) error {
	g.sent = append(g.sent, sentMessage{channelID: channelID, embed: embed})
	return nil
}

func (g *fakeGateway) SendMessageEmbed(channelID, content string, embed *discordgo.MessageEmbed) error {
	g.sent = append(g.sent, sentMessage{channelID: channelID, content: content, embed: embed})
	return nil
}

func (g *fakeGateway) MemberDisplayName(guildID, userID string) (string, error) {
	if name, ok := g.names[userID]; ok {
		return name, nil
	}
	return "", errors.New("unknown member")
}

type fakeJobs struct {
	removed []string
}

func (j *fakeJobs) RemoveReminder(guildID string) error {
	j.removed = append(j.removed, guildID)
	return nil
}

type fakeGuard struct {
	locks map[string]bool
	cache map[string][]byte
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{locks: make(map[string]bool), cache: make(map[string][]byte)}
}

func (g *fakeGuard) key(jobID string, day time.Time) string {
	return jobID + ":" + day.Format("2006-01-02")
}

func (g *fakeGuard) AcquireDayLock(ctx context.Context, jobID string, day time.Time) (bool, error) {
	k := g.key(jobID, day)
	if g.locks[k] {
		return false, nil
	}
	g.locks[k] = true
	return true, nil
}

func (g *fakeGuard) ReleaseDayLock(ctx context.Context, jobID string, day time.Time) error {
	delete(g.locks, g.key(jobID, day))
	return nil
}

func (g *fakeGuard) CachedDaily(ctx context.Context, day time.Time) ([]byte, error) {
	return g.cache[day.Format("2006-01-02")], nil
}

func (g *fakeGuard) CacheDaily(ctx context.Context, day time.Time, payload []byte) error {
	g.cache[day.Format("2006-01-02")] = payload
	return nil
}

type fixture struct {
	store   *fakeStore
	api     *fakeAPI
	gateway *fakeGateway
	jobs    *fakeJobs
	guard   *fakeGuard
	orc     *Orchestrator
}

func newFixture() *fixture {
	f := &fixture{
		store:   newFakeStore(),
		api:     &fakeAPI{details: make(map[int64]*leetcode.SubmissionDetail), complexities: make(map[int64]*leetcode.SubmissionComplexity)},
		gateway: newFakeGateway(),
		jobs:    &fakeJobs{},
		guard:   newFakeGuard(),
	}
	f.orc = New(f.store, f.api, f.gateway, f.jobs, f.guard)
	f.orc.now = func() time.Time { return testNow }
	return f
}

func (f *fixture) withDaily(frontendID string) {
	f.api.daily = &leetcode.DailyChallenge{
		Date: testNow.Format("2006-01-02"),
		Link: "/problems/two-sum/",
		Question: leetcode.QuestionDetail{
			FrontendID: frontendID,
			Title:      "Two Sum",
			TitleSlug:  "two-sum",
			Difficulty: "Easy",
		},
	}
}

func (f *fixture) withDetail(id int64, questionID string, at time.Time, statusCode int) {
	f.api.details[id] = &leetcode.SubmissionDetail{
		Timestamp:  at.Unix(),
		StatusCode: statusCode,
		Question: leetcode.SubmissionQuestion{
			FrontendID: questionID,
			Title:      "Two Sum",
			TitleSlug:  "two-sum",
			Difficulty: "Easy",
		},
	}
}

func baseConfig(guildID string) leet.GuildConfig {
	return leet.GuildConfig{
		GuildID:               guildID,
		RoleID:                "role-" + guildID,
		Cookie:                "cookie",
		NotificationChannelID: "chan-" + guildID,
		DailyChallengeOn:      true,
		RemindTime:            "23:00:00",
		GuildTimezone:         "UTC",
		DailyChallengeDate:    utcMidnight(testNow),
	}
}

func requireKind(t *testing.T, err error, kind cmderr.Kind) *cmderr.Error {
	t.Helper()
	var tagged *cmderr.Error
	require.ErrorAs(t, err, &tagged)
	require.Equal(t, kind, tagged.Kind)
	return tagged
}

func TestExtractSubmissionID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "bare number", input: "123456789", want: 123456789},
		{name: "detail url", input: "https://leetcode.com/submissions/detail/123456789/", want: 123456789},
		{name: "problem submission url", input: "https://leetcode.com/problems/two-sum/submissions/99/", want: 99},
		{name: "first digit run wins", input: "abc12def34", want: 12},
		{name: "no digits", input: "no digits here", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractSubmissionID(tt.input)
			if tt.wantErr {
				requireKind(t, err, cmderr.Validation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSubmitRecordsAcceptedSubmission(t *testing.T) {
	f := newFixture()
	f.store.addConfig(baseConfig("g1"))
	member := f.store.addMember("g1", "u1")
	f.withDaily("1")
	f.withDetail(555, "1", testNow.Add(-time.Hour), leetcode.StatusAccepted)

	id, err := f.orc.Submit(context.Background(), "g1", "u1", "https://leetcode.com/submissions/detail/555/")
	require.NoError(t, err)
	assert.Equal(t, int64(555), id)

	sub := f.store.submissions[555]
	require.NotNil(t, sub)
	assert.Equal(t, member.ID, sub.MemberID)
	assert.Equal(t, 1, sub.QuestionID)

	q := f.store.questions[1]
	require.NotNil(t, q)
	assert.Equal(t, "two-sum", q.TitleSlug)
	assert.Equal(t, leet.DifficultyEasy, q.Difficulty)

	require.Len(t, f.gateway.sent, 1)
	assert.Equal(t, "chan-g1", f.gateway.sent[0].channelID)
	assert.Contains(t, f.gateway.sent[0].content, "<@u1>")
	assert.NotNil(t, f.gateway.sent[0].embed)
}

func TestSubmitRejectsWhenChallengeNotRunning(t *testing.T) {
	f := newFixture()
	cfg := baseConfig("g1")
	cfg.DailyChallengeOn = false
	f.store.addConfig(cfg)
	f.store.addMember("g1", "u1")

	_, err := f.orc.Submit(context.Background(), "g1", "u1", "123")
	requireKind(t, err, cmderr.Conflict)
	assert.Empty(t, f.store.submissions)
	assert.Zero(t, f.api.dailyCalls)
}

func TestSubmitRequiresInit(t *testing.T) {
	f := newFixture()
	_, err := f.orc.Submit(context.Background(), "g1", "u1", "123")
	requireKind(t, err, cmderr.NotFound)
}

func TestSubmitRequiresMembership(t *testing.T) {
	f := newFixture()
	f.store.addConfig(baseConfig("g1"))

	_, err := f.orc.Submit(context.Background(), "g1", "u1", "123")
	requireKind(t, err, cmderr.NotFound)
	assert.Zero(t, f.api.dailyCalls)
}

func TestSubmitChecksChannelBeforeRemoteCalls(t *testing.T) {
	f := newFixture()
	f.store.addConfig(baseConfig("g1"))
	f.store.addMember("g1", "u1")
	f.gateway.denySend["chan-g1"] = true

	_, err := f.orc.Submit(context.Background(), "g1", "u1", "123")
	requireKind(t, err, cmderr.Permission)
	assert.Zero(t, f.api.dailyCalls)
}

func TestSubmitRejectsWrongQuestion(t *testing.T) {
	f := newFixture()
	f.store.addConfig(baseConfig("g1"))
	f.store.addMember("g1", "u1")
	f.withDaily("57")
	f.withDetail(900, "42", testNow.Add(-time.Hour), leetcode.StatusAccepted)

	_, err := f.orc.Submit(context.Background(), "g1", "u1", "900")
	tagged := requireKind(t, err, cmderr.Validation)
	assert.Contains(t, tagged.Message, "42")
	assert.Contains(t, tagged.Message, "57")
	assert.Empty(t, f.store.submissions)
}

func TestSubmitRejectsStaleSubmission(t *testing.T) {
	f := newFixture()
	f.store.addConfig(baseConfig("g1"))
	f.store.addMember("g1", "u1")
	f.withDaily("1")
	f.withDetail(901, "1", testNow.Add(-36*time.Hour), leetcode.StatusAccepted)

	_, err := f.orc.Submit(context.Background(), "g1", "u1", "901")
	requireKind(t, err, cmderr.Validation)
	assert.Empty(t, f.store.submissions)
}

func TestSubmitRejectsNonAcceptedStatus(t *testing.T) {
	f := newFixture()
	f.store.addConfig(baseConfig("g1"))
	f.store.addMember("g1", "u1")
	f.withDaily("1")
	f.withDetail(902, "1", testNow.Add(-time.Hour), 11)

	_, err := f.orc.Submit(context.Background(), "g1", "u1", "902")
	tagged := requireKind(t, err, cmderr.Validation)
	assert.Contains(t, tagged.Message, "Wrong Answer")
	assert.Empty(t, f.store.submissions)
}

func TestSubmitRejectsDuplicateNamingClaimant(t *testing.T) {
	f := newFixture()
	f.store.addConfig(baseConfig("g1"))
	f.store.addMember("g1", "u1")
	claimant := f.store.addMember("g1", "u2")
	f.gateway.names["u2"] = "Alice"
	f.withDaily("1")
	f.withDetail(903, "1", testNow.Add(-time.Hour), leetcode.StatusAccepted)
	f.store.submissions[903] = &leet.Submission{SubmissionID: 903, MemberID: claimant.ID, QuestionID: 1}

	_, err := f.orc.Submit(context.Background(), "g1", "u1", "903")
	tagged := requireKind(t, err, cmderr.Conflict)
	assert.Contains(t, tagged.Message, "Alice")
}

func TestSubmitDuplicateWithMissingClaimant(t *testing.T) {
	f := newFixture()
	f.store.addConfig(baseConfig("g1"))
	f.store.addMember("g1", "u1")
	f.withDaily("1")
	f.withDetail(904, "1", testNow.Add(-time.Hour), leetcode.StatusAccepted)
	f.store.submissions[904] = &leet.Submission{SubmissionID: 904, MemberID: 999, QuestionID: 1}

	_, err := f.orc.Submit(context.Background(), "g1", "u1", "904")
	requireKind(t, err, cmderr.DataInconsistency)
}

func TestSubmitRejectsUnknownDifficulty(t *testing.T) {
	f := newFixture()
	f.store.addConfig(baseConfig("g1"))
	f.store.addMember("g1", "u1")
	f.withDaily("1")
	f.api.daily.Question.Difficulty = "Impossible"
	f.withDetail(905, "1", testNow.Add(-time.Hour), leetcode.StatusAccepted)

	_, err := f.orc.Submit(context.Background(), "g1", "u1", "905")
	requireKind(t, err, cmderr.DataInconsistency)
	assert.Empty(t, f.store.submissions)
}

func TestSubmitRemoteFailure(t *testing.T) {
	f := newFixture()
	f.store.addConfig(baseConfig("g1"))
	f.store.addMember("g1", "u1")
	f.api.dailyErr = leetcode.ErrRemoteUnavailable

	_, err := f.orc.Submit(context.Background(), "g1", "u1", "123")
	requireKind(t, err, cmderr.RemoteUnavailable)
}

func TestSubmitAuthExpired(t *testing.T) {
	f := newFixture()
	f.store.addConfig(baseConfig("g1"))
	f.store.addMember("g1", "u1")
	f.withDaily("1")
	f.api.detailErr = fmt.Errorf("wrapped: %w", leetcode.ErrAuthExpired)

	_, err := f.orc.Submit(context.Background(), "g1", "u1", "123")
	requireKind(t, err, cmderr.Permission)
}

func TestSubmitIgnoresCacheFromPreviousDay(t *testing.T) {
	f := newFixture()
	f.store.addConfig(baseConfig("g1"))
	f.store.addMember("g1", "u1")

	// Yesterday's challenge (question 1) sits in the cache under yesterday's
	// key, as if written just before midnight. Today's live challenge is
	// question 57.
	yesterday := testNow.AddDate(0, 0, -1)
	stale := &leetcode.DailyChallenge{
		Date:     yesterday.Format("2006-01-02"),
		Question: leetcode.QuestionDetail{FrontendID: "1", Title: "Two Sum", TitleSlug: "two-sum", Difficulty: "Easy"},
	}
	payload, err := json.Marshal(stale)
	require.NoError(t, err)
	require.NoError(t, f.guard.CacheDaily(context.Background(), utcMidnight(yesterday), payload))

	f.withDaily("57")
	f.withDetail(910, "1", yesterday, leetcode.StatusAccepted)

	_, err = f.orc.Submit(context.Background(), "g1", "u1", "910")
	requireKind(t, err, cmderr.Validation)
	assert.Empty(t, f.store.submissions)
	assert.Equal(t, 1, f.api.dailyCalls)
}

func TestDailyDiscardsCachedPayloadForWrongDate(t *testing.T) {
	f := newFixture()
	stale := &leetcode.DailyChallenge{
		Date:     testNow.AddDate(0, 0, -1).Format("2006-01-02"),
		Question: leetcode.QuestionDetail{FrontendID: "1"},
	}
	payload, err := json.Marshal(stale)
	require.NoError(t, err)
	require.NoError(t, f.guard.CacheDaily(context.Background(), utcMidnight(testNow), payload))
	f.withDaily("57")

	daily, err := f.orc.Daily(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "57", daily.Question.FrontendID)
	assert.Equal(t, 1, f.api.dailyCalls)
}

func TestStartOfDayAdvancesEnabledGuilds(t *testing.T) {
	f := newFixture()
	f.store.addConfig(baseConfig("g1"))
	f.store.addConfig(baseConfig("g2"))
	off := baseConfig("g3")
	off.DailyChallengeOn = false
	stale := testNow.AddDate(0, 0, -1)
	for _, cfg := range f.store.configs {
		cfg.DailyChallengeDate = utcMidnight(stale)
	}
	f.store.addConfig(off)
	f.store.configs["g3"].DailyChallengeDate = utcMidnight(stale)
	f.withDaily("1")

	require.NoError(t, f.orc.StartOfDay(context.Background()))

	today := utcMidnight(testNow)
	assert.True(t, f.store.configs["g1"].DailyChallengeDate.Equal(today))
	assert.True(t, f.store.configs["g2"].DailyChallengeDate.Equal(today))
	assert.True(t, f.store.configs["g3"].DailyChallengeDate.Equal(utcMidnight(stale)))

	// one announcement embed plus one invite per enabled guild
	assert.Len(t, f.gateway.sent, 4)
}

func TestStartOfDayFetchFailureIsAllOrNothing(t *testing.T) {
	f := newFixture()
	cfg := baseConfig("g1")
	cfg.DailyChallengeDate = utcMidnight(testNow.AddDate(0, 0, -1))
	f.store.addConfig(cfg)
	f.api.dailyErr = leetcode.ErrRemoteUnavailable

	require.Error(t, f.orc.StartOfDay(context.Background()))
	assert.True(t, f.store.configs["g1"].DailyChallengeDate.Equal(utcMidnight(testNow.AddDate(0, 0, -1))))
	assert.Empty(t, f.gateway.sent)

	// the failed run released its lock, so a retry can still run today
	f.api.dailyErr = nil
	f.withDaily("1")
	require.NoError(t, f.orc.StartOfDay(context.Background()))
	assert.True(t, f.store.configs["g1"].DailyChallengeDate.Equal(utcMidnight(testNow)))
}

func TestStartOfDayRunsOncePerDay(t *testing.T) {
	f := newFixture()
	f.store.addConfig(baseConfig("g1"))
	f.withDaily("1")

	require.NoError(t, f.orc.StartOfDay(context.Background()))
	before := len(f.gateway.sent)

	require.NoError(t, f.orc.StartOfDay(context.Background()))
	assert.Len(t, f.gateway.sent, before)
}

func TestStartOfDaySkipsMissingChannel(t *testing.T) {
	f := newFixture()
	f.store.addConfig(baseConfig("g1"))
	f.store.addConfig(baseConfig("g2"))
	f.gateway.missingChannels["chan-g1"] = true
	f.withDaily("1")

	require.NoError(t, f.orc.StartOfDay(context.Background()))

	today := utcMidnight(testNow)
	assert.True(t, f.store.configs["g1"].DailyChallengeDate.Equal(today))
	for _, msg := range f.gateway.sent {
		assert.Equal(t, "chan-g2", msg.channelID)
	}
}

func TestRemindRemovesStaleJob(t *testing.T) {
	f := newFixture()
	require.Error(t, f.orc.Remind(context.Background(), "g1"))
	assert.Equal(t, []string{"g1"}, f.jobs.removed)
}

func TestRemindDeletesConfigWhenGuildGone(t *testing.T) {
	f := newFixture()
	f.store.addConfig(baseConfig("g1"))
	f.gateway.guildGone = true

	require.Error(t, f.orc.Remind(context.Background(), "g1"))
	assert.Equal(t, []string{"g1"}, f.jobs.removed)
	assert.Equal(t, []string{"g1"}, f.store.deletedConfigs)
}

func TestRemindDisablesWhenRoleMissing(t *testing.T) {
	f := newFixture()
	f.store.addConfig(baseConfig("g1"))
	f.gateway.missingRoles["role-g1"] = true

	require.Error(t, f.orc.Remind(context.Background(), "g1"))
	assert.Equal(t, []string{"g1"}, f.jobs.removed)
	assert.False(t, f.store.configs["g1"].DailyChallengeOn)
}

func TestRemindDisablesWhenChannelUnusable(t *testing.T) {
	f := newFixture()
	f.store.addConfig(baseConfig("g1"))
	f.gateway.denySend["chan-g1"] = true

	require.Error(t, f.orc.Remind(context.Background(), "g1"))
	assert.Equal(t, []string{"g1"}, f.jobs.removed)
	assert.False(t, f.store.configs["g1"].DailyChallengeOn)
}

func TestRemindSendsWhenPermitted(t *testing.T) {
	f := newFixture()
	f.store.addConfig(baseConfig("g1"))
	f.store.uncompleted["g1"] = []string{"u1", "u2"}

	require.NoError(t, f.orc.Remind(context.Background(), "g1"))
	assert.Empty(t, f.jobs.removed)
	assert.True(t, f.store.configs["g1"].DailyChallengeOn)

	require.Len(t, f.gateway.sent, 1)
	assert.Contains(t, f.gateway.sent[0].content, "<@u1>")
	assert.Contains(t, f.gateway.sent[0].content, "<@u2>")
}

func TestRemindWithEveryoneDone(t *testing.T) {
	f := newFixture()
	f.store.addConfig(baseConfig("g1"))

	require.NoError(t, f.orc.Remind(context.Background(), "g1"))
	require.Len(t, f.gateway.sent, 1)
	assert.NotContains(t, f.gateway.sent[0].content, "<@")
}

func TestEndOfDaySendsSummariesAndSkipsMissingChannels(t *testing.T) {
	f := newFixture()
	f.store.addConfig(baseConfig("g1"))
	f.store.addConfig(baseConfig("g2"))
	f.gateway.missingChannels["chan-g2"] = true
	f.store.completed["g1"] = []string{"u1"}
	f.store.uncompleted["g1"] = []string{"u2"}
	f.gateway.names["u1"] = "Alice"

	require.NoError(t, f.orc.EndOfDay(context.Background()))

	require.Len(t, f.gateway.sent, 1)
	assert.Equal(t, "chan-g1", f.gateway.sent[0].channelID)
	require.NotNil(t, f.gateway.sent[0].embed)
}

func TestEndOfDayRunsOncePerDay(t *testing.T) {
	f := newFixture()
	f.store.addConfig(baseConfig("g1"))

	require.NoError(t, f.orc.EndOfDay(context.Background()))
	before := len(f.gateway.sent)
	require.NoError(t, f.orc.EndOfDay(context.Background()))
	assert.Len(t, f.gateway.sent, before)
}

func TestEndOfDayReleasesLockWhenConfigLoadFails(t *testing.T) {
	f := newFixture()
	f.store.addConfig(baseConfig("g1"))
	f.store.configsErr = errors.New("db down")

	require.Error(t, f.orc.EndOfDay(context.Background()))
	assert.Empty(t, f.gateway.sent)

	// the failed run released its lock, so a retry still posts today's summary
	f.store.configsErr = nil
	require.NoError(t, f.orc.EndOfDay(context.Background()))
	require.Len(t, f.gateway.sent, 1)
}

func TestProgressRequiresConfig(t *testing.T) {
	f := newFixture()
	_, _, _, err := f.orc.Progress("g1")
	requireKind(t, err, cmderr.NotFound)
}

func TestProgressResolvesNames(t *testing.T) {
	f := newFixture()
	f.store.addConfig(baseConfig("g1"))
	f.store.completed["g1"] = []string{"u1"}
	f.store.uncompleted["g1"] = []string{"u2"}
	f.gateway.names["u1"] = "Alice"

	completed, uncompleted, day, err := f.orc.Progress("g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice"}, completed)
	assert.Equal(t, []string{"<@u2>"}, uncompleted)
	assert.True(t, day.Equal(utcMidnight(testNow)))
}
