package leet

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "leet.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	store := NewStore(db)
	require.NoError(t, store.Migrate())
	return store
}

func seedGuild(t *testing.T, s *Store, guildID string) *GuildConfig {
	t.Helper()
	cfg := &GuildConfig{
		GuildID:               guildID,
		RoleID:                "role",
		Cookie:                "cookie",
		NotificationChannelID: "chan",
		DailyChallengeOn:      true,
		RemindTime:            "23:00:00",
		GuildTimezone:         "UTC",
		DailyChallengeDate:    time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.CreateGuildConfig(cfg))
	return cfg
}

func seedMember(t *testing.T, s *Store, guildID, userID string) *Member {
	t.Helper()
	m := &Member{GuildID: guildID, UserID: userID}
	require.NoError(t, s.CreateMember(m))
	return m
}

func TestGuildConfigNilWhenMissing(t *testing.T) {
	s := testStore(t)
	cfg, err := s.GuildConfig("nope")
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestGuildConfigsWithChallengeOn(t *testing.T) {
	s := testStore(t)
	seedGuild(t, s, "g1")
	off := seedGuild(t, s, "g2")
	off.DailyChallengeOn = false
	require.NoError(t, s.SaveGuildConfig(off))

	configs, err := s.GuildConfigsWithChallengeOn()
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, "g1", configs[0].GuildID)
}

func TestUpsertQuestionRoundTrip(t *testing.T) {
	s := testStore(t)
	q := &Question{ID: 1, Title: "Two Sum", TitleSlug: "two-sum", Difficulty: DifficultyEasy}
	require.NoError(t, s.UpsertQuestion(q))

	got, err := s.Question(1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *q, *got)

	q.Title = "Two Sum (updated)"
	q.Difficulty = DifficultyMedium
	require.NoError(t, s.UpsertQuestion(q))

	got, err = s.Question(1)
	require.NoError(t, err)
	assert.Equal(t, "Two Sum (updated)", got.Title)
	assert.Equal(t, DifficultyMedium, got.Difficulty)
}

func TestQuestionsMatchingID(t *testing.T) {
	s := testStore(t)
	for _, id := range []int{1, 12, 123, 204} {
		require.NoError(t, s.UpsertQuestion(&Question{ID: id, Title: "q", TitleSlug: "q", Difficulty: DifficultyEasy}))
	}

	questions, err := s.QuestionsMatchingID("12", 10)
	require.NoError(t, err)
	ids := make([]int, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}
	assert.ElementsMatch(t, []int{12, 123}, ids)
}

func TestCompletionPartition(t *testing.T) {
	s := testStore(t)
	seedGuild(t, s, "g1")
	m1 := seedMember(t, s, "g1", "u1")
	m2 := seedMember(t, s, "g1", "u2")
	seedMember(t, s, "g1", "u3")
	require.NoError(t, s.UpsertQuestion(&Question{ID: 1, Title: "q", TitleSlug: "q", Difficulty: DifficultyEasy}))

	day := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateSubmission(&Submission{
		SubmissionID: 100, MemberID: m1.ID, QuestionID: 1, CreatedAt: day.Add(10 * time.Hour),
	}))
	// a submission from the day before must not count
	require.NoError(t, s.CreateSubmission(&Submission{
		SubmissionID: 101, MemberID: m2.ID, QuestionID: 1, CreatedAt: day.Add(-2 * time.Hour),
	}))

	completed, err := s.CompletedUserIDs("g1", day)
	require.NoError(t, err)
	uncompleted, err := s.UncompletedUserIDs("g1", day)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"u1"}, completed)
	assert.ElementsMatch(t, []string{"u2", "u3"}, uncompleted)

	// disjoint, and together they cover every member
	for _, id := range completed {
		assert.NotContains(t, uncompleted, id)
	}
	assert.Len(t, append(completed, uncompleted...), 3)
}

func TestCompletionMovesAfterSubmission(t *testing.T) {
	s := testStore(t)
	seedGuild(t, s, "g1")
	m := seedMember(t, s, "g1", "u1")
	require.NoError(t, s.UpsertQuestion(&Question{ID: 1, Title: "q", TitleSlug: "q", Difficulty: DifficultyEasy}))

	day := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	uncompleted, err := s.UncompletedUserIDs("g1", day)
	require.NoError(t, err)
	assert.Contains(t, uncompleted, "u1")

	require.NoError(t, s.CreateSubmission(&Submission{
		SubmissionID: 100, MemberID: m.ID, QuestionID: 1, CreatedAt: day.Add(time.Hour),
	}))

	uncompleted, err = s.UncompletedUserIDs("g1", day)
	require.NoError(t, err)
	assert.NotContains(t, uncompleted, "u1")
}

func TestRecordSubmissionStoresQuestionAndRow(t *testing.T) {
	s := testStore(t)
	seedGuild(t, s, "g1")
	m := seedMember(t, s, "g1", "u1")

	q := &Question{ID: 7, Title: "q7", TitleSlug: "q7", Difficulty: DifficultyHard}
	sub := &Submission{SubmissionID: 700, MemberID: m.ID, QuestionID: 7, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.RecordSubmission(q, sub))

	gotQ, err := s.Question(7)
	require.NoError(t, err)
	require.NotNil(t, gotQ)

	gotSub, err := s.SubmissionByID(700)
	require.NoError(t, err)
	require.NotNil(t, gotSub)
	assert.Equal(t, m.ID, gotSub.MemberID)
}

func TestDeleteGuildConfigCascades(t *testing.T) {
	s := testStore(t)
	seedGuild(t, s, "g1")
	m := seedMember(t, s, "g1", "u1")
	require.NoError(t, s.UpsertQuestion(&Question{ID: 1, Title: "q", TitleSlug: "q", Difficulty: DifficultyEasy}))
	require.NoError(t, s.CreateSubmission(&Submission{
		SubmissionID: 100, MemberID: m.ID, QuestionID: 1, CreatedAt: time.Now().UTC(),
	}))

	require.NoError(t, s.DeleteGuildConfig("g1"))

	cfg, err := s.GuildConfig("g1")
	require.NoError(t, err)
	assert.Nil(t, cfg)

	member, err := s.Member("g1", "u1")
	require.NoError(t, err)
	assert.Nil(t, member)

	sub, err := s.SubmissionByID(100)
	require.NoError(t, err)
	assert.Nil(t, sub)

	// questions are shared reference data and survive
	q, err := s.Question(1)
	require.NoError(t, err)
	assert.NotNil(t, q)
}

func TestDeleteMemberRemovesSubmissions(t *testing.T) {
	s := testStore(t)
	seedGuild(t, s, "g1")
	m := seedMember(t, s, "g1", "u1")
	require.NoError(t, s.UpsertQuestion(&Question{ID: 1, Title: "q", TitleSlug: "q", Difficulty: DifficultyEasy}))
	require.NoError(t, s.CreateSubmission(&Submission{
		SubmissionID: 100, MemberID: m.ID, QuestionID: 1, CreatedAt: time.Now().UTC(),
	}))

	require.NoError(t, s.DeleteMember(m.ID))

	sub, err := s.SubmissionByID(100)
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestMemberScoresOrdering(t *testing.T) {
	s := testStore(t)
	seedGuild(t, s, "g1")
	m1 := seedMember(t, s, "g1", "u1")
	m2 := seedMember(t, s, "g1", "u2")
	require.NoError(t, s.UpsertQuestion(&Question{ID: 1, Title: "q", TitleSlug: "q", Difficulty: DifficultyEasy}))

	now := time.Now().UTC()
	for i, memberID := range []uint64{m1.ID, m2.ID, m2.ID} {
		require.NoError(t, s.CreateSubmission(&Submission{
			SubmissionID: int64(100 + i), MemberID: memberID, QuestionID: 1, CreatedAt: now,
		}))
	}

	scores, err := s.MemberScores("g1")
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, "u2", scores[0].UserID)
	assert.Equal(t, int64(2), scores[0].Score)
	assert.Equal(t, "u1", scores[1].UserID)
	assert.Equal(t, int64(1), scores[1].Score)
}
