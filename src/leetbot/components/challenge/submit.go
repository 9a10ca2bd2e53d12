package challenge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/codetrack/leetcode-bot/src/discord"
	"github.com/codetrack/leetcode-bot/src/leetbot/components/leetcode"
	"github.com/codetrack/leetcode-bot/src/shared/cmderr"
	"github.com/codetrack/leetcode-bot/src/shared/leet"
)

// Submit validates a completion claim against today's active challenge and,
// when every check passes, records it and announces it in the guild's
// notification channel. Each check short-circuits with its own tagged error.
// Re-submitting an already recorded submission id is rejected, naming the
// original claimant; nothing is written.
func (o *Orchestrator) Submit(ctx context.Context, guildID, userID, input string) (int64, error) {
	id, err := ExtractSubmissionID(input)
	if err != nil {
		return 0, err
	}

	// Validation and persistence run under the guild lock so a submission is
	// never checked against a challenge day that is mid-transition.
	lock := o.guildLock(guildID)
	lock.Lock()
	cfg, det, comp, err := o.validateAndRecord(ctx, guildID, userID, id)
	lock.Unlock()
	if err != nil {
		return 0, err
	}

	o.announce(cfg, userID, id, det, comp)
	return id, nil
}

func (o *Orchestrator) validateAndRecord(ctx context.Context, guildID, userID string, id int64) (*leet.GuildConfig, *leetcode.SubmissionDetail, *leetcode.SubmissionComplexity, error) {
	fail := func(err error) (*leet.GuildConfig, *leetcode.SubmissionDetail, *leetcode.SubmissionComplexity, error) {
		return nil, nil, nil, err
	}

	cfg, err := o.store.GuildConfig(guildID)
	if err != nil {
		return fail(cmderr.New(cmderr.Internal, "loading configuration failed"))
	}
	if cfg == nil {
		return fail(cmderr.New(cmderr.NotFound, "the leetcode plugin is not set up in this server, run /leetcode init first"))
	}
	if !cfg.DailyChallengeOn {
		return fail(cmderr.New(cmderr.Conflict, "the daily challenge is not running in this server"))
	}

	member, err := o.store.Member(guildID, userID)
	if err != nil {
		return fail(cmderr.New(cmderr.Internal, "loading membership failed"))
	}
	if member == nil {
		return fail(cmderr.New(cmderr.NotFound, "you have not joined the daily challenge, run /leetcode join first"))
	}

	// Fail fast before any remote calls when the announcement could not be
	// delivered anyway.
	ch := cfg.NotificationChannelID
	if !o.gateway.ChannelExists(ch) || !o.gateway.CanSend(ch) {
		return fail(cmderr.New(cmderr.Permission, "the notification channel is missing or the bot cannot post in it"))
	}

	daily, err := o.Daily(ctx)
	if err != nil {
		return fail(apiError(err))
	}

	det, comp, err := o.api.SubmissionDetail(ctx, guildID, id)
	if err != nil {
		return fail(apiError(err))
	}
	if det == nil {
		return fail(cmderr.New(cmderr.NotFound, "submission %d was not found, or is not visible with the configured leetcode account", id))
	}

	if det.Question.FrontendID != daily.Question.FrontendID {
		return fail(cmderr.New(cmderr.Validation, "submission %d solves problem %s, but today's challenge is problem %s",
			id, det.Question.FrontendID, daily.Question.FrontendID))
	}

	challengeDay, err := daily.Day()
	if err != nil {
		return fail(cmderr.New(cmderr.DataInconsistency, "the active challenge reports an unreadable date %q", daily.Date))
	}
	subDay := utcMidnight(det.SubmittedAt())
	if !subDay.Equal(challengeDay) {
		return fail(cmderr.New(cmderr.Validation, "submission %d is dated %s, not today's challenge day %s",
			id, subDay.Format("2006-01-02"), challengeDay.Format("2006-01-02")))
	}

	if det.StatusCode != leetcode.StatusAccepted {
		return fail(cmderr.New(cmderr.Validation, "submission %d was not accepted, its status is %q",
			id, leetcode.StatusDisplay(det.StatusCode)))
	}

	existing, err := o.store.SubmissionByID(id)
	if err != nil {
		return fail(cmderr.New(cmderr.Internal, "looking up the submission failed"))
	}
	if existing != nil {
		claimant, err := o.store.MemberByID(existing.MemberID)
		if err != nil {
			return fail(cmderr.New(cmderr.Internal, "looking up the original claimant failed"))
		}
		if claimant == nil {
			return fail(cmderr.New(cmderr.DataInconsistency, "submission %d is recorded but its claimant cannot be resolved", id))
		}
		name, nameErr := o.gateway.MemberDisplayName(claimant.GuildID, claimant.UserID)
		if nameErr != nil || name == "" {
			name = discord.Mention(claimant.UserID)
		}
		return fail(cmderr.New(cmderr.Conflict, "submission %d was already claimed by %s", id, name))
	}

	qid, err := strconv.Atoi(daily.Question.FrontendID)
	if err != nil {
		return fail(cmderr.New(cmderr.DataInconsistency, "the active challenge question id %q is not numeric", daily.Question.FrontendID))
	}
	var question *leet.Question
	cached, err := o.store.Question(qid)
	if err != nil {
		return fail(cmderr.New(cmderr.Internal, "looking up the question cache failed"))
	}
	if cached == nil {
		ordinal, err := leetcode.DifficultyOrdinal(daily.Question.Difficulty)
		if err != nil {
			return fail(cmderr.New(cmderr.DataInconsistency, "question %d reports unknown difficulty %q", qid, daily.Question.Difficulty))
		}
		question = &leet.Question{
			ID:         qid,
			Title:      daily.Question.Title,
			TitleSlug:  daily.Question.TitleSlug,
			Difficulty: ordinal,
			PaidOnly:   daily.Question.IsPaidOnly,
		}
	}

	sub := &leet.Submission{
		SubmissionID: id,
		MemberID:     member.ID,
		QuestionID:   qid,
		CreatedAt:    o.now(),
	}
	if err := o.store.RecordSubmission(question, sub); err != nil {
		return fail(cmderr.New(cmderr.Internal, "recording the submission failed"))
	}
	return cfg, det, comp, nil
}

// announce publishes the public completion card. The submission is already
// committed, so delivery failures are logged rather than surfaced.
func (o *Orchestrator) announce(cfg *leet.GuildConfig, userID string, id int64, det *leetcode.SubmissionDetail, comp *leetcode.SubmissionComplexity) {
	loc := time.UTC
	if l, err := time.LoadLocation(cfg.GuildTimezone); err == nil {
		loc = l
	}
	embed := discord.SubmissionEmbed(id, det, comp, loc)
	content := fmt.Sprintf("💯 %s has just completed today's daily challenge!", discord.Mention(userID))
	if err := o.gateway.SendMessageEmbed(cfg.NotificationChannelID, content, embed); err != nil {
		log.Printf("challenge: guild %s: announce submission %d: %v", cfg.GuildID, id, err)
	}
}

func apiError(err error) error {
	if errors.Is(err, leetcode.ErrAuthExpired) {
		return cmderr.New(cmderr.Permission, "the stored leetcode session cookie was rejected, reconfigure it with /leetcode init")
	}
	return cmderr.New(cmderr.RemoteUnavailable, "leetcode.com could not be reached, try again later")
}
