package challenge

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/codetrack/leetcode-bot/src/discord"
	"github.com/codetrack/leetcode-bot/src/leetbot/components/scheduler"
	"github.com/codetrack/leetcode-bot/src/shared/cmderr"
	"github.com/codetrack/leetcode-bot/src/shared/leet"
)

// StartOfDay rolls every enabled guild onto the new challenge day and
// announces the challenge. The daily fetch is all-or-nothing: when it fails
// no guild's challenge date moves. The redis day lock keeps a duplicate
// firing (misfire catch-up, restart) from announcing the same day twice.
func (o *Orchestrator) StartOfDay(ctx context.Context) error {
	day := utcMidnight(o.now())

	ok, err := o.guard.AcquireDayLock(ctx, scheduler.JobDailyStart, day)
	if err != nil {
		return fmt.Errorf("challenge: start of day lock: %w", err)
	}
	if !ok {
		log.Printf("challenge: start of day %s already handled", day.Format("2006-01-02"))
		return nil
	}

	daily, err := o.Daily(ctx)
	if err != nil {
		if relErr := o.guard.ReleaseDayLock(ctx, scheduler.JobDailyStart, day); relErr != nil {
			log.Printf("challenge: release start-of-day lock: %v", relErr)
		}
		return fmt.Errorf("challenge: fetch daily challenge: %w", err)
	}

	configs, err := o.store.GuildConfigsWithChallengeOn()
	if err != nil {
		if relErr := o.guard.ReleaseDayLock(ctx, scheduler.JobDailyStart, day); relErr != nil {
			log.Printf("challenge: release start-of-day lock: %v", relErr)
		}
		return fmt.Errorf("challenge: load enabled guilds: %w", err)
	}

	embed := discord.DailyEmbed(daily)
	for i := range configs {
		cfg := &configs[i]

		lock := o.guildLock(cfg.GuildID)
		lock.Lock()
		cfg.DailyChallengeDate = day
		err := o.store.SaveGuildConfig(cfg)
		lock.Unlock()
		if err != nil {
			log.Printf("challenge: guild %s: advance challenge date: %v", cfg.GuildID, err)
			continue
		}

		ch := cfg.NotificationChannelID
		if !o.gateway.ChannelExists(ch) {
			log.Printf("challenge: guild %s: channel %s missing, skipping announcement", cfg.GuildID, ch)
			continue
		}
		if err := o.gateway.SendEmbed(ch, embed); err != nil {
			log.Printf("challenge: guild %s: announce: %v", cfg.GuildID, err)
			continue
		}
		invite := fmt.Sprintf("%s Today's challenge is live! Run /leetcode submit once you have an accepted solution.",
			discord.RoleMention(cfg.RoleID))
		if err := o.gateway.SendMessage(ch, invite); err != nil {
			log.Printf("challenge: guild %s: invite: %v", cfg.GuildID, err)
		}
	}
	return nil
}

// Remind sends one guild its evening reminder mentioning everyone who has not
// completed today's challenge. A guild whose wiring broke since the job was
// registered self-heals: the job is removed and, where sensible, the
// automation disabled, instead of failing forever.
func (o *Orchestrator) Remind(ctx context.Context, guildID string) error {
	cfg, err := o.store.GuildConfig(guildID)
	if err != nil {
		return fmt.Errorf("challenge: remind %s: load config: %w", guildID, err)
	}
	if cfg == nil {
		o.removeReminder(guildID)
		return fmt.Errorf("challenge: remind %s: no configuration, stale job removed", guildID)
	}

	if !o.gateway.GuildExists(guildID) {
		o.removeReminder(guildID)
		if err := o.store.DeleteGuildConfig(guildID); err != nil {
			return fmt.Errorf("challenge: remind %s: delete config for vanished guild: %w", guildID, err)
		}
		return fmt.Errorf("challenge: remind %s: guild no longer exists, configuration removed", guildID)
	}

	if !o.gateway.RoleExists(guildID, cfg.RoleID) {
		return o.disable(cfg, "participant role missing")
	}
	ch := cfg.NotificationChannelID
	if !o.gateway.ChannelExists(ch) {
		return o.disable(cfg, "notification channel missing")
	}
	if !o.gateway.CanSend(ch) {
		return o.disable(cfg, "no send permission in notification channel")
	}

	ids, err := o.store.UncompletedUserIDs(guildID, cfg.DailyChallengeDate)
	if err != nil {
		return fmt.Errorf("challenge: remind %s: uncompleted set: %w", guildID, err)
	}

	msg := "🔔 The daily challenge closes soon."
	if len(ids) == 0 {
		msg += " Everyone has already completed it, nice work! 🎉"
	} else {
		mentions := make([]string, 0, len(ids))
		for _, id := range ids {
			mentions = append(mentions, discord.Mention(id))
		}
		msg += " Still waiting on: " + strings.Join(mentions, ", ")
	}
	return o.gateway.SendMessage(ch, msg)
}

// disable is the self-healing tail of Remind: deregister the job, flip the
// toggle off, and report why.
func (o *Orchestrator) disable(cfg *leet.GuildConfig, reason string) error {
	o.removeReminder(cfg.GuildID)
	cfg.DailyChallengeOn = false
	if err := o.store.SaveGuildConfig(cfg); err != nil {
		return fmt.Errorf("challenge: remind %s: %s, and disabling failed: %w", cfg.GuildID, reason, err)
	}
	return fmt.Errorf("challenge: remind %s: %s, automation disabled", cfg.GuildID, reason)
}

func (o *Orchestrator) removeReminder(guildID string) {
	if err := o.jobs.RemoveReminder(guildID); err != nil {
		log.Printf("challenge: remove reminder for %s: %v", guildID, err)
	}
}

// EndOfDay posts each enabled guild a completion summary for its current
// challenge day.
func (o *Orchestrator) EndOfDay(ctx context.Context) error {
	day := utcMidnight(o.now())
	ok, err := o.guard.AcquireDayLock(ctx, scheduler.JobDailyEnd, day)
	if err != nil {
		return fmt.Errorf("challenge: end of day lock: %w", err)
	}
	if !ok {
		log.Printf("challenge: end of day %s already handled", day.Format("2006-01-02"))
		return nil
	}

	configs, err := o.store.GuildConfigsWithChallengeOn()
	if err != nil {
		// Nothing visible happened yet; give the lock back so a retry can
		// still deliver today's summaries.
		if relErr := o.guard.ReleaseDayLock(ctx, scheduler.JobDailyEnd, day); relErr != nil {
			log.Printf("challenge: release end-of-day lock: %v", relErr)
		}
		return fmt.Errorf("challenge: load enabled guilds: %w", err)
	}

	for i := range configs {
		cfg := &configs[i]
		ch := cfg.NotificationChannelID
		if !o.gateway.ChannelExists(ch) {
			log.Printf("challenge: guild %s: channel %s missing, skipping summary", cfg.GuildID, ch)
			continue
		}
		completed, uncompleted, err := o.completionSets(cfg)
		if err != nil {
			log.Printf("challenge: guild %s: completion sets: %v", cfg.GuildID, err)
			continue
		}
		embed := discord.SummaryEmbed(cfg.DailyChallengeDate, completed, uncompleted)
		if err := o.gateway.SendEmbed(ch, embed); err != nil {
			log.Printf("challenge: guild %s: summary: %v", cfg.GuildID, err)
		}
	}
	return nil
}

func (o *Orchestrator) completionSets(cfg *leet.GuildConfig) ([]string, []string, error) {
	completed, err := o.store.CompletedUserIDs(cfg.GuildID, cfg.DailyChallengeDate)
	if err != nil {
		return nil, nil, err
	}
	uncompleted, err := o.store.UncompletedUserIDs(cfg.GuildID, cfg.DailyChallengeDate)
	if err != nil {
		return nil, nil, err
	}
	return o.resolveNames(cfg.GuildID, completed), o.resolveNames(cfg.GuildID, uncompleted), nil
}

// Progress returns the completed and uncompleted participant names for the
// guild's current challenge day, on demand for the progress command.
func (o *Orchestrator) Progress(guildID string) (completed, uncompleted []string, day time.Time, err error) {
	cfg, err := o.store.GuildConfig(guildID)
	if err != nil {
		return nil, nil, time.Time{}, cmderr.New(cmderr.Internal, "loading configuration failed")
	}
	if cfg == nil {
		return nil, nil, time.Time{}, cmderr.New(cmderr.NotFound, "the leetcode plugin is not set up in this server, run /leetcode init first")
	}
	completed, uncompleted, setErr := o.completionSets(cfg)
	if setErr != nil {
		return nil, nil, time.Time{}, cmderr.New(cmderr.Internal, "loading completion sets failed")
	}
	return completed, uncompleted, cfg.DailyChallengeDate, nil
}
