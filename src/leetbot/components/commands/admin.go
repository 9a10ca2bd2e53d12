package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/codetrack/leetcode-bot/src/discord"
	"github.com/codetrack/leetcode-bot/src/leetbot/components/leetcode"
	"github.com/codetrack/leetcode-bot/src/shared/cmderr"
	"github.com/codetrack/leetcode-bot/src/shared/leet"
)

const (
	participantRoleName = "LeetCode Challenger"
	defaultRemindTime   = "23:00:00"
)

func utcMidnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// apiErr maps leetcode client failures to user-facing tagged errors.
func apiErr(err error) error {
	if errors.As(err, new(*cmderr.Error)) {
		return err
	}
	if errors.Is(err, leetcode.ErrAuthExpired) {
		return cmderr.New(cmderr.Permission, "the stored leetcode session cookie was rejected, reconfigure it with /leetcode init")
	}
	return cmderr.New(cmderr.RemoteUnavailable, "leetcode.com could not be reached, try again later")
}

// requireConfig loads the guild's configuration, failing with the standard
// not-initialized message when there is none.
func (h *Handler) requireConfig(guildID string) (*leet.GuildConfig, error) {
	cfg, err := h.store.GuildConfig(guildID)
	if err != nil {
		return nil, fmt.Errorf("commands: load config: %w", err)
	}
	if cfg == nil {
		return nil, cmderr.New(cmderr.NotFound, "the leetcode plugin is not set up in this server, run /leetcode init first")
	}
	return cfg, nil
}

func (h *Handler) handleInit(ctx context.Context, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) (string, *discordgo.MessageEmbed, error) {
	cookie := optString(opts, "cookie")
	zone := optString(opts, "timezone")
	if zone == "" {
		zone = "UTC"
	}
	if _, err := time.LoadLocation(zone); err != nil {
		return "", nil, cmderr.New(cmderr.Validation, "unknown timezone %q", zone)
	}

	existing, err := h.store.GuildConfig(i.GuildID)
	if err != nil {
		return "", nil, fmt.Errorf("commands: load config: %w", err)
	}
	if existing != nil {
		return "", nil, cmderr.New(cmderr.Conflict, "the leetcode plugin is already set up here, run /leetcode clean first")
	}

	expiry, err := leetcode.SessionExpiry(cookie)
	if err != nil {
		return "", nil, cmderr.New(cmderr.Validation, "that does not look like a valid LEETCODE_SESSION cookie")
	}
	if expiry.Before(time.Now()) {
		return "", nil, cmderr.New(cmderr.Validation, "that session cookie expired on %s", expiry.Format("2006-01-02"))
	}

	roleID, err := h.gw.CreateRole(i.GuildID, participantRoleName)
	if err != nil {
		if errors.Is(err, discord.ErrRoleExists) {
			return "", nil, cmderr.New(cmderr.Conflict, "a role named %q already exists, remove it and retry", participantRoleName)
		}
		return "", nil, fmt.Errorf("commands: create role: %w", err)
	}

	cfg := &leet.GuildConfig{
		GuildID:               i.GuildID,
		RoleID:                roleID,
		Cookie:                cookie,
		NotificationChannelID: i.ChannelID,
		DailyChallengeOn:      true,
		RemindTime:            defaultRemindTime,
		GuildTimezone:         zone,
		DailyChallengeDate:    utcMidnight(time.Now()),
	}
	if err := h.store.CreateGuildConfig(cfg); err != nil {
		return "", nil, fmt.Errorf("commands: create config: %w", err)
	}
	h.api.InvalidateSession(i.GuildID)

	hour, minute, second, err := ParseRemindTime(cfg.RemindTime)
	if err != nil {
		return "", nil, err
	}
	if err := h.sched.UpsertReminder(i.GuildID, hour, minute, second); err != nil {
		return "", nil, fmt.Errorf("commands: register reminder: %w", err)
	}

	cookieLine := "valid until " + expiry.Format("2006-01-02 15:04 MST")
	return "", h.infoEmbed(cfg, cookieLine), nil
}

func (h *Handler) handleInfo(ctx context.Context, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) (string, *discordgo.MessageEmbed, error) {
	cfg, err := h.requireConfig(i.GuildID)
	if err != nil {
		return "", nil, err
	}

	cookieLine := "invalid or expired"
	status, err := h.api.CheckCredential(ctx, i.GuildID)
	switch {
	case err != nil:
		log.Printf("commands: info: credential check: %v", err)
		cookieLine = "unverifiable (leetcode.com unreachable)"
	case status != nil:
		if status.Rotated != "" && status.Rotated != cfg.Cookie {
			cfg.Cookie = status.Rotated
			if err := h.store.SaveGuildConfig(cfg); err != nil {
				return "", nil, fmt.Errorf("commands: persist rotated cookie: %w", err)
			}
			h.api.InvalidateSession(i.GuildID)
		}
		cookieLine = "valid until " + status.ExpiresAt.Format("2006-01-02 15:04 MST")
	}

	return "", h.infoEmbed(cfg, cookieLine), nil
}

func (h *Handler) infoEmbed(cfg *leet.GuildConfig, cookieLine string) *discordgo.MessageEmbed {
	loc := time.UTC
	if l, err := time.LoadLocation(cfg.GuildTimezone); err == nil {
		loc = l
	}

	status := "Stopped ⛔"
	if cfg.DailyChallengeOn {
		status = "Running ✅"
	}

	remind := cfg.RemindTime
	if hour, minute, second, err := ParseRemindTime(cfg.RemindTime); err == nil {
		remind = clockInZone(hour, minute, second, loc)
	}

	return &discordgo.MessageEmbed{
		Title: "LeetCode Daily Challenge",
		Color: 0xe67e22,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Status", Value: status, Inline: true},
			{Name: "Role", Value: discord.RoleMention(cfg.RoleID), Inline: true},
			{Name: "Channel", Value: discord.ChannelMention(cfg.NotificationChannelID), Inline: true},
			{Name: "Timezone", Value: cfg.GuildTimezone, Inline: true},
			{Name: "Challenge starts", Value: clockInZone(0, 0, 0, loc), Inline: true},
			{Name: "Challenge ends", Value: clockInZone(23, 59, 59, loc), Inline: true},
			{Name: "Reminder", Value: remind, Inline: true},
			{Name: "Session cookie", Value: cookieLine, Inline: true},
			{Name: "Challenge day", Value: cfg.DailyChallengeDate.Format("2006-01-02"), Inline: true},
		},
	}
}

// clockInZone renders a UTC wall-clock time in the guild's display timezone.
func clockInZone(hour, minute, second int, loc *time.Location) string {
	now := time.Now().UTC()
	t := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, second, 0, time.UTC)
	return t.In(loc).Format("15:04:05 MST")
}

func (h *Handler) handleClean(ctx context.Context, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) (string, *discordgo.MessageEmbed, error) {
	cfg, err := h.requireConfig(i.GuildID)
	if err != nil {
		return "", nil, err
	}

	if err := h.sched.RemoveReminder(i.GuildID); err != nil {
		log.Printf("commands: clean: remove reminder: %v", err)
	}
	if err := h.gw.DeleteRole(i.GuildID, cfg.RoleID); err != nil {
		log.Printf("commands: clean: delete role: %v", err)
	}
	if err := h.store.DeleteGuildConfig(i.GuildID); err != nil {
		return "", nil, fmt.Errorf("commands: delete config: %w", err)
	}
	h.api.InvalidateSession(i.GuildID)

	return "All leetcode plugin data for this server has been removed.", nil, nil
}

func (h *Handler) handleStart(ctx context.Context, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) (string, *discordgo.MessageEmbed, error) {
	cfg, err := h.requireConfig(i.GuildID)
	if err != nil {
		return "", nil, err
	}
	if cfg.DailyChallengeOn {
		return "", nil, cmderr.New(cmderr.Conflict, "the daily challenge is already running")
	}

	hour, minute, second, err := ParseRemindTime(cfg.RemindTime)
	if err != nil {
		return "", nil, err
	}
	if err := h.sched.UpsertReminder(i.GuildID, hour, minute, second); err != nil {
		return "", nil, fmt.Errorf("commands: register reminder: %w", err)
	}

	// The challenge date is owned by the start-of-day job; starting the
	// challenge must not move it.
	cfg.DailyChallengeOn = true
	if err := h.store.SaveGuildConfig(cfg); err != nil {
		return "", nil, fmt.Errorf("commands: save config: %w", err)
	}
	return "The daily challenge is now running. 🏁", nil, nil
}

func (h *Handler) handleStop(ctx context.Context, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) (string, *discordgo.MessageEmbed, error) {
	cfg, err := h.requireConfig(i.GuildID)
	if err != nil {
		return "", nil, err
	}
	if !cfg.DailyChallengeOn {
		return "", nil, cmderr.New(cmderr.Conflict, "the daily challenge is not running")
	}

	if err := h.sched.RemoveReminder(i.GuildID); err != nil {
		return "", nil, fmt.Errorf("commands: remove reminder: %w", err)
	}
	cfg.DailyChallengeOn = false
	if err := h.store.SaveGuildConfig(cfg); err != nil {
		return "", nil, fmt.Errorf("commands: save config: %w", err)
	}
	return "The daily challenge has been stopped.", nil, nil
}

func (h *Handler) handleChannel(ctx context.Context, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) (string, *discordgo.MessageEmbed, error) {
	cfg, err := h.requireConfig(i.GuildID)
	if err != nil {
		return "", nil, err
	}

	channelID := optChannelID(opts, "channel")
	if channelID == "" || !h.gw.ChannelExists(channelID) {
		return "", nil, cmderr.New(cmderr.NotFound, "that channel cannot be found")
	}
	if !h.gw.CanSend(channelID) {
		return "", nil, cmderr.New(cmderr.Permission, "I cannot post in %s", discord.ChannelMention(channelID))
	}

	cfg.NotificationChannelID = channelID
	if err := h.store.SaveGuildConfig(cfg); err != nil {
		return "", nil, fmt.Errorf("commands: save config: %w", err)
	}
	return fmt.Sprintf("Notifications will be posted in %s.", discord.ChannelMention(channelID)), nil, nil
}

func (h *Handler) handleTimezone(ctx context.Context, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) (string, *discordgo.MessageEmbed, error) {
	cfg, err := h.requireConfig(i.GuildID)
	if err != nil {
		return "", nil, err
	}

	zone := optString(opts, "zone")
	if _, err := time.LoadLocation(zone); err != nil {
		return "", nil, cmderr.New(cmderr.Validation, "unknown timezone %q", zone)
	}

	cfg.GuildTimezone = zone
	if err := h.store.SaveGuildConfig(cfg); err != nil {
		return "", nil, fmt.Errorf("commands: save config: %w", err)
	}
	return fmt.Sprintf("Displayed times now use %s.", zone), nil, nil
}

func (h *Handler) handleRemindTime(ctx context.Context, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) (string, *discordgo.MessageEmbed, error) {
	cfg, err := h.requireConfig(i.GuildID)
	if err != nil {
		return "", nil, err
	}

	hour, minute, second, err := ParseRemindTime(optString(opts, "time"))
	if err != nil {
		return "", nil, err
	}

	cfg.RemindTime = fmt.Sprintf("%02d:%02d:%02d", hour, minute, second)
	if err := h.store.SaveGuildConfig(cfg); err != nil {
		return "", nil, fmt.Errorf("commands: save config: %w", err)
	}
	if cfg.DailyChallengeOn {
		if err := h.sched.UpsertReminder(i.GuildID, hour, minute, second); err != nil {
			return "", nil, fmt.Errorf("commands: reschedule reminder: %w", err)
		}
	}
	return fmt.Sprintf("The daily reminder now fires at %s UTC.", cfg.RemindTime), nil, nil
}

func (h *Handler) handleUpdate(ctx context.Context, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) (string, *discordgo.MessageEmbed, error) {
	if _, err := h.requireConfig(i.GuildID); err != nil {
		return "", nil, err
	}

	problems, err := h.api.AllProblems(ctx, i.GuildID)
	if err != nil {
		return "", nil, apiErr(err)
	}

	err = h.store.Transaction(func(tx *leet.Store) error {
		for _, p := range problems {
			q := leet.Question{
				ID:         p.ID,
				Title:      p.Title,
				TitleSlug:  p.TitleSlug,
				Difficulty: p.Difficulty,
				PaidOnly:   p.PaidOnly,
			}
			if err := tx.UpsertQuestion(&q); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", nil, fmt.Errorf("commands: upsert questions: %w", err)
	}
	return fmt.Sprintf("Question cache updated, %d problems stored.", len(problems)), nil, nil
}
