package commands

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/codetrack/leetcode-bot/src/discord"
	"github.com/codetrack/leetcode-bot/src/leetbot/components/challenge"
	"github.com/codetrack/leetcode-bot/src/shared/cmderr"
	"github.com/codetrack/leetcode-bot/src/shared/leet"
)

func (h *Handler) handleJoin(ctx context.Context, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) (string, *discordgo.MessageEmbed, error) {
	cfg, err := h.requireConfig(i.GuildID)
	if err != nil {
		return "", nil, err
	}
	userID := callerID(i)

	member, err := h.store.Member(i.GuildID, userID)
	if err != nil {
		return "", nil, fmt.Errorf("commands: load member: %w", err)
	}
	if member != nil {
		return "", nil, cmderr.New(cmderr.Conflict, "you have already joined the daily challenge")
	}
	if !h.gw.RoleExists(i.GuildID, cfg.RoleID) {
		return "", nil, cmderr.New(cmderr.DataInconsistency, "the participant role is missing, ask an admin to re-run /leetcode init")
	}

	if err := h.store.CreateMember(&leet.Member{GuildID: i.GuildID, UserID: userID}); err != nil {
		return "", nil, fmt.Errorf("commands: create member: %w", err)
	}
	if err := h.gw.AssignRole(i.GuildID, userID, cfg.RoleID); err != nil {
		return "", nil, cmderr.New(cmderr.Permission, "you joined, but I could not assign the participant role")
	}
	return "Welcome to the daily challenge! 🎉", nil, nil
}

func (h *Handler) handleQuit(ctx context.Context, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) (string, *discordgo.MessageEmbed, error) {
	cfg, err := h.requireConfig(i.GuildID)
	if err != nil {
		return "", nil, err
	}
	userID := callerID(i)

	member, err := h.store.Member(i.GuildID, userID)
	if err != nil {
		return "", nil, fmt.Errorf("commands: load member: %w", err)
	}
	if member == nil {
		return "", nil, cmderr.New(cmderr.NotFound, "you have not joined the daily challenge")
	}

	if err := h.store.DeleteMember(member.ID); err != nil {
		return "", nil, fmt.Errorf("commands: delete member: %w", err)
	}
	if h.gw.RoleExists(i.GuildID, cfg.RoleID) {
		if err := h.gw.UnassignRole(i.GuildID, userID, cfg.RoleID); err != nil {
			log.Printf("commands: quit: unassign role: %v", err)
		}
	}
	return "You have left the daily challenge. See you again!", nil, nil
}

func (h *Handler) handleQuestion(ctx context.Context, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) (string, *discordgo.MessageEmbed, error) {
	if _, err := h.requireConfig(i.GuildID); err != nil {
		return "", nil, err
	}

	id := optInt(opts, "id")
	q, err := h.store.Question(id)
	if err != nil {
		return "", nil, fmt.Errorf("commands: load question: %w", err)
	}
	if q == nil {
		return "", nil, cmderr.New(cmderr.NotFound, "question %d is not in the cache, run /leetcode update first", id)
	}

	detail, err := h.api.QuestionBySlug(ctx, i.GuildID, q.TitleSlug)
	if err != nil {
		return "", nil, apiErr(err)
	}
	return "", discord.QuestionEmbed(detail), nil
}

func (h *Handler) handleToday(ctx context.Context, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) (string, *discordgo.MessageEmbed, error) {
	daily, err := h.orc.Daily(ctx)
	if err != nil {
		return "", nil, apiErr(err)
	}
	return "", discord.DailyEmbed(daily), nil
}

func (h *Handler) handleSubmission(ctx context.Context, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) (string, *discordgo.MessageEmbed, error) {
	cfg, err := h.requireConfig(i.GuildID)
	if err != nil {
		return "", nil, err
	}

	id, err := challenge.ExtractSubmissionID(optString(opts, "id"))
	if err != nil {
		return "", nil, err
	}

	det, comp, err := h.api.SubmissionDetail(ctx, i.GuildID, id)
	if err != nil {
		return "", nil, apiErr(err)
	}
	if det == nil {
		return "", nil, cmderr.New(cmderr.NotFound, "submission %d was not found, or is not visible with the configured leetcode account", id)
	}

	loc := time.UTC
	if l, err := time.LoadLocation(cfg.GuildTimezone); err == nil {
		loc = l
	}
	return "", discord.SubmissionEmbed(id, det, comp, loc), nil
}

func (h *Handler) handleMembers(ctx context.Context, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) (string, *discordgo.MessageEmbed, error) {
	if _, err := h.requireConfig(i.GuildID); err != nil {
		return "", nil, err
	}

	members, err := h.store.Members(i.GuildID)
	if err != nil {
		return "", nil, fmt.Errorf("commands: list members: %w", err)
	}
	if len(members) == 0 {
		return "No one has joined the daily challenge yet.", nil, nil
	}

	names := make([]string, 0, len(members))
	for _, m := range members {
		name, err := h.gw.MemberDisplayName(i.GuildID, m.UserID)
		if err != nil || name == "" {
			name = discord.Mention(m.UserID)
		}
		names = append(names, name)
	}
	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("👥 Daily Challenge Members (%d)", len(names)),
		Color:       0xe67e22,
		Description: discord.NumberedList(names),
	}
	return "", embed, nil
}

func (h *Handler) handleLeaderboard(ctx context.Context, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) (string, *discordgo.MessageEmbed, error) {
	if _, err := h.requireConfig(i.GuildID); err != nil {
		return "", nil, err
	}

	scores, err := h.store.MemberScores(i.GuildID)
	if err != nil {
		return "", nil, fmt.Errorf("commands: load scores: %w", err)
	}
	if len(scores) == 0 {
		return "No submissions recorded yet.", nil, nil
	}

	lines := make([]string, 0, len(scores))
	for _, s := range scores {
		name, err := h.gw.MemberDisplayName(i.GuildID, s.UserID)
		if err != nil || name == "" {
			name = discord.Mention(s.UserID)
		}
		lines = append(lines, fmt.Sprintf("%s · %d", name, s.Score))
	}
	embed := &discordgo.MessageEmbed{
		Title:       "🏆 Daily Challenge Leaderboard",
		Color:       0xe67e22,
		Description: discord.NumberedList(lines),
	}
	return "", embed, nil
}

func (h *Handler) handleProgress(ctx context.Context, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) (string, *discordgo.MessageEmbed, error) {
	completed, uncompleted, day, err := h.orc.Progress(i.GuildID)
	if err != nil {
		return "", nil, err
	}
	return "", discord.SummaryEmbed(day, completed, uncompleted), nil
}

func (h *Handler) handleSubmit(ctx context.Context, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) (string, *discordgo.MessageEmbed, error) {
	id, err := h.orc.Submit(ctx, i.GuildID, callerID(i), optString(opts, "submission"))
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("Submission %d recorded. Great job! 💯", id), nil, nil
}
