// Package commands maps the /leetcode slash command surface onto the store,
// the scheduler and the challenge orchestrator.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/codetrack/leetcode-bot/src/discord"
	"github.com/codetrack/leetcode-bot/src/leetbot/components/challenge"
	"github.com/codetrack/leetcode-bot/src/leetbot/components/leetcode"
	"github.com/codetrack/leetcode-bot/src/leetbot/components/scheduler"
	"github.com/codetrack/leetcode-bot/src/shared/cmderr"
	"github.com/codetrack/leetcode-bot/src/shared/leet"
)

const CommandRoot = "leetcode"

const (
	SubInit        = "init"
	SubInfo        = "info"
	SubClean       = "clean"
	SubStart       = "start"
	SubStop        = "stop"
	SubChannel     = "channel"
	SubTimezone    = "timezone"
	SubRemindTime  = "remind-time"
	SubJoin        = "join"
	SubQuit        = "quit"
	SubUpdate      = "update"
	SubQuestion    = "question"
	SubToday       = "today"
	SubSubmission  = "submission"
	SubMembers     = "members"
	SubLeaderboard = "leaderboard"
	SubProgress    = "progress"
	SubSubmit      = "submit"
)

// adminSubs require Manage Server (or Administrator) in the invoking guild.
var adminSubs = map[string]bool{
	SubInit:       true,
	SubClean:      true,
	SubStart:      true,
	SubStop:       true,
	SubChannel:    true,
	SubTimezone:   true,
	SubRemindTime: true,
	SubUpdate:     true,
}

// ephemeralSubs answer only the invoking user.
var ephemeralSubs = map[string]bool{
	SubClean:      true,
	SubStart:      true,
	SubStop:       true,
	SubChannel:    true,
	SubTimezone:   true,
	SubRemindTime: true,
	SubJoin:       true,
	SubQuit:       true,
	SubUpdate:     true,
	SubSubmit:     true,
}

var commandDefinition = &discordgo.ApplicationCommand{
	Name:        CommandRoot,
	Description: "LeetCode daily challenge",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        SubInit,
			Description: "Set up the daily challenge in this server",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "cookie",
					Description: "LEETCODE_SESSION cookie used to query leetcode.com",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "timezone",
					Description: "IANA timezone for displayed times (default UTC)",
				},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        SubInfo,
			Description: "Show the daily challenge configuration",
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        SubClean,
			Description: "Remove the daily challenge setup and all recorded data",
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        SubStart,
			Description: "Start the daily challenge",
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        SubStop,
			Description: "Stop the daily challenge",
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        SubChannel,
			Description: "Set the notification channel",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         "channel",
					Description:  "Channel for announcements and reminders",
					Required:     true,
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
				},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        SubTimezone,
			Description: "Set the timezone used for displayed times",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "zone",
					Description: "IANA timezone name, e.g. Asia/Taipei",
					Required:    true,
				},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        SubRemindTime,
			Description: "Set the daily reminder time (UTC)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "time",
					Description: "HH:MM:SS in UTC",
					Required:    true,
				},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        SubJoin,
			Description: "Join the daily challenge",
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        SubQuit,
			Description: "Quit the daily challenge",
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        SubUpdate,
			Description: "Refresh the cached question list from leetcode.com",
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        SubQuestion,
			Description: "Show a question by its number",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionInteger,
					Name:         "id",
					Description:  "Question number",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        SubToday,
			Description: "Show today's daily challenge",
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        SubSubmission,
			Description: "Show a submission by id or link",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "id",
					Description: "Submission id or URL",
					Required:    true,
				},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        SubMembers,
			Description: "List everyone who joined the daily challenge",
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        SubLeaderboard,
			Description: "Show the all-time completion leaderboard",
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        SubProgress,
			Description: "Show today's completion progress",
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        SubSubmit,
			Description: "Submit an accepted solution for today's challenge",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "submission",
					Description: "Submission id or URL",
					Required:    true,
				},
			},
		},
	},
}

// Config carries the handler's collaborators.
type Config struct {
	Store        *leet.Store
	Orchestrator *challenge.Orchestrator
	Scheduler    *scheduler.Scheduler
	API          *leetcode.Client
	Gateway      *discord.Gateway
}

type Handler struct {
	store *leet.Store
	orc   *challenge.Orchestrator
	sched *scheduler.Scheduler
	api   *leetcode.Client
	gw    *discord.Gateway
}

func NewHandler(config Config) *Handler {
	return &Handler{
		store: config.Store,
		orc:   config.Orchestrator,
		sched: config.Scheduler,
		api:   config.API,
		gw:    config.Gateway,
	}
}

// Register registers the /leetcode command globally.
func Register(s *discordgo.Session) error {
	_, err := s.ApplicationCommandCreate(s.State.User.ID, "", commandDefinition)
	if err != nil {
		return fmt.Errorf("commands: register %s: %w", CommandRoot, err)
	}
	return nil
}

type subHandler func(ctx context.Context, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) (string, *discordgo.MessageEmbed, error)

// HandleInteraction dispatches /leetcode invocations and autocomplete.
func (h *Handler) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommandAutocomplete:
		h.handleAutocomplete(s, i)
		return
	case discordgo.InteractionApplicationCommand:
	default:
		return
	}

	data := i.ApplicationCommandData()
	if data.Name != CommandRoot || len(data.Options) == 0 {
		return
	}
	sub := data.Options[0]

	if i.GuildID == "" {
		respond(s, i, "⚠️ This command only works inside a server.", true)
		return
	}
	if adminSubs[sub.Name] && !isAdmin(i) {
		respond(s, i, "⚠️ You need the Manage Server permission to do that.", true)
		return
	}

	handlers := map[string]subHandler{
		SubInit:        h.handleInit,
		SubInfo:        h.handleInfo,
		SubClean:       h.handleClean,
		SubStart:       h.handleStart,
		SubStop:        h.handleStop,
		SubChannel:     h.handleChannel,
		SubTimezone:    h.handleTimezone,
		SubRemindTime:  h.handleRemindTime,
		SubJoin:        h.handleJoin,
		SubQuit:        h.handleQuit,
		SubUpdate:      h.handleUpdate,
		SubQuestion:    h.handleQuestion,
		SubToday:       h.handleToday,
		SubSubmission:  h.handleSubmission,
		SubMembers:     h.handleMembers,
		SubLeaderboard: h.handleLeaderboard,
		SubProgress:    h.handleProgress,
		SubSubmit:      h.handleSubmit,
	}
	fn, ok := handlers[sub.Name]
	if !ok {
		respond(s, i, "⚠️ Unknown subcommand.", true)
		return
	}

	ephemeral := ephemeralSubs[sub.Name]
	if err := deferReply(s, i, ephemeral); err != nil {
		log.Printf("commands: defer %s: %v", sub.Name, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	content, embed, err := fn(ctx, i, sub.Options)
	if err != nil {
		followUp(s, i, "⚠️ "+userMessage(sub.Name, err), nil, true)
		return
	}
	followUp(s, i, content, embed, ephemeral)
}

// handleAutocomplete serves question-number completion for /leetcode question
// out of the local question cache.
func (h *Handler) handleAutocomplete(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	if data.Name != CommandRoot || len(data.Options) == 0 || data.Options[0].Name != SubQuestion {
		return
	}
	fragment := ""
	for _, opt := range data.Options[0].Options {
		if opt.Name == "id" && opt.Focused {
			fragment = strings.TrimSpace(fmt.Sprintf("%v", opt.Value))
		}
	}

	questions, err := h.store.QuestionsMatchingID(fragment, 25)
	if err != nil {
		log.Printf("commands: question autocomplete: %v", err)
		return
	}
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(questions))
	for _, q := range questions {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  fmt.Sprintf("%d. %s", q.ID, q.Title),
			Value: q.ID,
		})
	}
	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
	if err != nil {
		log.Printf("commands: autocomplete respond: %v", err)
	}
}

func isAdmin(i *discordgo.InteractionCreate) bool {
	if i.Member == nil {
		return false
	}
	return i.Member.Permissions&(discordgo.PermissionAdministrator|discordgo.PermissionManageServer) != 0
}

func callerID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	return ""
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Content: content}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		log.Printf("commands: respond: %v", err)
	}
}

func deferReply(s *discordgo.Session, i *discordgo.InteractionCreate, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: data,
	})
}

func followUp(s *discordgo.Session, i *discordgo.InteractionCreate, content string, embed *discordgo.MessageEmbed, ephemeral bool) {
	params := &discordgo.WebhookParams{Content: content}
	if embed != nil {
		params.Embeds = []*discordgo.MessageEmbed{embed}
	}
	if ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	if _, err := s.FollowupMessageCreate(i.Interaction, true, params); err != nil {
		log.Printf("commands: follow up: %v", err)
	}
}

// userMessage turns a handler error into reply text. Tagged errors carry a
// message written for the user; anything else is logged and masked.
func userMessage(sub string, err error) string {
	var tagged *cmderr.Error
	if errors.As(err, &tagged) {
		return tagged.Message
	}
	log.Printf("commands: %s: %v", sub, err)
	return "Something went wrong, please try again later."
}

func optString(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range opts {
		if opt.Name == name {
			return opt.StringValue()
		}
	}
	return ""
}

func optInt(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) int {
	for _, opt := range opts {
		if opt.Name == name {
			return int(opt.IntValue())
		}
	}
	return 0
}

func optChannelID(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range opts {
		if opt.Name == name {
			if v, ok := opt.Value.(string); ok {
				return v
			}
		}
	}
	return ""
}

// ParseRemindTime parses "HH:MM:SS" with strict field bounds. 23:59:59 and
// 00:00:00 are valid; hour 24 and minute/second 60 are not.
func ParseRemindTime(s string) (hour, minute, second int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, 0, 0, cmderr.New(cmderr.Validation, "time must look like HH:MM:SS, got %q", s)
	}
	vals := make([]int, 3)
	for idx, part := range parts {
		v, convErr := strconv.Atoi(part)
		if convErr != nil || v < 0 {
			return 0, 0, 0, cmderr.New(cmderr.Validation, "time must look like HH:MM:SS, got %q", s)
		}
		vals[idx] = v
	}
	if vals[0] > 23 {
		return 0, 0, 0, cmderr.New(cmderr.Validation, "hour %d is out of range", vals[0])
	}
	if vals[1] > 59 {
		return 0, 0, 0, cmderr.New(cmderr.Validation, "minute %d is out of range", vals[1])
	}
	if vals[2] > 59 {
		return 0, 0, 0, cmderr.New(cmderr.Validation, "second %d is out of range", vals[2])
	}
	return vals[0], vals[1], vals[2], nil
}
