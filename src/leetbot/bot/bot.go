package bot

import (
	"context"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/codetrack/leetcode-bot/src/discord"
	"github.com/codetrack/leetcode-bot/src/leetbot/components/challenge"
	"github.com/codetrack/leetcode-bot/src/leetbot/components/commands"
	"github.com/codetrack/leetcode-bot/src/leetbot/components/leetcode"
	"github.com/codetrack/leetcode-bot/src/leetbot/components/scheduler"
	"github.com/codetrack/leetcode-bot/src/shared/data"
	"github.com/codetrack/leetcode-bot/src/shared/leet"
)

type Config struct {
	Token string
	DB    *gorm.DB
	Redis *redis.Client
}

type Bot struct {
	session  *discordgo.Session
	store    *leet.Store
	sched    *scheduler.Scheduler
	api      *leetcode.Client
	gateway  *discord.Gateway
	orc      *challenge.Orchestrator
	commands *commands.Handler
}

func New(config Config) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, err
	}

	store := leet.NewStore(config.DB)
	if err := store.Migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	bot := &Bot{
		session: dg,
		store:   store,
	}

	if err := bot.initializeComponents(config); err != nil {
		return nil, err
	}
	bot.registerHandlers()

	dg.Identify.Intents = discordgo.IntentsGuilds

	return bot, nil
}

func (b *Bot) initializeComponents(config Config) error {
	// Per-guild API sessions authenticate with the cookie stored in that
	// guild's configuration row.
	b.api = leetcode.NewClient(func(guildID string) (string, error) {
		cfg, err := b.store.GuildConfig(guildID)
		if err != nil {
			return "", err
		}
		if cfg == nil {
			return "", fmt.Errorf("bot: no configuration for guild %s", guildID)
		}
		return cfg.Cookie, nil
	})

	b.gateway = discord.NewGateway(b.session)
	b.sched = scheduler.New(config.DB)

	guard := &data.DayGuard{RDB: config.Redis}
	b.orc = challenge.New(b.store, b.api, b.gateway, b.sched, guard)

	b.sched.RegisterHandler(scheduler.KindDailyStart, func(ctx context.Context, arg string) error {
		return b.orc.StartOfDay(ctx)
	})
	b.sched.RegisterHandler(scheduler.KindDailyEnd, func(ctx context.Context, arg string) error {
		return b.orc.EndOfDay(ctx)
	})
	b.sched.RegisterHandler(scheduler.KindRemind, func(ctx context.Context, arg string) error {
		return b.orc.Remind(ctx, arg)
	})

	b.commands = commands.NewHandler(commands.Config{
		Store:        b.store,
		Orchestrator: b.orc,
		Scheduler:    b.sched,
		API:          b.api,
		Gateway:      b.gateway,
	})
	return nil
}

func (b *Bot) registerHandlers() {
	b.session.AddHandler(b.handleReady)
	b.session.AddHandler(b.commands.HandleInteraction)
}

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return err
	}
	if err := b.sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	if err := b.sched.EnsureGlobalJobs(); err != nil {
		return fmt.Errorf("register global jobs: %w", err)
	}
	return nil
}

func (b *Bot) Stop() {
	b.sched.Stop()
	b.session.Close()
}

func (b *Bot) handleReady(s *discordgo.Session, event *discordgo.Ready) {
	log.Printf("Discord bot logged in as %s", event.User.Username)
	if err := commands.Register(s); err != nil {
		log.Printf("Failed to register slash commands: %v", err)
	}
}
