// Package challenge orchestrates the daily-challenge workflow: the three
// scheduled job handlers (day start, evening reminder, day end) and the
// submission-validation routine invoked by the submit command.
package challenge

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/codetrack/leetcode-bot/src/leetbot/components/leetcode"
	"github.com/codetrack/leetcode-bot/src/shared/cmderr"
	"github.com/codetrack/leetcode-bot/src/shared/leet"
)

// Store is the repository surface the orchestrator needs. Implemented by
// shared/leet.Store.
type Store interface {
	GuildConfig(guildID string) (*leet.GuildConfig, error)
	GuildConfigsWithChallengeOn() ([]leet.GuildConfig, error)
	SaveGuildConfig(cfg *leet.GuildConfig) error
	DeleteGuildConfig(guildID string) error
	Member(guildID, userID string) (*leet.Member, error)
	MemberByID(id uint64) (*leet.Member, error)
	CompletedUserIDs(guildID string, day time.Time) ([]string, error)
	UncompletedUserIDs(guildID string, day time.Time) ([]string, error)
	Question(id int) (*leet.Question, error)
	SubmissionByID(id int64) (*leet.Submission, error)
	RecordSubmission(q *leet.Question, sub *leet.Submission) error
}

// API is the slice of the leetcode client the orchestrator needs.
type API interface {
	DailyChallenge(ctx context.Context) (*leetcode.DailyChallenge, error)
	SubmissionDetail(ctx context.Context, guildID string, submissionID int64) (*leetcode.SubmissionDetail, *leetcode.SubmissionComplexity, error)
}

// Gateway is the slice of the Discord adapter the orchestrator needs.
type Gateway interface {
	GuildExists(guildID string) bool
	RoleExists(guildID, roleID string) bool
	ChannelExists(channelID string) bool
	CanSend(channelID string) bool
	SendMessage(channelID, content string) error
	SendEmbed(channelID string, embed *discordgo.MessageEmbed) error
	SendMessageEmbed(channelID, content string, embed *discordgo.MessageEmbed) error
	MemberDisplayName(guildID, userID string) (string, error)
}

// Jobs lets the orchestrator's self-healing paths drop a guild's reminder.
type Jobs interface {
	RemoveReminder(guildID string) error
}

// Guard provides the redis-backed day locks and the shared daily-challenge
// cache. Implemented by shared/data.DayGuard.
type Guard interface {
	AcquireDayLock(ctx context.Context, jobID string, day time.Time) (bool, error)
	ReleaseDayLock(ctx context.Context, jobID string, day time.Time) error
	CachedDaily(ctx context.Context, day time.Time) ([]byte, error)
	CacheDaily(ctx context.Context, day time.Time, payload []byte) error
}

// Orchestrator coordinates store, leetcode API, Discord gateway and the
// scheduler. Job callbacks close over the instance; there is no global.
type Orchestrator struct {
	store   Store
	api     API
	gateway Gateway
	jobs    Jobs
	guard   Guard

	now func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(store Store, api API, gateway Gateway, jobs Jobs, guard Guard) *Orchestrator {
	return &Orchestrator{
		store:   store,
		api:     api,
		gateway: gateway,
		jobs:    jobs,
		guard:   guard,
		now:     func() time.Time { return time.Now().UTC() },
		locks:   make(map[string]*sync.Mutex),
	}
}

// guildLock returns the mutex serializing epoch advance and submission
// validation for one guild.
func (o *Orchestrator) guildLock(guildID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	lock, ok := o.locks[guildID]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[guildID] = lock
	}
	return lock
}

// utcMidnight truncates t to the start of its UTC day.
func utcMidnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Daily returns today's challenge, serving from the shared redis cache when
// possible so guild jobs firing together make one upstream request. The cache
// is keyed by the current UTC day, so a payload written before midnight is
// invisible after the epoch advances; a cached payload whose own date
// disagrees with today is discarded the same way.
func (o *Orchestrator) Daily(ctx context.Context) (*leetcode.DailyChallenge, error) {
	day := utcMidnight(o.now())
	today := day.Format("2006-01-02")

	if b, err := o.guard.CachedDaily(ctx, day); err == nil && b != nil {
		var d leetcode.DailyChallenge
		if json.Unmarshal(b, &d) == nil && d.Date == today {
			return &d, nil
		}
	} else if err != nil {
		log.Printf("challenge: daily cache read: %v", err)
	}

	d, err := o.api.DailyChallenge(ctx)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(d); err == nil {
		if err := o.guard.CacheDaily(ctx, day, b); err != nil {
			log.Printf("challenge: daily cache write: %v", err)
		}
	}
	return d, nil
}

// ExtractSubmissionID pulls the first run of digits out of free-form input,
// accepting a bare number or a submission URL.
func ExtractSubmissionID(input string) (int64, error) {
	start := -1
	for i, r := range input {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			input = input[:i]
			break
		}
	}
	if start < 0 {
		return 0, cmderr.New(cmderr.Validation, "no submission id found in %q", input)
	}
	id, err := strconv.ParseInt(input[start:], 10, 64)
	if err != nil || id <= 0 {
		return 0, cmderr.New(cmderr.Validation, "submission id %q is out of range", input[start:])
	}
	return id, nil
}

// resolveNames maps user ids to display names, falling back to a mention for
// members the gateway cannot resolve.
func (o *Orchestrator) resolveNames(guildID string, userIDs []string) []string {
	names := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		name, err := o.gateway.MemberDisplayName(guildID, id)
		if err != nil || name == "" {
			name = "<@" + id + ">"
		}
		names = append(names, name)
	}
	return names
}
