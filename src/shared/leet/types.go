package leet

import "time"

// Difficulty ordinals as stored in the question cache.
const (
	DifficultyEasy   = 1
	DifficultyMedium = 2
	DifficultyHard   = 3
)

// GuildConfig is the per-guild plugin configuration. One row per guild,
// created by /leetcode init and removed by /leetcode clean.
type GuildConfig struct {
	GuildID               string    `gorm:"primaryKey;size:64"`
	RoleID                string    `gorm:"size:64;not null"`
	Cookie                string    `gorm:"type:text;not null"`
	NotificationChannelID string    `gorm:"size:64;not null"`
	DailyChallengeOn      bool      `gorm:"not null;default:false"`
	RemindTime            string    `gorm:"size:8;not null;default:'23:00:00'"`
	GuildTimezone         string    `gorm:"size:64;not null;default:'UTC'"`
	DailyChallengeDate    time.Time `gorm:"not null"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Member is a participation record, one per (guild, user).
type Member struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	GuildID string `gorm:"size:64;index;not null;uniqueIndex:idx_guild_user"`
	UserID  string `gorm:"size:64;not null;uniqueIndex:idx_guild_user"`

	Guild GuildConfig `gorm:"foreignKey:GuildID;references:GuildID;constraint:OnDelete:CASCADE"`
}

// Question caches challenge metadata keyed by the LeetCode frontend id.
type Question struct {
	ID         int    `gorm:"primaryKey"`
	Title      string `gorm:"size:256;not null;index"`
	TitleSlug  string `gorm:"size:256;not null;index"`
	Difficulty int    `gorm:"not null"`
	PaidOnly   bool   `gorm:"not null"`
}

// Submission is an accepted-completion record keyed by the external
// submission id. CreatedAt buckets the submission into a challenge day.
type Submission struct {
	SubmissionID int64     `gorm:"primaryKey"`
	MemberID     uint64    `gorm:"index;not null"`
	QuestionID   int       `gorm:"index;not null"`
	CreatedAt    time.Time `gorm:"not null"`

	Member   Member   `gorm:"foreignKey:MemberID;constraint:OnDelete:CASCADE"`
	Question Question `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE"`
}

// ScheduledJob is the scheduler's durable job row. Owned by the scheduler
// component; other code treats the ids as opaque strings.
type ScheduledJob struct {
	ID       string `gorm:"primaryKey;size:96"`
	Spec     string `gorm:"size:64;not null"`
	Arg      string `gorm:"size:64"`
	NextFire time.Time
}

// MemberScore is a leaderboard row: accepted submission count per member.
type MemberScore struct {
	UserID string
	Score  int64
}
