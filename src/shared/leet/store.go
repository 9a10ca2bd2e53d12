package leet

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store wraps gorm access to the plugin's tables. All mutating helpers are
// safe to call inside Transaction, which hands the callback a Store bound to
// the transaction.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the plugin's tables.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(
		&GuildConfig{},
		&Member{},
		&Question{},
		&Submission{},
		&ScheduledJob{},
	)
}

// Transaction runs fn inside a database transaction; fn receives a Store
// bound to the transaction. Rolls back when fn returns an error.
func (s *Store) Transaction(fn func(tx *Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) GuildConfig(guildID string) (*GuildConfig, error) {
	var cfg GuildConfig
	err := s.db.First(&cfg, "guild_id = ?", guildID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *Store) GuildConfigsWithChallengeOn() ([]GuildConfig, error) {
	var configs []GuildConfig
	err := s.db.Where("daily_challenge_on = ?", true).Find(&configs).Error
	return configs, err
}

func (s *Store) CreateGuildConfig(cfg *GuildConfig) error {
	return s.db.Create(cfg).Error
}

func (s *Store) SaveGuildConfig(cfg *GuildConfig) error {
	return s.db.Save(cfg).Error
}

// DeleteGuildConfig removes a guild's configuration together with its
// members and their submissions.
func (s *Store) DeleteGuildConfig(guildID string) error {
	return s.Transaction(func(tx *Store) error {
		if err := tx.db.Where(
			"member_id IN (?)",
			tx.db.Model(&Member{}).Select("id").Where("guild_id = ?", guildID),
		).Delete(&Submission{}).Error; err != nil {
			return err
		}
		if err := tx.db.Where("guild_id = ?", guildID).Delete(&Member{}).Error; err != nil {
			return err
		}
		return tx.db.Where("guild_id = ?", guildID).Delete(&GuildConfig{}).Error
	})
}

func (s *Store) Member(guildID, userID string) (*Member, error) {
	var m Member
	err := s.db.First(&m, "guild_id = ? AND user_id = ?", guildID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) MemberByID(id uint64) (*Member, error) {
	var m Member
	err := s.db.First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) Members(guildID string) ([]Member, error) {
	var members []Member
	err := s.db.Where("guild_id = ?", guildID).Order("id").Find(&members).Error
	return members, err
}

func (s *Store) CreateMember(m *Member) error {
	return s.db.Create(m).Error
}

func (s *Store) DeleteMember(id uint64) error {
	return s.Transaction(func(tx *Store) error {
		if err := tx.db.Where("member_id = ?", id).Delete(&Submission{}).Error; err != nil {
			return err
		}
		return tx.db.Delete(&Member{}, id).Error
	})
}

// dayRange returns the half-open UTC day interval containing t.
func dayRange(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

// CompletedUserIDs lists user ids of members holding a submission created on
// the given UTC day.
func (s *Store) CompletedUserIDs(guildID string, day time.Time) ([]string, error) {
	start, end := dayRange(day)
	var ids []string
	err := s.db.Model(&Submission{}).
		Joins("JOIN members ON members.id = submissions.member_id").
		Where("members.guild_id = ? AND submissions.created_at >= ? AND submissions.created_at < ?",
			guildID, start, end).
		Distinct().
		Pluck("members.user_id", &ids).Error
	return ids, err
}

// UncompletedUserIDs lists user ids of members with no submission on the
// given UTC day. Together with CompletedUserIDs it partitions the guild's
// members.
func (s *Store) UncompletedUserIDs(guildID string, day time.Time) ([]string, error) {
	start, end := dayRange(day)
	var ids []string
	err := s.db.Model(&Member{}).
		Where("members.guild_id = ?", guildID).
		Where("NOT EXISTS (?)",
			s.db.Model(&Submission{}).
				Select("1").
				Where("submissions.member_id = members.id").
				Where("submissions.created_at >= ? AND submissions.created_at < ?", start, end),
		).
		Pluck("members.user_id", &ids).Error
	return ids, err
}

func (s *Store) Question(id int) (*Question, error) {
	var q Question
	err := s.db.First(&q, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *Store) QuestionCount() (int64, error) {
	var n int64
	err := s.db.Model(&Question{}).Count(&n).Error
	return n, err
}

// QuestionsMatchingID returns cached questions whose numeric id contains the
// given digits, for command autocomplete.
func (s *Store) QuestionsMatchingID(fragment string, limit int) ([]Question, error) {
	var questions []Question
	err := s.db.Where("CAST(id AS CHAR) LIKE ?", "%"+fragment+"%").
		Limit(limit).Find(&questions).Error
	return questions, err
}

func (s *Store) UpsertQuestion(q *Question) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(q).Error
}

func (s *Store) SubmissionByID(id int64) (*Submission, error) {
	var sub Submission
	err := s.db.First(&sub, "submission_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *Store) CreateSubmission(sub *Submission) error {
	return s.db.Create(sub).Error
}

// RecordSubmission persists an accepted completion: the question cache row
// (when provided) and the submission row commit together or not at all.
func (s *Store) RecordSubmission(q *Question, sub *Submission) error {
	return s.Transaction(func(tx *Store) error {
		if q != nil {
			if err := tx.UpsertQuestion(q); err != nil {
				return err
			}
		}
		return tx.CreateSubmission(sub)
	})
}

// MemberScores returns the all-time accepted submission count per member of
// the guild, highest first.
func (s *Store) MemberScores(guildID string) ([]MemberScore, error) {
	var scores []MemberScore
	err := s.db.Model(&Submission{}).
		Select("members.user_id AS user_id, COUNT(submissions.submission_id) AS score").
		Joins("JOIN members ON members.id = submissions.member_id").
		Where("members.guild_id = ?", guildID).
		Group("members.id").
		Order("score DESC").
		Scan(&scores).Error
	return scores, err
}
