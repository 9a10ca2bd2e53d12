package leetcode

import "time"

// TopicTag is a question topic label.
type TopicTag struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// SimilarQuestion is one entry of a question's similar-questions list.
type SimilarQuestion struct {
	Title      string `json:"title"`
	TitleSlug  string `json:"titleSlug"`
	Difficulty string `json:"difficulty"`
}

// QuestionDetail is the GraphQL question record.
type QuestionDetail struct {
	FrontendID       string     `json:"questionFrontendId"`
	Title            string     `json:"title"`
	TitleSlug        string     `json:"titleSlug"`
	ACRate           float64    `json:"acRate"`
	Difficulty       string     `json:"difficulty"`
	Likes            int        `json:"likes"`
	Dislikes         int        `json:"dislikes"`
	Content          string     `json:"content"`
	SimilarQuestions string     `json:"similarQuestions"`
	IsPaidOnly       bool       `json:"isPaidOnly"`
	HasSolution      bool       `json:"hasSolution"`
	TopicTags        []TopicTag `json:"topicTags"`
}

// DailyChallenge is today's active daily coding challenge.
type DailyChallenge struct {
	Date     string         `json:"date"`
	Link     string         `json:"link"`
	Question QuestionDetail `json:"question"`
}

// Day returns the challenge date as a UTC midnight timestamp.
func (d *DailyChallenge) Day() (time.Time, error) {
	return time.ParseInLocation("2006-01-02", d.Date, time.UTC)
}

// SubmissionUser identifies the submitting account.
type SubmissionUser struct {
	Username string `json:"username"`
	Profile  struct {
		RealName   string `json:"realName"`
		UserAvatar string `json:"userAvatar"`
	} `json:"profile"`
}

// SubmissionLang is the submission language record.
type SubmissionLang struct {
	Name        string `json:"name"`
	VerboseName string `json:"verboseName"`
}

// SubmissionQuestion is the question block embedded in a submission detail.
type SubmissionQuestion struct {
	FrontendID string `json:"questionFrontendId"`
	Title      string `json:"title"`
	TitleSlug  string `json:"titleSlug"`
	Difficulty string `json:"difficulty"`
	IsPaidOnly bool   `json:"isPaidOnly"`
}

// SubmissionDetail is the GraphQL submissionDetails record. Percentiles are
// pointers because the API reports null for fresh submissions.
type SubmissionDetail struct {
	RuntimeDisplay    string             `json:"runtimeDisplay"`
	RuntimePercentile *float64           `json:"runtimePercentile"`
	MemoryDisplay     string             `json:"memoryDisplay"`
	MemoryPercentile  *float64           `json:"memoryPercentile"`
	Code              string             `json:"code"`
	Timestamp         int64              `json:"timestamp"`
	StatusCode        int                `json:"statusCode"`
	User              SubmissionUser     `json:"user"`
	Lang              SubmissionLang     `json:"lang"`
	Question          SubmissionQuestion `json:"question"`
	Notes             string             `json:"notes"`
	TopicTags         []TopicTag         `json:"topicTags"`
}

// SubmittedAt returns the submission timestamp in UTC.
func (d *SubmissionDetail) SubmittedAt() time.Time {
	return time.Unix(d.Timestamp, 0).UTC()
}

// ComplexityEntry is one half of a submission's complexity estimate.
type ComplexityEntry struct {
	Complexity string `json:"complexity"`
}

// SubmissionComplexity is the GraphQL submissionComplexity record.
type SubmissionComplexity struct {
	TimeComplexity   *ComplexityEntry `json:"timeComplexity"`
	MemoryComplexity *ComplexityEntry `json:"memoryComplexity"`
}

// Problem is one entry of the bulk /api/problems/all listing.
type Problem struct {
	ID         int
	Title      string
	TitleSlug  string
	Difficulty int
	PaidOnly   bool
}

// Accepted status code reported by submissionDetails.
const StatusAccepted = 10

// StatusDisplay maps a submission status code to its display name.
func StatusDisplay(code int) string {
	switch code {
	case 10:
		return "Accepted"
	case 11:
		return "Wrong Answer"
	case 12:
		return "Memory Limit Exceeded"
	case 13:
		return "Output Limit Exceeded"
	case 14:
		return "Time Limit Exceeded"
	case 15:
		return "Runtime Error"
	case 16:
		return "Internal Error"
	case 17:
		return "Compile Error"
	case 18:
		return "Timeout"
	default:
		return "Unknown Status"
	}
}
