package discord

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/microcosm-cc/bluemonday"

	"github.com/codetrack/leetcode-bot/src/leetbot/components/leetcode"
)

const (
	fieldLimit = 1024

	colorOrange = 0xe67e22
	colorGreen  = 0x2ecc71
	colorRed    = 0xe74c3c
)

var htmlPolicy = bluemonday.StrictPolicy()

// PlainText strips HTML markup from LeetCode content for embed text.
func PlainText(raw string) string {
	return strings.TrimSpace(html.UnescapeString(htmlPolicy.Sanitize(raw)))
}

// TruncateField caps text at Discord's embed-field limit.
func TruncateField(text string) string {
	if len(text) <= fieldLimit {
		return text
	}
	return text[:fieldLimit-3] + "..."
}

// CodeBlockField wraps code in a fenced block, truncating to fit the limit.
func CodeBlockField(lang, code string) string {
	const fence = 8 // ```lang\n ... ```
	if len(code)+len(lang)+fence > fieldLimit {
		code = code[:fieldLimit-len(lang)-fence-3] + "..."
	}
	return fmt.Sprintf("```%s\n%s```", lang, code)
}

var highlightHints = map[string]string{
	"python3":    "python",
	"python":     "python",
	"javascript": "javascript",
	"java":       "java",
	"c++":        "cpp",
	"c":          "c",
	"c#":         "csharp",
	"sql":        "sql",
	"mysql":      "sql",
	"go":         "go",
	"golang":     "go",
	"ruby":       "ruby",
	"swift":      "swift",
	"scala":      "scala",
	"kotlin":     "kotlin",
	"rust":       "rust",
	"php":        "php",
	"typescript": "typescript",
	"r":          "r",
	"bash":       "bash",
	"shell":      "bash",
	"html":       "html",
	"css":        "css",
}

// HighlightHint maps a language name to a Discord code-block hint.
func HighlightHint(language string) string {
	lower := strings.ToLower(language)
	if hint, ok := highlightHints[lower]; ok {
		return hint
	}
	return lower
}

func topicsValue(tags []leetcode.TopicTag) string {
	var b strings.Builder
	for i, tag := range tags {
		link := fmt.Sprintf("[%s](https://leetcode.com/tag/%s)", tag.Name, tag.Slug)
		if b.Len()+len(link) > fieldLimit {
			break
		}
		b.WriteString(link)
		if i < len(tags)-1 {
			b.WriteString(", ")
		}
	}
	return b.String()
}

func similarValue(raw string) string {
	var similar []leetcode.SimilarQuestion
	if err := json.Unmarshal([]byte(raw), &similar); err != nil {
		return ""
	}
	var b strings.Builder
	for i, q := range similar {
		line := fmt.Sprintf("[%s](https://leetcode.com/problems/%s) (%s)", q.Title, q.TitleSlug, q.Difficulty)
		if b.Len()+len(line) > fieldLimit {
			break
		}
		b.WriteString(line)
		if i < len(similar)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func questionFields(q *leetcode.QuestionDetail, link string) []*discordgo.MessageEmbedField {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Acceptance", Value: fmt.Sprintf("%.2f%%", q.ACRate), Inline: true},
		{Name: "👍 Like", Value: fmt.Sprintf("%d", q.Likes), Inline: true},
		{Name: "👎 Dislike", Value: fmt.Sprintf("%d", q.Dislikes), Inline: true},
	}
	if topics := topicsValue(q.TopicTags); topics != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Related topics", Value: topics})
	}
	if similar := similarValue(q.SimilarQuestions); similar != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Similar questions", Value: similar})
	}
	return fields
}

func problemLine(q *leetcode.QuestionDetail, link string) string {
	line := fmt.Sprintf("[%s](%s) (%s)", q.Title, link, q.Difficulty)
	if q.HasSolution {
		line += fmt.Sprintf(" [Solution](%s/solution)", link)
	}
	return line
}

func paidMarker(paid bool) string {
	if paid {
		return " 💰"
	}
	return ""
}

// QuestionEmbed renders a question detail card.
func QuestionEmbed(q *leetcode.QuestionDetail) *discordgo.MessageEmbed {
	link := "https://leetcode.com/problems/" + q.TitleSlug
	fields := questionFields(q, link)
	if blurb := PlainText(q.Content); blurb != "" {
		fields = append([]*discordgo.MessageEmbedField{
			{Name: "Description", Value: TruncateField(blurb)},
		}, fields...)
	}
	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Leetcode Problem %s%s", q.FrontendID, paidMarker(q.IsPaidOnly)),
		Description: problemLine(q, link),
		Color:       colorOrange,
		Fields:      fields,
	}
}

// DailyEmbed renders today's daily-challenge card.
func DailyEmbed(d *leetcode.DailyChallenge) *discordgo.MessageEmbed {
	link := "https://leetcode.com" + d.Link
	q := &d.Question
	fields := []*discordgo.MessageEmbedField{
		{
			Name:  fmt.Sprintf("Problem %s%s", q.FrontendID, paidMarker(q.IsPaidOnly)),
			Value: problemLine(q, link),
		},
	}
	fields = append(fields, questionFields(q, link)...)
	return &discordgo.MessageEmbed{
		Title:  fmt.Sprintf("🏆 Leetcode Daily Coding Challenge (%s)", d.Date),
		Color:  colorOrange,
		Fields: fields,
	}
}

// NumberedList renders names as "1. a\n2. b", truncated to the field limit.
func NumberedList(names []string) string {
	var b strings.Builder
	for i, name := range names {
		line := fmt.Sprintf("%d. %s", i+1, name)
		if b.Len()+len(line)+1 > fieldLimit {
			break
		}
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(line)
	}
	return b.String()
}

// SummaryEmbed renders the end-of-day completion report for one guild.
func SummaryEmbed(day time.Time, completed, uncompleted []string) *discordgo.MessageEmbed {
	completedValue := "No one completed today's challenge. 😢"
	if len(completed) > 0 {
		completedValue = NumberedList(completed)
	}
	uncompletedValue := "Everyone completed today's challenge! 🎉"
	if len(uncompleted) > 0 {
		uncompletedValue = NumberedList(uncompleted)
	}
	return &discordgo.MessageEmbed{
		Title: fmt.Sprintf("📊 Daily Challenge Summary (%s)", day.UTC().Format("2006-01-02")),
		Color: colorOrange,
		Fields: []*discordgo.MessageEmbedField{
			{Name: fmt.Sprintf("✅ Completed (%d)", len(completed)), Value: completedValue},
			{Name: fmt.Sprintf("❌ Uncompleted (%d)", len(uncompleted)), Value: uncompletedValue},
		},
	}
}

// SubmissionEmbed renders a submission detail card. The timestamp in the
// footer is shown in the guild's display timezone.
func SubmissionEmbed(submissionID int64, det *leetcode.SubmissionDetail, comp *leetcode.SubmissionComplexity, loc *time.Location) *discordgo.MessageEmbed {
	status := leetcode.StatusDisplay(det.StatusCode)
	accepted := det.StatusCode == leetcode.StatusAccepted

	color := colorRed
	if accepted {
		color = colorGreen
	}

	runtimeValue := det.RuntimeDisplay
	if det.RuntimePercentile != nil {
		runtimeValue += fmt.Sprintf(" (Beats: %.2f%%)", *det.RuntimePercentile)
	}
	memoryValue := det.MemoryDisplay
	if det.MemoryPercentile != nil {
		memoryValue += fmt.Sprintf(" (Beats: %.2f%%)", *det.MemoryPercentile)
	}
	if accepted && comp != nil {
		if comp.TimeComplexity != nil && comp.TimeComplexity.Complexity != "" {
			runtimeValue += "\n" + comp.TimeComplexity.Complexity
		}
		if comp.MemoryComplexity != nil && comp.MemoryComplexity.Complexity != "" {
			memoryValue += "\n" + comp.MemoryComplexity.Complexity
		}
	}

	questionLink := "https://leetcode.com/problems/" + det.Question.TitleSlug
	fields := []*discordgo.MessageEmbedField{
		{
			Name:  fmt.Sprintf("Problem %s%s", det.Question.FrontendID, paidMarker(det.Question.IsPaidOnly)),
			Value: fmt.Sprintf("[%s](%s) (%s)", det.Question.Title, questionLink, det.Question.Difficulty),
		},
		{Name: "Status", Value: status},
		{Name: "Runtime", Value: runtimeValue, Inline: true},
		{Name: "Memory", Value: memoryValue, Inline: true},
		{
			Name:  fmt.Sprintf("Submission code (%s)", det.Lang.VerboseName),
			Value: CodeBlockField(HighlightHint(det.Lang.Name), det.Code),
		},
	}
	if det.Notes != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Notes", Value: TruncateField(det.Notes)})
	}
	if topics := topicsValue(det.TopicTags); topics != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Related tags", Value: topics})
	}

	if loc == nil {
		loc = time.UTC
	}
	when := det.SubmittedAt().In(loc).Format("2006-01-02 15:04:05 MST")

	return &discordgo.MessageEmbed{
		Title: "✍️ Leetcode Daily Coding Challenge Submission",
		URL:   fmt.Sprintf("https://leetcode.com/submissions/detail/%d", submissionID),
		Color: color,
		Author: &discordgo.MessageEmbedAuthor{
			Name:    det.User.Username,
			IconURL: det.User.Profile.UserAvatar,
		},
		Fields: fields,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%d | %s", submissionID, when),
		},
	}
}
