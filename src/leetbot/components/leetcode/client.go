// Package leetcode talks to leetcode.com's web and GraphQL APIs.
package leetcode

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	baseURL       = "https://leetcode.com"
	sessionCookie = "LEETCODE_SESSION"
)

var (
	// ErrRemoteUnavailable reports a non-2xx or transport-level failure.
	ErrRemoteUnavailable = errors.New("leetcode: remote unavailable")
	// ErrAuthExpired reports a 403, meaning the session cookie no longer works.
	ErrAuthExpired = errors.New("leetcode: session cookie rejected")
)

// CookieFunc resolves the stored session cookie for a guild.
type CookieFunc func(guildID string) (string, error)

// Client is a leetcode.com API client. Outbound connections for every guild
// share one bounded transport; each guild gets its own cookie session,
// created on first use.
type Client struct {
	transport *http.Transport
	timeout   time.Duration
	cookieFn  CookieFunc

	mu       sync.Mutex
	sessions map[string]*guildSession

	base *http.Client
}

type guildSession struct {
	once   sync.Once
	client *http.Client
	err    error
}

func NewClient(cookieFn CookieFunc) *Client {
	transport := &http.Transport{
		MaxConnsPerHost:     50,
		MaxIdleConnsPerHost: 10,
	}
	return &Client{
		transport: transport,
		timeout:   30 * time.Second,
		cookieFn:  cookieFn,
		sessions:  make(map[string]*guildSession),
		base: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
	}
}

// session returns the cached per-guild HTTP client, building it on first use.
// Construction is single-flight per guild id.
func (c *Client) session(guildID string) (*http.Client, error) {
	c.mu.Lock()
	sess, ok := c.sessions[guildID]
	if !ok {
		sess = &guildSession{}
		c.sessions[guildID] = sess
	}
	c.mu.Unlock()

	sess.once.Do(func() {
		jar, err := cookiejar.New(nil)
		if err != nil {
			sess.err = err
			return
		}
		cookie, err := c.cookieFn(guildID)
		if err != nil {
			sess.err = err
			return
		}
		if cookie != "" {
			u, _ := url.Parse(baseURL)
			jar.SetCookies(u, []*http.Cookie{{Name: sessionCookie, Value: cookie}})
		}
		sess.client = &http.Client{
			Transport: c.transport,
			Jar:       jar,
			Timeout:   c.timeout,
		}
	})
	if sess.err != nil {
		// A transient cookie lookup failure must not poison the cache; drop
		// the entry so the next call rebuilds it.
		c.mu.Lock()
		if c.sessions[guildID] == sess {
			delete(c.sessions, guildID)
		}
		c.mu.Unlock()
		return nil, sess.err
	}
	return sess.client, nil
}

// InvalidateSession drops a guild's cached session so the next call rebuilds
// it with the currently stored cookie.
func (c *Client) InvalidateSession(guildID string) {
	c.mu.Lock()
	delete(c.sessions, guildID)
	c.mu.Unlock()
}

type graphqlRequest struct {
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
	Query         string                 `json:"query"`
}

func (c *Client) graphql(ctx context.Context, client *http.Client, req graphqlRequest, out interface{}) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/graphql", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return ErrAuthExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s %s", ErrRemoteUnavailable, resp.Status, req.OperationName)
	}

	payload := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrRemoteUnavailable, err)
	}
	return json.Unmarshal(payload.Data, out)
}

// DailyChallenge fetches today's active daily coding challenge. The query
// needs no authentication, so it runs on the shared anonymous client.
func (c *Client) DailyChallenge(ctx context.Context) (*DailyChallenge, error) {
	var data struct {
		Active *DailyChallenge `json:"activeDailyCodingChallengeQuestion"`
	}
	err := c.graphql(ctx, c.base, graphqlRequest{
		OperationName: "questionOfToday",
		Variables:     map[string]interface{}{},
		Query:         dailyChallengeQuery,
	}, &data)
	if err != nil {
		return nil, err
	}
	if data.Active == nil {
		return nil, fmt.Errorf("%w: empty daily challenge response", ErrRemoteUnavailable)
	}
	return data.Active, nil
}

// QuestionBySlug fetches full question detail for a title slug.
func (c *Client) QuestionBySlug(ctx context.Context, guildID, slug string) (*QuestionDetail, error) {
	client, err := c.session(guildID)
	if err != nil {
		return nil, err
	}
	var data struct {
		Question *QuestionDetail `json:"question"`
	}
	err = c.graphql(ctx, client, graphqlRequest{
		OperationName: "questionData",
		Variables:     map[string]interface{}{"titleSlug": slug},
		Query:         questionQuery,
	}, &data)
	if err != nil {
		return nil, err
	}
	if data.Question == nil {
		return nil, fmt.Errorf("%w: question %q not in response", ErrRemoteUnavailable, slug)
	}
	return data.Question, nil
}

// SubmissionDetail fetches a submission's detail and complexity estimate.
// A nil detail with nil error means the submission does not exist or is not
// visible with the guild's credentials.
func (c *Client) SubmissionDetail(ctx context.Context, guildID string, submissionID int64) (*SubmissionDetail, *SubmissionComplexity, error) {
	client, err := c.session(guildID)
	if err != nil {
		return nil, nil, err
	}
	var data struct {
		Details    *SubmissionDetail     `json:"submissionDetails"`
		Complexity *SubmissionComplexity `json:"submissionComplexity"`
	}
	err = c.graphql(ctx, client, graphqlRequest{
		OperationName: "submissionDetails",
		Variables: map[string]interface{}{
			"submissionIntId": submissionID,
			"submissionId":    fmt.Sprintf("%d", submissionID),
		},
		Query: submissionQuery,
	}, &data)
	if err != nil {
		return nil, nil, err
	}
	return data.Details, data.Complexity, nil
}

type problemsResponse struct {
	StatStatusPairs []struct {
		Stat struct {
			FrontendQuestionID int    `json:"frontend_question_id"`
			QuestionTitle      string `json:"question__title"`
			QuestionTitleSlug  string `json:"question__title_slug"`
		} `json:"stat"`
		Difficulty struct {
			Level int `json:"level"`
		} `json:"difficulty"`
		PaidOnly bool `json:"paid_only"`
	} `json:"stat_status_pairs"`
}

// AllProblems fetches the complete problem listing for the question cache.
func (c *Client) AllProblems(ctx context.Context, guildID string) ([]Problem, error) {
	client, err := c.session(guildID)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/problems/all", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return nil, ErrAuthExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s problems/all", ErrRemoteUnavailable, resp.Status)
	}

	var listing problemsResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrRemoteUnavailable, err)
	}

	problems := make([]Problem, 0, len(listing.StatStatusPairs))
	for _, p := range listing.StatStatusPairs {
		problems = append(problems, Problem{
			ID:         p.Stat.FrontendQuestionID,
			Title:      p.Stat.QuestionTitle,
			TitleSlug:  p.Stat.QuestionTitleSlug,
			Difficulty: p.Difficulty.Level,
			PaidOnly:   p.PaidOnly,
		})
	}
	return problems, nil
}

// CredentialStatus reports the outcome of a session-cookie check.
type CredentialStatus struct {
	// Rotated holds a replacement cookie when the site issued one, else "".
	Rotated   string
	ExpiresAt time.Time
}

// CheckCredential probes the API with the guild's session cookie. A nil
// status with nil error means the stored cookie is invalid or unparseable.
func (c *Client) CheckCredential(ctx context.Context, guildID string) (*CredentialStatus, error) {
	client, err := c.session(guildID)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/problems/0", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil
	}

	rotated := ""
	for _, ck := range resp.Cookies() {
		if ck.Name == sessionCookie && ck.Value != "" {
			rotated = ck.Value
		}
	}

	u, _ := url.Parse(baseURL)
	current := ""
	if client.Jar != nil {
		for _, ck := range client.Jar.Cookies(u) {
			if ck.Name == sessionCookie {
				current = ck.Value
			}
		}
	}
	if current == "" {
		return nil, nil
	}

	expires, err := SessionExpiry(current)
	if err != nil {
		return nil, nil
	}
	return &CredentialStatus{Rotated: rotated, ExpiresAt: expires}, nil
}

// SessionExpiry extracts the expiry of a LEETCODE_SESSION cookie from its
// JWT payload (refreshed_at + _session_expiry).
func SessionExpiry(cookie string) (time.Time, error) {
	parts := strings.Split(cookie, ".")
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("leetcode: cookie is not a JWT")
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return time.Time{}, fmt.Errorf("leetcode: decode cookie payload: %w", err)
	}
	var payload struct {
		RefreshedAt   int64 `json:"refreshed_at"`
		SessionExpiry int64 `json:"_session_expiry"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return time.Time{}, fmt.Errorf("leetcode: parse cookie payload: %w", err)
	}
	if payload.RefreshedAt == 0 || payload.SessionExpiry == 0 {
		return time.Time{}, fmt.Errorf("leetcode: cookie payload missing expiry fields")
	}
	return time.Unix(payload.RefreshedAt+payload.SessionExpiry, 0).UTC(), nil
}

// DifficultyOrdinal maps a difficulty display label to its stored ordinal.
// Unknown labels are an error so corrupt data never lands in the cache.
func DifficultyOrdinal(label string) (int, error) {
	switch label {
	case "Easy":
		return 1, nil
	case "Medium":
		return 2, nil
	case "Hard":
		return 3, nil
	default:
		return 0, fmt.Errorf("leetcode: unknown difficulty label %q", label)
	}
}
