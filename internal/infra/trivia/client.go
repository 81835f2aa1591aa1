package trivia

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
	"quiz-progress-service/internal/domain"
)

// DefaultBaseURL is the Open Trivia Database question endpoint.
const DefaultBaseURL = "https://opentdb.com/api.php"

// Open Trivia DB response codes.
const (
	codeSuccess      = 0
	codeNoResults    = 1
	codeInvalidParam = 2
	codeRateLimited  = 5
)

// DefaultMinInterval matches the API's limit of one request per 5 seconds per IP.
const DefaultMinInterval = 5 * time.Second

// Client loads multiple-choice questions from the Open Trivia Database.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithMinInterval spaces upstream requests at least d apart. Zero disables
// client-side throttling.
func WithMinInterval(d time.Duration) ClientOption {
	return func(c *Client) {
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

func NewClient(baseURL string, timeout time.Duration, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(DefaultMinInterval), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type apiResponse struct {
	ResponseCode int           `json:"response_code"`
	Results      []apiQuestion `json:"results"`
}

type apiQuestion struct {
	Category         string   `json:"category"`
	Type             string   `json:"type"`
	Difficulty       string   `json:"difficulty"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

// LoadQuestions fetches a batch of questions. A query with no matching
// questions yields an empty slice, not an error.
func (c *Client) LoadQuestions(ctx context.Context, query domain.QuestionQuery) ([]domain.Question, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse trivia url: %w", err)
	}
	params := u.Query()
	params.Set("amount", strconv.Itoa(query.Amount))
	params.Set("type", "multiple")
	if query.Category > 0 {
		params.Set("category", strconv.Itoa(query.Category))
	}
	if query.Difficulty != "" {
		params.Set("difficulty", string(query.Difficulty))
	}
	u.RawQuery = params.Encode()

	// Waiting past the caller's deadline would only earn a response_code 5.
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTriviaRateLimited, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build trivia request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTriviaUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, domain.ErrTriviaRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", domain.ErrTriviaUpstream, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrTriviaUpstream, err)
	}
	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode body: %v", domain.ErrTriviaUpstream, err)
	}

	switch parsed.ResponseCode {
	case codeSuccess:
	case codeNoResults:
		return []domain.Question{}, nil
	case codeRateLimited:
		return nil, domain.ErrTriviaRateLimited
	case codeInvalidParam:
		return nil, fmt.Errorf("%w: invalid parameter", domain.ErrInvalidQuery)
	default:
		return nil, fmt.Errorf("%w: response code %d", domain.ErrTriviaUpstream, parsed.ResponseCode)
	}

	questions := make([]domain.Question, 0, len(parsed.Results))
	for _, q := range parsed.Results {
		incorrect := make([]string, 0, len(q.IncorrectAnswers))
		for _, a := range q.IncorrectAnswers {
			incorrect = append(incorrect, html.UnescapeString(a))
		}
		questions = append(questions, domain.Question{
			Category:         html.UnescapeString(q.Category),
			Type:             q.Type,
			Difficulty:       q.Difficulty,
			Question:         html.UnescapeString(q.Question),
			CorrectAnswer:    html.UnescapeString(q.CorrectAnswer),
			IncorrectAnswers: incorrect,
		})
	}
	return questions, nil
}
