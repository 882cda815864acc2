package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/100xengineers/self-discovery-backend/internal/config"
	"github.com/100xengineers/self-discovery-backend/internal/models"
)

var (
	// ErrInvalidCredentials is returned when the profile system rejects a login
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrNotFound is returned when the profile system has no record
	ErrNotFound = errors.New("profile record not found")
)

// Client talks to the external profile system that owns mentee records,
// credit balances, transcripts and recharge requests.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *logrus.Logger
}

// NewClient creates a profile system client
func NewClient(cfg config.ProfileConfig, logger *logrus.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// IkigaiRecord is the stored state of a mentee's Ikigai conversation.
type IkigaiRecord struct {
	Details     *models.IkigaiDetails `json:"ikigai_details"`
	ChatHistory []models.ChatMessage  `json:"chat_history"`
}

// VerifyCredentials checks a mentee's email/password against the profile
// system and returns the profile user on success.
func (c *Client) VerifyCredentials(ctx context.Context, email, password string) (*models.User, error) {
	body := map[string]string{"email": email, "password": password}

	var user models.User
	err := c.do(ctx, http.MethodPost, "/api/auth/verify", nil, body, &user)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && (se.code == http.StatusUnauthorized || se.code == http.StatusForbidden) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	return &user, nil
}

// GetBalance reads the current balance for a (user, bucket) pair, in raw
// token-equivalents.
func (c *Client) GetBalance(ctx context.Context, userID string, bucket Bucket) (int, error) {
	query := url.Values{"userId": {userID}}

	if bucket.IsIdeation() {
		query.Set("balanceType", string(bucket))
		var resp struct {
			IdeationBalance int `json:"ideation_balance"`
		}
		if err := c.do(ctx, http.MethodGet, "/api/ideation-balance", query, nil, &resp); err != nil {
			return 0, err
		}
		return resp.IdeationBalance, nil
	}

	var resp struct {
		IkigaiBalance int `json:"ikigai_balance"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/ikigai-balance", query, nil, &resp); err != nil {
		return 0, err
	}
	return resp.IkigaiBalance, nil
}

// UpdateBalance writes a new absolute balance for a (user, bucket) pair.
func (c *Client) UpdateBalance(ctx context.Context, userID string, bucket Bucket, amount int) error {
	if bucket.IsIdeation() {
		body := map[string]interface{}{
			"userId":      userID,
			"amount":      amount,
			"balanceType": string(bucket),
		}
		return c.do(ctx, http.MethodPut, "/api/ideation-balance", nil, body, nil)
	}

	body := map[string]interface{}{"userId": userID, "amount": amount}
	return c.do(ctx, http.MethodPost, "/api/ikigai-balance", nil, body, nil)
}

// GetIkigai fetches a mentee's Ikigai record (details plus chat history).
// A missing record returns an empty record, not an error.
func (c *Client) GetIkigai(ctx context.Context, userID string) (*IkigaiRecord, error) {
	query := url.Values{"userId": {userID}}

	var record IkigaiRecord
	err := c.do(ctx, http.MethodGet, "/api/ikigai", query, nil, &record)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &IkigaiRecord{}, nil
		}
		return nil, err
	}
	return &record, nil
}

// SaveIkigai persists a completed Ikigai chart plus the transcript that
// produced it.
func (c *Client) SaveIkigai(ctx context.Context, userID string, details models.IkigaiDetails, history []models.ChatMessage) error {
	body := map[string]interface{}{
		"userId":                   userID,
		"what_you_love":            details.WhatYouLove,
		"what_you_are_good_at":     details.WhatYouAreGoodAt,
		"what_world_needs":         details.WhatWorldNeeds,
		"what_you_can_be_paid_for": details.WhatYouCanBePaidFor,
		"your_ikigai":              details.YourIkigai,
		"explanation":              details.Explanation,
		"next_steps":               details.NextSteps,
		"status":                   details.Status,
		"chat_history":             history,
	}
	return c.do(ctx, http.MethodPost, "/api/ikigai", nil, body, nil)
}

// SaveIkigaiTranscript persists an in-progress Ikigai transcript without a
// structured result.
func (c *Client) SaveIkigaiTranscript(ctx context.Context, userID string, history []models.ChatMessage) error {
	body := map[string]interface{}{
		"userId":       userID,
		"status":       models.StatusOngoing,
		"chat_history": history,
	}
	return c.do(ctx, http.MethodPost, "/api/ikigai", nil, body, nil)
}

// DeleteIkigai clears a mentee's Ikigai record (the "start over" action).
func (c *Client) DeleteIkigai(ctx context.Context, userID string) error {
	query := url.Values{"userId": {userID}}
	return c.do(ctx, http.MethodDelete, "/api/ikigai", query, nil, nil)
}

// ListProjectIdeas returns the stored project ideas for a user and module,
// oldest first.
func (c *Client) ListProjectIdeas(ctx context.Context, userID, moduleName string) ([]models.ProjectIdea, error) {
	query := url.Values{"userId": {userID}, "moduleName": {moduleName}}

	var ideas []models.ProjectIdea
	err := c.do(ctx, http.MethodGet, "/api/project-ideas", query, nil, &ideas)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return ideas, nil
}

// SaveProjectIdea persists an agreed project idea together with its
// transcript.
func (c *Client) SaveProjectIdea(ctx context.Context, userID, moduleName string, idea models.ProjectIdea, history []models.ChatMessage) error {
	body := map[string]interface{}{
		"userId":            userID,
		"moduleName":        moduleName,
		"problem_statement": idea.ProblemStatement,
		"solution":          idea.Solution,
		"features":          idea.Features,
		"chatHistory":       history,
	}
	return c.do(ctx, http.MethodPut, "/api/project-ideas", nil, body, nil)
}

// SaveIdeationTranscript persists the running transcript for a module's
// ideation chat, creating the record if none exists yet.
func (c *Client) SaveIdeationTranscript(ctx context.Context, userID, moduleName string, history []models.ChatMessage) error {
	if len(history) == 0 {
		return nil
	}

	existing, err := c.ListProjectIdeas(ctx, userID, moduleName)
	if err != nil {
		return err
	}

	if len(existing) > 0 {
		body := map[string]interface{}{
			"userId":      userID,
			"moduleName":  moduleName,
			"chatHistory": history,
		}
		return c.do(ctx, http.MethodPut, "/api/project-ideas", nil, body, nil)
	}

	body := map[string]interface{}{
		"user_id":      userID,
		"module_name":  moduleName,
		"chat_history": history,
	}
	return c.do(ctx, http.MethodPost, "/api/project-ideas", nil, body, nil)
}

// CreateRechargeRequest submits a human-reviewed recharge request. It does
// not change any balance; an operator acts on it out-of-band.
func (c *Client) CreateRechargeRequest(ctx context.Context, userID, menteeName string, bucket Bucket, amount int, history []models.ChatMessage) error {
	body := map[string]interface{}{
		"menteeId":    userID,
		"menteeName":  menteeName,
		"amount":      amount,
		"balanceType": string(bucket),
		"chatHistory": history,
	}
	return c.do(ctx, http.MethodPost, "/api/recharge-requests", nil, body, nil)
}

// statusError carries a non-2xx response code
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("profile system returned %d: %s", e.code, e.body)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("profile system request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var buf bytes.Buffer
		buf.ReadFrom(resp.Body)
		c.logger.WithFields(logrus.Fields{
			"method": method,
			"path":   path,
			"status": resp.StatusCode,
		}).Warn("profile system call failed")
		return &statusError{code: resp.StatusCode, body: buf.String()}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
