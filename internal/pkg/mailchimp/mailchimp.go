package mailchimp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/qs3c/pec_go_server/config"
)

const (
	StatusSubscribed = "subscribed"
	memberExists     = "Member Exists"
)

var ErrNotConfigured = errors.New("mailchimp is not configured")

// APIError Mailchimp 返回的错误
type APIError struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mailchimp: %d %s: %s", e.Status, e.Title, e.Detail)
}

type Client struct {
	apiKey  string
	listID  string
	baseURL string
	http    *http.Client
}

func NewClient(cfg *config.MailchimpConfig) *Client {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = baseURLFromKey(cfg.APIKey)
	}
	return &Client{
		apiKey:  cfg.APIKey,
		listID:  cfg.ListID,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// baseURLFromKey api key 的后缀是数据中心，如 xxx-us10
func baseURLFromKey(apiKey string) string {
	dc := "us1"
	if i := strings.LastIndex(apiKey, "-"); i >= 0 && i < len(apiKey)-1 {
		dc = apiKey[i+1:]
	}
	return fmt.Sprintf("https://%s.api.mailchimp.com", dc)
}

// Subscribe 把邮箱加入列表，已订阅视为成功
func (c *Client) Subscribe(ctx context.Context, email string) (string, error) {
	if c.apiKey == "" || c.listID == "" {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(map[string]string{
		"email_address": email,
		"status":        StatusSubscribed,
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/3.0/lists/%s/members", c.baseURL, c.listID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth("anystring", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var member struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&member); err != nil || member.Status == "" {
			return StatusSubscribed, nil
		}
		return member.Status, nil
	}

	apiErr := &APIError{Status: resp.StatusCode}
	_ = json.NewDecoder(resp.Body).Decode(apiErr)
	if apiErr.Title == memberExists {
		return StatusSubscribed, nil
	}
	return "", apiErr
}
