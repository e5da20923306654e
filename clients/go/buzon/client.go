// Package buzon provides a client for the buzon two-person mailbox.
package buzon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

// DefaultURL is used when no base URL is given.
const DefaultURL = "http://localhost:5000"

// Client is a buzon API client bound to one device.
type Client struct {
	BaseURL    string
	Device     string
	HTTPClient *http.Client
}

// NewClient creates a new client. device is the participant this client acts as.
func NewClient(baseURL, device string) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{
		BaseURL:    baseURL,
		Device:     device,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Message is a delivered message.
type Message struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Timestamp time.Time `json:"timestamp"`
}

// APIError is returned for any 4xx or 5xx response.
type APIError struct {
	StatusCode int
	Message    string `json:"error"`
	Reason     string `json:"reason"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("buzon error %d (%s): %s", e.StatusCode, e.Reason, e.Message)
}

// doRequest performs an HTTP request and returns the body of a successful response.
func (c *Client) doRequest(method, path string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encode request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(respBody, apiErr)
		return nil, apiErr
	}

	return respBody, nil
}

// SendResponse is the result of Send.
type SendResponse struct {
	Status  string  `json:"status"`
	To      string  `json:"to"`
	Message Message `json:"message"`
}

// Send writes text to the other participant's slot.
func (c *Client) Send(text string) (*SendResponse, error) {
	respBody, err := c.doRequest(http.MethodPost, "/mensaje", map[string]string{
		"text": text,
		"from": c.Device,
	})
	if err != nil {
		return nil, err
	}

	var resp SendResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	return &resp, nil
}

// StatusResponse is the result of Status.
type StatusResponse struct {
	Device      string   `json:"device"`
	OtherDevice string   `json:"other_device"`
	OtherOnline bool     `json:"other_online"`
	HasUnread   bool     `json:"has_unread"`
	Message     *Message `json:"message"`
}

// Status polls the server. Every call also marks this device as online.
func (c *Client) Status() (*StatusResponse, error) {
	respBody, err := c.doRequest(http.MethodGet, "/estado?device="+url.QueryEscape(c.Device), nil)
	if err != nil {
		return nil, err
	}

	var resp StatusResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	return &resp, nil
}

// MarkSeenResponse is the result of MarkSeen.
type MarkSeenResponse struct {
	Status            string `json:"status"`
	Device            string `json:"device"`
	LastSeenMessageID int64  `json:"last_seen_message_id"`
}

// MarkSeen acknowledges every message up to and including id.
func (c *Client) MarkSeen(id int64) (*MarkSeenResponse, error) {
	respBody, err := c.doRequest(http.MethodPost, "/mensaje_visto", map[string]interface{}{
		"device":     c.Device,
		"message_id": id,
	})
	if err != nil {
		return nil, err
	}

	var resp MarkSeenResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	return &resp, nil
}

// Latest returns the newest message in either slot, or nil when nothing was sent yet.
func (c *Client) Latest() (*Message, error) {
	respBody, err := c.doRequest(http.MethodGet, "/ultimo_mensaje", nil)
	if err != nil {
		return nil, err
	}

	var msg *Message
	if err := json.Unmarshal(respBody, &msg); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	return msg, nil
}

// HealthResponse is the result of Health.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Instance string `json:"instance"`
	Checks   map[string]struct {
		Status  string `json:"status"`
		Latency string `json:"latency"`
	} `json:"checks"`
}

// Health checks the server health. A degraded server is reported as an APIError.
func (c *Client) Health() (*HealthResponse, error) {
	respBody, err := c.doRequest(http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}

	var resp HealthResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	return &resp, nil
}

// Unread polls once and, when a message is waiting, acknowledges it and returns it.
// It returns nil when there is nothing new.
func (c *Client) Unread() (*Message, error) {
	st, err := c.Status()
	if err != nil {
		return nil, err
	}
	if !st.HasUnread || st.Message == nil {
		return nil, nil
	}
	if _, err := c.MarkSeen(st.Message.ID); err != nil {
		return nil, err
	}
	return st.Message, nil
}
