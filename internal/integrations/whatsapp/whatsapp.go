package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Dan9191/fee-service/internal/config"
	"github.com/Dan9191/fee-service/internal/dispatch"
	"github.com/sirupsen/logrus"
)

// Client sends text messages through the WhatsApp Cloud API
type Client struct {
	baseURL       string
	phoneNumberID string
	token         string
	client        *http.Client
	log           *logrus.Logger
}

var _ dispatch.Channel = (*Client)(nil)

// NewClient initializes a new WhatsApp client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		baseURL:       strings.TrimRight(cfg.WhatsAppAPIURL, "/"),
		phoneNumberID: cfg.WhatsAppPhoneNumberID,
		token:         cfg.WhatsAppToken,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

type textBody struct {
	Body string `json:"body"`
}

type sendRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Send posts a text message. API-level rejections are reported as an
// undelivered receipt; transport failures are returned as errors.
func (c *Client) Send(ctx context.Context, phone, text string) (dispatch.Receipt, error) {
	payload, err := json.Marshal(sendRequest{
		MessagingProduct: "whatsapp",
		To:               phone,
		Type:             "text",
		Text:             textBody{Body: text},
	})
	if err != nil {
		return dispatch.Receipt{}, fmt.Errorf("failed to encode message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return dispatch.Receipt{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return dispatch.Receipt{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return dispatch.Receipt{}, fmt.Errorf("failed to read response: %w", err)
	}
	c.log.Debugf("WhatsApp response (%d): %s", resp.StatusCode, string(body))

	var parsed sendResponse
	if err := json.Unmarshal(body, &parsed); err != nil && resp.StatusCode == http.StatusOK {
		return dispatch.Receipt{}, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("unexpected status code: %d", resp.StatusCode)
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = fmt.Sprintf("%s (%d)", parsed.Error.Message, parsed.Error.Code)
		}
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			return dispatch.Receipt{}, fmt.Errorf("whatsapp api: %s", msg)
		}
		return dispatch.Receipt{Delivered: false, Error: msg}, nil
	}
	if len(parsed.Messages) == 0 {
		return dispatch.Receipt{Delivered: false, Error: "no message id returned"}, nil
	}

	c.log.Infof("WhatsApp message accepted for %s: %s", phone, parsed.Messages[0].ID)
	return dispatch.Receipt{Delivered: true, ID: parsed.Messages[0].ID}, nil
}

// DeepLink builds a wa.me link that opens WhatsApp with the recipient and
// message prefilled. phone must already be in international digit form.
func DeepLink(phone, text string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
	return fmt.Sprintf("https://wa.me/%s?text=%s", phone, escaped)
}
