package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/shulepay/backend/internal/domain/notification"
)

// ErrDeliveryFailed is returned when the SMS provider rejects a message
var ErrDeliveryFailed = errors.New("sms: delivery failed")

// SMSConfig holds the SMS provider settings
type SMSConfig struct {
	BaseURL     string
	APIKey      string
	SenderID    string
	SendTimeout time.Duration
}

// SMSSender delivers notifications through an HTTP SMS provider API
type SMSSender struct {
	config     SMSConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewSMSSender creates a new SMS sender
func NewSMSSender(config SMSConfig, logger *zap.Logger) (*SMSSender, error) {
	if config.BaseURL == "" {
		return nil, errors.New("sms: base URL is required")
	}
	if config.APIKey == "" {
		return nil, errors.New("sms: API key is required")
	}

	timeout := config.SendTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &SMSSender{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// Channel returns the channel this sender delivers on
func (s *SMSSender) Channel() notification.Channel {
	return notification.ChannelSMS
}

type smsRequest struct {
	To       string `json:"to"`
	From     string `json:"from"`
	Message  string `json:"message"`
	Callback string `json:"callback,omitempty"`
}

type smsResponse struct {
	Status    string `json:"status"`
	MessageID string `json:"message_id"`
	Error     string `json:"error"`
}

// Send delivers the notification to the guardian's phone. The provider
// expects the MSISDN format.
func (s *SMSSender) Send(ctx context.Context, n *notification.Notification) error {
	body, err := json.Marshal(smsRequest{
		To:      n.RecipientPhone.MSISDN(),
		From:    s.config.SenderID,
		Message: n.Message,
	})
	if err != nil {
		return fmt.Errorf("sms: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sms: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("sms: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var provider smsResponse
		if err := json.Unmarshal(respBody, &provider); err == nil && provider.Error != "" {
			return fmt.Errorf("%w: %s", ErrDeliveryFailed, provider.Error)
		}
		return fmt.Errorf("%w: HTTP %d", ErrDeliveryFailed, resp.StatusCode)
	}

	var provider smsResponse
	if err := json.Unmarshal(respBody, &provider); err == nil {
		s.logger.Debug("sms handed to provider",
			zap.String("message_id", provider.MessageID),
			zap.String("phone", n.RecipientPhone.Local()))
	}

	return nil
}

var _ notification.Sender = (*SMSSender)(nil)
