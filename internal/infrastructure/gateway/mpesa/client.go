package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	oauthPath   = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushPath = "/mpesa/stkpush/v1/processrequest"

	// Daraja timestamp layout, local time
	timestampLayout = "20060102150405"
)

// ErrGatewayRequestFailed is returned when the Daraja API rejects a request
var ErrGatewayRequestFailed = errors.New("mpesa: gateway request failed")

// Config holds Daraja API credentials and endpoints
type Config struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
	RequestTimeout time.Duration
}

// Validate checks that the config carries everything a live call needs
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("mpesa: base URL is required")
	}
	if c.ConsumerKey == "" || c.ConsumerSecret == "" {
		return errors.New("mpesa: consumer key and secret are required")
	}
	if c.ShortCode == "" {
		return errors.New("mpesa: short code is required")
	}
	if c.Passkey == "" {
		return errors.New("mpesa: passkey is required")
	}
	return nil
}

// Client is a Daraja API client. Access tokens are cached until shortly
// before expiry; Daraja tokens live for an hour.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient creates a new Daraja client
func NewClient(config Config, logger *zap.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	timeout := config.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// STKPushRequest initiates a payment prompt on the payer's handset
type STKPushRequest struct {
	Phone     string // MSISDN format, 2547XXXXXXXX
	Amount    int64  // whole shillings; Daraja rejects decimals
	Reference string // shown on the payer's statement
	Narrative string
}

// STKPushResponse is Daraja's acknowledgement of an STK push initiation
type STKPushResponse struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResponseCode      string `json:"ResponseCode"`
	ResponseDesc      string `json:"ResponseDescription"`
	CustomerMessage   string `json:"CustomerMessage"`
}

// InitiateSTKPush asks Daraja to prompt the payer for the given amount. The
// actual payment lands later through the callback endpoint.
func (c *Client) InitiateSTKPush(ctx context.Context, req STKPushRequest) (*STKPushResponse, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := time.Now().Format(timestampLayout)
	password := base64.StdEncoding.EncodeToString(
		[]byte(c.config.ShortCode + c.config.Passkey + timestamp))

	body := map[string]any{
		"BusinessShortCode": c.config.ShortCode,
		"Password":          password,
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            req.Amount,
		"PartyA":            req.Phone,
		"PartyB":            c.config.ShortCode,
		"PhoneNumber":       req.Phone,
		"CallBackURL":       c.config.CallbackURL,
		"AccountReference":  req.Reference,
		"TransactionDesc":   req.Narrative,
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, stkPushPath, token, body)
	if err != nil {
		return nil, err
	}

	var resp STKPushResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("mpesa: failed to parse stk push response: %w", err)
	}
	if resp.ResponseCode != "0" {
		return nil, fmt.Errorf("%w: %s - %s", ErrGatewayRequestFailed, resp.ResponseCode, resp.ResponseDesc)
	}

	c.logger.Info("stk push initiated",
		zap.String("checkout_request_id", resp.CheckoutRequestID),
		zap.String("reference", req.Reference))

	return &resp, nil
}

// token returns a cached access token, refreshing it when stale
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+oauthPath, nil)
	if err != nil {
		return "", fmt.Errorf("mpesa: failed to create token request: %w", err)
	}
	req.SetBasicAuth(c.config.ConsumerKey, c.config.ConsumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("mpesa: token request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("mpesa: failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned HTTP %d", ErrGatewayRequestFailed, resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"`
	}
	if err := json.Unmarshal(respBody, &tokenResp); err != nil {
		return "", fmt.Errorf("mpesa: failed to parse token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrGatewayRequestFailed)
	}

	c.accessToken = tokenResp.AccessToken
	// Refresh a minute early rather than risk an expired token mid-request
	c.tokenExpiry = time.Now().Add(59 * time.Minute)

	return c.accessToken, nil
}

func (c *Client) doRequest(ctx context.Context, method, path, token string, body any) ([]byte, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("mpesa: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("mpesa: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mpesa: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("mpesa: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			ErrorCode    string `json:"errorCode"`
			ErrorMessage string `json:"errorMessage"`
		}
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.ErrorCode != "" {
			return nil, fmt.Errorf("%w: %s - %s", ErrGatewayRequestFailed, errResp.ErrorCode, errResp.ErrorMessage)
		}
		return nil, fmt.Errorf("%w: HTTP %d", ErrGatewayRequestFailed, resp.StatusCode)
	}

	return respBody, nil
}
