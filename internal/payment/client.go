package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	SandboxSnapURL    = "https://app.sandbox.midtrans.com"
	ProductionSnapURL = "https://app.midtrans.com"
	SandboxAPIURL     = "https://api.sandbox.midtrans.com"
	ProductionAPIURL  = "https://api.midtrans.com"

	defaultTimeout = 30 * time.Second
)

var (
	ErrGateway             = errors.New("payment gateway error")
	ErrNotConfigured       = errors.New("payment gateway is not configured")
	ErrTransactionNotFound = errors.New("transaction not found at gateway")
)

// GatewayError carries the gateway's own message. It matches ErrGateway with errors.Is.
type GatewayError struct {
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway error (%d): %s", e.StatusCode, e.Message)
}

func (e *GatewayError) Unwrap() error { return ErrGateway }

type Config struct {
	ServerKey    string
	ClientKey    string
	IsProduction bool
	// SnapURL and APIURL override the environment defaults
	SnapURL string
	APIURL  string
	Timeout time.Duration
}

// Enabled reports whether both keys are present
func (c Config) Enabled() bool {
	return c.ServerKey != "" && c.ClientKey != ""
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	snapURL    string
	apiURL     string
}

func NewClient(cfg Config) *Client {
	snapURL, apiURL := SandboxSnapURL, SandboxAPIURL
	if cfg.IsProduction {
		snapURL, apiURL = ProductionSnapURL, ProductionAPIURL
	}
	if cfg.SnapURL != "" {
		snapURL = cfg.SnapURL
	}
	if cfg.APIURL != "" {
		apiURL = cfg.APIURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(transport),
			Timeout:   timeout,
		},
		snapURL: strings.TrimRight(snapURL, "/"),
		apiURL:  strings.TrimRight(apiURL, "/"),
	}
}

func (c *Client) ClientKey() string { return c.cfg.ClientKey }

func (c *Client) ServerKey() string { return c.cfg.ServerKey }

// TokenResponse is what the widget needs to open
type TokenResponse struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

type errorBody struct {
	ErrorMessages []string `json:"error_messages"`
	StatusMessage string   `json:"status_message"`
}

func (b errorBody) message() string {
	if len(b.ErrorMessages) > 0 {
		return strings.Join(b.ErrorMessages, "; ")
	}
	return b.StatusMessage
}

// CreateTransaction requests a Snap token for tx
func (c *Client) CreateTransaction(ctx context.Context, tx Transaction) (*TokenResponse, error) {
	if !c.cfg.Enabled() {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(tx)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction: %w", err)
	}

	respBody, status, err := c.do(ctx, http.MethodPost, c.snapURL+"/snap/v1/transactions", body)
	if err != nil {
		return nil, err
	}

	if status < 200 || status >= 300 {
		var eb errorBody
		_ = json.Unmarshal(respBody, &eb)
		msg := eb.message()
		if msg == "" {
			msg = http.StatusText(status)
		}
		log.Printf("[Payment] Snap rejected order %s: %d %s", tx.TransactionDetails.OrderID, status, msg)
		return nil, &GatewayError{StatusCode: status, Message: msg}
	}

	var tr TokenResponse
	if err := json.Unmarshal(respBody, &tr); err != nil {
		return nil, &GatewayError{StatusCode: status, Message: "malformed gateway response"}
	}
	if tr.Token == "" {
		return nil, &GatewayError{StatusCode: status, Message: "gateway returned no token"}
	}
	return &tr, nil
}

// TransactionStatus asks the Core API for the current state of an order's transaction
func (c *Client) TransactionStatus(ctx context.Context, orderID string) (*Status, error) {
	if !c.cfg.Enabled() {
		return nil, ErrNotConfigured
	}

	respBody, status, err := c.do(ctx, http.MethodGet, c.apiURL+"/v2/"+url.PathEscape(orderID)+"/status", nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, ErrTransactionNotFound
	}
	if status < 200 || status >= 300 {
		var eb errorBody
		_ = json.Unmarshal(respBody, &eb)
		return nil, &GatewayError{StatusCode: status, Message: eb.message()}
	}

	var st Status
	if err := json.Unmarshal(respBody, &st); err != nil {
		return nil, &GatewayError{StatusCode: status, Message: "malformed gateway response"}
	}
	// The Core API reports missing transactions with HTTP 200 and status_code 404
	if st.StatusCode == "404" {
		return nil, ErrTransactionNotFound
	}
	if st.StatusCode != "" && !strings.HasPrefix(st.StatusCode, "2") {
		return nil, &GatewayError{StatusCode: status, Message: st.StatusMessage}
	}
	return &st, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ServerKey, "")
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: failed to read response: %v", ErrGateway, err)
	}
	return respBody, resp.StatusCode, nil
}
