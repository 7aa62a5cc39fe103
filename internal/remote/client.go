// Package remote implements the HTTP client for the shared product store.
// The store speaks a single-endpoint POST protocol: every call carries a
// token, a request name and an optional payload, and answers with a
// status/message envelope.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mbruckner/vinetrack/internal/ledger"
	"github.com/mbruckner/vinetrack/internal/money"
	"github.com/mbruckner/vinetrack/internal/product"
)

const (
	requestGetAll       = "get_all"
	requestUpdateASIN   = "update_asin"
	requestDeleteAll    = "delete_all"
	requestGetValuation = "get_teilwert"
)

type request struct {
	Token   string `json:"token"`
	Request string `json:"request"`
	Payload any    `json:"payload,omitempty"`
}

type response struct {
	Status   string          `json:"status"`
	Message  string          `json:"message,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	Inserted int             `json:"inserted"`
	Updated  int             `json:"updated"`
	Skipped  int             `json:"skipped"`
}

// Client talks to the remote product store. It implements ledger.Remote.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

// FetchProducts downloads the full remote product set. Entries with an
// unreadable value payload come back as placeholder records; entries
// without an ASIN are dropped.
func (c *Client) FetchProducts(ctx context.Context, credential string) ([]product.Product, error) {
	resp, err := c.call(ctx, credential, requestGetAll, nil)
	if err != nil {
		return nil, err
	}

	var entries []entry
	if err := json.Unmarshal(resp.Data, &entries); err != nil {
		return nil, fmt.Errorf("decoding product list: %w", err)
	}

	products := make([]product.Product, 0, len(entries))

	for _, e := range entries {
		if e.ASIN == "" {
			c.logger.Warn("skipping remote entry without ASIN")
			continue
		}

		products = append(products, decodeEntry(e, c.logger))
	}

	return products, nil
}

// PushProducts uploads the given products. The server applies its own
// timestamp comparison per record and reports insert/update/skip counts.
func (c *Client) PushProducts(ctx context.Context, credential string, products []product.Product) (ledger.PushStats, error) {
	if len(products) == 0 {
		return ledger.PushStats{}, nil
	}

	payload := make([]pushEntry, 0, len(products))

	for _, p := range products {
		e, err := encodeProduct(p)
		if err != nil {
			return ledger.PushStats{}, fmt.Errorf("encoding product %s: %w", p.ASIN, err)
		}

		payload = append(payload, e)
	}

	resp, err := c.call(ctx, credential, requestUpdateASIN, payload)
	if err != nil {
		return ledger.PushStats{}, err
	}

	return ledger.PushStats{
		Inserted: resp.Inserted,
		Updated:  resp.Updated,
		Skipped:  resp.Skipped,
	}, nil
}

// FetchAlternateValuation downloads the ASIN-to-value lookup table used
// when the alternate valuation source is enabled. Values arrive in euros
// and are converted to cents.
func (c *Client) FetchAlternateValuation(ctx context.Context, credential string) (map[string]int64, error) {
	resp, err := c.call(ctx, credential, requestGetValuation, nil)
	if err != nil {
		return nil, err
	}

	var table map[string]float64
	if err := json.Unmarshal(resp.Data, &table); err != nil {
		return nil, fmt.Errorf("decoding valuation table: %w", err)
	}

	values := make(map[string]int64, len(table))
	for asin, euros := range table {
		values[asin] = money.FromEuros(euros)
	}

	return values, nil
}

// DeleteAll wipes the remote store. Local state is untouched.
func (c *Client) DeleteAll(ctx context.Context, credential string) error {
	_, err := c.call(ctx, credential, requestDeleteAll, nil)
	return err
}

func (c *Client) call(ctx context.Context, credential, requestType string, payload any) (*response, error) {
	body, err := json.Marshal(request{
		Token:   credential,
		Request: requestType,
		Payload: payload,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", requestType, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", requestType, err)
	}

	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling remote store: %w", err)
	}
	defer httpResp.Body.Close()

	var resp response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("remote store returned %s with unreadable body: %w", httpResp.Status, err)
	}

	if resp.Status != "success" {
		if isAuthRejection(httpResp.StatusCode, resp.Message) {
			return nil, fmt.Errorf("%w: %s", ledger.ErrInvalidCredential, resp.Message)
		}

		return nil, fmt.Errorf("remote store rejected %s: %s", requestType, resp.Message)
	}

	return &resp, nil
}

// isAuthRejection classifies an error response as a credential problem. The
// store signals this either with an auth status code or a token message.
func isAuthRejection(statusCode int, message string) bool {
	if statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden {
		return true
	}

	m := strings.ToLower(message)

	return strings.Contains(m, "invalid token") || strings.Contains(m, "unauthorized")
}
