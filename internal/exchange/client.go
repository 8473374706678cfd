package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

type OrderRequest struct {
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"` // BUY or SELL
	Price      float64 `json:"price"`
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
}

type OrderAck struct {
	OrderID string  `json:"order_id"`
	Price   float64 `json:"price"`
	Status  string  `json:"status"`
}

// ProviderError carries the exchange's rejection message verbatim so it can
// be stored on the trade and classified later.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("exchange rejected order (http %d): %s", e.StatusCode, e.Message)
}

// Client places orders against the exchange. In dry-run mode orders are
// acknowledged locally without touching the network.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	DryRun  bool
	Logger  *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, dryRun bool, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
		DryRun:  dryRun,
		Logger:  logger,
	}
}

func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (*OrderAck, error) {
	if c == nil {
		return nil, fmt.Errorf("exchange client not configured")
	}
	if c.DryRun {
		return &OrderAck{
			OrderID: fmt.Sprintf("dry-%d", time.Now().UnixNano()),
			Price:   req.Price,
			Status:  "FILLED",
		}, nil
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/v3/order", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(raw)),
		}
	}

	var ack OrderAck
	if err := json.Unmarshal(raw, &ack); err != nil {
		return nil, fmt.Errorf("decode order ack: %w", err)
	}
	if ack.Price == 0 {
		ack.Price = req.Price
	}
	if c.Logger != nil {
		c.Logger.Info("order placed",
			zap.String("symbol", req.Symbol),
			zap.String("side", req.Side),
			zap.String("order_id", ack.OrderID))
	}
	return &ack, nil
}
