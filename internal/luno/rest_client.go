package luno

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"luno-trade-bot-go/internal/config"
	"luno-trade-bot-go/internal/market"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.luno.com"

// ErrUnauthenticated is returned by calls that need API credentials when none are configured.
var ErrUnauthenticated = errors.New("luno api credentials not configured")

// RestClient is a client for the Luno REST API.
// It implements market.Exchange.
type RestClient struct {
	client    *resty.Client
	apiKey    string
	secretKey string
	logger    *zap.Logger
	limiter   *rate.Limiter
	backoff   func(attempt int) time.Duration
}

// ensure RestClient implements the interface
var _ market.Exchange = (*RestClient)(nil)

// NewRestClient creates a new Luno REST API client.
func NewRestClient(cfg *config.Luno, logger *zap.Logger) *RestClient {
	url := cfg.BaseURL
	if url == "" {
		url = defaultBaseURL
	}
	logger.Info("Using Luno API", zap.String("base_url", url))

	client := resty.New().
		SetBaseURL(url).
		SetTimeout(30 * time.Second)

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &RestClient{
		client:    client,
		apiKey:    cfg.ApiKey,
		secretKey: cfg.SecretKey,
		logger:    logger.Named("luno"),
		limiter:   limiter,
		backoff:   exponentialBackoff,
	}
}

// exponentialBackoff waits 1s, 2s, 4s between attempts.
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

func (c *RestClient) authenticated() bool {
	return c.apiKey != "" && c.secretKey != ""
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *RestClient) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	req.SetContext(ctx)
	if c.authenticated() {
		req.SetBasicAuth(c.apiKey, c.secretKey)
	}

	for i := 0; i < maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		shouldRetry := false
		var retryAfter time.Duration

		if err == nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				if seconds, perr := strconv.Atoi(resp.Header().Get("Retry-After")); perr == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 {
				shouldRetry = true
			}
			err = fmt.Errorf("status %s: %s", resp.Status(), resp.String())
		} else {
			// Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("request failed with %w", err)
		}
		if i == maxRetries-1 {
			break
		}
		if retryAfter == 0 {
			retryAfter = c.backoff(i)
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}

// tradeResponse is one entry of the /api/1/trades response.
type tradeResponse struct {
	Timestamp int64           `json:"timestamp"`
	Price     decimal.Decimal `json:"price"`
	Volume    decimal.Decimal `json:"volume"`
	IsBuy     bool            `json:"is_buy"`
}

type tradesResponse struct {
	Trades []tradeResponse `json:"trades"`
}

// ListRecentTrades fetches the public trades for pair executed after since.
func (c *RestClient) ListRecentTrades(ctx context.Context, pair string, since time.Time) ([]market.Tick, error) {
	req := c.client.R().
		SetQueryParam("pair", pair).
		SetQueryParam("since", strconv.FormatInt(since.UnixMilli(), 10)).
		SetResult(&tradesResponse{})

	resp, err := c.doRequest(ctx, http.MethodGet, "/api/1/trades", req)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}

	result := resp.Result().(*tradesResponse)
	ticks := make([]market.Tick, 0, len(result.Trades))
	for _, t := range result.Trades {
		ticks = append(ticks, market.Tick{
			Timestamp: time.UnixMilli(t.Timestamp).UTC(),
			Price:     t.Price.InexactFloat64(),
			Volume:    t.Volume.InexactFloat64(),
		})
	}
	return ticks, nil
}

// GetCurrentPrice returns the last traded price for pair.
func (c *RestClient) GetCurrentPrice(ctx context.Context, pair string) (float64, error) {
	type tickerResponse struct {
		Pair      string          `json:"pair"`
		LastTrade decimal.Decimal `json:"last_trade"`
		Bid       decimal.Decimal `json:"bid"`
		Ask       decimal.Decimal `json:"ask"`
	}

	req := c.client.R().
		SetQueryParam("pair", pair).
		SetResult(&tickerResponse{})

	resp, err := c.doRequest(ctx, http.MethodGet, "/api/1/ticker", req)
	if err != nil {
		return 0, fmt.Errorf("failed to get ticker: %w", err)
	}

	result := resp.Result().(*tickerResponse)
	if !result.LastTrade.IsPositive() {
		return 0, fmt.Errorf("ticker for %s has no last trade", pair)
	}
	return result.LastTrade.InexactFloat64(), nil
}

// GetFeeInfo returns the account's maker and taker fee rates for pair.
// The endpoint requires API credentials.
func (c *RestClient) GetFeeInfo(ctx context.Context, pair string) (market.FeeInfo, error) {
	if !c.authenticated() {
		return market.FeeInfo{}, ErrUnauthenticated
	}

	type feeInfoResponse struct {
		MakerFee        decimal.Decimal `json:"maker_fee"`
		TakerFee        decimal.Decimal `json:"taker_fee"`
		ThirtyDayVolume decimal.Decimal `json:"thirty_day_volume"`
	}

	req := c.client.R().
		SetQueryParam("pair", pair).
		SetResult(&feeInfoResponse{})

	resp, err := c.doRequest(ctx, http.MethodGet, "/api/1/fee_info", req)
	if err != nil {
		c.logger.Error("Failed to get fee info", zap.String("pair", pair), zap.Error(err))
		return market.FeeInfo{}, fmt.Errorf("failed to get fee info: %w", err)
	}

	result := resp.Result().(*feeInfoResponse)
	return market.FeeInfo{MakerFee: result.MakerFee, TakerFee: result.TakerFee}, nil
}
