// Package jupiter is a client for the Jupiter v6 swap API: route quotes and
// unsigned swap transactions built for a wallet.
package jupiter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the public Jupiter v6 endpoint.
const DefaultBaseURL = "https://quote-api.jup.ag/v6"

// ErrNoRoute is returned when the service has no quote for the pair.
var ErrNoRoute = errors.New("no route")

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// RetryCount applies to transport failures and 429/5xx responses.
	RetryCount int
	// MaxPriorityFeeLamports caps the priority fee the service may add.
	MaxPriorityFeeLamports uint64
	// PriorityLevel is one of medium, high, veryHigh.
	PriorityLevel string
	Logger        logrus.FieldLogger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:                DefaultBaseURL,
		Timeout:                30 * time.Second,
		RetryCount:             3,
		MaxPriorityFeeLamports: 10000,
		PriorityLevel:          "veryHigh",
	}
}

// Client talks to the Jupiter HTTP API.
type Client struct {
	client *resty.Client
	cfg    Config
	logger logrus.FieldLogger
}

// NewClient creates a Client. A nil config uses DefaultConfig.
func NewClient(config *Config) *Client {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.PriorityLevel == "" {
		cfg.PriorityLevel = DefaultConfig().PriorityLevel
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	client := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode() == 429 || resp.StatusCode() >= 500
		})

	return &Client{
		client: client,
		cfg:    cfg,
		logger: cfg.Logger.WithField("component", "jupiter"),
	}
}

// QuoteRequest selects a route.
type QuoteRequest struct {
	InputMint   string
	OutputMint  string
	Amount      uint64 // input base units
	SlippageBps int
}

// Quote is a route quote. Raw is forwarded unchanged to the swap builder.
type Quote struct {
	InputMint      string `json:"inputMint"`
	OutputMint     string `json:"outputMint"`
	InAmount       string `json:"inAmount"`
	OutAmount      string `json:"outAmount"`
	SlippageBps    int    `json:"slippageBps"`
	PriceImpactPct string `json:"priceImpactPct"`

	Raw json.RawMessage `json:"-"`
}

// OutAmountUnits parses OutAmount as base units.
func (q *Quote) OutAmountUnits() (uint64, error) {
	return strconv.ParseUint(q.OutAmount, 10, 64)
}

// SwapTransaction is an unsigned swap built for a wallet.
type SwapTransaction struct {
	// Transaction is the base64 wire transaction with an empty fee payer signature.
	Transaction               string `json:"swapTransaction"`
	LastValidBlockHeight      uint64 `json:"lastValidBlockHeight"`
	PrioritizationFeeLamports uint64 `json:"prioritizationFeeLamports"`
}

// GetQuote requests the best route for req.
func (c *Client) GetQuote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"inputMint":   req.InputMint,
			"outputMint":  req.OutputMint,
			"amount":      strconv.FormatUint(req.Amount, 10),
			"slippageBps": strconv.Itoa(req.SlippageBps),
		}).
		Get("/quote")
	if err != nil {
		return nil, fmt.Errorf("quote request: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, fmt.Errorf("quote: %w", err)
	}

	var quote Quote
	if err := json.Unmarshal(resp.Body(), &quote); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}
	if quote.OutAmount == "" {
		return nil, ErrNoRoute
	}
	quote.Raw = append(json.RawMessage(nil), resp.Body()...)

	c.logger.WithFields(logrus.Fields{
		"input_mint":  quote.InputMint,
		"output_mint": quote.OutputMint,
		"in_amount":   quote.InAmount,
		"out_amount":  quote.OutAmount,
	}).Debug("quote received")

	return &quote, nil
}

type swapRequest struct {
	QuoteResponse             json.RawMessage   `json:"quoteResponse"`
	UserPublicKey             string            `json:"userPublicKey"`
	DynamicComputeUnitLimit   bool              `json:"dynamicComputeUnitLimit"`
	PrioritizationFeeLamports prioritizationFee `json:"prioritizationFeeLamports"`
}

type prioritizationFee struct {
	PriorityLevelWithMaxLamports priorityLevel `json:"priorityLevelWithMaxLamports"`
}

type priorityLevel struct {
	MaxLamports   uint64 `json:"maxLamports"`
	PriorityLevel string `json:"priorityLevel"`
}

// BuildSwap asks the service to build the swap transaction for quote and owner.
func (c *Client) BuildSwap(ctx context.Context, quote *Quote, owner string) (*SwapTransaction, error) {
	if quote == nil || len(quote.Raw) == 0 {
		return nil, errors.New("build swap: quote has no raw response")
	}

	body := swapRequest{
		QuoteResponse:           quote.Raw,
		UserPublicKey:           owner,
		DynamicComputeUnitLimit: true,
		PrioritizationFeeLamports: prioritizationFee{
			PriorityLevelWithMaxLamports: priorityLevel{
				MaxLamports:   c.cfg.MaxPriorityFeeLamports,
				PriorityLevel: c.cfg.PriorityLevel,
			},
		},
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("/swap")
	if err != nil {
		return nil, fmt.Errorf("swap request: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, fmt.Errorf("swap: %w", err)
	}

	var swap SwapTransaction
	if err := json.Unmarshal(resp.Body(), &swap); err != nil {
		return nil, fmt.Errorf("decode swap: %w", err)
	}
	if swap.Transaction == "" {
		return nil, errors.New("swap: empty transaction")
	}
	if swap.LastValidBlockHeight == 0 {
		return nil, errors.New("swap: missing lastValidBlockHeight")
	}
	return &swap, nil
}

// checkResponse converts non-2xx responses into errors carrying the service message.
func checkResponse(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}

	var body struct {
		Error     string `json:"error"`
		ErrorCode string `json:"errorCode"`
	}
	_ = json.Unmarshal(resp.Body(), &body)

	switch {
	case body.ErrorCode == "COULD_NOT_FIND_ANY_ROUTE", body.ErrorCode == "TOKEN_NOT_TRADABLE":
		return fmt.Errorf("%w: %s", ErrNoRoute, body.Error)
	case body.Error != "":
		return fmt.Errorf("http %d: %s", resp.StatusCode(), body.Error)
	default:
		return fmt.Errorf("http %d: %s", resp.StatusCode(), strings.TrimSpace(string(resp.Body())))
	}
}
