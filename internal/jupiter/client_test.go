package jupiter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quoteBody = `{
	"inputMint": "So11111111111111111111111111111111111111112",
	"inAmount": "100000000",
	"outputMint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
	"outAmount": "16234567",
	"otherAmountThreshold": "16153394",
	"swapMode": "ExactIn",
	"slippageBps": 100,
	"priceImpactPct": "0.0001",
	"routePlan": [{"percent": 100}]
}`

func newTestClient(url string) *Client {
	return NewClient(&Config{
		BaseURL:                url,
		RetryCount:             0,
		MaxPriorityFeeLamports: 10000,
		PriorityLevel:          "veryHigh",
	})
}

func TestClient_GetQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "So11111111111111111111111111111111111111112", q.Get("inputMint"))
		assert.Equal(t, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", q.Get("outputMint"))
		assert.Equal(t, "100000000", q.Get("amount"))
		assert.Equal(t, "100", q.Get("slippageBps"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(quoteBody))
	}))
	defer server.Close()

	quote, err := newTestClient(server.URL).GetQuote(context.Background(), QuoteRequest{
		InputMint:   "So11111111111111111111111111111111111111112",
		OutputMint:  "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		Amount:      100_000_000,
		SlippageBps: 100,
	})
	require.NoError(t, err)

	assert.Equal(t, "16234567", quote.OutAmount)
	units, err := quote.OutAmountUnits()
	require.NoError(t, err)
	assert.Equal(t, uint64(16234567), units)
	assert.JSONEq(t, quoteBody, string(quote.Raw))
}

func TestClient_GetQuote_NoRoute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Could not find any route","errorCode":"COULD_NOT_FIND_ANY_ROUTE"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetQuote(context.Background(), QuoteRequest{
		InputMint: "a", OutputMint: "b", Amount: 1, SlippageBps: 50,
	})
	assert.True(t, errors.Is(err, ErrNoRoute), "got %v", err)
}

func TestClient_GetQuote_RetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(quoteBody))
	}))
	defer server.Close()

	client := NewClient(&Config{BaseURL: server.URL, RetryCount: 2})
	_, err := client.GetQuote(context.Background(), QuoteRequest{InputMint: "a", OutputMint: "b", Amount: 1, SlippageBps: 50})
	require.NoError(t, err)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestClient_BuildSwap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/quote":
			w.Write([]byte(quoteBody))
		case "/swap":
			assert.Equal(t, http.MethodPost, r.Method)

			var body map[string]json.RawMessage
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.JSONEq(t, quoteBody, string(body["quoteResponse"]))
			assert.JSONEq(t, `"Wallet111"`, string(body["userPublicKey"]))
			assert.JSONEq(t,
				`{"priorityLevelWithMaxLamports":{"maxLamports":10000,"priorityLevel":"veryHigh"}}`,
				string(body["prioritizationFeeLamports"]))

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"swapTransaction":"AQID","lastValidBlockHeight":279000123,"prioritizationFeeLamports":9000}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	ctx := context.Background()

	quote, err := client.GetQuote(ctx, QuoteRequest{InputMint: "a", OutputMint: "b", Amount: 1, SlippageBps: 100})
	require.NoError(t, err)

	swap, err := client.BuildSwap(ctx, quote, "Wallet111")
	require.NoError(t, err)
	assert.Equal(t, "AQID", swap.Transaction)
	assert.Equal(t, uint64(279000123), swap.LastValidBlockHeight)
	assert.Equal(t, uint64(9000), swap.PrioritizationFeeLamports)
}

func TestClient_BuildSwap_MissingExpiry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"swapTransaction":"AQID"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).BuildSwap(context.Background(), &Quote{Raw: json.RawMessage(quoteBody)}, "w")
	assert.Error(t, err)
}

func TestClient_BuildSwap_RequiresRawQuote(t *testing.T) {
	_, err := newTestClient("http://127.0.0.1:0").BuildSwap(context.Background(), &Quote{}, "w")
	assert.Error(t, err)
}
