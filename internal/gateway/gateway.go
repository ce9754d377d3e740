// Package gateway is the HTTP client for the external payment processor.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/riverhall/attendance/internal/service"
)

// Client talks JSON to the payment processor. The Idempotency-Key header
// makes charge retries safe; the processor deduplicates on it.
type Client struct {
	baseURL string
	http    *http.Client
}

// New constructs a Client for the given processor base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type chargeRequest struct {
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	MethodRef string `json:"method_ref"`
}

type chargeResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

type refundRequest struct {
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
}

type refundResponse struct {
	RefundTransactionID string `json:"refund_transaction_id"`
	Status              string `json:"status"`
}

// Charge asks the processor to charge the payment method.
func (c *Client) Charge(ctx context.Context, amount int64, currency, methodRef, idempotencyKey string) (service.ChargeResult, error) {
	var resp chargeResponse
	err := c.post(ctx, "/v1/charges", idempotencyKey,
		chargeRequest{Amount: amount, Currency: currency, MethodRef: methodRef}, &resp)
	if err != nil {
		return service.ChargeResult{}, err
	}
	return service.ChargeResult{
		TransactionID: resp.TransactionID,
		Succeeded:     resp.Status == "succeeded",
	}, nil
}

// Refund asks the processor to refund part or all of a prior charge.
func (c *Client) Refund(ctx context.Context, transactionID string, amount int64) (service.RefundResult, error) {
	var resp refundResponse
	err := c.post(ctx, "/v1/refunds", "",
		refundRequest{TransactionID: transactionID, Amount: amount}, &resp)
	if err != nil {
		return service.RefundResult{}, err
	}
	return service.RefundResult{
		RefundTransactionID: resp.RefundTransactionID,
		Succeeded:           resp.Status == "succeeded",
	}, nil
}

func (c *Client) post(ctx context.Context, path, idempotencyKey string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call payment gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("payment gateway returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}
