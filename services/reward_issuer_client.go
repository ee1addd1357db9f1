package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// RewardIssuer pays out points to a wallet. Implementations must treat
// idempotencyKey as the identity of the payout so retries never pay twice.
type RewardIssuer interface {
	IssueReward(ctx context.Context, wallet string, amount int64, idempotencyKey string) error
}

type RewardIssuerClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

type issueRewardRequest struct {
	Wallet string `json:"wallet"`
	Amount int64  `json:"amount"`
}

func NewRewardIssuerClient(baseURL, token string) *RewardIssuerClient {
	return &RewardIssuerClient{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// IssueReward calls POST /rewards on the reward service. 4xx answers are not
// retryable, everything else is.
func (c *RewardIssuerClient) IssueReward(ctx context.Context, wallet string, amount int64, idempotencyKey string) error {
	url := fmt.Sprintf("%s/rewards", c.BaseURL)

	jsonData, err := json.Marshal(issueRewardRequest{Wallet: wallet, Amount: amount})
	if err != nil {
		return permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return permanent(err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("reward service unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusConflict:
		// same idempotency key already accepted
		log.Printf("ℹ️ [REWARD] Payout %s already recorded by reward service", idempotencyKey)
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		log.Printf("RewardService /rewards returned %d: %s", resp.StatusCode, string(body))
		return permanent(fmt.Errorf("reward service rejected payout: %d", resp.StatusCode))
	default:
		log.Printf("RewardService /rewards returned %d: %s", resp.StatusCode, string(body))
		return fmt.Errorf("reward service failed: %d", resp.StatusCode)
	}
}
