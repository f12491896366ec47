package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/coinvest-dev/coinvest/internal/models"
)

// CreateInvestmentRequest opens a position in a plan
type CreateInvestmentRequest struct {
	PlanID          string  `json:"planId"`
	Amount          float64 `json:"amount"`
	Crypto          string  `json:"crypto"`
	TransactionHash string  `json:"transactionHash,omitempty"`
}

// CreateWithdrawalRequest asks for a payout
type CreateWithdrawalRequest struct {
	Amount        float64 `json:"amount"`
	Crypto        string  `json:"crypto"`
	WalletAddress string  `json:"walletAddress"`
	Pin           string  `json:"pin"`
}

// ListInvestments returns the user's investments
func (c *Client) ListInvestments(ctx context.Context) ([]models.Investment, error) {
	var out []models.Investment
	_, err := c.do(ctx, http.MethodGet, "/investments", nil, nil, &out)
	return out, err
}

// CreateInvestment submits a new investment for payment verification
func (c *Client) CreateInvestment(ctx context.Context, req CreateInvestmentRequest) (*models.Investment, error) {
	var out models.Investment
	if _, err := c.do(ctx, http.MethodPost, "/investments", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetInvestment returns one investment
func (c *Client) GetInvestment(ctx context.Context, id string) (*models.Investment, error) {
	var out models.Investment
	if _, err := c.do(ctx, http.MethodGet, "/investments/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListWithdrawals returns the user's withdrawal requests
func (c *Client) ListWithdrawals(ctx context.Context) ([]models.Withdrawal, error) {
	var out []models.Withdrawal
	_, err := c.do(ctx, http.MethodGet, "/withdrawals", nil, nil, &out)
	return out, err
}

// CreateWithdrawal submits a withdrawal request
func (c *Client) CreateWithdrawal(ctx context.Context, req CreateWithdrawalRequest) (*models.Withdrawal, error) {
	var out models.Withdrawal
	if _, err := c.do(ctx, http.MethodPost, "/withdrawals", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
