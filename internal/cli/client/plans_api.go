package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/coinvest-dev/coinvest/internal/models"
)

// ListPlans returns the active investment plans
func (c *Client) ListPlans(ctx context.Context) ([]models.Plan, error) {
	var out []models.Plan
	_, err := c.do(ctx, http.MethodGet, "/plans", nil, nil, &out)
	return out, err
}

// GetPlan returns one plan
func (c *Client) GetPlan(ctx context.Context, id string) (*models.Plan, error) {
	var out models.Plan
	if _, err := c.do(ctx, http.MethodGet, "/plans/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CryptoPrices returns the public ticker
func (c *Client) CryptoPrices(ctx context.Context) ([]models.CryptoPrice, error) {
	var out []models.CryptoPrice
	_, err := c.do(ctx, http.MethodGet, "/public/crypto-prices", nil, nil, &out)
	return out, err
}

// PlanGuide returns the public guide to choosing a plan
func (c *Client) PlanGuide(ctx context.Context) ([]models.GuideSection, error) {
	var out []models.GuideSection
	_, err := c.do(ctx, http.MethodGet, "/public/plan-guide", nil, nil, &out)
	return out, err
}
