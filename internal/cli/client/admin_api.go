package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/coinvest-dev/coinvest/internal/models"
)

// ListParams filters admin list endpoints
type ListParams struct {
	Page   int
	Limit  int
	Status string
	Search string
}

func (p ListParams) values() url.Values {
	v := url.Values{}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Status != "" {
		v.Set("status", p.Status)
	}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	return v
}

// WithdrawalReview is an admin decision on a withdrawal
type WithdrawalReview struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note,omitempty"`
}

// AdminListUsers lists platform users
func (c *Client) AdminListUsers(ctx context.Context, p ListParams) ([]models.User, error) {
	var out []models.User
	_, err := c.do(ctx, http.MethodGet, "/admin/users", p.values(), nil, &out)
	return out, err
}

// AdminSetUserStatus activates or suspends a user
func (c *Client) AdminSetUserStatus(ctx context.Context, userID, status string) error {
	_, err := c.do(ctx, http.MethodPatch, "/admin/users/"+url.PathEscape(userID)+"/status", nil, map[string]string{"status": status}, nil)
	return err
}

// AdminListPlans lists every plan including inactive ones
func (c *Client) AdminListPlans(ctx context.Context) ([]models.Plan, error) {
	var out []models.Plan
	_, err := c.do(ctx, http.MethodGet, "/admin/plans", nil, nil, &out)
	return out, err
}

// AdminSavePlan creates a plan when ID is empty, otherwise updates it
func (c *Client) AdminSavePlan(ctx context.Context, plan models.Plan) (*models.Plan, error) {
	var out models.Plan
	method, path := http.MethodPost, "/admin/plans"
	if plan.ID != "" {
		method, path = http.MethodPut, "/admin/plans/"+url.PathEscape(plan.ID)
	}
	if _, err := c.do(ctx, method, path, nil, plan, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminListInvestments lists investments across all users
func (c *Client) AdminListInvestments(ctx context.Context, p ListParams) ([]models.Investment, error) {
	var out []models.Investment
	_, err := c.do(ctx, http.MethodGet, "/admin/investments", p.values(), nil, &out)
	return out, err
}

// AdminListWithdrawals lists withdrawal requests across all users
func (c *Client) AdminListWithdrawals(ctx context.Context, p ListParams) ([]models.Withdrawal, error) {
	var out []models.Withdrawal
	_, err := c.do(ctx, http.MethodGet, "/admin/withdrawals", p.values(), nil, &out)
	return out, err
}

// AdminReviewWithdrawal approves or rejects a withdrawal
func (c *Client) AdminReviewWithdrawal(ctx context.Context, id string, review WithdrawalReview) (*models.Withdrawal, error) {
	var out models.Withdrawal
	if _, err := c.do(ctx, http.MethodPatch, "/admin/withdrawals/"+url.PathEscape(id), nil, review, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminSettings returns the platform settings
func (c *Client) AdminSettings(ctx context.Context) (*models.PlatformSettings, error) {
	var out models.PlatformSettings
	if _, err := c.do(ctx, http.MethodGet, "/admin/settings", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminUpdateSettings replaces the platform settings
func (c *Client) AdminUpdateSettings(ctx context.Context, s models.PlatformSettings) (*models.PlatformSettings, error) {
	var out models.PlatformSettings
	if _, err := c.do(ctx, http.MethodPut, "/admin/settings", nil, s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminAnnounce broadcasts an announcement
func (c *Client) AdminAnnounce(ctx context.Context, a models.Announcement) (string, error) {
	env, err := c.do(ctx, http.MethodPost, "/admin/announcements", nil, a, nil)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// AdminLogs returns the platform activity log
func (c *Client) AdminLogs(ctx context.Context, p ListParams) ([]models.ActivityEntry, error) {
	var out []models.ActivityEntry
	_, err := c.do(ctx, http.MethodGet, "/admin/logs", p.values(), nil, &out)
	return out, err
}

// AdminAnalytics returns the dashboard summary
func (c *Client) AdminAnalytics(ctx context.Context) (*models.Analytics, error) {
	var out models.Analytics
	if _, err := c.do(ctx, http.MethodGet, "/admin/analytics", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
