package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/coinvest-dev/coinvest/internal/models"
)

// ProfileUpdate carries editable profile fields
type ProfileUpdate struct {
	FullName string `json:"fullName"`
}

// PayoutWalletsUpdate sets where withdrawals are paid
type PayoutWalletsUpdate struct {
	PreferredPayoutCrypto string            `json:"preferredPayoutCrypto"`
	PayoutWalletAddresses map[string]string `json:"payoutWalletAddresses"`
}

// Profile returns the current user's profile
func (c *Client) Profile(ctx context.Context) (*models.User, error) {
	var payload userPayload
	if _, err := c.do(ctx, http.MethodGet, "/users/profile", nil, nil, &payload); err != nil {
		return nil, err
	}
	return payload.User, nil
}

// UpdateProfile saves profile fields and returns the updated user
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*models.User, error) {
	var payload userPayload
	if _, err := c.do(ctx, http.MethodPut, "/users/profile", nil, update, &payload); err != nil {
		return nil, err
	}
	return payload.User, nil
}

// ChangePassword replaces the account password
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	body := map[string]string{"currentPassword": current, "newPassword": next}
	_, err := c.do(ctx, http.MethodPut, "/users/password", nil, body, nil)
	return err
}

// SetWalletPin sets the withdrawal PIN
func (c *Client) SetWalletPin(ctx context.Context, pin, password string) error {
	body := map[string]string{"pin": pin, "password": password}
	_, err := c.do(ctx, http.MethodPut, "/users/pin", nil, body, nil)
	return err
}

// UpdatePayoutWallets saves payout wallet addresses and returns the updated user
func (c *Client) UpdatePayoutWallets(ctx context.Context, update PayoutWalletsUpdate) (*models.User, error) {
	var payload userPayload
	if _, err := c.do(ctx, http.MethodPut, "/users/payout-wallets", nil, update, &payload); err != nil {
		return nil, err
	}
	return payload.User, nil
}

// Notifications lists the user's inbox
func (c *Client) Notifications(ctx context.Context) ([]models.InAppNotification, error) {
	var out []models.InAppNotification
	_, err := c.do(ctx, http.MethodGet, "/users/notifications", nil, nil, &out)
	return out, err
}

// UnreadCount returns the number of unread inbox notifications
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	_, err := c.do(ctx, http.MethodGet, "/users/notifications/unread-count", nil, nil, &out)
	return out.Count, err
}

// MarkNotificationRead marks one inbox notification read
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodPatch, "/users/notifications/"+url.PathEscape(id)+"/read", nil, nil, nil)
	return err
}

// ActivityLog returns a page of the user's activity
func (c *Client) ActivityLog(ctx context.Context, page int) ([]models.ActivityEntry, error) {
	var out []models.ActivityEntry
	params := url.Values{}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	_, err := c.do(ctx, http.MethodGet, "/users/activity", params, nil, &out)
	return out, err
}
