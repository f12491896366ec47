package models

import (
	"encoding/json"
	"time"
)

// Role is the platform role carried on every user record
type Role string

const (
	RoleAdmin        Role = "Admin"
	RoleInvestor     Role = "Investor"
	RoleSupportAgent Role = "SupportAgent"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleInvestor, RoleSupportAgent:
		return true
	}
	return false
}

// User is the identity returned by /auth/login and /auth/me.
// The session store owns it and replaces it wholesale on login or refresh.
type User struct {
	ID                    string            `json:"id" yaml:"id"`
	Email                 string            `json:"email" yaml:"email"`
	FullName              string            `json:"fullName" yaml:"fullName"`
	Role                  Role              `json:"role" yaml:"role"`
	IsEmailVerified       bool              `json:"isEmailVerified" yaml:"isEmailVerified"`
	PreferredPayoutCrypto string            `json:"preferredPayoutCrypto,omitempty" yaml:"preferredPayoutCrypto,omitempty"`
	PayoutWalletAddresses map[string]string `json:"payoutWalletAddresses,omitempty" yaml:"payoutWalletAddresses,omitempty"`
	HasWalletPin          bool              `json:"hasWalletPin" yaml:"hasWalletPin"`
	Balance               float64           `json:"balance" yaml:"balance"`
	Status                string            `json:"status,omitempty" yaml:"status,omitempty"`
	CreatedAt             time.Time         `json:"createdAt" yaml:"createdAt"`
}

// Plan is an investment plan offered on the platform
type Plan struct {
	ID           string  `json:"id" yaml:"id"`
	Name         string  `json:"name" yaml:"name"`
	Description  string  `json:"description,omitempty" yaml:"description,omitempty"`
	MinAmount    float64 `json:"minAmount" yaml:"minAmount"`
	MaxAmount    float64 `json:"maxAmount" yaml:"maxAmount"`
	DailyRate    float64 `json:"dailyRate" yaml:"dailyRate"` // percent per day
	DurationDays int     `json:"durationDays" yaml:"durationDays"`
	IsActive     bool    `json:"isActive" yaml:"isActive"`
}

// Investment is a user's position in a plan
type Investment struct {
	ID              string    `json:"id" yaml:"id"`
	UserID          string    `json:"userId" yaml:"userId"`
	PlanID          string    `json:"planId" yaml:"planId"`
	PlanName        string    `json:"planName" yaml:"planName"`
	Amount          float64   `json:"amount" yaml:"amount"`
	Crypto          string    `json:"crypto" yaml:"crypto"`
	TransactionHash string    `json:"transactionHash,omitempty" yaml:"transactionHash,omitempty"`
	Status          string    `json:"status" yaml:"status"`
	AccruedInterest float64   `json:"accruedInterest" yaml:"accruedInterest"`
	CreatedAt       time.Time `json:"createdAt" yaml:"createdAt"`
}

// Withdrawal is a payout request
type Withdrawal struct {
	ID            string    `json:"id" yaml:"id"`
	UserID        string    `json:"userId" yaml:"userId"`
	Amount        float64   `json:"amount" yaml:"amount"`
	Crypto        string    `json:"crypto" yaml:"crypto"`
	WalletAddress string    `json:"walletAddress" yaml:"walletAddress"`
	Status        string    `json:"status" yaml:"status"` // pending, approved, rejected
	AdminNote     string    `json:"adminNote,omitempty" yaml:"adminNote,omitempty"`
	CreatedAt     time.Time `json:"createdAt" yaml:"createdAt"`
}

// InAppNotification is a server-side notification shown in the user inbox.
// Broadcasts are announcements targeting many users at once.
type InAppNotification struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Message     string    `json:"message" yaml:"message"`
	IsRead      bool      `json:"isRead" yaml:"isRead"`
	IsBroadcast bool      `json:"isBroadcast" yaml:"isBroadcast"`
	CreatedAt   time.Time `json:"createdAt" yaml:"createdAt"`
}

// ActivityEntry is one line of a user's or the platform's activity log
type ActivityEntry struct {
	ID        string    `json:"id" yaml:"id"`
	UserID    string    `json:"userId,omitempty" yaml:"userId,omitempty"`
	Action    string    `json:"action" yaml:"action"`
	Details   string    `json:"details,omitempty" yaml:"details,omitempty"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

// PlatformSettings are the admin-editable platform knobs
type PlatformSettings struct {
	MinWithdrawal       float64           `json:"minWithdrawal" yaml:"minWithdrawal"`
	WithdrawalFeePct    float64           `json:"withdrawalFeePct" yaml:"withdrawalFeePct"`
	MaintenanceMode     bool              `json:"maintenanceMode" yaml:"maintenanceMode"`
	DepositAddresses    map[string]string `json:"depositAddresses,omitempty" yaml:"depositAddresses,omitempty"`
	SupportedCryptos    []string          `json:"supportedCryptos" yaml:"supportedCryptos"`
	RegistrationEnabled bool              `json:"registrationEnabled" yaml:"registrationEnabled"`
}

// Announcement is an admin-issued broadcast
type Announcement struct {
	Title      string `json:"title" yaml:"title"`
	Message    string `json:"message" yaml:"message"`
	TargetRole Role   `json:"targetRole,omitempty" yaml:"targetRole,omitempty"`
}

// CryptoPrice is a public ticker entry
type CryptoPrice struct {
	Symbol    string  `json:"symbol" yaml:"symbol"`
	PriceUSD  float64 `json:"priceUsd" yaml:"priceUsd"`
	Change24h float64 `json:"change24h" yaml:"change24h"`
}

// GuideSection is one entry of the public plan guide
type GuideSection struct {
	Title string `json:"title" yaml:"title"`
	Body  string `json:"body" yaml:"body"`
}

// Analytics is the admin dashboard summary
type Analytics struct {
	TotalUsers          int     `json:"totalUsers" yaml:"totalUsers"`
	ActiveInvestments   int     `json:"activeInvestments" yaml:"activeInvestments"`
	TotalInvested       float64 `json:"totalInvested" yaml:"totalInvested"`
	PendingWithdrawals  int     `json:"pendingWithdrawals" yaml:"pendingWithdrawals"`
	TotalWithdrawnValue float64 `json:"totalWithdrawnValue" yaml:"totalWithdrawnValue"`
}

// FieldError is one entry of the envelope's errors array
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Envelope is the uniform response shape of every backend endpoint
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Errors  []FieldError    `json:"errors,omitempty"`
}
