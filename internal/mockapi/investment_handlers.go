package mockapi

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/coinvest-dev/coinvest/internal/models"
)

const (
	investmentPending   = "pending"
	investmentActive    = "active"
	investmentCompleted = "completed"

	withdrawalPending  = "pending"
	withdrawalApproved = "approved"
	withdrawalRejected = "rejected"
)

var errInsufficientBalance = errors.New("insufficient balance")

type createInvestmentRequest struct {
	PlanID          string  `json:"planId" binding:"required"`
	Amount          float64 `json:"amount" binding:"required,gt=0"`
	Crypto          string  `json:"crypto" binding:"required"`
	TransactionHash string  `json:"transactionHash"`
}

type createWithdrawalRequest struct {
	Amount        float64 `json:"amount" binding:"required,gt=0"`
	Crypto        string  `json:"crypto" binding:"required"`
	WalletAddress string  `json:"walletAddress" binding:"required,min=20,max=128"`
	Pin           string  `json:"pin" binding:"required"`
}

// accrue fills in interest earned so far and completes matured positions.
// Pending investments earn nothing until the payment is confirmed.
func accrue(inv *models.Investment, plan *models.Plan, now time.Time) {
	if inv.Status == investmentPending || plan == nil {
		return
	}
	days := int(now.Sub(inv.CreatedAt).Hours() / 24)
	if days >= plan.DurationDays {
		days = plan.DurationDays
		inv.Status = investmentCompleted
	}
	interest := inv.Amount * plan.DailyRate / 100 * float64(days)
	inv.AccruedInterest = math.Round(interest*100) / 100
}

func (s *Server) withAccrual(investments []models.Investment) []models.Investment {
	plans := map[string]*models.Plan{}
	now := time.Now()
	for i := range investments {
		plan, seen := plans[investments[i].PlanID]
		if !seen {
			plan, _ = s.findPlan(investments[i].PlanID)
			plans[investments[i].PlanID] = plan
		}
		accrue(&investments[i], plan, now)
	}
	return investments
}

// @Summary List my investments
// @Router /api/investments [get]
func (s *Server) listInvestments(c *gin.Context) {
	sessionData, _ := GetSessionData(c)
	var investments []models.Investment
	if err := s.db.Where("user_id = ?", sessionData.UserID).Order("created_at DESC, id DESC").Find(&investments).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list investments")
		internalError(c)
		return
	}
	ok(c, "", s.withAccrual(investments))
}

// @Summary Get investment
// @Router /api/investments/{id} [get]
func (s *Server) getInvestment(c *gin.Context) {
	sessionData, _ := GetSessionData(c)
	var inv models.Investment
	if err := s.db.Where("id = ? AND user_id = ?", c.Param("id"), sessionData.UserID).First(&inv).Error; err != nil {
		fail(c, http.StatusNotFound, "Investment not found")
		return
	}
	ok(c, "", s.withAccrual([]models.Investment{inv})[0])
}

// @Summary Create investment
// @Description A transaction hash marks the deposit as paid and activates the position
// @Router /api/investments [post]
func (s *Server) createInvestment(c *gin.Context) {
	var req createInvestmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sessionData, _ := GetSessionData(c)

	plan, err := s.findPlan(req.PlanID)
	if err != nil || !plan.IsActive {
		fail(c, http.StatusNotFound, "Plan not found")
		return
	}
	if req.Amount < plan.MinAmount || (plan.MaxAmount > 0 && req.Amount > plan.MaxAmount) {
		invalidField(c, "amount", fmt.Sprintf("Amount must be between %.2f and %.2f", plan.MinAmount, plan.MaxAmount))
		return
	}
	settings, err := s.settings()
	if err != nil {
		internalError(c)
		return
	}
	if !supports(settings, req.Crypto) {
		fail(c, http.StatusBadRequest, "Unsupported cryptocurrency")
		return
	}

	inv := models.Investment{
		ID:              s.newID(),
		UserID:          sessionData.UserID,
		PlanID:          plan.ID,
		PlanName:        plan.Name,
		Amount:          req.Amount,
		Crypto:          req.Crypto,
		TransactionHash: strings.TrimSpace(req.TransactionHash),
		Status:          investmentPending,
	}
	if inv.TransactionHash != "" {
		inv.Status = investmentActive
	}
	if err := s.db.Create(&inv).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create investment")
		internalError(c)
		return
	}
	s.recordActivity(sessionData.UserID, "create-investment", fmt.Sprintf("%s %.2f %s", plan.Name, req.Amount, req.Crypto))
	s.notify(sessionData.UserID, "Investment received", fmt.Sprintf("Your %s investment of %.2f %s is %s.", plan.Name, req.Amount, req.Crypto, inv.Status))

	message := "Investment submitted. Send the deposit to the platform address to activate it."
	if inv.Status == investmentActive {
		message = "Investment activated"
	}
	created(c, message, inv)
}

// @Summary List my withdrawals
// @Router /api/withdrawals [get]
func (s *Server) listWithdrawals(c *gin.Context) {
	sessionData, _ := GetSessionData(c)
	var withdrawals []models.Withdrawal
	if err := s.db.Where("user_id = ?", sessionData.UserID).Order("created_at DESC, id DESC").Find(&withdrawals).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list withdrawals")
		internalError(c)
		return
	}
	ok(c, "", withdrawals)
}

// @Summary Create withdrawal
// @Description Checks the wallet PIN and reserves amount plus fee from the balance
// @Router /api/withdrawals [post]
func (s *Server) createWithdrawal(c *gin.Context) {
	var req createWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, found := s.currentUser(c)
	if !found {
		return
	}
	if user.PinHash == "" {
		fail(c, http.StatusBadRequest, "Set a wallet PIN before withdrawing")
		return
	}
	if err := verifyPassword(req.Pin, user.PinHash); err != nil {
		fail(c, http.StatusBadRequest, "Incorrect wallet PIN")
		return
	}

	settings, err := s.settings()
	if err != nil {
		internalError(c)
		return
	}
	if settings.MaintenanceMode {
		fail(c, http.StatusServiceUnavailable, "Withdrawals are paused for maintenance")
		return
	}
	if !supports(settings, req.Crypto) {
		fail(c, http.StatusBadRequest, "Unsupported cryptocurrency")
		return
	}
	if req.Amount < settings.MinWithdrawal {
		fail(c, http.StatusBadRequest, fmt.Sprintf("Minimum withdrawal is %.2f", settings.MinWithdrawal))
		return
	}
	total := withFee(req.Amount, settings.WithdrawalFeePct)

	w := models.Withdrawal{
		ID:            s.newID(),
		UserID:        user.ID,
		Amount:        req.Amount,
		Crypto:        req.Crypto,
		WalletAddress: req.WalletAddress,
		Status:        withdrawalPending,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&userRecord{}).
			Where("id = ? AND balance >= ?", user.ID, total).
			Update("balance", gorm.Expr("balance - ?", total))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errInsufficientBalance
		}
		return tx.Create(&w).Error
	})
	if errors.Is(err, errInsufficientBalance) {
		fail(c, http.StatusBadRequest, "Insufficient balance")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to create withdrawal")
		internalError(c)
		return
	}

	s.recordActivity(user.ID, "create-withdrawal", fmt.Sprintf("%.2f %s", req.Amount, req.Crypto))
	created(c, "Withdrawal requested", w)
}

// withFee is amount plus the percentage fee, rounded to cents
func withFee(amount, feePct float64) float64 {
	return math.Round(amount*(1+feePct/100)*100) / 100
}

// notify adds an inbox notification for userID; failures are only logged
func (s *Server) notify(userID, title, message string) {
	record := notificationRecord{
		InAppNotification: models.InAppNotification{ID: s.newID(), Title: title, Message: message},
		UserID:            userID,
	}
	if err := s.db.Create(&record).Error; err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to create notification")
	}
}
