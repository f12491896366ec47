package mockapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/coinvest-dev/coinvest/internal/models"
)

type userStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active suspended"`
}

type savePlanRequest struct {
	Name         string  `json:"name" binding:"required"`
	Description  string  `json:"description"`
	MinAmount    float64 `json:"minAmount" binding:"gt=0"`
	MaxAmount    float64 `json:"maxAmount" binding:"omitempty,gtefield=MinAmount"`
	DailyRate    float64 `json:"dailyRate" binding:"gt=0,lte=100"`
	DurationDays int     `json:"durationDays" binding:"gt=0"`
	IsActive     bool    `json:"isActive"`
}

type reviewWithdrawalRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}

type settingsRequest struct {
	MinWithdrawal       float64           `json:"minWithdrawal" binding:"gte=0"`
	WithdrawalFeePct    float64           `json:"withdrawalFeePct" binding:"gte=0,lte=100"`
	MaintenanceMode     bool              `json:"maintenanceMode"`
	DepositAddresses    map[string]string `json:"depositAddresses"`
	SupportedCryptos    []string          `json:"supportedCryptos" binding:"required,min=1"`
	RegistrationEnabled bool              `json:"registrationEnabled"`
}

type announcementRequest struct {
	Title      string      `json:"title" binding:"required,max=120"`
	Message    string      `json:"message" binding:"required"`
	TargetRole models.Role `json:"targetRole" binding:"omitempty,oneof=Admin Investor SupportAgent"`
}

// @Summary List users
// @Router /api/admin/users [get]
func (s *Server) adminListUsers(c *gin.Context) {
	q := s.db.Model(&userRecord{}).Order("created_at DESC, id DESC")
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if search := strings.ToLower(strings.TrimSpace(c.Query("search"))); search != "" {
		like := "%" + search + "%"
		q = q.Where("LOWER(email) LIKE ? OR LOWER(full_name) LIKE ?", like, like)
	}
	var records []userRecord
	if err := paginate(c, q).Find(&records).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list users")
		internalError(c)
		return
	}
	out := make([]models.User, 0, len(records))
	for i := range records {
		out = append(out, *records[i].toModel())
	}
	ok(c, "", out)
}

// @Summary Set user status
// @Description Suspending a user ends all of their sessions
// @Router /api/admin/users/{id}/status [patch]
func (s *Server) adminSetUserStatus(c *gin.Context) {
	var req userStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	admin, _ := GetSessionData(c)
	id := c.Param("id")
	if id == admin.UserID {
		fail(c, http.StatusBadRequest, "You cannot change your own status")
		return
	}

	result := s.db.Model(&userRecord{}).Where("id = ?", id).Update("status", req.Status)
	if result.Error != nil {
		s.logger.Error().Err(result.Error).Msg("Failed to update user status")
		internalError(c)
		return
	}
	if result.RowsAffected == 0 {
		fail(c, http.StatusNotFound, "User not found")
		return
	}
	if req.Status == statusSuspended {
		s.revokeUserSessions(id)
	}

	s.recordActivity(admin.UserID, "set-user-status", fmt.Sprintf("%s %s", id, req.Status))
	s.logger.Info().Str("user_id", id).Str("status", req.Status).Msg("User status changed")
	ok(c, "User status updated", nil)
}

// @Summary List all plans
// @Router /api/admin/plans [get]
func (s *Server) adminListPlans(c *gin.Context) {
	var plans []models.Plan
	if err := s.db.Order("min_amount").Find(&plans).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list plans")
		internalError(c)
		return
	}
	ok(c, "", plans)
}

// @Summary Create or update plan
// @Router /api/admin/plans [post]
// @Router /api/admin/plans/{id} [put]
func (s *Server) adminSavePlan(c *gin.Context) {
	var req savePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	admin, _ := GetSessionData(c)

	plan := models.Plan{
		ID:           c.Param("id"),
		Name:         req.Name,
		Description:  req.Description,
		MinAmount:    req.MinAmount,
		MaxAmount:    req.MaxAmount,
		DailyRate:    req.DailyRate,
		DurationDays: req.DurationDays,
		IsActive:     req.IsActive,
	}

	status, action := http.StatusCreated, "create-plan"
	if plan.ID == "" {
		plan.ID = s.newID()
		if err := s.db.Create(&plan).Error; err != nil {
			s.logger.Error().Err(err).Msg("Failed to create plan")
			internalError(c)
			return
		}
	} else {
		status, action = http.StatusOK, "update-plan"
		if _, err := s.findPlan(plan.ID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fail(c, http.StatusNotFound, "Plan not found")
				return
			}
			internalError(c)
			return
		}
		// Select("*") so false and zero values are written too
		if err := s.db.Model(&plan).Select("*").Updates(&plan).Error; err != nil {
			s.logger.Error().Err(err).Msg("Failed to update plan")
			internalError(c)
			return
		}
	}

	s.recordActivity(admin.UserID, action, plan.Name)
	c.JSON(status, envelope{Success: true, Message: "Plan saved", Data: plan})
}

// @Summary List all investments
// @Router /api/admin/investments [get]
func (s *Server) adminListInvestments(c *gin.Context) {
	q := s.db.Order("created_at DESC, id DESC")
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	var investments []models.Investment
	if err := paginate(c, q).Find(&investments).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list investments")
		internalError(c)
		return
	}
	ok(c, "", s.withAccrual(investments))
}

// @Summary List all withdrawals
// @Router /api/admin/withdrawals [get]
func (s *Server) adminListWithdrawals(c *gin.Context) {
	q := s.db.Order("created_at DESC, id DESC")
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	var withdrawals []models.Withdrawal
	if err := paginate(c, q).Find(&withdrawals).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list withdrawals")
		internalError(c)
		return
	}
	ok(c, "", withdrawals)
}

// @Summary Review withdrawal
// @Description Approving pays out; rejecting refunds the reserved amount and fee
// @Router /api/admin/withdrawals/{id} [patch]
func (s *Server) adminReviewWithdrawal(c *gin.Context) {
	var req reviewWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	admin, _ := GetSessionData(c)
	settings, err := s.settings()
	if err != nil {
		internalError(c)
		return
	}

	var w models.Withdrawal
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", c.Param("id")).First(&w).Error; err != nil {
			return err
		}
		if w.Status != withdrawalPending {
			return errAlreadyReviewed
		}
		w.Status, w.AdminNote = withdrawalApproved, req.Note
		if !req.Approve {
			w.Status = withdrawalRejected
			refund := withFee(w.Amount, settings.WithdrawalFeePct)
			if err := tx.Model(&userRecord{}).Where("id = ?", w.UserID).
				Update("balance", gorm.Expr("balance + ?", refund)).Error; err != nil {
				return err
			}
		}
		return tx.Model(&w).Select("status", "admin_note").Updates(&w).Error
	})
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		fail(c, http.StatusNotFound, "Withdrawal not found")
		return
	case errors.Is(err, errAlreadyReviewed):
		fail(c, http.StatusConflict, "Withdrawal has already been reviewed")
		return
	case err != nil:
		s.logger.Error().Err(err).Msg("Failed to review withdrawal")
		internalError(c)
		return
	}

	s.notify(w.UserID, "Withdrawal "+w.Status, fmt.Sprintf("Your withdrawal of %.2f %s was %s.", w.Amount, w.Crypto, w.Status))
	s.recordActivity(admin.UserID, "review-withdrawal", fmt.Sprintf("%s %s", w.ID, w.Status))
	ok(c, "Withdrawal "+w.Status, w)
}

var errAlreadyReviewed = errors.New("withdrawal already reviewed")

// @Summary Get platform settings
// @Router /api/admin/settings [get]
func (s *Server) adminGetSettings(c *gin.Context) {
	settings, err := s.settings()
	if err != nil {
		internalError(c)
		return
	}
	ok(c, "", settings)
}

// @Summary Update platform settings
// @Router /api/admin/settings [put]
func (s *Server) adminUpdateSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	admin, _ := GetSessionData(c)

	settings := models.PlatformSettings(req)
	if err := s.db.Save(&settingsRecord{ID: 1, Settings: settings}).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to save settings")
		internalError(c)
		return
	}
	s.recordActivity(admin.UserID, "update-settings", "")
	ok(c, "Settings saved", settings)
}

// @Summary Broadcast announcement
// @Description Delivers an inbox notification to every user, or to one role
// @Router /api/admin/announcements [post]
func (s *Server) adminAnnounce(c *gin.Context) {
	var req announcementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	admin, _ := GetSessionData(c)

	q := s.db.Model(&userRecord{}).Where("status = ?", statusActive)
	if req.TargetRole != "" {
		q = q.Where("role = ?", req.TargetRole)
	}
	var userIDs []string
	if err := q.Pluck("id", &userIDs).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to select recipients")
		internalError(c)
		return
	}

	records := make([]notificationRecord, 0, len(userIDs))
	for _, id := range userIDs {
		records = append(records, notificationRecord{
			InAppNotification: models.InAppNotification{
				ID:          s.newID(),
				Title:       req.Title,
				Message:     req.Message,
				IsBroadcast: true,
			},
			UserID: id,
		})
	}
	if len(records) > 0 {
		if err := s.db.Create(&records).Error; err != nil {
			s.logger.Error().Err(err).Msg("Failed to deliver announcement")
			internalError(c)
			return
		}
	}

	s.recordActivity(admin.UserID, "announce", req.Title)
	ok(c, fmt.Sprintf("Announcement sent to %d users", len(records)), nil)
}

// @Summary Platform activity log
// @Router /api/admin/logs [get]
func (s *Server) adminLogs(c *gin.Context) {
	q := s.db.Order("created_at DESC, id DESC")
	if action := c.Query("search"); action != "" {
		q = q.Where("action = ?", action)
	}
	var entries []models.ActivityEntry
	if err := paginate(c, q).Find(&entries).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list logs")
		internalError(c)
		return
	}
	ok(c, "", entries)
}

// @Summary Dashboard analytics
// @Router /api/admin/analytics [get]
func (s *Server) adminAnalytics(c *gin.Context) {
	var (
		out       models.Analytics
		users     int64
		active    int64
		pending   int64
		invested  float64
		withdrawn float64
	)
	queries := []func() error{
		func() error { return s.db.Model(&userRecord{}).Count(&users).Error },
		func() error {
			return s.db.Model(&models.Investment{}).Where("status = ?", investmentActive).Count(&active).Error
		},
		func() error {
			return s.db.Model(&models.Investment{}).Where("status <> ?", investmentPending).
				Select("COALESCE(SUM(amount), 0)").Scan(&invested).Error
		},
		func() error {
			return s.db.Model(&models.Withdrawal{}).Where("status = ?", withdrawalPending).Count(&pending).Error
		},
		func() error {
			return s.db.Model(&models.Withdrawal{}).Where("status = ?", withdrawalApproved).
				Select("COALESCE(SUM(amount), 0)").Scan(&withdrawn).Error
		},
	}
	for _, query := range queries {
		if err := query(); err != nil {
			s.logger.Error().Err(err).Msg("Failed to compute analytics")
			internalError(c)
			return
		}
	}

	out.TotalUsers = int(users)
	out.ActiveInvestments = int(active)
	out.TotalInvested = invested
	out.PendingWithdrawals = int(pending)
	out.TotalWithdrawnValue = withdrawn
	ok(c, "", out)
}
