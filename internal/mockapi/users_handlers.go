package mockapi

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/coinvest-dev/coinvest/internal/models"
)

const activityPageSize = 20

var pinPattern = regexp.MustCompile(`^\d{4,6}$`)

type profileRequest struct {
	FullName string `json:"fullName" binding:"required,min=2,max=100"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8,nefield=CurrentPassword"`
}

type walletPinRequest struct {
	Pin      string `json:"pin" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type payoutWalletsRequest struct {
	PreferredPayoutCrypto string            `json:"preferredPayoutCrypto" binding:"required"`
	PayoutWalletAddresses map[string]string `json:"payoutWalletAddresses" binding:"required"`
}

// @Summary Update profile
// @Router /api/users/profile [put]
func (s *Server) updateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, found := s.currentUser(c)
	if !found {
		return
	}
	user.FullName = strings.TrimSpace(req.FullName)
	if err := s.db.Model(user).Update("full_name", user.FullName).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to update profile")
		internalError(c)
		return
	}
	s.recordActivity(user.ID, "update-profile", "")
	ok(c, "Profile updated", gin.H{"user": user.toModel()})
}

// @Summary Change password
// @Router /api/users/password [put]
func (s *Server) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, found := s.currentUser(c)
	if !found {
		return
	}
	if err := verifyPassword(req.CurrentPassword, user.PasswordHash); err != nil {
		fail(c, http.StatusBadRequest, "Current password is incorrect")
		return
	}
	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		internalError(c)
		return
	}
	if err := s.db.Model(user).Update("password_hash", hash).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to change password")
		internalError(c)
		return
	}
	s.recordActivity(user.ID, "change-password", "")
	ok(c, "Password changed", nil)
}

// @Summary Set wallet PIN
// @Description Requires the account password
// @Router /api/users/pin [put]
func (s *Server) setWalletPin(c *gin.Context) {
	var req walletPinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !pinPattern.MatchString(req.Pin) {
		invalidField(c, "pin", "PIN must be 4 to 6 digits")
		return
	}
	user, found := s.currentUser(c)
	if !found {
		return
	}
	if err := verifyPassword(req.Password, user.PasswordHash); err != nil {
		fail(c, http.StatusBadRequest, "Password is incorrect")
		return
	}
	hash, err := hashPassword(req.Pin)
	if err != nil {
		internalError(c)
		return
	}
	if err := s.db.Model(user).Update("pin_hash", hash).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to set PIN")
		internalError(c)
		return
	}
	s.recordActivity(user.ID, "set-wallet-pin", "")
	ok(c, "Wallet PIN saved", nil)
}

// @Summary Update payout wallets
// @Router /api/users/payout-wallets [put]
func (s *Server) updatePayoutWallets(c *gin.Context) {
	var req payoutWalletsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	settings, err := s.settings()
	if err != nil {
		internalError(c)
		return
	}
	if !supports(settings, req.PreferredPayoutCrypto) {
		fail(c, http.StatusBadRequest, "Unsupported cryptocurrency")
		return
	}
	if strings.TrimSpace(req.PayoutWalletAddresses[req.PreferredPayoutCrypto]) == "" {
		fail(c, http.StatusBadRequest, "A wallet address for the preferred cryptocurrency is required")
		return
	}
	for symbol := range req.PayoutWalletAddresses {
		if !supports(settings, symbol) {
			fail(c, http.StatusBadRequest, "Unsupported cryptocurrency: "+symbol)
			return
		}
	}

	user, found := s.currentUser(c)
	if !found {
		return
	}
	user.PreferredPayoutCrypto = req.PreferredPayoutCrypto
	user.PayoutWalletAddresses = req.PayoutWalletAddresses
	if err := s.db.Model(user).Select("preferred_payout_crypto", "payout_wallet_addresses").Updates(user).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to update payout wallets")
		internalError(c)
		return
	}
	s.recordActivity(user.ID, "update-payout-wallets", req.PreferredPayoutCrypto)
	ok(c, "Payout wallets updated", gin.H{"user": user.toModel()})
}

// @Summary List notifications
// @Router /api/users/notifications [get]
func (s *Server) listNotifications(c *gin.Context) {
	sessionData, _ := GetSessionData(c)
	var records []notificationRecord
	if err := s.db.Where("user_id = ?", sessionData.UserID).Order("created_at DESC, id DESC").Find(&records).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list notifications")
		internalError(c)
		return
	}
	out := make([]models.InAppNotification, 0, len(records))
	for _, r := range records {
		out = append(out, r.InAppNotification)
	}
	ok(c, "", out)
}

// @Summary Unread notification count
// @Router /api/users/notifications/unread-count [get]
func (s *Server) unreadCount(c *gin.Context) {
	sessionData, _ := GetSessionData(c)
	var count int64
	if err := s.db.Model(&notificationRecord{}).Where("user_id = ? AND is_read = ?", sessionData.UserID, false).Count(&count).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to count notifications")
		internalError(c)
		return
	}
	ok(c, "", gin.H{"count": count})
}

// @Summary Mark notification read
// @Router /api/users/notifications/{id}/read [patch]
func (s *Server) markNotificationRead(c *gin.Context) {
	sessionData, _ := GetSessionData(c)
	result := s.db.Model(&notificationRecord{}).
		Where("id = ? AND user_id = ?", c.Param("id"), sessionData.UserID).
		Update("is_read", true)
	if result.Error != nil {
		s.logger.Error().Err(result.Error).Msg("Failed to mark notification read")
		internalError(c)
		return
	}
	if result.RowsAffected == 0 {
		fail(c, http.StatusNotFound, "Notification not found")
		return
	}
	ok(c, "", nil)
}

// @Summary Activity log
// @Router /api/users/activity [get]
func (s *Server) activityLog(c *gin.Context) {
	sessionData, _ := GetSessionData(c)
	var entries []models.ActivityEntry
	q := s.db.Where("user_id = ?", sessionData.UserID).Order("created_at DESC, id DESC")
	if err := paginate(c, q).Find(&entries).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list activity")
		internalError(c)
		return
	}
	ok(c, "", entries)
}

// paginate applies the page and limit query parameters, 1-based
func paginate(c *gin.Context, q *gorm.DB) *gorm.DB {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(activityPageSize)))
	if err != nil || limit < 1 || limit > 100 {
		limit = activityPageSize
	}
	return q.Offset((page - 1) * limit).Limit(limit)
}

// settings loads the singleton platform settings row
func (s *Server) settings() (models.PlatformSettings, error) {
	var record settingsRecord
	if err := s.db.First(&record, 1).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.PlatformSettings{}, nil
		}
		s.logger.Error().Err(err).Msg("Failed to load settings")
		return models.PlatformSettings{}, err
	}
	return record.Settings, nil
}

func supports(settings models.PlatformSettings, symbol string) bool {
	for _, s := range settings.SupportedCryptos {
		if s == symbol {
			return true
		}
	}
	return false
}
