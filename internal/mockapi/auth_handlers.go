package mockapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/coinvest-dev/coinvest/internal/models"
)

// RegisterRequest represents a sign-up request
type RegisterRequest struct {
	FullName string `json:"fullName" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type verifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=6"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

const (
	otpTTL   = 10 * time.Minute
	resetTTL = time.Hour
)

func (s *Server) findUserByEmail(email string) (*userRecord, error) {
	var user userRecord
	if err := s.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Server) currentUser(c *gin.Context) (*userRecord, bool) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		fail(c, http.StatusUnauthorized, "Not authenticated")
		return nil, false
	}
	var user userRecord
	if err := s.db.Where("id = ?", sessionData.UserID).First(&user).Error; err != nil {
		s.logger.Error().Err(err).Str("user_id", sessionData.UserID).Msg("Failed to find user")
		internalError(c)
		return nil, false
	}
	return &user, true
}

// @Summary Register
// @Description Create an investor account. The email must be verified before login.
// @Router /api/auth/register [post]
func (s *Server) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	settings, err := s.settings()
	if err != nil {
		internalError(c)
		return
	}
	if !settings.RegistrationEnabled {
		fail(c, http.StatusForbidden, "Registration is currently closed")
		return
	}

	if _, err := s.findUserByEmail(req.Email); err == nil {
		fail(c, http.StatusConflict, "An account with this email already exists")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error().Err(err).Msg("Failed to look up user")
		internalError(c)
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		internalError(c)
		return
	}
	user := &userRecord{
		ID:           s.newID(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		FullName:     req.FullName,
		Role:         models.RoleInvestor,
		PasswordHash: hash,
		Status:       statusActive,
	}
	if err := s.db.Create(user).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create user")
		internalError(c)
		return
	}
	if err := s.issueOTP(user); err != nil {
		internalError(c)
		return
	}
	s.recordActivity(user.ID, "register", "")

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User registered")
	created(c, "Registration successful. Check your email for the verification code.", gin.H{
		"userId": user.ID,
		"email":  user.Email,
	})
}

// issueOTP stores a fresh verification code for user
func (s *Server) issueOTP(user *userRecord) error {
	code, err := randomOTP()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate OTP")
		return err
	}
	expires := time.Now().Add(otpTTL)
	if err := s.db.Model(user).Updates(map[string]interface{}{"otp": code, "otp_expires_at": &expires}).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to store OTP")
		return err
	}
	s.logger.Info().Str("email", user.Email).Str("otp", code).Msg("Verification code issued")
	return nil
}

// @Summary Login
// @Description Authenticate with email and password; sets the session cookie
// @Router /api/auth/login [post]
func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := s.findUserByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find user")
		internalError(c)
		return
	}

	if err := verifyPassword(req.Password, user.PasswordHash); err != nil {
		fail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if !user.IsEmailVerified {
		fail(c, http.StatusForbidden, "Please verify your email before logging in")
		return
	}
	if user.Status == statusSuspended {
		fail(c, http.StatusForbidden, "Account suspended")
		return
	}

	now := time.Now()
	session := &sessionRecord{ID: s.newID(), UserID: user.ID, ExpiresAt: now.Add(s.config.SessionTTL)}
	if err := s.db.Create(session).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create session")
		internalError(c)
		return
	}
	token, err := s.tokens.issue(session.ID, user.ID, string(user.Role), now)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to sign session")
		internalError(c)
		return
	}

	s.setSessionCookie(c, token, int(s.config.SessionTTL.Seconds()))
	s.recordActivity(user.ID, "login", "")

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User logged in")
	ok(c, "Login successful", gin.H{"user": user.toModel()})
}

func (s *Server) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.config.CookieName, value, maxAge, "/", "", false, true)
}

// @Summary Logout
// @Description Revoke the current session and clear the cookie
// @Router /api/auth/logout [post]
func (s *Server) logout(c *gin.Context) {
	sessionData, _ := GetSessionData(c)
	now := time.Now()
	if err := s.db.Model(&sessionRecord{}).Where("id = ?", sessionData.SessionID).Update("revoked_at", &now).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to revoke session")
		internalError(c)
		return
	}
	s.setSessionCookie(c, "", -1)
	s.recordActivity(sessionData.UserID, "logout", "")
	ok(c, "Logged out", nil)
}

// @Summary Get current user
// @Router /api/auth/me [get]
func (s *Server) getCurrentUser(c *gin.Context) {
	user, found := s.currentUser(c)
	if !found {
		return
	}
	ok(c, "", gin.H{"user": user.toModel()})
}

// @Summary Send verification code
// @Router /api/auth/send-otp [post]
func (s *Server) sendOTP(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := s.findUserByEmail(req.Email)
	if err != nil {
		fail(c, http.StatusNotFound, "No account with this email")
		return
	}
	if user.IsEmailVerified {
		fail(c, http.StatusConflict, "Email is already verified")
		return
	}
	if err := s.issueOTP(user); err != nil {
		internalError(c)
		return
	}
	ok(c, "Verification code sent", nil)
}

// @Summary Verify email
// @Router /api/auth/verify-otp [post]
func (s *Server) verifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := s.findUserByEmail(req.Email)
	if err != nil || user.OTP == "" || user.OTP != req.OTP ||
		user.OTPExpiresAt == nil || time.Now().After(*user.OTPExpiresAt) {
		fail(c, http.StatusBadRequest, "Invalid or expired code")
		return
	}

	if err := s.db.Model(user).Updates(map[string]interface{}{
		"is_email_verified": true,
		"otp":               "",
		"otp_expires_at":    nil,
	}).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to verify email")
		internalError(c)
		return
	}
	s.recordActivity(user.ID, "verify-email", "")
	ok(c, "Email verified. You can now log in.", nil)
}

// @Summary Forgot password
// @Description Always succeeds so account existence is not revealed
// @Router /api/auth/forgot-password [post]
func (s *Server) forgotPassword(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	const message = "If an account exists, a reset link has been sent"
	user, err := s.findUserByEmail(req.Email)
	if err != nil {
		ok(c, message, nil)
		return
	}
	token, err := randomHex(24)
	if err != nil {
		internalError(c)
		return
	}
	expires := time.Now().Add(resetTTL)
	if err := s.db.Model(user).Updates(map[string]interface{}{"reset_token": token, "reset_expires_at": &expires}).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to store reset token")
		internalError(c)
		return
	}
	s.logger.Info().Str("email", user.Email).Str("token", token).Msg("Password reset token issued")
	ok(c, message, nil)
}

// @Summary Reset password
// @Router /api/auth/reset-password [post]
func (s *Server) resetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	var user userRecord
	if err := s.db.Where("reset_token = ?", req.Token).First(&user).Error; err != nil ||
		user.ResetExpiresAt == nil || time.Now().After(*user.ResetExpiresAt) {
		fail(c, http.StatusBadRequest, "Invalid or expired reset token")
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		internalError(c)
		return
	}
	if err := s.db.Model(&user).Updates(map[string]interface{}{
		"password_hash":    hash,
		"reset_token":      "",
		"reset_expires_at": nil,
	}).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to reset password")
		internalError(c)
		return
	}
	s.revokeUserSessions(user.ID)
	s.recordActivity(user.ID, "reset-password", "")
	ok(c, "Password has been reset. You can now log in.", nil)
}

// revokeUserSessions ends every session of userID
func (s *Server) revokeUserSessions(userID string) {
	now := time.Now()
	if err := s.db.Model(&sessionRecord{}).Where("user_id = ? AND revoked_at IS NULL", userID).Update("revoked_at", &now).Error; err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to revoke sessions")
	}
}

// recordActivity appends to the activity log; failures are only logged
func (s *Server) recordActivity(userID, action, details string) {
	entry := &models.ActivityEntry{ID: s.newID(), UserID: userID, Action: action, Details: details}
	if err := s.db.Create(entry).Error; err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("Failed to record activity")
	}
}
