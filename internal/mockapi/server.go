// Package mockapi is a development backend speaking the platform's REST
// contract: session cookies, the success/message/data envelope and the
// user, investment, withdrawal and admin endpoints the client drives.
package mockapi

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/coinvest-dev/coinvest/internal/config"
	"github.com/coinvest-dev/coinvest/internal/models"
)

const (
	statusActive    = "active"
	statusSuspended = "suspended"
)

// Server is the mock backend
type Server struct {
	router *gin.Engine
	db     *gorm.DB
	config *config.MockAPIConfig
	logger zerolog.Logger
	tokens *tokenIssuer
	prices []models.CryptoPrice
	guide  []models.GuideSection

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// New creates a server with its database seeded from seed
func New(cfg *config.MockAPIConfig, seed *Seed, zlog zerolog.Logger) (*Server, error) {
	db, err := initDatabase(cfg.DatabaseURL, zlog)
	if err != nil {
		return nil, err
	}

	secret := cfg.SessionSecret
	if secret == "" {
		if secret, err = randomHex(32); err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		zlog.Debug().Msg("Generated ephemeral session secret")
	}
	tokens, err := newTokenIssuer(secret, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}

	s := &Server{
		db:      db,
		config:  cfg,
		logger:  zlog,
		tokens:  tokens,
		prices:  seed.Prices,
		guide:   seed.Guide,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	if err := s.applySeed(seed); err != nil {
		return nil, err
	}

	s.setupRouter()
	return s, nil
}

// initDatabase opens the backend's SQLite database
func initDatabase(url string, zlog zerolog.Logger) (*gorm.DB, error) {
	const busyTimeout = 5000 // 5 seconds

	db, err := gorm.Open(sqlite.Open(url), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	// every connection to :memory: is its own database
	if strings.Contains(url, ":memory:") {
		sqlDB.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
		"PRAGMA foreign_keys=1",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			zlog.Warn().Str("pragma", pragma).Err(err).Msg("Failed to apply pragma")
		}
	}

	if err := db.AutoMigrate(allRecords()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

func (s *Server) applySeed(seed *Seed) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&userRecord{}).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count users: %w", err)
		}
		if count > 0 {
			s.logger.Info().Msg("Database already seeded")
			return nil
		}

		for _, su := range seed.Users {
			hash, err := hashPassword(su.Password)
			if err != nil {
				return err
			}
			user := userRecord{
				ID:              s.newID(),
				Email:           strings.ToLower(su.Email),
				FullName:        su.FullName,
				Role:            su.Role,
				PasswordHash:    hash,
				IsEmailVerified: su.Verified,
				Balance:         su.Balance,
				Status:          statusActive,
			}
			if su.Pin != "" {
				if user.PinHash, err = hashPassword(su.Pin); err != nil {
					return err
				}
			}
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("failed to seed user %s: %w", su.Email, err)
			}
		}
		for i := range seed.Plans {
			plan := seed.Plans[i]
			if plan.ID == "" {
				plan.ID = s.newID()
			}
			if err := tx.Create(&plan).Error; err != nil {
				return fmt.Errorf("failed to seed plan %s: %w", plan.Name, err)
			}
		}
		if err := tx.Create(&settingsRecord{ID: 1, Settings: seed.Settings}).Error; err != nil {
			return fmt.Errorf("failed to seed settings: %w", err)
		}

		s.logger.Info().Int("users", len(seed.Users)).Int("plans", len(seed.Plans)).Msg("Seeded database")
		return nil
	})
}

func (s *Server) newID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	return ulid.MustNew(ulid.Now(), s.entropy).String()
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	// credentials are cookies, so origins must be explicit
	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s.router.GET("/health", s.healthCheck)

	api := s.router.Group("/api")

	// Public endpoints (no session required)
	api.POST("/auth/register", s.register)
	api.POST("/auth/login", s.login)
	api.POST("/auth/send-otp", s.sendOTP)
	api.POST("/auth/verify-otp", s.verifyOTP)
	api.POST("/auth/forgot-password", s.forgotPassword)
	api.POST("/auth/reset-password", s.resetPassword)
	api.GET("/plans", s.listPlans)
	api.GET("/plans/:id", s.getPlan)
	api.GET("/public/crypto-prices", s.cryptoPrices)
	api.GET("/public/plan-guide", s.planGuide)

	authed := api.Group("")
	authed.Use(SessionMiddleware(s.db, s.tokens, s.config.CookieName, s.logger))
	{
		authed.POST("/auth/logout", s.logout)
		authed.GET("/auth/me", s.getCurrentUser)

		users := authed.Group("/users")
		{
			users.GET("/profile", s.getCurrentUser)
			users.PUT("/profile", s.updateProfile)
			users.PUT("/password", s.changePassword)
			users.PUT("/pin", s.setWalletPin)
			users.PUT("/payout-wallets", s.updatePayoutWallets)
			users.GET("/notifications", s.listNotifications)
			users.GET("/notifications/unread-count", s.unreadCount)
			users.PATCH("/notifications/:id/read", s.markNotificationRead)
			users.GET("/activity", s.activityLog)
		}

		authed.GET("/investments", s.listInvestments)
		authed.POST("/investments", s.createInvestment)
		authed.GET("/investments/:id", s.getInvestment)
		authed.GET("/withdrawals", s.listWithdrawals)
		authed.POST("/withdrawals", s.createWithdrawal)

		admin := authed.Group("/admin")
		admin.Use(RoleMiddleware(s.logger, models.RoleAdmin))
		{
			admin.GET("/users", s.adminListUsers)
			admin.PATCH("/users/:id/status", s.adminSetUserStatus)
			admin.GET("/plans", s.adminListPlans)
			admin.POST("/plans", s.adminSavePlan)
			admin.PUT("/plans/:id", s.adminSavePlan)
			admin.GET("/investments", s.adminListInvestments)
			admin.GET("/withdrawals", s.adminListWithdrawals)
			admin.PATCH("/withdrawals/:id", s.adminReviewWithdrawal)
			admin.GET("/settings", s.adminGetSettings)
			admin.PUT("/settings", s.adminUpdateSettings)
			admin.POST("/announcements", s.adminAnnounce)
			admin.GET("/logs", s.adminLogs)
			admin.GET("/analytics", s.adminAnalytics)
		}
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "coinvest-mockapi",
	})
}

// Handler returns the HTTP handler, for httptest servers
func (s *Server) Handler() http.Handler {
	return s.router
}

// ExpireSessions revokes every live session, as a backend restart or
// session store flush would
func (s *Server) ExpireSessions() error {
	now := time.Now()
	return s.db.Model(&sessionRecord{}).Where("revoked_at IS NULL").Update("revoked_at", &now).Error
}

// OTPFor returns the last verification code issued to email. There is no
// mail delivery; codes are also logged.
func (s *Server) OTPFor(email string) string {
	var user userRecord
	if err := s.db.Where("email = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		return ""
	}
	return user.OTP
}

// ResetTokenFor returns the last password reset token issued to email
func (s *Server) ResetTokenFor(email string) string {
	var user userRecord
	if err := s.db.Where("email = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		return ""
	}
	return user.ResetToken
}

// Close releases the database
func (s *Server) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Start serves until SIGINT/SIGTERM or ctx is done, then shuts down
// gracefully
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.config.Addr).Msg("Starting mock API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	if err := s.Close(); err != nil {
		s.logger.Error().Err(err).Msg("Error closing database")
	}
	s.logger.Info().Msg("Server shutdown complete")
	return nil
}
