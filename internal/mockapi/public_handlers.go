package mockapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/coinvest-dev/coinvest/internal/models"
)

// @Summary List active plans
// @Router /api/plans [get]
func (s *Server) listPlans(c *gin.Context) {
	var plans []models.Plan
	if err := s.db.Where("is_active = ?", true).Order("min_amount").Find(&plans).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list plans")
		internalError(c)
		return
	}
	ok(c, "", plans)
}

// @Summary Get plan
// @Router /api/plans/{id} [get]
func (s *Server) getPlan(c *gin.Context) {
	plan, err := s.findPlan(c.Param("id"))
	if err != nil || !plan.IsActive {
		fail(c, http.StatusNotFound, "Plan not found")
		return
	}
	ok(c, "", plan)
}

func (s *Server) findPlan(id string) (*models.Plan, error) {
	var plan models.Plan
	if err := s.db.Where("id = ?", id).First(&plan).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error().Err(err).Str("plan_id", id).Msg("Failed to find plan")
		}
		return nil, err
	}
	return &plan, nil
}

// @Summary Crypto prices
// @Router /api/public/crypto-prices [get]
func (s *Server) cryptoPrices(c *gin.Context) {
	ok(c, "", s.prices)
}

// @Summary Plan guide
// @Router /api/public/plan-guide [get]
func (s *Server) planGuide(c *gin.Context) {
	ok(c, "", s.guide)
}
