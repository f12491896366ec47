package mockapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/coinvest-dev/coinvest/internal/models"
)

// envelope is the response shape of every endpoint
type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    interface{}         `json:"data,omitempty"`
	Errors  []models.FieldError `json:"errors,omitempty"`
}

func ok(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, envelope{Success: true, Message: message, Data: data})
}

func created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, envelope{Success: true, Message: message, Data: data})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, envelope{Success: false, Message: message})
}

// badRequest reports a binding failure field by field
func badRequest(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	fields := make([]models.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, models.FieldError{Field: fe.Field(), Message: fe.Tag()})
	}
	c.JSON(http.StatusUnprocessableEntity, envelope{Success: false, Message: "Validation failed", Errors: fields})
}

func internalError(c *gin.Context) {
	fail(c, http.StatusInternalServerError, "Internal server error")
}

// invalidField reports a single field that failed a business rule
func invalidField(c *gin.Context, field, message string) {
	c.JSON(http.StatusUnprocessableEntity, envelope{
		Success: false,
		Message: message,
		Errors:  []models.FieldError{{Field: field, Message: message}},
	})
}
