// Package forms validates user input before it is sent to the backend.
// Failures are reported per field for inline display and never touch the
// session's auth error.
package forms

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/coinvest-dev/coinvest/internal/models"
)

// SupportedCryptos are the payout and deposit currencies
var SupportedCryptos = []string{"BTC", "ETH", "USDT"}

// Login is the login form
type Login struct {
	Email    string `label:"email" validate:"required,email"`
	Password string `label:"password" validate:"required"`
}

// Register is the sign-up form
type Register struct {
	FullName        string `label:"full name" validate:"required,min=2,max=100"`
	Email           string `label:"email" validate:"required,email"`
	Password        string `label:"password" validate:"required,strongpassword"`
	ConfirmPassword string `label:"confirm password" validate:"required,eqfield=Password"`
}

// ForgotPassword requests a reset link
type ForgotPassword struct {
	Email string `label:"email" validate:"required,email"`
}

// ResetPassword completes a reset
type ResetPassword struct {
	Token           string `label:"token" validate:"required"`
	Password        string `label:"password" validate:"required,strongpassword"`
	ConfirmPassword string `label:"confirm password" validate:"required,eqfield=Password"`
}

// VerifyEmail confirms the code sent after registration
type VerifyEmail struct {
	Email string `label:"email" validate:"required,email"`
	Code  string `label:"code" validate:"required,otp"`
}

// ChangePassword updates the password of the logged-in user
type ChangePassword struct {
	CurrentPassword string `label:"current password" validate:"required"`
	NewPassword     string `label:"new password" validate:"required,strongpassword,nefield=CurrentPassword"`
}

// WalletPin sets the PIN that authorizes withdrawals
type WalletPin struct {
	Pin      string `label:"pin" validate:"required,walletpin"`
	Password string `label:"password" validate:"required"`
}

// Investment opens a position in a plan
type Investment struct {
	PlanID string  `label:"plan" validate:"required"`
	Amount float64 `label:"amount" validate:"gt=0"`
	Crypto string  `label:"crypto" validate:"required,crypto"`
}

// Withdrawal requests a payout
type Withdrawal struct {
	Amount        float64 `label:"amount" validate:"gt=0"`
	Crypto        string  `label:"crypto" validate:"required,crypto"`
	WalletAddress string  `label:"wallet address" validate:"required,min=20,max=128,alphanum"`
	Pin           string  `label:"pin" validate:"required,walletpin"`
}

// Announcement is an admin broadcast
type Announcement struct {
	Title      string `label:"title" validate:"required,max=120"`
	Message    string `label:"message" validate:"required,max=2000"`
	TargetRole string `label:"target role" validate:"omitempty,oneof=Admin Investor SupportAgent"`
}

// Errors is a set of per-field validation failures
type Errors []models.FieldError

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fmt.Sprintf("%s: %s", fe.Field, fe.Message)
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			if label := f.Tag.Get("label"); label != "" {
				return label
			}
			return f.Name
		})

		// 4 to 6 digits
		validate.RegisterValidation("walletpin", func(fl validator.FieldLevel) bool {
			return digitsBetween(fl.Field().String(), 4, 6)
		})
		// exactly 6 digits
		validate.RegisterValidation("otp", func(fl validator.FieldLevel) bool {
			return digitsBetween(fl.Field().String(), 6, 6)
		})
		validate.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
			return strongPassword(fl.Field().String())
		})
		validate.RegisterValidation("crypto", func(fl validator.FieldLevel) bool {
			value := strings.ToUpper(fl.Field().String())
			for _, c := range SupportedCryptos {
				if c == value {
					return true
				}
			}
			return false
		})
	})
	return validate
}

// Validate checks form and returns Errors when any field is invalid
func Validate(form any) error {
	err := instance().Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate form: %w", err)
	}
	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, models.FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gt":
		return "must be greater than 0"
	case "eqfield":
		return "does not match"
	case "nefield":
		return "must differ from the current password"
	case "strongpassword":
		return "must be at least 8 characters with a letter and a digit"
	case "walletpin":
		return "must be 4 to 6 digits"
	case "otp":
		return "must be the 6-digit code from your email"
	case "crypto":
		return "must be one of " + strings.Join(SupportedCryptos, ", ")
	case "alphanum":
		return "must contain only letters and digits"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "is invalid"
	}
}

func digitsBetween(s string, min, max int) bool {
	if len(s) < min || len(s) > max {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func strongPassword(s string) bool {
	if len(s) < 8 {
		return false
	}
	var letter, digit bool
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}
