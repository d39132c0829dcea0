package middleware

import (
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("strongpassword", strongPassword)
	_ = v.RegisterValidation("posint", positiveInt)
	_ = v.RegisterValidation("posdecimal", positiveDecimal)
	return v
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

type BadRequestErrorResponse struct {
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors"`
}

// ValidateRequest runs every field's constraint chain. A field reports only
// its first failing constraint; every failing field is reported.
func ValidateRequest(obj any) []ValidationError {
	var validationErrors []ValidationError

	err := validate.Struct(obj)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []ValidationError{{Field: "", Message: err.Error(), Type: "invalid"}}
	}
	for _, err := range fieldErrs {
		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: getErrorMsg(err),
			Type:    err.Tag(),
		})
	}

	return validationErrors
}

func getErrorMsg(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		return "Must be at least " + err.Param() + " characters"
	case "max":
		return "Must be at most " + err.Param() + " characters"
	case "oneof":
		return "Must be one of: " + err.Param()
	case "strongpassword":
		return "Password needs 8 to 72 bytes with an uppercase letter, a lowercase letter and a digit"
	case "posint":
		return "Must be a positive integer"
	case "posdecimal":
		return "Must be a number greater than 0"
	default:
		return "Invalid value"
	}
}

// maxPasswordBytes is the most input bcrypt will hash.
const maxPasswordBytes = 72

func strongPassword(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len([]rune(s)) < 8 || len(s) > maxPasswordBytes {
		return false
	}
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

func positiveInt(fl validator.FieldLevel) bool {
	n, err := strconv.ParseInt(strings.TrimSpace(fl.Field().String()), 10, 64)
	return err == nil && n >= 1
}

func positiveDecimal(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
	return err == nil && d.IsPositive()
}

func RespondWithValidationError(c *gin.Context, validationErrors []ValidationError) {
	c.AbortWithStatusJSON(http.StatusBadRequest, BadRequestErrorResponse{
		Message: "Invalid request data",
		Errors:  validationErrors,
	})
}

// RespondWithError writes the {"error": code} body used for every non-validation failure.
func RespondWithError(c *gin.Context, status int, code string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": code,
	})
}
