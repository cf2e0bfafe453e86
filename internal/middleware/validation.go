package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var controlChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)

func init() {
	validate = validator.New()
}

// SanitizeString removes control characters and trims whitespace.
func SanitizeString(input string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(input, ""))
}

// SanitizePath keeps separators and normalizes the path.
func SanitizePath(input string) string {
	cleaned := SanitizeString(input)
	if cleaned == "" {
		return ""
	}
	return filepath.Clean(cleaned)
}

// ValidateStruct runs struct tag validation and renders the first failure
// as a readable message.
func ValidateStruct(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid value for %s: failed '%s' check", fe.Field(), fe.Tag())
		}
		return err
	}
	return nil
}

// BindJSON decodes the request body into v and validates it. On failure
// a 400 response with status/message keys is written and false returned.
func BindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid JSON format",
			"details": err.Error(),
		})
		return false
	}
	if err := ValidateStruct(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Validation failed",
			"details": err.Error(),
		})
		return false
	}
	return true
}
