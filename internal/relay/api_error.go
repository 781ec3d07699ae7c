package relay

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ApiError is the JSON body of every non-2xx relay response.
type ApiError struct {
	// Code is the HTTP status code
	Code int `json:"code"`
	// Message is the error message
	Message string `json:"message"`
}

func (e ApiError) Error() string { return fmt.Sprintf("relay %d: %s", e.Code, e.Message) }

// ApiErrorf aborts the request with a formatted ApiError.
func ApiErrorf(c *gin.Context, code int, format string, args ...interface{}) ApiError {
	ar := ApiError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
	c.AbortWithStatusJSON(code, ar)
	return ar
}

// ValidatorErrorToUser renders validation failures as one sentence per field.
func ValidatorErrorToUser(err validator.ValidationErrors) string {
	var errorMessages []string
	for _, err := range err {
		switch err.Tag() {
		case "required":
			errorMessages = append(errorMessages, fmt.Sprintf("%s is required", err.Field()))
		case "base64":
			errorMessages = append(errorMessages, fmt.Sprintf("%s is not valid base64", err.Field()))
		case "excludes":
			errorMessages = append(errorMessages, fmt.Sprintf("%s must not contain %q", err.Field(), err.Param()))
		case "numeric":
			errorMessages = append(errorMessages, fmt.Sprintf("%s must be numeric", err.Field()))
		default:
			errorMessages = append(errorMessages, fmt.Sprintf("validation failed on field %s", err.Field()))
		}
	}
	return strings.Join(errorMessages, ". ")
}
