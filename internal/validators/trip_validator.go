package validators

import (
	"errors"
	"strings"

	"godrive/internal/utils"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("object_id", validateObjectID)
	validate.RegisterValidation("coordinates", validateCoordinatePair)
}

var (
	ErrInvalidObjectID    = errors.New("invalid object ID format")
	ErrInvalidCoordinates = errors.New("invalid GPS coordinates")
	ErrReasonRequired     = errors.New("cancellation reason is required")
	ErrReasonTooLong      = errors.New("cancellation reason is too long")
)

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// ValidateStruct runs tag-based validation and flattens the result into a
// field -> message map suitable for the error response envelope.
func ValidateStruct(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	fieldErrors := make(map[string]string)
	var invalid validator.ValidationErrors
	if errors.As(err, &invalid) {
		for _, fieldError := range invalid {
			fieldErrors[strings.ToLower(fieldError.Field())] = fieldError.Tag()
		}
		return fieldErrors
	}

	fieldErrors["_"] = err.Error()
	return fieldErrors
}

// ValidateCancellationReason enforces the mandatory, bounded reason.
func ValidateCancellationReason(reason string) error {
	trimmed := strings.TrimSpace(reason)
	if trimmed == "" {
		return ErrReasonRequired
	}
	if len(trimmed) > utils.MaxMessageLength {
		return ErrReasonTooLong
	}
	return nil
}

// ValidatePosition checks a raw GPS fix before it reaches the coordinator.
func ValidatePosition(lat, lng float64) error {
	if !utils.IsValidCoordinates(lat, lng) {
		return ErrInvalidCoordinates
	}
	return nil
}

func validateObjectID(fl validator.FieldLevel) bool {
	_, err := primitive.ObjectIDFromHex(fl.Field().String())
	return err == nil
}

func validateCoordinatePair(fl validator.FieldLevel) bool {
	coords, ok := fl.Field().Interface().([]float64)
	if !ok || len(coords) != 2 {
		return false
	}
	return utils.IsValidCoordinates(coords[1], coords[0])
}
