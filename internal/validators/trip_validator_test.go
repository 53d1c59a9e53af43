package validators

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateCancellationReason(t *testing.T) {
	if err := ValidateCancellationReason("rider no-show"); err != nil {
		t.Errorf("valid reason rejected: %v", err)
	}
	if err := ValidateCancellationReason(""); !errors.Is(err, ErrReasonRequired) {
		t.Errorf("empty reason: got %v, want required error", err)
	}
	if err := ValidateCancellationReason("   "); !errors.Is(err, ErrReasonRequired) {
		t.Errorf("whitespace reason: got %v, want required error", err)
	}
	if err := ValidateCancellationReason(strings.Repeat("x", 2000)); !errors.Is(err, ErrReasonTooLong) {
		t.Errorf("oversized reason: got %v, want too-long error", err)
	}
}

func TestValidatePosition(t *testing.T) {
	if err := ValidatePosition(40.7128, -74.0060); err != nil {
		t.Errorf("valid position rejected: %v", err)
	}
	if err := ValidatePosition(91, 0); !errors.Is(err, ErrInvalidCoordinates) {
		t.Errorf("invalid latitude: got %v", err)
	}
	if err := ValidatePosition(0, -181); !errors.Is(err, ErrInvalidCoordinates) {
		t.Errorf("invalid longitude: got %v", err)
	}
}
