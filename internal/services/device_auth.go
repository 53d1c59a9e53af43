package services

import (
	"context"
	"fmt"

	"godrive/internal/utils"
	"godrive/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DeviceAuthenticator verifies a device-held credential and resolves it to a
// driver identity. Going online always starts with this step; its failure is
// surfaced to the driver as guidance to sign in on the device again.
type DeviceAuthenticator interface {
	Authenticate(ctx context.Context, deviceProof string) (primitive.ObjectID, error)
}

type jwtDeviceAuthenticator struct {
	secret string
	logger *logger.Logger
}

func NewDeviceAuthenticator(secret string, log *logger.Logger) DeviceAuthenticator {
	return &jwtDeviceAuthenticator{secret: secret, logger: log}
}

func (a *jwtDeviceAuthenticator) Authenticate(ctx context.Context, deviceProof string) (primitive.ObjectID, error) {
	if deviceProof == "" {
		return primitive.NilObjectID, ErrDeviceAuthFailed
	}

	claims, err := utils.ValidateToken(deviceProof, a.secret)
	if err != nil {
		a.logger.WithError(err).Debug("Device credential validation failed")
		return primitive.NilObjectID, fmt.Errorf("%w: %v", ErrDeviceAuthFailed, err)
	}

	if claims.UserType != "driver" {
		return primitive.NilObjectID, ErrDeviceAuthFailed
	}

	return claims.UserID, nil
}
