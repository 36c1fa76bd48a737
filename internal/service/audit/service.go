// Package audit records every mutation with the acting user attached.
package audit

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smilecare/clinic-api/internal/model"
)

type Service struct {
	logger *zap.Logger
}

func NewService(logger *zap.Logger) *Service {
	return &Service{logger: logger}
}

// Log records a mutation in the audit trail.
func (s *Service) Log(actor model.Actor, action, entityType string, entityID uuid.UUID) {
	s.logger.Info("audit",
		zap.String("actor_id", actor.UserID.String()),
		zap.String("actor_role", actor.Role.String()),
		zap.String("action", action),
		zap.String("entity_type", entityType),
		zap.String("entity_id", entityID.String()),
	)
}
