// Package catalog manages the clinic's service offerings.
package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/smilecare/clinic-api/internal/model"
	"github.com/smilecare/clinic-api/internal/repository"
	"github.com/smilecare/clinic-api/internal/service/audit"
	apperrors "github.com/smilecare/clinic-api/pkg/errors"
)

type Service struct {
	repo         repository.ServiceRepository
	appointments repository.AppointmentRepository
	auditor      *audit.Service
}

func NewService(repo repository.ServiceRepository, appointments repository.AppointmentRepository, auditor *audit.Service) *Service {
	return &Service{
		repo:         repo,
		appointments: appointments,
		auditor:      auditor,
	}
}

func (s *Service) Create(ctx context.Context, actor model.Actor, req *model.CreateServiceRequest) (*model.Service, error) {
	if req.Price <= 0 {
		return nil, apperrors.Validation("price must be positive", nil)
	}

	service := &model.Service{
		Base:        model.Base{ID: uuid.New()},
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
	}

	if err := s.repo.Create(ctx, service); err != nil {
		return nil, apperrors.Persistence("failed to create service", err)
	}

	s.auditor.Log(actor, "create", "service", service.ID)
	return service, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	service, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.asPersistence("failed to get service", err)
	}
	return service, nil
}

func (s *Service) Update(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.UpdateServiceRequest) (*model.Service, error) {
	service, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.asPersistence("failed to get service", err)
	}

	if req.Name != nil {
		service.Name = *req.Name
	}
	if req.Description != nil {
		service.Description = *req.Description
	}
	if req.Price != nil {
		if *req.Price <= 0 {
			return nil, apperrors.Validation("price must be positive", nil)
		}
		service.Price = *req.Price
	}

	if err := s.repo.Update(ctx, service); err != nil {
		return nil, s.asPersistence("failed to update service", err)
	}

	s.auditor.Log(actor, "update", "service", id)
	return service, nil
}

// Delete refuses to remove a service any appointment still references.
func (s *Service) Delete(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	if !actor.IsAdmin() {
		return apperrors.PermissionDenied("only admins may delete services")
	}

	count, err := s.appointments.CountByService(ctx, id)
	if err != nil {
		return apperrors.Persistence("failed to check service references", err)
	}
	if count > 0 {
		return apperrors.Validation("service is referenced by existing appointments", nil)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.asPersistence("failed to delete service", err)
	}

	s.auditor.Log(actor, "delete", "service", id)
	return nil
}

func (s *Service) List(ctx context.Context) ([]*model.Service, error) {
	services, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperrors.Persistence("failed to list services", err)
	}
	return services, nil
}

func (s *Service) asPersistence(msg string, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Persistence(msg, err)
}
