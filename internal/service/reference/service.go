// Package reference provides read-only existence and identity lookups for
// the entities appointments refer to. Lookups are cached; the cache is
// invalidated when a patient is removed.
package reference

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/smilecare/clinic-api/internal/model"
	"github.com/smilecare/clinic-api/internal/repository"
	apperrors "github.com/smilecare/clinic-api/pkg/errors"
)

const (
	cacheTTL     = 5 * time.Minute
	cacheCleanup = 10 * time.Minute
)

type Service struct {
	users    repository.UserRepository
	patients repository.PatientRepository
	services repository.ServiceRepository
	cache    *cache.Cache
}

func NewService(users repository.UserRepository, patients repository.PatientRepository, services repository.ServiceRepository) *Service {
	return &Service{
		users:    users,
		patients: patients,
		services: services,
		cache:    cache.New(cacheTTL, cacheCleanup),
	}
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	key := "patient:" + id.String()
	if v, ok := s.cache.Get(key); ok {
		return v.(*model.Patient), nil
	}

	patient, err := s.patients.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, patient, cache.DefaultExpiration)
	return patient, nil
}

// GetDoctor resolves a user id and verifies the user actually holds the
// doctor role. A user of any other role is an invalid reference, not a
// missing one.
func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*model.User, error) {
	key := "doctor:" + id.String()
	if v, ok := s.cache.Get(key); ok {
		return v.(*model.User), nil
	}

	user, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role != model.RoleDoctor {
		return nil, apperrors.InvalidReference("doctor",
			fmt.Errorf("user %s has role %s", id, user.Role))
	}

	s.cache.Set(key, user, cache.DefaultExpiration)
	return user, nil
}

func (s *Service) GetService(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	key := "service:" + id.String()
	if v, ok := s.cache.Get(key); ok {
		return v.(*model.Service), nil
	}

	service, err := s.services.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, service, cache.DefaultExpiration)
	return service, nil
}

// InvalidatePatient drops a patient from the cache after deletion.
func (s *Service) InvalidatePatient(id uuid.UUID) {
	s.cache.Delete("patient:" + id.String())
}
