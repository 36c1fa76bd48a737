// Package patient provides patient CRUD and the cascading delete that
// removes a patient together with every dependent record.
package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/smilecare/clinic-api/internal/model"
	"github.com/smilecare/clinic-api/internal/repository"
	"github.com/smilecare/clinic-api/internal/service/audit"
	apperrors "github.com/smilecare/clinic-api/pkg/errors"
	"github.com/smilecare/clinic-api/pkg/filestore"
	"github.com/smilecare/clinic-api/pkg/metrics"
)

// Invalidator drops a deleted patient from the reference cache.
type Invalidator interface {
	InvalidatePatient(id uuid.UUID)
}

type Service struct {
	repo    repository.PatientRepository
	files   filestore.Store
	refs    Invalidator
	auditor *audit.Service
	metrics *metrics.Metrics
	logger  *zerolog.Logger
}

func NewService(repo repository.PatientRepository, files filestore.Store, refs Invalidator, auditor *audit.Service, m *metrics.Metrics, logger *zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		files:   files,
		refs:    refs,
		auditor: auditor,
		metrics: m,
		logger:  logger,
	}
}

func (s *Service) Create(ctx context.Context, actor model.Actor, req *model.CreatePatientRequest) (*model.Patient, error) {
	patient := &model.Patient{
		Base:    model.Base{ID: uuid.New()},
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	}

	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, apperrors.Persistence("failed to create patient", err)
	}

	s.auditor.Log(actor, "create", "patient", patient.ID)
	return patient, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.asPersistence("failed to get patient", err)
	}
	return patient, nil
}

func (s *Service) Update(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error) {
	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.asPersistence("failed to get patient", err)
	}

	if req.Name != nil {
		patient.Name = *req.Name
	}
	if req.Email != nil {
		patient.Email = *req.Email
	}
	if req.Phone != nil {
		patient.Phone = *req.Phone
	}
	if req.Address != nil {
		patient.Address = *req.Address
	}

	if err := s.repo.Update(ctx, patient); err != nil {
		return nil, s.asPersistence("failed to update patient", err)
	}

	s.refs.InvalidatePatient(id)
	s.auditor.Log(actor, "update", "patient", id)
	return patient, nil
}

func (s *Service) List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	patients, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, apperrors.Persistence("failed to list patients", err)
	}
	return patients, nil
}

// DeleteCascade removes a patient and every dependent record as one unit:
// attachment rows, appointment rows, and the patient row go in a single
// transaction, and only after that commit are the backing image files
// removed. A failed file removal is a warning, never a failure: the
// database must not end up referencing a deleted file, but an orphaned file
// on disk is acceptable.
func (s *Service) DeleteCascade(ctx context.Context, actor model.Actor, patientID uuid.UUID) error {
	if !actor.IsAdmin() {
		return apperrors.PermissionDenied("only admins may delete patients")
	}

	patient, err := s.repo.Get(ctx, patientID)
	if err != nil {
		return s.asPersistence("failed to get patient", err)
	}

	// Self-service accounts cannot be deleted through this path.
	if patient.UserID != nil && *patient.UserID == actor.UserID {
		s.countCascade("denied")
		return apperrors.PermissionDenied("cannot delete your own linked patient record")
	}

	imagePaths, err := s.repo.DeleteCascade(ctx, patientID)
	if err != nil {
		s.countCascade("failed")
		return s.asPersistence("failed to delete patient", err)
	}

	// The database state is committed; file cleanup is best-effort.
	for _, path := range imagePaths {
		if err := s.files.Delete(ctx, path); err != nil {
			s.logger.Warn().Err(err).Str("path", path).Str("patient_id", patientID.String()).
				Msg("orphaned file left behind after cascade")
			if s.metrics != nil {
				s.metrics.OrphanedFileCleanup.Inc()
			}
		}
	}

	s.refs.InvalidatePatient(patientID)
	s.auditor.Log(actor, "cascade_delete", "patient", patientID)
	s.countCascade("ok")
	return nil
}

func (s *Service) asPersistence(msg string, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Persistence(msg, err)
}

func (s *Service) countCascade(outcome string) {
	if s.metrics != nil {
		s.metrics.CascadeDeletes.WithLabelValues(outcome).Inc()
	}
}
