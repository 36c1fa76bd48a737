// Package attachment manages teeth-graph image records. A metadata row and
// its backing file are created and deleted as a pair: the file is written
// before the row on upload and removed after the row on delete, so the
// database never references a file that does not exist.
package attachment

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

// PatientChecker verifies the owning patient exists before a file touches
// storage.
type PatientChecker interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error)
}

type Service struct {
	repo     repository.AttachmentRepository
	patients PatientChecker
	files    filestore.Store
	auditor  *audit.Service
	metrics  *metrics.Metrics
	logger   *zerolog.Logger
}

func NewService(repo repository.AttachmentRepository, patients PatientChecker, files filestore.Store, auditor *audit.Service, m *metrics.Metrics, logger *zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		patients: patients,
		files:    files,
		auditor:  auditor,
		metrics:  m,
		logger:   logger,
	}
}

// Upload validates the image, writes the file, then inserts the row. If the
// insert fails the file is removed again; an orphaned row is never created.
func (s *Service) Upload(ctx context.Context, actor model.Actor, patientID uuid.UUID, description string, data []byte, filename string) (*model.Attachment, error) {
	if description == "" {
		s.countUpload("rejected")
		return nil, apperrors.Validation("description is required", nil)
	}

	if _, err := s.patients.GetPatient(ctx, patientID); err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return nil, apperrors.InvalidReference("patient", err)
		}
		return nil, apperrors.Persistence("failed to resolve patient", err)
	}

	ext, err := filestore.ValidateImage(data, filename)
	if err != nil {
		s.countUpload("rejected")
		return nil, apperrors.Validation("invalid image", err)
	}

	path, err := s.files.Write(ctx, ext, data)
	if err != nil {
		s.countUpload("storage_error")
		return nil, apperrors.Storage("failed to store image", err)
	}

	att := &model.Attachment{
		Base:        model.Base{ID: uuid.New()},
		PatientID:   patientID,
		Description: description,
		ImageURL:    path,
	}

	if err := s.repo.Create(ctx, att); err != nil {
		// Compensate: take the just-written file back out so the storage
		// directory holds no unreferenced image.
		if delErr := s.files.Delete(ctx, path); delErr != nil {
			s.logger.Warn().Err(delErr).Str("path", path).Msg("failed to remove file after insert failure")
		}
		s.countUpload("persistence_error")
		return nil, apperrors.Persistence("failed to create attachment", err)
	}

	s.auditor.Log(actor, "upload", "attachment", att.ID)
	s.countUpload("ok")
	if s.metrics != nil {
		s.metrics.AttachmentBytesTotal.Add(float64(len(data)))
	}

	return att, nil
}

// Delete removes an attachment owned by patientID. The row goes first; the
// file deletion runs after and a failure there only produces a warning,
// since the authoritative record is already gone.
func (s *Service) Delete(ctx context.Context, actor model.Actor, attachmentID, patientID uuid.UUID) error {
	att, err := s.repo.Get(ctx, attachmentID)
	if err != nil {
		return s.asPersistence("failed to get attachment", err)
	}

	// Ownership check keeps one patient's ids useless against another's
	// records; respond as if the attachment does not exist.
	if att.PatientID != patientID {
		return apperrors.NotFound("attachment", nil)
	}

	if err := s.repo.Delete(ctx, attachmentID); err != nil {
		return s.asPersistence("failed to delete attachment", err)
	}

	if err := s.files.Delete(ctx, att.ImageURL); err != nil {
		s.logger.Warn().Err(err).Str("path", att.ImageURL).Msg("orphaned file left behind")
		if s.metrics != nil {
			s.metrics.OrphanedFileCleanup.Inc()
		}
	}

	s.auditor.Log(actor, "delete", "attachment", attachmentID)
	return nil
}

// List returns a patient's attachments, most recent first.
func (s *Service) List(ctx context.Context, patientID uuid.UUID) ([]*model.Attachment, error) {
	attachments, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, apperrors.Persistence("failed to list attachments", err)
	}
	return attachments, nil
}

// Open returns the stored image bytes for download handlers.
func (s *Service) Open(ctx context.Context, attachmentID, patientID uuid.UUID) (*model.Attachment, []byte, error) {
	att, err := s.repo.Get(ctx, attachmentID)
	if err != nil {
		return nil, nil, s.asPersistence("failed to get attachment", err)
	}
	if att.PatientID != patientID {
		return nil, nil, apperrors.NotFound("attachment", nil)
	}

	data, err := s.files.Read(ctx, att.ImageURL)
	if err != nil {
		return nil, nil, apperrors.Storage("failed to read image", err)
	}
	return att, data, nil
}

func (s *Service) asPersistence(msg string, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Persistence(msg, err)
}

func (s *Service) countUpload(outcome string) {
	if s.metrics != nil {
		s.metrics.AttachmentUploads.WithLabelValues(outcome).Inc()
	}
}
