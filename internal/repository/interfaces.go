package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/smilecare/clinic-api/internal/model"
)

// All repository interfaces in one file
type (
	// UserRepository handles doctor/staff account lookups
	UserRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		Create(ctx context.Context, user *model.User) error
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error)
		// DeleteCascade removes the patient's attachment rows, appointment
		// rows, and the patient row inside one transaction. It returns the
		// image paths of the removed attachments so the caller can clean up
		// files after the commit.
		DeleteCascade(ctx context.Context, patientID uuid.UUID) ([]string, error)
	}

	ServiceRepository interface {
		Create(ctx context.Context, service *model.Service) error
		Get(ctx context.Context, id uuid.UUID) (*model.Service, error)
		Update(ctx context.Context, service *model.Service) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.Service, error)
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, appointment *model.Appointment) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		// UpdateStatus sets the status unconditionally and reports rows
		// affected.
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) (int64, error)
		// UpdateStatusOwned sets the status only when the row is assigned to
		// doctorID. Zero rows affected means not found or not owned.
		UpdateStatusOwned(ctx context.Context, id, doctorID uuid.UUID, status model.AppointmentStatus) (int64, error)
		CountByService(ctx context.Context, serviceID uuid.UUID) (int64, error)
	}

	AttachmentRepository interface {
		Create(ctx context.Context, attachment *model.Attachment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Attachment, error)
		Delete(ctx context.Context, id uuid.UUID) error
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Attachment, error)
	}

	NotificationRepository interface {
		Create(ctx context.Context, notification *model.Notification) error
		ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Notification, error)
		MarkRead(ctx context.Context, id, userID uuid.UUID) error
	}
)
