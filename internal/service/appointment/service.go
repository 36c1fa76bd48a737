// Package appointment owns the appointment lifecycle: booking against
// validated patient/doctor/service references and the
// pending -> {completed, canceled} status machine.
package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/smilecare/clinic-api/internal/model"
	"github.com/smilecare/clinic-api/internal/repository"
	"github.com/smilecare/clinic-api/internal/service/audit"
	"github.com/smilecare/clinic-api/internal/service/notification"
	apperrors "github.com/smilecare/clinic-api/pkg/errors"
	"github.com/smilecare/clinic-api/pkg/metrics"
)

// ReferenceStore resolves the foreign entities an appointment points at.
type ReferenceStore interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetService(ctx context.Context, id uuid.UUID) (*model.Service, error)
}

type Service struct {
	repo     repository.AppointmentRepository
	refs     ReferenceStore
	notifSvc notification.Service
	auditor  *audit.Service
	metrics  *metrics.Metrics
	logger   *zerolog.Logger
}

func NewService(repo repository.AppointmentRepository, refs ReferenceStore, notifSvc notification.Service, auditor *audit.Service, m *metrics.Metrics, logger *zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		refs:     refs,
		notifSvc: notifSvc,
		auditor:  auditor,
		metrics:  m,
		logger:   logger,
	}
}

// Book creates a pending appointment after resolving all three references.
// Past dates are accepted here; rejecting them for self-service bookings is
// the caller's contract.
func (s *Service) Book(ctx context.Context, actor model.Actor, req *model.BookAppointmentRequest) (*model.Appointment, error) {
	if err := s.validateReferences(ctx, req.PatientID, req.DoctorID, req.ServiceID); err != nil {
		return nil, err
	}

	apt := &model.Appointment{
		Base:            model.Base{ID: uuid.New()},
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		ServiceID:       req.ServiceID,
		AppointmentDate: req.AppointmentDate.UTC(),
		Status:          model.AppointmentStatusPending,
		Notes:           req.Notes,
	}

	if err := s.repo.Create(ctx, apt); err != nil {
		return nil, apperrors.Persistence("failed to book appointment", err)
	}

	s.auditor.Log(actor, "book", "appointment", apt.ID)
	if s.metrics != nil {
		s.metrics.AppointmentsBooked.Inc()
	}

	return apt, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.asPersistence("failed to get appointment", err)
	}
	return apt, nil
}

func (s *Service) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	appointments, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, apperrors.Persistence("failed to list appointments", err)
	}
	return appointments, nil
}

// UpdateStatus applies a status transition under the role rules: a doctor
// may only touch their own appointments, completed and canceled are
// terminal, and completion of a not-yet-occurred appointment is rejected
// for every role. Re-submitting the current status is reported as
// AlreadyInState with the unchanged row.
func (s *Service) UpdateStatus(ctx context.Context, actor model.Actor, id uuid.UUID, newStatus model.AppointmentStatus) (*model.Appointment, error) {
	if !newStatus.Valid() {
		return nil, apperrors.Validation(fmt.Sprintf("unknown status %q", newStatus), nil)
	}

	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.asPersistence("failed to get appointment", err)
	}

	switch actor.Role {
	case model.RoleDoctor:
		if apt.DoctorID != actor.UserID {
			s.countTransition(newStatus, "denied")
			return nil, apperrors.PermissionDenied("appointment is assigned to another doctor")
		}
	case model.RoleAdmin, model.RoleReceptionist:
		// full status access
	default:
		return nil, apperrors.PermissionDenied("")
	}

	if apt.Status == newStatus {
		return apt, apperrors.AlreadyInState(string(apt.Status))
	}
	if apt.Status.Terminal() {
		s.countTransition(newStatus, "invalid")
		return nil, apperrors.InvalidTransition(
			fmt.Sprintf("appointment is already %s", apt.Status))
	}
	if newStatus == model.AppointmentStatusCompleted && apt.AppointmentDate.After(time.Now()) {
		s.countTransition(newStatus, "invalid")
		return nil, apperrors.InvalidTransition("cannot complete an appointment that has not occurred yet")
	}

	// Conditional update so a concurrent reassignment cannot slip through
	// between the read and the write.
	var rows int64
	if actor.Role == model.RoleDoctor {
		rows, err = s.repo.UpdateStatusOwned(ctx, id, actor.UserID, newStatus)
	} else {
		rows, err = s.repo.UpdateStatus(ctx, id, newStatus)
	}
	if err != nil {
		return nil, apperrors.Persistence("failed to update status", err)
	}
	if rows == 0 {
		return nil, apperrors.NotFound("appointment", nil)
	}

	apt.Status = newStatus
	s.auditor.Log(actor, "update_status", "appointment", id)
	s.countTransition(newStatus, "ok")
	s.notifyStatusChange(ctx, actor, apt)

	return apt, nil
}

// Edit replaces the mutable field set. Admin only; every reference is
// re-validated exactly as at booking time.
func (s *Service) Edit(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.EditAppointmentRequest) (*model.Appointment, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.PermissionDenied("only admins may edit appointments")
	}
	if !req.Status.Valid() {
		return nil, apperrors.Validation(fmt.Sprintf("unknown status %q", req.Status), nil)
	}

	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.asPersistence("failed to get appointment", err)
	}

	if err := s.validateReferences(ctx, apt.PatientID, req.DoctorID, req.ServiceID); err != nil {
		return nil, err
	}

	apt.DoctorID = req.DoctorID
	apt.ServiceID = req.ServiceID
	apt.AppointmentDate = req.AppointmentDate.UTC()
	apt.Status = req.Status
	apt.Notes = req.Notes

	if err := s.repo.Update(ctx, apt); err != nil {
		return nil, s.asPersistence("failed to update appointment", err)
	}

	s.auditor.Log(actor, "edit", "appointment", id)
	return apt, nil
}

// Delete hard-deletes an appointment. Admin only; an appointment owns no
// dependent records.
func (s *Service) Delete(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	if !actor.IsAdmin() {
		return apperrors.PermissionDenied("only admins may delete appointments")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.asPersistence("failed to delete appointment", err)
	}

	s.auditor.Log(actor, "delete", "appointment", id)
	return nil
}

func (s *Service) validateReferences(ctx context.Context, patientID, doctorID, serviceID uuid.UUID) error {
	if _, err := s.refs.GetPatient(ctx, patientID); err != nil {
		return asReferenceError("patient", err)
	}
	if _, err := s.refs.GetDoctor(ctx, doctorID); err != nil {
		return asReferenceError("doctor", err)
	}
	if _, err := s.refs.GetService(ctx, serviceID); err != nil {
		return asReferenceError("service", err)
	}
	return nil
}

// asReferenceError folds a missing lookup into InvalidReference; role
// violations already arrive as InvalidReference from the reference store.
func asReferenceError(resource string, err error) error {
	if apperrors.IsKind(err, apperrors.KindNotFound) || apperrors.IsKind(err, apperrors.KindInvalidReference) {
		return apperrors.InvalidReference(resource, err)
	}
	return apperrors.Persistence(fmt.Sprintf("failed to resolve %s", resource), err)
}

func (s *Service) asPersistence(msg string, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Persistence(msg, err)
}

// notifyStatusChange tells the assigned doctor unless they made the change
// themselves. Emission is best-effort.
func (s *Service) notifyStatusChange(ctx context.Context, actor model.Actor, apt *model.Appointment) {
	if s.notifSvc == nil || apt.DoctorID == actor.UserID {
		return
	}
	msg := fmt.Sprintf("Appointment on %s is now %s",
		apt.AppointmentDate.Format("2006-01-02 15:04"), apt.Status)
	link := "/appointments/" + apt.ID.String()
	if err := s.notifSvc.Notify(ctx, apt.DoctorID, msg, link); err != nil {
		s.logger.Warn().Err(err).Str("appointment_id", apt.ID.String()).Msg("status notification failed")
	}
}

func (s *Service) countTransition(status model.AppointmentStatus, outcome string) {
	if s.metrics != nil {
		s.metrics.StatusTransitions.WithLabelValues(string(status), outcome).Inc()
	}
}
