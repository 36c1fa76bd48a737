package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/smilecare/clinic-api/internal/model"
	"github.com/smilecare/clinic-api/internal/repository"
	apperrors "github.com/smilecare/clinic-api/pkg/errors"
)

type attachmentRepository struct {
	db *sqlx.DB
}

func NewAttachmentRepository(db *sqlx.DB) repository.AttachmentRepository {
	return &attachmentRepository{db: db}
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *model.Attachment) error {
	query := `
		INSERT INTO attachments (id, patient_id, description, image_url, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	attachment.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		attachment.ID,
		attachment.PatientID,
		attachment.Description,
		attachment.ImageURL,
		attachment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create attachment: %w", err)
	}
	return nil
}

func (r *attachmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Attachment, error) {
	query := `SELECT * FROM attachments WHERE id = $1`
	var attachment model.Attachment
	err := r.db.GetContext(ctx, &attachment, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("attachment", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}
	return &attachment, nil
}

func (r *attachmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM attachments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("attachment", nil)
	}
	return nil
}

func (r *attachmentRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Attachment, error) {
	query := `
		SELECT * FROM attachments
		WHERE patient_id = $1
		ORDER BY created_at DESC
	`
	var attachments []*model.Attachment
	err := r.db.SelectContext(ctx, &attachments, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	return attachments, nil
}
