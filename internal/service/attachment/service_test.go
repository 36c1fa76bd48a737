package attachment

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smilecare/clinic-api/internal/model"
	"github.com/smilecare/clinic-api/internal/service/audit"
	apperrors "github.com/smilecare/clinic-api/pkg/errors"
	"github.com/smilecare/clinic-api/pkg/filestore"
)

// pngBytes is a minimal valid PNG header; enough for content sniffing.
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeAttachmentRepo struct {
	attachments map[uuid.UUID]*model.Attachment
	createErr   error
	deleteErr   error
}

func newFakeAttachmentRepo() *fakeAttachmentRepo {
	return &fakeAttachmentRepo{attachments: make(map[uuid.UUID]*model.Attachment)}
}

func (r *fakeAttachmentRepo) Create(ctx context.Context, att *model.Attachment) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.attachments[att.ID] = att
	return nil
}

func (r *fakeAttachmentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Attachment, error) {
	att, ok := r.attachments[id]
	if !ok {
		return nil, apperrors.NotFound("attachment", nil)
	}
	return att, nil
}

func (r *fakeAttachmentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.attachments[id]; !ok {
		return apperrors.NotFound("attachment", nil)
	}
	delete(r.attachments, id)
	return nil
}

func (r *fakeAttachmentRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Attachment, error) {
	var out []*model.Attachment
	for _, att := range r.attachments {
		if att.PatientID == patientID {
			out = append(out, att)
		}
	}
	return out, nil
}

type fakePatients struct {
	known map[uuid.UUID]bool
}

func (f *fakePatients) GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	if f.known[id] {
		return &model.Patient{Base: model.Base{ID: id}}, nil
	}
	return nil, apperrors.NotFound("patient", nil)
}

// memStore keeps written files in a map so tests can observe exactly which
// files exist after each operation.
type memStore struct {
	files     map[string][]byte
	writeErr  error
	deleteErr error
	writes    int
}

func newMemStore() *memStore {
	return &memStore{files: make(map[string][]byte)}
}

func (s *memStore) Write(ctx context.Context, ext string, data []byte) (string, error) {
	if s.writeErr != nil {
		return "", s.writeErr
	}
	s.writes++
	path := fmt.Sprintf("file-%d%s", s.writes, ext)
	s.files[path] = data
	return path, nil
}

func (s *memStore) Read(ctx context.Context, path string) ([]byte, error) {
	data, ok := s.files[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	return data, nil
}

func (s *memStore) Exists(ctx context.Context, path string) (bool, error) {
	_, ok := s.files[path]
	return ok, nil
}

func (s *memStore) Delete(ctx context.Context, path string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.files, path)
	return nil
}

type fixture struct {
	svc       *Service
	repo      *fakeAttachmentRepo
	store     *memStore
	patientID uuid.UUID
	actor     model.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	patientID := uuid.New()
	repo := newFakeAttachmentRepo()
	store := newMemStore()
	logger := zerolog.Nop()

	svc := NewService(
		repo,
		&fakePatients{known: map[uuid.UUID]bool{patientID: true}},
		store,
		audit.NewService(zap.NewNop()),
		nil,
		&logger,
	)

	return &fixture{
		svc:       svc,
		repo:      repo,
		store:     store,
		patientID: patientID,
		actor:     model.Actor{UserID: uuid.New(), Role: model.RoleAdmin},
	}
}

func (f *fixture) upload(t *testing.T) *model.Attachment {
	t.Helper()
	att, err := f.svc.Upload(context.Background(), f.actor, f.patientID, "pre-op teeth graph", pngBytes, "scan.png")
	require.NoError(t, err)
	return att
}

func TestUpload(t *testing.T) {
	f := newFixture(t)

	att := f.upload(t)

	assert.Equal(t, f.patientID, att.PatientID)
	assert.Equal(t, "pre-op teeth graph", att.Description)
	require.Contains(t, f.store.files, att.ImageURL)
	assert.Equal(t, pngBytes, f.store.files[att.ImageURL])
	assert.Contains(t, f.repo.attachments, att.ID)
}

func TestUploadEmptyDescription(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Upload(context.Background(), f.actor, f.patientID, "", pngBytes, "scan.png")

	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	assert.Empty(t, f.store.files)
}

func TestUploadUnknownPatient(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Upload(context.Background(), f.actor, uuid.New(), "graph", pngBytes, "scan.png")

	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidReference))
	assert.Empty(t, f.store.files)
}

func TestUploadRejectsNonImage(t *testing.T) {
	f := newFixture(t)

	// A rejected payload must never reach storage.
	_, err := f.svc.Upload(context.Background(), f.actor, f.patientID, "graph", []byte("%PDF-1.4 not an image"), "scan.png")

	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	assert.ErrorIs(t, err, filestore.ErrInvalidContentType)
	assert.Empty(t, f.store.files)
	assert.Empty(t, f.repo.attachments)
}

func TestUploadRejectsExtensionMismatch(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Upload(context.Background(), f.actor, f.patientID, "graph", pngBytes, "scan.jpg")

	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	assert.ErrorIs(t, err, filestore.ErrExtensionMismatch)
	assert.Empty(t, f.store.files)
}

func TestUploadStorageFailure(t *testing.T) {
	f := newFixture(t)
	f.store.writeErr = errors.New("disk full")

	_, err := f.svc.Upload(context.Background(), f.actor, f.patientID, "graph", pngBytes, "scan.png")

	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindStorage))
	assert.Empty(t, f.repo.attachments)
}

func TestUploadRowFailureRemovesFile(t *testing.T) {
	f := newFixture(t)
	f.repo.createErr = errors.New("constraint violation")

	_, err := f.svc.Upload(context.Background(), f.actor, f.patientID, "graph", pngBytes, "scan.png")

	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindPersistence))
	// The compensating delete must leave no unreferenced file behind.
	assert.Empty(t, f.store.files)
}

func TestUploadRowFailureCompensationFailureStillErrors(t *testing.T) {
	f := newFixture(t)
	f.repo.createErr = errors.New("constraint violation")
	f.store.deleteErr = errors.New("permission denied")

	_, err := f.svc.Upload(context.Background(), f.actor, f.patientID, "graph", pngBytes, "scan.png")

	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindPersistence))
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	att := f.upload(t)

	err := f.svc.Delete(context.Background(), f.actor, att.ID, f.patientID)

	require.NoError(t, err)
	assert.Empty(t, f.repo.attachments)
	assert.Empty(t, f.store.files)
}

func TestDeleteWrongPatient(t *testing.T) {
	f := newFixture(t)
	att := f.upload(t)

	// A mismatched owner reads the same as a missing attachment.
	err := f.svc.Delete(context.Background(), f.actor, att.ID, uuid.New())

	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
	assert.Contains(t, f.repo.attachments, att.ID)
	assert.Contains(t, f.store.files, att.ImageURL)
}

func TestDeleteFileFailureTolerated(t *testing.T) {
	f := newFixture(t)
	att := f.upload(t)
	f.store.deleteErr = errors.New("permission denied")

	// The row is the authoritative record; an orphan file is a warning.
	err := f.svc.Delete(context.Background(), f.actor, att.ID, f.patientID)

	require.NoError(t, err)
	assert.Empty(t, f.repo.attachments)
}

func TestDeleteNotFound(t *testing.T) {
	f := newFixture(t)

	err := f.svc.Delete(context.Background(), f.actor, uuid.New(), f.patientID)

	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestList(t *testing.T) {
	f := newFixture(t)
	first := f.upload(t)
	second := f.upload(t)

	attachments, err := f.svc.List(context.Background(), f.patientID)

	require.NoError(t, err)
	assert.Len(t, attachments, 2)
	ids := []uuid.UUID{attachments[0].ID, attachments[1].ID}
	assert.Contains(t, ids, first.ID)
	assert.Contains(t, ids, second.ID)
}

func TestOpen(t *testing.T) {
	f := newFixture(t)
	att := f.upload(t)

	got, data, err := f.svc.Open(context.Background(), att.ID, f.patientID)

	require.NoError(t, err)
	assert.Equal(t, att.ID, got.ID)
	assert.Equal(t, pngBytes, data)
}

func TestOpenWrongPatient(t *testing.T) {
	f := newFixture(t)
	att := f.upload(t)

	_, _, err := f.svc.Open(context.Background(), att.ID, uuid.New())

	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}
