package patient

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smilecare/clinic-api/internal/model"
	"github.com/smilecare/clinic-api/internal/service/audit"
	apperrors "github.com/smilecare/clinic-api/pkg/errors"
)

type fakePatientRepo struct {
	patients map[uuid.UUID]*model.Patient

	// cascadePaths is what DeleteCascade hands back after its transaction
	// commits; cascadeErr simulates a rollback.
	cascadePaths []string
	cascadeErr   error
	cascadeCalls int
}

func newFakePatientRepo(patients ...*model.Patient) *fakePatientRepo {
	r := &fakePatientRepo{patients: make(map[uuid.UUID]*model.Patient)}
	for _, p := range patients {
		r.patients[p.ID] = p
	}
	return r
}

func (r *fakePatientRepo) Create(ctx context.Context, p *model.Patient) error {
	r.patients[p.ID] = p
	return nil
}

func (r *fakePatientRepo) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	p, ok := r.patients[id]
	if !ok {
		return nil, apperrors.NotFound("patient", nil)
	}
	return p, nil
}

func (r *fakePatientRepo) Update(ctx context.Context, p *model.Patient) error {
	if _, ok := r.patients[p.ID]; !ok {
		return apperrors.NotFound("patient", nil)
	}
	r.patients[p.ID] = p
	return nil
}

func (r *fakePatientRepo) List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	var out []*model.Patient
	for _, p := range r.patients {
		out = append(out, p)
	}
	return out, nil
}

func (r *fakePatientRepo) DeleteCascade(ctx context.Context, patientID uuid.UUID) ([]string, error) {
	r.cascadeCalls++
	if r.cascadeErr != nil {
		return nil, r.cascadeErr
	}
	delete(r.patients, patientID)
	return r.cascadePaths, nil
}

type recordingStore struct {
	deleted   []string
	deleteErr error
}

func (s *recordingStore) Write(ctx context.Context, ext string, data []byte) (string, error) {
	return "", errors.New("not used")
}

func (s *recordingStore) Read(ctx context.Context, path string) ([]byte, error) {
	return nil, errors.New("not used")
}

func (s *recordingStore) Exists(ctx context.Context, path string) (bool, error) {
	return false, nil
}

func (s *recordingStore) Delete(ctx context.Context, path string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, path)
	return nil
}

type recordingInvalidator struct {
	invalidated []uuid.UUID
}

func (i *recordingInvalidator) InvalidatePatient(id uuid.UUID) {
	i.invalidated = append(i.invalidated, id)
}

type fixture struct {
	svc     *Service
	repo    *fakePatientRepo
	store   *recordingStore
	refs    *recordingInvalidator
	patient *model.Patient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	patient := &model.Patient{
		Base:  model.Base{ID: uuid.New()},
		Name:  "Jane Roe",
		Email: "jane@example.com",
		Phone: "555-0100",
	}
	repo := newFakePatientRepo(patient)
	store := &recordingStore{}
	refs := &recordingInvalidator{}
	logger := zerolog.Nop()

	return &fixture{
		svc:     NewService(repo, store, refs, audit.NewService(zap.NewNop()), nil, &logger),
		repo:    repo,
		store:   store,
		refs:    refs,
		patient: patient,
	}
}

func adminActor() model.Actor {
	return model.Actor{UserID: uuid.New(), Role: model.RoleAdmin}
}

func TestCreate(t *testing.T) {
	f := newFixture(t)

	p, err := f.svc.Create(context.Background(), adminActor(), &model.CreatePatientRequest{
		Name:  "John Doe",
		Email: "john@example.com",
		Phone: "555-0101",
	})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Contains(t, f.repo.patients, p.ID)
}

func TestUpdatePartial(t *testing.T) {
	f := newFixture(t)
	newPhone := "555-0199"

	p, err := f.svc.Update(context.Background(), adminActor(), f.patient.ID, &model.UpdatePatientRequest{
		Phone: &newPhone,
	})

	require.NoError(t, err)
	assert.Equal(t, "555-0199", p.Phone)
	assert.Equal(t, "Jane Roe", p.Name)
	assert.Contains(t, f.refs.invalidated, f.patient.ID)
}

func TestDeleteCascadeRequiresAdmin(t *testing.T) {
	f := newFixture(t)

	for _, role := range []model.Role{model.RoleDoctor, model.RoleReceptionist} {
		actor := model.Actor{UserID: uuid.New(), Role: role}
		err := f.svc.DeleteCascade(context.Background(), actor, f.patient.ID)
		require.Error(t, err, string(role))
		assert.True(t, apperrors.IsKind(err, apperrors.KindPermissionDenied))
	}
	assert.Zero(t, f.repo.cascadeCalls)
}

func TestDeleteCascade(t *testing.T) {
	f := newFixture(t)
	f.repo.cascadePaths = []string{"a.png", "b.jpg"}

	err := f.svc.DeleteCascade(context.Background(), adminActor(), f.patient.ID)

	require.NoError(t, err)
	assert.NotContains(t, f.repo.patients, f.patient.ID)
	// Files are removed only after the transaction reports the paths back.
	assert.ElementsMatch(t, []string{"a.png", "b.jpg"}, f.store.deleted)
	assert.Contains(t, f.refs.invalidated, f.patient.ID)
}

func TestDeleteCascadeRollbackLeavesFilesAlone(t *testing.T) {
	f := newFixture(t)
	f.repo.cascadePaths = []string{"a.png"}
	f.repo.cascadeErr = errors.New("deadlock detected")

	err := f.svc.DeleteCascade(context.Background(), adminActor(), f.patient.ID)

	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindPersistence))
	assert.Empty(t, f.store.deleted)
	assert.Contains(t, f.repo.patients, f.patient.ID)
	assert.Empty(t, f.refs.invalidated)
}

func TestDeleteCascadeFileFailureTolerated(t *testing.T) {
	f := newFixture(t)
	f.repo.cascadePaths = []string{"a.png"}
	f.store.deleteErr = errors.New("permission denied")

	// Committed row deletions win; the orphan file is only a warning.
	err := f.svc.DeleteCascade(context.Background(), adminActor(), f.patient.ID)

	require.NoError(t, err)
	assert.NotContains(t, f.repo.patients, f.patient.ID)
}

func TestDeleteCascadeSelfLinkedRecord(t *testing.T) {
	f := newFixture(t)
	actor := adminActor()
	f.patient.UserID = &actor.UserID

	err := f.svc.DeleteCascade(context.Background(), actor, f.patient.ID)

	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindPermissionDenied))
	assert.Contains(t, f.repo.patients, f.patient.ID)
	assert.Zero(t, f.repo.cascadeCalls)
}

func TestDeleteCascadeOtherLinkedRecordAllowed(t *testing.T) {
	f := newFixture(t)
	otherUser := uuid.New()
	f.patient.UserID = &otherUser

	err := f.svc.DeleteCascade(context.Background(), adminActor(), f.patient.ID)

	require.NoError(t, err)
	assert.NotContains(t, f.repo.patients, f.patient.ID)
}

func TestDeleteCascadeNotFound(t *testing.T) {
	f := newFixture(t)

	err := f.svc.DeleteCascade(context.Background(), adminActor(), uuid.New())

	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}
