package certificate

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InternHub-backend/internal/apperror"
	"InternHub-backend/internal/database"
	"InternHub-backend/internal/logger"
	"InternHub-backend/internal/model"
	"InternHub-backend/internal/render"
)

var db *database.DBinstanceStruct

func TestMain(m *testing.M) {
	teardown, testDB, err := database.GetTestDB()
	if err != nil {
		log.Fatalf("could not start postgres container: %v", err)
	}
	db = testDB

	code := m.Run()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if teardown != nil {
		if err := teardown(ctx); err != nil {
			log.Printf("could not teardown postgres container: %v", err)
		}
	}
	os.Exit(code)
}

type fakeRenderer struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (f *fakeRenderer) Render(_ context.Context, fields render.Fields) (string, error) {
	f.calls.Add(1)
	if f.fail.Load() {
		return "", errors.New("renderer unavailable")
	}
	return "https://files.example.com/certificates/" + fields.CertificateID + ".pdf", nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	count int
}

func (r *recordingNotifier) Notify(context.Context, uuid.UUID, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
}

func newService() (*Service, *fakeRenderer, *recordingNotifier) {
	r := &fakeRenderer{}
	n := &recordingNotifier{}
	return NewService(db.DB, r, n, "int", logger.Discard()), r, n
}

type fixture struct {
	internship model.Internship
	applicant  model.User
	tasks      []model.AssignedTask
}

// enrolled creates an approved applicant with the given task statuses.
func enrolled(t *testing.T, statuses ...model.TaskStatus) fixture {
	t.Helper()
	internship, err := database.CreateTestInternship(db, "Backend "+uuid.NewString()[:6], 5)
	require.NoError(t, err)
	applicant, err := database.CreateTestApplicant(db)
	require.NoError(t, err)
	require.NoError(t, db.Create(&model.Application{
		ApplicantID:      applicant.ID,
		InternshipID:     internship.ID,
		DurationWeeks:    8,
		CertificateName:  "Asha Verma",
		PaymentReference: "UTR-" + uuid.NewString(),
		PaymentProofRef:  "1",
		Status:           model.ApplicationStatusApproved,
		DateApplied:      time.Now(),
	}).Error)

	f := fixture{internship: internship, applicant: applicant}
	for i, st := range statuses {
		task := model.AssignedTask{
			InternshipID: internship.ID,
			ApplicantID:  applicant.ID,
			Title:        "Task " + string(rune('A'+i)),
			DueDate:      time.Now().Add(72 * time.Hour),
			Status:       st,
		}
		require.NoError(t, db.Create(&task).Error)
		f.tasks = append(f.tasks, task)
	}
	return f
}

func certificateCount(t *testing.T, f fixture) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&model.Certificate{}).
		Where("applicant_id = ? AND internship_id = ?", f.applicant.ID, f.internship.ID).
		Count(&n).Error)
	return n
}

func TestIssueCertificate_ThreeTaskScenario(t *testing.T) {
	s, _, notifier := newService()
	f := enrolled(t, model.TaskStatusCompleted, model.TaskStatusCompleted, model.TaskStatusAssigned)

	_, err := s.IssueCertificate(context.Background(), f.applicant.ID, f.internship.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotEligible))
	assert.Zero(t, certificateCount(t, f))

	e, err := s.Eligible(context.Background(), f.applicant.ID, f.internship.ID)
	require.NoError(t, err)
	assert.Equal(t, Eligibility{Eligible: false, TotalTasks: 3, CompletedTasks: 2, Approved: true}, e)

	require.NoError(t, db.Model(&f.tasks[2]).Update("status", model.TaskStatusCompleted).Error)

	cert, err := s.IssueCertificate(context.Background(), f.applicant.ID, f.internship.ID)
	require.NoError(t, err)
	assert.Regexp(t, `^INT-[0-9A-HJKMNP-TV-Z]{10}$`, cert.CertificateID)
	assert.Equal(t, "Asha Verma", cert.HolderName)
	assert.Equal(t, "8 Weeks", cert.DurationLabel)
	assert.Equal(t, f.internship.Title, cert.InternshipTitle)
	assert.Contains(t, cert.FileURL, cert.CertificateID)
	assert.Equal(t, 1, notifier.count)

	v := s.Verify(context.Background(), cert.CertificateID)
	assert.True(t, v.Valid)
	assert.Equal(t, cert.CertificateID, v.CertificateID)
	assert.Equal(t, "Asha Verma", v.HolderName)

	lower := s.Verify(context.Background(), " "+strings.ToLower(cert.CertificateID)+" ")
	assert.True(t, lower.Valid)
}

func TestIssueCertificate_Idempotent(t *testing.T) {
	s, renderer, notifier := newService()
	f := enrolled(t, model.TaskStatusCompleted)

	first, err := s.IssueCertificate(context.Background(), f.applicant.ID, f.internship.ID)
	require.NoError(t, err)
	second, err := s.IssueCertificate(context.Background(), f.applicant.ID, f.internship.ID)
	require.NoError(t, err)

	assert.Equal(t, first.CertificateID, second.CertificateID)
	assert.Equal(t, int64(1), certificateCount(t, f))
	assert.Equal(t, int32(1), renderer.calls.Load())
	assert.Equal(t, 1, notifier.count)
}

func TestIssueCertificate_Concurrent(t *testing.T) {
	s, _, _ := newService()
	f := enrolled(t, model.TaskStatusCompleted, model.TaskStatusCompleted)

	const callers = 8
	ids := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cert, err := s.IssueCertificate(context.Background(), f.applicant.ID, f.internship.ID)
			errs[i] = err
			if cert != nil {
				ids[i] = cert.CertificateID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.Equal(t, int64(1), certificateCount(t, f))
}

func TestIssueCertificate_NotEligible(t *testing.T) {
	s, renderer, _ := newService()

	noTasks := enrolled(t)
	_, err := s.IssueCertificate(context.Background(), noTasks.applicant.ID, noTasks.internship.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotEligible))

	inProgress := enrolled(t, model.TaskStatusCompleted, model.TaskStatusInProgress)
	_, err = s.IssueCertificate(context.Background(), inProgress.applicant.ID, inProgress.internship.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotEligible))

	rejected := enrolled(t, model.TaskStatusCompleted)
	require.NoError(t, db.Model(&model.Application{}).
		Where("applicant_id = ?", rejected.applicant.ID).
		Update("status", model.ApplicationStatusRejected).Error)
	_, err = s.IssueCertificate(context.Background(), rejected.applicant.ID, rejected.internship.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotEligible))

	assert.Zero(t, certificateCount(t, noTasks))
	assert.Zero(t, certificateCount(t, inProgress))
	assert.Zero(t, certificateCount(t, rejected))
	assert.Zero(t, renderer.calls.Load())
}

func TestIssueCertificate_RenderingFailure(t *testing.T) {
	s, renderer, notifier := newService()
	f := enrolled(t, model.TaskStatusCompleted)

	renderer.fail.Store(true)
	_, err := s.IssueCertificate(context.Background(), f.applicant.ID, f.internship.ID)
	assert.True(t, apperror.Is(err, apperror.KindRenderingFailed))
	assert.Zero(t, certificateCount(t, f))
	assert.Zero(t, notifier.count)

	renderer.fail.Store(false)
	cert, err := s.IssueCertificate(context.Background(), f.applicant.ID, f.internship.ID)
	require.NoError(t, err)
	assert.True(t, s.Verify(context.Background(), cert.CertificateID).Valid)
}

func TestIssueCertificate_IDCollisionRetries(t *testing.T) {
	s, _, _ := newService()
	taken := enrolled(t, model.TaskStatusCompleted)
	existing, err := s.IssueCertificate(context.Background(), taken.applicant.ID, taken.internship.ID)
	require.NoError(t, err)

	f := enrolled(t, model.TaskStatusCompleted)
	attempts := 0
	s.newID = func(prefix string) (string, error) {
		attempts++
		if attempts < 3 {
			return existing.CertificateID, nil
		}
		return generateID(prefix)
	}
	cert, err := s.IssueCertificate(context.Background(), f.applicant.ID, f.internship.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.NotEqual(t, existing.CertificateID, cert.CertificateID)

	exhausted := enrolled(t, model.TaskStatusCompleted)
	s.newID = func(string) (string, error) { return existing.CertificateID, nil }
	_, err = s.IssueCertificate(context.Background(), exhausted.applicant.ID, exhausted.internship.ID)
	assert.True(t, apperror.Is(err, apperror.KindInternal))
	assert.Zero(t, certificateCount(t, exhausted))
}

func TestVerify_Invalid(t *testing.T) {
	s, _, _ := newService()
	for _, id := range []string{"", "nonsense", "INT-", "INT-ILOU000000", "INT-0000000000", "'; DROP TABLE certificates; --"} {
		v := s.Verify(context.Background(), id)
		assert.Equal(t, Verification{}, v, id)
	}
}

func TestRevoke(t *testing.T) {
	s, _, notifier := newService()
	f := enrolled(t, model.TaskStatusCompleted)
	cert, err := s.IssueCertificate(context.Background(), f.applicant.ID, f.internship.ID)
	require.NoError(t, err)

	_, err = s.Revoke(context.Background(), cert.CertificateID, database.TestAdminUser.ID, " ")
	assert.True(t, apperror.Is(err, apperror.KindValidationFailed))

	_, err = s.Revoke(context.Background(), "INT-ZZZZZZZZZZ", database.TestAdminUser.ID, "fraud")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	rev, err := s.Revoke(context.Background(), cert.CertificateID, database.TestAdminUser.ID, "Payment charged back")
	require.NoError(t, err)
	assert.Equal(t, "Payment charged back", rev.Reason)

	again, err := s.Revoke(context.Background(), cert.CertificateID, database.TestAdminUser.ID, "Other reason")
	require.NoError(t, err)
	assert.Equal(t, "Payment charged back", again.Reason)

	assert.Equal(t, Verification{}, s.Verify(context.Background(), cert.CertificateID))
	// issue + first revocation
	assert.Equal(t, 2, notifier.count)

	mine, err := s.ListMine(context.Background(), f.applicant.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, cert.CertificateID, mine[0].CertificateID)
}

func TestGenerateID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		id, err := generateID("INT")
		require.NoError(t, err)
		assert.Regexp(t, idPattern, id)
		seen[id] = true
	}
	assert.Len(t, seen, 200)
}

func TestGenerateID_PrefixMustVerify(t *testing.T) {
	id, err := generateID("IH2025")
	require.NoError(t, err)
	assert.Regexp(t, idPattern, id)

	for _, prefix := range []string{"", "INT-HUB", "INT_HUB", "int"} {
		_, err := generateID(prefix)
		assert.Error(t, err, prefix)
	}
}
