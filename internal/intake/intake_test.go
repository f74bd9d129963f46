package intake

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InternHub-backend/internal/apperror"
	"InternHub-backend/internal/blob"
	"InternHub-backend/internal/capacity"
	"InternHub-backend/internal/catalog"
	"InternHub-backend/internal/database"
	"InternHub-backend/internal/logger"
	"InternHub-backend/internal/model"
)

var (
	db      *database.DBinstanceStruct
	blobs   *blob.Store
	service *Service
)

func TestMain(m *testing.M) {
	teardown, testDB, err := database.GetTestDB()
	if err != nil {
		log.Fatalf("could not start postgres container: %v", err)
	}
	db = testDB
	lg := logger.Discard()
	blobs = blob.NewStore(db.DB, nil, "http://localhost:8080", lg)
	service = NewService(db.DB, catalog.NewCatalog(db.DB, lg), capacity.NewLedger(db.DB, lg), blobs, []int{4, 8, 12, 16}, lg)

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

func uploadProof(t *testing.T, owner uuid.UUID) string {
	t.Helper()
	ref, err := blobs.Store(context.Background(), []byte("screenshot"), ".png", blob.CategoryPaymentProof, &owner)
	require.NoError(t, err)
	return ref
}

func validInput(t *testing.T, applicant uuid.UUID, internshipID uint, reference string) SubmitInput {
	return SubmitInput{
		ApplicantID:      applicant,
		InternshipID:     internshipID,
		DurationWeeks:    8,
		CertificateName:  "Ada Lovelace",
		PaymentReference: reference,
		PaymentProofRef:  uploadProof(t, applicant),
	}
}

func TestSubmitApplication_Success(t *testing.T) {
	internship, err := database.CreateTestInternship(db, "Intake success", 2)
	require.NoError(t, err)

	app, err := service.SubmitApplication(context.Background(), validInput(t, database.TestApplicant1.ID, internship.ID, "UTR-SUCCESS"))
	require.NoError(t, err)

	assert.Equal(t, model.ApplicationStatusPending, app.Status)
	assert.True(t, internship.RegistrationFee.Equal(app.Amount))
	assert.False(t, app.DateApplied.IsZero())
	assert.Nil(t, app.RejectionReason)

	var reloaded model.Internship
	require.NoError(t, db.First(&reloaded, internship.ID).Error)
	assert.Equal(t, 0, reloaded.CurrentRegistrations, "submission must not consume a seat")

	// a later fee change does not alter the captured amount
	require.NoError(t, db.Model(&reloaded).Update("registration_fee", decimal.NewFromInt(9999)).Error)
	var stored model.Application
	require.NoError(t, db.First(&stored, app.ID).Error)
	assert.True(t, internship.RegistrationFee.Equal(stored.Amount))
}

func TestSubmitApplication_PreconditionOrder(t *testing.T) {
	full, err := database.CreateTestInternship(db, "Intake full", 1)
	require.NoError(t, err)
	require.NoError(t, db.Model(&full).Update("current_registrations", 1).Error)

	closed, err := database.CreateTestInternship(db, "Intake closed", 5)
	require.NoError(t, err)
	require.NoError(t, db.Model(&closed).Update("is_accepting", false).Error)

	open, err := database.CreateTestInternship(db, "Intake open", 5)
	require.NoError(t, err)

	applicant := database.TestApplicant1.ID
	proof := uploadProof(t, applicant)

	cases := []struct {
		name string
		in   SubmitInput
		kind apperror.Kind
	}{
		{"missing internship", SubmitInput{ApplicantID: applicant, InternshipID: 999999}, apperror.KindCapacityExhausted},
		{"full internship checked before everything else", SubmitInput{ApplicantID: applicant, InternshipID: full.ID, DurationWeeks: 3}, apperror.KindCapacityExhausted},
		{"closed internship", SubmitInput{ApplicantID: applicant, InternshipID: closed.ID, DurationWeeks: 8, CertificateName: "A", PaymentReference: "R", PaymentProofRef: proof}, apperror.KindCapacityExhausted},
		{"duration checked before fields", SubmitInput{ApplicantID: applicant, InternshipID: open.ID, DurationWeeks: 5}, apperror.KindInvalidDuration},
		{"empty certificate name", SubmitInput{ApplicantID: applicant, InternshipID: open.ID, DurationWeeks: 4, CertificateName: "  ", PaymentReference: "R1", PaymentProofRef: proof}, apperror.KindValidationFailed},
		{"empty payment reference", SubmitInput{ApplicantID: applicant, InternshipID: open.ID, DurationWeeks: 4, CertificateName: "A", PaymentProofRef: proof}, apperror.KindValidationFailed},
		{"unknown proof", SubmitInput{ApplicantID: applicant, InternshipID: open.ID, DurationWeeks: 4, CertificateName: "A", PaymentReference: "R2", PaymentProofRef: "424242"}, apperror.KindValidationFailed},
		{"proof uploaded by someone else", SubmitInput{ApplicantID: applicant, InternshipID: open.ID, DurationWeeks: 4, CertificateName: "A", PaymentReference: "R3", PaymentProofRef: uploadProof(t, database.TestApplicant2.ID)}, apperror.KindValidationFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.SubmitApplication(context.Background(), tc.in)
			require.Error(t, err)
			assert.Equal(t, tc.kind, apperror.KindOf(err))
		})
	}
}

func TestSubmitApplication_ForeignProofLooksMissing(t *testing.T) {
	internship, err := database.CreateTestInternship(db, "Intake foreign proof", 2)
	require.NoError(t, err)
	foreign := uploadProof(t, database.TestApplicant2.ID)

	_, err = service.SubmitApplication(context.Background(), SubmitInput{
		ApplicantID:      database.TestApplicant1.ID,
		InternshipID:     internship.ID,
		DurationWeeks:    4,
		CertificateName:  "Asha Verma",
		PaymentReference: "TXN-FOREIGN-PROOF",
		PaymentProofRef:  foreign,
	})
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.KindValidationFailed, appErr.Kind)
	assert.Equal(t, "Payment proof not found", appErr.Fields["payment_proof_ref"])

	var count int64
	require.NoError(t, db.Model(&model.Application{}).Where("internship_id = ?", internship.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSubmitApplication_ValidationFields(t *testing.T) {
	internship, err := database.CreateTestInternship(db, "Intake fields", 1)
	require.NoError(t, err)

	_, err = service.SubmitApplication(context.Background(), SubmitInput{
		ApplicantID:   database.TestApplicant1.ID,
		InternshipID:  internship.ID,
		DurationWeeks: 12,
	})
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields, "certificate_name")
	assert.Contains(t, appErr.Fields, "payment_reference")
	assert.Contains(t, appErr.Fields, "payment_proof_ref")
}

func TestSubmitApplication_DuplicateReferenceEitherOrder(t *testing.T) {
	internship, err := database.CreateTestInternship(db, "Intake duplicate", 5)
	require.NoError(t, err)

	for _, order := range [][2]uuid.UUID{
		{database.TestApplicant1.ID, database.TestApplicant2.ID},
		{database.TestApplicant2.ID, database.TestApplicant1.ID},
	} {
		ref := "UTR-DUP-" + order[0].String()[:8]
		_, err := service.SubmitApplication(context.Background(), validInput(t, order[0], internship.ID, ref))
		require.NoError(t, err)

		_, err = service.SubmitApplication(context.Background(), validInput(t, order[1], internship.ID, ref))
		assert.True(t, apperror.Is(err, apperror.KindDuplicatePaymentReference))
	}
}

func TestSubmitApplication_DuplicateReferenceConcurrent(t *testing.T) {
	internship, err := database.CreateTestInternship(db, "Intake race", 10)
	require.NoError(t, err)

	const callers = 6
	inputs := make([]SubmitInput, callers)
	for i := range inputs {
		applicant, err := database.CreateTestApplicant(db)
		require.NoError(t, err)
		inputs[i] = validInput(t, applicant.ID, internship.ID, "UTR-RACE")
	}

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		successes  int
		duplicates int
	)
	for _, in := range inputs {
		wg.Add(1)
		go func(in SubmitInput) {
			defer wg.Done()
			_, err := service.SubmitApplication(context.Background(), in)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case apperror.Is(err, apperror.KindDuplicatePaymentReference):
				duplicates++
			}
		}(in)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, duplicates)
}

func TestSubmitApplication_RejectedReferenceIsReusable(t *testing.T) {
	internship, err := database.CreateTestInternship(db, "Intake reuse", 5)
	require.NoError(t, err)

	first, err := service.SubmitApplication(context.Background(), validInput(t, database.TestApplicant1.ID, internship.ID, "UTR-REUSE"))
	require.NoError(t, err)
	reason := "blurry screenshot"
	require.NoError(t, db.Model(first).Updates(map[string]interface{}{"status": model.ApplicationStatusRejected, "rejection_reason": reason}).Error)

	_, err = service.SubmitApplication(context.Background(), validInput(t, database.TestApplicant1.ID, internship.ID, "UTR-REUSE"))
	assert.NoError(t, err)
}

func TestSubmitApplication_NoSeatReservedAtIntake(t *testing.T) {
	internship, err := database.CreateTestInternship(db, "Intake one seat", 1)
	require.NoError(t, err)

	_, err = service.SubmitApplication(context.Background(), validInput(t, database.TestApplicant1.ID, internship.ID, "UTR-A"))
	require.NoError(t, err)
	_, err = service.SubmitApplication(context.Background(), validInput(t, database.TestApplicant2.ID, internship.ID, "UTR-B"))
	require.NoError(t, err)
}

func TestWithdraw(t *testing.T) {
	internship, err := database.CreateTestInternship(db, "Intake withdraw", 3)
	require.NoError(t, err)
	owner := database.TestApplicant1.ID

	app, err := service.SubmitApplication(context.Background(), validInput(t, owner, internship.ID, "UTR-WD"))
	require.NoError(t, err)

	_, err = service.Withdraw(context.Background(), database.TestApplicant2.ID, app.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	withdrawn, err := service.Withdraw(context.Background(), owner, app.ID)
	require.NoError(t, err)
	require.NotNil(t, withdrawn.WithdrawnAt)

	again, err := service.Withdraw(context.Background(), owner, app.ID)
	require.NoError(t, err)
	assert.Equal(t, withdrawn.WithdrawnAt.Unix(), again.WithdrawnAt.Unix())

	// the row is kept
	mine, err := service.ListMine(context.Background(), owner)
	require.NoError(t, err)
	found := false
	for _, a := range mine {
		found = found || a.ID == app.ID
	}
	assert.True(t, found)

	// and its reference is free again
	_, err = service.SubmitApplication(context.Background(), validInput(t, owner, internship.ID, "UTR-WD"))
	assert.NoError(t, err)
}

func TestWithdraw_OnlyPending(t *testing.T) {
	internship, err := database.CreateTestInternship(db, "Intake withdraw approved", 3)
	require.NoError(t, err)
	owner := database.TestApplicant1.ID

	app, err := service.SubmitApplication(context.Background(), validInput(t, owner, internship.ID, fmt.Sprintf("UTR-%d", internship.ID)))
	require.NoError(t, err)
	require.NoError(t, db.Model(app).Update("status", model.ApplicationStatusApproved).Error)

	_, err = service.Withdraw(context.Background(), owner, app.ID)
	assert.True(t, apperror.Is(err, apperror.KindInvalidTransition))
}
