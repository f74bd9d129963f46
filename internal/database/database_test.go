package database

import (
	"context"
	"errors"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InternHub-backend/internal/model"
)

var db *DBinstanceStruct

func TestMain(m *testing.M) {
	td, testDB, err := GetTestDB()
	if err != nil {
		log.Fatalf("could not start postgres container: %v", err)
	}
	db = testDB

	code := m.Run()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if td != nil {
		if err := td(ctx); err != nil {
			log.Printf("could not teardown postgres container: %v", err)
		}
	}
	os.Exit(code)
}

func TestHealth(t *testing.T) {
	stats := db.Health()

	assert.Equal(t, "up", stats["status"])
	_, hasErr := stats["error"]
	assert.False(t, hasErr)
}

func TestSeededUsers(t *testing.T) {
	assert.Equal(t, model.RoleAdmin, TestAdminUser.Role)
	assert.Equal(t, model.RoleApplicant, TestApplicant1.Role)
	assert.NotZero(t, TestInternship1.ID)
}

func TestSeatCheckConstraint(t *testing.T) {
	internship, err := CreateTestInternship(db, "Constraint check", 1)
	require.NoError(t, err)

	err = db.Model(&model.Internship{}).
		Where("id = ?", internship.ID).
		Update("current_registrations", 2).Error
	require.Error(t, err)
	assert.Equal(t, CodeCheckViolation, PgCode(err))
}

func TestPaymentReferencePartialIndex(t *testing.T) {
	internship, err := CreateTestInternship(db, "Partial index", 3)
	require.NoError(t, err)

	base := model.Application{
		ApplicantID:      TestApplicant1.ID,
		InternshipID:     internship.ID,
		DurationWeeks:    4,
		CertificateName:  "Applicant One",
		PaymentReference: "UTR-INDEX-1",
		PaymentProofRef:  "1",
		Status:           model.ApplicationStatusRejected,
		DateApplied:      time.Now(),
	}
	rejected := base
	require.NoError(t, db.Create(&rejected).Error)

	first := base
	first.Status = model.ApplicationStatusPending
	require.NoError(t, db.Create(&first).Error, "rejected claims do not block the reference")

	second := base
	second.ApplicantID = TestApplicant2.ID
	second.Status = model.ApplicationStatusPending
	err = db.Create(&second).Error
	assert.True(t, IsUniqueViolation(err, PaymentReferenceIndex))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(errors.New("plain"), ""))
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: CodeUniqueViolation}, ""))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: CodeUniqueViolation, ConstraintName: "other"}, PaymentReferenceIndex))
	assert.Equal(t, "", PgCode(nil))
}

func TestClose(t *testing.T) {
	other, err := NewDBInstance(db.Settings, db.log)
	require.NoError(t, err)
	assert.NoError(t, other.Close())
}
