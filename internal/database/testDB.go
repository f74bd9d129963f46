package database

import (
	"context"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"InternHub-backend/internal/config"
	"InternHub-backend/internal/logger"
	m "InternHub-backend/internal/model"
)

var testDBInstance *DBinstanceStruct
var teardown func(context.Context, ...testcontainers.TerminateOption) error

// Exported seeded users and listing
var (
	TestAdminUser   m.User
	TestApplicant1  m.User
	TestApplicant2  m.User
	TestInternship1 m.Internship
)

// GetTestDB starts a PostgreSQL test container and returns a teardown function,
// the DB instance, and any error encountered during setup.
func GetTestDB() (func(context.Context, ...testcontainers.TerminateOption) error, *DBinstanceStruct, error) {

	if testDBInstance != nil && teardown != nil {
		return teardown, testDBInstance, nil
	}

	// Database configuration
	var (
		dbName = "database"
		dbPwd  = "password"
		dbUser = "user"
	)

	dbContainer, err := postgres.Run(
		context.Background(),
		"postgres:16-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, nil, err
	}

	dbHost, err := dbContainer.Host(context.Background())
	if err != nil {
		return dbContainer.Terminate, nil, err
	}

	dbPort, err := dbContainer.MappedPort(context.Background(), nat.Port("5432/tcp"))
	if err != nil {
		return dbContainer.Terminate, nil, err
	}

	settings := config.DBSettings{
		Host:         dbHost,
		Port:         dbPort.Port(),
		User:         dbUser,
		Password:     dbPwd,
		Name:         dbName,
		MaxOpenConns: 40,
		MaxIdleConns: 10,
	}

	db, err := NewDBInstance(settings, logger.Discard())
	if err != nil {
		return dbContainer.Terminate, nil, err
	}

	if err := seedTestData(db); err != nil {
		_ = dbContainer.Terminate(context.Background())
		return nil, nil, err
	}

	testDBInstance = db
	teardown = dbContainer.Terminate

	return dbContainer.Terminate, db, nil
}

// seedTestData inserts an admin, two applicants and one open internship.
func seedTestData(db *DBinstanceStruct) error {
	userSpecs := []struct {
		username string
		email    *string
		tel      *string
		role     string
	}{
		{"admin_user", ptr("admin@example.com"), ptr("0300000001"), m.RoleAdmin},
		{"applicant_1", ptr("applicant1@example.com"), ptr("0100000001"), m.RoleApplicant},
		{"applicant_2", ptr("applicant2@example.com"), nil, m.RoleApplicant},
	}

	users := make([]m.User, 0, len(userSpecs))
	for _, s := range userSpecs {
		users = append(users, m.User{
			ID:          uuid.New(),
			Username:    s.username,
			Role:        s.role,
			ContactInfo: m.ContactInfo{Email: s.email, Tel: s.tel},
		})
	}

	if err := db.Create(&users).Error; err != nil {
		return err
	}

	for _, u := range users {
		switch u.Username {
		case "admin_user":
			TestAdminUser = u
		case "applicant_1":
			TestApplicant1 = u
		case "applicant_2":
			TestApplicant2 = u
		}
	}

	TestInternship1 = m.Internship{
		EditableInternshipInfo: m.EditableInternshipInfo{
			Title:           "Backend Engineering Internship",
			Description:     "Go services and PostgreSQL.",
			Domain:          "Web Development",
			RegistrationFee: decimal.RequireFromString("499.00"),
			IsAccepting:     true,
		},
		TotalPositions: 50,
	}
	return db.Create(&TestInternship1).Error
}

// CreateTestInternship inserts an accepting internship with the given number of seats.
func CreateTestInternship(db *DBinstanceStruct, title string, totalPositions int) (m.Internship, error) {
	internship := m.Internship{
		EditableInternshipInfo: m.EditableInternshipInfo{
			Title:           title,
			Domain:          "Testing",
			RegistrationFee: decimal.RequireFromString("250.00"),
			IsAccepting:     true,
		},
		TotalPositions: totalPositions,
	}
	err := db.Create(&internship).Error
	return internship, err
}

// CreateTestApplicant inserts a fresh applicant user.
func CreateTestApplicant(db *DBinstanceStruct) (m.User, error) {
	id := uuid.New()
	user := m.User{
		ID:          id,
		Username:    "applicant_" + id.String()[:8],
		Role:        m.RoleApplicant,
		ContactInfo: m.ContactInfo{Email: ptr(id.String()[:8] + "@example.com")},
	}
	err := db.Create(&user).Error
	return user, err
}

// ptr helper
func ptr[T any](v T) *T { return &v }
