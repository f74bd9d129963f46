package capacity

import (
	"context"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"InternHub-backend/internal/apperror"
	"InternHub-backend/internal/database"
	"InternHub-backend/internal/logger"
	"InternHub-backend/internal/model"
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

func TestHasFreeSeat(t *testing.T) {
	l := NewLedger(nil, logger.Discard())

	assert.True(t, l.HasFreeSeat(model.Internship{TotalPositions: 2, CurrentRegistrations: 1, EditableInternshipInfo: model.EditableInternshipInfo{IsAccepting: true}}))
	assert.False(t, l.HasFreeSeat(model.Internship{TotalPositions: 2, CurrentRegistrations: 2, EditableInternshipInfo: model.EditableInternshipInfo{IsAccepting: true}}))
	assert.False(t, l.HasFreeSeat(model.Internship{TotalPositions: 2, CurrentRegistrations: 0}))
}

func TestReserveAndRelease(t *testing.T) {
	l := NewLedger(db.DB, logger.Discard())
	internship, err := database.CreateTestInternship(db, "Ledger basic", 1)
	require.NoError(t, err)

	require.NoError(t, l.Reserve(db.DB, internship.ID))

	err = l.Reserve(db.DB, internship.ID)
	assert.True(t, apperror.Is(err, apperror.KindCapacityExhausted))

	snap, err := l.Snapshot(context.Background(), internship.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.CurrentRegistrations)
	assert.Equal(t, 0, snap.FreeSeats)

	require.NoError(t, l.Release(db.DB, internship.ID))
	snap, err = l.Snapshot(context.Background(), internship.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.CurrentRegistrations)

	err = l.Release(db.DB, internship.ID)
	assert.True(t, apperror.Is(err, apperror.KindInternal))
}

func TestReserveConcurrent(t *testing.T) {
	l := NewLedger(db.DB, logger.Discard())
	const seats = 3
	internship, err := database.CreateTestInternship(db, "Ledger concurrent", seats)
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		reserved  int
		exhausted int
	)
	for i := 0; i < seats+4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.Transaction(func(tx *gorm.DB) error {
				return l.Reserve(tx, internship.ID)
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				reserved++
			} else if apperror.Is(err, apperror.KindCapacityExhausted) {
				exhausted++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, seats, reserved)
	assert.Equal(t, 4, exhausted)

	snap, err := l.Snapshot(context.Background(), internship.ID)
	require.NoError(t, err)
	assert.Equal(t, seats, snap.CurrentRegistrations)
}

func TestSnapshotNotFound(t *testing.T) {
	l := NewLedger(db.DB, logger.Discard())
	_, err := l.Snapshot(context.Background(), 999999)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}
