// Package capacity is the seat ledger of internship listings.
//
// Internship.CurrentRegistrations is only ever changed here, through a single
// conditional UPDATE per call, so the check and the increment happen in one
// atomic statement scoped to the internship row.
package capacity

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"InternHub-backend/internal/apperror"
	"InternHub-backend/internal/metrics"
	"InternHub-backend/internal/model"
)

// Ledger mutates and reads seat counters.
type Ledger struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

// Snapshot is the seat state of one internship.
type Snapshot struct {
	InternshipID         uint `json:"internship_id"`
	TotalPositions       int  `json:"total_positions"`
	CurrentRegistrations int  `json:"current_registrations"`
	FreeSeats            int  `json:"free_seats"`
	IsAccepting          bool `json:"is_accepting"`
}

// NewLedger creates a ledger reading through db.
func NewLedger(db *gorm.DB, log logrus.FieldLogger) *Ledger {
	return &Ledger{db: db, log: log}
}

// HasFreeSeat reports whether the listing accepts applications and still has a seat.
func (l *Ledger) HasFreeSeat(listing model.Internship) bool {
	return listing.IsAccepting && listing.TotalPositions-listing.CurrentRegistrations > 0
}

// Reserve consumes one seat of the internship inside tx. It fails with
// capacity_exhausted when every seat is taken, leaving the row untouched.
func (l *Ledger) Reserve(tx *gorm.DB, internshipID uint) error {
	res := tx.Model(&model.Internship{}).
		Where("id = ? AND current_registrations < total_positions", internshipID).
		UpdateColumn("current_registrations", gorm.Expr("current_registrations + 1"))
	if res.Error != nil {
		return apperror.Internal("failed to reserve seat", res.Error)
	}
	if res.RowsAffected == 0 {
		metrics.RecordSeatChange("refused")
		l.log.WithField("internship_id", internshipID).Info("seat reservation refused, internship full")
		return apperror.New(apperror.KindCapacityExhausted, "No seats left for this internship")
	}
	metrics.RecordSeatChange("reserved")
	return nil
}

// Release returns one seat of the internship inside tx.
func (l *Ledger) Release(tx *gorm.DB, internshipID uint) error {
	res := tx.Model(&model.Internship{}).
		Where("id = ? AND current_registrations > 0", internshipID).
		UpdateColumn("current_registrations", gorm.Expr("current_registrations - 1"))
	if res.Error != nil {
		return apperror.Internal("failed to release seat", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.Internal("failed to release seat", errors.New("seat counter already at zero"))
	}
	metrics.RecordSeatChange("released")
	return nil
}

// Snapshot reads the current seat state of an internship.
func (l *Ledger) Snapshot(ctx context.Context, internshipID uint) (Snapshot, error) {
	var listing model.Internship
	err := l.db.WithContext(ctx).First(&listing, internshipID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Snapshot{}, apperror.New(apperror.KindNotFound, "Internship not found")
	}
	if err != nil {
		return Snapshot{}, apperror.Internal("failed to read internship", err)
	}
	return Snapshot{
		InternshipID:         listing.ID,
		TotalPositions:       listing.TotalPositions,
		CurrentRegistrations: listing.CurrentRegistrations,
		FreeSeats:            listing.FreeSeats(),
		IsAccepting:          listing.IsAccepting,
	}, nil
}
