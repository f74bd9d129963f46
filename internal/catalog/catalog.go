// Package catalog owns internship listings.
package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"InternHub-backend/internal/apperror"
	"InternHub-backend/internal/model"
)

// Catalog reads and administers internship listings.
type Catalog struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

// NewCatalog creates a catalog backed by db.
func NewCatalog(db *gorm.DB, log logrus.FieldLogger) *Catalog {
	return &Catalog{db: db, log: log}
}

// CreateInput is the data an admin provides for a new listing.
type CreateInput struct {
	Title           string          `json:"title" binding:"required"`
	Description     string          `json:"description"`
	Domain          string          `json:"domain"`
	TotalPositions  int             `json:"total_positions"`
	RegistrationFee decimal.Decimal `json:"registration_fee"`
	IsAccepting     *bool           `json:"is_accepting"`
}

// UpdateInput holds the fields an admin may change. Nil fields are left as is.
type UpdateInput struct {
	Title           *string          `json:"title"`
	Description     *string          `json:"description"`
	Domain          *string          `json:"domain"`
	TotalPositions  *int             `json:"total_positions"`
	RegistrationFee *decimal.Decimal `json:"registration_fee"`
	IsAccepting     *bool            `json:"is_accepting"`
}

// GetInternship returns the listing with id, or not_found.
func (c *Catalog) GetInternship(ctx context.Context, id uint) (*model.Internship, error) {
	return c.get(c.db.WithContext(ctx), id)
}

func (c *Catalog) get(tx *gorm.DB, id uint) (*model.Internship, error) {
	var listing model.Internship
	err := tx.First(&listing, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.New(apperror.KindNotFound, "Internship not found")
	}
	if err != nil {
		return nil, apperror.Internal("failed to get internship", err)
	}
	return &listing, nil
}

// List returns listings ordered by id. When acceptingOnly is set, closed
// listings are skipped.
func (c *Catalog) List(ctx context.Context, acceptingOnly bool) ([]model.Internship, error) {
	var listings []model.Internship
	q := c.db.WithContext(ctx).Order("id ASC")
	if acceptingOnly {
		q = q.Where("is_accepting = ?", true)
	}
	if err := q.Find(&listings).Error; err != nil {
		return nil, apperror.Internal("failed to list internships", err)
	}
	return listings, nil
}

// Create adds a new listing with no consumed seats.
func (c *Catalog) Create(ctx context.Context, in CreateInput) (*model.Internship, error) {
	fields := map[string]string{}
	if strings.TrimSpace(in.Title) == "" {
		fields["title"] = "Title is required"
	}
	if in.TotalPositions < 0 {
		fields["total_positions"] = "Total positions must not be negative"
	}
	if in.RegistrationFee.IsNegative() {
		fields["registration_fee"] = "Registration fee must not be negative"
	}
	if len(fields) > 0 {
		return nil, apperror.Validation("Invalid internship", fields)
	}

	accepting := true
	if in.IsAccepting != nil {
		accepting = *in.IsAccepting
	}
	listing := model.Internship{
		EditableInternshipInfo: model.EditableInternshipInfo{
			Title:           strings.TrimSpace(in.Title),
			Description:     in.Description,
			Domain:          in.Domain,
			RegistrationFee: in.RegistrationFee,
			IsAccepting:     accepting,
		},
		TotalPositions: in.TotalPositions,
	}
	if err := c.db.WithContext(ctx).Create(&listing).Error; err != nil {
		return nil, apperror.Internal("failed to create internship", err)
	}
	c.log.WithField("internship_id", listing.ID).Info("internship created")
	return &listing, nil
}

// Update changes listing details. Total positions cannot drop below the seats
// already consumed; the check runs inside the same UPDATE statement.
func (c *Catalog) Update(ctx context.Context, id uint, in UpdateInput) (*model.Internship, error) {
	updates := map[string]interface{}{}
	fields := map[string]string{}
	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			fields["title"] = "Title must not be empty"
		}
		updates["title"] = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.Domain != nil {
		updates["domain"] = *in.Domain
	}
	if in.RegistrationFee != nil {
		if in.RegistrationFee.IsNegative() {
			fields["registration_fee"] = "Registration fee must not be negative"
		}
		updates["registration_fee"] = *in.RegistrationFee
	}
	if in.IsAccepting != nil {
		updates["is_accepting"] = *in.IsAccepting
	}
	if in.TotalPositions != nil {
		if *in.TotalPositions < 0 {
			fields["total_positions"] = "Total positions must not be negative"
		}
		updates["total_positions"] = *in.TotalPositions
	}
	if len(fields) > 0 {
		return nil, apperror.Validation("Invalid internship", fields)
	}

	var result *model.Internship
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := c.get(tx, id); err != nil {
			return err
		}
		if len(updates) > 0 {
			q := tx.Model(&model.Internship{}).Where("id = ?", id)
			if in.TotalPositions != nil {
				q = q.Where("current_registrations <= ?", *in.TotalPositions)
			}
			res := q.Updates(updates)
			if res.Error != nil {
				return apperror.Internal("failed to update internship", res.Error)
			}
			if res.RowsAffected == 0 {
				return apperror.Validation("Invalid internship", map[string]string{
					"total_positions": "Total positions must not be lower than current registrations",
				})
			}
		}
		listing, err := c.get(tx, id)
		result = listing
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
