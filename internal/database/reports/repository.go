// Package reports stores car sale reports and derives price estimates from them.
package reports

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/mycv/internal/entities"
)

var ErrNotFound = errors.New("report not found")

// Comparable reports must sit within these distances of the query.
const (
	MaxCoordinateDelta = 5.0
	MaxYearDelta       = 3
	EstimateSampleSize = 3
)

// EstimateQuery describes the car being valued.
type EstimateQuery struct {
	Make    string
	Model   string
	Year    int
	Mileage int
	Lng     float64
	Lat     float64
}

// Estimate is the average price of the closest comparable approved reports.
// Price is nil when no report qualifies.
type Estimate struct {
	Price *float64 `json:"price"`
	Count int      `json:"count"`
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create stores a report owned by ownerID. New reports are never approved.
func (r *Repository) Create(ctx context.Context, report *entities.Report, ownerID uint) error {
	report.ID = 0
	report.UserID = ownerID
	report.Approved = false
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	log.Ctx(ctx).Info().Uint("report_id", report.ID).Uint("user_id", ownerID).Msg("Inserted Report")
	return nil
}

// FindOne retrieves a report by id.
func (r *Repository) FindOne(ctx context.Context, id uint) (*entities.Report, error) {
	var report entities.Report
	if err := r.db.WithContext(ctx).First(&report, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load report %d: %w", id, err)
	}
	return &report, nil
}

// SetApproval marks a report approved or rejected.
func (r *Repository) SetApproval(ctx context.Context, id uint, approved bool) (*entities.Report, error) {
	report, err := r.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(report).Update("approved", approved).Error; err != nil {
		return nil, fmt.Errorf("failed to update report %d: %w", id, err)
	}
	report.Approved = approved
	log.Ctx(ctx).Info().Uint("report_id", id).Bool("approved", approved).Msg("Updated Report approval")
	return report, nil
}

// Estimate averages the prices of the approved reports for the same make and
// model that are closest in mileage, within coordinate and year bounds.
func (r *Repository) Estimate(ctx context.Context, q EstimateQuery) (*Estimate, error) {
	closest := r.db.WithContext(ctx).
		Model(&entities.Report{}).
		Select("price").
		Where("make = ? AND model = ?", q.Make, q.Model).
		Where("lng - ? BETWEEN ? AND ?", q.Lng, -MaxCoordinateDelta, MaxCoordinateDelta).
		Where("lat - ? BETWEEN ? AND ?", q.Lat, -MaxCoordinateDelta, MaxCoordinateDelta).
		Where("year - ? BETWEEN ? AND ?", q.Year, -MaxYearDelta, MaxYearDelta).
		Where("approved = ?", true).
		Order(clause.Expr{SQL: "ABS(mileage - ?) ASC", Vars: []any{q.Mileage}}).
		Limit(EstimateSampleSize)

	var row struct {
		Price sql.NullFloat64
		Count int
	}
	err := r.db.WithContext(ctx).
		Table("(?) AS closest", closest).
		Select("AVG(price) AS price, COUNT(*) AS count").
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to estimate price: %w", err)
	}

	estimate := &Estimate{Count: row.Count}
	if row.Price.Valid {
		price := row.Price.Float64
		estimate.Price = &price
	}
	return estimate, nil
}
