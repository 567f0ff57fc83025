package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var (
	ErrDataSourceUnavailable = errors.New("data source unavailable")
	ErrQueryFailed           = errors.New("availability query failed")
)

type Repository interface {
	// GetRows returns every response row of the named sheet.
	GetRows(ctx context.Context, sheet string) ([]Row, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetRows(ctx context.Context, sheet string) ([]Row, error) {
	if r.db == nil {
		return nil, fmt.Errorf("%w: database not connected", ErrDataSourceUnavailable)
	}
	if sheet == "" {
		sheet = DefaultSheetName
	}

	if !r.db.WithContext(ctx).Migrator().HasTable(sheet) {
		return nil, fmt.Errorf("%w: sheet not found: %s", ErrDataSourceUnavailable, sheet)
	}

	var cells []struct {
		DateText  *string    `gorm:"column:date_text"`
		DateValue *time.Time `gorm:"column:date_value"`
	}
	err := r.db.WithContext(ctx).
		Table(sheet).
		Select("date_text, date_value").
		Order("id ASC").
		Find(&cells).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataSourceUnavailable, err)
	}

	rows := make([]Row, 0, len(cells))
	for _, c := range cells {
		rows = append(rows, Row{Date: FormResponse{DateText: c.DateText, DateValue: c.DateValue}.DateCell()})
	}
	return rows, nil
}
