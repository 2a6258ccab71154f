package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/meqhh/simpat-api/internal/apperror"
	"github.com/meqhh/simpat-api/internal/events"
	"github.com/meqhh/simpat-api/internal/models"
)

const (
	msgMissingRequired = "Missing required fields: part_code and production_date are required"
	msgNotFound        = "QC Check not found"
	msgDeleteNotFound  = "QC Check not found or already deleted"
)

type QCCheckService struct {
	db        *gorm.DB
	publisher events.Publisher
	logger    zerolog.Logger
	validate  *validator.Validate
	now       func() time.Time
}

func NewQCCheckService(db *gorm.DB, publisher events.Publisher, logger zerolog.Logger) *QCCheckService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &QCCheckService{
		db:        db,
		publisher: publisher,
		logger:    logger,
		validate:  validator.New(),
		now: func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}
}

func (s *QCCheckService) CreateQCCheck(ctx context.Context, input CreateQCCheckInput) (QCCheckDTO, error) {
	if err := s.validate.StructCtx(ctx, input); err != nil {
		return QCCheckDTO{}, apperror.New(apperror.CodeValidation, msgMissingRequired)
	}

	productionDate, err := parseDate(input.ProductionDate, "production_date")
	if err != nil {
		return QCCheckDTO{}, err
	}

	dataFrom := input.DataFrom
	if dataFrom == "" {
		dataFrom = models.DataFromCreate
	}

	now := s.now()
	var record models.QCCheck
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		approverID, err := resolveApprover(tx, input.ApprovedBy)
		if err != nil {
			return err
		}

		record = models.QCCheck{
			PartCode:       input.PartCode,
			PartName:       nullIfEmpty(input.PartName),
			VendorName:     nullIfEmpty(input.VendorName),
			VendorID:       nullIfEmpty(input.VendorID),
			VendorType:     nullIfEmpty(input.VendorType),
			ProductionDate: datatypes.Date(productionDate),
			ApprovedBy:     approverID,
			ApprovedByName: nullIfEmpty(input.ApprovedBy),
			ApprovedAt:     &now,
			DataFrom:       dataFrom,
			Status:         models.StatusComplete,
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return QCCheckDTO{}, mapDatabaseError(err)
	}

	created := qcCheckToDTO(record)
	s.publish(ctx, events.TypeCreated, created.ID, created)
	return created, nil
}

func (s *QCCheckService) ListQCChecks(ctx context.Context, filter ListQCChecksFilter) ([]QCCheckView, error) {
	where, args, err := buildListFilter(filter)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Str("where", where).Interface("args", args).Msg("list qc checks")

	var rows []qcCheckRow
	if err := selectRecords(s.db.WithContext(ctx)).
		Where(where, args...).
		Order("qc.created_at DESC").
		Order("qc.production_date DESC").
		Scan(&rows).Error; err != nil {
		return nil, mapDatabaseError(fmt.Errorf("list qc checks: %w", err))
	}

	views := make([]QCCheckView, 0, len(rows))
	for _, row := range rows {
		views = append(views, rowToView(row))
	}
	return views, nil
}

func (s *QCCheckService) GetQCCheck(ctx context.Context, id uint) (QCCheckView, error) {
	var rows []qcCheckRow
	if err := selectRecords(s.db.WithContext(ctx)).
		Where("qc.id = ? AND qc.is_active = ?", id, true).
		Limit(1).
		Scan(&rows).Error; err != nil {
		return QCCheckView{}, mapDatabaseError(fmt.Errorf("load qc check: %w", err))
	}
	if len(rows) == 0 {
		return QCCheckView{}, apperror.New(apperror.CodeNotFound, msgNotFound)
	}
	return rowToView(rows[0]), nil
}

func (s *QCCheckService) UpdateQCCheck(ctx context.Context, id uint, patch QCCheckPatch) (QCCheckDTO, error) {
	columns, err := patchColumns(patch)
	if err != nil {
		return QCCheckDTO{}, err
	}
	columns["updated_at"] = s.now()

	var record models.QCCheck
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockActive(tx, id, msgNotFound); err != nil {
			return err
		}
		if err := tx.Model(&models.QCCheck{}).Where("id = ?", id).Updates(columns).Error; err != nil {
			return err
		}
		return tx.First(&record, id).Error
	})
	if err != nil {
		return QCCheckDTO{}, mapDatabaseError(err)
	}

	updated := qcCheckToDTO(record)
	s.publish(ctx, events.TypeUpdated, updated.ID, updated)
	return updated, nil
}

func (s *QCCheckService) DeleteQCCheck(ctx context.Context, id uint) (uint, error) {
	now := s.now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockActive(tx, id, msgDeleteNotFound); err != nil {
			return err
		}
		return tx.Model(&models.QCCheck{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"is_active":  false,
				"updated_at": now,
			}).Error
	})
	if err != nil {
		return 0, mapDatabaseError(err)
	}

	s.publish(ctx, events.TypeDeleted, id, map[string]uint{"deletedId": id})
	return id, nil
}

func (s *QCCheckService) publish(ctx context.Context, eventType string, id uint, data any) {
	if err := s.publisher.Publish(ctx, events.NewEvent(eventType, id, data)); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Uint("qc_check_id", id).Msg("publish qc check event")
	}
}

type qcCheckRow struct {
	models.QCCheck
	ApprovedByEmpName *string
}

func selectRecords(db *gorm.DB) *gorm.DB {
	return db.Table("qc_checks AS qc").
		Select("qc.*, e.emp_name AS approved_by_emp_name").
		Joins("LEFT JOIN employees e ON e.id = qc.approved_by")
}

// lockActive row-locks an active record for the rest of the transaction.
func lockActive(tx *gorm.DB, id uint, notFoundMessage string) error {
	var record models.QCCheck
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ? AND is_active = ?", id, true).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.New(apperror.CodeNotFound, notFoundMessage)
	}
	if err != nil {
		return fmt.Errorf("check qc check: %w", err)
	}
	return nil
}

func patchColumns(patch QCCheckPatch) (map[string]interface{}, error) {
	columns := map[string]interface{}{}

	setIfPresent := func(column string, value Optional[string]) {
		if value.Set {
			columns[column] = value.Value
		}
	}
	setIfPresent("part_code", patch.PartCode)
	setIfPresent("part_name", patch.PartName)
	setIfPresent("vendor_name", patch.VendorName)
	setIfPresent("vendor_id", patch.VendorID)
	setIfPresent("vendor_type", patch.VendorType)
	setIfPresent("status", patch.Status)
	setIfPresent("remark", patch.Remark)

	if patch.ProductionDate.Set {
		productionDate, err := parseDate(patch.ProductionDate.Value, "production_date")
		if err != nil {
			return nil, err
		}
		columns["production_date"] = datatypes.Date(productionDate)
	}

	return columns, nil
}

func qcCheckToDTO(record models.QCCheck) QCCheckDTO {
	return QCCheckDTO{
		ID:             record.ID,
		PartCode:       record.PartCode,
		PartName:       record.PartName,
		VendorName:     record.VendorName,
		VendorID:       record.VendorID,
		VendorType:     record.VendorType,
		ProductionDate: formatDate(record.ProductionDate),
		ApprovedBy:     record.ApprovedBy,
		ApprovedByName: record.ApprovedByName,
		ApprovedAt:     record.ApprovedAt,
		DataFrom:       record.DataFrom,
		Status:         record.Status,
		Remark:         record.Remark,
		CreatedAt:      record.CreatedAt,
		UpdatedAt:      record.UpdatedAt,
	}
}

func rowToView(row qcCheckRow) QCCheckView {
	return QCCheckView{
		QCCheckDTO:        qcCheckToDTO(row.QCCheck),
		ApprovedBy:        displayApprover(row.ApprovedByName, row.ApprovedByEmpName),
		ApprovedByID:      row.QCCheck.ApprovedBy,
		ApprovedByEmpName: row.ApprovedByEmpName,
	}
}

func formatDate(date datatypes.Date) string {
	return time.Time(date).Format(models.ProductionDateLayout)
}

func nullIfEmpty(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func mapDatabaseError(err error) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return apperror.Wrap(apperror.CodePersistence, "resource with the same unique attributes already exists", err)
		case "23503":
			return apperror.Wrap(apperror.CodePersistence, "invalid foreign key reference", err)
		case "23502":
			return apperror.Wrap(apperror.CodePersistence, "required column is missing", err)
		case "22007", "22008":
			return apperror.Wrap(apperror.CodePersistence, "invalid date value", err)
		}
	}
	return apperror.Wrap(apperror.CodePersistence, "database operation failed", err)
}
