package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/meqhh/simpat-api/internal/apperror"
	"github.com/meqhh/simpat-api/internal/models"
)

func TestCreateQCCheckValidation(t *testing.T) {
	// A nil database proves validation fails before any statement is issued.
	svc := NewQCCheckService(nil, nil, zerolog.Nop())

	tests := []struct {
		name    string
		input   CreateQCCheckInput
		message string
	}{
		{
			name:    "missing part code",
			input:   CreateQCCheckInput{ProductionDate: "2024-03-15"},
			message: msgMissingRequired,
		},
		{
			name:    "missing production date",
			input:   CreateQCCheckInput{PartCode: "P-100"},
			message: msgMissingRequired,
		},
		{
			name:    "both missing",
			input:   CreateQCCheckInput{PartName: "Bracket", ApprovedBy: "Jane Doe"},
			message: msgMissingRequired,
		},
		{
			name:    "malformed production date",
			input:   CreateQCCheckInput{PartCode: "P-100", ProductionDate: "15/03/2024"},
			message: "production_date must be in YYYY-MM-DD format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateQCCheck(context.Background(), tt.input)
			if apperror.GetCode(err) != apperror.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if err.Error() != tt.message {
				t.Fatalf("expected message %q, got %q", tt.message, err.Error())
			}
		})
	}
}

func TestUpdateQCCheckRejectsMalformedDate(t *testing.T) {
	svc := NewQCCheckService(nil, nil, zerolog.Nop())

	_, err := svc.UpdateQCCheck(context.Background(), 1, QCCheckPatch{ProductionDate: Some("2024-13-01")})
	if apperror.GetCode(err) != apperror.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListQCChecksRejectsMalformedRange(t *testing.T) {
	svc := NewQCCheckService(nil, nil, zerolog.Nop())

	_, err := svc.ListQCChecks(context.Background(), ListQCChecksFilter{DateTo: "yesterday"})
	if apperror.GetCode(err) != apperror.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPatchColumns(t *testing.T) {
	columns, err := patchColumns(QCCheckPatch{Status: Some("Rejected")})
	if err != nil {
		t.Fatalf("patchColumns: %v", err)
	}
	if !reflect.DeepEqual(columns, map[string]interface{}{"status": "Rejected"}) {
		t.Fatalf("expected only status column, got %v", columns)
	}

	columns, err = patchColumns(QCCheckPatch{
		Remark:         Some(""),
		ProductionDate: Some("2024-03-15"),
	})
	if err != nil {
		t.Fatalf("patchColumns: %v", err)
	}
	if remark, ok := columns["remark"]; !ok || remark != "" {
		t.Fatalf("expected explicit empty remark to be written, got %v", columns)
	}
	date, ok := columns["production_date"].(datatypes.Date)
	if !ok || formatDate(date) != "2024-03-15" {
		t.Fatalf("unexpected production_date column: %v", columns["production_date"])
	}
	if len(columns) != 2 {
		t.Fatalf("expected two columns, got %v", columns)
	}

	columns, err = patchColumns(QCCheckPatch{})
	if err != nil || len(columns) != 0 {
		t.Fatalf("expected empty patch to produce no columns, got %v (%v)", columns, err)
	}
}

func TestDisplayApprover(t *testing.T) {
	name := "Jane Doe"
	empty := ""
	empName := "jane doe"

	tests := []struct {
		name           string
		approvedByName *string
		empName        *string
		want           string
	}{
		{name: "stored name wins", approvedByName: &name, empName: &empName, want: "Jane Doe"},
		{name: "directory fallback", approvedByName: nil, empName: &empName, want: "jane doe"},
		{name: "empty stored name falls back", approvedByName: &empty, empName: &empName, want: "jane doe"},
		{name: "unknown", approvedByName: &empty, empName: nil, want: "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := displayApprover(tt.approvedByName, tt.empName); got != tt.want {
				t.Fatalf("displayApprover() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRowToView(t *testing.T) {
	approverID := uint(7)
	empName := "jane doe"
	location := time.FixedZone("WIB", 7*60*60)

	view := rowToView(qcCheckRow{
		QCCheck: models.QCCheck{
			ID:             3,
			PartCode:       "P-100",
			ProductionDate: datatypes.Date(time.Date(2024, 3, 15, 0, 0, 0, 0, location)),
			ApprovedBy:     &approverID,
			Status:         models.StatusComplete,
			DataFrom:       models.DataFromCreate,
			IsActive:       true,
		},
		ApprovedByEmpName: &empName,
	})

	if view.ProductionDate != "2024-03-15" {
		t.Fatalf("expected production date 2024-03-15, got %s", view.ProductionDate)
	}
	if view.ApprovedBy != "jane doe" {
		t.Fatalf("expected fallback approver name, got %s", view.ApprovedBy)
	}
	if view.ApprovedByID == nil || *view.ApprovedByID != approverID {
		t.Fatalf("expected approver id %d, got %v", approverID, view.ApprovedByID)
	}
}

func TestMapDatabaseError(t *testing.T) {
	notFound := apperror.New(apperror.CodeNotFound, msgNotFound)
	if got := mapDatabaseError(notFound); got != notFound {
		t.Fatalf("expected classified error to pass through, got %v", got)
	}

	pgErr := &pgconn.PgError{Code: "23502", Message: `null value in column "part_code"`}
	mapped := mapDatabaseError(pgErr)
	if apperror.GetCode(mapped) != apperror.CodePersistence {
		t.Fatalf("expected persistence error, got %v", mapped)
	}
	if !errors.Is(mapped, pgErr) {
		t.Fatalf("expected mapped error to wrap the driver error")
	}
	if apperror.CauseOf(mapped) != pgErr.Error() {
		t.Fatalf("expected cause %q, got %q", pgErr.Error(), apperror.CauseOf(mapped))
	}

	plain := mapDatabaseError(errors.New("connection reset by peer"))
	if apperror.GetCode(plain) != apperror.CodePersistence || apperror.CauseOf(plain) != "connection reset by peer" {
		t.Fatalf("unexpected mapping for plain error: %v", plain)
	}
}
