//go:build integration

package integration

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/maternity/records/internal/domain/patient"
	"github.com/maternity/records/internal/platform/audit"
	"github.com/maternity/records/internal/platform/db"
	"github.com/maternity/records/internal/platform/validation"
	"github.com/maternity/records/pkg/civil"
)

func TestPatientCRUD(t *testing.T) {
	resetClinicalData(t)
	ctx, actor := actorCtx()
	repo := patient.NewPatientRepoPG(globalDB.Pool)

	created := createTestPatient(t, ctx, "12345678", "Camila", "Rojas")

	t.Run("GetByID", func(t *testing.T) {
		got, err := repo.GetByID(ctx, created.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if got.FullName != "Camila Rojas" {
			t.Errorf("expected full_name=Camila Rojas, got %q", got.FullName)
		}
		if got.RegisteredBy == nil || *got.RegisteredBy != actor {
			t.Errorf("expected registered_by=%s, got %v", actor, got.RegisteredBy)
		}
		if got.CareState != patient.CareStateWaiting || !got.Active {
			t.Errorf("unexpected defaults: care_state=%s active=%v", got.CareState, got.Active)
		}
	})

	t.Run("GetByID_NotFound", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.New())
		if !db.IsNotFound(err) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("UniqueNationalID_CaseInsensitive", func(t *testing.T) {
		taken, err := repo.NationalIDTaken(ctx, "12345678", uuid.Nil)
		if err != nil {
			t.Fatalf("NationalIDTaken: %v", err)
		}
		if !taken {
			t.Error("expected national id to be taken")
		}
		taken, err = repo.NationalIDTaken(ctx, "12345678", created.ID)
		if err != nil {
			t.Fatalf("NationalIDTaken: %v", err)
		}
		if taken {
			t.Error("expected the patient's own national id to be ignored")
		}

		dup := &patient.Patient{
			ID:         uuid.New(),
			NationalID: "12345678",
			BirthDate:  civil.MustParse("2000-01-01"),
			Sex:        "F",
		}
		err = repo.Create(ctx, dup)
		if !db.IsUniqueViolation(err, "uq_patient_national_id") {
			t.Fatalf("expected unique violation, got %v", err)
		}
	})

	t.Run("ServiceRejectsDuplicate", func(t *testing.T) {
		p := &patient.Patient{
			NationalID: "12345678",
			BirthDate:  civil.MustParse("1985-02-02"),
			Sex:        "F",
		}
		err := newPatientService().CreatePatient(ctx, p, patient.SaveOptions{ConfirmSimilar: true})
		verr, ok := validation.As(err)
		if !ok {
			t.Fatalf("expected validation error, got %v", err)
		}
		if got := verr.Fields["national_id"]; len(got) != 1 || got[0] != patient.MsgDuplicateNationalID {
			t.Errorf("unexpected national_id errors %v", got)
		}
	})

	t.Run("UpdateWritesAuditDiff", func(t *testing.T) {
		p, err := repo.GetByID(ctx, created.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		p.Phone = "+56 9 1234 5678"
		p.ObstetricRisk = "high"
		if err := newPatientService().UpdatePatient(ctx, p, patient.SaveOptions{}); err != nil {
			t.Fatalf("UpdatePatient: %v", err)
		}

		entries, err := audit.NewStorePG(globalDB.Pool).ListByPatient(ctx, created.ID, 0)
		if err != nil {
			t.Fatalf("ListByPatient: %v", err)
		}
		labels := map[string]*audit.Entry{}
		for _, e := range entries {
			labels[e.Label] = e
		}
		if _, ok := labels["PATIENT CREATED"]; !ok {
			t.Errorf("expected creation entry, got %v", labels)
		}
		phone, ok := labels["Patient: phone"]
		if !ok {
			t.Fatalf("expected phone entry, got %v", labels)
		}
		if phone.OldValue != "" || phone.NewValue != "+56 9 1234 5678" {
			t.Errorf("unexpected phone diff %q -> %q", phone.OldValue, phone.NewValue)
		}
		if phone.ActorID == nil || *phone.ActorID != actor {
			t.Errorf("expected actor %s, got %v", actor, phone.ActorID)
		}
		if phone.NationalID != "12345678" {
			t.Errorf("expected joined national id, got %q", phone.NationalID)
		}
		if _, ok := labels["Patient: obstetric_risk"]; !ok {
			t.Error("expected obstetric_risk entry")
		}
	})

	t.Run("ListFilters", func(t *testing.T) {
		createTestPatient(t, ctx, "22222222", "Valentina", "Soto")

		items, total, err := repo.List(ctx, patient.Filter{Query: "rojas"}, 20, 0)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if total != 1 || len(items) != 1 || items[0].ID != created.ID {
			t.Errorf("expected only Camila Rojas, got total=%d", total)
		}

		_, total, err = repo.List(ctx, patient.Filter{ObstetricRisk: "high"}, 20, 0)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if total != 1 {
			t.Errorf("expected 1 high risk patient, got %d", total)
		}
	})

	t.Run("FindSimilar", func(t *testing.T) {
		similar, err := repo.FindSimilar(ctx, patient.SimilarQuery{
			PaternalSurname: "ROJAS",
			BirthDate:       civil.MustParse("1992-05-17"),
			Limit:           3,
		})
		if err != nil {
			t.Fatalf("FindSimilar: %v", err)
		}
		if len(similar) != 1 || similar[0].ID != created.ID {
			t.Errorf("expected Camila Rojas as similar, got %d results", len(similar))
		}
	})
}

func TestClinicalCaseCRUD(t *testing.T) {
	resetClinicalData(t)
	ctx, actor := actorCtx()
	mother := createTestPatient(t, ctx, "33333333", "Fernanda", "Muñoz")
	svc := newPatientService()

	c := &patient.ClinicalCase{
		PatientID:              mother.ID,
		Title:                  "Gestational diabetes",
		Summary:                "Referred from primary care",
		Specialty:              "obstetrics",
		ResponsibleClinicianID: actor,
	}
	if err := svc.CreateCase(ctx, c); err != nil {
		t.Fatalf("CreateCase: %v", err)
	}
	if c.Status != patient.CaseStatusOpen || c.Priority != patient.CasePriorityMedium {
		t.Errorf("unexpected defaults status=%s priority=%s", c.Status, c.Priority)
	}

	c.Status = "closed"
	if err := svc.UpdateCase(context.Background(), c); err != nil {
		t.Fatalf("UpdateCase: %v", err)
	}

	items, total, err := svc.ListCases(ctx, patient.CaseFilter{PatientID: &mother.ID}, 20, 0)
	if err != nil {
		t.Fatalf("ListCases: %v", err)
	}
	if total != 1 || items[0].Status != "closed" {
		t.Errorf("expected the closed case, got total=%d", total)
	}
}
