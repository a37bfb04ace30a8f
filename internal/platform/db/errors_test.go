package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "discharge_birth_episode_id_key"}
	wrapped := fmt.Errorf("insert discharge: %w", dup)

	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{"any constraint", wrapped, "", true},
		{"matching constraint", wrapped, "discharge_birth_episode_id_key", true},
		{"other constraint", wrapped, "uq_patient_national_id", false},
		{"check violation", &pgconn.PgError{Code: "23514"}, "", false},
		{"plain error", errors.New("boom"), "", false},
		{"nil", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUniqueViolation(tt.err, tt.constraint); got != tt.want {
				t.Errorf("IsUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(fmt.Errorf("get patient: %w", pgx.ErrNoRows)) {
		t.Error("expected wrapped ErrNoRows to be not found")
	}
	if IsNotFound(errors.New("timeout")) {
		t.Error("expected other errors not to be not found")
	}
}
