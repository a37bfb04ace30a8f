package catalog

import "github.com/google/uuid"

// Clinic maps to the clinic table: the primary care center a patient is
// registered at.
type Clinic struct {
	ID      uuid.UUID `db:"id" json:"id"`
	Name    string    `db:"name" json:"name"`
	Commune string    `db:"commune" json:"commune"`
	Active  bool      `db:"active" json:"active"`
}

// Nationality maps to the nationality table. Code is a 3-letter country code.
type Nationality struct {
	Code   string `db:"code" json:"code"`
	Name   string `db:"name" json:"name"`
	Active bool   `db:"active" json:"active"`
}

type IndigenousGroup struct {
	ID     uuid.UUID `db:"id" json:"id"`
	Name   string    `db:"name" json:"name"`
	Active bool      `db:"active" json:"active"`
}

type BirthType struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Active      bool      `db:"active" json:"active"`
}
