package store

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrConflict signals an optimistic-concurrency or uniqueness clash.
	ErrConflict = errors.New("conflict")
	// ErrReferenced blocks catalog deletes while rows still point at the entry.
	ErrReferenced = errors.New("referenced")
)

type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	FullName     string     `json:"fullName"`
	Rank         string     `json:"rank"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	IsStaff      bool       `json:"isStaff"`
	Active       bool       `json:"active"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type SessionRecord struct {
	ID         string
	UserID     int64
	Username   string
	Roles      []string
	CSRFToken  string
	IP         string
	UserAgent  string
	CreatedAt  time.Time
	LastSeenAt time.Time
	ExpiresAt  time.Time
}

type AuditEntry struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"createdAt"`
}

// Catalog rows. Natures carry an impact flag used by the analytics views and
// free-form search tags for the autocomplete endpoint.
type Nature struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Impact     string `json:"impact"`
	SearchTags string `json:"searchTags,omitempty"`
}

type Municipality struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Unit struct {
	ID             int64  `json:"id"`
	Acronym        string `json:"acronym"`
	Name           string `json:"name"`
	MunicipalityID *int64 `json:"municipalityId,omitempty"`
}

type MaterialType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Instrument struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

const (
	ImpactPositive = "positive"
	ImpactNegative = "negative"
)

type ShiftReport struct {
	ID          int64     `json:"id"`
	Nr          int64     `json:"nr"`
	Year        int       `json:"year"`
	OwnerUserID int64     `json:"ownerUserId"`
	OwnerName   string    `json:"ownerName,omitempty"`
	StartedAt   time.Time `json:"startedAt"`
	EndedAt     time.Time `json:"endedAt"`
	Finalized   bool      `json:"finalized"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Number renders the display form NNN/YYYY.
func (r *ShiftReport) Number() string {
	if r == nil {
		return ""
	}
	return fmt.Sprintf("%03d/%d", r.Nr, r.Year)
}

const (
	ActionConsummated = "consummated"
	ActionAttempted   = "attempted"
)

const (
	RoleVictim   = "victim"
	RoleAuthor   = "author"
	RoleArrested = "arrested"
	RoleWitness  = "witness"
	RoleSuspect  = "suspect"
)

// PartyRoleLabels maps the stored role onto the pt-BR display label used in
// listings and the PDF.
var PartyRoleLabels = map[string]string{
	RoleVictim:   "Vítima",
	RoleAuthor:   "Autor",
	RoleArrested: "Preso",
	RoleWitness:  "Testemunha",
	RoleSuspect:  "Suspeito",
}

type Occurrence struct {
	ID             int64      `json:"id"`
	ReportID       int64      `json:"reportId"`
	NatureID       int64      `json:"natureId"`
	NatureName     string     `json:"natureName,omitempty"`
	UnitID         int64      `json:"unitId"`
	UnitAcronym    string     `json:"unitAcronym,omitempty"`
	UnitName       string     `json:"unitName,omitempty"`
	MunicipalityID *int64     `json:"municipalityId,omitempty"`
	Municipality   string     `json:"municipality,omitempty"`
	InstrumentID   *int64     `json:"instrumentId,omitempty"`
	Instrument     string     `json:"instrument,omitempty"`
	OccurredToken  string     `json:"occurredToken"`
	OccurredAt     time.Time  `json:"occurredAt"`
	Action         string     `json:"action"`
	Summary        string     `json:"summary"`
	Narrative      string     `json:"narrative"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`

	Parties  []InvolvedParty   `json:"parties,omitempty"`
	Seizures []SeizedItem      `json:"seizures,omitempty"`
	Photos   []OccurrencePhoto `json:"photos,omitempty"`
}

type InvolvedParty struct {
	ID           int64  `json:"id"`
	OccurrenceID int64  `json:"occurrenceId"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	Age          *int   `json:"age,omitempty"`
}

type SeizedItem struct {
	ID             int64   `json:"id"`
	OccurrenceID   int64   `json:"occurrenceId"`
	MaterialTypeID int64   `json:"materialTypeId"`
	MaterialName   string  `json:"materialName,omitempty"`
	Quantity       float64 `json:"quantity"`
	UnitOfMeasure  string  `json:"unitOfMeasure"`
}

type OccurrencePhoto struct {
	ID           int64     `json:"id"`
	OccurrenceID int64     `json:"occurrenceId"`
	FilePath     string    `json:"filePath"`
	Caption      string    `json:"caption"`
	ContentType  string    `json:"contentType"`
	SizeBytes    int64     `json:"sizeBytes"`
	CreatedAt    time.Time `json:"createdAt"`
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
