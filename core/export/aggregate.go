// Package export assembles the printable daily report: occurrence
// partitioning, the CVLI summary table and the PDF rendering.
package export

import (
	"fmt"
	"strings"
	"time"

	"rpi-diario/core/milidate"
	"rpi-diario/core/store"
)

// cvliNatures is the fixed allow-list of nature names counted as violent
// lethal crime (CVLI). Matching is done on the upper-cased nature name.
var cvliNatures = map[string]struct{}{
	"HOMICÍDIO DECORRENTE DE OPOSIÇÃO A INTERVENÇÃO POLICIAL":            {},
	"HOMICÍDIO DOLOSO":                                                   {},
	"HOMICÍDIO DOLOSO NA DIREÇÃO DE VEÍCULO AUTOMOTOR":                   {},
	"INDUZIMENTO, INSTIGAÇÃO OU AUXÍLIO AO SUICÍDIO OU A AUTOMUTILAÇÃO":  {},
	"FEMINICÍDIO":                                                        {},
	"ABORTO":                                                             {},
	"LESÃO CORPORAL SEGUIDA DE MORTE":                                    {},
	"ROUBO A PEDESTRE COM MORTE":                                         {},
	"ROUBO A RESIDÊNCIA COM MORTE":                                       {},
	"ROUBO A COMÉRCIO COM MORTE":                                         {},
	"ROUBO A MOTORISTA COM MORTE":                                        {},
	"ROUBO DE ARMA COM MORTE":                                            {},
	"ROUBO DE VEÍCULO COM MORTE":                                         {},
	"ROUBO A ESTABELECIMENTO BANCÁRIO COM MORTE":                         {},
	"ROUBO COM MORTE":                                                    {},
}

const instrumentPlaceholder = "NÃO INFORMADO"

func IsCVLI(natureName string) bool {
	_, ok := cvliNatures[strings.ToUpper(strings.TrimSpace(natureName))]
	return ok
}

type Entry struct {
	Occurrence store.Occurrence
	Letter     string // set on CVLI entries only
}

type SummaryRow struct {
	Municipality string
	UnitAcronym  string
	Victims      int
	Instrument   string
}

type UnitTotal struct {
	UnitAcronym string
	Victims     int
}

type Report struct {
	Report  *store.ShiftReport
	General []Entry
	CVLI    []Entry
	// CVLIItemNumber is the item number the CVLI block is listed under,
	// following the general occurrences.
	CVLIItemNumber int
	Summary        []SummaryRow
	UnitTotals     []UnitTotal
	TotalVictims   int
	UnitLine       string
	StartMil       string
	EndMil         string
}

// Aggregate partitions the occurrences into general and CVLI groups and
// builds the victim summary keyed by unit acronym. Occurrences are expected
// pre-ordered by occurrence time.
func Aggregate(rep *store.ShiftReport, occs []store.Occurrence, loc *time.Location) *Report {
	if loc == nil {
		loc = time.Local
	}
	out := &Report{
		Report:   rep,
		StartMil: milidate.Format(rep.StartedAt.In(loc)),
		EndMil:   milidate.Format(rep.EndedAt.In(loc)),
	}
	for _, occ := range occs {
		entry := Entry{Occurrence: occ}
		if IsCVLI(occ.NatureName) {
			out.CVLI = append(out.CVLI, entry)
		} else {
			out.General = append(out.General, entry)
		}
	}
	out.CVLIItemNumber = len(out.General) + 1
	for i := range out.CVLI {
		out.CVLI[i].Letter = string(rune('a' + i))
	}

	totals := map[string]int{}
	var order []string
	for _, entry := range out.CVLI {
		occ := entry.Occurrence
		acronym := UnitAcronym(occ)
		victims := 0
		for _, p := range occ.Parties {
			if p.Role == store.RoleVictim {
				victims++
			}
		}
		// Keep the table from zeroing out when no victim was registered.
		if victims == 0 {
			victims = 1
		}
		instrument := strings.TrimSpace(occ.Instrument)
		if instrument == "" {
			instrument = instrumentPlaceholder
		}
		if _, seen := totals[acronym]; !seen {
			order = append(order, acronym)
		}
		totals[acronym] += victims
		out.Summary = append(out.Summary, SummaryRow{
			Municipality: occ.Municipality,
			UnitAcronym:  acronym,
			Victims:      victims,
			Instrument:   instrument,
		})
	}
	var parts []string
	for _, acronym := range order {
		out.UnitTotals = append(out.UnitTotals, UnitTotal{UnitAcronym: acronym, Victims: totals[acronym]})
		out.TotalVictims += totals[acronym]
		parts = append(parts, fmt.Sprintf("%d - %s", totals[acronym], acronym))
	}
	out.UnitLine = strings.Join(parts, ", ")
	return out
}

// UnitAcronym prefers the unit's registered acronym and falls back to the
// prefix of the unit name before " - ".
func UnitAcronym(occ store.Occurrence) string {
	if a := strings.TrimSpace(occ.UnitAcronym); a != "" {
		return a
	}
	return strings.TrimSpace(strings.SplitN(occ.UnitName, " - ", 2)[0])
}

// FileName builds the download name with the report number and start date.
func FileName(rep *store.ShiftReport) string {
	number := strings.ReplaceAll(rep.Number(), "/", "-")
	return fmt.Sprintf("relatorio_%s_%s.pdf", number, rep.StartedAt.Format("2006-01-02"))
}
