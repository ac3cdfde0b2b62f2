package domain

import (
	"fmt"
	"strconv"
	"time"
)

// Unknown marks a lead field the search could not determine. Exports carry
// this marker instead of an empty string so "absent" is distinguishable
// from "not yet checked".
const Unknown = "unknown"

// Lead is a normalized business candidate produced from one raw provider
// result. Leads are immutable once built.
type Lead struct {
	CompanyName       string    `json:"company_name"`
	Address           string    `json:"address"`
	Phone             string    `json:"phone"`
	Email             string    `json:"email"`
	Website           string    `json:"website"`
	Sector            string    `json:"sector"`
	EmployeesEstimate string    `json:"employees_estimate"`
	RevenueEstimate   string    `json:"revenue_estimate"`
	QualityScore      float64   `json:"quality_score"`
	Source            string    `json:"source"`
	CapturedAt        time.Time `json:"captured_at"`
}

// LeadCSVHeader is the column order used by CSVRecord and LeadFromCSVRecord.
var LeadCSVHeader = []string{
	"company_name", "address", "phone", "email", "website", "sector",
	"employees_estimate", "revenue_estimate", "quality_score", "source", "captured_at",
}

// CSVRecord renders the lead as one CSV row matching LeadCSVHeader.
func (l Lead) CSVRecord() []string {
	return []string{
		l.CompanyName,
		l.Address,
		l.Phone,
		l.Email,
		l.Website,
		l.Sector,
		l.EmployeesEstimate,
		l.RevenueEstimate,
		strconv.FormatFloat(l.QualityScore, 'f', -1, 64),
		l.Source,
		l.CapturedAt.Format(time.RFC3339),
	}
}

// LeadFromCSVRecord parses a row produced by CSVRecord.
func LeadFromCSVRecord(rec []string) (Lead, error) {
	if len(rec) != len(LeadCSVHeader) {
		return Lead{}, fmt.Errorf("expected %d columns, got %d", len(LeadCSVHeader), len(rec))
	}
	score, err := strconv.ParseFloat(rec[8], 64)
	if err != nil {
		return Lead{}, fmt.Errorf("parse quality_score: %w", err)
	}
	capturedAt, err := time.Parse(time.RFC3339, rec[10])
	if err != nil {
		return Lead{}, fmt.Errorf("parse captured_at: %w", err)
	}
	return Lead{
		CompanyName:       rec[0],
		Address:           rec[1],
		Phone:             rec[2],
		Email:             rec[3],
		Website:           rec[4],
		Sector:            rec[5],
		EmployeesEstimate: rec[6],
		RevenueEstimate:   rec[7],
		QualityScore:      score,
		Source:            rec[9],
		CapturedAt:        capturedAt,
	}, nil
}
