// Package investor models the parties contributing funds and their onboarding
// lifecycle. Screening results live on the investor record; the screening
// process itself is an external vendor concern.
package investor

import (
	"time"

	"seedfund/internal/compliance"
)

type EntityType string

const (
	EntityIndividual EntityType = "individual"
	EntityCompany    EntityType = "entity"
)

type AccreditationStatus string

const (
	AccreditationAccredited AccreditationStatus = "accredited"
	AccreditationQualified  AccreditationStatus = "qualified"
	AccreditationPending    AccreditationStatus = "pending"
)

// Investor is the onboarded party record. New registrations start with
// kyc=pending / aml=under_review until screening callbacks update them.
type Investor struct {
	ID            string
	LegalName     string
	Email         string
	EntityType    EntityType
	Accreditation AccreditationStatus
	Jurisdiction  string
	KYC           compliance.KYCStatus
	AML           compliance.AMLStatus
	CreatedAt     time.Time
}

// ComplianceRecord projects the investor onto the read-only snapshot the
// zero-trust verifier gates on.
func (i Investor) ComplianceRecord() compliance.Record {
	return compliance.Record{
		InvestorID:    i.ID,
		KYC:           i.KYC,
		AML:           i.AML,
		Accreditation: string(i.Accreditation),
	}
}
