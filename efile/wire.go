/*
wire.go - External wire format for the e-filing authority

PURPOSE:
  Serializes a FilingRecord into the hierarchical XML document the remote
  system expects: a ReturnHeader (tax year, period, form type, filer
  identity) and a ReturnData body carrying every wage, tax and deposit
  field as named numeric elements.

VERSIONING:
  Element names are stable and the document carries a schema version
  attribute. The remote system rejects unknown versions, so bumping
  WireVersion is a coordinated change.

CANONICAL BYTES:
  Marshal output is deterministic for a given record (fixed element order,
  fixed two-decimal formatting), so the signature computed over the bytes
  is reproducible for audit.

SEE ALSO:
  - signer.go: Signs the serialized bytes
  - gateway.go: Sends the signed payload
*/
package efile

import (
	"encoding/xml"
	"fmt"

	"github.com/warp/filing-engine/filing"
)

// WireVersion is the schema version stamped on every document.
const WireVersion = "2024v1"

// =============================================================================
// DOCUMENT STRUCTURE
// =============================================================================

// ReturnDocument is the root of the submission payload.
type ReturnDocument struct {
	XMLName xml.Name     `xml:"Return"`
	Version string       `xml:"version,attr"`
	Header  ReturnHeader `xml:"ReturnHeader"`
	Data    ReturnData   `xml:"ReturnData"`
}

// ReturnHeader identifies the period and the filer.
type ReturnHeader struct {
	TaxYear  int    `xml:"TaxYear"`
	Quarter  int    `xml:"Quarter,omitempty"`
	FormType string `xml:"FormType"`
	Filer    Filer  `xml:"Filer"`

	// Present only on amendments.
	AmendedReturn *AmendedReturn `xml:"AmendedReturn,omitempty"`
}

// Filer is the employer identity block.
type Filer struct {
	EIN     string `xml:"EIN"`
	Name    string `xml:"Name"`
	Address string `xml:"Address"`
	City    string `xml:"City"`
	State   string `xml:"State"`
	Zip     string `xml:"Zip"`
}

// AmendedReturn references the accepted original being corrected.
type AmendedReturn struct {
	OriginalSubmissionID string `xml:"OriginalSubmissionId"`
	Reason               string `xml:"Reason"`
}

// ReturnData is the form body. All amounts are fixed two-decimal strings.
type ReturnData struct {
	EmployeeCount             int    `xml:"EmployeeCount"`
	TotalWages                string `xml:"TotalWages"`
	FederalIncomeTaxWithheld  string `xml:"FederalIncomeTaxWithheld"`
	SocialSecurityWages       string `xml:"SocialSecurityWages"`
	SocialSecurityTax         string `xml:"SocialSecurityTax"`
	MedicareWages             string `xml:"MedicareWages"`
	MedicareTax               string `xml:"MedicareTax"`
	AdditionalMedicareTax     string `xml:"AdditionalMedicareTax"`
	TotalTaxBeforeAdjustments string `xml:"TotalTaxBeforeAdjustments"`
	TotalAdjustments          string `xml:"TotalAdjustments"`
	TotalTaxAfterAdjustments  string `xml:"TotalTaxAfterAdjustments"`

	// Annual (unemployment) body, omitted on quarterly returns.
	UnemploymentTaxableWages string `xml:"UnemploymentTaxableWages,omitempty"`
	UnemploymentTax          string `xml:"UnemploymentTax,omitempty"`

	DepositSchedule string         `xml:"DepositSchedule"`
	Deposits        []WireDeposit  `xml:"Deposits>Deposit"`
	ScheduleB       *WireScheduleB `xml:"ScheduleB,omitempty"`
}

// WireDeposit is one deposit liability line.
type WireDeposit struct {
	DueDate string `xml:"DueDate"`
	Amount  string `xml:"Amount"`
	Covers  string `xml:"Covers"`
}

// WireScheduleB is the daily-liability supplement.
type WireScheduleB struct {
	Months       []WireScheduleBMonth `xml:"Month"`
	QuarterTotal string               `xml:"QuarterTotal"`
}

type WireScheduleBMonth struct {
	Index int                `xml:"index,attr"`
	Days  []WireScheduleBDay `xml:"Day"`
	Total string             `xml:"Total"`
}

type WireScheduleBDay struct {
	Date   string `xml:"Date"`
	Amount string `xml:"Amount"`
}

// =============================================================================
// BUILDING
// =============================================================================

// BuildReturn assembles the wire document for a filing.
func BuildReturn(record *filing.FilingRecord, employer filing.EmployerAccount) ReturnDocument {
	t := record.Totals
	data := ReturnData{
		EmployeeCount:             t.EmployeeCount,
		TotalWages:                t.TotalWages.StringFixed(2),
		FederalIncomeTaxWithheld:  t.FederalIncomeTaxWithheld.StringFixed(2),
		SocialSecurityWages:       t.SocialSecurityWages.StringFixed(2),
		SocialSecurityTax:         t.SocialSecurityTax.StringFixed(2),
		MedicareWages:             t.MedicareWages.StringFixed(2),
		MedicareTax:               t.MedicareTax.StringFixed(2),
		AdditionalMedicareTax:     t.AdditionalMedicareTax.StringFixed(2),
		TotalTaxBeforeAdjustments: record.TotalTaxBefore.StringFixed(2),
		TotalAdjustments:          record.Adjustments.Total().StringFixed(2),
		TotalTaxAfterAdjustments:  record.TotalTaxAfter.StringFixed(2),
		DepositSchedule:           string(record.Schedule),
	}

	if record.FormType.IsAnnual() {
		data.UnemploymentTaxableWages = record.UnemploymentTaxableWages.StringFixed(2)
		data.UnemploymentTax = record.UnemploymentTax.StringFixed(2)
	}

	for _, d := range record.Deposits {
		data.Deposits = append(data.Deposits, WireDeposit{
			DueDate: d.DueDate.Format("2006-01-02"),
			Amount:  d.Amount.StringFixed(2),
			Covers:  d.Covers,
		})
	}

	if record.ScheduleB != nil {
		sb := &WireScheduleB{QuarterTotal: record.ScheduleB.QuarterTotal.StringFixed(2)}
		for _, m := range record.ScheduleB.Months {
			wm := WireScheduleBMonth{Index: m.MonthIndex, Total: m.Total.StringFixed(2)}
			for _, day := range m.Days {
				wm.Days = append(wm.Days, WireScheduleBDay{
					Date:   day.Date.Format("2006-01-02"),
					Amount: day.Amount.StringFixed(2),
				})
			}
			sb.Months = append(sb.Months, wm)
		}
		data.ScheduleB = sb
	}

	return ReturnDocument{
		Version: WireVersion,
		Header: ReturnHeader{
			TaxYear:  record.Period.Year,
			Quarter:  record.Period.Quarter,
			FormType: string(record.FormType),
			Filer: Filer{
				EIN:     employer.EIN,
				Name:    employer.LegalName,
				Address: employer.Address,
				City:    employer.City,
				State:   employer.State,
				Zip:     employer.Zip,
			},
		},
		Data: data,
	}
}

// WithAmendment attaches the amendment reference to the header.
func (d ReturnDocument) WithAmendment(originalSubmissionID filing.SubmissionID, reason string) ReturnDocument {
	d.Header.AmendedReturn = &AmendedReturn{
		OriginalSubmissionID: string(originalSubmissionID),
		Reason:               reason,
	}
	return d
}

// Marshal produces the canonical serialized bytes.
func (d ReturnDocument) Marshal() ([]byte, error) {
	out, err := xml.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal return document: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}
