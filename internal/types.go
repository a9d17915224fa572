package internal

import "time"

type ContractStatus string

const (
	StatusAnalysis ContractStatus = "analysis"
	StatusProposal ContractStatus = "proposal"
	StatusActive   ContractStatus = "active"
	StatusRejected ContractStatus = "rejected"
	StatusProbono  ContractStatus = "probono"
)

var ContractStatuses = []ContractStatus{StatusAnalysis, StatusProposal, StatusActive, StatusRejected, StatusProbono}

type ImportSource string

const (
	SourceJSON ImportSource = "json"
	SourceXLSX ImportSource = "xlsx"
	SourceHTML ImportSource = "html"
)

const (
	ImportStored    = "stored"
	ImportProcessed = "processed"
	ImportExported  = "exported"
	ImportFailed    = "failed"
)

type ImportRow struct {
	ID        int
	Name      string
	Source    string
	Hash      string
	Status    string
	RawRef    string
	LastError *string
	CreatedAt string
}

type RawRecord struct {
	LineNo     int
	Source     ImportSource
	ExternalID *string
	Fields     map[string]any
	RawJSON    string
}

type ContractSummary struct {
	LineNo            int
	ContractID        string
	ClientName        string
	PartnerName       string
	Status            ContractStatus
	ProLabore         float64
	Success           float64
	Monthly           float64
	EntryDate         time.Time
	EntryFromFallback bool
	EntryMonth        string
	ProspectDate      *string
	ProposalDate      *string
	ContractDate      *string
	RejectionDate     *string
	ProbonoDate       *string
	PhysicalSignature bool
	MalformedFields   []string
}

type Installment struct {
	ID                string
	ContractID        string
	Type              string
	InstallmentNumber int
	TotalInstallments int
	Amount            float64
	DueDate           string
	Clause            *string
	Status            string
}
