package models

import (
	"time"

	"gorm.io/datatypes"
)

// Operation identifies the pipeline stage a trail entry was written for.
type Operation string

const (
	OpExtraction     Operation = "extraction"
	OpTransformation Operation = "transformation"
	OpValidation     Operation = "validation"
	OpIntegration    Operation = "integration"
	OpDeduplication  Operation = "deduplication"
)

// EntryStatus is the outcome recorded on a trail entry.
type EntryStatus string

const (
	StatusSuccess EntryStatus = "success"
	StatusError   EntryStatus = "error"
)

// LogEntry is one immutable record in a supplier's compliance trail.
// Entries are hash-linked: EntryHash is derived from DataHash and
// PreviousHash, so any retroactive edit breaks chain verification.
// Entries are write-once; there is no update or delete path.
type LogEntry struct {
	RowID        uint           `json:"-" gorm:"primaryKey;autoIncrement"`
	TenantID     string         `json:"tenantId" gorm:"not null;index:idx_trail_stream"`
	Supplier     string         `json:"supplier" gorm:"not null;index:idx_trail_stream"`
	Seq          int            `json:"seq"`
	Timestamp    time.Time      `json:"timestamp"`
	Operation    Operation      `json:"operation" gorm:"size:20"`
	EntityID     string         `json:"entityId" gorm:"index"`
	Status       EntryStatus    `json:"status" gorm:"size:10"`
	Detail       string         `json:"detail,omitempty"`
	Fields       datatypes.JSON `json:"fields,omitempty" gorm:"type:jsonb"`
	DataHash     string         `json:"dataHash" gorm:"size:64"`
	PreviousHash string         `json:"previousHash" gorm:"size:64"`
	EntryHash    string         `json:"entryHash" gorm:"size:64"`
}

// ChainVerification is the result of walking a supplier stream from
// genesis to head.
type ChainVerification struct {
	Supplier   string `json:"supplier"`
	Entries    int    `json:"entries"`
	Valid      bool   `json:"valid"`
	BreakIndex *int   `json:"breakIndex,omitempty"`
}

// Timeline is the reconstructed lifecycle of one product, ordered by
// timestamp. Complete is true when all four pipeline stages are present.
type Timeline struct {
	Traceable bool        `json:"traceable"`
	Complete  bool        `json:"complete"`
	ProductID string      `json:"productId"`
	Supplier  string      `json:"supplier"`
	Reason    string      `json:"reason,omitempty"`
	Entries   []LogEntry  `json:"entries"`
	Found     []Operation `json:"operationsFound"`
}

// AuditReport aggregates a supplier stream for compliance review.
type AuditReport struct {
	Supplier         string            `json:"supplier"`
	Status           string            `json:"status"`
	AuditedAt        time.Time         `json:"auditedAt"`
	TotalOperations  int               `json:"totalOperations"`
	OperationsByType map[Operation]int `json:"operationsByType,omitempty"`
	SuccessRate      float64           `json:"successRate"`
	ComplianceStatus string            `json:"complianceStatus,omitempty"`
	Issues           []string          `json:"issues,omitempty"`
}

const (
	AuditStatusNoLogs  = "no_logs"
	AuditStatusAudited = "audited"

	ComplianceCompliant = "compliant"
	ComplianceWarning   = "warning"
)

// RetentionReport lists what a separate archival process should act on.
// The trail itself is never pruned.
type RetentionReport struct {
	RetentionDays      int            `json:"retentionDays"`
	CutoffDate         time.Time      `json:"cutoffDate"`
	EligibleCount      int            `json:"eligibleCount"`
	EligibleBySupplier map[string]int `json:"eligibleBySupplier,omitempty"`
}

// TableName returns the table name for the LogEntry model
func (LogEntry) TableName() string {
	return "compliance_trail"
}
