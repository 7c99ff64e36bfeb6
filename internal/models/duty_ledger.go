// internal/models/duty_ledger.go

package models

type DutyLedgerEntry struct {
	Hero               string `gorm:"primaryKey" json:"hero"`
	Member             string `gorm:"primaryKey" json:"member"`
	AccumulatedSeconds int64  `gorm:"not null;default:0" json:"accumulated_seconds"`
	LastReconciledAt   int64  `json:"last_reconciled_at"` // copy of the hero watermark
	FirstDutyAt        int64  `json:"first_duty_at,omitempty"`
	LastDutyAt         int64  `json:"last_duty_at,omitempty"`
}

func (DutyLedgerEntry) TableName() string {
	return "duty_ledger"
}
