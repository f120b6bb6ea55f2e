package models

import (
	"fmt"
	"time"
)

// AlertType identifies which welfare rule raised an alert.
type AlertType string

const (
	AlertTypeAbnormalBehavior  AlertType = "abnormal_behavior"
	AlertTypeLowFeeding        AlertType = "low_feeding"
	AlertTypeLowActivity       AlertType = "low_activity"
	AlertTypeAgitation         AlertType = "agitation"
	AlertTypeExcessiveActivity AlertType = "excessive_activity"
	AlertTypeIsolation         AlertType = "isolation"
	AlertTypeApathy            AlertType = "apathy"
)

// AlertSeverity grades an alert.
type AlertSeverity string

const (
	SeverityLow    AlertSeverity = "low"
	SeverityMedium AlertSeverity = "medium"
	SeverityHigh   AlertSeverity = "high"
)

// AlertState is the lifecycle state. Transitions are one-way: open -> closed.
// An alert is never reopened or deleted.
type AlertState string

const (
	AlertStateOpen   AlertState = "open"
	AlertStateClosed AlertState = "closed"
)

// Valid reports whether s is a known alert state.
func (s AlertState) Valid() bool {
	return s == AlertStateOpen || s == AlertStateClosed
}

// Alert is a welfare alert raised by the rule engine. The primary key is
// derived from (animal, type, timestamp), so a retried insert of the same
// alert collides instead of duplicating.
type Alert struct {
	AlertID  string        `gorm:"primaryKey;type:varchar(160)" json:"alert_id"`
	AnimalID string        `gorm:"type:varchar(64);not null;index:idx_alerts_animal_ts,priority:1" json:"animal_id"`
	Type     AlertType     `gorm:"type:varchar(32);not null" json:"type"`
	Severity AlertSeverity `gorm:"type:varchar(16);not null" json:"severity"`
	Summary  string        `gorm:"type:text" json:"summary"`
	State    AlertState    `gorm:"type:varchar(16);not null;default:'open'" json:"state"`
	TS       time.Time     `gorm:"not null;index:idx_alerts_animal_ts,priority:2" json:"ts"`
	AckBy    string        `gorm:"type:varchar(128)" json:"ack_by,omitempty"`
	AckTime  *time.Time    `json:"ack_time,omitempty"`
}

// TableName overrides the table name for Alert
func (Alert) TableName() string {
	return "alerts"
}

// NewAlertID derives the alert identifier from its natural key.
func NewAlertID(animalID string, alertType AlertType, ts time.Time) string {
	return fmt.Sprintf("al-%s-%s-%d", animalID, alertType, ts.Unix())
}
