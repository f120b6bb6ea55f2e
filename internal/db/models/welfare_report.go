package models

import (
	"encoding/json"
	"time"
)

// ReportPeriodDaily is the only period type the aggregator currently produces.
const ReportPeriodDaily = "daily"

// ReportSchemaVersion is bumped whenever the payload shape changes.
const ReportSchemaVersion = 1

// HourlyBucket summarizes one local hour of a report day. All 24 buckets are
// always present; an hour without events has Total 0, a nil Dominant and an
// empty Counts map.
type HourlyBucket struct {
	Hour     int            `json:"hour"`
	Total    int            `json:"total"`
	Dominant *string        `json:"dominant"`
	Counts   map[string]int `json:"counts"`
}

// ReportAlert is the lightweight alert record embedded in a report payload.
type ReportAlert struct {
	AlertID  string    `json:"alert_id"`
	Type     string    `json:"type"`
	Severity string    `json:"severity"`
	State    string    `json:"state"`
	TS       time.Time `json:"ts"`
	Summary  string    `json:"summary"`
}

// ReportPayload is the versioned structured payload of a welfare report.
type ReportPayload struct {
	SchemaVersion int            `json:"schema_version"`
	Hourly        []HourlyBucket `json:"hourly"`
	DailyTotals   map[string]int `json:"daily_totals"`
	Alerts        []ReportAlert  `json:"alerts"`
}

// ReportPayloadSchema is the JSON schema every payload is validated against
// before storing, to catch shape drift between the Go types and stored rows.
const ReportPayloadSchema = `{
	"type": "object",
	"required": ["schema_version", "hourly", "daily_totals", "alerts"],
	"properties": {
		"schema_version": {"type": "integer", "minimum": 1},
		"hourly": {
			"type": "array",
			"minItems": 24,
			"maxItems": 24,
			"items": {
				"type": "object",
				"required": ["hour", "total", "dominant", "counts"],
				"properties": {
					"hour": {"type": "integer", "minimum": 0, "maximum": 23},
					"total": {"type": "integer", "minimum": 0},
					"dominant": {"type": ["string", "null"]},
					"counts": {
						"type": "object",
						"additionalProperties": {"type": "integer", "minimum": 0}
					}
				}
			}
		},
		"daily_totals": {
			"type": "object",
			"additionalProperties": {"type": "integer", "minimum": 0}
		},
		"alerts": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["alert_id", "type", "severity", "state", "ts", "summary"]
			}
		}
	}
}`

// WelfareReport is one aggregated row per (animal, period type, period). The
// aggregator upserts it: regenerating the same period overwrites in place.
type WelfareReport struct {
	ID          string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	AnimalID    string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_reports_period,priority:1" json:"animal_id"`
	PeriodType  string    `gorm:"type:varchar(16);not null;uniqueIndex:idx_reports_period,priority:2" json:"period_type"`
	PeriodStart time.Time `gorm:"not null;uniqueIndex:idx_reports_period,priority:3" json:"period_start"`
	PeriodEnd   time.Time `gorm:"not null;uniqueIndex:idx_reports_period,priority:4" json:"period_end"`
	AlertsCount int       `json:"alerts_count"`
	GeneratedBy string    `gorm:"type:varchar(128)" json:"generated_by"`
	GeneratedAt time.Time `json:"generated_at"`
	Payload     string    `gorm:"type:jsonb" json:"payload"`
}

// TableName overrides the table name for WelfareReport
func (WelfareReport) TableName() string {
	return "welfare_reports"
}

// SetPayload serializes p into the Payload column.
func (r *WelfareReport) SetPayload(p *ReportPayload) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	r.Payload = string(raw)
	return nil
}

// PayloadData deserializes the Payload column.
func (r *WelfareReport) PayloadData() (*ReportPayload, error) {
	var p ReportPayload
	if err := json.Unmarshal([]byte(r.Payload), &p); err != nil {
		return nil, err
	}
	return &p, nil
}
