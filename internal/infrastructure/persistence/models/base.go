package models

// RecordModel is the surrogate key shared by the unified tables
type RecordModel struct {
	RecordID int64 `gorm:"column:record_id;primaryKey;autoIncrement"`
}
