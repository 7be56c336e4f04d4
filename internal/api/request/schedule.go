package request

type SetSchedule struct {
	Enabled        bool `json:"enabled"`
	IntervalHours  int  `json:"interval_hours" validate:"required,min=1"`
	RetentionCount int  `json:"retention_count" validate:"required,min=1"`
}
