package models

// LoggerInterval is one entry of the global catalogue of selectable sampling periods
type LoggerInterval struct {
	ID              int    `json:"id"`
	IntervalSeconds int    `json:"interval_seconds"`
	IntervalName    string `json:"interval_name"`
}

// Validate checks the interval entry is usable
func (i *LoggerInterval) Validate() bool {
	return i.IntervalSeconds > 0 && i.IntervalName != ""
}

// DefaultIntervals is the catalogue seeded on first migration
func DefaultIntervals() []LoggerInterval {
	return []LoggerInterval{
		{IntervalSeconds: 10, IntervalName: "10 Seconds"},
		{IntervalSeconds: 30, IntervalName: "30 Seconds"},
		{IntervalSeconds: 60, IntervalName: "1 Minute"},
		{IntervalSeconds: 300, IntervalName: "5 Minutes"},
		{IntervalSeconds: 900, IntervalName: "15 Minutes"},
		{IntervalSeconds: 3600, IntervalName: "1 Hour"},
	}
}
