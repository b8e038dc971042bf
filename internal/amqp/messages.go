package amqp

import (
	"encoding/json"
	"time"
)

// ReportSyncMessage asks the worker to mirror one monthly report to the
// external sheet. It carries only the report id; the worker fetches the full
// row from the database so the queue never holds stale report data.
type ReportSyncMessage struct {
	ReportID  int64     `json:"reportId"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReportSyncMessage(reportID int64) *ReportSyncMessage {
	return &ReportSyncMessage{
		ReportID:  reportID,
		Timestamp: time.Now(),
	}
}

func (m *ReportSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReportSyncMessageFromJSON(data []byte) (*ReportSyncMessage, error) {
	var msg ReportSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
