package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Health record data types known to the server. The set accepted for
// ingestion is configurable; these are the defaults.
const (
	DataTypeHeartRate       = "heart_rate"
	DataTypeSteps           = "steps"
	DataTypeCalories        = "calories"
	DataTypeDistance        = "distance"
	DataTypeSleep           = "sleep"
	DataTypeBloodPressure   = "blood_pressure"
	DataTypeBloodOxygen     = "blood_oxygen"
	DataTypeBodyTemperature = "body_temperature"
	DataTypeLocation        = "location"
	DataTypeWorkout         = "workout"
)

// HealthRecord is one accepted measurement. Timestamp is the capture time
// in Unix milliseconds as reported by the device; CreatedAt is the server
// arrival time. Metadata holds the sanitized document exactly as stored.
type HealthRecord struct {
	ID        string          `json:"id"`
	DeviceID  string          `json:"deviceId"`
	DataType  string          `json:"dataType"`
	Timestamp int64           `json:"timestamp"`
	Value     float64         `json:"value"`
	Unit      string          `json:"unit,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	SourceApp string          `json:"sourceApp,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewHealthRecord creates an accepted record with a fresh identifier.
func NewHealthRecord(deviceID, dataType string, timestamp int64, value float64) (*HealthRecord, error) {
	deviceID = strings.TrimSpace(deviceID)
	dataType = strings.TrimSpace(dataType)

	if deviceID == "" {
		return nil, ErrEmptyRecordDevice
	}
	if dataType == "" {
		return nil, ErrEmptyDataType
	}

	return &HealthRecord{
		ID:        uuid.New().String(),
		DeviceID:  deviceID,
		DataType:  dataType,
		Timestamp: timestamp,
		Value:     value,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Record errors
var (
	ErrEmptyRecordDevice = RecordError{"record device id cannot be empty"}
	ErrEmptyDataType     = RecordError{"record data type cannot be empty"}
)

type RecordError struct {
	Message string
}

func (e RecordError) Error() string {
	return e.Message
}
