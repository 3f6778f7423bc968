package models

import (
	"encoding/json"
	"time"
)

// ErrorResponse is the uniform error body for non-2xx responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// IngestRequest is one batch submission. All records in a batch share the
// submitting device and data type. DeviceName and DeviceType are optional
// hints used only when the device row does not exist yet.
type IngestRequest struct {
	DeviceID   string      `json:"deviceId"`
	DataType   string      `json:"dataType"`
	DeviceName string      `json:"deviceName,omitempty"`
	DeviceType string      `json:"deviceType,omitempty"`
	Records    []RawRecord `json:"records"`
}

// RawRecord is a record as submitted, before validation. Timestamp and
// Value are pointers so a missing field is distinguishable from zero.
type RawRecord struct {
	Timestamp *int64          `json:"timestamp"`
	Value     *float64        `json:"value"`
	Unit      string          `json:"unit,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	SourceApp string          `json:"sourceApp,omitempty"`
}

// RecordIssue reports one rejected record by its position in the submitted
// batch.
type RecordIssue struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// IngestSummary counts the outcome of a batch.
type IngestSummary struct {
	Total    int `json:"total"`
	Inserted int `json:"inserted"`
	Errors   int `json:"errors"`
}

// IngestResponse is the partial-success outcome of a batch submission.
type IngestResponse struct {
	Success   bool          `json:"success"`
	Processed IngestSummary `json:"processed"`
	Errors    []RecordIssue `json:"errors,omitempty"`
}

// Pagination describes one page of an incremental read. Total counts every
// record matching the filter, not just this page.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

// SyncDataResponse is one page of records newer than the requested
// watermark. LastSyncTimestamp is the server time of this read, for the
// client to acknowledge once it has durably applied the page.
type SyncDataResponse struct {
	Success           bool            `json:"success"`
	Data              []*HealthRecord `json:"data"`
	Pagination        Pagination      `json:"pagination"`
	LastSyncTimestamp int64           `json:"lastSyncTimestamp"`
}

// CursorAckRequest acknowledges applied data up to a watermark.
type CursorAckRequest struct {
	Cursor int64 `json:"cursor"`
}

// CursorResponse reports the stored watermark after an acknowledgement.
type CursorResponse struct {
	Success        bool   `json:"success"`
	DeviceID       string `json:"deviceId"`
	LastSyncCursor int64  `json:"lastSyncCursor"`
}

// StartSessionRequest opens a sync session for a device.
type StartSessionRequest struct {
	DeviceID string `json:"deviceId"`
	Kind     string `json:"kind"`
}

// CompleteSessionRequest closes a session. A non-empty Error marks the
// session failed instead of completed.
type CompleteSessionRequest struct {
	RecordsSynced int    `json:"recordsSynced"`
	Error         string `json:"error,omitempty"`
}

// RegisterDeviceRequest explicitly registers a device. Metadata entries are
// stored as per-device settings.
type RegisterDeviceRequest struct {
	DeviceID string                     `json:"deviceId"`
	Name     string                     `json:"name"`
	Type     string                     `json:"type"`
	Metadata map[string]json.RawMessage `json:"metadata,omitempty"`
}

// DeviceListResponse wraps the device listing.
type DeviceListResponse struct {
	Devices []DeviceResponse `json:"devices"`
	Count   int              `json:"count"`
}

// TypeStat is the per-data-type record tally for one device.
type TypeStat struct {
	DataType        string `json:"dataType"`
	Count           int    `json:"count"`
	LatestTimestamp int64  `json:"latestTimestamp"`
}

// DeviceStatusResponse combines registry state, the most recent session and
// stored record tallies for one device.
type DeviceStatusResponse struct {
	Device        DeviceResponse `json:"device"`
	LatestSession *SyncSession   `json:"latestSession,omitempty"`
	RecordStats   []TypeStat     `json:"recordStats"`
}

// SettingsResponse wraps the settings listing for one device.
type SettingsResponse struct {
	DeviceID string          `json:"deviceId"`
	Settings []DeviceSetting `json:"settings"`
}

// PutSettingRequest sets one setting value.
type PutSettingRequest struct {
	Value json.RawMessage `json:"value"`
}

// TransportStatus is the live state of one sync carrier.
type TransportStatus struct {
	Kind    string `json:"kind"`
	Running bool   `json:"running"`
	Detail  string `json:"detail,omitempty"`
}

// TransportsResponse wraps the carrier listing.
type TransportsResponse struct {
	Transports []TransportStatus `json:"transports"`
}

// AnalyticsSummary is the aggregate of one data type over a time window.
type AnalyticsSummary struct {
	DataType        string  `json:"dataType"`
	DeviceID        string  `json:"deviceId,omitempty"`
	From            int64   `json:"from"`
	To              int64   `json:"to"`
	Count           int     `json:"count"`
	Min             float64 `json:"min"`
	Max             float64 `json:"max"`
	Avg             float64 `json:"avg"`
	LatestTimestamp int64   `json:"latestTimestamp"`
}

// TodayCounters are the since-midnight activity tallies.
type TodayCounters struct {
	RecordsIngested int64 `json:"recordsIngested"`
	RecordsServed   int64 `json:"recordsServed"`
	SessionsStarted int64 `json:"sessionsStarted"`
}

// OverviewResponse is the store-wide analytics snapshot.
type OverviewResponse struct {
	TotalRecords     int64         `json:"totalRecords"`
	ActiveDevices    int           `json:"activeDevices"`
	ConnectedDevices int           `json:"connectedDevices"`
	Today            TodayCounters `json:"today"`
}

// PurgeResponse reports an admin wipe of the record store.
type PurgeResponse struct {
	Success bool  `json:"success"`
	Deleted int64 `json:"deleted"`
}

// HealthResponse is the liveness probe body.
type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}
