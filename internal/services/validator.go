package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/vitalsync/server/internal/models"
)

type valueRange struct {
	min, max float64
}

// Plausible bounds per data type. Values outside are treated as sensor
// glitches and rejected, not stored.
var valueBounds = map[string]valueRange{
	models.DataTypeHeartRate:       {30, 220},
	models.DataTypeSteps:           {0, 100000},
	models.DataTypeBloodOxygen:     {50, 100},
	models.DataTypeBodyTemperature: {30, 45},
}

// Types whose values only need to be non-negative.
var nonNegativeTypes = map[string]bool{
	models.DataTypeCalories: true,
	models.DataTypeDistance: true,
	models.DataTypeSleep:    true,
	models.DataTypeWorkout:  true,
}

// Validator applies the per-record acceptance rules: structural presence,
// capture-time freshness and per-type value domains. One validator instance
// is shared across requests and holds no mutable state.
type Validator struct {
	maxAge      time.Duration
	futureGrace time.Duration
}

// NewValidator creates a validator accepting capture times within
// [now-maxAge, now+futureGrace].
func NewValidator(maxAge, futureGrace time.Duration) *Validator {
	return &Validator{maxAge: maxAge, futureGrace: futureGrace}
}

// ValidateRecord checks one submitted record against the rules for its data
// type. A nil return means the record is acceptable.
func (v *Validator) ValidateRecord(dataType string, rec models.RawRecord, now time.Time) *models.ValidationError {
	if rec.Timestamp == nil {
		return models.NewValidationError("timestamp", "is required")
	}
	if rec.Value == nil {
		return models.NewValidationError("value", "is required")
	}

	ts := *rec.Timestamp
	if ts <= 0 {
		return models.NewValidationError("timestamp", "must be a positive unix millisecond value")
	}
	if ts < now.Add(-v.maxAge).UnixMilli() {
		return models.NewValidationError("timestamp", fmt.Sprintf("is older than the accepted window of %s", v.maxAge))
	}
	if ts > now.Add(v.futureGrace).UnixMilli() {
		return models.NewValidationError("timestamp", "is too far in the future")
	}

	value := *rec.Value
	if bounds, ok := valueBounds[dataType]; ok {
		if value < bounds.min || value > bounds.max {
			return models.NewValidationError("value",
				fmt.Sprintf("must be between %g and %g for %s", bounds.min, bounds.max, dataType))
		}
	} else if nonNegativeTypes[dataType] && value < 0 {
		return models.NewValidationError("value", "cannot be negative")
	}

	switch dataType {
	case models.DataTypeBloodPressure:
		return checkBloodPressure(rec.Metadata)
	case models.DataTypeLocation:
		return checkLocation(rec.Metadata)
	}
	return nil
}

// Blood pressure readings carry their components in metadata; the value
// field alone says nothing about plausibility.
func checkBloodPressure(meta json.RawMessage) *models.ValidationError {
	systolic := gjson.GetBytes(meta, "systolic")
	diastolic := gjson.GetBytes(meta, "diastolic")

	if !systolic.Exists() || !diastolic.Exists() {
		return models.NewValidationError("metadata", "blood_pressure requires systolic and diastolic readings")
	}

	sys, dia := systolic.Float(), diastolic.Float()
	if sys < 70 || sys > 250 {
		return models.NewValidationError("metadata", "systolic must be between 70 and 250")
	}
	if dia < 40 || dia > 150 {
		return models.NewValidationError("metadata", "diastolic must be between 40 and 150")
	}
	if sys <= dia {
		return models.NewValidationError("metadata", "systolic must exceed diastolic")
	}
	return nil
}

func checkLocation(meta json.RawMessage) *models.ValidationError {
	latitude := gjson.GetBytes(meta, "latitude")
	longitude := gjson.GetBytes(meta, "longitude")

	if !latitude.Exists() || !longitude.Exists() {
		return models.NewValidationError("metadata", "location requires latitude and longitude")
	}

	if lat := latitude.Float(); lat < -90 || lat > 90 {
		return models.NewValidationError("metadata", "latitude must be between -90 and 90")
	}
	if lng := longitude.Float(); lng < -180 || lng > 180 {
		return models.NewValidationError("metadata", "longitude must be between -180 and 180")
	}
	return nil
}
