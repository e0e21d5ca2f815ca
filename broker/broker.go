// Package broker stores and queries run headers: the scan metadata
// records experiment frontends produce. Headers live in a SQLite
// database together with their measurement events.
package broker

import (
	"errors"
	"strings"
	"time"
)

// Common errors for broker operations
var (
	ErrNotFound  = errors.New("run header not found")
	ErrNotUnique = errors.New("query matched more than one run header")
	ErrNoQuery   = errors.New("query has no constraints")
	ErrBadHeader = errors.New("invalid run header")
	ErrNoSuchKey = errors.New("run header has no events for data key")
)

// RunHeader is the metadata record of one scan.
type RunHeader struct {
	UID        string
	ScanID     int64
	Owner      string
	BeamlineID string
	StartTime  time.Time
	// Custom holds free-form metadata fields keyed by name. Nested
	// fields use dotted keys ("calibration.wavelength").
	Custom map[string]string
}

// Validate checks the header has the identifying fields.
func (h *RunHeader) Validate() error {
	if h == nil {
		return ErrBadHeader
	}
	if h.UID == "" {
		return errors.New("run header UID is required")
	}
	if h.BeamlineID == "" {
		return errors.New("beamline ID is required")
	}
	return nil
}

// Event is one measurement within a run: a timestamped value under a
// data key.
type Event struct {
	Seq     int64
	Time    time.Time
	DataKey string
	Value   float64
}

// Query selects run headers by indexed fields. Zero-valued fields do
// not constrain the search.
type Query struct {
	UID        string
	ScanID     int64
	Owner      string
	BeamlineID string
	Since      time.Time
	Until      time.Time
}

// isEmpty reports whether the query constrains nothing.
func (q Query) isEmpty() bool {
	return q.UID == "" && q.ScanID == 0 && q.Owner == "" &&
		q.BeamlineID == "" && q.Since.IsZero() && q.Until.IsZero()
}

// calibrationKeys are the custom-field names that describe detector
// calibration.
var calibrationKeys = map[string]bool{
	"wavelength":          true,
	"energy":              true,
	"detector_distance":   true,
	"calibrated_center_x": true,
	"calibrated_center_y": true,
	"pixel_size_x":        true,
	"pixel_size_y":        true,
}

// Calibration extracts the calibration parameters from a run header's
// custom fields. Parameters may sit at the top level or nested under
// a "calibration." prefix; nested reports which layout was found.
func Calibration(h *RunHeader) (params map[string]string, nested bool, err error) {
	if err := h.Validate(); err != nil {
		return nil, false, err
	}

	params = make(map[string]string)
	for key, value := range h.Custom {
		if name, ok := strings.CutPrefix(key, "calibration."); ok {
			if calibrationKeys[name] {
				params[name] = value
				nested = true
			}
			continue
		}
		if calibrationKeys[key] {
			params[key] = value
		}
	}
	return params, nested, nil
}
