package network

import (
	"encoding/json"
	"testing"
	"time"
)

// FuzzStepEventParsing tests step event JSON parsing with random inputs.
// Run with: go test -fuzz=FuzzStepEventParsing -fuzztime=30s ./network/
func FuzzStepEventParsing(f *testing.F) {
	// Seed corpus with valid events
	validEvent := StepEvent{
		Type:       EventStepCompleted,
		StepID:     "step-1",
		Success:    true,
		DurationMs: 4.2,
		WorkerID:   1,
		Timestamp:  time.Now(),
	}
	validJSON, _ := json.Marshal(validEvent)
	f.Add(validJSON)

	f.Add([]byte(`{"type":"step_failed","step_id":"s","success":false,"error":"boom"}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`[]`))
	f.Add([]byte(`null`))
	f.Add([]byte(`"string"`))
	f.Add([]byte(`{"type":"","step_id":"","duration_ms":-1}`))

	f.Fuzz(func(t *testing.T, data []byte) {
		// Should not panic regardless of input
		var event StepEvent
		err := json.Unmarshal(data, &event)
		if err == nil {
			// If parsing succeeded, verify we can marshal it back
			_, _ = json.Marshal(event)
		}
	})
}
