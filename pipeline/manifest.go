package pipeline

import "encoding/json"

// ManifestEntry is one function's line in manifest.json.
type ManifestEntry struct {
	Entry     uint32 `json:"entry"`
	Symbol    string `json:"symbol"`
	State     string `json:"state"`
	FailedAt  string `json:"failed_at,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// Manifest is the per-run summary spec.md §4's supplemented features call
// for: function count, per-function terminal state, and each function's
// total elapsed time (no per-stage breakdown). Written into the output
// directory as manifest.json.
type Manifest struct {
	FunctionCount int             `json:"function_count"`
	Succeeded     int             `json:"succeeded"`
	Failed        int             `json:"failed"`
	Functions     []ManifestEntry `json:"functions"`
}

func buildManifest(results []FunctionResult) Manifest {
	m := Manifest{FunctionCount: len(results), Functions: make([]ManifestEntry, len(results))}
	for i, r := range results {
		e := ManifestEntry{Entry: r.Entry, Symbol: r.Symbol, State: r.Stage.String(), ElapsedMS: r.Elapsed.Milliseconds()}
		if r.Stage == Failed {
			e.FailedAt = r.FailedAt.String()
			m.Failed++
		} else {
			m.Succeeded++
		}
		m.Functions[i] = e
	}
	return m
}

// MarshalIndent renders the manifest as indented JSON, ready to write to
// manifest.json.
func (m Manifest) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}
