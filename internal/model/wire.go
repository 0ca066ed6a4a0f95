package model

import "encoding/json"

// Attraction is the wire shape of one gate's pax/used pair, keyed by gate
// name in both the fetch manifest and the push payload (spec.md §6).
type Attraction struct {
	Pax  int `json:"pax"`
	Used int `json:"used"`
}

// SyncPayload is the POST body sent to the central service's push endpoint,
// and the shape returned (per-record) by the fetch manifest.
type SyncPayload struct {
	BookingDate string                `json:"bookingDate"`
	ReferenceNo string                `json:"referenceNo"`
	Attractions map[string]Attraction `json:"attractions"`
}

// GateCountsFromAttractions converts the wire map (keyed by gate letter)
// into the internal GateID-keyed representation, defaulting any gate absent
// from the payload to zero pax/used.
func GateCountsFromAttractions(a map[string]Attraction) map[GateID]GateCounts {
	out := make(map[GateID]GateCounts, len(Gates))
	for _, g := range Gates {
		if v, ok := a[string(g)]; ok {
			out[g] = GateCounts{Pax: v.Pax, Used: v.Used}
		} else {
			out[g] = GateCounts{}
		}
	}
	return out
}

// AttractionsFromGateCounts is the inverse of GateCountsFromAttractions, used
// when building an outbound SyncPayload.
func AttractionsFromGateCounts(m map[GateID]GateCounts) map[string]Attraction {
	out := make(map[string]Attraction, len(m))
	for g, c := range m {
		out[string(g)] = Attraction{Pax: c.Pax, Used: c.Used}
	}
	return out
}

// ManifestRecord is a single entry of the fetch endpoint's JSON array. The
// central service has been observed emitting both camelCase and PascalCase
// field names (spec.md §6); ManifestRecord tolerates both by unmarshalling
// into an alias struct that carries both tag spellings and then preferring
// whichever is non-empty.
type ManifestRecord struct {
	ReferenceNo string                `json:"-"`
	BookingDate string                `json:"-"`
	Attractions map[string]Attraction `json:"-"`
}

type manifestRecordWire struct {
	ReferenceNoLower string                `json:"referenceNo"`
	ReferenceNoUpper string                `json:"ReferenceNo"`
	BookingDateLower string                `json:"bookingDate"`
	BookingDateUpper string                `json:"BookingDate"`
	AttractionsLower map[string]Attraction `json:"attractions"`
	AttractionsUpper map[string]Attraction `json:"Attractions"`
}

// UnmarshalJSON implements the camelCase/PascalCase-tolerant decode
// described in spec.md §6.
func (m *ManifestRecord) UnmarshalJSON(data []byte) error {
	var w manifestRecordWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	m.ReferenceNo = firstNonEmpty(w.ReferenceNoLower, w.ReferenceNoUpper)
	m.BookingDate = firstNonEmpty(w.BookingDateLower, w.BookingDateUpper)
	if len(w.AttractionsLower) > 0 {
		m.Attractions = w.AttractionsLower
	} else {
		m.Attractions = w.AttractionsUpper
	}
	return nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
