package domain

import (
	"testing"
)

// FuzzParseReportID checks parsing never panics and that accepted IDs
// round-trip.
func FuzzParseReportID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("'; DROP TABLE screening_reports;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseReportID(input)
		if err != nil {
			return
		}
		if id.IsNil() {
			t.Fatal("accepted a nil report ID")
		}
		again, err := ParseReportID(id.String())
		if err != nil {
			t.Fatalf("round-trip failed: %v", err)
		}
		if again != id {
			t.Fatal("round-trip changed the ID")
		}
	})
}
