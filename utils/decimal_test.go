package utils

import (
	"encoding/json"
	"testing"
)

func TestParseFlexDecimal_AcceptsFormattedStrings(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"20000", "20000"},
		{"20,000", "20000"},
		{"$ 20,000", "20000"},
		{"USD -20,000", "-20000"},
		{"  $1,234.50  ", "1234.5"},
	}
	for _, tc := range cases {
		d, err := ParseFlexDecimal(tc.in)
		if err != nil {
			t.Fatalf("ParseFlexDecimal(%q) error: %v", tc.in, err)
		}
		if d.String() != tc.expected {
			t.Fatalf("ParseFlexDecimal(%q) expected %s, got %s", tc.in, tc.expected, d.String())
		}
	}
}

func TestParseFlexDecimal_RejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "   ", "abc", "$"} {
		if _, err := ParseFlexDecimal(in); err == nil {
			t.Fatalf("ParseFlexDecimal(%q) expected error, got none", in)
		}
	}
}

func TestFlexDecimal_UnmarshalJSON(t *testing.T) {
	type payload struct {
		Production  FlexDecimal `json:"production"`
		Adjustments FlexDecimal `json:"adjustments"`
		WriteOffs   FlexDecimal `json:"writeOffs"`
		Unearned    FlexDecimal `json:"unearned"`
	}

	raw := `{"production": 1200.5, "adjustments": "1,000", "writeOffs": "oops", "unearned": null}`
	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("unmarshal should tolerate bad fields, got error: %v", err)
	}

	if !p.Production.Present || !p.Production.Valid || p.Production.Value.String() != "1200.5" {
		t.Fatalf("production parsed wrong: %+v", p.Production)
	}
	if !p.Adjustments.Valid || p.Adjustments.Value.String() != "1000" {
		t.Fatalf("adjustments parsed wrong: %+v", p.Adjustments)
	}
	if !p.WriteOffs.Present || p.WriteOffs.Valid {
		t.Fatalf("writeOffs should be present but invalid: %+v", p.WriteOffs)
	}
	if p.Unearned.Present {
		t.Fatalf("null should count as absent: %+v", p.Unearned)
	}
	if !p.Unearned.Decimal().IsZero() {
		t.Fatalf("absent field should read as zero")
	}
}
