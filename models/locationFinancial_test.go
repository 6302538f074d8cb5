package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputeDerivedFields(t *testing.T) {
	cases := []struct {
		name             string
		production       string
		adjustments      string
		writeOffs        string
		patientIncome    string
		insuranceIncome  string
		netProduction    string
		totalCollections string
	}{
		{
			name:       "typical day",
			production: "5000", adjustments: "300", writeOffs: "150",
			patientIncome: "1800", insuranceIncome: "2400",
			netProduction: "4550", totalCollections: "4200",
		},
		{
			name:       "all zero",
			production: "0", adjustments: "0", writeOffs: "0",
			patientIncome: "0", insuranceIncome: "0",
			netProduction: "0", totalCollections: "0",
		},
		{
			name:       "adjustments exceed production",
			production: "1000", adjustments: "800", writeOffs: "400",
			patientIncome: "500", insuranceIncome: "0",
			netProduction: "-200", totalCollections: "500",
		},
		{
			name:       "cents survive",
			production: "1234.56", adjustments: "34.06", writeOffs: "0.50",
			patientIncome: "100.25", insuranceIncome: "200.75",
			netProduction: "1200", totalCollections: "301",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			record := LocationFinancial{
				Production:      dec(tc.production),
				Adjustments:     dec(tc.adjustments),
				WriteOffs:       dec(tc.writeOffs),
				PatientIncome:   dec(tc.patientIncome),
				InsuranceIncome: dec(tc.insuranceIncome),
				// stale stored values must be overwritten
				NetProduction:    dec("999999"),
				TotalCollections: dec("999999"),
			}
			record.ComputeDerivedFields()

			if !record.NetProduction.Equal(dec(tc.netProduction)) {
				t.Fatalf("net production: expected %s, got %s", tc.netProduction, record.NetProduction)
			}
			if !record.TotalCollections.Equal(dec(tc.totalCollections)) {
				t.Fatalf("total collections: expected %s, got %s", tc.totalCollections, record.TotalCollections)
			}
		})
	}
}
