package domain

import "testing"

func TestUpsertResult_NeedsEnrichment(t *testing.T) {
	description := "lore"

	cases := []struct {
		name     string
		result   UpsertResult
		clean    bool
		eligible bool
		want     bool
	}{
		{"never enriched, eligible", UpsertResult{}, false, true, true},
		{"already enriched, incremental, eligible", UpsertResult{Description: &description}, false, true, false},
		{"already enriched, clean mode, eligible", UpsertResult{Description: &description}, true, true, true},
		{"never enriched, ineligible (S2)", UpsertResult{}, false, false, false},
		{"never enriched, clean mode, ineligible", UpsertResult{}, true, false, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.result.NeedsEnrichment(c.clean, c.eligible); got != c.want {
				t.Errorf("NeedsEnrichment(%v, %v) = %v, want %v", c.clean, c.eligible, got, c.want)
			}
		})
	}
}
