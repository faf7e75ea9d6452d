package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	p := Default()
	require.NoError(t, Validate(p))
	assert.Equal(t, "v1", p.Version)
	assert.True(t, p.MAPEnforced())
	assert.InDelta(t, 0.10, p.Guardrails.MaxDailyChange.DefaultPct, 1e-12)
}

func TestMAPEnforced_RequiresCeilingBlock(t *testing.T) {
	p := Default()
	p.Guardrails.PriceCeiling.Enabled = false
	assert.False(t, p.MAPEnforced())

	p = Default()
	p.Guardrails.PriceCeiling.EnforceMAP = false
	assert.False(t, p.MAPEnforced())
}

func TestParse_OverridesDefaults(t *testing.T) {
	data := []byte(`
policy_version: "2024-q3"
guardrails:
  price_floor:
    enabled: true
    min_margin_pct: 0.20
  competitor:
    enabled: false
inventory_flags:
  low_stock_days_of_cover_lt: 5
`)

	p, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "2024-q3", p.Version)
	assert.InDelta(t, 0.20, p.Guardrails.PriceFloor.MinMarginPct, 1e-12)
	assert.False(t, p.Guardrails.Competitor.Enabled)
	assert.InDelta(t, 5.0, p.InventoryFlags.LowStockDaysOfCoverLT, 1e-12)

	// Untouched keys keep their defaults
	assert.True(t, p.Guardrails.Promo.Enabled)
	assert.InDelta(t, 60.0, p.InventoryFlags.OverstockDaysOfCoverGT, 1e-12)
	assert.InDelta(t, 0.10, p.Guardrails.MaxDailyChange.DefaultPct, 1e-12)
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("guardrails:\n  price_floor:\n    min_margn_pct: 0.2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_margn_pct")
}

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
		check   func(t *testing.T, p Policy)
	}{
		{
			name: "partial draft keeps defaults",
			data: `{"policy_version":"d","guardrails":{"competitor":{"enabled":true,"max_over_competitor_pct":0.1}}}`,
			check: func(t *testing.T, p Policy) {
				assert.Equal(t, "d", p.Version)
				assert.InDelta(t, 0.1, p.Guardrails.Competitor.MaxOverCompetitorPct, 1e-12)
				assert.True(t, p.Guardrails.Promo.Enabled)
				assert.True(t, p.Guardrails.PriceFloor.Enabled)
				assert.True(t, p.Guardrails.PriceCeiling.Enabled)
				assert.True(t, p.Guardrails.MaxDailyChange.Enabled)
			},
		},
		{
			name: "empty object is the default",
			data: `{}`,
			check: func(t *testing.T, p Policy) {
				assert.Equal(t, Default(), p)
			},
		},
		{name: "unknown key", data: `{"guardrails":{"price_floor":{"min_margn_pct":0.2}}}`, wantErr: true},
		{name: "invalid value", data: `{"guardrails":{"price_floor":{"min_margin_pct":-1}}}`, wantErr: true},
		{name: "malformed", data: `{"policy_version":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseJSON([]byte(tt.data))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, p)
		})
	}
}

func TestValidate_FieldRanges(t *testing.T) {
	p := Default()
	p.Version = ""
	p.Guardrails.PriceFloor.MinMarginPct = -0.1
	p.Guardrails.MaxDailyChange.DefaultPct = 1.5

	err := Validate(p)
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)

	fields := make([]string, 0, len(verrs))
	for _, e := range verrs {
		fields = append(fields, e.Field)
	}
	assert.Contains(t, fields, "policy_version")
	assert.Contains(t, fields, "guardrails.price_floor.min_margin_pct")
	assert.Contains(t, fields, "guardrails.max_daily_change.default_pct")
}

func TestValidate_CrossFieldRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Policy)
		field  string
	}{
		{
			name: "low stock threshold above overstock threshold",
			mutate: func(p *Policy) {
				p.InventoryFlags.LowStockDaysOfCoverLT = 90
			},
			field: "inventory_flags",
		},
		{
			name: "low stock band wider than default",
			mutate: func(p *Policy) {
				p.Guardrails.MaxDailyChange.LowStockPct = 0.5
			},
			field: "guardrails.max_daily_change.low_stock_pct",
		},
		{
			name: "overstock band narrower than default",
			mutate: func(p *Policy) {
				p.Guardrails.MaxDailyChange.OverstockPct = 0.01
			},
			field: "guardrails.max_daily_change.overstock_pct",
		},
		{
			name: "low stock band equal to default",
			mutate: func(p *Policy) {
				p.Guardrails.MaxDailyChange.LowStockPct = p.Guardrails.MaxDailyChange.DefaultPct
			},
			field: "guardrails.max_daily_change.low_stock_pct",
		},
		{
			name: "overstock band equal to default",
			mutate: func(p *Policy) {
				p.Guardrails.MaxDailyChange.OverstockPct = p.Guardrails.MaxDailyChange.DefaultPct
			},
			field: "guardrails.max_daily_change.overstock_pct",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Default()
			tt.mutate(&p)

			err := Validate(p)
			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		p, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), p)
	})

	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pricing_policy.yaml")
		require.NoError(t, os.WriteFile(path, []byte("policy_version: v7\n"), 0o644))

		p, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "v7", p.Version)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})
}
