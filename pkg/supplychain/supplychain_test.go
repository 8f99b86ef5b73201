package supplychain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestVRSInputs_HashDeterministic(t *testing.T) {
	in := VRSInputs{
		CriticalCVECount:    2,
		HighCVECount:        5,
		MediumCVECount:      9,
		KEVPresent:          true,
		IncidentCount12Mo:   1,
		BreachCount:         0,
		ReputationScore:     6.5,
		DaysSinceSBOMUpdate: 12,
		AssetCriticality:    7,
	}

	a, err := in.Hash()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(a, "sha256:"))

	b, err := in.Hash()
	require.NoError(t, err)
	require.Equal(t, a, b)

	changed := in
	changed.HighCVECount++
	c, err := changed.Hash()
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}

func TestVRSInputs_HashRoundsReputation(t *testing.T) {
	a := VRSInputs{ReputationScore: 6.50001}
	b := VRSInputs{ReputationScore: 6.49999}

	ha, err := a.Hash()
	require.NoError(t, err)
	hb, err := b.Hash()
	require.NoError(t, err)
	require.Equal(t, ha, hb, "four-decimal rounding should collapse float noise")
}

func TestCalculate_ScoresAndTier(t *testing.T) {
	in := VRSInputs{
		CriticalCVECount:    4,
		HighCVECount:        2,
		KEVPresent:          true,
		IncidentCount12Mo:   3,
		BreachCount:         2,
		ReputationScore:     8.0,
		DaysSinceSBOMUpdate: 0,
		AssetCriticality:    9,
	}

	score, err := Calculate(uuid.New(), "acme-defense", in)
	require.NoError(t, err)

	// cve: (4*5 + 2*3)/6 + 2 kev = 6.33
	require.InDelta(t, 6.33, score.CVERiskScore, 0.01)
	// history: (3*2 + 2*3)/5 + 4.0 rep = 6.4
	require.InDelta(t, 6.4, score.VendorHistoryScore, 0.01)
	require.InDelta(t, 10.0, score.FreshnessScore, 0.001)
	require.InDelta(t, 9.0, score.CriticalityScore, 0.001)

	// 6.33*0.35 + 6.4*0.25 + 10*0.20 + 9*0.20 = 7.62
	require.InDelta(t, 7.62, score.VRS, 0.01)
	require.Equal(t, TierHigh, score.Tier)

	require.NotEmpty(t, score.InputsHash)
	require.Equal(t, "provenance-service", score.CalculatedBy)
	require.Equal(t, "1.0.0", score.CalculationVersion)
}

func TestCalculate_TierThresholds(t *testing.T) {
	cases := []struct {
		name string
		in   VRSInputs
		tier RiskTier
	}{
		{
			name: "clean vendor is low",
			in:   VRSInputs{DaysSinceSBOMUpdate: 300},
			tier: TierLow,
		},
		{
			name: "fresh sbom with max criticality is medium",
			in:   VRSInputs{DaysSinceSBOMUpdate: 0, AssetCriticality: 10},
			tier: TierMedium,
		},
		{
			name: "kev plus criticality is high",
			in: VRSInputs{
				CriticalCVECount: 3,
				KEVPresent:       true,
				AssetCriticality: 10,
			},
			tier: TierHigh,
		},
		{
			name: "everything on fire is critical",
			in: VRSInputs{
				CriticalCVECount:  10,
				KEVPresent:        true,
				BreachCount:       5,
				ReputationScore:   10,
				AssetCriticality:  10,
				IncidentCount12Mo: 10,
			},
			tier: TierCritical,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			score, err := Calculate(uuid.New(), "vendor", tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.tier, score.Tier, "vrs=%v", score.VRS)
		})
	}
}

func TestCalculate_FreshnessFloorsAtZero(t *testing.T) {
	score, err := Calculate(uuid.New(), "vendor", VRSInputs{DaysSinceSBOMUpdate: 3650})
	require.NoError(t, err)
	require.Zero(t, score.FreshnessScore)
}

func TestCalculate_ScoresCapAtTen(t *testing.T) {
	score, err := Calculate(uuid.New(), "vendor", VRSInputs{
		CriticalCVECount: 100,
		KEVPresent:       true,
		BreachCount:      100,
		ReputationScore:  10,
	})
	require.NoError(t, err)
	require.LessOrEqual(t, score.CVERiskScore, 10.0)
	require.LessOrEqual(t, score.VendorHistoryScore, 10.0)
	require.LessOrEqual(t, score.VRS, 10.0)
}

func TestDigest_String(t *testing.T) {
	d := Digest{Alg: "sha256", Value: "abc123"}
	require.Equal(t, "sha256:abc123", d.String())
}
