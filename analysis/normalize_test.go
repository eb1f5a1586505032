package analysis

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validIDs(ids ...string) map[string]bool {
	set := map[string]bool{}
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func threeStrategies(lineups [3]string) string {
	names := []string{"Safe Floor", "High Ceiling", "Balanced"}
	out := `{"strategies":[`
	for i, name := range names {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(`{
			"name": %q,
			"lineup": %s,
			"projected_range": [100, 120],
			"reasoning": "because",
			"pros": ["a","b","c"],
			"cons": ["x","y","z"],
			"risk_level": 5,
			"confidence": 70
		}`, name, lineups[i])
	}
	return out + `]}`
}

func TestNormalizeWellFormedResponse(t *testing.T) {
	lineup := `{"QB":"1","RB1":"2","WR1":"3"}`
	raw := threeStrategies([3]string{lineup, lineup, lineup})

	result, err := Normalize(raw, validIDs("1", "2", "3"), 4, "mock")
	require.NoError(t, err)

	assert.NotEmpty(t, result.ID)
	assert.Equal(t, 4, result.Week)
	assert.Equal(t, "mock", result.Provider)
	require.Len(t, result.Strategies, 3)
	assert.Equal(t, SafeFloor, result.Strategies[0].Name)
	assert.Equal(t, HighCeiling, result.Strategies[1].Name)
	assert.Equal(t, Balanced, result.Strategies[2].Name)
	for _, st := range result.Strategies {
		assert.False(t, st.Degraded)
		assert.Len(t, st.Lineup, 3)
	}
}

func TestNormalizeFixedOrderRegardlessOfInput(t *testing.T) {
	lineup := `{"QB":"1"}`
	raw := `{"strategies":[
		{"name":"Balanced Attack","lineup":` + lineup + `,"projected_range":[90,110],"reasoning":"r","pros":[],"cons":[],"risk_level":5,"confidence":60},
		{"name":"high-ceiling upside","lineup":` + lineup + `,"projected_range":[80,130],"reasoning":"r","pros":[],"cons":[],"risk_level":8,"confidence":55},
		{"name":"The Safe Floor Play","lineup":` + lineup + `,"projected_range":[95,105],"reasoning":"r","pros":[],"cons":[],"risk_level":2,"confidence":80}
	]}`

	result, err := Normalize(raw, validIDs("1"), 1, "openai")
	require.NoError(t, err)
	assert.Equal(t, []StrategyName{SafeFloor, HighCeiling, Balanced},
		[]StrategyName{result.Strategies[0].Name, result.Strategies[1].Name, result.Strategies[2].Name})
}

func TestNormalizeDropsHallucinatedPlayers(t *testing.T) {
	good := `{"QB":"1","RB1":"2"}`
	bad := `{"QB":"1","RB1":"FAKE99"}`
	raw := threeStrategies([3]string{good, bad, good})

	result, err := Normalize(raw, validIDs("1", "2"), 2, "anthropic")
	require.NoError(t, err)

	ceiling := result.Strategies[1]
	require.Equal(t, HighCeiling, ceiling.Name)
	assert.True(t, ceiling.Degraded)
	assert.Equal(t, []string{"FAKE99"}, ceiling.DroppedPlayers)
	require.Len(t, ceiling.Lineup, 1)
	assert.Equal(t, "1", ceiling.Lineup[0].PlayerID)

	// The untouched strategies stay clean.
	assert.False(t, result.Strategies[0].Degraded)
	assert.False(t, result.Strategies[2].Degraded)
}

func TestNormalizeClampsRiskAndConfidence(t *testing.T) {
	lineup := `{"QB":"1"}`
	raw := `{"strategies":[
		{"name":"Safe Floor","lineup":` + lineup + `,"projected_range":[90,110],"reasoning":"r","pros":[],"cons":[],"risk_level":0,"confidence":150},
		{"name":"High Ceiling","lineup":` + lineup + `,"projected_range":[90,110],"reasoning":"r","pros":[],"cons":[],"risk_level":99,"confidence":-5},
		{"name":"Balanced","lineup":` + lineup + `,"projected_range":[90,110],"reasoning":"r","pros":[],"cons":[],"risk_level":7.6,"confidence":82.4}
	]}`

	result, err := Normalize(raw, validIDs("1"), 1, "mock")
	require.NoError(t, err)

	assert.Equal(t, MinRisk, result.Strategies[0].Risk)
	assert.Equal(t, MaxConfidence, result.Strategies[0].Confidence)
	assert.Equal(t, MaxRisk, result.Strategies[1].Risk)
	assert.Equal(t, MinConfidence, result.Strategies[1].Confidence)
	assert.Equal(t, 7, result.Strategies[2].Risk, "fractional levels are truncated")
	assert.Equal(t, 82, result.Strategies[2].Confidence)
}

func TestNormalizeSwapsInvertedRange(t *testing.T) {
	lineup := `{"QB":"1"}`
	raw := `{"strategies":[
		{"name":"Safe Floor","lineup":` + lineup + `,"projected_range":[120,100],"reasoning":"r","pros":[],"cons":[],"risk_level":3,"confidence":70},
		{"name":"High Ceiling","lineup":` + lineup + `,"projected_range":[80,130],"reasoning":"r","pros":[],"cons":[],"risk_level":8,"confidence":60},
		{"name":"Balanced","lineup":` + lineup + `,"projected_range":[90,110],"reasoning":"r","pros":[],"cons":[],"risk_level":5,"confidence":65}
	]}`

	result, err := Normalize(raw, validIDs("1"), 1, "mock")
	require.NoError(t, err)
	assert.Equal(t, 100.0, result.Strategies[0].ProjectedLow)
	assert.Equal(t, 120.0, result.Strategies[0].ProjectedHigh)
}

func TestNormalizeExtractsJSONFromProse(t *testing.T) {
	lineup := `{"QB":"1"}`
	raw := "Here are my recommendations:\n\n" + threeStrategies([3]string{lineup, lineup, lineup}) + "\n\nGood luck this week!"

	_, err := Normalize(raw, validIDs("1"), 1, "anthropic")
	assert.NoError(t, err)
}

func TestNormalizeMissingStrategy(t *testing.T) {
	lineup := `{"QB":"1"}`
	raw := `{"strategies":[
		{"name":"Safe Floor","lineup":` + lineup + `,"projected_range":[90,110],"reasoning":"r","pros":[],"cons":[],"risk_level":3,"confidence":70},
		{"name":"High Ceiling","lineup":` + lineup + `,"projected_range":[80,130],"reasoning":"r","pros":[],"cons":[],"risk_level":8,"confidence":60}
	]}`

	_, err := Normalize(raw, validIDs("1"), 1, "mock")
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Reason, "missing")
}

func TestNormalizeDuplicateStrategy(t *testing.T) {
	lineup := `{"QB":"1"}`
	raw := `{"strategies":[
		{"name":"Safe Floor","lineup":` + lineup + `,"projected_range":[90,110],"reasoning":"r","pros":[],"cons":[],"risk_level":3,"confidence":70},
		{"name":"Safest Floor","lineup":` + lineup + `,"projected_range":[90,110],"reasoning":"r","pros":[],"cons":[],"risk_level":3,"confidence":70},
		{"name":"Balanced","lineup":` + lineup + `,"projected_range":[90,110],"reasoning":"r","pros":[],"cons":[],"risk_level":5,"confidence":65}
	]}`

	_, err := Normalize(raw, validIDs("1"), 1, "mock")
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Reason, "duplicate")
}

func TestNormalizeGarbage(t *testing.T) {
	var parseErr *ParseError

	_, err := Normalize("no json here at all", validIDs("1"), 1, "mock")
	assert.ErrorAs(t, err, &parseErr)

	_, err = Normalize("{not valid json}", validIDs("1"), 1, "mock")
	assert.ErrorAs(t, err, &parseErr)

	_, err = Normalize(`{"strategies":[]}`, validIDs("1"), 1, "mock")
	assert.ErrorAs(t, err, &parseErr)
}

func TestNormalizeLineupSlotOrder(t *testing.T) {
	lineup := `{"FLEX":"7","QB":"1","WR1":"4","RB2":"3","TE":"6","RB1":"2","WR2":"5"}`
	raw := threeStrategies([3]string{lineup, lineup, lineup})

	result, err := Normalize(raw, validIDs("1", "2", "3", "4", "5", "6", "7"), 1, "mock")
	require.NoError(t, err)

	var slots []string
	for _, s := range result.Strategies[0].Lineup {
		slots = append(slots, s.Slot)
	}
	assert.Equal(t, []string{"QB", "RB1", "RB2", "WR1", "WR2", "TE", "FLEX"}, slots)
}

func TestSummarize(t *testing.T) {
	r := &Result{
		Provider: "mock",
		Week:     3,
		Strategies: []Strategy{
			{Name: SafeFloor, Risk: 2, Confidence: 80},
			{Name: HighCeiling, Risk: 8, Confidence: 60, Degraded: true},
			{Name: Balanced, Risk: 5, Confidence: 70},
		},
	}

	s := r.Summarize()
	assert.InDelta(t, 5.0, s.AvgRisk, 1e-9)
	assert.InDelta(t, 70.0, s.AvgConfidence, 1e-9)
	assert.Equal(t, "SafeFloor", s.BestStrategy)
	assert.True(t, s.Degraded)
}
