package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SystemPrompt frames every provider request.
const SystemPrompt = `You are an expert fantasy football analyst with deep knowledge of NFL players, matchups, and strategy. You respond with strictly valid JSON and never recommend players that are not on the user's roster.`

// RenderPrompt renders a Context into the provider prompt. The output is
// deterministic for identical contexts: all sections are serialized from
// ordered slices or via encoding/json, which sorts map keys.
func RenderPrompt(c *Context) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze this fantasy football lineup situation for week %d and provide 3 optimal lineup strategies.\n\n", c.Week)
	b.WriteString("IMPORTANT: You can ONLY use players from the MY ROSTER section. Every lineup entry must use the player's \"id\" value, and that id must appear in VALID PLAYER IDS.\n\n")

	fmt.Fprintf(&b, "LEAGUE: %s\n\n", c.LeagueName)

	b.WriteString("MY ROSTER (ONLY USE THESE PLAYERS):\n")
	writeJSON(&b, c.Roster)

	b.WriteString("\nOPPONENT'S ROSTER:\n")
	writeJSON(&b, c.Opponent)

	b.WriteString("\nSCORING SETTINGS:\n")
	writeJSON(&b, c.Scoring)

	b.WriteString("\nVALID PLAYER IDS:\n")
	writeJSON(&b, c.ValidPlayerIDs)

	b.WriteString(`
Provide 3 different lineup strategies using ONLY players from my roster:
1. Safe Floor (minimize risk)
2. High Ceiling (maximum upside)
3. Balanced (mix of both)

For each strategy include:
- Starting lineup by position slot, each entry being a valid player id
- Projected point range
- Key reasoning
- 3 pros and 3 cons
- Risk level (1-10)
- Confidence (0-100)

Format the entire answer as JSON with this structure:
{
  "strategies": [
    {
      "name": "Safe Floor",
      "lineup": {"QB": "player_id", "RB1": "player_id", "RB2": "player_id", "WR1": "player_id", "WR2": "player_id", "TE": "player_id", "FLEX": "player_id"},
      "projected_range": [min, max],
      "reasoning": "Explanation",
      "pros": ["pro1", "pro2", "pro3"],
      "cons": ["con1", "con2", "con3"],
      "risk_level": 5,
      "confidence": 75
    }
  ]
}
`)
	return b.String()
}

func writeJSON(b *strings.Builder, v any) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		b.WriteString("{}")
		return
	}
	b.Write(raw)
	b.WriteString("\n")
}
