package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fantasyops/lineupai/analysis"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatTXT  = "txt"
)

// Export writes a result to w in the named format. JSON carries the full
// structure; CSV emits one row per lineup slot per strategy; TXT is the
// human-readable report.
func Export(w io.Writer, r *analysis.Result, format string) error {
	if r == nil {
		return &ValidationError{Reason: "no result to export"}
	}
	switch format {
	case FormatJSON:
		return exportJSON(w, r)
	case FormatCSV:
		return exportCSV(w, r)
	case FormatTXT:
		return exportTXT(w, r)
	default:
		return &ValidationError{Reason: fmt.Sprintf("unknown export format %q", format)}
	}
}

func exportJSON(w io.Writer, r *analysis.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// csvHeader is the fixed column set. Strategy-level fields repeat on every
// slot row so each row is self-contained.
var csvHeader = []string{
	"result_id", "week", "provider", "generated_at",
	"strategy", "slot", "player_id", "player_name",
	"projected_low", "projected_high", "risk", "confidence",
	"degraded", "dropped_players", "reasoning", "pros", "cons",
}

func exportCSV(w io.Writer, r *analysis.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, st := range r.Strategies {
		base := []string{
			r.ID,
			strconv.Itoa(r.Week),
			r.Provider,
			r.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"),
			string(st.Name),
		}
		tail := []string{
			formatFloat(st.ProjectedLow),
			formatFloat(st.ProjectedHigh),
			strconv.Itoa(st.Risk),
			strconv.Itoa(st.Confidence),
			strconv.FormatBool(st.Degraded),
			strings.Join(st.DroppedPlayers, "|"),
			st.Reasoning,
			strings.Join(st.Pros, "|"),
			strings.Join(st.Cons, "|"),
		}
		if len(st.Lineup) == 0 {
			row := append(append([]string{}, base...), "", "", "")
			if err := cw.Write(append(row, tail...)); err != nil {
				return err
			}
			continue
		}
		for _, slot := range st.Lineup {
			row := append(append([]string{}, base...), slot.Slot, slot.PlayerID, slot.Name)
			if err := cw.Write(append(row, tail...)); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func exportTXT(w io.Writer, r *analysis.Result) error {
	var b strings.Builder

	fmt.Fprintf(&b, "LINEUP ANALYSIS - WEEK %d\n", r.Week)
	fmt.Fprintf(&b, "Provider: %s\n", r.Provider)
	fmt.Fprintf(&b, "Generated: %s\n", r.GeneratedAt.Format("Jan 2, 2006 15:04 MST"))
	fmt.Fprintf(&b, "Analysis ID: %s\n", r.ID)
	b.WriteString(strings.Repeat("=", 60) + "\n")

	for _, st := range r.Strategies {
		fmt.Fprintf(&b, "\n%s\n", strategyTitle(st.Name))
		fmt.Fprintf(&b, "Risk %d/10, Confidence %d%%, Projected %.1f-%.1f pts\n",
			st.Risk, st.Confidence, st.ProjectedLow, st.ProjectedHigh)
		if st.Degraded {
			fmt.Fprintf(&b, "NOTE: dropped off-roster picks: %s\n", strings.Join(st.DroppedPlayers, ", "))
		}
		b.WriteString("\nLineup:\n")
		for _, slot := range st.Lineup {
			name := slot.Name
			if name == "" {
				name = slot.PlayerID
			}
			fmt.Fprintf(&b, "  %-5s %s (%s)\n", slot.Slot, name, slot.PlayerID)
		}
		if st.Reasoning != "" {
			fmt.Fprintf(&b, "\nReasoning: %s\n", st.Reasoning)
		}
		writeBullets(&b, "Pros", st.Pros)
		writeBullets(&b, "Cons", st.Cons)
		b.WriteString(strings.Repeat("-", 60) + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func strategyTitle(name analysis.StrategyName) string {
	switch name {
	case analysis.SafeFloor:
		return "SAFE FLOOR"
	case analysis.HighCeiling:
		return "HIGH CEILING"
	case analysis.Balanced:
		return "BALANCED"
	default:
		return strings.ToUpper(string(name))
	}
}

func writeBullets(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", label)
	for _, it := range items {
		fmt.Fprintf(b, "  - %s\n", it)
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
