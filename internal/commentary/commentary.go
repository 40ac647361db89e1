// Package commentary renders the one-line ball commentary shown on the live scorecard.
package commentary

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Guizzs26/scorebook-sync/internal/models"
)

// ForBall builds commentary from ball fields. Recognised fields: runs,
// extraType (wide, noBall, bye, legBye), extraRuns, isWicket, wicketType,
// bowlerName, batsmanName.
func ForBall(ball models.Document) string {
	var b strings.Builder

	bowler := name(ball["bowlerName"])
	batsman := name(ball["batsmanName"])
	if bowler != "" && batsman != "" {
		fmt.Fprintf(&b, "%s to %s, ", bowler, batsman)
	}

	if isTrue(ball["isWicket"]) {
		b.WriteString("OUT!")
		if wt := name(ball["wicketType"]); wt != "" {
			b.WriteString(" " + wt + ".")
		}
		return b.String()
	}

	runs := toInt(ball["runs"])
	switch extra, _ := ball["extraType"].(string); extra {
	case "wide":
		b.WriteString("wide")
		if n := toInt(ball["extraRuns"]); n > 1 {
			fmt.Fprintf(&b, ", %d runs", n)
		}
		return b.String()
	case "noBall":
		b.WriteString("no ball")
		if runs > 0 {
			b.WriteString(", " + runText(runs))
		}
		return b.String()
	case "bye", "legBye":
		n := toInt(ball["extraRuns"])
		if n == 0 {
			n = runs
		}
		label := "bye"
		if extra == "legBye" {
			label = "leg bye"
		}
		if n != 1 {
			label += "s"
		}
		fmt.Fprintf(&b, "%d %s", n, label)
		return b.String()
	}

	b.WriteString(runText(runs))
	return b.String()
}

func runText(runs int) string {
	switch runs {
	case 0:
		return "no run"
	case 1:
		return "1 run"
	case 4:
		return "FOUR!"
	case 6:
		return "SIX!"
	default:
		return fmt.Sprintf("%d runs", runs)
	}
}

func name(v any) string {
	s, _ := v.(string)
	// Casers are stateful; one per call.
	return cases.Title(language.English, cases.NoLower).String(strings.TrimSpace(s))
}

func isTrue(v any) bool {
	b, _ := v.(bool)
	return b
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
