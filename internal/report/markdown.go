package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/phobologic/apiscan/internal/model"
	"github.com/phobologic/apiscan/internal/ranking"
)

// GlobalScope groups symbols without an enclosing scope.
const GlobalScope = "Global"

// Scope returns the second-to-last "::" segment of a qualified name, or
// GlobalScope.
func Scope(symbol string) string {
	_, parent := model.SplitName(symbol)
	if parent == "" {
		return GlobalScope
	}
	return parent
}

// Summary holds the headline numbers of a run.
type Summary struct {
	Plugins  int
	Symbols  int
	Versions []string
}

// Summarize counts plugins and, per API version, the distinct symbols used.
func Summarize(results model.Results) Summary {
	s := Summary{Versions: results.Versions()}
	for _, version := range s.Versions {
		distinct := make(map[string]struct{})
		for _, tally := range results[version] {
			for symbol := range tally {
				distinct[symbol] = struct{}{}
			}
		}
		s.Plugins += len(results[version])
		s.Symbols += len(distinct)
	}
	return s
}

func renderMarkdown(results model.Results) string {
	var b strings.Builder
	summary := Summarize(results)

	fmt.Fprintf(&b, "# %s\n\n", Title)
	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Total plugins analyzed: %d\n", summary.Plugins)
	fmt.Fprintf(&b, "- Total API symbols used: %d\n", summary.Symbols)
	fmt.Fprintf(&b, "- API versions: %s\n\n", strings.Join(summary.Versions, ", "))

	b.WriteString("## API Usage by Plugin\n\n")
	for _, version := range summary.Versions {
		fmt.Fprintf(&b, "### %s\n\n", version)
		for _, plugin := range results.Plugins(version) {
			tally := results[version][plugin]
			fmt.Fprintf(&b, "#### %s\n\n", plugin)
			fmt.Fprintf(&b, "- Uses %d API symbols\n", len(tally))

			byScope := make(map[string][]string)
			for _, symbol := range tally.Names() {
				scope := Scope(symbol)
				byScope[scope] = append(byScope[scope], symbol)
			}
			scopes := make([]string, 0, len(byScope))
			for scope := range byScope {
				scopes = append(scopes, scope)
			}
			sort.Strings(scopes)

			for _, scope := range scopes {
				fmt.Fprintf(&b, "\n##### %s\n\n", scope)
				b.WriteString("| Symbol | Files |\n")
				b.WriteString("|--------|-------|\n")
				for _, symbol := range byScope[scope] {
					fmt.Fprintf(&b, "| `%s` | %d |\n", symbol, tally[symbol])
				}
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("## API Symbol Popularity\n\n")
	inverted := ranking.ByPlugin(results)
	for _, version := range summary.Versions {
		fmt.Fprintf(&b, "### %s\n\n", version)
		b.WriteString("| Symbol | Plugins Using | Plugin Names |\n")
		b.WriteString("|--------|---------------|--------------|\n")
		for _, e := range ranking.Popularity(inverted[version]) {
			fmt.Fprintf(&b, "| `%s` | %d | %s |\n", e.Symbol, e.Count(), strings.Join(e.Plugins, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}
