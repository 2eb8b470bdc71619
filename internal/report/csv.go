package report

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/phobologic/apiscan/internal/model"
	"github.com/phobologic/apiscan/internal/ranking"
)

// renderCSV emits plugin_to_api_<key>.csv and api_to_plugin_<key>.csv per
// API version. Versions without rows produce no files.
func renderCSV(results model.Results) (map[string][]byte, error) {
	files := make(map[string][]byte)
	inverted := ranking.ByPlugin(results)

	for _, version := range results.Versions() {
		var rows [][]string
		for _, plugin := range results.Plugins(version) {
			tally := results[version][plugin]
			for _, symbol := range tally.Names() {
				rows = append(rows, []string{version, plugin, symbol, strconv.Itoa(tally[symbol])})
			}
		}
		if len(rows) > 0 {
			data, err := encodeCSV([]string{"API_Version", "Plugin", "Symbol", "Files"}, rows)
			if err != nil {
				return nil, err
			}
			files["plugin_to_api_"+version+".csv"] = data
		}

		rows = rows[:0]
		for _, e := range ranking.Popularity(inverted[version]) {
			rows = append(rows, []string{version, e.Symbol, strconv.Itoa(e.Count()), strings.Join(e.Plugins, ", ")})
		}
		if len(rows) > 0 {
			data, err := encodeCSV([]string{"API_Version", "Symbol", "Plugin_Count", "Plugins"}, rows)
			if err != nil {
				return nil, err
			}
			files["api_to_plugin_"+version+".csv"] = data
		}
	}
	return files, nil
}

func encodeCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
