package report

import (
	"encoding/json"

	"github.com/phobologic/apiscan/internal/model"
	"github.com/phobologic/apiscan/internal/ranking"
	"github.com/phobologic/apiscan/internal/toon"
)

type fullResults struct {
	PluginToAPI model.Results                  `json:"plugin_to_api"`
	APIToPlugin map[string]map[string][]string `json:"api_to_plugin"`
}

func renderJSON(results model.Results) (map[string][]byte, error) {
	data, err := json.MarshalIndent(fullResults{
		PluginToAPI: results,
		APIToPlugin: ranking.ByPlugin(results),
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	return map[string][]byte{"full_results.json": append(data, '\n')}, nil
}

func renderTOON(results model.Results) (map[string][]byte, error) {
	return map[string][]byte{"report.toon": []byte(toon.EncodeResults(results) + "\n")}, nil
}
