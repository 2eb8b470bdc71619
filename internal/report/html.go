package report

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/phobologic/apiscan/internal/model"
	"github.com/phobologic/apiscan/internal/ranking"
)

type htmlUsageRow struct {
	Version, Plugin, Symbol string
	Files                   int
}

type htmlPopularityRow struct {
	Version, Symbol, Plugins string
	Count                    int
}

type htmlPage struct {
	Title      string
	Summary    Summary
	Versions   string
	Popularity []htmlPopularityRow
	Usage      []htmlUsageRow
}

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Arial, sans-serif; margin: 20px; }
table { border-collapse: collapse; margin: 10px 0; }
th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
th { background-color: #f2f2f2; }
tr:nth-child(even) { background-color: #f9f9f9; }
.tab { overflow: hidden; border: 1px solid #ccc; background-color: #f1f1f1; }
.tab button { background-color: inherit; float: left; border: none; outline: none; cursor: pointer; padding: 14px 16px; }
.tab button:hover { background-color: #ddd; }
.tab button.active { background-color: #ccc; }
.tabcontent { display: none; padding: 6px 12px; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="tab">
<button class="tablinks" onclick="openTab(event, 'Summary')">Summary</button>
<button class="tablinks" onclick="openTab(event, 'APIpop')" id="defaultOpen">API Popularity</button>
<button class="tablinks" onclick="openTab(event, 'PluginUsage')">Plugin Usage</button>
</div>
<div id="Summary" class="tabcontent">
<h2>Summary</h2>
<p>Total plugins analyzed: {{.Summary.Plugins}}</p>
<p>Total API symbols used: {{.Summary.Symbols}}</p>
<p>API versions: {{.Versions}}</p>
</div>
<div id="APIpop" class="tabcontent">
<h2>API Symbol Popularity</h2>
<table>
<tr><th>API_Version</th><th>Symbol</th><th>Plugin_Count</th><th>Plugins</th></tr>
{{range .Popularity}}<tr><td>{{.Version}}</td><td>{{.Symbol}}</td><td>{{.Count}}</td><td>{{.Plugins}}</td></tr>
{{end}}</table>
</div>
<div id="PluginUsage" class="tabcontent">
<h2>API Usage by Plugin</h2>
<table>
<tr><th>API_Version</th><th>Plugin</th><th>Symbol</th><th>Files</th></tr>
{{range .Usage}}<tr><td>{{.Version}}</td><td>{{.Plugin}}</td><td>{{.Symbol}}</td><td>{{.Files}}</td></tr>
{{end}}</table>
</div>
<script>
function openTab(evt, tabName) {
  var i, tabcontent, tablinks;
  tabcontent = document.getElementsByClassName("tabcontent");
  for (i = 0; i < tabcontent.length; i++) {
    tabcontent[i].style.display = "none";
  }
  tablinks = document.getElementsByClassName("tablinks");
  for (i = 0; i < tablinks.length; i++) {
    tablinks[i].className = tablinks[i].className.replace(" active", "");
  }
  document.getElementById(tabName).style.display = "block";
  evt.currentTarget.className += " active";
}
document.getElementById("defaultOpen").click();
</script>
</body>
</html>
`))

const emptyHTML = "<h1>No results to display</h1>\n"

func renderHTML(results model.Results) ([]byte, error) {
	page := htmlPage{Title: Title, Summary: Summarize(results)}
	page.Versions = strings.Join(page.Summary.Versions, ", ")

	inverted := ranking.ByPlugin(results)
	for _, version := range page.Summary.Versions {
		for _, plugin := range results.Plugins(version) {
			tally := results[version][plugin]
			for _, symbol := range tally.Names() {
				page.Usage = append(page.Usage, htmlUsageRow{version, plugin, symbol, tally[symbol]})
			}
		}
		for _, e := range ranking.Popularity(inverted[version]) {
			page.Popularity = append(page.Popularity, htmlPopularityRow{version, e.Symbol, strings.Join(e.Plugins, ", "), e.Count()})
		}
	}
	if len(page.Usage) == 0 {
		return []byte(emptyHTML), nil
	}

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, page); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
