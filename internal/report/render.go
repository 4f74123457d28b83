package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// RenderJSON writes the report snapshot as indented JSON.
func RenderJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// RenderTable writes the agent leaderboard as a console table.
func RenderTable(w io.Writer, r Report) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", "Agent", "Calls", "Composite", "Tier", "Cust. Sentiment", "Professionalism", "Frustration"})
	for i, a := range r.Agents {
		t.AppendRow(table.Row{
			i + 1,
			a.AgentName,
			a.CallCount,
			fmt.Sprintf("%.3f", a.CompositeScore),
			a.Tier,
			fmt.Sprintf("%.3f", a.AvgCustomerSentiment),
			fmt.Sprintf("%.3f", a.AvgProfessionalism),
			fmt.Sprintf("%.0f%%", a.FrustrationRate*100),
		})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}

var dashboardTmpl = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Agent Performance Dashboard</title>
<style>
body { font-family: sans-serif; margin: 2rem; color: #222; }
table { border-collapse: collapse; margin-bottom: 2rem; }
th, td { border: 1px solid #ccc; padding: 0.4rem 0.8rem; text-align: left; }
th { background: #f0f0f0; }
.tier-Elite { color: #1a7f37; font-weight: bold; }
.tier-Strong { color: #1a7f37; }
.tier-Competent { color: #9a6700; }
.tier-Developing { color: #bc4c00; }
.tier-Needs { color: #cf222e; }
small { color: #666; }
</style>
</head>
<body>
<h1>Agent Performance</h1>
<small>Generated {{.GeneratedAt.Format "2006-01-02 15:04:05 MST"}} &middot; {{.Transcripts}} transcripts &middot; {{.Analyses}} analyzed</small>
<table>
<tr><th>#</th><th>Agent</th><th>Calls</th><th>Composite</th><th>Tier</th><th>Top Issues</th><th>Top Strengths</th></tr>
{{range $i, $a := .Agents}}
<tr>
<td>{{inc $i}}</td>
<td>{{$a.AgentName}}</td>
<td>{{$a.CallCount}}</td>
<td>{{printf "%.3f" $a.CompositeScore}}</td>
<td class="tier-{{$a.Tier}}">{{$a.Tier}}</td>
<td>{{range $a.TopIssues}}{{.Label}} ({{.Count}})<br>{{end}}</td>
<td>{{range $a.TopStrengths}}{{.Label}} ({{.Count}})<br>{{end}}</td>
</tr>
{{end}}
</table>
<h2>Topics</h2>
<table>
<tr><th>Topic</th><th>Calls</th><th>Avg Customer Sentiment</th><th>Avg Confidence</th></tr>
{{range .Topics}}
<tr>
<td>{{.Topic}}</td>
<td>{{.CallCount}}</td>
<td>{{printf "%.3f" .AvgCustomerSentiment}}</td>
<td>{{printf "%.3f" .AvgTopicConfidence}}</td>
</tr>
{{end}}
</table>
</body>
</html>
`))

// RenderHTML writes the dashboard page.
func RenderHTML(w io.Writer, r Report) error {
	return dashboardTmpl.Execute(w, r)
}
