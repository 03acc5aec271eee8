// Package render turns a canonical record into the subject, plain-text body
// and HTML body of a notification mail.
//
// Layout: a two-column table (label, value) in field-catalog order. The
// severity cell carries the style class of its priority entry.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/mosajjal/alertmailer/pkg/catalog"
	"github.com/mosajjal/alertmailer/pkg/models"
)

// Placeholder is shown for catalog keys the record does not carry
const Placeholder = "-"

const htmlLayout = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8" />
<title>{{.EnvName}} {{.PluginName}} notification</title>
<style>
table{border-spacing:0;border:none}
table thead tr th{padding:.3em;border-bottom:1px solid #0f1c50;background-color:#0f1c50;color:#fff}
table tbody tr th{padding:.3em;border-bottom:1px solid #0f1c50;background-color:#6785c1;text-align:right;color:#fff}
table tbody tr td{padding:.3em;border-bottom:1px solid #0f1c50}
td.Critical{background-color:#bc4328;font-weight:700;font-size:large;color:#fff}
td.Warning{background-color:#e6b600;font-weight:700;font-size:large}
td.Info{background-color:#0080b1;font-weight:700;font-size:large;color:#fff}
td.Unknown{background-color:#bc4328;font-weight:700;font-size:large;color:#fff}
</style>
</head>
<body>
<main><article>
<p>The following event occurred in {{.EnvName}}.<br>Please review the details below and take action.</p>
<table cellspacing="0">
<thead><tr><th>Field</th><th>Details</th></tr></thead>
<tbody>
{{range .Rows}}<tr><th>{{.Label}}</th>{{if .Class}}<td class="{{.Class}}">{{else}}<td>{{end}}<pre>{{.Value}}</pre></td></tr>
{{end}}</tbody>
</table>
</article></main>
</body>
</html>
`

var page = template.Must(template.New("notification").Parse(htmlLayout))

type row struct {
	Key   string
	Label string
	Value string
	Class string
}

type pageData struct {
	EnvName    string
	PluginName string
	Rows       []row
}

// Render builds the subject, text and HTML bodies for rec. The severity is
// resolved through priorities; unknown keys fall back to its default entry.
// rec is not modified.
func Render(rec models.Record, fields catalog.FieldCatalog, priorities catalog.PriorityCatalog) (subject, text, html string, err error) {
	pr := priorities.Resolve(rec[models.KeyPriority])

	values := rec.Clone()
	values[models.KeyPriorityLabel] = pr.Label

	rows := make([]row, 0, len(fields))
	for _, f := range fields {
		v, ok := values[f.Key]
		if !ok {
			v = Placeholder
		}
		r := row{Key: f.Key, Label: f.Label, Value: norm.NFC.String(v)}
		if f.Key == models.KeyPriorityLabel {
			r.Class = pr.StyleClass
		}
		rows = append(rows, r)
	}

	subject = norm.NFC.String(fmt.Sprintf("[%s] %s : %s", pr.Label, values[models.KeyPluginName], values[models.KeyMonitorID]))
	text = plainText(rows)

	var buf bytes.Buffer
	err = page.Execute(&buf, pageData{
		EnvName:    values[models.KeyEnvName],
		PluginName: values[models.KeyPluginName],
		Rows:       rows,
	})
	if err != nil {
		return "", "", "", fmt.Errorf("failed to render html: %w", err)
	}
	return subject, text, buf.String(), nil
}

func plainText(rows []row) string {
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("%s: %s", r.Label, r.Value))
	}
	return strings.Join(lines, "\n")
}
