package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/dehne/escapement/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"modeOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
	"bpm": func(v float64) string {
		if v == 0 {
			return "—"
		}
		return fmt.Sprintf("%.4f", v)
	},
	"temp": func(c float64, ok bool) string {
		if !ok {
			return "no sensor"
		}
		return fmt.Sprintf("%.2f °C", c)
	},
	"ratio": func(v float64) string {
		if v == 0 {
			return "—"
		}
		return fmt.Sprintf("%.5f", v)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Escapement</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.run { color: green; font-weight: bold; }
.cal { color: orange; font-weight: bold; }
.unknown { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Escapement</h1>

<h2>Beat</h2>
<table>
<tr><th>Mode</th><td class="{{if eq (modeOrUnknown .Mode) "RUN"}}run{{else if eq (modeOrUnknown .Mode) "UNKNOWN"}}unknown{{else}}cal{{end}}">{{modeOrUnknown .Mode}}</td></tr>
<tr><th>Current rate</th><td>{{bpm .BPM}} bpm</td></tr>
<tr><th>Average rate</th><td>{{bpm .AvgBPM}} bpm</td></tr>
<tr><th>Tick/tock</th><td>{{ratio .TickTock}}</td></tr>
<tr><th>Beats</th><td>{{.Beats}}</td></tr>
<tr><th>Discarded</th><td>{{.Dropped}}</td></tr>
</table>

<h2>Calibration</h2>
<table>
<tr><th>Temperature</th><td>{{temp .TempC .TempOK}}</td></tr>
<tr><th>Compensated</th><td>{{if .Compensated}}yes{{else}}no{{end}}</td></tr>
<tr><th>Bucket</th><td>{{if lt .Bucket 0}}out of range{{else}}{{.Bucket}}{{end}}</td></tr>
<tr><th>Bucket samples</th><td>{{.BucketSamples}}</td></tr>
<tr><th>Model slope</th><td>{{printf "%.3f" .SlopeUs}} µs/°C</td></tr>
<tr><th>Model intercept</th><td>{{if eq .InterceptUs 0}}unset{{else}}{{.InterceptUs}} µs{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Sense pin</th><td>GPIO{{.Config.SensePin}}</td></tr>
<tr><th>Kick pin</th><td>GPIO{{.Config.KickPin}}</td></tr>
<tr><th>Settings</th><td>{{.Config.SettingsPath}}</td></tr>
<tr><th>Display</th><td>{{if .Config.DisplayPort}}{{.Config.DisplayPort}}{{else}}disabled{{end}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
