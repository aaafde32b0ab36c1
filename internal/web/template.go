package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/radio-buttons/internal/logic"
	"github.com/sweeney/radio-buttons/internal/status"
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
	"stateClass": func(s string) string {
		switch s {
		case "RUNNING":
			return "running"
		case "STOPPED":
			return "stopped"
		}
		return "unknown"
	},
	"addr": status.FormatAddress,
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Radio Buttons</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.running { color: green; font-weight: bold; }
.stopped { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.unbound { color: #888; font-style: italic; }
</style>
</head>
<body>
<h1>Radio Buttons</h1>

<h2>Channels</h2>
<table>
<tr><th>Power button</th><td class="{{stateClass .Interrupt}}">{{.Interrupt}}</td></tr>
<tr><th>Button panel</th><td class="{{stateClass .Register}}">{{.Register}}</td></tr>
<tr><th>Read errors</th><td>{{.ReadErrors}}</td></tr>
{{with .LastEvent}}<tr><th>Last press</th><td>{{.TriggerID}} at {{.Timestamp.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>{{end}}
</table>

<h2>Bindings</h2>
<table>
{{range .Bindings.Triggers}}<tr><th>{{.Action}}</th><td>{{if .Enabled}}pin {{.Pin}}{{else}}<span class="unbound">disabled</span>{{end}}</td></tr>
{{end}}<tr><th>PCF8575</th><td>{{if .Bindings.Expander.Enabled}}{{addr .Bindings.Expander.Address}}{{else}}<span class="unbound">disabled</span>{{end}}</td></tr>
{{range .Buttons}}<tr><th>Button {{.Button}}</th><td>{{if .URI}}{{.URI}}{{else}}<span class="unbound">no station</span>{{end}}</td></tr>
{{end}}</table>

<h2>Event Counts</h2>
<table>
{{range $k, $v := .Counts}}<tr><th>{{$k}}</th><td>{{$v}}</td></tr>
{{else}}<tr><td colspan="2" class="unbound">no presses yet</td></tr>
{{end}}</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Config</th><td>{{.Config.ConfigPath}}</td></tr>
<tr><th>GPIO chip</th><td>{{.Config.Chip}}</td></tr>
<tr><th>I2C bus</th><td>{{.Config.Bus}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Every button gets a row, bound or not.
	stations := snap.Bindings.Expander.Targets
	buttons := make([]status.Station, 0, logic.MaxButtons)
	for i := logic.ButtonIndex(1); i <= logic.MaxButtons; i++ {
		buttons = append(buttons, status.Station{Button: i, URI: stations[i]})
	}

	data := struct {
		status.Snapshot
		Uptime    time.Duration
		Interrupt string
		Register  string
		Buttons   []status.Station
	}{
		Snapshot:  snap,
		Uptime:    snap.Uptime(),
		Interrupt: snap.ChannelState(logic.ChannelInterrupt),
		Register:  snap.ChannelState(logic.ChannelRegister),
		Buttons:   buttons,
	}
	return indexTmpl.Execute(w, data)
}
