package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/interlock-panel/internal/status"
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
	"selection": func(i int) string {
		if i < 0 {
			return "none"
		}
		return fmt.Sprintf("%d", i)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Interlock Panel</title>
<style>
body { font-family: monospace; max-width: 640px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
.dot { display: inline-block; width: 10px; height: 10px; border-radius: 50%; }
.dot.green { background: green; }
.dot.red { background: red; }
.dot.gray { background: #888; }
.dot.ring { outline: 2px solid gold; outline-offset: 1px; }
.connected { color: green; }
.disconnected { color: red; }
.err { color: orange; }
img.screen { width: 100%; image-rendering: pixelated; border: 1px solid #444; }
</style>
</head>
<body>
<h1>Interlock Panel</h1>

{{if .Screen}}<img class="screen" id="screen" src="/screen.png" alt="panel display">{{end}}

<h2>Interlocks</h2>
{{if .Ready}}<table id="lines">
<tr><th>#</th><th>Line</th><th>Mode</th><th>Status</th></tr>
{{range $i, $l := .Panel.Lines}}<tr><td>{{$i}}</td><td>{{$l.Line.Label}}</td><td>{{$l.Mode}}</td><td><span class="dot {{$l.Indicator.Tone}}{{if $l.Indicator.Ring}} ring{{end}}"></span>{{if $l.Err}} <span class="err">read error</span>{{end}}</td></tr>
{{end}}</table>{{else}}<p>waiting for first poll</p>{{end}}

<h2>Menu</h2>
<table>
<tr><th>Mode</th><td>{{.Mode}}</td></tr>
<tr><th>Tab</th><td>{{.Panel.Menu.Location.Tab}}</td></tr>
<tr><th>Selection</th><td>{{selection .Panel.Menu.Location.Index}}</td></tr>
<tr><th>Brightness</th><td>{{.Panel.Menu.Aux.LCDBrightness}}</td></tr>
<tr><th>Auto reset</th><td>{{if .Panel.Menu.Aux.AutoResetEnabled}}on, {{.Panel.Menu.Aux.AutoResetDelay}}{{else}}off{{end}}{{if .Panel.Watchdog.Pending}} (armed){{end}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Manual resets</th><td>{{.Panel.Counts.ManualPulses}}</td></tr>
<tr><th>Auto resets</th><td>{{.Panel.Counts.AutoPulses}}</td></tr>
<tr><th>Simulation commits</th><td>{{.Panel.Counts.Commits}}</td></tr>
<tr><th>Faults armed</th><td>{{.Panel.Counts.FaultsArmed}}</td></tr>
<tr><th>Bus errors</th><td>{{.Panel.Counts.BusErrors}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms, debounce {{.Config.DebounceTicks}} ticks</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
{{if .Config.Headless}}<tr><th>Hardware</th><td>headless</td></tr>{{end}}
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
  var img = document.getElementById("screen");
  ws.onmessage = function(ev) {
    try {
      var s = JSON.parse(ev.data).status;
      var table = document.getElementById("lines");
      if (table && s.lines) {
        s.lines.forEach(function(l, i) {
          var row = table.rows[i + 1];
          if (!row) return;
          row.cells[2].textContent = l.mode;
          row.cells[3].firstChild.className = "dot " + l.colour + (l.simulated ? " ring" : "");
        });
      }
      if (img) img.src = "/screen.png?t=" + Date.now();
    } catch (e) {}
  };
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, screen bool) error {
	// Snapshot has Uptime() and State.Mode() methods; the template needs
	// plain fields.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Mode   string
		Screen bool
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Mode:     string(snap.Panel.Menu.Mode()),
		Screen:   screen,
	}
	return indexTmpl.Execute(w, data)
}
