package web

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/sweeney/led-sequencer/internal/led"
	"github.com/sweeney/led-sequencer/internal/mqtt"
	"github.com/sweeney/led-sequencer/internal/status"
)

// ledRow is one LED as shown on the page.
type ledRow struct {
	Name string
	On   bool
}

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
	"stamp": func(t time.Time) string {
		return t.UTC().Format("15:04:05")
	},
	"lower": strings.ToLower,
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>LED Sequencer</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { font-weight: bold; }
.off { color: #888; }
.fault { color: red; font-weight: bold; }
.led-green.on { color: green; }
.led-orange.on { color: darkorange; }
.led-red.on { color: red; }
.led-blue.on { color: blue; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>LED Sequencer{{if .Config.WSBroker}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>State</h2>
<table>
<tr><th>State</th><td id="state" class="{{if eq .StateName "ERROR"}}fault{{end}}">{{.StateName}}</td></tr>
<tr><th>Tick</th><td id="tick">{{.Tick}}</td></tr>
<tr><th>State timer</th><td>{{.StateTimer}} ticks</td></tr>
<tr><th>Ready</th><td>{{if .Started}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>LEDs</h2>
<table>
{{range .LEDRows}}<tr><th>{{.Name}}</th><td class="led-{{lower .Name}} {{if .On}}on{{else}}off{{end}}">{{if .On}}ON{{else}}OFF{{end}}</td></tr>
{{end}}</table>

<h2>Counters</h2>
<table>
<tr><th>Interrupts</th><td>{{.Counters.Interrupts}}</td></tr>
<tr><th>Transitions</th><td>{{.Counters.Transitions}}</td></tr>
<tr><th>Faults</th><td>{{.Counters.Faults}}</td></tr>
<tr><th>Status reports</th><td>{{.Counters.StatusReports}}</td></tr>
<tr><th>UART messages</th><td>{{.Counters.Messages}}</td></tr>
<tr><th>UART bytes</th><td>{{.Counters.Bytes}}</td></tr>
</table>

<h2>Recent Transitions</h2>
<table id="history">
{{range .Recent}}<tr><th>{{stamp .Time}} @{{.Tick}}</th><td class="{{if .Fault}}fault{{end}}">{{.From}} &rarr; {{.To}}</td></tr>
{{else}}<tr><td>none yet</td></tr>
{{end}}</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick period</th><td>{{.Config.TickPeriodMs}}ms</td></tr>
<tr><th>Mode</th><td>{{if .Config.Simulate}}simulated{{else}}hardware ({{.Config.SerialDevice}}){{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> &middot; <a href="/metrics">metrics</a></p>
{{if .Config.WSBroker}}
<script src="https://unpkg.com/mqtt/dist/mqtt.min.js"></script>
<script>
(function() {
  var broker = "{{.Config.WSBroker}}";
  var topic = "{{.Topic}}";
  var dot = document.getElementById("live-dot");
  var stateEl = document.getElementById("state");
  var tickEl = document.getElementById("tick");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  var client = mqtt.connect(broker, { reconnectPeriod: 5000 });

  client.on("connect", function() {
    setDot("ok", "live");
    client.subscribe(topic);
  });

  client.on("reconnect", function() {
    setDot("pending", "reconnecting");
  });

  client.on("offline", function() {
    setDot("err", "offline");
  });

  client.on("error", function() {
    setDot("err", "error");
  });

  client.on("message", function(t, payload) {
    try {
      var msg = JSON.parse(payload.toString());
      if (msg.transition) {
        stateEl.textContent = msg.transition.to;
        stateEl.className = msg.transition.fault ? "fault" : "";
        tickEl.textContent = msg.transition.tick;
      }
    } catch (e) {}
  });
})();
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	state := snap.State.String()
	if !snap.Started {
		state = "UNKNOWN"
	}

	// LED order on the board: green, orange, red, blue.
	rows := make([]ledRow, 0, 4)
	for _, bit := range []uint32{led.Green, led.Orange, led.Red, led.Blue} {
		rows = append(rows, ledRow{Name: strings.ToUpper(led.Names(bit)[0]), On: snap.Pattern&bit != 0})
	}

	// Newest first.
	recent := make([]status.TransitionRecord, len(snap.History))
	for i, r := range snap.History {
		recent[len(recent)-1-i] = r
	}

	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime    time.Duration
		StateName string
		LEDRows   []ledRow
		Recent    []status.TransitionRecord
		Topic     string
	}{
		Snapshot:  snap,
		Uptime:    snap.Uptime(),
		StateName: state,
		LEDRows:   rows,
		Recent:    recent,
		Topic:     mqtt.Topic,
	}
	indexTmpl.Execute(w, data)
}
