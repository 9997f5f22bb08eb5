package logic

import (
	"strconv"
	"strings"
)

// FormatStatus renders a status report as CRLF-terminated text for the UART.
func FormatStatus(r StatusReport) string {
	var b strings.Builder
	line := func(label, value string) {
		b.WriteString(label)
		b.WriteString(value)
		b.WriteString("\r\n")
	}

	b.WriteString("=== System Status ===\r\n")
	line("Uptime: ", strconv.FormatUint(uint64(r.UptimeSeconds), 10)+"s")
	line("State: ", r.State.String())
	line("Ticks: ", strconv.FormatUint(uint64(r.Tick), 10))
	line("Transitions: ", strconv.FormatUint(uint64(r.Counters.Transitions), 10))
	line("Messages: ", strconv.FormatUint(uint64(r.Counters.Messages), 10))
	b.WriteString("=====================\r\n\r\n")
	return b.String()
}
