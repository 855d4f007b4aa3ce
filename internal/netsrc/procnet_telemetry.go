package netsrc

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"netguard/internal/models"
	"netguard/internal/monitor/interfaces"
	"netguard/internal/structures"
)

const defaultTelemetryPath = "/proc/net/dev"

// ProcNetTelemetry reads cumulative per-interface byte counters in the
// /proc/net/dev format. Read failures are transient; the scheduler logs
// them and retries on the next tick.
type ProcNetTelemetry struct {
	path string
}

func NewProcNetTelemetry(conf *structures.Config) interfaces.TelemetrySource {
	path := conf.Monitor.TelemetryPath
	if path == "" {
		path = defaultTelemetryPath
	}
	return &ProcNetTelemetry{path: path}
}

func (p *ProcNetTelemetry) Snapshot() (map[string]models.InterfaceCounters, error) {
	file, err := os.Open(p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read interface counters: %w", err)
	}
	defer file.Close()

	out := make(map[string]models.InterfaceCounters)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		name, counters, ok := parseInterfaceLine(line)
		if !ok {
			continue
		}
		out[name] = counters
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read interface counters: %w", err)
	}
	return out, nil
}

// parseInterfaceLine handles one "iface: rx-bytes ... tx-bytes ..." row.
// Header lines and anything malformed report !ok.
func parseInterfaceLine(line string) (string, models.InterfaceCounters, bool) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return "", models.InterfaceCounters{}, false
	}

	name := strings.TrimSpace(line[:idx])
	fields := strings.Fields(line[idx+1:])
	// 8 receive columns followed by 8 transmit columns; bytes lead each group.
	if name == "" || len(fields) < 16 {
		return "", models.InterfaceCounters{}, false
	}

	received, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return "", models.InterfaceCounters{}, false
	}
	sent, err := strconv.ParseUint(fields[8], 10, 64)
	if err != nil {
		return "", models.InterfaceCounters{}, false
	}

	return name, models.InterfaceCounters{BytesSent: sent, BytesReceived: received}, true
}
