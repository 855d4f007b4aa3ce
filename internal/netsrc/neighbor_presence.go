package netsrc

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"netguard/internal/models"
	"netguard/internal/monitor/interfaces"
	"netguard/internal/structures"
)

const defaultPresencePath = "/proc/net/arp"

// NeighborPresence derives the active device set from the kernel neighbor
// table (or any file listing one entry per line with a hardware address
// column, which is what arp-scan exports look like).
type NeighborPresence struct {
	path string
}

func NewNeighborPresence(conf *structures.Config) interfaces.PresenceSource {
	path := conf.Monitor.PresencePath
	if path == "" {
		path = defaultPresencePath
	}
	return &NeighborPresence{path: path}
}

func (n *NeighborPresence) ActiveDeviceIDs() (map[string]struct{}, error) {
	file, err := os.Open(n.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read neighbor table: %w", err)
	}
	defer file.Close()

	out := make(map[string]struct{})
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		for _, field := range strings.Fields(scanner.Text()) {
			if !looksLikeHardwareAddress(field) {
				continue
			}
			id := models.NormalizeDeviceID(field)
			// The neighbor table reports incomplete entries as 00:00:...
			if strings.Trim(id, "0") == "" {
				continue
			}
			out[id] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read neighbor table: %w", err)
	}
	return out, nil
}

func looksLikeHardwareAddress(s string) bool {
	if len(s) != 17 {
		return false
	}
	for i, c := range s {
		if (i+1)%3 == 0 {
			if c != ':' && c != '-' {
				return false
			}
			continue
		}
		isHex := (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
		if !isHex {
			return false
		}
	}
	return true
}
