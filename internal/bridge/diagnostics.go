package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// maxDiagnosticLines caps the append logs. When a log reaches the cap it
// is truncated and restarted so the most recent traffic is always kept.
const maxDiagnosticLines = 10000

// Diagnostic file names under the data directory.
const (
	fileBridgeInfo    = "bridge-info.json"
	fileBridgeDevices = "bridge-devices.json"
	fileBridgeGroups  = "bridge-groups.json"
	filePayloadLog    = "bridge-payloads.txt"
	filePublishLog    = "bridge-publish-payloads.txt"
)

// Diagnostics persists gateway snapshots and traffic logs to flat files
// in the data directory. Everything here is best effort: write failures
// are logged and never propagate into frame handling.
//
// Nothing is written unless debug capture is enabled.
type Diagnostics struct {
	dir     string
	enabled bool
	logger  Logger

	mu           sync.Mutex
	payloadLines int
	publishLines int
}

// NewDiagnostics creates a diagnostics writer rooted at dir. When enabled
// is false every write is a no-op.
func NewDiagnostics(dir string, enabled bool, logger Logger) *Diagnostics {
	return &Diagnostics{dir: dir, enabled: enabled, logger: logger}
}

// WriteBridgeInfo persists the pretty-printed bridge/info snapshot.
func (d *Diagnostics) WriteBridgeInfo(raw []byte) {
	if !d.enabled {
		return
	}
	d.writePretty(fileBridgeInfo, raw)
}

// WriteBridgeDevices persists the pretty-printed bridge/devices snapshot.
func (d *Diagnostics) WriteBridgeDevices(raw []byte) {
	if !d.enabled {
		return
	}
	d.writePretty(fileBridgeDevices, raw)
}

// WriteBridgeGroups persists the pretty-printed bridge/groups snapshot.
func (d *Diagnostics) WriteBridgeGroups(raw []byte) {
	if !d.enabled {
		return
	}
	d.writePretty(fileBridgeGroups, raw)
}

// WriteNetworkMap persists a requested network map. Graphviz and plantuml
// maps are text, the raw map is pretty-printed JSON.
func (d *Diagnostics) WriteNetworkMap(mapType string, value any) {
	if !d.enabled {
		return
	}
	switch mapType {
	case NetworkMapGraphviz, NetworkMapPlantUML:
		text, ok := value.(string)
		if !ok {
			d.logWarn("network map value is not text", "type", mapType)
			return
		}
		d.writeFile("networkmap_"+mapType+".txt", []byte(text))

	case NetworkMapRaw:
		raw, err := json.Marshal(value)
		if err != nil {
			d.logWarn("network map marshal failed", "error", err)
			return
		}
		d.writePretty("networkmap_raw.json", raw)

	default:
		d.logWarn("unknown network map type", "type", mapType)
	}
}

// AppendPayload records one inbound entity payload in the traffic log,
// one JSON object per line.
func (d *Diagnostics) AppendPayload(entity string, raw []byte) {
	if !d.enabled {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.payloadLines = d.appendLine(filePayloadLog, d.payloadLines,
		trafficLine(entity, raw))
}

// AppendPublish records one outbound publish in the traffic log,
// one JSON object per line.
func (d *Diagnostics) AppendPublish(topic string, payload []byte) {
	if !d.enabled {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.publishLines = d.appendLine(filePublishLog, d.publishLines,
		trafficLine(topic, payload))
}

// trafficLine builds one log entry as a single JSON object.
func trafficLine(topic string, payload []byte) string {
	entry := struct {
		Time    string          `json:"time"`
		Topic   string          `json:"topic"`
		Payload json.RawMessage `json:"payload"`
	}{
		Time:  time.Now().Format(time.RFC3339),
		Topic: topic,
	}
	if json.Valid(payload) {
		entry.Payload = payload
	} else {
		entry.Payload, _ = json.Marshal(string(payload))
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Sprintf(`{"time":%q,"topic":%q}`, entry.Time, topic)
	}
	return string(line)
}

// appendLine appends one line, truncating the file when the cap is hit.
// Returns the new line count.
func (d *Diagnostics) appendLine(name string, lines int, line string) int {
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if lines >= maxDiagnosticLines {
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
		lines = 0
	}

	path := filepath.Join(d.dir, name)
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		d.logWarn("diagnostic log open failed", "file", name, "error", err)
		return lines
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, line); err != nil {
		d.logWarn("diagnostic log write failed", "file", name, "error", err)
		return lines
	}
	return lines + 1
}

// writePretty writes an indented copy of a JSON payload.
func (d *Diagnostics) writePretty(name string, raw []byte) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		d.logWarn("diagnostic snapshot not valid JSON", "file", name, "error", err)
		return
	}
	d.writeFile(name, buf.Bytes())
}

// writeFile replaces a diagnostic file.
func (d *Diagnostics) writeFile(name string, data []byte) {
	path := filepath.Join(d.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		d.logWarn("diagnostic write failed", "file", name, "error", err)
	}
}

func (d *Diagnostics) logWarn(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Warn(msg, args...)
	}
}

// MirroredPublisher wraps a publisher so every outbound payload is also
// appended to the publish traffic log.
type MirroredPublisher struct {
	Publisher interface {
		Publish(topic string, payload []byte, qos byte, retained bool) error
	}
	Diag *Diagnostics
}

// Publish mirrors the payload into the traffic log before delegating.
func (m *MirroredPublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.Diag.AppendPublish(topic, payload)
	return m.Publisher.Publish(topic, payload, qos, retained)
}
