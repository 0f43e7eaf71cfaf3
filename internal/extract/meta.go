package extract

import (
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Node types used in deprecation warnings.
const (
	NodeModel  = "model"
	NodeColumn = "column"
)

// DeprecationTracker remembers which legacy meta.sst warnings were already
// emitted during one run. The zero value is not usable; use NewDeprecationTracker.
type DeprecationTracker struct {
	mu      sync.Mutex
	logger  *slog.Logger
	seen    map[string]bool
	emitted []string
}

// NewDeprecationTracker creates a tracker that logs to logger.
func NewDeprecationTracker(logger *slog.Logger) *DeprecationTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeprecationTracker{
		logger: logger,
		seen:   make(map[string]bool),
	}
}

// Warn logs the legacy-location warning for a node once per run.
// Columns are CRITICAL since dbt Fusion rejects them; models are WARNING.
func (t *DeprecationTracker) Warn(nodeType, nodeName string) {
	key := nodeType + ":" + nodeName

	t.mu.Lock()
	if t.seen[key] {
		t.mu.Unlock()
		return
	}
	t.seen[key] = true
	t.emitted = append(t.emitted, key)
	t.mu.Unlock()

	severity := "WARNING"
	if nodeType == NodeColumn {
		severity = "CRITICAL"
	}

	t.logger.Warn(fmt.Sprintf(
		"[DEPRECATED-%s] %s '%s' uses meta.sst pattern. This will be an ERROR in dbt Fusion. "+
			"Migrate to config.meta.sst pattern. Run 'sst migrate-meta' to auto-fix.",
		severity, cases.Title(language.English).String(nodeType), nodeName),
		"node_type", nodeType, "node", nodeName)
}

// Emitted returns the "type:name" keys warned about, in emission order.
func (t *DeprecationTracker) Emitted() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.emitted...)
}

// Reset forgets every emitted warning.
func (t *DeprecationTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen = make(map[string]bool)
	t.emitted = nil
}

// SSTMeta returns the SST metadata block of a dbt model or column node.
// config.meta.sst takes priority over the legacy meta.sst location. Reading
// the legacy location reports a deprecation through tracker; a nil tracker
// disables the warning. Malformed blocks yield an empty map.
func SSTMeta(node map[string]any, nodeType, nodeName string, tracker *DeprecationTracker) map[string]any {
	if cfg, ok := node["config"].(map[string]any); ok {
		if meta, ok := cfg["meta"].(map[string]any); ok {
			if raw, present := meta["sst"]; present {
				return asMap(raw)
			}
		}
	}

	meta, ok := node["meta"].(map[string]any)
	if !ok {
		return map[string]any{}
	}

	raw := meta["sst"]
	if truthy(raw) && tracker != nil {
		tracker.Warn(nodeType, nodeName)
	}
	return asMap(raw)
}

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok && m != nil {
		return m
	}
	return map[string]any{}
}

// truthy reports whether v is a non-empty value.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case map[string]any:
		return len(x) > 0
	case []any:
		return len(x) > 0
	case string:
		return x != ""
	case bool:
		return x
	default:
		return true
	}
}
