package logging

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/ssgreg/journald"
	"go.uber.org/zap/zapcore"
)

// journaldPriorities maps zapcore.Level to journal.Priority.
var journaldPriorities = map[zapcore.Level]journald.Priority{
	zapcore.DebugLevel:  journald.PriorityDebug,
	zapcore.InfoLevel:   journald.PriorityInfo,
	zapcore.WarnLevel:   journald.PriorityWarning,
	zapcore.ErrorLevel:  journald.PriorityErr,
	zapcore.FatalLevel:  journald.PriorityCrit,
	zapcore.PanicLevel:  journald.PriorityCrit,
	zapcore.DPanicLevel: journald.PriorityCrit,
}

// journaldVisibleFields are the field keys which are also appended to the message,
// as journalctl doesn't show journal fields by default.
var journaldVisibleFields = map[string]struct{}{
	"error":     {},
	"statement": {},
}

// NewJournaldCore returns a zapcore.Core that sends log entries to systemd-journald and
// uses the given identifier as a prefix for structured logging context that is sent as journal fields.
func NewJournaldCore(identifier string, enab zapcore.LevelEnabler) zapcore.Core {
	return &journaldCore{
		LevelEnabler: enab,
		identifier:   identifier,
	}
}

type journaldCore struct {
	zapcore.LevelEnabler
	context    []zapcore.Field
	identifier string
}

func (c *journaldCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}

	return ce
}

func (c *journaldCore) Sync() error {
	return nil
}

func (c *journaldCore) With(fields []zapcore.Field) zapcore.Core {
	cc := *c
	cc.context = append(cc.context[:len(cc.context):len(cc.context)], fields...)

	return &cc
}

func (c *journaldCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	pri, ok := journaldPriorities[ent.Level]
	if !ok {
		return errors.Errorf("unknown log level %q", ent.Level)
	}

	enc := zapcore.NewMapObjectEncoder()
	for _, field := range append(fields, c.context...) {
		field.Key = c.identifier + "_" + field.Key
		field.AddTo(enc)
	}

	// Keys are encoded only now, as Field.AddTo may add more than one entry per field.
	journalFields := make(map[string]interface{}, len(enc.Fields)+1)
	for k, v := range enc.Fields {
		journalFields[encodeJournaldFieldKey(k)] = v
	}
	journalFields["SYSLOG_IDENTIFIER"] = c.identifier

	message := ent.Message + visibleFieldsMsg(journaldVisibleFields, append(fields, c.context...))
	if ent.LoggerName != c.identifier {
		message = ent.LoggerName + ": " + message
	}

	return journald.Send(message, pri, journalFields)
}

// encodeJournaldFieldKey turns key into a valid journald field key, which journald would silently drop otherwise.
// Valid keys are up to 64 characters from [A-Z0-9_], starting with [A-Z].
func encodeJournaldFieldKey(key string) string {
	if key == "" {
		return "EMPTY_KEY"
	}

	keyParts := []rune(strings.ToUpper(key))
	for i, r := range keyParts {
		if ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') || r == '_' {
			continue
		}
		keyParts[i] = '_'
	}
	key = string(keyParts)

	if key[0] < 'A' || key[0] > 'Z' {
		key = "ESC_" + key
	}

	if len(key) > 64 {
		key = key[:64]
	}

	return key
}

// visibleFieldsMsg renders the fields whose keys are in visibleFieldKeys as a string to be appended to a message.
// The result is either empty or starts with a tab.
func visibleFieldsMsg(visibleFieldKeys map[string]struct{}, fields []zapcore.Field) string {
	if len(visibleFieldKeys) == 0 || len(fields) == 0 {
		return ""
	}

	enc := zapcore.NewMapObjectEncoder()
	for _, field := range fields {
		if _, ok := visibleFieldKeys[field.Key]; ok {
			field.AddTo(enc)
		}
	}

	// An error field may also add an errorVerbose entry, so keys are checked once more.
	keys := make([]string, 0, len(enc.Fields))
	for k := range enc.Fields {
		if _, ok := visibleFieldKeys[k]; ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	visibleFields := make([]string, 0, len(keys))
	for _, k := range keys {
		switch v := enc.Fields[k]; v.(type) {
		case string, []byte, error:
			visibleFields = append(visibleFields, fmt.Sprintf("%s=%q", k, v))
		default:
			visibleFields = append(visibleFields, fmt.Sprintf(`%s="%v"`, k, v))
		}
	}

	if len(visibleFields) == 0 {
		return ""
	}

	return "\t" + strings.Join(visibleFields, ", ")
}
