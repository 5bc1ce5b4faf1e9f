package target

import (
	"time"

	"go.uber.org/zap/zapcore"
)

// Document is the JSON record emitted for one log entry. Keys match the
// default column mapping.
type Document struct {
	Timestamp        time.Time              `json:"Timestamp"`
	Level            string                 `json:"Level"`
	Message          string                 `json:"Message"`
	FormattedMessage string                 `json:"FormattedMessage"`
	Exception        *string                `json:"Exception"`
	Properties       map[string]interface{} `json:"Properties"`
}

// LevelName maps zap levels onto the level names stored in the table.
func LevelName(l zapcore.Level) string {
	switch l {
	case zapcore.DebugLevel:
		return "Debug"
	case zapcore.InfoLevel:
		return "Info"
	case zapcore.WarnLevel:
		return "Warn"
	case zapcore.ErrorLevel, zapcore.DPanicLevel:
		return "Error"
	case zapcore.PanicLevel, zapcore.FatalLevel:
		return "Fatal"
	default:
		return l.CapitalString()
	}
}

// NewDocument converts one entry. The first error field becomes Exception
// (with the entry stack appended when present); every other field goes to
// Properties. Properties is nil when there are no fields.
func NewDocument(ent zapcore.Entry, fields []zapcore.Field, formatted string) Document {
	doc := Document{
		Timestamp:        ent.Time.UTC(),
		Level:            LevelName(ent.Level),
		Message:          ent.Message,
		FormattedMessage: formatted,
	}

	var enc *zapcore.MapObjectEncoder
	for _, f := range fields {
		if doc.Exception == nil && f.Type == zapcore.ErrorType {
			if err, ok := f.Interface.(error); ok && err != nil {
				text := err.Error()
				if ent.Stack != "" {
					text += "\n" + ent.Stack
				}
				doc.Exception = &text
				continue
			}
		}
		if f.Type == zapcore.SkipType {
			continue
		}
		if enc == nil {
			enc = zapcore.NewMapObjectEncoder()
		}
		f.AddTo(enc)
	}
	if enc != nil && len(enc.Fields) > 0 {
		doc.Properties = enc.Fields
	}
	return doc
}
