package logger

import (
	"time"

	"github.com/rs/zerolog"
)

type fieldKind uint8

const (
	kindString fieldKind = iota
	kindInt
	kindFloat
	kindBool
	kindError
	kindAny
)

// Field is one typed key/value pair attached to a log entry.
type Field struct {
	Key  string
	kind fieldKind
	str  string
	num  int64
	flt  float64
	obj  interface{}
}

func (f Field) apply(e *zerolog.Event) {
	switch f.kind {
	case kindString:
		e.Str(f.Key, f.str)
	case kindInt:
		e.Int64(f.Key, f.num)
	case kindFloat:
		e.Float64(f.Key, f.flt)
	case kindBool:
		e.Bool(f.Key, f.num != 0)
	case kindError:
		if err, _ := f.obj.(error); err != nil {
			e.AnErr(f.Key, err)
		}
	default:
		e.Interface(f.Key, f.obj)
	}
}

// value is used for context fields added through With.
func (f Field) value() interface{} {
	switch f.kind {
	case kindString:
		return f.str
	case kindInt:
		return f.num
	case kindFloat:
		return f.flt
	case kindBool:
		return f.num != 0
	case kindError:
		if err, _ := f.obj.(error); err != nil {
			return err.Error()
		}
		return nil
	}
	return f.obj
}

func String(key, v string) Field { return Field{Key: key, kind: kindString, str: v} }

func Int(key string, v int) Field { return Field{Key: key, kind: kindInt, num: int64(v)} }

func Int64(key string, v int64) Field { return Field{Key: key, kind: kindInt, num: v} }

func Float64(key string, v float64) Field { return Field{Key: key, kind: kindFloat, flt: v} }

func Bool(key string, v bool) Field {
	f := Field{Key: key, kind: kindBool}
	if v {
		f.num = 1
	}
	return f
}

// Error attaches err under "error". A nil err adds nothing.
func Error(err error) Field { return Field{Key: zerolog.ErrorFieldName, kind: kindError, obj: err} }

func Any(key string, v interface{}) Field { return Field{Key: key, kind: kindAny, obj: v} }

// Duration logs d in whole milliseconds.
func Duration(key string, d time.Duration) Field { return Int64(key, d.Milliseconds()) }

func Strings(key string, v []string) Field { return Any(key, v) }

// Time logs t in UTC, second precision.
func Time(key string, t time.Time) Field { return String(key, t.UTC().Format(time.RFC3339)) }
