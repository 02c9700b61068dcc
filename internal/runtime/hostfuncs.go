package runtime

import (
	"fmt"
	"log/slog"

	"github.com/risor-io/risor/object"
	"gopkg.in/yaml.v3"

	"github.com/jward/apisnap/internal/decl"
)

// logObject provides log.info/warn/error methods for Risor scripts.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg, "source", "script")
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg, "source", "script")
}

func (l *logObject) Error(msg string) {
	l.logger.Error(msg, "source", "script")
}

// toObject converts decoded YAML/JSON-shaped Go values into Risor objects.
// Anything else is wrapped in a proxy.
func toObject(v any) object.Object {
	switch val := v.(type) {
	case nil:
		return object.Nil
	case object.Object:
		return val
	case string:
		return object.NewString(val)
	case bool:
		return object.NewBool(val)
	case int:
		return object.NewInt(int64(val))
	case int64:
		return object.NewInt(val)
	case float64:
		return object.NewFloat(val)
	case []string:
		items := make([]object.Object, len(val))
		for i, s := range val {
			items[i] = object.NewString(s)
		}
		return object.NewList(items)
	case []any:
		items := make([]object.Object, len(val))
		for i, item := range val {
			items[i] = toObject(item)
		}
		return object.NewList(items)
	case map[string]any:
		m := make(map[string]object.Object, len(val))
		for k, item := range val {
			m[k] = toObject(item)
		}
		return object.NewMap(m)
	case map[any]any:
		m := make(map[string]object.Object, len(val))
		for k, item := range val {
			m[fmt.Sprint(k)] = toObject(item)
		}
		return object.NewMap(m)
	default:
		return mustProxy(v)
	}
}

// decodeUnit converts a Risor map shaped like a YAML unit document into a
// decl.Unit. The map goes through the YAML codec so scripts and YAML
// documents share one schema.
func decodeUnit(obj object.Object) (decl.Unit, error) {
	if _, ok := obj.(*object.Map); !ok {
		return decl.Unit{}, fmt.Errorf("expected map, got %s", obj.Type())
	}
	data, err := yaml.Marshal(obj.Interface())
	if err != nil {
		return decl.Unit{}, fmt.Errorf("encode unit: %w", err)
	}
	var u decl.Unit
	if err := yaml.Unmarshal(data, &u); err != nil {
		return decl.Unit{}, fmt.Errorf("decode unit: %w", err)
	}
	if u.Path == "" {
		return decl.Unit{}, fmt.Errorf("unit path is required")
	}
	if u.ContentFile != "" {
		return decl.Unit{}, fmt.Errorf("unit %s: content_file is not supported in scripts", u.Path)
	}
	return u, nil
}
