package feeders

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/golobby/cast"
)

// EnvFeeder reads struct fields tagged `env:"NAME"` from environment
// variables named Prefix + NAME. Slices are comma separated and
// map[string]string fields use "key=value,key=value".
type EnvFeeder struct {
	Prefix string
	// Lookup defaults to os.LookupEnv.
	Lookup func(string) (string, bool)
}

// NewEnvFeeder creates an EnvFeeder for variables starting with prefix.
func NewEnvFeeder(prefix string) EnvFeeder {
	return EnvFeeder{Prefix: prefix}
}

// Feed implements Feeder.
func (e EnvFeeder) Feed(target any) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return ErrEnvInvalidStructure
	}
	lookup := e.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return e.feedStruct(v.Elem(), lookup)
}

func (e EnvFeeder) feedStruct(v reflect.Value, lookup func(string) (string, bool)) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if field.Kind() == reflect.Struct && fieldType.Tag.Get("env") == "" {
			if err := e.feedStruct(field, lookup); err != nil {
				return err
			}
			continue
		}

		tag := fieldType.Tag.Get("env")
		if tag == "" {
			continue
		}
		name := strings.ToUpper(e.Prefix + tag)
		value, ok := lookup(name)
		if !ok || value == "" {
			continue
		}
		if !field.CanSet() {
			return fmt.Errorf("%w: %s", ErrEnvFieldCannotBeSet, fieldType.Name)
		}
		if err := setFieldValue(field, value); err != nil {
			return fmt.Errorf("env %s: %w", name, err)
		}
	}
	return nil
}

// setFieldValue converts and sets a field value
func setFieldValue(field reflect.Value, strValue string) error {
	switch field.Kind() {
	case reflect.Slice:
		parts := splitList(strValue)
		slice := reflect.MakeSlice(field.Type(), 0, len(parts))
		for _, p := range parts {
			elem, err := cast.FromType(p, field.Type().Elem())
			if err != nil {
				return fmt.Errorf("cannot convert %q to %v: %w", p, field.Type().Elem(), err)
			}
			slice = reflect.Append(slice, reflect.ValueOf(elem).Convert(field.Type().Elem()))
		}
		field.Set(slice)
		return nil
	case reflect.Map:
		if field.Type().Key().Kind() != reflect.String || field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("%w: %v", ErrEnvUnsupportedType, field.Type())
		}
		m := reflect.MakeMap(field.Type())
		for _, entry := range splitList(strValue) {
			k, val, ok := strings.Cut(entry, "=")
			if !ok {
				return fmt.Errorf("%w: %q", ErrEnvInvalidMapEntry, entry)
			}
			m.SetMapIndex(reflect.ValueOf(strings.TrimSpace(k)), reflect.ValueOf(strings.TrimSpace(val)))
		}
		field.Set(m)
		return nil
	default:
		converted, err := cast.FromType(strValue, field.Type())
		if err != nil {
			return fmt.Errorf("cannot convert value to type %v: %w", field.Type(), err)
		}
		field.Set(reflect.ValueOf(converted).Convert(field.Type()))
		return nil
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
