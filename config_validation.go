package modloader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/golobby/cast"
	"gopkg.in/yaml.v3"
)

// Struct tags read by the config helpers.
const (
	tagDefault  = "default"
	tagRequired = "required"
	tagDesc     = "desc"
)

// ConfigValidator is implemented by configuration structs that need checks
// beyond required fields. Validate is called after defaults are applied.
type ConfigValidator interface {
	Validate() error
}

// configField is one settable leaf field of a config struct. Path is the
// dotted Go field path, e.g. "Nested.Label".
type configField struct {
	value reflect.Value
	tag   reflect.StructTag
	path  string
}

func configStruct(cfg any) (reflect.Value, error) {
	if cfg == nil {
		return reflect.Value{}, ErrConfigNil
	}
	v := reflect.ValueOf(cfg)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return reflect.Value{}, ErrConfigNotPointer
	}
	if v.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, ErrConfigNotStruct
	}
	return v.Elem(), nil
}

// walkConfig calls visit for every settable non-struct field of v,
// descending into nested structs.
func walkConfig(v reflect.Value, prefix string, visit func(configField) error) error {
	t := v.Type()
	for i := range t.NumField() {
		sf := t.Field(i)
		fv := v.Field(i)
		if !fv.CanSet() {
			continue
		}
		path := sf.Name
		if prefix != "" {
			path = prefix + "." + sf.Name
		}
		if fv.Kind() == reflect.Struct {
			if err := walkConfig(fv, path, visit); err != nil {
				return err
			}
			continue
		}
		if err := visit(configField{value: fv, tag: sf.Tag, path: path}); err != nil {
			return err
		}
	}
	return nil
}

// ProcessConfigDefaults applies `default:"value"` tags to zero-valued fields.
//
// Strings, bools and integers take the tag as is. Slices and string maps
// take a YAML flow value, so JSON syntax works too:
//
//	type Config struct {
//	    Name   string   `default:"main"`
//	    Phases []string `default:"[\"pre-init\",\"init\"]"`
//	}
func ProcessConfigDefaults(cfg any) error {
	v, err := configStruct(cfg)
	if err != nil {
		return err
	}
	return walkConfig(v, "", func(f configField) error {
		def, ok := f.tag.Lookup(tagDefault)
		if !ok || !f.value.IsZero() && !isEmptyCollection(f.value) {
			return nil
		}
		if err := setDefault(f.value, def); err != nil {
			return fmt.Errorf("failed to set default value for %s: %w", f.path, err)
		}
		return nil
	})
}

// ValidateConfigRequired checks that every `required:"true"` field is set.
func ValidateConfigRequired(cfg any) error {
	v, err := configStruct(cfg)
	if err != nil {
		return err
	}
	var missing []string
	_ = walkConfig(v, "", func(f configField) error {
		if f.tag.Get(tagRequired) == "true" && (f.value.IsZero() || isEmptyCollection(f.value)) {
			missing = append(missing, f.path)
		}
		return nil
	})
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrConfigRequiredFieldMissing, strings.Join(missing, ", "))
	}
	return nil
}

// ValidateConfig applies defaults, checks required fields and finally
// calls Validate when cfg implements ConfigValidator.
func ValidateConfig(cfg any) error {
	if err := ProcessConfigDefaults(cfg); err != nil {
		return err
	}
	if err := ValidateConfigRequired(cfg); err != nil {
		return err
	}
	validator, ok := cfg.(ConfigValidator)
	if !ok {
		return nil
	}
	if err := validator.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfigValidationFailed, err)
	}
	return nil
}

// isEmptyCollection treats allocated but empty slices and maps as unset.
func isEmptyCollection(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return false
	}
}

var int64Type = reflect.TypeOf(int64(0))

func setDefault(field reflect.Value, def string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(def)
	case reflect.Bool:
		b, err := cast.FromType(def, field.Type())
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDefaultValueParseError, err)
		}
		field.SetBool(b.(bool))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := cast.FromType(def, int64Type)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDefaultValueParseError, err)
		}
		if field.OverflowInt(n.(int64)) {
			return fmt.Errorf("%w: %s overflows %s", ErrDefaultValueOverflowsInt, def, field.Type())
		}
		field.SetInt(n.(int64))
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("%w: slice of %s", ErrUnsupportedTypeForDefault, field.Type().Elem())
		}
		return decodeDefault(field, def)
	case reflect.Map:
		if field.Type().Key().Kind() != reflect.String || field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("%w: %s", ErrUnsupportedTypeForDefault, field.Type())
		}
		return decodeDefault(field, def)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedTypeForDefault, field.Kind())
	}
	return nil
}

// decodeDefault parses a YAML flow value into a fresh value of the
// field's type.
func decodeDefault(field reflect.Value, def string) error {
	ptr := reflect.New(field.Type())
	if err := yaml.Unmarshal([]byte(def), ptr.Interface()); err != nil {
		return fmt.Errorf("%w: %w", ErrDefaultValueParseError, err)
	}
	field.Set(ptr.Elem())
	return nil
}

// GenerateSampleConfig renders cfg, with defaults applied, as yaml, json
// or toml.
func GenerateSampleConfig(cfg any, format string) ([]byte, error) {
	if err := ProcessConfigDefaults(cfg); err != nil {
		return nil, err
	}
	switch strings.ToLower(format) {
	case "yaml", "yml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal yaml: %w", err)
		}
		return data, nil
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal json: %w", err)
		}
		return data, nil
	case "toml":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, fmt.Errorf("failed to marshal toml: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrConfigValidationFailed, format)
	}
}

// DescribeConfig returns the `desc` tag of every field, keyed by field name.
func DescribeConfig(cfg any) map[string]string {
	out := make(map[string]string)
	t := reflect.TypeOf(cfg)
	if t == nil {
		return out
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return out
	}
	for i := 0; i < t.NumField(); i++ {
		if desc, ok := t.Field(i).Tag.Lookup(tagDesc); ok {
			out[t.Field(i).Name] = desc
		}
	}
	return out
}
