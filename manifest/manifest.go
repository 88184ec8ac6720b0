// Package manifest reads mod manifests from disk and normalizes them into
// modloader.RawDescriptor records.
//
// Manifests may be written as mod.json, mod.yaml, mod.yml or mod.toml.
// Key names are matched case-insensitively and several spellings are
// accepted for the same field, so older and newer manifest styles decode
// to the same shape.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/golobby/cast"
	"gopkg.in/yaml.v3"

	"github.com/GoCodeAlone/modloader"
)

// FileNames lists the manifest names looked up in each mod directory,
// in priority order.
var FileNames = []string{"mod.json", "mod.yaml", "mod.yml", "mod.toml"}

var (
	ErrNoManifest          = errors.New("no manifest found")
	ErrUnsupportedFormat   = errors.New("unsupported manifest format")
	ErrInvalidField        = errors.New("invalid manifest field")
	ErrManifestNotAnObject = errors.New("manifest is not an object")
)

// Manifest is a decoded manifest: the raw descriptor plus the phases the
// manifest declares, used by hosts that bind callbacks from the manifest
// rather than from compiled code.
type Manifest struct {
	Raw    modloader.RawDescriptor
	Phases []string
	Path   string
}

// DirError reports a mod directory whose manifest could not be read.
type DirError struct {
	Dir string
	Err error
}

func (e *DirError) Error() string { return fmt.Sprintf("%s: %v", e.Dir, e.Err) }
func (e *DirError) Unwrap() error { return e.Err }

// aliases maps each normalized field to the lower-cased keys it may use.
var aliases = map[string][]string{
	"id":                  {"id", "modid"},
	"displayName":         {"displayname", "name"},
	"author":              {"author"},
	"version":             {"version"},
	"platform":            {"game", "platform", "targetplatform"},
	"enabled":             {"enable", "enabled"},
	"dependencies":        {"dependencies", "requires"},
	"versionDependencies": {"versiondependencies", "requiredversions"},
	"loadBefore":          {"loadbefore"},
	"loadAfter":           {"loadafter"},
	"entryPoint":          {"entrypoint", "entrymethod"},
	"artifact":            {"assemblyname", "artifact", "assembly"},
	"phases":              {"phases", "callbacks"},
}

// Decode reads and normalizes one manifest file.
func Decode(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	doc, err := unmarshal(path, data)
	if err != nil {
		return nil, err
	}
	m, err := Normalize(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.Path = path
	m.Raw.Source = path
	if m.Raw.EntryPoint.Artifact != "" && !filepath.IsAbs(m.Raw.EntryPoint.Artifact) {
		m.Raw.EntryPoint.Artifact = filepath.Join(filepath.Dir(path), m.Raw.EntryPoint.Artifact)
	}
	return m, nil
}

func unmarshal(path string, data []byte) (map[string]any, error) {
	var doc map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode json manifest: %w", err)
		}
	case ".yaml", ".yml":
		var root yaml.Node
		if err := yaml.Unmarshal(data, &root); err != nil {
			return nil, fmt.Errorf("decode yaml manifest: %w", err)
		}
		var err error
		if doc, err = yamlDocument(&root); err != nil {
			return nil, fmt.Errorf("decode yaml manifest: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode toml manifest: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if doc == nil {
		return nil, ErrManifestNotAnObject
	}
	return doc, nil
}

// yamlDocument converts a parsed YAML document into generic values.
// Numbers keep their literal text, so "version: 1.10" stays "1.10".
func yamlDocument(root *yaml.Node) (map[string]any, error) {
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, nil
	}
	node := root
	if node.Kind == yaml.DocumentNode {
		node = node.Content[0]
	}
	v, err := yamlValue(node)
	if err != nil {
		return nil, err
	}
	doc, ok := v.(map[string]any)
	if !ok {
		if v == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: got %T", ErrManifestNotAnObject, v)
	}
	return doc, nil
}

func yamlValue(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.AliasNode:
		return yamlValue(node.Alias)
	case yaml.MappingNode:
		out := make(map[string]any, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			v, err := yamlValue(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			out[node.Content[i].Value] = v
		}
		return out, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			v, err := yamlValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.ScalarNode:
		switch node.ShortTag() {
		case "!!null":
			return nil, nil
		case "!!bool":
			var b bool
			if err := node.Decode(&b); err != nil {
				return nil, err
			}
			return b, nil
		default:
			return node.Value, nil
		}
	default:
		return nil, fmt.Errorf("unexpected yaml node at line %d", node.Line)
	}
}

// Normalize converts a generic decoded document into a Manifest.
func Normalize(doc map[string]any) (*Manifest, error) {
	fields := make(map[string]any, len(doc))
	for k, v := range doc {
		fields[strings.ToLower(k)] = v
	}
	get := func(name string) (any, bool) {
		for _, key := range aliases[name] {
			if v, ok := fields[key]; ok && v != nil {
				return v, true
			}
		}
		return nil, false
	}

	var m Manifest
	var err error
	raw := &m.Raw
	str := func(name string) string {
		if err != nil {
			return ""
		}
		v, ok := get(name)
		if !ok {
			return ""
		}
		var s string
		s, err = asString(name, v)
		return s
	}

	raw.ID = str("id")
	raw.DisplayName = str("displayName")
	raw.Author = str("author")
	raw.Version = str("version")
	if err == nil {
		if v, ok := get("version"); ok {
			err = checkVersionLiteral("version", v)
		}
	}
	raw.Platform = str("platform")
	raw.EntryPoint.Path = str("entryPoint")
	raw.EntryPoint.Artifact = str("artifact")
	if err != nil {
		return nil, err
	}

	if v, ok := get("enabled"); ok {
		enabled, convErr := asBool(v)
		if convErr != nil {
			return nil, convErr
		}
		raw.Enabled = &enabled
	}

	if v, ok := get("dependencies"); ok {
		deps, versions, convErr := asDependencies(v)
		if convErr != nil {
			return nil, convErr
		}
		raw.Dependencies = deps
		raw.VersionDependencies = versions
	}
	if v, ok := get("versionDependencies"); ok {
		versions, convErr := asStringMap("versionDependencies", v)
		if convErr != nil {
			return nil, convErr
		}
		if raw.VersionDependencies == nil {
			raw.VersionDependencies = make(map[string]string, len(versions))
		}
		for id, ver := range versions {
			raw.VersionDependencies[id] = ver
		}
	}

	for name, dst := range map[string]*[]string{
		"loadBefore": &raw.LoadBefore,
		"loadAfter":  &raw.LoadAfter,
		"phases":     &m.Phases,
	} {
		v, ok := get(name)
		if !ok {
			continue
		}
		list, convErr := asStringList(name, v)
		if convErr != nil {
			return nil, convErr
		}
		*dst = list
	}

	return &m, nil
}

// LoadDir decodes the manifest of every immediate sub-directory of root,
// in directory name order. Directories without a manifest are skipped;
// unreadable manifests are returned as *DirError values alongside the
// manifests that did decode.
func LoadDir(root string) ([]*Manifest, []error, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, nil, fmt.Errorf("read mods directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var (
		manifests []*Manifest
		errs      []error
	)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		path, findErr := Find(dir)
		if errors.Is(findErr, ErrNoManifest) {
			continue
		}
		if findErr != nil {
			errs = append(errs, &DirError{Dir: dir, Err: findErr})
			continue
		}
		m, decodeErr := Decode(path)
		if decodeErr != nil {
			errs = append(errs, &DirError{Dir: dir, Err: decodeErr})
			continue
		}
		manifests = append(manifests, m)
	}
	return manifests, errs, nil
}

// Find returns the highest priority manifest file in dir.
func Find(dir string) (string, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stat manifest: %w", err)
		}
	}
	return "", fmt.Errorf("%w in %s", ErrNoManifest, dir)
}

// RawDescriptors extracts the raw descriptors of manifests.
func RawDescriptors(manifests []*Manifest) []modloader.RawDescriptor {
	out := make([]modloader.RawDescriptor, len(manifests))
	for i, m := range manifests {
		out[i] = m.Raw
	}
	return out
}

func asString(name string, v any) (string, error) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), nil
	case json.Number:
		return t.String(), nil
	case int, int64, float64, bool:
		return fmt.Sprint(t), nil
	default:
		return "", fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidField, name, v)
	}
}

// checkVersionLiteral rejects versions a decoder has already turned into
// a float, where "1.10" would silently become 1.1.
func checkVersionLiteral(name string, v any) error {
	if _, ok := v.(float64); ok {
		return fmt.Errorf("%w: %s %v must be quoted, numeric versions lose digits", ErrInvalidField, name, v)
	}
	return nil
}

// asBool accepts booleans and boolean-like strings such as "true" or "0".
func asBool(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, err := cast.FromType(strings.TrimSpace(t), reflect.TypeOf(true))
		if err != nil {
			return false, fmt.Errorf("%w: enable: %w", ErrInvalidField, err)
		}
		return b.(bool), nil
	case int, int64:
		return fmt.Sprint(t) != "0", nil
	case json.Number:
		return t.String() != "0", nil
	default:
		return false, fmt.Errorf("%w: enable must be a boolean, got %T", ErrInvalidField, v)
	}
}

func asStringList(name string, v any) ([]string, error) {
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, nil
		}
		return []string{strings.TrimSpace(t)}, nil
	case []string:
		return slices.Clone(t), nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, err := asString(name, item)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s must be a list, got %T", ErrInvalidField, name, v)
	}
}

func asStringMap(name string, v any) (map[string]string, error) {
	out := make(map[string]string)
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			if err := checkVersionLiteral(name+"."+k, item); err != nil {
				return nil, err
			}
			s, err := asString(name, item)
			if err != nil {
				return nil, err
			}
			out[k] = s
		}
	case map[string]string:
		for k, s := range t {
			out[k] = s
		}
	default:
		return nil, fmt.Errorf("%w: %s must be a map, got %T", ErrInvalidField, name, v)
	}
	return out, nil
}

// asDependencies accepts either a list of ids or a map of id to minimum
// version.
func asDependencies(v any) ([]string, map[string]string, error) {
	switch v.(type) {
	case map[string]any, map[string]string:
		versions, err := asStringMap("dependencies", v)
		return nil, versions, err
	default:
		deps, err := asStringList("dependencies", v)
		return deps, nil, err
	}
}
