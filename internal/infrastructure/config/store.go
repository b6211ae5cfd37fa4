package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides: AHAREC_<SECTION>_<KEY>.
const EnvPrefix = "AHAREC"

// Store is the section-based configuration store.
//
// One Store is created at process start and passed to every component that
// registers or reads settings.
//
// Thread Safety:
//   - All methods are safe for concurrent use; they serialise on one mutex.
type Store struct {
	mu sync.Mutex

	// defaults holds the registered defaults per section, in tree form.
	defaults map[string]map[string]any
	order    []string

	// layers holds every merged file, oldest first.
	layers []layer

	// merged is the resolved view read by Get.
	merged map[string]map[string]any

	rendered strings.Builder
	sealed   bool
}

type layer struct {
	path string
	tree map[string]any
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		defaults: make(map[string]map[string]any),
		merged:   make(map[string]map[string]any),
	}
}

// AddDefaults registers defaults as the schema and default values of section.
//
// The registered value is read back through the store and appended to the
// defaults dump as a "[section]" block. A section whose defaults serialise to
// nothing (no settings) is registered but left out of the dump.
//
// Parameters:
//   - s: Store to register with
//   - section: Unique section name
//   - defaults: Settings value carrying yaml and toml tags
//
// Returns:
//   - error: ErrSealed after Load/Refresh, ErrDuplicateSection on a second
//     registration, or a serialisation error
func AddDefaults[T any](s *Store, section string, defaults T) error {
	tree, err := toTree(defaults)
	if err != nil {
		return fmt.Errorf("serialising defaults of %q: %w", section, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed {
		return fmt.Errorf("registering %q: %w", section, ErrSealed)
	}
	if _, exists := s.defaults[section]; exists {
		return fmt.Errorf("registering %q: %w", section, ErrDuplicateSection)
	}

	s.defaults[section] = tree
	s.order = append(s.order, section)
	s.merged[section] = maps.Clone(tree)

	value, err := decode[T](section, s.merged[section])
	if err != nil {
		return err
	}

	body, err := renderTOML(value)
	if err != nil {
		return fmt.Errorf("rendering defaults of %q: %w", section, err)
	}
	if body == "" {
		return nil
	}
	fmt.Fprintf(&s.rendered, "[%s]\n%s\n", section, body)
	return nil
}

// Get returns the merged settings of section decoded into T.
//
// Returns:
//   - T: Merged settings
//   - error: ErrUnknownSection if the section was never registered, or a
//     *DecodeError if the merged values do not fit T
func Get[T any](s *Store, section string) (T, error) {
	s.mu.Lock()
	tree, ok := s.merged[section]
	s.mu.Unlock()

	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}
	return decode[T](section, tree)
}

// Load merges the configuration file at path on top of the registered
// defaults and any previously loaded files. Later files win key by key.
//
// Returns:
//   - error: ErrConfigNotFound if the file is missing, or a parse error
func (s *Store) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	tree, err := parseDocument(path, data)
	if err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.layers = append(s.layers, layer{path: path, tree: tree})
	s.sealed = true
	s.resolveLocked()
	return nil
}

// Refresh re-resolves defaults, loaded files and environment overrides.
// It must run once after all sections are registered and before values are
// handed to consumers.
func (s *Store) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sealed = true
	s.resolveLocked()
}

// RenderDefaults returns the TOML dump of every registered section's
// defaults, suitable as a starter configuration file.
func (s *Store) RenderDefaults() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rendered.String()
}

// Sections returns the registered section names in registration order.
func (s *Store) Sections() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// resolveLocked rebuilds merged from defaults, file layers and environment.
// Caller must hold s.mu.
func (s *Store) resolveLocked() {
	merged := make(map[string]map[string]any, len(s.defaults))

	for _, name := range s.order {
		section := maps.Clone(s.defaults[name])

		for _, l := range s.layers {
			overrides, ok := l.tree[name].(map[string]any)
			if !ok {
				continue
			}
			for k, v := range overrides {
				section[k] = v
			}
		}

		for key := range s.defaults[name] {
			if v, ok := os.LookupEnv(envKey(name, key)); ok {
				section[key] = parseEnvValue(v)
			}
		}

		merged[name] = section
	}

	s.merged = merged
}

// envKey returns the environment variable overriding section.key.
func envKey(section, key string) string {
	return EnvPrefix + "_" + strings.ToUpper(section) + "_" + strings.ToUpper(key)
}

// parseEnvValue interprets an environment value as a YAML scalar or flow
// collection so "30" becomes an int and "[Console, Csv]" a list.
// Anything that does not parse stays a plain string.
func parseEnvValue(raw string) any {
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil || v == nil {
		return raw
	}
	return v
}

// parseDocument decodes a configuration file according to its extension.
func parseDocument(path string, data []byte) (map[string]any, error) {
	tree := make(map[string]any)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, err
		}
	case ".json":
		if err := json.Unmarshal(data, &tree); err != nil {
			return nil, err
		}
	default:
		if err := toml.Unmarshal(data, &tree); err != nil {
			return nil, err
		}
	}

	if tree == nil {
		tree = make(map[string]any)
	}
	return tree, nil
}

// toTree converts a settings value into its key/value tree via its yaml tags.
func toTree(v any) (map[string]any, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, err
	}
	tree := make(map[string]any)
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	if tree == nil {
		tree = make(map[string]any)
	}
	return tree, nil
}

// decode coerces a section tree into T. Keys unknown to T are rejected so
// typos in a configuration file fail loudly.
func decode[T any](section string, tree map[string]any) (T, error) {
	var v T

	data, err := yaml.Marshal(tree)
	if err != nil {
		return v, &DecodeError{Section: section, Err: err}
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&v); err != nil {
		return v, &DecodeError{Section: section, Err: err}
	}
	return v, nil
}

// renderTOML encodes v as a TOML document body.
func renderTOML(v any) (string, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(v); err != nil {
		return "", err
	}
	return buf.String(), nil
}
