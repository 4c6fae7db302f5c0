// Package context defines ExecutionContext and ProjectConfig: the OS/
// arch/env/path-mapping environment the plan resolver substitutes
// symbolic schema references against; LoadConfig decodes the TOML with BurntSushi/toml.
package context

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// PathMapping gives a named path a value per target OS, with a fallback.
type PathMapping struct {
	Default string            `toml:"default"`
	ByOS    map[string]string `toml:"os"`
}

// Resolve returns the mapping's value for the given OS, falling back to
// Default when no OS-specific entry exists.
func (m PathMapping) Resolve(os string) string {
	if v, ok := m.ByOS[os]; ok {
		return v
	}
	return m.Default
}

// ProjectConfig is the TOML-loaded project-level configuration layer:
// named path mappings, free-form variables, and named hosts.
type ProjectConfig struct {
	Paths     map[string]PathMapping `toml:"paths"`
	Variables map[string]string      `toml:"variables"`
	Hosts     map[string]string      `toml:"hosts"`
}

// ConfigError reports a resolution failure: a missing env var or config
// key referenced by a schema op.
type ConfigError struct {
	Kind string // "missing_env" | "missing_config" | "parse"
	Name string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Name, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Name)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ExecutionContext carries everything the resolver needs to turn symbolic
// schema references into concrete plan values.
type ExecutionContext struct {
	OS         string
	Arch       string
	WorkingDir string
	Env        map[string]string
	Config     ProjectConfig
}

// FromCurrentEnv captures the running process's OS/arch/working
// directory/environment as an ExecutionContext with an empty config.
func FromCurrentEnv() (*ExecutionContext, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}
	return &ExecutionContext{
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
		WorkingDir: wd,
		Env:        env,
		Config:     ProjectConfig{Paths: map[string]PathMapping{}, Variables: map[string]string{}, Hosts: map[string]string{}},
	}, nil
}

// LoadConfig reads and parses a TOML project config file into ctx.Config.
func (ctx *ExecutionContext) LoadConfig(path string) error {
	var cfg ProjectConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return &ConfigError{Kind: "parse", Name: path, Err: err}
	}
	ctx.Config = cfg
	return nil
}

// ResolveEnv looks up an environment variable, returning a typed
// ConfigError when it's absent - resolution of EnvRef schema values is
// fatal on a missing variable.
func (ctx *ExecutionContext) ResolveEnv(name string) (string, error) {
	v, ok := ctx.Env[name]
	if !ok {
		return "", &ConfigError{Kind: "missing_env", Name: name}
	}
	return v, nil
}

// ResolveConfigPath resolves a named path mapping for this context's OS.
func (ctx *ExecutionContext) ResolveConfigPath(name string) (string, error) {
	mapping, ok := ctx.Config.Paths[name]
	if !ok {
		return "", &ConfigError{Kind: "missing_config", Name: name}
	}
	resolved := mapping.Resolve(ctx.OS)
	if resolved == "" {
		return "", &ConfigError{Kind: "missing_config", Name: name}
	}
	return ctx.ExpandEnvInString(resolved)
}

// ResolveConfigVar resolves a named free-form config variable.
func (ctx *ExecutionContext) ResolveConfigVar(name string) (string, error) {
	v, ok := ctx.Config.Variables[name]
	if !ok {
		return "", &ConfigError{Kind: "missing_config", Name: name}
	}
	return ctx.ExpandEnvInString(v)
}

// ExpandEnvInString expands $NAME and ${NAME} references in s using this
// context's Env map; a reference to a name missing from Env expands to the
// empty string, while a lone `$` or a `${` without a closing brace is
// copied through unchanged.
func (ctx *ExecutionContext) ExpandEnvInString(s string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '$' || i == len(s)-1 {
			b.WriteByte(s[i])
			continue
		}
		if s[i+1] == '{' {
			end := strings.IndexByte(s[i+2:], '}')
			if end < 0 {
				b.WriteByte(s[i])
				continue
			}
			name := s[i+2 : i+2+end]
			if v, ok := ctx.Env[name]; ok {
				b.WriteString(v)
			}
			i += 2 + end
			continue
		}
		j := i + 1
		for j < len(s) && isEnvNameByte(s[j]) {
			j++
		}
		if j == i+1 {
			b.WriteByte(s[i])
			continue
		}
		name := s[i+1 : j]
		if v, ok := ctx.Env[name]; ok {
			b.WriteString(v)
		}
		i = j - 1
	}
	return b.String(), nil
}

func isEnvNameByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// ComputeHash returns a deterministic SHA-256 hex digest over this
// context's OS, arch, working dir, sorted env entries, path mappings,
// and variables.
func (ctx *ExecutionContext) ComputeHash() string {
	h := sha256.New()

	fmt.Fprintf(h, "os=%s;arch=%s;wd=%s;", ctx.OS, ctx.Arch, ctx.WorkingDir)

	envKeys := sortedKeys(ctx.Env)
	for _, k := range envKeys {
		fmt.Fprintf(h, "env:%s=%s;", k, ctx.Env[k])
	}

	pathKeys := sortedKeys(ctx.Config.Paths)
	for _, k := range pathKeys {
		m := ctx.Config.Paths[k]
		fmt.Fprintf(h, "path:%s=%s;", k, m.Default)
		osKeys := sortedKeys(m.ByOS)
		for _, ok := range osKeys {
			fmt.Fprintf(h, "path:%s.%s=%s;", k, ok, m.ByOS[ok])
		}
	}

	varKeys := sortedKeys(ctx.Config.Variables)
	for _, k := range varKeys {
		fmt.Fprintf(h, "var:%s=%s;", k, ctx.Config.Variables[k])
	}

	return hex.EncodeToString(h.Sum(nil))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
