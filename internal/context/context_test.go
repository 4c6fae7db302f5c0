package context

import "testing"

func TestPathMappingResolve(t *testing.T) {
	m := PathMapping{Default: "/usr/local", ByOS: map[string]string{"windows": `C:\tools`}}

	if got := m.Resolve("linux"); got != "/usr/local" {
		t.Errorf("Resolve(linux) = %q, want default", got)
	}
	if got := m.Resolve("windows"); got != `C:\tools` {
		t.Errorf("Resolve(windows) = %q, want OS-specific value", got)
	}
}

func TestResolveEnvMissing(t *testing.T) {
	ctx := &ExecutionContext{Env: map[string]string{"FOO": "bar"}}

	v, err := ctx.ResolveEnv("FOO")
	if err != nil || v != "bar" {
		t.Fatalf("ResolveEnv(FOO) = %q, %v, want bar, nil", v, err)
	}

	_, err = ctx.ResolveEnv("MISSING")
	cfgErr, ok := err.(*ConfigError)
	if !ok || cfgErr.Kind != "missing_env" {
		t.Errorf("ResolveEnv(MISSING) err = %v, want missing_env ConfigError", err)
	}
}

func TestResolveConfigPathUsesOSAndExpandsEnv(t *testing.T) {
	ctx := &ExecutionContext{
		OS:  "linux",
		Env: map[string]string{"HOME": "/home/u"},
		Config: ProjectConfig{
			Paths: map[string]PathMapping{
				"cache": {Default: "$HOME/.cache", ByOS: map[string]string{"darwin": "$HOME/Library/Caches"}},
			},
		},
	}

	got, err := ctx.ResolveConfigPath("cache")
	if err != nil {
		t.Fatalf("ResolveConfigPath: %v", err)
	}
	if got != "/home/u/.cache" {
		t.Errorf("ResolveConfigPath(cache) = %q, want /home/u/.cache", got)
	}

	ctx.OS = "darwin"
	got, err = ctx.ResolveConfigPath("cache")
	if err != nil {
		t.Fatalf("ResolveConfigPath: %v", err)
	}
	if got != "/home/u/Library/Caches" {
		t.Errorf("ResolveConfigPath(cache) on darwin = %q, want /home/u/Library/Caches", got)
	}
}

func TestResolveConfigPathMissing(t *testing.T) {
	ctx := &ExecutionContext{Config: ProjectConfig{Paths: map[string]PathMapping{}}}
	_, err := ctx.ResolveConfigPath("nope")
	cfgErr, ok := err.(*ConfigError)
	if !ok || cfgErr.Kind != "missing_config" {
		t.Errorf("ResolveConfigPath(nope) err = %v, want missing_config ConfigError", err)
	}
}

func TestExpandEnvInStringBracedAndBare(t *testing.T) {
	ctx := &ExecutionContext{Env: map[string]string{"USER": "alice", "HOME": "/home/alice"}}

	tests := []struct {
		in   string
		want string
	}{
		{"${HOME}/bin", "/home/alice/bin"},
		{"$USER-data", "alice-data"},
		{"no vars here", "no vars here"},
		{"${MISSING}/x", "/x"},
		{"trailing $", "trailing $"},
	}
	for _, tt := range tests {
		got, err := ctx.ExpandEnvInString(tt.in)
		if err != nil {
			t.Fatalf("ExpandEnvInString(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ExpandEnvInString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestComputeHashDeterministicAndSensitiveToEnv(t *testing.T) {
	base := &ExecutionContext{
		OS:   "linux",
		Arch: "amd64",
		Env:  map[string]string{"A": "1", "B": "2"},
		Config: ProjectConfig{
			Paths:     map[string]PathMapping{"p": {Default: "/x"}},
			Variables: map[string]string{"v": "1"},
		},
	}
	other := &ExecutionContext{
		OS:   "linux",
		Arch: "amd64",
		Env:  map[string]string{"B": "2", "A": "1"},
		Config: ProjectConfig{
			Paths:     map[string]PathMapping{"p": {Default: "/x"}},
			Variables: map[string]string{"v": "1"},
		},
	}
	if base.ComputeHash() != other.ComputeHash() {
		t.Errorf("ComputeHash: map iteration order affected the hash")
	}

	changed := &ExecutionContext{OS: "linux", Arch: "amd64", Env: map[string]string{"A": "1", "B": "3"}}
	if base.ComputeHash() == changed.ComputeHash() {
		t.Errorf("ComputeHash: differing env value produced the same hash")
	}
}
