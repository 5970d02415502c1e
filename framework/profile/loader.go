package profile

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/redhat/perf-tests-reporter/framework/llm"
)

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnv replaces ${VAR} references with environment values. Bare $VAR
// is left alone so tokens containing '$' survive.
func ExpandEnv(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(m []byte) []byte {
		name := envRef.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// Parse decodes and validates a profile from YAML
func Parse(data []byte) (*Profile, error) {
	var profile Profile
	if err := yaml.UnmarshalStrict(ExpandEnv(data), &profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	profile.LLM.Type = strings.ToLower(strings.TrimSpace(profile.LLM.Type))
	if profile.LLM.Type == "" {
		profile.LLM.Type = llm.TypeOllama
	}
	if err := Validate(&profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Load reads a profile from a YAML file
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file %s: %w", path, err)
	}

	profile, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", path, err)
	}
	return profile, nil
}

// LoadAll reads all YAML profiles from a directory
func LoadAll(dir string) ([]*Profile, error) {
	names, err := ListProfileNames(dir)
	if err != nil {
		return nil, err
	}
	return LoadByNames(dir, names)
}

// LoadByNames loads specific profiles by name from a directory
func LoadByNames(dir string, names []string) ([]*Profile, error) {
	var profiles []*Profile
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		path := filepath.Join(dir, name+".yaml")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = filepath.Join(dir, name+".yml")
		}

		profile, err := Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load profile %q: %w", name, err)
		}
		profiles = append(profiles, profile)
	}

	return profiles, nil
}

// Validate checks that a profile has all required fields
func Validate(p *Profile) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("profile name is required")
	}

	if !slices.Contains(llm.Types(), p.LLM.Type) {
		return fmt.Errorf("llm.type must be one of %s, got %q", strings.Join(llm.Types(), ", "), p.LLM.Type)
	}

	seen := map[string]bool{}
	for i, src := range p.Grafana {
		if src.URL == "" {
			return fmt.Errorf("grafana[%d].url is required", i)
		}
		if u, err := url.Parse(src.URL); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("grafana[%d].url %q is not an absolute URL", i, src.URL)
		}
		if seen[src.Name] {
			return fmt.Errorf("grafana source name %q is used twice", src.Name)
		}
		seen[src.Name] = true
	}

	if k := p.Kubernetes; k != nil {
		if k.KubeconfigPath != "" && k.KubeconfigBase64 != "" {
			return fmt.Errorf("kubernetes.kubeconfigPath and kubernetes.kubeconfigBase64 are mutually exclusive")
		}
		if (k.Server == "") != (k.Token == "") {
			return fmt.Errorf("kubernetes.server and kubernetes.token must be set together")
		}
	}

	return nil
}

// ListProfileNames returns the names of all profiles in a directory
func ListProfileNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".yaml") {
			names = append(names, strings.TrimSuffix(name, ".yaml"))
		} else if strings.HasSuffix(name, ".yml") {
			names = append(names, strings.TrimSuffix(name, ".yml"))
		}
	}

	return names, nil
}
