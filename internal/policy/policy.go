// Package policy loads per-repository gate policy files and matches changed
// paths against watched-path globs.
package policy

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/formatgate/formatgate/internal/domain/model"
)

// FileName is the policy file looked up at the root of the checked-out tree.
const FileName = ".formatgate.yml"

// file is the YAML wire form of a policy.
type file struct {
	Watch   []string `yaml:"watch"`
	Check   command  `yaml:"check"`
	Fix     command  `yaml:"fix"`
	Autofix bool     `yaml:"autofix"`
	Commit  struct {
		Message string `yaml:"message"`
	} `yaml:"commit"`
}

type command struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// Load reads the policy file from dir and merges it over the default policy.
// A missing file yields the default policy; a malformed or invalid file
// is an error and fails the run's policy step.
func Load(dir string) (model.Policy, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		return model.DefaultPolicy(), nil
	}
	if err != nil {
		return model.Policy{}, fmt.Errorf("read %s: %w", FileName, err)
	}

	return Parse(data)
}

// Parse decodes policy YAML and merges it over the default policy.
func Parse(data []byte) (model.Policy, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return model.Policy{}, fmt.Errorf("parse %s: %w", FileName, err)
	}

	p := model.DefaultPolicy()
	if len(f.Watch) > 0 {
		p.Watch = f.Watch
	}
	if f.Check.Command != "" {
		p.CheckCommand = f.Check.Command
	}
	if f.Check.Args != nil {
		p.CheckArgs = f.Check.Args
	}
	if f.Fix.Args != nil {
		p.FixArgs = f.Fix.Args
	}
	p.Autofix = f.Autofix
	if f.Commit.Message != "" {
		p.CommitMessage = f.Commit.Message
	}

	if err := validate(p); err != nil {
		return model.Policy{}, err
	}

	return p, nil
}

func validate(p model.Policy) error {
	if p.CheckCommand == "" {
		return errors.New("policy: check command is empty")
	}
	for _, pattern := range p.Watch {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("policy: invalid watch pattern %q", pattern)
		}
	}
	return nil
}

// MatchFiles returns the changed paths that match at least one watched glob.
// Paths are normalized to forward slashes before matching so results are
// stable across payload sources.
func MatchFiles(patterns []string, changed []string) []string {
	var matched []string
	for _, path := range changed {
		normalized := filepath.ToSlash(strings.TrimPrefix(path, "./"))
		if normalized == "" {
			continue
		}
		for _, pattern := range patterns {
			ok, err := doublestar.Match(pattern, normalized)
			if err != nil {
				continue
			}
			if ok {
				matched = append(matched, normalized)
				break
			}
		}
	}
	return matched
}
