package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Suite is a YAML file describing several named series run back to back
// in one invocation.
type Suite struct {
	Series []SuiteSeries `yaml:"series"`
}

// SuiteSeries is one suite entry. Unset fields inherit from the main
// config; Cooldown and Warmup are pointers so an explicit zero survives
// the merge.
type SuiteSeries struct {
	Name     string
	Target   string
	Endpoint string
	Requests int
	Rounds   int
	Cooldown *time.Duration
	Warmup   *int
}

// UnmarshalYAML decodes one suite entry, accepting the same permissive
// duration forms as the config file (string or integer seconds).
func (s *SuiteSeries) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Name     string      `yaml:"name"`
		Target   string      `yaml:"target"`
		Endpoint string      `yaml:"endpoint"`
		Requests int         `yaml:"requests"`
		Rounds   int         `yaml:"rounds"`
		Cooldown interface{} `yaml:"cooldown"`
		Warmup   *int        `yaml:"warmup_rounds"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	s.Name = strings.TrimSpace(raw.Name)
	s.Target = strings.TrimSpace(raw.Target)
	s.Endpoint = strings.TrimSpace(raw.Endpoint)
	s.Requests = raw.Requests
	s.Rounds = raw.Rounds
	s.Warmup = raw.Warmup
	if raw.Cooldown != nil {
		dur, err := asDuration(raw.Cooldown)
		if err != nil {
			return fmt.Errorf("cooldown: %w", err)
		}
		s.Cooldown = &dur
	}
	return nil
}

// LoadSuite reads and parses a suite file.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("suite %s: %w", path, err)
	}
	var suite Suite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("suite %s: %w", path, err)
	}
	if len(suite.Series) == 0 {
		return nil, fmt.Errorf("suite %s: no series defined", path)
	}
	return &suite, nil
}

// Plan is one fully resolved series: everything the runner needs to
// drive it against one URL.
type Plan struct {
	Name     string
	Target   string // base URL, the control endpoints hang off this
	URL      string // probe URL, target joined with the endpoint path
	Requests int
	Rounds   int
	Cooldown time.Duration
	Warmup   int
}

// Plans resolves the run into one plan per series: just the config
// itself, or one plan per suite entry with unset fields inherited from
// the config.
func (c Config) Plans() ([]Plan, error) {
	if c.SuiteFile == "" {
		return []Plan{{
			Name:     c.Name,
			Target:   c.TargetURL,
			URL:      JoinURL(c.TargetURL, c.Endpoint),
			Requests: c.Requests,
			Rounds:   c.Rounds,
			Cooldown: c.Cooldown,
			Warmup:   c.WarmupRounds,
		}}, nil
	}

	suite, err := LoadSuite(c.SuiteFile)
	if err != nil {
		return nil, err
	}

	plans := make([]Plan, 0, len(suite.Series))
	for idx, entry := range suite.Series {
		plan := Plan{
			Name:     entry.Name,
			Target:   entry.Target,
			Requests: entry.Requests,
			Rounds:   entry.Rounds,
			Cooldown: c.Cooldown,
			Warmup:   c.WarmupRounds,
		}
		if plan.Name == "" {
			plan.Name = fmt.Sprintf("series-%d", idx+1)
		}
		if plan.Target == "" {
			plan.Target = c.TargetURL
		}
		if plan.Target == "" {
			return nil, fmt.Errorf("suite series[%d] %q: no target", idx, plan.Name)
		}
		endpoint := entry.Endpoint
		if endpoint == "" {
			endpoint = c.Endpoint
		}
		plan.URL = JoinURL(plan.Target, endpoint)
		if plan.Requests == 0 {
			plan.Requests = c.Requests
		}
		if plan.Rounds == 0 {
			plan.Rounds = c.Rounds
		}
		if entry.Cooldown != nil {
			plan.Cooldown = *entry.Cooldown
		}
		if entry.Warmup != nil {
			plan.Warmup = *entry.Warmup
		}

		switch {
		case plan.Requests < 1:
			return nil, fmt.Errorf("suite series[%d] %q: requests must be >= 1, got %d", idx, plan.Name, plan.Requests)
		case plan.Rounds < 1:
			return nil, fmt.Errorf("suite series[%d] %q: rounds must be >= 1, got %d", idx, plan.Name, plan.Rounds)
		case plan.Cooldown < 0:
			return nil, fmt.Errorf("suite series[%d] %q: cooldown must be >= 0, got %s", idx, plan.Name, plan.Cooldown)
		case plan.Warmup < 0:
			return nil, fmt.Errorf("suite series[%d] %q: warmup_rounds must be >= 0, got %d", idx, plan.Name, plan.Warmup)
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

// JoinURL glues an endpoint path onto the target base URL.
func JoinURL(target, endpoint string) string {
	target = strings.TrimRight(strings.TrimSpace(target), "/")
	endpoint = strings.TrimLeft(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return target
	}
	return target + "/" + endpoint
}
