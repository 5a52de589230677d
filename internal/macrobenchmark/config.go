// Copyright 2023 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package macrobenchmark builds per-SDK startup benchmark apps and runs
// them on Firebase Test Lab.
package macrobenchmark

import (
	"os"

	"go.chromium.org/luci/common/errors"
	"gopkg.in/yaml.v2"
)

// ConfigPath is the benchmark configuration, relative to the repo root.
const ConfigPath = "health-metrics/benchmark/config.yaml"

// TemplateDir is the test app project template, relative to the repo
// root.
const TemplateDir = "health-metrics/benchmark/template"

// AppConfig describes one generated benchmark test app.
type AppConfig struct {
	// SDK is the product under test, e.g. "firebase-firestore".
	SDK string `yaml:"sdk"`
	// Name is the app project name, unique within the run.
	Name string `yaml:"name"`
	// Dependencies are versionless "group:artifact" coordinates resolved
	// against the assembled artifacts, or pinned with "group:artifact@1.2.3".
	Dependencies []string `yaml:"dependencies"`
	// Plugins are gradle plugin ids applied to the generated app.
	Plugins []string `yaml:"plugins"`
	// Traces are custom trace names recorded during startup.
	Traces []string `yaml:"traces"`
}

// Config is the parsed benchmark configuration.
type Config struct {
	TestApps []*AppConfig `yaml:"test-apps"`
	// CommonPlugins and CommonTraces apply to every test app.
	CommonPlugins []string `yaml:"common-plugins"`
	CommonTraces  []string `yaml:"common-traces"`
}

// LoadConfig reads the benchmark config and folds the common plugins and
// traces into every test app.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Annotate(err, "load benchmark config").Err()
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Annotate(err, "parse %s", path).Err()
	}
	if len(cfg.TestApps) == 0 {
		return nil, errors.Reason("%s defines no test apps", path).Err()
	}
	seen := map[string]bool{}
	for _, app := range cfg.TestApps {
		if app.SDK == "" || app.Name == "" {
			return nil, errors.Reason("%s: every test app needs sdk and name", path).Err()
		}
		if seen[app.Name] {
			return nil, errors.Reason("%s: duplicate test app name %q", path, app.Name).Err()
		}
		seen[app.Name] = true
		app.Plugins = append(app.Plugins, cfg.CommonPlugins...)
		app.Traces = append(app.Traces, cfg.CommonTraces...)
	}
	return cfg, nil
}
