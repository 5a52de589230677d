// Copyright 2023 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package macrobenchmark

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/google/uuid"
	cp "github.com/otiai10/copy"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"fireci/internal/execute"
	"fireci/internal/gradle"
	"fireci/internal/site"
)

// templateExt marks project files that are rendered before the build.
const templateExt = ".template"

// dependency is one resolved maven coordinate handed to the project
// templates.
type dependency struct {
	Key     string
	Version string
}

// templateContext is what the project template files are rendered with.
type templateContext struct {
	// M2Repository is the absolute path of the local maven repo holding
	// the artifacts under test.
	M2Repository string
	Plugins      []string
	Traces       []string
	Dependencies []dependency
}

// testApp builds one benchmark app project and runs it on FTL.
type testApp struct {
	cfg      *AppConfig
	versions map[string]string
	repoDir  string
	testDir  string
	appDir   string
	runner   execute.Runner
	env      site.Environment

	// resultsDir is the unique directory within the results bucket this
	// app's FTL artifacts land in.
	resultsDir string
}

func newTestApp(cfg *AppConfig, versions map[string]string, repoDir, testDir string, r execute.Runner, env site.Environment) *testApp {
	return &testApp{
		cfg:        cfg,
		versions:   versions,
		repoDir:    repoDir,
		testDir:    testDir,
		appDir:     filepath.Join(testDir, cfg.Name),
		runner:     r,
		env:        env,
		resultsDir: uuid.New().String(),
	}
}

// Build creates the app project from the template and assembles the app
// and benchmark apks.
func (t *testApp) Build(ctx context.Context) error {
	if err := t.createProject(ctx); err != nil {
		return errors.Annotate(err, "build %s", t.cfg.Name).Err()
	}
	inv := gradle.Invocation{RepoDir: t.appDir, Tasks: []string{"assemble"}, Tag: t.cfg.SDK}
	if err := gradle.Run(ctx, t.runner, inv); err != nil {
		return errors.Annotate(err, "build %s", t.cfg.Name).Err()
	}
	return nil
}

func (t *testApp) createProject(ctx context.Context) error {
	logging.Infof(ctx, "Creating test app %q in %s...", t.cfg.Name, t.appDir)

	if err := cp.Copy(filepath.Join(t.repoDir, TemplateDir), t.appDir); err != nil {
		return errors.Annotate(err, "copy project template").Err()
	}
	// The wrapper generated into the test dir is shared by all apps.
	for _, name := range []string{"gradlew", "gradlew.bat"} {
		if err := cp.Copy(filepath.Join(t.testDir, name), filepath.Join(t.appDir, name)); err != nil {
			return errors.Annotate(err, "copy gradle wrapper").Err()
		}
	}
	if err := cp.Copy(filepath.Join(t.testDir, "gradle"), filepath.Join(t.appDir, "gradle")); err != nil {
		return errors.Annotate(err, "copy gradle wrapper").Err()
	}

	tctx, err := t.templateContext()
	if err != nil {
		return err
	}
	return t.renderTemplates(ctx, tctx)
}

func (t *testApp) templateContext() (*templateContext, error) {
	tctx := &templateContext{
		M2Repository: filepath.Join(t.repoDir, "build", "m2repository"),
		Plugins:      t.cfg.Plugins,
		Traces:       t.cfg.Traces,
	}
	for _, dep := range t.cfg.Dependencies {
		if key, version, ok := strings.Cut(dep, "@"); ok {
			tctx.Dependencies = append(tctx.Dependencies, dependency{Key: key, Version: version})
			continue
		}
		version, ok := t.versions[dep]
		if !ok {
			return nil, errors.Reason("dependency %q of %s was not assembled and has no pinned version", dep, t.cfg.Name).Err()
		}
		tctx.Dependencies = append(tctx.Dependencies, dependency{Key: dep, Version: version})
	}
	return tctx, nil
}

// renderTemplates renders every *.template file in the project in place,
// dropping the suffix.
func (t *testApp) renderTemplates(ctx context.Context, tctx *templateContext) error {
	return filepath.WalkDir(t.appDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, templateExt) {
			return err
		}
		logging.Infof(ctx, "Processing template file: %s", path)
		tmpl, err := template.ParseFiles(path)
		if err != nil {
			return errors.Annotate(err, "parse template %s", path).Err()
		}
		out, err := os.Create(strings.TrimSuffix(path, templateExt))
		if err != nil {
			return errors.Annotate(err, "render template %s", path).Err()
		}
		defer out.Close()
		if err := tmpl.Execute(out, tctx); err != nil {
			return errors.Annotate(err, "render template %s", path).Err()
		}
		return os.Remove(path)
	})
}

// Test submits the assembled apks to FTL and waits for the run to
// finish.
func (t *testApp) Test(ctx context.Context) error {
	appAPK, err := findAPK(t.appDir, "app-benchmark.apk")
	if err != nil {
		return errors.Annotate(err, "test %s", t.cfg.Name).Err()
	}
	testAPK, err := findAPK(t.appDir, "macrobenchmark-benchmark.apk")
	if err != nil {
		return errors.Annotate(err, "test %s", t.cfg.Name).Err()
	}
	logging.Infof(ctx, "App apk: %s", appAPK)
	logging.Infof(ctx, "Test apk: %s", testAPK)

	envVars := strings.Join([]string{
		"clearPackageData=true",
		"additionalTestOutputDir=/sdcard/Download",
		"no-isolated-storage=true",
	}, ",")
	args := []string{
		"firebase", "test", "android", "run",
		"--type", "instrumentation",
		"--app", appAPK,
		"--test", testAPK,
		"--device", t.env.FTLDevice,
		"--directories-to-pull", "/sdcard/Download",
		"--results-bucket", "gs://" + t.env.ResultsBucket,
		"--results-dir", t.resultsDir,
		"--environment-variables", envVars,
		"--timeout", "30m",
		"--project", t.env.FTLProject,
	}
	err = t.runner.Run(ctx, execute.Options{Tag: t.cfg.SDK}, "gcloud", args...)
	return errors.Annotate(err, "test %s", t.cfg.Name).Err()
}

// findAPK locates a named apk anywhere under the project build output.
func findAPK(dir, name string) (string, error) {
	var found string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == name {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", errors.Annotate(err, "find %s", name).Err()
	}
	if found == "" {
		return "", errors.Reason("no %s under %s", name, dir).Err()
	}
	return found, nil
}
