// Copyright 2023 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"go.chromium.org/luci/common/errors"
)

var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"percent":  func(rate float64) string { return fmt.Sprintf("%.2f%%", rate*100) },
	"duration": func(d time.Duration) string { return d.Round(time.Second).String() },
}).Parse(`Workflow '{{.Summary.WorkflowName}}' Report:
 Workflow Failure Rate: {{percent .Summary.FailureRate}}
 Workflow Total Count: {{.Summary.TotalCount}} (success: {{.Summary.SuccessCount}}, failure: {{.Summary.FailureCount}})

Workflow Runtime Report:
{{- if .FirstAttempts}}
{{len .FirstAttempts}} workflow runs finished without rerun, the average running time: {{duration .FirstAttemptAvg}}
Including:
{{- if .FirstAttemptSuccesses}}
 {{len .FirstAttemptSuccesses}} passed workflow runs, with average running time: {{duration .FirstAttemptSuccessAvg}}
{{- end}}
{{- if .FirstAttemptFailures}}
 {{len .FirstAttemptFailures}} failed workflow runs, with average running time: {{duration .FirstAttemptFailureAvg}}
{{- end}}
{{- end}}
{{- if .Reruns}}
{{len .Reruns}} runs finished with rerun, the average running time: {{duration .RerunAvg}}
The running time for each workflow rerun: {{range $i, $d := .Reruns}}{{if $i}}, {{end}}{{duration $d}}{{end}}
{{- end}}

Job Failure Report:
{{- range .Jobs}}
{{- if gt .FailureRate 0.0}}
{{.Name}}:
 Failure Rate: {{percent .FailureRate}}
 Total Count: {{.TotalCount}} (success: {{.SuccessCount}}, failure: {{.FailureCount}})
{{- end}}
{{- end}}
`))

type reportData struct {
	Summary *Summary
	Jobs    []*JobStats

	FirstAttempts         []time.Duration
	FirstAttemptSuccesses []time.Duration
	FirstAttemptFailures  []time.Duration
	Reruns                []time.Duration
}

func (d *reportData) FirstAttemptAvg() time.Duration        { return avg(d.FirstAttempts) }
func (d *reportData) FirstAttemptSuccessAvg() time.Duration { return avg(d.FirstAttemptSuccesses) }
func (d *reportData) FirstAttemptFailureAvg() time.Duration { return avg(d.FirstAttemptFailures) }
func (d *reportData) RerunAvg() time.Duration               { return avg(d.Reruns) }

func avg(ds []time.Duration) time.Duration {
	if len(ds) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range ds {
		total += d
	}
	return total / time.Duration(len(ds))
}

// Report renders the human-readable summary report.
func Report(s *Summary, jobs []*JobStats) (string, error) {
	data := &reportData{Summary: s, Jobs: jobs}
	for _, run := range s.WorkflowRuns {
		rt := run.Runtime()
		if run.RunAttempt > 1 {
			data.Reruns = append(data.Reruns, rt)
			continue
		}
		data.FirstAttempts = append(data.FirstAttempts, rt)
		if run.Conclusion == "success" {
			data.FirstAttemptSuccesses = append(data.FirstAttemptSuccesses, rt)
		} else {
			data.FirstAttemptFailures = append(data.FirstAttemptFailures, rt)
		}
	}

	var b strings.Builder
	if err := reportTmpl.Execute(&b, data); err != nil {
		return "", errors.Annotate(err, "render workflow report").Err()
	}
	return b.String(), nil
}

// Write persists the collected summary, the per-job statistics and the
// rendered report into dir, creating it when needed.
func Write(dir string, s *Summary, jobs []*JobStats, report string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Annotate(err, "write workflow summary").Err()
	}
	if err := writeJSON(filepath.Join(dir, "workflow_summary.json"), s); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, "job_summary.json"), jobs); err != nil {
		return err
	}
	path := filepath.Join(dir, "workflow_summary_report.txt")
	if err := os.WriteFile(path, []byte(report), 0644); err != nil {
		return errors.Annotate(err, "write %s", path).Err()
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Annotate(err, "marshal %s", path).Err()
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Annotate(err, "write %s", path).Err()
	}
	return nil
}
