// Copyright 2023 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package macrobenchmark

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"gonum.org/v1/gonum/floats"

	"fireci/internal/gcs"
)

// startupMetric is the macrobenchmark metric aggregated into the report.
const startupMetric = "timeToInitialDisplayMs"

// Measurement is the aggregated startup time of one benchmark method on
// one device.
type Measurement struct {
	SDK    string  `json:"sdk"`
	Device string  `json:"device"`
	Name   string  `json:"name"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P50    float64 `json:"p50"`
	P90    float64 `json:"p90"`
	P99    float64 `json:"p99"`
	Unit   string  `json:"unit"`
}

// Report is what gets posted to the metrics service.
type Report struct {
	Benchmarks []Measurement `json:"benchmarks"`
	Log        string        `json:"log"`
}

// benchmarkFile mirrors the JSON the macrobenchmark library writes to
// the device's additional test output dir.
type benchmarkFile struct {
	Benchmarks []struct {
		Name      string `json:"name"`
		ClassName string `json:"className"`
		Metrics   map[string]struct {
			Runs []float64 `json:"runs"`
		} `json:"metrics"`
	} `json:"benchmarks"`
}

var (
	// Benchmark output files land under <device>/artifacts/sdcard/Download.
	resultFileRe = regexp.MustCompile(`sdcard/Download/[^/]*\.json$`)
	deviceRe     = regexp.MustCompile(`([^/]*)/artifacts/`)
)

// aggregate pulls the FTL result files of one app out of the results
// bucket and reduces each benchmark method to percentile statistics.
func aggregate(ctx context.Context, client gcs.Client, resultsDir, sdk string) ([]Measurement, error) {
	names, err := client.ListObjects(ctx, resultsDir)
	if err != nil {
		return nil, errors.Annotate(err, "aggregate results for %s", sdk).Err()
	}

	var out []Measurement
	for _, name := range names {
		if !resultFileRe.MatchString(name) {
			continue
		}
		m := deviceRe.FindStringSubmatch(name)
		if m == nil {
			return nil, errors.Reason("result object %q has no device component", name).Err()
		}
		device := m[1]

		data, err := client.ReadObject(ctx, name)
		if err != nil {
			return nil, errors.Annotate(err, "aggregate results for %s", sdk).Err()
		}
		var parsed benchmarkFile
		if err := json.Unmarshal(data, &parsed); err != nil {
			return nil, errors.Annotate(err, "parse result object %q", name).Err()
		}

		for _, b := range parsed.Benchmarks {
			runs := b.Metrics[startupMetric].Runs
			if len(runs) == 0 {
				logging.Warningf(ctx, "Benchmark %s.%s has no %s runs; skipped.", b.ClassName, b.Name, startupMetric)
				continue
			}
			clazz := b.ClassName
			if i := strings.LastIndex(clazz, "."); i >= 0 {
				clazz = clazz[i+1:]
			}
			out = append(out, newMeasurement(sdk, device, clazz+"."+b.Name, runs))
		}
	}
	if len(out) == 0 {
		return nil, errors.Reason("no benchmark results for %s under %s", sdk, resultsDir).Err()
	}
	logging.Infof(ctx, "Aggregated %d benchmark measurements for %s.", len(out), sdk)
	return out, nil
}

func newMeasurement(sdk, device, name string, runs []float64) Measurement {
	sorted := append([]float64(nil), runs...)
	sort.Float64s(sorted)
	return Measurement{
		SDK:    sdk,
		Device: device,
		Name:   name,
		Min:    floats.Min(sorted),
		Max:    floats.Max(sorted),
		P50:    percentile(sorted, 0.50),
		P90:    percentile(sorted, 0.90),
		P99:    percentile(sorted, 0.99),
		Unit:   "ms",
	}
}

// percentile places the p-quantile at rank p*(n-1) and linearly
// interpolates between the neighboring sorted samples. The benchmark
// dashboards consume percentiles with exactly this definition.
func percentile(sorted []float64, p float64) float64 {
	h := p * float64(len(sorted)-1)
	i := int(h)
	if i >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (h-float64(i))*(sorted[i+1]-sorted[i])
}
