// Copyright 2023 Google LLC. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package coverage aggregates JaCoCo line coverage across SDKs.
package coverage

import (
	"encoding/xml"
	"io"

	"go.chromium.org/luci/common/errors"
)

type counter struct {
	Type    string `xml:"type,attr"`
	Missed  int    `xml:"missed,attr"`
	Covered int    `xml:"covered,attr"`
}

type sourceFile struct {
	Name     string    `xml:"name,attr"`
	Counters []counter `xml:"counter"`
}

type jacocoPackage struct {
	Name        string       `xml:"name,attr"`
	SourceFiles []sourceFile `xml:"sourcefile"`
}

type jacocoReport struct {
	XMLName  xml.Name        `xml:"report"`
	Name     string          `xml:"name,attr"`
	Packages []jacocoPackage `xml:"package"`
	Counters []counter       `xml:"counter"`
}

// FileCoverage is the line coverage of one source file.
type FileCoverage struct {
	Name     string  `json:"name"`
	Coverage float64 `json:"coverage"`
}

// SDKCoverage is the line coverage of one SDK with a per-file breakdown.
type SDKCoverage struct {
	SDK      string         `json:"sdk"`
	Coverage float64        `json:"coverage"`
	Files    []FileCoverage `json:"files"`
}

// ParseReport reads one JaCoCo XML report.
func ParseReport(r io.Reader) (*SDKCoverage, error) {
	var report jacocoReport
	dec := xml.NewDecoder(r)
	// JaCoCo reports reference an external DTD; there is nothing to load.
	dec.Strict = false
	if err := dec.Decode(&report); err != nil {
		return nil, errors.Annotate(err, "parse jacoco report").Err()
	}

	out := &SDKCoverage{SDK: report.Name}
	out.Coverage = lineRate(report.Counters)
	for _, pkg := range report.Packages {
		for _, sf := range pkg.SourceFiles {
			out.Files = append(out.Files, FileCoverage{
				Name:     pkg.Name + "/" + sf.Name,
				Coverage: lineRate(sf.Counters),
			})
		}
	}
	return out, nil
}

// lineRate returns covered/(covered+missed) lines, or 0 when the report
// carries no line counter.
func lineRate(cs []counter) float64 {
	for _, c := range cs {
		if c.Type != "LINE" {
			continue
		}
		total := c.Covered + c.Missed
		if total == 0 {
			return 0
		}
		return float64(c.Covered) / float64(total)
	}
	return 0
}
