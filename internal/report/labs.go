// Package report extracts structured lab values from recognized medical
// report text. It is a post-processing step on top of the OCR pipeline's
// plain-text output and makes no claim beyond flagging values against
// common reference ranges.
package report

import (
	"regexp"
	"strconv"
	"strings"
)

// Flag classifies a measured value against its reference range.
type Flag string

const (
	FlagNormal Flag = "normal"
	FlagLow    Flag = "low"
	FlagHigh   Flag = "high"
)

// LabValue is one extracted measurement.
type LabValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
	Flag  Flag    `json:"flag"`
}

// labPattern ties a regex to a named analyte and its reference range.
type labPattern struct {
	name string
	unit string
	re   *regexp.Regexp
	low  float64
	high float64
}

// Patterns match "name: value" shapes with optional separators, the way lab
// reports print them. Ranges follow common adult reference intervals.
var labPatterns = []labPattern{
	{
		name: "hemoglobin",
		unit: "g/dL",
		re:   regexp.MustCompile(`(?i)hemoglobin[:\s]*([\d.]+)`),
		low:  13.0,
		high: 17.0,
	},
	{
		name: "wbc",
		unit: "cells/uL",
		re:   regexp.MustCompile(`(?i)wbc[:\s]*([\d.]+)`),
		low:  4000,
		high: 11000,
	},
	{
		name: "glucose",
		unit: "mg/dL",
		re:   regexp.MustCompile(`(?i)(?:glucose|blood sugar)[:\s]*([\d.]+)`),
		low:  70,
		high: 140,
	},
}

// Extract scans recognized text for known lab values. Values appearing more
// than once keep their first occurrence, matching how reports repeat a
// summary table.
func Extract(text string) []LabValue {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var values []LabValue
	seen := make(map[string]bool)
	for _, p := range labPatterns {
		if seen[p.name] {
			continue
		}
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimRight(m[1], "."), 64)
		if err != nil {
			continue
		}
		seen[p.name] = true
		values = append(values, LabValue{
			Name:  p.name,
			Value: v,
			Unit:  p.unit,
			Flag:  classify(v, p.low, p.high),
		})
	}
	return values
}

func classify(v, low, high float64) Flag {
	switch {
	case v < low:
		return FlagLow
	case v > high:
		return FlagHigh
	default:
		return FlagNormal
	}
}

// Abnormal filters the extracted values down to out-of-range ones.
func Abnormal(values []LabValue) []LabValue {
	var out []LabValue
	for _, v := range values {
		if v.Flag != FlagNormal {
			out = append(out, v)
		}
	}
	return out
}
