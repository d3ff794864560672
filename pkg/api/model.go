package api

import (
	"fmt"
	"math"

	"labscribe/pkg/labscribe"
)

type InitMetricsRequest struct {
	Experiment string   `json:"experiment"`
	MetricKeys []string `json:"metric_keys"`
	Phases     []string `json:"phases,omitempty"`
}

type InitMetricsResponse struct {
	Row          int            `json:"row"`
	PhaseColumns map[string]int `json:"phase_columns"`
}

// MetricsRequest appends a metrics row, or writes it at Row when set.
type MetricsRequest struct {
	Metrics labscribe.Record `json:"metrics"`
	Iter    interface{}      `json:"iter"`
	Row     int              `json:"row,omitempty"`
	Col     int              `json:"col,omitempty"`
}

type BeginExperimentRequest struct {
	Experiment string           `json:"experiment"`
	Args       labscribe.Record `json:"args,omitempty"`
}

// ResultsRequest overwrites cells at Row and Col, both 1 when left out.
type ResultsRequest struct {
	Experiment string           `json:"experiment"`
	Results    labscribe.Record `json:"results"`
	Row        int              `json:"row,omitempty"`
	Col        int              `json:"col,omitempty"`
}

type RowRequest struct {
	Values []interface{} `json:"values"`
}

type RowResponse struct {
	Row int `json:"row"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// cellValue checks that v decoded from JSON is a scalar. Whole numbers become
// int64 so integer iterations are not written as floats.
func cellValue(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case nil, bool, string:
		return x, nil
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return int64(x), nil
		}
		return x, nil
	}
	return nil, fmt.Errorf("%v is not a scalar", v)
}

func cellValues(vs []interface{}) ([]interface{}, error) {
	out := make([]interface{}, len(vs))
	for i, v := range vs {
		c, err := cellValue(v)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		out[i] = c
	}
	return out, nil
}
