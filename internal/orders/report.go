package orders

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/labkeeper/internal/common"
)

// ResultLine is one analyte of a results report.
type ResultLine struct {
	Value string `json:"value"`
	Unit  string `json:"unit,omitempty"`
	Range string `json:"range,omitempty"`
}

// Report is what a results renderer needs: the order summary and the
// parsed results. Results is nil when the captured text is not JSON; the
// raw text is always in Summary.Results.
type Report struct {
	Summary Summary
	Results map[string]ResultLine
}

var (
	valueKeys = []string{"value", "valor", "resultado"}
	unitKeys  = []string{"unit", "unidad", "unidades"}
	rangeKeys = []string{"range", "rango", "referencia"}
)

// ParseResults reads results captured as a JSON object. Each member is
// either a scalar ({"glucosa": 90}) or an object with value/unit/range
// keys, in English or Spanish.
func ParseResults(text string) (map[string]ResultLine, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return map[string]ResultLine{}, nil
	}

	var members map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &members); err != nil {
		return nil, fmt.Errorf("%w: results are not a JSON object: %v", common.ErrorValidation, err)
	}

	out := make(map[string]ResultLine, len(members))
	for name, raw := range members {
		raw = bytes.TrimSpace(raw)
		if len(raw) > 0 && raw[0] == '{' {
			var obj map[string]json.RawMessage
			if err := json.Unmarshal(raw, &obj); err != nil {
				return nil, fmt.Errorf("%w: result %q: %v", common.ErrorValidation, name, err)
			}
			out[name] = ResultLine{
				Value: pick(obj, valueKeys),
				Unit:  pick(obj, unitKeys),
				Range: pick(obj, rangeKeys),
			}
			continue
		}
		out[name] = ResultLine{Value: scalar(raw)}
	}
	return out, nil
}

func pick(obj map[string]json.RawMessage, keys []string) string {
	for _, k := range keys {
		if raw, ok := obj[k]; ok {
			return scalar(raw)
		}
	}
	return ""
}

func scalar(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}
