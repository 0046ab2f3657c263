package enrich

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Treatment names an effect and its raw parameters.
type Treatment struct {
	Function string         `yaml:"FUNCTION" json:"FUNCTION"`
	Params   map[string]any `yaml:"PARAMS" json:"PARAMS"`
	// Module is accepted for compatibility with older treatment files and
	// otherwise ignored.
	Module string `yaml:"MODULE,omitempty" json:"MODULE,omitempty"`
}

// ParseTreatment reads a treatment from an already-decoded mapping. Keys
// are matched case-insensitively; FUNCTION is required.
func ParseTreatment(raw map[string]any) (Treatment, error) {
	var t Treatment
	for k, v := range raw {
		switch strings.ToUpper(k) {
		case "FUNCTION":
			s, ok := v.(string)
			if !ok {
				return Treatment{}, eris.Wrapf(ErrConfig, "FUNCTION must be a string, got %T", v)
			}
			t.Function = strings.TrimSpace(s)
		case "MODULE":
			t.Module, _ = v.(string)
		case "PARAMS":
			params, err := stringKeyed(v)
			if err != nil {
				return Treatment{}, eris.Wrapf(ErrConfig, "PARAMS: %v", err)
			}
			t.Params = params
		}
	}
	if t.Function == "" {
		return Treatment{}, eris.Wrap(ErrConfig, "treatment must include a FUNCTION field")
	}
	if t.Params == nil {
		t.Params = map[string]any{}
	}
	return t, nil
}

// LoadTreatmentFile reads a YAML or JSON treatment file. The treatment is
// taken from its IMPACT block, or from the document itself when it has a
// top-level FUNCTION.
func LoadTreatmentFile(path string) (Treatment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Treatment{}, eris.Wrapf(err, "enrich: read treatment file %s", path)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Treatment{}, eris.Wrapf(ErrConfig, "parse %s: %v", path, err)
	}

	for k, v := range doc {
		if strings.EqualFold(k, "IMPACT") {
			block, err := stringKeyed(v)
			if err != nil {
				return Treatment{}, eris.Wrapf(ErrConfig, "%s: IMPACT: %v", path, err)
			}
			return ParseTreatment(block)
		}
	}
	for k := range doc {
		if strings.EqualFold(k, "FUNCTION") {
			return ParseTreatment(doc)
		}
	}
	return Treatment{}, eris.Wrapf(ErrConfig, "%s must include an IMPACT block", path)
}

func stringKeyed(v any) (map[string]any, error) {
	switch m := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return m, nil
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, nil
	default:
		return nil, eris.Errorf("expected a mapping, got %T", v)
	}
}
