package predict

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ErrBlankField is the message returned when any form field is empty.
const ErrBlankField = "Fill every field before predicting."

// ValidationError is a caller-side form problem detected before any request
// is sent. Field is empty when the error concerns the form as a whole.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Field describes one numeric telemetry input of a request type T.
type Field[T any] struct {
	Name  string // wire name, e.g. "Lever_position"
	Label string
	Step  string
	ref   func(*T) *float64
}

// Preset is a named set of sample values for a form.
type Preset[T any] struct {
	Key    string
	Label  string
	Values T
}

// Form is the field catalogue and presets for one prediction request type.
type Form[T any] struct {
	Kind          string
	Fields        []Field[T]
	Presets       []Preset[T]
	DefaultPreset string
}

// Parse converts raw form values into a request. Any blank or missing field
// fails with ErrBlankField before the remaining fields are checked; unknown
// names and non-numeric values fail with a field-specific message.
func (f *Form[T]) Parse(values map[string]string) (T, error) {
	var out T

	for _, fd := range f.Fields {
		if strings.TrimSpace(values[fd.Name]) == "" {
			return out, &ValidationError{Message: ErrBlankField}
		}
	}
	for name := range values {
		if !f.has(name) {
			return out, &ValidationError{Field: name, Message: fmt.Sprintf("Unknown field %q.", name)}
		}
	}
	for _, fd := range f.Fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(values[fd.Name]), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return out, &ValidationError{Field: fd.Name, Message: fmt.Sprintf("%s must be a number.", fd.Label)}
		}
		*fd.ref(&out) = v
	}
	return out, nil
}

// Strings renders a request as form values, the inverse of Parse.
func (f *Form[T]) Strings(req T) map[string]string {
	out := make(map[string]string, len(f.Fields))
	for _, fd := range f.Fields {
		out[fd.Name] = strconv.FormatFloat(*fd.ref(&req), 'f', -1, 64)
	}
	return out
}

// Preset returns the preset with the given key.
func (f *Form[T]) Preset(key string) (Preset[T], bool) {
	for _, p := range f.Presets {
		if p.Key == key {
			return p, true
		}
	}
	return Preset[T]{}, false
}

// View returns the JSON-friendly catalogue served to clients.
func (f *Form[T]) View() FormView {
	v := FormView{Kind: f.Kind, DefaultPreset: f.DefaultPreset}
	for _, fd := range f.Fields {
		v.Fields = append(v.Fields, FieldView{Name: fd.Name, Label: fd.Label, Step: fd.Step})
	}
	for _, p := range f.Presets {
		v.Presets = append(v.Presets, PresetView{Key: p.Key, Label: p.Label, Values: f.Strings(p.Values)})
	}
	return v
}

func (f *Form[T]) has(name string) bool {
	for _, fd := range f.Fields {
		if fd.Name == name {
			return true
		}
	}
	return false
}

// FormView is the serialisable form catalogue.
type FormView struct {
	Kind          string       `json:"kind"`
	Fields        []FieldView  `json:"fields"`
	Presets       []PresetView `json:"presets"`
	DefaultPreset string       `json:"default_preset"`
}

// FieldView is one input of a FormView.
type FieldView struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Step  string `json:"step,omitempty"`
}

// PresetView is one preset of a FormView, values rendered as strings.
type PresetView struct {
	Key    string            `json:"key"`
	Label  string            `json:"label"`
	Values map[string]string `json:"values"`
}

// Feature is one entry of a feature-importance map.
type Feature struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// TopFeaturesN is how many features are shown per importance map.
const TopFeaturesN = 5

// TopFeatures returns the n features with the largest absolute importance,
// largest first. Ties are broken by name.
func TopFeatures(importance map[string]float64, n int) []Feature {
	out := make([]Feature, 0, len(importance))
	for name, v := range importance {
		out = append(out, Feature{Name: name, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := math.Abs(out[i].Value), math.Abs(out[j].Value)
		if ai != aj {
			return ai > aj
		}
		return out[i].Name < out[j].Name
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
