package predict

import (
	"context"
	"errors"
	"testing"

	"github.com/kurohana/kurohana/internal/apiclient"
)

// --- form parsing -----------------------------------------------------------

func TestEngineForm_PresetRoundTrip(t *testing.T) {
	p, ok := EngineForm.Preset("cruise")
	if !ok {
		t.Fatal("cruise preset missing")
	}
	got, err := EngineForm.Parse(EngineForm.Strings(p.Values))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got != p.Values {
		t.Errorf("Parse(Strings(cruise)) = %+v, want %+v", got, p.Values)
	}
}

func TestForms_FieldCounts(t *testing.T) {
	if n := len(EngineForm.Fields); n != 11 {
		t.Errorf("engine fields = %d, want 11", n)
	}
	if n := len(NavalForm.Fields); n != 16 {
		t.Errorf("naval fields = %d, want 16", n)
	}
	for _, p := range NavalForm.Presets {
		if vals := NavalForm.Strings(p.Values); len(vals) != 16 {
			t.Errorf("preset %s renders %d values", p.Key, len(vals))
		}
	}
}

func TestParse_BlankField(t *testing.T) {
	p, _ := NavalForm.Preset("seaTrial")
	vals := NavalForm.Strings(p.Values)
	vals["Fuel_flow_lg_s"] = "  "
	vals["Lever_position"] = "abc" // blank check wins over non-numeric

	_, err := NavalForm.Parse(vals)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if verr.Message != "Fill every field before predicting." {
		t.Errorf("message = %q", verr.Message)
	}
}

func TestParse_MissingFieldIsBlank(t *testing.T) {
	_, err := EngineForm.Parse(map[string]string{"Lever_position": "0.5"})
	if err == nil || err.Error() != ErrBlankField {
		t.Errorf("error = %v, want %q", err, ErrBlankField)
	}
}

func TestParse_NonNumeric(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"letters", "fast"},
		{"nan", "NaN"},
		{"inf", "+Inf"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, _ := EngineForm.Preset("surge")
			vals := EngineForm.Strings(p.Values)
			vals["Ship_speed"] = tc.value

			_, err := EngineForm.Parse(vals)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, want *ValidationError", err)
			}
			if verr.Field != "Ship_speed" || verr.Message != "Ship speed (knots) must be a number." {
				t.Errorf("ValidationError = %+v", verr)
			}
		})
	}
}

func TestParse_UnknownField(t *testing.T) {
	p, _ := EngineForm.Preset("cruise")
	vals := EngineForm.Strings(p.Values)
	vals["Warp_factor"] = "9"

	_, err := EngineForm.Parse(vals)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "Warp_factor" {
		t.Errorf("error = %v, want unknown field Warp_factor", err)
	}
}

func TestParse_TrimsWhitespace(t *testing.T) {
	p, _ := EngineForm.Preset("cruise")
	vals := EngineForm.Strings(p.Values)
	vals["HP_Turbine_exit_pressure"] = " 16.25 "

	got, err := EngineForm.Parse(vals)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got.HPTurbineExitPressure != 16.25 {
		t.Errorf("HPTurbineExitPressure = %v", got.HPTurbineExitPressure)
	}
}

func TestView(t *testing.T) {
	v := NavalForm.View()
	if v.Kind != "naval" || v.DefaultPreset != "drydock" {
		t.Errorf("view header = %+v", v)
	}
	if len(v.Fields) != 16 || v.Fields[14].Name != "Turbine_Injecton_Control" {
		t.Errorf("fields = %+v", v.Fields)
	}
	if len(v.Presets) != 2 || v.Presets[1].Values["Fuel_flow_lg_s"] != "0.91" {
		t.Errorf("presets = %+v", v.Presets)
	}
}

// --- top features -----------------------------------------------------------

func TestTopFeatures_ByAbsoluteValue(t *testing.T) {
	got := TopFeatures(map[string]float64{
		"a": 0.1,
		"b": -0.9,
		"c": 0.5,
		"d": -0.05,
		"e": 0.3,
		"f": -0.4,
		"g": 0.0,
	}, 5)

	want := []string{"b", "c", "f", "e", "a"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("got[%d] = %s, want %s", i, got[i].Name, name)
		}
	}
	if got[0].Value != -0.9 {
		t.Errorf("sign lost: %v", got[0].Value)
	}
}

func TestTopFeatures_FewerThanN(t *testing.T) {
	if got := TopFeatures(map[string]float64{"x": 1}, 5); len(got) != 1 {
		t.Errorf("len = %d, want 1", len(got))
	}
	if got := TopFeatures(nil, 5); len(got) != 0 {
		t.Errorf("nil map gave %v", got)
	}
}

func TestTopFeatures_TiesByName(t *testing.T) {
	got := TopFeatures(map[string]float64{"zeta": 0.5, "alpha": -0.5}, 2)
	if got[0].Name != "alpha" || got[1].Name != "zeta" {
		t.Errorf("order = %v", got)
	}
}

// --- service ----------------------------------------------------------------

type fakeClient struct {
	engineCalls int
	navalCalls  int
	engineReq   apiclient.EngineRequest
	err         error
}

func (f *fakeClient) PredictEngine(_ context.Context, req apiclient.EngineRequest) (*apiclient.EngineResponse, error) {
	f.engineCalls++
	f.engineReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &apiclient.EngineResponse{
		Prediction:    2,
		Condition:     "Critical Fault",
		Probabilities: map[string]float64{"critical_fault": 0.8},
		FeatureImportance: map[string]float64{
			"Ship_speed": 0.1, "Lever_position": -0.7, "Port_Propeller_Torque": 0.2,
			"HP_Turbine_exit_pressure": 0.05, "Gas_Turbine_shaft_torque": -0.3, "Starboard_Propeller_Torque": 0.01,
		},
	}, nil
}

func (f *fakeClient) PredictNaval(_ context.Context, _ apiclient.NavalRequest) (*apiclient.NavalResponse, error) {
	f.navalCalls++
	if f.err != nil {
		return nil, f.err
	}
	resp := &apiclient.NavalResponse{}
	resp.Predictions.CompressorDecay = 0.97
	resp.Predictions.TurbineDecay = 0.99
	resp.FeatureImportance.Compressor = map[string]float64{"Fuel_flow_lg_s": 0.4}
	resp.FeatureImportance.Turbine = map[string]float64{"Lever_position": -0.2, "Ship_speed_knots": 0.1}
	return resp, nil
}

func TestService_Engine(t *testing.T) {
	fc := &fakeClient{}
	svc := NewService(fc)
	p, _ := EngineForm.Preset("surge")

	res, err := svc.Engine(context.Background(), EngineForm.Strings(p.Values))
	if err != nil {
		t.Fatalf("Engine() error = %v", err)
	}
	if fc.engineReq != p.Values {
		t.Errorf("request = %+v, want surge preset", fc.engineReq)
	}
	if res.Condition != "Critical Fault" || len(res.TopFeatures) != 5 {
		t.Errorf("result = %+v", res)
	}
	if res.TopFeatures[0].Name != "Lever_position" {
		t.Errorf("top feature = %s", res.TopFeatures[0].Name)
	}
}

func TestService_ValidationSkipsRequest(t *testing.T) {
	fc := &fakeClient{}
	svc := NewService(fc)

	_, err := svc.Engine(context.Background(), map[string]string{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if fc.engineCalls != 0 {
		t.Errorf("client called %d times on invalid form", fc.engineCalls)
	}
}

func TestService_Naval(t *testing.T) {
	fc := &fakeClient{}
	p, _ := NavalForm.Preset("drydock")

	res, err := NewService(fc).Naval(context.Background(), NavalForm.Strings(p.Values))
	if err != nil {
		t.Fatalf("Naval() error = %v", err)
	}
	if res.CompressorDecay != 0.97 || res.TurbineDecay != 0.99 {
		t.Errorf("decay = %+v", res)
	}
	if len(res.CompressorTop) != 1 || len(res.TurbineTop) != 2 || res.TurbineTop[0].Name != "Lever_position" {
		t.Errorf("top features = %+v / %+v", res.CompressorTop, res.TurbineTop)
	}
}

func TestService_PropagatesClientError(t *testing.T) {
	want := &apiclient.APIError{StatusCode: 422, Message: "missing field"}
	fc := &fakeClient{err: want}
	p, _ := NavalForm.Preset("drydock")

	_, err := NewService(fc).Naval(context.Background(), NavalForm.Strings(p.Values))
	var aerr *apiclient.APIError
	if !errors.As(err, &aerr) || aerr.Message != "missing field" {
		t.Errorf("error = %v, want the client's APIError", err)
	}
}
