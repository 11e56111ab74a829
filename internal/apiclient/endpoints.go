package apiclient

import "context"

// Remote endpoint paths.
const (
	PathHealth        = "/health"
	PathPredictEngine = "/predict/engine"
	PathPredictNaval  = "/predict/naval"
)

// HealthResponse is the payload of GET /health. Missing fields decode to
// their zero values, which the poller treats as "not loaded".
type HealthResponse struct {
	Status                string `json:"status"`
	EngineModelLoaded     bool   `json:"engine_model_loaded"`
	EngineExplainerLoaded bool   `json:"engine_explainer_loaded"`
	NavalModelLoaded      bool   `json:"naval_model_loaded"`
	NavalExplainerLoaded  bool   `json:"naval_explainer_loaded"`
}

// EngineRequest is the telemetry body for POST /predict/engine.
type EngineRequest struct {
	LeverPosition                    float64 `json:"Lever_position"`
	ShipSpeed                        float64 `json:"Ship_speed"`
	GasTurbineShaftTorque            float64 `json:"Gas_Turbine_shaft_torque"`
	GasTurbineRateOfRevolutions      float64 `json:"Gas_Turbine_rate_of_revolutions"`
	GasGeneratorRateOfRevolutions    float64 `json:"Gas_Generator_rate_of_revolutions"`
	StarboardPropellerTorque         float64 `json:"Starboard_Propeller_Torque"`
	PortPropellerTorque              float64 `json:"Port_Propeller_Torque"`
	HPTurbineExitTemperature         float64 `json:"HP_Turbine_exit_temperature"`
	GTCompressorInletAirTemperature  float64 `json:"GT_Compressor_inlet_air_temperature"`
	GTCompressorOutletAirTemperature float64 `json:"GT_Compressor_outlet_air_temperature"`
	HPTurbineExitPressure            float64 `json:"HP_Turbine_exit_pressure"`
}

// EngineResponse is the fault classification returned by /predict/engine.
type EngineResponse struct {
	Prediction        float64            `json:"prediction"` // class index; some encoders send 1.0
	Condition         string             `json:"condition"`
	Probabilities     map[string]float64 `json:"probabilities"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
}

// NavalRequest is the telemetry body for POST /predict/naval.
type NavalRequest struct {
	LeverPosition                    float64 `json:"Lever_position"`
	ShipSpeedKnots                   float64 `json:"Ship_speed_knots"`
	GasTurbineShaftTorqueKNm         float64 `json:"Gas_Turbine_shaft_torque_kN_m"`
	GasTurbineRateOfRevolutionsRPM   float64 `json:"Gas_Turbine_rate_of_revolutions_rpm"`
	GasGeneratorRateOfRevolutionsRPM float64 `json:"Gas_Generator_rate_of_revolutions_rpm"`
	StarboardPropellerTorqueKN       float64 `json:"Starboard_Propeller_Torque_kN"`
	PortPropellerTorqueKN            float64 `json:"Port_Propeller_Torque_kN"`
	HPTurbineExitTemperatureC        float64 `json:"HP_Turbine_exit_temperature_C"`
	GTCompressorInletAirTempC        float64 `json:"GT_Compressor_inlet_air_temperature_C"`
	GTCompressorOutletAirTempC       float64 `json:"GT_Compressor_outlet_air_temperature_C"`
	HPTurbineExitPressurePSI         float64 `json:"HP_Turbine_exit_pressure_psi"`
	GTCompressorInletAirPressurePSI  float64 `json:"GT_Compressor_inlet_air_pressure_psi"`
	GTCompressorOutletAirPressureBar float64 `json:"GT_Compressor_outlet_air_pressure_bar"`
	GasTurbineExhaustGasPressurePSI  float64 `json:"Gas_Turbine_exhaust_gas_pressure_psi"`
	TurbineInjectionControl          float64 `json:"Turbine_Injecton_Control"`
	FuelFlow                         float64 `json:"Fuel_flow_lg_s"`
}

// NavalResponse is the decay regression returned by /predict/naval.
type NavalResponse struct {
	Predictions struct {
		CompressorDecay float64 `json:"compressor_decay"`
		TurbineDecay    float64 `json:"turbine_decay"`
	} `json:"predictions"`
	FeatureImportance struct {
		Compressor map[string]float64 `json:"compressor"`
		Turbine    map[string]float64 `json:"turbine"`
	} `json:"feature_importance"`
}

// Health fetches the service readiness flags.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.GetJSON(ctx, PathHealth, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PredictEngine classifies the engine condition for one telemetry sample.
func (c *Client) PredictEngine(ctx context.Context, req EngineRequest) (*EngineResponse, error) {
	var out EngineResponse
	if err := c.PostJSON(ctx, PathPredictEngine, "engine predict", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PredictNaval estimates compressor and turbine decay for one telemetry sample.
func (c *Client) PredictNaval(ctx context.Context, req NavalRequest) (*NavalResponse, error) {
	var out NavalResponse
	if err := c.PostJSON(ctx, PathPredictNaval, "naval predict", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
