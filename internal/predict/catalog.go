package predict

import "github.com/kurohana/kurohana/internal/apiclient"

type (
	engineReq = apiclient.EngineRequest
	navalReq  = apiclient.NavalRequest
)

// EngineForm is the /predict/engine catalogue.
var EngineForm = &Form[engineReq]{
	Kind: "engine",
	Fields: []Field[engineReq]{
		{"Lever_position", "Lever position", "0.01", func(r *engineReq) *float64 { return &r.LeverPosition }},
		{"Ship_speed", "Ship speed (knots)", "0.1", func(r *engineReq) *float64 { return &r.ShipSpeed }},
		{"Gas_Turbine_shaft_torque", "Shaft torque", "1", func(r *engineReq) *float64 { return &r.GasTurbineShaftTorque }},
		{"Gas_Turbine_rate_of_revolutions", "Turbine RPM", "1", func(r *engineReq) *float64 { return &r.GasTurbineRateOfRevolutions }},
		{"Gas_Generator_rate_of_revolutions", "Generator RPM", "1", func(r *engineReq) *float64 { return &r.GasGeneratorRateOfRevolutions }},
		{"Starboard_Propeller_Torque", "Starboard torque", "1", func(r *engineReq) *float64 { return &r.StarboardPropellerTorque }},
		{"Port_Propeller_Torque", "Port torque", "1", func(r *engineReq) *float64 { return &r.PortPropellerTorque }},
		{"HP_Turbine_exit_temperature", "HP exit temperature", "0.1", func(r *engineReq) *float64 { return &r.HPTurbineExitTemperature }},
		{"GT_Compressor_inlet_air_temperature", "Compressor inlet temp", "0.1", func(r *engineReq) *float64 { return &r.GTCompressorInletAirTemperature }},
		{"GT_Compressor_outlet_air_temperature", "Compressor outlet temp", "0.1", func(r *engineReq) *float64 { return &r.GTCompressorOutletAirTemperature }},
		{"HP_Turbine_exit_pressure", "HP exit pressure", "0.01", func(r *engineReq) *float64 { return &r.HPTurbineExitPressure }},
	},
	Presets: []Preset[engineReq]{
		{Key: "cruise", Label: "Cruise telemetry", Values: engineReq{
			LeverPosition:                    0.51,
			ShipSpeed:                        15.4,
			GasTurbineShaftTorque:            510,
			GasTurbineRateOfRevolutions:      3500,
			GasGeneratorRateOfRevolutions:    7900,
			StarboardPropellerTorque:         455,
			PortPropellerTorque:              447,
			HPTurbineExitTemperature:         850,
			GTCompressorInletAirTemperature:  295,
			GTCompressorOutletAirTemperature: 450,
			HPTurbineExitPressure:            15.5,
		}},
		{Key: "surge", Label: "Surge telemetry", Values: engineReq{
			LeverPosition:                    0.78,
			ShipSpeed:                        9.4,
			GasTurbineShaftTorque:            690,
			GasTurbineRateOfRevolutions:      4020,
			GasGeneratorRateOfRevolutions:    8800,
			StarboardPropellerTorque:         520,
			PortPropellerTorque:              515,
			HPTurbineExitTemperature:         910,
			GTCompressorInletAirTemperature:  302,
			GTCompressorOutletAirTemperature: 480,
			HPTurbineExitPressure:            18.2,
		}},
	},
	DefaultPreset: "cruise",
}

// NavalForm is the /predict/naval catalogue.
var NavalForm = &Form[navalReq]{
	Kind: "naval",
	Fields: []Field[navalReq]{
		{"Lever_position", "Lever position", "0.01", func(r *navalReq) *float64 { return &r.LeverPosition }},
		{"Ship_speed_knots", "Ship speed", "0.1", func(r *navalReq) *float64 { return &r.ShipSpeedKnots }},
		{"Gas_Turbine_shaft_torque_kN_m", "Shaft torque", "0.1", func(r *navalReq) *float64 { return &r.GasTurbineShaftTorqueKNm }},
		{"Gas_Turbine_rate_of_revolutions_rpm", "Turbine RPM", "1", func(r *navalReq) *float64 { return &r.GasTurbineRateOfRevolutionsRPM }},
		{"Gas_Generator_rate_of_revolutions_rpm", "Generator RPM", "1", func(r *navalReq) *float64 { return &r.GasGeneratorRateOfRevolutionsRPM }},
		{"Starboard_Propeller_Torque_kN", "Starboard torque", "0.1", func(r *navalReq) *float64 { return &r.StarboardPropellerTorqueKN }},
		{"Port_Propeller_Torque_kN", "Port torque", "0.1", func(r *navalReq) *float64 { return &r.PortPropellerTorqueKN }},
		{"HP_Turbine_exit_temperature_C", "HP exit temperature", "0.1", func(r *navalReq) *float64 { return &r.HPTurbineExitTemperatureC }},
		{"GT_Compressor_inlet_air_temperature_C", "Compressor inlet temp", "0.1", func(r *navalReq) *float64 { return &r.GTCompressorInletAirTempC }},
		{"GT_Compressor_outlet_air_temperature_C", "Compressor outlet temp", "0.1", func(r *navalReq) *float64 { return &r.GTCompressorOutletAirTempC }},
		{"HP_Turbine_exit_pressure_psi", "HP exit pressure", "0.01", func(r *navalReq) *float64 { return &r.HPTurbineExitPressurePSI }},
		{"GT_Compressor_inlet_air_pressure_psi", "Inlet pressure", "0.01", func(r *navalReq) *float64 { return &r.GTCompressorInletAirPressurePSI }},
		{"GT_Compressor_outlet_air_pressure_bar", "Outlet pressure", "0.01", func(r *navalReq) *float64 { return &r.GTCompressorOutletAirPressureBar }},
		{"Gas_Turbine_exhaust_gas_pressure_psi", "Exhaust pressure", "0.01", func(r *navalReq) *float64 { return &r.GasTurbineExhaustGasPressurePSI }},
		{"Turbine_Injecton_Control", "Turbine injection control", "0.01", func(r *navalReq) *float64 { return &r.TurbineInjectionControl }},
		{"Fuel_flow_lg_s", "Fuel flow", "0.01", func(r *navalReq) *float64 { return &r.FuelFlow }},
	},
	Presets: []Preset[navalReq]{
		{Key: "drydock", Label: "Dry dock", Values: navalReq{
			LeverPosition:                    0.52,
			ShipSpeedKnots:                   14.8,
			GasTurbineShaftTorqueKNm:         490,
			GasTurbineRateOfRevolutionsRPM:   3600,
			GasGeneratorRateOfRevolutionsRPM: 8100,
			StarboardPropellerTorqueKN:       460,
			PortPropellerTorqueKN:            458,
			HPTurbineExitTemperatureC:        840,
			GTCompressorInletAirTempC:        294,
			GTCompressorOutletAirTempC:       452,
			HPTurbineExitPressurePSI:         16,
			GTCompressorInletAirPressurePSI:  14.5,
			GTCompressorOutletAirPressureBar: 17.5,
			GasTurbineExhaustGasPressurePSI:  15.8,
			TurbineInjectionControl:          1.6,
			FuelFlow:                         0.78,
		}},
		{Key: "seaTrial", Label: "Sea trial", Values: navalReq{
			LeverPosition:                    0.64,
			ShipSpeedKnots:                   21.3,
			GasTurbineShaftTorqueKNm:         585,
			GasTurbineRateOfRevolutionsRPM:   4200,
			GasGeneratorRateOfRevolutionsRPM: 9300,
			StarboardPropellerTorqueKN:       520,
			PortPropellerTorqueKN:            522,
			HPTurbineExitTemperatureC:        905,
			GTCompressorInletAirTempC:        299,
			GTCompressorOutletAirTempC:       470,
			HPTurbineExitPressurePSI:         17.2,
			GTCompressorInletAirPressurePSI:  15.2,
			GTCompressorOutletAirPressureBar: 18.4,
			GasTurbineExhaustGasPressurePSI:  16.3,
			TurbineInjectionControl:          1.9,
			FuelFlow:                         0.91,
		}},
	},
	DefaultPreset: "drydock",
}
