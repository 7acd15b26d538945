package domain

// ModuleModel names a hardware module model.
type ModuleModel string

// Known module models.
const (
	MagneticModuleV1     ModuleModel = "magneticModuleV1"
	MagneticModuleV2     ModuleModel = "magneticModuleV2"
	TemperatureModuleV1  ModuleModel = "temperatureModuleV1"
	TemperatureModuleV2  ModuleModel = "temperatureModuleV2"
	ThermocyclerModuleV1 ModuleModel = "thermocyclerModuleV1"
	ThermocyclerModuleV2 ModuleModel = "thermocyclerModuleV2"
	HeaterShakerModuleV1 ModuleModel = "heaterShakerModuleV1"
	MagneticBlockV1      ModuleModel = "magneticBlockV1"
	AbsorbanceReaderV1   ModuleModel = "absorbanceReaderV1"
	FlexStackerModuleV1  ModuleModel = "flexStackerModuleV1"
)

// ModuleDefinition is the subset of a module definition used by the core.
type ModuleDefinition struct {
	Model       ModuleModel `json:"model"`
	ModuleType  string      `json:"moduleType"`
	DisplayName string      `json:"displayName"`
}

var moduleDefinitions = map[ModuleModel]ModuleDefinition{
	MagneticModuleV1:     {Model: MagneticModuleV1, ModuleType: "magneticModuleType", DisplayName: "Magnetic Module GEN1"},
	MagneticModuleV2:     {Model: MagneticModuleV2, ModuleType: "magneticModuleType", DisplayName: "Magnetic Module GEN2"},
	TemperatureModuleV1:  {Model: TemperatureModuleV1, ModuleType: "temperatureModuleType", DisplayName: "Temperature Module GEN1"},
	TemperatureModuleV2:  {Model: TemperatureModuleV2, ModuleType: "temperatureModuleType", DisplayName: "Temperature Module GEN2"},
	ThermocyclerModuleV1: {Model: ThermocyclerModuleV1, ModuleType: "thermocyclerModuleType", DisplayName: "Thermocycler Module GEN1"},
	ThermocyclerModuleV2: {Model: ThermocyclerModuleV2, ModuleType: "thermocyclerModuleType", DisplayName: "Thermocycler Module GEN2"},
	HeaterShakerModuleV1: {Model: HeaterShakerModuleV1, ModuleType: "heaterShakerModuleType", DisplayName: "Heater-Shaker Module GEN1"},
	MagneticBlockV1:      {Model: MagneticBlockV1, ModuleType: "magneticBlockType", DisplayName: "Magnetic Block GEN1"},
	AbsorbanceReaderV1:   {Model: AbsorbanceReaderV1, ModuleType: "absorbanceReaderType", DisplayName: "Absorbance Plate Reader Module GEN1"},
	FlexStackerModuleV1:  {Model: FlexStackerModuleV1, ModuleType: "flexStackerModuleType", DisplayName: "Flex Stacker Module GEN1"},
}

// ModuleDefinitionFor returns the built-in definition of a module model.
func ModuleDefinitionFor(model ModuleModel) (ModuleDefinition, bool) {
	def, ok := moduleDefinitions[model]
	return def, ok
}

// ModuleDisplayName returns the display name of a model, or the model itself
// when no definition is known.
func ModuleDisplayName(model ModuleModel) string {
	if def, ok := moduleDefinitions[model]; ok {
		return def.DisplayName
	}
	return string(model)
}
