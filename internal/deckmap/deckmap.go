package deckmap

import "deckhistory/pkg/domain"

// KindIntervention marks deck maps drawn for an intervention or recovery view.
const KindIntervention = "intervention"

// Request carries the inputs of Build.
type Request struct {
	Run         *domain.RunRecord
	RobotType   domain.RobotType
	Definitions domain.LabwareDefinitionsByURI
	// FailedLabware is the labware of interest, or nil.
	FailedLabware *domain.LoadedLabware
}

// DeckMap is the full "what is on the deck right now" view model.
type DeckMap struct {
	Kind                         string                    `json:"kind"`
	RobotType                    domain.RobotType          `json:"robotType"`
	ModulesOnDeck                []ModuleOnDeck            `json:"modulesOnDeck"`
	LabwareOnDeck                []LabwareOnDeck           `json:"labwareOnDeck"`
	HighlightLabwareEventuallyIn []string                  `json:"highlightLabwareEventuallyIn"`
	LoadedLabware                []domain.LoadedLabware    `json:"loadedLabware"`
	LoadedModules                []domain.LoadedModule     `json:"loadedModules"`
	MovedLabwareDef              *domain.LabwareDefinition `json:"movedLabwareDef"`
}

// Build composes the module and labware projections into a DeckMap.
func (p *Projector) Build(req Request) DeckMap {
	robot := req.RobotType
	if robot == "" {
		robot = domain.RobotOT2
	}
	modules := p.ModulesOnDeck(req.FailedLabware, req.Run, p.ModulesInfo(req.Run, robot, req.Definitions))
	labware := p.LabwareOnDeck(req.FailedLabware, req.Run, p.LabwareInfo(req.Run, req.Definitions))

	out := DeckMap{
		Kind:                         KindIntervention,
		RobotType:                    robot,
		ModulesOnDeck:                modules,
		LabwareOnDeck:                labware,
		HighlightLabwareEventuallyIn: []string{},
		LoadedLabware:                []domain.LoadedLabware{},
		LoadedModules:                []domain.LoadedModule{},
	}
	for _, m := range modules {
		if m.Highlight != "" {
			out.HighlightLabwareEventuallyIn = append(out.HighlightLabwareEventuallyIn, m.Highlight)
		}
	}
	for _, lw := range labware {
		if lw.Highlight != "" {
			out.HighlightLabwareEventuallyIn = append(out.HighlightLabwareEventuallyIn, lw.Highlight)
		}
	}
	if req.Run != nil {
		out.LoadedLabware = append(out.LoadedLabware, req.Run.Labware...)
		out.LoadedModules = append(out.LoadedModules, req.Run.Modules...)
	}
	if req.Definitions != nil && req.FailedLabware != nil {
		if def, ok := req.Definitions[req.FailedLabware.DefinitionURI]; ok {
			out.MovedLabwareDef = &def
		}
	}
	return out
}
