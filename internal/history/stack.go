package history

import "deckhistory/pkg/domain"

// MaxStackHeight bounds every walk over labware-on-labware stacks. It is the
// tallest physical stack the deck supports (thermocycler lid stacks), and also
// stops runaway recursion over cyclic or self-referencing load commands.
const MaxStackHeight = 5

// Resolver answers stack and naming questions over a command history.
// Anomalies are reported through the injected logger and never returned as errors.
type Resolver struct {
	log            domain.Logger
	maxStackHeight int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger that receives unresolved-reference warnings.
func WithLogger(l domain.Logger) Option {
	return func(r *Resolver) { r.log = domain.LoggerOrNop(l) }
}

// WithMaxStackHeight overrides MaxStackHeight for both stack walks.
func WithMaxStackHeight(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxStackHeight = n
		}
	}
}

// NewResolver constructs a Resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{log: domain.NopLogger(), maxStackHeight: MaxStackHeight}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MaxStackHeight returns the configured stack cap.
func (r *Resolver) MaxStackHeight() int { return r.maxStackHeight }

// TopLabwareInfo describes the labware nothing else is loaded onto.
type TopLabwareInfo struct {
	TopLabwareID          string                    `json:"topLabwareId"`
	TopLabwareDefinition  *domain.LabwareDefinition `json:"topLabwareDefinition,omitempty"`
	TopLabwareDisplayName string                    `json:"topLabwareDisplayName,omitempty"`
}

// StackCount is the number of like labware under (and including) a stack top,
// and the location of the lowest of them.
type StackCount struct {
	LabwareQuantity int                    `json:"labwareQuantity"`
	LabwareLocation domain.LabwareLocation `json:"labwareLocation"`
}

// TopLabwareInfo climbs from labwareID to the top of its stack.
func (r *Resolver) TopLabwareInfo(labwareID string, loadCommands []domain.Command) TopLabwareInfo {
	return r.TopLabwareInfoAt(labwareID, loadCommands, 0)
}

// TopLabwareInfoAt climbs from labwareID, which sits stackHeight levels above
// where the walk started. The walk stops once stackHeight reaches the cap and
// treats the current labware as the top.
func (r *Resolver) TopLabwareInfoAt(labwareID string, loadCommands []domain.Command, stackHeight int) TopLabwareInfo {
	nested, found := findFirst(loadCommands, func(c domain.Command) bool {
		p, _, ok := c.LoadLabware()
		if !ok {
			return false
		}
		on, isNested := p.Location.(domain.OnLabwareLocation)
		return isNested && on.LabwareID == labwareID
	})
	if stackHeight >= r.maxStackHeight && found {
		r.log.Warn("stack height limit reached, treating labware as top of stack",
			"labware_id", labwareID, "stack_height", stackHeight)
	}
	if !found || stackHeight >= r.maxStackHeight {
		info := TopLabwareInfo{TopLabwareID: labwareID}
		load, ok := findLoadCommand(loadCommands, labwareID)
		if !ok {
			r.log.Warn("could not find the load labware command associated with labware", "labware_id", labwareID)
			return info
		}
		p, res, _ := load.LoadLabware()
		info.TopLabwareDefinition = res.Definition
		info.TopLabwareDisplayName = p.DisplayName
		return info
	}
	nextID, _ := nested.LoadedLabwareID()
	return r.TopLabwareInfoAt(nextID, loadCommands, stackHeight+1)
}

// LabwareStackCountAndLocation counts the consecutive labware sharing
// topLabwareID's load name, walking down from it, and returns the location of
// the lowest one.
func (r *Resolver) LabwareStackCountAndLocation(topLabwareID string, commands []domain.Command) StackCount {
	return r.LabwareStackCountAndLocationFrom(topLabwareID, commands, 1)
}

// LabwareStackCountAndLocationFrom continues a count that has already seen
// initialQuantity like labware.
func (r *Resolver) LabwareStackCountAndLocationFrom(topLabwareID string, commands []domain.Command, initialQuantity int) StackCount {
	loadCommands := LoadLabwareCommands(commands)
	load, ok := findLoadCommand(loadCommands, topLabwareID)
	if !ok {
		r.log.Warn("could not find the load labware command associated with labware", "labware_id", topLabwareID)
		return StackCount{LabwareLocation: domain.OffDeck{}, LabwareQuantity: 0}
	}
	params, _, _ := load.LoadLabware()
	location := params.Location

	if on, nested := location.(domain.OnLabwareLocation); nested {
		lower, ok := findLoadCommand(loadCommands, on.LabwareID)
		if !ok {
			r.log.Warn("could not find the load labware command associated with labware", "labware_id", on.LabwareID)
			return StackCount{LabwareLocation: domain.OffDeck{}, LabwareQuantity: 0}
		}
		lowerParams, _, _ := lower.LoadLabware()
		if lowerParams.LoadName == params.LoadName && initialQuantity < r.maxStackHeight {
			return r.LabwareStackCountAndLocationFrom(on.LabwareID, commands, initialQuantity+1)
		}
	}
	return StackCount{LabwareQuantity: initialQuantity, LabwareLocation: location}
}

// LoadLabwareCommands filters commands down to loadLabware commands.
func LoadLabwareCommands(commands []domain.Command) []domain.Command {
	var out []domain.Command
	for _, c := range commands {
		if _, _, ok := c.LoadLabware(); ok {
			out = append(out, c)
		}
	}
	return out
}

// LoadModuleCommands filters commands down to loadModule commands.
func LoadModuleCommands(commands []domain.Command) []domain.Command {
	var out []domain.Command
	for _, c := range commands {
		if _, _, ok := c.LoadModule(); ok {
			out = append(out, c)
		}
	}
	return out
}

func findLoadCommand(commands []domain.Command, labwareID string) (domain.Command, bool) {
	return findFirst(commands, func(c domain.Command) bool {
		id, ok := c.LoadedLabwareID()
		return ok && id == labwareID
	})
}

func findFirst(commands []domain.Command, pred func(domain.Command) bool) (domain.Command, bool) {
	for _, c := range commands {
		if pred(c) {
			return c, true
		}
	}
	return domain.Command{}, false
}
