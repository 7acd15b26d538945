package commandtext

import (
	"fmt"
	"strconv"
	"strings"
)

// Translator renders a catalog key with named arguments.
type Translator interface {
	T(key string, args map[string]any) string
}

// TranslatorFunc adapts a function to Translator.
type TranslatorFunc func(key string, args map[string]any) string

// T implements Translator.
func (f TranslatorFunc) T(key string, args map[string]any) string { return f(key, args) }

// Catalog is a Translator over {{name}} templates. Unknown keys render as the key itself.
type Catalog map[string]string

// T implements Translator.
func (c Catalog) T(key string, args map[string]any) string {
	tmpl, ok := c[key]
	if !ok {
		return key
	}
	if len(args) == 0 {
		return tmpl
	}
	pairs := make([]string, 0, len(args)*2)
	for name, v := range args {
		pairs = append(pairs, "{{"+name+"}}", formatArg(v))
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

func formatArg(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	default:
		return fmt.Sprint(x)
	}
}

// English is the built-in protocol command text catalog.
var English = Catalog{
	"aspirate":               "Aspirating {{volume}} µL from well {{well_name}} of {{labware}} in {{labware_location}} at {{flow_rate}} µL/sec",
	"dispense":               "Dispensing {{volume}} µL into well {{well_name}} of {{labware}} in {{labware_location}} at {{flow_rate}} µL/sec",
	"dispense_push_out":      "Dispensing {{volume}} µL into well {{well_name}} of {{labware}} in {{labware_location}} at {{flow_rate}} µL/sec and pushing out {{push_out_volume}} µL",
	"blowout":                "Blowing out at well {{well_name}} of {{labware}} in {{labware_location}} at {{flow_rate}} µL/sec",
	"touch_tip":              "Touching tip",
	"move_to_well":           "Moving to well {{well_name}} of {{labware}} in {{labware_location}}",
	"pickup_tip":             "Picking up tip(s) from {{well_range}} of {{labware}} in {{labware_location}}",
	"return_tip":             "Returning tip to {{well_name}} of {{labware}} in {{labware_location}}",
	"drop_tip":               "Dropping tip in {{well_name}} of {{labware}}",
	"drop_tip_in_place":      "Dropping tip in place",
	"dropping_tip_in_trash":  "Dropping tip in {{trash}}",
	"slot":                   "Slot {{slot_name}}",
	"off_deck":               "off deck",
	"module_in_slot":         "{{module}} in Slot {{slot_name}}",
	"adapter_in_slot":        "{{adapter}} in Slot {{slot}}",
	"adapter_in_mod_in_slot": "{{adapter}} on {{module}} in Slot {{slot}}",
	"fixed_trash":            "Fixed Trash",
	"trash_bin_in_slot":      "Trash Bin in {{slot}}",
	"waste_chute":            "Waste Chute",
}
