package commandtext

import "testing"

func TestCatalogSubstitutesArguments(t *testing.T) {
	c := Catalog{"greet": "{{who}} has {{n}} tips and {{vol}} µL"}
	got := c.T("greet", map[string]any{"who": "pip", "n": 8, "vol": 92.86})
	if want := "pip has 8 tips and 92.86 µL"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if got := c.T("missing", nil); got != "missing" {
		t.Fatalf("expected unknown keys to render as the key, got %q", got)
	}
	if got := c.T("greet", nil); got != c["greet"] {
		t.Fatalf("expected the raw template without args, got %q", got)
	}
}

func TestEnglishCatalogCoversRenderedKeys(t *testing.T) {
	for _, key := range []string{
		"aspirate", "dispense", "dispense_push_out", "blowout", "touch_tip", "move_to_well",
		"pickup_tip", "return_tip", "drop_tip", "drop_tip_in_place", "dropping_tip_in_trash",
		"slot", "off_deck", "module_in_slot", "adapter_in_slot", "adapter_in_mod_in_slot",
		"fixed_trash", "trash_bin_in_slot", "waste_chute",
	} {
		if _, ok := English[key]; !ok {
			t.Fatalf("English catalog is missing %q", key)
		}
	}
}
