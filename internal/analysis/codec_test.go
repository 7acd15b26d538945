package analysis

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"deckhistory/pkg/domain"

	"github.com/google/go-cmp/cmp"
)

func loadFixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/ot2_analysis.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return data
}

func TestDecodeJSONFixture(t *testing.T) {
	a, err := Decode(loadFixture(t), FormatJSON)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if a.ID != "analysis-1" || a.RobotType != domain.RobotOT2 {
		t.Fatalf("unexpected header %q %q", a.ID, a.RobotType)
	}
	if len(a.Commands) != 12 {
		t.Fatalf("expected 12 commands, got %d", len(a.Commands))
	}
	params, res, ok := a.Commands[3].LoadLabware()
	if !ok || res == nil || res.LabwareID != "plate-1" {
		t.Fatalf("expected plate load, got %+v %+v", params, res)
	}
	if diff := cmp.Diff(domain.LabwareLocation(domain.ModuleLocation{ModuleID: "mod-1"}), params.Location); diff != "" {
		t.Fatalf("load location mismatch (-want +got):\n%s", diff)
	}
	if _, ok := a.Commands[11].Params.(domain.RawParams); !ok {
		t.Fatalf("expected raw params for unknown command, got %T", a.Commands[11].Params)
	}
	if p, ok := a.Commands[8].Pipetting(); !ok || p.PushOut == nil || *p.PushOut != 5 {
		t.Fatalf("expected push out on dispense, got %+v", p)
	}
}

func TestCBORRoundTripIsDeterministic(t *testing.T) {
	a, err := Decode(loadFixture(t), FormatJSON)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	first, err := Encode(a, FormatCBOR)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	second, err := Encode(a, FormatCBOR)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("cbor encoding not deterministic")
	}
	if Sniff(first) != FormatCBOR {
		t.Fatalf("expected cbor sniff")
	}
	back, err := Decode(first, FormatCBOR)
	if err != nil {
		t.Fatalf("decode cbor: %v", err)
	}
	if diff := cmp.Diff(jsonTree(t, a), jsonTree(t, back)); diff != "" {
		t.Fatalf("cbor round trip mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(a.Commands[7], back.Commands[7]); diff != "" {
		t.Fatalf("move command mismatch (-want +got):\n%s", diff)
	}
}

// jsonTree compares documents independent of raw payload formatting.
func jsonTree(t *testing.T, a domain.Analysis) any {
	t.Helper()
	raw, err := Encode(a, FormatJSON)
	if err != nil {
		t.Fatalf("encode json: %v", err)
	}
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return tree
}

func TestFormatHelpers(t *testing.T) {
	if FormatFromKey("runs/a.CBOR") != FormatCBOR || FormatFromKey("runs/a.json") != FormatJSON || FormatFromKey("noext") != FormatJSON {
		t.Fatalf("unexpected FormatFromKey results")
	}
	if Sniff([]byte("  {\"id\":1}")) != FormatJSON {
		t.Fatalf("expected json sniff")
	}
	if FormatCBOR.ContentType() != "application/cbor" || FormatJSON.ContentType() != "application/json" {
		t.Fatalf("unexpected content types")
	}
	if _, err := Decode([]byte("{}"), Format("xml")); err == nil {
		t.Fatalf("expected unknown format error")
	}
	if _, err := Encode(domain.Analysis{}, Format("xml")); err == nil {
		t.Fatalf("expected unknown format error")
	}
	if _, err := Decode([]byte{0xa1}, FormatCBOR); err == nil {
		t.Fatalf("expected truncated cbor error")
	}
}
