package catalog

import (
	"testing"
)

func TestListResponse_IncludesStaticModels(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	resp := ListResponse()
	if resp.Object != "list" {
		t.Fatalf("expected object=list, got %q", resp.Object)
	}
	if len(resp.Data) == 0 {
		t.Fatal("expected non-empty static model table")
	}
	found := false
	for _, m := range resp.Data {
		if m.ID == "gemini-3-flash" {
			found = true
			if m.Object != "model" || m.OwnedBy != "antigravity" {
				t.Fatalf("unexpected entry shape: %+v", m)
			}
		}
	}
	if !found {
		t.Fatal("expected gemini-3-flash in static model table")
	}
}

func TestListResponse_AppliesExtraModelsEnvOverride(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	t.Setenv("ANTIGRAVITY_EXTRA_MODELS", "custom-model:acme, ,bare-model")
	resp := ListResponse()

	byID := map[string]ModelListEntry{}
	for _, m := range resp.Data {
		byID[m.ID] = m
	}
	custom, ok := byID["custom-model"]
	if !ok || custom.OwnedBy != "acme" {
		t.Fatalf("expected custom-model owned_by=acme, got %+v ok=%v", custom, ok)
	}
	bare, ok := byID["bare-model"]
	if !ok || bare.OwnedBy != "antigravity" {
		t.Fatalf("expected bare-model to default owned_by=antigravity, got %+v ok=%v", bare, ok)
	}
}

func TestSafetySettings_ReturnsIndependentCopies(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	first := SafetySettings()
	if len(first) == 0 {
		t.Fatal("expected non-empty safety settings table")
	}
	first[0]["threshold"] = "MUTATED"

	second := SafetySettings()
	if second[0]["threshold"] == "MUTATED" {
		t.Fatal("expected SafetySettings to return independent copies per call")
	}
}
