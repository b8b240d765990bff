package vocab

import "testing"

func TestLookup(t *testing.T) {
	tests := []struct {
		table Table
		raw   string
		want  string
		ok    bool
	}{
		{Resources, "FP", Forschungspunkte, true},
		{Resources, " chem. Elemente ", ChemElemente, true},
		{Resources, "eisen", Eisen, true},
		{Resources, "Gold", "", false},
		{Areas, "Korvette", "Korvetten", true},
		{Areas, "Schlachtschiff", "Schlachtschiffe", true},
		{Areas, "Dreadnought", "Dreadnoughts", true},
		{Areas, "orbitale Def", "orbitale Verteidigung", true},
		{ObjectTypes, "KB", Kampfbasis, true},
		{ObjectTypes, "---", NoObject, true},
		{ObjectTypes, "Artefaktsammelbasis", Artefaktbasis, true},
		{Ranks, "Mitgliederverwalter", "Memberverwalter", true},
		{Ranks, "Memberverwalter", "Memberverwalter", true},
		{Ranks, "interner HC", "interner HC", true},
	}

	for _, tt := range tests {
		t.Run(tt.table.Name+"/"+tt.raw, func(t *testing.T) {
			got, ok := tt.table.Lookup(tt.raw)
			if ok != tt.ok {
				t.Fatalf("Lookup(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("Lookup(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestLabelsAreCanonical(t *testing.T) {
	labels := Ranks.Labels()
	want := []string{"Gründer", "HC", "Member", "Memberverwalter", "interner HC"}
	if len(labels) != len(want) {
		t.Fatalf("Labels() = %v, want %v", labels, want)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Errorf("Labels()[%d] = %q, want %q", i, labels[i], want[i])
		}
	}
}
