package division

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Division
		wantErr bool
	}{
		{name: "exact", input: "retail", want: Retail},
		{name: "mixed case and spaces", input: "  Exhibitions ", want: Exhibitions},
		{name: "empty", input: "", wantErr: true},
		{name: "unknown", input: "catering", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknown) {
					t.Fatalf("expected ErrUnknown, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestAllReturnsCopy(t *testing.T) {
	all := All()
	if len(all) != 4 {
		t.Fatalf("expected 4 divisions, got %d", len(all))
	}
	all[0].Label = "changed"
	if info, _ := Lookup(Exhibitions); info.Label != "Exhibitions" {
		t.Fatalf("catalog was mutated through All()")
	}
}
