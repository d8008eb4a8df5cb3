package serialization

import (
	"errors"
	"strings"
	"testing"
)

// diamond is x -> (a, b) -> y, the smallest tape with shared operands.
func diamond() TapeSnapshot {
	return TapeSnapshot{
		Nodes: []NodeRecord{
			{ID: 0, Kind: "leaf", Class: "leaf", Value: 2},
			{ID: 1, Kind: "exp", Class: "unary", Value: 7.389, Operands: []int32{0}},
			{ID: 2, Kind: "sin", Class: "unary", Value: 0.909, Operands: []int32{0}},
			{ID: 3, Kind: "add", Class: "binary", Value: 8.298, Operands: []int32{1, 2}},
		},
	}
}

// TestValidateSnapshot_Valid verifies that well-formed tapes pass validation.
func TestValidateSnapshot_Valid(t *testing.T) {
	if err := ValidateSnapshot(diamond()); err != nil {
		t.Errorf("Expected no error for valid snapshot, got: %v", err)
	}

	withHub := TapeSnapshot{
		Nodes: []NodeRecord{
			{ID: 0, Kind: "leaf", Class: "leaf", Value: 1},
			{ID: 1, Kind: "softmax", Class: "hub", Operands: []int32{0, -1}, Dims: []int32{2, 0, 0}},
			{ID: 2, Kind: "projection", Class: "projection", Value: 0.73, Operands: []int32{1}, Dims: []int32{0}},
			{ID: 3, Kind: "sum", Class: "nary", Value: 0.73, Operands: []int32{2}, Partials: []float64{1}},
		},
	}
	if err := ValidateSnapshot(withHub); err != nil {
		t.Errorf("Expected no error for hub snapshot, got: %v", err)
	}

	if err := ValidateSnapshot(TapeSnapshot{}); err != nil {
		t.Errorf("Expected no error for empty snapshot, got: %v", err)
	}
}

// TestValidateSnapshot_Invalid detects every class of structural defect.
func TestValidateSnapshot_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*TapeSnapshot)
		wantType string
	}{
		{
			name:     "forward reference",
			mutate:   func(s *TapeSnapshot) { s.Nodes[1].Operands = []int32{3} },
			wantType: "forward_reference",
		},
		{
			name:     "self reference",
			mutate:   func(s *TapeSnapshot) { s.Nodes[2].Operands = []int32{2} },
			wantType: "forward_reference",
		},
		{
			name:     "ids out of order",
			mutate:   func(s *TapeSnapshot) { s.Nodes[2].ID = 7 },
			wantType: "id_order",
		},
		{
			name:     "constant operand outside a hub",
			mutate:   func(s *TapeSnapshot) { s.Nodes[3].Operands = []int32{1, -1} },
			wantType: "negative_operand",
		},
		{
			name:     "missing kind",
			mutate:   func(s *TapeSnapshot) { s.Nodes[0].Kind = "" },
			wantType: "invalid_kind",
		},
		{
			name: "partials mismatch",
			mutate: func(s *TapeSnapshot) {
				s.Nodes[3].Class = "nary"
				s.Nodes[3].Partials = []float64{1}
			},
			wantType: "partials_mismatch",
		},
		{
			name: "projection of a non-hub",
			mutate: func(s *TapeSnapshot) {
				s.Nodes[2].Class = "projection"
			},
			wantType: "projection_target",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := diamond()
			tt.mutate(&snap)

			err := ValidateSnapshot(snap)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected *ValidationError, got: %v", err)
			}
			if verr.Type != tt.wantType {
				t.Errorf("Expected type %q, got %q (%v)", tt.wantType, verr.Type, err)
			}
			if !strings.Contains(err.Error(), tt.wantType) {
				t.Errorf("Error message should name the type: %v", err)
			}
		})
	}
}
