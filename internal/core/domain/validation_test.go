package domain

import (
	"errors"
	"reflect"
	"testing"
)

func TestValidationState_Accumulates(t *testing.T) {
	vs := NewValidationState()
	if !vs.IsValid() {
		t.Fatal("new state should be valid")
	}

	vs.AddError("name", nil)
	if !vs.IsValid() {
		t.Fatal("nil error should not be recorded")
	}

	cause := errors.New("too long")
	vs.AddError("name", cause)
	vs.AddMessage("name", "required")
	vs.AddMessage("age", "not a number")

	if vs.IsValid() {
		t.Fatal("expected invalid state")
	}
	errs := vs.Errors("name")
	if len(errs) != 2 {
		t.Fatalf("len(Errors(name)) = %d, want 2", len(errs))
	}
	if !errors.Is(errs[0].Err, cause) {
		t.Errorf("first error = %v, want %v", errs[0].Err, cause)
	}
	if errs[1].Err != nil {
		t.Errorf("message entry should carry no error, got %v", errs[1].Err)
	}
	if got := vs.Fields(); !reflect.DeepEqual(got, []string{"age", "name"}) {
		t.Errorf("Fields() = %v", got)
	}
	want := map[string][]string{
		"name": {"too long", "required"},
		"age":  {"not a number"},
	}
	if got := vs.Messages(); !reflect.DeepEqual(got, want) {
		t.Errorf("Messages() = %v, want %v", got, want)
	}
}

func TestValidationState_IsFieldValid(t *testing.T) {
	vs := NewValidationState()
	vs.AddMessage("greeting.name", "required")

	tests := []struct {
		field string
		want  bool
	}{
		{"greeting", false},
		{"greeting.name", false},
		{"greeting.language", true},
		{"greet", true},
		{"greetings", true},
	}
	for _, tt := range tests {
		if got := vs.IsFieldValid(tt.field); got != tt.want {
			t.Errorf("IsFieldValid(%q) = %v, want %v", tt.field, got, tt.want)
		}
	}
}

func TestValidationState_Attempted(t *testing.T) {
	vs := NewValidationState()
	if _, ok := vs.Attempted("excited"); ok {
		t.Fatal("unexpected attempted value")
	}
	vs.SetAttempted("excited", "maybe")
	raw, ok := vs.Attempted("excited")
	if !ok || raw != "maybe" {
		t.Errorf("Attempted(excited) = %v, %v", raw, ok)
	}
	if !vs.IsValid() {
		t.Error("attempted values are not errors")
	}
}
