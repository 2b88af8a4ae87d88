package inputval

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestIsValidObjectID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"507f1f77bcf86cd799439011", true},
		{"000000000000000000000000", true},
		{"FFFFFFFFFFFFFFFFFFFFFFFF", true},
		{"  507f1f77bcf86cd799439011  ", true},
		{"", false},
		{"507f1f77bcf86cd79943901", false},
		{"507f1f77bcf86cd79943901g", false},
		{"not-a-valid-id", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := IsValidObjectID(tt.id); got != tt.want {
				t.Errorf("IsValidObjectID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	type TestInput struct {
		Name  string `validate:"required,max=10" label:"Full name"`
		Email string `validate:"required,emailaddr" label:"Email address"`
	}

	tests := []struct {
		name       string
		input      TestInput
		wantErrors bool
		wantFirst  string
	}{
		{"valid input", TestInput{Name: "John", Email: "john@example.com"}, false, ""},
		{"missing name", TestInput{Name: "", Email: "john@example.com"}, true, "Full name is required."},
		{"name too long", TestInput{Name: "VeryLongNameThatExceedsLimit", Email: "john@example.com"}, true, "Full name must be at most 10 characters."},
		{"invalid email", TestInput{Name: "John", Email: "not-an-email"}, true, "A valid email address is required."},
		{"missing both", TestInput{}, true, "Full name is required."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.input)
			if result.HasErrors() != tt.wantErrors {
				t.Errorf("HasErrors = %v, want %v (%v)", result.HasErrors(), tt.wantErrors, result.Errors)
			}
			if tt.wantErrors && result.First() != tt.wantFirst {
				t.Errorf("First() = %q, want %q", result.First(), tt.wantFirst)
			}
		})
	}
}

func TestValidate_CustomRules(t *testing.T) {
	type RoleInput struct {
		Role string `validate:"required,projectrole" label:"Role"`
	}
	type PriorityInput struct {
		Priority string `validate:"omitempty,priority" label:"Priority"`
	}
	type IDInput struct {
		ID string `validate:"required,objectid" label:"User"`
	}

	if r := Validate(RoleInput{Role: "viewer"}); r.HasErrors() {
		t.Errorf("viewer should be valid: %v", r.Errors)
	}
	if r := Validate(RoleInput{Role: "superuser"}); r.First() != "Role must be one of owner, admin, member, viewer." {
		t.Errorf("unexpected message %q", r.First())
	}
	if r := Validate(PriorityInput{}); r.HasErrors() {
		t.Errorf("empty priority is optional: %v", r.Errors)
	}
	if r := Validate(PriorityInput{Priority: "urgent"}); !r.HasErrors() {
		t.Error("urgent should be rejected")
	}
	if r := Validate(IDInput{ID: "507f1f77bcf86cd799439011"}); r.HasErrors() {
		t.Errorf("valid id rejected: %v", r.Errors)
	}
	if r := Validate(IDInput{ID: "abc"}); r.First() != "User must be a valid ID." {
		t.Errorf("unexpected message %q", r.First())
	}
}

func TestResult_AllAndFirst(t *testing.T) {
	r := &Result{}
	if r.All() != "" || r.First() != "" {
		t.Error("empty result should render empty strings")
	}
	r.Errors = []FieldError{{Message: "Error 1"}, {Message: "Error 2"}}
	if r.All() != "Error 1; Error 2" {
		t.Errorf("All() = %q", r.All())
	}
	if r.First() != "Error 1" {
		t.Errorf("First() = %q", r.First())
	}
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"Ada"}`))
	if err := DecodeJSON(httptest.NewRecorder(), req, &v); err != nil || v.Name != "Ada" {
		t.Fatalf("DecodeJSON: %v, %+v", err, v)
	}

	req = httptest.NewRequest("POST", "/", strings.NewReader(""))
	if err := DecodeJSON(httptest.NewRecorder(), req, &v); err != nil {
		t.Errorf("empty body should decode cleanly, got %v", err)
	}

	req = httptest.NewRequest("POST", "/", strings.NewReader(`{"name":`))
	if err := DecodeJSON(httptest.NewRecorder(), req, &v); !errors.Is(err, ErrBadJSON) {
		t.Errorf("expected ErrBadJSON, got %v", err)
	}
}

func TestOptional(t *testing.T) {
	type patch struct {
		Assignee Optional[string] `json:"assignee"`
		Note     Optional[string] `json:"note"`
		Count    Optional[int]    `json:"count"`
	}

	var p patch
	r := httptest.NewRequest("PATCH", "/", strings.NewReader(`{"assignee": null, "count": 3}`))
	if err := DecodeJSON(httptest.NewRecorder(), r, &p); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if !p.Assignee.Set || p.Assignee.Value != nil {
		t.Errorf("null should be set with nil value, got %+v", p.Assignee)
	}
	if p.Note.Set {
		t.Error("absent field should not be set")
	}
	if !p.Count.Set || p.Count.Value == nil || *p.Count.Value != 3 {
		t.Errorf("count = %+v, want 3", p.Count)
	}
}
