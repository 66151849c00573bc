package validation

import "testing"

func TestValidateRequired(t *testing.T) {
	type req struct {
		Devid uint32 `validate:"required"`
	}

	v := NewValidator()

	if err := v.Validate(req{Devid: 0}); err == nil {
		t.Fatal("expected error for zero-value required field")
	}
	if err := v.Validate(req{Devid: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateLen(t *testing.T) {
	type req struct {
		Key string `validate:"required,len=32"`
	}

	v := NewValidator()

	if err := v.Validate(req{Key: "abcd"}); err == nil {
		t.Fatal("expected error for wrong-length key")
	}
	if err := v.Validate(req{Key: "00000000000000000000000000000000"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateOneof(t *testing.T) {
	type req struct {
		Mode string `validate:"required,oneof=seqnum lfsr_seed"`
	}

	v := NewValidator()

	if err := v.Validate(req{Mode: "bogus"}); err == nil {
		t.Fatal("expected error for value outside oneof set")
	}
	if err := v.Validate(req{Mode: "lfsr_seed"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateOmitempty(t *testing.T) {
	type req struct {
		Key string `validate:"omitempty,len=32"`
	}

	v := NewValidator()

	if err := v.Validate(req{Key: ""}); err != nil {
		t.Fatalf("omitempty should skip validation on zero value: %v", err)
	}
	if err := v.Validate(req{Key: "short"}); err == nil {
		t.Fatal("expected error for non-empty value failing len")
	}
}
