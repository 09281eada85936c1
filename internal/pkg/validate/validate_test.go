package validate

import "testing"

func TestRequired(t *testing.T) {
	if !Required("a", "b") {
		t.Fatalf("non-blank values should pass")
	}
	if Required("a", "  ") {
		t.Fatalf("blank value should fail")
	}
	if !Required() {
		t.Fatalf("no values is vacuously valid")
	}
}

type mode string

func TestOneOf(t *testing.T) {
	if !OneOf(mode(" JWT "), mode("jwt"), mode("firebase")) {
		t.Fatalf("expected case-insensitive match")
	}
	if OneOf("basic", "jwt", "firebase") {
		t.Fatalf("unexpected match")
	}
}
