package adapter

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorClassification(t *testing.T) {
	base := errors.New("boom")

	terr := Transient("list tasks", base)
	if !IsTransient(terr) || IsPermanent(terr) {
		t.Errorf("Expected transient classification, got %v", terr)
	}
	if !errors.Is(terr, base) {
		t.Error("Transient must unwrap to the cause")
	}

	perr := Permanent("create task", base)
	if !IsPermanent(perr) || IsTransient(perr) {
		t.Errorf("Expected permanent classification, got %v", perr)
	}
	if !errors.Is(perr, base) {
		t.Error("Permanent must unwrap to the cause")
	}
}

func TestClassificationSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("cycle failed: %w", Transient("update", errors.New("timeout")))
	if !IsTransient(err) {
		t.Error("Wrapping must not hide the transient classification")
	}
}

func TestPlainErrorsAreNeither(t *testing.T) {
	err := errors.New("boom")
	if IsTransient(err) || IsPermanent(err) {
		t.Error("Unclassified errors must not match either predicate")
	}
}
