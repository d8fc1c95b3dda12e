package oberr

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

func TestNewDefaults(t *testing.T) {
	e := New(CodeServer, "ingest", "req-9", "upstream exploded")
	if !e.Retryable {
		t.Error("server errors should default to retryable")
	}
	if e.RequestID != "req-9" {
		t.Errorf("RequestID = %q", e.RequestID)
	}

	v := New(CodeValidation, "query", "", "bad limit")
	if v.Retryable {
		t.Error("validation errors must not be retryable")
	}
	if v.RequestID == "" {
		t.Error("request id must be synthesized when empty")
	}
}

func TestRewrap(t *testing.T) {
	inner := New(CodeServer, "query", "req-1", "search failed")
	inner.HTTPStatus = 502

	outer := inner.Rewrap("correlate")

	if outer == inner {
		t.Fatal("Rewrap must return a new instance")
	}
	if inner.Context.Operation != "query" || inner.Context.OriginalOperation != "" {
		t.Errorf("original mutated: %+v", inner.Context)
	}
	if outer.Context.Operation != "correlate" {
		t.Errorf("Operation = %q, want correlate", outer.Context.Operation)
	}
	if outer.Context.OriginalOperation != "query" {
		t.Errorf("OriginalOperation = %q, want query", outer.Context.OriginalOperation)
	}
	if want := []string{"query", "correlate"}; !reflect.DeepEqual(outer.Context.OperationChain, want) {
		t.Errorf("OperationChain = %v, want %v", outer.Context.OperationChain, want)
	}
	if outer.HTTPStatus != 502 || outer.Code != CodeServer || outer.RequestID != "req-1" {
		t.Errorf("fields not preserved: %+v", outer)
	}
}

func TestRewrapTwice(t *testing.T) {
	e := New(CodeNetwork, "a", "r", "down").Rewrap("b").Rewrap("c")
	if e.Context.OriginalOperation != "a" {
		t.Errorf("OriginalOperation = %q, want a", e.Context.OriginalOperation)
	}
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(e.Context.OperationChain, want) {
		t.Errorf("OperationChain = %v, want %v", e.Context.OperationChain, want)
	}
}

func TestAsThroughWrapping(t *testing.T) {
	typed := Validation("cleanup", "req-4", "retention days out of range")
	wrapped := fmt.Errorf("cleanup stream: %w", typed)

	got, ok := As(wrapped)
	if !ok {
		t.Fatal("As failed to find typed error")
	}
	if got.Code != CodeValidation {
		t.Errorf("Code = %v", got.Code)
	}

	if _, ok := As(errors.New("plain")); ok {
		t.Error("As matched a plain error")
	}
	if _, ok := As(nil); ok {
		t.Error("As matched nil")
	}
}
