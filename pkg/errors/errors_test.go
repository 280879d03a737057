package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestAsUnwrapsThroughChain(t *testing.T) {
	base := New(CodeInsufficientStock, "variant sold out")
	wrapped := fmt.Errorf("checkout: %w", base)

	typed := As(wrapped)
	if typed == nil {
		t.Fatal("expected typed error")
	}
	if typed.Code() != CodeInsufficientStock {
		t.Fatalf("unexpected code: %s", typed.Code())
	}
}

func TestMetadataForDomainCodes(t *testing.T) {
	cases := map[Code]int{
		CodeInsufficientStock:   http.StatusConflict,
		CodeInvalidVoucher:      http.StatusBadRequest,
		CodeInvalidTransition:   http.StatusUnprocessableEntity,
		CodeMissingShippingRule: http.StatusBadRequest,
		CodeStaleCartSelection:  http.StatusConflict,
		Code("UNKNOWN"):         http.StatusInternalServerError,
	}
	for code, status := range cases {
		if got := MetadataFor(code).HTTPStatus; got != status {
			t.Fatalf("%s: expected %d, got %d", code, status, got)
		}
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("driver gone")
	err := Wrap(CodeDependency, cause, "load shipping rule")
	if err.Unwrap() != cause {
		t.Fatal("expected cause to survive wrapping")
	}
	if As(err).Message() != "load shipping rule" {
		t.Fatalf("unexpected message: %s", err.Message())
	}
}
