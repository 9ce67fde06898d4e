package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewDraftStartsPending(t *testing.T) {
	d := NewDraft(1, Today(), decimal.NewFromInt(10), []OrderLine{{ProductID: 1, Quantity: 1}})
	if d.ID != 0 || d.Status != StatusPending {
		t.Fatalf("unexpected draft %+v", d)
	}
}

func TestOrderValidateCollectsAllProblems(t *testing.T) {
	err := Order{Total: decimal.Zero}.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Problems) != 3 {
		t.Fatalf("expected 3 problems, got %v", verr.Problems)
	}
	if !strings.HasPrefix(verr.Error(), "invalid order: ") {
		t.Fatalf("unexpected message %q", verr.Error())
	}
}

func TestOrderValidateLines(t *testing.T) {
	o := NewDraft(1, Today(), decimal.NewFromInt(5), []OrderLine{{ProductID: 0, Quantity: 0}})
	err := o.Validate()
	if err == nil || !strings.Contains(err.Error(), "line 1: product is required") || !strings.Contains(err.Error(), "line 1: quantity must be positive") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestOrderValidateOK(t *testing.T) {
	o := NewDraft(1, Today(), decimal.NewFromInt(5), []OrderLine{{ProductID: 2, Quantity: 1}})
	if err := o.Validate(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestStatusCancellable(t *testing.T) {
	cases := map[Status]bool{
		StatusPending:    true,
		StatusProcessing: true,
		StatusShipped:    false,
		StatusDelivered:  false,
		StatusCancelled:  false,
	}
	for s, want := range cases {
		if got := s.Cancellable(); got != want {
			t.Fatalf("%s: expected %v, got %v", s, want, got)
		}
	}
	if Status("lost").Valid() {
		t.Fatalf("unknown status reported valid")
	}
}

func TestDateCompareAndJSON(t *testing.T) {
	a := NewDate(2024, 1, 5)
	b, err := ParseDate("2024-01-06")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if a.Compare(b) >= 0 {
		t.Fatalf("expected %s before %s", a, b)
	}
	raw, _ := a.MarshalJSON()
	if string(raw) != `"2024-01-05"` {
		t.Fatalf("unexpected json %s", raw)
	}
	var back Date
	if err := back.UnmarshalJSON(raw); err != nil || back.Compare(a) != 0 {
		t.Fatalf("round trip failed: %v %s", err, back)
	}
}
