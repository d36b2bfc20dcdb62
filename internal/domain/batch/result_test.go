package batch

import (
	"errors"
	"testing"
)

func TestNewOK(t *testing.T) {
	r := NewOK("job-1", 42)
	if r.ID() != "job-1" {
		t.Errorf("ID() = %q", r.ID())
	}
	if r.Status() != StatusOK {
		t.Errorf("Status() = %q, want %q", r.Status(), StatusOK)
	}
	if r.Value() != 42 {
		t.Errorf("Value() = %d", r.Value())
	}
	if r.Err() != nil {
		t.Errorf("Err() = %v, want nil", r.Err())
	}
}

func TestNewPartial(t *testing.T) {
	r := NewPartial("job-1", []string{"c-1"})
	if r.Status() != StatusPartial {
		t.Errorf("Status() = %q, want %q", r.Status(), StatusPartial)
	}
	if len(r.Value()) != 1 {
		t.Errorf("Value() = %v", r.Value())
	}
}

func TestNewError(t *testing.T) {
	err := errors.New("something failed")
	r := NewError[int]("job-2", err)
	if r.ID() != "job-2" {
		t.Errorf("ID() = %q", r.ID())
	}
	if r.Status() != StatusError {
		t.Errorf("Status() = %q, want %q", r.Status(), StatusError)
	}
	if !errors.Is(r.Err(), err) {
		t.Errorf("Err() = %v, want %v", r.Err(), err)
	}
	if r.Value() != 0 {
		t.Errorf("Value() = %d, want zero", r.Value())
	}
}

func TestStatusConstants(t *testing.T) {
	if StatusOK != "ok" {
		t.Errorf("StatusOK = %q", StatusOK)
	}
	if StatusPartial != "partial" {
		t.Errorf("StatusPartial = %q", StatusPartial)
	}
	if StatusError != "error" {
		t.Errorf("StatusError = %q", StatusError)
	}
}
