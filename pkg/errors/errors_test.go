package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestWrap(t *testing.T) {
	if Wrap(nil, "msg") != nil {
		t.Error("Wrap(nil, msg) should return nil")
	}
	err := errors.New("base")
	wrapped := Wrap(err, "write chunk")
	if wrapped == nil {
		t.Fatal("Wrap(err, msg) should not return nil")
	}
	if !errors.Is(wrapped, err) {
		t.Error("wrapped error should unwrap to base")
	}
	if wrapped.Error() != "write chunk: base" {
		t.Errorf("Wrap message: got %q", wrapped.Error())
	}
}

func TestWrapf(t *testing.T) {
	if Wrapf(nil, "format %s", "x") != nil {
		t.Error("Wrapf(nil, ...) should return nil")
	}
	err := errors.New("base")
	wrapped := Wrapf(err, "document=%s", "d1")
	if !errors.Is(wrapped, err) {
		t.Error("wrapped error should unwrap to base")
	}
	if !strings.HasPrefix(wrapped.Error(), "document=d1") {
		t.Errorf("Wrapf message: got %q", wrapped.Error())
	}
}

func TestConfigf(t *testing.T) {
	err := Configf("overlap %d >= chunk_size %d", 200, 100)
	if !errors.Is(err, ErrConfig) {
		t.Error("Configf should be Is ErrConfig")
	}
	if errors.Is(err, ErrInvalidArg) {
		t.Error("Configf should not be Is ErrInvalidArg")
	}
	if !strings.Contains(err.Error(), "overlap 200 >= chunk_size 100") {
		t.Errorf("Configf message: got %q", err.Error())
	}
}

func TestInvalidArgf(t *testing.T) {
	err := InvalidArgf("client_id is required")
	if !errors.Is(err, ErrInvalidArg) {
		t.Error("InvalidArgf should be Is ErrInvalidArg")
	}
}
