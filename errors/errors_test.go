package errors

import (
	"reflect"
	"testing"
)

func TestWrapRoot(t *testing.T) {
	root := New("boom")
	err := Wrap(root, "context")
	if got := Root(err); got != root {
		t.Errorf("Root(%v) = %v, want %v", err, got, root)
	}
	if got, want := err.Error(), "context: boom"; got != want {
		t.Errorf("err.Error() = %q, want %q", got, want)
	}
}

func TestWrapNil(t *testing.T) {
	if err := Wrap(nil, "context"); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}
}

func TestSub(t *testing.T) {
	sentinel := New("sentinel")
	inner := New("inner detail")
	err := Sub(sentinel, inner)
	if got := Root(err); got != sentinel {
		t.Errorf("Root = %v, want %v", got, sentinel)
	}
	if got, want := err.Error(), "inner detail"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestWithData(t *testing.T) {
	err := New("boom")
	err = WithData(err, "a", 1)
	err = WithData(err, "b", 2)
	want := map[string]interface{}{"a": 1, "b": 2}
	if got := Data(err); !reflect.DeepEqual(got, want) {
		t.Errorf("Data = %v, want %v", got, want)
	}
	if got := Root(err); got.Error() != "boom" {
		t.Errorf("Root = %v, want boom", got)
	}
}
