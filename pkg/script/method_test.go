package script

import "testing"

func TestMethodInvoke(t *testing.T) {
	var got string
	m := NewMethod(func(s string) bool {
		got = s
		return true
	})

	if m.Kind() != KindString {
		t.Fatalf("Kind() = %v", m.Kind())
	}
	if !m.Invoke(StringValue("hello")) {
		t.Fatal("Invoke() = false")
	}
	if got != "hello" {
		t.Errorf("got = %q", got)
	}
	if m.Invoke(IntValue(3)) {
		t.Error("Invoke with wrong kind should fail")
	}
}

func TestMethodReturnValue(t *testing.T) {
	m := NewMethod(func(i int64) bool { return i > 0 })
	if m.Invoke(IntValue(-1)) {
		t.Error("Invoke should pass through false")
	}
	if !m.Invoke(IntValue(1)) {
		t.Error("Invoke should pass through true")
	}
}

func TestActionIgnoresParameter(t *testing.T) {
	calls := 0
	m := NewAction(func() bool {
		calls++
		return true
	})
	for _, param := range []Value{{}, BoolValue(true), ColorValue(1, 1, 1)} {
		if !m.Invoke(param) {
			t.Errorf("Invoke(%v) = false", param)
		}
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestMethodPanicIsContained(t *testing.T) {
	m := NewMethod(func(bool) bool { panic("boom") })
	if m.Invoke(BoolValue(true)) {
		t.Error("panicking method should report false")
	}
	if NewMethod[bool](nil) != nil || NewAction(nil) != nil {
		t.Error("nil callables should return nil")
	}
}
