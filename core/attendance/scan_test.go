package attendance

import (
	"testing"
	"time"
)

func TestAssemblerEmitsBurst(t *testing.T) {
	asm := NewAssembler("kiosk", DefaultScanGapThreshold)
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	for _, key := range []string{"1", "2", "3"} {
		if _, ok := asm.Key(key, at); ok {
			t.Fatalf("Key(%q) emitted a token before Enter", key)
		}
		at = at.Add(20 * time.Millisecond)
	}

	token, ok := asm.Key("Enter", at)
	if !ok {
		t.Fatal("Key(Enter) did not emit a token")
	}
	if token.Raw != "123" {
		t.Errorf("token.Raw = %q, want %q", token.Raw, "123")
	}
	if token.Surface != "kiosk" {
		t.Errorf("token.Surface = %q, want %q", token.Surface, "kiosk")
	}
	if !token.At.Equal(at) {
		t.Errorf("token.At = %v, want %v", token.At, at)
	}
}

func TestAssemblerGapResetsBuffer(t *testing.T) {
	asm := NewAssembler("dashboard", 100*time.Millisecond)
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	asm.Key("9", at)
	asm.Key("9", at.Add(50*time.Millisecond))

	// a human typing resumes long after the reader burst would have
	at = at.Add(2 * time.Second)
	asm.Key("4", at)
	asm.Key("2", at.Add(30*time.Millisecond))

	token, ok := asm.Key("Enter", at.Add(60*time.Millisecond))
	if !ok {
		t.Fatal("Key(Enter) did not emit a token")
	}
	if token.Raw != "42" {
		t.Errorf("token.Raw = %q, want %q (stale digits must be dropped)", token.Raw, "42")
	}
}

func TestAssemblerIgnoresNonDigitKeys(t *testing.T) {
	asm := NewAssembler("kiosk", DefaultScanGapThreshold)
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	asm.Key("5", at)
	for i, key := range []string{"Shift", "Tab", "a", "ArrowDown"} {
		if _, ok := asm.Key(key, at.Add(time.Duration(i+1)*10*time.Millisecond)); ok {
			t.Fatalf("Key(%q) emitted a token", key)
		}
	}
	asm.Key("7", at.Add(50*time.Millisecond))

	token, ok := asm.Key("Enter", at.Add(60*time.Millisecond))
	if !ok {
		t.Fatal("Key(Enter) did not emit a token")
	}
	if token.Raw != "57" {
		t.Errorf("token.Raw = %q, want %q (non-digit keys must not clear the buffer)", token.Raw, "57")
	}
}

func TestAssemblerEnterOnEmptyBuffer(t *testing.T) {
	asm := NewAssembler("kiosk", DefaultScanGapThreshold)
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	if _, ok := asm.Key("Enter", at); ok {
		t.Error("Key(Enter) on an empty buffer emitted a token")
	}

	// buffer is consumed on emission; a second Enter yields nothing
	asm.Key("1", at)
	if _, ok := asm.Key("Enter", at.Add(10*time.Millisecond)); !ok {
		t.Fatal("Key(Enter) did not emit a token")
	}
	if _, ok := asm.Key("Enter", at.Add(20*time.Millisecond)); ok {
		t.Error("second Key(Enter) re-emitted a consumed buffer")
	}
}

func TestAssemblerSurfacesAreIndependent(t *testing.T) {
	kiosk := NewAssembler("kiosk", DefaultScanGapThreshold)
	dash := NewAssembler("dashboard", DefaultScanGapThreshold)
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	kiosk.Key("1", at)
	dash.Key("2", at.Add(5*time.Millisecond))
	kiosk.Key("1", at.Add(10*time.Millisecond))
	dash.Key("2", at.Add(15*time.Millisecond))

	kioskToken, ok := kiosk.Key("Enter", at.Add(20*time.Millisecond))
	if !ok || kioskToken.Raw != "11" {
		t.Errorf("kiosk token = %q (%v), want %q", kioskToken.Raw, ok, "11")
	}
	dashToken, ok := dash.Key("Enter", at.Add(25*time.Millisecond))
	if !ok || dashToken.Raw != "22" {
		t.Errorf("dashboard token = %q (%v), want %q", dashToken.Raw, ok, "22")
	}
}
