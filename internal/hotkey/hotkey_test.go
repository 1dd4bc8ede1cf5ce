package hotkey

import (
	"reflect"
	"testing"
)

func TestNormalizeCombo(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"already canonical", []string{"ctrl", "shift", "space"}, []string{"ctrl", "shift", "space"}},
		{"electron alias", []string{"CommandOrControl", "Shift", "Space"}, []string{"ctrl", "shift", "space"}},
		{"mac aliases", []string{"cmd", "option", "d"}, []string{"ctrl", "alt", "d"}},
		{"super aliases", []string{"super", "space"}, []string{"windows", "space"}},
		{"win alias", []string{"win", "d"}, []string{"windows", "d"}},
		{"drops blanks", []string{" ctrl ", "", "r"}, []string{"ctrl", "r"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeCombo(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeCombo(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseCombo(t *testing.T) {
	got := ParseCombo("CommandOrControl+Shift+Space")
	want := []string{"ctrl", "shift", "space"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseCombo() = %v, want %v", got, want)
	}
}

// The worker's combo grammar buckets "cmd" under ctrl and knows the super key
// only as "windows", so the wire form must never spell super as "cmd".
func TestSuperComboWireForm(t *testing.T) {
	l := NewListener([]string{"super", "space"}, "hold")
	if got := l.Combo(); got != "windows+space" {
		t.Errorf("Combo() = %q, want %q", got, "windows+space")
	}
}

func TestHookKeysMapsSuperForGohook(t *testing.T) {
	got := hookKeys([]string{"windows", "space"})
	want := []string{"cmd", "space"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("hookKeys() = %v, want %v", got, want)
	}
}

func TestListenerCombo(t *testing.T) {
	l := NewListener([]string{"CommandOrControl", "shift", "space"}, "hold")
	if got := l.Combo(); got != "ctrl+shift+space" {
		t.Errorf("Combo() = %q, want %q", got, "ctrl+shift+space")
	}
}
