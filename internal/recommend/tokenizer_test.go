package recommend

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", []string{}},
		{"whitespace only", "   \t\n", []string{}},
		{"punctuation only", "?!... ---", []string{}},
		{"lowercase and stop words", "Cannot connect to WiFi!!!  Network", []string{"cannot", "connect", "wifi", "network"}},
		{"punctuation becomes space", "error:code42,timeout", []string{"error", "code42", "timeout"}},
		{"underscore splits", "foo_bar", []string{"foo", "bar"}},
		{"short tokens dropped", "my pc is ok", []string{}},
		{"function words dropped", "the printer is on fire", []string{"printer", "fire"}},
		{"full width folded", "ＷＩＦＩ　router", []string{"wifi", "router"}},
		{"repeats kept", "reset reset password", []string{"reset", "reset", "password"}},
		{"combining marks kept", "कंप्यूटर धीमा!", []string{"कंप्यूटर", "धीमा"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			if got == nil {
				t.Fatal("Normalize returned nil, want empty slice")
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Normalize(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	in := "VPN keeps dropping; I can't reach the intranet (error 809)"
	first := Normalize(in)
	for i := 0; i < 10; i++ {
		if got := Normalize(in); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: %v != %v", i, got, first)
		}
	}
}

func TestIsStopWord(t *testing.T) {
	for _, w := range []string{"the", "with", "they", "were"} {
		if !IsStopWord(w) {
			t.Errorf("IsStopWord(%q) = false, want true", w)
		}
	}
	for _, w := range []string{"router", "password", "cannot"} {
		if IsStopWord(w) {
			t.Errorf("IsStopWord(%q) = true, want false", w)
		}
	}
}
