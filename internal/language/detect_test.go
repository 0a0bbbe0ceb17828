package language

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"norwegian letter ae", "Jeg er lærer", Norwegian},
		{"norwegian letter oe", "Gjør det nø", Norwegian},
		{"norwegian letter aa", "Går det bra?", Norwegian},
		{"norwegian keyword", "hei, kan du fortelle meg om deg selv?", Norwegian},
		{"norwegian keyword uppercase", "HVORDAN fungerer dette?", Norwegian},
		{"english keyword", "hello, tell me about your work", English},
		{"english keywords only", "what experience do you have", English},
		{"english skills", "please describe your skills", English},
		{"unknown defaults to norwegian", "xyzzy 123", Norwegian},
		{"empty defaults to norwegian", "", Norwegian},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.text); got != tt.want {
				t.Errorf("Detect(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestDetectNorwegianLettersAlwaysWin(t *testing.T) {
	// Norwegian-specific letters dominate even in otherwise English text.
	for _, text := range []string{"hello æ", "what about ø?", "please å"} {
		if got := Detect(text); got != Norwegian {
			t.Errorf("Detect(%q) = %q, want %q", text, got, Norwegian)
		}
	}
}
