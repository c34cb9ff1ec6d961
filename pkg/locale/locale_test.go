package locale

import "testing"

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		explicit string
		accept   string
		fallback string
		want     string
	}{
		{"explicit wins", "it", "en-GB", "en", Italian},
		{"regional explicit", "it-IT", "", "en", Italian},
		{"header", "", "it-CH,it;q=0.9,en;q=0.5", "en", Italian},
		{"unsupported header", "", "de-DE", "it", Italian},
		{"garbage explicit", "@@", "", "en", English},
		{"nothing", "", "", "", English},
	}
	for _, tt := range tests {
		if got := Resolve(tt.explicit, tt.accept, tt.fallback); got != tt.want {
			t.Fatalf("%s: expected %s got %s", tt.name, tt.want, got)
		}
	}
}

func TestNormalizeRejectsUnsupported(t *testing.T) {
	if _, ok := Normalize("ja"); ok {
		t.Fatal("japanese should not be supported")
	}
}
