package ui

import "testing"

func TestLogLevelRoundTrip(t *testing.T) {
	for _, name := range LogLevelStrings() {
		level, err := LogLevelString(name)
		if err != nil {
			t.Fatalf("LogLevelString(%q): %v", name, err)
		}
		if level.String() != name {
			t.Errorf("level %q round-tripped to %q", name, level.String())
		}
	}

	if _, err := LogLevelString("loud"); err == nil {
		t.Error("expected error for unknown level name")
	}
}

func TestSetLoglevel(t *testing.T) {
	old := GetLoglevel()
	defer SetLoglevel(old)

	SetLoglevel(LevelDebug)
	if GetLoglevel() != LevelDebug {
		t.Errorf("GetLoglevel = %v, want %v", GetLoglevel(), LevelDebug)
	}
}
