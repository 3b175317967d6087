package trace

import "testing"

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		in       string
		expected Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{" warn ", LevelWarn},
		{"verbose", LevelVerbose},
		{"nonsense", LevelOff},
		{"", LevelOff},
	}
	for _, tc := range testCases {
		if got := ParseLevel(tc.in); got != tc.expected {
			t.Errorf("ParseLevel(%q) = %v, expected %v", tc.in, got, tc.expected)
		}
	}
}

func TestTracerRecordsEnabledEntries(t *testing.T) {
	tracer := &Tracer{
		level:             LevelDebug,
		enabledComponents: map[Component]bool{ComponentPartition: true},
		maxEntries:        10,
	}

	tracer.Debug(ComponentPartition, "kept", Context("k", 1))
	tracer.Debug(ComponentVFS, "dropped component")
	tracer.Verbose(ComponentPartition, "dropped level")

	entries := tracer.GetEntries()
	if len(entries) != 1 {
		t.Fatalf("recorded %d entries, expected 1", len(entries))
	}
	if entries[0].Message != "kept" {
		t.Errorf("message = %q, expected kept", entries[0].Message)
	}
	if entries[0].Context["k"] != 1 {
		t.Errorf("context = %v, expected k=1", entries[0].Context)
	}

	tracer.Clear()
	if len(tracer.GetEntries()) != 0 {
		t.Error("Clear left entries behind")
	}
}

func TestTracerTrimsToMaxEntries(t *testing.T) {
	tracer := &Tracer{
		level:             LevelError,
		enabledComponents: map[Component]bool{ComponentSplit: true},
		maxEntries:        3,
	}
	for i := 0; i < 10; i++ {
		tracer.Error(ComponentSplit, "entry")
	}
	if got := len(tracer.GetEntries()); got != 3 {
		t.Errorf("kept %d entries, expected 3", got)
	}
}
