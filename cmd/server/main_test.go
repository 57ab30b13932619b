package main

import "testing"

func TestParsePort(t *testing.T) {
	cases := map[string]bool{
		"8888":  true,
		"1":     true,
		"65535": true,
		"0":     false,
		"65536": false,
		"-1":    false,
		"http":  false,
	}
	for arg, ok := range cases {
		_, err := parsePort(arg)
		if (err == nil) != ok {
			t.Fatalf("parsePort(%q) err=%v, want ok=%v", arg, err, ok)
		}
	}
}

func TestRootRejectsExtraArgs(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"1", "2"})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for two positional args")
	}
}
