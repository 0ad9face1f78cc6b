package main

import "testing"

func TestAdminAddrFlag(t *testing.T) {
	cases := []struct {
		args []string
		want string
	}{
		{nil, "localhost:8082"},
		{[]string{"-admin-addr=localhost:9999"}, "localhost:9999"},
		{[]string{"-admin-addr=10.0.0.5:8082", "extra"}, "10.0.0.5:8082"},
	}
	for _, c := range cases {
		if got := adminAddrFlag(c.args); got != c.want {
			t.Errorf("adminAddrFlag(%v) = %q, want %q", c.args, got, c.want)
		}
	}
}

func TestRunCLIUnknownSubcommandReturnsFalse(t *testing.T) {
	if RunCLI([]string{"bogus"}) {
		t.Error("expected RunCLI to return false for an unknown subcommand")
	}
	if RunCLI(nil) {
		t.Error("expected RunCLI to return false for no args")
	}
}
