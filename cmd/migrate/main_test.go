package main

import "testing"

func TestStepArg(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    int
		wantErr bool
	}{
		{"defaults when omitted", []string{"down"}, 1, false},
		{"parses a count", []string{"down", "3"}, 3, false},
		{"rejects zero", []string{"down", "0"}, 0, true},
		{"rejects garbage", []string{"down", "all"}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := stepArg(tt.args, 1)
			if (err != nil) != tt.wantErr {
				t.Fatalf("stepArg() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("stepArg() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRun_RequiresCommand(t *testing.T) {
	if err := run(nil); err == nil {
		t.Fatal("expected usage error")
	}
}
