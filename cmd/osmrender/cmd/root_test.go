package cmd

import (
	"bytes"
	"strconv"
	"strings"
	"testing"
)

func TestCommandDefaults(t *testing.T) {
	if cfg == nil {
		t.Fatal("Expected configuration to be loaded before flag setup")
	}

	tests := []struct {
		cmd  string
		flag string
		want string
	}{
		{"render", "workers", strconv.Itoa(cfg.Workers)},
		{"render", "type", typePNGTiles},
		{"serve", "port", "8000"},
		{"", "min-zoom", strconv.Itoa(cfg.MinZoom)},
		{"", "max-zoom", strconv.Itoa(cfg.MaxZoom)},
	}
	for _, tt := range tests {
		t.Run(tt.cmd+"/"+tt.flag, func(t *testing.T) {
			c := rootCmd
			if tt.cmd != "" {
				found, _, err := rootCmd.Find([]string{tt.cmd})
				if err != nil {
					t.Fatalf("Find(%s) failed: %v", tt.cmd, err)
				}
				c = found
			}
			f := c.Flags().Lookup(tt.flag)
			if f == nil {
				f = c.PersistentFlags().Lookup(tt.flag)
			}
			if f == nil {
				t.Fatalf("Expected flag --%s", tt.flag)
			}
			if f.DefValue != tt.want {
				t.Errorf("Expected default %s, got %s", tt.want, f.DefValue)
			}
		})
	}
}

func TestHelp(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"render", "--help"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(out.String(), "--workers") {
		t.Errorf("Expected render usage, got:\n%s", out.String())
	}
}
