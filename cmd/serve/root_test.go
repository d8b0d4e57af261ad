package serve

import (
	"path/filepath"
	"slices"
	"testing"

	cmdUtil "github.com/homenode/distrilock/cmd/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func TestChildArgs(t *testing.T) {
	t.Cleanup(viper.Reset)

	cmd := &cobra.Command{Use: "serve"}
	cmdUtil.SetupServerConfigFlags(cmd)
	cmd.Flags().String("socket", "", "")

	err := cmd.ParseFlags([]string{"--config=conf.toml", "--path-prefix=/mem", "--socket=misc", "--max-workers-per-conn=4"})
	if err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}
	viper.Set("config", "conf.toml")

	args, err := childArgs(cmd)
	if err != nil {
		t.Fatalf("childArgs failed: %v", err)
	}

	if len(args) < 3 || args[0] != "serve" || args[1] != "--config" {
		t.Fatalf("Unexpected arguments %v", args)
	}
	if !filepath.IsAbs(args[2]) || filepath.Base(args[2]) != "conf.toml" {
		t.Errorf("Expected absolute config path, got %s", args[2])
	}
	for _, want := range []string{"--path-prefix=/mem", "--max-workers-per-conn=4"} {
		if !slices.Contains(args, want) {
			t.Errorf("Expected %s in %v", want, args)
		}
	}
	for _, arg := range args[3:] {
		if arg == "--socket=misc" || arg == "--config=conf.toml" {
			t.Errorf("Unexpected argument %s", arg)
		}
	}
}
