package main

import (
	"testing"
)

func TestDailyTotalCmdFlags(t *testing.T) {
	cmd := newDailyTotalCmd()

	f := cmd.Flags()
	configPath, _ := f.GetString("config")
	if configPath != "ochazuke.yml" {
		t.Errorf("default config = %q, want ochazuke.yml", configPath)
	}

	for _, flag := range []string{"config", "database-url"} {
		if f.Lookup(flag) == nil {
			t.Errorf("missing flag: %s", flag)
		}
	}
}

func TestTimelineCmdFlags(t *testing.T) {
	cmd := newTimelineCmd()
	f := cmd.Flags()

	for _, flag := range []string{"config", "database-url"} {
		if f.Lookup(flag) == nil {
			t.Errorf("missing flag: %s", flag)
		}
	}
}

func TestMigrateCmdFlags(t *testing.T) {
	cmd := newMigrateCmd()

	if cmd.Flags().Lookup("database-url") == nil {
		t.Error("missing flag: database-url")
	}
}
