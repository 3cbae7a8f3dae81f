package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/tradeval/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

// t.Setenv lasts for the whole test function, so each env scenario gets its
// own function.

func TestConfigLoader_Defaults(t *testing.T) {
	convey.Convey("When loading config with defaults only", t, func() {
		cfg, err := config.Load(context.Background())

		convey.Convey("Then it should load successfully with defaults", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.MaxProposals, convey.ShouldEqual, 25)
		})
	})
}

func TestConfigLoader_Env(t *testing.T) {
	t.Setenv("TRADEVAL_ADDR", ":8080")
	t.Setenv("TRADEVAL_QUEUE_SIZE", "500")
	t.Setenv("TRADEVAL_FAIRNESS_BAND", "0.08")
	t.Setenv("TRADEVAL_SEED_DEMO_LEAGUE", "false")
	t.Setenv("TRADEVAL_STORE_DRIVER", "sqlite")

	convey.Convey("When loading config with environment variables", t, func() {
		cfg, err := config.Load(context.Background())

		convey.Convey("Then it should override defaults with env vars", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 500)
			convey.So(cfg.FairnessBand, convey.ShouldEqual, 0.08)
			convey.So(cfg.SeedDemoLeague, convey.ShouldBeFalse)
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverSQLite)
		})
	})
}

func TestConfigLoader_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tradeval.yaml")
	yamlContent := `
addr: ":9090"
worker_count: 3
max_side_size: 3
log_format: json
min_calibration_samples: 30
`
	if err := os.WriteFile(path, []byte(yamlContent), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TRADEVAL_CONFIG", path)
	t.Setenv("TRADEVAL_WORKER_COUNT", "5")

	convey.Convey("When loading a YAML file with a partial env override", t, func() {
		cfg, err := config.Load(context.Background())

		convey.Convey("Then env wins over the file and the file over defaults", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 5)
			convey.So(cfg.MaxSideSize, convey.ShouldEqual, 3)
			convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
			convey.So(cfg.MinCalibrationSamples, convey.ShouldEqual, 30)
		})
	})
}

func TestConfigLoader_MissingFile(t *testing.T) {
	t.Setenv("TRADEVAL_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	convey.Convey("When the config file does not exist", t, func() {
		_, err := config.Load(context.Background())

		convey.Convey("Then ErrLoadConfig is returned", func() {
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})
	})
}

func TestConfigLoader_Invalid(t *testing.T) {
	t.Setenv("TRADEVAL_MAX_SIDE_SIZE", "9")

	convey.Convey("When env sets an invalid value", t, func() {
		_, err := config.Load(context.Background())

		convey.Convey("Then ErrInvalidConfig is returned", func() {
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}
