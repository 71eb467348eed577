package config_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/okian/valetudo/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.WindowSize, convey.ShouldEqual, 5)
				convey.So(cfg.KFactor, convey.ShouldEqual, 32)
				convey.So(cfg.InitialRating, convey.ShouldEqual, 1500)
				convey.So(cfg.RunTimeout, convey.ShouldEqual, 10*time.Minute)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("VALETUDO_ADDR", ":8080")
			_ = os.Setenv("VALETUDO_DB_PATH", "/tmp/fights.db")
			_ = os.Setenv("VALETUDO_WINDOW_SIZE", "3")
			_ = os.Setenv("VALETUDO_K_FACTOR", "24")
			_ = os.Setenv("VALETUDO_RETRAIN_THRESHOLD", "50")
			_ = os.Setenv("VALETUDO_RUN_TIMEOUT", "5m")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.DBPath, convey.ShouldEqual, "/tmp/fights.db")
				convey.So(cfg.WindowSize, convey.ShouldEqual, 3)
				convey.So(cfg.KFactor, convey.ShouldEqual, 24)
				convey.So(cfg.RetrainThreshold, convey.ShouldEqual, 50)
				convey.So(cfg.RunTimeout, convey.ShouldEqual, 5*time.Minute)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			yamlContent := `
addr: ":9090"
db_path: /var/lib/valetudo/fights.db
window_size: 7
retrain_threshold: 10
sync_schedule: "30 5 * * *"
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("VALETUDO_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from the file and keep defaults elsewhere", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.DBPath, convey.ShouldEqual, "/var/lib/valetudo/fights.db")
				convey.So(cfg.WindowSize, convey.ShouldEqual, 7)
				convey.So(cfg.RetrainThreshold, convey.ShouldEqual, 10)
				convey.So(cfg.SyncSchedule, convey.ShouldEqual, "30 5 * * *")
				convey.So(cfg.KFactor, convey.ShouldEqual, 32)
				convey.So(cfg.InitialRating, convey.ShouldEqual, 1500)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
window_size: 7
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("VALETUDO_CONFIG", tmpFile)
			_ = os.Setenv("VALETUDO_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.WindowSize, convey.ShouldEqual, 7)
			})
		})

		convey.Convey("When loading config with an invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("VALETUDO_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldWrap, config.ErrLoadConfig)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with a non-existent file", func() {
			_ = os.Setenv("VALETUDO_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldWrap, config.ErrLoadConfig)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid values", func() {
			cases := map[string]string{
				"VALETUDO_ADDR":              "",
				"VALETUDO_WINDOW_SIZE":       "0",
				"VALETUDO_K_FACTOR":          "-1",
				"VALETUDO_RETRAIN_THRESHOLD": "-5",
				"VALETUDO_RUN_TIMEOUT":       "0s",
			}
			for key, val := range cases {
				_ = os.Setenv(key, val)
				cfg, err := config.Load(ctx)
				_ = os.Unsetenv(key)

				convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
				convey.So(cfg, convey.ShouldBeNil)
			}
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"VALETUDO_CONFIG",
		"VALETUDO_ADDR",
		"VALETUDO_DB_PATH",
		"VALETUDO_WINDOW_SIZE",
		"VALETUDO_K_FACTOR",
		"VALETUDO_RETRAIN_THRESHOLD",
		"VALETUDO_RUN_TIMEOUT",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "valetudo-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
