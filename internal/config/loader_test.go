package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/rally/internal/config"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		// Keep a stray .env in the package directory out of the picture.
		_ = os.Setenv("RALLY_ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.StoreBackend, convey.ShouldEqual, "file")
				convey.So(cfg.KFactor, convey.ShouldEqual, 32)
				convey.So(cfg.CORSOrigins, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("RALLY_ADDR", ":8080")
			_ = os.Setenv("RALLY_K_FACTOR", "24")
			_ = os.Setenv("RALLY_RATING_FLOOR", "50")
			_ = os.Setenv("RALLY_STORE_BACKEND", "sqlite")
			_ = os.Setenv("RALLY_CORS_ORIGINS", "https://a.example, https://b.example")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.KFactor, convey.ShouldEqual, 24)
				convey.So(cfg.RatingFloor, convey.ShouldEqual, 50)
				convey.So(cfg.StoreBackend, convey.ShouldEqual, "sqlite")
				convey.So(cfg.CORSOrigins, convey.ShouldResemble, []string{"https://a.example", "https://b.example"})
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			tmpFile := createTempConfigFile(t, `
addr: ":9090"
store_backend: redis
redis_addr: "cache:6379"
redis_db: 2
history_limit: 25
cors_origins:
  - https://league.example
`)
			_ = os.Setenv("RALLY_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file and keep defaults for the rest", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.StoreBackend, convey.ShouldEqual, "redis")
				convey.So(cfg.RedisAddr, convey.ShouldEqual, "cache:6379")
				convey.So(cfg.RedisDB, convey.ShouldEqual, 2)
				convey.So(cfg.HistoryLimit, convey.ShouldEqual, 25)
				convey.So(cfg.CORSOrigins, convey.ShouldResemble, []string{"https://league.example"})
				convey.So(cfg.KFactor, convey.ShouldEqual, 32)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(t, `
addr: ":9090"
history_limit: 25
`)
			_ = os.Setenv("RALLY_CONFIG", tmpFile)
			_ = os.Setenv("RALLY_ADDR", ":8080")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.HistoryLimit, convey.ShouldEqual, 25)
			})
		})

		convey.Convey("When a dotenv file is present", func() {
			dotenv := filepath.Join(t.TempDir(), "rally.env")
			convey.So(os.WriteFile(dotenv, []byte("RALLY_ADDR=:7070\nRALLY_DEDUPE_SIZE=42\n"), 0o600), convey.ShouldBeNil)
			_ = os.Setenv("RALLY_ENV_FILE", dotenv)
			_ = os.Setenv("RALLY_DEDUPE_SIZE", "99")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it fills unset variables without overriding set ones", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 99)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(t, `invalid: yaml: content: [`)
			_ = os.Setenv("RALLY_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("RALLY_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("RALLY_ADDR", "")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("RALLY_K_FACTOR", "steep")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the rating settings are inconsistent", func() {
			_ = os.Setenv("RALLY_DISPARITY_MIN", "400")
			_ = os.Setenv("RALLY_DISPARITY_MAX", "50")

			_, err := config.Load(ctx)

			convey.Convey("Then validation rejects them", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"RALLY_CONFIG",
		"RALLY_ENV_FILE",
		"RALLY_ADDR",
		"RALLY_K_FACTOR",
		"RALLY_RATING_FLOOR",
		"RALLY_STORE_BACKEND",
		"RALLY_CORS_ORIGINS",
		"RALLY_DEDUPE_SIZE",
		"RALLY_DISPARITY_MIN",
		"RALLY_DISPARITY_MAX",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "rally-config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
