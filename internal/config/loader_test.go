package config_test

import (
	"context"
	"os"
	"testing"

	"github.com/pubtrivia/tally/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func clearConfigEnvVars() {
	for _, key := range []string{
		"TALLY_CONFIG",
		"TALLY_ADDR",
		"TALLY_LOG_LEVEL",
		"TALLY_STORE_BACKEND",
		"TALLY_SQLITE_PATH",
		"TALLY_REQUIRED_PROVIDER",
		"TALLY_MAX_STANDINGS_LIMIT",
		"TALLY_WATCH_BUFFER_SIZE",
		"TALLY_BRACKET_SIZE",
	} {
		_ = os.Unsetenv(key)
	}
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.StoreBackend, convey.ShouldEqual, "memory")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			clearConfigEnvVars()
			_ = os.Setenv("TALLY_ADDR", ":8080")
			_ = os.Setenv("TALLY_STORE_BACKEND", "sqlite")
			_ = os.Setenv("TALLY_SQLITE_PATH", "test.db")
			_ = os.Setenv("TALLY_MAX_STANDINGS_LIMIT", "50")

			cfg, err := config.Load(ctx)

			convey.Convey("Then env values should take precedence", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.StoreBackend, convey.ShouldEqual, "sqlite")
				convey.So(cfg.SQLitePath, convey.ShouldEqual, "test.db")
				convey.So(cfg.MaxStandingsLimit, convey.ShouldEqual, 50)
			})

			clearConfigEnvVars()
		})

		convey.Convey("When the store backend is unknown", func() {
			clearConfigEnvVars()
			_ = os.Setenv("TALLY_STORE_BACKEND", "etcd")

			cfg, err := config.Load(ctx)

			convey.Convey("Then loading should fail with ErrInvalidConfig", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
			})

			clearConfigEnvVars()
		})

		convey.Convey("When the bracket size is not a power of two", func() {
			clearConfigEnvVars()
			_ = os.Setenv("TALLY_BRACKET_SIZE", "24")

			cfg, err := config.Load(ctx)

			convey.Convey("Then loading should fail", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
			})

			clearConfigEnvVars()
		})
	})
}
