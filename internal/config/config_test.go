package config_test

import (
	"context"
	"errors"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/rally/internal/config"
	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/rating"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.StoreBackend, convey.ShouldEqual, "file")
			convey.So(cfg.KFactor, convey.ShouldEqual, 32)
			convey.So(cfg.StartingRating, convey.ShouldEqual, 100)
			convey.So(cfg.HistoryLimit, convey.ShouldEqual, 10)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the engine options reproduce the defaults", func() {
			e := rating.NewEngine(cfg.EngineOptions()...)
			roster := make(model.Roster)
			e.Register(roster, "a")
			e.Register(roster, "b")
			res, err := e.ProcessMatch(roster, "a", "b", 0, 0)
			convey.So(err, convey.ShouldBeNil)
			convey.So(res.WinnerAfter, convey.ShouldEqual, 121)
			convey.So(res.LoserAfter, convey.ShouldEqual, 84)
		})

		convey.Convey("Then the repository settings follow the store keys", func() {
			cfg.StoreBackend = "redis"
			cfg.RedisDB = 3
			s := cfg.RepositorySettings()
			convey.So(s.Backend, convey.ShouldEqual, "redis")
			convey.So(s.Redis.Address, convey.ShouldEqual, "localhost:6379")
			convey.So(s.Redis.DB, convey.ShouldEqual, 3)
			convey.So(s.RedisPrefix, convey.ShouldEqual, "rally")
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a valid config", t, func() {
		cfg := config.New(context.Background())

		cases := []struct {
			name    string
			breakIt func(*config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = "" }},
			{"unknown log level", func(c *config.Config) { c.LogLevel = "chatty" }},
			{"zero k factor", func(c *config.Config) { c.KFactor = 0 }},
			{"negative floor", func(c *config.Config) { c.RatingFloor = -1 }},
			{"start below floor", func(c *config.Config) { c.RatingFloor = 200 }},
			{"inverted disparity", func(c *config.Config) { c.DisparityMin, c.DisparityMax = 400, 50 }},
			{"negative bonus", func(c *config.Config) { c.NewPlayerBonus = -5 }},
			{"zero history limit", func(c *config.Config) { c.HistoryLimit = 0 }},
			{"zero listing limit", func(c *config.Config) { c.MaxLeaderboardLimit = 0 }},
			{"zero dedupe size", func(c *config.Config) { c.DedupeSize = 0 }},
			{"unknown backend", func(c *config.Config) { c.StoreBackend = "etcd" }},
			{"sqlite without a path", func(c *config.Config) { c.StoreBackend, c.SQLitePath = "sqlite", "" }},
			{"redis without an addr", func(c *config.Config) { c.StoreBackend, c.RedisAddr = "redis", "" }},
		}
		for _, tc := range cases {
			convey.Convey("When it has "+tc.name, func() {
				tc.breakIt(cfg)
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}

		convey.Convey("When the memory backend is selected", func() {
			cfg.StoreBackend = "memory"
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
