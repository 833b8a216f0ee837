package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/rally/internal/adapters/repository"
	"github.com/okian/rally/internal/config"
	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/pkg/logger"
	"github.com/okian/rally/pkg/metrics"
)

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		ctx := context.Background()
		_ = os.Setenv(config.EnvDotenvFile, filepath.Join(t.TempDir(), "absent.env"))
		_ = os.Setenv("RALLY_STORE_BACKEND", "memory")
		_ = os.Setenv("RALLY_ADDR", ":8080")
		defer func() {
			_ = os.Unsetenv(config.EnvDotenvFile)
			_ = os.Unsetenv("RALLY_STORE_BACKEND")
			_ = os.Unsetenv("RALLY_ADDR")
		}()

		convey.Convey("When configuration is loaded", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then the environment is applied", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.StoreBackend, convey.ShouldEqual, "memory")
			})
		})

		convey.Convey("When the full stack is wired", func() {
			cfg, err := config.Load(ctx)
			convey.So(err, convey.ShouldBeNil)

			stores, err := repository.Open(ctx, cfg.RepositorySettings(), nil)
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = stores.Close() }()

			svc := newService(cfg, stores, logger.Nop())
			ts := httptest.NewServer(newHandler(cfg, svc, logger.Nop()))
			defer ts.Close()

			convey.Convey("Then a match posted over HTTP is ranked", func() {
				resp, err := http.Post(ts.URL+"/matches", "application/json",
					strings.NewReader(`{"winner_id":"alice","loser_id":"bob"}`))
				convey.So(err, convey.ShouldBeNil)
				_ = resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)

				board, err := svc.Leaderboard(ctx, model.Singles, 10)
				convey.So(err, convey.ShouldBeNil)
				convey.So(board, convey.ShouldHaveLength, 2)
				convey.So(board[0].PlayerID, convey.ShouldEqual, "alice")
				convey.So(board[0].Rating, convey.ShouldEqual, 121)
			})

			convey.Convey("Then the health endpoint answers", func() {
				resp, err := http.Get(ts.URL + "/healthz")
				convey.So(err, convey.ShouldBeNil)
				_ = resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			})

			convey.Convey("Then the service metrics update reads both ladders", func() {
				convey.So(func() { updateServiceMetrics(ctx, svc) }, convey.ShouldNotPanic)
			})
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When the metrics updaters run until their context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		})

		convey.Convey("When system metrics are updated", func() {
			convey.So(func() { updateSystemMetrics() }, convey.ShouldNotPanic)
		})

		convey.Convey("When a metrics manager uses its own registry", func() {
			manager := metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
			convey.So(manager, convey.ShouldNotBeNil)
		})
	})
}

func TestMainApplicationErrorHandling(t *testing.T) {
	convey.Convey("Given an invalid configuration", t, func() {
		_ = os.Setenv(config.EnvDotenvFile, filepath.Join(t.TempDir(), "absent.env"))
		_ = os.Setenv("RALLY_STORE_BACKEND", "etcd")
		defer func() {
			_ = os.Unsetenv(config.EnvDotenvFile)
			_ = os.Unsetenv("RALLY_STORE_BACKEND")
		}()

		convey.Convey("Then run refuses to start", func() {
			err := run(context.Background(), logger.Nop())
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
