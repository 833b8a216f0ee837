package rating_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/rating"
)

var fixedNow = time.Date(2024, 3, 2, 18, 0, 0, 0, time.UTC)

func newEngine(opts ...rating.Option) *rating.Engine {
	n := 0
	base := []rating.Option{
		rating.WithClock(func() time.Time { return fixedNow }),
		rating.WithMatchIDs(func() string { n++; return fmt.Sprintf("m%d", n) }),
	}
	return rating.NewEngine(append(base, opts...)...)
}

// rated registers id with the given rating and win count.
func rated(e *rating.Engine, r model.Roster, id string, value, wins int) *model.Player {
	p := e.Register(r, id)
	p.Rating, p.PeakRating, p.Wins = value, value, wins
	return p
}

func TestDelta(t *testing.T) {
	Convey("Given the default engine", t, func() {
		e := newEngine()

		Convey("When two equal ratings meet", func() {
			d := e.Delta(100, 100)
			So(d.Expected, ShouldAlmostEqual, 0.5)
			So(d.Base, ShouldEqual, 16)
			So(d.Factor, ShouldEqual, 0)
			So(d.Gain, ShouldEqual, 16)
			So(d.Loss, ShouldEqual, 16)
		})

		Convey("When the lower rated player wins", func() {
			d := e.Delta(1000, 1200)
			So(d.Base, ShouldEqual, 25)
			So(d.Factor, ShouldAlmostEqual, 150.0/350.0)
			So(d.Gain, ShouldEqual, 36)
			So(d.Loss, ShouldEqual, 25)
		})

		Convey("When the favourite wins", func() {
			d := e.Delta(1200, 1000)
			So(d.Base, ShouldEqual, 8)
			So(d.Gain, ShouldEqual, 8)
			So(d.Loss, ShouldEqual, 5)
		})

		Convey("When the gap exceeds the disparity range", func() {
			d := e.Delta(2000, 1000)
			So(d.Factor, ShouldEqual, 1)
			So(d.Loss, ShouldEqual, 0)
		})

		Convey("Then expectations of both sides sum to one", func() {
			So(rating.Expected(1320, 1100)+rating.Expected(1100, 1320), ShouldAlmostEqual, 1.0)
		})
	})
}

func TestProcessMatch(t *testing.T) {
	Convey("Given two new players", t, func() {
		e := newEngine()
		r := make(model.Roster)
		e.Register(r, "a")
		e.Register(r, "b")

		Convey("When a beats b", func() {
			res, err := e.ProcessMatch(r, "a", "b", 11, 7)
			So(err, ShouldBeNil)

			Convey("Then the winner gets the base gain plus the new player bonus", func() {
				So(res.Delta.Base, ShouldEqual, 16)
				So(res.EloGain, ShouldEqual, 16)
				So(res.Bonus, ShouldEqual, 5)
				So(res.TotalGain(), ShouldEqual, 21)
				So(res.WinnerAfter, ShouldEqual, 121)
				So(res.LoserAfter, ShouldEqual, 84)
				So(res.MatchID, ShouldEqual, "m1")
			})

			Convey("Then the counters move", func() {
				So(r["a"].Wins, ShouldEqual, 1)
				So(r["b"].Losses, ShouldEqual, 1)
				So(r["a"].Streak, ShouldEqual, 1)
				So(r["b"].Streak, ShouldEqual, 0)
				So(r["a"].AllTimeGain, ShouldEqual, 21)
				So(r["b"].AllTimeLoss, ShouldEqual, 16)
				So(r["a"].PeakRating, ShouldEqual, 121)
				So(r["b"].PeakRating, ShouldEqual, 100)
			})

			Convey("Then head-to-head stays symmetric", func() {
				So(res.HeadToHead, ShouldResemble, model.Record{Wins: 1})
				So(r["b"].HeadToHead["a"], ShouldResemble, model.Record{Losses: 1})
			})

			Convey("Then both histories hold the match", func() {
				So(r["a"].History[0].MatchID, ShouldEqual, "m1")
				So(r["a"].History[0].Score, ShouldEqual, 11)
				So(r["b"].History[0].OpponentRatingAfter, ShouldEqual, 121)
				So(r["b"].History[0].RecordedAt.Equal(fixedNow), ShouldBeTrue)
			})
		})

		Convey("When the same player is on both sides", func() {
			_, err := e.ProcessMatch(r, "a", "a", 0, 0)
			So(errors.Is(err, rating.ErrSamePlayer), ShouldBeTrue)
		})

		Convey("When a player is not registered", func() {
			_, err := e.ProcessMatch(r, "a", "ghost", 0, 0)
			So(errors.Is(err, rating.ErrUnregistered), ShouldBeTrue)
		})

		Convey("When a score is negative", func() {
			_, err := e.ProcessMatch(r, "a", "b", -1, 0)
			So(errors.Is(err, rating.ErrInvalidInput), ShouldBeTrue)
			So(r["a"].Rating, ShouldEqual, 100)
			So(r["a"].History, ShouldBeEmpty)
		})
	})

	Convey("Given an upset between established ratings", t, func() {
		e := newEngine()
		r := make(model.Roster)
		rated(e, r, "low", 1000, 0)
		rated(e, r, "high", 1200, 10)

		res, err := e.ProcessMatch(r, "low", "high", 0, 0)
		So(err, ShouldBeNil)
		So(res.EloGain, ShouldEqual, 36)
		So(res.Bonus, ShouldEqual, 5)
		So(res.WinnerAfter, ShouldEqual, 1041)
		So(res.LoserAfter, ShouldEqual, 1175)
	})

	Convey("Given a favourite past the bonus window", t, func() {
		e := newEngine()
		r := make(model.Roster)
		rated(e, r, "high", 1200, 5)
		rated(e, r, "low", 1000, 0)

		res, err := e.ProcessMatch(r, "high", "low", 0, 0)
		So(err, ShouldBeNil)
		So(res.Bonus, ShouldEqual, 0)
		So(res.WinnerAfter, ShouldEqual, 1208)
		So(res.LoserAfter, ShouldEqual, 995)
	})

	Convey("Given a floor above the loser's post-match rating", t, func() {
		e := newEngine(rating.WithFloor(100))
		r := make(model.Roster)
		e.Register(r, "a")
		e.Register(r, "b")

		res, err := e.ProcessMatch(r, "a", "b", 0, 0)
		So(err, ShouldBeNil)
		So(res.LoserAfter, ShouldEqual, 100)
		So(res.EloLoss, ShouldEqual, 16)
		So(r["b"].AllTimeLoss, ShouldEqual, 16)
	})

	Convey("Given streaks from earlier results", t, func() {
		e := newEngine()
		r := make(model.Roster)
		e.Register(r, "a").Streak = -2
		e.Register(r, "b").Streak = 3

		_, err := e.ProcessMatch(r, "a", "b", 0, 0)
		So(err, ShouldBeNil)
		So(r["a"].Streak, ShouldEqual, 1)
		So(r["b"].Streak, ShouldEqual, 0)

		_, err = e.ProcessMatch(r, "a", "b", 0, 0)
		So(err, ShouldBeNil)
		So(r["a"].Streak, ShouldEqual, 2)
	})

	Convey("Given a short history limit", t, func() {
		e := newEngine(rating.WithHistoryLimit(2))
		r := make(model.Roster)
		e.Register(r, "a")
		e.Register(r, "b")
		for i := 0; i < 3; i++ {
			_, err := e.ProcessMatch(r, "a", "b", 0, 0)
			So(err, ShouldBeNil)
		}
		So(r["a"].History, ShouldHaveLength, 2)
		So(r["a"].History[0].MatchID, ShouldEqual, "m3")
	})
}

func TestSimulate(t *testing.T) {
	Convey("Given two registered players", t, func() {
		e := newEngine()
		r := make(model.Roster)
		e.Register(r, "a")
		e.Register(r, "b")

		p, err := e.Simulate(r, "a", "b")
		So(err, ShouldBeNil)
		So(p.WinnerAfter, ShouldEqual, 121)
		So(p.LoserAfter, ShouldEqual, 84)

		Convey("Then nothing is applied", func() {
			So(r["a"].Rating, ShouldEqual, 100)
			So(r["a"].Wins, ShouldEqual, 0)
			So(r["a"].History, ShouldBeEmpty)
		})
	})
}

func TestProcessDoubles(t *testing.T) {
	Convey("Given four new doubles players", t, func() {
		e := newEngine()
		r := make(model.Roster)
		for _, id := range []string{"a", "b", "c", "d"} {
			e.Register(r, id)
		}

		Convey("When a and b beat c and d", func() {
			res, err := e.ProcessDoubles(r, "a", "b", "c", "d")
			So(err, ShouldBeNil)

			Convey("Then every member moves by the team delta without a bonus", func() {
				So(res.DeltaWin, ShouldEqual, 16)
				So(res.DeltaLoss, ShouldEqual, 16)
				So(res.After, ShouldResemble, map[string]int{"a": 116, "b": 116, "c": 84, "d": 84})
				So(res.Before["a"], ShouldEqual, 100)
				So(r["a"].History, ShouldBeEmpty)
			})

			Convey("Then partnerships are tallied", func() {
				So(r["a"].Partners["b"], ShouldEqual, 1)
				So(r["b"].Partners["a"], ShouldEqual, 1)
				So(r["c"].PartnerLosses["d"], ShouldEqual, 1)
				So(res.WinnerPair, ShouldResemble, model.Record{Wins: 1})
				So(res.LoserPair, ShouldResemble, model.Record{Losses: 1})
			})
		})

		Convey("When a player appears twice", func() {
			_, err := e.ProcessDoubles(r, "a", "b", "c", "a")
			So(errors.Is(err, rating.ErrDuplicatePlayer), ShouldBeTrue)
			So(r["a"].Rating, ShouldEqual, 100)
		})

		Convey("When a player is not registered", func() {
			_, err := e.ProcessDoubles(r, "a", "b", "c", "zed")
			So(errors.Is(err, rating.ErrUnregistered), ShouldBeTrue)
		})
	})

	Convey("Given a floor and a low rated loser", t, func() {
		e := newEngine(rating.WithFloor(90))
		r := make(model.Roster)
		for _, id := range []string{"a", "b", "c", "d"} {
			e.Register(r, id)
		}
		r["d"].Rating = 95

		res, err := e.ProcessDoubles(r, "a", "b", "c", "d")
		So(err, ShouldBeNil)
		So(res.After["d"], ShouldEqual, 90)
	})
}

func TestSetStat(t *testing.T) {
	Convey("Given a registered player", t, func() {
		e := newEngine(rating.WithFloor(50))
		r := make(model.Roster)
		e.Register(r, "a")

		Convey("When the rating is raised", func() {
			c, err := e.SetStat(r, "a", rating.FieldRating, rating.OpAdd, 40)
			So(err, ShouldBeNil)
			So(c.Old, ShouldEqual, 100)
			So(c.New, ShouldEqual, 140)
			So(r["a"].PeakRating, ShouldEqual, 140)
		})

		Convey("When the rating is set below the floor", func() {
			c, err := e.SetStat(r, "a", rating.FieldRating, rating.OpSet, 10)
			So(err, ShouldBeNil)
			So(c.New, ShouldEqual, 50)
		})

		Convey("When wins are subtracted below zero", func() {
			c, err := e.SetStat(r, "a", rating.FieldWins, rating.OpSubtract, 3)
			So(err, ShouldBeNil)
			So(c.New, ShouldEqual, 0)
		})

		Convey("When the streak is set negative", func() {
			c, err := e.SetStat(r, "a", rating.FieldStreak, rating.OpSet, -4)
			So(err, ShouldBeNil)
			So(c.New, ShouldEqual, -4)
		})

		Convey("When the peak is set below the rating", func() {
			c, err := e.SetStat(r, "a", rating.FieldPeakRating, rating.OpSet, 60)
			So(err, ShouldBeNil)
			So(c.New, ShouldEqual, 100)
		})

		Convey("When the peak is negative", func() {
			_, err := e.SetStat(r, "a", rating.FieldPeakRating, rating.OpSet, -1)
			So(errors.Is(err, rating.ErrInvalidInput), ShouldBeTrue)
			So(r["a"].PeakRating, ShouldEqual, 100)
		})

		Convey("When the player is unknown", func() {
			_, err := e.SetStat(r, "ghost", rating.FieldWins, rating.OpSet, 1)
			So(errors.Is(err, rating.ErrUnregistered), ShouldBeTrue)
		})
	})
}

func TestParseFieldAndOp(t *testing.T) {
	Convey("Given admin field and operation names", t, func() {
		for name, want := range map[string]rating.Field{
			"rating": rating.FieldRating, "elo": rating.FieldRating,
			"peak": rating.FieldPeakRating, "Wins": rating.FieldWins,
			"alltimegain": rating.FieldAllTimeGain, "all_time_loss": rating.FieldAllTimeLoss,
		} {
			f, err := rating.ParseField(name)
			So(err, ShouldBeNil)
			So(f, ShouldEqual, want)
		}
		_, err := rating.ParseField("height")
		So(errors.Is(err, rating.ErrInvalidInput), ShouldBeTrue)

		op, err := rating.ParseOp("")
		So(err, ShouldBeNil)
		So(op, ShouldEqual, rating.OpSet)
		op, err = rating.ParseOp("sub")
		So(err, ShouldBeNil)
		So(op.String(), ShouldEqual, "subtract")
		_, err = rating.ParseOp("multiply")
		So(errors.Is(err, rating.ErrInvalidInput), ShouldBeTrue)
	})
}

func TestModifyHeadToHead(t *testing.T) {
	Convey("Given two players with a shared record", t, func() {
		e := newEngine()
		r := make(model.Roster)
		e.Register(r, "a")
		e.Register(r, "b")
		_, err := e.ProcessMatch(r, "a", "b", 0, 0)
		So(err, ShouldBeNil)

		Convey("When a's wins are overridden", func() {
			rec, err := e.ModifyHeadToHead(r, "a", "b", rating.FieldWins, rating.OpAdd, 2)
			So(err, ShouldBeNil)
			So(rec.Wins, ShouldEqual, 3)
			So(r["b"].HeadToHead["a"].Losses, ShouldEqual, 3)
		})

		Convey("When a's losses are set", func() {
			_, err := e.ModifyHeadToHead(r, "a", "b", rating.FieldLosses, rating.OpSet, 2)
			So(err, ShouldBeNil)
			So(r["b"].HeadToHead["a"].Wins, ShouldEqual, 2)
		})

		Convey("When a non head-to-head field is given", func() {
			_, err := e.ModifyHeadToHead(r, "a", "b", rating.FieldRating, rating.OpSet, 2)
			So(errors.Is(err, rating.ErrInvalidInput), ShouldBeTrue)
		})
	})
}

func TestAwardMedal(t *testing.T) {
	Convey("Given a registered player", t, func() {
		e := newEngine()
		r := make(model.Roster)
		e.Register(r, "a")

		m, err := e.AwardMedal(r, "a", "GOLD", " Spring Open ")
		So(err, ShouldBeNil)
		So(m, ShouldResemble, model.Medal{Tier: model.Gold, Title: "Spring Open"})
		So(r["a"].Medals, ShouldHaveLength, 1)

		_, err = e.AwardMedal(r, "a", "bronze", "Open")
		So(errors.Is(err, rating.ErrInvalidInput), ShouldBeTrue)
		_, err = e.AwardMedal(r, "a", model.Silver, "  ")
		So(errors.Is(err, rating.ErrInvalidInput), ShouldBeTrue)
		_, err = e.AwardMedal(r, "ghost", model.Silver, "Open")
		So(errors.Is(err, rating.ErrUnregistered), ShouldBeTrue)
	})
}

func TestParseSetScores(t *testing.T) {
	Convey("Given per-set score lists", t, func() {
		sets, err := rating.ParseSetScores(0, "", "")
		So(err, ShouldBeNil)
		So(sets, ShouldBeNil)

		sets, err = rating.ParseSetScores(2, "11, 11", "9,4")
		So(err, ShouldBeNil)
		So(sets, ShouldResemble, []rating.SetScore{{Winner: 11, Loser: 9}, {Winner: 11, Loser: 4}})

		for _, bad := range []struct {
			count int
			w, l  string
		}{
			{3, "11,11", "9,4"},
			{2, "11,x", "9,4"},
			{2, "11,-1", "9,4"},
			{0, "11", "9"},
			{1, "11", ""},
		} {
			_, err := rating.ParseSetScores(bad.count, bad.w, bad.l)
			So(errors.Is(err, rating.ErrInvalidInput), ShouldBeTrue)
		}
	})
}
