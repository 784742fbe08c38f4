package rubric_test

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/qacenter/qacenter/core/rubric"
)

func seed(ch rubric.Channel) rubric.Instance {
	inst, err := rubric.Seed(ch)
	if err != nil {
		panic(err)
	}
	return inst
}

func randomInstance(rnd *rand.Rand, n int) rubric.Instance {
	inst := rubric.Instance{Channel: rubric.ChannelCall}
	for i := 0; i < n; i++ {
		inst.Entries = append(inst.Entries, rubric.Entry{
			ItemID: string(rune('a' + i)),
			Label:  "item",
			Weight: float64(rnd.Intn(101)),
			Grade:  rubric.Grades[rnd.Intn(len(rubric.Grades))],
		})
	}
	return inst
}

func TestCatalog(t *testing.T) {
	Convey("Given the rubric catalogs", t, func() {
		Convey("The call catalog has 9 items summing to 100", func() {
			items, err := rubric.Catalog(rubric.ChannelCall)
			So(err, ShouldBeNil)
			So(items, ShouldHaveLength, 9)
			So(seed(rubric.ChannelCall).TotalWeight(), ShouldEqual, 100)
		})

		Convey("The chat catalog has 8 items summing to 100", func() {
			items, err := rubric.Catalog(rubric.ChannelChat)
			So(err, ShouldBeNil)
			So(items, ShouldHaveLength, 8)
			So(seed(rubric.ChannelChat).TotalWeight(), ShouldEqual, 100)
		})

		Convey("Mutating a returned catalog does not leak into the next call", func() {
			items, _ := rubric.Catalog(rubric.ChannelCall)
			items[0].Weight = 99
			again, _ := rubric.Catalog(rubric.ChannelCall)
			So(again[0].Weight, ShouldEqual, 5)
		})

		Convey("An unknown channel is rejected", func() {
			_, err := rubric.Catalog("email")
			So(errors.Cause(err), ShouldEqual, rubric.ErrInvalidChannel)
			_, err = rubric.ParseChannel("email")
			So(errors.Cause(err), ShouldEqual, rubric.ErrInvalidChannel)
		})

		Convey("CatalogItem finds items by id", func() {
			it, ok := rubric.CatalogItem(rubric.ChannelChat, "greeting_brand")
			So(ok, ShouldBeTrue)
			So(it.Weight, ShouldEqual, 8)
			_, ok = rubric.CatalogItem(rubric.ChannelCall, "greeting_brand")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestSeed(t *testing.T) {
	Convey("Given a seeded chat instance", t, func() {
		inst := seed(rubric.ChannelChat)

		Convey("Every grade defaults to yes and the score is 100", func() {
			for _, e := range inst.Entries {
				So(e.Grade, ShouldEqual, rubric.GradeYes)
			}
			So(inst.Score(), ShouldEqual, 100)
		})

		Convey("Switching channel seeds a fresh instance from the other catalog", func() {
			So(inst.SetGrade("solution", rubric.GradeNo), ShouldBeNil)
			call := seed(rubric.ChannelCall)
			So(call.Channel, ShouldEqual, rubric.ChannelCall)
			So(call.Entries, ShouldHaveLength, 9)
			So(call.Score(), ShouldEqual, 100)
		})
	})
}

func TestInstanceMutators(t *testing.T) {
	Convey("Given a seeded call instance", t, func() {
		inst := seed(rubric.ChannelCall)

		Convey("SetWeight rejects out of range weights and unknown items", func() {
			So(errors.Cause(inst.SetWeight("solution", -1)), ShouldEqual, rubric.ErrInvalidWeight)
			So(errors.Cause(inst.SetWeight("solution", 10.555)), ShouldEqual, rubric.ErrWeightDecimals)
			So(errors.Cause(inst.SetWeight("solution", 100.5)), ShouldEqual, rubric.ErrInvalidWeight)
			So(errors.Cause(inst.SetWeight("nope", 10)), ShouldEqual, rubric.ErrUnknownItem)
			So(inst.SetWeight("solution", 50), ShouldBeNil)
			So(inst.TotalWeight(), ShouldEqual, 125)
		})

		Convey("SetGrade rejects invalid grades", func() {
			So(errors.Cause(inst.SetGrade("solution", "maybe")), ShouldEqual, rubric.ErrInvalidGrade)
			So(inst.SetGrade("solution", rubric.GradePartial), ShouldBeNil)
			So(inst.Score(), ShouldEqual, 87.5)
		})

		Convey("SetNotes keeps notes on the entry", func() {
			So(inst.SetNotes("recap", "skipped the recap"), ShouldBeNil)
			So(inst.Entries[6].Notes, ShouldEqual, "skipped the recap")
		})
	})
}

func TestScore(t *testing.T) {
	Convey("Given the scoring engine", t, func() {
		rnd := rand.New(rand.NewSource(42))

		Convey("All weights zeroed scores 0", func() {
			inst := seed(rubric.ChannelCall)
			for _, e := range inst.Entries {
				So(inst.SetWeight(e.ItemID, 0), ShouldBeNil)
			}
			So(inst.Score(), ShouldEqual, 0)
			So(rubric.Score(rubric.Instance{}), ShouldEqual, 0)
		})

		Convey("All yes scores 100 and all no scores 0", func() {
			for i := 0; i < 200; i++ {
				inst := randomInstance(rnd, 1+rnd.Intn(10))
				inst.Entries[0].Weight++
				for j := range inst.Entries {
					inst.Entries[j].Grade = rubric.GradeYes
				}
				So(inst.Score(), ShouldEqual, 100)
				for j := range inst.Entries {
					inst.Entries[j].Grade = rubric.GradeNo
				}
				So(inst.Score(), ShouldEqual, 0)
			}
		})

		Convey("Improving a single grade never lowers the score", func() {
			for i := 0; i < 200; i++ {
				inst := randomInstance(rnd, 1+rnd.Intn(10))
				idx := rnd.Intn(len(inst.Entries))
				prev := -1.0
				for _, g := range rubric.Grades {
					inst.Entries[idx].Grade = g
					score := inst.Score()
					So(score, ShouldBeGreaterThanOrEqualTo, prev)
					prev = score
				}
			}
		})

		Convey("Call rubric with solution partial and recap no scores 77.5", func() {
			inst := seed(rubric.ChannelCall)
			So(inst.SetGrade("solution", rubric.GradePartial), ShouldBeNil)
			So(inst.SetGrade("recap", rubric.GradeNo), ShouldBeNil)
			So(inst.Score(), ShouldEqual, 77.5)
		})

		Convey("Scores are rounded half-up to one decimal", func() {
			inst := rubric.Instance{Channel: rubric.ChannelChat, Entries: []rubric.Entry{
				{ItemID: "a", Weight: 1, Grade: rubric.GradeYes},
				{ItemID: "b", Weight: 1, Grade: rubric.GradeYes},
				{ItemID: "c", Weight: 1, Grade: rubric.GradeNo},
			}}
			So(inst.Score(), ShouldEqual, 66.7)

			inst.Entries = []rubric.Entry{
				{ItemID: "a", Weight: 3, Grade: rubric.GradePartial},
				{ItemID: "b", Weight: 5, Grade: rubric.GradeYes},
				{ItemID: "c", Weight: 12, Grade: rubric.GradeNo},
			}
			So(inst.Score(), ShouldEqual, 32.5)
		})
	})
}

func TestBandFor(t *testing.T) {
	Convey("Given score bands", t, func() {
		So(rubric.BandFor(100), ShouldEqual, rubric.BandOK)
		So(rubric.BandFor(90), ShouldEqual, rubric.BandOK)
		So(rubric.BandFor(89.9), ShouldEqual, rubric.BandWarn)
		So(rubric.BandFor(75), ShouldEqual, rubric.BandWarn)
		So(rubric.BandFor(74.9), ShouldEqual, rubric.BandBad)
		So(rubric.BandFor(0), ShouldEqual, rubric.BandBad)
	})
}

func TestInstanceJSON(t *testing.T) {
	Convey("Given instances decoded from JSON", t, func() {
		Convey("Unknown grades fail to decode", func() {
			var inst rubric.Instance
			err := json.Unmarshal([]byte(`{"channel":"call","items":[{"id":"a","label":"A","weight":10,"grade":"maybe"}]}`), &inst)
			So(errors.Cause(err), ShouldEqual, rubric.ErrInvalidGrade)
		})

		Convey("Unknown channels fail to decode", func() {
			var inst rubric.Instance
			err := json.Unmarshal([]byte(`{"channel":"fax","items":[]}`), &inst)
			So(errors.Cause(err), ShouldEqual, rubric.ErrInvalidChannel)
		})

		Convey("Validate reports duplicate ids, empty items and bad weights", func() {
			inst := rubric.Instance{Channel: rubric.ChannelCall}
			So(inst.Validate(), ShouldEqual, rubric.ErrEmptyInstance)

			inst.Entries = []rubric.Entry{
				{ItemID: "recap", Weight: 10, Grade: rubric.GradeYes},
				{ItemID: "recap", Weight: 10, Grade: rubric.GradeNo},
			}
			So(errors.Cause(inst.Validate()), ShouldEqual, rubric.ErrDuplicateItem)

			inst.Entries = []rubric.Entry{{ItemID: "recap", Weight: 101, Grade: rubric.GradeYes}}
			So(errors.Cause(inst.Validate()), ShouldEqual, rubric.ErrInvalidWeight)

			inst.Entries = []rubric.Entry{{ItemID: "recap", Weight: 10.555, Grade: rubric.GradeYes}}
			So(errors.Cause(inst.Validate()), ShouldEqual, rubric.ErrWeightDecimals)

			inst.Entries = []rubric.Entry{{ItemID: "", Weight: 1, Grade: rubric.GradeYes}}
			So(inst.Validate(), ShouldEqual, rubric.ErrMissingItemKey)

			inst.Entries = []rubric.Entry{{ItemID: "recap", Weight: 10.55, Grade: rubric.GradeYes}}
			So(inst.Validate(), ShouldBeNil)
		})

		Convey("Validate only accepts item ids of the channel's catalog", func() {
			inst := rubric.Instance{Channel: rubric.ChannelChat, Entries: []rubric.Entry{
				{ItemID: "greeting_brand", Weight: 8, Grade: rubric.GradeYes},
				{ItemID: "caller_name", Weight: 5, Grade: rubric.GradeYes},
			}}
			So(errors.Cause(inst.Validate()), ShouldEqual, rubric.ErrUnknownItem)

			inst.Entries[1].ItemID = "made_up"
			So(errors.Cause(inst.Validate()), ShouldEqual, rubric.ErrUnknownItem)

			So(seed(rubric.ChannelChat).Validate(), ShouldBeNil)
			So(seed(rubric.ChannelCall).Validate(), ShouldBeNil)
		})
	})
}
