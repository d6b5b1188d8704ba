package rsvp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gdg-garage/wedding-rsvp-api/internal/apperr"
	"github.com/gdg-garage/wedding-rsvp-api/internal/broker"
	"github.com/gdg-garage/wedding-rsvp-api/internal/logging"
	"github.com/gdg-garage/wedding-rsvp-api/internal/models"
	"github.com/gdg-garage/wedding-rsvp-api/internal/progress"
	"github.com/gdg-garage/wedding-rsvp-api/internal/repository"
	"github.com/gdg-garage/wedding-rsvp-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeNotifier struct {
	stage1 []uint
	stage2 []uint
	err    error
}

func (f *fakeNotifier) NotifyStage1(guest models.Guest, requiresStage2 bool) error {
	f.stage1 = append(f.stage1, guest.ID)
	return f.err
}

func (f *fakeNotifier) NotifyStage2(guest models.Guest) error {
	f.stage2 = append(f.stage2, guest.ID)
	return f.err
}

type fixture struct {
	db       *gorm.DB
	svc      *Service
	pub      *testutil.RecordingPublisher
	notifier *fakeNotifier
	event    *models.Event
	ceremony *models.Ceremony
}

func setup(t *testing.T) *fixture {
	db := testutil.NewDB(t)
	pub := &testutil.RecordingPublisher{}
	n := &fakeNotifier{}
	svc := NewService(repository.New(db), broker.NewEmitter(pub, logging.Discard()), n, logging.Discard())

	ev := testutil.CreateEvent(t, db)
	c := testutil.CreateCeremony(t, db, ev.ID, "Ceremony", ev.Date)
	return &fixture{db: db, svc: svc, pub: pub, notifier: n, event: ev, ceremony: c}
}

func (f *fixture) reload(t *testing.T, id uint) models.Guest {
	var g models.Guest
	require.NoError(t, f.db.First(&g, id).Error)
	return g
}

func confirmRemote(ceremonyID uint) Stage1Input {
	return Stage1Input{
		RSVPStatus:         models.RSVPConfirmed,
		CeremonyAttendance: []CeremonyChoice{{CeremonyID: ceremonyID, Attending: true}},
	}
}

func TestStage1RejectsPending(t *testing.T) {
	f := setup(t)
	g := testutil.CreateGuest(t, f.db, f.event.ID, "Anna")

	for _, status := range []models.RSVPStatus{models.RSVPPending, "", "maybe"} {
		_, err := f.svc.SubmitStage1(context.Background(), g.ID, Stage1Input{RSVPStatus: status})
		assert.True(t, errors.Is(err, apperr.ErrValidation), "status %q", status)
	}
	assert.Equal(t, models.RSVPPending, f.reload(t, g.ID).RSVPStatus)
}

func TestStatusTransitions(t *testing.T) {
	answers := []models.RSVPStatus{models.RSVPConfirmed, models.RSVPDeclined}

	for _, first := range answers {
		for _, second := range answers {
			t.Run(string(first)+"_then_"+string(second), func(t *testing.T) {
				f := setup(t)
				ctx := context.Background()
				g := testutil.CreateGuest(t, f.db, f.event.ID, "Anna")

				_, err := f.svc.SubmitStage1(ctx, g.ID, Stage1Input{RSVPStatus: first})
				require.NoError(t, err)

				_, err = f.svc.SubmitStage1(ctx, g.ID, Stage1Input{RSVPStatus: second})
				if first == second {
					assert.NoError(t, err)
				} else {
					assert.True(t, errors.Is(err, apperr.ErrInvalidStageTransition), "got %v", err)
				}
				assert.Equal(t, first, f.reload(t, g.ID).RSVPStatus)
			})
		}
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(models.RSVPPending, models.RSVPConfirmed))
	assert.True(t, CanTransition(models.RSVPPending, models.RSVPDeclined))
	assert.True(t, CanTransition(models.RSVPDeclined, models.RSVPDeclined))
	assert.False(t, CanTransition(models.RSVPConfirmed, models.RSVPDeclined))
	assert.False(t, CanTransition(models.RSVPConfirmed, models.RSVPPending))
}

func TestRequiresStage2ForEveryInput(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	i := 0

	for _, status := range []models.RSVPStatus{models.RSVPConfirmed, models.RSVPDeclined} {
		for _, local := range []bool{false, true} {
			for _, plusOne := range []bool{false, true} {
				i++
				g := testutil.CreateGuest(t, f.db, f.event.ID, "Guest"+string(rune('A'+i)))

				res, err := f.svc.SubmitStage1(ctx, g.ID, Stage1Input{
					RSVPStatus:       status,
					IsLocalGuest:     local,
					PlusOneAttending: plusOne,
				})
				require.NoError(t, err)

				want := status == models.RSVPConfirmed && !local
				assert.Equal(t, want, res.RequiresStage2, "%s local=%v plusOne=%v", status, local, plusOne)
				if want {
					assert.Equal(t, models.StageTwo, res.Guest.Stage)
				} else {
					assert.Equal(t, models.StageComplete, res.Guest.Stage)
				}
			}
		}
	}
}

func TestPlusOneClamp(t *testing.T) {
	ctx := context.Background()
	name := "Petr"

	t.Run("AllowedByBoth", func(t *testing.T) {
		f := setup(t)
		g := testutil.CreateGuest(t, f.db, f.event.ID, "Anna")
		res, err := f.svc.SubmitStage1(ctx, g.ID, Stage1Input{RSVPStatus: models.RSVPConfirmed, PlusOneAttending: true, PlusOneName: &name})
		require.NoError(t, err)
		assert.True(t, res.Guest.PlusOneConfirmed)
		assert.Equal(t, "Petr", *res.Guest.PlusOneName)
	})

	t.Run("GuestNotAllowed", func(t *testing.T) {
		f := setup(t)
		g := testutil.CreateGuest(t, f.db, f.event.ID, "Anna", func(g *models.Guest) { g.PlusOneAllowed = false })
		res, err := f.svc.SubmitStage1(ctx, g.ID, Stage1Input{RSVPStatus: models.RSVPConfirmed, PlusOneAttending: true, PlusOneName: &name})
		require.NoError(t, err)
		assert.False(t, res.Guest.PlusOneConfirmed)
		assert.Nil(t, res.Guest.PlusOneName)
	})

	t.Run("EventNotAllowed", func(t *testing.T) {
		f := setup(t)
		ev := testutil.CreateEvent(t, f.db, func(e *models.Event) { e.PlusOneAllowed = false })
		require.NoError(t, f.db.Model(ev).Update("plus_one_allowed", false).Error)
		g := testutil.CreateGuest(t, f.db, ev.ID, "Anna")
		res, err := f.svc.SubmitStage1(ctx, g.ID, Stage1Input{RSVPStatus: models.RSVPConfirmed, PlusOneAttending: true})
		require.NoError(t, err)
		assert.False(t, f.reload(t, g.ID).PlusOneConfirmed)
		assert.False(t, res.Guest.PlusOneConfirmed)
	})

	t.Run("NotBringingAnyoneDropsName", func(t *testing.T) {
		f := setup(t)
		g := testutil.CreateGuest(t, f.db, f.event.ID, "Anna")
		res, err := f.svc.SubmitStage1(ctx, g.ID, Stage1Input{RSVPStatus: models.RSVPConfirmed, PlusOneAttending: false, PlusOneName: &name})
		require.NoError(t, err)
		assert.False(t, res.Guest.PlusOneConfirmed)
		assert.Nil(t, res.Guest.PlusOneName)
		assert.Nil(t, f.reload(t, g.ID).PlusOneName)
	})
}

func TestStage1Attendance(t *testing.T) {
	ctx := context.Background()

	t.Run("UpsertKeepsOneRowWithLatestValues", func(t *testing.T) {
		f := setup(t)
		g := testutil.CreateGuest(t, f.db, f.event.ID, "Anna")
		fish, beef := "fish", "beef"

		_, err := f.svc.SubmitStage1(ctx, g.ID, Stage1Input{
			RSVPStatus:         models.RSVPConfirmed,
			CeremonyAttendance: []CeremonyChoice{{CeremonyID: f.ceremony.ID, Attending: true, MealPreference: &fish}},
		})
		require.NoError(t, err)
		_, err = f.svc.SubmitStage1(ctx, g.ID, Stage1Input{
			RSVPStatus:         models.RSVPConfirmed,
			CeremonyAttendance: []CeremonyChoice{{CeremonyID: f.ceremony.ID, Attending: false, MealPreference: &beef}},
		})
		require.NoError(t, err)

		var rows []models.GuestCeremonyAttendance
		require.NoError(t, f.db.Where("guest_id = ?", g.ID).Find(&rows).Error)
		require.Len(t, rows, 1)
		assert.False(t, rows[0].Attending)
		assert.Equal(t, "beef", *rows[0].MealPreference)
	})

	t.Run("DuplicateCeremonyInPayloadLastWins", func(t *testing.T) {
		f := setup(t)
		g := testutil.CreateGuest(t, f.db, f.event.ID, "Anna")

		_, err := f.svc.SubmitStage1(ctx, g.ID, Stage1Input{
			RSVPStatus: models.RSVPConfirmed,
			CeremonyAttendance: []CeremonyChoice{
				{CeremonyID: f.ceremony.ID, Attending: true},
				{CeremonyID: f.ceremony.ID, Attending: false},
			},
		})
		require.NoError(t, err)

		var rows []models.GuestCeremonyAttendance
		require.NoError(t, f.db.Where("guest_id = ?", g.ID).Find(&rows).Error)
		require.Len(t, rows, 1)
		assert.False(t, rows[0].Attending)
	})

	t.Run("ForeignCeremonyRollsBack", func(t *testing.T) {
		f := setup(t)
		other := testutil.CreateEvent(t, f.db)
		foreign := testutil.CreateCeremony(t, f.db, other.ID, "Elsewhere", other.Date)
		g := testutil.CreateGuest(t, f.db, f.event.ID, "Anna")

		_, err := f.svc.SubmitStage1(ctx, g.ID, Stage1Input{
			RSVPStatus: models.RSVPConfirmed,
			CeremonyAttendance: []CeremonyChoice{
				{CeremonyID: f.ceremony.ID, Attending: true},
				{CeremonyID: foreign.ID, Attending: true},
			},
		})
		assert.True(t, errors.Is(err, apperr.ErrInvalidCeremonyReference), "got %v", err)

		reloaded := f.reload(t, g.ID)
		assert.Equal(t, models.RSVPPending, reloaded.RSVPStatus)
		assert.Nil(t, reloaded.Stage1SubmittedAt)

		var count int64
		require.NoError(t, f.db.Model(&models.GuestCeremonyAttendance{}).Where("guest_id = ?", g.ID).Count(&count).Error)
		assert.Zero(t, count)
		assert.Empty(t, f.pub.Published())
	})

	t.Run("UnknownCeremony", func(t *testing.T) {
		f := setup(t)
		g := testutil.CreateGuest(t, f.db, f.event.ID, "Anna")
		_, err := f.svc.SubmitStage1(ctx, g.ID, Stage1Input{
			RSVPStatus:         models.RSVPDeclined,
			CeremonyAttendance: []CeremonyChoice{{CeremonyID: 4242}},
		})
		assert.True(t, errors.Is(err, apperr.ErrInvalidCeremonyReference))
	})
}

func TestStage1UnknownGuest(t *testing.T) {
	f := setup(t)
	_, err := f.svc.SubmitStage1(context.Background(), 999, Stage1Input{RSVPStatus: models.RSVPConfirmed})
	assert.True(t, errors.Is(err, apperr.ErrGuestNotFound))
}

func TestStage2BeforeStage1AlwaysFails(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	g := testutil.CreateGuest(t, f.db, f.event.ID, "Anna")
	arrival := time.Date(2027, 6, 14, 0, 0, 0, 0, time.UTC)
	departure := arrival.Add(-48 * time.Hour)

	payloads := map[string]Stage2Input{
		"Empty":         {},
		"Final":         {NeedsAccommodation: testutil.Ptr(true), AccommodationPreference: testutil.Ptr("provided")},
		"Draft":         {Draft: true, Notes: testutil.Ptr("hi")},
		"InvalidChild":  {ChildrenDetails: []ChildInput{{Name: ""}}},
		"InvertedDates": {ArrivalDate: &arrival, DepartureDate: &departure},
	}

	for name, in := range payloads {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.SubmitStage2(ctx, g.ID, in)
			assert.True(t, errors.Is(err, apperr.ErrInvalidStageTransition), "got %v", err)
		})
	}

	reloaded := f.reload(t, g.ID)
	assert.Equal(t, models.StageOne, reloaded.Stage)
	assert.Nil(t, reloaded.Notes)
}

func TestStage2RejectedForDeclinedAndLocal(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	declined := testutil.CreateGuest(t, f.db, f.event.ID, "Declined")
	_, err := f.svc.SubmitStage1(ctx, declined.ID, Stage1Input{RSVPStatus: models.RSVPDeclined})
	require.NoError(t, err)

	local := testutil.CreateGuest(t, f.db, f.event.ID, "Local")
	_, err = f.svc.SubmitStage1(ctx, local.ID, Stage1Input{RSVPStatus: models.RSVPConfirmed, IsLocalGuest: true})
	require.NoError(t, err)

	for _, id := range []uint{declined.ID, local.ID} {
		_, err := f.svc.SubmitStage2(ctx, id, Stage2Input{NeedsAccommodation: testutil.Ptr(false)})
		assert.True(t, errors.Is(err, apperr.ErrInvalidStageTransition))
	}
}

func TestStage2AfterSwitchToLocalFails(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	g := testutil.CreateGuest(t, f.db, f.event.ID, "Anna")

	_, err := f.svc.SubmitStage1(ctx, g.ID, confirmRemote(f.ceremony.ID))
	require.NoError(t, err)
	_, err = f.svc.SubmitStage1(ctx, g.ID, Stage1Input{RSVPStatus: models.RSVPConfirmed, IsLocalGuest: true})
	require.NoError(t, err)

	_, err = f.svc.SubmitStage2(ctx, g.ID, Stage2Input{})
	assert.True(t, errors.Is(err, apperr.ErrInvalidStageTransition))
}

func TestStage2Validation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	g := testutil.CreateGuest(t, f.db, f.event.ID, "Anna")
	_, err := f.svc.SubmitStage1(ctx, g.ID, confirmRemote(f.ceremony.ID))
	require.NoError(t, err)

	t.Run("ChildNameRequired", func(t *testing.T) {
		_, err := f.svc.SubmitStage2(ctx, g.ID, Stage2Input{ChildrenDetails: []ChildInput{{Name: "Ema", Age: 3}, {Name: "  "}}})
		require.Error(t, err)
		var appErr *apperr.Error
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, apperr.CodeValidation, appErr.Code)
		assert.Equal(t, "children_details[1].name", appErr.Field)
	})

	t.Run("ArrivalAfterDeparture", func(t *testing.T) {
		arrival := time.Date(2027, 6, 14, 0, 0, 0, 0, time.UTC)
		departure := arrival.Add(-24 * time.Hour)
		_, err := f.svc.SubmitStage2(ctx, g.ID, Stage2Input{ArrivalDate: &arrival, DepartureDate: &departure})
		assert.True(t, errors.Is(err, apperr.ErrValidation))
	})

	t.Run("LenientAges", func(t *testing.T) {
		res, err := f.svc.SubmitStage2(ctx, g.ID, Stage2Input{
			Draft: true,
			ChildrenDetails: []ChildInput{
				{Name: "Ema", Age: "7"},
				{Name: "Jan", Age: "seven"},
				{Name: "Eva", Age: float64(-2)},
				{Name: "Ola", Age: float64(4)},
			},
		})
		require.NoError(t, err)
		ages := []int{}
		for _, c := range res.ChildrenDetails {
			ages = append(ages, c.Age)
		}
		assert.Equal(t, []int{7, 0, 0, 4}, ages)
	})
}

func TestStage2DraftThenFinal(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	g := testutil.CreateGuest(t, f.db, f.event.ID, "Anna")
	_, err := f.svc.SubmitStage1(ctx, g.ID, confirmRemote(f.ceremony.ID))
	require.NoError(t, err)

	draft, err := f.svc.SubmitStage2(ctx, g.ID, Stage2Input{
		Draft:              true,
		NeedsAccommodation: testutil.Ptr(true),
		PlusOnePhone:       testutil.Ptr("+420 777 123 456"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StageTwo, draft.Stage)
	assert.Nil(t, draft.Stage2CompletedAt)
	assert.Equal(t, "+420777123456", *draft.PlusOnePhone)
	assert.Equal(t, 17, progress.Stage2(*draft))
	assert.Empty(t, f.notifier.stage2)

	// Auto-save overwrites, it does not merge.
	draft, err = f.svc.SubmitStage2(ctx, g.ID, Stage2Input{Draft: true, NeedsFlightAssistance: testutil.Ptr(false)})
	require.NoError(t, err)
	assert.Nil(t, draft.NeedsAccommodation)

	final, err := f.svc.SubmitStage2(ctx, g.ID, Stage2Input{NeedsFlightAssistance: testutil.Ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, models.StageComplete, final.Stage)
	assert.NotNil(t, final.Stage2CompletedAt)
	assert.Equal(t, []uint{g.ID}, f.notifier.stage2)

	// Re-submitting stage 1 keeps a finalized stage 2.
	res, err := f.svc.SubmitStage1(ctx, g.ID, confirmRemote(f.ceremony.ID))
	require.NoError(t, err)
	assert.True(t, res.RequiresStage2)
	assert.Equal(t, models.StageComplete, res.Guest.Stage)
}

func TestScenarioConfirmedRemoteGuest(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	g1 := testutil.CreateGuest(t, f.db, f.event.ID, "G1")

	res, err := f.svc.SubmitStage1(ctx, g1.ID, confirmRemote(f.ceremony.ID))
	require.NoError(t, err)
	assert.True(t, res.RequiresStage2)

	guest, err := f.svc.SubmitStage2(ctx, g1.ID, Stage2Input{
		NeedsAccommodation:      testutil.Ptr(true),
		AccommodationPreference: testutil.Ptr("provided"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StageComplete, CurrentStage(*guest))
	assert.Equal(t, 100, progress.Overall(*guest))

	assert.Equal(t, []string{broker.KeyStage1Submitted, broker.KeyStage2Submitted}, f.pub.Published())
	assert.Equal(t, []uint{g1.ID}, f.notifier.stage1)
}

func TestScenarioDeclinedGuest(t *testing.T) {
	f := setup(t)
	g2 := testutil.CreateGuest(t, f.db, f.event.ID, "G2")

	res, err := f.svc.SubmitStage1(context.Background(), g2.ID, Stage1Input{RSVPStatus: models.RSVPDeclined})
	require.NoError(t, err)
	assert.False(t, res.RequiresStage2)
	assert.Equal(t, models.StageComplete, CurrentStage(f.reload(t, g2.ID)))
	assert.Equal(t, 50, progress.Overall(res.Guest))
}

func TestNotifierFailureDoesNotFailSubmission(t *testing.T) {
	f := setup(t)
	f.notifier.err = errors.New("discord down")
	g := testutil.CreateGuest(t, f.db, f.event.ID, "Anna")

	_, err := f.svc.SubmitStage1(context.Background(), g.ID, Stage1Input{RSVPStatus: models.RSVPDeclined})
	assert.NoError(t, err)
}

func TestHistory(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	g := testutil.CreateGuest(t, f.db, f.event.ID, "Anna")

	_, err := f.svc.SubmitStage1(ctx, g.ID, confirmRemote(f.ceremony.ID))
	require.NoError(t, err)
	_, err = f.svc.SubmitStage2(ctx, g.ID, Stage2Input{Draft: true, Notes: testutil.Ptr("first")})
	require.NoError(t, err)
	_, err = f.svc.SubmitStage2(ctx, g.ID, Stage2Input{Notes: testutil.Ptr("second")})
	require.NoError(t, err)

	t.Run("Full", func(t *testing.T) {
		entries, err := f.svc.History(ctx, g.ID, false)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, models.StageTwo, entries[0].Stage)
		assert.False(t, entries[0].Draft)
		assert.True(t, entries[1].Draft)
		assert.Equal(t, models.StageOne, entries[2].Stage)
		assert.Equal(t, "confirmed", entries[0].Fields["rsvp_status"])
		assert.Equal(t, "second", entries[0].Fields["notes"])
	})

	t.Run("Diff", func(t *testing.T) {
		entries, err := f.svc.History(ctx, g.ID, true)
		require.NoError(t, err)
		require.Len(t, entries, 3)

		assert.Equal(t, map[string]any{"notes": "second"}, entries[0].Fields)
		assert.Contains(t, entries[1].Fields, "notes")
		assert.NotContains(t, entries[1].Fields, "rsvp_status")
		assert.Equal(t, "confirmed", entries[2].Fields["rsvp_status"], "oldest entry is a full dump")
	})

	t.Run("UnknownGuest", func(t *testing.T) {
		_, err := f.svc.History(ctx, 999, true)
		assert.True(t, errors.Is(err, apperr.ErrGuestNotFound))
	})
}

func TestParseAge(t *testing.T) {
	tests := []struct {
		in  any
		age int
		ok  bool
	}{
		{nil, 0, true},
		{float64(5), 5, true},
		{5, 5, true},
		{"12", 12, true},
		{" 3 ", 3, true},
		{"", 0, true},
		{"abc", 0, false},
		{float64(-1), 0, false},
		{true, 0, false},
		{"1e20", 0, false},
		{float64(1e19), 0, false},
		{"9999999999999999999", 0, false},
		{float64(150), 150, true},
		{151, 0, false},
	}
	for _, tt := range tests {
		age, ok := ParseAge(tt.in)
		assert.Equal(t, tt.age, age, "%v", tt.in)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
	}
}
