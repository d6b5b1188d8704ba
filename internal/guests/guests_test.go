package guests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gdg-garage/wedding-rsvp-api/internal/apperr"
	"github.com/gdg-garage/wedding-rsvp-api/internal/broker"
	"github.com/gdg-garage/wedding-rsvp-api/internal/logging"
	"github.com/gdg-garage/wedding-rsvp-api/internal/models"
	"github.com/gdg-garage/wedding-rsvp-api/internal/repository"
	"github.com/gdg-garage/wedding-rsvp-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*Service, *gorm.DB, *testutil.RecordingPublisher) {
	db := testutil.NewDB(t)
	pub := &testutil.RecordingPublisher{}
	return NewService(repository.New(db), broker.NewEmitter(pub, logging.Discard()), logging.Discard()), db, pub
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		in    Input
		field string
	}{
		{"MissingFirstName", Input{LastName: "Novak"}, "first_name"},
		{"MissingLastName", Input{FirstName: "Anna", LastName: "  "}, "last_name"},
		{"BadEmail", Input{FirstName: "Anna", LastName: "Novak", Email: testutil.Ptr("anna-at-example")}, "email"},
		{"BadSide", Input{FirstName: "Anna", LastName: "Novak", Side: "left"}, "side"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.in.Normalize()
			var appErr *apperr.Error
			require.True(t, errors.As(err, &appErr), "got %v", err)
			assert.Equal(t, apperr.CodeValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}

	t.Run("Cleans", func(t *testing.T) {
		in, err := Input{
			FirstName: " Anna ",
			LastName:  "Novak",
			Email:     testutil.Ptr(" "),
			Phone:     testutil.Ptr("+420 (777) 123-456"),
		}.Normalize()
		require.NoError(t, err)
		assert.Equal(t, "Anna", in.FirstName)
		assert.Nil(t, in.Email)
		assert.Equal(t, "+420777123456", *in.Phone)
	})
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	svc, db, pub := setup(t)
	ev := testutil.CreateEvent(t, db)

	g, err := svc.Create(ctx, ev.ID, Input{FirstName: "Anna", LastName: "Novak", Side: models.SideBride, PlusOneAllowed: true})
	require.NoError(t, err)
	require.NotNil(t, g.RSVPToken)
	assert.Len(t, *g.RSVPToken, 64)
	assert.Equal(t, models.RSVPPending, g.RSVPStatus)
	assert.Equal(t, models.StageOne, g.Stage)
	assert.Equal(t, []string{broker.KeyTokenIssued}, pub.Published())

	other, err := svc.Create(ctx, ev.ID, Input{FirstName: "Bara", LastName: "Novak"})
	require.NoError(t, err)
	assert.NotEqual(t, *g.RSVPToken, *other.RSVPToken)

	_, err = svc.Create(ctx, 999, Input{FirstName: "Anna", LastName: "Novak"})
	assert.True(t, errors.Is(err, apperr.ErrEventNotFound))
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := setup(t)
	ev := testutil.CreateEvent(t, db)

	existing, err := svc.Create(ctx, ev.ID, Input{FirstName: "Anna", LastName: "Novak", Email: testutil.Ptr("anna@example.com")})
	require.NoError(t, err)
	require.NoError(t, db.Model(existing).Update("rsvp_status", models.RSVPConfirmed).Error)

	records := []Input{
		{FirstName: "ANNA", LastName: "novak", Email: testutil.Ptr("Anna@Example.com"), IsVIP: true},
		{FirstName: "Bara", LastName: "Svoboda"},
		{FirstName: "", LastName: "Nameless"},
		{FirstName: "Cyril", LastName: "Dvorak", Phone: testutil.Ptr("777 000 111")},
	}

	t.Run("Skip", func(t *testing.T) {
		res, err := svc.Import(ctx, ev.ID, records, DuplicateSkip)
		require.NoError(t, err)
		assert.Len(t, res.Created, 2)
		assert.Equal(t, []uint{existing.ID}, res.Skipped)
		assert.Empty(t, res.Updated)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, 2, res.Errors[0].Index)
		assert.Equal(t, "first_name", res.Errors[0].Field)

		var reloaded models.Guest
		require.NoError(t, db.First(&reloaded, existing.ID).Error)
		assert.False(t, reloaded.IsVIP)
	})

	t.Run("Overwrite", func(t *testing.T) {
		res, err := svc.Import(ctx, ev.ID, records[:1], DuplicateOverwrite)
		require.NoError(t, err)
		assert.Equal(t, []uint{existing.ID}, res.Updated)

		var reloaded models.Guest
		require.NoError(t, db.First(&reloaded, existing.ID).Error)
		assert.True(t, reloaded.IsVIP)
		assert.Equal(t, "ANNA", reloaded.FirstName)
		assert.Equal(t, *existing.RSVPToken, *reloaded.RSVPToken, "token survives overwrite")
		assert.Equal(t, models.RSVPConfirmed, reloaded.RSVPStatus, "answers survive overwrite")
	})

	t.Run("SecondImportSkipsEverything", func(t *testing.T) {
		res, err := svc.Import(ctx, ev.ID, records[1:2], DuplicateSkip)
		require.NoError(t, err)
		assert.Empty(t, res.Created)
		assert.Len(t, res.Skipped, 1)
	})

	t.Run("BadPolicy", func(t *testing.T) {
		_, err := svc.Import(ctx, ev.ID, records, "merge")
		assert.True(t, errors.Is(err, apperr.ErrValidation))
	})

	t.Run("UnknownEvent", func(t *testing.T) {
		_, err := svc.Import(ctx, 999, records, DuplicateSkip)
		assert.True(t, errors.Is(err, apperr.ErrEventNotFound))
	})
}

func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := setup(t)
	ev := testutil.CreateEvent(t, db)
	c := testutil.CreateCeremony(t, db, ev.ID, "Ceremony", ev.Date)
	a := testutil.CreateGuest(t, db, ev.ID, "Anna")
	b := testutil.CreateGuest(t, db, ev.ID, "Bara")

	require.NoError(t, db.Create(&models.GuestCeremonyAttendance{GuestID: a.ID, CeremonyID: c.ID, Attending: true}).Error)
	require.NoError(t, db.Create(&models.FamilyRelationship{
		EventID: ev.ID, PrimaryGuestID: a.ID, RelatedGuestID: b.ID, Relationship: "sibling", PairLow: a.ID, PairHigh: b.ID,
	}).Error)
	require.NoError(t, db.Create(&models.RSVPHistory{GuestID: a.ID, EventID: ev.ID, Stage: models.StageOne}).Error)
	gid := a.ID
	require.NoError(t, db.Create(&models.CommunicationLog{
		EventID: ev.ID, GuestID: &gid, Channel: models.ChannelEmail, Recipient: "a@example.com", Status: models.DeliverySent,
	}).Error)

	other := testutil.CreateEvent(t, db)
	assert.True(t, errors.Is(svc.Delete(ctx, other.ID, a.ID), apperr.ErrGuestNotFound))

	require.NoError(t, svc.Delete(ctx, ev.ID, a.ID))

	var count int64
	require.NoError(t, db.Unscoped().Model(&models.Guest{}).Where("id = ?", a.ID).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&models.GuestCeremonyAttendance{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&models.FamilyRelationship{}).Count(&count).Error)
	assert.Zero(t, count)

	var logEntry models.CommunicationLog
	require.NoError(t, db.First(&logEntry).Error)
	assert.Nil(t, logEntry.GuestID)

	assert.True(t, errors.Is(svc.Delete(ctx, ev.ID, a.ID), apperr.ErrGuestNotFound))
}

func TestGetAttendance(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := setup(t)
	ev := testutil.CreateEvent(t, db)
	dinner := testutil.CreateCeremony(t, db, ev.ID, "Dinner", ev.Date.Add(3*time.Hour))
	church := testutil.CreateCeremony(t, db, ev.ID, "Church", ev.Date)
	g := testutil.CreateGuest(t, db, ev.ID, "Anna")

	fish := "fish"
	require.NoError(t, db.Create(&models.GuestCeremonyAttendance{GuestID: g.ID, CeremonyID: dinner.ID, Attending: false, MealPreference: &fish}).Error)
	require.NoError(t, db.Create(&models.GuestCeremonyAttendance{GuestID: g.ID, CeremonyID: church.ID, Attending: true, MealPreference: &fish}).Error)

	entries, err := svc.GetAttendance(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Church", entries[0].Ceremony.Name)
	assert.Equal(t, "fish", *entries[0].MealPreference)
	assert.Equal(t, "Dinner", entries[1].Ceremony.Name)
	assert.Nil(t, entries[1].MealPreference, "meal of a skipped ceremony is not reported")
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := setup(t)
	ev := testutil.CreateEvent(t, db)
	other := testutil.CreateEvent(t, db)
	g := testutil.CreateGuest(t, db, ev.ID, "Anna")

	found, err := svc.Get(ctx, ev.ID, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g.ID, found.ID)

	_, err = svc.Get(ctx, other.ID, g.ID)
	assert.True(t, errors.Is(err, apperr.ErrGuestNotFound))
}
