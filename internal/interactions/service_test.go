package interactions

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/memorial-backend/internal/memorials"
	"github.com/angelmondragon/memorial-backend/pkg/db/dbtest"
	"github.com/angelmondragon/memorial-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/memorial-backend/pkg/db/types"
	"github.com/angelmondragon/memorial-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/memorial-backend/pkg/errors"
)

var now = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

type recordingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func (m *recordingMetrics) IncInteraction(kind, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = map[string]int{}
	}
	m.counts[kind+"/"+outcome]++
}

type fixture struct {
	svc     Service
	conn    *gorm.DB
	metrics *recordingMetrics
	clock   *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	metrics := &recordingMetrics{}
	current := now
	svc, err := NewService(ServiceParams{
		Repo:      NewRepository(conn),
		Memorials: memorials.NewRepository(conn),
		Metrics:   metrics,
		Clock:     func() time.Time { return current },
	})
	require.NoError(t, err)
	return &fixture{svc: svc, conn: conn, metrics: metrics, clock: &current}
}

func (f *fixture) memorial(t *testing.T, tier enums.Tier, expiry *time.Time) uuid.UUID {
	t.Helper()
	m := &models.Memorial{
		Name:            "Test",
		Images:          dbtypes.StringList{},
		Videos:          dbtypes.StringList{},
		Timeline:        dbtypes.Timeline{},
		TehilimChapters: dbtypes.CSVList{},
		Mishnayot:       dbtypes.CSVList{},
		Tier:            tier,
		ExpiresAt:       expiry,
		CanEdit:         false,
	}
	require.NoError(t, f.conn.Create(m).Error)
	return m.ID
}

func in(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func TestLightCandleOncePerVisitor(t *testing.T) {
	f := newFixture(t)
	id := f.memorial(t, enums.TierTemporary, in(time.Hour))

	first, err := f.svc.LightCandle(context.Background(), id, "visitor-1", "")
	require.NoError(t, err)
	assert.Equal(t, 1, first.CandleCount)
	assert.True(t, first.HasLitCandle)
	require.Len(t, first.Candles, 1)
	assert.Equal(t, DefaultLitBy, first.Candles[0].LitBy)

	_, err = f.svc.LightCandle(context.Background(), id, "visitor-1", "Dana")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeDuplicateAction, typed.Code())
	details := typed.Details().(map[string]any)
	assert.Equal(t, true, details["alreadyLit"])
	assert.Equal(t, 1, details["candleCount"])

	var rows int64
	require.NoError(t, f.conn.Model(&models.Candle{}).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)

	second, err := f.svc.LightCandle(context.Background(), id, "visitor-2", "Dana")
	require.NoError(t, err)
	assert.Equal(t, 2, second.CandleCount)
	assert.Equal(t, 1, f.metrics.counts["candle/duplicate"])
}

func TestLightCandleConcurrentAttemptsLeaveOneRow(t *testing.T) {
	f := newFixture(t)
	id := f.memorial(t, enums.TierPermanent, nil)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.LightCandle(context.Background(), id, "same-visitor", "")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeDuplicateAction), "unexpected error %v", err)
	}
	assert.Equal(t, 1, succeeded)

	var rows int64
	require.NoError(t, f.conn.Model(&models.Candle{}).Where("memorial_id = ?", id).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)
}

func TestLightCandleValidation(t *testing.T) {
	f := newFixture(t)
	id := f.memorial(t, enums.TierActive, in(time.Hour))

	_, err := f.svc.LightCandle(context.Background(), id, "  ", "")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = f.svc.LightCandle(context.Background(), uuid.New(), "v", "")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestInteractionsOnExpiredMemorial(t *testing.T) {
	f := newFixture(t)
	id := f.memorial(t, enums.TierTemporary, in(-time.Second))

	_, err := f.svc.LightCandle(context.Background(), id, "v", "")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeExpired))
	_, err = f.svc.AddCondolence(context.Background(), id, "Dana", "Sorry for your loss")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeExpired))
	_, err = f.svc.ListCandles(context.Background(), id, "")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeExpired))
}

func TestListCandlesHasLitCandle(t *testing.T) {
	f := newFixture(t)
	id := f.memorial(t, enums.TierActive, in(time.Hour))
	_, err := f.svc.LightCandle(context.Background(), id, "visitor-1", "Avi")
	require.NoError(t, err)

	res, err := f.svc.ListCandles(context.Background(), id, "visitor-1")
	require.NoError(t, err)
	assert.True(t, res.HasLitCandle)
	assert.Equal(t, 1, res.CandleCount)

	res, err = f.svc.ListCandles(context.Background(), id, "visitor-2")
	require.NoError(t, err)
	assert.False(t, res.HasLitCandle)

	res, err = f.svc.ListCandles(context.Background(), id, "")
	require.NoError(t, err)
	assert.False(t, res.HasLitCandle)
}

func TestAddCondolenceTrimsAndCaps(t *testing.T) {
	f := newFixture(t)
	id := f.memorial(t, enums.TierActive, in(time.Hour))

	c, err := f.svc.AddCondolence(context.Background(), id, "  "+strings.Repeat("n", 150)+" ", " "+strings.Repeat("מ", 2500))
	require.NoError(t, err)
	assert.Len(t, []rune(c.Name), 100)
	assert.Len(t, []rune(c.Message), 2000)
	assert.True(t, c.Approved)

	_, err = f.svc.AddCondolence(context.Background(), id, "   ", "message")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	_, err = f.svc.AddCondolence(context.Background(), id, "name", "\n\t ")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	*f.clock = now.Add(time.Minute)
	_, err = f.svc.AddCondolence(context.Background(), id, "Second", "Newest")
	require.NoError(t, err)

	list, err := f.svc.ListCondolences(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Second", list[0].Name)
}
