package game

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenfehling/drum-circle-api/internal/beatsync"
	"github.com/kenfehling/drum-circle-api/internal/drumkit"
	"github.com/kenfehling/drum-circle-api/internal/fanout"
	"github.com/kenfehling/drum-circle-api/internal/models"
)

// memGameRepo is an in-memory GameRepository for app tests.
type memGameRepo struct {
	mu    sync.Mutex
	games map[int64]*models.Game
	next  int64
}

func newMemGameRepo() *memGameRepo {
	return &memGameRepo{games: make(map[int64]*models.Game)}
}

func copyGame(g *models.Game) *models.Game {
	out := *g
	if g.StartTime != nil {
		v := *g.StartTime
		out.StartTime = &v
	}
	if g.Tempo != nil {
		v := *g.Tempo
		out.Tempo = &v
	}
	if g.DrumKitID != nil {
		v := *g.DrumKitID
		out.DrumKitID = &v
	}
	return &out
}

func (r *memGameRepo) CreateGame(ctx context.Context, req CreateGameRequest) (*models.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	g := &models.Game{Code: r.next, Tempo: req.Tempo, DrumKitID: req.DrumKit}
	r.games[g.Code] = g
	return copyGame(g), nil
}

func (r *memGameRepo) CreateOpenGame(ctx context.Context, tempo int, drumKit string, startTime int64) (*models.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.games[models.OpenGameCode]; ok {
		return copyGame(g), nil
	}
	g := &models.Game{
		Code:      models.OpenGameCode,
		Running:   true,
		StartTime: &startTime,
		Tempo:     &tempo,
		DrumKitID: &drumKit,
	}
	r.games[g.Code] = g
	return copyGame(g), nil
}

func (r *memGameRepo) GetGame(ctx context.Context, code int64) (*models.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[code]
	if !ok {
		return nil, ErrNotFound
	}
	return copyGame(g), nil
}

func (r *memGameRepo) ListGames(ctx context.Context) ([]models.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Game
	for _, g := range r.games {
		out = append(out, *copyGame(g))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *memGameRepo) UpdateSettings(ctx context.Context, code int64, req UpdateSettingsRequest) (*models.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[code]
	if !ok {
		return nil, ErrNotFound
	}
	if req.Tempo != nil {
		v := *req.Tempo
		g.Tempo = &v
	}
	if req.DrumKit != nil {
		v := *req.DrumKit
		g.DrumKitID = &v
	}
	return copyGame(g), nil
}

func (r *memGameRepo) StartGame(ctx context.Context, code int64, startTime int64) (*models.Game, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[code]
	if !ok {
		return nil, false, ErrNotFound
	}
	started := !g.Running
	if started {
		g.Running = true
		g.StartTime = &startTime
	}
	return copyGame(g), started, nil
}

func (r *memGameRepo) DeleteGame(ctx context.Context, code int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.games[code]; !ok {
		return ErrNotFound
	}
	delete(r.games, code)
	return nil
}

// recordPublisher records sends and can simulate delivery failure.
type recordPublisher struct {
	mu     sync.Mutex
	sends  []recordedSend
	status int
}

type recordedSend struct {
	channel int64
	event   fanout.Event
}

func (p *recordPublisher) Send(ctx context.Context, channel int64, event fanout.Event) fanout.Delivery {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sends = append(p.sends, recordedSend{channel: channel, event: event})
	status := p.status
	if status == 0 {
		status = 200
	}
	return fanout.Delivery{StatusCode: status}
}

func (p *recordPublisher) recorded() []recordedSend {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]recordedSend, len(p.sends))
	copy(out, p.sends)
	return out
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func newTestApp(t *testing.T, opts Options) (*App, *memGameRepo, *recordPublisher, *clockwork.FakeClock) {
	t.Helper()
	repo := newMemGameRepo()
	pub := &recordPublisher{}
	clock := clockwork.NewFakeClockAt(time.UnixMilli(1417628530123))
	opts.Clock = clock
	opts.NotifyBeforeAck = true // keep sends synchronous and assertable
	return NewApp(repo, pub, opts), repo, pub, clock
}

func TestCreateConfigureStart(t *testing.T) {
	app, _, pub, clock := newTestApp(t, Options{})
	ctx := context.Background()

	g, err := app.CreateGame(ctx, CreateGameRequest{})
	require.NoError(t, err)
	assert.False(t, g.Running)
	assert.Nil(t, g.StartTime)

	g, err = app.UpdateSettings(ctx, g.Code, UpdateSettingsRequest{
		Tempo:   intPtr(60),
		DrumKit: strPtr(drumkit.Default().ID),
	})
	require.NoError(t, err)
	require.NotNil(t, g.Tempo)
	assert.Equal(t, 60, *g.Tempo)

	started, delivery, err := app.StartGame(ctx, g.Code)
	require.NoError(t, err)
	require.NotNil(t, delivery)
	assert.True(t, delivery.OK())

	assert.True(t, started.Running)
	require.NotNil(t, started.StartTime)

	// 60bpm, 4 beats, 1 measure: the start lands on the 4000ms grid,
	// strictly after now.
	cycle := beatsync.CycleDuration(1000, BeatsPerMeasure, MeasuresInCycle)
	assert.Zero(t, *started.StartTime%cycle)
	assert.Greater(t, *started.StartTime, clock.Now().UnixMilli())

	sends := pub.recorded()
	require.Len(t, sends, 1, "exactly one notification for a start")
	assert.Equal(t, g.Code, sends[0].channel)
	assert.Equal(t, fanout.KindGameStarted, sends[0].event.Kind)
	payload, ok := sends[0].event.Payload.(fanout.GameStartedPayload)
	require.True(t, ok)
	assert.Equal(t, *started.StartTime, payload.StartTime)
	require.NotNil(t, payload.Tempo)
	assert.Equal(t, 60, *payload.Tempo)
}

func TestStartRequiresTempo(t *testing.T) {
	app, _, pub, _ := newTestApp(t, Options{})
	ctx := context.Background()

	g, err := app.CreateGame(ctx, CreateGameRequest{})
	require.NoError(t, err)

	_, _, err = app.StartGame(ctx, g.Code)
	assert.ErrorIs(t, err, ErrTempoRequired)
	assert.Empty(t, pub.recorded(), "no notification on a rejected start")
}

func TestStartTwiceIsIdempotent(t *testing.T) {
	app, _, pub, _ := newTestApp(t, Options{})
	ctx := context.Background()

	g, err := app.CreateGame(ctx, CreateGameRequest{Tempo: intPtr(120)})
	require.NoError(t, err)

	first, _, err := app.StartGame(ctx, g.Code)
	require.NoError(t, err)

	second, delivery, err := app.StartGame(ctx, g.Code)
	require.NoError(t, err)
	assert.Nil(t, delivery)
	assert.Equal(t, *first.StartTime, *second.StartTime, "second start returns the original start time")
	assert.Len(t, pub.recorded(), 1, "no second notification")
}

func TestStartTwiceStrictModeErrors(t *testing.T) {
	app, _, _, _ := newTestApp(t, Options{StrictStart: true})
	ctx := context.Background()

	g, err := app.CreateGame(ctx, CreateGameRequest{Tempo: intPtr(120)})
	require.NoError(t, err)

	_, _, err = app.StartGame(ctx, g.Code)
	require.NoError(t, err)

	_, _, err = app.StartGame(ctx, g.Code)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

// staleReadRepo serves one stale snapshot on the next read, standing in
// for another process committing a start between this caller's read and
// its write.
type staleReadRepo struct {
	*memGameRepo
	stale *models.Game
}

func (r *staleReadRepo) GetGame(ctx context.Context, code int64) (*models.Game, error) {
	if s := r.stale; s != nil && s.Code == code {
		r.stale = nil
		return copyGame(s), nil
	}
	return r.memGameRepo.GetGame(ctx, code)
}

func TestLostStartRaceDoesNotRenotify(t *testing.T) {
	repo := &staleReadRepo{memGameRepo: newMemGameRepo()}
	pub := &recordPublisher{}
	clock := clockwork.NewFakeClockAt(time.UnixMilli(1417628530123))
	app := NewApp(repo, pub, Options{Clock: clock, NotifyBeforeAck: true})
	ctx := context.Background()

	g, err := app.CreateGame(ctx, CreateGameRequest{Tempo: intPtr(60)})
	require.NoError(t, err)

	first, _, err := app.StartGame(ctx, g.Code)
	require.NoError(t, err)

	// The next read sees the pre-start snapshot, so this caller passes
	// the running check and loses at the write.
	repo.stale = &models.Game{Code: g.Code, Tempo: intPtr(60)}

	second, delivery, err := app.StartGame(ctx, g.Code)
	require.NoError(t, err)
	assert.Nil(t, delivery)
	assert.Equal(t, *first.StartTime, *second.StartTime, "loser returns the winner's start time")
	assert.Len(t, pub.recorded(), 1, "losing the start race sends nothing")
}

func TestConcurrentStartsNotifyOnce(t *testing.T) {
	app, _, pub, _ := newTestApp(t, Options{})
	ctx := context.Background()

	g, err := app.CreateGame(ctx, CreateGameRequest{Tempo: intPtr(60)})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := app.StartGame(ctx, g.Code)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	events := 0
	for _, s := range pub.recorded() {
		if s.event.Kind == fanout.KindGameStarted {
			events++
		}
	}
	assert.Equal(t, 1, events, "exactly one notification however many starts race")
}

func TestSettingsFreezeAfterStart(t *testing.T) {
	app, _, _, _ := newTestApp(t, Options{})
	ctx := context.Background()

	g, err := app.CreateGame(ctx, CreateGameRequest{Tempo: intPtr(60)})
	require.NoError(t, err)
	_, _, err = app.StartGame(ctx, g.Code)
	require.NoError(t, err)

	_, err = app.UpdateSettings(ctx, g.Code, UpdateSettingsRequest{Tempo: intPtr(90)})
	assert.ErrorIs(t, err, ErrGameRunning)

	got, err := app.GetGame(ctx, g.Code)
	require.NoError(t, err)
	assert.Equal(t, 60, *got.Tempo, "tempo unchanged after rejected patch")
}

func TestUpdateSettingsIsAPatch(t *testing.T) {
	app, _, _, _ := newTestApp(t, Options{})
	ctx := context.Background()

	g, err := app.CreateGame(ctx, CreateGameRequest{
		Tempo:   intPtr(100),
		DrumKit: strPtr("latin"),
	})
	require.NoError(t, err)

	got, err := app.UpdateSettings(ctx, g.Code, UpdateSettingsRequest{Tempo: intPtr(110)})
	require.NoError(t, err)
	assert.Equal(t, 110, *got.Tempo)
	assert.Equal(t, "latin", *got.DrumKitID, "absent field left untouched")
}

func TestTempoBeatDurationMustStayPositive(t *testing.T) {
	app, _, _, _ := newTestApp(t, Options{})
	ctx := context.Background()

	// 70000bpm truncates to a 0ms beat; accepting it would leave the
	// start computation with no cycle grid.
	_, err := app.CreateGame(ctx, CreateGameRequest{Tempo: intPtr(70000)})
	assert.ErrorIs(t, err, ErrInvalidTempo)

	g, err := app.CreateGame(ctx, CreateGameRequest{})
	require.NoError(t, err)

	_, err = app.UpdateSettings(ctx, g.Code, UpdateSettingsRequest{Tempo: intPtr(60001)})
	assert.ErrorIs(t, err, ErrInvalidTempo)

	// 60000bpm is the fastest expressible tempo: a 1ms beat.
	_, err = app.UpdateSettings(ctx, g.Code, UpdateSettingsRequest{Tempo: intPtr(60000)})
	require.NoError(t, err)

	started, _, err := app.StartGame(ctx, g.Code)
	require.NoError(t, err)
	require.NotNil(t, started.StartTime)
	cycle := beatsync.CycleDuration(1, BeatsPerMeasure, MeasuresInCycle)
	assert.Zero(t, *started.StartTime%cycle)
}

func TestUpdateSettingsValidation(t *testing.T) {
	app, _, _, _ := newTestApp(t, Options{})
	ctx := context.Background()

	g, err := app.CreateGame(ctx, CreateGameRequest{})
	require.NoError(t, err)

	_, err = app.UpdateSettings(ctx, g.Code, UpdateSettingsRequest{Tempo: intPtr(0)})
	assert.ErrorIs(t, err, ErrInvalidTempo)

	_, err = app.UpdateSettings(ctx, g.Code, UpdateSettingsRequest{DrumKit: strPtr("kazoo")})
	assert.ErrorIs(t, err, ErrUnknownDrumKit)
}

func TestOperationsOnMissingGame(t *testing.T) {
	app, _, pub, _ := newTestApp(t, Options{})
	ctx := context.Background()

	_, err := app.GetGame(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = app.UpdateSettings(ctx, 42, UpdateSettingsRequest{Tempo: intPtr(60)})
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = app.StartGame(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = app.SendEffect(ctx, 42, "red", "bitcrush")
	assert.ErrorIs(t, err, ErrNotFound)

	err = app.DeleteGame(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Empty(t, pub.recorded(), "failed operations never notify")
}

func TestEnsureOpenGame(t *testing.T) {
	app, _, _, clock := newTestApp(t, Options{})
	ctx := context.Background()

	g, err := app.EnsureOpenGame(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.OpenGameCode, g.Code)
	assert.True(t, g.Running, "open game starts immediately")
	require.NotNil(t, g.StartTime)
	require.NotNil(t, g.Tempo)
	assert.Equal(t, int64(1000), beatsync.BeatDuration(*g.Tempo), "open game uses a 1000ms beat")
	assert.Greater(t, *g.StartTime, clock.Now().UnixMilli())

	again, err := app.EnsureOpenGame(ctx)
	require.NoError(t, err)
	assert.Equal(t, *g.StartTime, *again.StartTime, "second bootstrap is a no-op")
}

func TestSendEffect(t *testing.T) {
	app, _, pub, _ := newTestApp(t, Options{})
	ctx := context.Background()

	g, err := app.CreateGame(ctx, CreateGameRequest{})
	require.NoError(t, err)

	delivery, err := app.SendEffect(ctx, g.Code, "red", "bitcrush")
	require.NoError(t, err)
	require.NotNil(t, delivery)
	assert.True(t, delivery.OK())

	sends := pub.recorded()
	require.Len(t, sends, 1)
	assert.Equal(t, fanout.KindEffectReceive, sends[0].event.Kind)
	payload, ok := sends[0].event.Payload.(fanout.EffectPayload)
	require.True(t, ok)
	assert.Equal(t, models.Color("red"), payload.Color)
	assert.Equal(t, "bitcrush", payload.Effect)
}

func TestSendEffectRejectsUnknownColor(t *testing.T) {
	app, _, pub, _ := newTestApp(t, Options{})
	ctx := context.Background()

	g, err := app.CreateGame(ctx, CreateGameRequest{})
	require.NoError(t, err)

	_, err = app.SendEffect(ctx, g.Code, "chartreuse", "bitcrush")
	assert.ErrorIs(t, err, ErrInvalidColor)
	assert.Empty(t, pub.recorded())
}

func TestDeliveryFailureSurfacedNotRolledBack(t *testing.T) {
	app, repo, pub, _ := newTestApp(t, Options{})
	pub.status = 503
	ctx := context.Background()

	g, err := app.CreateGame(ctx, CreateGameRequest{Tempo: intPtr(60)})
	require.NoError(t, err)

	started, delivery, err := app.StartGame(ctx, g.Code)
	require.NoError(t, err, "delivery failure is not a start failure")
	require.NotNil(t, delivery)
	assert.False(t, delivery.OK())

	stored, err := repo.GetGame(ctx, started.Code)
	require.NoError(t, err)
	assert.True(t, stored.Running, "mutation stays committed")
}
