package game

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Amogh-2404/SocketQuiz/internal/quiz"
)

var (
	ErrServerBusy       = errors.New("server busy")
	ErrNotInSession     = errors.New("not in a session")
	ErrNoActiveQuestion = errors.New("no active question")
	ErrAlreadyAnswered  = errors.New("already answered")
	ErrInvalidOption    = errors.New("invalid option")
)

// Broadcaster is the coordinator's view of the connection gateway. Sends are
// fire-and-forget; a slow connection must not stall the caller.
type Broadcaster interface {
	JoinRoom(sessionID, connID string)
	LeaveRoom(sessionID, connID string)
	ToSession(sessionID, event string, payload any)
	ToConn(connID, event string, payload any)
}

// LatencyProbe reports the average observed round-trip latency across a set
// of connections, in milliseconds. Connections without a sample count as 0.
type LatencyProbe interface {
	AverageMs(connIDs []string) float64
}

type Config struct {
	Capacity         int
	MaxSessions      int
	QuestionsPerGame int
	PointsPerAnswer  int
	LobbyWait        time.Duration
	RevealWait       time.Duration
	ResultsGrace     time.Duration
	Tick             time.Duration
	ExportFile       string

	// QuestionTime overrides the latency-adaptive time limit policy.
	// Nil selects the default mapping (10s at <=100ms up to 20s at >=500ms).
	QuestionTime func(avgLatencyMs float64) time.Duration
}

func DefaultConfig() Config {
	return Config{
		Capacity:         4,
		MaxSessions:      3,
		QuestionsPerGame: 10,
		PointsPerAnswer:  10,
		LobbyWait:        15 * time.Second,
		RevealWait:       3 * time.Second,
		ResultsGrace:     30 * time.Second,
		Tick:             time.Second,
	}
}

// session is one isolated game instance. All fields are guarded by the
// coordinator mutex; the session itself carries no lock.
type session struct {
	id     string
	status Status
	ph     phase

	players   []*Player
	questions []quiz.Question
	current   int

	lobbyStart    time.Time
	lobbyDeadline time.Time
	questionStart time.Time
	questionEnd   time.Time
	timeLimit     time.Duration

	results []ResultEntry

	// epoch invalidates outstanding timer callbacks; it is bumped on every
	// state transition so a stale timer can never fire into superseded state.
	epoch  int
	timers timerSet
}

type timerSet struct {
	deadline *time.Timer
	tickStop chan struct{}
}

// Coordinator owns the session registry and is the sole mutator of session
// state. Every public operation and every timer callback serializes on one
// mutex, so sessions see a single logical event loop.
type Coordinator struct {
	mu    sync.Mutex
	cfg   Config
	bank  *quiz.Bank
	bc    Broadcaster
	probe LatencyProbe

	sessions map[string]*session
	order    []string          // registry insertion order, scanned FIFO on admission
	byConn   map[string]string // connection id -> session id
}

func New(cfg Config, bank *quiz.Bank, bc Broadcaster, probe LatencyProbe) *Coordinator {
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	if probe == nil {
		probe = zeroProbe{}
	}
	return &Coordinator{
		cfg:      cfg,
		bank:     bank,
		bc:       bc,
		probe:    probe,
		sessions: make(map[string]*session),
		byConn:   make(map[string]string),
	}
}

type zeroProbe struct{}

func (zeroProbe) AverageMs([]string) float64 { return 0 }

// Join admits a connection into an open lobby, creating a session if room
// remains. A connection that already belongs to a session gets the current
// state re-delivered instead of a second player entry.
func (c *Coordinator) Join(connID, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sid, ok := c.byConn[connID]; ok {
		if s, ok := c.sessions[sid]; ok {
			c.bc.ToConn(connID, EventState, c.snapshot(s))
		}
		return nil
	}

	s := c.openLobby()
	if s == nil {
		if c.liveCount() >= c.cfg.MaxSessions {
			log.Info().Str("conn", connID).Msg("admission refused, server busy")
			return ErrServerBusy
		}
		var err error
		s, err = c.createSession()
		if err != nil {
			return err
		}
	}

	p := &Player{ID: connID, Name: name, IsHost: len(s.players) == 0}
	s.players = append(s.players, p)
	c.byConn[connID] = s.id
	c.bc.JoinRoom(s.id, connID)
	log.Info().Str("session", s.id).Str("conn", connID).Str("name", name).Bool("host", p.IsHost).Msg("player joined")
	c.broadcastState(s)
	return nil
}

// Ready marks the requesting player ready. A full lobby of more than one
// player starts early; a lone player always waits out the countdown.
func (c *Coordinator) Ready(connID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, p := c.lookup(connID)
	if s == nil {
		return ErrNotInSession
	}
	if s.status != StatusLobby {
		return nil
	}
	p.IsReady = true
	c.broadcastState(s)
	if len(s.players) > 1 && allReady(s.players) {
		log.Info().Str("session", s.id).Msg("all players ready, starting early")
		c.beginGame(s)
	}
	return nil
}

// SubmitAnswer records at most one answer per player for the current
// question. The answer is scored immediately and the result echoed back to
// the submitting connection only.
func (c *Coordinator) SubmitAnswer(connID string, option int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, p := c.lookup(connID)
	if s == nil {
		return ErrNotInSession
	}
	if s.status != StatusPlaying || s.ph != phaseAsking {
		return ErrNoActiveQuestion
	}
	q := s.questions[s.current]
	if option < 0 || option >= len(q.Options) {
		return ErrInvalidOption
	}
	for _, a := range p.Answers {
		if a.QuestionIndex == s.current {
			return ErrAlreadyAnswered
		}
	}

	correct := option == q.CorrectOption
	p.Answers = append(p.Answers, Answer{
		QuestionIndex: s.current,
		ChosenOption:  option,
		IsCorrect:     correct,
		Timestamp:     time.Now(),
	})
	if correct {
		p.Score += c.cfg.PointsPerAnswer
	}
	c.bc.ToConn(connID, EventAnswerResult, AnswerResult{QuestionIndex: s.current, IsCorrect: correct, Score: p.Score})
	return nil
}

// Leave removes a connection's player from its session. Quit and transport
// disconnect share this path. An emptied session is torn down immediately,
// timers included.
func (c *Coordinator) Leave(connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sid, ok := c.byConn[connID]
	if !ok {
		return
	}
	delete(c.byConn, connID)
	s, ok := c.sessions[sid]
	if !ok {
		return
	}
	for i, p := range s.players {
		if p.ID == connID {
			s.players = append(s.players[:i], s.players[i+1:]...)
			break
		}
	}
	c.bc.LeaveRoom(sid, connID)
	log.Info().Str("session", sid).Str("conn", connID).Msg("player left")

	if len(s.players) == 0 {
		c.destroySession(s)
		return
	}
	c.broadcastState(s)
	if s.status == StatusLobby && len(s.players) > 1 && allReady(s.players) {
		c.beginGame(s)
	}
}

// SessionOf reports the session a connection currently belongs to.
func (c *Coordinator) SessionOf(connID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sid, ok := c.byConn[connID]
	return sid, ok
}

func (c *Coordinator) Stats() []SessionStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SessionStats, 0, len(c.order))
	for _, id := range c.order {
		s := c.sessions[id]
		out = append(out, SessionStats{
			ID:             s.id,
			Status:         s.status,
			PlayerCount:    len(s.players),
			QuestionNumber: s.current + 1,
		})
	}
	return out
}

func (c *Coordinator) openLobby() *session {
	for _, id := range c.order {
		s := c.sessions[id]
		if s.status == StatusLobby && len(s.players) < c.cfg.Capacity {
			return s
		}
	}
	return nil
}

func (c *Coordinator) liveCount() int {
	n := 0
	for _, s := range c.sessions {
		if s.status != StatusEnded {
			n++
		}
	}
	return n
}

func (c *Coordinator) createSession() (*session, error) {
	questions, err := c.bank.Draw(c.cfg.QuestionsPerGame)
	if err != nil {
		return nil, fmt.Errorf("draw questions: %w", err)
	}
	now := time.Now()
	s := &session{
		id:            uuid.NewString(),
		status:        StatusLobby,
		questions:     questions,
		current:       -1,
		lobbyStart:    now,
		lobbyDeadline: now.Add(c.cfg.LobbyWait),
	}
	c.sessions[s.id] = s
	c.order = append(c.order, s.id)
	s.timers.deadline = c.schedule(s, c.cfg.LobbyWait, func(s *session) { c.beginGame(s) })
	c.startTicker(s, s.lobbyDeadline)
	log.Info().Str("session", s.id).Msg("session created")
	return s, nil
}

func (c *Coordinator) beginGame(s *session) {
	if s.status != StatusLobby {
		return
	}
	c.cancelTimers(s)
	s.status = StatusPlaying
	log.Info().Str("session", s.id).Int("players", len(s.players)).Msg("game started")
	c.startQuestion(s, 0)
}

func (c *Coordinator) startQuestion(s *session, i int) {
	c.cancelTimers(s)
	s.current = i
	s.ph = phaseAsking

	limit := c.questionTime(s)
	now := time.Now()
	s.timeLimit = limit
	s.questionStart = now
	s.questionEnd = now.Add(limit)

	q := s.questions[i]
	c.bc.ToSession(s.id, EventQuestion, QuestionPayload{
		Question:       questionView(q),
		QuestionNumber: i + 1,
		TotalQuestions: len(s.questions),
		TimeLimit:      int(limit.Round(time.Second).Seconds()),
		TimeRemaining:  int(limit.Round(time.Second).Seconds()),
	})
	c.startTicker(s, s.questionEnd)
	s.timers.deadline = c.schedule(s, limit, func(s *session) { c.endQuestion(s) })
	log.Info().Str("session", s.id).Int("question", i+1).Dur("limit", limit).Msg("question started")
}

func (c *Coordinator) endQuestion(s *session) {
	c.cancelTimers(s)
	s.ph = phaseRevealing
	q := s.questions[s.current]
	c.bc.ToSession(s.id, EventQuestionEnded, QuestionEnded{
		Question: RevealedQuestion{QuestionView: questionView(q), CorrectOption: q.CorrectOption},
	})
	s.timers.deadline = c.schedule(s, c.cfg.RevealWait, func(s *session) {
		if s.current+1 >= len(s.questions) {
			c.endGame(s)
		} else {
			c.startQuestion(s, s.current+1)
		}
	})
}

func (c *Coordinator) endGame(s *session) {
	c.cancelTimers(s)
	s.status = StatusEnded
	s.ph = phaseIdle
	s.results = rankPlayers(s.players)
	c.bc.ToSession(s.id, EventGameEnded, GameEnded{Results: s.results})
	log.Info().Str("session", s.id).Int("players", len(s.players)).Msg("game ended")

	if c.cfg.ExportFile != "" {
		if err := exportResults(c.cfg.ExportFile, s.id, s.results); err != nil {
			log.Error().Err(err).Str("session", s.id).Msg("failed to export results")
		}
	}
	s.timers.deadline = c.schedule(s, c.cfg.ResultsGrace, func(s *session) { c.destroySession(s) })
}

func (c *Coordinator) destroySession(s *session) {
	c.cancelTimers(s)
	for _, p := range s.players {
		delete(c.byConn, p.ID)
		c.bc.LeaveRoom(s.id, p.ID)
	}
	delete(c.sessions, s.id)
	for i, id := range c.order {
		if id == s.id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	log.Info().Str("session", s.id).Msg("session removed")
}

// schedule arms a one-shot timer whose callback runs only if the session
// still exists and has not transitioned since the timer was set.
func (c *Coordinator) schedule(s *session, d time.Duration, fn func(*session)) *time.Timer {
	sid, epoch := s.id, s.epoch
	return time.AfterFunc(d, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		cur, ok := c.sessions[sid]
		if !ok || cur.epoch != epoch {
			return
		}
		fn(cur)
	})
}

// startTicker broadcasts the remaining time to the session once per tick
// until stopped or the deadline passes.
func (c *Coordinator) startTicker(s *session, end time.Time) {
	stop := make(chan struct{})
	s.timers.tickStop = stop
	sid := s.id
	go func() {
		t := time.NewTicker(c.cfg.Tick)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case now := <-t.C:
				remaining := secondsUntil(end, now)
				c.bc.ToSession(sid, EventTimerUpdate, TimerUpdate{TimeRemaining: remaining})
				if remaining <= 0 {
					return
				}
			}
		}
	}()
}

// cancelTimers invalidates the session's outstanding timers. The epoch bump
// turns any callback that already fired into a no-op once it gets the lock.
func (c *Coordinator) cancelTimers(s *session) {
	s.epoch++
	if s.timers.deadline != nil {
		s.timers.deadline.Stop()
		s.timers.deadline = nil
	}
	if s.timers.tickStop != nil {
		close(s.timers.tickStop)
		s.timers.tickStop = nil
	}
}

func (c *Coordinator) questionTime(s *session) time.Duration {
	avg := c.probe.AverageMs(s.connIDs())
	if c.cfg.QuestionTime != nil {
		return c.cfg.QuestionTime(avg)
	}
	return adaptiveTimeLimit(avg)
}

const (
	latencyFloorMs  = 100
	latencyCeilMs   = 500
	minQuestionTime = 10 * time.Second
	maxQuestionTime = 20 * time.Second
)

// adaptiveTimeLimit maps the players' average round-trip latency to the
// question time limit: 10s at or below 100ms, 20s at or above 500ms, linear
// in between, rounded to the nearest second.
func adaptiveTimeLimit(avgMs float64) time.Duration {
	if avgMs <= latencyFloorMs {
		return minQuestionTime
	}
	if avgMs >= latencyCeilMs {
		return maxQuestionTime
	}
	span := (maxQuestionTime - minQuestionTime).Seconds()
	secs := minQuestionTime.Seconds() + span*(avgMs-latencyFloorMs)/(latencyCeilMs-latencyFloorMs)
	return time.Duration(math.Round(secs)) * time.Second
}

// rankPlayers sorts by score descending and assigns standard competition
// ranks in a single pass: tied scores share a rank, the next distinct score
// resumes at its positional index (1,1,3,4 rather than 1,1,2,3).
func rankPlayers(players []*Player) []ResultEntry {
	results := make([]ResultEntry, 0, len(players))
	for _, p := range players {
		correct := 0
		for _, a := range p.Answers {
			if a.IsCorrect {
				correct++
			}
		}
		results = append(results, ResultEntry{ID: p.ID, Name: p.Name, Score: p.Score, CorrectAnswers: correct})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	for i := range results {
		if i > 0 && results[i].Score == results[i-1].Score {
			results[i].Rank = results[i-1].Rank
		} else {
			results[i].Rank = i + 1
		}
	}
	return results
}

func (c *Coordinator) lookup(connID string) (*session, *Player) {
	sid, ok := c.byConn[connID]
	if !ok {
		return nil, nil
	}
	s, ok := c.sessions[sid]
	if !ok {
		return nil, nil
	}
	for _, p := range s.players {
		if p.ID == connID {
			return s, p
		}
	}
	return nil, nil
}

func (c *Coordinator) broadcastState(s *session) {
	c.bc.ToSession(s.id, EventState, c.snapshot(s))
}

func (c *Coordinator) snapshot(s *session) Snapshot {
	snap := Snapshot{
		SessionID:      s.id,
		Status:         s.status,
		Players:        make([]Player, 0, len(s.players)),
		TotalQuestions: len(s.questions),
	}
	for _, p := range s.players {
		snap.Players = append(snap.Players, *p)
	}
	now := time.Now()
	switch s.status {
	case StatusLobby:
		snap.LobbyTimeRemaining = secondsUntil(s.lobbyDeadline, now)
	case StatusPlaying:
		if s.current >= 0 {
			v := questionView(s.questions[s.current])
			snap.CurrentQuestion = &v
			snap.QuestionNumber = s.current + 1
			snap.TimeLimit = int(s.timeLimit.Round(time.Second).Seconds())
			if s.ph == phaseAsking {
				snap.TimeRemaining = secondsUntil(s.questionEnd, now)
			}
		}
	case StatusEnded:
		snap.Results = s.results
	}
	return snap
}

func (s *session) connIDs() []string {
	ids := make([]string, 0, len(s.players))
	for _, p := range s.players {
		ids = append(ids, p.ID)
	}
	return ids
}

func allReady(players []*Player) bool {
	for _, p := range players {
		if !p.IsReady {
			return false
		}
	}
	return true
}

func questionView(q quiz.Question) QuestionView {
	return QuestionView{ID: q.ID, Text: q.Text, Options: q.Options}
}

func secondsUntil(end, now time.Time) int {
	s := int(math.Round(end.Sub(now).Seconds()))
	if s < 0 {
		return 0
	}
	return s
}
