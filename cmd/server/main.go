package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"

	"github.com/Amogh-2404/SocketQuiz/internal/config"
	"github.com/Amogh-2404/SocketQuiz/internal/game"
	"github.com/Amogh-2404/SocketQuiz/internal/quiz"
	"github.com/Amogh-2404/SocketQuiz/internal/ws"
)

const version = "v1.0.0"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides SQ_PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`SocketQuiz - Real-time multiplayer trivia

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or SQ_PORT env var)

Environment Variables:
  SQ_PORT                   Port to listen on (default: 8080)
  SQ_QUESTIONS_FILE         Path to the question corpus JSON (default: ./questions.json)
  SQ_CAPACITY               Players per session (default: 4)
  SQ_MAX_SESSIONS           Concurrent live sessions (default: 3)
  SQ_QUESTIONS_PER_GAME     Questions drawn per game (default: 10)
  SQ_LOBBY_SECONDS          Lobby countdown (default: 15)
  SQ_REVEAL_SECONDS         Answer reveal pause (default: 3)
  SQ_RESULTS_GRACE_SECONDS  Time before a finished session is removed (default: 30)
  SQ_EXPORT_ENABLED         Export final standings to file (default: true)
  SQ_EXPORT_FILE            Path for exported standings (default: ./socketquiz-results.txt)

Examples:
  %s                  Start server with default settings
  %s --port 3000      Start server on port 3000
`, os.Args[0], os.Args[0], os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("SocketQuiz %s\n", version)
		return
	}

	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)

	cfg := config.FromEnv()
	if *portFlag != "" {
		cfg.Port = *portFlag
	}
	if err := cfg.Validate(); err != nil {
		zerologlog.Fatal().Err(err).Msg("invalid configuration")
	}

	bank, err := quiz.Load(cfg.QuestionsFile)
	if err != nil {
		zerologlog.Fatal().Err(err).Str("file", cfg.QuestionsFile).Msg("failed to load question corpus")
	}
	if bank.Size() < cfg.QuestionsPerGame {
		zerologlog.Fatal().
			Int("corpus", bank.Size()).
			Int("perGame", cfg.QuestionsPerGame).
			Msg("question corpus smaller than questions per game")
	}

	// Gin setup with custom logger (skip /socket.io noise)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		status := c.Writer.Status()
		dur := time.Since(start)
		zerologlog.Info().Str("path", path).Int("status", status).Dur("dur", dur).Msg("http")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	gameCfg := game.Config{
		Capacity:         cfg.Capacity,
		MaxSessions:      cfg.MaxSessions,
		QuestionsPerGame: cfg.QuestionsPerGame,
		PointsPerAnswer:  cfg.PointsPerAnswer,
		LobbyWait:        time.Duration(cfg.LobbySeconds) * time.Second,
		RevealWait:       time.Duration(cfg.RevealSeconds) * time.Second,
		ResultsGrace:     time.Duration(cfg.ResultsGraceSeconds) * time.Second,
		Tick:             time.Second,
	}
	if cfg.ExportEnabled {
		gameCfg.ExportFile = cfg.ExportFile
	}

	sock := ws.New()
	coord := game.New(gameCfg, bank, sock, sock.Latency())
	sock.SetCoordinator(coord)
	io := sock.Mount(r)
	defer io.Close()

	r.GET("/api/sessions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sessions": coord.Stats()})
	})

	zerologlog.Info().Str("port", cfg.Port).Int("questions", bank.Size()).Msg("listening")
	if err := r.Run(":" + cfg.Port); err != nil {
		zerologlog.Fatal().Err(err).Msg("server exited")
	}
}
