package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string
	QuestionsFile string

	Capacity         int
	MaxSessions      int
	QuestionsPerGame int
	PointsPerAnswer  int

	LobbySeconds        int
	RevealSeconds       int
	ResultsGraceSeconds int

	ExportEnabled bool
	ExportFile    string
}

// FromEnv loads configuration from SQ_-prefixed environment variables with
// sensible defaults for every tunable.
func FromEnv() Config {
	v := viper.New()
	v.SetEnvPrefix("SQ")
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("questions_file", "./questions.json")
	v.SetDefault("capacity", 4)
	v.SetDefault("max_sessions", 3)
	v.SetDefault("questions_per_game", 10)
	v.SetDefault("points_per_answer", 10)
	v.SetDefault("lobby_seconds", 15)
	v.SetDefault("reveal_seconds", 3)
	v.SetDefault("results_grace_seconds", 30)
	v.SetDefault("export_enabled", true)
	v.SetDefault("export_file", "./socketquiz-results.txt")

	return Config{
		Port:                v.GetString("port"),
		QuestionsFile:       v.GetString("questions_file"),
		Capacity:            v.GetInt("capacity"),
		MaxSessions:         v.GetInt("max_sessions"),
		QuestionsPerGame:    v.GetInt("questions_per_game"),
		PointsPerAnswer:     v.GetInt("points_per_answer"),
		LobbySeconds:        v.GetInt("lobby_seconds"),
		RevealSeconds:       v.GetInt("reveal_seconds"),
		ResultsGraceSeconds: v.GetInt("results_grace_seconds"),
		ExportEnabled:       v.GetBool("export_enabled"),
		ExportFile:          v.GetString("export_file"),
	}
}

func (c Config) Validate() error {
	if c.Capacity < 1 {
		return fmt.Errorf("capacity must be at least 1, got %d", c.Capacity)
	}
	if c.MaxSessions < 1 {
		return fmt.Errorf("max sessions must be at least 1, got %d", c.MaxSessions)
	}
	if c.QuestionsPerGame < 1 {
		return fmt.Errorf("questions per game must be at least 1, got %d", c.QuestionsPerGame)
	}
	if c.LobbySeconds < 1 || c.RevealSeconds < 1 || c.ResultsGraceSeconds < 1 {
		return fmt.Errorf("timer durations must be at least 1 second")
	}
	return nil
}
