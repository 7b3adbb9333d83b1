package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"paranoia/internal/domain"
)

// EnvPrefix is the prefix for environment variable overrides
const EnvPrefix = "PARANOIA"

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Game    GameConfig
	Logging LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host string
	Port int
}

// GameConfig holds game-related configuration. Everything here is a static
// per-deployment constant; only total rounds is chosen per game, bounded by
// MinRounds/MaxRounds.
type GameConfig struct {
	MinRounds             int
	MaxRounds             int
	MaxPlayers            int
	MaxNameLength         int
	MaxQuestionLength     int
	SubmissionCountdown   time.Duration
	VotingCountdown       time.Duration
	PostGuessDelay        time.Duration
	ReconnectGrace        time.Duration
	IdleExpiry            time.Duration
	BonusCorrectGuess     int
	BonusWrongGuessAuthor int
	BonusSkipAuthor       int
	BonusEndGame          int
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // "json" or "text"
}

// NewViper builds a viper instance with the env binding the flags go
// through
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// RegisterFlags declares every flag and binds it into viper
func RegisterFlags(fs *pflag.FlagSet, v *viper.Viper) {
	defaults := domain.DefaultSettings()

	fs.StringP("bind", "b", "0.0.0.0", "address to bind to (env: PARANOIA_BIND)")
	fs.IntP("port", "p", 8080, "port to listen on (env: PARANOIA_PORT)")
	fs.String("log-level", "info", "log level: debug, info, warn, error (env: PARANOIA_LOG_LEVEL)")
	fs.String("log-format", "text", "log format: text or json (env: PARANOIA_LOG_FORMAT)")

	fs.Int("min-rounds", defaults.MinRounds, "minimum rounds per game (env: PARANOIA_MIN_ROUNDS)")
	fs.Int("max-rounds", defaults.MaxRounds, "maximum rounds per game (env: PARANOIA_MAX_ROUNDS)")
	fs.Int("max-players", defaults.MaxPlayers, "maximum players per room (env: PARANOIA_MAX_PLAYERS)")
	fs.Int("max-name-length", defaults.MaxNameLength, "maximum display name length (env: PARANOIA_MAX_NAME_LENGTH)")
	fs.Int("max-question-length", defaults.MaxQuestionLength, "maximum question length (env: PARANOIA_MAX_QUESTION_LENGTH)")
	fs.Duration("submission-countdown", defaults.SubmissionCountdown, "submission deadline once half the room has submitted (env: PARANOIA_SUBMISSION_COUNTDOWN)")
	fs.Duration("voting-countdown", defaults.VotingCountdown, "voting deadline (env: PARANOIA_VOTING_COUNTDOWN)")
	fs.Duration("post-guess-delay", defaults.PostGuessDelay, "delay between guess result and next round (env: PARANOIA_POST_GUESS_DELAY)")
	fs.Duration("reconnect-grace", defaults.ReconnectGrace, "window before a disconnected slot is abandoned (env: PARANOIA_RECONNECT_GRACE)")
	fs.Duration("idle-expiry", defaults.IdleExpiry, "time before a finished room is destroyed (env: PARANOIA_IDLE_EXPIRY)")
	fs.Int("bonus-correct-guess", defaults.BonusCorrectGuess, "points for a correct authorship guess (env: PARANOIA_BONUS_CORRECT_GUESS)")
	fs.Int("bonus-wrong-guess-author", defaults.BonusWrongGuessAuthor, "points to the author on a wrong guess (env: PARANOIA_BONUS_WRONG_GUESS_AUTHOR)")
	fs.Int("bonus-skip-author", defaults.BonusSkipAuthor, "points to the author on a skip (env: PARANOIA_BONUS_SKIP_AUTHOR)")
	fs.Int("bonus-end-game", defaults.BonusEndGame, "points per end-of-game bonus (env: PARANOIA_BONUS_END_GAME)")

	_ = v.BindPFlags(fs)
}

// Load materializes the Config from viper
func Load(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Host: v.GetString("bind"),
			Port: v.GetInt("port"),
		},
		Game: GameConfig{
			MinRounds:             v.GetInt("min-rounds"),
			MaxRounds:             v.GetInt("max-rounds"),
			MaxPlayers:            v.GetInt("max-players"),
			MaxNameLength:         v.GetInt("max-name-length"),
			MaxQuestionLength:     v.GetInt("max-question-length"),
			SubmissionCountdown:   v.GetDuration("submission-countdown"),
			VotingCountdown:       v.GetDuration("voting-countdown"),
			PostGuessDelay:        v.GetDuration("post-guess-delay"),
			ReconnectGrace:        v.GetDuration("reconnect-grace"),
			IdleExpiry:            v.GetDuration("idle-expiry"),
			BonusCorrectGuess:     v.GetInt("bonus-correct-guess"),
			BonusWrongGuessAuthor: v.GetInt("bonus-wrong-guess-author"),
			BonusSkipAuthor:       v.GetInt("bonus-skip-author"),
			BonusEndGame:          v.GetInt("bonus-end-game"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("log-level"),
			Format: v.GetString("log-format"),
		},
	}
}

// Validate rejects configurations the engine cannot run with
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Server.Port)
	}
	if c.Game.MinRounds < 1 {
		return errors.New("min-rounds must be at least 1")
	}
	if c.Game.MaxRounds < c.Game.MinRounds {
		return errors.New("max-rounds must be at least min-rounds")
	}
	if c.Game.MaxPlayers < 2 {
		return errors.New("max-players must be at least 2")
	}
	if c.Game.MaxNameLength < 1 || c.Game.MaxQuestionLength < 1 {
		return errors.New("name and question length limits must be positive")
	}
	for _, d := range []time.Duration{
		c.Game.SubmissionCountdown,
		c.Game.VotingCountdown,
		c.Game.PostGuessDelay,
		c.Game.ReconnectGrace,
		c.Game.IdleExpiry,
	} {
		if d <= 0 {
			return errors.New("all game durations must be positive")
		}
	}
	return nil
}

// Addr returns the server address in host:port format
func (c *Config) Addr() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// Settings converts the game section into the domain settings the engine
// consumes
func (c *Config) Settings() domain.Settings {
	return domain.Settings{
		MinRounds:             c.Game.MinRounds,
		MaxRounds:             c.Game.MaxRounds,
		MaxPlayers:            c.Game.MaxPlayers,
		MaxNameLength:         c.Game.MaxNameLength,
		MaxQuestionLength:     c.Game.MaxQuestionLength,
		SubmissionCountdown:   c.Game.SubmissionCountdown,
		VotingCountdown:       c.Game.VotingCountdown,
		PostGuessDelay:        c.Game.PostGuessDelay,
		ReconnectGrace:        c.Game.ReconnectGrace,
		IdleExpiry:            c.Game.IdleExpiry,
		BonusCorrectGuess:     c.Game.BonusCorrectGuess,
		BonusWrongGuessAuthor: c.Game.BonusWrongGuessAuthor,
		BonusSkipAuthor:       c.Game.BonusSkipAuthor,
		BonusEndGame:          c.Game.BonusEndGame,
	}
}
