package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"anime-dubber/internal/logger"
	"anime-dubber/models"
)

// env is what every command starts from: the resolved config and a logger.
type env struct {
	cfg      *models.Config
	log      *logger.Logger
	closeLog func() error
}

func (e *env) Close() {
	if e.closeLog != nil {
		_ = e.closeLog()
	}
}

// loadEnv reads the config file, applies environment overrides and then the
// command's flags, in that order.
func loadEnv(cmd *cobra.Command) (*env, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := models.LoadConfigFrom(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	log, closeLog, err := logger.Open(logger.ParseLevel(cfg.LogLevel), cfg.LogFile)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, closeLog: closeLog}, nil
}

// applyFlags copies every flag the user set onto cfg. Flags a command does
// not define are skipped.
func applyFlags(cmd *cobra.Command, cfg *models.Config) error {
	flags := cmd.Flags()
	str := func(name string, dst *string) {
		if f := flags.Lookup(name); f != nil && f.Changed {
			*dst = f.Value.String()
		}
	}

	str("log-level", &cfg.LogLevel)
	str("log-file", &cfg.LogFile)
	str("source", &cfg.SourceLang)
	str("target", &cfg.TargetLang)
	str("voice-locale", &cfg.VoiceLocale)
	str("voice-gender", &cfg.VoiceGender)
	str("out-dir", &cfg.OutputDirectory)
	str("transcription", &cfg.TranscriptionProvider)
	str("transcription-mode", &cfg.TranscriptionMode)
	str("translation", &cfg.TranslationProvider)
	str("tts", &cfg.TTSProvider)
	str("ocr-provider", &cfg.OCRProvider)
	str("ocr-language", &cfg.OCRLanguage)
	str("gcs-bucket", &cfg.GCSBucket)
	str("progress-addr", &cfg.ProgressAddr)
	str("history", &cfg.HistoryPath)

	if f := flags.Lookup("keep"); f != nil && f.Changed {
		keep, err := flags.GetStringSlice("keep")
		if err != nil {
			return err
		}
		cfg.Keep = nil
		for _, k := range keep {
			if k = strings.TrimSpace(k); k != "" {
				cfg.Keep = append(cfg.Keep, k)
			}
		}
	}
	if f := flags.Lookup("ocr-fps"); f != nil && f.Changed {
		fps, err := flags.GetFloat64("ocr-fps")
		if err != nil {
			return err
		}
		cfg.OCRFPS = fps
	}
	if f := flags.Lookup("normalize"); f != nil && f.Changed {
		cfg.NormalizeSubtitles, _ = flags.GetBool("normalize")
	}
	return nil
}
