package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"anime-dubber/internal/history"
	"anime-dubber/internal/logger"
	"anime-dubber/internal/progress"
	"anime-dubber/models"
	"anime-dubber/services"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <video>",
		Short: "Dub a video from its speech track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(cmd, args[0], models.ModeSpeech)
		},
	}
	addJobFlags(cmd)
	addRunFlags(cmd)

	f := cmd.Flags()
	f.String("transcription", "", "Speech recognition provider: google, openai")
	f.String("transcription-mode", "", "Audio submission: inline, staged, auto")
	f.String("gcs-bucket", "", "Cloud Storage bucket for staged recognition")
	return cmd
}

func newOCRCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ocr <video>",
		Short: "Dub a video from its burned-in subtitles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(cmd, args[0], models.ModeSubtitles)
		},
	}
	addJobFlags(cmd)
	addRunFlags(cmd)

	f := cmd.Flags()
	f.String("ocr-provider", "", "Text detection provider: tesseract, google")
	f.String("ocr-language", "", "Subtitle language (BCP-47 tag or tesseract pack)")
	f.Float64("ocr-fps", 0, "Frames sampled per second")
	f.Bool("normalize", false, "Rewrite OCR fragments into sentences before translating")
	return cmd
}

// addJobFlags defines the flags that locate a job's output and checkpoint.
func addJobFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("out-dir", "", "Output directory (default: next to the video)")
	f.String("name", "", "Output file name; .mp4 is appended unless it ends in .mp4, .mkv or .avi")
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("source", "", "Source language")
	f.String("target", "", "Target language")
	f.String("voice-locale", "", "Voice locale, e.g. en-US")
	f.String("voice-gender", "", "Voice gender: neutral, male, female")
	f.String("translation", "", "Translation provider: google, openai")
	f.String("tts", "", "Speech synthesis provider: google, openai")
	f.StringSlice("keep", nil, "Stage artifacts to keep after success, e.g. transcribe,translate")
	f.Bool("fresh", false, "Discard any checkpoint and start over")
	f.String("progress-addr", "", "Serve live progress over websocket at this address, e.g. :8765")
	f.String("history", "", "Job history database")
}

// buildJob resolves the job for video from cfg and the job flags.
func buildJob(cmd *cobra.Command, cfg *models.Config, video string, mode models.Mode) (*models.Job, error) {
	abs, err := filepath.Abs(video)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("input video: %w", err)
	} else if info.IsDir() {
		return nil, fmt.Errorf("input video %s is a directory", abs)
	}

	outDir := cfg.OutputDirectory
	if f := cmd.Flags().Lookup("out-dir"); f != nil && f.Changed {
		outDir = f.Value.String()
	}
	if outDir != "" {
		if outDir, err = filepath.Abs(outDir); err != nil {
			return nil, err
		}
	}
	name, _ := cmd.Flags().GetString("name")

	job := models.NewJob(abs, outDir, name)
	job.Mode = mode
	job.Normalize = mode == models.ModeSubtitles && cfg.NormalizeSubtitles
	if job.Keep, err = cfg.KeepStages(); err != nil {
		return nil, err
	}
	return job, nil
}

func runJob(cmd *cobra.Command, video string, mode models.Mode) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	job, err := buildJob(cmd, e.cfg, video, mode)
	if err != nil {
		return err
	}

	providers, err := services.NewProviders(e.cfg, services.StagePrefix(job), e.log)
	if err != nil {
		return err
	}
	p := services.NewPipeline(e.cfg, providers, e.log)

	if fresh, _ := cmd.Flags().GetBool("fresh"); fresh {
		if err := p.Discard(job); err != nil {
			return err
		}
	}

	if store := openHistory(e.cfg.HistoryPath, e.log); store != nil {
		defer store.Close()
		p.SetHistory(store)
	}

	term := progress.NewTerminal(cmd.ErrOrStderr())
	sink := progress.Multi{term}
	if e.cfg.ProgressAddr != "" {
		hub, stop, err := serveProgress(e.cfg.ProgressAddr, job.ID, e.log)
		if err != nil {
			return err
		}
		defer stop()
		sink = append(sink, hub)
	}

	ctx, stop := interruptContext(p, e.log)
	defer stop()

	e.log.Info("Dubbing %s (%s) into %s", filepath.Base(job.SourcePath), mode, job.OutputPath())
	res, err := p.Run(ctx, job, sink)
	term.Finish()
	if err != nil {
		if errors.Is(err, models.ErrJobLocked) {
			return fmt.Errorf("%w; use 'anime-dubber discard' if no other run is active", err)
		}
		return err
	}

	out := cmd.OutOrStdout()
	switch res.Status {
	case models.StatusCancelled:
		fmt.Fprintf(out, "Cancelled. Run the same command again to resume.\n")
	default:
		if len(res.Reused) > 0 {
			fmt.Fprintf(out, "Resumed: reused %d completed stages\n", len(res.Reused))
		}
		fmt.Fprintf(out, "Dubbed video: %s\n", res.OutputPath)
	}
	return nil
}

func openHistory(path string, log *logger.Logger) *history.Store {
	if path == "" {
		return nil
	}
	store, err := history.Open(path)
	if err != nil {
		log.Warn("Job history disabled: %v", err)
		return nil
	}
	return store
}

// serveProgress starts a websocket endpoint at addr/progress.
func serveProgress(addr, jobID string, log *logger.Logger) (*progress.Hub, func(), error) {
	hub := progress.NewHub(jobID, log)
	mux := http.NewServeMux()
	mux.Handle("/progress", hub)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	select {
	case err := <-errc:
		return nil, nil, fmt.Errorf("progress server: %w", err)
	case <-time.After(100 * time.Millisecond):
	}
	log.Info("Progress available at ws://%s/progress", addr)

	stop := func() {
		hub.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return hub, stop, nil
}

// interruptContext makes the first interrupt stop the job at the next stage
// boundary and a second one abort the running stage.
func interruptContext(p *services.Pipeline, log *logger.Logger) (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	go func() {
		n := 0
		for range sigs {
			n++
			if n == 1 {
				log.Warn("Interrupted: stopping after the current stage (interrupt again to abort it)")
				p.Cancel()
				continue
			}
			log.Warn("Interrupted again: aborting the current stage")
			cancel()
		}
	}()

	return ctx, func() {
		signal.Stop(sigs)
		close(sigs)
		cancel()
	}
}
