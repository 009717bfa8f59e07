package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"anime-dubber/internal/checkpoint"
	"anime-dubber/internal/logger"
	"anime-dubber/internal/media"
	"anime-dubber/models"
	"anime-dubber/services"
)

func newStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [video]",
		Short: "Show external tool availability, or a video's resumable progress",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			if len(args) == 0 {
				return checkTools(cmd.Context(), cmd.OutOrStdout(), e.cfg, e.log)
			}
			mode := models.ModeSpeech
			if subs, _ := cmd.Flags().GetBool("subtitles"); subs {
				mode = models.ModeSubtitles
			}
			job, err := buildJob(cmd, e.cfg, args[0], mode)
			if err != nil {
				return err
			}
			return printJobStatus(cmd.OutOrStdout(), job)
		},
	}
	addJobFlags(cmd)
	cmd.Flags().Bool("subtitles", false, "The job was started with the ocr command")
	return cmd
}

func newDiscardCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discard <video>",
		Short: "Delete a video's checkpoint and intermediate files so the next run starts over",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			job, err := buildJob(cmd, e.cfg, args[0], models.ModeSpeech)
			if err != nil {
				return err
			}
			if force, _ := cmd.Flags().GetBool("force"); force {
				if err := checkpoint.ForceUnlock(job.CheckpointPath()); err != nil {
					return err
				}
			}
			if err := services.NewPipeline(e.cfg, services.Providers{}, e.log).Discard(job); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Discarded progress for %s\n", job.OutputName)
			return nil
		},
	}
	addJobFlags(cmd)
	cmd.Flags().Bool("force", false, "Remove a stale lock left by a crashed run")
	return cmd
}

func checkTools(ctx context.Context, out io.Writer, cfg *models.Config, log *logger.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	report := func(name string, err error) {
		if err != nil {
			fmt.Fprintf(out, "✗ %-10s %v\n", name, err)
			return
		}
		fmt.Fprintf(out, "✓ %s\n", name)
	}

	report("ffmpeg", media.NewFFmpeg(cfg.FFmpegPath, cfg.FFprobePath, log).CheckInstalled(ctx))
	if cfg.OCRProvider == models.ProviderTesseract {
		report("tesseract", services.NewTesseract(cfg.TesseractPath, cfg.OCRLanguage).CheckInstalled(ctx))
	}

	creds := func(name string, ok bool, hint string) {
		if ok {
			fmt.Fprintf(out, "✓ %s\n", name)
		} else {
			fmt.Fprintf(out, "✗ %-10s %s\n", name, hint)
		}
	}
	usesGoogle := cfg.TranscriptionProvider == models.ProviderGoogle || cfg.TranslationProvider == models.ProviderGoogle ||
		cfg.TTSProvider == models.ProviderGoogle || cfg.OCRProvider == models.ProviderGoogle
	usesOpenAI := cfg.TranscriptionProvider == models.ProviderOpenAI || cfg.TranslationProvider == models.ProviderOpenAI ||
		cfg.TTSProvider == models.ProviderOpenAI
	if usesGoogle {
		creds("google", cfg.GoogleAPIKey != "" || cfg.GoogleAccessToken != "", "set GOOGLE_API_KEY or GOOGLE_ACCESS_TOKEN")
	}
	if usesOpenAI {
		creds("openai", cfg.OpenAIKey != "", "set OPENAI_API_KEY")
	}
	return nil
}

func printJobStatus(out io.Writer, job *models.Job) error {
	fmt.Fprintf(out, "Output:     %s\n", job.OutputPath())
	fmt.Fprintf(out, "Checkpoint: %s\n", job.CheckpointPath())

	if _, err := os.Stat(job.CheckpointPath() + ".lock"); err == nil {
		fmt.Fprintln(out, "Locked:     yes (a run is active, or crashed; see discard --force)")
	}

	cp, err := checkpoint.NewStore(job.CheckpointPath()).Load()
	if err != nil {
		return err
	}
	if cp == nil {
		if _, err := os.Stat(job.OutputPath()); err == nil {
			fmt.Fprintln(out, "Status:     done")
		} else {
			fmt.Fprintln(out, "Status:     not started")
		}
		return nil
	}

	_, normalized := cp.Stages[string(models.StageNormalize)]
	plan := models.Plan(cp.Mode, normalized)
	validation := cp.Validate(job.CheckpointPath(), job.SourcePath, cp.Mode, plan)

	fmt.Fprintf(out, "Job:        %s (%s, updated %s)\n", cp.JobID, cp.Mode, cp.UpdatedAt)
	for _, st := range plan {
		if artifact, ok := cp.Completed(st); ok {
			fmt.Fprintf(out, "  ✓ %-11s %s\n", st, filepath.Base(artifact))
		} else {
			fmt.Fprintf(out, "  · %s\n", st)
		}
	}
	if validation != nil {
		fmt.Fprintf(out, "Cannot resume: %v\n", validation)
	} else if f := cp.Frontier(plan); f != "" {
		fmt.Fprintf(out, "Resumes after %s\n", f)
	}
	return nil
}
