// Command hireflowctl drives the assessment engines against a remote
// hireflow server: it can publish a template for a job and take an
// assessment interactively on the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/soaringjerry/hireflow/internal/client"
	"github.com/soaringjerry/hireflow/internal/logger"
	"github.com/soaringjerry/hireflow/internal/models"
	"github.com/soaringjerry/hireflow/internal/services"
	"github.com/soaringjerry/hireflow/internal/utils"
)

const usage = `usage: hireflowctl <command> [flags]

commands:
  template   build and publish an assessment for a job
  take       answer a job's assessment on the terminal
`

func main() {
	_ = godotenv.Load()
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "template":
		err = runTemplate(ctx, os.Args[2:])
	case "take":
		err = runTake(ctx, os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type commonFlags struct {
	server  *string
	timeout *time.Duration
	level   *string
}

func addCommon(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		server:  fs.String("server", utils.SafeEnv("HIREFLOW_SERVER", "http://127.0.0.1:8080"), "hireflow server base URL"),
		timeout: fs.Duration("timeout", 10*time.Second, "per-request timeout"),
		level:   fs.String("log-level", utils.SafeEnv("LOG_LEVEL", "warn"), "log level"),
	}
}

func runTemplate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("template", flag.ExitOnError)
	common := addCommon(fs)
	jobID := fs.String("job", "", "job id (required)")
	title := fs.String("title", "", "job title")
	blank := fs.Bool("blank", false, "start from an empty assessment with one section")
	_ = fs.Parse(args)
	if *jobID == "" {
		return errors.New("-job is required")
	}

	log := logger.NewTo("hireflowctl", *common.level, os.Stderr)
	c := client.NewPersistenceClient(*common.server, *common.timeout)

	var start models.Assessment
	if existing, err := c.GetAssessment(ctx, *jobID); err != nil {
		return err
	} else if existing != nil {
		start = *existing
	} else if *blank {
		start = services.BlankAssessment(*jobID, *title)
	} else {
		start = services.DefaultAssessment(*jobID, *title)
	}

	b := services.NewBuilder(start, c)
	b.SetLogger(log.Component("builder"))
	if resumed, err := b.LoadDraft(ctx); err != nil {
		log.Component("builder").WithError(err).Warn("load draft")
	} else if resumed {
		fmt.Println("continuing unsaved draft")
	}
	if len(b.Assessment().Sections) == 0 {
		a := b.AddSection()
		b.AddQuestion(a.Sections[0].ID, models.ShortText)
	}
	if *title != "" {
		b.UpdateAssessment(services.AssessmentPatch{Title: title})
	}
	// the draft survives a failed Save
	if err := b.SaveDraft(ctx); err != nil {
		log.Component("builder").WithError(err).Warn("save draft")
	}

	saved, err := b.Save(ctx, c)
	if err != nil {
		return err
	}
	fmt.Printf("saved %s for job %s: %d sections, %d questions\n", saved.ID, saved.JobID, len(saved.Sections), saved.QuestionCount())
	return nil
}

func runTake(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("take", flag.ExitOnError)
	common := addCommon(fs)
	jobID := fs.String("job", "", "job id (required)")
	candidateID := fs.String("candidate", "", "candidate id")
	name := fs.String("name", "", "candidate name")
	email := fs.String("email", "", "candidate email")
	lang := fs.String("lang", "en", "message language")
	_ = fs.Parse(args)
	if *jobID == "" {
		return errors.New("-job is required")
	}

	log := logger.NewTo("hireflowctl", *common.level, os.Stderr)
	c := client.NewPersistenceClient(*common.server, *common.timeout)
	a, err := c.GetAssessment(ctx, *jobID)
	if err != nil {
		return err
	}
	if a == nil {
		return services.ErrAssessmentNotFound
	}

	s := services.NewSession(*a, c, c)
	s.SetLogger(log.Component("session"))
	s.SetLocale(*lang)
	s.SetCandidate(services.Candidate{ID: *candidateID, Name: *name, Email: *email})

	saved, err := runSession(ctx, s, os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	fmt.Printf("submitted response %s\n", saved.ID)
	return nil
}
