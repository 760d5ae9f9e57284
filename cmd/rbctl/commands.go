package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Alwanly/remotebuild-client/internal/config"
	"github.com/Alwanly/remotebuild-client/pkg/jobs"
	"github.com/Alwanly/remotebuild-client/pkg/logger"
	"github.com/Alwanly/remotebuild-client/pkg/remotebuild"
	"github.com/Alwanly/remotebuild-client/pkg/request"
	"github.com/Alwanly/remotebuild-client/pkg/watch"
	"github.com/alecthomas/kong"
	"golang.org/x/sync/errgroup"
)

// Globals is bound into every command's Run.
type Globals struct {
	Ctx           context.Context
	Client        *remotebuild.Client
	Log           *logger.CanonicalLogger
	Out           io.Writer
	JSON          bool
	ConfigPath    string
	WatchInterval time.Duration
}

type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" type:"path"`
	JSON    bool             `help:"Print results as JSON"`
	Verbose bool             `short:"v" help:"Enable debug logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Login    LoginCmd    `cmd:"" help:"Log in and store the session token"`
	Register RegisterCmd `cmd:"" help:"Create an account and store the session token"`
	Jobs     JobsCmd     `cmd:"" help:"List running and past jobs"`
	Info     InfoCmd     `cmd:"" help:"Show information about one or more jobs"`
	Cancel   CancelCmd   `cmd:"" help:"Cancel a job"`
	Pause    PauseCmd    `cmd:"" help:"Pause a running job"`
	Resume   ResumeCmd   `cmd:"" help:"Resume a paused job"`
	Aur      AurCmd      `cmd:"" help:"Build an AUR package"`
	Watch    WatchCmd    `cmd:"" help:"Wait until jobs finish"`
}

type Credentials struct {
	Username string `arg:"" help:"Account name"`
	Password string `env:"RB_PASSWORD" help:"Account password" required:""`
	NoSave   bool   `help:"Do not write the token to the configuration file"`
}

type LoginCmd struct {
	Credentials `embed:""`
}

func (c *LoginCmd) Run(g *Globals) error {
	res, err := g.Client.Login(g.Ctx, c.Username, c.Password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	return c.store(g, res.Response.Token, res.Message)
}

type RegisterCmd struct {
	Credentials `embed:""`
}

func (c *RegisterCmd) Run(g *Globals) error {
	res, err := g.Client.Register(g.Ctx, c.Username, c.Password)
	if err != nil {
		return fmt.Errorf("register failed: %w", err)
	}
	return c.store(g, res.Response.Token, res.Message)
}

func (c *Credentials) store(g *Globals, token, message string) error {
	if !c.NoSave && g.ConfigPath != "" {
		if err := config.SaveToken(g.ConfigPath, c.Username, token); err != nil {
			return err
		}
		g.Log.Info("session token saved", logger.String("path", g.ConfigPath))
	}
	if g.JSON {
		return printJSON(g.Out, map[string]string{"token": token, "message": message})
	}
	_, err := fmt.Fprintf(g.Out, "%s\n", message)
	return err
}

type JobsCmd struct {
	Limit int32 `short:"l" help:"Maximum number of jobs" default:"10"`
}

func (c *JobsCmd) Run(g *Globals) error {
	res, err := g.Client.ListJobs(g.Ctx, c.Limit)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}
	if g.JSON {
		return printJSON(g.Out, res.Response.Jobs)
	}
	for _, j := range res.Response.Jobs {
		printJob(g.Out, j)
	}
	return nil
}

type InfoCmd struct {
	IDs []uint32 `arg:"" name:"id" help:"Job ids"`
}

func (c *InfoCmd) Run(g *Globals) error {
	infos := make([]jobs.Info, len(c.IDs))

	eg, ctx := errgroup.WithContext(g.Ctx)
	eg.SetLimit(4)
	for i, id := range c.IDs {
		eg.Go(func() error {
			res, err := g.Client.JobInfo(ctx, id)
			if err != nil {
				return fmt.Errorf("job %d: %w", id, err)
			}
			infos[i] = res.Response
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	if g.JSON {
		return printJSON(g.Out, infos)
	}
	for _, j := range infos {
		printJob(g.Out, j)
	}
	return nil
}

type CancelCmd struct {
	ID uint32 `arg:"" help:"Job id"`
}

func (c *CancelCmd) Run(g *Globals) error {
	if err := g.Client.CancelJob(g.Ctx, c.ID); err != nil {
		return fmt.Errorf("cancel job %d: %w", c.ID, err)
	}
	_, err := fmt.Fprintf(g.Out, "job %d cancelled\n", c.ID)
	return err
}

type PauseCmd struct {
	ID uint32 `arg:"" help:"Job id"`
}

func (c *PauseCmd) Run(g *Globals) error {
	if err := g.Client.SetJobState(g.Ctx, c.ID, jobs.StatusPaused); err != nil {
		return fmt.Errorf("pause job %d: %w", c.ID, err)
	}
	_, err := fmt.Fprintf(g.Out, "job %d paused\n", c.ID)
	return err
}

type ResumeCmd struct {
	ID uint32 `arg:"" help:"Job id"`
}

func (c *ResumeCmd) Run(g *Globals) error {
	if err := g.Client.SetJobState(g.Ctx, c.ID, jobs.StatusRunning); err != nil {
		return fmt.Errorf("resume job %d: %w", c.ID, err)
	}
	_, err := fmt.Fprintf(g.Out, "job %d resumed\n", c.ID)
	return err
}

type AurCmd struct {
	Package     string `arg:"" help:"AUR package name"`
	NoCCache    bool   `name:"no-ccache" help:"Build without ccache"`
	DMUser      string `name:"dm-user" env:"DM_USER" help:"DataManager user to upload to"`
	DMToken     string `name:"dm-token" env:"DM_TOKEN" help:"DataManager session token"`
	DMHost      string `name:"dm-host" env:"DM_HOST" help:"DataManager host"`
	DMNamespace string `name:"dm-namespace" env:"DM_NAMESPACE" help:"DataManager namespace"`
	Watch       bool   `short:"w" help:"Wait for the build to finish"`
}

func (c *AurCmd) Run(g *Globals) error {
	build := g.Client.NewAURBuild(c.Package)
	if c.NoCCache {
		build.WithoutCCache()
	}
	if c.DMUser != "" || c.DMToken != "" || c.DMHost != "" {
		build.WithDataManager(c.DMUser, c.DMToken, c.DMHost, c.DMNamespace)
	}

	res, err := build.CreateJob(g.Ctx)
	if err != nil {
		return fmt.Errorf("create aur job: %w", err)
	}
	if g.JSON && !c.Watch {
		return printJSON(g.Out, res.Response)
	}
	fmt.Fprintf(g.Out, "job %d queued at position %d\n", res.Response.ID, res.Response.Position)

	if !c.Watch {
		return nil
	}
	return (&WatchCmd{IDs: []uint32{res.Response.ID}}).Run(g)
}

type WatchCmd struct {
	IDs      []uint32      `arg:"" name:"id" help:"Job ids"`
	Interval time.Duration `help:"Poll interval (defaults to the configured watch interval)"`
}

func (c *WatchCmd) Run(g *Globals) error {
	opts := watch.DefaultOptions()
	opts.Logger = g.Log
	if g.WatchInterval > 0 {
		opts.Interval = g.WatchInterval
	}
	if c.Interval > 0 {
		opts.Interval = c.Interval
	}
	if !g.JSON {
		opts.OnChange = func(info jobs.Info) {
			fmt.Fprintf(g.Out, "job %d: %s\n", info.ID, info.Status)
		}
	}

	final, err := watch.Jobs(g.Ctx, g.Client, c.IDs, opts)
	if err != nil {
		return err
	}
	if g.JSON {
		out := make([]jobs.Info, 0, len(c.IDs))
		for _, id := range c.IDs {
			out = append(out, final[id])
		}
		return printJSON(g.Out, out)
	}

	for _, id := range c.IDs {
		if final[id].Status != jobs.StatusDone {
			return fmt.Errorf("job %d finished as %s", id, final[id].Status)
		}
	}
	return nil
}

func printJob(w io.Writer, j jobs.Info) {
	fmt.Fprintf(w, "%-6d %-10s %-5s pos=%-3d upload=%-11s since=%s took=%s  %s\n",
		j.ID, j.Status, j.BuildType, j.Position, j.UploadType,
		j.RunningSince.Local().Format(time.RFC3339), j.Duration.Round(time.Second), j.Info)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Exit codes reported by rbctl.
const (
	exitFailure   = 1
	exitUsage     = 2
	exitTransport = 3
	exitProtocol  = 4
	exitServer    = 5
	exitCanceled  = 130
)

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	fmt.Fprintln(os.Stderr, err)
	return codeFor(err)
}

// codeFor maps an error to an exit code by its request kind.
func codeFor(err error) int {
	if errors.Is(err, context.Canceled) {
		return exitCanceled
	}
	var reqErr *request.Error
	if !errors.As(err, &reqErr) {
		return exitFailure
	}
	switch reqErr.Kind {
	case request.KindInvalidConfig, request.KindInvalidState, request.KindConsumed:
		return exitUsage
	case request.KindRequest:
		return exitTransport
	case request.KindHTTPNotOk, request.KindInvalidHeaders, request.KindDecode:
		return exitProtocol
	case request.KindError:
		return exitServer
	default:
		return exitFailure
	}
}
