// cmd/xybclock/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"xybclock/internal/common/config"
	"xybclock/internal/common/logger"
	"xybclock/internal/devicecode"
	"xybclock/internal/session"
	"xybclock/internal/task"
	"xybclock/internal/xyb"
)

const usage = `usage: xybclock <command> [flags]

commands:
  capture   run the local listener and wait for a one-time code
  signin    clock in  (add -capture to grab a fresh code first)
  signout   clock out (add -capture to grab a fresh code first)
  photo     photo clock-in with -image <path>
  plan      fetch the clock plan (doubles as a session validity check)
  journal   weekly journals: -list | -year/-month | -title/-body/-start/-end
  logout    drop the cached session
`

// app bundles everything a subcommand needs.
type app struct {
	cfg      *config.Config
	log      logger.Logger
	client   *xyb.Client
	sessions *session.Manager
	runner   *task.Runner
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				zapLog.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	client := xyb.NewClient(xyb.Options{
		BaseURL:   cfg.Remote.BaseURL,
		UserAgent: cfg.UserAgent,
		Profile: devicecode.Profile{
			Brand:    cfg.Device.Brand,
			Model:    cfg.Device.Model,
			System:   cfg.Device.System,
			Platform: cfg.Device.Platform,
		},
		Timeout:        config.GetDuration(cfg.Remote.Timeout),
		JournalTimeout: config.GetDuration(cfg.Remote.JournalTimeout),
	}, log)
	cache := session.NewCacheStore(cfg.Session.CacheFile, config.GetDuration(cfg.Session.TTL), log)

	a := &app{
		cfg:      cfg,
		log:      log,
		client:   client,
		sessions: session.NewManager(client, cache, log),
		runner:   task.NewRunner(log),
	}

	var runErr error
	switch os.Args[1] {
	case "capture":
		runErr = a.runCapture(ctx)
	case "signin":
		runErr = a.runSign(ctx, os.Args[2:], xyb.ClockIn)
	case "signout":
		runErr = a.runSign(ctx, os.Args[2:], xyb.ClockOut)
	case "photo":
		runErr = a.runPhoto(ctx, os.Args[2:])
	case "plan":
		runErr = a.runPlan(ctx, os.Args[2:])
	case "journal":
		runErr = a.runJournal(ctx, os.Args[2:])
	case "logout":
		runErr = a.sessions.Invalidate()
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if runErr != nil {
		zapLog.Error("command failed", zap.Error(runErr))
		os.Exit(1)
	}
}

func (a *app) runCapture(ctx context.Context) error {
	return a.runner.Run(ctx, "capture", func(ctx context.Context, _ string) error {
		out, err := task.NewCaptureTask(a.cfg.Capture, a.log).Execute(ctx)
		if err != nil {
			return err
		}
		return printJSON(out)
	})
}

// obtainCode resolves the one-time code for a workflow: the explicit flag
// wins, then an inline capture when requested. An empty result is fine when
// the cached session will carry the run.
func (a *app) obtainCode(ctx context.Context, code string, doCapture bool) (string, error) {
	if code != "" || !doCapture {
		return code, nil
	}
	out, err := task.NewCaptureTask(a.cfg.Capture, a.log).Execute(ctx)
	if err != nil {
		return "", err
	}
	return out.Code, nil
}

func (a *app) runSign(ctx context.Context, args []string, action xyb.ClockAction) error {
	fs := flag.NewFlagSet("sign", flag.ExitOnError)
	code := fs.String("code", "", "one-time code from a capture run")
	doCapture := fs.Bool("capture", false, "run a capture first to obtain the code")
	noCache := fs.Bool("no-cache", false, "ignore the cached session")
	fs.Parse(args)

	return a.runner.Run(ctx, "sign", func(ctx context.Context, _ string) error {
		c, err := a.obtainCode(ctx, *code, *doCapture)
		if err != nil {
			return err
		}
		out, err := task.NewSignTask(a.client, a.sessions, a.cfg.Location, a.log).
			Execute(ctx, &task.SignInput{Code: c, Action: action, UseCache: !*noCache})
		if err != nil {
			return err
		}
		return printJSON(out)
	})
}

func (a *app) runPhoto(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("photo", flag.ExitOnError)
	code := fs.String("code", "", "one-time code from a capture run")
	doCapture := fs.Bool("capture", false, "run a capture first to obtain the code")
	noCache := fs.Bool("no-cache", false, "ignore the cached session")
	image := fs.String("image", "", "path of the clock photo")
	fs.Parse(args)

	return a.runner.Run(ctx, "photo", func(ctx context.Context, _ string) error {
		c, err := a.obtainCode(ctx, *code, *doCapture)
		if err != nil {
			return err
		}
		out, err := task.NewPhotoSignTask(a.client, a.sessions, a.cfg.Location, a.log).
			Execute(ctx, &task.PhotoSignInput{Code: c, ImagePath: *image, UseCache: !*noCache})
		if err != nil {
			return err
		}
		return printJSON(out)
	})
}

func (a *app) runPlan(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)
	code := fs.String("code", "", "one-time code from a capture run")
	noCache := fs.Bool("no-cache", false, "ignore the cached session")
	fs.Parse(args)

	return a.runner.Run(ctx, "plan", func(ctx context.Context, _ string) error {
		out, err := task.NewPlanTask(a.client, a.sessions, a.log).
			Execute(ctx, *code, !*noCache)
		if err != nil {
			return err
		}
		return printJSON(out)
	})
}

func (a *app) runJournal(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("journal", flag.ExitOnError)
	code := fs.String("code", "", "one-time code from a capture run")
	noCache := fs.Bool("no-cache", false, "ignore the cached session")
	list := fs.Bool("list", false, "list the year/month buckets that have weeks")
	year := fs.Int("year", 0, "year of the week listing")
	month := fs.Int("month", 0, "month of the week listing")
	title := fs.String("title", "", "journal title")
	body := fs.String("body", "", "journal body")
	start := fs.String("start", "", "week start date, YYYY-MM-DD")
	end := fs.String("end", "", "week end date, YYYY-MM-DD")
	public := fs.Bool("public", false, "make the entry publicly visible")
	fs.Parse(args)

	return a.runner.Run(ctx, "journal", func(ctx context.Context, _ string) error {
		j := task.NewJournalTask(a.client, a.sessions, a.log)
		switch {
		case *list:
			data, err := j.ListMonths(ctx, *code, !*noCache)
			if err != nil {
				return err
			}
			return printRaw(data)
		case *year != 0 && *month != 0 && *title == "":
			data, err := j.ListWeeks(ctx, *code, !*noCache, *year, *month)
			if err != nil {
				return err
			}
			return printRaw(data)
		default:
			openType := 2
			if *public {
				openType = 1
			}
			data, err := j.Submit(ctx, &task.JournalSubmitInput{
				Code:      *code,
				UseCache:  !*noCache,
				Title:     *title,
				Body:      *body,
				StartDate: *start,
				EndDate:   *end,
				OpenType:  openType,
			})
			if err != nil {
				return err
			}
			return printRaw(data)
		}
	})
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRaw(data json.RawMessage) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		_, werr := os.Stdout.Write(data)
		return werr
	}
	return printJSON(v)
}
