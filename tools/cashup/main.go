package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"cashup/internal/observability/logging"
	"cashup/internal/reconciliation/application"
	reconciliation "cashup/internal/reconciliation/domain"
	"cashup/internal/reconciliation/infrastructure/httpgateway"
	"cashup/internal/reconciliation/infrastructure/memory"
	"cashup/internal/reconciliation/infrastructure/redisstore"
)

type config struct {
	baseURL   string
	token     string
	employee  string
	redisAddr string
	logLevel  string
	timeout   time.Duration
}

func main() {
	_ = godotenv.Load()
	cfg, err := parseFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := logging.New(cfg.logLevel, "text", os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client, err := httpgateway.NewClient(cfg.baseURL, cfg.token)
	if err != nil {
		logger.Fatalf("gateway client error: %v", err)
	}
	submitter, err := application.NewSubmitter(client, nil, nil, logger)
	if err != nil {
		logger.Fatalf("submitter error: %v", err)
	}

	var store application.Autosave = memory.NewAutosave()
	if cfg.redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.redisAddr})
		defer rdb.Close()
		redisDrafts, err := redisstore.NewAutosave(rdb)
		if err != nil {
			logger.Fatalf("draft store error: %v", err)
		}
		store = redisDrafts
	}

	loadCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	wizard, err := application.NewWizard(loadCtx, client, submitter, cfg.employee,
		application.WithAutosave(store, "cli:"+cfg.employee),
		application.WithLogger(logger),
	)
	cancel()
	if err != nil {
		logger.Fatalf("wizard error: %v", err)
	}
	defer wizard.Close()

	session := &session{
		wizard: wizard,
		in:     bufio.NewScanner(os.Stdin),
		out:    os.Stdout,
		logger: logger,
	}
	if err := session.run(ctx, cfg.timeout); err != nil && !errors.Is(err, io.EOF) {
		logger.Fatal(err)
	}
}

func parseFlags() (config, error) {
	var cfg config
	flag.StringVar(&cfg.baseURL, "server", getenvDefault("CASHUP_SERVER", "http://localhost:8080"), "cashup server base URL")
	flag.StringVar(&cfg.token, "token", getenvDefault("CASHUP_TOKEN", ""), "bearer token")
	flag.StringVar(&cfg.employee, "employee", getenvDefault("CASHUP_EMPLOYEE", ""), "employee name")
	flag.StringVar(&cfg.redisAddr, "redis", getenvDefault("REDIS_ADDRESS", ""), "redis address for draft autosave (optional)")
	flag.StringVar(&cfg.logLevel, "log-level", getenvDefault("LOG_LEVEL", "warn"), "log level")
	flag.DurationVar(&cfg.timeout, "timeout", 15*time.Second, "request timeout")
	flag.Parse()

	if cfg.token == "" {
		return cfg, errors.New("token is required")
	}
	if cfg.employee == "" {
		return cfg, errors.New("employee is required")
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

type session struct {
	wizard *application.Wizard
	in     *bufio.Scanner
	out    io.Writer
	logger logrus.FieldLogger
}

func (s *session) run(ctx context.Context, timeout time.Duration) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		step, n := s.wizard.Current()
		cfg := s.wizard.Config()
		fmt.Fprintf(s.out, "\n== Step %d of %d: %s ==\n", n, application.StepCount(cfg), step.Label(cfg))

		var err error
		switch step.Kind {
		case application.StepRegister:
			err = s.countRegister(step.RegisterIndex)
		case application.StepSalesAndPOS:
			err = s.enterSales()
		case application.StepBankingReview:
			var done bool
			done, err = s.review(ctx, timeout)
			if err == nil && done {
				return nil
			}
		}
		if err != nil {
			return err
		}
	}
}

// prompt reads one line. Enter keeps the current value.
func (s *session) prompt(label, current string) (string, error) {
	fmt.Fprintf(s.out, "%s [%s]: ", label, current)
	if !s.in.Scan() {
		if err := s.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	value := strings.TrimSpace(s.in.Text())
	if value == "" {
		return current, nil
	}
	return value, nil
}

func (s *session) countRegister(index int) error {
	for _, d := range reconciliation.Denominations() {
		current, err := s.wizard.Draft().Registers[index].Get(d)
		if err != nil {
			return err
		}
		value, err := s.prompt(d.Label(), current)
		if err != nil {
			return err
		}
		if err := s.wizard.SetCount(index, d, value); err != nil {
			fmt.Fprintf(s.out, "  %v\n", err)
		}
	}
	result := s.wizard.Snapshot().Registers[index]
	fmt.Fprintf(s.out, "  counted %s, bankable %s\n", result.Breakdown.Total.StringFixed(2), result.Bankable.StringFixed(2))
	return s.navigate()
}

func (s *session) enterSales() error {
	draft := s.wizard.Draft()
	value, err := s.prompt("Total sales", draft.TotalSales.StringFixed(2))
	if err != nil {
		return err
	}
	_ = s.wizard.SetTotalSales(value)

	value, err = s.prompt("Payouts", draft.Payouts.StringFixed(2))
	if err != nil {
		return err
	}
	_ = s.wizard.SetPayouts(value)

	cfg := s.wizard.Config()
	for i, name := range cfg.POSTerminals.Names {
		if !cfg.POSTerminals.Enabled[i] {
			continue
		}
		value, err = s.prompt(name, draft.TerminalAmounts[i].StringFixed(2))
		if err != nil {
			return err
		}
		_ = s.wizard.SetTerminalAmount(i, value)
	}
	fmt.Fprintf(s.out, "  EFTPOS total %s\n", s.wizard.Snapshot().TerminalsTotal.StringFixed(2))
	return s.navigate()
}

// review returns true once a record has been handed over.
func (s *session) review(ctx context.Context, timeout time.Duration) (bool, error) {
	snap := s.wizard.Snapshot()
	fmt.Fprintf(s.out, "  Expected banking  %s\n", snap.ExpectedBanking.StringFixed(2))
	fmt.Fprintf(s.out, "  Actual banking    %s\n", snap.ActualBanking.StringFixed(2))
	fmt.Fprintf(s.out, "  Variance          %s (%s)\n", snap.Variance.StringFixed(2), snap.Classification)

	draft := s.wizard.Draft()
	value, err := s.prompt("Bag number", draft.BagNumber)
	if err != nil {
		return false, err
	}
	_ = s.wizard.SetBagNumber(value)
	value, err = s.prompt("Comments", draft.Comments)
	if err != nil {
		return false, err
	}
	_ = s.wizard.SetComments(value)

	answer, err := s.prompt("Submit? (y/n/b=back)", "n")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
	case "b", "back":
		s.wizard.Prev()
		return false, nil
	default:
		return false, nil
	}

	submitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	result, err := s.wizard.Submit(submitCtx)
	if err != nil {
		s.logger.WithError(err).Warn("submission failed")
		fmt.Fprintf(s.out, "submit failed, the draft is kept: %v\n", err)
		return false, nil
	}
	fmt.Fprintf(s.out, "submitted as %s\n", result.StoredID)
	return true, nil
}

func (s *session) navigate() error {
	answer, err := s.prompt("Next (n), back (b) or step number", "n")
	if err != nil {
		return err
	}
	switch strings.ToLower(answer) {
	case "n", "next":
		s.wizard.Next()
	case "b", "back":
		s.wizard.Prev()
	default:
		var n int
		if _, err := fmt.Sscanf(answer, "%d", &n); err != nil || !s.wizard.GoToStep(n) {
			fmt.Fprintf(s.out, "  no step %q\n", answer)
		}
	}
	return nil
}
