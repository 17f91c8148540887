package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/linkbridge/internal/chain/sol"
	"github.com/mrz1836/linkbridge/internal/config"
	"github.com/mrz1836/linkbridge/internal/frame"
	"github.com/mrz1836/linkbridge/internal/metrics"
	"github.com/mrz1836/linkbridge/internal/output"
	linkerr "github.com/mrz1836/linkbridge/pkg/errors"
	"github.com/mrz1836/linkbridge/pkg/link"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	openMetricsAddr string
	openLanguage    string
	openTheme       string
)

const metricsShutdownTimeout = 5 * time.Second

// openCmd runs a link session until it exits.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var openCmd = &cobra.Command{
	Use:   "open <link-token>",
	Short: "Open a link session",
	Long: `Open a hosted link session and serve its wallet requests with the
configured wallets until the session exits or the command is interrupted.

Business events are printed as they arrive. State-changing wallet requests
ask for approval on the terminal.`,
	Example: `  linkbridge open <link-token>
  linkbridge open <link-token> --language system --metrics-addr :9464`,
	GroupID: groupSession,
	Args:    cobra.ExactArgs(1),
	RunE:    runOpen,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(openCmd)

	openCmd.Flags().StringVar(&openMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	openCmd.Flags().StringVar(&openLanguage, "language", "", "link language, or \"system\" for the host locale")
	openCmd.Flags().StringVar(&openTheme, "theme", "", "link theme: light, dark, system")
}

func runOpen(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	if err := requireConfig(cc.Cfg); err != nil {
		return err
	}

	base := commandContext(cmd)
	ctx, stop := signal.NotifyContext(base, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var network sol.Network = sol.NewRPCNetwork(cc.Cfg.Networks.Solana.RPC)
	if cc.Metrics != nil {
		network = metrics.InstrumentNetwork(network, cc.Metrics)
	}

	env, release, err := buildEnvironment(cc.Cfg, cc.walletDeps(network))
	if err != nil {
		return err
	}
	defer release()

	addr := openMetricsAddr
	if addr == "" {
		addr = cc.Cfg.Metrics.Addr
	}
	if addr != "" && cc.Metrics != nil {
		srv := serveMetrics(addr, cc.Metrics, cc.Log)
		defer shutdownMetrics(srv, cc.Log)
	}

	reporter := newSessionReporter(cc.Fmt)
	l := link.New(reporter.options(linkOptions(cc.Cfg)), openSettings(cc, env, network)...)

	if err := l.Open(ctx, args[0], nil); err != nil {
		return err
	}
	cc.Log.Info("link session %s opened", l.SessionID())

	select {
	case exit := <-reporter.exited:
		l.Wait()
		return exit.err()
	case <-ctx.Done():
		l.Close()
		l.Wait()
		return nil
	}
}

// linkOptions maps the link section of the config and the command flags.
func linkOptions(c *config.Config) link.Options {
	opts := link.Options{
		ClientID: c.Link.ClientID,
		Language: c.Link.Language,
		Theme:    c.Link.Theme,
	}
	if openLanguage != "" {
		opts.Language = openLanguage
	}
	if openTheme != "" {
		opts.Theme = openTheme
	}
	return opts
}

func openSettings(cc *CommandContext, env *link.Environment, network sol.Network) []link.Option {
	with := []link.Option{
		link.WithEnvironment(env),
		link.WithWindow(link.NewWindow(cc.Cfg.Link.Origin)),
		link.WithPresenter(frame.NewPresenter(frame.WithLogger(cc.Log))),
		link.WithSolanaNetwork(network),
		link.WithLogger(cc.Log),
	}
	if secs := cc.Cfg.Networks.EVM.ConfirmationTimeoutSeconds; secs > 0 {
		with = append(with, link.WithConfirmationTimeout(time.Duration(secs)*time.Second))
	}
	if cc.Metrics != nil {
		with = append(with, link.WithRecorder(cc.Metrics))
	}
	return with
}

// serveMetrics starts the Prometheus endpoint in the background.
func serveMetrics(addr string, m *metrics.Metrics, logger *config.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server: %v", err)
		}
	}()
	logger.Info("serving metrics on %s", addr)
	return srv
}

func shutdownMetrics(srv *http.Server, logger *config.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("stopping metrics server: %v", err)
	}
}

// sessionExit is the outcome handed to OnExit.
type sessionExit struct {
	ErrorMessage string               `json:"errorMessage,omitempty"`
	Summary      *link.SessionSummary `json:"summary,omitempty"`
}

func (e sessionExit) err() error {
	if e.ErrorMessage == "" {
		return nil
	}
	return linkerr.WithDetails(linkerr.ErrSessionFailed, map[string]string{"error": e.ErrorMessage})
}

// eventLine is the JSON shape of a printed business event.
type eventLine struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// sessionReporter prints session callbacks. JSON output streams every frame
// event as one JSON line; text output prints one line per notable event.
type sessionReporter struct {
	mu     sync.Mutex
	f      *output.Formatter
	exited chan sessionExit
}

func newSessionReporter(f *output.Formatter) *sessionReporter {
	return &sessionReporter{f: f, exited: make(chan sessionExit, 1)}
}

// options installs the reporter's callbacks into opts.
func (r *sessionReporter) options(opts link.Options) link.Options {
	opts.OnEvent = r.onEvent
	opts.OnExit = r.onExit
	opts.OnIntegrationConnected = r.onIntegrationConnected
	opts.OnTransferFinished = r.onTransferFinished
	return opts
}

func (r *sessionReporter) onEvent(msg link.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.f.IsJSON() {
		line := eventLine{Event: msg.Type}
		if len(msg.Payload) > 0 {
			line.Payload = msg.Payload
		}
		_ = r.f.Emit(line)
		return
	}
	if msg.Type == link.EventPageLoaded {
		_ = r.f.Println("Link page loaded")
	}
}

func (r *sessionReporter) onIntegrationConnected(p link.LinkPayload) {
	if r.f.IsJSON() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case p.AccessToken != nil:
		_ = r.f.Printf("Connected %s (%d accounts)\n", p.AccessToken.BrokerName, len(p.AccessToken.AccountTokens))
	case p.DelayedAuth != nil:
		_ = r.f.Printf("Connected %s (delayed authentication)\n", p.DelayedAuth.BrokerName)
	}
}

func (r *sessionReporter) onTransferFinished(p link.TransferFinishedPayload) {
	if r.f.IsJSON() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if !p.Succeeded() {
		_ = r.f.Printf("Transfer failed: %s\n", p.ErrorMessage)
		return
	}
	_ = r.f.Printf("Transfer sent: %s %s to %s (tx %s)\n", p.Amount, p.Symbol, p.ToAddress, p.TxID)
}

func (r *sessionReporter) onExit(errorMessage string, summary *link.SessionSummary) {
	exit := sessionExit{ErrorMessage: errorMessage, Summary: summary}

	r.mu.Lock()
	if r.f.IsJSON() {
		_ = r.f.Emit(eventLine{Event: "exit", Payload: exit})
	} else {
		if errorMessage != "" {
			_ = r.f.Printf("Session exited: %s\n", errorMessage)
		} else {
			_ = r.f.Println("Session exited")
		}
		if summary != nil && summary.Page != "" {
			_ = r.f.Printf("Last page: %s\n", summary.Page)
		}
	}
	r.mu.Unlock()

	select {
	case r.exited <- exit:
	default:
	}
}
