// Command deckhistory imports protocol analyses and answers labware location,
// stack, deck map and command text questions about their command histories.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"deckhistory/internal/blob"
	"deckhistory/internal/config"
	"deckhistory/internal/core"
	"deckhistory/internal/logging"
	"deckhistory/pkg/domain"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var exitFunc = os.Exit

func main() {
	exitFunc(cli(os.Args[1:], os.Stdout, os.Stderr))
}

type globalFlags struct {
	configPath string
	verbose    bool
	trace      bool
	analysis   string
	run        string
	robot      string
}

func cli(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(context.Background()); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "deckhistory",
		Short:         "Inspect liquid-handling protocol command histories",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "path to a YAML config file")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log at debug level")
	pf.BoolVar(&flags.trace, "trace", false, "write operation spans to stderr as JSON lines")
	pf.StringVar(&flags.analysis, "analysis", "", "analysis file (.json or .cbor) to query without storing it")
	pf.StringVar(&flags.run, "run", "", "stored run id to query")
	pf.StringVar(&flags.robot, "robot", string(domain.RobotOT2), "robot type used for deck geometry")

	root.AddCommand(
		importCmd(flags),
		runsCmd(flags),
		locationCmd(flags),
		stackCmd(flags),
		deckmapCmd(flags),
		textCmd(flags),
		checkCmd(flags),
	)
	return root
}

// session is a configured service plus the run the command targets.
type session struct {
	svc    *core.Service
	blobs  blob.Store
	runID  string
	robot  domain.RobotType
	closer io.Closer
	logger *zap.Logger
}

func (s *session) Close() {
	_ = s.closer.Close()
	_ = s.logger.Sync()
}

func openSession(ctx context.Context, cmd *cobra.Command, flags *globalFlags, needRun bool) (*session, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	level := cfg.Logging.Level
	if flags.verbose {
		level = "debug"
	}
	zl, err := logging.New(level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	opts := []core.ServiceOption{
		core.WithLogger(logging.Adapt(zl)),
		core.WithMaxStackHeight(cfg.History.MaxStackHeight),
	}
	if flags.trace {
		opts = append(opts, core.WithTracer(core.NewJSONTracer(cmd.ErrOrStderr())))
	}

	sess := &session{robot: domain.RobotType(flags.robot), logger: zl}
	if flags.analysis != "" {
		// An analysis file is replayed in memory and never touches the configured stores.
		sess.blobs = blob.NewMemory()
		sess.closer = nopCloser{}
		sess.svc = core.NewInMemoryService(append(opts, core.WithBlobStore(sess.blobs))...)
		doc, _, err := importFile(ctx, sess, flags.analysis, filepath.Base(flags.analysis))
		if err != nil {
			return nil, err
		}
		sess.runID = doc.ID
		if !cmd.Flags().Changed("robot") && doc.RobotType != "" {
			sess.robot = doc.RobotType
		}
		return sess, nil
	}

	store, closer, err := core.OpenHistoryStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	blobs, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	sess.blobs = blobs
	sess.closer = closer
	sess.svc = core.NewService(store, append(opts, core.WithBlobStore(blobs))...)
	sess.runID = flags.run
	if needRun && sess.runID == "" {
		sess.Close()
		return nil, fmt.Errorf("one of --run or --analysis is required")
	}
	return sess, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// importFile uploads a local analysis file under key and imports it.
func importFile(ctx context.Context, sess *session, path, key string) (domain.Analysis, domain.Result, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-selected input file
	if err != nil {
		return domain.Analysis{}, domain.Result{}, fmt.Errorf("read analysis: %w", err)
	}
	if _, err := sess.blobs.Write(ctx, key, bytes.NewReader(data), blob.WriteOptions{Overwrite: true}); err != nil {
		return domain.Analysis{}, domain.Result{}, err
	}
	return sess.svc.ImportAnalysis(ctx, key)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func importCmd(flags *globalFlags) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import [key]",
		Short: "Import an analysis from the artifact store into the history store",
		Long: `Import appends the commands of a protocol analysis to the configured
history store under the analysis id.

The analysis is read from the configured artifact store at key. With --file the
local file is first uploaded to the artifact store (under key, or the file name).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.analysis != "" {
				return fmt.Errorf("import stores analyses; use --file instead of --analysis")
			}
			ctx := cmd.Context()
			sess, err := openSession(ctx, cmd, flags, false)
			if err != nil {
				return err
			}
			defer sess.Close()

			key := ""
			if len(args) == 1 {
				key = args[0]
			}
			var (
				doc domain.Analysis
				res domain.Result
			)
			switch {
			case file != "":
				if key == "" {
					key = filepath.Base(file)
				}
				doc, res, err = importFile(ctx, sess, file, key)
				if err != nil {
					return err
				}
			case key != "":
				doc, res, err = sess.svc.ImportAnalysis(ctx, key)
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("an artifact key or --file is required")
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"runId":      doc.ID,
				"commands":   len(doc.Commands),
				"violations": res.Violations,
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "local analysis file to upload before importing")
	return cmd
}

func runsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List stored runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sess, err := openSession(ctx, cmd, flags, false)
			if err != nil {
				return err
			}
			defer sess.Close()
			runs, err := sess.svc.Runs(ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), runs)
		},
	}
}

func locationCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "location <labwareId>",
		Short: "Show where a labware ends up and the names of where it was loaded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := openSession(ctx, cmd, flags, true)
			if err != nil {
				return err
			}
			defer sess.Close()
			loc, err := sess.svc.LabwareLocation(ctx, sess.runID, args[0])
			if err != nil {
				return err
			}
			info, err := sess.svc.LocationInfo(ctx, sess.runID, args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"labwareId": args[0],
				"location":  loc,
				"loadedIn":  info,
			})
		},
	}
}

func stackCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stack <labwareId>",
		Short: "Show the top of a labware's stack and how many like labware it holds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := openSession(ctx, cmd, flags, true)
			if err != nil {
				return err
			}
			defer sess.Close()
			stack, err := sess.svc.LabwareStack(ctx, sess.runID, args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), stack)
		},
	}
}

func deckmapCmd(flags *globalFlags) *cobra.Command {
	var failed string
	cmd := &cobra.Command{
		Use:   "deckmap",
		Short: "Draw the deck as it stands at the end of the run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sess, err := openSession(ctx, cmd, flags, true)
			if err != nil {
				return err
			}
			defer sess.Close()
			dm, err := sess.svc.DeckMap(ctx, sess.runID, core.DeckMapRequest{RobotType: sess.robot, FailedLabwareID: failed})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), dm)
		},
	}
	cmd.Flags().StringVar(&failed, "failed", "", "labware id whose slot is highlighted")
	return cmd
}

func textCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "text [commandId]",
		Short: "Render pipetting commands as text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := openSession(ctx, cmd, flags, true)
			if err != nil {
				return err
			}
			defer sess.Close()
			if len(args) == 1 {
				text, err := sess.svc.CommandText(ctx, sess.runID, args[0], sess.robot)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]string{args[0]: text})
			}
			texts, err := sess.svc.CommandTexts(ctx, sess.runID, sess.robot)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), texts)
		},
	}
}

func checkCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Evaluate the history rules over a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sess, err := openSession(ctx, cmd, flags, true)
			if err != nil {
				return err
			}
			defer sess.Close()
			res, err := sess.svc.Check(ctx, sess.runID)
			if err != nil {
				return err
			}
			if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if res.HasBlocking() {
				return domain.RuleViolationError{Result: res}
			}
			return nil
		},
	}
}
