package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lutradev/lutra/internal/domain"
	"github.com/lutradev/lutra/internal/usecase/fix"
	"github.com/lutradev/lutra/internal/usecase/review"
)

// ErrVersionRequested indicates the user requested the CLI version and no further work should be done.
var ErrVersionRequested = errors.New("version requested")

// Reviewer runs one review pass over a pull request.
type Reviewer interface {
	Run(ctx context.Context, number int) (review.Result, error)
}

// Fixer generates fixes for the accepted comments of a pass.
type Fixer interface {
	Run(ctx context.Context, pr domain.PullRequest, accepted []domain.ReconciledComment) (fix.Result, error)
}

// Arguments encapsulates IO injected from the host process.
type Arguments struct {
	OutWriter io.Writer
	ErrWriter io.Writer
	InReader  io.Reader
}

// Dependencies captures the collaborators for the CLI. The reviewer
// factories defer pipeline construction until flags are known.
type Dependencies struct {
	Args Arguments

	// NewReviewer builds a platform-backed reviewer; apply controls
	// whether decisions are sent to the platform.
	NewReviewer func(apply bool) Reviewer

	// NewLocalReviewer builds a reviewer over a local repository.
	// Local passes are always dry runs.
	NewLocalReviewer func(repoDir, baseRef, targetRef string) Reviewer

	// Fixer is nil when fix generation is disabled.
	Fixer Fixer

	// Store is nil when persistence is disabled.
	Store review.Store

	// ConfirmFD is the file descriptor probed for interactivity before
	// prompting. Defaults to stdin.
	ConfirmFD int

	Version string
}

// NewRootCommand constructs the root Cobra command.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "v0.0.0"
	}

	root := &cobra.Command{
		Use:   "lutra",
		Short: "Automated pull request review",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	root.SetOut(outWriter)
	root.SetErr(errWriter)

	root.AddCommand(reviewCommand(deps))
	root.AddCommand(fixCommand(deps))

	var showVersion bool
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")
	versionHandler := func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}
		return nil
	}
	root.PersistentPreRunE = versionHandler
	root.PreRunE = versionHandler
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if err := versionHandler(cmd, args); err != nil {
			return err
		}
		return cmd.Help()
	}

	return root
}

func reviewCommand(deps Dependencies) *cobra.Command {
	var apply bool
	var assumeYes bool
	var local bool
	var repoDir string
	var baseRef string
	var targetRef string

	cmd := &cobra.Command{
		Use:   "review [pr-number]",
		Short: "Review a pull request and reconcile its comments",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if local {
				if targetRef == "" {
					return fmt.Errorf("--target is required with --local")
				}
				reviewer := deps.NewLocalReviewer(repoDir, baseRef, targetRef)
				result, err := reviewer.Run(ctx, 0)
				if err != nil {
					return err
				}
				printResult(cmd.OutOrStdout(), result, false)
				return nil
			}

			if len(args) == 0 {
				return fmt.Errorf("pull request number required")
			}
			number, err := parsePRNumber(args[0])
			if err != nil {
				return err
			}

			if apply && !assumeYes && review.IsInteractive(deps.ConfirmFD) {
				ok, err := confirm(cmd, deps.Args.InReader, fmt.Sprintf("This will modify review comments on PR #%d. Continue?", number))
				if err != nil {
					return err
				}
				if !ok {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "aborted")
					return nil
				}
			}

			reviewer := deps.NewReviewer(apply)
			result, err := reviewer.Run(ctx, number)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), result, apply)

			if deps.Store != nil && !result.Skipped {
				if err := recordPass(ctx, deps.Store, result); err != nil {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: record pass: %v\n", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "Create and delete comments on the platform (default is a dry run)")
	cmd.Flags().BoolVar(&assumeYes, "yes", false, "Skip the interactive confirmation before applying")
	cmd.Flags().BoolVar(&local, "local", false, "Review a local repository instead of a platform pull request")
	cmd.Flags().StringVar(&repoDir, "repo-dir", ".", "Local repository directory (with --local)")
	cmd.Flags().StringVar(&baseRef, "base", "main", "Base reference to diff against (with --local)")
	cmd.Flags().StringVar(&targetRef, "target", "", "Target reference to review (with --local)")

	return cmd
}

func fixCommand(deps Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fix <pr-number>",
		Short: "Generate a fix branch for a pull request's accepted comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if deps.Fixer == nil {
				return fmt.Errorf("fix generation is disabled; enable it in configuration")
			}
			number, err := parsePRNumber(args[0])
			if err != nil {
				return err
			}

			// A dry review pass decides which comments the fix covers.
			reviewer := deps.NewReviewer(false)
			result, err := reviewer.Run(ctx, number)
			if err != nil {
				return err
			}
			if result.Skipped {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "PR #%d skipped: %s\n", number, result.SkipReason)
				return nil
			}

			accepted := result.Accepted()
			if len(accepted) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "nothing to fix")
				return nil
			}

			fixResult, err := deps.Fixer.Run(ctx, result.PullRequest, accepted)
			if err != nil {
				return err
			}
			printFixResult(cmd.OutOrStdout(), fixResult)
			return nil
		},
	}
	return cmd
}

func parsePRNumber(arg string) (int, error) {
	number, err := strconv.Atoi(arg)
	if err != nil || number <= 0 {
		return 0, fmt.Errorf("invalid pull request number %q", arg)
	}
	return number, nil
}

func confirm(cmd *cobra.Command, in io.Reader, question string) (bool, error) {
	if in == nil {
		in = os.Stdin
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)
	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func printResult(w io.Writer, result review.Result, applied bool) {
	if result.Skipped {
		_, _ = fmt.Fprintf(w, "PR #%d skipped: %s\n", result.PullRequest.Number, result.SkipReason)
		return
	}

	mode := "dry run"
	if applied {
		mode = "applied"
	}

	created, deleted := 0, 0
	for _, f := range result.Files {
		created += f.Created
		deleted += f.Deleted
	}
	accepted := result.Accepted()
	rejections := result.Rejections()

	_, _ = fmt.Fprintf(w, "PR #%d (%s): %d comment(s) accepted, %d rejection(s)\n",
		result.PullRequest.Number, mode, len(accepted), len(rejections))
	for _, c := range accepted {
		_, _ = fmt.Fprintf(w, "  %s:%d %s\n", c.Path, c.Line, firstLine(c.Body))
	}
	for _, r := range rejections {
		_, _ = fmt.Fprintf(w, "  rejected %s:%d (%s)\n", r.Path, r.Line, r.Reason)
	}
	for _, f := range result.Files {
		if f.Err != nil {
			_, _ = fmt.Fprintf(w, "  %s skipped: %v\n", f.Path, f.Err)
		}
	}
	if applied {
		_, _ = fmt.Fprintf(w, "created %d, deleted %d\n", created, deleted)
	}
}

func printFixResult(w io.Writer, result fix.Result) {
	if result.Branch == "" {
		_, _ = fmt.Fprintln(w, "nothing to fix")
		return
	}
	_, _ = fmt.Fprintf(w, "fix branch %s: %d file(s) fixed, %d failed\n",
		result.Branch, len(result.Fixed), len(result.Failed))
	if result.PullNumber > 0 {
		_, _ = fmt.Fprintf(w, "fix pull request #%d opened\n", result.PullNumber)
	}
}

func recordPass(ctx context.Context, store review.Store, result review.Result) error {
	created, deleted := 0, 0
	for _, f := range result.Files {
		created += f.Created
		deleted += f.Deleted
	}
	return store.RecordPass(ctx, review.PassRecord{
		PullNumber: result.PullRequest.Number,
		HeadSHA:    result.PullRequest.HeadSHA,
		Created:    created,
		Deleted:    deleted,
		Rejections: result.Rejections(),
	})
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
