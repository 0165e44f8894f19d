package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/byteowlz/kaextract/internal/orchestrator"
	"github.com/byteowlz/kaextract/internal/ui"
)

var (
	backendName     string
	outputFormat    string
	file            string
	ephemeral       bool
	noDebounce      bool
	continueOnError bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [urls or keywords...]",
	Short: "Extract one or more listings",
	Long: `Extract listings given as arguments, from --file, or one per line on
stdin. Keywords such as "demo", "iphone" or "sofa" show demo data.`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&backendName, "backend", "B", "", "extraction backend (api|local), default from config")
	extractCmd.Flags().StringVar(&outputFormat, "format", "table", "output format (table|json)")
	extractCmd.Flags().StringVarP(&file, "file", "f", "", "read keys from file (one per line)")
	extractCmd.Flags().BoolVar(&ephemeral, "ephemeral", false, "use an in-memory cache for this run")
	extractCmd.Flags().BoolVar(&noDebounce, "no-debounce", false, "skip the input debounce delay")
	extractCmd.Flags().BoolVar(&continueOnError, "continue-on-error", true, "continue with remaining keys on error")
}

func runExtract(cmd *cobra.Command, args []string) error {
	switch ui.Format(outputFormat) {
	case ui.FormatTable, ui.FormatJSON:
	default:
		return exitError(ExitInvalidInput, "invalid format %q (available: table, json)", outputFormat)
	}

	keys, err := collectKeys(args, cmd.InOrStdin())
	if err != nil {
		return exitError(ExitFileIOError, "failed to collect input: %v", err)
	}
	if len(keys) == 0 {
		return exitError(ExitInvalidInput, "no URLs or keywords provided")
	}

	name := backendName
	if name == "" {
		name = cfg.Client.Backend
	}
	backend, err := newBackend(cfg, name)
	if err != nil {
		return exitError(ExitConfigError, "%v", err)
	}

	c, closeCache, err := openCache(cfg, ephemeral)
	if err != nil {
		return exitError(ExitFileIOError, "failed to open cache: %v", err)
	}
	defer closeCache()

	renderer := ui.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), ui.Format(outputFormat))
	renderer.Quiet = quiet

	opts := orchestratorOptions(cfg)
	opts.Listener = renderer
	opts.Connectivity = probeFor(cfg, name)
	if noDebounce {
		opts.Debounce = 0
	}
	o := orchestrator.New(backend, c, opts)

	var failures, successes int
	var lastErr error
	for i, key := range keys {
		if i > 0 && outputFormat != string(ui.FormatJSON) {
			fmt.Fprintln(cmd.OutOrStdout())
		}

		_, err := o.Submit(cmd.Context(), key)
		if err == nil {
			successes++
			continue
		}

		failures++
		lastErr = err
		if orchestrator.KindOf(err) == orchestrator.Canceled || !continueOnError {
			break
		}
	}

	switch {
	case failures == 0:
		return nil
	case successes > 0:
		return &exitErr{code: ExitPartialError}
	}
	return &exitErr{code: exitCodeFor(lastErr)}
}

func exitCodeFor(err error) int {
	switch orchestrator.KindOf(err) {
	case orchestrator.InvalidInput:
		return ExitInvalidInput
	case orchestrator.Offline, orchestrator.Transient, orchestrator.RetriesExhausted, orchestrator.OverallTimeout:
		return ExitNetworkError
	}
	if errors.Is(err, orchestrator.ErrDebounced) {
		return ExitSuccess
	}
	return ExitProcessError
}

func collectKeys(args []string, stdin io.Reader) ([]string, error) {
	var keys []string
	keys = append(keys, args...)

	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		fileKeys, err := readLines(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read keys from file %s: %w", file, err)
		}
		keys = append(keys, fileKeys...)
	}

	if len(args) == 0 && file == "" && stdinIsPiped(stdin) {
		stdinKeys, err := readLines(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read keys from stdin: %w", err)
		}
		keys = append(keys, stdinKeys...)
	}

	var clean []string
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			clean = append(clean, k)
		}
	}
	return clean, nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

// stdinIsPiped reports whether r carries data rather than a terminal.
func stdinIsPiped(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return r != nil
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice == 0
}
