package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/i2y/oapiquery/internal/usecase"
	"github.com/i2y/oapiquery/pkg/request"
)

var (
	colorMethod  = color.New(color.FgCyan, color.Bold).SprintFunc()
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorWarning = color.New(color.FgHiYellow).SprintFunc()
)

func newOperationsCmd(flags *rootFlags) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "operations",
		Short: "List the operations of the document",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(flags)
			if err != nil {
				return err
			}
			fetcher := newFetcher(cfg, logger)
			uc := usecase.NewListOperationsUseCase(fetcher, logger)

			ops, err := uc.Execute(cmd.Context(), documentSource(cfg.Document, cfg.DocumentHeaders), filter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, op := range ops {
				fmt.Fprintf(out, "%-7s %s %s\n", colorMethod(strings.ToUpper(op.Method)), op.Path, op.OperationID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "only list operations whose path or operationId contains this")
	return cmd
}

func newCallCmd(flags *rootFlags) *cobra.Command {
	var callPath string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "call",
		Short: "Assemble and send the call described by a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(flags)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			shutdown, err := initOtelProvider(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := shutdown(ctx); err != nil {
					logger.Error("Failed to shutdown OpenTelemetry TracerProvider.", "error", err)
				}
			}()

			var data []byte
			if callPath == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(callPath)
			}
			if err != nil {
				return fmt.Errorf("failed to read call file: %w", err)
			}
			call, err := usecase.ParseCallFile(data, filepath.Dir(callPath))
			if err != nil {
				return err
			}

			fetcher := newFetcher(cfg, logger)
			src := documentSource(cfg.Document, cfg.DocumentHeaders)
			if src.Location == "" {
				return usecase.ErrNoDocument
			}
			loaded, err := fetcher.Load(ctx, src)
			if err != nil {
				return err
			}
			c, err := newClient(ctx, cfg, loaded, newTransport(cfg, logger), logger)
			if err != nil {
				return err
			}
			uc := usecase.NewInvokeCallUseCase(c, logger)

			out := cmd.OutOrStdout()
			if dryRun {
				prepared, err := uc.DryRun(ctx, call)
				if err != nil {
					return err
				}
				printPrepared(out, call.Method, prepared)
				return nil
			}

			resp, err := uc.Execute(ctx, call)
			if err != nil {
				return err
			}
			printResponse(out, resp)
			return nil
		},
	}
	cmd.Flags().StringVar(&callPath, "call", "", "call description file, - for stdin")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the assembled request without sending it")
	_ = cmd.MarkFlagRequired("call")
	return cmd
}

func documentSource(location string, headers map[string]string) usecase.DocumentSource {
	return usecase.DocumentSource{Location: location, Headers: headers}
}

func printPrepared(w io.Writer, method request.Method, cfg *request.Config) {
	fmt.Fprintf(w, "%s %s\n", colorMethod(method.HTTP()), cfg.ResolveURL(cfg.URL))
	names := make([]string, 0, len(cfg.Header))
	for name := range cfg.Header {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s: %s\n", name, strings.Join(cfg.Header[name], ", "))
	}
	if cfg.ContentType != "" {
		fmt.Fprintf(w, "Content-Type: %s\n", cfg.ContentType)
	}
}

func printResponse(w io.Writer, resp *request.Response) {
	status := fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	if resp.StatusCode >= 300 {
		fmt.Fprintln(w, colorWarning(status))
	} else {
		fmt.Fprintln(w, colorSuccess(status))
	}
	switch data := resp.Data.(type) {
	case string:
		if data != "" {
			fmt.Fprintln(w, data)
		}
	case nil:
	default:
		pretty, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			fmt.Fprintln(w, string(resp.Body))
			return
		}
		fmt.Fprintln(w, string(pretty))
	}
}
