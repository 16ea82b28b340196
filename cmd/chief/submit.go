package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/GharaibehR/Chief-of-Staff/coreengine/comms"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/compose"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/grpc"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/kernel"
	"github.com/GharaibehR/Chief-of-Staff/coreengine/logging"
)

type submitOptions struct {
	userID    string
	sessionID string
	asJSON    bool
	addr      string
	natsURL   string
	timeout   time.Duration
}

func newSubmitCmd(flags *globalFlags) *cobra.Command {
	opts := &submitOptions{}

	cmd := &cobra.Command{
		Use:   "submit <text>... | submit -",
		Short: "Run one request and print the result",
		Long: `Run one natural-language request through the orchestrator.

By default the request runs in-process with the local capability agents.
With --addr it is sent to a running "chief serve" over gRPC, with --nats-url
over NATS. With "-" a JSON request ({"text", "user_id", ...}) is read from stdin.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readRequest(cmd.InOrStdin(), args, opts)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			result, err := submit(ctx, flags, opts, req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.asJSON {
				return writeJSON(out, result)
			}
			printResult(out, result)
			if !result.Success {
				return fmt.Errorf("request failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.userID, "user", "u", "cli", "user id of the request")
	cmd.Flags().StringVar(&opts.sessionID, "session", "", "session id of the request")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the result as JSON")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "gRPC address of a running server")
	cmd.Flags().StringVar(&opts.natsURL, "nats-url", "", "NATS url of a running server")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall request timeout")
	cmd.MarkFlagsMutuallyExclusive("addr", "nats-url")
	return cmd
}

// readRequest builds the request from the arguments, or from stdin for "-".
func readRequest(stdin io.Reader, args []string, opts *submitOptions) (kernel.Request, error) {
	req := kernel.Request{UserID: opts.userID, SessionID: opts.sessionID}

	if len(args) == 1 && args[0] == "-" {
		if err := json.NewDecoder(stdin).Decode(&req); err != nil {
			return req, fmt.Errorf("reading request from stdin: %w", err)
		}
		if req.UserID == "" {
			req.UserID = opts.userID
		}
	} else {
		req.Text = strings.Join(args, " ")
	}

	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		return req, fmt.Errorf("request text is empty")
	}
	return req, nil
}

func submit(ctx context.Context, flags *globalFlags, opts *submitOptions, req kernel.Request) (*compose.Result, error) {
	switch {
	case opts.addr != "":
		conn, err := grpclib.NewClient(opts.addr, grpclib.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, fmt.Errorf("connecting to %s: %w", opts.addr, err)
		}
		defer conn.Close()

		result := &compose.Result{}
		if err := grpc.NewOrchestratorClient(conn).Call(ctx, grpc.SubmitMethod, req, result); err != nil {
			return nil, err
		}
		return result, nil

	case opts.natsURL != "":
		cfg, err := flags.load()
		if err != nil {
			return nil, err
		}
		nc, err := comms.Connect(opts.natsURL, "chief-cli", logging.NopLogger{})
		if err != nil {
			return nil, err
		}
		defer nc.Close()
		return comms.Submit(ctx, nc, cfg.NATS.Subject, req)

	default:
		cfg, err := flags.load()
		if err != nil {
			return nil, err
		}
		// Keep the terminal quiet unless a level was asked for.
		if flags.logLevel == "" {
			cfg.Logging.Level = "warn"
		}
		logger, err := newLogger(cfg, os.Stderr)
		if err != nil {
			return nil, err
		}
		rt, err := buildOrchestrator(cfg, logger)
		if err != nil {
			return nil, err
		}
		return rt.orch.SubmitRequest(ctx, req), nil
	}
}
