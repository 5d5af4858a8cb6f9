package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/stratusops/spikecorr/internal/metrics"
	"github.com/stratusops/spikecorr/internal/utils"
)

const runShellScriptDocument = "AWS-RunShellScript"

// ssmAPI is the subset of the SSM client the executor depends on.
type ssmAPI interface {
	SendCommand(ctx context.Context, params *ssm.SendCommandInput, optFns ...func(*ssm.Options)) (*ssm.SendCommandOutput, error)
	GetCommandInvocation(ctx context.Context, params *ssm.GetCommandInvocationInput, optFns ...func(*ssm.Options)) (*ssm.GetCommandInvocationOutput, error)
}

// SSMExecutor runs read-only shell commands on the monitored host and waits
// for a terminal invocation status. The caller is responsible for command
// content; the executor does not sanitize it.
type SSMExecutor struct {
	client         ssmAPI
	logger         *slog.Logger
	pollInterval   time.Duration
	commandTimeout time.Duration
}

// NewSSMExecutor constructs a remote executor polling at pollInterval, with
// commandTimeout as the per-command deadline so a stalled invocation cannot
// block a cycle indefinitely.
func NewSSMExecutor(client ssmAPI, logger *slog.Logger, pollInterval, commandTimeout time.Duration) *SSMExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if commandTimeout <= 0 {
		commandTimeout = 60 * time.Second
	}
	return &SSMExecutor{
		client:         client,
		logger:         logger,
		pollInterval:   pollInterval,
		commandTimeout: commandTimeout,
	}
}

// Execute submits one shell command and blocks until the invocation reaches a
// terminal status or the deadline elapses, returning captured stdout.
func (e *SSMExecutor) Execute(ctx context.Context, instanceID, command string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.commandTimeout)
	defer cancel()

	sent, err := e.client.SendCommand(ctx, &ssm.SendCommandInput{
		InstanceIds:    []string{instanceID},
		DocumentName:   aws.String(runShellScriptDocument),
		Parameters:     map[string][]string{"commands": {command}},
		TimeoutSeconds: aws.Int32(int32(e.commandTimeout / time.Second)),
	})
	if err != nil {
		metrics.ObserveRemoteCommand("send_failed")
		return "", utils.NewAppError("ssm.Execute", "send command failed", err)
	}
	if sent.Command == nil || sent.Command.CommandId == nil {
		metrics.ObserveRemoteCommand("send_failed")
		return "", utils.NewAppError("ssm.Execute", "send command returned no command id", nil)
	}
	commandID := aws.ToString(sent.Command.CommandId)

	out, err := e.waitForTerminal(ctx, commandID, instanceID)
	if err != nil {
		return "", err
	}

	switch out.Status {
	case ssmtypes.CommandInvocationStatusSuccess:
		metrics.ObserveRemoteCommand("success")
		return aws.ToString(out.StandardOutputContent), nil
	default:
		metrics.ObserveRemoteCommand(strings.ToLower(string(out.Status)))
		stderr := strings.TrimSpace(aws.ToString(out.StandardErrorContent))
		return "", utils.NewAppError("ssm.Execute",
			fmt.Sprintf("command %s ended %s: %s", commandID, out.Status, stderr), nil)
	}
}

// waitForTerminal polls the invocation status on a ticker until a terminal
// state is observed or the context deadline fires.
func (e *SSMExecutor) waitForTerminal(ctx context.Context, commandID, instanceID string) (*ssm.GetCommandInvocationOutput, error) {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			metrics.ObserveRemoteCommand("timeout")
			return nil, utils.NewAppError("ssm.Execute", "command wait aborted", ctx.Err())
		case <-ticker.C:
		}

		out, err := e.client.GetCommandInvocation(ctx, &ssm.GetCommandInvocationInput{
			CommandId:  aws.String(commandID),
			InstanceId: aws.String(instanceID),
		})
		if err != nil {
			// The invocation record can lag the SendCommand call; keep polling.
			var notFound *ssmtypes.InvocationDoesNotExist
			if errors.As(err, &notFound) {
				continue
			}
			metrics.ObserveRemoteCommand("poll_failed")
			return nil, utils.NewAppError("ssm.Execute", "get command invocation failed", err)
		}

		switch out.Status {
		case ssmtypes.CommandInvocationStatusSuccess,
			ssmtypes.CommandInvocationStatusFailed,
			ssmtypes.CommandInvocationStatusCancelled,
			ssmtypes.CommandInvocationStatusTimedOut:
			return out, nil
		default:
			e.logger.Debug("remote command pending",
				slog.String("command_id", commandID),
				slog.String("status", string(out.Status)))
		}
	}
}
