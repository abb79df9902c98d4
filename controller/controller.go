// Package controller implements the interruptible privileged-command
// execution protocol: one Execute call per episode step, returning either a
// terminal outcome or a pause that the orchestrator resolves out of band.
package controller

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmshell/classify"
	"github.com/mensylisir/xmshell/common"
	"github.com/mensylisir/xmshell/config"
	"github.com/mensylisir/xmshell/logger"
	"github.com/mensylisir/xmshell/runner"
	"github.com/mensylisir/xmshell/session"
	"github.com/mensylisir/xmshell/util"
)

// Controller orchestrates the credential store, process runner and outcome
// classifier for one session episode at a time.
type Controller struct {
	runner          runner.Runner
	classifier      *classify.Classifier
	elevationPrefix string
}

// New creates a Controller that executes through the given runner with the
// configured detector phrase sets.
func New(r runner.Runner, cfg *config.Config) *Controller {
	return &Controller{
		runner:          r,
		classifier:      classify.New(cfg.Detectors),
		elevationPrefix: cfg.Shell.ElevationPrefix,
	}
}

// Execute runs one step of a command episode against the session. A malformed
// command fails immediately with InvalidCommand and mutates nothing. A
// standard command runs to a terminal outcome. A privileged command may pause
// for a credential or a confirmation; the caller resumes by invoking Execute
// again with the missing value attached to the Request.
func (c *Controller) Execute(ctx context.Context, req Request, sess *session.Session) Outcome {
	command := strings.TrimSpace(req.Command)
	if command == "" {
		return errorOutcome(ErrInvalidCommand, "the command line is empty")
	}
	baseCommand, err := util.BaseCommand(command)
	if err != nil {
		return errorOutcome(ErrInvalidCommand, err.Error())
	}

	log := logger.Log.WithFields(logrus.Fields{
		common.LogFieldSession: sess.ID(),
		common.LogFieldCommand: command,
	})

	if !strings.HasPrefix(command, c.elevationPrefix) {
		return c.executeStandard(ctx, command, baseCommand, sess, log)
	}
	return c.executePrivileged(ctx, req, command, baseCommand, sess, log)
}

// executeStandard handles non-privileged commands. They never pause.
func (c *Controller) executeStandard(ctx context.Context, command, baseCommand string, sess *session.Session, log *logrus.Entry) Outcome {
	// A new episode begins; a stale pending request from an abandoned pause is
	// simply dropped.
	sess.SetPendingRequest(nil)
	c.appendEvent(sess, log, session.EventEpisodeStarted, command, "")

	result, err := c.runner.Run(ctx, command, "")
	if err != nil {
		log.Errorf("Process runner failed: %v", err)
		out := errorOutcome(ErrToolException, err.Error())
		c.appendEvent(sess, log, session.EventEpisodeFinished, command, string(out.ErrKind))
		return out
	}

	verdict := c.classifier.Classify(result.ExitCode, result.Stdout, result.Stderr, false, false)
	return c.terminal(verdict, result, command, baseCommand, sess, log)
}

// executePrivileged drives the AUTH_CHECK / RUN / CLASSIFY / CONFIRM_RESUME
// portion of the state machine.
func (c *Controller) executePrivileged(ctx context.Context, req Request, command, baseCommand string, sess *session.Session, log *logrus.Entry) Outcome {
	if req.Confirmation != nil {
		return c.resumeConfirmation(ctx, req, command, sess, log)
	}

	source, err := c.resolveCredential(req, sess)
	if err != nil {
		return errorOutcome(ErrToolException, err.Error())
	}

	secret, ok := source.Secret()
	if !ok {
		log.Info("Privileged command requires a credential; pausing for authentication.")
		if sess.PendingRequest() == nil {
			c.appendEvent(sess, log, session.EventEpisodeStarted, command, "")
		}
		return c.pauseForAuth(sess, command, "Please provide the sudo password to execute the command.", log)
	}

	if source.Fresh() {
		c.appendEvent(sess, log, session.EventEpisodeResumed, command, string(session.RequestKindAuth))
		if err := sess.SetCredential(secret); err != nil {
			return errorOutcome(ErrToolException, err.Error())
		}
	} else {
		sess.SetPendingRequest(nil)
		c.appendEvent(sess, log, session.EventEpisodeStarted, command, "")
		log.Debug("Using cached credential from session state.")
	}

	result, err := c.runner.Run(ctx, c.elevate(command), secret+"\n")
	if err != nil {
		log.Errorf("Process runner failed: %v", err)
		out := errorOutcome(ErrToolException, err.Error())
		c.appendEvent(sess, log, session.EventEpisodeFinished, command, string(out.ErrKind))
		return out
	}

	verdict := c.classifier.Classify(result.ExitCode, result.Stdout, result.Stderr, true, true)
	switch verdict {
	case classify.VerdictNeedsConfirmation:
		log.Info("Command requires user confirmation; pausing.")
		return c.pauseForConfirmation(sess, command, result, log)
	case classify.VerdictAuthFailed:
		return c.handleAuthFailure(sess, command, log)
	default:
		return c.terminal(verdict, result, command, baseCommand, sess, log)
	}
}

// resumeConfirmation is the CONFIRM_RESUME state: the confirmation answer has
// arrived for a previously paused episode.
func (c *Controller) resumeConfirmation(ctx context.Context, req Request, command string, sess *session.Session, log *logrus.Entry) Outcome {
	pending := sess.TakePendingRequest()
	if pending == nil || pending.Kind != session.RequestKindConfirm {
		return errorOutcome(ErrToolException, "no confirmation is pending for this session")
	}
	c.appendEvent(sess, log, session.EventEpisodeResumed, command, string(session.RequestKindConfirm))

	if !req.Confirmation.Confirmed {
		log.Info("User rejected the confirmation prompt.")
		c.appendEvent(sess, log, session.EventEpisodeFinished, command, "rejected")
		return Outcome{Status: StatusRejected, Details: "User rejected the confirmation prompt."}
	}

	original := pending.Payload
	if original == "" {
		original = command
	}
	baseCommand, err := util.BaseCommand(original)
	if err != nil {
		return errorOutcome(ErrInvalidCommand, err.Error())
	}

	secret, ok, err := sess.Credential()
	if err != nil {
		return errorOutcome(ErrToolException, err.Error())
	}
	if !ok {
		return errorOutcome(ErrToolException, "credential was lost after confirmation")
	}

	// The password line and the affirmative keystroke go out in a single
	// stdin write, chained before the process starts consuming input.
	result, err := c.runner.Run(ctx, c.elevate(original), secret+"\n"+common.AffirmativeInput)
	if err != nil {
		log.Errorf("Process runner failed: %v", err)
		out := errorOutcome(ErrToolException, err.Error())
		c.appendEvent(sess, log, session.EventEpisodeFinished, original, string(out.ErrKind))
		return out
	}

	// Confirmation prompts are not re-detected on this second pass.
	verdict := c.classifier.Classify(result.ExitCode, result.Stdout, result.Stderr, true, false)
	if verdict == classify.VerdictAuthFailed {
		return c.handleAuthFailure(sess, original, log)
	}
	return c.terminal(verdict, result, original, baseCommand, sess, log)
}

// resolveCredential decides where this call's elevation secret comes from.
func (c *Controller) resolveCredential(req Request, sess *session.Session) (CredentialSource, error) {
	if req.Credential != "" {
		return FreshCredential(req.Credential), nil
	}
	secret, ok, err := sess.Credential()
	if err != nil {
		return AbsentCredential(), err
	}
	if ok {
		return CachedCredential(secret), nil
	}
	return AbsentCredential(), nil
}

// elevate rewrites a privileged command line so the elevation mechanism reads
// the credential from stdin instead of prompting the terminal.
func (c *Controller) elevate(command string) string {
	rest := util.StripPrefixWord(command, c.elevationPrefix)
	return fmt.Sprintf("%s %s %s", c.elevationPrefix, common.ElevationStdinFlag, rest)
}

func (c *Controller) pauseForAuth(sess *session.Session, command, hint string, log *logrus.Entry) Outcome {
	req := &session.PendingRequest{
		Kind:    session.RequestKindAuth,
		ID:      uuid.NewString(),
		Hint:    hint,
		Payload: command,
	}
	sess.SetPendingRequest(req)
	c.appendEvent(sess, log, session.EventEpisodePaused, command, string(session.RequestKindAuth))
	return Outcome{Status: StatusPendingAuth, Details: hint, Request: req}
}

func (c *Controller) pauseForConfirmation(sess *session.Session, command string, result runner.Result, log *logrus.Entry) Outcome {
	output := strings.TrimSpace(result.Stdout + "\n" + result.Stderr)
	hint := fmt.Sprintf("The command is asking for confirmation:\n---\n%s\n---\nPlease respond with 'y' or 'n'.", output)
	req := &session.PendingRequest{
		Kind:    session.RequestKindConfirm,
		ID:      uuid.NewString(),
		Hint:    hint,
		Payload: command,
	}
	sess.SetPendingRequest(req)
	c.appendEvent(sess, log, session.EventEpisodePaused, command, string(session.RequestKindConfirm))
	return Outcome{
		Status:  StatusPendingConfirmation,
		Stdout:  result.Stdout,
		Stderr:  result.Stderr,
		Details: "Awaiting user confirmation (Y/n).",
		Request: req,
	}
}

// handleAuthFailure evicts the bad credential and re-prompts. The same secret
// is never silently retried.
func (c *Controller) handleAuthFailure(sess *session.Session, command string, log *logrus.Entry) Outcome {
	log.Warn("Elevation credential was rejected; evicting and re-prompting.")
	if err := sess.EvictCredential(); err != nil {
		return errorOutcome(ErrToolException, err.Error())
	}
	out := c.pauseForAuth(sess, command, "The sudo password was incorrect. Please try again.", log)
	out.ErrKind = ErrAuthenticationFailed
	return out
}

// terminal finalizes an episode: records the installed-program fact and maps
// the verdict to an outcome.
func (c *Controller) terminal(verdict classify.Verdict, result runner.Result, command, baseCommand string, sess *session.Session, log *logrus.Entry) Outcome {
	installed := verdict != classify.VerdictNotInstalled
	if err := sess.RecordFact(baseCommand, installed); err != nil {
		log.Errorf("Failed to record installed-program fact for %s: %v", baseCommand, err)
	}
	sess.SetPendingRequest(nil)

	var out Outcome
	switch verdict {
	case classify.VerdictSuccess:
		out = Outcome{Status: StatusSuccess, Stdout: result.Stdout, Stderr: result.Stderr}
	case classify.VerdictNotInstalled:
		out = Outcome{
			Status:  StatusError,
			ErrKind: ErrCommandNotInstalled,
			Stderr:  result.Stderr,
			Details: fmt.Sprintf("The command '%s' is not installed on this host.", baseCommand),
		}
	default:
		out = Outcome{
			Status:  StatusError,
			ErrKind: ErrExecutionFailed,
			Stdout:  result.Stdout,
			Stderr:  result.Stderr,
			Details: fmt.Sprintf("Command exited with code %d.", result.ExitCode),
		}
	}

	log.Infof("Episode finished: %s", out.Status)
	detail := string(out.ErrKind)
	if detail == "" {
		detail = out.Status.String()
	}
	c.appendEvent(sess, log, session.EventEpisodeFinished, command, detail)
	return out
}

// appendEvent writes to the session's append-only log. Log failures never
// abort an episode.
func (c *Controller) appendEvent(sess *session.Session, log *logrus.Entry, eventType, command, detail string) {
	if err := sess.AppendEvent(session.Event{Type: eventType, Command: command, Detail: detail}); err != nil {
		log.Warnf("Failed to append session event %s: %v", eventType, err)
	}
}

func errorOutcome(kind ErrKind, details string) Outcome {
	return Outcome{Status: StatusError, ErrKind: kind, Details: details}
}
