// Package driver implements the resume side of the execution protocol: it
// watches controller outcomes for pause signals, obtains the missing value
// from a Prompter, and re-invokes the controller with the matching
// correlation identifier.
package driver

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmshell/common"
	"github.com/mensylisir/xmshell/controller"
	"github.com/mensylisir/xmshell/logger"
	"github.com/mensylisir/xmshell/session"
	"github.com/mensylisir/xmshell/util"
)

// Prompter obtains the out-of-band values an episode pauses for.
type Prompter interface {
	// Credential solicits the elevation secret.
	Credential(hint string) (string, error)
	// Confirm solicits a yes/no answer to an interactive prompt.
	Confirm(hint string) (bool, error)
}

// Driver runs one command episode to a terminal outcome, resolving pauses
// through the Prompter.
type Driver struct {
	ctrl           *controller.Controller
	prompter       Prompter
	maxAuthRetries int
}

// New creates a Driver. maxAuthRetries bounds credential re-prompt cycles per
// episode.
func New(ctrl *controller.Controller, prompter Prompter, maxAuthRetries int) *Driver {
	if maxAuthRetries <= 0 {
		maxAuthRetries = 1
	}
	return &Driver{ctrl: ctrl, prompter: prompter, maxAuthRetries: maxAuthRetries}
}

// Run executes the command against the session, resuming through pauses until
// the episode reaches a terminal outcome. Delivering a resume is only valid
// for the correlation identifier of the pause that produced it; anything else
// is rejected here, before the core is called back.
func (d *Driver) Run(ctx context.Context, command string, sess *session.Session) (controller.Outcome, error) {
	log := logger.Log.WithFields(logrus.Fields{
		common.LogFieldSession: sess.ID(),
		common.LogFieldCommand: command,
	})

	start := time.Now()
	out := d.ctrl.Execute(ctx, controller.Request{Command: command}, sess)
	out, err := d.resume(ctx, command, out, sess, log)
	if err == nil {
		log.Infof("Episode reached %s in %s", out.Status, util.ShortDuration(time.Since(start).Round(time.Millisecond)))
	}
	return out, err
}

// resume loops until the episode reaches a terminal outcome.
func (d *Driver) resume(ctx context.Context, command string, out controller.Outcome, sess *session.Session, log *logrus.Entry) (controller.Outcome, error) {
	authAttempts := 0
	for out.Pending() {
		req := out.Request
		if req == nil {
			return out, errors.New("pause signal carried no pending request")
		}
		if outstanding := sess.PendingRequest(); outstanding == nil || outstanding.ID != req.ID {
			return out, errors.Errorf("stale correlation identifier %s; refusing to resume", req.ID)
		}

		switch req.Kind {
		case session.RequestKindAuth:
			authAttempts++
			if authAttempts > d.maxAuthRetries {
				return out, errors.Errorf("giving up after %d credential attempts", d.maxAuthRetries)
			}
			log.Debugf("Soliciting credential (attempt %d, correlation %s)", authAttempts, req.ID)
			secret, err := d.prompter.Credential(req.Hint)
			if err != nil {
				return out, errors.Wrap(err, "failed to obtain credential")
			}
			out = d.ctrl.Execute(ctx, controller.Request{Command: command, Credential: secret}, sess)

		case session.RequestKindConfirm:
			log.Debugf("Soliciting confirmation (correlation %s)", req.ID)
			confirmed, err := d.prompter.Confirm(req.Hint)
			if err != nil {
				return out, errors.Wrap(err, "failed to obtain confirmation")
			}
			out = d.ctrl.Execute(ctx, controller.Request{
				Command:      command,
				Confirmation: &controller.ConfirmationAnswer{ID: req.ID, Confirmed: confirmed},
			}, sess)

		default:
			return out, errors.Errorf("unknown pending request kind %q", req.Kind)
		}
	}
	return out, nil
}
