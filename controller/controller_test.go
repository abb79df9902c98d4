package controller

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mensylisir/xmshell/config"
	"github.com/mensylisir/xmshell/runner"
	"github.com/mensylisir/xmshell/session"
)

type runnerCall struct {
	commandLine string
	stdin       string
}

type scriptedResult struct {
	result runner.Result
	err    error
}

// fakeRunner returns scripted results in order and records every call.
type fakeRunner struct {
	calls  []runnerCall
	script []scriptedResult
}

func (f *fakeRunner) Run(_ context.Context, commandLine string, stdin string) (runner.Result, error) {
	f.calls = append(f.calls, runnerCall{commandLine: commandLine, stdin: stdin})
	if len(f.script) == 0 {
		return runner.Result{}, errors.New("fakeRunner: no scripted result left")
	}
	next := f.script[0]
	f.script = f.script[1:]
	return next.result, next.err
}

func (f *fakeRunner) push(res runner.Result, err error) {
	f.script = append(f.script, scriptedResult{result: res, err: err})
}

func newTestController(f *fakeRunner) *Controller {
	return New(f, config.Default())
}

func newTestSession(id string) (*session.Session, *session.MemoryStore) {
	store := session.NewMemoryStore()
	return session.New(id, store), store
}

func TestExecuteInvalidCommand(t *testing.T) {
	f := &fakeRunner{}
	ctrl := newTestController(f)
	sess, _ := newTestSession("s-1")

	for _, cmd := range []string{"", "   ", `echo "unterminated`} {
		out := ctrl.Execute(context.Background(), Request{Command: cmd}, sess)
		assert.Equal(t, StatusError, out.Status)
		assert.Equal(t, ErrInvalidCommand, out.ErrKind)
	}

	assert.Empty(t, f.calls, "malformed commands must never spawn a process")
	facts, err := sess.InstalledFacts()
	require.NoError(t, err)
	assert.Empty(t, facts, "malformed commands must not mutate session state")
}

// Scenario A: a standard command that exits 0.
func TestExecuteStandardSuccess(t *testing.T) {
	f := &fakeRunner{}
	f.push(runner.Result{Stdout: "total 42", ExitCode: 0}, nil)
	ctrl := newTestController(f)
	sess, _ := newTestSession("s-1")

	out := ctrl.Execute(context.Background(), Request{Command: "ls -la"}, sess)
	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, "total 42", out.Stdout)

	require.Len(t, f.calls, 1)
	assert.Equal(t, "ls -la", f.calls[0].commandLine)
	assert.Empty(t, f.calls[0].stdin)

	facts, err := sess.InstalledFacts()
	require.NoError(t, err)
	assert.True(t, facts["ls"].Installed)
}

// Scenario B: a command absent on the host.
func TestExecuteCommandNotInstalled(t *testing.T) {
	f := &fakeRunner{}
	f.push(runner.Result{Stderr: "bash: foobarxyz: command not found", ExitCode: 127}, nil)
	ctrl := newTestController(f)
	sess, _ := newTestSession("s-1")

	out := ctrl.Execute(context.Background(), Request{Command: "foobarxyz"}, sess)
	assert.Equal(t, StatusError, out.Status)
	assert.Equal(t, ErrCommandNotInstalled, out.ErrKind)

	facts, err := sess.InstalledFacts()
	require.NoError(t, err)
	fact, ok := facts["foobarxyz"]
	require.True(t, ok)
	assert.False(t, fact.Installed)
}

func TestExecuteStandardFailureRecordsInstalled(t *testing.T) {
	f := &fakeRunner{}
	f.push(runner.Result{Stderr: "ls: cannot access '/nope'", ExitCode: 2}, nil)
	ctrl := newTestController(f)
	sess, _ := newTestSession("s-1")

	out := ctrl.Execute(context.Background(), Request{Command: "ls /nope"}, sess)
	assert.Equal(t, StatusError, out.Status)
	assert.Equal(t, ErrExecutionFailed, out.ErrKind)

	facts, err := sess.InstalledFacts()
	require.NoError(t, err)
	assert.True(t, facts["ls"].Installed, "a command that ran and failed still exists")
}

// Only commands prefixed with the elevation keyword can pause.
func TestStandardCommandsNeverPause(t *testing.T) {
	f := &fakeRunner{}
	f.push(runner.Result{Stdout: "Do you want to continue? [Y/n]", ExitCode: 0}, nil)
	ctrl := newTestController(f)
	sess, _ := newTestSession("s-1")

	out := ctrl.Execute(context.Background(), Request{Command: "apt-get install foo"}, sess)
	assert.Equal(t, StatusSuccess, out.Status)
	assert.False(t, out.Pending())
	assert.Nil(t, sess.PendingRequest())
}

// Scenario C: privileged command with no credential pauses, then resumes.
func TestPrivilegedAuthPauseAndResume(t *testing.T) {
	f := &fakeRunner{}
	ctrl := newTestController(f)
	sess, _ := newTestSession("s-1")

	out := ctrl.Execute(context.Background(), Request{Command: "sudo apt-get update"}, sess)
	assert.Equal(t, StatusPendingAuth, out.Status)
	require.NotNil(t, out.Request)
	assert.Equal(t, session.RequestKindAuth, out.Request.Kind)
	assert.NotEmpty(t, out.Request.ID)
	assert.Empty(t, f.calls, "nothing runs before the credential arrives")

	f.push(runner.Result{Stdout: "All packages are up to date.", ExitCode: 0}, nil)
	out = ctrl.Execute(context.Background(), Request{Command: "sudo apt-get update", Credential: "secret123"}, sess)
	assert.Equal(t, StatusSuccess, out.Status)

	require.Len(t, f.calls, 1)
	assert.Equal(t, "sudo -S apt-get update", f.calls[0].commandLine)
	assert.Equal(t, "secret123\n", f.calls[0].stdin)

	secret, ok, err := sess.Credential()
	require.NoError(t, err)
	require.True(t, ok, "accepted credential must be cached")
	assert.Equal(t, "secret123", secret)
}

// Scenario D: the host rejects the credential; it is evicted, not reused.
func TestPrivilegedAuthFailureEvictsCredential(t *testing.T) {
	f := &fakeRunner{}
	f.push(runner.Result{Stderr: "Sorry, try again.", ExitCode: 1}, nil)
	ctrl := newTestController(f)
	sess, _ := newTestSession("s-1")

	out := ctrl.Execute(context.Background(), Request{Command: "sudo apt-get update", Credential: "secret123"}, sess)
	assert.Equal(t, StatusPendingAuth, out.Status)
	assert.Equal(t, ErrAuthenticationFailed, out.ErrKind)
	require.NotNil(t, out.Request)
	assert.Equal(t, session.RequestKindAuth, out.Request.Kind)

	_, ok, err := sess.Credential()
	require.NoError(t, err)
	assert.False(t, ok, "a rejected credential must be evicted")
}

func TestCachedCredentialIsReused(t *testing.T) {
	f := &fakeRunner{}
	f.push(runner.Result{ExitCode: 0}, nil)
	ctrl := newTestController(f)
	sess, _ := newTestSession("s-1")
	require.NoError(t, sess.SetCredential("secret123"))

	out := ctrl.Execute(context.Background(), Request{Command: "sudo systemctl restart nginx"}, sess)
	assert.Equal(t, StatusSuccess, out.Status)
	require.Len(t, f.calls, 1)
	assert.Equal(t, "secret123\n", f.calls[0].stdin)
}

// Scenario E: confirmation prompt pauses, then an accepted resume re-executes
// with the password and keystroke chained into one stdin write.
func TestConfirmationPauseAndAcceptedResume(t *testing.T) {
	f := &fakeRunner{}
	f.push(runner.Result{Stdout: "After this operation, 42 MB of additional disk space will be used.\nDo you want to continue? [Y/n]", ExitCode: 0}, nil)
	ctrl := newTestController(f)
	sess, _ := newTestSession("s-1")
	require.NoError(t, sess.SetCredential("secret123"))

	out := ctrl.Execute(context.Background(), Request{Command: "sudo apt-get install foo"}, sess)
	assert.Equal(t, StatusPendingConfirmation, out.Status)
	require.NotNil(t, out.Request)
	assert.Equal(t, session.RequestKindConfirm, out.Request.Kind)
	assert.Equal(t, "sudo apt-get install foo", out.Request.Payload)
	assert.Contains(t, out.Request.Hint, "Do you want to continue?")

	f.push(runner.Result{Stdout: "Setting up foo (1.0) ...", ExitCode: 0}, nil)
	out = ctrl.Execute(context.Background(), Request{
		Command:      "sudo apt-get install foo",
		Confirmation: &ConfirmationAnswer{ID: out.Request.ID, Confirmed: true},
	}, sess)
	assert.Equal(t, StatusSuccess, out.Status)

	require.Len(t, f.calls, 2)
	assert.Equal(t, "sudo -S apt-get install foo", f.calls[1].commandLine)
	assert.Equal(t, "secret123\ny\n", f.calls[1].stdin)
}

// Scenario F: a rejected confirmation ends the episode without re-execution.
func TestConfirmationRejectedResume(t *testing.T) {
	f := &fakeRunner{}
	f.push(runner.Result{Stdout: "Do you want to continue? [Y/n]", ExitCode: 0}, nil)
	ctrl := newTestController(f)
	sess, _ := newTestSession("s-1")
	require.NoError(t, sess.SetCredential("secret123"))

	out := ctrl.Execute(context.Background(), Request{Command: "sudo apt-get install foo"}, sess)
	require.Equal(t, StatusPendingConfirmation, out.Status)

	out = ctrl.Execute(context.Background(), Request{
		Command:      "sudo apt-get install foo",
		Confirmation: &ConfirmationAnswer{ID: out.Request.ID, Confirmed: false},
	}, sess)
	assert.Equal(t, StatusRejected, out.Status)
	assert.Len(t, f.calls, 1, "rejection must not trigger a second execution")
	assert.Nil(t, sess.PendingRequest(), "the pending request is consumed")
}

func TestConfirmationPromptIgnoredOnSecondPass(t *testing.T) {
	f := &fakeRunner{}
	f.push(runner.Result{Stdout: "Do you want to continue? [Y/n]", ExitCode: 0}, nil)
	ctrl := newTestController(f)
	sess, _ := newTestSession("s-1")
	require.NoError(t, sess.SetCredential("secret123"))

	out := ctrl.Execute(context.Background(), Request{Command: "sudo apt-get install foo"}, sess)
	require.Equal(t, StatusPendingConfirmation, out.Status)

	// The re-run emits the prompt text again; it is treated as plain output.
	f.push(runner.Result{Stdout: "Do you want to continue? [Y/n]\ndone", ExitCode: 0}, nil)
	out = ctrl.Execute(context.Background(), Request{
		Command:      "sudo apt-get install foo",
		Confirmation: &ConfirmationAnswer{ID: out.Request.ID, Confirmed: true},
	}, sess)
	assert.Equal(t, StatusSuccess, out.Status)
}

func TestAuthFailureBeatsConfirmationPrompt(t *testing.T) {
	f := &fakeRunner{}
	f.push(runner.Result{Stdout: "Do you want to continue? [Y/n]", Stderr: "Sorry, try again.", ExitCode: 1}, nil)
	ctrl := newTestController(f)
	sess, _ := newTestSession("s-1")
	require.NoError(t, sess.SetCredential("wrong"))

	out := ctrl.Execute(context.Background(), Request{Command: "sudo apt-get install foo"}, sess)
	assert.Equal(t, StatusPendingAuth, out.Status, "a failed sudo attempt is never a program prompt")
}

func TestCredentialLostAfterConfirmation(t *testing.T) {
	f := &fakeRunner{}
	ctrl := newTestController(f)
	sess, _ := newTestSession("s-1")
	sess.SetPendingRequest(&session.PendingRequest{
		Kind:    session.RequestKindConfirm,
		ID:      "c-1",
		Payload: "sudo apt-get install foo",
	})

	out := ctrl.Execute(context.Background(), Request{
		Command:      "sudo apt-get install foo",
		Confirmation: &ConfirmationAnswer{ID: "c-1", Confirmed: true},
	}, sess)
	assert.Equal(t, StatusError, out.Status)
	assert.Equal(t, ErrToolException, out.ErrKind)
	assert.Empty(t, f.calls)
}

func TestConfirmationResumeWithoutPendingRequest(t *testing.T) {
	f := &fakeRunner{}
	ctrl := newTestController(f)
	sess, _ := newTestSession("s-1")

	out := ctrl.Execute(context.Background(), Request{
		Command:      "sudo apt-get install foo",
		Confirmation: &ConfirmationAnswer{ID: "stale", Confirmed: true},
	}, sess)
	assert.Equal(t, StatusError, out.Status)
	assert.Equal(t, ErrToolException, out.ErrKind)
}

func TestRunnerFailureIsToolException(t *testing.T) {
	f := &fakeRunner{}
	f.push(runner.Result{}, errors.New("fork/exec: no such file"))
	ctrl := newTestController(f)
	sess, _ := newTestSession("s-1")

	out := ctrl.Execute(context.Background(), Request{Command: "ls"}, sess)
	assert.Equal(t, StatusError, out.Status)
	assert.Equal(t, ErrToolException, out.ErrKind)
}

// Running the same successful base command twice leaves installed:true.
func TestFactIdempotence(t *testing.T) {
	f := &fakeRunner{}
	f.push(runner.Result{ExitCode: 0}, nil)
	f.push(runner.Result{ExitCode: 0}, nil)
	ctrl := newTestController(f)
	sess, _ := newTestSession("s-1")

	ctrl.Execute(context.Background(), Request{Command: "ls -la"}, sess)
	ctrl.Execute(context.Background(), Request{Command: "ls"}, sess)

	facts, err := sess.InstalledFacts()
	require.NoError(t, err)
	assert.True(t, facts["ls"].Installed)
}

// An abandoned pause is overwritten when a new episode begins; at most one
// pending request exists between episodes.
func TestStalePendingRequestIsOverwritten(t *testing.T) {
	f := &fakeRunner{}
	ctrl := newTestController(f)
	sess, _ := newTestSession("s-1")

	out := ctrl.Execute(context.Background(), Request{Command: "sudo apt-get update"}, sess)
	require.Equal(t, StatusPendingAuth, out.Status)
	require.NotNil(t, sess.PendingRequest())

	f.push(runner.Result{ExitCode: 0}, nil)
	out = ctrl.Execute(context.Background(), Request{Command: "ls"}, sess)
	assert.Equal(t, StatusSuccess, out.Status)
	assert.Nil(t, sess.PendingRequest())
}

func TestEpisodeEventsAreLogged(t *testing.T) {
	f := &fakeRunner{}
	f.push(runner.Result{ExitCode: 0}, nil)
	ctrl := newTestController(f)
	sess, store := newTestSession("s-1")

	ctrl.Execute(context.Background(), Request{Command: "ls"}, sess)

	events := store.Events("s-1")
	require.Len(t, events, 2)
	assert.Equal(t, session.EventEpisodeStarted, events[0].Type)
	assert.Equal(t, session.EventEpisodeFinished, events[1].Type)
}
