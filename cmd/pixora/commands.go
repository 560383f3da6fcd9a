package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/BradenHooton/pixora/internal/callback"
	"github.com/BradenHooton/pixora/internal/config"
	"github.com/BradenHooton/pixora/internal/flows"
	"github.com/BradenHooton/pixora/internal/models"
)

// errReported marks a failure whose details were already printed
var errReported = errors.New("reported")

const oauthWait = 5 * time.Minute

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"signin":          {"signin [-email E] [-password P] [-remember]", cmdSignIn},
		"forgot-password": {"forgot-password [-email E]", cmdForgotPassword},
		"reset-password":  {"reset-password -token T", cmdResetPassword},
		"register":        {"register", cmdRegister},
		"oauth":           {"oauth", cmdOAuth},
		"status":          {"status", cmdStatus},
		"profile":         {"profile", cmdProfile},
		"conversations":   {"conversations [-all]", cmdConversations},
		"open":            {"open SESSION_ID", cmdOpen},
		"delete":          {"delete SESSION_ID", cmdDelete},
		"new":             {"new", cmdNew},
		"generate":        {"generate [-session ID] [-model M] [-width W] [-height H] [-enhance] [-safe] PROMPT...", cmdGenerate},
		"signout":         {"signout", cmdSignOut},
		"help":            {"help", cmdHelp},
	}
}

type app struct {
	cfg     *config.Config
	deps    flows.Deps
	session *flows.Session
	dash    *flows.Dashboard
	prompt  *prompter
	out     io.Writer
}

func newApp(cfg *config.Config, deps flows.Deps, in io.Reader, out io.Writer) *app {
	session := flows.NewSession(deps)
	return &app{
		cfg:     cfg,
		deps:    deps,
		session: session,
		dash:    flows.NewDashboard(deps, session),
		prompt:  newPrompter(in, out),
		out:     out,
	}
}

func (a *app) Close() {
	a.dash.Close()
}

func (a *app) dispatch(ctx context.Context, args []string) error {
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q (try \"help\")", args[0])
	}
	return cmd.run(ctx, a, args[1:])
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

// failed prints the form errors and marks err as reported
func (a *app) failed(errs flows.FieldErrors, err error) error {
	if len(errs) == 0 {
		return err
	}
	printFieldErrors(a.out, errs)
	return fmt.Errorf("%w: %w", errReported, err)
}

func cmdHelp(_ context.Context, a *app, _ []string) error {
	fmt.Fprintln(a.out, "Commands:")
	for _, name := range []string{
		"signin", "forgot-password", "reset-password", "register", "oauth", "status", "profile",
		"conversations", "open", "delete", "new", "generate", "signout", "help",
	} {
		fmt.Fprintf(a.out, "  %s\n", commands[name].usage)
	}
	return nil
}

func cmdSignIn(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("signin")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	remember := fs.Bool("remember", false, "keep the session after the browser closes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var err error
	if *email, err = a.prompt.askIfEmpty(*email, "Email"); err != nil {
		return err
	}
	if *password, err = a.prompt.askIfEmpty(*password, "Password"); err != nil {
		return err
	}

	f := flows.NewSignIn(a.deps)
	defer f.Close()
	if err := f.SubmitSignIn(ctx, *email, *password, *remember); err != nil {
		return a.failed(f.State().Errors, err)
	}
	return nil
}

func cmdForgotPassword(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("forgot-password")
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var err error
	if *email, err = a.prompt.askIfEmpty(*email, "Email"); err != nil {
		return err
	}

	f := flows.NewSignIn(a.deps)
	defer f.Close()
	f.ShowForgotPassword()
	if err := f.SubmitForgotPassword(ctx, *email); err != nil {
		return a.failed(f.State().Errors, err)
	}
	fmt.Fprintln(a.out, f.State().Notice)
	return nil
}

func cmdResetPassword(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("reset-password")
	token := fs.String("token", "", "token from the reset link")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *token == "" {
		return errors.New("-token is required")
	}

	f := flows.NewPasswordReset(*token, a.deps)
	defer f.Close()

	for f.State().Status == flows.ResetForm {
		password, err := a.prompt.Ask("New password")
		if err != nil {
			return err
		}
		confirm, err := a.prompt.Ask("Confirm password")
		if err != nil {
			return err
		}
		if err := f.Submit(ctx, password, confirm); err != nil && f.State().Status == flows.ResetForm {
			printFieldErrors(a.out, f.State().Errors)
		}
	}

	switch f.State().Status {
	case flows.ResetSuccess:
		fmt.Fprintln(a.out, "Password updated. You can now sign in.")
		return nil
	default:
		fmt.Fprintln(a.out, "This reset link is invalid or has expired. Request a new one with forgot-password.")
		return errReported
	}
}

// cmdRegister walks the wizard interactively. Typing "back" at a prompt
// returns to the previous step where the wizard allows it.
func cmdRegister(ctx context.Context, a *app, _ []string) error {
	f := flows.NewRegistration(a.deps)
	defer f.Close()

	if err := f.ChooseEmail(); err != nil {
		return err
	}

	for !f.State().Completed {
		var err error
		switch f.State().Step {
		case flows.StepInitial:
			fmt.Fprintln(a.out, "Registration cancelled.")
			return nil
		case flows.StepEmailVerification:
			err = a.registerEmail(ctx, f)
		case flows.StepOTPVerification:
			err = a.registerOTP(ctx, f)
		case flows.StepCompleteProfile:
			err = a.registerProfile(ctx, f)
		}
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			return err
		}
		if err != nil {
			printFieldErrors(a.out, f.State().Errors)
		}
	}

	fmt.Fprintln(a.out, "Registration complete. Please sign in.")
	return nil
}

func (a *app) registerEmail(ctx context.Context, f *flows.Registration) error {
	email, err := a.prompt.Ask(`Email (or "back")`)
	if err != nil {
		return err
	}
	if email == "back" {
		return f.Back()
	}
	return f.SubmitEmail(ctx, email)
}

func (a *app) registerOTP(ctx context.Context, f *flows.Registration) error {
	fmt.Fprintf(a.out, "We sent a verification code to %s.\n", f.State().Email)
	code, err := a.prompt.Ask(`Code (or "back")`)
	if err != nil {
		return err
	}
	if code == "back" {
		return f.Back()
	}
	return f.SubmitOTP(ctx, code)
}

func (a *app) registerProfile(ctx context.Context, f *flows.Registration) error {
	username, err := a.prompt.Ask("Username")
	if err != nil {
		return err
	}
	password, err := a.prompt.Ask("Password")
	if err != nil {
		return err
	}
	confirm, err := a.prompt.Ask("Confirm password")
	if err != nil {
		return err
	}
	return f.SubmitProfile(ctx, username, password, confirm)
}

// cmdOAuth serves the loopback callback and waits for the browser to come back
func cmdOAuth(ctx context.Context, a *app, _ []string) error {
	srv := callback.NewServer(callback.Config{
		Addr:      a.cfg.Client.CallbackAddr,
		Env:       a.cfg.Client.Env,
		RateLimit: a.cfg.Client.CallbackRateLimit,
	}, a.deps)
	if err := srv.Start(); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	url := a.deps.API.OAuthURL()
	fmt.Fprintf(a.out, "Open this link to sign in with Google:\n  %s\n", url)
	if qr, err := qrcode.New(url, qrcode.Medium); err == nil {
		fmt.Fprint(a.out, qr.ToSmallString(false))
	}
	fmt.Fprintf(a.out, "Waiting for the redirect to %s ...\n", srv.URL())

	select {
	case res := <-srv.Results():
		if res.Outcome != flows.CallbackSignedIn {
			fmt.Fprintf(a.out, "Google sign-in failed (%s).\n", res.Outcome)
			return errReported
		}
		// let the scheduled dashboard navigation fire before the server closes
		select {
		case <-time.After(a.deps.Delays.CallbackDisplay):
		case <-ctx.Done():
		}
		fmt.Fprintln(a.out, "Signed in with Google.")
		return nil
	case <-time.After(oauthWait):
		return errors.New("timed out waiting for the sign-in redirect")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func cmdStatus(ctx context.Context, a *app, _ []string) error {
	claims, err := a.session.AccessClaims(ctx)
	if errors.Is(err, flows.ErrNotSignedIn) {
		fmt.Fprintln(a.out, "Not signed in.")
		return nil
	}

	user, userErr := a.session.User(ctx)
	switch {
	case userErr != nil:
		return userErr
	case user != nil:
		fmt.Fprintf(a.out, "Signed in as %s <%s>\n", user.Username, user.Email)
	default:
		fmt.Fprintln(a.out, "Signed in.")
	}

	switch {
	case errors.Is(err, flows.ErrOpaqueToken):
		fmt.Fprintln(a.out, "Access token expiry unknown.")
	case err != nil:
		return err
	case claims.Expired(time.Now()):
		fmt.Fprintln(a.out, "Access token has expired.")
	default:
		fmt.Fprintf(a.out, "Access token valid until %s\n", claims.ExpiresAt.Local().Format(time.DateTime))
	}
	return nil
}

func cmdProfile(ctx context.Context, a *app, _ []string) error {
	user, err := flows.NewProfile(a.deps, a.session).Fetch(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "ID:       %s\nEmail:    %s\nUsername: %s\n", user.ID, user.Email, user.Username)
	return nil
}

func cmdConversations(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("conversations")
	all := fs.Bool("all", false, "follow the cursor until every page is loaded")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.dash.LoadConversations(ctx); err != nil {
		return err
	}
	for *all && a.dash.State().NextCursor != "" {
		if err := a.dash.LoadMore(ctx); err != nil {
			return err
		}
	}

	state := a.dash.State()
	if len(state.Conversations) == 0 {
		fmt.Fprintln(a.out, "No conversations yet.")
		return nil
	}
	for _, c := range state.Conversations {
		fmt.Fprintf(a.out, "%s  %s  %s\n", c.SessionID, c.UpdatedAt.Local().Format(time.DateTime), c.Title)
	}
	if state.NextCursor != "" {
		fmt.Fprintln(a.out, "(more available: conversations -all)")
	}
	return nil
}

func cmdOpen(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: " + commands["open"].usage)
	}
	if err := a.dash.Open(ctx, args[0]); err != nil {
		return err
	}
	for _, m := range a.dash.State().Messages {
		printMessage(a.out, m)
	}
	return nil
}

func cmdDelete(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: " + commands["delete"].usage)
	}
	return a.dash.Delete(ctx, args[0])
}

func cmdNew(_ context.Context, a *app, _ []string) error {
	a.dash.NewConversation()
	fmt.Fprintln(a.out, "Started a new conversation.")
	return nil
}

func cmdGenerate(ctx context.Context, a *app, args []string) error {
	defaults := models.DefaultImageSettings()

	fs := a.flagSet("generate")
	sessionID := fs.String("session", "", "continue this conversation")
	model := fs.String("model", defaults.Model, "image model")
	width := fs.Int("width", defaults.Width, "image width in pixels")
	height := fs.Int("height", defaults.Height, "image height in pixels")
	enhance := fs.Bool("enhance", defaults.Enhance, "let the model rewrite the prompt")
	safe := fs.Bool("safe", defaults.Safe, "refuse unsafe prompts")
	if err := fs.Parse(args); err != nil {
		return err
	}

	prompt := strings.Join(fs.Args(), " ")
	if prompt == "" {
		return errors.New("usage: " + commands["generate"].usage)
	}

	if *sessionID != "" && *sessionID != a.dash.State().CurrentSessionID {
		if err := a.dash.Open(ctx, *sessionID); err != nil {
			return err
		}
	}

	resp, err := a.dash.Generate(ctx, prompt, models.ImageSettings{
		Model:   *model,
		Width:   *width,
		Height:  *height,
		Enhance: *enhance,
		Safe:    *safe,
	})
	if errors.Is(err, flows.ErrBusy) || errors.Is(err, flows.ErrFlowClosed) {
		return err
	}
	if err != nil {
		// the dashboard has already shown the failure as a toast
		return fmt.Errorf("%w: %w", errReported, err)
	}

	fmt.Fprintf(a.out, "Image: %s\nConversation: %s\n", resp.ImageURL, a.dash.State().CurrentSessionID)
	return nil
}

func cmdSignOut(ctx context.Context, a *app, _ []string) error {
	a.dash.NewConversation()
	return a.session.SignOut(ctx)
}

func printMessage(out io.Writer, m models.Message) {
	switch m.Role {
	case models.RoleAI:
		fmt.Fprintf(out, "ai:   %s\n      %s\n", m.Content, m.ImageURL)
	default:
		fmt.Fprintf(out, "%-5s %s\n", m.Role+":", m.Content)
	}
}
