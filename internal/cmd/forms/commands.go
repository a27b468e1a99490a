package forms

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/formledger/internal/ledger"
	"github.com/louisbranch/formledger/internal/ledger/sui"
	apperrors "github.com/louisbranch/formledger/internal/platform/errors"
	platformgrpc "github.com/louisbranch/formledger/internal/platform/grpc"
	"github.com/louisbranch/formledger/internal/platform/timeouts"
	"github.com/louisbranch/formledger/internal/services/forms/analytics"
	server "github.com/louisbranch/formledger/internal/services/forms/app"
	"github.com/louisbranch/formledger/internal/services/forms/domain"
	"github.com/louisbranch/formledger/internal/services/forms/storage"
	"github.com/louisbranch/formledger/internal/services/forms/storage/sqlite"
)

// mistPerSui is the number of MIST in one SUI.
const mistPerSui = 1_000_000_000

// stringList collects a repeatable string flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(value string) error {
	*l = append(*l, value)
	return nil
}

func newFlagSet(env *runEnv, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(env.errOut)
	return fs
}

func parseTypes(values []string) ([]domain.EventType, error) {
	types := make([]domain.EventType, 0, len(values))
	for _, v := range values {
		t, ok := domain.ParseEventType(v)
		if !ok {
			return nil, apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf("unknown event type %q", v))
		}
		types = append(types, t)
	}
	return types, nil
}

// formArg returns the single positional form id of a command.
func formArg(name string, args []string) (string, error) {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return "", apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf("usage: forms %s <form-id>", name))
	}
	return strings.TrimSpace(args[0]), nil
}

func runStatus(ctx context.Context, env *runEnv, args []string) error {
	w := env.out
	fmt.Fprintf(w, "RPC:       %s\n", env.cfg.RPCURL)
	ws := env.cfg.WSURL
	if ws == "" {
		ws = sui.WebsocketURL(env.cfg.RPCURL)
	}
	fmt.Fprintf(w, "Websocket: %s\n", ws)
	fmt.Fprintf(w, "Locale:    %s\n", env.localizer.Tag())
	if info, ok := env.gateway.(nodeInfo); ok {
		fmt.Fprintf(w, "Chain:     %s\n", info.ChainID())
	}

	sender := env.gateway.Sender()
	if sender == "" {
		fmt.Fprintln(w, "Account:   read-only (set FORMLEDGER_SECRET_KEY to sign)")
	} else {
		fmt.Fprintf(w, "Account:   %s\n", sender)
		if info, ok := env.gateway.(nodeInfo); ok {
			balance, err := info.Balance(ctx, sender)
			if err != nil {
				fmt.Fprintf(w, "Balance:   unavailable (%v)\n", err)
			} else {
				fmt.Fprintf(w, "Balance:   %s SUI\n", formatSui(balance))
			}
		}
	}

	if !env.bound {
		fmt.Fprintln(w, "Contract:  not configured (set FORMLEDGER_PACKAGE_ID and FORMLEDGER_REGISTRY_ID)")
		return nil
	}
	fmt.Fprintf(w, "Package:   %s (%s)\n", env.binding.PackageID, objectState(ctx, env.gateway, env.binding.PackageID))
	fmt.Fprintf(w, "Registry:  %s (%s)\n", env.binding.RegistryID, objectState(ctx, env.gateway, env.binding.RegistryID))
	stats, err := env.service().GetRegistryStats(ctx)
	if err != nil {
		return env.fail(err)
	}
	fmt.Fprintf(w, "Forms:     %d (%d active, %d inactive)\n", stats.TotalForms, stats.ActiveForms, stats.InactiveForms)
	return nil
}

func objectState(ctx context.Context, r ledger.Reader, id string) string {
	_, found, err := r.GetObject(ctx, id)
	switch {
	case err != nil:
		return "unavailable: " + err.Error()
	case found:
		return "found"
	default:
		return "not found"
	}
}

func formatSui(mist uint64) string {
	whole := mist / mistPerSui
	frac := mist % mistPerSui
	if frac == 0 {
		return strconv.FormatUint(whole, 10)
	}
	return strings.TrimRight(fmt.Sprintf("%d.%09d", whole, frac), "0")
}

func runListForms(ctx context.Context, env *runEnv, args []string) error {
	fs := newFlagSet(env, "list-forms")
	sortKey := fs.String("sort", string(analytics.SortNewest), "sort order: newest, oldest, title, mostQuestions")
	search := fs.String("search", "", "match title, description or question text")
	state := fs.String("state", "all", "all, active or inactive")
	author := fs.String("author", "", "only forms by this address")
	mine := fs.Bool("mine", false, "only forms by the signing account")
	if err := fs.Parse(args); err != nil {
		return err
	}
	key, err := analytics.ParseSortKey(*sortKey)
	if err != nil {
		return env.fail(apperrors.Wrap(apperrors.CodeInvalidArgument, err.Error(), err))
	}

	svc := env.service()
	var forms []domain.Form
	switch {
	case *mine:
		forms, err = svc.GetCurrentUserForms(ctx)
	case *author != "":
		forms, err = svc.GetFormsByAuthor(ctx, *author)
	default:
		forms, err = svc.GetAllForms(ctx)
	}
	if err != nil {
		return env.fail(err)
	}

	switch strings.ToLower(*state) {
	case "all":
	case "active", "inactive":
		want := strings.EqualFold(*state, "active")
		kept := forms[:0]
		for _, f := range forms {
			if f.IsActive == want {
				kept = append(kept, f)
			}
		}
		forms = kept
	default:
		return env.fail(apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf("unknown state %q", *state)))
	}
	if strings.TrimSpace(*search) != "" {
		forms = analytics.FilterForms(forms, *search)
	}
	forms = analytics.SortForms(forms, key)

	if len(forms) == 0 {
		fmt.Fprintln(env.out, "No forms.")
		return nil
	}
	for _, f := range forms {
		writeFormLine(env.out, f)
	}
	return nil
}

func writeFormLine(w io.Writer, f domain.Form) {
	state := "active"
	if !f.IsActive {
		state = "inactive"
	}
	fmt.Fprintf(w, "%s  %-8s  %2d questions  %s  by %s\n",
		analytics.ShortenID(f.ID, 6), state, len(f.Questions),
		analytics.TruncateText(f.Title, 40), analytics.ShortenID(f.Author, 4))
}

func runShow(ctx context.Context, env *runEnv, args []string) error {
	formID, err := formArg("show", args)
	if err != nil {
		return env.fail(err)
	}
	svc := env.service()
	form, found, err := svc.GetForm(ctx, formID)
	if err != nil {
		return env.fail(err)
	}
	if !found {
		return env.fail(apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("form %s not found", formID)))
	}

	w := env.out
	state := "active"
	if !form.IsActive {
		state = "inactive"
	}
	fmt.Fprintf(w, "%s (%s)\n", form.Title, state)
	fmt.Fprintf(w, "ID:     %s\n", form.ID)
	fmt.Fprintf(w, "Author: %s\n", form.Author)
	if form.Description != "" {
		fmt.Fprintf(w, "\n%s\n", form.Description)
	}
	sender := svc.Sender()
	for i, q := range form.Questions {
		stats := analytics.CalculateVotingStats(q)
		fmt.Fprintf(w, "\n[%d] %s (%d votes)\n", i, q.Title, stats.TotalVotes)
		for j, option := range q.Options {
			var votes uint64
			if j < len(q.Votes) {
				votes = q.Votes[j]
			}
			marker := " "
			if stats.Winner != nil && stats.Winner.Index == j {
				marker = "*"
			}
			fmt.Fprintf(w, "  %s %d. %-24s %4d  %5.1f%%\n", marker, j, option, votes, stats.Percentages[j])
		}
		if sender != "" && q.HasVoted(sender) {
			fmt.Fprintln(w, "  You voted on this question.")
		}
	}

	evs, err := env.stream().FormEvents(ctx, form.ID)
	if err != nil {
		env.logger.Warn("form events unavailable", "event", "forms_cli_events_failed", "form_id", form.ID, "error", err)
		return nil
	}
	if len(evs) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nRecent activity:")
	now := env.now()
	for _, ev := range evs {
		writeEventLine(w, env, ev, now)
	}
	return nil
}

func writeEventLine(w io.Writer, env *runEnv, ev domain.Event, now time.Time) {
	subject := analytics.ShortenID(ev.AuthorAddress(), 4)
	if voted, ok := ev.(domain.UserVoted); ok {
		subject = analytics.ShortenID(voted.User, 4)
	}
	fmt.Fprintf(w, "  %-14s  %-12s  form %s  %s\n",
		env.localizer.RelativeTime(ev.At(), now), ev.Type(),
		analytics.ShortenID(ev.CorrelationID(), 6), subject)
}

func runStats(ctx context.Context, env *runEnv, args []string) error {
	stats, err := env.service().GetRegistryStats(ctx)
	if err != nil {
		return env.fail(err)
	}
	fmt.Fprintf(env.out, "Total forms:     %d\n", stats.TotalForms)
	fmt.Fprintf(env.out, "Active forms:    %d\n", stats.ActiveForms)
	fmt.Fprintf(env.out, "Inactive forms:  %d\n", stats.InactiveForms)
	fmt.Fprintf(env.out, "Total questions: %d\n", stats.TotalQuestions)
	return nil
}

func runCreate(ctx context.Context, env *runEnv, args []string) error {
	fs := newFlagSet(env, "create")
	title := fs.String("title", "", "form title")
	description := fs.String("description", "", "form description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return env.report(env.service().CreateForm(ctx, *title, *description))
}

func runAddQuestion(ctx context.Context, env *runEnv, args []string) error {
	fs := newFlagSet(env, "add-question")
	formID := fs.String("form", "", "form id")
	title := fs.String("title", "", "question title")
	description := fs.String("description", "", "question description")
	var options stringList
	fs.Var(&options, "option", "answer option (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return env.report(env.service().AddQuestion(ctx, *formID, *title, *description, options))
}

// formOp runs a single-form mutation.
func formOp(op string) func(context.Context, *runEnv, []string) error {
	return func(ctx context.Context, env *runEnv, args []string) error {
		formID, err := formArg(op, args)
		if err != nil {
			return env.fail(err)
		}
		svc := env.service()
		var result domain.TxResult
		switch op {
		case "list":
			result = svc.ListForm(ctx, formID)
		case "delist":
			result = svc.DelistForm(ctx, formID)
		case "relist":
			result = svc.RelistForm(ctx, formID)
		case "transfer":
			result = svc.TransferFormToCreator(ctx, formID)
		default:
			return fmt.Errorf("unknown form operation %q", op)
		}
		return env.report(result)
	}
}

func runVote(ctx context.Context, env *runEnv, args []string) error {
	fs := newFlagSet(env, "vote")
	formID := fs.String("form", "", "form id")
	question := fs.Int("question", 0, "question index")
	option := fs.Uint64("option", 0, "option index")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return env.report(env.service().VoteOnQuestion(ctx, *formID, *question, *option))
}

func runEvents(ctx context.Context, env *runEnv, args []string) error {
	fs := newFlagSet(env, "events")
	formID := fs.String("form", "", "only events for this form")
	limit := fs.Int("limit", 0, "max events to read (default 50)")
	var typeNames stringList
	fs.Var(&typeNames, "type", "event type: FormListed, FormDelisted, UserVoted, FormDeleted (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	types, err := parseTypes(typeNames)
	if err != nil {
		return env.fail(err)
	}

	stream := env.stream()
	var evs []domain.Event
	if strings.TrimSpace(*formID) != "" {
		evs, err = stream.FormEvents(ctx, strings.TrimSpace(*formID), types...)
	} else {
		evs, err = stream.RecentEvents(ctx, *limit, types...)
	}
	if err != nil {
		return env.fail(err)
	}
	if len(evs) == 0 {
		fmt.Fprintln(env.out, "No events.")
		return nil
	}
	now := env.now()
	for _, ev := range evs {
		writeEventLine(env.out, env, ev, now)
	}
	return nil
}

func openJournal(ctx context.Context, path string) (*sqlite.Store, error) {
	store, err := sqlite.Open(ctx, path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfiguration, fmt.Sprintf("open journal: %v", err), err)
	}
	return store, nil
}

func runJournal(ctx context.Context, env *runEnv, args []string) error {
	fs := newFlagSet(env, "journal")
	filter := fs.String("filter", "", `filter expression, e.g. type = "UserVoted" AND form_id = "0x1"`)
	limit := fs.Int("limit", 50, "max entries per page")
	pageToken := fs.String("page-token", "", "page token from a previous run")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(env.cfg.JournalPath) == "" {
		return env.fail(apperrors.New(apperrors.CodeConfiguration, "journal path is required (set FORMLEDGER_JOURNAL_PATH or -journal)"))
	}
	store, err := openJournal(ctx, env.cfg.JournalPath)
	if err != nil {
		return env.fail(err)
	}
	defer store.Close()

	page, err := store.ListEntries(ctx, storage.EntryQuery{Filter: *filter, PageSize: *limit, PageToken: *pageToken})
	if err != nil {
		return env.fail(apperrors.Wrap(apperrors.CodeInvalidArgument, err.Error(), err))
	}
	if len(page.Entries) == 0 {
		fmt.Fprintln(env.out, "No entries.")
		return nil
	}
	for _, e := range page.Entries {
		subject := analytics.ShortenID(e.Author, 4)
		if e.Voter != "" {
			subject = analytics.ShortenID(e.Voter, 4)
		}
		fmt.Fprintf(env.out, "%6d  %s  %-12s  form %s  %s\n",
			e.Seq, env.localizer.FormatTimestamp(e.OccurredAt), e.Type,
			analytics.ShortenID(e.FormID, 6), subject)
	}
	if page.NextPageToken != "" {
		fmt.Fprintf(env.out, "Next page: -page-token %s\n", page.NextPageToken)
	}
	return nil
}

func runWatch(ctx context.Context, env *runEnv, args []string) error {
	fs := newFlagSet(env, "watch")
	var typeNames stringList
	fs.Var(&typeNames, "type", "only watch this event type (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	types, err := parseTypes(typeNames)
	if err != nil {
		return env.fail(err)
	}

	opts := []server.Option{
		server.WithTypes(types...),
		server.WithObserver(func(ev domain.Event) {
			writeEventLine(env.out, env, ev, env.now())
		}),
	}
	if strings.TrimSpace(env.cfg.JournalPath) != "" {
		store, err := openJournal(ctx, env.cfg.JournalPath)
		if err != nil {
			return env.fail(err)
		}
		defer store.Close()
		opts = append(opts, server.WithJournal(store))
	}

	srv, err := server.New(env.cfg.HealthPort, env.stream(), opts...)
	if err != nil {
		return env.fail(apperrors.Wrap(apperrors.CodeConfiguration, err.Error(), err))
	}
	defer srv.Close()
	if err := srv.Serve(ctx); err != nil {
		return env.fail(err)
	}
	return nil
}

func runHealth(ctx context.Context, env *runEnv, args []string) error {
	fs := newFlagSet(env, "health")
	addr := fs.String("addr", fmt.Sprintf("localhost:%d", env.cfg.HealthPort), "watcher health address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := platformgrpc.Probe(ctx, *addr, server.HealthService, timeouts.LedgerDial, nil); err != nil {
		return env.fail(apperrors.Wrap(apperrors.CodeNetworkError, fmt.Sprintf("network error: %v", err), err))
	}
	fmt.Fprintf(env.out, "%s is serving on %s\n", server.HealthService, *addr)
	return nil
}

// report prints a mutation outcome.
func (e *runEnv) report(result domain.TxResult) error {
	if !result.Success {
		e.printFailure(e.localizer.DescribeResult(result))
		return ErrFailed
	}
	fmt.Fprintf(e.out, "Transaction: %s\n", result.TransactionID)
	if result.FormID != "" {
		fmt.Fprintf(e.out, "Form:        %s\n", result.FormID)
	}
	if result.Form != nil {
		writeFormLine(e.out, *result.Form)
	}
	return nil
}

// fail prints a classified error and returns ErrFailed.
func (e *runEnv) fail(err error) error {
	var info analytics.ErrorInfo
	switch {
	case errors.Is(err, ledger.ErrNoSigner):
		info = analytics.ErrorInfo{Message: err.Error(), Severity: analytics.SeverityError}
	default:
		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			info = e.localizer.DescribeText(appErr.Message)
			if !appErr.Code.Retryable() {
				info.Retryable = false
			}
		} else {
			info = e.localizer.DescribeText(err.Error())
		}
	}
	e.printFailure(info)
	return ErrFailed
}

func (e *runEnv) printFailure(info analytics.ErrorInfo) {
	fmt.Fprintf(e.errOut, "%s: %s\n", info.Severity, info.Message)
	if info.Action != "" {
		fmt.Fprintf(e.errOut, "Try: %s\n", info.Action)
	}
	if info.Retryable {
		fmt.Fprintln(e.errOut, "This may succeed if retried.")
	}
}
