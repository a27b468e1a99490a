package forms

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/formledger/internal/ledger/ledgertest"
	"github.com/louisbranch/formledger/internal/ledger/sui"
	"github.com/louisbranch/formledger/internal/services/forms/contract"
	"github.com/louisbranch/formledger/internal/services/forms/domain"
	"github.com/louisbranch/formledger/internal/services/forms/events"
	"github.com/louisbranch/formledger/internal/services/forms/service"
	"github.com/louisbranch/formledger/internal/services/forms/storage"
	"github.com/louisbranch/formledger/internal/services/forms/storage/sqlite"
)

const (
	alice = "0xa11ce"
	bob   = "0xb0b"
)

// testGateway adds the process-level surface of a node client to an
// in-memory account.
type testGateway struct {
	*ledgertest.Account
	balance uint64
}

func (g testGateway) Close() {}

func (g testGateway) ChainID() string { return "4c78adac" }

func (g testGateway) Balance(ctx context.Context, owner string) (uint64, error) {
	return g.balance, nil
}

// useLedger routes every dial in the test to l, signing as sender.
func useLedger(t *testing.T, l *ledgertest.Ledger, sender string) {
	t.Helper()
	prev := dialGateway
	dialGateway = func(ctx context.Context, cfg Config, logger *slog.Logger) (Gateway, error) {
		return testGateway{Account: l.As(sender), balance: 1_500_000_000}, nil
	}
	t.Cleanup(func() { dialGateway = prev })
}

func testConfig(l *ledgertest.Ledger, command string, args ...string) Config {
	return Config{
		PackageID:  l.PackageID(),
		RegistryID: l.RegistryID(),
		Fanout:     4,
		Locale:     "en-US",
		HealthPort: 0,
		Command:    command,
		Args:       args,
	}
}

func run(t *testing.T, cfg Config) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := Run(context.Background(), cfg, &out, &errOut)
	return out.String(), errOut.String(), err
}

// seedPoll creates a listed form with one question that bob voted on.
func seedPoll(t *testing.T, l *ledgertest.Ledger) string {
	t.Helper()
	b, err := contract.NewBinding(l.PackageID(), l.RegistryID())
	if err != nil {
		t.Fatalf("NewBinding: %v", err)
	}
	ctx := context.Background()
	author := service.New(l.As(alice), b)
	created := author.CreateForm(ctx, "Team lunch", "Pick a day")
	if !created.Success {
		t.Fatalf("create form: %s", created.Error)
	}
	steps := []domain.TxResult{
		author.AddQuestion(ctx, created.FormID, "Day", "Which day?", []string{"Mon", "Tue"}),
		author.ListForm(ctx, created.FormID),
		service.New(l.As(bob), b).VoteOnQuestion(ctx, created.FormID, 0, 1),
	}
	for i, r := range steps {
		if !r.Success {
			t.Fatalf("seed step %d: %s", i, r.Error)
		}
	}
	return created.FormID
}

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("forms", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"stats"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Command != "stats" {
		t.Fatalf("command = %q, want stats", cfg.Command)
	}
	if cfg.GasBudget != sui.DefaultGasBudget {
		t.Fatalf("gas budget = %d, want %d", cfg.GasBudget, sui.DefaultGasBudget)
	}
	if cfg.Fanout != 16 {
		t.Fatalf("fanout = %d, want 16", cfg.Fanout)
	}
	if cfg.Locale != "en-US" {
		t.Fatalf("locale = %q, want en-US", cfg.Locale)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Fatalf("request timeout = %v, want 30s", cfg.RequestTimeout)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("FORMLEDGER_REGISTRY_ID", "0x5")
	fs := flag.NewFlagSet("forms", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-package", "0x2", "-fanout", "3", "vote", "-form", "0x1", "-option", "2"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.PackageID != "0x2" || cfg.RegistryID != "0x5" {
		t.Fatalf("ids = %q/%q, want 0x2/0x5", cfg.PackageID, cfg.RegistryID)
	}
	if cfg.Fanout != 3 {
		t.Fatalf("fanout = %d, want 3", cfg.Fanout)
	}
	if cfg.Command != "vote" {
		t.Fatalf("command = %q, want vote", cfg.Command)
	}
	if got := strings.Join(cfg.Args, " "); got != "-form 0x1 -option 2" {
		t.Fatalf("args = %q, want %q", got, "-form 0x1 -option 2")
	}
}

func TestParseConfigErrors(t *testing.T) {
	cases := map[string][]string{
		"no command":      nil,
		"gas over budget": {"-gas-budget", "100000001", "stats"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			fs := flag.NewFlagSet("forms", flag.ContinueOnError)
			fs.SetOutput(&bytes.Buffer{})
			if _, err := ParseConfig(fs, args); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRunUnknownCommand(t *testing.T) {
	_, _, err := run(t, Config{Command: "teleport"})
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("err = %v, want unknown command", err)
	}
}

func TestStatusReadOnlyWithoutContract(t *testing.T) {
	l := ledgertest.New()
	useLedger(t, l, "")

	out, _, err := run(t, Config{RPCURL: "https://fullnode.testnet.sui.io:443", Locale: "en-US", Command: "status"})
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{
		"wss://fullnode.testnet.sui.io:443",
		"Chain:     4c78adac",
		"read-only",
		"Contract:  not configured",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestStatusWithAccountAndContract(t *testing.T) {
	l := ledgertest.New()
	seedPoll(t, l)
	useLedger(t, l, alice)

	out, _, err := run(t, testConfig(l, "status"))
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"Balance:   1.5 SUI", "Forms:     1 (1 active, 0 inactive)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestContractRequired(t *testing.T) {
	l := ledgertest.New()
	useLedger(t, l, alice)

	_, errOut, err := run(t, Config{Locale: "en-US", Command: "stats"})
	if !errors.Is(err, ErrFailed) {
		t.Fatalf("err = %v, want ErrFailed", err)
	}
	if !strings.Contains(errOut, "package id is required") {
		t.Fatalf("errOut = %q, want package id message", errOut)
	}
}

func TestCreateReportsTransaction(t *testing.T) {
	l := ledgertest.New()
	useLedger(t, l, alice)

	out, _, err := run(t, testConfig(l, "create", "-title", "Book club", "-description", "Next read"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.Contains(out, "Transaction: ") || !strings.Contains(out, "Book club") {
		t.Fatalf("create output = %q", out)
	}
}

func TestCreateValidationFailure(t *testing.T) {
	l := ledgertest.New()
	useLedger(t, l, alice)

	_, errOut, err := run(t, testConfig(l, "create", "-title", "", "-description", "x"))
	if !errors.Is(err, ErrFailed) {
		t.Fatalf("err = %v, want ErrFailed", err)
	}
	if len(l.Events()) != 0 {
		t.Fatalf("events = %d, want none submitted", len(l.Events()))
	}
	if !strings.Contains(errOut, "required") {
		t.Fatalf("errOut = %q, want validation message", errOut)
	}
}

func TestMutationAbortsPrintAction(t *testing.T) {
	l := ledgertest.New()
	formID := seedPoll(t, l)

	tests := []struct {
		name    string
		sender  string
		command string
		args    []string
		want    []string
	}{
		{
			name:    "list twice",
			sender:  alice,
			command: "list",
			args:    []string{formID},
			want:    []string{"info: This form is already active", "Try: "},
		},
		{
			name:    "vote twice",
			sender:  bob,
			command: "vote",
			args:    []string{"-form", formID, "-question", "0", "-option", "0"},
			want:    []string{"error: You have already voted on this question"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useLedger(t, l, tt.sender)
			_, errOut, err := run(t, testConfig(l, tt.command, tt.args...))
			if !errors.Is(err, ErrFailed) {
				t.Fatalf("err = %v, want ErrFailed", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(errOut, want) {
					t.Fatalf("errOut missing %q:\n%s", want, errOut)
				}
			}
		})
	}
}

func TestDelistThenListForms(t *testing.T) {
	l := ledgertest.New()
	formID := seedPoll(t, l)
	useLedger(t, l, alice)

	if _, _, err := run(t, testConfig(l, "delist", formID)); err != nil {
		t.Fatalf("delist: %v", err)
	}

	tests := []struct {
		args []string
		want string
	}{
		{args: nil, want: "Team lunch"},
		{args: []string{"-state", "inactive"}, want: "inactive"},
		{args: []string{"-state", "active"}, want: "No forms."},
		{args: []string{"-mine", "-search", "LUNCH"}, want: "Team lunch"},
		{args: []string{"-search", "which day"}, want: "Team lunch"},
		{args: []string{"-author", bob}, want: "No forms."},
	}
	for _, tt := range tests {
		out, _, err := run(t, testConfig(l, "list-forms", tt.args...))
		if err != nil {
			t.Fatalf("list-forms %v: %v", tt.args, err)
		}
		if !strings.Contains(out, tt.want) {
			t.Fatalf("list-forms %v = %q, want %q", tt.args, out, tt.want)
		}
	}
}

func TestListFormsRejectsBadFlags(t *testing.T) {
	l := ledgertest.New()
	useLedger(t, l, alice)

	for _, args := range [][]string{{"-state", "archived"}, {"-sort", "loudest"}} {
		if _, _, err := run(t, testConfig(l, "list-forms", args...)); !errors.Is(err, ErrFailed) {
			t.Fatalf("list-forms %v err = %v, want ErrFailed", args, err)
		}
	}
}

func TestShowPrintsResultsAndActivity(t *testing.T) {
	l := ledgertest.New()
	formID := seedPoll(t, l)
	useLedger(t, l, bob)

	out, _, err := run(t, testConfig(l, "show", formID))
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	for _, want := range []string{
		"Team lunch (active)",
		"[0] Day (1 votes)",
		"* 1. Tue",
		"100.0%",
		"You voted on this question.",
		"Recent activity:",
		"UserVoted",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("show output missing %q:\n%s", want, out)
		}
	}
}

func TestShowMissingForm(t *testing.T) {
	l := ledgertest.New()
	useLedger(t, l, "")

	_, errOut, err := run(t, testConfig(l, "show", "0xdead"))
	if !errors.Is(err, ErrFailed) {
		t.Fatalf("err = %v, want ErrFailed", err)
	}
	if !strings.Contains(errOut, "not found") {
		t.Fatalf("errOut = %q, want not found", errOut)
	}
}

func TestEventsFilterByType(t *testing.T) {
	l := ledgertest.New()
	seedPoll(t, l)
	useLedger(t, l, "")

	out, _, err := run(t, testConfig(l, "events", "-type", "uservoted"))
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if !strings.Contains(out, "UserVoted") || strings.Contains(out, "FormListed") {
		t.Fatalf("events output = %q, want only UserVoted", out)
	}

	if _, _, err := run(t, testConfig(l, "events", "-type", "FormBurned")); !errors.Is(err, ErrFailed) {
		t.Fatalf("unknown type err = %v, want ErrFailed", err)
	}
}

func TestNetworkFailureIsRetryable(t *testing.T) {
	l := ledgertest.New()
	useLedger(t, l, "")
	l.FailNext(errors.New("connection reset"))

	_, errOut, err := run(t, testConfig(l, "stats"))
	if !errors.Is(err, ErrFailed) {
		t.Fatalf("err = %v, want ErrFailed", err)
	}
	if !strings.Contains(errOut, "This may succeed if retried.") {
		t.Fatalf("errOut = %q, want retry hint", errOut)
	}
}

func TestJournalRequiresPath(t *testing.T) {
	_, errOut, err := run(t, Config{Locale: "en-US", Command: "journal"})
	if !errors.Is(err, ErrFailed) {
		t.Fatalf("err = %v, want ErrFailed", err)
	}
	if !strings.Contains(errOut, "journal path is required") {
		t.Fatalf("errOut = %q", errOut)
	}
}

func TestJournalListsFilteredEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()
	store, err := sqlite.Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for i, typ := range []domain.EventType{domain.EventFormListed, domain.EventUserVoted, domain.EventUserVoted} {
		entry := storage.Entry{
			TxDigest: "digest" + string(rune('a'+i)),
			EventSeq: "0",
			Type:     typ,
			FormID:   "0xf1",
			Author:   alice,
		}
		if typ == domain.EventUserVoted {
			entry.Voter = bob
		}
		if _, err := store.AppendEntry(ctx, entry); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	store.Close()

	cfg := Config{Locale: "en-US", JournalPath: path, Command: "journal", Args: []string{"-filter", `type = "UserVoted"`, "-limit", "1"}}
	out, _, err := run(t, cfg)
	if err != nil {
		t.Fatalf("journal: %v", err)
	}
	if strings.Count(out, "UserVoted") != 1 || !strings.Contains(out, "Next page: -page-token") {
		t.Fatalf("journal output = %q", out)
	}

	cfg.Args = []string{"-filter", "type ="}
	if _, _, err := run(t, cfg); !errors.Is(err, ErrFailed) {
		t.Fatalf("bad filter err = %v, want ErrFailed", err)
	}
}

// syncBuffer is a bytes.Buffer safe for the watcher's observer goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchCatchesUpIntoJournal(t *testing.T) {
	l := ledgertest.New()
	seedPoll(t, l)
	useLedger(t, l, "")
	ctx := context.Background()

	// Journal the first event so the watcher replays everything after it.
	b, err := contract.NewBinding(l.PackageID(), l.RegistryID())
	if err != nil {
		t.Fatalf("NewBinding: %v", err)
	}
	first, err := events.NewStream(l.As(""), b, nil).QueryPage(ctx, events.Query{Limit: 1})
	if err != nil || len(first.Events) != 1 {
		t.Fatalf("first event: %v (%d events)", err, len(first.Events))
	}
	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := sqlite.Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.AppendEntry(ctx, storage.EntryFromEvent(first.Events[0])); err != nil {
		t.Fatalf("append: %v", err)
	}
	store.Close()

	cfg := testConfig(l, "watch")
	cfg.JournalPath = path
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- Run(runCtx, cfg, out, &bytes.Buffer{})
	}()

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(out.String(), "UserVoted") {
		if time.Now().After(deadline) {
			t.Fatalf("watch output = %q, want UserVoted", out.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watch: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}

	store, err = sqlite.Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	last, err := store.LastEntry(ctx)
	if err != nil {
		t.Fatalf("last entry: %v", err)
	}
	if last.Type != domain.EventUserVoted {
		t.Fatalf("last entry type = %s, want UserVoted", last.Type)
	}
}

func TestFormatSui(t *testing.T) {
	tests := []struct {
		mist uint64
		want string
	}{
		{0, "0"},
		{1_000_000_000, "1"},
		{1_500_000_000, "1.5"},
		{1, "0.000000001"},
	}
	for _, tt := range tests {
		if got := formatSui(tt.mist); got != tt.want {
			t.Fatalf("formatSui(%d) = %q, want %q", tt.mist, got, tt.want)
		}
	}
}
