package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/louisbranch/formledger/internal/ledger"
	apperrors "github.com/louisbranch/formledger/internal/platform/errors"
	"github.com/louisbranch/formledger/internal/services/forms/domain"
)

func mustNormalize(t *testing.T, id string) string {
	t.Helper()
	norm, err := ledger.NormalizeID(id)
	if err != nil {
		t.Fatalf("NormalizeID(%q): %v", id, err)
	}
	return norm
}

func formIDs(forms []domain.Form) []string {
	ids := make([]string, 0, len(forms))
	for _, f := range forms {
		ids = append(ids, f.ID)
	}
	return ids
}

func TestGetAllFormsSkipsUnreadableEntries(t *testing.T) {
	f := newFixture(t)
	var logs bytes.Buffer
	svc := f.service(alice, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))), WithFanout(2))
	ctx := context.Background()

	first := mustSucceed(t, svc.CreateForm(ctx, "First", "one")).FormID
	missing := mustNormalize(t, "0xdead")
	f.ledger.RegisterForm(missing)
	broken := mustNormalize(t, "0xbad")
	f.ledger.PutObject(ledger.Object{
		ID:   broken,
		Type: f.binding.TypeTag(contractForm),
		Fields: map[string]any{
			"id":    map[string]any{"id": broken},
			"title": 42,
		},
	})
	f.ledger.RegisterForm(broken)
	foreign := mustNormalize(t, "0xf00")
	f.ledger.PutObject(ledger.Object{ID: foreign, Type: "0x2::coin::Coin<0x2::sui::SUI>"})
	f.ledger.RegisterForm(foreign)
	second := mustSucceed(t, svc.CreateForm(ctx, "Second", "two")).FormID

	forms, err := svc.GetAllForms(ctx)
	if err != nil {
		t.Fatalf("GetAllForms: %v", err)
	}
	got := formIDs(forms)
	if len(got) != 2 || got[0] != first || got[1] != second {
		t.Fatalf("forms = %v, want [%s %s]", got, first, second)
	}
	if !strings.Contains(logs.String(), "forms_object_decode_failed") {
		t.Fatalf("logs = %q, want decode failure", logs.String())
	}

	ids, err := svc.GetAllFormIDs(ctx)
	if err != nil || len(ids) != 5 {
		t.Fatalf("GetAllFormIDs = %v, %v", ids, err)
	}
}

func TestGetFormOutcomes(t *testing.T) {
	f := newFixture(t)
	svc := f.service(alice)
	ctx := context.Background()
	formID := mustSucceed(t, svc.CreateForm(ctx, "T", "D")).FormID

	if _, found, err := svc.GetForm(ctx, strings.ToUpper(formID[2:])); err != nil || !found {
		t.Fatalf("short upper-case id: found=%v err=%v", found, err)
	}
	if _, found, err := svc.GetForm(ctx, "0xdead"); err != nil || found {
		t.Fatalf("missing: found=%v err=%v", found, err)
	}
	if _, found, err := svc.GetForm(ctx, f.binding.RegistryID); err != nil || found {
		t.Fatalf("registry as form: found=%v err=%v", found, err)
	}
	if _, _, err := svc.GetForm(ctx, "zz"); !apperrors.HasCode(err, apperrors.CodeInvalidArgument) {
		t.Fatalf("bad id err = %v", err)
	}

	cause := errors.New("connection reset by peer")
	f.ledger.FailNext(cause)
	_, _, err := svc.GetForm(ctx, formID)
	if !apperrors.HasCode(err, apperrors.CodeNetworkError) || !errors.Is(err, cause) {
		t.Fatalf("err = %v, want wrapped network error", err)
	}

	f.ledger.FailNext(cause)
	if _, err := svc.GetAllForms(ctx); !apperrors.HasCode(err, apperrors.CodeNetworkError) {
		t.Fatalf("GetAllForms err = %v", err)
	}
}

func TestRegistryMustDecode(t *testing.T) {
	f := newFixture(t)
	svc := f.service(alice)
	ctx := context.Background()

	reg, err := svc.GetRegistry(ctx)
	if err != nil || reg.Counter != 0 || len(reg.FormIDs) != 0 {
		t.Fatalf("GetRegistry = %+v, %v", reg, err)
	}

	f.ledger.PutObject(ledger.Object{
		ID:     f.binding.RegistryID,
		Type:   f.binding.TypeTag(contractRegistry),
		Fields: map[string]any{"forms": "nope", "counter": "1"},
	})
	if _, err := svc.GetRegistry(ctx); !apperrors.HasCode(err, apperrors.CodeDecodeError) {
		t.Fatalf("err = %v, want decode error", err)
	}

	f.ledger.PutObject(ledger.Object{ID: f.binding.RegistryID, Type: f.binding.TypeTag(contractForm)})
	if _, err := svc.GetRegistry(ctx); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestFilteredReads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	aliceSvc := f.service(alice)
	bobSvc := f.service(bob)

	lunch := pollForm(t, aliceSvc)
	draft := mustSucceed(t, aliceSvc.CreateForm(ctx, "Offsite draft", "Not public yet")).FormID
	retro := mustSucceed(t, bobSvc.CreateForm(ctx, "Retro", "What went well at lunch?")).FormID
	mustSucceed(t, bobSvc.AddQuestion(ctx, retro, "Mood", "How was it?", []string{"Good", "Bad"}))
	mustSucceed(t, bobSvc.ListForm(ctx, retro))

	tests := []struct {
		name string
		read func() ([]domain.Form, error)
		want []string
	}{
		{"active", func() ([]domain.Form, error) { return aliceSvc.GetActiveForms(ctx) }, []string{lunch, retro}},
		{"inactive", func() ([]domain.Form, error) { return aliceSvc.GetInactiveForms(ctx) }, []string{draft}},
		{"by author", func() ([]domain.Form, error) { return aliceSvc.GetFormsByAuthor(ctx, bob) }, []string{retro}},
		{"current user", func() ([]domain.Form, error) { return aliceSvc.GetCurrentUserForms(ctx) }, []string{lunch, draft}},
		{"search title", func() ([]domain.Form, error) { return aliceSvc.SearchForms(ctx, "LUNCH") }, []string{lunch, retro}},
		{"search description", func() ([]domain.Form, error) { return aliceSvc.SearchForms(ctx, "public") }, []string{draft}},
		{"search blank", func() ([]domain.Form, error) { return aliceSvc.SearchForms(ctx, "  ") }, []string{lunch, draft, retro}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forms, err := tt.read()
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			got := formIDs(forms)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Fatalf("forms = %v, want %v", got, tt.want)
			}
		})
	}

	stats, err := aliceSvc.GetRegistryStats(ctx)
	if err != nil {
		t.Fatalf("GetRegistryStats: %v", err)
	}
	want := domain.RegistryStats{TotalForms: 3, ActiveForms: 2, InactiveForms: 1, TotalQuestions: 3}
	if stats != want {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}
}

func TestResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	formID := pollForm(t, f.service(alice))
	mustSucceed(t, f.service(bob).VoteOnQuestion(ctx, formID, 0, 2))
	mustSucceed(t, f.service(carol).VoteOnQuestion(ctx, formID, 0, 2))
	mustSucceed(t, f.service(carol).VoteOnQuestion(ctx, formID, 1, 0))

	svc := f.service("")
	q, ok, err := svc.GetQuestionResults(ctx, formID, 0)
	if err != nil || !ok {
		t.Fatalf("GetQuestionResults = %v, %v", ok, err)
	}
	if q.TotalVotes != 2 || q.Votes[2] != 2 || q.Title != "Day" {
		t.Fatalf("results = %+v", q)
	}
	if _, ok, _ := svc.GetQuestionResults(ctx, formID, 5); ok {
		t.Fatal("expected missing question")
	}

	all, ok, err := svc.GetFormResults(ctx, formID)
	if err != nil || !ok || len(all.Questions) != 2 {
		t.Fatalf("GetFormResults = %+v, %v, %v", all, ok, err)
	}
	if all.Questions[1].Index != 1 || all.Questions[1].TotalVotes != 1 {
		t.Fatalf("question 1 = %+v", all.Questions[1])
	}
	if _, ok, err := svc.GetFormResults(ctx, "0xdead"); ok || err != nil {
		t.Fatalf("missing form = %v, %v", ok, err)
	}

	if voted, err := svc.HasUserVoted(ctx, formID, 0, ""); voted || err != nil {
		t.Fatalf("read-only HasUserVoted = %v, %v", voted, err)
	}
	if voted, _ := svc.HasUserVoted(ctx, formID, 0, carol); !voted {
		t.Fatal("carol voted on question 0")
	}
}
