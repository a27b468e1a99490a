package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/formledger/internal/ledger"
	apperrors "github.com/louisbranch/formledger/internal/platform/errors"
	"github.com/louisbranch/formledger/internal/services/forms/analytics"
	"github.com/louisbranch/formledger/internal/services/forms/contract"
	"github.com/louisbranch/formledger/internal/services/forms/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// CreateForm creates a form owned by the sender. The new id is read from
// the transaction's object changes.
func (s *Service) CreateForm(ctx context.Context, title, description string) domain.TxResult {
	ctx, span := s.tracer.Start(ctx, "forms.CreateForm")
	defer span.End()

	if v := s.localizer.ValidateCreateForm(title, description); !v.IsValid {
		return s.finish(span, s.invalid(v))
	}
	tx, err := s.binding.CreateForm(title, description)
	result := s.execute(ctx, "CreateForm", "", tx, err)
	if result.Success {
		created := createdForms(s.binding, result.ObjectChanges)
		if len(created) == 0 {
			s.logger.Warn("created form missing from object changes", "op", "CreateForm", "tx", result.TransactionID)
		} else {
			result.FormID = created[0]
			result.Form = s.refetch(ctx, result.FormID)
		}
	}
	return s.finish(span, result)
}

// TransferFormToCreator returns a form to its author.
func (s *Service) TransferFormToCreator(ctx context.Context, formID string) domain.TxResult {
	return s.formOp(ctx, "TransferFormToCreator", formID, s.binding.TransferFormToCreator)
}

// AddQuestion appends a question. Invalid input fails before submission
// with every violated rule listed.
func (s *Service) AddQuestion(ctx context.Context, formID, title, description string, options []string) domain.TxResult {
	ctx, span := s.tracer.Start(ctx, "forms.AddQuestion", trace.WithAttributes(attribute.String("form_id", formID)))
	defer span.End()

	if v := s.localizer.ValidateAddQuestion(title, description, options); !v.IsValid {
		result := s.invalid(v)
		result.FormID = formID
		return s.finish(span, result)
	}
	tx, err := s.binding.AddQuestion(formID, title, description, options)
	return s.finish(span, s.mutate(ctx, "AddQuestion", formID, tx, err))
}

// ListForm makes a form public. The ledger rejects listing an active form.
func (s *Service) ListForm(ctx context.Context, formID string) domain.TxResult {
	return s.formOp(ctx, "ListForm", formID, s.binding.ListForm)
}

// DelistForm hides a form. The ledger rejects delisting an inactive form.
func (s *Service) DelistForm(ctx context.Context, formID string) domain.TxResult {
	return s.formOp(ctx, "DelistForm", formID, s.binding.DelistForm)
}

// RelistForm makes a delisted form public again.
func (s *Service) RelistForm(ctx context.Context, formID string) domain.TxResult {
	return s.formOp(ctx, "RelistForm", formID, s.binding.RelistForm)
}

// VoteOnQuestion votes for option on the question at questionIndex. The
// form is fetched first to resolve the index to the question id the
// contract expects.
func (s *Service) VoteOnQuestion(ctx context.Context, formID string, questionIndex int, option uint64) domain.TxResult {
	ctx, span := s.tracer.Start(ctx, "forms.VoteOnQuestion", trace.WithAttributes(
		attribute.String("form_id", formID),
		attribute.Int("question_index", questionIndex),
	))
	defer span.End()

	form, found, err := s.GetForm(ctx, formID)
	if err != nil {
		return s.finish(span, s.failed(formID, asDomainError(err)))
	}
	if !found {
		return s.finish(span, s.failed(formID, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("form %s not found", formID))))
	}
	q, ok := form.Question(questionIndex)
	if !ok {
		return s.finish(span, s.failed(formID, apperrors.WithMetadata(apperrors.CodeNotFound,
			fmt.Sprintf("question %d not found in form %s", questionIndex, formID),
			map[string]string{"questions": fmt.Sprint(len(form.Questions))})))
	}
	tx, err := s.binding.VoteQuestion(form.ID, q.ID, option)
	return s.finish(span, s.mutate(ctx, "VoteOnQuestion", form.ID, tx, err))
}

func (s *Service) formOp(ctx context.Context, op, formID string, build func(string) (ledger.Transaction, error)) domain.TxResult {
	ctx, span := s.tracer.Start(ctx, "forms."+op, trace.WithAttributes(attribute.String("form_id", formID)))
	defer span.End()
	tx, err := build(formID)
	return s.finish(span, s.mutate(ctx, op, formID, tx, err))
}

// mutate executes a write on an existing form and re-reads it on success.
func (s *Service) mutate(ctx context.Context, op, formID string, tx ledger.Transaction, buildErr error) domain.TxResult {
	result := s.execute(ctx, op, formID, tx, buildErr)
	if result.Success {
		result.Form = s.refetch(ctx, result.FormID)
	}
	return result
}

// execute submits tx and normalizes every outcome into a TxResult.
func (s *Service) execute(ctx context.Context, op, formID string, tx ledger.Transaction, buildErr error) domain.TxResult {
	if id, err := ledger.NormalizeID(formID); err == nil {
		formID = id
	}
	if buildErr != nil {
		return s.failed(formID, asDomainError(buildErr))
	}

	receipt, err := s.gateway.Submit(ctx, tx)
	if err != nil {
		s.logger.Error("form transaction not executed", "op", op, "form_id", formID, "error", err.Error())
		return s.failed(formID, gatewayError(err))
	}

	result := domain.TxResult{
		Success:       receipt.Success,
		ObjectChanges: receipt.ObjectChanges,
		Raw:           receipt.Raw,
		FormID:        formID,
	}
	if receipt.Success {
		result.TransactionID = receipt.Digest
		s.logger.Info("form transaction executed", "op", op, "form_id", formID, "tx", receipt.Digest)
		return result
	}

	info := s.localizer.DescribeText(receipt.Error)
	meta := map[string]string{"tx": receipt.Digest}
	if code, ok := analytics.ParseAbortCode(receipt.Error); ok {
		result.AbortCode = code
		meta["abort_code"] = fmt.Sprint(int(code))
	}
	result.Error = info.Message
	result.Failure = &apperrors.Error{
		Code:     apperrors.CodeTransactionFailed,
		Message:  receipt.Error,
		Metadata: meta,
	}
	s.logger.Warn("form transaction failed", "op", op, "form_id", formID, "tx", receipt.Digest, "error", receipt.Error)
	return result
}

func (s *Service) failed(formID string, err *apperrors.Error) domain.TxResult {
	result := domain.Failed(err)
	result.FormID = formID
	if err.Code != apperrors.CodeInvalidArgument && err.Code != apperrors.CodeValidationFailed {
		result.Error = s.localizer.DescribeText(err.Error()).Message
	}
	return result
}

func (s *Service) invalid(v analytics.ValidationResult) domain.TxResult {
	err := apperrors.WithMetadata(apperrors.CodeValidationFailed, strings.Join(v.Errors, "; "), map[string]string{
		"violations": strings.Join(v.Errors, "\n"),
	})
	return domain.Failed(err)
}

// refetch re-reads a form after a write. A failed read leaves the result's
// form unset rather than failing the already executed transaction.
func (s *Service) refetch(ctx context.Context, formID string) *domain.Form {
	if formID == "" {
		return nil
	}
	form, found, err := s.GetForm(ctx, formID)
	if err != nil {
		s.logger.Warn("form re-read failed", "form_id", formID, "error", err.Error())
		return nil
	}
	if !found {
		return nil
	}
	return &form
}

func (s *Service) finish(span trace.Span, result domain.TxResult) domain.TxResult {
	if result.FormID != "" {
		span.SetAttributes(attribute.String("form_id", result.FormID))
	}
	if result.TransactionID != "" {
		span.SetAttributes(attribute.String("tx", result.TransactionID))
	}
	if !result.Success {
		code := apperrors.CodeUnknown
		if result.Failure != nil {
			code = result.Failure.Code
		}
		span.SetStatus(codes.Error, string(code))
	}
	return result
}

// gatewayError classifies a transaction the gateway could not execute.
func gatewayError(err error) *apperrors.Error {
	text := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, ledger.ErrNoSigner):
		return apperrors.Wrap(apperrors.CodeConfiguration, "no signing key configured", err)
	case strings.Contains(text, "object does not exist"):
		return apperrors.Wrap(apperrors.CodeNotFound, err.Error(), err)
	case strings.Contains(text, "insufficient gas"):
		return apperrors.Wrap(apperrors.CodeTransactionFailed, err.Error(), err)
	default:
		return apperrors.Wrap(apperrors.CodeNetworkError, "network error: "+err.Error(), err)
	}
}

// asDomainError keeps coded errors and treats anything else as unknown.
func asDomainError(err error) *apperrors.Error {
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return apperrors.Wrap(apperrors.CodeUnknown, err.Error(), err)
}

func createdForms(b contract.Binding, changes []ledger.ObjectChange) []string {
	return ledger.Receipt{ObjectChanges: changes}.Created(func(tag string) bool {
		return b.IsType(tag, contract.StructForm)
	})
}
