package service

import (
	"context"
	"fmt"

	"github.com/louisbranch/formledger/internal/ledger"
	apperrors "github.com/louisbranch/formledger/internal/platform/errors"
	"github.com/louisbranch/formledger/internal/services/forms/analytics"
	"github.com/louisbranch/formledger/internal/services/forms/contract"
	"github.com/louisbranch/formledger/internal/services/forms/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// GetForm reads one form. It reports false, without an error, when the
// object is missing, is not a Form, or cannot be decoded. The error is
// reserved for failed reads.
func (s *Service) GetForm(ctx context.Context, formID string) (domain.Form, bool, error) {
	ctx, span := s.tracer.Start(ctx, "forms.GetForm", trace.WithAttributes(attribute.String("form_id", formID)))
	defer span.End()
	return s.getForm(ctx, formID)
}

func (s *Service) getForm(ctx context.Context, formID string) (domain.Form, bool, error) {
	id, err := ledger.NormalizeID(formID)
	if err != nil {
		return domain.Form{}, false, apperrors.Wrap(apperrors.CodeInvalidArgument, fmt.Sprintf("invalid form id %q", formID), err)
	}
	obj, found, err := s.gateway.GetObject(ctx, id)
	if err != nil {
		return domain.Form{}, false, readError(err)
	}
	if !found {
		return domain.Form{}, false, nil
	}
	if !s.binding.IsType(obj.Type, contract.StructForm) {
		s.logger.Debug("object is not a form", "form_id", id, "type", obj.Type)
		return domain.Form{}, false, nil
	}
	form, err := decodeForm(obj)
	if err != nil {
		s.logger.Warn("form dropped",
			"event", "forms_object_decode_failed",
			"form_id", id,
			"error", err.Error(),
		)
		return domain.Form{}, false, nil
	}
	return form, true, nil
}

// GetRegistry reads the registry object.
func (s *Service) GetRegistry(ctx context.Context) (domain.Registry, error) {
	ctx, span := s.tracer.Start(ctx, "forms.GetRegistry")
	defer span.End()

	obj, found, err := s.gateway.GetObject(ctx, s.binding.RegistryID)
	if err != nil {
		return domain.Registry{}, readError(err)
	}
	if !found || !s.binding.IsType(obj.Type, contract.StructFormRegistry) {
		return domain.Registry{}, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("registry %s not found", s.binding.RegistryID))
	}
	reg, err := decodeRegistry(obj)
	if err != nil {
		return domain.Registry{}, apperrors.Wrap(apperrors.CodeDecodeError, "decode registry", err)
	}
	return reg, nil
}

// GetAllFormIDs returns the registry's form ids in insertion order.
func (s *Service) GetAllFormIDs(ctx context.Context) ([]string, error) {
	reg, err := s.GetRegistry(ctx)
	if err != nil {
		return nil, err
	}
	return reg.FormIDs, nil
}

// GetAllForms reads every registered form concurrently. Forms that are
// missing, undecodable, or whose read fails are left out; the rest keep
// registry order. Each form is read independently, so the set is not a
// consistent snapshot.
func (s *Service) GetAllForms(ctx context.Context) ([]domain.Form, error) {
	ctx, span := s.tracer.Start(ctx, "forms.GetAllForms")
	defer span.End()

	ids, err := s.GetAllFormIDs(ctx)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("forms", len(ids)))

	slots := make([]*domain.Form, len(ids))
	var g errgroup.Group
	g.SetLimit(s.fanout)
	for i, id := range ids {
		g.Go(func() error {
			form, found, err := s.getForm(ctx, id)
			if err != nil {
				s.logger.Warn("form read failed", "form_id", id, "error", err.Error())
				return nil
			}
			if found {
				slots[i] = &form
			}
			return nil
		})
	}
	_ = g.Wait()

	forms := make([]domain.Form, 0, len(ids))
	for _, f := range slots {
		if f != nil {
			forms = append(forms, *f)
		}
	}
	return forms, nil
}

// GetActiveForms returns the listed forms.
func (s *Service) GetActiveForms(ctx context.Context) ([]domain.Form, error) {
	return s.where(ctx, func(f domain.Form) bool { return f.IsActive })
}

// GetInactiveForms returns the forms that are not listed.
func (s *Service) GetInactiveForms(ctx context.Context) ([]domain.Form, error) {
	return s.where(ctx, func(f domain.Form) bool { return !f.IsActive })
}

// GetFormsByAuthor returns the forms created by author.
func (s *Service) GetFormsByAuthor(ctx context.Context, author string) ([]domain.Form, error) {
	return s.where(ctx, func(f domain.Form) bool { return ledger.SameID(f.Author, author) })
}

// GetCurrentUserForms returns the forms created by the signing address.
func (s *Service) GetCurrentUserForms(ctx context.Context) ([]domain.Form, error) {
	sender := s.gateway.Sender()
	if sender == "" {
		return nil, apperrors.New(apperrors.CodeConfiguration, "no signing key configured")
	}
	return s.GetFormsByAuthor(ctx, sender)
}

// GetRegistryStats counts the readable forms and their questions.
func (s *Service) GetRegistryStats(ctx context.Context) (domain.RegistryStats, error) {
	forms, err := s.GetAllForms(ctx)
	if err != nil {
		return domain.RegistryStats{}, err
	}
	return analytics.RegistryStats(forms), nil
}

// SearchForms returns the forms whose title or description contains term,
// ignoring case.
func (s *Service) SearchForms(ctx context.Context, term string) ([]domain.Form, error) {
	forms, err := s.GetAllForms(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.SearchForms(forms, term), nil
}

func (s *Service) where(ctx context.Context, keep func(domain.Form) bool) ([]domain.Form, error) {
	forms, err := s.GetAllForms(ctx)
	if err != nil {
		return nil, err
	}
	out := forms[:0]
	for _, f := range forms {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out, nil
}

func readError(err error) error {
	if apperrors.CodeOf(err) != apperrors.CodeUnknown {
		return err
	}
	return apperrors.Wrap(apperrors.CodeNetworkError, "network error: "+err.Error(), err)
}
