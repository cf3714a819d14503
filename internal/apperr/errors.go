package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error. Every kind except Internal is a
// recoverable, user-facing condition.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindDenied
	KindNotFound
	KindValidation
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindDenied:
		return "denied"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "state_conflict"
	default:
		return "internal"
	}
}

// Error codes used for localized messages.
const (
	CodeUnauthenticated                = "unauthenticated"
	CodeEmailUnavailable               = "email_unavailable"
	CodeDenied                         = "denied"
	CodeOwnerOnly                      = "owner_only"
	CodeRefrigeratorNotFound           = "refrigerator_not_found"
	CodeCategoryNotFound               = "category_not_found"
	CodeIngredientNotFound             = "ingredient_not_found"
	CodeInvitationNotFound             = "invitation_not_found"
	CodeRecipeNotFound                 = "recipe_not_found"
	CodeMemberNotFound                 = "member_not_found"
	CodeInvalidID                      = "invalid_id"
	CodeInvalidPayload                 = "invalid_payload"
	CodeTranslationRequired            = "translation_required"
	CodeSelfInvitation                 = "self_invitation"
	CodeDuplicateInvitation            = "duplicate_invitation"
	CodeAlreadyMember                  = "already_member"
	CodeAlreadyProcessed               = "already_processed"
	CodeAlreadyAccepted                = "already_accepted"
	CodeAlreadyFavorited               = "already_favorited"
	CodeSystemCategoryImmutable        = "system_category_immutable"
	CodeVirtualRefrigeratorExists      = "virtual_refrigerator_exists"
	CodeVirtualRefrigeratorUndeletable = "virtual_refrigerator_undeletable"
	CodeInternal                       = "internal"
)

// Error is the application error carried from services to handlers.
type Error struct {
	Kind Kind
	Code string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by code so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

func New(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg}
}

// Wrap builds an error of the given kind around a cause.
func Wrap(kind Kind, code, msg string, err error) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg, Err: err}
}

// Internal wraps an unexpected failure, usually from persistence.
func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Msg: op, Err: err}
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Code: CodeInvalidPayload, Msg: msg}
}

// Sentinels for the state conflicts and lookups the services return.
var (
	ErrUnauthenticated                = New(KindUnauthenticated, CodeUnauthenticated, "user not authenticated")
	ErrEmailUnavailable               = New(KindDenied, CodeEmailUnavailable, "verified email unavailable")
	ErrDenied                         = New(KindDenied, CodeDenied, "access denied")
	ErrOwnerOnly                      = New(KindDenied, CodeOwnerOnly, "only the refrigerator owner may do this")
	ErrRefrigeratorNotFound           = New(KindNotFound, CodeRefrigeratorNotFound, "refrigerator not found")
	ErrCategoryNotFound               = New(KindNotFound, CodeCategoryNotFound, "category not found")
	ErrIngredientNotFound             = New(KindNotFound, CodeIngredientNotFound, "ingredient not found")
	ErrInvitationNotFound             = New(KindNotFound, CodeInvitationNotFound, "invitation not found")
	ErrMemberNotFound                 = New(KindNotFound, CodeMemberNotFound, "member not found")
	ErrRecipeNotFound                 = New(KindNotFound, CodeRecipeNotFound, "recipe not found")
	ErrTranslationRequired            = New(KindValidation, CodeTranslationRequired, "system categories need at least one name")
	ErrSelfInvitation                 = New(KindValidation, CodeSelfInvitation, "cannot invite yourself")
	ErrDuplicateInvitation            = New(KindConflict, CodeDuplicateInvitation, "user already invited")
	ErrAlreadyMember                  = New(KindConflict, CodeAlreadyMember, "user is already a member")
	ErrAlreadyProcessed               = New(KindConflict, CodeAlreadyProcessed, "invitation already processed")
	ErrAlreadyAccepted                = New(KindConflict, CodeAlreadyAccepted, "accepted invitations cannot be cancelled")
	ErrAlreadyFavorited               = New(KindConflict, CodeAlreadyFavorited, "recipe already in favorites")
	ErrSystemCategoryImmutable        = New(KindConflict, CodeSystemCategoryImmutable, "system categories cannot be deleted")
	ErrVirtualRefrigeratorExists      = New(KindConflict, CodeVirtualRefrigeratorExists, "only one virtual refrigerator is allowed")
	ErrVirtualRefrigeratorUndeletable = New(KindConflict, CodeVirtualRefrigeratorUndeletable, "virtual refrigerators cannot be deleted")
)

// KindOf reports the kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf reports the code of err, CodeInternal for foreign errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code != "" {
		return e.Code
	}
	return CodeInternal
}

// HTTPStatus maps an error kind onto the response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindDenied:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
