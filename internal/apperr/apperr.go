// Package apperr définit les erreurs métier partagées par les services et
// leur traduction en réponses HTTP.
package apperr

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindInvalidSignature
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindGateway
)

// Error porte un Kind et un message destiné au client.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(field, format string, args ...any) error {
	return &Error{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

func NotFound(resource, id string) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %s not found", resource, id)}
}

func Forbidden(msg string) error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func Unauthorized(msg string) error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

var ErrInvalidSignature = &Error{Kind: KindInvalidSignature, Message: "invalid signature"}

func Gateway(err error) error {
	return &Error{Kind: KindGateway, Message: "payment gateway unavailable, try again", Err: err}
}

// KindOf retourne le Kind de la première *Error de la chaîne, KindInternal sinon.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func status(kind Kind) int {
	switch kind {
	case KindValidation, KindInvalidSignature:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindGateway:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Respond écrit la réponse d'erreur et interrompt la chaîne gin.
func Respond(c *gin.Context, err error) {
	var e *Error
	if !errors.As(err, &e) {
		log.Printf("❌ %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	code := status(e.Kind)
	if code >= http.StatusInternalServerError {
		log.Printf("❌ %s %s: %v", c.Request.Method, c.FullPath(), err)
	} else {
		log.Printf("⚠️ %s %s → %d: %s", c.Request.Method, c.FullPath(), code, e.Message)
	}

	body := gin.H{"error": e.Message}
	if e.Field != "" {
		body["field"] = e.Field
	}
	c.AbortWithStatusJSON(code, body)
}
