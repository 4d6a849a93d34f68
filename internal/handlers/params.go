package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"vastra_back_end/internal/apperr"
)

// QueryInt lit un entier optionnel de la query string.
func QueryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation(name, "%s must be an integer", name)
	}
	return n, nil
}

// QueryFloat retourne nil quand le paramètre est absent.
func QueryFloat(c *gin.Context, name string) (*float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperr.Validation(name, "%s must be a number", name)
	}
	return &f, nil
}

func QueryBool(c *gin.Context, name string) (*bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperr.Validation(name, "%s must be true or false", name)
	}
	return &b, nil
}

// BadBody convertit une erreur de binding gin en erreur de validation.
func BadBody(err error) error {
	return apperr.Validation("body", "invalid request body: %v", err)
}
