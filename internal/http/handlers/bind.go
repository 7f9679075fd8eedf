package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/geocoder89/taskhub/internal/apperr"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

// BindJSON decodes and validates the body, answering 400 invalid_request on failure.
func BindJSON(ctx *gin.Context, out interface{}) bool {
	return BindJSONOr(ctx, out, ErrInvalidRequest)
}

// BindJSONOr is BindJSON with a domain error in place of the generic one, so
// a missing field reads as e.g. "Veuillez remplir tous les champs". The
// decoder's findings go under "details".
func BindJSONOr(ctx *gin.Context, out interface{}, onInvalid *apperr.Error) bool {
	err := ctx.ShouldBindJSON(out)

	if err != nil {
		if errors.Is(err, io.EOF) {
			RespondErr(ctx, onInvalid.With("details", gin.H{"json": "empty_body"}))
			return false
		}
		RespondErr(ctx, onInvalid.With("details", parseBindError(err, out)))

		return false
	}

	return true
}

// BindOptionalJSON decodes a body when one was sent; an empty body leaves out untouched.
func BindOptionalJSON(ctx *gin.Context, out interface{}) bool {
	if ctx.Request.ContentLength == 0 {
		return true
	}
	return BindJSON(ctx, out)
}

// ParamID reads a positive integer path parameter.
func ParamID(ctx *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		RespondErr(ctx, ErrInvalidID.With("param", name))
		return 0, false
	}
	return id, true
}

func parseBindError(err error, out interface{}) interface{} {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		rootType := baseStructType(out)
		fields := make([]FieldError, 0, len(validationErrs))

		for _, fe := range validationErrs {
			fields = append(fields, FieldError{
				Field:   jsonFieldName(rootType, fe.StructField()),
				Rule:    fe.Tag(),
				Param:   fe.Param(),
				Message: validationMessage(fe.Tag(), fe.Param()),
			})
		}
		return gin.H{"fields": fields}
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return gin.H{"json": "invalid_json_syntax"}
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := strings.TrimSpace(typeErr.Field)
		return gin.H{
			"json":  "invalid_json_type",
			"field": field,
			"fields": []FieldError{{
				Field:   field,
				Rule:    "type",
				Message: fmt.Sprintf("doit être de type %s", typeErr.Type.String()),
			}},
		}
	}

	return gin.H{"reason": err.Error()}
}

func baseStructType(v interface{}) reflect.Type {
	t := reflect.TypeOf(v)

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t != nil && t.Kind() == reflect.Struct {
		return t
	}

	return nil
}

// jsonFieldName maps a Go field name to its json tag; request bodies here are flat.
func jsonFieldName(root reflect.Type, field string) string {
	if root == nil {
		return field
	}
	sf, ok := root.FieldByName(field)
	if !ok {
		return field
	}
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return field
	}
	return name
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "est obligatoire"
	case "email":
		return "doit être une adresse email valide"
	case "min":
		return "doit contenir au moins " + param + " caractères"
	case "max":
		return "doit contenir au plus " + param + " caractères"
	case "len":
		return "doit contenir exactement " + param + " caractères"
	case "gt":
		return "doit être supérieur à " + param
	case "oneof":
		return "doit valoir l'une de ces valeurs : " + strings.ReplaceAll(param, " ", ", ")
	default:
		if param != "" {
			return fmt.Sprintf("règle %s non respectée (%s)", rule, param)
		}
		return "règle " + rule + " non respectée"
	}
}
