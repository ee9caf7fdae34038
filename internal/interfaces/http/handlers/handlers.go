package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	httperrors "github.com/playtype/account-recovery-service/internal/interfaces/http/errors"
	"go.uber.org/zap"
)

const (
	maxBodyBytes = 1 << 20

	msgInvalidRequest = "유효하지 않은 요청입니다."
	msgInvalidInput   = "입력값이 올바르지 않습니다."
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "필수 항목입니다."
	case "email":
		return "올바른 이메일 형식이 아닙니다."
	case "oneof":
		return "허용되지 않는 값입니다."
	}
	return "올바르지 않은 값입니다."
}

// decodeAndValidate reads a JSON body into req and runs struct validation.
// It writes the error response itself and reports whether the handler may go on.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		httperrors.RespondWithError(w, httperrors.ErrCodeInvalidRequest, msgInvalidRequest, nil, http.StatusBadRequest)
		return false
	}

	if err := validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			httperrors.RespondWithError(w, httperrors.ErrCodeInvalidRequest, msgInvalidRequest, nil, http.StatusBadRequest)
			return false
		}
		var verrs httperrors.ValidationErrors
		for _, fe := range fieldErrs {
			verrs.Add(fe.Field(), fieldMessage(fe))
		}
		httperrors.RespondWithError(w, httperrors.ErrCodeValidation, msgInvalidInput, verrs.ToErrorDetails(), http.StatusBadRequest)
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, logger *zap.Logger, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}
