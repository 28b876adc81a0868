package handler

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/qs3c/pec_go_server/internal/pkg/logger"
	"github.com/qs3c/pec_go_server/internal/pkg/response"
	"github.com/qs3c/pec_go_server/internal/service"
)

const (
	maxPageSize     = 100
	defaultPageSize = 20
)

var registerTagName sync.Once

// useJSONFieldNames 校验错误使用 json/form 标签名作为字段名
func useJSONFieldNames() {
	registerTagName.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
	})
}

func validationCode(fe validator.FieldError) string {
	numeric := false
	switch fe.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		numeric = true
	}

	switch fe.Tag() {
	case "required":
		return service.CodeRequired
	case "max":
		if numeric {
			return "max_value"
		}
		return "max_length"
	case "min":
		if numeric {
			return "min_value"
		}
		return "min_length"
	default:
		return service.CodeInvalid
	}
}

// bindJSON 绑定失败时直接写入 400 响应并返回 false
func bindJSON(c *gin.Context, obj interface{}) bool {
	useJSONFieldNames()
	if err := c.ShouldBindJSON(obj); err != nil {
		writeBindError(c, err)
		return false
	}
	return true
}

func bindQuery(c *gin.Context, obj interface{}) bool {
	useJSONFieldNames()
	if err := c.ShouldBindQuery(obj); err != nil {
		writeBindError(c, err)
		return false
	}
	return true
}

func writeBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		response.ValidationError(c, map[string][]string{service.NonFieldErrors: {"parse_error"}})
		return
	}

	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		name := fe.Namespace()
		if i := strings.Index(name, "."); i >= 0 {
			name = name[i+1:]
		}
		fields[name] = append(fields[name], validationCode(fe))
	}
	response.ValidationError(c, fields)
}

// writeError 把 service 层错误映射为响应
func writeError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		response.ValidationError(c, verr.Fields)
	case errors.Is(err, service.ErrPermissionDenied):
		response.PermissionError(c, err.Error())
	case errors.Is(err, service.ErrCommentNotFound),
		errors.Is(err, service.ErrRecipeNotFound),
		errors.Is(err, service.ErrStoryNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrNotFound):
		response.NotFoundError(c, err.Error())
	default:
		logger.Report(c.Request.Context(), err, "request failed")
		response.ServerError(c, "")
	}
}

func normalizePage(page, pageSize *int) {
	if *page < 1 {
		*page = 1
	}
	if *pageSize < 1 || *pageSize > maxPageSize {
		*pageSize = defaultPageSize
	}
}
