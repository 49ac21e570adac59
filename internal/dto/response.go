package dto

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	res "terminal-terrace/foodgram/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func SuccessResponse(c *gin.Context, data any) {
	c.JSON(http.StatusOK, res.SuccessResponse(data))
}

// CreatedResponse 创建成功, 返回 201
func CreatedResponse(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, res.SuccessResponse(data))
}

// NoContentResponse 删除成功, 返回 204
func NoContentResponse(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func ErrorResponse(c *gin.Context, err *res.BusinessError) {
	c.JSON(err.HTTPStatus(), res.ErrorResponse(err.Code, err.Msg))
}

var usernameRegex = regexp.MustCompile(`^[\w.@+-]+$`)

// RegisterValidators 让 gin 的校验错误使用 json 字段名, 并注册 username 规则
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRegex.MatchString(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
}

// ValidationErrorResponse 处理验证错误，返回友好的JSON字段名
// data 中包含全部字段的错误信息
func ValidationErrorResponse(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fields := make(map[string]string, len(validationErrs))
		for _, fe := range validationErrs {
			fields[getJSONFieldName(fe)] = friendlyMessage(fe)
		}

		firstErr := validationErrs[0]
		c.JSON(http.StatusBadRequest, res.CustomResponse(
			res.WithCode(res.ParseError),
			res.WithMessage(fmt.Sprintf("字段 '%s' %s", getJSONFieldName(firstErr), friendlyMessage(firstErr))),
			res.WithData(fields),
		))
		return
	}

	// 如果不是 validation 错误，返回原始错误消息
	ErrorResponse(c, res.NewBusinessError(
		res.WithErrorCode(res.ParseError),
		res.WithErrorMessage("参数错误: "+err.Error()),
	))
}

func friendlyMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "是必填项"
	case "max":
		return fmt.Sprintf("不能超过 %s", fe.Param())
	case "min":
		return fmt.Sprintf("不能少于 %s", fe.Param())
	case "gte":
		return fmt.Sprintf("不能小于 %s", fe.Param())
	case "email":
		return "必须是合法的邮箱地址"
	case "hexcolor":
		return "必须是十六进制颜色, 如 #E26C2D"
	case "oneof":
		return fmt.Sprintf("必须是以下值之一: %s", fe.Param())
	case "username":
		return "只能包含字母、数字和 @/./+/-/_"
	default:
		return fmt.Sprintf("验证失败: %s", fe.Tag())
	}
}

// getJSONFieldName 获取字段的JSON标签名称
// 已注册 tag name 时 Field() 即为 json 名, 否则回退到 snake_case
func getJSONFieldName(fe validator.FieldError) string {
	field := fe.Field()
	if field != fe.StructField() {
		return field
	}
	return toSnakeCase(field)
}

// toSnakeCase 将PascalCase转换为snake_case
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune('_')
		}
		result.WriteRune(r)
	}
	return strings.ToLower(result.String())
}
