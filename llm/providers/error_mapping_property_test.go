package providers

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/waritsan/fincrew/llm"
)

// 对任意状态码与消息, MapHTTPError 必须保持三个不变量:
// 消息/状态码/提供者名原样保留, Retryable 仅在限流、过载与 5xx 时为真,
// 400 的配额关键词检测不区分大小写。
func TestProperty_ErrorMappingInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("message, status and provider are always preserved", prop.ForAll(
		func(status int, msg string, provider string) bool {
			err := MapHTTPError(status, msg, provider)
			if err == nil {
				return false
			}
			return err.Message == msg && err.HTTPStatus == status && err.Provider == provider
		},
		gen.IntRange(400, 599),
		gen.AlphaString(),
		gen.Identifier(),
	))

	properties.Property("retryable only for 429, 529 and 5xx", prop.ForAll(
		func(status int) bool {
			err := MapHTTPError(status, "some message", "p")
			wantRetry := status == 429 || status == 529 || status >= 500
			return err.Retryable == wantRetry
		},
		gen.IntRange(400, 599),
	))

	properties.Property("quota and credit keywords on 400 map to quota exceeded regardless of case", prop.ForAll(
		func(prefix string, upper bool) bool {
			keyword := "quota"
			if upper {
				keyword = "CREDIT"
			}
			err := MapHTTPError(400, prefix+" "+keyword+" reached", "p")
			return err.Code == llm.ErrQuotaExceeded && !err.Retryable
		},
		gen.AlphaString(),
		gen.Bool(),
	))

	properties.Property("plain 400 messages map to invalid request", prop.ForAll(
		func(msg string) bool {
			lower := strings.ToLower(msg)
			if strings.Contains(lower, "quota") || strings.Contains(lower, "credit") {
				return true // 关键词路径由上一条属性覆盖
			}
			err := MapHTTPError(400, msg, "p")
			return err.Code == llm.ErrInvalidRequest
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
