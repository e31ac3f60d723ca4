package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waritsan/fincrew/advisor"
	"github.com/waritsan/fincrew/trace"
)

func TestParseRunFlags_Defaults(t *testing.T) {
	flags, err := parseRunFlags(nil)
	require.NoError(t, err)

	assert.True(t, flags.recreateAgents)
	assert.Equal(t, "บริษัท กมลโลหะกิจ จำกัด", flags.companyName)
	assert.Equal(t, 1, flags.iterations)
	assert.Equal(t, trace.LevelCore, flags.traceLevel)
	assert.False(t, flags.cleanUp)
	assert.Empty(t, flags.configPath)
}

func TestParseRunFlags_Overrides(t *testing.T) {
	flags, err := parseRunFlags([]string{
		"--recreate_agents=false",
		"--company_name", "Acme Metals Co",
		"--iterations", "3",
		"--trace_level", "outline",
		"--clean_up=true",
		"--config", "/etc/fincrew/config.yaml",
	})
	require.NoError(t, err)

	assert.False(t, flags.recreateAgents)
	assert.Equal(t, "Acme Metals Co", flags.companyName)
	assert.Equal(t, 3, flags.iterations)
	assert.Equal(t, trace.LevelOutline, flags.traceLevel)
	assert.True(t, flags.cleanUp)
	assert.Equal(t, "/etc/fincrew/config.yaml", flags.configPath)
}

func TestParseRunFlags_InvalidIterations(t *testing.T) {
	_, err := parseRunFlags([]string{"--iterations", "0"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "iterations")
}

func TestParseRunFlags_InvalidTraceLevel(t *testing.T) {
	_, err := parseRunFlags([]string{"--trace_level", "verbose"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trace")
}

// scriptedInvoker 记录调用并返回固定结果。
type scriptedInvoker struct {
	result  *advisor.RunResult
	err     error
	calls   int
	company string
}

func (s *scriptedInvoker) Invoke(_ context.Context, companyName string, _ int) (*advisor.RunResult, error) {
	s.calls++
	s.company = companyName
	return s.result, s.err
}

func TestInvokeAndReport_RecreateOnly(t *testing.T) {
	inv := &scriptedInvoker{}
	var out bytes.Buffer

	invokeAndReport(context.Background(), inv, &runFlags{recreateAgents: true}, &out)

	assert.Equal(t, "Recreated agents.\n", out.String())
	assert.Zero(t, inv.calls, "recreate-only must not invoke the supervisor")
}

func TestInvokeAndReport_Success(t *testing.T) {
	inv := &scriptedInvoker{result: &advisor.RunResult{Output: "final report"}}
	var out bytes.Buffer

	invokeAndReport(context.Background(), inv, &runFlags{
		companyName: "Acme Metals Co",
		iterations:  1,
	}, &out)

	assert.Equal(t, 1, inv.calls)
	assert.Equal(t, "Acme Metals Co", inv.company)
	assert.Contains(t, out.String(), "Invoking supervisor agent...")
	assert.Contains(t, out.String(), "final report")
	assert.Contains(t, out.String(), "\nTime taken: ")
	assert.Contains(t, out.String(), " seconds\n")
}

func TestInvokeAndReport_ErrorStillPrintsElapsed(t *testing.T) {
	inv := &scriptedInvoker{err: errors.New("provider exploded")}
	var out bytes.Buffer

	invokeAndReport(context.Background(), inv, &runFlags{
		companyName: "Acme Metals Co",
		iterations:  1,
	}, &out)

	s := out.String()
	assert.Contains(t, s, "provider exploded")
	assert.Contains(t, s, "\nTime taken: ")

	// 错误打印后耗时行仍然输出
	assert.Greater(t, strings.Index(s, "Time taken:"), strings.Index(s, "provider exploded"))
}
